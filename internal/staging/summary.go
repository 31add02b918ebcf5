package staging

import (
	"math"
	"strconv"

	"github.com/Lllllllleong/pdfworkbench/internal/models"
)

// Summary aggregates a list for display.
type Summary struct {
	Count        int
	TotalBytes   int64
	TotalPages   int
	UnknownPages int
}

// Summarize totals items. Items whose metadata is not loaded count towards UnknownPages.
func Summarize(items []models.StagedItem) Summary {
	var s Summary
	for _, it := range items {
		s.Count++
		s.TotalBytes += it.Size
		if it.Metadata.Loaded() {
			s.TotalPages += it.Metadata.PageCount
		} else {
			s.UnknownPages++
		}
	}
	return s
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatSize renders a byte count with base-1024 units and at most two decimals.
func FormatSize(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	i := 0
	for v := n; v >= 1024 && i < len(sizeUnits)-1; v /= 1024 {
		i++
	}
	v := float64(n) / math.Pow(1024, float64(i))
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + " " + sizeUnits[i]
}
