package pdfdoc

import (
	"fmt"
	"strings"
)

// CompressionLevel is the user-facing compression choice. Every level other than
// CompressionNone enables compaction; the levels differ only in what the user was shown.
// The compress tool does not accept CompressionNone since it would only copy the file.
type CompressionLevel string

const (
	CompressionNone   CompressionLevel = "none"
	CompressionLow    CompressionLevel = "low"
	CompressionMedium CompressionLevel = "medium"
	CompressionHigh   CompressionLevel = "high"
)

// ParseCompressionLevel maps a user value onto a level. Empty means medium.
func ParseCompressionLevel(s string) (CompressionLevel, error) {
	switch level := CompressionLevel(strings.ToLower(strings.TrimSpace(s))); level {
	case "":
		return CompressionMedium, nil
	case CompressionNone, CompressionLow, CompressionMedium, CompressionHigh:
		return level, nil
	default:
		return "", fmt.Errorf("unknown compression level %q", s)
	}
}

// Compact reports whether the level enables object-stream compaction.
func (c CompressionLevel) Compact() bool {
	return c != CompressionNone
}
