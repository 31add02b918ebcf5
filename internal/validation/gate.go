// Package validation holds the per-tool checks run before a job is committed. The checks
// are pure functions of the staged snapshot and the tool options: they never mutate the
// list, so a rejected commit can be retried and is rejected the same way every time.
package validation

import (
	"fmt"
	"strings"

	"github.com/Lllllllleong/pdfworkbench/internal/models"
	"github.com/Lllllllleong/pdfworkbench/internal/pages"
)

// Error is a failed precondition. Reason is user-facing.
type Error struct {
	Tool   string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Tool, e.Reason)
}

func reject(tool, format string, args ...any) error {
	return &Error{Tool: tool, Reason: fmt.Sprintf(format, args...)}
}

// MergeOptions are the merge fields that take part in validation.
type MergeOptions struct {
	PasswordEnabled bool
	Password        string
}

// Merge requires at least two documents and, when protection is enabled, a password.
func Merge(items []models.StagedItem, opts MergeOptions) error {
	if len(items) < 2 {
		return reject("merge", "select at least 2 PDF files to merge")
	}
	if opts.PasswordEnabled && strings.TrimSpace(opts.Password) == "" {
		return reject("merge", "enter a password or disable password protection")
	}
	return nil
}

// SplitMode selects which pages a split extracts.
type SplitMode string

const (
	SplitAll    SplitMode = "all"
	SplitRange  SplitMode = "range"
	SplitCustom SplitMode = "custom"
)

// ParseSplitMode maps a user value onto a SplitMode. Empty means SplitAll.
func ParseSplitMode(s string) (SplitMode, error) {
	switch mode := SplitMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "":
		return SplitAll, nil
	case SplitAll, SplitRange, SplitCustom:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown split mode %q", s)
	}
}

// SplitOptions are the split fields that take part in validation. Start and End are
// 1-based and only read in range mode; Pages is only read in custom mode.
type SplitOptions struct {
	Mode  SplitMode
	Start int
	End   int
	Pages string
}

// Split requires exactly one loaded document and a non-empty page selection. It returns
// the resolved 0-based page indices in ascending order.
func Split(items []models.StagedItem, opts SplitOptions) ([]int, error) {
	total, err := loadedSingle("split", items)
	if err != nil {
		return nil, err
	}

	switch opts.Mode {
	case SplitAll, "":
		return pages.Range(1, total, total), nil
	case SplitRange:
		indices := pages.Range(opts.Start, opts.End, total)
		if indices == nil {
			return nil, reject("split", "invalid page range %d-%d: pages must satisfy 1 <= start <= end <= %d", opts.Start, opts.End, total)
		}
		return indices, nil
	case SplitCustom:
		indices := pages.ParseSelection(opts.Pages, total)
		if len(indices) == 0 {
			return nil, reject("split", "no valid pages in %q for a %d page document", opts.Pages, total)
		}
		return indices, nil
	default:
		return nil, reject("split", "unknown split mode %q", opts.Mode)
	}
}

// Convert requires at least one image.
func Convert(items []models.StagedItem) error {
	if len(items) == 0 {
		return reject("convert", "select at least 1 image to convert")
	}
	return nil
}

// Compress requires exactly one loaded document.
func Compress(items []models.StagedItem) error {
	_, err := loadedSingle("compress", items)
	return err
}

func loadedSingle(tool string, items []models.StagedItem) (int, error) {
	if len(items) != 1 {
		return 0, reject(tool, "select exactly 1 PDF file, got %d", len(items))
	}
	item := items[0]
	switch item.Metadata.State {
	case models.MetadataPending:
		return 0, reject(tool, "%s is still loading", item.Name)
	case models.MetadataUnknown:
		return 0, reject(tool, "%s could not be read as a PDF", item.Name)
	}
	if item.Metadata.PageCount < 1 {
		return 0, reject(tool, "%s has no pages", item.Name)
	}
	return item.Metadata.PageCount, nil
}
