// Package pdfdoc is the contract the tools consume from a document engine, plus the pdfcpu
// implementation used in production.
package pdfdoc

import "errors"

// Common errors for document operations.
var (
	ErrLoad              = errors.New("document could not be loaded")
	ErrSerialize         = errors.New("document could not be serialized")
	ErrPageOutOfRange    = errors.New("page index out of range")
	ErrForeignDocument   = errors.New("document was not produced by this library")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrEmptyDocument     = errors.New("document has no pages")
)

// Library is a document engine.
type Library interface {
	// Name returns the engine identifier.
	Name() string

	// Load parses a document. Failures wrap ErrLoad.
	Load(data []byte) (Document, error)

	// Create starts a new, empty output document.
	Create() Builder

	// Capabilities reports optional features the engine really implements.
	Capabilities() Capabilities
}

// Document is a parsed, read-only source document.
type Document interface {
	PageCount() int
	Info() Info
}

// Builder accumulates pages for an output document.
type Builder interface {
	// CopyPages appends the given 0-based pages of src, in the order given.
	CopyPages(src Document, indices []int) error

	// AddImagePage appends one page of width x height points with the image drawn over
	// the whole page.
	AddImagePage(img []byte, format ImageFormat, width, height float64) error

	// PageCount returns the number of pages appended so far.
	PageCount() int

	// Save serializes the output. Failures wrap ErrSerialize.
	Save(opts SaveOptions) ([]byte, error)
}

// Info holds the document information strings. Absent values are empty.
type Info struct {
	Title   string
	Author  string
	Creator string
}

// SaveOptions controls serialization.
type SaveOptions struct {
	// Compact enables object stream compaction.
	Compact bool

	// UserPassword encrypts the output when non-empty. Only honoured when
	// Capabilities().Encryption is true.
	UserPassword string
}

// Capabilities lists optional engine features.
type Capabilities struct {
	Encryption bool
	Bookmarks  bool
}

// AllPages returns the indices 0..n-1.
func AllPages(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// ImageFormat is a raster format that can be embedded as a page.
type ImageFormat string

const (
	JPEG ImageFormat = "jpeg"
	PNG  ImageFormat = "png"
	WEBP ImageFormat = "webp"
	TIFF ImageFormat = "tiff"
)
