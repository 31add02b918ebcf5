package models

import (
	"bytes"
	"io"
	"os"
)

// Source is an opaque handle to the raw bytes of a staged item. Bytes are only read when a
// job needs them.
type Source interface {
	Open() (io.ReadCloser, error)
}

// FileSource reads an item from the local filesystem.
type FileSource string

func (f FileSource) Open() (io.ReadCloser, error) {
	return os.Open(string(f))
}

// BytesSource serves an item held in memory.
type BytesSource []byte

func (b BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}

// RawItem is a user-supplied file before it is staged.
type RawItem struct {
	Name     string
	Size     int64
	MIMEType string
	Source   Source
}

// MetadataState describes how far metadata extraction got for an item.
type MetadataState int

const (
	MetadataPending MetadataState = iota
	MetadataLoaded
	MetadataUnknown
)

func (s MetadataState) String() string {
	switch s {
	case MetadataLoaded:
		return "loaded"
	case MetadataUnknown:
		return "unknown"
	default:
		return "pending"
	}
}

// Metadata is populated asynchronously after an item is added.
type Metadata struct {
	State     MetadataState
	PageCount int
	Title     string
	Author    string
	Creator   string
	Width     int // images only, in pixels
	Height    int
	Format    string
	Err       string
}

// Loaded reports whether extraction succeeded.
func (m Metadata) Loaded() bool { return m.State == MetadataLoaded }

// StagedItem is one entry of a staging list.
type StagedItem struct {
	ID       string
	Name     string
	Size     int64
	MIMEType string
	Position int
	Source   Source
	Metadata Metadata
}

// Open returns a reader over the item's bytes.
func (s StagedItem) Open() (io.ReadCloser, error) {
	return s.Source.Open()
}
