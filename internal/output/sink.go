// Package output delivers finished files. A Sink is the "save as local file" end of a job:
// the CLI writes into a directory, the hosted processor into a bucket, tests into memory.
package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/pdfworkbench/internal/gcp"
)

// Sink stores one output file.
type Sink interface {
	Save(ctx context.Context, name string, data []byte) error
}

// DirSink writes files into a local directory.
type DirSink struct {
	dir string
}

// NewDirSink creates dir if needed and returns a sink writing into it.
func NewDirSink(dir string) (*DirSink, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return &DirSink{dir: dir}, nil
}

// Dir returns the directory files are written to.
func (s *DirSink) Dir() string { return s.dir }

// Save writes data to dir/name using a temp file and rename, so a reader never sees a
// partially written output.
func (s *DirSink) Save(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, name)
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write temp file %s: %w", tempPath, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename %s to %s: %w", tempPath, path, err)
	}
	return nil
}

func cleanName(name string) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == ".." || base == string(filepath.Separator) || base == "" {
		return "", fmt.Errorf("invalid output name %q", name)
	}
	return base, nil
}

// MemorySink keeps saved files in memory.
type MemorySink struct {
	mu    sync.Mutex
	files map[string][]byte
	order []string
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

func (s *MemorySink) Save(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[name]; !ok {
		s.order = append(s.order, name)
	}
	s.files[name] = append([]byte(nil), data...)
	return nil
}

// Get returns the bytes saved under name.
func (s *MemorySink) Get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[name]
	return data, ok
}

// Names returns saved names in the order they were first saved.
func (s *MemorySink) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// SortedNames returns saved names in lexical order.
func (s *MemorySink) SortedNames() []string {
	names := s.Names()
	sort.Strings(names)
	return names
}

// Config selects and configures a sink backend.
type Config struct {
	Backend string // "local" | "gcs" | "memory"

	// Local filesystem
	Dir string

	// GCS
	Bucket string
	Prefix string
}

// New creates a sink based on configuration. The returned close function releases any
// client the sink holds and is always safe to call.
func New(ctx context.Context, cfg Config) (Sink, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case "", "local":
		s, err := NewDirSink(cfg.Dir)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case "memory":
		return NewMemorySink(), noop, nil
	case "gcs":
		if cfg.Bucket == "" {
			return nil, noop, fmt.Errorf("bucket required for gcs backend")
		}
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create Storage client: %w", err)
		}
		s, err := gcp.NewBucketSink(client, cfg.Bucket, gcp.WithPrefix(cfg.Prefix))
		if err != nil {
			client.Close()
			return nil, noop, err
		}
		return s, client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown output backend: %s", cfg.Backend)
	}
}
