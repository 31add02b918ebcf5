package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

const (
	defaultMaxRetries   = 4
	defaultBackoff      = 1 * time.Second
	defaultWriteTimeout = 50 * time.Second
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// ErrObjectExists is returned by writeObject when the create-only precondition fails.
var ErrObjectExists = errors.New("object already exists")

// BucketSink saves outputs as Cloud Storage objects under an optional prefix. Objects are
// created only if absent: an existing object is left untouched and the save counts as done,
// so a re-delivered event does not rewrite outputs.
type BucketSink struct {
	bucket       *storage.BucketHandle
	name         string
	prefix       string
	maxRetries   int
	backoff      time.Duration
	writeTimeout time.Duration

	// write performs a single upload attempt. Replaced in tests.
	write func(ctx context.Context, object string, data []byte) error
}

// BucketSinkOption configures a BucketSink.
type BucketSinkOption func(*BucketSink)

// WithPrefix stores every object under prefix.
func WithPrefix(prefix string) BucketSinkOption {
	return func(s *BucketSink) { s.prefix = prefix }
}

// WithRetries sets the attempt count and the initial backoff, which doubles per retry.
func WithRetries(maxRetries int, backoff time.Duration) BucketSinkOption {
	return func(s *BucketSink) {
		if maxRetries > 0 {
			s.maxRetries = maxRetries
		}
		if backoff > 0 {
			s.backoff = backoff
		}
	}
}

// NewBucketSink creates a sink writing into bucketName.
func NewBucketSink(client *storage.Client, bucketName string, opts ...BucketSinkOption) (*BucketSink, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("bucket name must be provided to create a bucket sink")
	}
	s := &BucketSink{
		name:         bucketName,
		maxRetries:   defaultMaxRetries,
		backoff:      defaultBackoff,
		writeTimeout: defaultWriteTimeout,
	}
	if client != nil {
		s.bucket = client.Bucket(bucketName)
	}
	s.write = s.writeObject
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ObjectName returns the object a save of name is written to.
func (s *BucketSink) ObjectName(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// URI returns the gs:// location of name.
func (s *BucketSink) URI(name string) string {
	return fmt.Sprintf("gs://%s/%s", s.name, s.ObjectName(name))
}

// Save uploads data with bounded retries and exponential backoff.
func (s *BucketSink) Save(ctx context.Context, name string, data []byte) error {
	object := s.ObjectName(name)
	backoff := s.backoff
	var lastErr error

	for i := 0; i < s.maxRetries; i++ {
		err := s.write(ctx, object, data)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrObjectExists) {
			slog.Info("Object already exists. Skipping.", "gcsObject", object)
			return nil
		}

		lastErr = err
		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", object,
			"attempt", i+1,
			"maxRetries", s.maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "gcsObject", object, "error", ctx.Err())
			return ctx.Err()
		}
	}
	slog.Error("Upload failed after all retries.", "gcsObject", object, "error", lastErr)
	return fmt.Errorf("upload for %s failed after all retries: %w", object, lastErr)
}

func (s *BucketSink) writeObject(ctx context.Context, object string, data []byte) error {
	if s.bucket == nil {
		return fmt.Errorf("bucket sink for %s has no storage client", s.name)
	}
	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	w := s.bucket.Object(object).If(storage.Conditions{DoesNotExist: true}).NewWriter(writeCtx)
	w.ContentType = "application/pdf"

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		if isPreconditionFailed(err) {
			return ErrObjectExists
		}
		return fmt.Errorf("io.Copy to GCS failed: %w", err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			return ErrObjectExists
		}
		return fmt.Errorf("failed to close GCS writer (finalize upload): %w", err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// ReadObject downloads gs://bucket/object into memory.
func ReadObject(ctx context.Context, client *storage.Client, bucket, object string) ([]byte, error) {
	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object gs://%s/%s: %w", bucket, object, err)
	}
	return data, nil
}
