package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
)

func newTestSink(t *testing.T, write func(ctx context.Context, object string, data []byte) error) *BucketSink {
	t.Helper()
	s, err := NewBucketSink(nil, "outputs", WithPrefix("doc-1"), WithRetries(3, time.Millisecond))
	if err != nil {
		t.Fatalf("NewBucketSink failed: %v", err)
	}
	s.write = write
	return s
}

func TestBucketSink_RetriesThenSucceeds(t *testing.T) {
	attempts := 0
	var gotObject string
	s := newTestSink(t, func(_ context.Context, object string, _ []byte) error {
		attempts++
		gotObject = object
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err := s.Save(context.Background(), "report_page_1.pdf", []byte("pdf")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if gotObject != "doc-1/report_page_1.pdf" {
		t.Errorf("unexpected object name %q", gotObject)
	}
}

func TestBucketSink_GivesUpAfterMaxRetries(t *testing.T) {
	attempts := 0
	s := newTestSink(t, func(context.Context, string, []byte) error {
		attempts++
		return errors.New("boom")
	})

	err := s.Save(context.Background(), "a.pdf", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestBucketSink_ExistingObjectIsSkipped(t *testing.T) {
	attempts := 0
	s := newTestSink(t, func(context.Context, string, []byte) error {
		attempts++
		return ErrObjectExists
	})
	if err := s.Save(context.Background(), "a.pdf", nil); err != nil {
		t.Fatalf("expected existing object to be treated as saved, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected a single attempt, got %d", attempts)
	}
}

func TestBucketSink_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newTestSink(t, func(context.Context, string, []byte) error {
		cancel()
		return errors.New("boom")
	})
	s.backoff = time.Hour
	if err := s.Save(ctx, "a.pdf", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestIsPreconditionFailed(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&googleapi.Error{Code: http.StatusPreconditionFailed}, true},
		{fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusPreconditionFailed}), true},
		{&googleapi.Error{Code: http.StatusForbidden}, false},
		{errors.New("plain"), false},
	}
	for _, tt := range tests {
		if got := isPreconditionFailed(tt.err); got != tt.want {
			t.Errorf("isPreconditionFailed(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestBucketSink_NamesAndURI(t *testing.T) {
	s, err := NewBucketSink(nil, "outputs")
	if err != nil {
		t.Fatal(err)
	}
	if s.ObjectName("a.pdf") != "a.pdf" || s.URI("a.pdf") != "gs://outputs/a.pdf" {
		t.Errorf("unexpected naming: %s %s", s.ObjectName("a.pdf"), s.URI("a.pdf"))
	}
	if _, err := NewBucketSink(nil, ""); err == nil {
		t.Error("expected error for empty bucket name")
	}
	if err := s.writeObject(context.Background(), "a.pdf", nil); err == nil {
		t.Error("expected error without a storage client")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("PDFKIT_TEST_VALUE", "set")
	if got := GetEnv("PDFKIT_TEST_VALUE", "fallback"); got != "set" {
		t.Errorf("GetEnv = %q", got)
	}
	if got := GetEnv("PDFKIT_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("GetEnv = %q", got)
	}
}
