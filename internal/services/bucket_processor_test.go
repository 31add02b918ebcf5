package services

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/Lllllllleong/pdfworkbench/internal/models"
	"github.com/Lllllllleong/pdfworkbench/internal/output"
	"github.com/Lllllllleong/pdfworkbench/internal/pdfdoc"
)

type fakeStore struct {
	mu       sync.Mutex
	existing string
	created  []models.Document
	statuses []string
	updates  []map[string]any
}

func (s *fakeStore) FindByHash(_ context.Context, _ string) (string, error) {
	return s.existing, nil
}

func (s *fakeStore) Create(_ context.Context, doc models.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, doc)
	return "doc-1", nil
}

func (s *fakeStore) Update(_ context.Context, _ string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, fields)
	if status, ok := fields["status"].(string); ok {
		s.statuses = append(s.statuses, status)
	}
	return nil
}

func (s *fakeStore) SetStatus(ctx context.Context, id, status, errDetails string) error {
	return s.Update(ctx, id, map[string]any{"status": status, "errorDetails": errDetails})
}

type processorFixture struct {
	proc     *BucketProcessor
	store    *fakeStore
	sinks    map[string]*output.MemorySink
	handoffs []models.WorkflowHandoff
}

func newProcessor(t *testing.T, mode string, source []byte, withWorkflow bool) *processorFixture {
	t.Helper()
	f := &processorFixture{store: &fakeStore{}, sinks: make(map[string]*output.MemorySink)}
	f.proc = &BucketProcessor{
		lib:    pdfdoc.NewMockLibrary(),
		store:  f.store,
		config: BucketProcessorConfig{OutputBucket: "outputs", Mode: mode},
		readObject: func(_ context.Context, bucket, object string) ([]byte, error) {
			if bucket != "uploads" {
				return nil, errors.New("unexpected bucket " + bucket)
			}
			return source, nil
		},
		newSink: func(prefix string) (output.Sink, error) {
			s := output.NewMemorySink()
			f.sinks[prefix] = s
			return s, nil
		},
	}
	if withWorkflow {
		f.proc.triggerWorkflow = func(_ context.Context, h models.WorkflowHandoff) (string, error) {
			f.handoffs = append(f.handoffs, h)
			return "exec-1", nil
		}
	}
	return f
}

func TestBucketProcessor_Split(t *testing.T) {
	f := newProcessor(t, ModeSplit, pdfdoc.NewMockPDF("scan", 3, pdfdoc.Info{}), true)

	err := f.proc.Process(context.Background(), models.ObjectEvent{Bucket: "uploads", Name: "inbox/scan.pdf", ContentType: "application/pdf"})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	sink := f.sinks["doc-1"]
	if sink == nil {
		t.Fatal("outputs were not uploaded under the document ID")
	}
	want := []string{"scan_page_1.pdf", "scan_page_2.pdf", "scan_page_3.pdf"}
	if got := sink.SortedNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("uploaded %v, want %v", got, want)
	}

	if len(f.store.created) != 1 || f.store.created[0].OriginalFilename != "inbox/scan.pdf" || f.store.created[0].FileHash == "" {
		t.Errorf("unexpected record %+v", f.store.created)
	}
	if !reflect.DeepEqual(f.store.statuses, []string{models.StatusProcessing, models.StatusDone}) {
		t.Errorf("status transitions = %v", f.store.statuses)
	}
	final := f.store.updates[len(f.store.updates)-1]
	if final["pageCount"] != 3 || final["outputCount"] != 3 || final["workflowExecutionId"] != "exec-1" {
		t.Errorf("unexpected final update %v", final)
	}
	if len(f.handoffs) != 1 || f.handoffs[0] != (models.WorkflowHandoff{DocumentID: "doc-1", OutputCount: 3, PageCount: 3, Mode: ModeSplit}) {
		t.Errorf("unexpected handoff %+v", f.handoffs)
	}
}

func TestBucketProcessor_Compress(t *testing.T) {
	f := newProcessor(t, ModeCompress, pdfdoc.NewMockPDF("scan", 2, pdfdoc.Info{}), false)

	if err := f.proc.Process(context.Background(), models.ObjectEvent{Bucket: "uploads", Name: "scan.pdf"}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if got := f.sinks["doc-1"].Names(); !reflect.DeepEqual(got, []string{"scan-compressed.pdf"}) {
		t.Errorf("uploaded %v", got)
	}
	if _, ok := f.store.updates[len(f.store.updates)-1]["workflowExecutionId"]; ok {
		t.Error("workflow triggered without a workflow ID")
	}
}

func TestBucketProcessor_SkipsDuplicatesAndNonPDFs(t *testing.T) {
	f := newProcessor(t, ModeSplit, pdfdoc.NewMockPDF("scan", 1, pdfdoc.Info{}), false)
	f.store.existing = "doc-0"
	if err := f.proc.Process(context.Background(), models.ObjectEvent{Bucket: "uploads", Name: "scan.pdf"}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(f.store.created) != 0 || len(f.sinks) != 0 {
		t.Error("duplicate upload was processed")
	}

	f.store.existing = ""
	if err := f.proc.Process(context.Background(), models.ObjectEvent{Bucket: "uploads", Name: "notes.txt", ContentType: "text/plain"}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(f.store.created) != 0 {
		t.Error("non-PDF upload was processed")
	}
}

func TestBucketProcessor_FailureIsRecorded(t *testing.T) {
	f := newProcessor(t, ModeSplit, []byte("corrupt"), false)

	err := f.proc.Process(context.Background(), models.ObjectEvent{Bucket: "uploads", Name: "scan.pdf"})
	if err == nil {
		t.Fatal("expected processing to fail")
	}
	if last := f.store.statuses[len(f.store.statuses)-1]; last != models.StatusFailed {
		t.Errorf("final status = %s", last)
	}
	if details, _ := f.store.updates[len(f.store.updates)-1]["errorDetails"].(string); details == "" {
		t.Error("failure details were not recorded")
	}
	if len(f.sinks) != 0 {
		t.Error("outputs uploaded for a failed document")
	}
}

func TestIsPDFObject(t *testing.T) {
	tests := []struct {
		e    models.ObjectEvent
		want bool
	}{
		{models.ObjectEvent{Name: "a.pdf"}, true},
		{models.ObjectEvent{Name: "A.PDF", ContentType: "application/octet-stream"}, true},
		{models.ObjectEvent{Name: "blob", ContentType: "application/pdf"}, true},
		{models.ObjectEvent{Name: "a.png", ContentType: "image/png"}, false},
	}
	for _, tt := range tests {
		if got := isPDFObject(tt.e); got != tt.want {
			t.Errorf("isPDFObject(%+v) = %v", tt.e, got)
		}
	}
}
