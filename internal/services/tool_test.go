package services

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"reflect"
	"testing"

	"github.com/Lllllllleong/pdfworkbench/internal/driver"
	"github.com/Lllllllleong/pdfworkbench/internal/models"
	"github.com/Lllllllleong/pdfworkbench/internal/output"
	"github.com/Lllllllleong/pdfworkbench/internal/pdfdoc"
	"github.com/Lllllllleong/pdfworkbench/internal/staging"
)

type fixture struct {
	lib  *pdfdoc.MockLibrary
	sink *output.MemorySink
	rec  *driver.Recorder
}

func newFixture() *fixture {
	return &fixture{
		lib:  pdfdoc.NewMockLibrary(),
		sink: output.NewMemorySink(),
		rec:  &driver.Recorder{},
	}
}

func (f *fixture) deps() Deps {
	return Deps{Library: f.lib, Sink: f.sink, Listener: f.rec}
}

// outputPages decodes a saved mock document.
func (f *fixture) outputPages(t *testing.T, name string) []string {
	t.Helper()
	data, ok := f.sink.Get(name)
	if !ok {
		t.Fatalf("output %s was not saved; have %v", name, f.sink.Names())
	}
	return pdfdoc.DecodeMockPages(data)
}

func pdfItem(label string, pages int) models.RawItem {
	data := pdfdoc.NewMockPDF(label, pages, pdfdoc.Info{Title: label})
	return models.RawItem{
		Name:     label + ".pdf",
		Size:     int64(len(data)),
		MIMEType: "application/pdf",
		Source:   models.BytesSource(data),
	}
}

func rawItem(name string, data []byte, mimeType string) models.RawItem {
	return models.RawItem{Name: name, Size: int64(len(data)), MIMEType: mimeType, Source: models.BytesSource(data)}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// staticMetadata skips real extraction so tests can count library calls made by a job.
func staticMetadata(pages int) staging.Option {
	return staging.WithMetadataLoader(func(context.Context, models.StagedItem) (models.Metadata, error) {
		return models.Metadata{PageCount: pages}, nil
	})
}

func assertProgress(t *testing.T, rec *driver.Recorder) {
	t.Helper()
	events := rec.Events()
	if len(events) == 0 {
		t.Fatal("no progress events")
	}
	for i := 1; i < len(events); i++ {
		if events[i].Fraction < events[i-1].Fraction {
			t.Fatalf("progress went backwards at %d: %v", i, events)
		}
	}
	if last := events[len(events)-1]; last.Fraction != 1 {
		t.Errorf("progress ended at %v", last.Fraction)
	}
}

func TestDocumentMetadata(t *testing.T) {
	lib := pdfdoc.NewMockLibrary()
	load := DocumentMetadata(lib)
	item := pdfItem("book", 4)

	md, err := load(context.Background(), models.StagedItem{Name: item.Name, Source: item.Source})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if md.PageCount != 4 || md.Title != "book" {
		t.Errorf("unexpected metadata %+v", md)
	}

	if _, err := load(context.Background(), models.StagedItem{Name: "x.pdf", Source: models.BytesSource("junk")}); err == nil {
		t.Error("expected load error for junk bytes")
	}
}

func TestImageMetadata(t *testing.T) {
	md, err := ImageMetadata()(context.Background(), models.StagedItem{Source: models.BytesSource(pngBytes(t, 30, 20))})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if md.Width != 30 || md.Height != 20 || md.Format != "png" || md.PageCount != 1 {
		t.Errorf("unexpected metadata %+v", md)
	}
}

func TestNames(t *testing.T) {
	tests := []struct {
		fn   func() string
		want string
	}{
		{func() string { return baseName("report.pdf") }, "report"},
		{func() string { return baseName("Report.PDF") }, "Report"},
		{func() string { return baseName("notes.txt") }, "notes.txt"},
		{func() string { return outputName("", "fallback.pdf") }, "fallback.pdf"},
		{func() string { return outputName(" final ", "x.pdf") }, "final.pdf"},
		{func() string { return outputName("final.pdf", "x.pdf") }, "final.pdf"},
	}
	for i, tt := range tests {
		if got := tt.fn(); got != tt.want {
			t.Errorf("case %d: got %q, want %q", i, got, tt.want)
		}
	}
}

func TestDeliverStopsAtFirstFailure(t *testing.T) {
	f := newFixture()
	tl := newTool("test", f.deps(), nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	names, err := tl.deliver(ctx, []models.Output{{Name: "a.pdf"}, {Name: "b.pdf"}})
	if err == nil {
		t.Fatal("expected delivery to fail on a cancelled context")
	}
	if !reflect.DeepEqual(names, []string{}) {
		t.Errorf("unexpected delivered names %v", names)
	}
}
