package services

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/Lllllllleong/pdfworkbench/internal/driver"
	"github.com/Lllllllleong/pdfworkbench/internal/output"
	"github.com/Lllllllleong/pdfworkbench/internal/pages"
	"github.com/Lllllllleong/pdfworkbench/internal/pdfdoc"
	"github.com/Lllllllleong/pdfworkbench/internal/validation"
)

func TestConvert_PageDimensions(t *testing.T) {
	tests := []struct {
		name string
		opts ConvertOptions
		want []string
	}{
		{
			name: "auto size uses pixels",
			opts: ConvertOptions{PageSize: pages.SizeAuto},
			want: []string{"png:200x100", "jpeg:50x80"},
		},
		{
			name: "a4 auto orientation",
			opts: ConvertOptions{PageSize: pages.SizeA4, Orientation: pages.OrientationAuto},
			want: []string{"png:842x595", "jpeg:595x842"},
		},
		{
			name: "letter forced landscape",
			opts: ConvertOptions{PageSize: pages.SizeLetter, Orientation: pages.OrientationLandscape},
			want: []string{"png:792x612", "jpeg:792x612"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			c := NewConvertTool(f.deps())
			defer c.Close()
			c.List().Add(
				rawItem("wide.png", pngBytes(t, 200, 100), "image/png"),
				rawItem("tall.jpg", jpegBytes(t, 50, 80), "image/jpeg"),
			)

			res, err := c.Commit(context.Background(), tt.opts)
			if err != nil {
				t.Fatalf("Commit failed: %v", err)
			}
			if !reflect.DeepEqual(res.Outputs, []string{"images-to-pdf.pdf"}) {
				t.Fatalf("outputs = %v", res.Outputs)
			}
			if got := f.outputPages(t, "images-to-pdf.pdf"); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("pages = %v, want %v", got, tt.want)
			}
			assertProgress(t, f.rec)
		})
	}
}

func TestConvert_FiltersNonImages(t *testing.T) {
	f := newFixture()
	c := NewConvertTool(f.deps())
	defer c.Close()
	added := c.List().Add(
		pdfItem("doc", 1),
		rawItem("a.png", pngBytes(t, 10, 10), "image/png"),
	)
	if len(added) != 1 || added[0].Name != "a.png" {
		t.Errorf("unexpected accepted items %v", added)
	}
}

func TestConvert_BadImageFailsRun(t *testing.T) {
	f := newFixture()
	c := NewConvertTool(f.deps())
	defer c.Close()
	c.List().Add(
		rawItem("a.png", pngBytes(t, 10, 10), "image/png"),
		rawItem("broken.png", []byte("not an image"), "image/png"),
	)

	_, err := c.Commit(context.Background(), ConvertOptions{OutputName: "album"})
	var itemErr *driver.ItemError
	if !errors.As(err, &itemErr) || itemErr.Index != 1 {
		t.Fatalf("expected failure at item 2, got %v", err)
	}
	if !errors.Is(err, pdfdoc.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, ok := f.sink.Get("album.pdf"); ok {
		t.Error("output saved after failure")
	}
}

func TestConvert_RequiresAnImage(t *testing.T) {
	f := newFixture()
	c := NewConvertTool(f.deps())
	defer c.Close()
	_, err := c.Commit(context.Background(), ConvertOptions{})
	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConvert_PDFCPUPageSizes(t *testing.T) {
	sink := output.NewMemorySink()
	c := NewConvertTool(Deps{Library: pdfdoc.NewPDFCPU(), Sink: sink})
	defer c.Close()
	c.List().Add(
		rawItem("wide.png", pngBytes(t, 400, 100), "image/png"),
		rawItem("tall.png", pngBytes(t, 100, 400), "image/png"),
	)

	if _, err := c.Commit(context.Background(), ConvertOptions{PageSize: pages.SizeA4, Orientation: pages.OrientationAuto}); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	data, ok := sink.Get("images-to-pdf.pdf")
	if !ok {
		t.Fatalf("no output, got %v", sink.Names())
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	dims, err := api.PageDims(bytes.NewReader(data), conf)
	if err != nil {
		t.Fatalf("PageDims failed: %v", err)
	}
	want := []types.Dim{{Width: 842, Height: 595}, {Width: 595, Height: 842}}
	if !reflect.DeepEqual(dims, want) {
		t.Errorf("page dims = %v, want %v", dims, want)
	}
}
