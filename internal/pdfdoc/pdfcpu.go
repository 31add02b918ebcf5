package pdfdoc

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// aesKeyLength is the key length used when a password is requested.
const aesKeyLength = 256

// PDFCPU implements Library on top of pdfcpu. Sources are validated once on Load; output
// documents are assembled from per-source page selections and merged on Save.
type PDFCPU struct{}

// NewPDFCPU returns the pdfcpu backed library.
func NewPDFCPU() *PDFCPU {
	return &PDFCPU{}
}

func (p *PDFCPU) Name() string { return "pdfcpu" }

func (p *PDFCPU) Capabilities() Capabilities {
	// pdfcpu merges page trees only; source outlines are not carried across.
	return Capabilities{Encryption: true, Bookmarks: false}
}

func newConfiguration() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

type pdfcpuDocument struct {
	data      []byte
	pageCount int
	info      Info
}

func (d *pdfcpuDocument) PageCount() int { return d.pageCount }
func (d *pdfcpuDocument) Info() Info     { return d.info }

func (p *PDFCPU) Load(data []byte) (Document, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), newConfiguration())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	doc := &pdfcpuDocument{
		data:      data,
		pageCount: ctx.PageCount,
	}
	if ctx.XRefTable != nil {
		doc.info = Info{
			Title:   ctx.XRefTable.Title,
			Author:  ctx.XRefTable.Author,
			Creator: ctx.XRefTable.Creator,
		}
	}
	return doc, nil
}

func (p *PDFCPU) Create() Builder {
	return &pdfcpuBuilder{}
}

// pdfcpuBuilder keeps one serialized fragment per CopyPages/AddImagePage call.
type pdfcpuBuilder struct {
	parts [][]byte
	pages int
}

func (b *pdfcpuBuilder) PageCount() int { return b.pages }

func (b *pdfcpuBuilder) CopyPages(src Document, indices []int) error {
	doc, ok := src.(*pdfcpuDocument)
	if !ok {
		return ErrForeignDocument
	}
	if len(indices) == 0 {
		return nil
	}
	for _, i := range indices {
		if i < 0 || i >= doc.pageCount {
			return fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, i, doc.pageCount)
		}
	}

	if isIdentity(indices, doc.pageCount) {
		b.parts = append(b.parts, doc.data)
		b.pages += doc.pageCount
		return nil
	}

	selected := make([]string, len(indices))
	for n, i := range indices {
		selected[n] = strconv.Itoa(i + 1)
	}
	var buf bytes.Buffer
	if err := api.Collect(bytes.NewReader(doc.data), &buf, selected, newConfiguration()); err != nil {
		return fmt.Errorf("failed to collect pages %v: %w", selected, err)
	}
	b.parts = append(b.parts, buf.Bytes())
	b.pages += len(indices)
	return nil
}

func (b *pdfcpuBuilder) AddImagePage(img []byte, format ImageFormat, width, height float64) error {
	switch format {
	case JPEG, PNG, WEBP, TIFF:
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid page dimensions %.0fx%.0f", width, height)
	}

	data, added, err := imagePages(img, width, height)
	if err != nil {
		return fmt.Errorf("failed to embed %s image: %w", format, err)
	}
	b.parts = append(b.parts, data)
	b.pages += added
	return nil
}

// imagePages writes a document with one width x height page per image frame, each frame
// stretched from (0,0) to fill its page.
func imagePages(img []byte, width, height float64) ([]byte, int, error) {
	conf := newConfiguration()
	conf.Cmd = model.IMPORTIMAGES
	ctx, err := pdfcpu.CreateContextWithXRefTable(conf, &types.Dim{Width: width, Height: height})
	if err != nil {
		return nil, 0, err
	}
	pagesIndRef, err := ctx.Pages()
	if err != nil {
		return nil, 0, err
	}
	pagesDict, err := ctx.DereferenceDict(*pagesIndRef)
	if err != nil {
		return nil, 0, err
	}

	frames, err := model.CreateImageResources(ctx.XRefTable, bytes.NewReader(img), false, false)
	if err != nil {
		return nil, 0, err
	}
	mediaBox := types.RectForDim(width, height)
	for _, frame := range frames {
		resIndRef, err := ctx.IndRefForNewObject(types.Dict(map[string]types.Object{
			"ProcSet": types.NewNameArray("PDF", "ImageB", "ImageC", "ImageI"),
			"XObject": types.Dict(map[string]types.Object{frame.Res.ID: *frame.Res.IndRef}),
		}))
		if err != nil {
			return nil, 0, err
		}

		content := fmt.Sprintf("q %.5f 0 0 %.5f 0 0 cm /%s Do Q", width, height, frame.Res.ID)
		sd, err := ctx.NewStreamDictForBuf([]byte(content))
		if err != nil {
			return nil, 0, err
		}
		if err := sd.Encode(); err != nil {
			return nil, 0, err
		}
		contentsIndRef, err := ctx.IndRefForNewObject(*sd)
		if err != nil {
			return nil, 0, err
		}

		pageIndRef, err := ctx.IndRefForNewObject(types.Dict(map[string]types.Object{
			"Type":      types.Name("Page"),
			"Parent":    *pagesIndRef,
			"MediaBox":  mediaBox.Array(),
			"Resources": *resIndRef,
			"Contents":  *contentsIndRef,
		}))
		if err != nil {
			return nil, 0, err
		}
		if err := ctx.SetValid(*pageIndRef); err != nil {
			return nil, 0, err
		}
		if err := model.AppendPageTree(pageIndRef, 1, pagesDict); err != nil {
			return nil, 0, err
		}
		ctx.PageCount++
	}

	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), len(frames), nil
}

func (b *pdfcpuBuilder) Save(opts SaveOptions) ([]byte, error) {
	if len(b.parts) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrSerialize, ErrEmptyDocument)
	}

	out := b.parts[0]
	if len(b.parts) > 1 {
		rsc := make([]io.ReadSeeker, len(b.parts))
		for i, part := range b.parts {
			rsc[i] = bytes.NewReader(part)
		}
		var buf bytes.Buffer
		if err := api.MergeRaw(rsc, &buf, false, newConfiguration()); err != nil {
			return nil, fmt.Errorf("%w: merge: %v", ErrSerialize, err)
		}
		out = buf.Bytes()
	}

	if opts.Compact {
		cfg := newConfiguration()
		cfg.WriteObjectStream = true
		cfg.WriteXRefStream = true
		var buf bytes.Buffer
		if err := api.Optimize(bytes.NewReader(out), &buf, cfg); err != nil {
			return nil, fmt.Errorf("%w: optimize: %v", ErrSerialize, err)
		}
		out = buf.Bytes()
	}

	if opts.UserPassword != "" {
		cfg := model.NewAESConfiguration(opts.UserPassword, opts.UserPassword, aesKeyLength)
		cfg.ValidationMode = model.ValidationRelaxed
		var buf bytes.Buffer
		if err := api.Encrypt(bytes.NewReader(out), &buf, cfg); err != nil {
			return nil, fmt.Errorf("%w: encrypt: %v", ErrSerialize, err)
		}
		out = buf.Bytes()
	}

	return out, nil
}

func isIdentity(indices []int, n int) bool {
	if len(indices) != n {
		return false
	}
	for i, v := range indices {
		if v != i {
			return false
		}
	}
	return true
}

var _ Library = (*PDFCPU)(nil)
