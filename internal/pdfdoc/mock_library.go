package pdfdoc

import (
	"fmt"
	"strings"
	"sync"
)

const mockHeader = "%MOCKPDF"

// MockLibrary is an in-memory Library for tests. Mock documents are plain text: a header
// line, optional "key=value" info lines and a "pages=" line listing page labels.
type MockLibrary struct {
	// LoadFunc is called when Load is invoked.
	LoadFunc func(data []byte) (Document, error)

	// SaveFunc is called when a builder saves.
	SaveFunc func(pages []string, opts SaveOptions) ([]byte, error)

	// Caps is returned by Capabilities.
	Caps Capabilities

	mu        sync.Mutex
	loadCalls int
	saveCalls int
	lastSave  SaveOptions
}

// NewMockLibrary creates a mock library with default implementations.
func NewMockLibrary() *MockLibrary {
	m := &MockLibrary{Caps: Capabilities{Encryption: true}}
	m.LoadFunc = defaultMockLoad
	m.SaveFunc = func(pages []string, _ SaveOptions) ([]byte, error) {
		return EncodeMockPages(pages), nil
	}
	return m
}

func (m *MockLibrary) Name() string { return "mock" }

func (m *MockLibrary) Capabilities() Capabilities { return m.Caps }

func (m *MockLibrary) Load(data []byte) (Document, error) {
	m.mu.Lock()
	m.loadCalls++
	m.mu.Unlock()
	return m.LoadFunc(data)
}

func (m *MockLibrary) Create() Builder {
	return &mockBuilder{lib: m}
}

// LoadCalls returns how many times Load was invoked.
func (m *MockLibrary) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

// SaveCalls returns how many times a builder saved.
func (m *MockLibrary) SaveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCalls
}

// LastSaveOptions returns the options of the most recent save.
func (m *MockLibrary) LastSaveOptions() SaveOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSave
}

// MockDocument is the Document produced by MockLibrary.
type MockDocument struct {
	Pages []string
	Meta  Info
}

func (d *MockDocument) PageCount() int { return len(d.Pages) }
func (d *MockDocument) Info() Info     { return d.Meta }

// NewMockPDF encodes a document whose pages are labelled "<label>.<n>" for n in 0..pages-1.
func NewMockPDF(label string, pages int, info Info) []byte {
	labels := make([]string, pages)
	for i := range labels {
		labels[i] = fmt.Sprintf("%s.%d", label, i)
	}
	var b strings.Builder
	b.WriteString(mockHeader + "\n")
	if info.Title != "" {
		b.WriteString("title=" + info.Title + "\n")
	}
	if info.Author != "" {
		b.WriteString("author=" + info.Author + "\n")
	}
	if info.Creator != "" {
		b.WriteString("creator=" + info.Creator + "\n")
	}
	b.WriteString("pages=" + strings.Join(labels, ",") + "\n")
	return []byte(b.String())
}

// EncodeMockPages encodes an already labelled page list.
func EncodeMockPages(pages []string) []byte {
	return []byte(mockHeader + "\npages=" + strings.Join(pages, ",") + "\n")
}

// DecodeMockPages returns the page labels of a mock document, or nil if data is not one.
func DecodeMockPages(data []byte) []string {
	doc, err := defaultMockLoad(data)
	if err != nil {
		return nil
	}
	return doc.(*MockDocument).Pages
}

func defaultMockLoad(data []byte) (Document, error) {
	text := string(data)
	if !strings.HasPrefix(text, mockHeader+"\n") {
		return nil, fmt.Errorf("%w: missing header", ErrLoad)
	}
	doc := &MockDocument{}
	for _, line := range strings.Split(strings.TrimPrefix(text, mockHeader+"\n"), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "title":
			doc.Meta.Title = value
		case "author":
			doc.Meta.Author = value
		case "creator":
			doc.Meta.Creator = value
		case "pages":
			if value != "" {
				doc.Pages = strings.Split(value, ",")
			}
		}
	}
	return doc, nil
}

type mockBuilder struct {
	lib   *MockLibrary
	pages []string
}

func (b *mockBuilder) PageCount() int { return len(b.pages) }

func (b *mockBuilder) CopyPages(src Document, indices []int) error {
	doc, ok := src.(*MockDocument)
	if !ok {
		return ErrForeignDocument
	}
	for _, i := range indices {
		if i < 0 || i >= len(doc.Pages) {
			return fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, i, len(doc.Pages))
		}
	}
	for _, i := range indices {
		b.pages = append(b.pages, doc.Pages[i])
	}
	return nil
}

func (b *mockBuilder) AddImagePage(_ []byte, format ImageFormat, width, height float64) error {
	b.pages = append(b.pages, fmt.Sprintf("%s:%.0fx%.0f", format, width, height))
	return nil
}

func (b *mockBuilder) Save(opts SaveOptions) ([]byte, error) {
	b.lib.mu.Lock()
	b.lib.saveCalls++
	b.lib.lastSave = opts
	b.lib.mu.Unlock()
	if len(b.pages) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrSerialize, ErrEmptyDocument)
	}
	return b.lib.SaveFunc(append([]string(nil), b.pages...), opts)
}

// Ensure MockLibrary implements Library
var _ Library = (*MockLibrary)(nil)
