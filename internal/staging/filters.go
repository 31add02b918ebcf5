package staging

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Lllllllleong/pdfworkbench/internal/models"
)

const pdfMIME = "application/pdf"

var imageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// AcceptDocuments admits PDF files.
func AcceptDocuments(item models.RawItem) bool {
	if strings.EqualFold(item.MIMEType, pdfMIME) {
		return true
	}
	return item.MIMEType == "" && strings.EqualFold(filepath.Ext(item.Name), ".pdf")
}

// AcceptImages admits raster images.
func AcceptImages(item models.RawItem) bool {
	if strings.HasPrefix(strings.ToLower(item.MIMEType), "image/") {
		return true
	}
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(item.Name))]
	return item.MIMEType == "" && ok
}

// FromPath describes a local file as a RawItem. The MIME type comes from the extension and
// falls back to sniffing the first bytes.
func FromPath(path string) (models.RawItem, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.RawItem{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return models.RawItem{}, fmt.Errorf("%s is a directory", path)
	}
	mimeType, err := detectMIME(path)
	if err != nil {
		return models.RawItem{}, err
	}
	return models.RawItem{
		Name:     filepath.Base(path),
		Size:     info.Size(),
		MIMEType: mimeType,
		Source:   models.FileSource(path),
	}, nil
}

func detectMIME(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".pdf" {
		return pdfMIME, nil
	}
	if t, ok := imageExtensions[ext]; ok {
		return t, nil
	}
	if t := mime.TypeByExtension(ext); t != "" {
		mediaType, _, _ := mime.ParseMediaType(t)
		return mediaType, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(head[:n]))
	return mediaType, nil
}
