package pdfdoc

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageConfig is what the converter needs to know about an image before it is embedded.
type ImageConfig struct {
	Format ImageFormat
	Width  int
	Height int
}

// DecodeImageConfig reads the image header only.
func DecodeImageConfig(data []byte) (ImageConfig, error) {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageConfig{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	format := ImageFormat(name)
	switch format {
	case JPEG, PNG, WEBP, TIFF:
	default:
		return ImageConfig{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageConfig{}, fmt.Errorf("%w: empty image", ErrUnsupportedFormat)
	}
	return ImageConfig{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// ToJPEG decodes data and re-encodes it as a JPEG at quality (1-100).
func ToJPEG(data []byte, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
