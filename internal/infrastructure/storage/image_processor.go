package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrImageTooLarge     = errors.New("image exceeds the maximum size")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// allowedFormats maps decoder names to the extensions that carry them.
var allowedFormats = map[string][]string{
	"jpeg": {"jpg", "jpeg"},
	"png":  {"png"},
	"gif":  {"gif"},
	"webp": {"webp"},
	"bmp":  {"bmp"},
	"tiff": {"tif", "tiff"},
}

// DefaultMaxPixels caps width*height of accepted images (40 megapixels).
const DefaultMaxPixels = 40_000_000

type ImageProcessor struct {
	MaxSize   int64 // bytes
	MaxPixels int64 // width*height
}

func NewImageProcessor(maxSize int64) *ImageProcessor {
	if maxSize <= 0 {
		maxSize = 5 * 1024 * 1024
	}
	return &ImageProcessor{MaxSize: maxSize, MaxPixels: DefaultMaxPixels}
}

// checkDimensions reads only the image header and enforces MaxPixels.
func (p *ImageProcessor) checkDimensions(data []byte) (string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", fmt.Errorf("%w: empty canvas %dx%d", ErrUnsupportedFormat, cfg.Width, cfg.Height)
	}
	if p.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > p.MaxPixels {
		return "", fmt.Errorf("%w: %dx%d pixels (limit %d)", ErrImageTooLarge, cfg.Width, cfg.Height, p.MaxPixels)
	}
	return format, nil
}

// Validate checks the byte and pixel limits and that data is a supported image.
// It returns the detected format name.
func (p *ImageProcessor) Validate(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrUnsupportedFormat)
	}
	if int64(len(data)) > p.MaxSize {
		return "", fmt.Errorf("%w: %d bytes (limit %d)", ErrImageTooLarge, len(data), p.MaxSize)
	}
	format, err := p.checkDimensions(data)
	if err != nil {
		return "", err
	}
	if _, ok := allowedFormats[format]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return format, nil
}

// IsAllowedExtension reports whether ext (without dot, any case) names a supported format.
func IsAllowedExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, exts := range allowedFormats {
		for _, e := range exts {
			if e == ext {
				return true
			}
		}
	}
	return false
}

// Thumbnail fits the image into size x size and encodes it in the format of ext.
// Formats imaging cannot encode (webp) fall back to png. It returns the encoded
// bytes and the extension actually used.
func (p *ImageProcessor) Thumbnail(data []byte, ext string, size int) ([]byte, string, error) {
	if _, err := p.checkDimensions(data); err != nil {
		return nil, "", err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("cannot decode image: %w", err)
	}

	resized := imaging.Fit(img, size, size, imaging.Lanczos)

	outExt := strings.ToLower(strings.TrimPrefix(ext, "."))
	format, err := imaging.FormatFromExtension(outExt)
	if err != nil {
		format, outExt = imaging.PNG, "png"
	}

	b := new(bytes.Buffer)
	if err := imaging.Encode(b, resized, format, imaging.JPEGQuality(90)); err != nil {
		return nil, "", fmt.Errorf("cannot encode thumbnail: %w", err)
	}
	return b.Bytes(), outExt, nil
}
