// Package background decodes the photograph markers are placed on and fits
// it into the canvas viewport.
package background

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/image-annotator/pkg/fileio"
	"github.com/menta2k/image-annotator/pkg/scene"
)

// ErrInvalidFileFormat is returned when the data is not a decodable image
var ErrInvalidFileFormat = errors.New("invalid image file")

// Loader decodes background images
type Loader struct {
	config Config
}

// Config holds configuration for the background loader
type Config struct {
	SupportedFormats []string
	MinImageSize     int
}

// New creates a Loader with default configuration
func New() *Loader {
	return &Loader{
		config: Config{
			SupportedFormats: []string{"jpeg", "png", "gif", "webp"},
			MinImageSize:     1,
		},
	}
}

// NewWithConfig creates a Loader with custom configuration
func NewWithConfig(config Config) *Loader {
	return &Loader{config: config}
}

// Decode decodes raw image bytes or a base64 data URL
func (l *Loader) Decode(data []byte) (image.Image, error) {
	if fileio.IsDataURL(data) {
		decoded, mediaType, err := fileio.DecodeDataURL(string(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFileFormat, err)
		}
		if mediaType != "" && !strings.HasPrefix(mediaType, "image/") {
			return nil, fmt.Errorf("%w: media type %s", ErrInvalidFileFormat, mediaType)
		}
		data = decoded
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		// Fallback: explicit WebP decode
		if wimg, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
			img, format, err = wimg, "webp", nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFileFormat, err)
	}

	if !l.isFormatSupported(format) {
		return nil, fmt.Errorf("%w: unsupported image format %s", ErrInvalidFileFormat, format)
	}
	if err := l.Validate(img); err != nil {
		return nil, err
	}
	return img, nil
}

// LoadFile loads an image from a file path
func (l *Loader) LoadFile(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return l.Decode(data)
}

// LoadReader loads an image from an io.Reader
func (l *Loader) LoadReader(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return l.Decode(data)
}

// Validate checks that an image has usable dimensions
func (l *Loader) Validate(img image.Image) error {
	b := img.Bounds()
	if b.Dx() < l.config.MinImageSize || b.Dy() < l.config.MinImageSize {
		return fmt.Errorf("%w: image too small: %dx%d (minimum: %d)",
			ErrInvalidFileFormat, b.Dx(), b.Dy(), l.config.MinImageSize)
	}
	return nil
}

func (l *Loader) isFormatSupported(format string) bool {
	for _, supported := range l.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
}

// Info contains basic image metadata
type Info struct {
	Width       int
	Height      int
	AspectRatio float64
}

// GetInfo returns basic information about an image
func GetInfo(img image.Image) Info {
	b := img.Bounds()
	return Info{
		Width:       b.Dx(),
		Height:      b.Dy(),
		AspectRatio: float64(b.Dx()) / float64(b.Dy()),
	}
}

// FitRatio returns the display scale that fits an image of w x h into the
// viewport: fill the height first, and fall back to the width if that
// overflows horizontally.
func FitRatio(w, h int, vp scene.Viewport) float64 {
	if w <= 0 || h <= 0 {
		return 0
	}
	ratio := float64(vp.Height) / float64(h)
	if ratio*float64(w) > float64(vp.Width) {
		ratio = float64(vp.Width) / float64(w)
	}
	return ratio
}

// Fit scales img to the viewport using FitRatio. The returned ratio is the
// display scale applied; marker coordinates are in the fitted image's space.
func Fit(img image.Image, vp scene.Viewport) (*image.NRGBA, float64) {
	b := img.Bounds()
	ratio := FitRatio(b.Dx(), b.Dy(), vp)
	w := int(float64(b.Dx())*ratio + 0.5)
	h := int(float64(b.Dy())*ratio + 0.5)
	if w < 1 || h < 1 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0)), ratio
	}
	if w == b.Dx() && h == b.Dy() {
		return imaging.Clone(img), ratio
	}
	return imaging.Resize(img, w, h, imaging.Lanczos), ratio
}
