// Package photos decodes and validates captured booth photos before they
// reach the compositor.
package photos

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/photostrip/pkg/types"
)

// Loader decodes captured photos and checks them against minimum requirements
type Loader struct {
	config Config
}

// Config holds configuration for the photo loader
type Config struct {
	SupportedFormats []string
	MinImageSize     int
}

// DefaultConfig returns the loader defaults
func DefaultConfig() Config {
	return Config{
		SupportedFormats: []string{"jpeg", "png", "webp"},
		MinImageSize:     1,
	}
}

// New creates a new Loader with default configuration
func New() *Loader {
	return &Loader{config: DefaultConfig()}
}

// NewWithConfig creates a new Loader with custom configuration
func NewWithConfig(config Config) *Loader {
	if len(config.SupportedFormats) == 0 {
		config.SupportedFormats = DefaultConfig().SupportedFormats
	}
	return &Loader{config: config}
}

// Load reads and decodes the photo at path. Every failure wraps
// types.ErrPhotoLoad.
func (l *Loader) Load(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPhotoLoad, err)
	}
	img, err := l.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Decode decodes a photo from reader, honoring EXIF orientation
func (l *Loader) Decode(reader io.Reader) (image.Image, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPhotoLoad, err)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPhotoLoad, err)
	}
	if !l.isFormatSupported(format) {
		return nil, fmt.Errorf("%w: unsupported image format: %s", types.ErrPhotoLoad, format)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPhotoLoad, err)
	}
	if err := l.Validate(img); err != nil {
		return nil, err
	}
	return img, nil
}

// Info returns basic information about a photo
func Info(img image.Image) ImageInfo {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	info := ImageInfo{Width: width, Height: height, Area: width * height}
	if height > 0 {
		info.AspectRatio = float64(width) / float64(height)
	}
	return info
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	Area        int     `json:"area"`
}

func (l *Loader) isFormatSupported(format string) bool {
	for _, supported := range l.config.SupportedFormats {
		if strings.EqualFold(format, supported) ||
			(strings.EqualFold(supported, "jpg") && strings.EqualFold(format, "jpeg")) {
			return true
		}
	}
	return false
}

// Validate checks if a photo meets minimum requirements
func (l *Loader) Validate(img image.Image) error {
	info := Info(img)
	minSize := max(l.config.MinImageSize, 1)
	if info.Width < minSize || info.Height < minSize {
		return fmt.Errorf("%w: image too small: %dx%d (minimum: %d)",
			types.ErrPhotoLoad, info.Width, info.Height, minSize)
	}
	return nil
}
