package cropper

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/menta2k/photostrip/pkg/types"
)

// Fitter resizes and center-crops photos into slot rectangles without
// distorting them
type Fitter struct {
	config FitConfig
}

// FitConfig holds configuration for photo fitting
type FitConfig struct {
	Filter imaging.ResampleFilter
}

// New creates a new Fitter using Lanczos resampling
func New() *Fitter {
	return &Fitter{
		config: FitConfig{Filter: imaging.Lanczos},
	}
}

// NewWithConfig creates a new Fitter with custom configuration
func NewWithConfig(config FitConfig) *Fitter {
	return &Fitter{config: config}
}

// ParseFilter maps a config name to a resampling filter. Nearest-neighbor
// is deliberately not offered; it aliases badly at print resolution.
func ParseFilter(name string) (imaging.ResampleFilter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lanczos":
		return imaging.Lanczos, nil
	case "catmullrom":
		return imaging.CatmullRom, nil
	case "box":
		return imaging.Box, nil
	case "linear":
		return imaging.Linear, nil
	case "mitchell":
		return imaging.MitchellNetravali, nil
	default:
		return imaging.ResampleFilter{}, fmt.Errorf("unsupported resample filter: %q", name)
	}
}

// Filter returns the resampling filter in use
func (f *Fitter) Filter() imaging.ResampleFilter {
	return f.config.Filter
}

// Fit returns the photo scaled and center-cropped to exactly target.W x target.H
func (f *Fitter) Fit(photo image.Image, target types.SlotRect, mode types.FilterMode) (*image.NRGBA, error) {
	return f.FitSize(photo, target.W, target.H, mode)
}

// FitSize is Fit with explicit dimensions. The largest centered region of
// the target's aspect ratio is cut from the photo first and only that region
// is resampled. In monochrome mode it is desaturated before resampling.
func (f *Fitter) FitSize(photo image.Image, width, height int, mode types.FilterMode) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}
	b := photo.Bounds()
	pw, ph := b.Dx(), b.Dy()
	if pw == 0 || ph == 0 {
		return nil, fmt.Errorf("invalid photo dimensions %dx%d", pw, ph)
	}

	cw, ch := cropSize(pw, ph, width, height)
	x0 := b.Min.X + (pw-cw)/2
	y0 := b.Min.Y + (ph-ch)/2
	region := imaging.Crop(photo, image.Rect(x0, y0, x0+cw, y0+ch))

	if mode == types.Monochrome {
		region = Desaturate(region)
	}
	if cw == width && ch == height {
		return region, nil
	}
	return imaging.Resize(region, width, height, f.config.Filter), nil
}

// cropSize returns the largest width x height aspect region inside a
// pw x ph photo. A photo relatively wider than the target keeps its full
// height, otherwise its full width.
func cropSize(pw, ph, width, height int) (int, int) {
	if int64(pw)*int64(height) > int64(width)*int64(ph) {
		cw := int(float64(ph)*float64(width)/float64(height) + 0.5)
		return min(max(cw, 1), pw), ph
	}
	ch := int(float64(pw)*float64(height)/float64(width) + 0.5)
	return pw, min(max(ch, 1), ph)
}

// Desaturate returns a grayscale copy of img; R, G and B are equal in every pixel
func Desaturate(img image.Image) *image.NRGBA {
	return imaging.Grayscale(img)
}
