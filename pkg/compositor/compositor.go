// Package compositor assembles photostrips: fitted photos pasted into
// canonical slots, the frame artwork on top, and the two-up print page.
package compositor

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/menta2k/photostrip/pkg/cropper"
	"github.com/menta2k/photostrip/pkg/layout"
	"github.com/menta2k/photostrip/pkg/types"
)

// Compositor renders strips and print pages
type Compositor struct {
	config Config
	fitter *cropper.Fitter
	logger *slog.Logger
}

// Config holds configuration for composition
type Config struct {
	Canvas layout.Canvas
	// PrintWidth x PrintHeight is the physical page; each strip copy gets half the width
	PrintWidth  int
	PrintHeight int
	Background  color.Color
	Filter      imaging.ResampleFilter
}

// DefaultConfig returns the 1875x5625 strip on a 1200x1800 (4x6) page
func DefaultConfig() Config {
	return Config{
		Canvas:      layout.DefaultCanvas(),
		PrintWidth:  1200,
		PrintHeight: 1800,
		Background:  color.White,
		Filter:      imaging.Lanczos,
	}
}

// Request is one strip to compose. Photos pair with Layout slots by index;
// Frame may be nil when the template could not be loaded.
type Request struct {
	Photos []image.Image
	Mode   types.FilterMode
	Layout layout.Layout
	Frame  *types.FrameTemplate
}

// New creates a Compositor with default configuration
func New() *Compositor {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a Compositor with custom configuration
func NewWithConfig(config Config) *Compositor {
	if config.Background == nil {
		config.Background = color.White
	}
	if config.Filter.Kernel == nil {
		config.Filter = imaging.Lanczos
	}
	return &Compositor{
		config: config,
		fitter: cropper.NewWithConfig(cropper.FitConfig{Filter: config.Filter}),
		logger: slog.Default(),
	}
}

// SetLogger sets the logger
func (c *Compositor) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Config returns the compositor configuration
func (c *Compositor) Config() Config {
	return c.config
}

// Compose renders a single strip at canonical size. Extra slots stay
// background; extra photos are ignored.
func (c *Compositor) Compose(req Request) (*image.NRGBA, error) {
	cv := c.config.Canvas
	slots := req.Layout.Slots
	if slots.Space != types.Canonical || slots.Width != cv.Width || slots.Height != cv.Height {
		return nil, fmt.Errorf("%w: layout is %s %dx%d, canvas is %dx%d",
			types.ErrComposition, slots.Space, slots.Width, slots.Height, cv.Width, cv.Height)
	}

	canvas := imaging.New(cv.Width, cv.Height, c.config.Background)

	n := min(len(req.Photos), slots.Len())
	for i := 0; i < n; i++ {
		photo := req.Photos[i]
		if photo == nil {
			return nil, fmt.Errorf("%w: photo %d is missing", types.ErrPhotoLoad, i+1)
		}
		slot := slots.Rects[i]
		fitted, err := c.fitter.Fit(photo, slot, req.Mode)
		if err != nil {
			return nil, fmt.Errorf("%w: fitting photo %d into %s: %v", types.ErrComposition, i+1, slot, err)
		}
		draw.Draw(canvas, slot.Rectangle(), fitted, image.Point{}, draw.Src)
	}

	out := canvas
	if req.Frame != nil && req.Frame.Image != nil {
		out = imaging.Overlay(canvas, c.frameOverlay(req.Frame), image.Pt(0, 0), 1.0)
	} else {
		c.logger.Warn("composing without frame overlay", "template", req.Layout.Key.String())
	}

	if req.Mode == types.Monochrome {
		out = cropper.Desaturate(out)
	}
	return out, nil
}

// frameOverlay returns the template image at exactly canvas size
func (c *Compositor) frameOverlay(tpl *types.FrameTemplate) image.Image {
	w, h := tpl.Size()
	if w == c.config.Canvas.Width && h == c.config.Canvas.Height {
		return tpl.Image
	}
	return imaging.Resize(tpl.Image, c.config.Canvas.Width, c.config.Canvas.Height, c.fitter.Filter())
}

// BuildPrintPage places two copies of strip side by side on the print page.
// Each copy is resized to exactly half the page width and the full height.
func (c *Compositor) BuildPrintPage(strip image.Image) (*image.NRGBA, error) {
	if strip == nil || strip.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty strip", types.ErrComposition)
	}
	pw, ph := c.config.PrintWidth, c.config.PrintHeight
	half := pw / 2
	if half <= 0 || ph <= 0 {
		return nil, fmt.Errorf("%w: invalid print page %dx%d", types.ErrComposition, pw, ph)
	}

	copyImg := imaging.Resize(strip, half, ph, c.fitter.Filter())
	page := imaging.New(pw, ph, c.config.Background)
	draw.Draw(page, image.Rect(0, 0, half, ph), copyImg, image.Point{}, draw.Src)
	draw.Draw(page, image.Rect(half, 0, 2*half, ph), copyImg, image.Point{}, draw.Src)
	return page, nil
}
