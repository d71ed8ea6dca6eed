package vision

import (
	"fmt"
	"image"
	"log/slog"
	"sort"

	"github.com/menta2k/photostrip/pkg/types"
)

// SlotDetector finds photo slots in a frame template by looking for
// transparent holes in its alpha channel
type SlotDetector struct {
	config    DetectionConfig
	extractor ContourExtractor
	logger    *slog.Logger
}

// DetectionConfig holds configuration for slot detection
type DetectionConfig struct {
	// AlphaCutoff: pixels with alpha strictly below it are holes
	AlphaCutoff uint8
	// MinSlotSize: both sides of a hole must exceed it (native pixels)
	MinSlotSize int
	// LowConfidenceSlots: fewer surviving slots than this is logged as suspicious
	LowConfidenceSlots int
}

// DefaultConfig returns the detection defaults used by the kiosk
func DefaultConfig() DetectionConfig {
	return DetectionConfig{
		AlphaCutoff:        10,
		MinSlotSize:        100,
		LowConfidenceSlots: 3,
	}
}

// New creates a new SlotDetector with default configuration
func New() *SlotDetector {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a new SlotDetector with custom configuration
func NewWithConfig(config DetectionConfig) *SlotDetector {
	return &SlotDetector{
		config:    config,
		extractor: DefaultExtractor(),
		logger:    slog.Default(),
	}
}

// SetExtractor replaces the contour extractor
func (d *SlotDetector) SetExtractor(extractor ContourExtractor) {
	d.extractor = extractor
}

// SetLogger sets the logger used for low-confidence warnings
func (d *SlotDetector) SetLogger(logger *slog.Logger) {
	if logger != nil {
		d.logger = logger
	}
}

// Config returns the active configuration
func (d *SlotDetector) Config() DetectionConfig {
	return d.config
}

// Detect returns the template's slots in native space, sorted top to bottom.
// Fewer than LowConfidenceSlots results is logged but not an error.
func (d *SlotDetector) Detect(tpl *types.FrameTemplate) (types.SlotSet, error) {
	if tpl == nil || tpl.Image == nil {
		return types.SlotSet{}, fmt.Errorf("%w: nil template", types.ErrTemplateLoad)
	}
	if !tpl.HasAlpha {
		return types.SlotSet{}, fmt.Errorf("%s: %w", tpl.Key, types.ErrNoAlphaChannel)
	}

	width, height := tpl.Size()
	mask := HoleMask(tpl.Image, d.config.AlphaCutoff)

	var rects []types.SlotRect
	for _, box := range d.extractor.ExternalBounds(mask) {
		if box.Dx() <= d.config.MinSlotSize || box.Dy() <= d.config.MinSlotSize {
			continue
		}
		rects = append(rects, types.SlotRect{
			X:     box.Min.X,
			Y:     box.Min.Y,
			W:     box.Dx(),
			H:     box.Dy(),
			Space: types.Native,
		})
	}

	if len(rects) == 0 {
		return types.SlotSet{}, fmt.Errorf("%s: %w", tpl.Key, types.ErrNoSlotsDetected)
	}

	sort.SliceStable(rects, func(i, j int) bool {
		if rects[i].Y != rects[j].Y {
			return rects[i].Y < rects[j].Y
		}
		return rects[i].X < rects[j].X
	})

	if len(rects) < d.config.LowConfidenceSlots {
		d.logger.Warn("low-confidence slot detection",
			"template", tpl.Key.String(), "slots", len(rects), "expected_at_least", d.config.LowConfidenceSlots)
	}

	return types.SlotSet{
		Space:  types.Native,
		Width:  width,
		Height: height,
		Rects:  rects,
	}, nil
}

// Mask is a binary image; Pix[y*Width+x] is 1 for hole pixels
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// At reports whether (x, y) is a hole. Out-of-range points are not holes.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x] != 0
}

// HoleMask thresholds the alpha channel: alpha < cutoff becomes a hole
func HoleMask(img image.Image, cutoff uint8) *Mask {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	m := &Mask{Width: w, Height: h, Pix: make([]uint8, w*h)}

	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := 0; y < h; y++ {
			row := nrgba.Pix[nrgba.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < w; x++ {
				if row[x*4+3] < cutoff {
					m.Pix[y*w+x] = 1
				}
			}
		}
		return m
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			_, _, _, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if uint8(a>>8) < cutoff {
				m.Pix[y*w+x] = 1
			}
		}
	}
	return m
}
