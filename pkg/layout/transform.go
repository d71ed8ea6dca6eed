// Package layout turns detected or legacy slot geometry into canonical
// canvas rectangles and UI percentages. Every caller that needs slot
// geometry in canvas space goes through the functions in this file, so
// the preview overlay and the printed strip cannot drift apart.
package layout

import (
	"fmt"
	"math"

	"github.com/menta2k/photostrip/pkg/types"
)

// Canvas is the canonical print canvas and the slot padding applied in it
type Canvas struct {
	Width   int
	Height  int
	Padding int
}

// DefaultCanvas is the 2x6 inch strip at print resolution with 50px padding
func DefaultCanvas() Canvas {
	return Canvas{Width: 1875, Height: 5625, Padding: 50}
}

// Validate checks the canvas dimensions
func (c Canvas) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("canvas dimensions must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.Padding < 0 {
		return fmt.Errorf("canvas padding must be non-negative, got %d", c.Padding)
	}
	return nil
}

// ToCanonical maps a native slot into canonical space. Axes scale
// independently, then the rect is inflated by padding on every side with
// the origin clamped at zero.
func ToCanonical(slot types.SlotRect, srcW, srcH, canonicalW, canonicalH, padding int) (types.SlotRect, error) {
	if slot.Space != types.Native {
		return types.SlotRect{}, fmt.Errorf("expected a %s slot, got %s", types.Native, slot.Space)
	}
	if srcW <= 0 || srcH <= 0 {
		return types.SlotRect{}, fmt.Errorf("invalid source dimensions %dx%d", srcW, srcH)
	}
	if canonicalW <= 0 || canonicalH <= 0 {
		return types.SlotRect{}, fmt.Errorf("invalid canonical dimensions %dx%d", canonicalW, canonicalH)
	}
	if padding < 0 {
		return types.SlotRect{}, fmt.Errorf("negative padding %d", padding)
	}

	scaled := Scale(slot, float64(canonicalW)/float64(srcW), float64(canonicalH)/float64(srcH))
	return Inflate(scaled, padding), nil
}

// Scale multiplies every coordinate by its axis factor, rounding to the
// nearest pixel. The result is in canonical space.
func Scale(slot types.SlotRect, scaleX, scaleY float64) types.SlotRect {
	return types.SlotRect{
		X:     int(math.Round(float64(slot.X) * scaleX)),
		Y:     int(math.Round(float64(slot.Y) * scaleY)),
		W:     int(math.Round(float64(slot.W) * scaleX)),
		H:     int(math.Round(float64(slot.H) * scaleY)),
		Space: types.Canonical,
	}
}

// Inflate grows r outward by pad on each side. The origin never goes
// negative; width and height always grow by exactly 2*pad.
func Inflate(r types.SlotRect, pad int) types.SlotRect {
	return types.SlotRect{
		X:     max(0, r.X-pad),
		Y:     max(0, r.Y-pad),
		W:     r.W + 2*pad,
		H:     r.H + 2*pad,
		Space: r.Space,
	}
}

// ToPercentage normalizes a canonical rect against the canvas size
func ToPercentage(rect types.SlotRect, canonicalW, canonicalH int) types.PercentRect {
	return types.PercentRect{
		Top:    formatPercent(rect.Y, canonicalH),
		Left:   formatPercent(rect.X, canonicalW),
		Width:  formatPercent(rect.W, canonicalW),
		Height: formatPercent(rect.H, canonicalH),
	}
}

func formatPercent(v, total int) string {
	return fmt.Sprintf("%.2f%%", float64(v)*100/float64(total))
}

// CanonicalSet maps a whole native SlotSet into the canvas
func (c Canvas) CanonicalSet(set types.SlotSet) (types.SlotSet, error) {
	if set.Space != types.Native {
		return types.SlotSet{}, fmt.Errorf("expected a %s slot set, got %s", types.Native, set.Space)
	}

	out := types.SlotSet{
		Space:  types.Canonical,
		Width:  c.Width,
		Height: c.Height,
		Rects:  make([]types.SlotRect, 0, len(set.Rects)),
	}
	for i, r := range set.Rects {
		cr, err := ToCanonical(r, set.Width, set.Height, c.Width, c.Height, c.Padding)
		if err != nil {
			return types.SlotSet{}, fmt.Errorf("slot %d: %w", i, err)
		}
		out.Rects = append(out.Rects, cr)
	}
	return out, nil
}

// Percentages converts a canonical SlotSet into UI percentage rects
func (c Canvas) Percentages(set types.SlotSet) ([]types.PercentRect, error) {
	if set.Space != types.Canonical {
		return nil, fmt.Errorf("expected a %s slot set, got %s", types.Canonical, set.Space)
	}
	out := make([]types.PercentRect, len(set.Rects))
	for i, r := range set.Rects {
		out[i] = ToPercentage(r, c.Width, c.Height)
	}
	return out, nil
}
