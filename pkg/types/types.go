package types

import (
	"fmt"
	"image"
	"strings"
)

// Space names the coordinate space a SlotRect is expressed in
type Space string

const (
	// Native is pixels in the frame template's own resolution
	Native Space = "native"
	// Canonical is pixels in the fixed print-canvas resolution
	Canonical Space = "canonical"
)

// SlotRect is an axis-aligned rectangle tagged with its coordinate space
type SlotRect struct {
	X     int   `json:"x" yaml:"x"`
	Y     int   `json:"y" yaml:"y"`
	W     int   `json:"w" yaml:"w"`
	H     int   `json:"h" yaml:"h"`
	Space Space `json:"space" yaml:"-"`
}

// Rectangle returns the rect as an image.Rectangle in its own space
func (r SlotRect) Rectangle() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

func (r SlotRect) String() string {
	return fmt.Sprintf("%s(%d,%d %dx%d)", r.Space, r.X, r.Y, r.W, r.H)
}

// SlotSet is an ordered list of slots for one template, sorted by ascending Y.
// Width and Height are the dimensions of the space the slots live in.
type SlotSet struct {
	Space  Space      `json:"space"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Rects  []SlotRect `json:"rects"`
}

// Len returns the number of slots
func (s SlotSet) Len() int {
	return len(s.Rects)
}

// PercentRect is a canonical rect normalized to percentages of the canvas,
// formatted for the UI overlay (e.g. "1.86%").
type PercentRect struct {
	Top    string `json:"top"`
	Left   string `json:"left"`
	Width  string `json:"width"`
	Height string `json:"height"`
}

// FilterMode selects color or monochrome output
type FilterMode string

const (
	Color      FilterMode = "color"
	Monochrome FilterMode = "monochrome"
)

// ParseFilterMode accepts "color", "monochrome" and the kiosk alias "bw"
func ParseFilterMode(s string) (FilterMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "color", "colour":
		return Color, nil
	case "monochrome", "mono", "bw", "grayscale":
		return Monochrome, nil
	default:
		return "", fmt.Errorf("unknown filter mode: %q", s)
	}
}

// Dir returns the on-disk directory name used for templates of this mode
func (m FilterMode) Dir() string {
	if m == Monochrome {
		return "bw"
	}
	return "color"
}

// TemplateKey identifies a frame template
type TemplateKey struct {
	Filter  FilterMode `json:"filter"`
	FrameID string     `json:"frame_id"`
}

func (k TemplateKey) String() string {
	return string(k.Filter) + "/" + k.FrameID
}

// Family selects a legacy coordinate table entry for a frame
type Family string

const (
	FamilyRegular Family = "regular"
	FamilyVintage Family = "vintage"
)

// LayoutSource tells whether a layout came from detection or the legacy table
type LayoutSource string

const (
	SourceAuto     LayoutSource = "auto"
	SourceFallback LayoutSource = "fallback"
)

// FrameTemplate is a decoded frame image. It is never mutated after loading.
type FrameTemplate struct {
	Key      TemplateKey
	Path     string
	Image    image.Image
	HasAlpha bool
}

// Size returns the intrinsic template dimensions
func (t *FrameTemplate) Size() (int, int) {
	b := t.Image.Bounds()
	return b.Dx(), b.Dy()
}
