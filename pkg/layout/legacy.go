package layout

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/menta2k/photostrip/pkg/types"
)

// LegacyTable holds hand-tuned slot geometry per frame family. Rects are
// already in canonical space for a canvas of CanvasWidth x CanvasHeight.
type LegacyTable struct {
	CanvasWidth  int                               `yaml:"canvas_width"`
	CanvasHeight int                               `yaml:"canvas_height"`
	Families     map[types.Family][]types.SlotRect `yaml:"families"`
}

// DefaultLegacyTable returns the built-in regular and vintage layouts
func DefaultLegacyTable() *LegacyTable {
	return &LegacyTable{
		CanvasWidth:  1875,
		CanvasHeight: 5625,
		Families: map[types.Family][]types.SlotRect{
			types.FamilyRegular: {
				{X: 104, Y: 105, W: 1667, H: 1141},
				{X: 104, Y: 1346, W: 1667, H: 1141},
				{X: 104, Y: 2587, W: 1667, H: 1141},
				{X: 104, Y: 3828, W: 1667, H: 1141},
			},
			types.FamilyVintage: {
				{X: 140, Y: 160, W: 1595, H: 1100},
				{X: 140, Y: 1390, W: 1595, H: 1100},
				{X: 140, Y: 2620, W: 1595, H: 1100},
				{X: 140, Y: 3850, W: 1595, H: 1100},
			},
		},
	}
}

// LoadLegacyTable reads a YAML legacy table from disk
func LoadLegacyTable(path string) (*LegacyTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy table: %w", err)
	}

	var table LegacyTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse legacy table: %w", err)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

// Validate checks every rect lies inside the table's canvas
func (t *LegacyTable) Validate() error {
	if t.CanvasWidth <= 0 || t.CanvasHeight <= 0 {
		return fmt.Errorf("legacy table canvas must be positive, got %dx%d", t.CanvasWidth, t.CanvasHeight)
	}
	if len(t.Families) == 0 {
		return fmt.Errorf("legacy table has no families")
	}
	for family, rects := range t.Families {
		if len(rects) == 0 {
			return fmt.Errorf("legacy family %q has no slots", family)
		}
		for i, r := range rects {
			if r.W <= 0 || r.H <= 0 || r.X < 0 || r.Y < 0 {
				return fmt.Errorf("legacy family %q slot %d is degenerate: %+v", family, i, r)
			}
			if r.X+r.W > t.CanvasWidth || r.Y+r.H > t.CanvasHeight {
				return fmt.Errorf("legacy family %q slot %d exceeds the %dx%d canvas", family, i, t.CanvasWidth, t.CanvasHeight)
			}
		}
	}
	return nil
}

// Has reports whether the table carries slots for family
func (t *LegacyTable) Has(family types.Family) bool {
	_, ok := t.Families[family]
	return ok
}

// Lookup returns the family's slots as a canonical SlotSet sorted by Y.
// The table must have been authored for the same canvas; no scaling or
// padding is applied.
func (t *LegacyTable) Lookup(family types.Family, canvas Canvas) (types.SlotSet, error) {
	if t.CanvasWidth != canvas.Width || t.CanvasHeight != canvas.Height {
		return types.SlotSet{}, fmt.Errorf("legacy table is for a %dx%d canvas, engine uses %dx%d",
			t.CanvasWidth, t.CanvasHeight, canvas.Width, canvas.Height)
	}
	rects, ok := t.Families[family]
	if !ok {
		return types.SlotSet{}, fmt.Errorf("%w: %q", types.ErrUnknownFamily, family)
	}

	out := make([]types.SlotRect, len(rects))
	for i, r := range rects {
		r.Space = types.Canonical
		out[i] = r
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Y < out[j].Y })

	return types.SlotSet{
		Space:  types.Canonical,
		Width:  canvas.Width,
		Height: canvas.Height,
		Rects:  out,
	}, nil
}
