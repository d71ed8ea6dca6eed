package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/photostrip/pkg/types"
)

func TestDefaultLegacyTable(t *testing.T) {
	table := DefaultLegacyTable()
	require.NoError(t, table.Validate())

	for _, family := range []types.Family{types.FamilyRegular, types.FamilyVintage} {
		set, err := table.Lookup(family, DefaultCanvas())
		require.NoError(t, err, family)
		assert.Equal(t, 4, set.Len())
		assert.Equal(t, types.Canonical, set.Space)
		for i := 1; i < set.Len(); i++ {
			assert.Less(t, set.Rects[i-1].Y, set.Rects[i].Y)
			assert.Equal(t, types.Canonical, set.Rects[i].Space)
		}
	}

	regular, _ := table.Lookup(types.FamilyRegular, DefaultCanvas())
	vintage, _ := table.Lookup(types.FamilyVintage, DefaultCanvas())
	assert.NotEqual(t, regular.Rects[0], vintage.Rects[0])
}

func TestLegacyLookupErrors(t *testing.T) {
	table := DefaultLegacyTable()

	_, err := table.Lookup("polaroid", DefaultCanvas())
	assert.ErrorIs(t, err, types.ErrUnknownFamily)

	_, err = table.Lookup(types.FamilyRegular, Canvas{Width: 1200, Height: 3600, Padding: 50})
	assert.Error(t, err, "a table authored for another canvas must not be reused")
}

func TestLegacyLookupDoesNotAliasTable(t *testing.T) {
	table := DefaultLegacyTable()
	set, err := table.Lookup(types.FamilyRegular, DefaultCanvas())
	require.NoError(t, err)

	set.Rects[0].X = 999
	assert.Equal(t, 104, table.Families[types.FamilyRegular][0].X)
}

func TestLoadLegacyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.yaml")
	data := `canvas_width: 1875
canvas_height: 5625
families:
  regular:
    - {x: 100, y: 2000, w: 1600, h: 1000}
    - {x: 100, y: 100, w: 1600, h: 1000}
  vintage:
    - {x: 150, y: 150, w: 1500, h: 1000}
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	table, err := LoadLegacyTable(path)
	require.NoError(t, err)

	set, err := table.Lookup(types.FamilyRegular, DefaultCanvas())
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())
	assert.Equal(t, 100, set.Rects[0].Y, "lookup sorts by y")
}

func TestLoadLegacyTableInvalid(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadLegacyTable(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	outside := filepath.Join(dir, "outside.yaml")
	require.NoError(t, os.WriteFile(outside, []byte(`canvas_width: 1875
canvas_height: 5625
families:
  regular:
    - {x: 1000, y: 100, w: 1000, h: 1000}
`), 0o644))
	_, err = LoadLegacyTable(outside)
	assert.Error(t, err)

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("families: ["), 0o644))
	_, err = LoadLegacyTable(broken)
	assert.Error(t, err)
}
