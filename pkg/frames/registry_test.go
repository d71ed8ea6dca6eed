package frames

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/photostrip/pkg/types"
)

// createTestFrame writes a small frame with one transparent window
func createTestFrame(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 60, 180))
	for y := 0; y < 180; y++ {
		for x := 0; x < 60; x++ {
			a := uint8(255)
			if x > 10 && x < 50 && y > 10 && y < 50 {
				a = 0
			}
			img.SetNRGBA(x, y, color.NRGBA{R: 30, G: 30, B: 30, A: a})
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func newTestRegistry(t *testing.T) (*Registry, string) {
	dir := t.TempDir()
	createTestFrame(t, filepath.Join(dir, "color", "Pop Art.png"))
	createTestFrame(t, filepath.Join(dir, "color", "Vintage Insomania.png"))
	createTestFrame(t, filepath.Join(dir, "bw", "Noir.png"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "color", "notes.txt"), []byte("x"), 0o644))

	r := NewRegistry(Config{
		Dir:      dir,
		Families: map[string]types.Family{"vintage insomania": types.FamilyVintage},
	}, nil)
	return r, dir
}

func TestDiscover(t *testing.T) {
	r, _ := newTestRegistry(t)

	n, err := r.Discover("")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, types.TemplateKey{Filter: types.Color, FrameID: "Pop Art"}, list[0].Key)
	assert.Equal(t, types.TemplateKey{Filter: types.Monochrome, FrameID: "Noir"}, list[2].Key)
}

func TestFamilyResolvedAtRegistration(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Discover("")
	require.NoError(t, err)

	vintage, ok := r.Lookup(types.TemplateKey{Filter: types.Color, FrameID: "Vintage Insomania"})
	require.True(t, ok)
	assert.Equal(t, types.FamilyVintage, vintage.Family)

	assert.Equal(t, types.FamilyRegular, r.Family(types.TemplateKey{Filter: types.Color, FrameID: "Pop Art"}))
	// unregistered ids still honor the map
	assert.Equal(t, types.FamilyVintage, r.Family(types.TemplateKey{Filter: types.Monochrome, FrameID: "Vintage Insomania"}))
}

func TestLoadTemplate(t *testing.T) {
	r, _ := newTestRegistry(t)
	key := types.TemplateKey{Filter: types.Monochrome, FrameID: "Noir"}

	// conventional path works without discovery
	tpl, err := r.LoadTemplate(key)
	require.NoError(t, err)
	assert.True(t, tpl.HasAlpha)

	again, err := r.LoadTemplate(key)
	require.NoError(t, err)
	assert.Same(t, tpl, again)
}

func TestLoadTemplateFailures(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.LoadTemplate(types.TemplateKey{Filter: types.Color, FrameID: "missing"})
	assert.ErrorIs(t, err, types.ErrTemplateLoad)

	_, err = r.LoadTemplate(types.TemplateKey{Filter: types.Color, FrameID: "../../etc/passwd"})
	assert.ErrorIs(t, err, types.ErrTemplateLoad)

	_, err = r.Register(types.TemplateKey{Filter: types.Color, FrameID: ""}, "x.png")
	assert.Error(t, err)
}

func TestRegisterReplacesCachedTemplate(t *testing.T) {
	r, dir := newTestRegistry(t)
	key := types.TemplateKey{Filter: types.Color, FrameID: "Pop Art"}

	first, err := r.LoadTemplate(key)
	require.NoError(t, err)

	other := filepath.Join(dir, "elsewhere", "pop.png")
	createTestFrame(t, other)
	f, err := r.Register(key, other)
	require.NoError(t, err)
	assert.Equal(t, other, r.Path(key))
	assert.Equal(t, types.FamilyRegular, f.Family)

	second, err := r.LoadTemplate(key)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, other, second.Path)
}

func TestLoadTemplateMissingFileVersusCorruptFile(t *testing.T) {
	r, dir := newTestRegistry(t)

	_, err := r.LoadTemplate(types.TemplateKey{Filter: types.Color, FrameID: "Ghost"})
	require.ErrorIs(t, err, types.ErrTemplateLoad)
	assert.Contains(t, err.Error(), "no template file")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "color", "Broken.png"), []byte("not a png"), 0o644))
	_, err = r.LoadTemplate(types.TemplateKey{Filter: types.Color, FrameID: "Broken"})
	require.ErrorIs(t, err, types.ErrTemplateLoad)
	assert.NotContains(t, err.Error(), "no template file")
}

func TestDiscoverMissingDir(t *testing.T) {
	r := NewRegistry(Config{Dir: filepath.Join(t.TempDir(), "nowhere")}, nil)
	n, err := r.Discover("")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, r.List())
}
