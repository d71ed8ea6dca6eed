package photostrip

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/photostrip/pkg/layout"
	"github.com/menta2k/photostrip/pkg/types"
)

var (
	popArt  = types.TemplateKey{Filter: types.Color, FrameID: "Pop Art"}
	vintage = types.TemplateKey{Filter: types.Color, FrameID: "Vintage Insomania"}
	holes   = []image.Rectangle{
		image.Rect(30, 30, 345, 260),
		image.Rect(30, 300, 345, 530),
		image.Rect(30, 570, 345, 800),
		image.Rect(30, 840, 345, 1070),
	}
)

// createTestFrame writes a 375x1125 frame with four transparent windows
func createTestFrame(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 375, 1125))
	for y := 0; y < 1125; y++ {
		for x := 0; x < 375; x++ {
			c := color.NRGBA{R: 240, G: 200, B: 20, A: 255}
			for _, h := range holes {
				if image.Pt(x, y).In(h) {
					c.A = 0
				}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func createTestPhoto(t *testing.T, path string, c color.Color) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, imaging.New(640, 480, c), &jpeg.Options{Quality: 90}))
}

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	createTestFrame(t, filepath.Join(dir, "frames", "color", "Pop Art.png"))

	opts := DefaultOptions()
	opts.Canvas = layout.Canvas{Width: 375, Height: 1125, Padding: 10}
	opts.FramesDir = filepath.Join(dir, "frames")
	opts.Output.Dir = filepath.Join(dir, "out")
	opts.Workers = 2
	opts.Legacy = &layout.LegacyTable{
		CanvasWidth:  375,
		CanvasHeight: 1125,
		Families: map[types.Family][]types.SlotRect{
			types.FamilyRegular: {{X: 20, Y: 20, W: 335, H: 250}, {X: 20, Y: 290, W: 335, H: 250}},
			types.FamilyVintage: {{X: 28, Y: 32, W: 319, H: 220}},
		},
	}

	e, err := NewWithConfig(opts)
	require.NoError(t, err)
	_, err = e.Discover()
	require.NoError(t, err)
	return e, dir
}

func TestNew(t *testing.T) {
	e, err := New()
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, layout.DefaultCanvas(), e.Options().Canvas)
	assert.Equal(t, "1.0.0", GetVersion())
}

func TestNewWithConfigRejectsBadInput(t *testing.T) {
	opts := DefaultOptions()
	opts.Canvas.Width = 0
	_, err := NewWithConfig(opts)
	assert.Error(t, err)

	opts = DefaultOptions()
	opts.Legacy = &layout.LegacyTable{CanvasWidth: 10, CanvasHeight: 10, Families: map[types.Family][]types.SlotRect{
		types.FamilyRegular: {{X: 0, Y: 0, W: 50, H: 50}},
	}}
	_, err = NewWithConfig(opts)
	assert.Error(t, err)
}

func TestLayoutAuto(t *testing.T) {
	e, _ := newTestEngine(t)

	l, err := e.Layout(popArt)
	require.NoError(t, err)
	assert.Equal(t, types.SourceAuto, l.Source)
	require.Equal(t, 4, l.Slots.Len())
	assert.Equal(t, types.SlotRect{X: 20, Y: 20, W: 335, H: 250, Space: types.Canonical}, l.Slots.Rects[0])

	pct := l.Percentages()
	require.Len(t, pct, 4)
	assert.Equal(t, "5.33%", pct[0].Left)
	assert.Equal(t, "1.78%", pct[0].Top)
}

func TestLayoutFallback(t *testing.T) {
	e, _ := newTestEngine(t)

	l, err := e.Layout(vintage)
	require.NoError(t, err)
	assert.Equal(t, types.SourceFallback, l.Source)
	assert.Equal(t, types.FamilyVintage, l.Family)
	assert.Equal(t, 1, l.Slots.Len())
}

func TestDetectSlots(t *testing.T) {
	e, _ := newTestEngine(t)

	set, err := e.DetectSlots(popArt)
	require.NoError(t, err)
	assert.Equal(t, types.Native, set.Space)
	require.Equal(t, 4, set.Len())
	assert.Equal(t, types.SlotRect{X: 30, Y: 30, W: 315, H: 230, Space: types.Native}, set.Rects[0])

	_, err = e.DetectSlots(vintage)
	assert.ErrorIs(t, err, types.ErrTemplateLoad)
}

func TestComposeFiles(t *testing.T) {
	e, dir := newTestEngine(t)
	var paths []string
	for i, c := range []color.NRGBA{{255, 0, 0, 255}, {0, 0, 255, 255}} {
		p := filepath.Join(dir, "capture_"+string(rune('1'+i))+".jpg")
		createTestPhoto(t, p, c)
		paths = append(paths, p)
	}

	res, err := e.ComposeFiles(context.Background(), FileRequest{Photos: paths, Key: popArt})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, types.SourceAuto, res.Layout.Source)

	strip, err := imaging.Open(res.StripPath)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 375, 1125), strip.Bounds())

	page, err := imaging.Open(res.PrintPath)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1200, 1800), page.Bounds())

	// slot 1 holds the red capture, slot 4 shows the white background
	r, g, b, _ := strip.At(187, 145).RGBA()
	assert.Greater(t, r>>8, uint32(200))
	assert.Less(t, g>>8, uint32(60))
	assert.Less(t, b>>8, uint32(60))
	r, g, b, _ = strip.At(187, 955).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))

	status := e.Status()
	assert.EqualValues(t, 1, status.Completed)
	assert.Equal(t, []string{popArt.String()}, status.CachedTemplates)
}

func TestComposeFilesMonochromeExplicitPaths(t *testing.T) {
	e, dir := newTestEngine(t)
	createTestFrame(t, filepath.Join(dir, "frames", "bw", "Pop Art.png"))
	photo := filepath.Join(dir, "capture.jpg")
	createTestPhoto(t, photo, color.NRGBA{20, 180, 60, 255})

	key := types.TemplateKey{Filter: types.Monochrome, FrameID: "Pop Art"}
	req := FileRequest{
		Photos:    []string{photo, photo, photo, photo},
		Key:       key,
		StripPath: filepath.Join(dir, "custom", "strip.png"),
		PrintPath: filepath.Join(dir, "custom", "page.png"),
	}
	res, err := e.ComposeFiles(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, req.StripPath, res.StripPath)

	strip, err := imaging.Open(res.StripPath)
	require.NoError(t, err)
	gray := imaging.Clone(strip)
	for y := 0; y < 1125; y += 5 {
		for x := 0; x < 375; x += 5 {
			c := gray.NRGBAAt(x, y)
			require.True(t, c.R == c.G && c.G == c.B, "pixel %d,%d = %v", x, y, c)
		}
	}
}

func TestComposeFilesPhotoFailureWritesNothing(t *testing.T) {
	e, dir := newTestEngine(t)
	good := filepath.Join(dir, "good.jpg")
	createTestPhoto(t, good, color.White)

	_, err := e.ComposeFiles(context.Background(), FileRequest{
		Photos: []string{good, filepath.Join(dir, "missing.jpg")},
		Key:    popArt,
	})
	assert.ErrorIs(t, err, types.ErrPhotoLoad)
	assert.ErrorIs(t, err, types.ErrComposition)

	entries, _ := os.ReadDir(filepath.Join(dir, "out"))
	assert.Empty(t, entries)
	assert.EqualValues(t, 1, e.Status().Failed)
}

func TestComposeAsync(t *testing.T) {
	e, _ := newTestEngine(t)
	photo := imaging.New(800, 600, color.NRGBA{0, 255, 0, 255})

	res := <-e.ComposeAsync(context.Background(), []image.Image{photo}, popArt)
	require.NoError(t, res.Err)
	assert.Equal(t, image.Rect(0, 0, 375, 1125), res.Image.Bounds())
	assert.Equal(t, types.SourceAuto, res.Layout.Source)
}

func TestConcurrentComposeDetectsOnce(t *testing.T) {
	e, _ := newTestEngine(t)
	photo := imaging.New(400, 300, color.NRGBA{0, 0, 255, 255})

	const n = 8
	var wg sync.WaitGroup
	results := make([]Result, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = <-e.ComposeAsync(context.Background(), []image.Image{photo}, popArt)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, results[0].Layout, r.Layout)
	}
	status := e.Status()
	assert.EqualValues(t, n, status.Completed)
	assert.Zero(t, status.Active)
	assert.Len(t, status.CachedTemplates, 1)
}

func TestComposeCanceledWhileWaiting(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// drain the pool so Acquire has to wait
	require.NoError(t, e.pool.Acquire(context.Background(), int64(e.opts.Workers)))
	defer e.pool.Release(int64(e.opts.Workers))

	_, err := e.Compose(ctx, nil, popArt)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildPrintPageFile(t *testing.T) {
	e, dir := newTestEngine(t)
	stripPath := filepath.Join(dir, "strip.png")
	f, err := os.Create(stripPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, imaging.New(375, 1125, color.NRGBA{255, 0, 0, 255})))
	require.NoError(t, f.Close())

	out, err := e.BuildPrintPageFile(context.Background(), stripPath, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "strip_print.jpg"), out)

	page, err := imaging.Open(out)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1200, 1800), page.Bounds())

	_, err = e.BuildPrintPageFile(context.Background(), filepath.Join(dir, "nope.png"), "")
	assert.ErrorIs(t, err, types.ErrPhotoLoad)
}

func TestWarmAndOverlay(t *testing.T) {
	e, dir := newTestEngine(t)
	require.NoError(t, e.Warm(context.Background()))
	assert.Equal(t, []string{popArt.String()}, e.Status().CachedTemplates)
	assert.Equal(t, 1, e.Status().Frames)

	out := filepath.Join(dir, "debug", "overlay.png")
	require.NoError(t, e.WriteSlotOverlay(popArt, out))
	_, err := os.Stat(out)
	assert.NoError(t, err)
}

func TestNewWithConfigRejectsUnmappedFamilies(t *testing.T) {
	opts := DefaultOptions()
	opts.Families = map[string]types.Family{"Retro": "sepia"}
	_, err := NewWithConfig(opts)
	assert.ErrorIs(t, err, types.ErrUnknownFamily)

	// the regular family backs every unmapped frame
	opts = DefaultOptions()
	opts.Families = nil
	opts.Legacy = &layout.LegacyTable{CanvasWidth: 1875, CanvasHeight: 5625, Families: map[types.Family][]types.SlotRect{
		types.FamilyVintage: {{X: 0, Y: 0, W: 50, H: 50}},
	}}
	_, err = NewWithConfig(opts)
	assert.ErrorIs(t, err, types.ErrUnknownFamily)

	opts = DefaultOptions()
	opts.Canvas = layout.Canvas{Width: 375, Height: 1125, Padding: 10}
	_, err = NewWithConfig(opts)
	assert.Error(t, err, "legacy table canvas differs from the engine canvas")
}

func TestDefaultFamilies(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	l, err := e.Layout(types.TemplateKey{Filter: types.Monochrome, FrameID: "bw_vintage"})
	require.NoError(t, err)
	assert.Equal(t, types.SourceFallback, l.Source)
	assert.Equal(t, types.FamilyVintage, l.Family)
}

func TestComposeFilesWaitsForWorker(t *testing.T) {
	e, dir := newTestEngine(t)
	photo := filepath.Join(dir, "capture.jpg")
	createTestPhoto(t, photo, color.White)

	require.NoError(t, e.pool.Acquire(context.Background(), int64(e.opts.Workers)))
	defer e.pool.Release(int64(e.opts.Workers))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.ComposeFiles(ctx, FileRequest{Photos: []string{photo}, Key: popArt})
	assert.ErrorIs(t, err, context.Canceled)

	entries, _ := os.ReadDir(filepath.Join(dir, "out"))
	assert.Empty(t, entries)
	status := e.Status()
	assert.Zero(t, status.Completed)
	assert.Zero(t, status.Failed)
	assert.Empty(t, status.CachedTemplates, "nothing ran without a worker")
}

func TestWriteSlotOverlayScalesPadding(t *testing.T) {
	dir := t.TempDir()
	createTestFrame(t, filepath.Join(dir, "frames", "color", "Pop Art.png"))

	opts := DefaultOptions()
	opts.FramesDir = filepath.Join(dir, "frames")
	e, err := NewWithConfig(opts)
	require.NoError(t, err)

	out := filepath.Join(dir, "overlay.png")
	require.NoError(t, e.WriteSlotOverlay(popArt, out))

	img, err := imaging.Open(out)
	require.NoError(t, err)
	overlay := imaging.Clone(img)
	require.Equal(t, image.Rect(0, 0, 375, 1125), overlay.Bounds())

	// 50 canonical pixels on a 1875 wide canvas are 10 native pixels here
	assert.Equal(t, color.NRGBA{0, 200, 0, 255}, overlay.NRGBAAt(20, 145))
	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, overlay.NRGBAAt(30, 145))
	assert.Equal(t, color.NRGBA{240, 200, 20, 255}, overlay.NRGBAAt(5, 145))
}
