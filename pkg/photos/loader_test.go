package photos

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/photostrip/pkg/types"
)

// createTestImage creates a simple gradient test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.Set(x, y, color.RGBA{r, g, 128, 255})
		}
	}
	return img
}

func writeJPEG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 90}))
}

func TestNew(t *testing.T) {
	l := New()
	require.NotNil(t, l)
	assert.Equal(t, []string{"jpeg", "png", "webp"}, l.config.SupportedFormats)
}

func TestNewWithConfig(t *testing.T) {
	l := NewWithConfig(Config{MinImageSize: 200})
	assert.Equal(t, 200, l.config.MinImageSize)
	assert.NotEmpty(t, l.config.SupportedFormats)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture_1.jpg")
	writeJPEG(t, path, createTestImage(320, 240))

	img, err := New().Load(path)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())
}

func TestLoadFailures(t *testing.T) {
	dir := t.TempDir()
	l := New()

	_, err := l.Load(filepath.Join(dir, "missing.jpg"))
	assert.ErrorIs(t, err, types.ErrPhotoLoad)

	garbage := filepath.Join(dir, "garbage.jpg")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not a jpeg"), 0o644))
	_, err = l.Load(garbage)
	assert.ErrorIs(t, err, types.ErrPhotoLoad)
}

func TestLoadRejectsUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, createTestImage(50, 50)))
	require.NoError(t, f.Close())

	_, err = NewWithConfig(Config{SupportedFormats: []string{"jpg"}}).Load(path)
	assert.ErrorIs(t, err, types.ErrPhotoLoad)
}

func TestInfo(t *testing.T) {
	info := Info(createTestImage(400, 300))
	assert.Equal(t, 400, info.Width)
	assert.Equal(t, 300, info.Height)
	assert.InDelta(t, 4.0/3.0, info.AspectRatio, 1e-9)
	assert.Equal(t, 120000, info.Area)
}

func TestValidate(t *testing.T) {
	l := NewWithConfig(Config{MinImageSize: 100})
	assert.NoError(t, l.Validate(createTestImage(100, 100)))
	assert.ErrorIs(t, l.Validate(createTestImage(99, 300)), types.ErrPhotoLoad)
}
