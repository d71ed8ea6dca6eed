package processing

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/photostrip/pkg/types"
)

// Processor handles image I/O for templates, photos and rendered output
type Processor struct{}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{}
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	// Try imaging.Open (registered decoders)
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown format for %s", path)
}

// LoadTemplate reads a frame template, keeping its alpha channel intact
// and recording whether the file carries one at all
func (p *Processor) LoadTemplate(key types.TemplateKey, path string) (*types.FrameTemplate, error) {
	if path == "" {
		return nil, fmt.Errorf("%s: %w: no template file registered", key, types.ErrTemplateLoad)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", key, types.ErrTemplateLoad, err)
	}
	return p.DecodeTemplate(key, path, data)
}

// DecodeTemplate decodes template bytes already in memory
func (p *Processor) DecodeTemplate(key types.TemplateKey, path string, data []byte) (*types.FrameTemplate, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", key, types.ErrTemplateLoad, err)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", key, types.ErrTemplateLoad, err)
	}

	return &types.FrameTemplate{
		Key:      key,
		Path:     path,
		Image:    imaging.Clone(img),
		HasAlpha: HasAlphaChannel(cfg.ColorModel),
	}, nil
}

// HasAlphaChannel reports whether a decoder's color model stores alpha.
// An RGB PNG decodes to an opaque RGBA image, so the model from
// DecodeConfig is the only reliable signal.
func HasAlphaChannel(model color.Model) bool {
	// palettes are slices and must be handled before any == comparison
	if palette, ok := model.(color.Palette); ok {
		for _, c := range palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return true
			}
		}
		return false
	}

	switch model {
	case color.NRGBAModel, color.NRGBA64Model, color.AlphaModel, color.Alpha16Model:
		return true
	case color.RGBAModel, color.RGBA64Model, color.GrayModel, color.Gray16Model,
		color.YCbCrModel, color.CMYKModel:
		return false
	}
	// x/image/webp reports NYCbCrA for images with an alpha chunk
	return model == color.NYCbCrAModel
}

// FormatFromPath maps a file extension to an output format name
func FormatFromPath(path string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "png":
		return "png"
	case "webp":
		return "webp"
	default:
		return "jpg"
	}
}

// EncodeImage writes img to w in the given format
func (p *Processor) EncodeImage(w io.Writer, img image.Image, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(w, img, opts)
	case "png":
		enc := png.Encoder{CompressionLevel: png.DefaultCompression}
		return enc.Encode(w, img)
	case "jpg", "jpeg", "":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// SaveImage encodes img to path. The file is written to a temporary name
// and renamed into place, so a failed encode never leaves partial output.
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", types.ErrEncoding, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrEncoding, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if err := p.EncodeImage(tmp, img, format, quality, lossless); err != nil {
		cleanup()
		return fmt.Errorf("%w: encoding %s: %v", types.ErrEncoding, path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", types.ErrEncoding, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", types.ErrEncoding, err)
	}
	return nil
}

// CreateSlotOverlay draws each native slot in blue and its padded outline
// in green on a copy of the template, for eyeballing detection results.
// pad is in canonical pixels for a canvasW x canvasH canvas and is scaled
// back to the template's native resolution per axis.
func (p *Processor) CreateSlotOverlay(img image.Image, slots types.SlotSet, canvasW, canvasH, pad int) image.Image {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	blue := color.NRGBA{0, 0, 255, 255}
	green := color.NRGBA{0, 200, 0, 255}
	stroke := int(math.Max(2, 0.004*float64(minInt(w, h))))

	padX := nativePad(pad, slots.Width, canvasW)
	padY := nativePad(pad, slots.Height, canvasH)

	for _, s := range slots.Rects {
		r := s.Rectangle()
		drawBox(nrgba, r, blue, stroke+2)
		padded := image.Rect(r.Min.X-padX, r.Min.Y-padY, r.Max.X+padX, r.Max.Y+padY)
		drawBox(nrgba, padded, green, stroke)
	}
	return nrgba
}

// nativePad converts a canonical padding to native pixels along one axis
func nativePad(pad, native, canonical int) int {
	if canonical <= 0 || native <= 0 {
		return pad
	}
	return int(math.Round(float64(pad) * float64(native) / float64(canonical)))
}

// Helper functions
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func drawBox(img *image.NRGBA, r image.Rectangle, c color.NRGBA, stroke int) {
	for s := 0; s < stroke; s++ {
		drawHLine(img, r.Min.Y+s, r.Min.X, r.Max.X, c)
		drawHLine(img, r.Max.Y-1-s, r.Min.X, r.Max.X, c)
		drawVLine(img, r.Min.X+s, r.Min.Y, r.Max.Y, c)
		drawVLine(img, r.Max.X-1-s, r.Min.Y, r.Max.Y, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
