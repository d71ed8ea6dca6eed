// Package photostrip composes photo-booth strips from captured photos and
// decorative frame templates.
//
// A frame template is a PNG whose photo windows are transparent. The engine
// finds those windows, maps them onto a fixed canonical print canvas, fits
// each photo into its window without distortion, lays the frame artwork on
// top and finally duplicates the strip onto a 4x6 print page.
//
// Basic usage:
//
//	engine, err := photostrip.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	key := types.TemplateKey{Filter: types.Color, FrameID: "Pop Art"}
//	res, err := engine.ComposeFiles(ctx, photostrip.FileRequest{
//		Photos: []string{"capture_1.jpg", "capture_2.jpg", "capture_3.jpg"},
//		Key:    key,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(res.StripPath, res.PrintPath)
//
// The package consists of these components:
//
//  1. Vision (pkg/vision): slot detection from the template's alpha channel
//  2. Layout (pkg/layout): canonical geometry, UI percentages, legacy fallback and the slot cache
//  3. Cropper (pkg/cropper): aspect-preserving resize and center crop
//  4. Compositor (pkg/compositor): single strip and print page rendering
//
// The same resolved layout feeds both the preview percentages and the
// compositor, so the camera overlay always matches the printed strip.
package photostrip

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/menta2k/photostrip/internal/utils"
	"github.com/menta2k/photostrip/pkg/compositor"
	"github.com/menta2k/photostrip/pkg/frames"
	"github.com/menta2k/photostrip/pkg/layout"
	"github.com/menta2k/photostrip/pkg/photos"
	"github.com/menta2k/photostrip/pkg/processing"
	"github.com/menta2k/photostrip/pkg/types"
	"github.com/menta2k/photostrip/pkg/vision"
)

// Version of the photostrip engine
const Version = "1.0.0"

// Options configures an Engine
type Options struct {
	Canvas       layout.Canvas
	PrintWidth   int
	PrintHeight  int
	Detection    vision.DetectionConfig
	MinAutoSlots int
	Filter       imaging.ResampleFilter

	FramesDir string
	Families  map[string]types.Family
	// Legacy overrides the built-in legacy coordinate table when set
	Legacy *layout.LegacyTable

	// Workers bounds concurrent compositions
	Workers int
	Output  OutputOptions

	// Extractor overrides the contour extractor when set
	Extractor vision.ContourExtractor
	Logger    *slog.Logger
}

// OutputOptions controls how rendered files are written
type OutputOptions struct {
	Dir      string
	Format   string
	Quality  int
	Lossless bool
}

// DefaultOptions returns the kiosk defaults
func DefaultOptions() Options {
	cc := compositor.DefaultConfig()
	return Options{
		Canvas:       cc.Canvas,
		PrintWidth:   cc.PrintWidth,
		PrintHeight:  cc.PrintHeight,
		Detection:    vision.DefaultConfig(),
		MinAutoSlots: 1,
		Filter:       imaging.Lanczos,
		FramesDir:    "./frames",
		Families: map[string]types.Family{
			"Vintage Insomania": types.FamilyVintage,
			"bw_vintage":        types.FamilyVintage,
		},
		Workers: runtime.NumCPU(),
		Output: OutputOptions{
			Dir:     "./output",
			Format:  "jpg",
			Quality: 95,
		},
	}
}

// Engine is the high-level interface to layout resolution and composition
type Engine struct {
	opts       Options
	processor  *processing.Processor
	photos     *photos.Loader
	registry   *frames.Registry
	detector   *vision.SlotDetector
	resolver   *layout.Resolver
	compositor *compositor.Compositor
	pool       *semaphore.Weighted
	logger     *slog.Logger

	active    atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// Result is the outcome of one composition
type Result struct {
	Image  *image.NRGBA
	Layout layout.Layout
	Err    error
}

// FileRequest composes photos on disk into strip and print page files.
// Empty output paths are generated under Options.Output.Dir.
type FileRequest struct {
	Photos    []string
	Key       types.TemplateKey
	StripPath string
	PrintPath string
}

// FileResult names the files written for a FileRequest
type FileResult struct {
	ID        string        `json:"id"`
	StripPath string        `json:"path"`
	PrintPath string        `json:"print_path"`
	Layout    layout.Layout `json:"layout"`
}

// Status is a snapshot of engine activity
type Status struct {
	Version         string   `json:"version"`
	Workers         int      `json:"workers"`
	Active          int64    `json:"active"`
	Completed       int64    `json:"completed"`
	Failed          int64    `json:"failed"`
	Frames          int      `json:"frames"`
	CachedTemplates []string `json:"cached_templates"`
}

// New creates a new Engine with default options
func New() (*Engine, error) {
	return NewWithConfig(DefaultOptions())
}

// NewWithConfig creates a new Engine with custom options
func NewWithConfig(opts Options) (*Engine, error) {
	if err := opts.Canvas.Validate(); err != nil {
		return nil, fmt.Errorf("invalid canvas: %w", err)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Filter.Kernel == nil {
		opts.Filter = imaging.Lanczos
	}
	if opts.Output.Format == "" {
		opts.Output.Format = "jpg"
	}
	if opts.Output.Quality == 0 {
		opts.Output.Quality = 95
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	legacy := opts.Legacy
	if legacy == nil {
		legacy = layout.DefaultLegacyTable()
	}
	if err := legacy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid legacy table: %w", err)
	}
	if err := checkFamilies(legacy, opts); err != nil {
		return nil, err
	}

	processor := processing.NewProcessor()

	registry := frames.NewRegistry(frames.Config{Dir: opts.FramesDir, Families: opts.Families}, processor)
	registry.SetLogger(logger)

	detector := vision.NewWithConfig(opts.Detection)
	if opts.Extractor != nil {
		detector.SetExtractor(opts.Extractor)
	}
	detector.SetLogger(logger)

	resolver := layout.NewResolver(layout.ResolverConfig{
		Canvas:       opts.Canvas,
		MinAutoSlots: opts.MinAutoSlots,
	}, registry, detector, legacy)
	resolver.SetLogger(logger)

	comp := compositor.NewWithConfig(compositor.Config{
		Canvas:      opts.Canvas,
		PrintWidth:  opts.PrintWidth,
		PrintHeight: opts.PrintHeight,
		Filter:      opts.Filter,
	})
	comp.SetLogger(logger)

	return &Engine{
		opts:       opts,
		processor:  processor,
		photos:     photos.New(),
		registry:   registry,
		detector:   detector,
		resolver:   resolver,
		compositor: comp,
		pool:       semaphore.NewWeighted(int64(opts.Workers)),
		logger:     logger,
	}, nil
}

// checkFamilies verifies the legacy table matches the canvas and has slots
// for the regular family and every mapped one
func checkFamilies(legacy *layout.LegacyTable, opts Options) error {
	if legacy.CanvasWidth != opts.Canvas.Width || legacy.CanvasHeight != opts.Canvas.Height {
		return fmt.Errorf("legacy table is for a %dx%d canvas, engine uses %dx%d",
			legacy.CanvasWidth, legacy.CanvasHeight, opts.Canvas.Width, opts.Canvas.Height)
	}
	if !legacy.Has(types.FamilyRegular) {
		return fmt.Errorf("legacy table: %w: %q is required", types.ErrUnknownFamily, types.FamilyRegular)
	}
	for id, fam := range opts.Families {
		if !legacy.Has(fam) {
			return fmt.Errorf("frame %q: %w: %q", id, types.ErrUnknownFamily, fam)
		}
	}
	return nil
}

// Registry returns the frame registry
func (e *Engine) Registry() *frames.Registry {
	return e.registry
}

// Options returns the options the engine was built with
func (e *Engine) Options() Options {
	return e.opts
}

// Discover registers every template under the frames directory
func (e *Engine) Discover() (int, error) {
	return e.registry.Discover(e.opts.FramesDir)
}

// Warm detects slots for every registered frame so first requests hit the cache
func (e *Engine) Warm(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)

	for _, f := range e.registry.List() {
		key := f.Key
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := e.resolver.Resolve(key); err != nil {
				e.logger.Warn("warming layout failed", "template", key.String(), "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Layout resolves the canonical slot layout for key. Use Percentages on
// the result for the UI preview.
func (e *Engine) Layout(key types.TemplateKey) (layout.Layout, error) {
	return e.resolver.Resolve(key)
}

// DetectSlots returns the native-space slots detected in the template,
// without falling back
func (e *Engine) DetectSlots(key types.TemplateKey) (types.SlotSet, error) {
	return e.resolver.Detect(key)
}

// WriteSlotOverlay saves the template with its detected slots outlined
func (e *Engine) WriteSlotOverlay(key types.TemplateKey, path string) error {
	tpl, err := e.registry.LoadTemplate(key)
	if err != nil {
		return err
	}
	slots, err := e.resolver.Detect(key)
	if err != nil {
		return err
	}
	cv := e.opts.Canvas
	overlay := e.processor.CreateSlotOverlay(tpl.Image, slots, cv.Width, cv.Height, cv.Padding)
	return e.processor.SaveImage(overlay, path, processing.FormatFromPath(path), e.opts.Output.Quality, false)
}

// Compose renders a strip from decoded photos. It waits for a free worker;
// ctx only bounds that wait.
func (e *Engine) Compose(ctx context.Context, imgs []image.Image, key types.TemplateKey) (Result, error) {
	var res Result
	err := e.withWorker(ctx, func() error {
		var err error
		res, err = e.compose(imgs, key)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// withWorker runs fn on a pool slot and counts its outcome
func (e *Engine) withWorker(ctx context.Context, fn func() error) error {
	if err := e.pool.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.pool.Release(1)

	e.active.Add(1)
	defer e.active.Add(-1)

	if err := fn(); err != nil {
		e.failed.Add(1)
		return err
	}
	e.completed.Add(1)
	return nil
}

// ComposeAsync runs Compose on the worker pool and delivers its single
// result on the returned channel
func (e *Engine) ComposeAsync(ctx context.Context, imgs []image.Image, key types.TemplateKey) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		res, err := e.Compose(ctx, imgs, key)
		if err != nil {
			res.Err = err
		}
		out <- res
	}()
	return out
}

func (e *Engine) compose(imgs []image.Image, key types.TemplateKey) (Result, error) {
	l, err := e.resolver.Resolve(key)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", types.ErrComposition, err)
	}

	frame, err := e.registry.LoadTemplate(key)
	if err != nil {
		e.logger.Warn("frame template unavailable", "template", key.String(), "error", err)
	}

	img, err := e.compositor.Compose(compositor.Request{
		Photos: imgs,
		Mode:   key.Filter,
		Layout: l,
		Frame:  frame,
	})
	if err != nil {
		return Result{}, err
	}
	e.logger.Debug("composed strip", "template", key.String(), "source", l.Source,
		"photos", len(imgs), "slots", l.Slots.Len())
	return Result{Image: img, Layout: l}, nil
}

// ComposeFiles decodes the photos, composes the strip and writes both the
// strip and its print page. Either both files are written or neither is.
// The whole job, decoding and encoding included, runs on one pool slot.
func (e *Engine) ComposeFiles(ctx context.Context, req FileRequest) (FileResult, error) {
	var out FileResult
	err := e.withWorker(ctx, func() error {
		var err error
		out, err = e.composeFiles(ctx, req)
		return err
	})
	if err != nil {
		return FileResult{}, err
	}
	e.logger.Info("strip written", "template", req.Key.String(), "source", out.Layout.Source,
		"path", out.StripPath, "print_path", out.PrintPath)
	return out, nil
}

func (e *Engine) composeFiles(ctx context.Context, req FileRequest) (FileResult, error) {
	imgs, err := e.loadPhotos(ctx, req.Photos)
	if err != nil {
		return FileResult{}, fmt.Errorf("%w: %w", types.ErrComposition, err)
	}

	res, err := e.compose(imgs, req.Key)
	if err != nil {
		return FileResult{}, err
	}

	page, err := e.compositor.BuildPrintPage(res.Image)
	if err != nil {
		return FileResult{}, err
	}

	id := uuid.NewString()
	out := FileResult{ID: id, StripPath: req.StripPath, PrintPath: req.PrintPath, Layout: res.Layout}
	if out.StripPath == "" {
		out.StripPath = utils.GenerateOutputFilename(id, e.opts.Output.Dir, "strip_", "", e.opts.Output.Format)
	}
	if out.PrintPath == "" {
		out.PrintPath = utils.GenerateOutputFilename(id, e.opts.Output.Dir, "print_", "", e.opts.Output.Format)
	}

	if err := e.save(res.Image, out.StripPath); err != nil {
		return FileResult{}, err
	}
	if err := e.save(page, out.PrintPath); err != nil {
		os.Remove(out.StripPath)
		return FileResult{}, err
	}
	return out, nil
}

// loadPhotos decodes every photo; the first failure cancels the rest
func (e *Engine) loadPhotos(ctx context.Context, paths []string) ([]image.Image, error) {
	imgs := make([]image.Image, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)

	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := e.photos.Load(p)
			if err != nil {
				return fmt.Errorf("photo %d: %w", i+1, err)
			}
			info := photos.Info(img)
			e.logger.Debug("photo decoded", "index", i+1, "width", info.Width, "height", info.Height)
			imgs[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return imgs, nil
}

// BuildPrintPage duplicates strip onto the print page
func (e *Engine) BuildPrintPage(strip image.Image) (*image.NRGBA, error) {
	return e.compositor.BuildPrintPage(strip)
}

// BuildPrintPageFile reads an existing strip and writes its print page.
// An empty outPath is derived from the strip path.
func (e *Engine) BuildPrintPageFile(ctx context.Context, stripPath, outPath string) (string, error) {
	if err := e.pool.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer e.pool.Release(1)

	strip, err := e.processor.LoadImage(stripPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrPhotoLoad, err)
	}
	page, err := e.compositor.BuildPrintPage(strip)
	if err != nil {
		return "", err
	}
	if outPath == "" {
		base := strings.TrimSuffix(filepath.Base(stripPath), filepath.Ext(stripPath))
		outPath = utils.GenerateOutputFilename(base, filepath.Dir(stripPath), "", "_print", e.opts.Output.Format)
	}
	if err := e.save(page, outPath); err != nil {
		return "", err
	}
	return outPath, nil
}

// Status reports pool usage and cached templates
func (e *Engine) Status() Status {
	keys := e.resolver.Cache().Keys()
	cached := make([]string, len(keys))
	for i, k := range keys {
		cached[i] = k.String()
	}
	return Status{
		Version:         Version,
		Workers:         e.opts.Workers,
		Active:          e.active.Load(),
		Completed:       e.completed.Load(),
		Failed:          e.failed.Load(),
		Frames:          len(e.registry.List()),
		CachedTemplates: cached,
	}
}

func (e *Engine) save(img image.Image, path string) error {
	format := processing.FormatFromPath(path)
	return e.processor.SaveImage(img, path, format, e.opts.Output.Quality, e.opts.Output.Lossless)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
