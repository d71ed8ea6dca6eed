// Package frames keeps track of the decorative frame templates available to
// the kiosk. Templates live on disk as <dir>/<color|bw>/<frame id>.png.
package frames

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/menta2k/photostrip/internal/utils"
	"github.com/menta2k/photostrip/pkg/processing"
	"github.com/menta2k/photostrip/pkg/types"
)

// Frame is a registered template file and its fallback family
type Frame struct {
	Key    types.TemplateKey `json:"key"`
	Path   string            `json:"path"`
	Family types.Family      `json:"family"`
}

// Config holds configuration for the registry
type Config struct {
	// Dir is the templates root; unregistered keys resolve under it
	Dir string
	// Families maps frame ids to legacy families. Ids not listed are regular.
	Families map[string]types.Family
}

// Registry maps template keys to files and caches decoded templates
type Registry struct {
	config    Config
	processor *processing.Processor
	logger    *slog.Logger

	mu        sync.RWMutex
	frames    map[types.TemplateKey]Frame
	templates map[types.TemplateKey]*types.FrameTemplate
}

// NewRegistry creates an empty registry
func NewRegistry(config Config, processor *processing.Processor) *Registry {
	families := make(map[string]types.Family, len(config.Families))
	for id, fam := range config.Families {
		families[normalizeID(id)] = fam
	}
	config.Families = families

	if processor == nil {
		processor = processing.NewProcessor()
	}
	return &Registry{
		config:    config,
		processor: processor,
		logger:    slog.Default(),
		frames:    make(map[types.TemplateKey]Frame),
		templates: make(map[types.TemplateKey]*types.FrameTemplate),
	}
}

// SetLogger sets the logger
func (r *Registry) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Register adds or replaces a template file for key. The fallback family
// is decided here, once, from the configured family map.
func (r *Registry) Register(key types.TemplateKey, path string) (Frame, error) {
	if err := validateID(key.FrameID); err != nil {
		return Frame{}, err
	}
	f := Frame{Key: key, Path: path, Family: r.familyFor(key.FrameID)}

	r.mu.Lock()
	r.frames[key] = f
	delete(r.templates, key)
	r.mu.Unlock()
	return f, nil
}

// Discover registers every image under <dir>/color and <dir>/bw and
// returns how many frames were found
func (r *Registry) Discover(dir string) (int, error) {
	if dir == "" {
		dir = r.config.Dir
	}
	if !utils.DirExists(dir) {
		r.logger.Warn("frames directory not found, layouts will use the legacy table", "dir", dir)
		return 0, nil
	}
	count := 0
	for _, mode := range []types.FilterMode{types.Color, types.Monochrome} {
		files, err := utils.ListImageFiles(filepath.Join(dir, mode.Dir()))
		if err != nil {
			return count, fmt.Errorf("scanning %s frames: %w", mode, err)
		}
		for _, path := range files {
			id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			if _, err := r.Register(types.TemplateKey{Filter: mode, FrameID: id}, path); err != nil {
				r.logger.Warn("skipping frame", "path", path, "error", err)
				continue
			}
			count++
		}
	}
	r.logger.Debug("discovered frames", "dir", dir, "count", count)
	return count, nil
}

// Lookup returns the registered frame for key
func (r *Registry) Lookup(key types.TemplateKey) (Frame, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.frames[key]
	return f, ok
}

// List returns all registered frames ordered by filter then id
func (r *Registry) List() []Frame {
	r.mu.RLock()
	out := make([]Frame, 0, len(r.frames))
	for _, f := range r.frames {
		out = append(out, f)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.Filter != out[j].Key.Filter {
			return out[i].Key.Filter < out[j].Key.Filter
		}
		return out[i].Key.FrameID < out[j].Key.FrameID
	})
	return out
}

// Path returns the template file for key: the registered path, or the
// conventional location under the templates root
func (r *Registry) Path(key types.TemplateKey) string {
	if f, ok := r.Lookup(key); ok {
		return f.Path
	}
	if r.config.Dir == "" || validateID(key.FrameID) != nil {
		return ""
	}
	return filepath.Join(r.config.Dir, key.Filter.Dir(), key.FrameID+".png")
}

// Family returns the legacy family for key
func (r *Registry) Family(key types.TemplateKey) types.Family {
	if f, ok := r.Lookup(key); ok {
		return f.Family
	}
	return r.familyFor(key.FrameID)
}

// LoadTemplate decodes the template for key. Successful loads are cached;
// templates are immutable once decoded.
func (r *Registry) LoadTemplate(key types.TemplateKey) (*types.FrameTemplate, error) {
	r.mu.RLock()
	tpl, ok := r.templates[key]
	r.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	if err := validateID(key.FrameID); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", key, types.ErrTemplateLoad, err)
	}
	path := r.Path(key)
	if path != "" && !utils.FileExists(path) {
		return nil, fmt.Errorf("%s: %w: no template file at %s", key, types.ErrTemplateLoad, path)
	}
	tpl, err := r.processor.LoadTemplate(key, path)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.templates[key] = tpl
	r.mu.Unlock()
	return tpl, nil
}

func (r *Registry) familyFor(frameID string) types.Family {
	if fam, ok := r.config.Families[normalizeID(frameID)]; ok {
		return fam
	}
	return types.FamilyRegular
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("empty frame id")
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("invalid frame id: %q", id)
	}
	return nil
}
