package layout

import (
	"fmt"
	"log/slog"

	"github.com/menta2k/photostrip/pkg/types"
)

// TemplateSource resolves template keys to decoded templates and to the
// legacy family used when detection fails
type TemplateSource interface {
	LoadTemplate(key types.TemplateKey) (*types.FrameTemplate, error)
	Family(key types.TemplateKey) types.Family
}

// SlotDetector detects native-space slots in a template
type SlotDetector interface {
	Detect(tpl *types.FrameTemplate) (types.SlotSet, error)
}

// Layout is the resolved canonical geometry for one template
type Layout struct {
	Key    types.TemplateKey  `json:"key"`
	Source types.LayoutSource `json:"source"`
	Family types.Family       `json:"family"`
	Slots  types.SlotSet      `json:"slots"`
	// Reason is set when Source is fallback
	Reason string `json:"reason,omitempty"`
}

// Percentages returns the UI overlay rects for the layout
func (l Layout) Percentages() []types.PercentRect {
	out := make([]types.PercentRect, len(l.Slots.Rects))
	for i, r := range l.Slots.Rects {
		out[i] = ToPercentage(r, l.Slots.Width, l.Slots.Height)
	}
	return out
}

// Resolver produces canonical layouts: cached detection first, the legacy
// table when detection is unusable
type Resolver struct {
	canvas       Canvas
	source       TemplateSource
	detector     SlotDetector
	legacy       *LegacyTable
	cache        *SlotCache
	minAutoSlots int
	logger       *slog.Logger
}

// ResolverConfig holds configuration for the resolver
type ResolverConfig struct {
	Canvas Canvas
	// MinAutoSlots: detections with fewer slots fall back to the legacy table
	MinAutoSlots int
}

// NewResolver creates a resolver. A nil legacy table uses DefaultLegacyTable.
func NewResolver(config ResolverConfig, source TemplateSource, detector SlotDetector, legacy *LegacyTable) *Resolver {
	if legacy == nil {
		legacy = DefaultLegacyTable()
	}
	return &Resolver{
		canvas:       config.Canvas,
		source:       source,
		detector:     detector,
		legacy:       legacy,
		cache:        NewSlotCache(),
		minAutoSlots: config.MinAutoSlots,
		logger:       slog.Default(),
	}
}

// SetLogger sets the logger used for fallback notices
func (r *Resolver) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Canvas returns the canonical canvas every layout is expressed in
func (r *Resolver) Canvas() Canvas {
	return r.canvas
}

// Cache exposes the slot cache for status reporting
func (r *Resolver) Cache() *SlotCache {
	return r.cache
}

// Detect returns the native-space slots for key, detecting at most once
func (r *Resolver) Detect(key types.TemplateKey) (types.SlotSet, error) {
	return r.cache.GetOrDetect(key, func() (types.SlotSet, error) {
		tpl, err := r.source.LoadTemplate(key)
		if err != nil {
			return types.SlotSet{}, err
		}
		return r.detector.Detect(tpl)
	})
}

// Resolve returns the canonical layout for key. Detection failures never
// surface as errors; they select the legacy table and mark the layout as
// a fallback. An error means the legacy table itself cannot serve the key.
func (r *Resolver) Resolve(key types.TemplateKey) (Layout, error) {
	family := r.source.Family(key)

	native, err := r.Detect(key)
	switch {
	case err != nil && !types.IsRecoverable(err):
		return Layout{}, fmt.Errorf("detecting slots for %s: %w", key, err)
	case err == nil && native.Len() >= r.minAutoSlots:
		slots, err := r.canvas.CanonicalSet(native)
		if err != nil {
			return Layout{}, fmt.Errorf("transforming slots for %s: %w", key, err)
		}
		return Layout{Key: key, Source: types.SourceAuto, Family: family, Slots: slots}, nil
	}

	reason := "too few slots detected"
	if err != nil {
		reason = err.Error()
	}
	return r.fallback(key, family, reason)
}

func (r *Resolver) fallback(key types.TemplateKey, family types.Family, reason string) (Layout, error) {
	slots, err := r.legacy.Lookup(family, r.canvas)
	if err != nil {
		return Layout{}, fmt.Errorf("legacy layout for %s: %w", key, err)
	}
	r.logger.Info("using legacy slot layout", "template", key.String(), "family", family, "reason", reason)
	return Layout{Key: key, Source: types.SourceFallback, Family: family, Slots: slots, Reason: reason}, nil
}
