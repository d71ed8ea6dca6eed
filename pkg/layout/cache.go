package layout

import (
	"errors"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/menta2k/photostrip/pkg/types"
)

// SlotCache memoizes native-space detection results per template key for
// the lifetime of the process. Concurrent first requests for a key share
// a single detection run.
type SlotCache struct {
	mu      sync.RWMutex
	entries map[types.TemplateKey]cacheEntry
	group   singleflight.Group
}

type cacheEntry struct {
	set types.SlotSet
	err error
}

// NewSlotCache creates an empty cache
func NewSlotCache() *SlotCache {
	return &SlotCache{entries: make(map[types.TemplateKey]cacheEntry)}
}

// GetOrDetect returns the cached result for key, running detect at most
// once per key. Template load failures are not cached so a template that
// appears on disk later is picked up; a template without alpha or without
// slots is a property of the file and stays cached.
func (c *SlotCache) GetOrDetect(key types.TemplateKey, detect func() (types.SlotSet, error)) (types.SlotSet, error) {
	if e, ok := c.lookup(key); ok {
		return e.clone(), e.err
	}

	v, _, _ := c.group.Do(key.String(), func() (interface{}, error) {
		if e, ok := c.lookup(key); ok {
			return e, nil
		}
		set, err := detect()
		e := cacheEntry{set: set, err: err}
		if err == nil || !errors.Is(err, types.ErrTemplateLoad) {
			c.mu.Lock()
			c.entries[key] = e
			c.mu.Unlock()
		}
		return e, nil
	})

	e := v.(cacheEntry)
	return e.clone(), e.err
}

func (c *SlotCache) lookup(key types.TemplateKey) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

// Len returns the number of cached templates
func (c *SlotCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns the cached template keys in a stable order
func (c *SlotCache) Keys() []types.TemplateKey {
	c.mu.RLock()
	keys := make([]types.TemplateKey, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// clone copies the rect slice so callers cannot mutate the cached set
func (e cacheEntry) clone() types.SlotSet {
	set := e.set
	if set.Rects != nil {
		set.Rects = append([]types.SlotRect(nil), set.Rects...)
	}
	return set
}
