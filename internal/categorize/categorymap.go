package categorize

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/dvloznov/finance-health/internal/textnorm"
)

// SaveFunc persists the encoded map.
type SaveFunc func(ctx context.Context, data []byte) error

// CategoryMap caches merchant key to category decisions for one session.
type CategoryMap struct {
	mu      sync.RWMutex
	entries map[string]domain.Category
	save    SaveFunc
}

// NewCategoryMap decodes data, a JSON object of merchant to category.
// Missing or corrupt data yields an empty map. save may be nil.
func NewCategoryMap(data []byte, save SaveFunc) *CategoryMap {
	cm := &CategoryMap{entries: map[string]domain.Category{}, save: save}
	if len(data) == 0 {
		return cm
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return cm
	}
	for m, c := range raw {
		cm.set(m, c)
	}
	return cm
}

func (cm *CategoryMap) set(merchant, category string) {
	if merchant == "" {
		return
	}
	c, ok := domain.ParseCategory(category)
	if !ok {
		c = domain.CategoryOther
	}
	cm.entries[merchant] = c
}

// Get returns the cached category of merchant.
func (cm *CategoryMap) Get(merchant string) (domain.Category, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	c, ok := cm.entries[merchant]
	return c, ok
}

// Merge adds or replaces entries. Merchants are re-keyed with MerchantKey and
// invalid categories become other.
func (cm *CategoryMap) Merge(m map[string]domain.Category) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	for merchant, c := range m {
		cm.set(textnorm.MerchantKey(merchant), string(c))
	}
}

// Len is the number of cached merchants.
func (cm *CategoryMap) Len() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.entries)
}

// Entries returns a copy of the map.
func (cm *CategoryMap) Entries() map[string]domain.Category {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	out := make(map[string]domain.Category, len(cm.entries))
	for k, v := range cm.entries {
		out[k] = v
	}
	return out
}

// Marshal encodes the map as indented JSON.
func (cm *CategoryMap) Marshal() ([]byte, error) {
	return json.MarshalIndent(cm.Entries(), "", "  ")
}

// Save writes the map through its SaveFunc. It is a no-op without one.
func (cm *CategoryMap) Save(ctx context.Context) error {
	if cm.save == nil {
		return nil
	}
	data, err := cm.Marshal()
	if err != nil {
		return err
	}
	return cm.save(ctx, data)
}
