package normalizer

import (
	"sync"

	"github.com/google/uuid"

	"github.com/construlink/obra-tracker/internal/domain/import/record"
	"github.com/construlink/obra-tracker/pkg/normtext"
)

// Resolution is a manual decision for one (field, raw text) pair: either
// bind to a catalog entry or leave the field blank.
type Resolution struct {
	ID    uuid.UUID
	Unset bool
}

type overrideKey struct {
	field record.Field
	canon string
}

// Overrides holds manual resolutions keyed by field and canonicalized raw
// text. Safe for concurrent use; import sessions share one instance with
// their submit path.
type Overrides struct {
	mu      sync.RWMutex
	entries map[overrideKey]Resolution
}

// NewOverrides returns an empty override set.
func NewOverrides() *Overrides {
	return &Overrides{entries: make(map[overrideKey]Resolution)}
}

// Bind records that rawText resolves to the given catalog entry.
func (o *Overrides) Bind(f record.Field, rawText string, id uuid.UUID) {
	o.put(f, rawText, Resolution{ID: id})
}

// Unset records that rawText should leave the field blank.
func (o *Overrides) Unset(f record.Field, rawText string) {
	o.put(f, rawText, Resolution{Unset: true})
}

func (o *Overrides) put(f record.Field, rawText string, r Resolution) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries[overrideKey{field: f, canon: normtext.Canonicalize(rawText)}] = r
}

// Get looks up a resolution for the field and raw text.
func (o *Overrides) Get(f record.Field, rawText string) (Resolution, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	r, ok := o.entries[overrideKey{field: f, canon: normtext.Canonicalize(rawText)}]
	return r, ok
}

// Len returns the number of stored resolutions.
func (o *Overrides) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.entries)
}
