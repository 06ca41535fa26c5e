// Package catalog holds the reference catalog an import session matches
// against: movement types, categories, subcategories, currencies and
// wallets, indexed by canonicalized name.
package catalog

import (
	"sort"

	"github.com/google/uuid"

	"github.com/construlink/obra-tracker/internal/domain/import/record"
	"github.com/construlink/obra-tracker/pkg/normtext"
)

// Option is a selectable catalog entry.
type Option struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// CategoryNode is a category with its subcategories.
type CategoryNode struct {
	ID            uuid.UUID
	Name          string
	Subcategories []Option
}

// TypeNode is a movement type with its categories.
type TypeNode struct {
	ID         uuid.UUID
	Name       string
	Categories []CategoryNode
}

// Hierarchy is the two-level concept tree supplied by the catalog tables.
type Hierarchy struct {
	Types []TypeNode
}

// Catalog maps canonicalized text to identifiers, one index per identifier
// field. Built once per import session; mutated only when the operator
// creates a new entry.
type Catalog struct {
	entries map[record.Field]map[string]uuid.UUID
	options map[record.Field][]Option
	keys    map[record.Field][]string // sorted, for deterministic scans
}

// Build flattens the hierarchy and the flat lists into a catalog.
// Category and subcategory entries are indexed under every textual variant
// (see normtext.Variants) to widen the matching surface; types, currencies
// and wallets are indexed under their canonical name only.
func Build(h Hierarchy, currencies, wallets []Option) *Catalog {
	c := &Catalog{
		entries: make(map[record.Field]map[string]uuid.UUID),
		options: make(map[record.Field][]Option),
		keys:    make(map[record.Field][]string),
	}
	for _, f := range record.IdentifierFields() {
		c.entries[f] = make(map[string]uuid.UUID)
	}

	for _, tn := range h.Types {
		c.add(record.FieldType, Option{ID: tn.ID, Name: tn.Name}, false)
		for _, cn := range tn.Categories {
			c.add(record.FieldCategory, Option{ID: cn.ID, Name: cn.Name}, true)
			for _, sn := range cn.Subcategories {
				c.add(record.FieldSubcategory, sn, true)
			}
		}
	}
	for _, cur := range currencies {
		c.add(record.FieldCurrency, cur, false)
	}
	for _, w := range wallets {
		c.add(record.FieldWallet, w, false)
	}

	c.rebuildKeys()
	return c
}

func (c *Catalog) add(f record.Field, opt Option, withVariants bool) {
	var keys []string
	if withVariants {
		keys = normtext.Variants(opt.Name)
	} else if k := normtext.Canonicalize(opt.Name); k != "" {
		keys = []string{k}
	}
	if len(keys) == 0 {
		return
	}
	for _, k := range keys {
		if _, taken := c.entries[f][k]; !taken {
			c.entries[f][k] = opt.ID
		}
	}
	c.options[f] = append(c.options[f], opt)
}

func (c *Catalog) rebuildKeys() {
	for f, m := range c.entries {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		c.keys[f] = keys
	}
}

// Lookup returns the identifier indexed under the canonicalized key.
func (c *Catalog) Lookup(f record.Field, key string) (uuid.UUID, bool) {
	id, ok := c.entries[f][key]
	return id, ok
}

// Keys returns the field's index keys in sorted order.
func (c *Catalog) Keys(f record.Field) []string {
	return c.keys[f]
}

// Options returns the selectable entries for the field, in catalog order.
func (c *Catalog) Options(f record.Field) []Option {
	return c.options[f]
}

// HasID reports whether the field offers an entry with this identifier.
func (c *Catalog) HasID(f record.Field, id uuid.UUID) bool {
	for _, opt := range c.options[f] {
		if opt.ID == id {
			return true
		}
	}
	return false
}

// AddCategory registers an operator-created category into the live catalog.
func (c *Catalog) AddCategory(opt Option) {
	c.add(record.FieldCategory, opt, true)
	c.rebuildKeys()
}

// AddSubcategory registers an operator-created subcategory into the live
// catalog.
func (c *Catalog) AddSubcategory(opt Option) {
	c.add(record.FieldSubcategory, opt, true)
	c.rebuildKeys()
}
