// Package resolver turns unresolved raw values into operator decisions.
// It collects the distinct values a normalizer could not place, and applies
// the operator's answers: bind to an existing entry, leave the field blank,
// or create a new category or subcategory on the spot.
package resolver

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/construlink/obra-tracker/internal/domain/catalog"
	"github.com/construlink/obra-tracker/internal/domain/import/mapper"
	"github.com/construlink/obra-tracker/internal/domain/import/normalizer"
	"github.com/construlink/obra-tracker/internal/domain/import/parser"
	"github.com/construlink/obra-tracker/internal/domain/import/record"
	"github.com/construlink/obra-tracker/pkg/normtext"
)

// UnresolvedValue is one distinct raw value the catalog could not absorb.
// RawText keeps the first spelling seen in the file; Rows counts how many
// rows carry it.
type UnresolvedValue struct {
	RawText string `json:"raw_text"`
	Rows    int    `json:"rows"`
}

// Incompatibility groups a field's unresolved values.
type Incompatibility struct {
	Field  record.Field      `json:"field"`
	Values []UnresolvedValue `json:"values"`
}

// Collect scans every mapped identifier column and returns the distinct
// values the normalizer leaves unresolved, grouped per field. Values are
// deduplicated on canonical form and ordered by row count descending, then
// alphabetically, so the operator sees the highest-impact conflicts first.
func Collect(file *parser.ParsedFile, m mapper.ColumnMapping, n *normalizer.Normalizer) []Incompatibility {
	type bucket struct {
		rawText string
		rows    int
	}
	perField := make(map[record.Field]map[string]*bucket)

	for _, ic := range mapper.IdentifierColumns(m) {
		for row := range file.Rows {
			raw := file.Cell(row, ic.Column)
			res := n.Resolve(ic.Field, raw)
			if res.Outcome != normalizer.OutcomeUnresolved {
				continue
			}
			canon := normtext.Canonicalize(raw)
			if perField[ic.Field] == nil {
				perField[ic.Field] = make(map[string]*bucket)
			}
			b := perField[ic.Field][canon]
			if b == nil {
				b = &bucket{rawText: raw}
				perField[ic.Field][canon] = b
			}
			b.rows++
		}
	}

	var out []Incompatibility
	for _, f := range record.IdentifierFields() {
		buckets := perField[f]
		if len(buckets) == 0 {
			continue
		}
		inc := Incompatibility{Field: f}
		for _, b := range buckets {
			inc.Values = append(inc.Values, UnresolvedValue{RawText: b.rawText, Rows: b.rows})
		}
		sort.Slice(inc.Values, func(i, j int) bool {
			if inc.Values[i].Rows != inc.Values[j].Rows {
				return inc.Values[i].Rows > inc.Values[j].Rows
			}
			return inc.Values[i].RawText < inc.Values[j].RawText
		})
		out = append(out, inc)
	}
	return out
}

// Action names what the operator chose for one unresolved value.
type Action string

const (
	ActionBind              Action = "bind"
	ActionUnset             Action = "unset"
	ActionCreateCategory    Action = "create_category"
	ActionCreateSubcategory Action = "create_subcategory"
)

// Request is one operator decision.
type Request struct {
	Field   record.Field `json:"field"`
	RawText string       `json:"raw_text"`
	Action  Action       `json:"action"`

	// TargetID selects the existing entry for ActionBind.
	TargetID *uuid.UUID `json:"target_id,omitempty"`
	// Name and TypeID feed ActionCreateCategory; Name and ParentID feed
	// ActionCreateSubcategory.
	Name     string     `json:"name,omitempty"`
	TypeID   *uuid.UUID `json:"type_id,omitempty"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
}

// CatalogStore is the persistence surface for operator-created entries.
// *catalog.Repository satisfies it.
type CatalogStore interface {
	CreateCategory(ctx context.Context, orgID uuid.UUID, name string, typeID *uuid.UUID) (catalog.Option, error)
	CreateSubcategory(ctx context.Context, orgID uuid.UUID, name string, parentID uuid.UUID) (catalog.Option, error)
}

// OverrideSaver persists resolutions beyond the current session.
// *normalizer.OverrideStore satisfies it.
type OverrideSaver interface {
	Save(ctx context.Context, orgID uuid.UUID, f record.Field, rawText string, r normalizer.Resolution) error
}

// Resolver applies operator decisions against the session's catalog and
// override set.
type Resolver struct {
	store     CatalogStore
	saver     OverrideSaver
	catalog   *catalog.Catalog
	overrides *normalizer.Overrides
}

// New wires a resolver. saver may be nil when persistence is handled
// elsewhere (tests, dry runs).
func New(store CatalogStore, saver OverrideSaver, c *catalog.Catalog, overrides *normalizer.Overrides) *Resolver {
	return &Resolver{store: store, saver: saver, catalog: c, overrides: overrides}
}

// Apply executes one decision. Creating an entry also binds the raw text to
// it, so the value resolves on the next pass without a second round trip.
// The caller must rebuild its normalizer afterwards when CatalogChanged is
// set.
func (r *Resolver) Apply(ctx context.Context, orgID uuid.UUID, req Request) (CatalogChange, error) {
	switch req.Action {
	case ActionBind:
		if req.TargetID == nil {
			return CatalogChange{}, fmt.Errorf("bind %s %q: missing target", req.Field, req.RawText)
		}
		if !r.catalog.HasID(req.Field, *req.TargetID) {
			return CatalogChange{}, fmt.Errorf("bind %s %q: no entry with id %s", req.Field, req.RawText, req.TargetID)
		}
		r.overrides.Bind(req.Field, req.RawText, *req.TargetID)
		return CatalogChange{}, r.persist(ctx, orgID, req.Field, req.RawText, normalizer.Resolution{ID: *req.TargetID})

	case ActionUnset:
		r.overrides.Unset(req.Field, req.RawText)
		return CatalogChange{}, r.persist(ctx, orgID, req.Field, req.RawText, normalizer.Resolution{Unset: true})

	case ActionCreateCategory:
		if req.Field != record.FieldCategory {
			return CatalogChange{}, fmt.Errorf("create_category on field %s", req.Field)
		}
		opt, err := r.store.CreateCategory(ctx, orgID, r.entryName(req), req.TypeID)
		if err != nil {
			return CatalogChange{}, err
		}
		r.catalog.AddCategory(opt)
		r.overrides.Bind(req.Field, req.RawText, opt.ID)
		return CatalogChange{CatalogChanged: true, Created: &opt},
			r.persist(ctx, orgID, req.Field, req.RawText, normalizer.Resolution{ID: opt.ID})

	case ActionCreateSubcategory:
		if req.Field != record.FieldSubcategory {
			return CatalogChange{}, fmt.Errorf("create_subcategory on field %s", req.Field)
		}
		if req.ParentID == nil {
			return CatalogChange{}, fmt.Errorf("create_subcategory %q: missing parent category", req.RawText)
		}
		opt, err := r.store.CreateSubcategory(ctx, orgID, r.entryName(req), *req.ParentID)
		if err != nil {
			return CatalogChange{}, err
		}
		r.catalog.AddSubcategory(opt)
		r.overrides.Bind(req.Field, req.RawText, opt.ID)
		return CatalogChange{CatalogChanged: true, Created: &opt},
			r.persist(ctx, orgID, req.Field, req.RawText, normalizer.Resolution{ID: opt.ID})

	default:
		return CatalogChange{}, fmt.Errorf("unknown resolution action %q", req.Action)
	}
}

// CatalogChange reports side effects of an applied decision.
type CatalogChange struct {
	CatalogChanged bool
	Created        *catalog.Option
}

// entryName defaults the new entry's name to the raw text when the operator
// did not rename it.
func (r *Resolver) entryName(req Request) string {
	if req.Name != "" {
		return req.Name
	}
	return req.RawText
}

func (r *Resolver) persist(ctx context.Context, orgID uuid.UUID, f record.Field, rawText string, res normalizer.Resolution) error {
	if r.saver == nil {
		return nil
	}
	return r.saver.Save(ctx, orgID, f, rawText, res)
}
