package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies
// it in tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository loads and mutates the catalog tables.
type Repository struct {
	db DB
}

// NewRepository creates a catalog repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// LoadHierarchy loads the type -> category -> subcategory tree for an
// organization. Categories without a type are grouped under a synthetic
// unattached node so they still reach the catalog.
func (r *Repository) LoadHierarchy(ctx context.Context, orgID uuid.UUID) (Hierarchy, error) {
	var h Hierarchy

	typeRows, err := r.db.Query(ctx,
		`SELECT id, name FROM movement_types WHERE organization_id = $1 ORDER BY name`, orgID)
	if err != nil {
		return h, fmt.Errorf("load movement types: %w", err)
	}
	defer typeRows.Close()

	typeIdx := make(map[uuid.UUID]int)
	for typeRows.Next() {
		var tn TypeNode
		if err := typeRows.Scan(&tn.ID, &tn.Name); err != nil {
			return h, fmt.Errorf("scan movement type: %w", err)
		}
		typeIdx[tn.ID] = len(h.Types)
		h.Types = append(h.Types, tn)
	}
	if err := typeRows.Err(); err != nil {
		return h, err
	}

	catRows, err := r.db.Query(ctx,
		`SELECT id, type_id, name FROM movement_categories WHERE organization_id = $1 ORDER BY name`, orgID)
	if err != nil {
		return h, fmt.Errorf("load movement categories: %w", err)
	}
	defer catRows.Close()

	var unattached TypeNode
	catTypePos := make(map[uuid.UUID]struct {
		typePos int // -1 = unattached
		catPos  int
	})
	for catRows.Next() {
		var (
			cn     CategoryNode
			typeID *uuid.UUID
		)
		if err := catRows.Scan(&cn.ID, &typeID, &cn.Name); err != nil {
			return h, fmt.Errorf("scan movement category: %w", err)
		}
		if typeID != nil {
			if pos, ok := typeIdx[*typeID]; ok {
				catTypePos[cn.ID] = struct {
					typePos int
					catPos  int
				}{pos, len(h.Types[pos].Categories)}
				h.Types[pos].Categories = append(h.Types[pos].Categories, cn)
				continue
			}
		}
		catTypePos[cn.ID] = struct {
			typePos int
			catPos  int
		}{-1, len(unattached.Categories)}
		unattached.Categories = append(unattached.Categories, cn)
	}
	if err := catRows.Err(); err != nil {
		return h, err
	}

	subRows, err := r.db.Query(ctx,
		`SELECT id, category_id, name FROM movement_subcategories WHERE organization_id = $1 ORDER BY name`, orgID)
	if err != nil {
		return h, fmt.Errorf("load movement subcategories: %w", err)
	}
	defer subRows.Close()

	for subRows.Next() {
		var (
			opt   Option
			catID uuid.UUID
		)
		if err := subRows.Scan(&opt.ID, &catID, &opt.Name); err != nil {
			return h, fmt.Errorf("scan movement subcategory: %w", err)
		}
		pos, ok := catTypePos[catID]
		if !ok {
			continue // orphaned subcategory, nothing to attach to
		}
		if pos.typePos >= 0 {
			cats := h.Types[pos.typePos].Categories
			cats[pos.catPos].Subcategories = append(cats[pos.catPos].Subcategories, opt)
		} else {
			unattached.Categories[pos.catPos].Subcategories =
				append(unattached.Categories[pos.catPos].Subcategories, opt)
		}
	}
	if err := subRows.Err(); err != nil {
		return h, err
	}

	if len(unattached.Categories) > 0 {
		h.Types = append(h.Types, unattached)
	}
	return h, nil
}

// LoadCurrencies returns the organization's currencies.
func (r *Repository) LoadCurrencies(ctx context.Context, orgID uuid.UUID) ([]Option, error) {
	return r.loadOptions(ctx,
		`SELECT id, name FROM currencies WHERE organization_id = $1 ORDER BY name`, orgID)
}

// LoadWallets returns the organization's wallets.
func (r *Repository) LoadWallets(ctx context.Context, orgID uuid.UUID) ([]Option, error) {
	return r.loadOptions(ctx,
		`SELECT id, name FROM wallets WHERE organization_id = $1 ORDER BY name`, orgID)
}

func (r *Repository) loadOptions(ctx context.Context, query string, orgID uuid.UUID) ([]Option, error) {
	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var opts []Option
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// CreateCategory inserts a new category and returns the created entry.
func (r *Repository) CreateCategory(ctx context.Context, orgID uuid.UUID, name string, typeID *uuid.UUID) (Option, error) {
	var opt Option
	err := r.db.QueryRow(ctx,
		`INSERT INTO movement_categories (organization_id, type_id, name)
		 VALUES ($1, $2, $3)
		 RETURNING id, name`,
		orgID, typeID, name,
	).Scan(&opt.ID, &opt.Name)
	if err != nil {
		return Option{}, fmt.Errorf("create category %q: %w", name, err)
	}
	return opt, nil
}

// CreateSubcategory inserts a new subcategory under the given parent
// category and returns the created entry.
func (r *Repository) CreateSubcategory(ctx context.Context, orgID uuid.UUID, name string, parentID uuid.UUID) (Option, error) {
	var opt Option
	err := r.db.QueryRow(ctx,
		`INSERT INTO movement_subcategories (organization_id, category_id, name)
		 VALUES ($1, $2, $3)
		 RETURNING id, name`,
		orgID, parentID, name,
	).Scan(&opt.ID, &opt.Name)
	if err != nil {
		return Option{}, fmt.Errorf("create subcategory %q: %w", name, err)
	}
	return opt, nil
}
