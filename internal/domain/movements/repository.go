// Package movements persists and serves the movement ledger produced by
// imports.
package movements

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/construlink/obra-tracker/internal/domain/import/record"
)

// Movement is one row of the ledger, with catalog names joined in for
// display and export.
type Movement struct {
	ID              uuid.UUID        `json:"id"`
	MovementDate    *time.Time       `json:"movement_date,omitempty"`
	Description     *string          `json:"description,omitempty"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	ExchangeRate    *decimal.Decimal `json:"exchange_rate,omitempty"`
	TypeName        *string          `json:"type,omitempty"`
	CategoryName    *string          `json:"category,omitempty"`
	SubcategoryName *string          `json:"subcategory,omitempty"`
	CurrencyName    *string          `json:"currency,omitempty"`
	WalletName      *string          `json:"wallet,omitempty"`
	ImportBatchID   *uuid.UUID       `json:"import_batch_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// ListFilter narrows a movement listing.
type ListFilter struct {
	ProjectID *uuid.UUID
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// DB is the pgx surface the repository needs. *pgxpool.Pool satisfies it.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository reads and writes the movements table.
type Repository struct {
	db DB
}

// NewRepository creates a movement repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// InsertBatch writes every record in one transaction. Either the whole
// batch lands or none of it does; the database error comes back unchanged
// so the operator sees exactly what the server saw.
func (r *Repository) InsertBatch(ctx context.Context, orgID uuid.UUID, projectID *uuid.UUID, batchID uuid.UUID, records []record.ImportRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO movements (
			organization_id, project_id, movement_date, description, amount,
			exchange_rate, type_id, category_id, subcategory_id, currency_id,
			wallet_id, import_batch_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	for _, rec := range records {
		_, err := tx.Exec(ctx, query,
			orgID,
			projectID,
			rec.Date,
			rec.Description,
			rec.Amount,
			rec.ExchangeRate,
			rec.TypeID,
			rec.CategoryID,
			rec.SubcategoryID,
			rec.CurrencyID,
			rec.WalletID,
			batchID,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// List returns movements for the organization, newest first.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID, f ListFilter) ([]Movement, error) {
	query := `
		SELECT m.id, m.movement_date, m.description, m.amount, m.exchange_rate,
			mt.name, mc.name, ms.name, cu.name, w.name,
			m.import_batch_id, m.created_at
		FROM movements m
		LEFT JOIN movement_types mt ON mt.id = m.type_id
		LEFT JOIN movement_categories mc ON mc.id = m.category_id
		LEFT JOIN movement_subcategories ms ON ms.id = m.subcategory_id
		LEFT JOIN currencies cu ON cu.id = m.currency_id
		LEFT JOIN wallets w ON w.id = m.wallet_id
		WHERE m.organization_id = $1
		  AND ($2::uuid IS NULL OR m.project_id = $2)
		  AND ($3::date IS NULL OR m.movement_date >= $3)
		  AND ($4::date IS NULL OR m.movement_date <= $4)
		ORDER BY m.movement_date DESC NULLS LAST, m.created_at DESC
		LIMIT $5 OFFSET $6
	`
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := r.db.Query(ctx, query, orgID, f.ProjectID, f.From, f.To, limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var m Movement
		err := rows.Scan(
			&m.ID, &m.MovementDate, &m.Description, &m.Amount, &m.ExchangeRate,
			&m.TypeName, &m.CategoryName, &m.SubcategoryName, &m.CurrencyName, &m.WalletName,
			&m.ImportBatchID, &m.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountByBatch returns how many movements a batch produced.
func (r *Repository) CountByBatch(ctx context.Context, orgID, batchID uuid.UUID) (int, error) {
	query := `SELECT count(*) FROM movements WHERE organization_id = $1 AND import_batch_id = $2`

	var n int
	err := r.db.QueryRow(ctx, query, orgID, batchID).Scan(&n)
	return n, err
}
