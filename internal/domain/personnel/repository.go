// Package personnel tracks workers, their daily rates and payments, and
// computes per-worker payment summaries.
package personnel

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Person is one worker on the payroll.
type Person struct {
	ID        uuid.UUID  `json:"id"`
	ProjectID *uuid.UUID `json:"project_id,omitempty"`
	FullName  string     `json:"full_name"`
	Role      *string    `json:"role,omitempty"`
}

// Rate is a daily rate valid from a given date.
type Rate struct {
	DailyRate decimal.Decimal
	Currency  string
	ValidFrom time.Time
}

// Payment is one payout to a worker.
type Payment struct {
	Amount decimal.Decimal
	PaidAt time.Time
}

// DB is the pgx surface the repository needs. *pgxpool.Pool satisfies it.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository reads the personnel tables.
type Repository struct {
	db DB
}

// NewRepository creates a personnel repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// ListPersonnel returns the organization's workers ordered by name.
func (r *Repository) ListPersonnel(ctx context.Context, orgID uuid.UUID) ([]Person, error) {
	query := `
		SELECT id, project_id, full_name, role
		FROM personnel
		WHERE organization_id = $1
		ORDER BY full_name
	`

	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.FullName, &p.Role); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CurrentRate returns the worker's rate in effect today, or nil when no
// rate has started yet.
func (r *Repository) CurrentRate(ctx context.Context, personnelID uuid.UUID) (*Rate, error) {
	query := `
		SELECT daily_rate, currency, valid_from
		FROM personnel_rates
		WHERE personnel_id = $1 AND valid_from <= CURRENT_DATE
		ORDER BY valid_from DESC
		LIMIT 1
	`

	var rate Rate
	err := r.db.QueryRow(ctx, query, personnelID).Scan(&rate.DailyRate, &rate.Currency, &rate.ValidFrom)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rate, nil
}

// PaymentsTotal sums every payout to the worker.
func (r *Repository) PaymentsTotal(ctx context.Context, personnelID uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM personnel_payments
		WHERE personnel_id = $1
	`

	var total decimal.Decimal
	if err := r.db.QueryRow(ctx, query, personnelID).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
