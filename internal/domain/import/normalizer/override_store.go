package normalizer

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/construlink/obra-tracker/internal/domain/import/record"
	"github.com/construlink/obra-tracker/pkg/normtext"
)

// DB is the pgx surface the store needs. *pgxpool.Pool satisfies it.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// OverrideStore persists manual resolutions so they apply to every future
// import in the organization, not just the session that created them.
type OverrideStore struct {
	db DB
}

// NewOverrideStore creates a store over the given connection.
func NewOverrideStore(db DB) *OverrideStore {
	return &OverrideStore{db: db}
}

// Save upserts one resolution. Raw text is canonicalized before storage so
// "MANO DE OBRA" and "mano de obra" share one row.
func (s *OverrideStore) Save(ctx context.Context, orgID uuid.UUID, f record.Field, rawText string, r Resolution) error {
	query := `
		INSERT INTO value_overrides (organization_id, field, raw_text, resolved_id, is_unset)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (organization_id, field, raw_text) DO UPDATE SET
			resolved_id = EXCLUDED.resolved_id,
			is_unset = EXCLUDED.is_unset,
			updated_at = now()
	`

	var resolvedID *uuid.UUID
	if !r.Unset {
		id := r.ID
		resolvedID = &id
	}
	_, err := s.db.Exec(ctx, query, orgID, string(f), normtext.Canonicalize(rawText), resolvedID, r.Unset)
	return err
}

// LoadForOrganization returns every stored resolution as an in-memory
// override set ready to hand to a normalizer.
func (s *OverrideStore) LoadForOrganization(ctx context.Context, orgID uuid.UUID) (*Overrides, error) {
	query := `
		SELECT field, raw_text, resolved_id, is_unset
		FROM value_overrides
		WHERE organization_id = $1
	`

	rows, err := s.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overrides := NewOverrides()
	for rows.Next() {
		var (
			field      string
			rawText    string
			resolvedID *uuid.UUID
			isUnset    bool
		)
		if err := rows.Scan(&field, &rawText, &resolvedID, &isUnset); err != nil {
			return nil, err
		}
		f := record.Field(field)
		if isUnset || resolvedID == nil {
			overrides.Unset(f, rawText)
			continue
		}
		overrides.Bind(f, rawText, *resolvedID)
	}
	return overrides, rows.Err()
}

// Delete removes one stored resolution.
func (s *OverrideStore) Delete(ctx context.Context, orgID uuid.UUID, f record.Field, rawText string) error {
	query := `
		DELETE FROM value_overrides
		WHERE organization_id = $1 AND field = $2 AND raw_text = $3
	`
	result, err := s.db.Exec(ctx, query, orgID, string(f), normtext.Canonicalize(rawText))
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
