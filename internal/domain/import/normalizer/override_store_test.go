package normalizer

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/construlink/obra-tracker/internal/domain/import/record"
)

func TestOverrideStoreSave(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewOverrideStore(mock)
	orgID := uuid.New()
	categoryID := uuid.New()

	t.Run("bind canonicalizes raw text", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO value_overrides").
			WithArgs(orgID, "category", "mano de obra", &categoryID, false).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := store.Save(context.Background(), orgID, record.FieldCategory, "  MANO DE OBRA ", Resolution{ID: categoryID})
		require.NoError(t, err)
	})

	t.Run("unset stores a null identifier", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO value_overrides").
			WithArgs(orgID, "wallet", "caja chica", (*uuid.UUID)(nil), true).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := store.Save(context.Background(), orgID, record.FieldWallet, "Caja Chica", Resolution{Unset: true})
		require.NoError(t, err)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOverrideStoreLoadForOrganization(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewOverrideStore(mock)
	orgID := uuid.New()
	categoryID := uuid.New()

	rows := pgxmock.NewRows([]string{"field", "raw_text", "resolved_id", "is_unset"}).
		AddRow("category", "mat varios", &categoryID, false).
		AddRow("wallet", "caja chica", (*uuid.UUID)(nil), true)
	mock.ExpectQuery("SELECT field, raw_text, resolved_id, is_unset").
		WithArgs(orgID).
		WillReturnRows(rows)

	overrides, err := store.LoadForOrganization(context.Background(), orgID)
	require.NoError(t, err)

	res, ok := overrides.Get(record.FieldCategory, "Mat Varios")
	require.True(t, ok)
	assert.Equal(t, categoryID, res.ID)

	res, ok = overrides.Get(record.FieldWallet, "caja chica")
	require.True(t, ok)
	assert.True(t, res.Unset)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOverrideStoreDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewOverrideStore(mock)
	orgID := uuid.New()

	mock.ExpectExec("DELETE FROM value_overrides").
		WithArgs(orgID, "category", "mat varios").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err = store.Delete(context.Background(), orgID, record.FieldCategory, "Mat Varios")
	assert.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}
