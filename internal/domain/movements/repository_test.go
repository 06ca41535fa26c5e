package movements

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/construlink/obra-tracker/internal/domain/import/record"
)

func sampleRecords() []record.ImportRecord {
	date := time.Date(2024, 3, 19, 0, 0, 0, 0, time.UTC)
	desc := "Compra cemento"
	amount := decimal.NewFromFloat(15000.50)
	catID := uuid.New()

	return []record.ImportRecord{
		{Date: &date, Description: &desc, Amount: &amount, CategoryID: &catID},
		{Description: &desc, Amount: &amount},
	}
}

// anyInsertArgs matches the 12 placeholders of the movements INSERT without
// constraining their values; pgxmock treats a missing WithArgs as "expect
// zero arguments", so the count has to be spelled out.
func anyInsertArgs() []any {
	args := make([]any, 12)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestInsertBatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)
	orgID := uuid.New()
	batchID := uuid.New()
	records := sampleRecords()

	t.Run("commits when every row lands", func(t *testing.T) {
		mock.ExpectBegin()
		for range records {
			mock.ExpectExec("INSERT INTO movements").
				WithArgs(anyInsertArgs()...).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
		}
		mock.ExpectCommit()

		err := repo.InsertBatch(context.Background(), orgID, nil, batchID, records)
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on the first failing row", func(t *testing.T) {
		dbErr := errors.New(`null value in column "amount" violates not-null constraint`)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO movements").
			WithArgs(anyInsertArgs()...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec("INSERT INTO movements").
			WithArgs(anyInsertArgs()...).
			WillReturnError(dbErr)
		mock.ExpectRollback()

		err := repo.InsertBatch(context.Background(), orgID, nil, batchID, records)
		require.Error(t, err)
		assert.Equal(t, dbErr, err, "database error passes through unchanged")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)
	orgID := uuid.New()
	batchID := uuid.New()
	date := time.Date(2024, 3, 19, 0, 0, 0, 0, time.UTC)
	desc := "Compra cemento"
	amount := decimal.NewFromFloat(15000.50)
	category := "Materiales"
	created := time.Now()

	rows := pgxmock.NewRows([]string{
		"id", "movement_date", "description", "amount", "exchange_rate",
		"type_name", "category_name", "subcategory_name", "currency_name", "wallet_name",
		"import_batch_id", "created_at",
	}).AddRow(
		uuid.New(), &date, &desc, &amount, (*decimal.Decimal)(nil),
		(*string)(nil), &category, (*string)(nil), (*string)(nil), (*string)(nil),
		&batchID, created,
	)

	mock.ExpectQuery("SELECT m.id, m.movement_date").
		WithArgs(orgID, (*uuid.UUID)(nil), (*time.Time)(nil), (*time.Time)(nil), 100, 0).
		WillReturnRows(rows)

	items, err := repo.List(context.Background(), orgID, ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Materiales", *items[0].CategoryName)
	assert.Nil(t, items[0].TypeName)
	assert.True(t, amount.Equal(*items[0].Amount))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByBatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)
	orgID := uuid.New()
	batchID := uuid.New()

	mock.ExpectQuery("SELECT count").
		WithArgs(orgID, batchID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))

	n, err := repo.CountByBatch(context.Background(), orgID, batchID)
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}
