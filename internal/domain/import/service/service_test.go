package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/construlink/obra-tracker/internal/domain/catalog"
	"github.com/construlink/obra-tracker/internal/domain/import/mapper"
	"github.com/construlink/obra-tracker/internal/domain/import/normalizer"
	"github.com/construlink/obra-tracker/internal/domain/import/record"
	"github.com/construlink/obra-tracker/internal/domain/import/resolver"
)

var (
	egresosID    = uuid.New()
	materialesID = uuid.New()
	arsID        = uuid.New()
	cajaID       = uuid.New()
)

type fakeCatalogStore struct {
	createdCategories int
}

func (f *fakeCatalogStore) LoadHierarchy(_ context.Context, _ uuid.UUID) (catalog.Hierarchy, error) {
	return catalog.Hierarchy{Types: []catalog.TypeNode{{
		ID:   egresosID,
		Name: "Egresos",
		Categories: []catalog.CategoryNode{
			{ID: materialesID, Name: "Materiales"},
		},
	}}}, nil
}

func (f *fakeCatalogStore) LoadCurrencies(_ context.Context, _ uuid.UUID) ([]catalog.Option, error) {
	return []catalog.Option{{ID: arsID, Name: "ARS"}}, nil
}

func (f *fakeCatalogStore) LoadWallets(_ context.Context, _ uuid.UUID) ([]catalog.Option, error) {
	return []catalog.Option{{ID: cajaID, Name: "Caja de Obra"}}, nil
}

func (f *fakeCatalogStore) CreateCategory(_ context.Context, _ uuid.UUID, name string, _ *uuid.UUID) (catalog.Option, error) {
	f.createdCategories++
	return catalog.Option{ID: uuid.New(), Name: name}, nil
}

func (f *fakeCatalogStore) CreateSubcategory(_ context.Context, _ uuid.UUID, name string, _ uuid.UUID) (catalog.Option, error) {
	return catalog.Option{ID: uuid.New(), Name: name}, nil
}

type fakeOverrideStore struct {
	saved int
}

func (f *fakeOverrideStore) LoadForOrganization(_ context.Context, _ uuid.UUID) (*normalizer.Overrides, error) {
	return normalizer.NewOverrides(), nil
}

func (f *fakeOverrideStore) Save(_ context.Context, _ uuid.UUID, _ record.Field, _ string, _ normalizer.Resolution) error {
	f.saved++
	return nil
}

type fakeWriter struct {
	batches [][]record.ImportRecord
	err     error
}

func (f *fakeWriter) InsertBatch(_ context.Context, _ uuid.UUID, _ *uuid.UUID, _ uuid.UUID, records []record.ImportRecord) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, records)
	return nil
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) Invalidate() { f.calls++ }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
}

const sampleCSV = `Fecha,Descripción,Monto,Categoría,Moneda
01/03/2024,Compra cemento,"15.000,50",Materiales,ARS
02/03/2024,Pago estudio,2000,Honorarios,ARS
,,,,
03/03/2024,Sin rubro,500,Sin asignar,ARS
`

func newTestService(writer *fakeWriter) (*ImportService, *fakeCatalogStore, *fakeOverrideStore) {
	catalogs := &fakeCatalogStore{}
	overrides := &fakeOverrideStore{}
	svc := NewImportService(NewSessionStore(time.Hour), catalogs, overrides, writer, discardLogger())
	return svc, catalogs, overrides
}

func TestCreateSession(t *testing.T) {
	svc, _, _ := newTestService(&fakeWriter{})

	session, err := svc.CreateSession(context.Background(), uuid.New(), nil, "movimientos.csv", []byte(sampleCSV))
	require.NoError(t, err)

	assert.Len(t, session.File.Rows, 4)
	assert.Equal(t, mapper.ColumnMapping{
		0: record.FieldDate,
		1: record.FieldDescription,
		2: record.FieldAmount,
		3: record.FieldCategory,
		4: record.FieldCurrency,
	}, session.Mapping, "headers auto-assign on upload")

	got, err := svc.Get(session.ID)
	require.NoError(t, err)
	assert.Same(t, session, got)
}

func TestCreateSessionRejectsGarbage(t *testing.T) {
	svc, _, _ := newTestService(&fakeWriter{})

	_, err := svc.CreateSession(context.Background(), uuid.New(), nil, "vacio.csv", []byte(""))
	assert.Error(t, err)
}

func TestGetUnknownSession(t *testing.T) {
	svc, _, _ := newTestService(&fakeWriter{})

	_, err := svc.Get(uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSetMapping(t *testing.T) {
	svc, _, _ := newTestService(&fakeWriter{})
	session, err := svc.CreateSession(context.Background(), uuid.New(), nil, "m.csv", []byte(sampleCSV))
	require.NoError(t, err)

	t.Run("valid replacement", func(t *testing.T) {
		m := mapper.ColumnMapping{0: record.FieldDate, 2: record.FieldAmount}
		require.NoError(t, svc.SetMapping(session.ID, m))
		assert.Equal(t, m, session.Mapping)
	})

	t.Run("duplicate fields rejected", func(t *testing.T) {
		err := svc.SetMapping(session.ID, mapper.ColumnMapping{
			0: record.FieldAmount,
			2: record.FieldAmount,
		})
		var verr *mapper.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		err := svc.SetMapping(session.ID, mapper.ColumnMapping{0: record.Field("proveedor")})
		assert.Error(t, err)
	})
}

func TestIncompatibilities(t *testing.T) {
	svc, _, _ := newTestService(&fakeWriter{})
	session, err := svc.CreateSession(context.Background(), uuid.New(), nil, "m.csv", []byte(sampleCSV))
	require.NoError(t, err)

	incs, err := svc.Incompatibilities(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, incs, 1)
	assert.Equal(t, record.FieldCategory, incs[0].Field)
	require.Len(t, incs[0].Values, 1)
	assert.Equal(t, "Honorarios", incs[0].Values[0].RawText)
}

func TestSubmitImportsUnresolvedAsNull(t *testing.T) {
	writer := &fakeWriter{}
	svc, _, _ := newTestService(writer)
	session, err := svc.CreateSession(context.Background(), uuid.New(), nil, "m.csv", []byte(sampleCSV))
	require.NoError(t, err)

	result, err := svc.Submit(context.Background(), session.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, result.RowsTotal)
	assert.Equal(t, 3, result.RowsInserted)
	assert.Equal(t, 1, result.RowsDropped)
	assert.Equal(t, 1, result.UnresolvedValues)
	assert.Equal(t, 1, result.UnresolvedRows)

	require.Len(t, writer.batches, 1)
	batch := writer.batches[0]
	require.Len(t, batch, 3)

	// the "Honorarios" row lands with its category left null
	second := batch[1]
	assert.Nil(t, second.CategoryID)
	require.NotNil(t, second.Amount)
	require.NotNil(t, second.CurrencyID)
	assert.Equal(t, arsID, *second.CurrencyID)

	_, err = svc.Get(session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestResolveThenSubmit(t *testing.T) {
	writer := &fakeWriter{}
	svc, catalogs, overrides := newTestService(writer)
	invalidator := &fakeInvalidator{}
	svc.WithInvalidator(invalidator)

	session, err := svc.CreateSession(context.Background(), uuid.New(), nil, "m.csv", []byte(sampleCSV))
	require.NoError(t, err)

	err = svc.Resolve(context.Background(), session.ID, []resolver.Request{{
		Field:   record.FieldCategory,
		RawText: "Honorarios",
		Action:  resolver.ActionCreateCategory,
		TypeID:  &egresosID,
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, catalogs.createdCategories)
	assert.Equal(t, 1, overrides.saved, "resolution persists as an override")

	result, err := svc.Submit(context.Background(), session.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, result.RowsTotal)
	assert.Equal(t, 3, result.RowsInserted)
	assert.Equal(t, 1, result.RowsDropped, "the all-empty row is dropped")
	assert.Equal(t, 0, result.UnresolvedValues)
	assert.Equal(t, 1, invalidator.calls)

	require.Len(t, writer.batches, 1)
	batch := writer.batches[0]
	require.Len(t, batch, 3)

	first := batch[0]
	require.NotNil(t, first.Date)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *first.Date)
	require.NotNil(t, first.Amount)
	assert.True(t, decimal.NewFromFloat(15000.50).Equal(*first.Amount))
	require.NotNil(t, first.CategoryID)
	assert.Equal(t, materialesID, *first.CategoryID)
	require.NotNil(t, first.CurrencyID)
	assert.Equal(t, arsID, *first.CurrencyID)

	// "Sin asignar" row lands with no category rather than blocking
	third := batch[2]
	assert.Nil(t, third.CategoryID)
	require.NotNil(t, third.Amount)

	_, err = svc.Get(session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound, "session closes after submit")
}

func TestSubmitRowSubset(t *testing.T) {
	writer := &fakeWriter{}
	svc, _, _ := newTestService(writer)

	session, err := svc.CreateSession(context.Background(), uuid.New(), nil, "m.csv", []byte(sampleCSV))
	require.NoError(t, err)

	result, err := svc.Submit(context.Background(), session.ID, []int{0, 3})
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowsTotal)
	assert.Equal(t, 2, result.RowsInserted)
	assert.Equal(t, 0, result.UnresolvedValues, "the skipped rows are not scanned")

	require.Len(t, writer.batches, 1)
	assert.Len(t, writer.batches[0], 2)
}

func TestSubmitEmptySubsetMeansAllRows(t *testing.T) {
	writer := &fakeWriter{}
	svc, _, _ := newTestService(writer)

	session, err := svc.CreateSession(context.Background(), uuid.New(), nil, "m.csv", []byte(sampleCSV))
	require.NoError(t, err)

	result, err := svc.Submit(context.Background(), session.ID, []int{})
	require.NoError(t, err)
	assert.Equal(t, 4, result.RowsTotal)
	assert.Equal(t, 3, result.RowsInserted)

	require.Len(t, writer.batches, 1)
	assert.Len(t, writer.batches[0], 3, "an empty subset never lands an empty batch")
}

func TestSubmitRowSubsetOutOfRange(t *testing.T) {
	svc, _, _ := newTestService(&fakeWriter{})

	session, err := svc.CreateSession(context.Background(), uuid.New(), nil, "m.csv", []byte(sampleCSV))
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), session.ID, []int{99})
	assert.ErrorContains(t, err, "out of range")
}

func TestSubmitPassesDatabaseErrorThrough(t *testing.T) {
	dbErr := errors.New("deadlock detected")
	writer := &fakeWriter{err: dbErr}
	svc, _, _ := newTestService(writer)

	session, err := svc.CreateSession(context.Background(), uuid.New(), nil, "m.csv", []byte(sampleCSV))
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), session.ID, nil)
	assert.Equal(t, dbErr, err, "database error is surfaced verbatim")

	_, err = svc.Get(session.ID)
	assert.NoError(t, err, "session survives a failed write")
}

func TestSessionStoreExpiry(t *testing.T) {
	store := NewSessionStore(10 * time.Millisecond)
	s := &Session{ID: uuid.New()}
	store.Put(s)

	_, ok := store.Get(s.ID)
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = store.Get(s.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestSessionStoreSweep(t *testing.T) {
	store := NewSessionStore(10 * time.Millisecond)
	store.Put(&Session{ID: uuid.New()})
	store.Put(&Session{ID: uuid.New()})

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, store.SweepExpired())
	assert.Equal(t, 0, store.Len())
}
