package record

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	t.Run("day-first text dates", func(t *testing.T) {
		got, err := ParseDate("15/03/2024")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("iso date", func(t *testing.T) {
		got, err := ParseDate("2024-03-15")
		require.NoError(t, err)
		assert.Equal(t, 15, got.Day())
	})

	t.Run("spreadsheet date serial", func(t *testing.T) {
		// 45370 is 2024-03-19 in the 1900 date system
		got, err := ParseDate("45370")
		require.NoError(t, err)
		assert.Equal(t, 2024, got.Year())
		assert.Equal(t, time.March, got.Month())
		assert.Equal(t, 19, got.Day())
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := ParseDate("mañana")
		assert.Error(t, err)
		_, err = ParseDate("")
		assert.Error(t, err)
	})
}

func TestFieldKinds(t *testing.T) {
	assert.Equal(t, KindDate, FieldDate.Kind())
	assert.Equal(t, KindAmount, FieldAmount.Kind())
	assert.Equal(t, KindAmount, FieldExchangeRate.Kind())
	assert.Equal(t, KindText, FieldDescription.Kind())

	for _, f := range IdentifierFields() {
		assert.True(t, f.IsIdentifier(), "%s should be identifier", f)
		assert.True(t, f.Valid())
	}
	assert.False(t, Field("saldo").Valid())
}

func TestImportRecord_PopulatedFields(t *testing.T) {
	var r ImportRecord
	assert.Equal(t, 0, r.PopulatedFields())

	now := time.Now()
	r.Date = &now
	assert.Equal(t, 1, r.PopulatedFields())

	id := uuid.New()
	require.NoError(t, r.SetIdentifier(FieldCurrency, id))
	assert.Equal(t, 2, r.PopulatedFields())
	require.NotNil(t, r.CurrencyID)
	assert.Equal(t, id, *r.CurrencyID)
	assert.Equal(t, id, *r.Identifier(FieldCurrency))
}

func TestImportRecord_SetIdentifier_RejectsScalars(t *testing.T) {
	var r ImportRecord
	err := r.SetIdentifier(FieldAmount, uuid.New())
	assert.Error(t, err)
}
