package mapper

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/construlink/obra-tracker/internal/domain/import/record"
)

func TestAutoAssign(t *testing.T) {
	t.Run("spanish headers", func(t *testing.T) {
		headers := []string{"Fecha", "Descripción", "Monto", "Categoría", "Moneda"}
		m := ColumnMapping{}
		AutoAssign(headers, m)

		assert.Equal(t, ColumnMapping{
			0: record.FieldDate,
			1: record.FieldDescription,
			2: record.FieldAmount,
			3: record.FieldCategory,
			4: record.FieldCurrency,
		}, m)
	})

	t.Run("unknown headers skipped", func(t *testing.T) {
		m := ColumnMapping{}
		AutoAssign([]string{"Proveedor", "Importe", "Obra"}, m)

		assert.Equal(t, ColumnMapping{1: record.FieldAmount}, m)
	})

	t.Run("does not touch a populated mapping", func(t *testing.T) {
		m := ColumnMapping{0: record.FieldAmount}
		AutoAssign([]string{"Fecha", "Monto"}, m)

		assert.Equal(t, ColumnMapping{0: record.FieldAmount}, m)
	})

	t.Run("first of two synonym columns wins", func(t *testing.T) {
		m := ColumnMapping{}
		AutoAssign([]string{"Importe", "Total"}, m)

		assert.Equal(t, ColumnMapping{0: record.FieldAmount}, m)
	})

	t.Run("idempotent", func(t *testing.T) {
		headers := []string{"Fecha", "Rubro", "Subrubro"}
		m := ColumnMapping{}
		AutoAssign(headers, m)
		first := ColumnMapping{}
		for k, v := range m {
			first[k] = v
		}

		AutoAssign(headers, m)
		assert.Equal(t, first, m)
	})
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		m := ColumnMapping{0: record.FieldDate, 1: record.FieldAmount}
		assert.NoError(t, Validate(m))
	})

	t.Run("empty", func(t *testing.T) {
		err := Validate(ColumnMapping{})
		require.Error(t, err)

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.True(t, verr.NothingMapped)
		assert.Empty(t, verr.DuplicateFields)
	})

	t.Run("duplicates reported together", func(t *testing.T) {
		m := ColumnMapping{
			0: record.FieldAmount,
			1: record.FieldAmount,
			2: record.FieldCategory,
			3: record.FieldCategory,
			4: record.FieldDate,
		}
		err := Validate(m)
		require.Error(t, err)

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.False(t, verr.NothingMapped)
		assert.Equal(t, []record.Field{record.FieldAmount, record.FieldCategory}, verr.DuplicateFields)
		assert.Contains(t, verr.Error(), "amount")
		assert.Contains(t, verr.Error(), "category")
	})
}

func TestColumnFor(t *testing.T) {
	m := ColumnMapping{2: record.FieldWallet}

	assert.Equal(t, 2, ColumnFor(m, record.FieldWallet))
	assert.Equal(t, -1, ColumnFor(m, record.FieldDate))
}

func TestIdentifierColumns(t *testing.T) {
	m := ColumnMapping{
		0: record.FieldDate,
		3: record.FieldWallet,
		1: record.FieldType,
		2: record.FieldAmount,
	}

	cols := IdentifierColumns(m)
	require.Len(t, cols, 2)
	assert.Equal(t, IdentifierColumn{Column: 1, Field: record.FieldType}, cols[0])
	assert.Equal(t, IdentifierColumn{Column: 3, Field: record.FieldWallet}, cols[1])
}
