package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/construlink/obra-tracker/internal/domain/import/record"
)

func TestSearchIndex(t *testing.T) {
	h := Hierarchy{Types: []TypeNode{{
		ID:   uuid.New(),
		Name: "Egresos",
		Categories: []CategoryNode{
			{ID: uuid.New(), Name: "Mano de Obra"},
			{ID: uuid.New(), Name: "Materiales"},
			{ID: uuid.New(), Name: "Maquinaria"},
		},
	}}}
	c := Build(h, []Option{{ID: uuid.New(), Name: "Peso Argentino"}}, nil)

	si, err := NewSearchIndex()
	require.NoError(t, err)
	defer si.Close()
	require.NoError(t, si.Rebuild(c))

	t.Run("prefix query", func(t *testing.T) {
		opts, err := si.Search(record.FieldCategory, "mat", 10)
		require.NoError(t, err)
		require.NotEmpty(t, opts)
		assert.Equal(t, "Materiales", opts[0].Name)
	})

	t.Run("accent-insensitive", func(t *testing.T) {
		opts, err := si.Search(record.FieldCategory, "maqüinaria", 10)
		require.NoError(t, err)
		require.NotEmpty(t, opts)
	})

	t.Run("field isolation", func(t *testing.T) {
		opts, err := si.Search(record.FieldCurrency, "materiales", 10)
		require.NoError(t, err)
		assert.Empty(t, opts)
	})

	t.Run("empty query lists field options", func(t *testing.T) {
		opts, err := si.Search(record.FieldCategory, "", 10)
		require.NoError(t, err)
		assert.Len(t, opts, 3)
	})
}
