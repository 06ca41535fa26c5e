package normtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Mano de Obra  ", "mano de obra"},
		{"Construcción", "construccion"},
		{"ALQUILER\tDE   EQUIPOS", "alquiler de equipos"},
		{"Áéíóú Ñandú", "aeiou nandu"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Canonicalize(tt.in), "input %q", tt.in)
	}
}

func TestVariants(t *testing.T) {
	vs := Variants("Mano de Obra")
	assert.Contains(t, vs, "mano de obra")
	assert.Contains(t, vs, "manodeobra")
	assert.Contains(t, vs, "mano obra") // stopword "de" removed

	// canonical form always first
	assert.Equal(t, "mano de obra", vs[0])

	// no duplicates for single-word entries
	vs = Variants("Materiales")
	assert.Equal(t, []string{"materiales"}, vs)
}

func TestVariants_Empty(t *testing.T) {
	assert.Nil(t, Variants("   "))
}
