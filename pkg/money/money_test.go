package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocaleAmount(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain integer", "1500", "1500"},
		{"plain decimal", "1500.5", "1500.5"},
		{"es thousands with decimal comma", "15.000,50", "15000.5"},
		{"us thousands with decimal dot", "15,000.50", "15000.5"},
		{"lone comma as decimal", "1500,75", "1500.75"},
		{"lone comma as thousands", "1,500", "1500"},
		{"lone dot three digits is grouping", "15.000", "15000"},
		{"lone dot two digits is decimal", "15.99", "15.99"},
		{"multiple dot groups", "1.234.567", "1234567"},
		{"currency symbol stripped", "$ 4.500,00", "4500"},
		{"negative sign", "-1.000,25", "-1000.25"},
		{"parenthesized negative", "(250,00)", "-250"},
		{"ars prefix", "ARS 12.345", "12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLocaleAmount(tt.in)
			require.NoError(t, err)
			want, err := decimal.NewFromString(tt.want)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "want %s got %s", want, got)
		})
	}
}

func TestParseLocaleAmount_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "Sin asignar", "--5"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseLocaleAmount(in)
			assert.ErrorIs(t, err, ErrNotANumber)
		})
	}
}

func TestFormat(t *testing.T) {
	out := Format(decimal.RequireFromString("1234.5"), "ARS")
	assert.Contains(t, out, "1.234,50")
}
