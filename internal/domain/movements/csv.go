package movements

import (
	"io"

	"github.com/gocarina/gocsv"

	"github.com/construlink/obra-tracker/pkg/money"
)

// csvRow flattens a movement for spreadsheet export. Headers stay in
// Spanish to round-trip with the files operators import.
type csvRow struct {
	Date        string `csv:"Fecha"`
	Description string `csv:"Descripción"`
	Amount      string `csv:"Monto"`
	Rate        string `csv:"Cotización"`
	Type        string `csv:"Tipo"`
	Category    string `csv:"Categoría"`
	Subcategory string `csv:"Subcategoría"`
	Currency    string `csv:"Moneda"`
	Wallet      string `csv:"Billetera"`
}

// WriteCSV renders the movements as CSV.
func WriteCSV(w io.Writer, items []Movement) error {
	rows := make([]csvRow, 0, len(items))
	for _, m := range items {
		var row csvRow
		if m.MovementDate != nil {
			row.Date = m.MovementDate.Format("02/01/2006")
		}
		row.Description = deref(m.Description)
		if m.Amount != nil {
			currency := deref(m.CurrencyName)
			row.Amount = money.Format(*m.Amount, currency)
		}
		if m.ExchangeRate != nil {
			row.Rate = m.ExchangeRate.String()
		}
		row.Type = deref(m.TypeName)
		row.Category = deref(m.CategoryName)
		row.Subcategory = deref(m.SubcategoryName)
		row.Currency = deref(m.CurrencyName)
		row.Wallet = deref(m.WalletName)
		rows = append(rows, row)
	}
	return gocsv.Marshal(rows, w)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
