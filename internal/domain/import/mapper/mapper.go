// Package mapper associates file columns with movement fields. Auto
// assignment runs once over a known-synonym dictionary; after that the
// mapping belongs to the operator.
package mapper

import (
	"fmt"
	"sort"
	"strings"

	"github.com/construlink/obra-tracker/internal/domain/import/record"
	"github.com/construlink/obra-tracker/pkg/normtext"
)

// ColumnMapping maps a 0-based column index to its target field. Columns
// absent from the map are not imported.
type ColumnMapping map[int]record.Field

// headerSynonyms maps canonicalized header text to a target field. Lookup
// is exact: a header like "monto total estimado" will not auto-assign.
var headerSynonyms = map[string]record.Field{
	"fecha":              record.FieldDate,
	"dia":                record.FieldDate,
	"fecha de pago":      record.FieldDate,
	"descripcion":        record.FieldDescription,
	"detalle":            record.FieldDescription,
	"concepto":           record.FieldDescription,
	"observaciones":      record.FieldDescription,
	"monto":              record.FieldAmount,
	"importe":            record.FieldAmount,
	"total":              record.FieldAmount,
	"valor":              record.FieldAmount,
	"cotizacion":         record.FieldExchangeRate,
	"tipo de cambio":     record.FieldExchangeRate,
	"tc":                 record.FieldExchangeRate,
	"tipo":               record.FieldType,
	"tipo de movimiento": record.FieldType,
	"categoria":          record.FieldCategory,
	"rubro":              record.FieldCategory,
	"subcategoria":       record.FieldSubcategory,
	"subrubro":           record.FieldSubcategory,
	"moneda":             record.FieldCurrency,
	"divisa":             record.FieldCurrency,
	"billetera":          record.FieldWallet,
	"caja":               record.FieldWallet,
	"cuenta":             record.FieldWallet,
}

// AutoAssign fills an empty mapping from header synonyms. It is a no-op on
// a non-empty mapping so operator edits are never clobbered, and it never
// assigns the same field twice (first matching column wins).
func AutoAssign(headers []string, m ColumnMapping) {
	if len(m) > 0 {
		return
	}
	used := make(map[record.Field]bool)
	for col, header := range headers {
		f, ok := headerSynonyms[normtext.Canonicalize(header)]
		if !ok || used[f] {
			continue
		}
		m[col] = f
		used[f] = true
	}
}

// ValidationError reports every problem with a mapping at once.
type ValidationError struct {
	DuplicateFields []record.Field
	NothingMapped   bool
}

func (e *ValidationError) Error() string {
	var parts []string
	if e.NothingMapped {
		parts = append(parts, "no columns are mapped")
	}
	if len(e.DuplicateFields) > 0 {
		names := make([]string, len(e.DuplicateFields))
		for i, f := range e.DuplicateFields {
			names[i] = string(f)
		}
		parts = append(parts, fmt.Sprintf("fields assigned to more than one column: %s", strings.Join(names, ", ")))
	}
	return "mapping invalid: " + strings.Join(parts, "; ")
}

// Validate checks the mapping before the session can advance: every field
// used at most once and at least one column mapped. All violations are
// reported together.
func Validate(m ColumnMapping) error {
	verr := &ValidationError{NothingMapped: len(m) == 0}

	counts := make(map[record.Field]int)
	for _, f := range m {
		counts[f]++
	}
	for f, n := range counts {
		if n > 1 {
			verr.DuplicateFields = append(verr.DuplicateFields, f)
		}
	}
	sort.Slice(verr.DuplicateFields, func(i, j int) bool {
		return verr.DuplicateFields[i] < verr.DuplicateFields[j]
	})

	if verr.NothingMapped || len(verr.DuplicateFields) > 0 {
		return verr
	}
	return nil
}

// ColumnFor returns the column mapped to the field, or -1.
func ColumnFor(m ColumnMapping, f record.Field) int {
	for col, mapped := range m {
		if mapped == f {
			return col
		}
	}
	return -1
}

// IdentifierColumns returns the mapped (column, field) pairs whose target
// is an identifier field, ordered by column.
func IdentifierColumns(m ColumnMapping) []IdentifierColumn {
	var out []IdentifierColumn
	for col, f := range m {
		if f.IsIdentifier() {
			out = append(out, IdentifierColumn{Column: col, Field: f})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Column < out[j].Column })
	return out
}

// IdentifierColumn is a mapped column targeting an identifier field.
type IdentifierColumn struct {
	Column int
	Field  record.Field
}
