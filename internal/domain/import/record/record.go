// Package record defines the movement import record and its field kinds.
// Identifier fields are typed as UUIDs so raw cell text can never reach
// storage through them; scalar fields carry their own parse rules.
package record

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/construlink/obra-tracker/pkg/money"
)

// Field is a target column of the movements table.
type Field string

const (
	FieldDate         Field = "date"
	FieldDescription  Field = "description"
	FieldAmount       Field = "amount"
	FieldExchangeRate Field = "exchange_rate"
	FieldType         Field = "type"
	FieldCategory     Field = "category"
	FieldSubcategory  Field = "subcategory"
	FieldCurrency     Field = "currency"
	FieldWallet       Field = "wallet"
)

// Kind classifies how a field's raw cell text is parsed and validated.
type Kind int

const (
	KindText Kind = iota
	KindDate
	KindAmount
	KindIdentifier
)

var fieldKinds = map[Field]Kind{
	FieldDate:         KindDate,
	FieldDescription:  KindText,
	FieldAmount:       KindAmount,
	FieldExchangeRate: KindAmount,
	FieldType:         KindIdentifier,
	FieldCategory:     KindIdentifier,
	FieldSubcategory:  KindIdentifier,
	FieldCurrency:     KindIdentifier,
	FieldWallet:       KindIdentifier,
}

// Kind returns the parse kind for the field.
func (f Field) Kind() Kind {
	return fieldKinds[f]
}

// Valid reports whether f is one of the known target fields.
func (f Field) Valid() bool {
	_, ok := fieldKinds[f]
	return ok
}

// IsIdentifier reports whether the field must hold a catalog identifier.
func (f Field) IsIdentifier() bool {
	return fieldKinds[f] == KindIdentifier
}

// IdentifierFields lists the fields whose values must be catalog identifiers,
// in a fixed order.
func IdentifierFields() []Field {
	return []Field{FieldType, FieldCategory, FieldSubcategory, FieldCurrency, FieldWallet}
}

// Fields lists every target field in a fixed order.
func Fields() []Field {
	return []Field{
		FieldDate, FieldDescription, FieldAmount, FieldExchangeRate,
		FieldType, FieldCategory, FieldSubcategory, FieldCurrency, FieldWallet,
	}
}

// ImportRecord is the per-row object assembled just before submission.
// Identifier fields are *uuid.UUID by construction: a missing resolution
// stays nil, it is never backfilled with the raw cell text.
type ImportRecord struct {
	Date          *time.Time
	Description   *string
	Amount        *decimal.Decimal
	ExchangeRate  *decimal.Decimal
	TypeID        *uuid.UUID
	CategoryID    *uuid.UUID
	SubcategoryID *uuid.UUID
	CurrencyID    *uuid.UUID
	WalletID      *uuid.UUID
}

// PopulatedFields counts how many fields carry a value. Rows where this is
// zero are dropped from the batch.
func (r *ImportRecord) PopulatedFields() int {
	n := 0
	if r.Date != nil {
		n++
	}
	if r.Description != nil {
		n++
	}
	if r.Amount != nil {
		n++
	}
	if r.ExchangeRate != nil {
		n++
	}
	for _, id := range r.identifierSlots() {
		if *id != nil {
			n++
		}
	}
	return n
}

// SetIdentifier assigns a resolved catalog id to the given identifier field.
func (r *ImportRecord) SetIdentifier(f Field, id uuid.UUID) error {
	slot, ok := r.identifierSlot(f)
	if !ok {
		return fmt.Errorf("record: %q is not an identifier field", f)
	}
	v := id
	*slot = &v
	return nil
}

// Identifier returns the resolved id for an identifier field, if any.
func (r *ImportRecord) Identifier(f Field) *uuid.UUID {
	slot, ok := r.identifierSlot(f)
	if !ok {
		return nil
	}
	return *slot
}

func (r *ImportRecord) identifierSlot(f Field) (**uuid.UUID, bool) {
	switch f {
	case FieldType:
		return &r.TypeID, true
	case FieldCategory:
		return &r.CategoryID, true
	case FieldSubcategory:
		return &r.SubcategoryID, true
	case FieldCurrency:
		return &r.CurrencyID, true
	case FieldWallet:
		return &r.WalletID, true
	}
	return nil, false
}

func (r *ImportRecord) identifierSlots() []**uuid.UUID {
	return []**uuid.UUID{&r.TypeID, &r.CategoryID, &r.SubcategoryID, &r.CurrencyID, &r.WalletID}
}

// dateFormats covers the forms seen in uploaded movement sheets.
var dateFormats = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006-01-02",
	"02/01/06",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
}

// ParseDate parses a raw cell into a date. Text dates use day-first formats;
// bare numbers are treated as spreadsheet date serials.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date serial %q: %w", raw, err)
		}
		return t, nil
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// ParseAmount parses a raw cell into an exact decimal amount.
func ParseAmount(raw string) (decimal.Decimal, error) {
	return money.ParseLocaleAmount(raw)
}

// ParseText cleans a free-text cell; empty text is reported as unpopulated.
func ParseText(raw string) (string, bool) {
	s := strings.Join(strings.Fields(raw), " ")
	return s, s != ""
}
