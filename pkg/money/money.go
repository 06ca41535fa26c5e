// Package money parses locale-formatted monetary text into exact decimals
// and formats amounts for operator-facing messages.
//
// Uploaded spreadsheets in this domain are overwhelmingly es-AR/es-CL
// formatted ("15.000,50"), but operators also paste US-formatted values,
// so parsing decides the decimal separator per value rather than per file.
package money

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ErrNotANumber is returned when no numeric value can be extracted.
var ErrNotANumber = errors.New("money: not a number")

// ParseLocaleAmount converts free-text monetary input to a decimal.
//
// Separator rule, applied per value:
//   - both '.' and ',' present: the rightmost one is the decimal
//     separator, the other is a thousands separator;
//   - only ',' present: decimal separator when followed by 1-2 trailing
//     digits, thousands separator otherwise;
//   - only '.' present: thousands separator when followed by exactly 3
//     trailing digits (the common "15.000" case), decimal otherwise.
func ParseLocaleAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, ErrNotANumber
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.Trim(s, "()")
	}

	// Keep digits, separators and sign; drops currency symbols and codes.
	s = strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == '.' || r == ',' || r == '-' {
			return r
		}
		return -1
	}, s)

	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimPrefix(s, "-")
	}
	if s == "" || strings.Contains(s, "-") {
		return decimal.Zero, ErrNotANumber
	}

	s = normalizeSeparators(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotANumber, raw)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			// 15.000,50 -> comma is decimal
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// 15,000.50 -> dot is decimal
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		trailing := len(s) - lastComma - 1
		if trailing >= 1 && trailing <= 2 && strings.Count(s, ",") == 1 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0:
		trailing := len(s) - lastDot - 1
		if trailing == 3 {
			s = strings.ReplaceAll(s, ".", "")
		} else if strings.Count(s, ".") > 1 {
			// 1.234.5 is malformed either way; treat all dots as grouping
			s = strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}

// Format renders a decimal amount in the given ISO-4217 currency for
// operator-facing output, e.g. payroll summaries.
func Format(amount decimal.Decimal, currencyCode string) string {
	currency := gomoney.GetCurrency(currencyCode)
	if currency == nil {
		currency = gomoney.GetCurrency(gomoney.ARS)
	}
	minor := amount.Mul(decimal.New(1, int32(currency.Fraction))).Round(0).IntPart()
	return gomoney.New(minor, currency.Code).Display()
}
