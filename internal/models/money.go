package models

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseStatementAmount converts an amount in the bank's statement notation
// to a decimal. The export uses a comma decimal separator, spaces as
// thousands separators and sometimes appends the currency literal:
// "1 113,28 PLN" parses to 1113.28.
func ParseStatementAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("empty amount")
	}

	s = strings.ReplaceAll(s, DefaultCurrency, "")
	// Drop every whitespace rune, including the non-breaking spaces the
	// bank uses as thousands separators.
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount '%s': %w", s, err)
	}
	return d, nil
}

// CanonicalAmount renders an amount in the single fixed form used inside
// row digests. The two-decimal rendering is pinned: any change here breaks
// hash stability against already persisted transactions.
func CanonicalAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
