// Package textutils provides text cleanup helpers for statement titles.
package textutils

import (
	"regexp"
	"strings"
)

// restatedDateMarker prefixes the trailing "actual transaction date"
// suffix mBank appends to card payment titles.
const restatedDateMarker = "DATA TRANSAKCJI:"

var whitespaceRun = regexp.MustCompile(`\s+`)

// CollapseWhitespace trims a string and squeezes every whitespace run to a
// single space.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// CleanTitle normalizes a raw transaction title:
//
//	"ZABKA Z1748 K.1    /WARSZAWA    DATA TRANSAKCJI: 2025-07-31"
//	-> "ZABKA Z1748 K.1 /WARSZAWA"
//
// The restated transaction date suffix is dropped and whitespace runs are
// collapsed. The raw title is kept separately by the parser.
func CleanTitle(title string) string {
	if idx := strings.Index(title, restatedDateMarker); idx >= 0 {
		title = title[:idx]
	}
	return CollapseWhitespace(title)
}

// StripAccountQuotes removes the apostrophes mBank wraps counterparty
// account numbers in to keep spreadsheets from eating leading zeros.
func StripAccountQuotes(account string) string {
	return strings.ReplaceAll(strings.TrimSpace(account), "'", "")
}
