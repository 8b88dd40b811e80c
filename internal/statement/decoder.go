// Package statement parses mBank CSV statement exports: decoding the
// bank's Windows-1250 bytes, recovering metadata and summary sections and
// reading the positional transaction block.
package statement

import (
	"strings"
	"unicode/utf8"

	"dkowalski/mbank-ledger/internal/importerror"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// EncodingName is the fixed single-byte encoding of mBank CSV exports.
const EncodingName = "windows-1250"

// Decode converts raw statement bytes from Windows-1250 to UTF-8. Invalid
// bytes fail the whole decode: a silently substituted character would
// corrupt the accented merchant names every later pattern match depends on.
func Decode(raw []byte) (string, error) {
	decoded, _, err := transform.String(charmap.Windows1250.NewDecoder(), string(raw))
	if err != nil {
		return "", &importerror.EncodingError{Encoding: EncodingName, Err: err}
	}

	// The charmap decoder maps undefined code points to U+FFFD instead of
	// erroring. Windows-1250 cannot encode U+FFFD itself, so its presence
	// always marks an invalid source byte.
	if idx := strings.IndexRune(decoded, utf8.RuneError); idx >= 0 {
		line := strings.Count(decoded[:idx], "\n") + 1
		return "", &importerror.EncodingError{Encoding: EncodingName, Line: line}
	}

	return decoded, nil
}

// SplitLines splits decoded statement text into logical lines. The export
// uses bare line feeds; carriage returns are trimmed if present.
func SplitLines(decoded string) []string {
	lines := strings.Split(decoded, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
