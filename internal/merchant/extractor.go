// Package merchant extracts merchant identity from transaction titles.
// Extraction is a pure function: an ordered regex cascade where the first
// matching pattern decides the fields and grades the confidence.
package merchant

import (
	"regexp"
	"strings"

	"dkowalski/mbank-ledger/internal/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// cascadeEntry is one step of the extraction cascade. Matching entries are
// tried in order and the first hit wins.
type cascadeEntry struct {
	re         *regexp.Regexp
	confidence float64
	// hasStore marks patterns whose second capture group is a store
	// identifier.
	hasStore bool
}

var (
	// "ZABKA Z1748 K.2 /WARSZAWA": uppercase merchant, alphanumeric store
	// id with optional two-part suffix, then location. The store id must
	// carry at least one digit; a bare word after the merchant is handled
	// by reTrailingWord instead.
	reStoreSuffix = regexp.MustCompile(`^([A-Z&\s]+?)\s+([A-Z]*\d[A-Z0-9]*(?:\s+[A-Z0-9.]+)?)\s*/`)

	// "ROSSMANN 129 /Warszawa": purely numeric store id.
	reStoreNumeric = regexp.MustCompile(`^([A-Z&\s]+?)\s+(\d+)\s*/`)

	// "DECATHLON WARSZAWA /WARSZAWA": trailing word, no store id.
	reTrailingWord = regexp.MustCompile(`^([A-Z&\s]+?)\s+[A-Za-zęóąśłżźćń]+\s*/`)

	// "Kino Wisła /WARSZAWA": free-text merchant up to the slash.
	reFreeText = regexp.MustCompile(`^([A-Za-zęóąśłżźćńĘÓĄŚŁŻŹĆŃ\s&.\-]+?)\s*/`)

	// No slash at all: leading alphabetic run.
	reLeadingRun = regexp.MustCompile(`^([A-Za-zęóąśłżźćńĘÓĄŚŁŻŹĆŃ\s&.\-]+)`)

	// Location charset: letters, spaces and hyphens, accented included.
	reLocation = regexp.MustCompile(`^[A-Za-zęóąśłżźćńĘÓĄŚŁŻŹĆŃ\s\-]+`)
)

var cascade = []cascadeEntry{
	{re: reStoreSuffix, confidence: 0.9, hasStore: true},
	{re: reStoreNumeric, confidence: 0.9, hasStore: true},
	{re: reTrailingWord, confidence: 0.8},
	{re: reFreeText, confidence: 0.7},
	{re: reLeadingRun, confidence: 0.5},
}

// Extractor turns raw transaction titles into MerchantInfo. It holds the
// curated brand table, loaded once; no method performs I/O and extraction
// is safe to run concurrently across rows.
type Extractor struct {
	brands []BrandMapping
}

// NewExtractor creates an Extractor with the built-in brand table.
func NewExtractor() *Extractor {
	return NewExtractorWithBrands(DefaultBrandTable())
}

// NewExtractorWithBrands creates an Extractor with a custom brand table,
// usually loaded from YAML.
func NewExtractorWithBrands(brands []BrandMapping) *Extractor {
	return &Extractor{brands: brands}
}

// titleCase renders a lowercased string in Polish title case. The caser
// is created per call: cases.Caser carries transformer state and is not
// safe for concurrent reuse.
func titleCase(s string) string {
	return cases.Title(language.Polish).String(strings.ToLower(s))
}

// Extract parses a raw transaction title into merchant name, store
// identifier, location and a confidence grade. An empty title yields
// confidence 0.0; a title no pattern recognizes is returned whole as the
// merchant with confidence 0.3.
func (e *Extractor) Extract(title string) models.MerchantInfo {
	info := models.MerchantInfo{RawText: title}
	if strings.TrimSpace(title) == "" {
		return info
	}

	info.Location = e.extractLocation(title)

	for _, entry := range cascade {
		m := entry.re.FindStringSubmatch(title)
		if m == nil {
			continue
		}

		info.MerchantName = e.normalizeName(m[1])
		if entry.hasStore {
			info.StoreIdentifier = strings.TrimSpace(m[2])
		}
		info.Confidence = entry.confidence
		return info
	}

	info.MerchantName = strings.TrimSpace(title)
	info.Confidence = 0.3
	return info
}

// extractLocation takes the text after the last '/', constrained to the
// location charset, and renders it in title case: "/WARSZAWA" -> "Warszawa".
func (e *Extractor) extractLocation(title string) string {
	idx := strings.LastIndex(title, "/")
	if idx < 0 || idx+1 >= len(title) {
		return ""
	}

	candidate := strings.TrimSpace(title[idx+1:])
	loc := strings.TrimSpace(reLocation.FindString(candidate))
	if loc == "" {
		return ""
	}
	return titleCase(loc)
}

// normalizeName maps a raw merchant spelling to its canonical display
// name. Known brands match case-insensitively by substring; unknown names
// get word-wise title-casing that preserves short all-caps tokens (acronym
// heuristic) and tokens containing '.' or '&' verbatim.
func (e *Extractor) normalizeName(raw string) string {
	raw = strings.TrimSpace(raw)
	upper := strings.ToUpper(raw)

	for _, brand := range e.brands {
		if strings.Contains(upper, brand.Pattern) {
			return brand.Display
		}
	}

	words := strings.Fields(raw)
	for i, w := range words {
		switch {
		case len(w) <= 3 && w == strings.ToUpper(w) && w != strings.ToLower(w):
			// Acronym, keep as-is.
		case strings.ContainsAny(w, ".&"):
			// Store codes and joined names, keep as-is.
		default:
			words[i] = titleCase(w)
		}
	}
	return strings.Join(words, " ")
}
