package merchant

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractStoreWithSuffix(t *testing.T) {
	e := NewExtractor()

	info := e.Extract("ZABKA Z1748 K.1 /WARSZAWA")

	assert.Equal(t, "Żabka", info.MerchantName)
	assert.Equal(t, "Z1748 K.1", info.StoreIdentifier)
	assert.Equal(t, "Warszawa", info.Location)
	assert.Equal(t, 0.9, info.Confidence)
	assert.Equal(t, "ZABKA Z1748 K.1 /WARSZAWA", info.RawText)
}

func TestExtractCascade(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name       string
		title      string
		merchant   string
		store      string
		location   string
		confidence float64
	}{
		{
			"numeric store id",
			"ROSSMANN 129 /Warszawa",
			"Rossmann", "129", "Warszawa", 0.9,
		},
		{
			"trailing word without store id",
			"DECATHLON WARSZAWA /WARSZAWA",
			"Decathlon", "", "Warszawa", 0.8,
		},
		{
			"free text merchant",
			"Kino Wisla /WARSZAWA",
			"Kino Wisla", "", "Warszawa", 0.7,
		},
		{
			"no slash leading run",
			"PRZELEW WEWNETRZNY WYCHODZACY",
			"Przelew Wewnetrzny Wychodzacy", "", "", 0.5,
		},
		{
			"fallback whole title",
			"4255XXXX1234 PŁATNOŚĆ 09/25",
			"4255XXXX1234 PŁATNOŚĆ 09/25", "", "", 0.3,
		},
		{
			"unknown brand title cased",
			"PIEKARNIA NOWAKOWSKI 12 /KRAKOW",
			"Piekarnia Nowakowski", "12", "Krakow", 0.9,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info := e.Extract(tc.title)
			assert.Equal(t, tc.merchant, info.MerchantName)
			assert.Equal(t, tc.store, info.StoreIdentifier)
			assert.Equal(t, tc.location, info.Location)
			assert.Equal(t, tc.confidence, info.Confidence)
		})
	}
}

func TestExtractEmptyTitle(t *testing.T) {
	e := NewExtractor()

	for _, title := range []string{"", "   "} {
		info := e.Extract(title)
		assert.Empty(t, info.MerchantName)
		assert.Equal(t, 0.0, info.Confidence)
	}
}

func TestExtractNoSlashConfidenceCap(t *testing.T) {
	e := NewExtractor()

	info := e.Extract("BIEDRONKA 123")
	assert.LessOrEqual(t, info.Confidence, 0.5)
}

func TestExtractPolishLocation(t *testing.T) {
	e := NewExtractor()

	info := e.Extract("APTEKA GEMINI 7 /BIELSKO-BIAŁA")
	assert.Equal(t, "Bielsko-Biała", info.Location)
}

func TestExtractLocationAfterLastSlash(t *testing.T) {
	e := NewExtractor()

	info := e.Extract("ORLEN 4112 /K1/GDANSK")
	assert.Equal(t, "Gdansk", info.Location)
	assert.Equal(t, "Orlen", info.MerchantName)
}

func TestNormalizeNameRules(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"known brand substring", "ZABKA POLSKA", "Żabka"},
		{"short acronym preserved", "PKP INTERCITY", "PKP Intercity"},
		{"dot and acronym tokens preserved", "FIRMA SP. ZOO", "Firma SP. ZOO"},
		{"ampersand token preserved", "JOHNSON J&J SKLEP", "Johnson J&J Sklep"},
		{"plain title casing", "WARZYWNIAK", "Warzywniak"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, e.normalizeName(tc.raw))
		})
	}
}

func TestExtractDeterministic(t *testing.T) {
	e := NewExtractor()
	title := "MCDONALDS 405 /POZNAN"

	first := e.Extract(title)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.Extract(title))
	}
	assert.Equal(t, "McDonald's", first.MerchantName)
}

func TestLoadBrandTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brands.yaml")
	content := "brands:\n  - pattern: ZABKA\n    display: Żabka\n  - pattern: TESCO\n    display: Tesco\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	brands, err := LoadBrandTable(path)
	require.NoError(t, err)
	require.Len(t, brands, 2)
	assert.Equal(t, "TESCO", brands[1].Pattern)

	e := NewExtractorWithBrands(brands)
	info := e.Extract("TESCO 99 /LODZ")
	assert.Equal(t, "Tesco", info.MerchantName)
}

func TestLoadBrandTableErrors(t *testing.T) {
	_, err := LoadBrandTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("brands: []\n"), 0o600))
	_, err = LoadBrandTable(path)
	assert.Error(t, err)
}
