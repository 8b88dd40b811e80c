package merchant

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BrandMapping maps a raw uppercase spelling found in statement titles to
// the canonical display name of the brand.
type BrandMapping struct {
	Pattern string `yaml:"pattern"`
	Display string `yaml:"display"`
}

// brandTableFile is the YAML shape of an external brand table override.
type brandTableFile struct {
	Brands []BrandMapping `yaml:"brands"`
}

// DefaultBrandTable returns the curated raw-spelling -> display-name table
// for merchants common on Polish statements. Order matters: the first
// pattern contained in a title wins, so longer patterns come before their
// substrings.
func DefaultBrandTable() []BrandMapping {
	return []BrandMapping{
		{Pattern: "GREEN CAFFE NERO", Display: "Green Caffè Nero"},
		{Pattern: "COSTA COFFEE", Display: "Costa Coffee"},
		{Pattern: "CINEMA CITY", Display: "Cinema City"},
		{Pattern: "ZABKA", Display: "Żabka"},
		{Pattern: "BIEDRONKA", Display: "Biedronka"},
		{Pattern: "ROSSMANN", Display: "Rossmann"},
		{Pattern: "DECATHLON", Display: "Decathlon"},
		{Pattern: "LIDL", Display: "Lidl"},
		{Pattern: "AUCHAN", Display: "Auchan"},
		{Pattern: "CARREFOUR", Display: "Carrefour"},
		{Pattern: "KAUFLAND", Display: "Kaufland"},
		{Pattern: "ZARA", Display: "Zara"},
		{Pattern: "H&M", Display: "H&M"},
		{Pattern: "RESERVED", Display: "Reserved"},
		{Pattern: "HELIOS", Display: "Helios"},
		{Pattern: "MEDICOVER", Display: "Medicover"},
		{Pattern: "ORLEN", Display: "Orlen"},
		{Pattern: "SHELL", Display: "Shell"},
		{Pattern: "MCDONALD", Display: "McDonald's"},
		{Pattern: "STARBUCKS", Display: "Starbucks"},
		{Pattern: "KFC", Display: "KFC"},
		{Pattern: "BP", Display: "BP"},
	}
}

// LoadBrandTable reads a brand table from a YAML file:
//
//	brands:
//	  - pattern: ZABKA
//	    display: Żabka
func LoadBrandTable(path string) ([]BrandMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading brand table %s: %w", path, err)
	}

	var file brandTableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error parsing brand table %s: %w", path, err)
	}
	if len(file.Brands) == 0 {
		return nil, fmt.Errorf("brand table %s contains no brands", path)
	}
	return file.Brands, nil
}
