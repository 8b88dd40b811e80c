package tagging

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TagTable holds the curated substring-to-tags mappings the suggestion
// engine matches against. All keys are lowercase; matching is
// case-insensitive substring containment.
type TagTable struct {
	// Merchant maps a merchant name fragment to tags, matched against the
	// extracted merchant name.
	Merchant map[string][]string `yaml:"merchant"`

	// Operation maps a statement operation type fragment to tags.
	Operation map[string][]string `yaml:"operation"`

	// Keyword maps a fragment to tags, matched against both the
	// transaction title and the extracted location.
	Keyword map[string][]string `yaml:"keyword"`
}

// DefaultTagTable returns the built-in mappings curated for Polish bank
// statements.
func DefaultTagTable() *TagTable {
	return &TagTable{
		Merchant: map[string][]string{
			"żabka":     {"grocery", "convenience-store", "shopping"},
			"biedronka": {"grocery", "shopping"},
			"lidl":      {"grocery", "shopping"},
			"carrefour": {"grocery", "shopping"},
			"rossmann":  {"personal-care", "shopping"},
			"decathlon": {"sports", "shopping"},
			"reserved":  {"clothing", "shopping"},
			"zara":      {"clothing", "shopping"},
			"h&m":       {"clothing", "shopping"},
			"uber":      {"transport", "taxi"},
			"bolt":      {"transport", "taxi"},
			"orlen":     {"fuel", "transport"},
			"shell":     {"fuel", "transport"},
			"bp":        {"fuel", "transport"},
			"mcdonald":  {"food", "fast-food", "dining"},
			"kfc":       {"food", "fast-food", "dining"},
			"starbucks": {"food", "coffee", "dining"},
			"costa":     {"food", "coffee", "dining"},
			"piekarnia": {"food", "bakery"},
			"caffe":     {"food", "coffee", "dining"},
			"helios":    {"entertainment", "cinema"},
			"cinema":    {"entertainment", "cinema"},
			"kino":      {"entertainment", "cinema"},
			"medicover": {"health", "medical"},
			"apteka":    {"health", "pharmacy"},
		},
		Operation: map[string][]string{
			"zakup przy użyciu karty": {"card-payment"},
			"przelew":                 {"transfer"},
			"wypłata z bankomatu":     {"cash-withdrawal", "atm"},
			"blik":                    {"blik", "mobile-payment"},
			"płatność":                {"payment"},
		},
		Keyword: map[string][]string{
			"parking":       {"transport", "parking"},
			"hotel":         {"accommodation", "travel"},
			"airbnb":        {"accommodation", "travel"},
			"booking":       {"travel"},
			"warszawa":      {"warsaw"},
			"kraków":        {"krakow"},
			"wrocław":       {"wroclaw"},
			"gdańsk":        {"gdansk"},
			"salary":        {"income", "salary"},
			"wynagrodzenie": {"income", "salary"},
			"netflix":       {"subscription", "entertainment"},
			"spotify":       {"subscription", "entertainment"},
			"internet":      {"subscription", "utilities"},
			"energia":       {"utilities", "electricity"},
			"gaz":           {"utilities", "gas"},
			"woda":          {"utilities", "water"},
		},
	}
}

// LoadTagTable reads a table from a YAML file. Sections missing from the
// file fall back to the built-in defaults, so an override file only needs
// to redefine what it changes. Fragments are lowercased on load because
// matching expects lowercase keys.
func LoadTagTable(path string) (*TagTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading tag table %s: %w", path, err)
	}

	var loaded TagTable
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("error parsing tag table %s: %w", path, err)
	}

	table := DefaultTagTable()
	if loaded.Merchant != nil {
		table.Merchant = lowercaseKeys(loaded.Merchant)
	}
	if loaded.Operation != nil {
		table.Operation = lowercaseKeys(loaded.Operation)
	}
	if loaded.Keyword != nil {
		table.Keyword = lowercaseKeys(loaded.Keyword)
	}
	return table, nil
}

func lowercaseKeys(section map[string][]string) map[string][]string {
	out := make(map[string][]string, len(section))
	for fragment, tags := range section {
		out[strings.ToLower(fragment)] = tags
	}
	return out
}
