package tagging

import (
	"sort"
	"strings"

	"dkowalski/mbank-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// Engine derives tag suggestions for a transaction from five sources:
// the extracted merchant name, the operation type, keywords in the
// title, the signed amount, and the extracted location. Suggestions are
// a union; no source overrides another.
type Engine struct {
	table *TagTable

	majorExpenseThreshold  decimal.Decimal
	smallPurchaseThreshold decimal.Decimal
}

// NewEngine builds an engine with the given table and amount-band
// thresholds. Thresholds are magnitudes in statement currency.
func NewEngine(table *TagTable, majorExpenseThreshold, smallPurchaseThreshold float64) *Engine {
	if table == nil {
		table = DefaultTagTable()
	}
	return &Engine{
		table:                  table,
		majorExpenseThreshold:  decimal.NewFromFloat(majorExpenseThreshold),
		smallPurchaseThreshold: decimal.NewFromFloat(smallPurchaseThreshold),
	}
}

// Suggest returns the normalized tag names suggested for a transaction,
// sorted for deterministic output.
func (e *Engine) Suggest(tx *models.Transaction) []string {
	suggested := make(map[string]struct{})

	add := func(tags []string) {
		for _, tag := range tags {
			suggested[models.NormalizeTagName(tag)] = struct{}{}
		}
	}
	matchTable := func(text string, table map[string][]string) {
		lower := strings.ToLower(text)
		for fragment, tags := range table {
			if strings.Contains(lower, fragment) {
				add(tags)
			}
		}
	}

	if tx.MerchantName != "" {
		matchTable(tx.MerchantName, e.table.Merchant)
	}
	matchTable(tx.OperationType, e.table.Operation)
	matchTable(tx.Title, e.table.Keyword)
	add(e.amountTags(tx.Amount))
	if tx.Location != "" {
		matchTable(tx.Location, e.table.Keyword)
	}

	names := make([]string, 0, len(suggested))
	for name := range suggested {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// amountTags classifies the signed amount. Negative amounts are expenses
// and fall into at most one magnitude band; non-negative amounts,
// including zero, are income.
func (e *Engine) amountTags(amount decimal.Decimal) []string {
	if amount.IsNegative() {
		tags := []string{"expense"}
		magnitude := amount.Abs()
		switch {
		case magnitude.GreaterThan(e.majorExpenseThreshold):
			tags = append(tags, "major-expense")
		case magnitude.LessThan(e.smallPurchaseThreshold):
			tags = append(tags, "small-purchase")
		}
		return tags
	}
	return []string{"income"}
}
