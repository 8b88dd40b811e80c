package tagging

import (
	"testing"

	"dkowalski/mbank-ledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine() *Engine {
	return NewEngine(DefaultTagTable(), 500, 20)
}

func TestEngineSuggest_CardPurchaseAtConvenienceStore(t *testing.T) {
	tx := &models.Transaction{
		MerchantName:  "Żabka",
		OperationType: "ZAKUP PRZY UŻYCIU KARTY",
		Title:         "ZABKA Z1748 K.1 /WARSZAWA",
		Location:      "Warszawa",
		Amount:        decimal.NewFromFloat(-15.00),
	}

	tags := newEngine().Suggest(tx)

	expected := []string{
		"grocery", "convenience-store", "shopping",
		"card-payment",
		"expense", "small-purchase",
		"warsaw",
	}
	for _, want := range expected {
		assert.Contains(t, tags, want)
	}
	assert.NotContains(t, tags, "income")
	assert.NotContains(t, tags, "major-expense")
}

func TestEngineSuggest_BlikPurchase(t *testing.T) {
	tx := &models.Transaction{
		MerchantName:  "Żabka",
		OperationType: "ZAKUP BLIK",
		Title:         "ZABKA Z1748 K.1 /WARSZAWA",
		Amount:        decimal.NewFromFloat(-15.00),
	}

	tags := newEngine().Suggest(tx)
	for _, want := range []string{
		"grocery", "convenience-store", "shopping",
		"blik", "mobile-payment",
		"expense", "small-purchase",
	} {
		assert.Contains(t, tags, want)
	}
}

func TestEngineSuggest_AmountBands(t *testing.T) {
	tests := []struct {
		name        string
		amount      string
		wantTags    []string
		notWantTags []string
	}{
		{
			name:        "large negative amount is a major expense",
			amount:      "-1113.28",
			wantTags:    []string{"expense", "major-expense"},
			notWantTags: []string{"small-purchase", "income"},
		},
		{
			name:        "small negative amount is a small purchase",
			amount:      "-15.00",
			wantTags:    []string{"expense", "small-purchase"},
			notWantTags: []string{"major-expense", "income"},
		},
		{
			name:        "mid-range negative amount gets no magnitude band",
			amount:      "-100.00",
			wantTags:    []string{"expense"},
			notWantTags: []string{"major-expense", "small-purchase", "income"},
		},
		{
			name:        "threshold magnitude is not a major expense",
			amount:      "-500.00",
			wantTags:    []string{"expense"},
			notWantTags: []string{"major-expense", "small-purchase"},
		},
		{
			name:        "threshold magnitude is not a small purchase",
			amount:      "-20.00",
			wantTags:    []string{"expense"},
			notWantTags: []string{"major-expense", "small-purchase"},
		},
		{
			name:        "positive amount is income",
			amount:      "4500.00",
			wantTags:    []string{"income"},
			notWantTags: []string{"expense"},
		},
		{
			name:        "zero is income",
			amount:      "0.00",
			wantTags:    []string{"income"},
			notWantTags: []string{"expense"},
		},
	}

	engine := newEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := decimal.NewFromString(tt.amount)
			require.NoError(t, err)

			tags := engine.Suggest(&models.Transaction{
				OperationType: "PRZELEW",
				Title:         "x",
				Amount:        amount,
			})
			for _, want := range tt.wantTags {
				assert.Contains(t, tags, want)
			}
			for _, notWant := range tt.notWantTags {
				assert.NotContains(t, tags, notWant)
			}
		})
	}
}

func TestEngineSuggest_OperationTypes(t *testing.T) {
	tests := []struct {
		operation string
		wantTags  []string
	}{
		{"ZAKUP PRZY UŻYCIU KARTY", []string{"card-payment"}},
		{"PRZELEW PRZYCHODZĄCY", []string{"transfer"}},
		{"WYPŁATA Z BANKOMATU", []string{"cash-withdrawal", "atm"}},
		{"PRZELEW BLIK", []string{"blik", "mobile-payment", "transfer"}},
		{"PŁATNOŚĆ INTERNETOWA", []string{"payment"}},
	}

	engine := newEngine()
	for _, tt := range tests {
		t.Run(tt.operation, func(t *testing.T) {
			tags := engine.Suggest(&models.Transaction{
				OperationType: tt.operation,
				Amount:        decimal.NewFromInt(-100),
			})
			for _, want := range tt.wantTags {
				assert.Contains(t, tags, want)
			}
		})
	}
}

func TestEngineSuggest_TitleAndLocationKeywords(t *testing.T) {
	engine := newEngine()

	tags := engine.Suggest(&models.Transaction{
		OperationType: "PRZELEW",
		Title:         "NETFLIX.COM subscription",
		Amount:        decimal.NewFromInt(-43),
	})
	assert.Contains(t, tags, "subscription")
	assert.Contains(t, tags, "entertainment")

	// Keyword matching also runs over the extracted location.
	tags = engine.Suggest(&models.Transaction{
		OperationType: "ZAKUP PRZY UŻYCIU KARTY",
		Title:         "SKLEP 12 /KRAKOW",
		Location:      "Kraków",
		Amount:        decimal.NewFromInt(-30),
	})
	assert.Contains(t, tags, "krakow")
}

func TestEngineSuggest_MerchantMatchIsCaseInsensitive(t *testing.T) {
	engine := newEngine()

	tags := engine.Suggest(&models.Transaction{
		MerchantName:  "McDonald's",
		OperationType: "ZAKUP PRZY UŻYCIU KARTY",
		Amount:        decimal.NewFromInt(-35),
	})
	assert.Contains(t, tags, "food")
	assert.Contains(t, tags, "fast-food")
	assert.Contains(t, tags, "dining")
}

func TestEngineSuggest_DeterministicOrder(t *testing.T) {
	engine := newEngine()
	tx := &models.Transaction{
		MerchantName:  "Żabka",
		OperationType: "ZAKUP PRZY UŻYCIU KARTY",
		Title:         "ZABKA Z1748 K.1 /WARSZAWA",
		Location:      "Warszawa",
		Amount:        decimal.NewFromFloat(-15.00),
	}

	first := engine.Suggest(tx)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, engine.Suggest(tx))
	}
	assert.IsIncreasing(t, first)
}

func TestColorForTag(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"grocery", "#10b981"},
		{"major-expense", "#dc2626"},
		{"income", "#22c55e"},
		{"subscription", "#a855f7"},
		{"fast-food", "#f59e0b"},
		{"blik", "#6b7280"},
		{"warsaw", "#6b7280"},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, ColorForTag(tt.tag))
		})
	}
}

func TestParseTagLine(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{
			name:     "plain comma list",
			response: "grocery, shopping, card-payment",
			want:     []string{"grocery", "shopping", "card-payment"},
		},
		{
			name:     "uppercase and padding normalized",
			response: "  Grocery ,SHOPPING  ",
			want:     []string{"grocery", "shopping"},
		},
		{
			name:     "only first non-empty line considered",
			response: "\nfuel, transport\nsome explanation text",
			want:     []string{"fuel", "transport"},
		},
		{
			name:     "prose fragments dropped",
			response: "grocery, here are more tags",
			want:     []string{"grocery"},
		},
		{
			name:     "empty response",
			response: "",
			want:     nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseTagLine(tt.response))
		})
	}
}
