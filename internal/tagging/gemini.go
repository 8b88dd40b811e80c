package tagging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dkowalski/mbank-ledger/internal/logging"
	"dkowalski/mbank-ledger/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiSuggester asks a Gemini model for additional tags when the rule
// tables have nothing to say about a transaction. It is strictly
// additive: ingestion and rule-based tagging never depend on it, and any
// API failure degrades to an empty suggestion list at the call site.
type GeminiSuggester struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
	logger  logging.Logger
}

// NewGeminiSuggester creates a suggester bound to the given model name.
func NewGeminiSuggester(ctx context.Context, apiKey, modelName string, timeout time.Duration, logger logging.Logger) (*GeminiSuggester, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiSuggester{
		client:  client,
		model:   client.GenerativeModel(modelName),
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Close releases the underlying client.
func (g *GeminiSuggester) Close() error {
	return g.client.Close()
}

// Suggest returns extra normalized tag names for a transaction.
func (g *GeminiSuggester) Suggest(ctx context.Context, tx *models.Transaction) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := fmt.Sprintf(`Suggest tags for the following bank transaction:
Merchant: %s
Title: %s
Operation type: %s
Amount: %s %s

Respond with a single line of lowercase hyphenated tags separated by
commas, for example: grocery, shopping, card-payment. Respond with at
most five tags and nothing else.`,
		tx.MerchantName,
		tx.Title,
		tx.OperationType,
		tx.Amount.StringFixed(2),
		tx.Currency)

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini API")
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	tags := parseTagLine(responseText)

	g.logger.WithFields(
		logging.Field{Key: logging.FieldRow, Value: tx.TransactionHash},
		logging.Field{Key: logging.FieldCount, Value: len(tags)},
	).Debug("gemini suggested tags")
	return tags, nil
}

// parseTagLine extracts normalized tag names from a model response. Only
// the first non-empty line is considered; anything that does not look
// like a tag name is dropped.
func parseTagLine(response string) []string {
	var line string
	for _, l := range strings.Split(response, "\n") {
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}

	var tags []string
	for _, part := range strings.Split(line, ",") {
		name := models.NormalizeTagName(part)
		if name == "" || strings.ContainsAny(name, " :") {
			continue
		}
		tags = append(tags, name)
	}
	return tags
}
