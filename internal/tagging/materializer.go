package tagging

import (
	"context"

	"dkowalski/mbank-ledger/internal/logging"
	"dkowalski/mbank-ledger/internal/models"
	"dkowalski/mbank-ledger/internal/store"

	"github.com/google/uuid"
)

// Materializer persists tag suggestions: it resolves each suggested name
// to a tenant tag (creating it on first use), links it to the
// transaction, and refreshes the tag's usage count. Re-running it over
// the same transaction is a no-op.
type Materializer struct {
	storage store.Storage
	logger  logging.Logger
}

// NewMaterializer creates a Materializer over the given storage.
func NewMaterializer(storage store.Storage, logger logging.Logger) *Materializer {
	return &Materializer{storage: storage, logger: logger}
}

// Apply attaches the suggested tags to a transaction and returns the
// resolved tags.
func (m *Materializer) Apply(ctx context.Context, tenantID uuid.UUID, tx *models.Transaction, names []string) ([]*models.Tag, error) {
	tags := make([]*models.Tag, 0, len(names))
	for _, raw := range names {
		name := models.NormalizeTagName(raw)
		if name == "" {
			continue
		}

		tag, err := m.storage.FindOrCreateTag(ctx, tenantID, name,
			models.TagDisplayName(name), ColorForTag(name))
		if err != nil {
			return nil, err
		}

		if err := m.storage.TagTransaction(ctx, tx.ID, tag.ID); err != nil {
			return nil, err
		}
		if _, err := m.storage.RecountTagUsage(ctx, tag.ID); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}

	m.logger.WithFields(
		logging.Field{Key: logging.FieldCount, Value: len(tags)},
		logging.Field{Key: logging.FieldRow, Value: tx.TransactionHash},
	).Debug("applied tag suggestions")
	return tags, nil
}
