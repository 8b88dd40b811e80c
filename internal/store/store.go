// Package store defines the storage boundary of the import pipeline and
// provides an in-memory and a Postgres implementation. The store is the
// single place that enforces the uniqueness constraints the dedup logic
// relies on: tenant+file_hash, global transaction_hash and tenant+tag
// name. A losing race resolves to the existing row, never a generic error.
package store

import (
	"context"

	"dkowalski/mbank-ledger/internal/models"

	"github.com/google/uuid"
)

// Storage is the collaborator contract consumed by the import
// orchestrator and the tagging engine.
type Storage interface {
	// FindImportByFileHash returns the batch previously imported for this
	// tenant and file digest, or nil when the file was never imported.
	FindImportByFileHash(ctx context.Context, tenantID uuid.UUID, fileHash string) (*models.ImportBatch, error)

	// InsertImportBatch persists a new batch. A duplicate tenant+file_hash
	// yields a StorageConflictError.
	InsertImportBatch(ctx context.Context, batch *models.ImportBatch) error

	// UpdateImportBatch writes back counts, status and error message.
	UpdateImportBatch(ctx context.Context, batch *models.ImportBatch) error

	// TransactionHashExists reports whether a transaction with the given
	// row digest is already persisted, for any tenant.
	TransactionHashExists(ctx context.Context, hash string) (bool, error)

	// InsertTransaction persists a ledger entry. A duplicate
	// transaction_hash yields a StorageConflictError.
	InsertTransaction(ctx context.Context, tx *models.Transaction) error

	// TransactionsByBatch returns every transaction of an import batch.
	TransactionsByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.Transaction, error)

	// ListTransactions returns a tenant's ledger ordered by booking date.
	ListTransactions(ctx context.Context, tenantID uuid.UUID) ([]*models.Transaction, error)

	// UpdateTransactionEnrichment writes back the merchant fields.
	UpdateTransactionEnrichment(ctx context.Context, tx *models.Transaction) error

	// FindOrCreateTag returns the tenant's tag with the given normalized
	// name, creating it when absent. Must be idempotent under races.
	FindOrCreateTag(ctx context.Context, tenantID uuid.UUID, name, displayName, color string) (*models.Tag, error)

	// TagTransaction associates a tag with a transaction. Idempotent.
	TagTransaction(ctx context.Context, transactionID, tagID uuid.UUID) error

	// RecountTagUsage recomputes usage_count as the exact number of
	// active associations and returns the new value.
	RecountTagUsage(ctx context.Context, tagID uuid.UUID) (int, error)

	// TagNamesByTransaction returns a tenant's transaction-to-tag-names
	// mapping, keyed by transaction ID string, with names sorted.
	TagNamesByTransaction(ctx context.Context, tenantID uuid.UUID) (map[string][]string, error)

	// RunInTransaction executes fn against a Storage view whose writes
	// become visible atomically when fn returns nil and are discarded
	// entirely when fn returns an error. fn must use only the Storage it
	// is handed.
	RunInTransaction(ctx context.Context, fn func(Storage) error) error
}
