// Package importer orchestrates the statement ingestion pipeline: decode,
// parse, dedup, persist, enrich. It is the only package that moves a
// batch through its lifecycle states.
package importer

import (
	"context"
	"errors"

	"dkowalski/mbank-ledger/internal/importerror"
	"dkowalski/mbank-ledger/internal/logging"
	"dkowalski/mbank-ledger/internal/merchant"
	"dkowalski/mbank-ledger/internal/models"
	"dkowalski/mbank-ledger/internal/statement"
	"dkowalski/mbank-ledger/internal/store"
	"dkowalski/mbank-ledger/internal/tagging"

	"github.com/google/uuid"
)

// AISuggester is the optional model-backed tag source. A nil suggester
// disables the step entirely.
type AISuggester interface {
	Suggest(ctx context.Context, tx *models.Transaction) ([]string, error)
}

// Service runs statement imports and enrichment for all tenants.
type Service struct {
	storage      store.Storage
	extractor    *merchant.Extractor
	engine       *tagging.Engine
	materializer *tagging.Materializer
	ai           AISuggester
	logger       logging.Logger
}

// NewService wires the ingestion pipeline together. The AI suggester may
// be nil.
func NewService(storage store.Storage, extractor *merchant.Extractor, engine *tagging.Engine, ai AISuggester, logger logging.Logger) *Service {
	return &Service{
		storage:      storage,
		extractor:    extractor,
		engine:       engine,
		materializer: tagging.NewMaterializer(storage, logger),
		ai:           ai,
		logger:       logger,
	}
}

// Import ingests one statement file for a tenant. On success the returned
// batch is completed and carries the imported/duplicate counts. A re-import
// of a file the tenant already ingested returns a DuplicateFileError and
// creates nothing. The batch and its transactions are persisted in a single
// storage transaction, so a failed import leaves nothing behind and the
// same file can be retried.
func (s *Service) Import(ctx context.Context, content []byte, fileName string, tenantID uuid.UUID) (*models.ImportBatch, error) {
	fileHash := statement.FileHash(content)
	log := s.logger.WithFields(
		logging.Field{Key: logging.FieldTenant, Value: tenantID},
		logging.Field{Key: logging.FieldFile, Value: fileName},
		logging.Field{Key: logging.FieldFileHash, Value: fileHash},
	)

	existing, err := s.storage.FindImportByFileHash(ctx, tenantID, fileHash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Info("file already imported, skipping")
		return nil, &importerror.DuplicateFileError{
			FileHash:   fileHash,
			ImportedAt: existing.CreatedAt,
		}
	}

	batch := &models.ImportBatch{
		TenantID: tenantID,
		FileName: fileName,
		FileHash: fileHash,
		Status:   models.BatchProcessing,
	}

	decoded, err := statement.Decode(content)
	if err != nil {
		return batch, s.fail(batch, log, err)
	}

	parsed, err := statement.Parse(decoded, fileName, log)
	if err != nil {
		return batch, s.fail(batch, log, err)
	}

	batch.AccountNumber = parsed.Metadata.AccountNumber
	batch.AccountType = parsed.Metadata.AccountType
	batch.Currency = parsed.Metadata.Currency
	if batch.Currency == "" {
		batch.Currency = models.DefaultCurrency
	}
	batch.PeriodStart = parsed.Metadata.PeriodStart
	batch.PeriodEnd = parsed.Metadata.PeriodEnd
	batch.RawContent = parsed.DecodedText

	err = s.storage.RunInTransaction(ctx, func(txStore store.Storage) error {
		if err := txStore.InsertImportBatch(ctx, batch); err != nil {
			return err
		}

		imported, duplicates, err := s.persistRows(ctx, txStore, batch, parsed.Rows)
		if err != nil {
			return err
		}

		batch.TransactionsImported = imported
		batch.DuplicatesSkipped = duplicates
		batch.Status = models.BatchCompleted
		return txStore.UpdateImportBatch(ctx, batch)
	})
	if err != nil {
		var conflict *importerror.StorageConflictError
		if errors.As(err, &conflict) && conflict.Constraint == "import_batches_tenant_file_hash_key" {
			// A concurrent import of the same file won the race.
			return nil, s.duplicateFile(ctx, tenantID, fileHash)
		}
		return batch, s.fail(batch, log, err)
	}

	log.WithFields(
		logging.Field{Key: logging.FieldBatch, Value: batch.ID},
		logging.Field{Key: logging.FieldImported, Value: batch.TransactionsImported},
		logging.Field{Key: logging.FieldDuplicates, Value: batch.DuplicatesSkipped},
		logging.Field{Key: logging.FieldDropped, Value: parsed.DroppedRows},
	).Info("statement import completed")
	return batch, nil
}

// duplicateFile builds the DuplicateFileError for a file hash, reading the
// winning batch back so the error carries its import timestamp.
func (s *Service) duplicateFile(ctx context.Context, tenantID uuid.UUID, fileHash string) error {
	dup := &importerror.DuplicateFileError{FileHash: fileHash}
	if winner, err := s.storage.FindImportByFileHash(ctx, tenantID, fileHash); err == nil && winner != nil {
		dup.ImportedAt = winner.CreatedAt
	}
	return dup
}

// persistRows stores parsed rows, skipping duplicates both within the
// file and against already persisted transactions.
func (s *Service) persistRows(ctx context.Context, storage store.Storage, batch *models.ImportBatch, rows []models.ParsedRow) (imported, duplicates int, err error) {
	seen := make(map[string]struct{}, len(rows))

	for _, row := range rows {
		hash := statement.RowHash(batch.TenantID, *row.BookingDate, row.TransactionDate, *row.Amount, row.Title)

		if _, dup := seen[hash]; dup {
			duplicates++
			continue
		}
		seen[hash] = struct{}{}

		exists, err := storage.TransactionHashExists(ctx, hash)
		if err != nil {
			return 0, 0, err
		}
		if exists {
			duplicates++
			continue
		}

		tx := &models.Transaction{
			TenantID:        batch.TenantID,
			ImportBatchID:   &batch.ID,
			TransactionHash: hash,
			BookingDate:     *row.BookingDate,
			TransactionDate: row.TransactionDate,
			OperationType:   row.OperationType,
			Title:           row.Title,
			RawTitle:        row.RawTitle,
			SenderRecipient: row.SenderRecipient,
			AccountNumber:   row.AccountNumber,
			Amount:          *row.Amount,
			BalanceAfter:    row.BalanceAfter,
			Currency:        batch.Currency,
		}
		if err := storage.InsertTransaction(ctx, tx); err != nil {
			// The hash check races against concurrent imports; a conflict
			// here is still just a duplicate.
			if importerror.IsDuplicate(err) {
				duplicates++
				continue
			}
			return 0, 0, err
		}
		imported++
	}
	return imported, duplicates, nil
}

// fail marks the returned batch failed with the fatal error. The batch is
// not persisted, so the file's hash stays unclaimed and a later retry of
// the same bytes is not treated as a duplicate.
func (s *Service) fail(batch *models.ImportBatch, log logging.Logger, cause error) error {
	batch.Status = models.BatchFailed
	batch.ErrorMessage = cause.Error()
	log.WithError(cause).WithField(logging.FieldStatus, string(models.BatchFailed)).
		Error("statement import failed")
	return cause
}

// EnrichBatch runs merchant extraction and tag suggestion over every
// transaction of a batch that has not been enriched yet. It returns the
// number of transactions enriched. AI suggestion failures are logged and
// skipped; they never fail the run.
func (s *Service) EnrichBatch(ctx context.Context, batchID uuid.UUID) (int, error) {
	txs, err := s.storage.TransactionsByBatch(ctx, batchID)
	if err != nil {
		return 0, err
	}
	return s.enrich(ctx, txs)
}

// EnrichTenant enriches every not-yet-enriched transaction of a tenant,
// regardless of batch.
func (s *Service) EnrichTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	txs, err := s.storage.ListTransactions(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	return s.enrich(ctx, txs)
}

func (s *Service) enrich(ctx context.Context, txs []*models.Transaction) (int, error) {
	enriched := 0
	for _, tx := range txs {
		if tx.Enriched() {
			continue
		}

		info := s.extractor.Extract(tx.Title)
		tx.MerchantName = info.MerchantName
		tx.StoreIdentifier = info.StoreIdentifier
		tx.Location = info.Location
		confidence := info.Confidence
		tx.MerchantConfidence = &confidence

		if err := s.storage.UpdateTransactionEnrichment(ctx, tx); err != nil {
			return enriched, err
		}

		names := s.engine.Suggest(tx)
		if s.ai != nil {
			aiNames, err := s.ai.Suggest(ctx, tx)
			if err != nil {
				s.logger.WithError(err).
					WithField(logging.FieldRow, tx.TransactionHash).
					Warn("ai tag suggestion failed, continuing without it")
			} else {
				names = mergeNames(names, aiNames)
			}
		}

		if _, err := s.materializer.Apply(ctx, tx.TenantID, tx, names); err != nil {
			return enriched, err
		}

		s.logger.WithFields(
			logging.Field{Key: logging.FieldRow, Value: tx.TransactionHash},
			logging.Field{Key: logging.FieldMerchant, Value: tx.MerchantName},
			logging.Field{Key: logging.FieldConfidence, Value: info.Confidence},
			logging.Field{Key: logging.FieldCount, Value: len(names)},
		).Debug("transaction enriched")
		enriched++
	}
	return enriched, nil
}

// mergeNames appends extras not already present, preserving base order.
func mergeNames(base, extras []string) []string {
	have := make(map[string]struct{}, len(base))
	for _, n := range base {
		have[n] = struct{}{}
	}
	for _, n := range extras {
		n = models.NormalizeTagName(n)
		if _, ok := have[n]; ok || n == "" {
			continue
		}
		have[n] = struct{}{}
		base = append(base, n)
	}
	return base
}
