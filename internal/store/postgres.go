package store

import (
	"context"
	"errors"
	"fmt"

	"dkowalski/mbank-ledger/internal/importerror"
	"dkowalski/mbank-ledger/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint errors.
const uniqueViolation = "23505"

// querier is the query surface shared by *pgxpool.Pool and pgx.Tx, so
// every store method works both in autocommit mode and inside an open
// transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is a pgx-backed Storage implementation. The unique
// indexes declared in schema back the dedup guarantees; a losing
// check-then-insert race surfaces as a StorageConflictError that callers
// count as a duplicate.
type PostgresStore struct {
	pool *pgxpool.Pool
	db   querier
}

// NewPostgresStore connects a pool to the given DSN.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging postgres: %w", err)
	}
	return &PostgresStore{pool: pool, db: pool}, nil
}

// RunInTransaction runs fn against a store bound to a single database
// transaction, committing when fn returns nil and rolling back otherwise.
// Called on a store that is already transaction-bound, it reuses the open
// transaction.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(Storage) error) error {
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PostgresStore{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS import_batches (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL,
	file_name TEXT NOT NULL,
	file_hash CHAR(64) NOT NULL,
	account_number TEXT,
	account_type TEXT,
	currency CHAR(3),
	period_start DATE,
	period_end DATE,
	raw_content TEXT,
	transactions_imported INT NOT NULL DEFAULT 0,
	duplicates_skipped INT NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT import_batches_tenant_file_hash_key UNIQUE (tenant_id, file_hash)
);

CREATE TABLE IF NOT EXISTS transactions (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL,
	import_batch_id UUID REFERENCES import_batches(id) ON DELETE SET NULL,
	transaction_hash CHAR(64) NOT NULL,
	booking_date DATE NOT NULL,
	transaction_date DATE,
	operation_type TEXT NOT NULL,
	title TEXT NOT NULL,
	raw_title TEXT,
	sender_recipient TEXT,
	account_number TEXT,
	amount NUMERIC(15,2) NOT NULL,
	balance_after NUMERIC(15,2),
	currency CHAR(3),
	merchant_name TEXT,
	store_identifier TEXT,
	location TEXT,
	merchant_confidence NUMERIC(3,2),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT transactions_hash_key UNIQUE (transaction_hash)
);

CREATE TABLE IF NOT EXISTS tags (
	id UUID PRIMARY KEY,
	tenant_id UUID NOT NULL,
	name TEXT NOT NULL,
	display_name TEXT NOT NULL,
	color CHAR(7),
	usage_count INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT tags_tenant_name_key UNIQUE (tenant_id, name)
);

CREATE TABLE IF NOT EXISTS transaction_tags (
	transaction_id UUID NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
	tag_id UUID NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (transaction_id, tag_id)
);
`

// Migrate creates the schema when it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("error applying schema: %w", err)
	}
	return nil
}

// conflictError maps a unique violation to the StorageConflictError the
// import pipeline counts as a duplicate; other errors pass through.
func conflictError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &importerror.StorageConflictError{
			Constraint: pgErr.ConstraintName,
			Err:        err,
		}
	}
	return err
}

// FindImportByFileHash returns the batch for a tenant+file digest, or nil.
func (s *PostgresStore) FindImportByFileHash(ctx context.Context, tenantID uuid.UUID, fileHash string) (*models.ImportBatch, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, tenant_id, file_name, file_hash, account_number, account_type,
		       currency, period_start, period_end, raw_content,
		       transactions_imported, duplicates_skipped, status, error_message, created_at
		FROM import_batches
		WHERE tenant_id = $1 AND file_hash = $2`,
		tenantID, fileHash)

	batch, err := scanBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding import batch: %w", err)
	}
	return batch, nil
}

func scanBatch(row pgx.Row) (*models.ImportBatch, error) {
	var b models.ImportBatch
	var accountNumber, accountType, currency, rawContent, errorMessage *string
	err := row.Scan(&b.ID, &b.TenantID, &b.FileName, &b.FileHash,
		&accountNumber, &accountType, &currency, &b.PeriodStart, &b.PeriodEnd,
		&rawContent, &b.TransactionsImported, &b.DuplicatesSkipped,
		&b.Status, &errorMessage, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	b.AccountNumber = deref(accountNumber)
	b.AccountType = deref(accountType)
	b.Currency = deref(currency)
	b.RawContent = deref(rawContent)
	b.ErrorMessage = deref(errorMessage)
	return &b, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// InsertImportBatch persists a new batch. A duplicate tenant+file_hash is
// reported as a StorageConflictError via DO NOTHING so it does not abort
// an open transaction.
func (s *PostgresStore) InsertImportBatch(ctx context.Context, batch *models.ImportBatch) error {
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}

	tag, err := s.db.Exec(ctx, `
		INSERT INTO import_batches
			(id, tenant_id, file_name, file_hash, account_number, account_type,
			 currency, period_start, period_end, raw_content, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT ON CONSTRAINT import_batches_tenant_file_hash_key DO NOTHING`,
		batch.ID, batch.TenantID, batch.FileName, batch.FileHash,
		batch.AccountNumber, batch.AccountType, batch.Currency,
		batch.PeriodStart, batch.PeriodEnd, batch.RawContent, batch.Status)
	if err != nil {
		return conflictError(err)
	}
	if tag.RowsAffected() == 0 {
		return &importerror.StorageConflictError{
			Constraint: "import_batches_tenant_file_hash_key",
			Err:        fmt.Errorf("file hash %s already imported for tenant", batch.FileHash),
		}
	}
	return nil
}

// UpdateImportBatch writes back counts, status and error message.
func (s *PostgresStore) UpdateImportBatch(ctx context.Context, batch *models.ImportBatch) error {
	_, err := s.db.Exec(ctx, `
		UPDATE import_batches
		SET transactions_imported = $2, duplicates_skipped = $3,
		    status = $4, error_message = $5
		WHERE id = $1`,
		batch.ID, batch.TransactionsImported, batch.DuplicatesSkipped,
		batch.Status, batch.ErrorMessage)
	if err != nil {
		return fmt.Errorf("error updating import batch: %w", err)
	}
	return nil
}

// TransactionHashExists reports whether a row digest is already persisted.
func (s *PostgresStore) TransactionHashExists(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE transaction_hash = $1)`,
		hash).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking transaction hash: %w", err)
	}
	return exists, nil
}

// InsertTransaction persists a ledger entry. A duplicate transaction_hash
// is reported as a StorageConflictError via DO NOTHING so the rest of the
// batch can continue inside the same transaction.
func (s *PostgresStore) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	tag, err := s.db.Exec(ctx, `
		INSERT INTO transactions
			(id, tenant_id, import_batch_id, transaction_hash, booking_date,
			 transaction_date, operation_type, title, raw_title, sender_recipient,
			 account_number, amount, balance_after, currency,
			 merchant_name, store_identifier, location, merchant_confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT ON CONSTRAINT transactions_hash_key DO NOTHING`,
		tx.ID, tx.TenantID, tx.ImportBatchID, tx.TransactionHash, tx.BookingDate,
		tx.TransactionDate, tx.OperationType, tx.Title, tx.RawTitle, tx.SenderRecipient,
		tx.AccountNumber, tx.Amount, tx.BalanceAfter, tx.Currency,
		nullable(tx.MerchantName), nullable(tx.StoreIdentifier), nullable(tx.Location),
		tx.MerchantConfidence)
	if err != nil {
		return conflictError(err)
	}
	if tag.RowsAffected() == 0 {
		return &importerror.StorageConflictError{
			Constraint: "transactions_hash_key",
			Err:        fmt.Errorf("transaction hash %s already exists", tx.TransactionHash),
		}
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

const transactionColumns = `
	id, tenant_id, import_batch_id, transaction_hash, booking_date,
	transaction_date, operation_type, title, raw_title, sender_recipient,
	account_number, amount, balance_after, currency,
	merchant_name, store_identifier, location, merchant_confidence, created_at`

func scanTransactions(rows pgx.Rows) ([]*models.Transaction, error) {
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		var rawTitle, senderRecipient, accountNumber, currency *string
		var merchantName, storeIdentifier, location *string
		err := rows.Scan(&t.ID, &t.TenantID, &t.ImportBatchID, &t.TransactionHash,
			&t.BookingDate, &t.TransactionDate, &t.OperationType, &t.Title,
			&rawTitle, &senderRecipient, &accountNumber, &t.Amount,
			&t.BalanceAfter, &currency, &merchantName, &storeIdentifier,
			&location, &t.MerchantConfidence, &t.CreatedAt)
		if err != nil {
			return nil, err
		}
		t.RawTitle = deref(rawTitle)
		t.SenderRecipient = deref(senderRecipient)
		t.AccountNumber = deref(accountNumber)
		t.Currency = deref(currency)
		t.MerchantName = deref(merchantName)
		t.StoreIdentifier = deref(storeIdentifier)
		t.Location = deref(location)
		out = append(out, &t)
	}
	return out, rows.Err()
}

// TransactionsByBatch returns every transaction of an import batch.
func (s *PostgresStore) TransactionsByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.Transaction, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE import_batch_id = $1 ORDER BY booking_date, transaction_hash`,
		batchID)
	if err != nil {
		return nil, fmt.Errorf("error listing batch transactions: %w", err)
	}
	return scanTransactions(rows)
}

// ListTransactions returns a tenant's ledger ordered by booking date.
func (s *PostgresStore) ListTransactions(ctx context.Context, tenantID uuid.UUID) ([]*models.Transaction, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE tenant_id = $1 ORDER BY booking_date, transaction_hash`,
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("error listing transactions: %w", err)
	}
	return scanTransactions(rows)
}

// UpdateTransactionEnrichment writes back the merchant fields.
func (s *PostgresStore) UpdateTransactionEnrichment(ctx context.Context, tx *models.Transaction) error {
	_, err := s.db.Exec(ctx, `
		UPDATE transactions
		SET merchant_name = $2, store_identifier = $3, location = $4,
		    merchant_confidence = $5
		WHERE id = $1`,
		tx.ID, nullable(tx.MerchantName), nullable(tx.StoreIdentifier),
		nullable(tx.Location), tx.MerchantConfidence)
	if err != nil {
		return fmt.Errorf("error updating enrichment: %w", err)
	}
	return nil
}

// FindOrCreateTag returns the tenant's tag, creating it when absent. The
// upsert resolves a concurrent create by returning the winner's row.
func (s *PostgresStore) FindOrCreateTag(ctx context.Context, tenantID uuid.UUID, name, displayName, color string) (*models.Tag, error) {
	tag := models.Tag{TenantID: tenantID, Name: name}
	err := s.db.QueryRow(ctx, `
		INSERT INTO tags (id, tenant_id, name, display_name, color)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT tags_tenant_name_key
		DO UPDATE SET name = EXCLUDED.name
		RETURNING id, display_name, color, usage_count, created_at`,
		uuid.New(), tenantID, name, displayName, color).
		Scan(&tag.ID, &tag.DisplayName, &tag.Color, &tag.UsageCount, &tag.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error upserting tag '%s': %w", name, err)
	}
	return &tag, nil
}

// TagTransaction associates a tag with a transaction; repeats are no-ops.
func (s *PostgresStore) TagTransaction(ctx context.Context, transactionID, tagID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO transaction_tags (transaction_id, tag_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		transactionID, tagID)
	if err != nil {
		return fmt.Errorf("error tagging transaction: %w", err)
	}
	return nil
}

// TagNamesByTransaction returns the tenant's transaction-to-tag-names
// mapping, keyed by transaction ID string.
func (s *PostgresStore) TagNamesByTransaction(ctx context.Context, tenantID uuid.UUID) (map[string][]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT tt.transaction_id, t.name
		FROM transaction_tags tt
		JOIN tags t ON t.id = tt.tag_id
		WHERE t.tenant_id = $1
		ORDER BY tt.transaction_id, t.name`,
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("error listing transaction tags: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var txID uuid.UUID
		var name string
		if err := rows.Scan(&txID, &name); err != nil {
			return nil, err
		}
		out[txID.String()] = append(out[txID.String()], name)
	}
	return out, rows.Err()
}

// RecountTagUsage recomputes usage_count from the association table.
func (s *PostgresStore) RecountTagUsage(ctx context.Context, tagID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		UPDATE tags
		SET usage_count = (SELECT count(*) FROM transaction_tags WHERE tag_id = $1)
		WHERE id = $1
		RETURNING usage_count`,
		tagID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error recounting tag usage: %w", err)
	}
	return count, nil
}
