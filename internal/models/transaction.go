package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchStatus is the lifecycle state of an import batch. A batch never
// stays in processing beyond the import call that created it.
type BatchStatus string

const (
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
)

// DefaultCurrency is assumed when the statement metadata carries no
// currency line.
const DefaultCurrency = "PLN"

// Transaction is a persisted ledger entry. TransactionHash is the globally
// unique dedup key; two rows with the same hash describe the same
// real-world transaction and are never both stored.
type Transaction struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	ImportBatchID *uuid.UUID

	TransactionHash string

	BookingDate     time.Time
	TransactionDate *time.Time
	OperationType   string
	Title           string
	RawTitle        string
	SenderRecipient string
	AccountNumber   string
	Amount          decimal.Decimal
	BalanceAfter    *decimal.Decimal
	Currency        string

	// Enrichment, attached after ingestion. A nil confidence marks a
	// transaction the extractor has not visited yet.
	MerchantName       string
	StoreIdentifier    string
	Location           string
	MerchantConfidence *float64

	CreatedAt time.Time
}

// Enriched reports whether the merchant extractor has already processed
// this transaction.
func (t *Transaction) Enriched() bool {
	return t.MerchantConfidence != nil
}

// ImportBatch tracks one statement file upload. FileHash is unique per
// tenant and gates whole-file re-import.
type ImportBatch struct {
	ID       uuid.UUID
	TenantID uuid.UUID

	FileName string
	FileHash string

	AccountNumber string
	AccountType   string
	Currency      string
	PeriodStart   *time.Time
	PeriodEnd     *time.Time

	// RawContent is the decoded statement text, kept for audit/re-parse.
	RawContent string

	TransactionsImported int
	DuplicatesSkipped    int
	Status               BatchStatus
	ErrorMessage         string

	CreatedAt time.Time
}
