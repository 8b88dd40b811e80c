// Package models defines the data types shared by the statement parser,
// the enrichment services and the storage layer.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ParsedMetadata holds the account metadata recovered from the leading
// section of a statement. Every field is optional: the scan is tolerant to
// missing or reordered marker lines.
type ParsedMetadata struct {
	ClientName     string
	AccountNumber  string
	AccountType    string
	Currency       string
	PeriodStart    *time.Time
	PeriodEnd      *time.Time
	OpeningBalance *decimal.Decimal
}

// ParsedSummary holds the credit/debit totals from the statement's
// turnover summary block, used for structural cross-checks.
type ParsedSummary struct {
	CreditsCount  int
	CreditsAmount *decimal.Decimal
	DebitsCount   int
	DebitsAmount  *decimal.Decimal
	TotalCount    int
	TotalAmount   *decimal.Decimal
}

// ParsedRow is one transaction row as read from the statement, before
// dedup and persistence. Nil date or amount marks a field the bank export
// left unparsable.
type ParsedRow struct {
	BookingDate     *time.Time
	TransactionDate *time.Time
	OperationType   string
	Title           string
	RawTitle        string
	SenderRecipient string
	AccountNumber   string
	Amount          *decimal.Decimal
	BalanceAfter    *decimal.Decimal
}

// ParsedStatement is the complete result of parsing one statement file.
type ParsedStatement struct {
	Metadata ParsedMetadata
	Summary  ParsedSummary
	Rows     []ParsedRow

	// DroppedRows counts rows discarded for a missing date or amount.
	DroppedRows int

	// DecodedText is the statement decoded to UTF-8, retained verbatim on
	// the import batch for audit and re-parsing.
	DecodedText string
}
