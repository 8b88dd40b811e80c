// Package export writes enriched transactions out as a ledger CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"dkowalski/mbank-ledger/internal/logging"
	"dkowalski/mbank-ledger/internal/models"

	"github.com/gocarina/gocsv"
)

// LedgerRow is the CSV shape of one exported transaction.
type LedgerRow struct {
	BookingDate     string `csv:"booking_date"`
	TransactionDate string `csv:"transaction_date"`
	OperationType   string `csv:"operation_type"`
	Title           string `csv:"title"`
	SenderRecipient string `csv:"sender_recipient"`
	Amount          string `csv:"amount"`
	Currency        string `csv:"currency"`
	BalanceAfter    string `csv:"balance_after"`
	Merchant        string `csv:"merchant"`
	StoreIdentifier string `csv:"store_identifier"`
	Location        string `csv:"location"`
	Tags            string `csv:"tags"`
	TransactionHash string `csv:"transaction_hash"`
}

// Exporter renders transactions as CSV with a fixed column set.
type Exporter struct {
	logger logging.Logger
}

// NewExporter creates an Exporter.
func NewExporter(logger logging.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// Write renders the transactions to w. tagNames maps a transaction ID
// string to its tag names; absent entries export an empty tags column.
func (e *Exporter) Write(w io.Writer, txs []*models.Transaction, tagNames map[string][]string) error {
	rows := make([]LedgerRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, toLedgerRow(tx, tagNames[tx.ID.String()]))
	}

	csvWriter := csv.NewWriter(w)
	if err := gocsv.MarshalCSV(&rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing ledger CSV: %w", err)
	}

	e.logger.WithField(logging.FieldCount, len(rows)).Info("exported transactions")
	return nil
}

func toLedgerRow(tx *models.Transaction, tags []string) LedgerRow {
	row := LedgerRow{
		BookingDate:     tx.BookingDate.Format("2006-01-02"),
		OperationType:   tx.OperationType,
		Title:           tx.Title,
		SenderRecipient: tx.SenderRecipient,
		Amount:          tx.Amount.StringFixed(2),
		Currency:        tx.Currency,
		Merchant:        tx.MerchantName,
		StoreIdentifier: tx.StoreIdentifier,
		Location:        tx.Location,
		Tags:            strings.Join(tags, "|"),
		TransactionHash: tx.TransactionHash,
	}
	if tx.TransactionDate != nil {
		row.TransactionDate = tx.TransactionDate.Format("2006-01-02")
	}
	if tx.BalanceAfter != nil {
		row.BalanceAfter = tx.BalanceAfter.StringFixed(2)
	}
	return row
}
