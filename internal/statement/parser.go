package statement

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"dkowalski/mbank-ledger/internal/dateutils"
	"dkowalski/mbank-ledger/internal/importerror"
	"dkowalski/mbank-ledger/internal/logging"
	"dkowalski/mbank-ledger/internal/models"
	"dkowalski/mbank-ledger/internal/textutils"

	"github.com/shopspring/decimal"
)

const (
	// metadataLineSpan is the fixed number of leading lines scanned for
	// labeled metadata markers.
	metadataLineSpan = 37

	// transactionStartLine is the 0-indexed line where the transaction
	// block begins (line 39 in the file, starting with the header row).
	transactionStartLine = 38

	// minRowFields is the field count below which a row terminates the
	// transaction block.
	minRowFields = 8

	delimiter = ';'
)

// Metadata marker lines of the statement header section. Markers may
// appear in any order; the value is inline, delimiter-separated or on the
// following line depending on the marker.
const (
	markerClient         = "#Klient"
	markerPeriod         = "#Za okres:"
	markerAccountType    = "#Rodzaj rachunku"
	markerCurrency       = "#Waluta"
	markerAccountNumber  = "#Numer rachunku"
	markerOpeningBalance = "#Saldo początkowe"
	markerSummary        = "#Podsumowanie obrotów"
)

// Parse reads a decoded statement into metadata, summary and transaction
// rows. Rows missing a booking date or amount are dropped and counted;
// the absence of a transaction block is fatal.
func Parse(decoded, fileName string, logger logging.Logger) (*models.ParsedStatement, error) {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}

	lines := SplitLines(decoded)

	st := &models.ParsedStatement{
		Metadata:    parseMetadata(lines),
		Summary:     parseSummary(lines),
		DecodedText: decoded,
	}

	if len(lines) <= transactionStartLine {
		return nil, &importerror.StructuralParseError{
			FileName: fileName,
			Reason:   "no transaction block located",
		}
	}

	rows, dropped := parseTransactions(lines[transactionStartLine:], logger)
	st.Rows = rows
	st.DroppedRows = dropped

	logger.Info("Parsed statement",
		logging.Field{Key: logging.FieldFile, Value: fileName},
		logging.Field{Key: logging.FieldCount, Value: len(rows)},
		logging.Field{Key: logging.FieldDropped, Value: dropped})

	return st, nil
}

// parseMetadata scans the leading line span for labeled markers. The scan
// tolerates missing and reordered markers; every field stays optional.
func parseMetadata(lines []string) models.ParsedMetadata {
	md := models.ParsedMetadata{}

	span := lines
	if len(span) > metadataLineSpan {
		span = span[:metadataLineSpan]
	}

	for i, line := range span {
		switch {
		case strings.HasPrefix(line, markerPeriod):
			parts := strings.Split(line, string(delimiter))
			if len(parts) >= 3 {
				md.PeriodStart = dateutils.ParseStatementDate(parts[1])
				md.PeriodEnd = dateutils.ParseStatementDate(parts[2])
			}

		case strings.HasPrefix(line, markerOpeningBalance):
			parts := strings.Split(line, string(delimiter))
			if len(parts) >= 2 {
				if d, err := models.ParseStatementAmount(parts[1]); err == nil {
					md.OpeningBalance = &d
				}
			}

		case strings.HasPrefix(line, markerClient):
			md.ClientName = nextLineValue(lines, i)

		case strings.HasPrefix(line, markerAccountType):
			md.AccountType = nextLineValue(lines, i)

		case strings.HasPrefix(line, markerCurrency):
			md.Currency = nextLineValue(lines, i)

		case strings.HasPrefix(line, markerAccountNumber):
			md.AccountNumber = strings.ReplaceAll(nextLineValue(lines, i), " ", "")
		}
	}

	return md
}

// nextLineValue returns the trimmed value carried on the line after a
// marker, with any trailing delimiter removed.
func nextLineValue(lines []string, markerIdx int) string {
	if markerIdx+1 >= len(lines) {
		return ""
	}
	return strings.TrimSuffix(strings.TrimSpace(lines[markerIdx+1]), string(delimiter))
}

// parseSummary locates the turnover summary block: the marker line
// followed by credits, debits and total lines.
func parseSummary(lines []string) models.ParsedSummary {
	sum := models.ParsedSummary{}

	for i, line := range lines {
		if !strings.HasPrefix(line, markerSummary) {
			continue
		}
		if i+3 >= len(lines) {
			break
		}

		sum.CreditsCount, sum.CreditsAmount = parseSummaryLine(lines[i+1])
		sum.DebitsCount, sum.DebitsAmount = parseSummaryLine(lines[i+2])
		sum.TotalCount, sum.TotalAmount = parseSummaryLine(lines[i+3])
		break
	}

	return sum
}

func parseSummaryLine(line string) (int, *decimal.Decimal) {
	parts := strings.Split(line, string(delimiter))
	if len(parts) < 3 {
		return 0, nil
	}

	count, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		count = 0
	}

	var amount *decimal.Decimal
	if d, err := models.ParseStatementAmount(parts[2]); err == nil {
		amount = &d
	}
	return count, amount
}

// parseTransactions reads the transaction block. The first line is the
// header row and is discarded. The block terminates at the first row with
// fewer than minRowFields fields or with an empty or '#'-prefixed first
// field; that is normal end of data, not an error.
func parseTransactions(block []string, logger logging.Logger) ([]models.ParsedRow, int) {
	var rows []models.ParsedRow
	dropped := 0

	// Header row is block[0].
	for lineNo, line := range block[1:] {
		if line == "" || strings.HasPrefix(line, "#") {
			break
		}

		record, err := readRecord(line)
		if err != nil {
			logger.WithError(err).Warn("Skipping malformed transaction row",
				logging.Field{Key: logging.FieldRow, Value: transactionStartLine + 2 + lineNo})
			dropped++
			continue
		}

		if len(record) < minRowFields {
			break
		}
		if record[0] == "" || strings.HasPrefix(record[0], "#") {
			break
		}

		row, ok := parseRow(record)
		if !ok {
			logger.Debug("Dropping row without date or amount",
				logging.Field{Key: logging.FieldRow, Value: transactionStartLine + 2 + lineNo})
			dropped++
			continue
		}

		rows = append(rows, row)
	}

	return rows, dropped
}

// readRecord parses one physical line as a quote-aware semicolon-delimited
// CSV record.
func readRecord(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	record, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	return record, err
}

// parseRow converts a positional record into a ParsedRow. A row without a
// booking date or amount cannot be deduplicated or summed, so it reports
// !ok and is dropped by the caller.
func parseRow(record []string) (models.ParsedRow, bool) {
	row := models.ParsedRow{
		BookingDate:     dateutils.ParseStatementDate(record[0]),
		TransactionDate: dateutils.ParseStatementDate(record[1]),
		OperationType:   strings.TrimSpace(record[2]),
		Title:           textutils.CleanTitle(record[3]),
		RawTitle:        record[3],
		SenderRecipient: strings.TrimSpace(record[4]),
		AccountNumber:   textutils.StripAccountQuotes(record[5]),
	}

	if d, err := models.ParseStatementAmount(record[6]); err == nil {
		row.Amount = &d
	}
	if d, err := models.ParseStatementAmount(record[7]); err == nil {
		row.BalanceAfter = &d
	}

	if row.BookingDate == nil || row.Amount == nil {
		return models.ParsedRow{}, false
	}
	return row, true
}
