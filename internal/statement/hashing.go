package statement

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"dkowalski/mbank-ledger/internal/dateutils"
	"dkowalski/mbank-ledger/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// hashSeparator joins row digest components. The unit separator cannot
// survive the line splitting of a decoded statement, so it is guaranteed
// absent from every field, unlike '|' which can occur in free-text titles.
const hashSeparator = "\x1f"

// FileHash computes the SHA-256 digest of the raw statement bytes. It
// gates whole-file re-import per tenant.
func FileHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// RowHash computes the deterministic transaction digest from the fields
// that identify a real-world transaction. The amount is rendered through
// models.CanonicalAmount so the digest is stable across runs; a missing
// transaction date contributes an empty component.
func RowHash(tenantID uuid.UUID, bookingDate time.Time, transactionDate *time.Time, amount decimal.Decimal, title string) string {
	txnDate := ""
	if transactionDate != nil {
		txnDate = dateutils.ToISODate(*transactionDate)
	}

	input := strings.Join([]string{
		tenantID.String(),
		dateutils.ToISODate(bookingDate),
		txnDate,
		models.CanonicalAmount(amount),
		title,
	}, hashSeparator)

	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
