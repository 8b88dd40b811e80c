// Package importerror defines the error taxonomy of the statement import
// pipeline. Fatal errors abort a whole import with nothing persisted;
// row-scoped and duplicate errors are counted and never escalate.
package importerror

import (
	"errors"
	"fmt"
	"time"
)

// EncodingError reports bytes that are not valid in the declared statement
// encoding. Fatal: corrupted accented characters would break every later
// pattern match, so the decoder never substitutes.
type EncodingError struct {
	Encoding string
	Line     int
	Err      error
}

func (e *EncodingError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid %s byte sequence at line %d", e.Encoding, e.Line)
	}
	return fmt.Sprintf("invalid %s byte sequence: %v", e.Encoding, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// StructuralParseError reports a statement whose physical layout does not
// match the expected mBank export format. Fatal for the whole import.
type StructuralParseError struct {
	FileName string
	Reason   string
}

func (e *StructuralParseError) Error() string {
	return fmt.Sprintf("structural parse failure in '%s': %s", e.FileName, e.Reason)
}

// RowParseError reports a single unparsable transaction row. Row-scoped:
// the row is dropped and counted, the import continues.
type RowParseError struct {
	Line   int
	Field  string
	Value  string
	Reason string
}

func (e *RowParseError) Error() string {
	return fmt.Sprintf("row %d: failed to parse %s='%s': %s", e.Line, e.Field, e.Value, e.Reason)
}

// DuplicateFileError reports a whole-file re-import for a tenant. Expected
// rather than exceptional; carries the timestamp of the original import.
type DuplicateFileError struct {
	FileHash   string
	ImportedAt time.Time
}

func (e *DuplicateFileError) Error() string {
	return fmt.Sprintf("file already imported on %s", e.ImportedAt.Format("2006-01-02 15:04"))
}

// DuplicateRowError reports a transaction whose row digest is already
// persisted or was already seen in the current run. Counted, never surfaced
// as a failure.
type DuplicateRowError struct {
	TransactionHash string
}

func (e *DuplicateRowError) Error() string {
	return fmt.Sprintf("transaction %s already exists", e.TransactionHash)
}

// StorageConflictError reports a uniqueness violation raised by the storage
// boundary. Callers treat it exactly like the corresponding duplicate case;
// it must never bubble up as a generic failure.
type StorageConflictError struct {
	Constraint string
	Err        error
}

func (e *StorageConflictError) Error() string {
	return fmt.Sprintf("storage conflict on %s: %v", e.Constraint, e.Err)
}

func (e *StorageConflictError) Unwrap() error {
	return e.Err
}

// IsDuplicate reports whether err is one of the duplicate/conflict errors
// that an import counts instead of failing on.
func IsDuplicate(err error) bool {
	var dup *DuplicateRowError
	var conflict *StorageConflictError
	return errors.As(err, &dup) || errors.As(err, &conflict)
}
