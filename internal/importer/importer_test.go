package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"dkowalski/mbank-ledger/internal/importerror"
	"dkowalski/mbank-ledger/internal/logging"
	"dkowalski/mbank-ledger/internal/merchant"
	"dkowalski/mbank-ledger/internal/models"
	"dkowalski/mbank-ledger/internal/store"
	"dkowalski/mbank-ledger/internal/tagging"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildStatement assembles a raw statement using only ASCII characters,
// which encode identically in Windows-1250 and UTF-8.
func buildStatement(rows ...string) []byte {
	lines := make([]string, 38)
	lines[0] = "mBank S.A.;"
	lines[2] = "#Klient;"
	lines[3] = "JAN KOWALSKI;"
	lines[5] = "#Za okres:;2025-08-01;2025-08-31;"
	lines[7] = "#Rodzaj rachunku;"
	lines[8] = "eKonto;"
	lines[10] = "#Waluta;"
	lines[11] = "PLN;"
	lines[13] = "#Numer rachunku;"
	lines[14] = "11 1140 2004 0000 3102 7556 1333;"

	all := append(lines, "#Data operacji;#Data ksiegowania;#Opis operacji;#Tytul;#Nadawca/Odbiorca;#Numer konta;#Kwota;#Saldo po operacji;")
	all = append(all, rows...)
	all = append(all, "", "#Saldo koncowe;0,00;")
	return []byte(strings.Join(all, "\n"))
}

const (
	rowZabka  = `2025-08-01;2025-08-01;ZAKUP PRZY UZYCIU KARTY;"ZABKA Z1748 K.1    /WARSZAWA";"";'';-15,00;985,00;`
	rowSalary = `2025-08-05;2025-08-05;PRZELEW PRZYCHODZACY;"WYNAGRODZENIE ZA LIPIEC";"ACME SP Z O.O.";'12114020040000310275561333';4 500,00;5 485,00;`
)

func newTestService(storage store.Storage, ai AISuggester) *Service {
	engine := tagging.NewEngine(tagging.DefaultTagTable(), 500, 20)
	return NewService(storage, merchant.NewExtractor(), engine, ai, logging.NewMockLogger())
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	storage := store.NewMemoryStore()
	svc := newTestService(storage, nil)
	tenantID := uuid.New()

	batch, err := svc.Import(ctx, buildStatement(rowZabka, rowSalary), "lista_operacji.csv", tenantID)
	require.NoError(t, err)
	require.NotNil(t, batch)

	assert.Equal(t, models.BatchCompleted, batch.Status)
	assert.Equal(t, 2, batch.TransactionsImported)
	assert.Equal(t, 0, batch.DuplicatesSkipped)
	assert.Equal(t, "eKonto", batch.AccountType)
	assert.Equal(t, "PLN", batch.Currency)
	assert.Equal(t, "11114020040000310275561333", batch.AccountNumber)
	require.NotNil(t, batch.PeriodStart)
	assert.Equal(t, "2025-08-01", batch.PeriodStart.Format("2006-01-02"))
	assert.NotEmpty(t, batch.RawContent)

	txs, err := storage.TransactionsByBatch(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "ZABKA Z1748 K.1 /WARSZAWA", txs[0].Title)
	assert.Equal(t, "-15.00", txs[0].Amount.StringFixed(2))
	assert.Equal(t, "PLN", txs[0].Currency)
	assert.False(t, txs[0].Enriched())
	assert.Equal(t, "4500.00", txs[1].Amount.StringFixed(2))
}

func TestImportDuplicateFile(t *testing.T) {
	ctx := context.Background()
	storage := store.NewMemoryStore()
	svc := newTestService(storage, nil)
	tenantID := uuid.New()

	content := buildStatement(rowZabka)
	_, err := svc.Import(ctx, content, "lista_operacji.csv", tenantID)
	require.NoError(t, err)

	// Same bytes under a different name are still the same file.
	batch, err := svc.Import(ctx, content, "renamed.csv", tenantID)
	assert.Nil(t, batch)

	var dup *importerror.DuplicateFileError
	require.ErrorAs(t, err, &dup)
	assert.False(t, dup.ImportedAt.IsZero())

	// Another tenant is free to import the same file.
	other, err := svc.Import(ctx, content, "lista_operacji.csv", uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, other.TransactionsImported)
}

func TestImportIntraFileDuplicateRow(t *testing.T) {
	ctx := context.Background()
	storage := store.NewMemoryStore()
	svc := newTestService(storage, nil)
	tenantID := uuid.New()

	batch, err := svc.Import(ctx, buildStatement(rowZabka, rowZabka), "lista_operacji.csv", tenantID)
	require.NoError(t, err)

	assert.Equal(t, 1, batch.TransactionsImported)
	assert.Equal(t, 1, batch.DuplicatesSkipped)

	txs, err := storage.TransactionsByBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestImportOverlappingStatements(t *testing.T) {
	ctx := context.Background()
	storage := store.NewMemoryStore()
	svc := newTestService(storage, nil)
	tenantID := uuid.New()

	first, err := svc.Import(ctx, buildStatement(rowZabka), "july.csv", tenantID)
	require.NoError(t, err)
	require.Equal(t, 1, first.TransactionsImported)

	// A later export covering an overlapping period repeats the row; only
	// the new one lands.
	second, err := svc.Import(ctx, buildStatement(rowZabka, rowSalary), "august.csv", tenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, second.TransactionsImported)
	assert.Equal(t, 1, second.DuplicatesSkipped)

	all, err := storage.ListTransactions(ctx, tenantID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestImportStructuralFailure(t *testing.T) {
	ctx := context.Background()
	storage := store.NewMemoryStore()
	svc := newTestService(storage, nil)
	tenantID := uuid.New()

	content := []byte("not\na\nstatement")
	batch, err := svc.Import(ctx, content, "short.csv", tenantID)
	require.Error(t, err)

	var structural *importerror.StructuralParseError
	assert.ErrorAs(t, err, &structural)

	// The caller gets a failed batch with the cause recorded, but nothing
	// is persisted: the file's hash stays free for a retry.
	require.NotNil(t, batch)
	assert.Equal(t, models.BatchFailed, batch.Status)
	assert.NotEmpty(t, batch.ErrorMessage)

	stored, err2 := storage.FindImportByFileHash(ctx, tenantID, batch.FileHash)
	require.NoError(t, err2)
	assert.Nil(t, stored)

	txs, err2 := storage.ListTransactions(ctx, tenantID)
	require.NoError(t, err2)
	assert.Empty(t, txs)
}

// flakyStore delegates to a real store but fails the nth transaction
// insert, simulating a connection dropping mid-import. The insert counter
// is shared with the transaction-bound views the store hands out.
type flakyStore struct {
	store.Storage
	failOnInsert int
	inserts      *int
}

func newFlakyStore(inner store.Storage, failOnInsert int) *flakyStore {
	return &flakyStore{Storage: inner, failOnInsert: failOnInsert, inserts: new(int)}
}

func (f *flakyStore) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	*f.inserts++
	if *f.inserts == f.failOnInsert {
		return errors.New("connection reset by peer")
	}
	return f.Storage.InsertTransaction(ctx, tx)
}

func (f *flakyStore) RunInTransaction(ctx context.Context, fn func(store.Storage) error) error {
	return f.Storage.RunInTransaction(ctx, func(txStore store.Storage) error {
		return fn(&flakyStore{Storage: txStore, failOnInsert: f.failOnInsert, inserts: f.inserts})
	})
}

func TestImportRollsBackOnStorageFailure(t *testing.T) {
	ctx := context.Background()
	storage := store.NewMemoryStore()
	flaky := newFlakyStore(storage, 2)
	svc := newTestService(flaky, nil)
	tenantID := uuid.New()

	content := buildStatement(rowZabka, rowSalary)
	batch, err := svc.Import(ctx, content, "lista_operacji.csv", tenantID)
	require.Error(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, models.BatchFailed, batch.Status)

	// The first row's insert succeeded before the failure, but the whole
	// import rolls back: no rows and no batch are visible.
	txs, err2 := storage.ListTransactions(ctx, tenantID)
	require.NoError(t, err2)
	assert.Empty(t, txs)

	stored, err2 := storage.FindImportByFileHash(ctx, tenantID, batch.FileHash)
	require.NoError(t, err2)
	assert.Nil(t, stored)

	// With storage healthy again, the same file imports cleanly instead of
	// being rejected as a duplicate.
	retry, err := svc.Import(ctx, content, "lista_operacji.csv", tenantID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchCompleted, retry.Status)
	assert.Equal(t, 2, retry.TransactionsImported)
}

// blindStore hides the stored batch from the first duplicate-file lookup,
// simulating a concurrent import committing between the check and the
// insert.
type blindStore struct {
	store.Storage
	lookups int
}

func (b *blindStore) FindImportByFileHash(ctx context.Context, tenantID uuid.UUID, fileHash string) (*models.ImportBatch, error) {
	b.lookups++
	if b.lookups == 1 {
		return nil, nil
	}
	return b.Storage.FindImportByFileHash(ctx, tenantID, fileHash)
}

func TestImportInsertRaceReportsWinnerTimestamp(t *testing.T) {
	ctx := context.Background()
	storage := store.NewMemoryStore()
	tenantID := uuid.New()

	content := buildStatement(rowZabka)
	winner, err := newTestService(storage, nil).Import(ctx, content, "lista_operacji.csv", tenantID)
	require.NoError(t, err)

	svc := newTestService(&blindStore{Storage: storage}, nil)
	batch, err := svc.Import(ctx, content, "lista_operacji.csv", tenantID)
	assert.Nil(t, batch)

	var dup *importerror.DuplicateFileError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, winner.CreatedAt, dup.ImportedAt)
	assert.False(t, dup.ImportedAt.IsZero())
}

func TestImportEncodingFailure(t *testing.T) {
	ctx := context.Background()
	storage := store.NewMemoryStore()
	svc := newTestService(storage, nil)

	content := buildStatement(rowZabka)
	content[5] = 0x81 // not assigned in the statement code page

	batch, err := svc.Import(ctx, content, "lista_operacji.csv", uuid.New())
	require.Error(t, err)

	var encErr *importerror.EncodingError
	assert.ErrorAs(t, err, &encErr)
	require.NotNil(t, batch)
	assert.Equal(t, models.BatchFailed, batch.Status)
}

func TestEnrichBatch(t *testing.T) {
	ctx := context.Background()
	storage := store.NewMemoryStore()
	svc := newTestService(storage, nil)
	tenantID := uuid.New()

	batch, err := svc.Import(ctx, buildStatement(rowZabka, rowSalary), "lista_operacji.csv", tenantID)
	require.NoError(t, err)

	enriched, err := svc.EnrichBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, enriched)

	txs, err := storage.TransactionsByBatch(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	zabka := txs[0]
	require.True(t, zabka.Enriched())
	assert.Equal(t, "Żabka", zabka.MerchantName)
	assert.Equal(t, "Z1748 K.1", zabka.StoreIdentifier)
	assert.Equal(t, "Warszawa", zabka.Location)
	assert.InDelta(t, 0.9, *zabka.MerchantConfidence, 0.001)

	// A second run finds nothing left to enrich.
	enriched, err = svc.EnrichBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Zero(t, enriched)
}

type stubSuggester struct {
	names []string
	err   error
	calls int
}

func (s *stubSuggester) Suggest(_ context.Context, _ *models.Transaction) ([]string, error) {
	s.calls++
	return s.names, s.err
}

func TestEnrichBatchMergesAISuggestions(t *testing.T) {
	ctx := context.Background()
	storage := store.NewMemoryStore()
	ai := &stubSuggester{names: []string{"convenience-store", "late-night"}}
	svc := newTestService(storage, ai)
	tenantID := uuid.New()

	batch, err := svc.Import(ctx, buildStatement(rowZabka), "lista_operacji.csv", tenantID)
	require.NoError(t, err)

	_, err = svc.EnrichBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, ai.calls)

	// The novel AI tag materialized alongside the rule-based ones.
	tag, err := storage.FindOrCreateTag(ctx, tenantID, "late-night", "Late Night", "#6b7280")
	require.NoError(t, err)
	count, err := storage.RecountTagUsage(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEnrichBatchToleratesAIFailure(t *testing.T) {
	ctx := context.Background()
	storage := store.NewMemoryStore()
	ai := &stubSuggester{err: assert.AnError}
	svc := newTestService(storage, ai)
	tenantID := uuid.New()

	batch, err := svc.Import(ctx, buildStatement(rowZabka), "lista_operacji.csv", tenantID)
	require.NoError(t, err)

	enriched, err := svc.EnrichBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, enriched)
}
