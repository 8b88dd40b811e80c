package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"dkowalski/mbank-ledger/internal/importerror"
	"dkowalski/mbank-ledger/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Storage implementation. It enforces the
// same uniqueness constraints a relational backend would, which makes it
// suitable both for tests and for single-shot CLI runs without a database.
type MemoryStore struct {
	mu sync.Mutex

	batches      map[uuid.UUID]models.ImportBatch
	batchByFile  map[string]uuid.UUID // tenant+file_hash -> batch id
	transactions map[uuid.UUID]models.Transaction
	txByHash     map[string]uuid.UUID
	tags         map[uuid.UUID]models.Tag
	tagByName    map[string]uuid.UUID // tenant+normalized name -> tag id
	associations map[uuid.UUID]map[uuid.UUID]struct{} // tag id -> transaction ids
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		batches:      make(map[uuid.UUID]models.ImportBatch),
		batchByFile:  make(map[string]uuid.UUID),
		transactions: make(map[uuid.UUID]models.Transaction),
		txByHash:     make(map[string]uuid.UUID),
		tags:         make(map[uuid.UUID]models.Tag),
		tagByName:    make(map[string]uuid.UUID),
		associations: make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

func fileKey(tenantID uuid.UUID, fileHash string) string {
	return tenantID.String() + ":" + fileHash
}

func tagKey(tenantID uuid.UUID, name string) string {
	return tenantID.String() + ":" + strings.ToLower(name)
}

// FindImportByFileHash returns the batch for a tenant+file digest, or nil.
func (s *MemoryStore) FindImportByFileHash(_ context.Context, tenantID uuid.UUID, fileHash string) (*models.ImportBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.batchByFile[fileKey(tenantID, fileHash)]
	if !ok {
		return nil, nil
	}
	batch := s.batches[id]
	return &batch, nil
}

// InsertImportBatch persists a batch, enforcing tenant+file_hash
// uniqueness.
func (s *MemoryStore) InsertImportBatch(_ context.Context, batch *models.ImportBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fileKey(batch.TenantID, batch.FileHash)
	if _, exists := s.batchByFile[key]; exists {
		return &importerror.StorageConflictError{
			Constraint: "import_batches_tenant_file_hash_key",
			Err:        fmt.Errorf("file hash %s already imported for tenant", batch.FileHash),
		}
	}

	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}

	s.batches[batch.ID] = *batch
	s.batchByFile[key] = batch.ID
	return nil
}

// UpdateImportBatch writes back a batch's mutable fields.
func (s *MemoryStore) UpdateImportBatch(_ context.Context, batch *models.ImportBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.batches[batch.ID]; !ok {
		return fmt.Errorf("import batch %s not found", batch.ID)
	}
	s.batches[batch.ID] = *batch
	return nil
}

// TransactionHashExists reports whether a row digest is already persisted.
func (s *MemoryStore) TransactionHashExists(_ context.Context, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.txByHash[hash]
	return ok, nil
}

// InsertTransaction persists a transaction, enforcing global
// transaction_hash uniqueness.
func (s *MemoryStore) InsertTransaction(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.txByHash[tx.TransactionHash]; exists {
		return &importerror.StorageConflictError{
			Constraint: "transactions_hash_key",
			Err:        fmt.Errorf("transaction hash %s already exists", tx.TransactionHash),
		}
	}

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	s.transactions[tx.ID] = *tx
	s.txByHash[tx.TransactionHash] = tx.ID
	return nil
}

// TransactionsByBatch returns the transactions linked to a batch, ordered
// by booking date.
func (s *MemoryStore) TransactionsByBatch(_ context.Context, batchID uuid.UUID) ([]*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Transaction
	for _, tx := range s.transactions {
		if tx.ImportBatchID != nil && *tx.ImportBatchID == batchID {
			cp := tx
			out = append(out, &cp)
		}
	}
	sortTransactions(out)
	return out, nil
}

// ListTransactions returns a tenant's ledger ordered by booking date.
func (s *MemoryStore) ListTransactions(_ context.Context, tenantID uuid.UUID) ([]*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Transaction
	for _, tx := range s.transactions {
		if tx.TenantID == tenantID {
			cp := tx
			out = append(out, &cp)
		}
	}
	sortTransactions(out)
	return out, nil
}

func sortTransactions(txs []*models.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].BookingDate.Equal(txs[j].BookingDate) {
			return txs[i].BookingDate.Before(txs[j].BookingDate)
		}
		return txs[i].TransactionHash < txs[j].TransactionHash
	})
}

// UpdateTransactionEnrichment writes back the merchant fields.
func (s *MemoryStore) UpdateTransactionEnrichment(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.transactions[tx.ID]
	if !ok {
		return fmt.Errorf("transaction %s not found", tx.ID)
	}

	stored.MerchantName = tx.MerchantName
	stored.StoreIdentifier = tx.StoreIdentifier
	stored.Location = tx.Location
	stored.MerchantConfidence = tx.MerchantConfidence
	s.transactions[tx.ID] = stored
	return nil
}

// FindOrCreateTag returns the tenant's tag with the given normalized name,
// creating it on first use.
func (s *MemoryStore) FindOrCreateTag(_ context.Context, tenantID uuid.UUID, name, displayName, color string) (*models.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tagKey(tenantID, name)
	if id, ok := s.tagByName[key]; ok {
		tag := s.tags[id]
		return &tag, nil
	}

	tag := models.Tag{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Name:        name,
		DisplayName: displayName,
		Color:       color,
		CreatedAt:   time.Now().UTC(),
	}
	s.tags[tag.ID] = tag
	s.tagByName[key] = tag.ID
	return &tag, nil
}

// TagTransaction associates a tag with a transaction; repeated calls are
// no-ops.
func (s *MemoryStore) TagTransaction(_ context.Context, transactionID, tagID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tags[tagID]; !ok {
		return fmt.Errorf("tag %s not found", tagID)
	}
	if _, ok := s.transactions[transactionID]; !ok {
		return fmt.Errorf("transaction %s not found", transactionID)
	}

	set, ok := s.associations[tagID]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		s.associations[tagID] = set
	}
	set[transactionID] = struct{}{}
	return nil
}

// TagNamesByTransaction returns the tenant's transaction-to-tag-names
// mapping, keyed by transaction ID string.
func (s *MemoryStore) TagNamesByTransaction(_ context.Context, tenantID uuid.UUID) (map[string][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]string)
	for tagID, txIDs := range s.associations {
		tag := s.tags[tagID]
		if tag.TenantID != tenantID {
			continue
		}
		for txID := range txIDs {
			key := txID.String()
			out[key] = append(out[key], tag.Name)
		}
	}
	for _, names := range out {
		sort.Strings(names)
	}
	return out, nil
}

// RunInTransaction runs fn against a staged copy of the store and adopts
// the staged state only when fn succeeds. The store lock is held for the
// duration, so transactions serialize against each other and against
// direct writes.
func (s *MemoryStore) RunInTransaction(_ context.Context, fn func(Storage) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.cloneLocked()
	if err := fn(staged); err != nil {
		return err
	}

	s.batches = staged.batches
	s.batchByFile = staged.batchByFile
	s.transactions = staged.transactions
	s.txByHash = staged.txByHash
	s.tags = staged.tags
	s.tagByName = staged.tagByName
	s.associations = staged.associations
	return nil
}

func (s *MemoryStore) cloneLocked() *MemoryStore {
	c := NewMemoryStore()
	for id, batch := range s.batches {
		c.batches[id] = batch
	}
	for key, id := range s.batchByFile {
		c.batchByFile[key] = id
	}
	for id, tx := range s.transactions {
		c.transactions[id] = tx
	}
	for hash, id := range s.txByHash {
		c.txByHash[hash] = id
	}
	for id, tag := range s.tags {
		c.tags[id] = tag
	}
	for key, id := range s.tagByName {
		c.tagByName[key] = id
	}
	for tagID, set := range s.associations {
		cp := make(map[uuid.UUID]struct{}, len(set))
		for txID := range set {
			cp[txID] = struct{}{}
		}
		c.associations[tagID] = cp
	}
	return c
}

// RecountTagUsage recomputes the exact association count for a tag.
func (s *MemoryStore) RecountTagUsage(_ context.Context, tagID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag, ok := s.tags[tagID]
	if !ok {
		return 0, fmt.Errorf("tag %s not found", tagID)
	}

	count := len(s.associations[tagID])
	tag.UsageCount = count
	s.tags[tagID] = tag
	return count, nil
}
