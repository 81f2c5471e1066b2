package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hcrypto7/MigDBQuery/internal/domain"
	"github.com/hcrypto7/MigDBQuery/internal/storage"
)

// TokenRecordStore is an in-memory implementation of storage.TokenRecordStore.
type TokenRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenRecord // keyed by mint
}

// NewTokenRecordStore creates a new in-memory token record store.
func NewTokenRecordStore() *TokenRecordStore {
	return &TokenRecordStore{
		data: make(map[string]*domain.TokenRecord),
	}
}

var _ storage.TokenRecordStore = (*TokenRecordStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if the mint exists.
func (s *TokenRecordStore) Insert(_ context.Context, r *domain.TokenRecord) error {
	if r == nil || r.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.Mint]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	s.data[r.Mint] = &copy
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *TokenRecordStore) InsertBulk(_ context.Context, records []*domain.TokenRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track mints in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(records))

	for _, r := range records {
		if r == nil || r.Mint == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[r.Mint]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[r.Mint]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[r.Mint] = struct{}{}
	}

	for _, r := range records {
		copy := *r
		s.data[r.Mint] = &copy
	}

	return nil
}

// GetByMint retrieves a record by mint address. Returns ErrNotFound if not exists.
func (s *TokenRecordStore) GetByMint(_ context.Context, mint string) (*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *r
	return &copy, nil
}

// Query retrieves records matching the filter, ordered by mint time ASC, mint ASC.
func (s *TokenRecordStore) Query(_ context.Context, f domain.RecordFilter) ([]*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenRecord
	for _, r := range s.data {
		if f.Matches(r) {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].MintTime != result[j].MintTime {
			return result[i].MintTime < result[j].MintTime
		}
		return result[i].Mint < result[j].Mint
	})

	return result, nil
}

// Count returns the number of records matching the filter.
func (s *TokenRecordStore) Count(_ context.Context, f domain.RecordFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.TokenRecord, 0, len(s.data))
	for _, r := range s.data {
		all = append(all, r)
	}
	return len(domain.FilterRecords(all, f)), nil
}

// RecordPeak raises the record's peak value and price. Peaks never decrease.
func (s *TokenRecordStore) RecordPeak(_ context.Context, mint string, maxSOL, maxPrice float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.data[mint]
	if !exists {
		return storage.ErrNotFound
	}

	if maxSOL > r.MaxSOL {
		r.MaxSOL = maxSOL
	}
	if maxPrice > r.MaxPrice {
		r.MaxPrice = maxPrice
	}
	return nil
}

// MarkMigrated sets the migrated flag. Idempotent; the flag never reverts.
func (s *TokenRecordStore) MarkMigrated(_ context.Context, mint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.data[mint]
	if !exists {
		return storage.ErrNotFound
	}

	r.Migrated = true
	return nil
}
