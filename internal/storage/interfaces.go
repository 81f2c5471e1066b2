package storage

import (
	"context"

	"github.com/hcrypto7/MigDBQuery/internal/domain"
)

// TokenRecordStore provides access to token_records storage.
type TokenRecordStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if the mint exists.
	Insert(ctx context.Context, r *domain.TokenRecord) error

	// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, records []*domain.TokenRecord) error

	// GetByMint retrieves a record by mint address. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.TokenRecord, error)

	// Query retrieves records matching every supplied filter predicate,
	// ordered by mint time ASC, mint ASC. An empty result is not an error.
	Query(ctx context.Context, f domain.RecordFilter) ([]*domain.TokenRecord, error)

	// Count returns the number of records matching the filter.
	Count(ctx context.Context, f domain.RecordFilter) (int, error)

	// RecordPeak raises the record's peak value and price. Peaks never
	// decrease; a lower observation is a no-op. Returns ErrNotFound if
	// the mint does not exist.
	RecordPeak(ctx context.Context, mint string, maxSOL, maxPrice float64) error

	// MarkMigrated sets the migrated flag. The flag is set once and never
	// reverted; marking an already-migrated record is a no-op.
	// Returns ErrNotFound if the mint does not exist.
	MarkMigrated(ctx context.Context, mint string) error
}
