package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/hcrypto7/MigDBQuery/internal/domain"
	"github.com/hcrypto7/MigDBQuery/internal/storage"
)

// recordColumns is the column list shared by every token_records statement.
// updated_at is the ReplacingMergeTree version column.
const recordColumns = `
	mint, mint_time, slot,
	max_sol, max_price, first_buy_sol, dev_buy_sol, buy_amount_sol,
	pattern, price_sol, limit_sol, bundle_count, bundle_buy_sol,
	migrated, created_at
`

// TokenRecordStore implements storage.TokenRecordStore using ClickHouse.
// Mutations insert a new row version; ReplacingMergeTree keyed by mint
// collapses to the highest updated_at, and reads use FINAL.
type TokenRecordStore struct {
	conn *Conn
}

// NewTokenRecordStore creates a new TokenRecordStore.
func NewTokenRecordStore(conn *Conn) *TokenRecordStore {
	return &TokenRecordStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TokenRecordStore = (*TokenRecordStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if the mint exists.
func (s *TokenRecordStore) Insert(ctx context.Context, r *domain.TokenRecord) error {
	exists, err := s.exists(ctx, r.Mint)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}
	return s.insertVersion(ctx, r)
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *TokenRecordStore) InsertBulk(ctx context.Context, records []*domain.TokenRecord) error {
	if len(records) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, dup := seen[r.Mint]; dup {
			return storage.ErrDuplicateKey
		}
		seen[r.Mint] = struct{}{}
	}

	// Check against existing rows
	for _, r := range records {
		exists, err := s.exists(ctx, r.Mint)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO token_records (`+recordColumns+`, updated_at)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	now := time.Now().UnixMilli()
	for _, r := range records {
		if err := appendRecord(batch, r, now); err != nil {
			return fmt.Errorf("append token record to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send token record batch: %w", err)
	}
	return nil
}

// GetByMint retrieves a record by mint address. Returns ErrNotFound if not exists.
func (s *TokenRecordStore) GetByMint(ctx context.Context, mint string) (*domain.TokenRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM token_records FINAL WHERE mint = ?`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("get token record by mint: %w", err)
	}
	defer rows.Close()

	records, err := scanTokenRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	return records[0], nil
}

// Query retrieves records matching the filter, ordered by mint time ASC, mint ASC.
func (s *TokenRecordStore) Query(ctx context.Context, f domain.RecordFilter) ([]*domain.TokenRecord, error) {
	where, args := buildWhere(f)
	query := `SELECT ` + recordColumns + ` FROM token_records FINAL` + where +
		` ORDER BY mint_time ASC, mint ASC`

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query token records: %w", err)
	}
	defer rows.Close()

	return scanTokenRecords(rows)
}

// Count returns the number of records matching the filter.
func (s *TokenRecordStore) Count(ctx context.Context, f domain.RecordFilter) (int, error) {
	where, args := buildWhere(f)
	query := `SELECT COUNT(*) FROM token_records FINAL` + where

	var count uint64
	if err := s.conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count token records: %w", err)
	}
	return int(count), nil
}

// RecordPeak raises the record's peak value and price by inserting a new
// row version. Peaks never decrease; a lower observation is a no-op.
func (s *TokenRecordStore) RecordPeak(ctx context.Context, mint string, maxSOL, maxPrice float64) error {
	r, err := s.GetByMint(ctx, mint)
	if err != nil {
		return err
	}

	if maxSOL <= r.MaxSOL && maxPrice <= r.MaxPrice {
		return nil
	}
	if maxSOL > r.MaxSOL {
		r.MaxSOL = maxSOL
	}
	if maxPrice > r.MaxPrice {
		r.MaxPrice = maxPrice
	}
	return s.insertVersion(ctx, r)
}

// MarkMigrated sets the migrated flag by inserting a new row version.
// Idempotent; the flag never reverts.
func (s *TokenRecordStore) MarkMigrated(ctx context.Context, mint string) error {
	r, err := s.GetByMint(ctx, mint)
	if err != nil {
		return err
	}
	if r.Migrated {
		return nil
	}
	r.Migrated = true
	return s.insertVersion(ctx, r)
}

// exists checks whether any row version exists for the mint.
func (s *TokenRecordStore) exists(ctx context.Context, mint string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT COUNT(*) FROM token_records WHERE mint = ?`, mint).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// insertVersion writes one row version with the current timestamp.
func (s *TokenRecordStore) insertVersion(ctx context.Context, r *domain.TokenRecord) error {
	query := `
		INSERT INTO token_records (` + recordColumns + `, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		r.Mint, r.MintTime, r.Slot,
		r.MaxSOL, r.MaxPrice, r.FirstBuySOL, r.DevBuySOL, r.BuyAmountSOL,
		r.Pattern, r.PriceSOL, r.LimitSOL, int32(r.BundleCount), r.BundleBuySOL,
		r.Migrated, r.CreatedAt, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert token record version: %w", err)
	}
	return nil
}

// appendRecord appends one record to a prepared batch.
func appendRecord(batch driver.Batch, r *domain.TokenRecord, updatedAt int64) error {
	return batch.Append(
		r.Mint, r.MintTime, r.Slot,
		r.MaxSOL, r.MaxPrice, r.FirstBuySOL, r.DevBuySOL, r.BuyAmountSOL,
		r.Pattern, r.PriceSOL, r.LimitSOL, int32(r.BundleCount), r.BundleBuySOL,
		r.Migrated, r.CreatedAt, updatedAt,
	)
}

// buildWhere translates a RecordFilter into a WHERE clause with ? args.
// Absent predicates impose no constraint.
func buildWhere(f domain.RecordFilter) (string, []any) {
	var conds []string
	var args []any

	if f.MinMaxSOL != nil {
		conds = append(conds, "max_sol >= ?")
		args = append(args, *f.MinMaxSOL)
	}
	if f.StartTime != nil {
		conds = append(conds, "mint_time >= ?")
		args = append(args, *f.StartTime)
	}
	if f.EndTime != nil {
		conds = append(conds, "mint_time <= ?")
		args = append(args, *f.EndTime)
	}
	if f.Pattern != nil {
		conds = append(conds, "pattern = ?")
		args = append(args, *f.Pattern)
	}
	if f.PriceSOL != nil {
		conds = append(conds, "price_sol = ?")
		args = append(args, *f.PriceSOL)
	}
	if f.LimitSOL != nil {
		conds = append(conds, "limit_sol = ?")
		args = append(args, *f.LimitSOL)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// scanTokenRecords scans rows into a slice of TokenRecord.
func scanTokenRecords(rows driver.Rows) ([]*domain.TokenRecord, error) {
	var records []*domain.TokenRecord

	for rows.Next() {
		var r domain.TokenRecord
		var bundleCount int32

		err := rows.Scan(
			&r.Mint, &r.MintTime, &r.Slot,
			&r.MaxSOL, &r.MaxPrice, &r.FirstBuySOL, &r.DevBuySOL, &r.BuyAmountSOL,
			&r.Pattern, &r.PriceSOL, &r.LimitSOL, &bundleCount, &r.BundleBuySOL,
			&r.Migrated, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan token record row: %w", err)
		}

		r.BundleCount = int(bundleCount)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token record rows: %w", err)
	}

	return records, nil
}
