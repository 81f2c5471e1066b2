package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/hcrypto7/MigDBQuery/internal/domain"
	"github.com/hcrypto7/MigDBQuery/internal/storage"
)

// recordColumns is the column list shared by every token_records statement.
const recordColumns = `
	mint, mint_time, slot,
	max_sol, max_price, first_buy_sol, dev_buy_sol, buy_amount_sol,
	pattern, price_sol, limit_sol, bundle_count, bundle_buy_sol,
	migrated, created_at
`

// TokenRecordStore implements storage.TokenRecordStore using PostgreSQL.
type TokenRecordStore struct {
	pool *Pool
}

// NewTokenRecordStore creates a new TokenRecordStore.
func NewTokenRecordStore(pool *Pool) *TokenRecordStore {
	return &TokenRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenRecordStore = (*TokenRecordStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if the mint exists.
func (s *TokenRecordStore) Insert(ctx context.Context, r *domain.TokenRecord) error {
	query := `
		INSERT INTO token_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := s.pool.Exec(ctx, query,
		r.Mint, r.MintTime, r.Slot,
		r.MaxSOL, r.MaxPrice, r.FirstBuySOL, r.DevBuySOL, r.BuyAmountSOL,
		r.Pattern, r.PriceSOL, r.LimitSOL, r.BundleCount, r.BundleBuySOL,
		r.Migrated, r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token record: %w", err)
	}
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *TokenRecordStore) InsertBulk(ctx context.Context, records []*domain.TokenRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO token_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	for _, r := range records {
		_, err := tx.Exec(ctx, query,
			r.Mint, r.MintTime, r.Slot,
			r.MaxSOL, r.MaxPrice, r.FirstBuySOL, r.DevBuySOL, r.BuyAmountSOL,
			r.Pattern, r.PriceSOL, r.LimitSOL, r.BundleCount, r.BundleBuySOL,
			r.Migrated, r.CreatedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert token record in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByMint retrieves a record by mint address. Returns ErrNotFound if not exists.
func (s *TokenRecordStore) GetByMint(ctx context.Context, mint string) (*domain.TokenRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM token_records WHERE mint = $1`

	row := s.pool.QueryRow(ctx, query, mint)
	r, err := scanTokenRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token record by mint: %w", err)
	}
	return r, nil
}

// Query retrieves records matching the filter, ordered by mint time ASC, mint ASC.
func (s *TokenRecordStore) Query(ctx context.Context, f domain.RecordFilter) ([]*domain.TokenRecord, error) {
	where, args := buildWhere(f)
	query := `SELECT ` + recordColumns + ` FROM token_records` + where +
		` ORDER BY mint_time ASC, mint ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query token records: %w", err)
	}
	defer rows.Close()

	return scanTokenRecords(rows)
}

// Count returns the number of records matching the filter.
func (s *TokenRecordStore) Count(ctx context.Context, f domain.RecordFilter) (int, error) {
	where, args := buildWhere(f)
	query := `SELECT COUNT(*) FROM token_records` + where

	var count int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count token records: %w", err)
	}
	return count, nil
}

// RecordPeak raises the record's peak value and price. Peaks never decrease.
func (s *TokenRecordStore) RecordPeak(ctx context.Context, mint string, maxSOL, maxPrice float64) error {
	query := `
		UPDATE token_records
		SET max_sol = GREATEST(max_sol, $2), max_price = GREATEST(max_price, $3)
		WHERE mint = $1
	`

	tag, err := s.pool.Exec(ctx, query, mint, maxSOL, maxPrice)
	if err != nil {
		return fmt.Errorf("record peak: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkMigrated sets the migrated flag. Idempotent; the flag never reverts.
func (s *TokenRecordStore) MarkMigrated(ctx context.Context, mint string) error {
	query := `UPDATE token_records SET migrated = TRUE WHERE mint = $1`

	tag, err := s.pool.Exec(ctx, query, mint)
	if err != nil {
		return fmt.Errorf("mark migrated: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// buildWhere translates a RecordFilter into a WHERE clause with positional args.
// Absent predicates impose no constraint.
func buildWhere(f domain.RecordFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.MinMaxSOL != nil {
		add("max_sol >= $%d", *f.MinMaxSOL)
	}
	if f.StartTime != nil {
		add("mint_time >= $%d", *f.StartTime)
	}
	if f.EndTime != nil {
		add("mint_time <= $%d", *f.EndTime)
	}
	if f.Pattern != nil {
		add("pattern = $%d", *f.Pattern)
	}
	if f.PriceSOL != nil {
		add("price_sol = $%d", *f.PriceSOL)
	}
	if f.LimitSOL != nil {
		add("limit_sol = $%d", *f.LimitSOL)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// scanTokenRecord scans a single row into a TokenRecord.
func scanTokenRecord(row pgx.Row) (*domain.TokenRecord, error) {
	var r domain.TokenRecord

	err := row.Scan(
		&r.Mint, &r.MintTime, &r.Slot,
		&r.MaxSOL, &r.MaxPrice, &r.FirstBuySOL, &r.DevBuySOL, &r.BuyAmountSOL,
		&r.Pattern, &r.PriceSOL, &r.LimitSOL, &r.BundleCount, &r.BundleBuySOL,
		&r.Migrated, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// scanTokenRecords scans multiple rows into a slice of TokenRecord.
func scanTokenRecords(rows pgx.Rows) ([]*domain.TokenRecord, error) {
	var records []*domain.TokenRecord

	for rows.Next() {
		var r domain.TokenRecord

		err := rows.Scan(
			&r.Mint, &r.MintTime, &r.Slot,
			&r.MaxSOL, &r.MaxPrice, &r.FirstBuySOL, &r.DevBuySOL, &r.BuyAmountSOL,
			&r.Pattern, &r.PriceSOL, &r.LimitSOL, &r.BundleCount, &r.BundleBuySOL,
			&r.Migrated, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan token record row: %w", err)
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token record rows: %w", err)
	}

	return records, nil
}
