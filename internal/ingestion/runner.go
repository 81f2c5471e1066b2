package ingestion

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/hcrypto7/MigDBQuery/internal/domain"
	"github.com/hcrypto7/MigDBQuery/internal/observability"
	"github.com/hcrypto7/MigDBQuery/internal/storage"
)

// LaunchDefaults carries the launcher configuration stamped onto records
// created by ingestion. These settings are not recoverable from chain
// events; they describe the bundler run this ingester observes.
type LaunchDefaults struct {
	PriceSOL     float64
	LimitSOL     float64
	BuyAmountSOL float64
}

// RunnerOptions configures the ingestion runner.
type RunnerOptions struct {
	Source   MintEventSource
	Store    storage.TokenRecordStore
	Defaults LaunchDefaults

	// PendingTTL bounds how long a create waits for trades before the
	// record is flushed as-is. Zero means DefaultPendingTTL.
	PendingTTL time.Duration

	Logger *log.Logger
}

// DefaultPendingTTL is the default flush deadline for pending creates.
const DefaultPendingTTL = 2 * time.Minute

// pendingToken accumulates a create and its same-slot bundle trades until
// the record is ready to insert.
type pendingToken struct {
	record  *domain.TokenRecord
	creator string
	addedAt time.Time
}

// Runner folds mint events into the token record store. A created token
// stays pending while its launch bundle lands: buys in the create slot
// contribute bundle shape, first-buy and dev-buy baselines. The record is
// inserted on the first later-slot trade, on migration, or when the
// pending TTL expires; trades after insertion only raise the peak.
type Runner struct {
	source     MintEventSource
	store      storage.TokenRecordStore
	defaults   LaunchDefaults
	pendingTTL time.Duration
	logger     *log.Logger

	pending map[string]*pendingToken // keyed by mint
}

// NewRunner creates an ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	ttl := opts.PendingTTL
	if ttl == 0 {
		ttl = DefaultPendingTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		source:     opts.Source,
		store:      opts.Store,
		defaults:   opts.Defaults,
		pendingTTL: ttl,
		logger:     logger,
		pending:    make(map[string]*pendingToken),
	}
}

// Run consumes events until the context is cancelled or the source closes.
// Remaining pending records are flushed on shutdown.
func (r *Runner) Run(ctx context.Context) error {
	events, err := r.source.Subscribe(ctx)
	if err != nil {
		return err
	}

	flushTicker := time.NewTicker(30 * time.Second)
	defer flushTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.flushAll(context.Background())
			return ctx.Err()
		case <-flushTicker.C:
			r.flushExpired(ctx)
		case ev, ok := <-events:
			if !ok {
				r.flushAll(context.Background())
				return nil
			}
			if err := r.handleEvent(ctx, ev); err != nil {
				r.logger.Printf("[ingest] handle %s event for %s: %v", ev.Kind, ev.Mint, err)
				observability.RecordEventError(string(ev.Kind))
			}
			if ev.Slot > 0 {
				observability.UpdateHighestSlot(ev.Slot)
			}
			observability.UpdatePendingTokens(len(r.pending))
		}
	}
}

// handleEvent applies one event to pending state or the store.
func (r *Runner) handleEvent(ctx context.Context, ev *MintEvent) error {
	if err := ValidateMint(ev.Mint); err != nil {
		return err
	}

	switch ev.Kind {
	case EventCreate:
		return r.handleCreate(ev)
	case EventTrade:
		return r.handleTrade(ctx, ev)
	case EventMigrate:
		return r.handleMigrate(ctx, ev)
	default:
		return nil
	}
}

func (r *Runner) handleCreate(ev *MintEvent) error {
	if _, exists := r.pending[ev.Mint]; exists {
		return nil // duplicate notification
	}

	mintTime := ev.Timestamp
	if mintTime == 0 {
		mintTime = time.Now().UnixMilli()
	}

	r.pending[ev.Mint] = &pendingToken{
		record: &domain.TokenRecord{
			Mint:         ev.Mint,
			MintTime:     mintTime,
			Slot:         ev.Slot,
			Pattern:      MintPattern(ev.Mint),
			PriceSOL:     r.defaults.PriceSOL,
			LimitSOL:     r.defaults.LimitSOL,
			BuyAmountSOL: r.defaults.BuyAmountSOL,
			CreatedAt:    time.Now().UnixMilli(),
		},
		creator: ev.Creator,
		addedAt: time.Now(),
	}
	observability.RecordTokenCreated()
	return nil
}

func (r *Runner) handleTrade(ctx context.Context, ev *MintEvent) error {
	observability.RecordTradeObserved()

	p, isPending := r.pending[ev.Mint]
	if !isPending {
		// Already inserted (or created before this ingester started):
		// trades only raise the peak.
		err := r.store.RecordPeak(ctx, ev.Mint, ev.RealSOL, ev.Price)
		if errors.Is(err, storage.ErrNotFound) {
			return nil // not a token we track
		}
		return err
	}

	rec := p.record
	if ev.Slot == rec.Slot && ev.IsBuy {
		// Launch bundle: buys landing in the create slot.
		rec.BundleCount++
		rec.BundleBuySOL += ev.SOLAmount
		if rec.FirstBuySOL == 0 {
			rec.FirstBuySOL = ev.SOLAmount
		}
		if ev.Trader == p.creator {
			rec.DevBuySOL = ev.SOLAmount
		}
		r.trackPeak(rec, ev)
		return nil
	}

	if ev.Slot == rec.Slot {
		// Same-slot sell: peak only, not part of the bundle shape.
		r.trackPeak(rec, ev)
		return nil
	}

	// First trade past the create slot: the bundle is complete.
	if ev.IsBuy && rec.FirstBuySOL == 0 {
		rec.FirstBuySOL = ev.SOLAmount
	}
	r.trackPeak(rec, ev)
	if err := r.insertPending(ctx, ev.Mint); err != nil {
		return err
	}
	return nil
}

func (r *Runner) handleMigrate(ctx context.Context, ev *MintEvent) error {
	if _, isPending := r.pending[ev.Mint]; isPending {
		if err := r.insertPending(ctx, ev.Mint); err != nil {
			return err
		}
	}

	err := r.store.MarkMigrated(ctx, ev.Mint)
	if errors.Is(err, storage.ErrNotFound) {
		return nil // not a token we track
	}
	if err == nil {
		observability.RecordMigration()
	}
	return err
}

// trackPeak raises the draft record's peak from a trade.
func (r *Runner) trackPeak(rec *domain.TokenRecord, ev *MintEvent) {
	if ev.RealSOL > rec.MaxSOL {
		rec.MaxSOL = ev.RealSOL
	}
	if ev.Price > rec.MaxPrice {
		rec.MaxPrice = ev.Price
	}
}

// insertPending moves a pending record into the store.
func (r *Runner) insertPending(ctx context.Context, mint string) error {
	p, ok := r.pending[mint]
	if !ok {
		return nil
	}
	delete(r.pending, mint)

	err := r.store.Insert(ctx, p.record)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil // another ingester won the race
	}
	if err == nil {
		observability.RecordTokenInserted()
	}
	return err
}

// flushExpired inserts pending records older than the TTL.
func (r *Runner) flushExpired(ctx context.Context) {
	cutoff := time.Now().Add(-r.pendingTTL)
	for mint, p := range r.pending {
		if p.addedAt.Before(cutoff) {
			if err := r.insertPending(ctx, mint); err != nil {
				r.logger.Printf("[ingest] flush %s: %v", mint, err)
			}
		}
	}
}

// flushAll inserts every pending record; used at shutdown.
func (r *Runner) flushAll(ctx context.Context) {
	for mint := range r.pending {
		if err := r.insertPending(ctx, mint); err != nil {
			r.logger.Printf("[ingest] flush %s: %v", mint, err)
		}
	}
}
