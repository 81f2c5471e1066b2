// Package ingestion populates the token record store from live launchpad
// program events: token creates, bonding-curve trades and migrations.
package ingestion

import "context"

// PumpFun is the pump.fun bonding curve program ID.
const PumpFun = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

// EventKind discriminates mint event types.
type EventKind string

const (
	EventCreate  EventKind = "CREATE"
	EventTrade   EventKind = "TRADE"
	EventMigrate EventKind = "MIGRATE"
)

// MintEvent is one decoded launchpad program event.
type MintEvent struct {
	Kind      EventKind
	Mint      string // token mint address (base58)
	Slot      int64
	Signature string

	// Create fields
	Name    string
	Symbol  string
	Creator string // creating wallet

	// Trade fields
	SOLAmount   float64 // trade size in SOL
	TokenAmount float64 // trade size in tokens
	IsBuy       bool
	Trader      string  // trading wallet
	RealSOL     float64 // bonding curve real SOL reserves after the trade
	Price       float64 // SOL per token

	// Unix ms; 0 when the event carries no timestamp
	Timestamp int64
}

// MintEventSource emits decoded mint events.
type MintEventSource interface {
	// Subscribe returns a channel of mint events. The channel closes when
	// the context is cancelled or the source shuts down.
	Subscribe(ctx context.Context) (<-chan *MintEvent, error)
}
