package domain

// TokenRecord represents one minted-token event with its observed outcome.
// Corresponds to token_records table in PostgreSQL.
// The analytics engine treats records as read-only; only ingestion raises
// the peak fields and sets the migrated flag.
type TokenRecord struct {
	Mint     string // token mint address (base58), primary key
	MintTime int64  // mint timestamp (unix ms)
	Slot     int64  // Solana slot number

	// Observables
	MaxSOL       float64 // peak bonding-curve value reached (SOL); 0 if no peak recorded
	MaxPrice     float64 // peak token price
	FirstBuySOL  float64 // first buy size (primary entry baseline)
	DevBuySOL    float64 // dev wallet buy size (secondary baseline)
	BuyAmountSOL float64 // configured buy amount (fallback baseline)

	// Launch configuration (grouping dimensions)
	Pattern      string  // mint address pattern identifier
	PriceSOL     float64 // price setting at launch
	LimitSOL     float64 // limit setting at launch
	BundleCount  int     // number of wallets in the launch bundle
	BundleBuySOL float64 // total buy volume across the bundle (SOL)

	// Outcome
	Migrated bool // terminal success flag, set once and never reverted

	CreatedAt int64 // record creation timestamp (ms)
}
