package ingestion

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"testing"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// testKey derives a deterministic on-curve pubkey for tests.
func testKey(seed byte) []byte {
	var uniform [64]byte
	uniform[0] = seed + 1
	s, err := edwards25519.NewScalar().SetUniformBytes(uniform[:])
	if err != nil {
		panic(err)
	}
	return new(edwards25519.Point).ScalarBaseMult(s).Bytes()
}

func testMint(seed byte) string {
	return base58.Encode(testKey(seed))
}

// payloadBuilder assembles borsh-encoded event payloads.
type payloadBuilder struct {
	buf []byte
}

func newPayload(disc [8]byte) *payloadBuilder {
	return &payloadBuilder{buf: append([]byte{}, disc[:]...)}
}

func (b *payloadBuilder) str(s string) *payloadBuilder {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
	b.buf = append(b.buf, n[:]...)
	b.buf = append(b.buf, s...)
	return b
}

func (b *payloadBuilder) u64(v uint64) *payloadBuilder {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], v)
	b.buf = append(b.buf, n[:]...)
	return b
}

func (b *payloadBuilder) i64(v int64) *payloadBuilder {
	return b.u64(uint64(v))
}

func (b *payloadBuilder) boolean(v bool) *payloadBuilder {
	if v {
		b.buf = append(b.buf, 1)
	} else {
		b.buf = append(b.buf, 0)
	}
	return b
}

func (b *payloadBuilder) key(raw []byte) *payloadBuilder {
	b.buf = append(b.buf, raw...)
	return b
}

func (b *payloadBuilder) logLine() string {
	return programDataPrefix + base64.StdEncoding.EncodeToString(b.buf)
}

func TestParseLogsCreateEvent(t *testing.T) {
	mint := testKey(1)
	bondingCurve := testKey(2)
	creator := testKey(3)

	line := newPayload(createEventDisc).
		str("Test Token").
		str("TEST").
		str("https://example.com/meta.json").
		key(mint).
		key(bondingCurve).
		key(creator).
		logLine()

	events, err := ParseLogs([]string{line})
	if err != nil {
		t.Fatalf("ParseLogs failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	ev := events[0]
	if ev.Kind != EventCreate {
		t.Errorf("kind = %v, want CREATE", ev.Kind)
	}
	if ev.Mint != base58.Encode(mint) {
		t.Errorf("mint = %q", ev.Mint)
	}
	if ev.Name != "Test Token" || ev.Symbol != "TEST" {
		t.Errorf("name/symbol = %q/%q", ev.Name, ev.Symbol)
	}
	if ev.Creator != base58.Encode(creator) {
		t.Errorf("creator = %q", ev.Creator)
	}
}

func TestParseLogsTradeEvent(t *testing.T) {
	mint := testKey(1)
	trader := testKey(4)

	line := newPayload(tradeEventDisc).
		key(mint).
		u64(1_500_000_000). // 1.5 SOL
		u64(3_000_000_000). // 3000 tokens at 6 decimals
		boolean(true).
		key(trader).
		i64(1700000000).
		u64(30_000_000_000). // virtual SOL reserves
		u64(1_000_000_000).  // virtual token reserves
		u64(2_500_000_000).  // 2.5 SOL real reserves
		logLine()

	events, err := ParseLogs([]string{line})
	if err != nil {
		t.Fatalf("ParseLogs failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	ev := events[0]
	if ev.Kind != EventTrade {
		t.Errorf("kind = %v, want TRADE", ev.Kind)
	}
	if math.Abs(ev.SOLAmount-1.5) > 1e-9 {
		t.Errorf("sol amount = %v, want 1.5", ev.SOLAmount)
	}
	if math.Abs(ev.TokenAmount-3000) > 1e-9 {
		t.Errorf("token amount = %v, want 3000", ev.TokenAmount)
	}
	if !ev.IsBuy {
		t.Error("expected a buy")
	}
	if ev.Trader != base58.Encode(trader) {
		t.Errorf("trader = %q", ev.Trader)
	}
	if math.Abs(ev.RealSOL-2.5) > 1e-9 {
		t.Errorf("real sol = %v, want 2.5", ev.RealSOL)
	}
	if math.Abs(ev.Price-0.0005) > 1e-12 {
		t.Errorf("price = %v, want 0.0005", ev.Price)
	}
	if ev.Timestamp != 1700000000000 {
		t.Errorf("timestamp = %d, want unix ms", ev.Timestamp)
	}
}

func TestParseLogsCompleteEvent(t *testing.T) {
	user := testKey(5)
	mint := testKey(1)
	bondingCurve := testKey(2)

	line := newPayload(completeEventDisc).
		key(user).
		key(mint).
		key(bondingCurve).
		i64(1700000123).
		logLine()

	events, err := ParseLogs([]string{line})
	if err != nil {
		t.Fatalf("ParseLogs failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Kind != EventMigrate {
		t.Errorf("kind = %v, want MIGRATE", events[0].Kind)
	}
	if events[0].Mint != base58.Encode(mint) {
		t.Errorf("mint = %q", events[0].Mint)
	}
}

func TestParseLogsSkipsNoise(t *testing.T) {
	lines := []string{
		"Program 6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P invoke [1]",
		"Program log: Instruction: Buy",
		programDataPrefix + "not-base64!!!",
		programDataPrefix + base64.StdEncoding.EncodeToString([]byte("tiny")),
		// Unknown discriminator
		programDataPrefix + base64.StdEncoding.EncodeToString(make([]byte, 16)),
		"Program consumed 30000 compute units",
	}
	events, err := ParseLogs(lines)
	if err != nil {
		t.Fatalf("ParseLogs failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events from noise, want 0", len(events))
	}
}

func TestParseLogsTruncatedKnownEvent(t *testing.T) {
	// A known discriminator with a short body is a layout error.
	line := programDataPrefix + base64.StdEncoding.EncodeToString(append(tradeEventDisc[:], 1, 2, 3))
	if _, err := ParseLogs([]string{line}); err == nil {
		t.Error("expected error for truncated trade event")
	}
}

func TestParseLogsMultipleEvents(t *testing.T) {
	mint := testKey(1)
	trader := testKey(4)

	trade := func(lamports uint64) string {
		return newPayload(tradeEventDisc).
			key(mint).
			u64(lamports).
			u64(1_000_000).
			boolean(true).
			key(trader).
			i64(1700000000).
			u64(0).u64(0).
			u64(lamports).
			logLine()
	}

	events, err := ParseLogs([]string{trade(1_000_000_000), trade(2_000_000_000)})
	if err != nil {
		t.Fatalf("ParseLogs failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if math.Abs(events[1].SOLAmount-2.0) > 1e-9 {
		t.Errorf("second trade sol = %v, want 2.0", events[1].SOLAmount)
	}
}

func TestValidateMint(t *testing.T) {
	if err := ValidateMint(testMint(1)); err != nil {
		t.Errorf("on-curve mint rejected: %v", err)
	}
	if err := ValidateMint("not!base58"); err == nil {
		t.Error("invalid base58 accepted")
	}
	if err := ValidateMint(base58.Encode([]byte{1, 2, 3})); err == nil {
		t.Error("short key accepted")
	}
}

func TestMintPattern(t *testing.T) {
	if got := MintPattern("AbCdEfGhpump"); got != "pump" {
		t.Errorf("pattern = %q, want pump", got)
	}
	if got := MintPattern("abc"); got != "abc" {
		t.Errorf("short mint pattern = %q, want abc", got)
	}
}
