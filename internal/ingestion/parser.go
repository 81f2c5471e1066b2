package ingestion

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

const (
	lamportsPerSOL = 1e9
	tokenDecimals  = 1e6

	programDataPrefix = "Program data: "
)

// Anchor event discriminators: first 8 bytes of sha256("event:<Name>").
var (
	createEventDisc   = eventDiscriminator("CreateEvent")
	tradeEventDisc    = eventDiscriminator("TradeEvent")
	completeEventDisc = eventDiscriminator("CompleteEvent")
)

func eventDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("event:" + name))
	var disc [8]byte
	copy(disc[:], sum[:8])
	return disc
}

// ParseLogs decodes launchpad events from transaction log messages.
// Unrecognized lines and payloads are skipped; a truncated payload for a
// known event is an error since it means the layout assumption broke.
func ParseLogs(logs []string) ([]*MintEvent, error) {
	var events []*MintEvent

	for _, line := range logs {
		if !strings.HasPrefix(line, programDataPrefix) {
			continue
		}

		payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(line, programDataPrefix))
		if err != nil || len(payload) < 8 {
			continue
		}

		var disc [8]byte
		copy(disc[:], payload[:8])

		var ev *MintEvent
		switch disc {
		case createEventDisc:
			ev, err = parseCreateEvent(payload[8:])
		case tradeEventDisc:
			ev, err = parseTradeEvent(payload[8:])
		case completeEventDisc:
			ev, err = parseCompleteEvent(payload[8:])
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	return events, nil
}

// parseCreateEvent decodes: name, symbol, uri (borsh strings), then
// mint, bonding curve and creator pubkeys.
func parseCreateEvent(data []byte) (*MintEvent, error) {
	r := &byteReader{data: data}

	name, err := r.borshString()
	if err != nil {
		return nil, fmt.Errorf("create event name: %w", err)
	}
	symbol, err := r.borshString()
	if err != nil {
		return nil, fmt.Errorf("create event symbol: %w", err)
	}
	if _, err := r.borshString(); err != nil { // uri, unused
		return nil, fmt.Errorf("create event uri: %w", err)
	}
	mint, err := r.pubkey()
	if err != nil {
		return nil, fmt.Errorf("create event mint: %w", err)
	}
	if _, err := r.pubkey(); err != nil { // bonding curve, unused
		return nil, fmt.Errorf("create event bonding curve: %w", err)
	}
	creator, err := r.pubkey()
	if err != nil {
		return nil, fmt.Errorf("create event creator: %w", err)
	}

	return &MintEvent{
		Kind:    EventCreate,
		Mint:    mint,
		Name:    name,
		Symbol:  symbol,
		Creator: creator,
	}, nil
}

// parseTradeEvent decodes: mint, solAmount u64, tokenAmount u64, isBuy,
// user, timestamp i64, virtual reserves (2x u64), real SOL reserves u64.
func parseTradeEvent(data []byte) (*MintEvent, error) {
	r := &byteReader{data: data}

	mint, err := r.pubkey()
	if err != nil {
		return nil, fmt.Errorf("trade event mint: %w", err)
	}
	solLamports, err := r.uint64()
	if err != nil {
		return nil, fmt.Errorf("trade event sol amount: %w", err)
	}
	tokenRaw, err := r.uint64()
	if err != nil {
		return nil, fmt.Errorf("trade event token amount: %w", err)
	}
	isBuy, err := r.boolean()
	if err != nil {
		return nil, fmt.Errorf("trade event direction: %w", err)
	}
	trader, err := r.pubkey()
	if err != nil {
		return nil, fmt.Errorf("trade event user: %w", err)
	}
	timestamp, err := r.int64()
	if err != nil {
		return nil, fmt.Errorf("trade event timestamp: %w", err)
	}
	if _, err := r.uint64(); err != nil { // virtual SOL reserves, unused
		return nil, fmt.Errorf("trade event virtual sol: %w", err)
	}
	if _, err := r.uint64(); err != nil { // virtual token reserves, unused
		return nil, fmt.Errorf("trade event virtual tokens: %w", err)
	}
	realLamports, err := r.uint64()
	if err != nil {
		return nil, fmt.Errorf("trade event real sol: %w", err)
	}

	sol := float64(solLamports) / lamportsPerSOL
	tokens := float64(tokenRaw) / tokenDecimals
	var price float64
	if tokens > 0 {
		price = sol / tokens
	}

	return &MintEvent{
		Kind:        EventTrade,
		Mint:        mint,
		SOLAmount:   sol,
		TokenAmount: tokens,
		IsBuy:       isBuy,
		Trader:      trader,
		RealSOL:     float64(realLamports) / lamportsPerSOL,
		Price:       price,
		Timestamp:   timestamp * 1000,
	}, nil
}

// parseCompleteEvent decodes: user, mint, bonding curve, timestamp i64.
func parseCompleteEvent(data []byte) (*MintEvent, error) {
	r := &byteReader{data: data}

	if _, err := r.pubkey(); err != nil { // user, unused
		return nil, fmt.Errorf("complete event user: %w", err)
	}
	mint, err := r.pubkey()
	if err != nil {
		return nil, fmt.Errorf("complete event mint: %w", err)
	}
	if _, err := r.pubkey(); err != nil { // bonding curve, unused
		return nil, fmt.Errorf("complete event bonding curve: %w", err)
	}
	timestamp, err := r.int64()
	if err != nil {
		return nil, fmt.Errorf("complete event timestamp: %w", err)
	}

	return &MintEvent{
		Kind:      EventMigrate,
		Mint:      mint,
		Timestamp: timestamp * 1000,
	}, nil
}

// byteReader is a cursor over borsh-encoded event payloads.
type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("payload truncated at offset %d (need %d bytes)", r.pos, n)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *byteReader) uint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *byteReader) int64() (int64, error) {
	v, err := r.uint64()
	return int64(v), err
}

func (r *byteReader) boolean() (bool, error) {
	b, err := r.take(1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

// borshString reads a u32 length-prefixed UTF-8 string.
func (r *byteReader) borshString() (string, error) {
	lb, err := r.take(4)
	if err != nil {
		return "", err
	}
	n := int(binary.LittleEndian.Uint32(lb))
	b, err := r.take(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *byteReader) pubkey() (string, error) {
	b, err := r.take(32)
	if err != nil {
		return "", err
	}
	return base58.Encode(b), nil
}
