package ingestion

import (
	"context"
	"log"

	"github.com/hcrypto7/MigDBQuery/internal/solana"
)

// WSMintEventSource decodes mint events from a live program log
// subscription.
type WSMintEventSource struct {
	ws      solana.LogSubscriber
	program string
}

// NewWSMintEventSource creates a WebSocket-backed mint event source for
// the given launchpad program.
func NewWSMintEventSource(ws solana.LogSubscriber, program string) *WSMintEventSource {
	return &WSMintEventSource{ws: ws, program: program}
}

var _ MintEventSource = (*WSMintEventSource)(nil)

// Subscribe returns a channel of mint events decoded from live logs.
// Failed transactions and undecodable payloads are skipped.
func (s *WSMintEventSource) Subscribe(ctx context.Context) (<-chan *MintEvent, error) {
	logsCh, err := s.ws.SubscribeProgramLogs(ctx, s.program)
	if err != nil {
		return nil, err
	}
	log.Printf("[ws-mint] subscribed to program: %s", s.program)

	eventsCh := make(chan *MintEvent, 100)

	go func() {
		defer close(eventsCh)

		for {
			select {
			case <-ctx.Done():
				return
			case notif, ok := <-logsCh:
				if !ok {
					return
				}
				if notif.Err != nil {
					continue // failed transaction
				}

				events, err := ParseLogs(notif.Logs)
				if err != nil {
					log.Printf("[ws-mint] parse logs for %s: %v", notif.Signature, err)
					continue
				}

				for _, ev := range events {
					ev.Slot = notif.Slot
					ev.Signature = notif.Signature

					select {
					case eventsCh <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return eventsCh, nil
}
