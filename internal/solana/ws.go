// Package solana provides a minimal Solana WebSocket client for program
// log subscriptions.
package solana

import "context"

// LogSubscriber subscribes to program log notifications.
type LogSubscriber interface {
	// SubscribeProgramLogs subscribes to logs mentioning the program.
	// The returned channel stays open across reconnects and closes when
	// the client closes.
	SubscribeProgramLogs(ctx context.Context, program string) (<-chan LogNotification, error)

	// Close tears down the connection and closes all subscription channels.
	Close() error
}

// LogNotification is one logsNotification message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       any // non-nil when the transaction failed
}
