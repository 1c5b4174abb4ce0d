// Package messagelog records inbound and outbound message traffic for
// auditing. Phone numbers are stored masked; logging is best-effort and
// never blocks the messaging path.
package messagelog

import (
	"context"
	"time"
)

// Direction of a logged message relative to the gateway.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Entry is one logged message event.
type Entry struct {
	Direction Direction `bson:"direction"`
	Peer      string    `bson:"peer"` // masked phone number
	Kind      string    `bson:"kind"`
	Status    string    `bson:"status"`
	MessageID string    `bson:"message_id,omitempty"`
	Timestamp time.Time `bson:"timestamp"`
}

// Store persists log entries.
type Store interface {
	Record(ctx context.Context, entry Entry) error
}

// NopStore discards every entry. Used when no MongoDB URI is configured.
type NopStore struct{}

// Record implements Store.
func (NopStore) Record(context.Context, Entry) error { return nil }
