package core

import (
	"context"

	"patron/internal/model"
)

// StreamUpdate describes a contiguous unread range of a subscribed source
// chain's event stream.
type StreamUpdate struct {
	Chain         model.ChainID
	Stream        string
	PreviousIndex uint64
	NextIndex     uint64
}

// Runtime is everything the executor asks of its host chain: identity,
// clock, the external ledger primitive, one-way messaging, the event
// stream, and blob reads. Implementations: localnet (in-process) and node
// (postgres + HTTP peering).
type Runtime interface {
	ChainID() model.ChainID
	// Now returns the chain-local clock in microseconds. Chains do not
	// share a clock.
	Now() uint64

	Transfer(ctx context.Context, from model.Owner, to model.Account, amount model.Amount) error
	OwnerBalance(ctx context.Context, owner model.Owner) (model.Amount, error)

	// SendMessage is fire-and-forget: delivery is eventual at best and a
	// failure is the receiver's silence, never the sender's error.
	SendMessage(ctx context.Context, dest model.ChainID, msg model.Message) error

	EmitEvent(ctx context.Context, stream string, ev model.Event) error
	SubscribeToEvents(ctx context.Context, source model.ChainID, stream string) error
	ReadEvent(ctx context.Context, source model.ChainID, stream string, index uint64) (model.Event, error)

	ReadBlob(ctx context.Context, hash string) ([]byte, error)
}
