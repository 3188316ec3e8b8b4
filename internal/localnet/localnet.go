// Package localnet is an in-process network of chains used by tests. Each
// chain gets its own in-memory store, executor, logical clock, message
// inbox and event stream; Settle pumps messages and stream updates until
// the network is quiescent.
package localnet

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"go.uber.org/zap"

	"patron/internal/core"
	"patron/internal/db"
	"patron/internal/model"
	"patron/internal/state"
)

type envelope struct {
	from model.ChainID
	dest model.ChainID
	msg  model.Message
}

// Network owns the chains and the undelivered message queue.
type Network struct {
	mu     sync.Mutex
	logs   *zap.SugaredLogger
	chains map[model.ChainID]*Chain
	queue  []envelope
	blobs  map[string][]byte
}

func NewNetwork(logger *zap.SugaredLogger) *Network {
	return &Network{
		logs:   logger,
		chains: make(map[model.ChainID]*Chain),
		blobs:  make(map[string][]byte),
	}
}

// AddChain spins up a chain with an empty store and a clock at start.
func (n *Network) AddChain(id model.ChainID, start uint64) *Chain {
	chain := &Chain{
		net:      n,
		id:       id,
		clock:    start,
		follows:  make(map[model.ChainID]string),
		cursors:  make(map[model.ChainID]uint64),
		balances: make(map[model.Owner]*big.Int),
	}
	chain.state = state.NewChain(db.NewMemory())
	chain.exec = core.NewExecutor(n.logs, chain.state, chain)
	n.chains[id] = chain
	return chain
}

func (n *Network) Chain(id model.ChainID) *Chain {
	return n.chains[id]
}

// AddBlob registers host data addressable by hash from every chain.
func (n *Network) AddBlob(hash string, data []byte) {
	n.blobs[hash] = data
}

// Settle delivers queued messages and replays stream updates until no
// chain has pending work. The round cap guards against a delivery loop.
func (n *Network) Settle(ctx context.Context) error {
	for round := 0; round < 100; round++ {
		moved := n.deliverMessages(ctx)
		moved = n.replayStreams(ctx) || moved
		if !moved {
			return nil
		}
	}
	return fmt.Errorf("network did not settle within 100 rounds")
}

func (n *Network) deliverMessages(ctx context.Context) bool {
	n.mu.Lock()
	pending := n.queue
	n.queue = nil
	n.mu.Unlock()

	for _, env := range pending {
		dest, ok := n.chains[env.dest]
		if !ok {
			n.logs.Errorw("message to unknown chain dropped", "dest", env.dest, "kind", env.msg.Kind)
			continue
		}
		if err := dest.exec.HandleMessage(ctx, env.from, env.msg); err != nil {
			n.logs.Errorw("message handling failed",
				"dest", env.dest, "from", env.from, "kind", env.msg.Kind, "error", err)
		}
	}
	return len(pending) > 0
}

func (n *Network) replayStreams(ctx context.Context) bool {
	moved := false
	for _, follower := range n.chains {
		var updates []core.StreamUpdate
		for source, stream := range follower.follows {
			src, ok := n.chains[source]
			if !ok {
				continue
			}
			next := uint64(len(src.stream))
			prev := follower.cursors[source]
			if next > prev {
				updates = append(updates, core.StreamUpdate{
					Chain:         source,
					Stream:        stream,
					PreviousIndex: prev,
					NextIndex:     next,
				})
				follower.cursors[source] = next
			}
		}
		if len(updates) > 0 {
			follower.exec.ProcessStreams(ctx, updates)
			moved = true
		}
	}
	return moved
}

// Chain is one node of the local network. It implements core.Runtime for
// its own executor.
type Chain struct {
	net      *Network
	id       model.ChainID
	clock    uint64
	state    *state.Chain
	exec     *core.Executor
	stream   []model.Event
	follows  map[model.ChainID]string
	cursors  map[model.ChainID]uint64
	balances map[model.Owner]*big.Int
}

func (c *Chain) Executor() *core.Executor { return c.exec }
func (c *Chain) State() *state.Chain      { return c.state }

// SetClock moves the chain's logical clock, e.g. past a subscription
// window.
func (c *Chain) SetClock(now uint64) { c.clock = now }

func (c *Chain) Tick(delta uint64) { c.clock += delta }

// Fund credits an owner's balance directly, outside the ledger.
func (c *Chain) Fund(owner model.Owner, amount model.Amount) {
	c.credit(owner, amount)
}

func (c *Chain) credit(owner model.Owner, amount model.Amount) {
	balance, ok := c.balances[owner]
	if !ok {
		balance = new(big.Int)
		c.balances[owner] = balance
	}
	balance.Add(balance, amount)
}

// core.Runtime implementation.

func (c *Chain) ChainID() model.ChainID { return c.id }

func (c *Chain) Now() uint64 { return c.clock }

func (c *Chain) Transfer(ctx context.Context, from model.Owner, to model.Account, amount model.Amount) error {
	// The pool is a bottomless mint source.
	if from != model.PoolOwner {
		balance := c.balances[from]
		if balance == nil || balance.Cmp(amount) < 0 {
			return fmt.Errorf("insufficient balance for %s on %s", from.Hex(), c.id)
		}
		balance.Sub(balance, amount)
	}

	dest, ok := c.net.chains[to.ChainID]
	if !ok {
		return fmt.Errorf("transfer to unknown chain %s", to.ChainID)
	}
	if to.Owner != model.PoolOwner {
		dest.credit(to.Owner, amount)
	}
	return nil
}

func (c *Chain) OwnerBalance(ctx context.Context, owner model.Owner) (model.Amount, error) {
	balance, ok := c.balances[owner]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(balance), nil
}

func (c *Chain) SendMessage(ctx context.Context, dest model.ChainID, msg model.Message) error {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()
	c.net.queue = append(c.net.queue, envelope{from: c.id, dest: dest, msg: msg})
	return nil
}

func (c *Chain) EmitEvent(ctx context.Context, stream string, ev model.Event) error {
	c.stream = append(c.stream, ev)
	return nil
}

func (c *Chain) SubscribeToEvents(ctx context.Context, source model.ChainID, stream string) error {
	c.follows[source] = stream
	return nil
}

func (c *Chain) ReadEvent(ctx context.Context, source model.ChainID, stream string, index uint64) (model.Event, error) {
	src, ok := c.net.chains[source]
	if !ok {
		return model.Event{}, fmt.Errorf("unknown chain %s", source)
	}
	if index >= uint64(len(src.stream)) {
		return model.Event{}, fmt.Errorf("%w: %s[%d]", db.ErrNotFound, source, index)
	}
	return src.stream[index], nil
}

func (c *Chain) ReadBlob(ctx context.Context, hash string) ([]byte, error) {
	data, ok := c.net.blobs[hash]
	if !ok {
		return nil, fmt.Errorf("%w: blob %s", db.ErrNotFound, hash)
	}
	return data, nil
}
