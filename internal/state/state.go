// Package state implements the per-chain indexed store: typed entity maps
// over a raw key-value backend, plus the secondary list indices every
// list-by query depends on. All list mutations are read-modify-write; the
// chain's single-threaded execution model makes that safe.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"patron/internal/db"
)

var (
	ErrNotFound     = errors.New("entity not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation failed")
	ErrCorrupt      = errors.New("state corrupted")

	ErrPollEnded        = errors.New("poll has ended")
	ErrNoPoll           = errors.New("post has no poll")
	ErrGiveawayEnded    = errors.New("giveaway has ended")
	ErrGiveawayResolved = errors.New("giveaway already resolved")
	ErrNoGiveaway       = errors.New("post has no giveaway")
	ErrNoParticipants   = errors.New("giveaway has no participants")
	ErrAlreadyJoined    = errors.New("already participating")
)

const (
	keyDonationCounter = "donation_counter"

	prefixProfile      = "profile/"
	prefixHubEdge      = "hubedge/"
	prefixDonation     = "donation/"
	prefixProduct      = "product/"
	prefixPurchase     = "purchase/"
	prefixSubPrice     = "subprice/"
	prefixSubscription = "subscription/"
	prefixPost         = "post/"

	idxDonationsByRecipient = "idx/donations_by_recipient/"
	idxDonationsByDonor     = "idx/donations_by_donor/"
	idxProductsByAuthor     = "idx/products_by_author/"
	idxProductsByChain      = "idx/products_by_chain/"
	idxPurchasesByBuyer     = "idx/purchases_by_buyer/"
	idxPurchasesBySeller    = "idx/purchases_by_seller/"
	idxSubsByAuthor         = "idx/subscriptions_by_author/"
	idxSubsByChain          = "idx/subscriptions_by_chain/"
	idxSubsBySubscriber     = "idx/subscriptions_by_subscriber/"
	idxPostsByAuthor        = "idx/posts_by_author/"
	idxPostsByChain         = "idx/posts_by_chain/"
)

// Chain is one chain's view of the world. It owns no storage itself; the
// backend is injected so tests and the local network can share the type.
type Chain struct {
	kv db.KV
}

func NewChain(kv db.KV) *Chain {
	return &Chain{kv: kv}
}

func (c *Chain) getJSON(ctx context.Context, key string, out any) error {
	raw, err := c.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get %q: %w: %w", key, ErrCorrupt, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %q: %w: %w", key, ErrCorrupt, err)
	}
	return nil
}

func (c *Chain) putJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w: %w", key, ErrCorrupt, err)
	}
	if err := c.kv.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("put %q: %w: %w", key, ErrCorrupt, err)
	}
	return nil
}

func (c *Chain) delete(ctx context.Context, key string) error {
	if err := c.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %q: %w: %w", key, ErrCorrupt, err)
	}
	return nil
}

// ids reads a list index; a missing index is an empty list.
func (c *Chain) ids(ctx context.Context, key string) ([]string, error) {
	var out []string
	err := c.getJSON(ctx, key, &out)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// addID appends to a list index; re-adding an existing id is a no-op so
// replayed updates cannot grow the index.
func (c *Chain) addID(ctx context.Context, key, id string) error {
	list, err := c.ids(ctx, key)
	if err != nil {
		return err
	}
	for _, existing := range list {
		if existing == id {
			return nil
		}
	}
	list = append(list, id)
	return c.putJSON(ctx, key, list)
}

func (c *Chain) removeID(ctx context.Context, key, id string) error {
	list, err := c.ids(ctx, key)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, candidate := range list {
		if candidate != id {
			kept = append(kept, candidate)
		}
	}
	return c.putJSON(ctx, key, kept)
}
