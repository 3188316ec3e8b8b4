package state

import (
	"context"
	"errors"

	"patron/internal/model"
)

func (c *Chain) SetSubscriptionPrice(ctx context.Context, info model.SubscriptionInfo) error {
	return c.putJSON(ctx, prefixSubPrice+info.Author.Hex(), info)
}

func (c *Chain) SubscriptionPrice(ctx context.Context, author model.Owner) (model.SubscriptionInfo, error) {
	var info model.SubscriptionInfo
	if err := c.getJSON(ctx, prefixSubPrice+author.Hex(), &info); err != nil {
		return model.SubscriptionInfo{}, err
	}
	return info, nil
}

func (c *Chain) DeleteSubscriptionPrice(ctx context.Context, author model.Owner) error {
	return c.delete(ctx, prefixSubPrice+author.Hex())
}

// CreateSubscription inserts the grant with all three secondary indices.
func (c *Chain) CreateSubscription(ctx context.Context, sub model.ContentSubscription) error {
	if err := c.putJSON(ctx, prefixSubscription+sub.ID, sub); err != nil {
		return err
	}
	if err := c.addID(ctx, idxSubsByAuthor+sub.Author.Hex(), sub.ID); err != nil {
		return err
	}
	if err := c.addID(ctx, idxSubsByChain+string(sub.AuthorChain), sub.ID); err != nil {
		return err
	}
	return c.addID(ctx, idxSubsBySubscriber+sub.Subscriber.Hex(), sub.ID)
}

// RemoveSubscription deletes the grant and scrubs all three secondary
// indices. The grant record carries the author chain, so it is read
// before deletion; removals replayed for grants this chain never held
// still scrub the owner indices.
func (c *Chain) RemoveSubscription(ctx context.Context, subID string, author, subscriber model.Owner) error {
	var sub model.ContentSubscription
	err := c.getJSON(ctx, prefixSubscription+subID, &sub)
	switch {
	case err == nil:
		if err := c.removeID(ctx, idxSubsByChain+string(sub.AuthorChain), subID); err != nil {
			return err
		}
	case !errors.Is(err, ErrNotFound):
		return err
	}

	if err := c.delete(ctx, prefixSubscription+subID); err != nil {
		return err
	}
	if err := c.removeID(ctx, idxSubsByAuthor+author.Hex(), subID); err != nil {
		return err
	}
	return c.removeID(ctx, idxSubsBySubscriber+subscriber.Hex(), subID)
}

func (c *Chain) GetSubscription(ctx context.Context, subID string) (model.ContentSubscription, error) {
	var sub model.ContentSubscription
	if err := c.getJSON(ctx, prefixSubscription+subID, &sub); err != nil {
		return model.ContentSubscription{}, err
	}
	return sub, nil
}

// SubscriptionIDsByAuthor exposes the raw index so the executor can walk
// it while lazily expiring stale grants.
func (c *Chain) SubscriptionIDsByAuthor(ctx context.Context, author model.Owner) ([]string, error) {
	return c.ids(ctx, idxSubsByAuthor+author.Hex())
}

func (c *Chain) listSubscriptions(ctx context.Context, indexKey string) ([]model.ContentSubscription, error) {
	ids, err := c.ids(ctx, indexKey)
	if err != nil {
		return nil, err
	}

	subs := make([]model.ContentSubscription, 0, len(ids))
	for _, id := range ids {
		var sub model.ContentSubscription
		err := c.getJSON(ctx, prefixSubscription+id, &sub)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (c *Chain) SubscriptionsBySubscriber(ctx context.Context, subscriber model.Owner) ([]model.ContentSubscription, error) {
	return c.listSubscriptions(ctx, idxSubsBySubscriber+subscriber.Hex())
}

func (c *Chain) SubscriptionsByAuthor(ctx context.Context, author model.Owner) ([]model.ContentSubscription, error) {
	return c.listSubscriptions(ctx, idxSubsByAuthor+author.Hex())
}

// SubscriptionsByChain lists every grant whose author lives on the given
// chain, local grants included when the chain is this one.
func (c *Chain) SubscriptionsByChain(ctx context.Context, chain model.ChainID) ([]model.ContentSubscription, error) {
	return c.listSubscriptions(ctx, idxSubsByChain+string(chain))
}

// ActiveSubscriptions filters the author's grants by the local clock.
func (c *Chain) ActiveSubscriptions(ctx context.Context, author model.Owner, now uint64) ([]model.ContentSubscription, error) {
	subs, err := c.SubscriptionsByAuthor(ctx, author)
	if err != nil {
		return nil, err
	}

	active := subs[:0]
	for _, sub := range subs {
		if sub.EndTimestamp >= now {
			active = append(active, sub)
		}
	}
	return active, nil
}
