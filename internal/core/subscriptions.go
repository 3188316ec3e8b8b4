package core

import (
	"context"
	"fmt"

	"patron/internal/model"
)

func (e *Executor) SetSubscriptionPrice(ctx context.Context, caller model.Owner, op SetSubscriptionPriceOp) error {
	info := model.SubscriptionInfo{
		Author:      caller,
		Price:       op.Price,
		Description: op.Description,
	}
	if err := e.state.SetSubscriptionPrice(ctx, info); err != nil {
		return fmt.Errorf("set subscription price: %w", err)
	}

	e.emit(ctx, model.Event{Kind: model.EvSubPriceSet, Timestamp: e.runtime.Now(), SubPrice: &info})
	return nil
}

func (e *Executor) DeleteSubscriptionPrice(ctx context.Context, caller model.Owner) error {
	if err := e.state.DeleteSubscriptionPrice(ctx, caller); err != nil {
		return fmt.Errorf("delete subscription price: %w", err)
	}

	author := caller
	e.emit(ctx, model.Event{Kind: model.EvSubPriceDeleted, Timestamp: e.runtime.Now(), Author: &author})
	return nil
}

// SubscribeToAuthor pays the author and opens a fixed 30-day window. The
// grant is recorded locally for the subscriber's own queries; the author's
// chain is told so it can deliver gated content.
func (e *Executor) SubscribeToAuthor(ctx context.Context, caller model.Owner, op SubscribeToAuthorOp) (model.ContentSubscription, error) {
	if err := e.runtime.Transfer(ctx, caller, op.Target, op.Amount); err != nil {
		return model.ContentSubscription{}, fmt.Errorf("ledger transfer: %w", err)
	}

	ts := e.runtime.Now()
	subscriberChain := e.runtime.ChainID()
	author := op.Target.Owner
	authorChain := op.Target.ChainID

	sub := model.ContentSubscription{
		ID:              fmt.Sprintf("sub-%s-%s-%d", caller.Hex(), author.Hex(), ts),
		Subscriber:      caller,
		SubscriberChain: subscriberChain,
		Author:          author,
		AuthorChain:     authorChain,
		StartTimestamp:  ts,
		EndTimestamp:    ts + model.SubscriptionDurationMicros,
		Price:           op.Amount,
	}

	if err := e.state.CreateSubscription(ctx, sub); err != nil {
		return model.ContentSubscription{}, fmt.Errorf("create subscription: %w", err)
	}

	if authorChain != subscriberChain {
		e.routeToChain(ctx, authorChain, model.Message{
			Kind: model.MsgSubscriptionPayment,
			Subscription: &model.SubscriptionNotice{
				Subscriber:      caller,
				SubscriberChain: subscriberChain,
				Author:          author,
				Amount:          op.Amount,
				DurationMicros:  model.SubscriptionDurationMicros,
				Timestamp:       ts,
			},
		})
	}

	return sub, nil
}

// expireOrCollect walks one author-index entry during a fanout scan: a
// stale grant is removed and announced, a live remote one is returned for
// delivery.
func (e *Executor) expireOrCollect(ctx context.Context, subID string, author model.Owner, now uint64) (model.ContentSubscription, bool) {
	sub, err := e.state.GetSubscription(ctx, subID)
	if err != nil {
		return model.ContentSubscription{}, false
	}

	if sub.EndTimestamp < now {
		if err := e.state.RemoveSubscription(ctx, subID, author, sub.Subscriber); err != nil {
			e.logs.Errorw("expired subscription removal failed", "sub_id", subID, "error", err)
			return model.ContentSubscription{}, false
		}
		e.emit(ctx, model.Event{Kind: model.EvUserUnsubscribed, Timestamp: now,
			Unsubscribed: &model.UnsubscribedNotice{
				SubscriptionID: subID,
				Subscriber:     sub.Subscriber,
				Author:         author,
			}})
		return model.ContentSubscription{}, false
	}

	return sub, true
}

// fanoutToSubscribers delivers a message to every chain holding a
// currently-valid subscription to the author, lazily expiring stale grants
// found along the way.
func (e *Executor) fanoutToSubscribers(ctx context.Context, author model.Owner, now uint64, msg model.Message) {
	subIDs, err := e.state.SubscriptionIDsByAuthor(ctx, author)
	if err != nil {
		e.logs.Errorw("subscriber scan failed", "author", author.Hex(), "error", err)
		return
	}

	current := e.runtime.ChainID()
	for _, subID := range subIDs {
		sub, live := e.expireOrCollect(ctx, subID, author, now)
		if !live {
			continue
		}
		if sub.SubscriberChain != current {
			e.routeToChain(ctx, sub.SubscriberChain, msg)
		}
	}
}

// hasValidSubscription gates subscriber-only interactions on the author's
// chain. The author always passes their own gate.
func (e *Executor) hasValidSubscription(ctx context.Context, author, caller model.Owner, now uint64) (bool, error) {
	if caller == author {
		return true, nil
	}

	subs, err := e.state.SubscriptionsByAuthor(ctx, author)
	if err != nil {
		return false, err
	}
	for _, sub := range subs {
		if sub.Subscriber == caller && sub.ValidAt(now) {
			return true, nil
		}
	}
	return false, nil
}
