package core

import (
	"context"
	"errors"
	"fmt"

	"patron/internal/model"
	"patron/internal/state"
)

// ProcessStreams replays newly published ranges of followed event streams
// into the local mirror. The chain's own stream is skipped, and each event
// fails in its own scope so one bad entry cannot stall the rest of the
// batch.
func (e *Executor) ProcessStreams(ctx context.Context, updates []StreamUpdate) {
	current := e.runtime.ChainID()
	for _, update := range updates {
		if update.Chain == current {
			continue
		}
		for index := update.PreviousIndex; index < update.NextIndex; index++ {
			ev, err := e.runtime.ReadEvent(ctx, update.Chain, update.Stream, index)
			if err != nil {
				e.logs.Errorw("stream event read failed",
					"chain", update.Chain, "stream", update.Stream, "index", index, "error", err)
				continue
			}
			if err := e.applyEvent(ctx, update.Chain, ev); err != nil {
				e.logs.Errorw("stream event apply failed",
					"chain", update.Chain, "kind", ev.Kind, "index", index, "error", err)
			}
		}
	}
}

// applyEvent mirrors one remote stream entry into local state. Replays
// and duplicate deliveries must land on the same state, so every branch
// is an idempotent write.
func (e *Executor) applyEvent(ctx context.Context, source model.ChainID, ev model.Event) error {
	switch ev.Kind {
	case model.EvProfileNameUpdated:
		return e.state.SetName(ctx, ev.Profile.Owner, ev.Profile.Name)
	case model.EvProfileBioUpdated:
		return e.state.SetBio(ctx, ev.Profile.Owner, ev.Profile.Bio)
	case model.EvProfileSocialUpdated:
		return e.state.SetSocial(ctx, ev.Profile.Owner, ev.Profile.Name, ev.Profile.URL)
	case model.EvProfileAvatarUpdated:
		return e.state.SetAvatar(ctx, ev.Profile.Owner, ev.Profile.Hash)
	case model.EvProfileHeaderUpdated:
		return e.state.SetHeader(ctx, ev.Profile.Owner, ev.Profile.Hash)

	case model.EvDonationSent:
		_, err := e.state.RecordDonation(ctx, *ev.Donation)
		return err

	case model.EvProductCreated:
		return e.state.CreateProduct(ctx, *ev.Product)
	case model.EvProductUpdated:
		return e.mirrorProductUpdate(ctx, *ev.Product)
	case model.EvProductDeleted:
		return e.state.DeleteProduct(ctx, ev.ProductDeleted.ProductID, ev.ProductDeleted.Author)

	case model.EvProductPurchased:
		return e.mirrorPurchase(ctx, ev.Purchase, ev.Timestamp)
	case model.EvOrderPlaced:
		// The seller chain's own record; mirrors hold the purchase via
		// the product_purchased entry.
		return nil

	case model.EvSubPriceSet:
		return e.state.SetSubscriptionPrice(ctx, *ev.SubPrice)
	case model.EvSubPriceDeleted:
		return e.state.DeleteSubscriptionPrice(ctx, *ev.Author)
	case model.EvUserSubscribed:
		// The grant lives on the author and subscriber chains, which both
		// wrote it when the payment settled.
		return nil
	case model.EvUserUnsubscribed:
		err := e.state.RemoveSubscription(ctx, ev.Unsubscribed.SubscriptionID,
			ev.Unsubscribed.Author, ev.Unsubscribed.Subscriber)
		if errors.Is(err, state.ErrNotFound) {
			return nil
		}
		return err

	case model.EvPostCreated:
		return e.state.CreatePost(ctx, *ev.Post)
	case model.EvPostUpdated:
		post := ev.Post
		return e.state.UpdatePost(ctx, post.ID, post.Author, &post.Title, &post.Content, post.ImageHash)
	case model.EvPostDeleted:
		return e.state.DeletePost(ctx, ev.PostDeleted.PostID, ev.PostDeleted.Author)

	case model.EvVoteCast:
		_, err := e.state.CastVote(ctx, ev.Vote.PostID, ev.Vote.Voter, ev.Vote.Option, ev.Timestamp)
		if errors.Is(err, state.ErrNotFound) {
			return nil
		}
		return err
	case model.EvPollResultsUpdated:
		return e.state.ApplyPollSnapshot(ctx, ev.Poll.PostID, ev.Poll.Poll)
	case model.EvGiveawayParticipated:
		join := ev.GiveawayJoin
		_, err := e.state.JoinGiveaway(ctx, join.PostID, model.GiveawayEntry{
			Participant: join.Participant,
			Chain:       join.ParticipantChain,
			JoinedAt:    join.Timestamp,
		}, ev.Timestamp)
		if errors.Is(err, state.ErrAlreadyJoined) || errors.Is(err, state.ErrNotFound) {
			return nil
		}
		return err
	case model.EvGiveawayResolved:
		return e.state.ApplyGiveawaySnapshot(ctx, ev.Giveaway.PostID, ev.Giveaway.Giveaway)

	default:
		return fmt.Errorf("unknown event kind %q from %s", ev.Kind, source)
	}
}

// mirrorPurchase lands a remote purchase entry when the product is known
// locally; chains that never mirrored the product skip it. The same price
// check the direct message path runs applies here, so a replayed underpaid
// purchase is dropped too.
func (e *Executor) mirrorPurchase(ctx context.Context, notice *model.PurchaseNotice, ts uint64) error {
	product, err := e.state.GetProduct(ctx, notice.ProductID)
	if errors.Is(err, state.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if notice.Amount == nil || product.Price == nil || notice.Amount.Cmp(product.Price) != 0 {
		return fmt.Errorf("purchase %s paid %v, product %s costs %v",
			notice.PurchaseID, notice.Amount, product.ID, product.Price)
	}

	purchase := model.Purchase{
		ID:            notice.PurchaseID,
		ProductID:     notice.ProductID,
		Buyer:         notice.Buyer,
		BuyerChainID:  notice.BuyerChain,
		Seller:        notice.Seller,
		SellerChainID: product.AuthorChainID,
		Amount:        notice.Amount,
		Timestamp:     ts,
		OrderData:     notice.OrderData,
		Product:       product,
	}
	return e.state.RecordPurchase(ctx, purchase)
}
