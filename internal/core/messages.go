package core

import (
	"context"
	"fmt"

	"patron/internal/model"
)

// HandleMessage applies a cross-chain message delivered to this chain.
// sender is the chain the message arrived from; for routed payloads the
// body also carries the origin chain, which wins when they differ.
func (e *Executor) HandleMessage(ctx context.Context, sender model.ChainID, msg model.Message) error {
	switch msg.Kind {
	case model.MsgTransferWithMessage:
		return e.handleTransferNotice(ctx, msg.Transfer)
	case model.MsgRegister:
		return e.handleRegister(ctx, msg.Register)
	case model.MsgProductCreated:
		return e.state.CreateProduct(ctx, *msg.Product)
	case model.MsgProductUpdated:
		return e.mirrorProductUpdate(ctx, *msg.Product)
	case model.MsgProductDeleted:
		return e.state.DeleteProduct(ctx, msg.ProductDeleted.ProductID, msg.ProductDeleted.Author)
	case model.MsgProductPurchased:
		return e.handlePurchaseOnHub(ctx, sender, msg.Purchase)
	case model.MsgSendProductData:
		return e.handleProductDelivery(ctx, sender, msg.Delivery)
	case model.MsgOrderReceived:
		return e.handleOrder(ctx, sender, msg.Order)
	case model.MsgSubscriptionPayment:
		return e.handleSubscriptionPayment(ctx, sender, msg.Subscription)
	case model.MsgPostPublished:
		return e.state.CreatePost(ctx, *msg.Post)
	case model.MsgPostUpdated:
		post := msg.Post
		return e.state.UpdatePost(ctx, post.ID, post.Author, &post.Title, &post.Content, post.ImageHash)
	case model.MsgPostDeleted:
		return e.state.DeletePost(ctx, msg.PostDeleted.PostID, msg.PostDeleted.Author)
	case model.MsgVoteCast:
		return e.applyVote(ctx, *msg.Vote)
	case model.MsgGiveawayParticipation:
		return e.applyGiveawayJoin(ctx, *msg.GiveawayJoin, true)
	case model.MsgPollResultsUpdated:
		return e.state.ApplyPollSnapshot(ctx, msg.Poll.PostID, msg.Poll.Poll)
	case model.MsgGiveawayUpdated:
		return e.state.ApplyGiveawaySnapshot(ctx, msg.Giveaway.PostID, msg.Giveaway.Giveaway)
	default:
		return fmt.Errorf("unknown message kind %q", msg.Kind)
	}
}

// handleTransferNotice records the receiving side of a cross-chain
// donation so both chains hold the same entry.
func (e *Executor) handleTransferNotice(ctx context.Context, notice *model.TransferNotice) error {
	source := notice.SourceChain
	current := e.runtime.ChainID()
	rec := model.DonationRecord{
		Timestamp:     e.runtime.Now(),
		From:          notice.SourceOwner,
		To:            notice.Owner,
		Amount:        notice.Amount,
		Message:       notice.Text,
		SourceChainID: &source,
		ToChainID:     &current,
	}
	if _, err := e.state.RecordDonation(ctx, rec); err != nil {
		return fmt.Errorf("record donation: %w", err)
	}
	e.emit(ctx, model.Event{Kind: model.EvDonationSent, Timestamp: rec.Timestamp, Donation: &rec})
	return nil
}

// handleRegister runs on the hub: remember which chain the owner lives on,
// mirror their profile, and follow their event stream from now on.
func (e *Executor) handleRegister(ctx context.Context, reg *model.RegisterNotice) error {
	if err := e.runtime.SubscribeToEvents(ctx, reg.SourceChain, model.StreamName); err != nil {
		return fmt.Errorf("subscribe to events: %w", err)
	}
	if err := e.state.SetHubEdge(ctx, reg.Owner, reg.SourceChain); err != nil {
		return fmt.Errorf("set hub edge: %w", err)
	}

	if reg.Name != nil {
		if err := e.state.SetName(ctx, reg.Owner, *reg.Name); err != nil {
			return fmt.Errorf("set name: %w", err)
		}
	}
	if reg.Bio != nil {
		if err := e.state.SetBio(ctx, reg.Owner, *reg.Bio); err != nil {
			return fmt.Errorf("set bio: %w", err)
		}
	}
	for _, social := range reg.Socials {
		if err := e.state.SetSocial(ctx, reg.Owner, social.Name, social.URL); err != nil {
			return fmt.Errorf("set social %q: %w", social.Name, err)
		}
	}
	return nil
}

// mirrorProductUpdate replaces the mirrored product wholesale; the
// authority chain already enforced authorship and validation.
func (e *Executor) mirrorProductUpdate(ctx context.Context, product model.Product) error {
	if err := e.state.DeleteProduct(ctx, product.ID, product.Author); err != nil {
		e.logs.Infow("mirrored product missing, inserting fresh", "product_id", product.ID)
	}
	return e.state.CreateProduct(ctx, product)
}

// handlePurchaseOnHub settles a purchase against the hub's product mirror:
// verify the paid amount, ship the private payload back to the buyer's
// chain, and keep the hub's own purchase record.
func (e *Executor) handlePurchaseOnHub(ctx context.Context, sender model.ChainID, notice *model.PurchaseNotice) error {
	product, err := e.state.GetProduct(ctx, notice.ProductID)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if notice.Amount == nil || product.Price == nil || notice.Amount.Cmp(product.Price) != 0 {
		return fmt.Errorf("purchase %s paid %v, product %s costs %v",
			notice.PurchaseID, notice.Amount, product.ID, product.Price)
	}

	buyerChain := notice.BuyerChain
	if buyerChain == "" {
		buyerChain = sender
	}

	e.routeToChain(ctx, buyerChain, model.Message{
		Kind: model.MsgSendProductData,
		Delivery: &model.ProductDelivery{
			Buyer:      notice.Buyer,
			PurchaseID: notice.PurchaseID,
			Product:    product,
			OrderData:  notice.OrderData,
		},
	})

	ts := e.runtime.Now()
	purchase := model.Purchase{
		ID:            notice.PurchaseID,
		ProductID:     notice.ProductID,
		Buyer:         notice.Buyer,
		BuyerChainID:  buyerChain,
		Seller:        product.Author,
		SellerChainID: product.AuthorChainID,
		Amount:        notice.Amount,
		Timestamp:     ts,
		OrderData:     notice.OrderData,
		Product:       product,
	}
	if err := e.state.RecordPurchase(ctx, purchase); err != nil {
		return fmt.Errorf("record purchase: %w", err)
	}

	e.emit(ctx, model.Event{Kind: model.EvProductPurchased, Timestamp: ts, Purchase: notice})
	return nil
}

// handleProductDelivery lands the purchased product, private data
// included, on the buyer's chain.
func (e *Executor) handleProductDelivery(ctx context.Context, sender model.ChainID, delivery *model.ProductDelivery) error {
	product := delivery.Product
	purchase := model.Purchase{
		ID:            delivery.PurchaseID,
		ProductID:     product.ID,
		Buyer:         delivery.Buyer,
		BuyerChainID:  e.runtime.ChainID(),
		Seller:        product.Author,
		SellerChainID: product.AuthorChainID,
		Amount:        product.Price,
		Timestamp:     e.runtime.Now(),
		OrderData:     delivery.OrderData,
		Product:       product,
	}
	if err := e.state.RecordPurchase(ctx, purchase); err != nil {
		return fmt.Errorf("record purchase: %w", err)
	}
	return nil
}

// handleOrder runs on the seller's chain when a remote buyer paid for one
// of its products.
func (e *Executor) handleOrder(ctx context.Context, sender model.ChainID, order *model.OrderNotice) error {
	product, err := e.state.GetProduct(ctx, order.ProductID)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}

	purchase := model.Purchase{
		ID:            order.PurchaseID,
		ProductID:     order.ProductID,
		Buyer:         order.Buyer,
		BuyerChainID:  order.BuyerChain,
		Seller:        product.Author,
		SellerChainID: product.AuthorChainID,
		Amount:        order.Amount,
		Timestamp:     order.Timestamp,
		OrderData:     order.OrderData,
		Product:       product,
	}
	if err := e.state.RecordPurchase(ctx, purchase); err != nil {
		return fmt.Errorf("record purchase: %w", err)
	}

	e.emit(ctx, model.Event{Kind: model.EvOrderPlaced, Timestamp: order.Timestamp, Purchase: &model.PurchaseNotice{
		PurchaseID: order.PurchaseID,
		ProductID:  order.ProductID,
		Buyer:      order.Buyer,
		BuyerChain: order.BuyerChain,
		Seller:     product.Author,
		Amount:     order.Amount,
		OrderData:  order.OrderData,
	}})
	return nil
}

// handleSubscriptionPayment grants paid access on the author's chain and
// announces the new subscriber on the stream.
func (e *Executor) handleSubscriptionPayment(ctx context.Context, sender model.ChainID, notice *model.SubscriptionNotice) error {
	subscriberChain := notice.SubscriberChain
	if subscriberChain == "" {
		subscriberChain = sender
	}

	sub := model.ContentSubscription{
		ID:              fmt.Sprintf("sub-%s-%s-%d", notice.Subscriber.Hex(), notice.Author.Hex(), notice.Timestamp),
		Subscriber:      notice.Subscriber,
		SubscriberChain: subscriberChain,
		Author:          notice.Author,
		AuthorChain:     e.runtime.ChainID(),
		StartTimestamp:  notice.Timestamp,
		EndTimestamp:    notice.Timestamp + notice.DurationMicros,
		Price:           notice.Amount,
	}
	if err := e.state.CreateSubscription(ctx, sub); err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}

	e.emit(ctx, model.Event{Kind: model.EvUserSubscribed, Timestamp: notice.Timestamp, Subscribed: &model.SubscribedNotice{
		SubscriptionID: sub.ID,
		Subscriber:     sub.Subscriber,
		Author:         sub.Author,
		Price:          sub.Price,
		EndTimestamp:   sub.EndTimestamp,
	}})
	return nil
}
