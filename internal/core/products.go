package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"patron/internal/db"
	"patron/internal/model"
	"patron/internal/state"
)

// CreateProduct stores a new product and mirrors it to the hub chain when
// the author has a hub edge pointing elsewhere.
func (e *Executor) CreateProduct(ctx context.Context, caller model.Owner, op CreateProductOp) (model.Product, error) {
	ts := e.runtime.Now()
	chainID := e.runtime.ChainID()

	product := model.Product{
		ID:            fmt.Sprintf("%d-%s", ts, chainID),
		Author:        caller,
		AuthorChainID: chainID,
		PublicData:    op.PublicData,
		Price:         op.Price,
		PrivateData:   op.PrivateData,
		SuccessMsg:    op.SuccessMsg,
		OrderForm:     op.OrderForm,
		CreatedAt:     ts,
	}

	if err := e.state.CreateProduct(ctx, product); err != nil {
		return model.Product{}, fmt.Errorf("create product: %w", err)
	}
	e.emit(ctx, model.Event{Kind: model.EvProductCreated, Timestamp: ts, Product: &product})

	if hub := e.hubChainFor(ctx, caller); hub != "" {
		e.routeToChain(ctx, hub, model.Message{Kind: model.MsgProductCreated, Product: &product})
	}

	return product, nil
}

func (e *Executor) UpdateProduct(ctx context.Context, caller model.Owner, op UpdateProductOp) error {
	if err := e.state.UpdateProduct(ctx, op.ProductID, caller, op.Patch); err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	product, err := e.state.GetProduct(ctx, op.ProductID)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}

	ts := e.runtime.Now()
	e.emit(ctx, model.Event{Kind: model.EvProductUpdated, Timestamp: ts, Product: &product})

	if hub := e.hubChainFor(ctx, caller); hub != "" {
		e.routeToChain(ctx, hub, model.Message{Kind: model.MsgProductUpdated, Product: &product})
	}

	return nil
}

func (e *Executor) DeleteProduct(ctx context.Context, caller model.Owner, productID string) error {
	if err := e.state.DeleteProduct(ctx, productID, caller); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	ts := e.runtime.Now()
	tombstone := model.ProductTombstone{ProductID: productID, Author: caller}
	e.emit(ctx, model.Event{Kind: model.EvProductDeleted, Timestamp: ts, ProductDeleted: &tombstone})

	if hub := e.hubChainFor(ctx, caller); hub != "" {
		e.routeToChain(ctx, hub, model.Message{Kind: model.MsgProductDeleted, ProductDeleted: &tombstone})
	}

	return nil
}

// BuyProduct pays the seller and fans out: the hub gets a purchase
// notification for global indexing, and the seller's chain gets the order
// with the buyer's form answers. A same-chain purchase (including a
// self-purchase) records locally right away.
func (e *Executor) BuyProduct(ctx context.Context, caller model.Owner, op BuyProductOp) (string, error) {
	if op.Owner != caller {
		return "", fmt.Errorf("%w: caller does not own paying account", state.ErrUnauthorized)
	}

	if err := e.runtime.Transfer(ctx, op.Owner, op.Target, op.Amount); err != nil {
		return "", fmt.Errorf("ledger transfer: %w", err)
	}

	ts := e.runtime.Now()
	buyerChain := e.runtime.ChainID()
	purchaseID := fmt.Sprintf("purchase-%d-%s", ts, buyerChain)
	seller := op.Target.Owner

	notice := model.PurchaseNotice{
		PurchaseID: purchaseID,
		ProductID:  op.ProductID,
		Buyer:      op.Owner,
		BuyerChain: buyerChain,
		Seller:     seller,
		Amount:     op.Amount,
		OrderData:  op.OrderData,
	}
	e.emit(ctx, model.Event{Kind: model.EvProductPurchased, Timestamp: ts, Purchase: &notice})

	if hub, err := e.state.HubEdge(ctx, op.Owner); err == nil {
		e.routeToChain(ctx, hub, model.Message{Kind: model.MsgProductPurchased, Purchase: &notice})
	}

	sellerChain := op.Target.ChainID
	if sellerChain != buyerChain {
		e.routeToChain(ctx, sellerChain, model.Message{
			Kind: model.MsgOrderReceived,
			Order: &model.OrderNotice{
				PurchaseID: purchaseID,
				ProductID:  op.ProductID,
				Buyer:      op.Owner,
				BuyerChain: buyerChain,
				Amount:     op.Amount,
				OrderData:  op.OrderData,
				Timestamp:  ts,
			},
		})
	} else if product, err := e.state.GetProduct(ctx, op.ProductID); err == nil {
		purchase := model.Purchase{
			ID:            purchaseID,
			ProductID:     op.ProductID,
			Buyer:         op.Owner,
			BuyerChainID:  buyerChain,
			Seller:        seller,
			SellerChainID: product.AuthorChainID,
			Amount:        op.Amount,
			Timestamp:     ts,
			OrderData:     op.OrderData,
			Product:       product,
		}
		if err := e.state.RecordPurchase(ctx, purchase); err != nil {
			e.logs.Errorw("local purchase record failed", "purchase_id", purchaseID, "error", err)
		}
	}

	return purchaseID, nil
}

// ReadBlob fetches a host blob by its content hash; the hash must be a
// well-formed 32-byte hex digest.
func (e *Executor) ReadBlob(ctx context.Context, hash string) ([]byte, error) {
	raw := common.FromHex(hash)
	if len(raw) != common.HashLength {
		return nil, fmt.Errorf("%w: malformed blob hash %q", state.ErrValidation, hash)
	}

	data, err := e.runtime.ReadBlob(ctx, common.BytesToHash(raw).Hex())
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: blob %s", state.ErrNotFound, hash)
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}

	e.logs.Infow("blob read", "hash", hash, "bytes", len(data))
	return data, nil
}
