package state

import (
	"context"
	"errors"

	"patron/internal/model"
)

// RecordPurchase is a pure insert with buyer and seller indexing. Price and
// product validation happen before this is called.
func (c *Chain) RecordPurchase(ctx context.Context, purchase model.Purchase) error {
	if err := c.putJSON(ctx, prefixPurchase+purchase.ID, purchase); err != nil {
		return err
	}
	if err := c.addID(ctx, idxPurchasesByBuyer+purchase.Buyer.Hex(), purchase.ID); err != nil {
		return err
	}
	return c.addID(ctx, idxPurchasesBySeller+purchase.Seller.Hex(), purchase.ID)
}

func (c *Chain) GetPurchase(ctx context.Context, purchaseID string) (model.Purchase, error) {
	var purchase model.Purchase
	if err := c.getJSON(ctx, prefixPurchase+purchaseID, &purchase); err != nil {
		return model.Purchase{}, err
	}
	return purchase, nil
}

func (c *Chain) listPurchases(ctx context.Context, indexKey string) ([]model.Purchase, error) {
	ids, err := c.ids(ctx, indexKey)
	if err != nil {
		return nil, err
	}

	purchases := make([]model.Purchase, 0, len(ids))
	for _, id := range ids {
		var purchase model.Purchase
		err := c.getJSON(ctx, prefixPurchase+id, &purchase)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, purchase)
	}
	return purchases, nil
}

func (c *Chain) PurchasesByBuyer(ctx context.Context, buyer model.Owner) ([]model.Purchase, error) {
	return c.listPurchases(ctx, idxPurchasesByBuyer+buyer.Hex())
}

func (c *Chain) PurchasesBySeller(ctx context.Context, seller model.Owner) ([]model.Purchase, error) {
	return c.listPurchases(ctx, idxPurchasesBySeller+seller.Hex())
}
