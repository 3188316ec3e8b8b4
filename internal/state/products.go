package state

import (
	"context"
	"errors"
	"fmt"

	"patron/internal/model"
)

func validateCustomFields(fields model.CustomFields) error {
	if len(fields) > model.MaxCustomFields {
		return fmt.Errorf("%w: maximum %d custom fields allowed", ErrValidation, model.MaxCustomFields)
	}
	return nil
}

func validateOrderForm(form []model.OrderFormField) error {
	if len(form) > model.MaxCustomFields {
		return fmt.Errorf("%w: maximum %d order form fields allowed", ErrValidation, model.MaxCustomFields)
	}
	return nil
}

// CreateProduct validates field bounds and inserts the product with both
// its secondary indices.
func (c *Chain) CreateProduct(ctx context.Context, product model.Product) error {
	if err := validateCustomFields(product.PublicData); err != nil {
		return err
	}
	if err := validateCustomFields(product.PrivateData); err != nil {
		return err
	}
	if err := validateOrderForm(product.OrderForm); err != nil {
		return err
	}

	if err := c.putJSON(ctx, prefixProduct+product.ID, product); err != nil {
		return err
	}
	if err := c.addID(ctx, idxProductsByAuthor+product.Author.Hex(), product.ID); err != nil {
		return err
	}
	return c.addID(ctx, idxProductsByChain+string(product.AuthorChainID), product.ID)
}

// UpdateProduct applies a field-by-field patch. Only the stored author may
// update, and patched maps are re-validated.
func (c *Chain) UpdateProduct(ctx context.Context, productID string, author model.Owner, patch model.ProductPatch) error {
	var product model.Product
	if err := c.getJSON(ctx, prefixProduct+productID, &product); err != nil {
		return err
	}
	if product.Author != author {
		return fmt.Errorf("%w: not product owner", ErrUnauthorized)
	}

	if patch.PublicData != nil {
		if err := validateCustomFields(*patch.PublicData); err != nil {
			return err
		}
		product.PublicData = *patch.PublicData
	}
	if patch.Price != nil {
		product.Price = patch.Price
	}
	if patch.PrivateData != nil {
		if err := validateCustomFields(*patch.PrivateData); err != nil {
			return err
		}
		product.PrivateData = *patch.PrivateData
	}
	if patch.SuccessMsg != nil {
		product.SuccessMsg = patch.SuccessMsg
	}
	if patch.OrderForm != nil {
		if err := validateOrderForm(*patch.OrderForm); err != nil {
			return err
		}
		product.OrderForm = *patch.OrderForm
	}

	return c.putJSON(ctx, prefixProduct+productID, product)
}

// DeleteProduct removes the product and scrubs both indices.
func (c *Chain) DeleteProduct(ctx context.Context, productID string, author model.Owner) error {
	var product model.Product
	if err := c.getJSON(ctx, prefixProduct+productID, &product); err != nil {
		return err
	}
	if product.Author != author {
		return fmt.Errorf("%w: not product owner", ErrUnauthorized)
	}

	if err := c.delete(ctx, prefixProduct+productID); err != nil {
		return err
	}
	if err := c.removeID(ctx, idxProductsByAuthor+author.Hex(), productID); err != nil {
		return err
	}
	return c.removeID(ctx, idxProductsByChain+string(product.AuthorChainID), productID)
}

func (c *Chain) GetProduct(ctx context.Context, productID string) (model.Product, error) {
	var product model.Product
	if err := c.getJSON(ctx, prefixProduct+productID, &product); err != nil {
		return model.Product{}, err
	}
	return product, nil
}

func (c *Chain) listProducts(ctx context.Context, indexKey string) ([]model.Product, error) {
	ids, err := c.ids(ctx, indexKey)
	if err != nil {
		return nil, err
	}

	products := make([]model.Product, 0, len(ids))
	for _, id := range ids {
		var product model.Product
		err := c.getJSON(ctx, prefixProduct+id, &product)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, nil
}

func (c *Chain) ProductsByAuthor(ctx context.Context, author model.Owner) ([]model.Product, error) {
	return c.listProducts(ctx, idxProductsByAuthor+author.Hex())
}

func (c *Chain) ProductsByChain(ctx context.Context, chain model.ChainID) ([]model.Product, error) {
	return c.listProducts(ctx, idxProductsByChain+string(chain))
}
