package payload

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/jellydator/validation"

	"patron/internal/core"
	"patron/internal/model"
)

type SubscriptionPriceRequest struct {
	Price       string  `json:"price"`
	Description *string `json:"description,omitempty"`
}

func (s SubscriptionPriceRequest) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Price, validation.Required, amountRule),
		validation.Field(&s.Description, validation.Length(0, 2048)),
	)
}

func (s SubscriptionPriceRequest) ToOp() (core.SetSubscriptionPriceOp, error) {
	price, err := ParseAmount(s.Price)
	if err != nil {
		return core.SetSubscriptionPriceOp{}, err
	}
	return core.SetSubscriptionPriceOp{
		Price:       price,
		Description: s.Description,
	}, nil
}

type SubscribeRequest struct {
	Amount      string `json:"amount"`
	AuthorChain string `json:"author_chain_id"`
	Author      string `json:"author"`
}

func (s SubscribeRequest) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Amount, validation.Required, amountRule),
		validation.Field(&s.AuthorChain, validation.Required),
		validation.Field(&s.Author, validation.Required, validation.Match(addressRegex)),
	)
}

func (s SubscribeRequest) ToOp() (core.SubscribeToAuthorOp, error) {
	amount, err := ParseAmount(s.Amount)
	if err != nil {
		return core.SubscribeToAuthorOp{}, err
	}
	return core.SubscribeToAuthorOp{
		Amount: amount,
		Target: model.Account{
			ChainID: model.ChainID(s.AuthorChain),
			Owner:   common.HexToAddress(s.Author),
		},
	}, nil
}
