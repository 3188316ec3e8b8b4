package payload

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/jellydator/validation"

	"patron/internal/core"
	"patron/internal/model"
)

type TransferRequest struct {
	Amount  string  `json:"amount"`
	ToChain string  `json:"to_chain_id"`
	ToOwner string  `json:"to_owner"`
	Message *string `json:"message,omitempty"`
}

func (t TransferRequest) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Amount, validation.Required, amountRule),
		validation.Field(&t.ToChain, validation.Required),
		validation.Field(&t.ToOwner, validation.Required, validation.Match(addressRegex)),
		validation.Field(&t.Message, validation.Length(0, 2048)),
	)
}

// MintRequest draws fresh tokens from the pool into the caller's account.
type MintRequest struct {
	Amount string `json:"amount"`
}

func (m MintRequest) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Amount, validation.Required, amountRule),
	)
}

func (m MintRequest) ToAmount() (model.Amount, error) {
	return ParseAmount(m.Amount)
}

// CreditRequest books value a peer chain transferred into a local
// account.
type CreditRequest struct {
	Owner  string `json:"owner"`
	Amount string `json:"amount"`
}

func (c CreditRequest) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Owner, validation.Required, validation.Match(addressRegex)),
		validation.Field(&c.Amount, validation.Required, amountRule),
	)
}

func (c CreditRequest) ToCredit() (model.Owner, model.Amount, error) {
	amount, err := ParseAmount(c.Amount)
	if err != nil {
		return model.Owner{}, nil, err
	}
	return common.HexToAddress(c.Owner), amount, nil
}

func (t TransferRequest) ToOp(caller model.Owner) (core.TransferOp, error) {
	amount, err := ParseAmount(t.Amount)
	if err != nil {
		return core.TransferOp{}, err
	}
	return core.TransferOp{
		Owner:  caller,
		Amount: amount,
		Target: model.Account{
			ChainID: model.ChainID(t.ToChain),
			Owner:   common.HexToAddress(t.ToOwner),
		},
		Text: t.Message,
	}, nil
}
