package payload

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jellydator/validation"

	"patron/internal/core"
	"patron/internal/model"
)

// fieldsRule caps user-supplied field maps at the entity limit.
var fieldsRule = validation.By(func(value interface{}) error {
	fields, _ := value.(map[string]string)
	if len(fields) > model.MaxCustomFields {
		return fmt.Errorf("at most %d fields allowed", model.MaxCustomFields)
	}
	return nil
})

type OrderFormFieldRequest struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	FieldType string `json:"field_type"`
	Required  bool   `json:"required"`
}

func (f OrderFormFieldRequest) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Key, validation.Required, validation.Length(1, 64)),
		validation.Field(&f.Label, validation.Required, validation.Length(1, 256)),
		validation.Field(&f.FieldType, validation.Required, validation.In("text", "number", "email")),
	)
}

type ProductRequest struct {
	PublicData  map[string]string       `json:"public_data"`
	Price       string                  `json:"price"`
	PrivateData map[string]string       `json:"private_data"`
	SuccessMsg  *string                 `json:"success_msg,omitempty"`
	OrderForm   []OrderFormFieldRequest `json:"order_form,omitempty"`
}

func (p ProductRequest) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.PublicData, validation.Required, fieldsRule),
		validation.Field(&p.Price, validation.Required, amountRule),
		validation.Field(&p.PrivateData, fieldsRule),
		validation.Field(&p.OrderForm, validation.Length(0, model.MaxCustomFields)),
	)
}

func (p ProductRequest) ToOp() (core.CreateProductOp, error) {
	price, err := ParseAmount(p.Price)
	if err != nil {
		return core.CreateProductOp{}, err
	}

	form := make([]model.OrderFormField, 0, len(p.OrderForm))
	for _, field := range p.OrderForm {
		form = append(form, model.OrderFormField{
			Key:       field.Key,
			Label:     field.Label,
			FieldType: field.FieldType,
			Required:  field.Required,
		})
	}

	return core.CreateProductOp{
		PublicData:  p.PublicData,
		Price:       price,
		PrivateData: p.PrivateData,
		SuccessMsg:  p.SuccessMsg,
		OrderForm:   form,
	}, nil
}

// ProductUpdateRequest patches a product; absent fields stay untouched.
type ProductUpdateRequest struct {
	PublicData  map[string]string `json:"public_data,omitempty"`
	Price       *string           `json:"price,omitempty"`
	PrivateData map[string]string `json:"private_data,omitempty"`
	SuccessMsg  *string           `json:"success_msg,omitempty"`
}

func (p ProductUpdateRequest) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.PublicData, fieldsRule),
		validation.Field(&p.Price, amountPtrRule),
		validation.Field(&p.PrivateData, fieldsRule),
	)
}

var amountPtrRule = validation.By(func(value interface{}) error {
	raw, _ := value.(*string)
	if raw == nil {
		return nil
	}
	return amountRule.Validate(*raw)
})

func (p ProductUpdateRequest) ToPatch() (model.ProductPatch, error) {
	patch := model.ProductPatch{SuccessMsg: p.SuccessMsg}
	if p.PublicData != nil {
		fields := model.CustomFields(p.PublicData)
		patch.PublicData = &fields
	}
	if p.PrivateData != nil {
		fields := model.CustomFields(p.PrivateData)
		patch.PrivateData = &fields
	}
	if p.Price != nil {
		price, err := ParseAmount(*p.Price)
		if err != nil {
			return model.ProductPatch{}, err
		}
		patch.Price = price
	}
	return patch, nil
}

type BuyProductRequest struct {
	Amount      string            `json:"amount"`
	SellerChain string            `json:"seller_chain_id"`
	Seller      string            `json:"seller"`
	OrderData   map[string]string `json:"order_data,omitempty"`
}

func (b BuyProductRequest) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Amount, validation.Required, amountRule),
		validation.Field(&b.SellerChain, validation.Required),
		validation.Field(&b.Seller, validation.Required, validation.Match(addressRegex)),
		validation.Field(&b.OrderData, fieldsRule),
	)
}

func (b BuyProductRequest) ToOp(caller model.Owner, productID string) (core.BuyProductOp, error) {
	amount, err := ParseAmount(b.Amount)
	if err != nil {
		return core.BuyProductOp{}, err
	}
	return core.BuyProductOp{
		Owner:     caller,
		ProductID: productID,
		Amount:    amount,
		Target: model.Account{
			ChainID: model.ChainID(b.SellerChain),
			Owner:   common.HexToAddress(b.Seller),
		},
		OrderData: b.OrderData,
	}, nil
}
