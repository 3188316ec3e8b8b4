package model

// MaxCustomFields bounds both the public and private field maps of a
// product, and the order form length.
const MaxCustomFields = 20

// CustomFields is a bounded free-form key-value map attached to products.
type CustomFields map[string]string

// OrderResponses holds a buyer's answers to a product's order form.
type OrderResponses map[string]string

type OrderFormField struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	FieldType string `json:"field_type"`
	Required  bool   `json:"required"`
}

type Product struct {
	ID            string           `json:"id"`
	Author        Owner            `json:"author"`
	AuthorChainID ChainID          `json:"author_chain_id"`
	PublicData    CustomFields     `json:"public_data"`
	Price         Amount           `json:"price"`
	PrivateData   CustomFields     `json:"private_data"`
	SuccessMsg    *string          `json:"success_message,omitempty"`
	OrderForm     []OrderFormField `json:"order_form"`
	CreatedAt     uint64           `json:"created_at"`
}

// ProductPatch is a partial product update; nil fields are left untouched.
type ProductPatch struct {
	PublicData  *CustomFields
	Price       Amount
	PrivateData *CustomFields
	SuccessMsg  *string
	OrderForm   *[]OrderFormField
}

// Purchase is an immutable order record. It embeds a snapshot of the
// product at purchase time so later edits never rewrite past orders.
type Purchase struct {
	ID            string         `json:"id"`
	ProductID     string         `json:"product_id"`
	Buyer         Owner          `json:"buyer"`
	BuyerChainID  ChainID        `json:"buyer_chain_id"`
	Seller        Owner          `json:"seller"`
	SellerChainID ChainID        `json:"seller_chain_id"`
	Amount        Amount         `json:"amount"`
	Timestamp     uint64         `json:"timestamp"`
	OrderData     OrderResponses `json:"order_data"`
	Product       Product        `json:"product"`
}
