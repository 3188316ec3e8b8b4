package model

// Messages are one-way payloads addressed to a specific destination chain.
// The sending chain's identity travels with the transport, not the body.

type MessageKind string

const (
	MsgTransferWithMessage   MessageKind = "transfer_with_message"
	MsgRegister              MessageKind = "register"
	MsgProductCreated        MessageKind = "product_created"
	MsgProductUpdated        MessageKind = "product_updated"
	MsgProductDeleted        MessageKind = "product_deleted"
	MsgProductPurchased      MessageKind = "product_purchased"
	MsgSendProductData       MessageKind = "send_product_data"
	MsgOrderReceived         MessageKind = "order_received"
	MsgSubscriptionPayment   MessageKind = "subscription_payment"
	MsgPostPublished         MessageKind = "post_published"
	MsgPostUpdated           MessageKind = "post_updated"
	MsgPostDeleted           MessageKind = "post_deleted"
	MsgVoteCast              MessageKind = "vote_cast"
	MsgPollResultsUpdated    MessageKind = "poll_results_updated"
	MsgGiveawayParticipation MessageKind = "giveaway_participation"
	MsgGiveawayUpdated       MessageKind = "giveaway_updated"
)

type TransferNotice struct {
	Owner       Owner   `json:"owner"`
	Amount      Amount  `json:"amount"`
	Text        *string `json:"text,omitempty"`
	SourceChain ChainID `json:"source_chain_id"`
	SourceOwner Owner   `json:"source_owner"`
}

type RegisterNotice struct {
	SourceChain ChainID      `json:"source_chain_id"`
	Owner       Owner        `json:"owner"`
	Name        *string      `json:"name,omitempty"`
	Bio         *string      `json:"bio,omitempty"`
	Socials     []SocialLink `json:"socials"`
}

type PurchaseNotice struct {
	PurchaseID string         `json:"purchase_id"`
	ProductID  string         `json:"product_id"`
	Buyer      Owner          `json:"buyer"`
	BuyerChain ChainID        `json:"buyer_chain_id,omitempty"`
	Seller     Owner          `json:"seller"`
	Amount     Amount         `json:"amount"`
	OrderData  OrderResponses `json:"order_data,omitempty"`
}

type ProductDelivery struct {
	Buyer      Owner          `json:"buyer"`
	PurchaseID string         `json:"purchase_id"`
	Product    Product        `json:"product"`
	OrderData  OrderResponses `json:"order_data,omitempty"`
}

type OrderNotice struct {
	PurchaseID string         `json:"purchase_id"`
	ProductID  string         `json:"product_id"`
	Buyer      Owner          `json:"buyer"`
	BuyerChain ChainID        `json:"buyer_chain_id"`
	Amount     Amount         `json:"amount"`
	OrderData  OrderResponses `json:"order_data"`
	Timestamp  uint64         `json:"timestamp"`
}

type SubscriptionNotice struct {
	Subscriber      Owner   `json:"subscriber"`
	SubscriberChain ChainID `json:"subscriber_chain_id"`
	Author          Owner   `json:"author"`
	Amount          Amount  `json:"amount"`
	DurationMicros  uint64  `json:"duration_micros"`
	Timestamp       uint64  `json:"timestamp"`
}

type VoteNotice struct {
	PostID     string  `json:"post_id"`
	Voter      Owner   `json:"voter"`
	VoterChain ChainID `json:"voter_chain_id"`
	Option     int     `json:"option"`
}

type GiveawayJoinNotice struct {
	PostID           string  `json:"post_id"`
	Participant      Owner   `json:"participant"`
	ParticipantChain ChainID `json:"participant_chain_id"`
	Timestamp        uint64  `json:"timestamp"`
}

type PollSnapshot struct {
	PostID string `json:"post_id"`
	Poll   Poll   `json:"poll"`
}

type GiveawaySnapshot struct {
	PostID   string   `json:"post_id"`
	Giveaway Giveaway `json:"giveaway"`
}

type ProductTombstone struct {
	ProductID string `json:"product_id"`
	Author    Owner  `json:"author"`
}

type PostTombstone struct {
	PostID string `json:"post_id"`
	Author Owner  `json:"author"`
}

// Message is the cross-chain wire envelope. Exactly one payload field is
// set, matching Kind.
type Message struct {
	Kind MessageKind `json:"kind"`

	Transfer       *TransferNotice     `json:"transfer,omitempty"`
	Register       *RegisterNotice     `json:"register,omitempty"`
	Product        *Product            `json:"product,omitempty"`
	ProductDeleted *ProductTombstone   `json:"product_deleted,omitempty"`
	Purchase       *PurchaseNotice     `json:"purchase,omitempty"`
	Delivery       *ProductDelivery    `json:"delivery,omitempty"`
	Order          *OrderNotice        `json:"order,omitempty"`
	Subscription   *SubscriptionNotice `json:"subscription,omitempty"`
	Post           *Post               `json:"post,omitempty"`
	PostDeleted    *PostTombstone      `json:"post_deleted,omitempty"`
	Vote           *VoteNotice         `json:"vote,omitempty"`
	Poll           *PollSnapshot       `json:"poll,omitempty"`
	GiveawayJoin   *GiveawayJoinNotice `json:"giveaway_join,omitempty"`
	Giveaway       *GiveawaySnapshot   `json:"giveaway,omitempty"`
}
