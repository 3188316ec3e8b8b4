package core

import (
	"patron/internal/model"
)

// Operation inputs. Each is applied by the executor on behalf of an
// already-authenticated caller.

type TransferOp struct {
	Owner  model.Owner
	Amount model.Amount
	Target model.Account
	Text   *string
}

type UpdateProfileOp struct {
	Name       *string
	Bio        *string
	Socials    []model.SocialLink
	AvatarHash *string
	HeaderHash *string
}

type RegisterOp struct {
	MainChain model.ChainID
	Profile   UpdateProfileOp
}

type CreateProductOp struct {
	PublicData  model.CustomFields
	Price       model.Amount
	PrivateData model.CustomFields
	SuccessMsg  *string
	OrderForm   []model.OrderFormField
}

type UpdateProductOp struct {
	ProductID string
	Patch     model.ProductPatch
}

type BuyProductOp struct {
	Owner     model.Owner
	ProductID string
	Amount    model.Amount
	Target    model.Account
	OrderData model.OrderResponses
}

type SetSubscriptionPriceOp struct {
	Price       model.Amount
	Description *string
}

type SubscribeToAuthorOp struct {
	Amount model.Amount
	Target model.Account
}

type PollInput struct {
	Options      []string
	EndTimestamp uint64
}

type GiveawayInput struct {
	Prize        model.Amount
	EndTimestamp uint64
}

type CreatePostOp struct {
	Title     string
	Content   string
	ImageHash *string
	Poll      *PollInput
	Giveaway  *GiveawayInput
}

type UpdatePostOp struct {
	PostID    string
	Title     *string
	Content   *string
	ImageHash *string
}

type CastVoteOp struct {
	PostID string
	Option int
}
