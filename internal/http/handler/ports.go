package handler

import (
	"context"
	"net/http"

	jwtlib "github.com/golang-jwt/jwt"

	"patron/internal/core"
	"patron/internal/model"
	"patron/internal/state"
	"patron/pkg/jwt"
)

type RequestValidator interface {
	DecodeAndValidateJSONPayload(r *http.Request, object any) error
}

// TokenService signs and verifies the bearer tokens of both callers and
// peers; the secret decides which mesh the instance trusts.
type TokenService interface {
	Generate(data jwt.TokenInfo) *jwtlib.Token
	Sign(token *jwtlib.Token) (string, error)
	Validate(token string) (jwtlib.MapClaims, error)
}

// ChainService is the chain's operation surface, implemented by the
// executor.
type ChainService interface {
	Transfer(ctx context.Context, caller model.Owner, op core.TransferOp) error
	Withdraw(ctx context.Context, caller model.Owner) error
	Mint(ctx context.Context, owner model.Owner, amount model.Amount) error
	Register(ctx context.Context, caller model.Owner, op core.RegisterOp) error
	UpdateProfile(ctx context.Context, caller model.Owner, op core.UpdateProfileOp) error
	SetAvatar(ctx context.Context, caller model.Owner, hash string) error
	SetHeader(ctx context.Context, caller model.Owner, hash string) error
	TotalReceived(ctx context.Context, owner model.Owner) (model.Amount, error)
	TotalSent(ctx context.Context, owner model.Owner) (model.Amount, error)

	CreateProduct(ctx context.Context, caller model.Owner, op core.CreateProductOp) (model.Product, error)
	UpdateProduct(ctx context.Context, caller model.Owner, op core.UpdateProductOp) error
	DeleteProduct(ctx context.Context, caller model.Owner, productID string) error
	BuyProduct(ctx context.Context, caller model.Owner, op core.BuyProductOp) (string, error)
	ReadBlob(ctx context.Context, hash string) ([]byte, error)

	SetSubscriptionPrice(ctx context.Context, caller model.Owner, op core.SetSubscriptionPriceOp) error
	DeleteSubscriptionPrice(ctx context.Context, caller model.Owner) error
	SubscribeToAuthor(ctx context.Context, caller model.Owner, op core.SubscribeToAuthorOp) (model.ContentSubscription, error)

	CreatePost(ctx context.Context, caller model.Owner, op core.CreatePostOp) (model.Post, error)
	UpdatePost(ctx context.Context, caller model.Owner, op core.UpdatePostOp) error
	DeletePost(ctx context.Context, caller model.Owner, postID string) error
	CastVote(ctx context.Context, caller model.Owner, op core.CastVoteOp) error
	JoinGiveaway(ctx context.Context, caller model.Owner, postID string) error
	ResolveGiveaway(ctx context.Context, caller model.Owner, postID string) (model.Owner, error)

	State() *state.Chain
}

// Ledger books value arriving from peer chains.
type Ledger interface {
	Credit(ctx context.Context, owner model.Owner, amount model.Amount) error
}

// MessageSink applies messages delivered by peer chains.
type MessageSink interface {
	HandleMessage(ctx context.Context, sender model.ChainID, msg model.Message) error
}

// EventSource serves slices of locally held event streams.
type EventSource interface {
	EventsRange(ctx context.Context, source model.ChainID, stream string, from, to uint64) ([]model.Event, error)
	StreamHead(ctx context.Context, source model.ChainID, stream string) (uint64, error)
}
