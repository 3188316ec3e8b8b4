package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"patron/internal/core"
	"patron/internal/http/handler/middleware"
	"patron/internal/http/payload"
	"patron/internal/model"
	"patron/internal/state"
	"patron/pkg/jwt"
)

var (
	Authenticate  = "POST /patron/authenticate"
	Register      = "POST /patron/register"
	UpdateProfile = "POST /patron/profile"
	SetAvatar     = "POST /patron/profile/avatar"
	SetHeader     = "POST /patron/profile/header"
	GetProfile    = "GET /patron/profile/{address}"

	Transfer     = "POST /patron/transfer"
	Withdraw     = "POST /patron/withdraw"
	Mint         = "POST /patron/mint"
	GetDonations = "GET /patron/donations/{address}"

	CreateProduct = "POST /patron/products"
	ListProducts  = "GET /patron/products"
	GetProduct    = "GET /patron/products/{productId}"
	UpdateProduct = "PUT /patron/products/{productId}"
	DeleteProduct = "DELETE /patron/products/{productId}"
	BuyProduct    = "POST /patron/products/{productId}/buy"
	GetPurchases  = "GET /patron/purchases"
	GetBlob       = "GET /patron/blobs/{hash}"

	SetSubPrice       = "POST /patron/subscriptions/price"
	DeleteSubPrice    = "DELETE /patron/subscriptions/price"
	Subscribe         = "POST /patron/subscriptions"
	ListSubscriptions = "GET /patron/subscriptions"

	CreatePost      = "POST /patron/posts"
	ListPosts       = "GET /patron/posts"
	GetPost         = "GET /patron/posts/{postId}"
	UpdatePost      = "PUT /patron/posts/{postId}"
	DeletePost      = "DELETE /patron/posts/{postId}"
	CastVote        = "POST /patron/posts/{postId}/vote"
	JoinGiveaway    = "POST /patron/posts/{postId}/giveaway/join"
	ResolveGiveaway = "POST /patron/posts/{postId}/giveaway/resolve"
)

const sessionExpiration = 24 // hours

var errNoSession = errors.New("missing or invalid session token")

type PatronHandler struct {
	logs             *zap.SugaredLogger
	requestValidator RequestValidator
	chain            ChainService
	sessions         TokenService
	chainID          model.ChainID
}

func NewPatronHandler(logger *zap.SugaredLogger, requestValidator RequestValidator, chain ChainService, sessions TokenService, chainID model.ChainID) *PatronHandler {
	return &PatronHandler{
		logs:             logger,
		requestValidator: requestValidator,
		chain:            chain,
		sessions:         sessions,
		chainID:          chainID,
	}
}

// HandleAuthenticate verifies a signed challenge and issues a session
// token bound to the recovered address.
func (h *PatronHandler) HandleAuthenticate(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	var auth payload.AuthRequest
	err := h.requestValidator.DecodeAndValidateJSONPayload(r, &auth)
	if err != nil {
		h.respondError(w, "Could not authenticate", err, http.StatusBadRequest, Authenticate, requestId)
		return
	}

	recovered, err := recoverSigner(auth.Message, auth.Signature)
	if err != nil || recovered != common.HexToAddress(auth.Address) {
		h.respondError(w, "Could not authenticate", errors.New("signature does not match address"),
			http.StatusUnauthorized, Authenticate, requestId)
		return
	}

	token := h.sessions.Generate(jwt.TokenInfo{
		Subject:    recovered.Hex(),
		Role:       "caller",
		Expiration: sessionExpiration,
	})
	signed, err := h.sessions.Sign(token)
	if err != nil {
		h.respondError(w, oopsErr, err, http.StatusInternalServerError, Authenticate, requestId)
		return
	}

	respond(h.logs, w, Response{Data: map[string]string{"token": signed}}, http.StatusOK, requestId)
}

// recoverSigner recovers the address that produced an EIP-191 personal
// signature over the message.
func recoverSigner(message, signature string) (common.Address, error) {
	sig := common.FromHex(signature)
	if len(sig) != ethcrypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes", ethcrypto.SignatureLength)
	}
	if sig[ethcrypto.RecoveryIDOffset] >= 27 {
		sig[ethcrypto.RecoveryIDOffset] -= 27
	}

	pubKey, err := ethcrypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pubKey), nil
}

func (h *PatronHandler) requestID(r *http.Request) string {
	if id, ok := r.Context().Value(middleware.RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// caller resolves the authenticated owner from the session token.
func (h *PatronHandler) caller(r *http.Request) (model.Owner, error) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" {
		return model.Owner{}, errNoSession
	}

	claims, err := h.sessions.Validate(raw)
	if err != nil {
		return model.Owner{}, fmt.Errorf("%w: %w", errNoSession, err)
	}
	if role, _ := claims["role"].(string); role != "caller" {
		return model.Owner{}, errNoSession
	}

	subject, _ := claims["sub"].(string)
	if !common.IsHexAddress(subject) {
		return model.Owner{}, errNoSession
	}
	return common.HexToAddress(subject), nil
}

func (h *PatronHandler) respondError(w http.ResponseWriter, message string, err error, httpCode int, route, requestId string) {
	resp := Response{Message: message}
	if httpCode == http.StatusInternalServerError {
		resp.Error = "unexpected error occurred"
	} else if err != nil {
		resp.Error = err.Error()
	}

	respond(h.logs, w, resp, httpCode, requestId)
	h.logs.Errorw("request failed",
		"error", err,
		"handler", route,
		"request_id", requestId)
}

// statusFor maps operation errors to HTTP codes; anything unmapped is a
// server fault.
func statusFor(err error) int {
	switch {
	case errors.Is(err, state.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, state.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, core.ErrExpiredAccess):
		return http.StatusForbidden
	case errors.Is(err, state.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, state.ErrPollEnded),
		errors.Is(err, state.ErrNoPoll),
		errors.Is(err, state.ErrGiveawayEnded),
		errors.Is(err, state.ErrGiveawayResolved),
		errors.Is(err, state.ErrNoGiveaway),
		errors.Is(err, state.ErrNoParticipants),
		errors.Is(err, state.ErrAlreadyJoined):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
