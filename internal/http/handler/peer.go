package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"patron/internal/http/handler/middleware"
	"patron/internal/http/payload"
	"patron/internal/model"
)

var (
	PeerMessages = "POST /peer/messages"
	PeerEvents   = "GET /peer/events"
	PeerCredits  = "POST /peer/credits"
)

var errNoPeerToken = errors.New("missing or invalid mesh token")

// PeerHandler serves the chain-to-chain surface: message delivery and
// event stream reads, both authenticated with the shared mesh secret.
type PeerHandler struct {
	logs             *zap.SugaredLogger
	requestValidator RequestValidator
	sink             MessageSink
	events           EventSource
	ledger           Ledger
	mesh             TokenService
	chainID          model.ChainID
}

func NewPeerHandler(logger *zap.SugaredLogger, requestValidator RequestValidator, sink MessageSink, events EventSource, ledger Ledger, mesh TokenService, chainID model.ChainID) *PeerHandler {
	return &PeerHandler{
		logs:             logger,
		requestValidator: requestValidator,
		sink:             sink,
		events:           events,
		ledger:           ledger,
		mesh:             mesh,
		chainID:          chainID,
	}
}

// sender authenticates the peer and returns the chain it speaks for.
func (h *PeerHandler) sender(r *http.Request) (model.ChainID, error) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" {
		return "", errNoPeerToken
	}

	claims, err := h.mesh.Validate(raw)
	if err != nil {
		return "", errNoPeerToken
	}
	if role, _ := claims["role"].(string); role != "peer" {
		return "", errNoPeerToken
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return "", errNoPeerToken
	}
	return model.ChainID(subject), nil
}

func (h *PeerHandler) requestID(r *http.Request) string {
	if id, ok := r.Context().Value(middleware.RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func (h *PeerHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	sender, err := h.sender(r)
	if err != nil {
		respond(h.logs, w, Response{Message: "Not authenticated", Error: err.Error()}, http.StatusUnauthorized, requestId)
		return
	}

	var msg model.Message
	if err := h.requestValidator.DecodeAndValidateJSONPayload(r, &msg); err != nil {
		respond(h.logs, w, Response{Message: "Could not decode message", Error: err.Error()}, http.StatusBadRequest, requestId)
		h.logs.Errorw("failed to decode peer message", "error", err, "sender", sender, "request_id", requestId)
		return
	}

	if err := h.sink.HandleMessage(r.Context(), sender, msg); err != nil {
		respond(h.logs, w, Response{Message: "Message rejected", Error: err.Error()}, statusFor(err), requestId)
		h.logs.Errorw("peer message failed",
			"error", err,
			"sender", sender,
			"kind", msg.Kind,
			"request_id", requestId)
		return
	}

	h.logs.Infow("peer message applied", "sender", sender, "kind", msg.Kind, "request_id", requestId)
	respond(h.logs, w, Response{Message: "Applied"}, http.StatusOK, requestId)
}

// HandleCredit books an inbound cross-chain transfer onto the local
// ledger.
func (h *PeerHandler) HandleCredit(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	sender, err := h.sender(r)
	if err != nil {
		respond(h.logs, w, Response{Message: "Not authenticated", Error: err.Error()}, http.StatusUnauthorized, requestId)
		return
	}

	var req payload.CreditRequest
	if err := h.requestValidator.DecodeAndValidateJSONPayload(r, &req); err != nil {
		respond(h.logs, w, Response{Message: "Could not decode credit", Error: err.Error()}, http.StatusBadRequest, requestId)
		return
	}

	owner, amount, err := req.ToCredit()
	if err != nil {
		respond(h.logs, w, Response{Message: "Could not decode credit", Error: err.Error()}, http.StatusBadRequest, requestId)
		return
	}

	if err := h.ledger.Credit(r.Context(), owner, amount); err != nil {
		respond(h.logs, w, Response{Message: "Credit rejected", Error: oopsErr}, http.StatusInternalServerError, requestId)
		h.logs.Errorw("peer credit failed",
			"error", err,
			"sender", sender,
			"owner", req.Owner,
			"request_id", requestId)
		return
	}

	h.logs.Infow("peer credit booked",
		"sender", sender,
		"owner", req.Owner,
		"amount", req.Amount,
		"request_id", requestId)
	respond(h.logs, w, Response{Message: "Credited"}, http.StatusOK, requestId)
}

// HandleEvents serves a slice of this chain's own stream starting at the
// from index.
func (h *PeerHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	if _, err := h.sender(r); err != nil {
		respond(h.logs, w, Response{Message: "Not authenticated", Error: err.Error()}, http.StatusUnauthorized, requestId)
		return
	}

	stream := r.URL.Query().Get("stream")
	if stream == "" {
		stream = model.StreamName
	}

	from := uint64(0)
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respond(h.logs, w, Response{Message: "Could not read events", Error: "malformed from index"}, http.StatusBadRequest, requestId)
			return
		}
		from = parsed
	}

	head, err := h.events.StreamHead(r.Context(), h.chainID, stream)
	if err != nil {
		respond(h.logs, w, Response{Message: "Could not read events", Error: oopsErr}, http.StatusInternalServerError, requestId)
		h.logs.Errorw("failed to read stream head", "error", err, "stream", stream, "request_id", requestId)
		return
	}

	events, err := h.events.EventsRange(r.Context(), h.chainID, stream, from, head)
	if err != nil {
		respond(h.logs, w, Response{Message: "Could not read events", Error: oopsErr}, http.StatusInternalServerError, requestId)
		h.logs.Errorw("failed to read stream range", "error", err, "stream", stream, "from", from, "request_id", requestId)
		return
	}

	page := payload.EventsPage{
		ChainID:   string(h.chainID),
		Stream:    stream,
		From:      from,
		Events:    events,
		NextIndex: head,
	}
	respond(h.logs, w, Response{Data: page}, http.StatusOK, requestId)
}
