package handler

import (
	"net/http"

	"patron/internal/http/payload"
)

func (h *PatronHandler) HandleSetSubscriptionPrice(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	caller, err := h.caller(r)
	if err != nil {
		h.respondError(w, "Not authenticated", err, http.StatusUnauthorized, SetSubPrice, requestId)
		return
	}

	var req payload.SubscriptionPriceRequest
	if err := h.requestValidator.DecodeAndValidateJSONPayload(r, &req); err != nil {
		h.respondError(w, "Could not set subscription price", err, http.StatusBadRequest, SetSubPrice, requestId)
		return
	}

	op, err := req.ToOp()
	if err != nil {
		h.respondError(w, "Could not set subscription price", err, http.StatusBadRequest, SetSubPrice, requestId)
		return
	}

	if err := h.chain.SetSubscriptionPrice(r.Context(), caller, op); err != nil {
		h.respondError(w, "Could not set subscription price", err, statusFor(err), SetSubPrice, requestId)
		return
	}

	respond(h.logs, w, Response{Message: "Subscription price set"}, http.StatusOK, requestId)
}

func (h *PatronHandler) HandleDeleteSubscriptionPrice(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	caller, err := h.caller(r)
	if err != nil {
		h.respondError(w, "Not authenticated", err, http.StatusUnauthorized, DeleteSubPrice, requestId)
		return
	}

	if err := h.chain.DeleteSubscriptionPrice(r.Context(), caller); err != nil {
		h.respondError(w, "Could not delete subscription price", err, statusFor(err), DeleteSubPrice, requestId)
		return
	}

	respond(h.logs, w, Response{Message: "Subscription price deleted"}, http.StatusOK, requestId)
}

func (h *PatronHandler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	caller, err := h.caller(r)
	if err != nil {
		h.respondError(w, "Not authenticated", err, http.StatusUnauthorized, Subscribe, requestId)
		return
	}

	var req payload.SubscribeRequest
	if err := h.requestValidator.DecodeAndValidateJSONPayload(r, &req); err != nil {
		h.respondError(w, "Could not subscribe", err, http.StatusBadRequest, Subscribe, requestId)
		return
	}

	op, err := req.ToOp()
	if err != nil {
		h.respondError(w, "Could not subscribe", err, http.StatusBadRequest, Subscribe, requestId)
		return
	}

	sub, err := h.chain.SubscribeToAuthor(r.Context(), caller, op)
	if err != nil {
		h.respondError(w, "Could not subscribe", err, statusFor(err), Subscribe, requestId)
		return
	}

	h.logs.Infow("subscription created",
		"subscription_id", sub.ID,
		"subscriber", caller.Hex(),
		"author", req.Author,
		"request_id", requestId)
	respond(h.logs, w, Response{Data: sub}, http.StatusOK, requestId)
}

func (h *PatronHandler) HandleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	caller, err := h.caller(r)
	if err != nil {
		h.respondError(w, "Not authenticated", err, http.StatusUnauthorized, ListSubscriptions, requestId)
		return
	}

	subs, err := h.chain.State().SubscriptionsBySubscriber(r.Context(), caller)
	if err != nil {
		h.respondError(w, "Could not list subscriptions", err, statusFor(err), ListSubscriptions, requestId)
		return
	}

	respond(h.logs, w, Response{Data: subs}, http.StatusOK, requestId)
}
