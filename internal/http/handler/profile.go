package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"patron/internal/http/payload"
	"patron/internal/model"
)

var errBadAddress = errors.New("malformed owner address")

func (h *PatronHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	caller, err := h.caller(r)
	if err != nil {
		h.respondError(w, "Not authenticated", err, http.StatusUnauthorized, Register, requestId)
		return
	}

	var req payload.RegisterRequest
	if err := h.requestValidator.DecodeAndValidateJSONPayload(r, &req); err != nil {
		h.respondError(w, "Could not register", err, http.StatusBadRequest, Register, requestId)
		return
	}

	if err := h.chain.Register(r.Context(), caller, req.ToOp()); err != nil {
		h.respondError(w, "Could not register", err, statusFor(err), Register, requestId)
		return
	}

	h.logs.Infow("chain registered", "owner", caller.Hex(), "main_chain", req.MainChain, "request_id", requestId)
	respond(h.logs, w, Response{Message: "Registered"}, http.StatusOK, requestId)
}

func (h *PatronHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	caller, err := h.caller(r)
	if err != nil {
		h.respondError(w, "Not authenticated", err, http.StatusUnauthorized, UpdateProfile, requestId)
		return
	}

	var req payload.ProfileRequest
	if err := h.requestValidator.DecodeAndValidateJSONPayload(r, &req); err != nil {
		h.respondError(w, "Could not update profile", err, http.StatusBadRequest, UpdateProfile, requestId)
		return
	}

	if err := h.chain.UpdateProfile(r.Context(), caller, req.ToOp()); err != nil {
		h.respondError(w, "Could not update profile", err, statusFor(err), UpdateProfile, requestId)
		return
	}

	respond(h.logs, w, Response{Message: "Profile updated"}, http.StatusOK, requestId)
}

func (h *PatronHandler) HandleSetAvatar(w http.ResponseWriter, r *http.Request) {
	h.handleImageUpdate(w, r, SetAvatar, h.chain.SetAvatar)
}

func (h *PatronHandler) HandleSetHeader(w http.ResponseWriter, r *http.Request) {
	h.handleImageUpdate(w, r, SetHeader, h.chain.SetHeader)
}

func (h *PatronHandler) handleImageUpdate(w http.ResponseWriter, r *http.Request, route string,
	apply func(ctx context.Context, caller model.Owner, hash string) error) {
	requestId := h.requestID(r)

	caller, err := h.caller(r)
	if err != nil {
		h.respondError(w, "Not authenticated", err, http.StatusUnauthorized, route, requestId)
		return
	}

	var req payload.ImageRequest
	if err := h.requestValidator.DecodeAndValidateJSONPayload(r, &req); err != nil {
		h.respondError(w, "Could not update image", err, http.StatusBadRequest, route, requestId)
		return
	}

	if err := apply(r.Context(), caller, req.Hash); err != nil {
		h.respondError(w, "Could not update image", err, statusFor(err), route, requestId)
		return
	}

	respond(h.logs, w, Response{Message: "Image updated"}, http.StatusOK, requestId)
}

func (h *PatronHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	address := r.PathValue("address")
	if !common.IsHexAddress(address) {
		h.respondError(w, "Could not read profile", errBadAddress, http.StatusBadRequest, GetProfile, requestId)
		return
	}

	profile, err := h.chain.State().GetProfile(r.Context(), common.HexToAddress(address))
	if err != nil {
		h.respondError(w, "Could not read profile", err, statusFor(err), GetProfile, requestId)
		return
	}

	respond(h.logs, w, Response{Data: profile}, http.StatusOK, requestId)
}
