package handler

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"patron/internal/http/payload"
)

func (h *PatronHandler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	caller, err := h.caller(r)
	if err != nil {
		h.respondError(w, "Not authenticated", err, http.StatusUnauthorized, Transfer, requestId)
		return
	}

	var req payload.TransferRequest
	if err := h.requestValidator.DecodeAndValidateJSONPayload(r, &req); err != nil {
		h.respondError(w, "Could not transfer", err, http.StatusBadRequest, Transfer, requestId)
		return
	}

	op, err := req.ToOp(caller)
	if err != nil {
		h.respondError(w, "Could not transfer", err, http.StatusBadRequest, Transfer, requestId)
		return
	}

	if err := h.chain.Transfer(r.Context(), caller, op); err != nil {
		h.respondError(w, "Could not transfer", err, statusFor(err), Transfer, requestId)
		return
	}

	h.logs.Infow("transfer accepted",
		"from", caller.Hex(),
		"to", req.ToOwner,
		"to_chain", req.ToChain,
		"amount", req.Amount,
		"request_id", requestId)
	respond(h.logs, w, Response{Message: "Transfer accepted"}, http.StatusOK, requestId)
}

func (h *PatronHandler) HandleMint(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	caller, err := h.caller(r)
	if err != nil {
		h.respondError(w, "Not authenticated", err, http.StatusUnauthorized, Mint, requestId)
		return
	}

	var req payload.MintRequest
	if err := h.requestValidator.DecodeAndValidateJSONPayload(r, &req); err != nil {
		h.respondError(w, "Could not mint", err, http.StatusBadRequest, Mint, requestId)
		return
	}

	amount, err := req.ToAmount()
	if err != nil {
		h.respondError(w, "Could not mint", err, http.StatusBadRequest, Mint, requestId)
		return
	}

	if err := h.chain.Mint(r.Context(), caller, amount); err != nil {
		h.respondError(w, "Could not mint", err, statusFor(err), Mint, requestId)
		return
	}

	h.logs.Infow("mint accepted",
		"owner", caller.Hex(),
		"amount", req.Amount,
		"request_id", requestId)
	respond(h.logs, w, Response{Message: "Minted"}, http.StatusOK, requestId)
}

func (h *PatronHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	caller, err := h.caller(r)
	if err != nil {
		h.respondError(w, "Not authenticated", err, http.StatusUnauthorized, Withdraw, requestId)
		return
	}

	if err := h.chain.Withdraw(r.Context(), caller); err != nil {
		h.respondError(w, "Could not withdraw", err, statusFor(err), Withdraw, requestId)
		return
	}

	respond(h.logs, w, Response{Message: "Withdrawn"}, http.StatusOK, requestId)
}

// HandleGetDonations serves an owner's donation history together with the
// running totals.
func (h *PatronHandler) HandleGetDonations(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	address := r.PathValue("address")
	if !common.IsHexAddress(address) {
		h.respondError(w, "Could not read donations", errBadAddress, http.StatusBadRequest, GetDonations, requestId)
		return
	}
	owner := common.HexToAddress(address)

	received, err := h.chain.State().DonationsByRecipient(r.Context(), owner)
	if err != nil {
		h.respondError(w, "Could not read donations", err, statusFor(err), GetDonations, requestId)
		return
	}
	sent, err := h.chain.State().DonationsByDonor(r.Context(), owner)
	if err != nil {
		h.respondError(w, "Could not read donations", err, statusFor(err), GetDonations, requestId)
		return
	}

	totalReceived, err := h.chain.TotalReceived(r.Context(), owner)
	if err != nil {
		h.respondError(w, "Could not read donations", err, statusFor(err), GetDonations, requestId)
		return
	}
	totalSent, err := h.chain.TotalSent(r.Context(), owner)
	if err != nil {
		h.respondError(w, "Could not read donations", err, statusFor(err), GetDonations, requestId)
		return
	}

	resp := map[string]any{
		"received":       received,
		"sent":           sent,
		"total_received": totalReceived.String(),
		"total_sent":     totalSent.String(),
	}
	respond(h.logs, w, Response{Data: resp}, http.StatusOK, requestId)
}

func (h *PatronHandler) HandleGetBlob(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	data, err := h.chain.ReadBlob(r.Context(), r.PathValue("hash"))
	if err != nil {
		h.respondError(w, "Could not read blob", err, statusFor(err), GetBlob, requestId)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logs.Errorw("failed to write blob response", "error", err, "request_id", requestId)
	}
}
