package handler

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"patron/internal/core"
	"patron/internal/http/payload"
	"patron/internal/model"
)

func (h *PatronHandler) HandleCreatePost(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	caller, err := h.caller(r)
	if err != nil {
		h.respondError(w, "Not authenticated", err, http.StatusUnauthorized, CreatePost, requestId)
		return
	}

	var req payload.PostRequest
	if err := h.requestValidator.DecodeAndValidateJSONPayload(r, &req); err != nil {
		h.respondError(w, "Could not create post", err, http.StatusBadRequest, CreatePost, requestId)
		return
	}

	op, err := req.ToOp()
	if err != nil {
		h.respondError(w, "Could not create post", err, http.StatusBadRequest, CreatePost, requestId)
		return
	}

	post, err := h.chain.CreatePost(r.Context(), caller, op)
	if err != nil {
		h.respondError(w, "Could not create post", err, statusFor(err), CreatePost, requestId)
		return
	}

	h.logs.Infow("post created", "post_id", post.ID, "author", caller.Hex(), "request_id", requestId)
	respond(h.logs, w, Response{Data: post}, http.StatusOK, requestId)
}

func (h *PatronHandler) HandleUpdatePost(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	caller, err := h.caller(r)
	if err != nil {
		h.respondError(w, "Not authenticated", err, http.StatusUnauthorized, UpdatePost, requestId)
		return
	}

	var req payload.PostUpdateRequest
	if err := h.requestValidator.DecodeAndValidateJSONPayload(r, &req); err != nil {
		h.respondError(w, "Could not update post", err, http.StatusBadRequest, UpdatePost, requestId)
		return
	}

	if err := h.chain.UpdatePost(r.Context(), caller, req.ToOp(r.PathValue("postId"))); err != nil {
		h.respondError(w, "Could not update post", err, statusFor(err), UpdatePost, requestId)
		return
	}

	respond(h.logs, w, Response{Message: "Post updated"}, http.StatusOK, requestId)
}

func (h *PatronHandler) HandleDeletePost(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	caller, err := h.caller(r)
	if err != nil {
		h.respondError(w, "Not authenticated", err, http.StatusUnauthorized, DeletePost, requestId)
		return
	}

	if err := h.chain.DeletePost(r.Context(), caller, r.PathValue("postId")); err != nil {
		h.respondError(w, "Could not delete post", err, statusFor(err), DeletePost, requestId)
		return
	}

	respond(h.logs, w, Response{Message: "Post deleted"}, http.StatusOK, requestId)
}

func (h *PatronHandler) HandleGetPost(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	post, err := h.chain.State().GetPost(r.Context(), r.PathValue("postId"))
	if err != nil {
		h.respondError(w, "Could not read post", err, statusFor(err), GetPost, requestId)
		return
	}

	respond(h.logs, w, Response{Data: post}, http.StatusOK, requestId)
}

// HandleListPosts serves posts authored on this chain, or the mirrored
// feed of one author when the author query is set.
func (h *PatronHandler) HandleListPosts(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	var posts []model.Post
	var err error
	if author := r.URL.Query().Get("author"); author != "" {
		if !common.IsHexAddress(author) {
			h.respondError(w, "Could not list posts", errBadAddress, http.StatusBadRequest, ListPosts, requestId)
			return
		}
		posts, err = h.chain.State().PostsByAuthor(r.Context(), common.HexToAddress(author))
	} else {
		posts, err = h.chain.State().PostsByChain(r.Context(), h.chainID)
	}
	if err != nil {
		h.respondError(w, "Could not list posts", err, statusFor(err), ListPosts, requestId)
		return
	}

	respond(h.logs, w, Response{Data: posts}, http.StatusOK, requestId)
}

func (h *PatronHandler) HandleCastVote(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	caller, err := h.caller(r)
	if err != nil {
		h.respondError(w, "Not authenticated", err, http.StatusUnauthorized, CastVote, requestId)
		return
	}

	var req payload.VoteRequest
	if err := h.requestValidator.DecodeAndValidateJSONPayload(r, &req); err != nil {
		h.respondError(w, "Could not cast vote", err, http.StatusBadRequest, CastVote, requestId)
		return
	}

	op := core.CastVoteOp{PostID: r.PathValue("postId"), Option: req.Option}
	if err := h.chain.CastVote(r.Context(), caller, op); err != nil {
		h.respondError(w, "Could not cast vote", err, statusFor(err), CastVote, requestId)
		return
	}

	respond(h.logs, w, Response{Message: "Vote accepted"}, http.StatusOK, requestId)
}

func (h *PatronHandler) HandleJoinGiveaway(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	caller, err := h.caller(r)
	if err != nil {
		h.respondError(w, "Not authenticated", err, http.StatusUnauthorized, JoinGiveaway, requestId)
		return
	}

	if err := h.chain.JoinGiveaway(r.Context(), caller, r.PathValue("postId")); err != nil {
		h.respondError(w, "Could not join giveaway", err, statusFor(err), JoinGiveaway, requestId)
		return
	}

	respond(h.logs, w, Response{Message: "Giveaway entry accepted"}, http.StatusOK, requestId)
}

func (h *PatronHandler) HandleResolveGiveaway(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	caller, err := h.caller(r)
	if err != nil {
		h.respondError(w, "Not authenticated", err, http.StatusUnauthorized, ResolveGiveaway, requestId)
		return
	}

	winner, err := h.chain.ResolveGiveaway(r.Context(), caller, r.PathValue("postId"))
	if err != nil {
		h.respondError(w, "Could not resolve giveaway", err, statusFor(err), ResolveGiveaway, requestId)
		return
	}

	h.logs.Infow("giveaway resolved",
		"post_id", r.PathValue("postId"),
		"winner", winner.Hex(),
		"request_id", requestId)
	respond(h.logs, w, Response{Data: map[string]string{"winner": winner.Hex()}}, http.StatusOK, requestId)
}
