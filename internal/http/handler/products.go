package handler

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"patron/internal/core"
	"patron/internal/http/payload"
	"patron/internal/model"
)

func (h *PatronHandler) HandleCreateProduct(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	caller, err := h.caller(r)
	if err != nil {
		h.respondError(w, "Not authenticated", err, http.StatusUnauthorized, CreateProduct, requestId)
		return
	}

	var req payload.ProductRequest
	if err := h.requestValidator.DecodeAndValidateJSONPayload(r, &req); err != nil {
		h.respondError(w, "Could not create product", err, http.StatusBadRequest, CreateProduct, requestId)
		return
	}

	op, err := req.ToOp()
	if err != nil {
		h.respondError(w, "Could not create product", err, http.StatusBadRequest, CreateProduct, requestId)
		return
	}

	product, err := h.chain.CreateProduct(r.Context(), caller, op)
	if err != nil {
		h.respondError(w, "Could not create product", err, statusFor(err), CreateProduct, requestId)
		return
	}

	h.logs.Infow("product created", "product_id", product.ID, "author", caller.Hex(), "request_id", requestId)
	respond(h.logs, w, Response{Data: product}, http.StatusOK, requestId)
}

func (h *PatronHandler) HandleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	caller, err := h.caller(r)
	if err != nil {
		h.respondError(w, "Not authenticated", err, http.StatusUnauthorized, UpdateProduct, requestId)
		return
	}

	var req payload.ProductUpdateRequest
	if err := h.requestValidator.DecodeAndValidateJSONPayload(r, &req); err != nil {
		h.respondError(w, "Could not update product", err, http.StatusBadRequest, UpdateProduct, requestId)
		return
	}

	patch, err := req.ToPatch()
	if err != nil {
		h.respondError(w, "Could not update product", err, http.StatusBadRequest, UpdateProduct, requestId)
		return
	}

	op := core.UpdateProductOp{ProductID: r.PathValue("productId"), Patch: patch}
	if err := h.chain.UpdateProduct(r.Context(), caller, op); err != nil {
		h.respondError(w, "Could not update product", err, statusFor(err), UpdateProduct, requestId)
		return
	}

	respond(h.logs, w, Response{Message: "Product updated"}, http.StatusOK, requestId)
}

func (h *PatronHandler) HandleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	caller, err := h.caller(r)
	if err != nil {
		h.respondError(w, "Not authenticated", err, http.StatusUnauthorized, DeleteProduct, requestId)
		return
	}

	if err := h.chain.DeleteProduct(r.Context(), caller, r.PathValue("productId")); err != nil {
		h.respondError(w, "Could not delete product", err, statusFor(err), DeleteProduct, requestId)
		return
	}

	respond(h.logs, w, Response{Message: "Product deleted"}, http.StatusOK, requestId)
}

func (h *PatronHandler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	product, err := h.chain.State().GetProduct(r.Context(), r.PathValue("productId"))
	if err != nil {
		h.respondError(w, "Could not read product", err, statusFor(err), GetProduct, requestId)
		return
	}

	// private fields stay on the author's and buyers' records
	product.PrivateData = nil
	product.SuccessMsg = nil
	respond(h.logs, w, Response{Data: product}, http.StatusOK, requestId)
}

// HandleListProducts serves the catalog, public fields only. An author
// query narrows it to one seller.
func (h *PatronHandler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	var products []model.Product
	var err error
	if author := r.URL.Query().Get("author"); author != "" {
		if !common.IsHexAddress(author) {
			h.respondError(w, "Could not list products", errBadAddress, http.StatusBadRequest, ListProducts, requestId)
			return
		}
		products, err = h.chain.State().ProductsByAuthor(r.Context(), common.HexToAddress(author))
	} else {
		products, err = h.chain.State().ProductsByChain(r.Context(), h.chainID)
	}
	if err != nil {
		h.respondError(w, "Could not list products", err, statusFor(err), ListProducts, requestId)
		return
	}

	for i := range products {
		products[i].PrivateData = nil
		products[i].SuccessMsg = nil
	}
	respond(h.logs, w, Response{Data: products}, http.StatusOK, requestId)
}

func (h *PatronHandler) HandleBuyProduct(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	caller, err := h.caller(r)
	if err != nil {
		h.respondError(w, "Not authenticated", err, http.StatusUnauthorized, BuyProduct, requestId)
		return
	}

	var req payload.BuyProductRequest
	if err := h.requestValidator.DecodeAndValidateJSONPayload(r, &req); err != nil {
		h.respondError(w, "Could not buy product", err, http.StatusBadRequest, BuyProduct, requestId)
		return
	}

	op, err := req.ToOp(caller, r.PathValue("productId"))
	if err != nil {
		h.respondError(w, "Could not buy product", err, http.StatusBadRequest, BuyProduct, requestId)
		return
	}

	purchaseID, err := h.chain.BuyProduct(r.Context(), caller, op)
	if err != nil {
		h.respondError(w, "Could not buy product", err, statusFor(err), BuyProduct, requestId)
		return
	}

	h.logs.Infow("purchase accepted", "purchase_id", purchaseID, "buyer", caller.Hex(), "request_id", requestId)
	respond(h.logs, w, Response{Data: map[string]string{"purchase_id": purchaseID}}, http.StatusOK, requestId)
}

// HandleGetPurchases serves the caller's own purchase records, private
// product data included.
func (h *PatronHandler) HandleGetPurchases(w http.ResponseWriter, r *http.Request) {
	requestId := h.requestID(r)

	caller, err := h.caller(r)
	if err != nil {
		h.respondError(w, "Not authenticated", err, http.StatusUnauthorized, GetPurchases, requestId)
		return
	}

	purchases, err := h.chain.State().PurchasesByBuyer(r.Context(), caller)
	if err != nil {
		h.respondError(w, "Could not list purchases", err, statusFor(err), GetPurchases, requestId)
		return
	}

	respond(h.logs, w, Response{Data: purchases}, http.StatusOK, requestId)
}
