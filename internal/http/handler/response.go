package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

const oopsErr = "Oops! Something went wrong. Please try again later."

type Response struct {
	Message string      `json:"message,omitempty"` // short message for humans
	Data    interface{} `json:"data,omitempty"`    // actual payload (can be nil)
	Error   string      `json:"error,omitempty"`   // error detail (if any)
}

func respond(logs *zap.SugaredLogger, w http.ResponseWriter, payload any, httpCode int, requestId string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpCode)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logs.Errorw("failed to write response", "error", err, "request_id", requestId)
	}
}
