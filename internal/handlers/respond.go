// Package handlers exposes the services over JSON HTTP.
package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/diewo77/go-eventdesk/auth"
	"github.com/diewo77/go-eventdesk/httpx"
	"github.com/diewo77/go-eventdesk/internal/services"
)

// responder is embedded by every handler.
type responder struct {
	log *zap.Logger
}

func newResponder(log *zap.Logger) responder {
	if log == nil {
		log = zap.NewNop()
	}
	return responder{log: log}
}

// fail maps a service error to its status code. Unknown errors are logged
// and answered with a generic 500.
func (rs responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := services.IsValidation(err); ok {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", ve.Fields)
		return
	}
	switch {
	case errors.Is(err, httpx.ErrInvalidJSON):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
	case errors.Is(err, services.ErrSlotTaken), errors.Is(err, services.ErrAlreadyConfigured):
		httpx.JSONError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, services.ErrUnauthorized):
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
	case errors.Is(err, services.ErrForbidden):
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
	case errors.Is(err, services.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	default:
		rs.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// pathID answers 404 itself when the id segment is not a positive integer.
func (rs responder) pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	}
	return id, ok
}

// caller returns the authenticated user id; zero when anonymous.
func caller(r *http.Request) uint {
	uid, _ := auth.UserIDFromContext(r.Context())
	return uid
}

type message struct {
	Message string `json:"message"`
}
