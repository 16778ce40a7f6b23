package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/diewo77/go-eventdesk/httpx"
	"github.com/diewo77/go-eventdesk/internal/services"
)

type SettingsHandler struct {
	responder
	settings *services.SettingsService
}

func NewSettingsHandler(settings *services.SettingsService, log *zap.Logger) *SettingsHandler {
	return &SettingsHandler{responder: newResponder(log), settings: settings}
}

// Get is public; it returns defaults until an admin saves settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in services.SettingsInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	s, err := h.settings.Update(r.Context(), caller(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Info("settings updated", zap.Uint("by", caller(r)))
	httpx.JSON(w, http.StatusOK, s)
}

func (h *SettingsHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	s, created, err := h.settings.Initialize(r.Context(), caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"created":  created,
		"settings": s,
	})
}
