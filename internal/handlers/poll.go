package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/diewo77/go-eventdesk/httpx"
	"github.com/diewo77/go-eventdesk/internal/services"
)

type PollHandler struct {
	responder
	polls *services.PollService
}

func NewPollHandler(polls *services.PollService, log *zap.Logger) *PollHandler {
	return &PollHandler{responder: newResponder(log), polls: polls}
}

func (h *PollHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.polls.List(r.Context(), caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *PollHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.PollInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	poll, err := h.polls.Create(r.Context(), caller(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, poll)
}

func (h *PollHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	poll, err := h.polls.Get(r.Context(), caller(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, poll)
}

func (h *PollHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var in services.PollInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	poll, err := h.polls.Update(r.Context(), caller(r), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, poll)
}

func (h *PollHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.polls.Delete(r.Context(), caller(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, message{Message: "poll deleted"})
}

func (h *PollHandler) Results(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	res, err := h.polls.Results(r.Context(), caller(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

// ─────────────────────────────────────────────────────────────────────────────
// Anonymous participants
// ─────────────────────────────────────────────────────────────────────────────

func (h *PollHandler) PublicList(w http.ResponseWriter, r *http.Request) {
	list, err := h.polls.PublicActive(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *PollHandler) PublicGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	poll, err := h.polls.PublicGet(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, poll)
}

func (h *PollHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var in services.SubmissionInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	sub, err := h.polls.Submit(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"message":      "submission received",
		"submissionId": sub.ID,
	})
}
