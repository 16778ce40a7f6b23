package handlers

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/diewo77/go-eventdesk/httpx"
	"github.com/diewo77/go-eventdesk/internal/models"
	"github.com/diewo77/go-eventdesk/internal/services"
)

type BookingHandler struct {
	responder
	bookings *services.BookingService
}

func NewBookingHandler(bookings *services.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{responder: newResponder(log), bookings: bookings}
}

// ─────────────────────────────────────────────────────────────────────────────
// Public booking flow
// ─────────────────────────────────────────────────────────────────────────────

func (h *BookingHandler) PublicVenues(w http.ResponseWriter, r *http.Request) {
	list, err := h.bookings.PublicVenues(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *BookingHandler) PublicVenue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	venue, err := h.bookings.PublicVenue(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, venue)
}

func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	av, err := h.bookings.Availability(r.Context(), id, r.URL.Query().Get("date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, av)
}

func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var in services.BookingRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	b, err := h.bookings.TryBook(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Info("booking created",
		zap.Uint("venue_id", b.VenueID),
		zap.String("reference", b.Reference),
		zap.String("date", b.DateKey))
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *BookingHandler) ByReference(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.bookings.LookupReference(r.Context(), r.PathValue("ref"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, receipt)
}

// ─────────────────────────────────────────────────────────────────────────────
// Venue owners
// ─────────────────────────────────────────────────────────────────────────────

// List accepts ?status=, ?date= and ?venueId= filters.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := services.BookingFilter{Status: q.Get("status"), Date: q.Get("date")}
	if raw := q.Get("venueId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"venueId": "invalid_id"})
			return
		}
		f.VenueID = uint(id)
	}
	list, err := h.bookings.List(r.Context(), caller(r), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	b, err := h.bookings.Get(r.Context(), caller(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

type transitionRequest struct {
	AdminNotes *string `json:"adminNotes"`
}

type transitionFunc func(ctx context.Context, caller, id uint, notes *string) (*models.Booking, error)

// transition runs a status change with the optional adminNotes body.
func (h *BookingHandler) transition(w http.ResponseWriter, r *http.Request, apply transitionFunc) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var in transitionRequest
	if err := httpx.DecodeOptionalJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	b, err := apply(r.Context(), caller(r), id, in.AdminNotes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Info("booking status changed",
		zap.Uint("booking_id", b.ID),
		zap.String("status", b.Status),
		zap.Uint("by", caller(r)))
	httpx.JSON(w, http.StatusOK, b)
}

func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.bookings.Confirm)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.bookings.Cancel)
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.bookings.Complete)
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.bookings.Delete(r.Context(), caller(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, message{Message: "booking deleted"})
}
