package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/go-eventdesk/auth"
	"github.com/diewo77/go-eventdesk/internal/models"
	"github.com/diewo77/go-eventdesk/internal/services"
)

type transitionCall struct {
	caller, id uint
	notes      *string
	called     bool
}

// recordTransition returns a status change that records its arguments.
func recordTransition(call *transitionCall, err error) transitionFunc {
	return func(_ context.Context, caller, id uint, notes *string) (*models.Booking, error) {
		*call = transitionCall{caller: caller, id: id, notes: notes, called: true}
		if err != nil {
			return nil, err
		}
		return &models.Booking{ID: id, Status: models.StatusConfirmed}, nil
	}
}

func transitionRequestFor(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPut, "/bookings/admin/5/confirm", strings.NewReader(body))
	req.SetPathValue("id", "5")
	return req.WithContext(auth.WithUserID(req.Context(), 3))
}

func TestTransitionBody(t *testing.T) {
	h := NewBookingHandler(nil, nil)

	t.Run("empty body leaves notes untouched", func(t *testing.T) {
		var call transitionCall
		rec := httptest.NewRecorder()
		h.transition(rec, transitionRequestFor(""), recordTransition(&call, nil))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.True(t, call.called)
		assert.Equal(t, uint(3), call.caller)
		assert.Equal(t, uint(5), call.id)
		assert.Nil(t, call.notes)

		var b models.Booking
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
		assert.Equal(t, models.StatusConfirmed, b.Status)
	})

	t.Run("notes are passed through", func(t *testing.T) {
		var call transitionCall
		rec := httptest.NewRecorder()
		h.transition(rec, transitionRequestFor(`{"adminNotes":"window seat"}`), recordTransition(&call, nil))

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, call.notes)
		assert.Equal(t, "window seat", *call.notes)
	})

	t.Run("empty notes clear them", func(t *testing.T) {
		var call transitionCall
		h.transition(httptest.NewRecorder(), transitionRequestFor(`{"adminNotes":""}`), recordTransition(&call, nil))

		require.NotNil(t, call.notes)
		assert.Empty(t, *call.notes)
	})

	t.Run("malformed body", func(t *testing.T) {
		var call transitionCall
		rec := httptest.NewRecorder()
		h.transition(rec, transitionRequestFor(`{"adminNotes":`), recordTransition(&call, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_json", decodeError(t, rec).Error)
		assert.False(t, call.called)
	})

	t.Run("service error is mapped", func(t *testing.T) {
		var call transitionCall
		rec := httptest.NewRecorder()
		h.transition(rec, transitionRequestFor(""), recordTransition(&call, services.ErrForbidden))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		var call transitionCall
		req := transitionRequestFor("")
		req.SetPathValue("id", "zero")
		rec := httptest.NewRecorder()
		h.transition(rec, req, recordTransition(&call, nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.False(t, call.called)
	})
}
