package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/diewo77/go-eventdesk/httpx"
	"github.com/diewo77/go-eventdesk/internal/services"
	"github.com/diewo77/go-eventdesk/validation"
)

type errorBody struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var out errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestFailStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &services.ValidationError{Fields: validation.Violations{"title": "required"}}, http.StatusBadRequest, "validation_failed"},
		{"wrapped validation", fmt.Errorf("poll: %w", &services.ValidationError{Fields: validation.Violations{"title": "required"}}), http.StatusBadRequest, "validation_failed"},
		{"bad body", fmt.Errorf("%w: unexpected EOF", httpx.ErrInvalidJSON), http.StatusBadRequest, "invalid_json"},
		{"slot taken", services.ErrSlotTaken, http.StatusBadRequest, "slot_taken"},
		{"setup done", services.ErrAlreadyConfigured, http.StatusBadRequest, "setup_already_completed"},
		{"unauthorized", services.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", fmt.Errorf("venue 3: %w", services.ErrForbidden), http.StatusForbidden, "forbidden"},
		{"not found", services.ErrNotFound, http.StatusNotFound, "not_found"},
		{"unknown", errors.New("disk full"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newResponder(nil).fail(rec, httptest.NewRequest(http.MethodGet, "/polls", nil), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.code, decodeError(t, rec).Error)
		})
	}
}

func TestFailValidationDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := &services.ValidationError{Fields: validation.Violations{"expireAt": "past", "title": "required"}}
	newResponder(nil).fail(rec, httptest.NewRequest(http.MethodPost, "/polls", nil), err)

	body := decodeError(t, rec)
	assert.Equal(t, map[string]string{"expireAt": "past", "title": "required"}, body.Details)
}

func TestFailLogsOnlyUnknownErrors(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	rs := newResponder(zap.New(core))
	req := httptest.NewRequest(http.MethodDelete, "/polls/4", nil)

	rs.fail(httptest.NewRecorder(), req, services.ErrNotFound)
	assert.Zero(t, logs.Len())

	rs.fail(httptest.NewRecorder(), req, errors.New("connection reset"))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "request failed", entry.Message)
	assert.Equal(t, "/polls/4", entry.ContextMap()["path"])
	assert.Equal(t, http.MethodDelete, entry.ContextMap()["method"])
}

func TestPathID(t *testing.T) {
	for _, raw := range []string{"", "0", "-1", "abc", "1.5"} {
		req := httptest.NewRequest(http.MethodGet, "/polls/x", nil)
		req.SetPathValue("id", raw)
		rec := httptest.NewRecorder()

		_, ok := newResponder(nil).pathID(rec, req)
		assert.False(t, ok, raw)
		assert.Equal(t, http.StatusNotFound, rec.Code, raw)
	}

	req := httptest.NewRequest(http.MethodGet, "/polls/12", nil)
	req.SetPathValue("id", "12")
	id, ok := newResponder(nil).pathID(httptest.NewRecorder(), req)
	assert.True(t, ok)
	assert.Equal(t, uint(12), id)
}
