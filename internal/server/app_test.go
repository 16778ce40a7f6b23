package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/go-eventdesk/internal/config"
	"github.com/diewo77/go-eventdesk/internal/db"
	"github.com/diewo77/go-eventdesk/internal/models"
	"github.com/diewo77/go-eventdesk/internal/services"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	conn, err := db.OpenMemory(t.Name())
	require.NoError(t, err)
	cfg := &config.Config{
		App:  config.AppConfig{PublicBaseURL: "http://front.test"},
		Auth: config.AuthConfig{JWTSecret: "router-test", TokenTTL: time.Hour, RoleCacheTTL: time.Minute},
	}
	return New(conn, cfg, nil)
}

func do(t *testing.T, app http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type errorBody struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

// setupAdmin runs the first-run setup and returns the admin token.
func setupAdmin(t *testing.T, app *App) string {
	t.Helper()
	rec := do(t, app, http.MethodPost, "/auth/setup", "", map[string]string{
		"email": "admin@example.com", "password": "password1", "name": "Admin",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[services.Session](t, rec).Token
}

// member creates a staff account through the admin API and logs it in.
func member(t *testing.T, app *App, adminToken, email string) string {
	t.Helper()
	rec := do(t, app, http.MethodPost, "/admin/users", adminToken, map[string]string{
		"email": email, "password": "password2", "name": "Member", "role": "staff",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, app, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": "password2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[services.Session](t, rec).Token
}

func pollBody(consent bool) map[string]any {
	body := map[string]any{
		"title": "Friday drinks",
		"questions": []map[string]any{
			{"id": "q1", "text": "Coming?", "type": "button", "options": []string{"yes", "no"}, "required": true},
		},
		"expireAt": time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
	}
	if consent {
		body["consentEnabled"] = true
		body["consentText"] = "You may contact me."
	}
	return body
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	for _, path := range []string{"/health", "/healthz"} {
		rec := do(t, app, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestSetupFlow(t *testing.T) {
	app := newTestApp(t)

	rec := do(t, app, http.MethodGet, "/auth/check-setup", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]bool{"isSetupComplete": false}, decode[map[string]bool](t, rec))

	token := setupAdmin(t, app)

	rec = do(t, app, http.MethodPost, "/auth/setup", "", map[string]string{
		"email": "late@example.com", "password": "password1", "name": "Late",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "setup_already_completed", decode[errorBody](t, rec).Error)

	rec = do(t, app, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"admin@example.com"`)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = do(t, app, http.MethodPost, "/auth/login", "", map[string]string{"email": "admin@example.com", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	app := newTestApp(t)
	setupAdmin(t, app)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/polls"},
		{http.MethodPost, "/booking-venues"},
		{http.MethodGet, "/bookings/admin"},
		{http.MethodPost, "/auth/export-backup"},
		{http.MethodPut, "/settings"},
	} {
		rec := do(t, app, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
		rec = do(t, app, route.method, route.path, "not-a-token", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
	}
}

func TestPollOwnershipStatusCodes(t *testing.T) {
	app := newTestApp(t)
	admin := setupAdmin(t, app)
	staff := member(t, app, admin, "staff@example.com")

	rec := do(t, app, http.MethodPost, "/polls", admin, pollBody(false))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[map[string]any](t, rec)["id"]
	path := fmt.Sprintf("/polls/%v", id)

	assert.Equal(t, http.StatusOK, do(t, app, http.MethodGet, path, admin, nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, app, http.MethodGet, path, staff, nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, app, http.MethodDelete, path, staff, nil).Code)
	// a missing poll is 404 whoever asks
	assert.Equal(t, http.StatusNotFound, do(t, app, http.MethodGet, "/polls/9999", staff, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, app, http.MethodGet, "/polls/abc", staff, nil).Code)

	rec = do(t, app, http.MethodPost, "/polls", staff, map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_failed", decode[errorBody](t, rec).Error)
}

func TestPublicSubmitConsent(t *testing.T) {
	app := newTestApp(t)
	admin := setupAdmin(t, app)

	rec := do(t, app, http.MethodPost, "/polls", admin, pollBody(true))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[map[string]any](t, rec)["id"]

	rec = do(t, app, http.MethodGet, fmt.Sprintf("/public/poll/%v", id), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "You may contact me.")

	answers := []map[string]string{{"questionId": "q1", "answer": "yes"}}
	rec = do(t, app, http.MethodPost, fmt.Sprintf("/public/submit/%v", id), "", map[string]any{"answers": answers})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "consent_required", decode[errorBody](t, rec).Details["consentAgreed"])

	rec = do(t, app, http.MethodPost, fmt.Sprintf("/public/submit/%v", id), "", map[string]any{"answers": answers, "consentAgreed": true})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, app, http.MethodPost, "/public/submit/4242", "", map[string]any{"answers": answers})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, app, http.MethodPost, fmt.Sprintf("/public/submit/%v", id), "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_json", decode[errorBody](t, rec).Error)
}

func TestBookingConflictOverHTTP(t *testing.T) {
	app := newTestApp(t)
	admin := setupAdmin(t, app)

	rec := do(t, app, http.MethodPost, "/booking-venues", admin, map[string]any{
		"name":      "Terrace",
		"tables":    []map[string]any{{"tableNumber": "1", "capacity": 4}},
		"timeSlots": []map[string]any{{"name": "Dinner", "startTime": "19:00", "endTime": "21:00"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	venueID := decode[map[string]any](t, rec)["id"]

	date := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	body := map[string]any{
		"tableNumber": "1", "date": date,
		"timeSlot":  map[string]string{"startTime": "19:00", "endTime": "21:00"},
		"guestName": "Bo", "guestEmail": "bo@example.com", "guestPhone": "0600000000",
		"numberOfGuests": 2,
	}
	bookPath := fmt.Sprintf("/bookings/public/venues/%v/book", venueID)
	rec = do(t, app, http.MethodPost, bookPath, "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	booking := decode[map[string]any](t, rec)

	rec = do(t, app, http.MethodPost, bookPath, "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "slot_taken", decode[errorBody](t, rec).Error)

	rec = do(t, app, http.MethodGet, fmt.Sprintf("/bookings/public/venues/%v/availability?date=%s", venueID, date), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "bo@example.com")

	rec = do(t, app, http.MethodGet, fmt.Sprintf("/bookings/public/reference/%v", booking["reference"]), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, app, http.MethodPut, fmt.Sprintf("/bookings/admin/%v/confirm", booking["id"]), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", decode[map[string]any](t, rec)["status"])

	rec = do(t, app, http.MethodPut, fmt.Sprintf("/bookings/admin/%v/confirm", booking["id"]), admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, app, http.MethodGet, fmt.Sprintf("/booking-venues/%v/qrcode", venueID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}

func TestSettingsAccess(t *testing.T) {
	app := newTestApp(t)
	admin := setupAdmin(t, app)
	staff := member(t, app, admin, "staff@example.com")

	rec := do(t, app, http.MethodGet, "/settings", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Event Desk", decode[map[string]any](t, rec)["siteName"])

	update := map[string]any{"siteName": "Bistro"}
	assert.Equal(t, http.StatusForbidden, do(t, app, http.MethodPut, "/settings", staff, update).Code)
	assert.Equal(t, http.StatusForbidden, do(t, app, http.MethodPost, "/settings/initialize", staff, nil).Code)

	rec = do(t, app, http.MethodPut, "/settings", admin, update)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Bistro", decode[map[string]any](t, rec)["siteName"])
}

func TestDeletedAccountTokenStopsWorking(t *testing.T) {
	app := newTestApp(t)
	admin := setupAdmin(t, app)
	staff := member(t, app, admin, "staff@example.com")

	rec := do(t, app, http.MethodPost, "/auth/delete-account", staff, map[string]string{
		"password": "password2", "confirmation": "nope",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, app, http.MethodPost, "/auth/delete-account", staff, map[string]string{
		"password": "password2", "confirmation": services.DeleteConfirmationPhrase,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(t, app, http.MethodGet, "/auth/me", staff, nil).Code)
	assert.Equal(t, http.StatusOK, do(t, app, http.MethodGet, "/auth/me", admin, nil).Code)
}

func TestRoutesRequireRolePermission(t *testing.T) {
	app := newTestApp(t)
	admin := setupAdmin(t, app)
	staff := member(t, app, admin, "staff@example.com")
	require.NoError(t, app.Auth.DB.Model(&models.User{}).
		Where("email = ?", "staff@example.com").Update("role", "guest").Error)

	// signed in, but the role grants nothing
	assert.Equal(t, http.StatusOK, do(t, app, http.MethodGet, "/auth/me", staff, nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, app, http.MethodGet, "/polls", staff, nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, app, http.MethodPost, "/polls", staff, pollBody(false)).Code)
	assert.Equal(t, http.StatusForbidden, do(t, app, http.MethodGet, "/booking-venues", staff, nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, app, http.MethodGet, "/bookings/admin", staff, nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, app, http.MethodPost, "/auth/export-backup", staff, nil).Code)

	assert.Equal(t, http.StatusOK, do(t, app, http.MethodGet, "/polls", admin, nil).Code)
}

func TestRoleChangeAppliesToNextRequest(t *testing.T) {
	app := newTestApp(t)
	admin := setupAdmin(t, app)
	staff := member(t, app, admin, "staff@example.com")
	update := map[string]any{"siteName": "Bistro"}

	// warms the cached staff profile
	require.Equal(t, http.StatusForbidden, do(t, app, http.MethodPut, "/settings", staff, update).Code)

	me := decode[models.User](t, do(t, app, http.MethodGet, "/auth/me", staff, nil))
	rec := do(t, app, http.MethodPut, fmt.Sprintf("/admin/users/%d/role", me.ID), admin, map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusOK, do(t, app, http.MethodPut, "/settings", staff, update).Code)
}
