// Package server wires services, handlers and middleware into one
// http.Handler.
package server

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/go-eventdesk/auth"
	"github.com/diewo77/go-eventdesk/gate"
	"github.com/diewo77/go-eventdesk/internal/config"
	"github.com/diewo77/go-eventdesk/internal/handlers"
	"github.com/diewo77/go-eventdesk/internal/policy"
	"github.com/diewo77/go-eventdesk/internal/services"
)

// App is the API handler with all routes configured.
type App struct {
	mux     *http.ServeMux
	log     *zap.Logger
	tokens  *auth.Issuer
	gate    *policy.AuthGate
	handler http.Handler

	Auth     *services.AuthService
	Accounts *services.AccountService
	Polls    *services.PollService
	Venues   *services.VenueService
	Bookings *services.BookingService
	Settings *services.SettingsService
	Backups  *services.BackupService
	Users    *services.UserService
}

// New builds the application from an open database and loaded config.
func New(conn *gorm.DB, cfg *config.Config, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	tokens := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	ag := policy.NewAuthGate(conn, cfg.Auth.RoleCacheTTL)

	settings := services.NewSettingsService(conn, ag)
	bookings := services.NewBookingService(conn, ag, settings)
	a := &App{
		mux:      http.NewServeMux(),
		log:      log,
		tokens:   tokens,
		gate:     ag,
		Auth:     services.NewAuthService(conn, tokens),
		Accounts: services.NewAccountService(conn, ag),
		Polls:    services.NewPollService(conn, ag),
		Venues:   services.NewVenueService(conn, ag, cfg.App.PublicBaseURL),
		Bookings: bookings,
		Settings: settings,
		Backups:  services.NewBackupService(conn, ag, bookings.Location),
		Users:    services.NewUserService(conn, ag, ag.InvalidateUser),
	}
	a.setupRoutes(conn)
	a.handler = withRecover(log)(withLogging(log)(tokens.Middleware(a.mux)))
	return a
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *App) setupRoutes(conn *gorm.DB) {
	log := a.log
	authed := auth.RequireAuth(a.Auth.UserExists)
	admin := func(h http.HandlerFunc) http.Handler {
		return authed(a.gate.RequireAdmin()(h))
	}
	private := func(h http.HandlerFunc) http.Handler {
		return authed(h)
	}
	// can also requires the caller's role to grant resource:action;
	// ownership is checked by the services.
	can := func(resource string, action gate.Action, h http.HandlerFunc) http.Handler {
		return authed(a.gate.RequirePermission(resource, action)(h))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Health
	// ─────────────────────────────────────────────────────────────────────────
	hh := handlers.NewHealthHandler(conn, log)
	a.mux.HandleFunc("GET /health", hh.Check)
	a.mux.HandleFunc("GET /healthz", hh.Check)

	// ─────────────────────────────────────────────────────────────────────────
	// Auth & account
	// ─────────────────────────────────────────────────────────────────────────
	ah := handlers.NewAuthHandler(a.Auth, a.Accounts, a.gate.InvalidateUser, log)
	bh := handlers.NewBackupHandler(a.Backups, log)

	a.mux.HandleFunc("GET /auth/check-setup", ah.CheckSetup)
	a.mux.HandleFunc("POST /auth/setup", ah.Setup)
	a.mux.HandleFunc("POST /auth/login", ah.Login)
	a.mux.Handle("GET /auth/me", private(ah.Me))
	a.mux.Handle("POST /auth/delete-account", can(policy.ResourceAccount, gate.ActionDelete, ah.DeleteAccount))
	a.mux.Handle("POST /auth/export-backup", can(policy.ResourceAccount, gate.ActionView, bh.Export))
	a.mux.Handle("POST /auth/import-backup", can(policy.ResourceAccount, gate.ActionCreate, bh.Import))

	// ─────────────────────────────────────────────────────────────────────────
	// Polls
	// ─────────────────────────────────────────────────────────────────────────
	ph := handlers.NewPollHandler(a.Polls, log)

	a.mux.HandleFunc("GET /polls/public", ph.PublicList)
	a.mux.HandleFunc("GET /public/poll/{id}", ph.PublicGet)
	a.mux.HandleFunc("POST /public/submit/{id}", ph.Submit)

	a.mux.Handle("GET /polls", can(policy.ResourcePoll, gate.ActionList, ph.List))
	a.mux.Handle("POST /polls", can(policy.ResourcePoll, gate.ActionCreate, ph.Create))
	a.mux.Handle("GET /polls/{id}", can(policy.ResourcePoll, gate.ActionView, ph.Get))
	a.mux.Handle("PUT /polls/{id}", can(policy.ResourcePoll, gate.ActionUpdate, ph.Update))
	a.mux.Handle("DELETE /polls/{id}", can(policy.ResourcePoll, gate.ActionDelete, ph.Delete))
	a.mux.Handle("GET /polls/{id}/results", can(policy.ResourcePoll, gate.ActionView, ph.Results))

	// ─────────────────────────────────────────────────────────────────────────
	// Venues
	// ─────────────────────────────────────────────────────────────────────────
	vh := handlers.NewVenueHandler(a.Venues, log)

	a.mux.Handle("GET /booking-venues", can(policy.ResourceVenue, gate.ActionList, vh.List))
	a.mux.Handle("POST /booking-venues", can(policy.ResourceVenue, gate.ActionCreate, vh.Create))
	a.mux.Handle("GET /booking-venues/{id}", can(policy.ResourceVenue, gate.ActionView, vh.Get))
	a.mux.Handle("PUT /booking-venues/{id}", can(policy.ResourceVenue, gate.ActionUpdate, vh.Update))
	a.mux.Handle("DELETE /booking-venues/{id}", can(policy.ResourceVenue, gate.ActionDelete, vh.Delete))
	a.mux.Handle("GET /booking-venues/{id}/bookings", can(policy.ResourceBooking, gate.ActionList, vh.Bookings))
	a.mux.Handle("GET /booking-venues/{id}/qrcode", can(policy.ResourceVenue, gate.ActionView, vh.QRCode))

	// ─────────────────────────────────────────────────────────────────────────
	// Bookings
	// ─────────────────────────────────────────────────────────────────────────
	bk := handlers.NewBookingHandler(a.Bookings, log)

	a.mux.HandleFunc("GET /bookings/public/venues", bk.PublicVenues)
	a.mux.HandleFunc("GET /bookings/public/venues/{id}", bk.PublicVenue)
	a.mux.HandleFunc("GET /bookings/public/venues/{id}/availability", bk.Availability)
	a.mux.HandleFunc("POST /bookings/public/venues/{id}/book", bk.Book)
	a.mux.HandleFunc("GET /bookings/public/reference/{ref}", bk.ByReference)

	a.mux.Handle("GET /bookings/admin", can(policy.ResourceBooking, gate.ActionList, bk.List))
	a.mux.Handle("GET /bookings/admin/{id}", can(policy.ResourceBooking, gate.ActionView, bk.Get))
	a.mux.Handle("PUT /bookings/admin/{id}/confirm", can(policy.ResourceBooking, gate.ActionTransition, bk.Confirm))
	a.mux.Handle("PUT /bookings/admin/{id}/cancel", can(policy.ResourceBooking, gate.ActionTransition, bk.Cancel))
	a.mux.Handle("PUT /bookings/admin/{id}/complete", can(policy.ResourceBooking, gate.ActionTransition, bk.Complete))
	a.mux.Handle("DELETE /bookings/admin/{id}", can(policy.ResourceBooking, gate.ActionDelete, bk.Delete))

	// ─────────────────────────────────────────────────────────────────────────
	// Settings (read is public, writes are admin only)
	// ─────────────────────────────────────────────────────────────────────────
	sh := handlers.NewSettingsHandler(a.Settings, log)

	a.mux.HandleFunc("GET /settings", sh.Get)
	a.mux.Handle("PUT /settings", admin(sh.Update))
	a.mux.Handle("POST /settings/initialize", admin(sh.Initialize))

	// ─────────────────────────────────────────────────────────────────────────
	// Team management
	// ─────────────────────────────────────────────────────────────────────────
	uh := handlers.NewAdminUserHandler(a.Users, log)

	a.mux.Handle("GET /admin/users", admin(uh.List))
	a.mux.Handle("POST /admin/users", admin(uh.Create))
	a.mux.Handle("PUT /admin/users/{id}/role", admin(uh.AssignRole))
}
