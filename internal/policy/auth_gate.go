package policy

import (
	"context"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-eventdesk/auth"
	"github.com/diewo77/go-eventdesk/gate"
	"github.com/diewo77/go-eventdesk/httpx"
)

// AuthGate is the single authorization point: role permissions first,
// then resource ownership.
type AuthGate struct {
	Gate          *gate.HybridGate[uint]
	CacheResolver *gate.CachedResolver[uint]
}

// NewAuthGate builds a gate backed by the users table, with ownership
// policies for polls, venues and bookings.
func NewAuthGate(db *gorm.DB, cacheTTL time.Duration) *AuthGate {
	cached := gate.NewCachedResolver[uint](NewRoleResolver(db), cacheTTL)
	hybrid := gate.NewHybridGate[uint](cached)

	ownership := NewOwnershipPolicy()
	hybrid.Register(ResourcePoll, ownership)
	hybrid.Register(ResourceVenue, ownership)
	hybrid.Register(ResourceBooking, ownership)
	hybrid.Register(ResourceAccount, ownership)

	return &AuthGate{Gate: hybrid, CacheResolver: cached}
}

// Authorize checks whether userID may perform action on resource.
// It returns nil, gate.ErrUnauthenticated or gate.ErrForbidden.
func (ag *AuthGate) Authorize(ctx context.Context, userID uint, action gate.Action, resourceType string, resource any) error {
	return ag.Gate.Authorize(ctx, userID, action, resourceType, resource)
}

// InvalidateUser drops the cached role of one user.
func (ag *AuthGate) InvalidateUser(userID uint) {
	ag.CacheResolver.Invalidate(userID)
}

// RequirePermission returns middleware that checks the caller's role
// grants resourceType:action.
func (ag *AuthGate) RequirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			if !ag.Gate.CanProfile(r.Context(), userID, action, resourceType) {
				httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin only lets callers with the superadmin permission through.
func (ag *AuthGate) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			profile, err := ag.CacheResolver.Resolve(r.Context(), userID)
			if err != nil || profile == nil || !profile.HasPermission(gate.PermissionSuperAdmin) {
				httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
