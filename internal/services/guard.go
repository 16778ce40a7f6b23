package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/go-eventdesk/gate"
)

// Authorizer decides whether a caller may act on a resource.
// *policy.AuthGate is the production implementation.
type Authorizer interface {
	Authorize(ctx context.Context, userID uint, action gate.Action, resourceType string, resource any) error
}

// Clock returns the current time. Services store times in UTC.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// authorize translates gate errors into service errors. It must run after
// the resource has been loaded so that a missing resource answers 404
// before a foreign one answers 403.
func authorize(ctx context.Context, a Authorizer, caller uint, action gate.Action, resourceType string, resource any) error {
	err := a.Authorize(ctx, caller, action, resourceType, resource)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gate.ErrUnauthenticated):
		return ErrUnauthorized
	case errors.Is(err, gate.ErrForbidden):
		return ErrForbidden
	default:
		return fmt.Errorf("authorize %s:%s: %w", resourceType, action, err)
	}
}
