package gate_test

import (
	"context"

	"github.com/diewo77/go-eventdesk/gate"
)

// staticResolver maps subjects to profiles in memory.
type staticResolver map[uint]gate.Profile

func (r staticResolver) Resolve(_ context.Context, user uint) (gate.Profile, error) {
	return r[user], nil
}

// ownerPolicy allows an action when the resource belongs to the caller.
type ownerPolicy struct{}

type ownedThing struct{ owner uint }

func (ownerPolicy) Can(_ context.Context, user uint, _ gate.Action, resource any) bool {
	th, ok := resource.(*ownedThing)
	return ok && th.owner == user
}
