package policy

import (
	"context"

	"github.com/diewo77/go-eventdesk/gate"
)

// Ownable is implemented by resources that have an owning user.
type Ownable interface {
	GetUserID() uint
}

// OwnershipPolicy allows an action only when the caller owns the resource.
type OwnershipPolicy struct{}

func NewOwnershipPolicy() *OwnershipPolicy {
	return &OwnershipPolicy{}
}

// Can allows list/create (nil resource) and otherwise compares owners.
// Resources that are not Ownable are denied.
func (p *OwnershipPolicy) Can(_ context.Context, userID uint, _ gate.Action, resource any) bool {
	if resource == nil {
		return true
	}
	ownable, ok := resource.(Ownable)
	if !ok {
		return false
	}
	owner := ownable.GetUserID()
	return owner != 0 && owner == userID
}
