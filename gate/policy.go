package gate

import "context"

// Policy defines authorization rules for one resource type.
type Policy[U any] interface {
	// Can reports whether user may perform action on resource.
	// For list/create the resource is nil.
	Can(ctx context.Context, user U, action Action, resource any) bool
}
