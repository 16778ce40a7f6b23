// Package gate is a small profile and policy authorization toolkit.
//
// A HybridGate checks a profile (role permissions) first and then the
// policy registered for the resource type. The package is generic over the
// subject type and has no knowledge of domain models.
package gate

import "context"

// HybridGate combines profile permissions with resource policies.
//
//  1. the subject must be non-zero
//  2. its profile must grant resource:action
//  3. when a policy is registered and a resource is given, the policy must allow it
type HybridGate[U comparable] struct {
	resolver ProfileResolver[U]
	policies map[string]Policy[U]
}

// NewHybridGate creates a hybrid gate backed by resolver.
func NewHybridGate[U comparable](resolver ProfileResolver[U]) *HybridGate[U] {
	return &HybridGate[U]{resolver: resolver, policies: make(map[string]Policy[U])}
}

// Register adds a resource policy.
func (g *HybridGate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

// Authorize runs the profile check then the resource policy.
func (g *HybridGate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	if !g.CanProfile(ctx, user, action, resourceType) {
		var zero U
		if user == zero {
			return ErrUnauthenticated
		}
		return ErrForbidden
	}
	if resource == nil {
		return nil
	}
	if policy, ok := g.policies[resourceType]; ok && !policy.Can(ctx, user, action, resource) {
		return ErrForbidden
	}
	return nil
}

// Can reports whether Authorize would succeed.
func (g *HybridGate[U]) Can(ctx context.Context, user U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, user, action, resourceType, resource) == nil
}

// CanProfile checks only the profile permission.
func (g *HybridGate[U]) CanProfile(ctx context.Context, user U, action Action, resourceType string) bool {
	var zero U
	if user == zero {
		return false
	}
	profile, err := g.resolver.Resolve(ctx, user)
	if err != nil || profile == nil {
		return false
	}
	return profile.HasPermission(NewPermission(resourceType, action))
}
