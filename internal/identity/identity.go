package identity

import (
	"context"
	"errors"
)

// Roles recognized by the platform. The identity provider assigns them; this
// service only consumes them.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	// ErrUnauthenticated is returned when no actor is attached to the request.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrAdminRequired is returned when a non-admin actor calls an admin operation.
	ErrAdminRequired = errors.New("admin access required")
)

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   int64
	Role string
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

type contextKey struct{}

// WithActor attaches an actor to the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

// ActorFromContext returns the actor attached to the context, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(contextKey{}).(Actor)
	return actor, ok
}
