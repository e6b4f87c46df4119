package auth

import (
	"context"
	"errors"
)

// Actor is the authenticated admin identity threaded into every core call.
// The inventory core never reads ambient session state — handlers resolve the
// Actor once and pass it down explicitly.
type Actor struct {
	ID   string // admin identity recorded in audit entries
	Role string // raw role label; the domain layer normalizes it
}

// contextKey is an unexported type to prevent key collisions in context.
type contextKey string

const actorKey contextKey = "actor"

// ErrActorNotFound is returned when no Actor exists in the request context.
// Handlers should return 401 when this error occurs.
var ErrActorNotFound = errors.New("actor not found in context")

// ActorFromCtx extracts the authenticated actor from the request context.
// Returns ErrActorNotFound for unauthenticated requests.
func ActorFromCtx(ctx context.Context) (Actor, error) {
	actor, ok := ctx.Value(actorKey).(Actor)
	if !ok || actor.ID == "" {
		return Actor{}, ErrActorNotFound
	}
	return actor, nil
}

// WithActor returns a new context with the given actor attached.
// Used by authentication middleware after validating the session.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}
