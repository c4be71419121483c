package api

import (
	"context"
	"time"

	"github.com/cleanpath/cleanpath-api/models"
)

// QueryTimeout bounds every datastore call made by a handler. main overrides
// it from the config.
var QueryTimeout = 10 * time.Second

type contextKey int

const (
	actorKey contextKey = iota
	requestIDKey
)

// WithQueryTimeout creates a context with query timeout
func WithQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}

// WithActor stores the authenticated caller on the context
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom returns the authenticated caller, or the zero Actor when the
// request was not authenticated
func ActorFrom(ctx context.Context) models.Actor {
	actor, _ := ctx.Value(actorKey).(models.Actor)
	return actor
}

// RequestIDFrom returns the id LoggingMiddleware assigned to the request
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
