package middleware

import (
	"context"

	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
	"github.com/poltekatipdg/sipbmn-backend/pkg/types"
)

type contextKey string

const (
	ctxActor    contextKey = "actor"
	ctxAccessID contextKey = "access_id"
)

// ActorFromContext returns the authenticated actor, or the zero value when the
// request is unauthenticated.
func ActorFromContext(ctx context.Context) types.Actor {
	if ctx == nil {
		return types.Actor{}
	}
	if actor, ok := ctx.Value(ctxActor).(types.Actor); ok {
		return actor
	}
	return types.Actor{}
}

// AccessIDFromContext returns the jti of the access token behind the request.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// WithActor injects the actor into the context.
func WithActor(ctx context.Context, actor types.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// WithAccessID injects the access token identifier into the context.
func WithAccessID(ctx context.Context, accessID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAccessID, accessID)
}

// RoleFromContext returns the actor role as a string, empty when absent.
func RoleFromContext(ctx context.Context) string {
	actor := ActorFromContext(ctx)
	if actor.Role == enums.UserRole("") {
		return ""
	}
	return string(actor.Role)
}
