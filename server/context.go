package server

import (
	"context"

	"github.com/GoCodeAlone/wpadmin/config"
)

type contextKey int

const (
	ctxKeyUser contextKey = iota
	ctxKeyRequestID
)

func contextWithUser(ctx context.Context, user config.UserConfig) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}

// UserFromContext returns the signed-in user attached by the auth middleware.
func UserFromContext(ctx context.Context) (config.UserConfig, bool) {
	u, ok := ctx.Value(ctxKeyUser).(config.UserConfig)
	return u, ok
}

func contextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestIDFromContext returns the request ID, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}
