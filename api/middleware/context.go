package middleware

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/travelmarket/tourism-backend/internal/stock"
)

type contextKey string

const (
	ctxRequestID contextKey = "request_id"
	ctxUserID    contextKey = "user_id"
	ctxSessionID contextKey = "session_id"
)

const (
	userIDHeader    = "X-User-Id"
	sessionIDHeader = "X-Session-Id"
)

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRequestID).(string); ok {
		return v
	}
	return ""
}

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSessionID).(string); ok {
		return v
	}
	return ""
}

// WithRequestID injects the request identifier into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRequestID, requestID)
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithSessionID injects the session identifier into the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSessionID, sessionID)
}

// ActorFromContext assembles the audit actor for the current request. A user
// id that is not a UUID is dropped rather than failing the request.
func ActorFromContext(ctx context.Context) stock.Actor {
	actor := stock.Actor{
		SessionID: SessionIDFromContext(ctx),
		RequestID: RequestIDFromContext(ctx),
	}
	if raw := strings.TrimSpace(UserIDFromContext(ctx)); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			actor.UserID = &id
		}
	}
	return actor
}
