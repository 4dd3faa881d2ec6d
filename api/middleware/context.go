package middleware

import (
	"context"

	"github.com/angelmondragon/giftledger-backend/internal/access"
)

type contextKey string

const (
	ctxSubject  contextKey = "subject"
	ctxAccessID contextKey = "access_id"
)

// SubjectFromContext returns the authenticated caller set by Auth.
func SubjectFromContext(ctx context.Context) (access.Subject, bool) {
	if ctx == nil {
		return access.Subject{}, false
	}
	subject, ok := ctx.Value(ctxSubject).(access.Subject)
	return subject, ok
}

// AccessIDFromContext returns the token id (jti) of the current session.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// WithSubject injects the caller into the context; handlers under test use it
// to skip token parsing.
func WithSubject(ctx context.Context, subject access.Subject) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSubject, subject)
}

func withAccessID(ctx context.Context, accessID string) context.Context {
	return context.WithValue(ctx, ctxAccessID, accessID)
}
