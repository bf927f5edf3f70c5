package security

import (
	"context"
	"errors"
)

// ErrUnauthorized is returned by admin-gated operations invoked without a verified session.
var ErrUnauthorized = errors.New("unauthorized")

type adminContextKey struct{}

// WithAdmin marks ctx as carrying a verified admin session.
func WithAdmin(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, adminContextKey{}, true)
}

// IsAdmin reports whether ctx carries a verified admin session.
func IsAdmin(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	flag, ok := ctx.Value(adminContextKey{}).(bool)
	return ok && flag
}

// RequireAdmin returns ErrUnauthorized unless ctx carries a verified admin session.
func RequireAdmin(ctx context.Context) error {
	if !IsAdmin(ctx) {
		return ErrUnauthorized
	}
	return nil
}
