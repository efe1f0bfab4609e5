// Package context carries request-scoped identity and tracing data.
package context

import (
	"context"
)

// User identifies the acting operator for audit and logging.
type User struct {
	UserID   string
	Email    string
	FullName string
	Roles    []string
}

type userKey struct{}

// WithUser stores the acting user in context.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// GetUser returns the acting user from context, or nil.
func GetUser(ctx context.Context) *User {
	if u, ok := ctx.Value(userKey{}).(*User); ok {
		return u
	}
	return nil
}

// ActorID returns the acting user's ID or "system" when no user is attached
// (migrations, background jobs).
func ActorID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil && u.UserID != "" {
		return u.UserID
	}
	return "system"
}
