// Package context provides request-scoped values shared by handlers, services and repositories.
package context

import (
	"context"
	"slices"
)

// UserContext describes the authenticated administrator of the current request.
type UserContext struct {
	UserID      string
	Email       string
	Role        string
	Permissions []string
	SessionID   string
	IPAddress   string
	UserAgent   string
}

// IsSuperAdmin reports whether the user bypasses permission checks.
func (u *UserContext) IsSuperAdmin() bool {
	return u.Role == "super_admin"
}

// HasPermission reports whether the user holds perm.
func (u *UserContext) HasPermission(perm string) bool {
	return u.IsSuperAdmin() || slices.Contains(u.Permissions, perm)
}

type userContextKey struct{}

func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}
