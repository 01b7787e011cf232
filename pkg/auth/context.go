package auth

import (
	"context"
	"errors"
)

// RoleSystem marks trusted automation that may perform unconditional,
// last-writer-wins document writes.
const RoleSystem = "storymap:system"

type contextKey string

const userContextKey contextKey = "auth_user"

// ErrNoUserInContext is returned when no authenticated user is attached to
// the request context.
var ErrNoUserInContext = errors.New("no user in context")

// UserContext carries the authenticated user through a request
type UserContext struct {
	UserID string
	Email  string
	Roles  []string
}

// HasRole checks whether the user carries a role
func (u *UserContext) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsSystem reports whether the user is trusted automation
func (u *UserContext) IsSystem() bool {
	return u.HasRole(RoleSystem)
}

// SetUserInContext attaches the authenticated user to a context
func SetUserInContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetUserFromContext extracts the authenticated user from a context
func GetUserFromContext(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	if !ok || user == nil {
		return nil, ErrNoUserInContext
	}
	return user, nil
}
