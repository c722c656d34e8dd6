// Package auth carries the authenticated caller through a request context.
// Every shopping-list operation is scoped to AuthContext.HouseholdID.
package auth

import "context"

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// SessionCookieName is the cookie holding the session token.
const SessionCookieName = "larder_session"

type contextKey struct{}

type AuthContext struct {
	UserID      int64
	HouseholdID int64
	Role        string
	SessionID   int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

// HouseholdID returns the caller's household, or 0 when the context is
// unauthenticated. 0 never matches a stored household.
func HouseholdID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.HouseholdID
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

func IsAdmin(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.Role == RoleAdmin
}

// ValidRole reports whether role is one a household member may hold.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleMember
}
