package middleware

import (
	"context"

	"github.com/angelmondragon/asarum-backend/pkg/enums"
)

type ctxKey int

const (
	adminKey ctxKey = iota
	cartSessionKey
)

// Admin is the back-office identity Auth resolved from a bearer token.
type Admin struct {
	Username string
	Role     enums.Role
}

// Authorized reports whether a may use admin routes.
func (a Admin) Authorized() bool {
	return a.Username != "" && a.Role == enums.RoleAdmin
}

func WithAdmin(ctx context.Context, admin Admin) context.Context {
	return context.WithValue(ctx, adminKey, admin)
}

// AdminFrom returns the zero Admin on routes Auth does not guard.
func AdminFrom(ctx context.Context) Admin {
	admin, _ := ctx.Value(adminKey).(Admin)
	return admin
}

func WithCartSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, cartSessionKey, sessionID)
}

// CartSessionFrom returns the cart session CartSession attached, or "".
func CartSessionFrom(ctx context.Context) string {
	id, _ := ctx.Value(cartSessionKey).(string)
	return id
}
