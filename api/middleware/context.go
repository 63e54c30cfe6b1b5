package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopcore-backend/pkg/enums"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

// Principal identifies the authenticated caller for downstream handlers.
type Principal struct {
	UserID uuid.UUID
	Role   enums.Role
}

// IsAdmin reports whether the caller holds the ADMIN role.
func (p Principal) IsAdmin() bool {
	return p.Role == enums.RoleAdmin
}

// WithPrincipal injects the caller identity into the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, p)
}

// PrincipalFromContext returns the caller identity, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(ctxPrincipal).(Principal)
	return p, ok && p.UserID != uuid.Nil
}
