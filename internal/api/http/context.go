package http

import (
	"context"

	"motorent-backend/internal/security"
)

type claimsKey struct{}

func withClaims(ctx context.Context, claims *security.StaffClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// StaffFromContext returns the authenticated staff claims, or nil on public routes.
func StaffFromContext(ctx context.Context) *security.StaffClaims {
	claims, _ := ctx.Value(claimsKey{}).(*security.StaffClaims)
	return claims
}
