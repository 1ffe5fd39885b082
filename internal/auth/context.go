package auth

import (
	"context"

	"github.com/hongminglow/flous-cash-be/internal/models"
)

type identityKey struct{}

// Identity is the authenticated caller attached to a request.
type Identity struct {
	User   models.User
	Token  string
	Claims Claims
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored by the authentication middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
