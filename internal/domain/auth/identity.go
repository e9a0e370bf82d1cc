// Package auth describes the signed-in user as established by the external
// identity provider.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	// ErrUnauthenticated is returned when no valid session is presented.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the session lacks the admin role.
	ErrForbidden = errors.New("admin access required")
)

// Identity is the authenticated user of a request.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
	Admin       bool
}

// Name returns the display name, falling back to the email address.
func (i *Identity) Name() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Email
}

// Authenticator turns a bearer token into an Identity. Invalid or expired
// tokens yield ErrUnauthenticated.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Identity, error)
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
