// Package auth verifies access tokens issued by the hosted auth provider.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	domain "github.com/xenking/dream-snack/internal/domain/auth"
)

// RoleAdmin is the app_metadata role that grants dashboard access.
const RoleAdmin = "admin"

// Metadata is the user_metadata and app_metadata claim shape.
type Metadata struct {
	DisplayName string `json:"display_name,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	Role        string `json:"role,omitempty"`
}

// Claims is the access token payload.
type Claims struct {
	jwt.RegisteredClaims
	Email        string   `json:"email,omitempty"`
	UserMetadata Metadata `json:"user_metadata"`
	AppMetadata  Metadata `json:"app_metadata"`
}

// VerifierConfig configures a Verifier.
type VerifierConfig struct {
	// Secret is the HS256 signing key shared with the provider.
	Secret []byte
	// Audience, when set, must appear in the aud claim.
	Audience string
	// AdminEmails are granted admin regardless of role claims. Matching is
	// case-insensitive.
	AdminEmails []string
	// Leeway tolerates clock skew on exp and nbf.
	Leeway time.Duration
	// Now overrides the clock.
	Now func() time.Time
}

var _ domain.Authenticator = (*Verifier)(nil)

// Verifier validates HS256 access tokens.
type Verifier struct {
	secret []byte
	admins map[string]struct{}
	parser *jwt.Parser
}

// NewVerifier returns a Verifier. An empty secret is rejected.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("jwt secret is empty")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	if cfg.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(cfg.Now))
	}

	admins := make(map[string]struct{}, len(cfg.AdminEmails))
	for _, e := range cfg.AdminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			admins[e] = struct{}{}
		}
	}
	return &Verifier{
		secret: cfg.Secret,
		admins: admins,
		parser: jwt.NewParser(opts...),
	}, nil
}

// Authenticate verifies token and returns the identity it names.
func (v *Verifier) Authenticate(_ context.Context, token string) (*domain.Identity, error) {
	var c Claims
	_, err := v.parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, errors.Wrap(domain.ErrUnauthenticated, err.Error())
	}
	if c.Subject == "" {
		return nil, errors.Wrap(domain.ErrUnauthenticated, "token has no subject")
	}

	name := c.UserMetadata.DisplayName
	if name == "" {
		name = c.UserMetadata.FullName
	}
	return &domain.Identity{
		UserID:      c.Subject,
		Email:       c.Email,
		DisplayName: name,
		Admin:       v.isAdmin(&c),
	}, nil
}

func (v *Verifier) isAdmin(c *Claims) bool {
	if c.AppMetadata.Role == RoleAdmin {
		return true
	}
	_, ok := v.admins[strings.ToLower(c.Email)]
	return ok && c.Email != ""
}

// Sign issues a token for claims. It exists for tests and local tooling;
// production tokens come from the provider.
func Sign(secret []byte, c Claims) (string, error) {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return s, nil
}
