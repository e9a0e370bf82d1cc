package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/dream-snack/internal/domain/auth"
)

// bearerToken extracts the session token. Browsers cannot set headers on
// websocket handshakes, so upgrades may pass it as the access_token query
// parameter instead.
func bearerToken(r *http.Request) string {
	if v := r.Header.Get("Authorization"); v != "" {
		scheme, token, ok := strings.Cut(v, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

func (h *Handler) authenticate(r *http.Request) (*auth.Identity, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, auth.ErrUnauthenticated
	}
	id, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		return nil, err
	}
	return id, nil
}

// user wraps next with session authentication.
func (h *Handler) user(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := h.authenticate(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		ctx := auth.WithIdentity(r.Context(), id)
		ctx = zctx.With(ctx, zap.String("user_id", id.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// admin wraps next with session authentication and the admin role check.
func (h *Handler) admin(next http.HandlerFunc) http.Handler {
	return h.user(func(w http.ResponseWriter, r *http.Request) {
		if id := identity(r); !id.Admin {
			zctx.From(r.Context()).Warn("Admin access denied", zap.String("email", id.Email))
			h.fail(w, r, auth.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// identity returns the caller set by user. It panics on routes that were
// not wrapped, which is a registration bug.
func identity(r *http.Request) *auth.Identity {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		panic(errors.New("handler: route registered without authentication"))
	}
	return id
}
