package middleware

import (
	"context"
	"net/http"
	"strings"

	apiContext "filedrop/internal/api/context"
	"filedrop/internal/pkg/errors"
	"filedrop/internal/platform/auth"
	"filedrop/internal/platform/models"

	"github.com/rs/zerolog/log"
)

// ProfileProvisioner creates the profile row on first sight of an identity.
type ProfileProvisioner interface {
	EnsureProfile(ctx context.Context, id *auth.Identity) (*models.Profile, error)
}

type AuthMiddleware struct {
	provider auth.Provider
	profiles ProfileProvisioner
}

func NewAuthMiddleware(provider auth.Provider, profiles ProfileProvisioner) *AuthMiddleware {
	return &AuthMiddleware{provider: provider, profiles: profiles}
}

// Handle requires a valid bearer token and loads the caller's profile.
func (m *AuthMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Missing authorization header", nil)
			return
		}

		token, ok := bearer(authHeader)
		if !ok {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid authorization header format", nil)
			return
		}

		identity, err := m.provider.Authenticate(r.Context(), token)
		if err != nil {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid or expired token", nil)
			return
		}

		profile, err := m.profiles.EnsureProfile(r.Context(), identity)
		if err != nil {
			errors.WriteDomainError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.Identity, identity)
		ctx = context.WithValue(ctx, apiContext.Profile, profile)
		next(w, r.WithContext(ctx))
	}
}

// Optional attaches the identity when a valid token is sent and otherwise
// lets the request through anonymously.
func (m *AuthMiddleware) Optional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearer(r.Header.Get("Authorization"))
		if !ok {
			next(w, r)
			return
		}

		identity, err := m.provider.Authenticate(r.Context(), token)
		if err != nil {
			log.Debug().Err(err).Msg("ignoring invalid token on public route")
			next(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.Identity, identity)
		next(w, r.WithContext(ctx))
	}
}

func bearer(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// IdentityFrom returns the caller, or nil on anonymous requests.
func IdentityFrom(ctx context.Context) *auth.Identity {
	id, _ := ctx.Value(apiContext.Identity).(*auth.Identity)
	return id
}

func ProfileFrom(ctx context.Context) *models.Profile {
	p, _ := ctx.Value(apiContext.Profile).(*models.Profile)
	return p
}
