package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/supabase-community/gotrue-go"
)

// GoTrueProvider asks the auth server for the user behind a token, so revoked
// sessions are rejected even while their JWT is unexpired.
type GoTrueProvider struct {
	client gotrue.Client
	local  *TokenService
}

func NewGoTrueProvider(projectURL, apiKey string, local *TokenService) *GoTrueProvider {
	projectRef := extractProjectRef(projectURL)
	log.Info().Str("project_ref", projectRef).Msg("initializing gotrue client")

	client := gotrue.New(projectRef, apiKey)
	if strings.HasPrefix(projectURL, "http://") || strings.Contains(projectURL, "localhost") {
		client = client.WithCustomGoTrueURL(strings.TrimRight(projectURL, "/") + "/auth/v1")
	}
	return &GoTrueProvider{client: client, local: local}
}

func (p *GoTrueProvider) Authenticate(ctx context.Context, token string) (*Identity, error) {
	// cheap local rejection before the network round trip
	if p.local != nil {
		if _, err := p.local.ValidateToken(token); err != nil {
			return nil, err
		}
	}

	user, err := p.client.WithToken(token).GetUser()
	if err != nil {
		return nil, fmt.Errorf("gotrue get user: %w", err)
	}
	return &Identity{UserID: user.ID.String(), Email: user.Email}, nil
}

// extractProjectRef turns "https://abcd.supabase.co" into "abcd".
func extractProjectRef(url string) string {
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	return strings.Split(url, ".")[0]
}
