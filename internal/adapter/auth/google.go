package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
)

const googleProfileURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleProvider implements port.AuthProvider for Google OAuth2.
type GoogleProvider struct {
	cfg        *oauth2.Config
	profileURL string
}

// NewGoogleProvider creates a new Google OAuth2 provider.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		profileURL: googleProfileURL,
	}
}

// ProviderName returns "google".
func (g *GoogleProvider) ProviderName() string {
	return domain.ProviderGoogle
}

// AuthURL returns the Google consent screen URL.
func (g *GoogleProvider) AuthURL(state string) string {
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// ExchangeCode exchanges an authorization code for tokens.
func (g *GoogleProvider) ExchangeCode(ctx context.Context, code string) (*domain.TokenPair, error) {
	pair, err := exchange(ctx, g.cfg, code)
	if err != nil {
		return nil, fmt.Errorf("google: token exchange: %w", err)
	}
	return pair, nil
}

// GetUserProfile fetches the Google userinfo for an access token.
func (g *GoogleProvider) GetUserProfile(ctx context.Context, accessToken string) (*domain.OAuthProfile, error) {
	var profile struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := getJSON(ctx, g.cfg, accessToken, g.profileURL, &profile); err != nil {
		return nil, fmt.Errorf("google: fetch profile: %w", err)
	}
	if profile.ID == "" || profile.Email == "" {
		return nil, fmt.Errorf("google: profile is missing id or email")
	}

	return &domain.OAuthProfile{
		ProviderAccountID: profile.ID,
		Email:             profile.Email,
		Name:              profile.Name,
		ImageURL:          profile.Picture,
		EmailVerified:     profile.VerifiedEmail,
	}, nil
}
