package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
)

const (
	githubProfileURL = "https://api.github.com/user"
	githubEmailsURL  = "https://api.github.com/user/emails"
)

// GitHubProvider implements port.AuthProvider for GitHub OAuth.
type GitHubProvider struct {
	cfg        *oauth2.Config
	profileURL string
	emailsURL  string
}

// NewGitHubProvider creates a new GitHub OAuth provider.
func NewGitHubProvider(clientID, clientSecret, redirectURL string) *GitHubProvider {
	return &GitHubProvider{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		profileURL: githubProfileURL,
		emailsURL:  githubEmailsURL,
	}
}

// ProviderName returns "github".
func (g *GitHubProvider) ProviderName() string {
	return domain.ProviderGitHub
}

// AuthURL returns the GitHub consent screen URL.
func (g *GitHubProvider) AuthURL(state string) string {
	return g.cfg.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for tokens.
func (g *GitHubProvider) ExchangeCode(ctx context.Context, code string) (*domain.TokenPair, error) {
	pair, err := exchange(ctx, g.cfg, code)
	if err != nil {
		return nil, fmt.Errorf("github: token exchange: %w", err)
	}
	return pair, nil
}

// GetUserProfile fetches the GitHub profile. The email is always taken from
// the verified addresses of the account: the public email when it is one of
// them, else the primary verified address.
func (g *GitHubProvider) GetUserProfile(ctx context.Context, accessToken string) (*domain.OAuthProfile, error) {
	var profile struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, g.cfg, accessToken, g.profileURL, &profile); err != nil {
		return nil, fmt.Errorf("github: fetch profile: %w", err)
	}

	email, err := g.verifiedEmail(ctx, accessToken, profile.Email)
	if err != nil {
		return nil, fmt.Errorf("github: %w", err)
	}

	name := profile.Name
	if name == "" {
		name = profile.Login
	}

	return &domain.OAuthProfile{
		ProviderAccountID: strconv.FormatInt(profile.ID, 10),
		Email:             email,
		Name:              name,
		ImageURL:          profile.AvatarURL,
		EmailVerified:     true,
	}, nil
}

func (g *GitHubProvider) verifiedEmail(ctx context.Context, accessToken, public string) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, g.cfg, accessToken, g.emailsURL, &emails); err != nil {
		return "", fmt.Errorf("fetch emails: %w", err)
	}

	primary, first := "", ""
	for _, e := range emails {
		if !e.Verified {
			continue
		}
		if public != "" && strings.EqualFold(e.Email, public) {
			return e.Email, nil
		}
		if e.Primary && primary == "" {
			primary = e.Email
		}
		if first == "" {
			first = e.Email
		}
	}
	if primary != "" {
		return primary, nil
	}
	if first != "" {
		return first, nil
	}
	return "", errors.New("no verified email on the account")
}
