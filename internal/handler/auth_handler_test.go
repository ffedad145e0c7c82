package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/founder-dashboard/internal/domain"
	"github.com/arturoeanton/founder-dashboard/internal/middleware"
	"github.com/arturoeanton/founder-dashboard/internal/port"
	"github.com/arturoeanton/founder-dashboard/internal/service"
)

type fakeAuth struct {
	signUpErr   error
	signInErr   error
	callbackErr error
	gotCode     string
	signedOut   string
}

func (f *fakeAuth) SignUp(ctx context.Context, in service.SignUpInput) (*domain.User, error) {
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return &domain.User{ID: "u1", Email: service.NormalizeEmail(in.Email), Name: in.Name, PasswordHash: "hash"}, nil
}

func (f *fakeAuth) SignIn(ctx context.Context, in service.SignInInput) (*service.AuthResult, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &service.AuthResult{
		Token:     "jwt-token",
		ExpiresAt: time.Now().Add(time.Hour),
		User:      &domain.User{ID: "u1", Email: in.Email},
	}, nil
}

func (f *fakeAuth) Providers() []string { return []string{"github", "google"} }

func (f *fakeAuth) GetAuthURL(provider, state string) (string, error) {
	if provider != "google" {
		return "", port.ErrUnknownProvider
	}
	return "https://accounts.example.com/o/oauth2/auth?state=" + state, nil
}

func (f *fakeAuth) HandleCallback(ctx context.Context, provider, code string) (*service.AuthResult, error) {
	f.gotCode = code
	if f.callbackErr != nil {
		return nil, f.callbackErr
	}
	return &service.AuthResult{
		Token:     "oauth-jwt",
		ExpiresAt: time.Now().Add(time.Hour),
		User:      &domain.User{ID: "u2", Name: "Grace Hopper"},
	}, nil
}

func (f *fakeAuth) SignOut(ctx context.Context, uc *domain.UserContext) error {
	f.signedOut = uc.SessionToken
	return nil
}

// fakeRequireAuth stands in for the JWT middleware.
func fakeRequireAuth(c fiber.Ctx) error {
	if c.Get("Authorization") == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "code": "UNAUTHORIZED"})
	}
	c.Locals("user", &domain.UserContext{UserID: "u1", Email: "ada@example.com", SessionToken: "sess-1"})
	return c.Next()
}

func newAuthApp(auth *fakeAuth) *fiber.App {
	app := fiber.New()
	NewAuthHandler(auth, "http://frontend.test", false).Register(app.Group("/api"), fakeRequireAuth)
	return app
}

func cookieNamed(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSignUp(t *testing.T) {
	app := newAuthApp(&fakeAuth{})

	resp, body := postJSON(t, app, "/api/auth/signup",
		`{"name":"Ada","email":"Ada@Example.com","password":"secret1","confirmPassword":"secret1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	user := body["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
	assert.NotContains(t, user, "PasswordHash")
	assert.NotContains(t, user, "password_hash")
}

func TestSignUp_ErrorCodes(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
		code   string
	}{
		"duplicate": {port.ErrEmailExists, http.StatusConflict, "EMAIL_EXISTS"},
		"invalid": {
			&port.ValidationError{Fields: map[string]string{"password": "must be at least 6 characters"}},
			http.StatusBadRequest, "VALIDATION_ERROR",
		},
		"store down": {context.DeadlineExceeded, http.StatusGatewayTimeout, "TIMEOUT"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			app := newAuthApp(&fakeAuth{signUpErr: tc.err})
			resp, body := postJSON(t, app, "/api/auth/signup", `{"email":"a@b.co","password":"x","confirmPassword":"x"}`)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestSignIn_SetsSessionCookie(t *testing.T) {
	app := newAuthApp(&fakeAuth{})

	resp, body := postJSON(t, app, "/api/auth/signin", `{"email":"ada@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "jwt-token", body["token"])

	c := cookieNamed(resp, middleware.SessionCookie)
	require.NotNil(t, c)
	assert.Equal(t, "jwt-token", c.Value)
	assert.True(t, c.HttpOnly)
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	app := newAuthApp(&fakeAuth{signInErr: port.ErrInvalidCredentials})

	resp, body := postJSON(t, app, "/api/auth/signin", `{"email":"ada@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_CREDENTIALS", body["code"])
	assert.Nil(t, cookieNamed(resp, middleware.SessionCookie))
}

func TestSessionAndSignOut(t *testing.T) {
	auth := &fakeAuth{}
	app := newAuthApp(auth)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.Header.Set("Authorization", "Bearer x")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		User domain.UserContext `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "u1", body.User.UserID)

	req = httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil)
	req.Header.Set("Authorization", "Bearer x")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "sess-1", auth.signedOut)
}

func TestOAuthLogin_RedirectsWithState(t *testing.T) {
	app := newAuthApp(&fakeAuth{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/google/login", nil))
	require.NoError(t, err)
	require.GreaterOrEqual(t, resp.StatusCode, 300)
	require.Less(t, resp.StatusCode, 400)

	state := cookieNamed(resp, stateCookie)
	require.NotNil(t, state)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, state.Value, loc.Query().Get("state"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/myspace/login", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOAuthCallback(t *testing.T) {
	callback := func(app *fiber.App, query, state string) *http.Response {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?"+query, nil)
		if state != "" {
			req.AddCookie(&http.Cookie{Name: stateCookie, Value: state})
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	t.Run("success", func(t *testing.T) {
		auth := &fakeAuth{}
		resp := callback(newAuthApp(auth), "code=abc&state=s1", "s1")

		loc := resp.Header.Get("Location")
		assert.True(t, strings.HasPrefix(loc, "http://frontend.test/auth/callback?"), loc)
		u, err := url.Parse(loc)
		require.NoError(t, err)
		assert.Equal(t, "oauth-jwt", u.Query().Get("token"))
		assert.Equal(t, "Grace Hopper", u.Query().Get("name"))
		assert.Equal(t, "abc", auth.gotCode)
		assert.NotNil(t, cookieNamed(resp, middleware.SessionCookie))
	})

	t.Run("state mismatch", func(t *testing.T) {
		auth := &fakeAuth{}
		resp := callback(newAuthApp(auth), "code=abc&state=s1", "other")
		assert.Contains(t, resp.Header.Get("Location"), "/auth/error?error=invalid_state")
		assert.Empty(t, auth.gotCode)
	})

	t.Run("provider error", func(t *testing.T) {
		resp := callback(newAuthApp(&fakeAuth{}), "error=access_denied", "")
		assert.Contains(t, resp.Header.Get("Location"), "error=access_denied")
	})

	t.Run("exchange failure", func(t *testing.T) {
		resp := callback(newAuthApp(&fakeAuth{callbackErr: port.ErrUnknownProvider}), "code=abc&state=s1", "s1")
		assert.Contains(t, resp.Header.Get("Location"), "error=callback_failed")
	})
}

func TestListProviders(t *testing.T) {
	app := newAuthApp(&fakeAuth{})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/providers", nil))
	require.NoError(t, err)

	var body map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"github", "google"}, body["providers"])
}
