// Package auth obtains and holds the portal session cookie. A Session is
// built with one explicit credential strategy (direct token, password login,
// or a persisted credentials file) and exposes the current cookie for
// outbound requests. The cookie is set once and read-only afterwards; Reset
// clears it.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/icos-carbon-portal/cpclient/cperr"
	"github.com/icos-carbon-portal/cpclient/internal/portalhttp"
)

const (
	loginPath  = "/password/login"
	whoamiPath = "/whoami"

	// CookieName is the portal's session cookie name.
	CookieName = "cpauthToken"
)

// ClientConfig holds configuration for a Session.
type ClientConfig struct {
	// PortalHost is the authentication host (login, whoami).
	PortalHost string

	// HTTPClient is the HTTP client to use. If nil, a default resilient
	// client is created.
	HTTPClient portalhttp.Doer

	// Timeout for individual requests (default 10s).
	Timeout time.Duration

	// Logger for auth events.
	Logger zerolog.Logger
}

func (cfg *ClientConfig) withDefaults() {
	if cfg.PortalHost == "" {
		cfg.PortalHost = "https://cpauth.icos-cp.eu"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = portalhttp.New(portalhttp.ClientConfig{
			Name:    "cpauth",
			Timeout: cfg.Timeout,
			Logger:  cfg.Logger,
		})
	}
}

// Session holds the portal credential. It is safe for concurrent reads once
// the cookie has been obtained.
type Session struct {
	cfg        ClientConfig
	httpClient portalhttp.Doer
	logger     zerolog.Logger

	mu       sync.RWMutex
	cookie   string
	username string
	password string
}

// FromToken builds a Session from an already-issued cookie string. Both the
// bare token value and the full "cpauthToken=..." form are accepted.
func FromToken(token string, cfg ClientConfig) (*Session, error) {
	cfg.withDefaults()
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, cperr.NewAuthError("missing")
	}
	if !strings.HasPrefix(token, CookieName+"=") {
		token = CookieName + "=" + token
	}
	return &Session{
		cfg:        cfg,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
		cookie:     token,
	}, nil
}

// FromPassword builds a Session that logs in with the given account on first
// cookie use.
func FromPassword(username, password string, cfg ClientConfig) (*Session, error) {
	cfg.withDefaults()
	if username == "" || password == "" {
		return nil, cperr.NewAuthError("missing")
	}
	return &Session{
		cfg:        cfg,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
		username:   username,
		password:   password,
	}, nil
}

// Cookie returns the current session cookie, logging in first when the
// Session was built from a password. It fails with an AuthError when no
// credentials are available.
func (s *Session) Cookie(ctx context.Context) (string, error) {
	s.mu.RLock()
	cookie := s.cookie
	s.mu.RUnlock()
	if cookie != "" {
		return cookie, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cookie != "" {
		return s.cookie, nil
	}
	if s.username == "" || s.password == "" {
		return "", cperr.NewAuthError("missing")
	}

	cookie, err := s.login(ctx)
	if err != nil {
		return "", err
	}
	s.cookie = cookie
	s.logger.Info().Str("user", s.username).Msg("portal login succeeded")
	return cookie, nil
}

// login posts the account to the password endpoint and harvests the session
// cookie from Set-Cookie.
func (s *Session) login(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("mail", s.username)
	form.Set("password", s.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.PortalHost+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if err := portalhttp.CheckResponse(resp); err != nil {
		return "", err
	}
	defer resp.Body.Close()

	for _, c := range resp.Cookies() {
		if c.Name == CookieName && c.Value != "" {
			return CookieName + "=" + c.Value, nil
		}
	}
	return "", cperr.NewAuthError("invalid")
}

// Validate probes the whoami endpoint with the current cookie. A 200
// confirms validity; a 401 maps to an expired or invalid AuthError.
func (s *Session) Validate(ctx context.Context) error {
	cookie, err := s.Cookie(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.cfg.PortalHost+whoamiPath, nil)
	if err != nil {
		return fmt.Errorf("create whoami request: %w", err)
	}
	req.Header.Set("Cookie", cookie)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whoami: %w", err)
	}
	if err := portalhttp.CheckResponse(resp); err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Reset clears the cached cookie. A password-built Session will log in again
// on the next Cookie call.
func (s *Session) Reset() {
	s.mu.Lock()
	s.cookie = ""
	s.mu.Unlock()
}
