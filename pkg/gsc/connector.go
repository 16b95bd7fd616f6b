// Package gsc connects a user's Google Search Console account: it builds the
// consent URL, checks the returned state and exchanges the code for a token.
package gsc

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Sternrassler/seo-insights/pkg/logging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// ScopeReadOnly grants read access to Search Console data.
const ScopeReadOnly = "https://www.googleapis.com/auth/webmasters.readonly"

// CallbackPath is appended to the page origin to form the redirect URL.
const CallbackPath = "/google-search-console/callback"

// Endpoint is Google's OAuth 2.0 endpoint.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

var (
	// ErrInvalidOrigin is returned for origins that are not absolute http(s) URLs
	// or not in the allowed list.
	ErrInvalidOrigin = errors.New("invalid origin")

	// ErrInvalidState is returned when the callback state is unknown or already used.
	ErrInvalidState = errors.New("invalid or expired state")

	// ErrMissingCode is returned when the callback carries no authorization code.
	ErrMissingCode = errors.New("authorization code is required")
)

// Config holds connector configuration.
type Config struct {
	ClientID     string
	ClientSecret string

	// AllowedOrigins restricts redirect origins. Empty allows any http(s) origin.
	AllowedOrigins []string

	// StateTTL bounds how long a consent URL stays usable.
	StateTTL time.Duration

	// Endpoint defaults to Google's.
	Endpoint oauth2.Endpoint
}

// DefaultConfig returns a configuration for the given OAuth client.
func DefaultConfig(clientID, clientSecret string) Config {
	return Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		StateTTL:     10 * time.Minute,
		Endpoint:     Endpoint,
	}
}

// Connector runs the Search Console OAuth flow.
type Connector struct {
	oauth   oauth2.Config
	config  Config
	states  StateStore
	logger  zerolog.Logger
	allowed map[string]bool
}

// NewConnector creates a connector that keeps pending states in states.
func NewConnector(cfg Config, states StateStore) (*Connector, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("google client id is required")
	}
	if states == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = 10 * time.Minute
	}
	if cfg.Endpoint.AuthURL == "" {
		cfg.Endpoint = Endpoint
	}

	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[strings.TrimRight(o, "/")] = true
	}

	return &Connector{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     cfg.Endpoint,
			Scopes:       []string{ScopeReadOnly},
		},
		config:  cfg,
		states:  states,
		logger:  logging.NewLogger("gsc"),
		allowed: allowed,
	}, nil
}

// RedirectURL returns the callback URL for origin.
func (c *Connector) RedirectURL(origin string) (string, error) {
	origin, err := c.checkOrigin(origin)
	if err != nil {
		return "", err
	}
	return origin + CallbackPath, nil
}

// AuthURL builds the consent URL for userID and remembers its state.
// Offline access with forced consent makes Google return a refresh token
// on every connect, including reconnects after expiry.
func (c *Connector) AuthURL(ctx context.Context, origin, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}
	redirect, err := c.RedirectURL(origin)
	if err != nil {
		return "", err
	}

	state := uuid.NewString()
	if err := c.states.Save(ctx, state, userID, c.config.StateTTL); err != nil {
		return "", fmt.Errorf("save oauth state: %w", err)
	}

	cfg := c.oauth
	cfg.RedirectURL = redirect

	c.logger.Debug().Str("user_id", userID).Str("redirect_url", redirect).Msg("Search Console connect started")
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")), nil
}

// Exchange consumes state and trades code for a token. It returns the user
// the state was issued to.
func (c *Connector) Exchange(ctx context.Context, origin, state, code string) (string, *oauth2.Token, error) {
	if code == "" {
		return "", nil, ErrMissingCode
	}
	redirect, err := c.RedirectURL(origin)
	if err != nil {
		return "", nil, err
	}

	userID, err := c.states.Consume(ctx, state)
	if err != nil {
		return "", nil, err
	}

	cfg := c.oauth
	cfg.RedirectURL = redirect

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		c.logger.Warn().Err(err).Str("user_id", userID).Msg("Search Console code exchange failed")
		return "", nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	c.logger.Info().Str("user_id", userID).Bool("refresh_token", token.RefreshToken != "").Msg("Search Console connected")
	return userID, token, nil
}

func (c *Connector) checkOrigin(origin string) (string, error) {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || u.Path != "" {
		return "", fmt.Errorf("%w %q", ErrInvalidOrigin, origin)
	}
	if len(c.allowed) > 0 && !c.allowed[origin] {
		return "", fmt.Errorf("%w %q: not allowed", ErrInvalidOrigin, origin)
	}
	return origin, nil
}
