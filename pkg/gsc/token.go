package gsc

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/seo-insights/pkg/client"
	"golang.org/x/oauth2"
)

// FunctionSaveToken stores a user's Google token with the backend, where the
// sites function picks it up.
const FunctionSaveToken = "google-search-console-token"

// Invoker calls a backend function. *client.Client implements it.
type Invoker interface {
	Invoke(ctx context.Context, function string, body, out any, opts ...client.InvokeOption) error
}

type tokenPayload struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
}

// SaveToken hands token to the backend for userID.
func SaveToken(ctx context.Context, inv Invoker, userID string, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("save token: empty token")
	}
	body := tokenPayload{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.Type(),
		Expiry:       token.Expiry,
	}
	if err := inv.Invoke(client.WithUserID(ctx, userID), FunctionSaveToken, body, nil); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}
