package seo

import (
	"errors"
	"strings"

	"github.com/Sternrassler/seo-insights/pkg/client"
)

// tokenExpiredMessage is what the sites function answers once the stored
// Google token can no longer be refreshed.
const tokenExpiredMessage = "Google access token has expired"

// ErrTokenExpired means the user must reconnect Search Console.
var ErrTokenExpired = errors.New("search console token expired")

// IsTokenExpired reports whether err asks the user to reconnect Search Console.
func IsTokenExpired(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(client.Message(err), tokenExpiredMessage)
}
