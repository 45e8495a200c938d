package net

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// GetBearerClient returns an HTTP client that attaches token as a Bearer
// credential to every request. An empty token yields the plain client.
func GetBearerClient(ctx context.Context, token string) *http.Client {
	if token == "" {
		return GetHTTPClient()
	}
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{
			TokenType:   "Bearer",
			AccessToken: token,
		},
	)
	return oauth2.NewClient(ctx, ts)
}
