package earthengine

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// OAuth scopes accepted by the Earth Engine API.
var scopes = []string{
	"https://www.googleapis.com/auth/earthengine",
	"https://www.googleapis.com/auth/cloud-platform",
}

// NewHTTPClient returns an HTTP client that authorizes every request. A
// non-empty accessToken is used as-is; otherwise Google application-default
// credentials are resolved.
func NewHTTPClient(ctx context.Context, accessToken string, timeout time.Duration) (*http.Client, error) {
	ts, err := tokenSource(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &oauth2.Transport{Source: ts, Base: http.DefaultTransport},
	}, nil
}

func tokenSource(ctx context.Context, accessToken string) (oauth2.TokenSource, error) {
	if accessToken != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}), nil
	}
	ts, err := google.DefaultTokenSource(ctx, scopes...)
	if err != nil {
		return nil, fmt.Errorf("find default credentials: %w", err)
	}
	return ts, nil
}
