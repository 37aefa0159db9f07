package credential

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// OAuth2Provider resolves an auth_reference to a bearer header using
// the OAuth2 client-credentials flow, caching and refreshing the token
// the same way a single outbound client would, just shared across every
// tool that points its auth_reference at this provider.
type OAuth2Provider struct {
	source oauth2.TokenSource
	mu     sync.RWMutex
	cached *oauth2.Token
}

// NewOAuth2Provider builds a provider from a client-credentials config.
func NewOAuth2Provider(ctx context.Context, cfg clientcredentials.Config) *OAuth2Provider {
	return &OAuth2Provider{source: cfg.TokenSource(ctx)}
}

// Resolve returns "Bearer <token>", refreshing via the underlying
// token source when the cached token has expired.
func (p *OAuth2Provider) Resolve(ctx context.Context, _ string) (string, error) {
	p.mu.RLock()
	cached := p.cached
	p.mu.RUnlock()
	if cached != nil && cached.Valid() {
		return "Bearer " + cached.AccessToken, nil
	}

	tok, err := p.source.Token()
	if err != nil {
		return "", fmt.Errorf("resolving oauth2 credential: %w", err)
	}

	p.mu.Lock()
	p.cached = tok
	p.mu.Unlock()

	return "Bearer " + tok.AccessToken, nil
}

// BearerProvider resolves to a static, pre-issued bearer token. Useful
// for external services that hand out long-lived API keys instead of
// an OAuth2 flow.
type BearerProvider struct {
	token string
}

// NewBearerProvider wraps a static token.
func NewBearerProvider(token string) *BearerProvider {
	return &BearerProvider{token: token}
}

// Resolve always returns the same header.
func (p *BearerProvider) Resolve(_ context.Context, _ string) (string, error) {
	return "Bearer " + p.token, nil
}
