package credentialexchange

import (
	"context"
	"fmt"
	"time"
)

// TokenFetcher exposes the raw user pool JWTs for consumers that present
// them directly, e.g. API gateway authorizers, instead of exchanging
// them for AWS credentials.
type TokenFetcher struct {
	provider *Provider
}

// NewTokenFetcher logs in once eagerly. With server set, the background
// renewal loop keeps the tokens live until ctx is cancelled.
func NewTokenFetcher(ctx context.Context, provider *Provider, server bool) (*TokenFetcher, error) {
	idToken, err := provider.Login(ctx)
	if err != nil {
		return nil, err
	}
	if idToken == "" {
		return nil, fmt.Errorf("initial login produced no token, %w", ErrUnableToLogin)
	}
	if server {
		provider.StartRenewal(ctx)
	}
	return &TokenFetcher{provider: provider}, nil
}

// Fetch forces a login and returns the resulting token set.
func (f *TokenFetcher) Fetch(ctx context.Context) (TokenSet, error) {
	if _, err := f.provider.Login(ctx); err != nil {
		return TokenSet{}, err
	}
	return f.provider.Tokens(), nil
}

func (f *TokenFetcher) Tokens() TokenSet {
	return f.provider.Tokens()
}

func (f *TokenFetcher) IDToken() string {
	return f.provider.Tokens().IDToken
}

func (f *TokenFetcher) AccessToken() string {
	return f.provider.Tokens().AccessToken
}

func (f *TokenFetcher) RefreshToken() string {
	return f.provider.Tokens().RefreshToken
}

func (f *TokenFetcher) Expires() time.Time {
	return f.provider.Tokens().TokenExpires
}
