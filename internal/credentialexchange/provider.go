package credentialexchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

const (
	// renewMargin is how long before id token expiry a renewal is due.
	renewMargin = 60 * time.Second
	// renewTick is the renewal loop wake-up interval. Kept short so a
	// forced token invalidation is noticed promptly.
	renewTick = 5 * time.Second
	// maxLoginAttempts bounds the login retry, the second attempt always
	// runs with the refresh token cleared.
	maxLoginAttempts = 2
)

// Provider owns the live token set and drives login, refresh and the
// identity pool exchange. It satisfies aws.CredentialsProvider so the
// SDK's credential cache can re-invoke it as expiry nears.
type Provider struct {
	mu       sync.Mutex
	tokens   TokenSet
	conf     CognitoConfig
	auth     *Authenticator
	identity CognitoIdentityApi
	cache    *TokenCache
}

// NewProvider validates the config and seeds state from the token cache,
// a cached set is only a restart-recovery hint, never a source of truth
// once the process runs.
func NewProvider(auth *Authenticator, identity CognitoIdentityApi, conf CognitoConfig, cache *TokenCache) (*Provider, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	p := &Provider{
		conf:     conf,
		auth:     auth,
		identity: identity,
		cache:    cache,
	}
	if cache != nil {
		cached, err := cache.Load()
		if err != nil {
			return nil, err
		}
		if !cached.Empty() {
			p.tokens = cached
		}
	}
	return p, nil
}

// Tokens returns a snapshot of the current token set.
func (p *Provider) Tokens() TokenSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokens
}

func (p *Provider) clearRefreshToken() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens.RefreshToken = ""
}

// Login produces a fresh token set, preferring the refresh flow whenever
// a refresh token is held. A failed attempt clears the refresh token and
// exactly one full-login attempt follows; when that fails too the error
// is downgraded to a warning and an empty token is returned - callers
// treat that as retry-later, never as a crash signal.
func (p *Provider) Login(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= maxLoginAttempts; attempt++ {
		refreshToken := p.Tokens().RefreshToken

		var result *types.AuthenticationResultType
		var err error
		if refreshToken != "" {
			result, err = p.auth.Refresh(ctx, refreshToken)
		} else {
			result, err = p.auth.Login(ctx)
		}
		if err != nil {
			if attempt < maxLoginAttempts {
				Traceln("login attempt %d failed: %v, retrying with refresh token cleared", attempt, err)
			} else {
				Writeln("login failed after %d attempts: %v", attempt, err)
			}
			p.clearRefreshToken()
			continue
		}

		tokens := tokenSetFromResult(result, time.Now())

		p.mu.Lock()
		p.tokens = tokens
		p.mu.Unlock()

		if p.cache != nil {
			if err := p.cache.Store(tokens); err != nil {
				return "", err
			}
		}
		return tokens.IDToken, nil
	}
	return "", nil
}

func tokenSetFromResult(result *types.AuthenticationResultType, now time.Time) TokenSet {
	tokens := TokenSet{
		TokenExpires: now.Add(time.Duration(result.ExpiresIn) * time.Second),
	}
	if result.IdToken != nil {
		tokens.IDToken = *result.IdToken
	}
	if result.AccessToken != nil {
		tokens.AccessToken = *result.AccessToken
	}
	if result.RefreshToken != nil {
		tokens.RefreshToken = *result.RefreshToken
	}
	return tokens
}

// ensureToken returns a usable id token and its expiry, logging in when
// none is held or the held one is inside the renewal margin. The login
// round trip never runs under the token lock.
func (p *Provider) ensureToken(ctx context.Context) (string, time.Time, error) {
	tokens := p.Tokens()
	if tokens.IDToken != "" && !ReloadBeforeExpiry(tokens.TokenExpires, int(renewMargin.Seconds())) {
		return tokens.IDToken, tokens.TokenExpires, nil
	}
	if _, err := p.Login(ctx); err != nil {
		return "", time.Time{}, err
	}
	tokens = p.Tokens()
	return tokens.IDToken, tokens.TokenExpires, nil
}

// Retrieve implements aws.CredentialsProvider.
func (p *Provider) Retrieve(ctx context.Context) (aws.Credentials, error) {
	creds, err := p.FetchAwsCredentials(ctx)
	if err != nil {
		return aws.Credentials{}, err
	}
	return aws.Credentials{
		AccessKeyID:     creds.AWSAccessKey,
		SecretAccessKey: creds.AWSSecretKey,
		SessionToken:    creds.AWSSessionToken,
		Source:          SELF_NAME,
		CanExpire:       true,
		Expires:         creds.Expires,
	}, nil
}

// FetchAwsCredentials runs one full acquisition: ensure a live id token,
// then exchange it through the identity pool.
func (p *Provider) FetchAwsCredentials(ctx context.Context) (*AWSCredentials, error) {
	idToken, tokenExpires, err := p.ensureToken(ctx)
	if err != nil {
		return nil, err
	}
	if idToken == "" {
		return nil, fmt.Errorf("no id token produced, %w", ErrUnableToLogin)
	}
	return AssumeWithIdentityPool(ctx, p.identity, p.conf, idToken, tokenExpires)
}

// Load returns the refreshable credentials for this provider, or nil
// when cognito auth is not configured so callers defer to their other
// credential sources.
func (p *Provider) Load(ctx context.Context) (aws.CredentialsProvider, error) {
	if p.conf.Empty() {
		return nil, nil
	}
	return aws.NewCredentialsCache(p), nil
}

// StartRenewal runs the background renewal loop until ctx is cancelled.
// The loop wakes every renewTick and re-logs-in once less than
// renewMargin remains on the id token, a margin already violated at
// start triggers an immediate login.
func (p *Provider) StartRenewal(ctx context.Context) {
	go p.renewLoop(ctx)
}

func (p *Provider) renewLoop(ctx context.Context) {
	for {
		if p.renewDue() {
			idToken, err := p.Login(ctx)
			if err != nil {
				Writeln("background renewal failed: %v", err)
			} else if idToken == "" {
				Writeln("background renewal produced no token, will retry")
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(renewTick):
		}
	}
}

func (p *Provider) renewDue() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Until(p.tokens.TokenExpires) < renewMargin
}
