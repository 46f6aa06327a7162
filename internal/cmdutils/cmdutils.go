package cmdutils

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dnitsch/cognito-aws-auth/internal/credentialexchange"
)

var (
	ErrMissingArg       = errors.New("missing arg")
	ErrUnableToValidate = errors.New("unable to validate issued credentials")
)

// Clients carries the service dependencies for a command invocation so
// tests can substitute fakes for the SDK clients.
type Clients struct {
	Idp      credentialexchange.CognitoIdpApi
	Identity credentialexchange.CognitoIdentityApi
	// StsForCreds builds an STS client scoped to the given credentials,
	// used only for the optional post-exchange verification probe.
	StsForCreds func(creds *credentialexchange.AWSCredentials) credentialexchange.StsApi
}

func buildProvider(clients Clients, conf credentialexchange.CredentialConfig) (*credentialexchange.Provider, error) {
	cache, err := buildTokenCache(conf)
	if err != nil {
		return nil, err
	}
	auth := credentialexchange.NewAuthenticator(clients.Idp, conf.Cognito, conf.AuthFlow)
	return credentialexchange.NewProvider(auth, clients.Identity, conf.Cognito, cache)
}

func buildTokenCache(conf credentialexchange.CredentialConfig) (*credentialexchange.TokenCache, error) {
	if conf.UseKeyring {
		return credentialexchange.NewTokenCache(credentialexchange.NewKeyringBackend(conf.Cognito.Username)), nil
	}
	cachePath := conf.TokenCachePath
	if cachePath == "" {
		cachePath = credentialexchange.DefaultTokenCacheFile()
	}
	backend, err := credentialexchange.NewFileBackend(cachePath)
	if err != nil {
		return nil, err
	}
	return credentialexchange.NewTokenCache(backend), nil
}

// GetCognitoCreds acquires temporary AWS credentials through the user
// pool login + identity pool exchange and emits them per the config.
func GetCognitoCreds(ctx context.Context, clients Clients, conf credentialexchange.CredentialConfig) error {
	if conf.BaseConfig.CfgSectionName == "" && conf.BaseConfig.StoreInProfile {
		return fmt.Errorf("cfg-section name must be provided if store-profile is enabled %w", ErrMissingArg)
	}

	if conf.Cognito.Empty() {
		credentialexchange.Writeln("cognito is not configured, no credentials to provide")
		return nil
	}

	provider, err := buildProvider(clients, conf)
	if err != nil {
		return err
	}

	creds, err := provider.FetchAwsCredentials(ctx)
	if err != nil {
		return err
	}

	if conf.Verify && clients.StsForCreds != nil {
		valid, err := credentialexchange.IsValid(ctx, creds, conf.BaseConfig.ReloadBeforeTime, clients.StsForCreds(creds))
		if err != nil {
			return fmt.Errorf("%s, %w", err, ErrUnableToValidate)
		}
		if !valid {
			return fmt.Errorf("issued credentials rejected by sts, %w", ErrUnableToValidate)
		}
	}

	return credentialexchange.SetCredentials(creds, conf)
}

// GetCognitoToken logs into the user pool and prints the raw id token.
func GetCognitoToken(ctx context.Context, clients Clients, conf credentialexchange.CredentialConfig) error {
	if conf.Cognito.Empty() {
		credentialexchange.Writeln("cognito is not configured, no token to provide")
		return nil
	}

	provider, err := buildProvider(clients, conf)
	if err != nil {
		return err
	}

	fetcher, err := credentialexchange.NewTokenFetcher(ctx, provider, false)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, fetcher.IDToken())
	return nil
}

// ClearCache drops the cached token document from the configured backend.
func ClearCache(conf credentialexchange.CredentialConfig) error {
	cache, err := buildTokenCache(conf)
	if err != nil {
		return err
	}
	return cache.Clear()
}
