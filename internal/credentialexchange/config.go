package credentialexchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	SELF_NAME = "cognito-aws-auth"

	COGNITO_APP_ID           = "COGNITO_APP_ID"
	COGNITO_PASSWORD         = "COGNITO_PASSWORD"
	COGNITO_USERNAME         = "COGNITO_USERNAME"
	COGNITO_USER_POOL_ID     = "COGNITO_USER_POOL_ID"
	COGNITO_IDENTITY_POOL_ID = "COGNITO_IDENTITY_POOL_ID"
	COGNITO_METADATA         = "COGNITO_METADATA"
	COGNITO_AUTH_TYPE        = "COGNITO_AUTH_TYPE"
	AWS_ROLE_ARN             = "AWS_ROLE_ARN"
	AWS_DEFAULT_REGION       = "AWS_DEFAULT_REGION"
)

var (
	ErrMissingConfig     = errors.New("cognito settings incomplete")
	ErrMalformedMetadata = errors.New("cognito metadata must be a JSON object of strings")
)

var requiredEnvVars = []string{
	COGNITO_APP_ID,
	COGNITO_PASSWORD,
	COGNITO_USERNAME,
	COGNITO_USER_POOL_ID,
	COGNITO_IDENTITY_POOL_ID,
}

// CognitoConfig is the set of user pool/identity pool settings.
// Immutable once constructed, either fully populated or fully empty -
// a partial set is a configuration error, never a fallback.
type CognitoConfig struct {
	AppID          string
	Username       string
	Password       string
	UserPoolID     string
	IdentityPoolID string
	Region         string
	Metadata       map[string]string
}

// Empty reports whether cognito auth is not in use at all.
func (c CognitoConfig) Empty() bool {
	return len(c.missing()) == len(requiredEnvVars)
}

// Validate returns ErrMissingConfig naming every absent required field,
// unless the config is fully empty which means cognito is not in use.
func (c CognitoConfig) Validate() error {
	missing := c.missing()
	if len(missing) == 0 || len(missing) == len(requiredEnvVars) {
		return nil
	}
	return fmt.Errorf("missing: %s, %w", strings.Join(missing, ", "), ErrMissingConfig)
}

func (c CognitoConfig) missing() []string {
	fields := []struct {
		name  string
		value string
	}{
		{"app_id", c.AppID},
		{"password", c.Password},
		{"username", c.Username},
		{"user_pool_id", c.UserPoolID},
		{"identity_pool_id", c.IdentityPoolID},
	}
	missing := []string{}
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// ConfigFromEnv sources the cognito settings from the COGNITO_* variables.
// All required variables absent yields an empty config and no error,
// any incomplete subset is ErrMissingConfig naming the absentees.
func ConfigFromEnv() (CognitoConfig, error) {
	missing := []string{}
	for _, v := range requiredEnvVars {
		if _, ok := os.LookupEnv(v); !ok {
			missing = append(missing, v)
		}
	}
	if len(missing) == len(requiredEnvVars) {
		return CognitoConfig{}, nil
	}
	if len(missing) > 0 {
		return CognitoConfig{}, fmt.Errorf("missing: %s, %w", strings.Join(missing, ", "), ErrMissingConfig)
	}

	conf := CognitoConfig{
		AppID:          os.Getenv(COGNITO_APP_ID),
		Password:       os.Getenv(COGNITO_PASSWORD),
		Username:       os.Getenv(COGNITO_USERNAME),
		UserPoolID:     os.Getenv(COGNITO_USER_POOL_ID),
		IdentityPoolID: os.Getenv(COGNITO_IDENTITY_POOL_ID),
		Region:         os.Getenv(AWS_DEFAULT_REGION),
	}

	if raw, ok := os.LookupEnv(COGNITO_METADATA); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &conf.Metadata); err != nil {
			return CognitoConfig{}, fmt.Errorf("%s, %w", err, ErrMalformedMetadata)
		}
	}

	return conf, nil
}

type BaseConfig struct {
	CfgSectionName   string
	StoreInProfile   bool
	ReloadBeforeTime int
}

// CredentialConfig carries everything a single credential acquisition needs.
type CredentialConfig struct {
	BaseConfig     BaseConfig
	Cognito        CognitoConfig
	AuthFlow       AuthFlow
	TokenCachePath string
	UseKeyring     bool
	Verify         bool
}
