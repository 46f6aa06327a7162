package credentialexchange

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentity"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

var (
	ErrUnableToResolveIdentity = errors.New("unable to resolve federated identity")
	ErrUnableToAssume          = errors.New("unable to assume identity pool role")
)

// AWSCredentials in the credential_process output shape.
type AWSCredentials struct {
	Version         int
	AWSAccessKey    string    `json:"AccessKeyId"`
	AWSSecretKey    string    `json:"SecretAccessKey"`
	AWSSessionToken string    `json:"SessionToken"`
	IdentityID      string    `json:"-"`
	Expires         time.Time `json:"Expiration"`
}

type CognitoIdentityApi interface {
	GetId(ctx context.Context, params *cognitoidentity.GetIdInput, optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.GetIdOutput, error)
	GetCredentialsForIdentity(ctx context.Context, params *cognitoidentity.GetCredentialsForIdentityInput, optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.GetCredentialsForIdentityOutput, error)
}

// LoginProviderKey is the login map key the identity pool expects for a
// user pool issued token.
func LoginProviderKey(region, userPoolID string) string {
	return fmt.Sprintf("cognito-idp.%s.amazonaws.com/%s", region, userPoolID)
}

// AssumeWithIdentityPool trades a valid id token for temporary credentials.
// The returned expiry is the earlier of the id token expiry and the issued
// credential expiry - whichever secret dies first forces the re-auth.
func AssumeWithIdentityPool(ctx context.Context, svc CognitoIdentityApi, conf CognitoConfig, idToken string, tokenExpires time.Time) (*AWSCredentials, error) {
	logins := map[string]string{
		LoginProviderKey(conf.Region, conf.UserPoolID): idToken,
	}

	id, err := svc.GetId(ctx, &cognitoidentity.GetIdInput{
		IdentityPoolId: aws.String(conf.IdentityPoolID),
		Logins:         logins,
	})
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err, ErrUnableToResolveIdentity)
	}

	input := &cognitoidentity.GetCredentialsForIdentityInput{
		IdentityId: id.IdentityId,
		Logins:     logins,
	}
	if role, exists := os.LookupEnv(AWS_ROLE_ARN); exists {
		input.CustomRoleArn = aws.String(role)
	}

	issued, err := svc.GetCredentialsForIdentity(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err, ErrUnableToAssume)
	}

	expires := aws.ToTime(issued.Credentials.Expiration)
	if tokenExpires.Before(expires) {
		expires = tokenExpires
	}

	return &AWSCredentials{
		AWSAccessKey:    aws.ToString(issued.Credentials.AccessKeyId),
		AWSSecretKey:    aws.ToString(issued.Credentials.SecretKey),
		AWSSessionToken: aws.ToString(issued.Credentials.SessionToken),
		IdentityID:      aws.ToString(issued.IdentityId),
		Expires:         expires,
	}, nil
}

type StsApi interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// IsValid reports whether a credential can still be used, probing STS
// rather than trusting the local expiry alone. Expired/invalid token
// responses mean not valid, any other service failure is an error.
func IsValid(ctx context.Context, cred *AWSCredentials, reloadBeforeSeconds int, svc StsApi) (bool, error) {
	if cred == nil {
		return false, nil
	}
	if ReloadBeforeExpiry(cred.Expires, reloadBeforeSeconds) {
		return false, nil
	}
	if _, err := svc.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "ExpiredToken", "ExpiredTokenException", "InvalidClientTokenId":
				return false, nil
			}
		}
		return false, fmt.Errorf("%s, %w", err, ErrUnableToAssume)
	}
	return true, nil
}
