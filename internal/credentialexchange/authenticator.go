package credentialexchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	cognitosrp "github.com/alexrudd/cognito-srp/v4"
	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

var (
	ErrUnableToLogin       = errors.New("unable to login to the user pool")
	ErrUnexpectedChallenge = errors.New("unexpected auth challenge")
	ErrUnknownAuthFlow     = errors.New("auth flow must be one of user_srp or user_password")
	ErrEmptyAuthResult     = errors.New("empty authentication result")
)

// AuthFlow is the closed set of login strategies against the user pool.
type AuthFlow int

const (
	AuthFlowUserSRP AuthFlow = iota
	AuthFlowUserPassword
)

func (f AuthFlow) String() string {
	if f == AuthFlowUserPassword {
		return "user_password"
	}
	return "user_srp"
}

func ParseAuthFlow(flow string) (AuthFlow, error) {
	switch flow {
	case "", "user_srp":
		return AuthFlowUserSRP, nil
	case "user_password":
		return AuthFlowUserPassword, nil
	}
	return AuthFlowUserSRP, fmt.Errorf("got: %s, %w", flow, ErrUnknownAuthFlow)
}

type CognitoIdpApi interface {
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	RespondToAuthChallenge(ctx context.Context, params *cip.RespondToAuthChallengeInput, optFns ...func(*cip.Options)) (*cip.RespondToAuthChallengeOutput, error)
}

// SecretExchange computes the challenge-response proof. The password
// never crosses the wire, only the exchange values do.
type SecretExchange interface {
	GetAuthParams() map[string]string
	PasswordVerifierChallenge(challengeParms map[string]string, ts time.Time) (map[string]string, error)
}

func defaultSecretExchange(conf CognitoConfig) (SecretExchange, error) {
	return cognitosrp.NewCognitoSRP(conf.Username, conf.Password, conf.UserPoolID, conf.AppID, nil)
}

// Authenticator produces a fresh token set from the user pool using the
// strategy fixed at construction. The refresh flow is always available.
type Authenticator struct {
	svc         CognitoIdpApi
	conf        CognitoConfig
	flow        AuthFlow
	newExchange func(CognitoConfig) (SecretExchange, error)
}

func NewAuthenticator(svc CognitoIdpApi, conf CognitoConfig, flow AuthFlow) *Authenticator {
	return &Authenticator{
		svc:         svc,
		conf:        conf,
		flow:        flow,
		newExchange: defaultSecretExchange,
	}
}

func (a *Authenticator) WithSecretExchange(newExchange func(CognitoConfig) (SecretExchange, error)) *Authenticator {
	a.newExchange = newExchange
	return a
}

// Login performs a full (non-refresh) authentication.
func (a *Authenticator) Login(ctx context.Context) (*types.AuthenticationResultType, error) {
	if a.flow == AuthFlowUserPassword {
		return a.passwordAuth(ctx)
	}
	return a.srpAuth(ctx)
}

func (a *Authenticator) srpAuth(ctx context.Context) (*types.AuthenticationResultType, error) {
	exchange, err := a.newExchange(a.conf)
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err, ErrUnableToLogin)
	}

	initiated, err := a.svc.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserSrpAuth,
		AuthParameters: exchange.GetAuthParams(),
		ClientId:       aws.String(a.conf.AppID),
		ClientMetadata: a.conf.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err, ErrUnableToLogin)
	}

	if initiated.AuthenticationResult != nil {
		return initiated.AuthenticationResult, nil
	}
	if initiated.ChallengeName != types.ChallengeNameTypePasswordVerifier {
		return nil, fmt.Errorf("got challenge: %s, %w", initiated.ChallengeName, ErrUnexpectedChallenge)
	}

	responses, err := exchange.PasswordVerifierChallenge(initiated.ChallengeParameters, time.Now())
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err, ErrUnableToLogin)
	}

	answered, err := a.svc.RespondToAuthChallenge(ctx, &cip.RespondToAuthChallengeInput{
		ChallengeName:      types.ChallengeNameTypePasswordVerifier,
		ChallengeResponses: responses,
		ClientId:           aws.String(a.conf.AppID),
		Session:            initiated.Session,
	})
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err, ErrUnableToLogin)
	}
	if answered.AuthenticationResult == nil {
		return nil, ErrEmptyAuthResult
	}
	return answered.AuthenticationResult, nil
}

func (a *Authenticator) passwordAuth(ctx context.Context) (*types.AuthenticationResultType, error) {
	initiated, err := a.svc.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		AuthParameters: map[string]string{
			"USERNAME": a.conf.Username,
			"PASSWORD": a.conf.Password,
		},
		ClientId:       aws.String(a.conf.AppID),
		ClientMetadata: a.conf.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err, ErrUnableToLogin)
	}
	if initiated.AuthenticationResult == nil {
		return nil, ErrEmptyAuthResult
	}
	return initiated.AuthenticationResult, nil
}

// Refresh renews the id/access token pair. The service does not rotate
// the refresh token in this exchange so the held one is carried over.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (*types.AuthenticationResultType, error) {
	initiated, err := a.svc.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeRefreshTokenAuth,
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": refreshToken,
		},
		ClientId:       aws.String(a.conf.AppID),
		ClientMetadata: a.conf.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err, ErrUnableToLogin)
	}
	if initiated.AuthenticationResult == nil {
		return nil, ErrEmptyAuthResult
	}
	result := *initiated.AuthenticationResult
	if result.RefreshToken == nil {
		result.RefreshToken = aws.String(refreshToken)
	}
	return &result, nil
}
