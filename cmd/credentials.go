package cmd

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentity"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/dnitsch/cognito-aws-auth/internal/cmdutils"
	"github.com/dnitsch/cognito-aws-auth/internal/credentialexchange"
	"github.com/spf13/cobra"
)

var (
	region           string
	authFlowName     string
	tokenCachePath   string
	useKeyring       bool
	reloadBeforeTime int
	verify           bool
	credentialsCmd   = &cobra.Command{
		Use:   "credentials",
		Short: "Get AWS credentials and out to stdout",
		Long:  `Get AWS credentials and out to stdout through your Cognito user pool authentication. Sourced from the COGNITO_* environment variables.`,
		RunE:  getCredentials,
	}
)

func init() {
	credentialsCmd.PersistentFlags().StringVarP(&region, "region", "r", "", "Override the region of the user/identity pools, defaults to AWS_DEFAULT_REGION or the SDK resolved region")
	credentialsCmd.PersistentFlags().StringVarP(&authFlowName, "auth-flow", "a", "", "Login strategy against the user pool [user_srp|user_password], defaults to COGNITO_AUTH_TYPE or user_srp")
	credentialsCmd.PersistentFlags().StringVarP(&tokenCachePath, "token-cache", "t", "", "Path of the token cache file, defaults to $HOME/.cognito-aws-auth-tokens.json")
	credentialsCmd.PersistentFlags().BoolVarP(&useKeyring, "use-keyring", "k", false, "Cache tokens in the OS secret store instead of a file")
	credentialsCmd.PersistentFlags().IntVarP(&reloadBeforeTime, "reload-before", "", 0, "Treats credentials expiring within the specified number of seconds as already expired")
	credentialsCmd.PersistentFlags().BoolVarP(&verify, "verify", "", false, "Verify the issued credentials against STS before emitting them")
	RootCmd.AddCommand(credentialsCmd)
}

// credentialConfig assembles the per-invocation config from env and flags.
func credentialConfig(ctx context.Context) (credentialexchange.CredentialConfig, aws.Config, error) {
	conf := credentialexchange.CredentialConfig{}

	cognitoConf, err := credentialexchange.ConfigFromEnv()
	if err != nil {
		return conf, aws.Config{}, err
	}
	if region != "" {
		cognitoConf.Region = region
	}

	optFns := []func(*config.LoadOptions) error{}
	if cognitoConf.Region != "" {
		optFns = append(optFns, config.WithRegion(cognitoConf.Region))
	}
	awsConf, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return conf, aws.Config{}, err
	}
	if cognitoConf.Region == "" {
		cognitoConf.Region = awsConf.Region
	}

	flowName := authFlowName
	if flowName == "" {
		flowName = os.Getenv(credentialexchange.COGNITO_AUTH_TYPE)
	}
	flow, err := credentialexchange.ParseAuthFlow(flowName)
	if err != nil {
		return conf, aws.Config{}, err
	}

	return credentialexchange.CredentialConfig{
		BaseConfig: credentialexchange.BaseConfig{
			StoreInProfile:   storeInProfile,
			CfgSectionName:   cfgSectionName,
			ReloadBeforeTime: reloadBeforeTime,
		},
		Cognito:        cognitoConf,
		AuthFlow:       flow,
		TokenCachePath: tokenCachePath,
		UseKeyring:     useKeyring,
		Verify:         verify,
	}, awsConf, nil
}

// cognitoClients builds the real SDK clients. The user pool and identity
// pool calls are unsigned, signing them would need the credentials this
// tool exists to produce.
func cognitoClients(awsConf aws.Config) cmdutils.Clients {
	return cmdutils.Clients{
		Idp: cip.NewFromConfig(awsConf, func(o *cip.Options) {
			o.Credentials = aws.AnonymousCredentials{}
		}),
		Identity: cognitoidentity.NewFromConfig(awsConf, func(o *cognitoidentity.Options) {
			o.Credentials = aws.AnonymousCredentials{}
		}),
		StsForCreds: func(creds *credentialexchange.AWSCredentials) credentialexchange.StsApi {
			return sts.NewFromConfig(awsConf, func(o *sts.Options) {
				o.Credentials = credentials.NewStaticCredentialsProvider(
					creds.AWSAccessKey, creds.AWSSecretKey, creds.AWSSessionToken)
			})
		},
	}
}

func getCredentials(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	conf, awsConf, err := credentialConfig(ctx)
	if err != nil {
		return err
	}

	return cmdutils.GetCognitoCreds(ctx, cognitoClients(awsConf), conf)
}
