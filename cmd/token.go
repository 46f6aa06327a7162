package cmd

import (
	"github.com/dnitsch/cognito-aws-auth/internal/cmdutils"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Get the raw Cognito id token and out to stdout",
	Long:  `Get the raw Cognito id token (JWT) and out to stdout, for consumers that present it directly - e.g. API gateway authorizers.`,
	RunE:  getToken,
}

func init() {
	tokenCmd.PersistentFlags().StringVarP(&region, "region", "r", "", "Override the region of the user/identity pools, defaults to AWS_DEFAULT_REGION or the SDK resolved region")
	tokenCmd.PersistentFlags().StringVarP(&authFlowName, "auth-flow", "a", "", "Login strategy against the user pool [user_srp|user_password], defaults to COGNITO_AUTH_TYPE or user_srp")
	tokenCmd.PersistentFlags().StringVarP(&tokenCachePath, "token-cache", "t", "", "Path of the token cache file, defaults to $HOME/.cognito-aws-auth-tokens.json")
	tokenCmd.PersistentFlags().BoolVarP(&useKeyring, "use-keyring", "k", false, "Cache tokens in the OS secret store instead of a file")
	RootCmd.AddCommand(tokenCmd)
}

func getToken(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	conf, awsConf, err := credentialConfig(ctx)
	if err != nil {
		return err
	}

	return cmdutils.GetCognitoToken(ctx, cognitoClients(awsConf), conf)
}
