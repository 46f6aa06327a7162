package cmd

import (
	"github.com/dnitsch/cognito-aws-auth/internal/cmdutils"
	"github.com/dnitsch/cognito-aws-auth/internal/credentialexchange"
	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear-cache <flags>",
	Short: "Clears any cached Cognito tokens",
	Long:  `Clears the cached token document from the token cache file or the OS secret store.`,
	RunE:  clear,
}

func init() {
	clearCmd.PersistentFlags().StringVarP(&tokenCachePath, "token-cache", "t", "", "Path of the token cache file, defaults to $HOME/.cognito-aws-auth-tokens.json")
	clearCmd.PersistentFlags().BoolVarP(&useKeyring, "use-keyring", "k", false, "Clear the OS secret store entry instead of the file cache")
	RootCmd.AddCommand(clearCmd)
}

func clear(cmd *cobra.Command, args []string) error {
	cognitoConf, err := credentialexchange.ConfigFromEnv()
	if err != nil {
		return err
	}
	return cmdutils.ClearCache(credentialexchange.CredentialConfig{
		Cognito:        cognitoConf,
		TokenCachePath: tokenCachePath,
		UseKeyring:     useKeyring,
	})
}
