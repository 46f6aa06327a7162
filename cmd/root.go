package cmd

import (
	"fmt"
	"os"

	"github.com/dnitsch/cognito-aws-auth/internal/credentialexchange"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgSectionName string
	cfgFile        string
	storeInProfile bool
	verbose        bool
	RootCmd        = &cobra.Command{
		Use:   credentialexchange.SELF_NAME,
		Short: "CLI tool for retrieving AWS temporary credentials via a Cognito user pool",
		Long: `CLI tool for retrieving AWS temporary credentials through a Cognito user pool login (SRP challenge-response or password) and identity pool exchange.
Stores them under the $HOME/.aws/credentials file under a specified path or returns the credential_process payload for use in config`,
	}
)

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		credentialexchange.Exit(err)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVarP(&cfgSectionName, "cfg-section", "", "", "config section name in the yaml config file")
	RootCmd.PersistentFlags().BoolVarP(&storeInProfile, "store-profile", "s", false, "By default the credentials are returned to stdout to be used by the credential_process. Set this flag to instead store the credentials under a named profile section")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(fmt.Sprintf(".%s", credentialexchange.SELF_NAME))
	}

	viper.AutomaticEnv()

	credentialexchange.SetTrace(verbose)

	if err := viper.ReadInConfig(); err == nil {
		credentialexchange.Traceln("Using config file: %s", viper.ConfigFileUsed())
	}
}
