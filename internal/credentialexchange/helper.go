package credentialexchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"time"

	ini "gopkg.in/ini.v1"
)

var ErrConfigFailure = errors.New("config error")

func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Fatal("unable to get the user home dir")
	}
	return home
}

// DefaultTokenCacheFile is the token cache location used when none is
// specified on the command line.
func DefaultTokenCacheFile() string {
	return path.Join(HomeDir(), fmt.Sprintf(".%s-tokens.json", SELF_NAME))
}

// SetCredentials emits the acquired credentials, either into a named
// profile in the shared credentials file or as credential_process JSON.
func SetCredentials(creds *AWSCredentials, config CredentialConfig) error {
	if config.BaseConfig.StoreInProfile {
		return storeCredentialsInProfile(*creds, config.BaseConfig.CfgSectionName)
	}
	return returnStdOutAsJson(*creds)
}

func storeCredentialsInProfile(creds AWSCredentials, configSection string) error {
	var awsConfPath string

	if overriddenpath, exists := os.LookupEnv("AWS_SHARED_CREDENTIALS_FILE"); exists {
		awsConfPath = overriddenpath
	} else {
		awsConfPath = path.Join(HomeDir(), ".aws", "credentials")
	}

	if _, err := os.Stat(awsConfPath); os.IsNotExist(err) {
		if err := os.MkdirAll(path.Dir(awsConfPath), 0700); err != nil {
			return fmt.Errorf("fail to create credentials dir: %v, %w", err, ErrConfigFailure)
		}
		if err := os.WriteFile(awsConfPath, []byte{}, 0600); err != nil {
			return fmt.Errorf("fail to create credentials file: %v, %w", err, ErrConfigFailure)
		}
	}

	cfg, err := ini.Load(awsConfPath)
	if err != nil {
		return fmt.Errorf("fail to read Ini file: %v, %w", err, ErrConfigFailure)
	}
	cfg.Section(configSection).Key("aws_access_key_id").SetValue(creds.AWSAccessKey)
	cfg.Section(configSection).Key("aws_secret_access_key").SetValue(creds.AWSSecretKey)
	cfg.Section(configSection).Key("aws_session_token").SetValue(creds.AWSSessionToken)
	cfg.SaveTo(awsConfPath)

	return nil
}

func returnStdOutAsJson(creds AWSCredentials) error {
	creds.Version = 1

	jsonBytes, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, string(jsonBytes))
	return nil
}

// ReloadBeforeExpiry returns true if the time
// to expiry is less than the specified time in seconds
// false if there is more than required time in seconds
// before needing to recycle credentials
func ReloadBeforeExpiry(expiry time.Time, reloadBeforeSeconds int) bool {
	now := time.Now().Local()
	diff := expiry.Local().Sub(now)
	return diff.Seconds() < float64(reloadBeforeSeconds)
}
