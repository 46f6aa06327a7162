package credentialexchange_test

import (
	"os"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/dnitsch/cognito-aws-auth/internal/credentialexchange"
	ini "gopkg.in/ini.v1"
)

func TestReloadBeforeExpirySuccess(t *testing.T) {

	expiry := (time.Now()).Add(time.Second * 305)

	got := credentialexchange.ReloadBeforeExpiry(expiry, 300)

	if got {
		t.Errorf("Expected %v, got: %v", false, got)
	}
}

func TestReloadBeforeExpiryNeedToRefresh(t *testing.T) {

	expiry := (time.Now()).Add(time.Second * 299)

	got := credentialexchange.ReloadBeforeExpiry(expiry, 300)

	if !got {
		t.Errorf("Expected %v, got: %v", true, got)
	}
}

func Test_HomeDirOverwritten(t *testing.T) {
	ttests := map[string]struct {
		setUpCleanUp func() func()
	}{
		"test1": {
			setUpCleanUp: func() func() {
				orignalEnv := os.Environ()
				os.Setenv("HOME", "./.ignore-delete")
				return func() {
					for _, e := range orignalEnv {
						pair := strings.SplitN(e, "=", 2)
						os.Setenv(pair[0], pair[1])
					}
				}
			},
		},
	}
	for name, tt := range ttests {
		t.Run(name, func(t *testing.T) {
			cleanUp := tt.setUpCleanUp()
			defer cleanUp()
			got := credentialexchange.HomeDir()
			if got != "./.ignore-delete" {
				t.Fail()
			}
		})
	}
}

func Test_SetCredentials_writes_the_named_profile(t *testing.T) {
	credsFile := path.Join(t.TempDir(), "credentials")
	if err := os.WriteFile(credsFile, []byte("[default]\naws_access_key_id = untouched\n"), 0600); err != nil {
		t.Fatalf("got %s, wanted <nil>", err)
	}
	os.Setenv("AWS_SHARED_CREDENTIALS_FILE", credsFile)
	defer os.Unsetenv("AWS_SHARED_CREDENTIALS_FILE")

	creds := &credentialexchange.AWSCredentials{
		AWSAccessKey:    "accesskey",
		AWSSecretKey:    "secretkey",
		AWSSessionToken: "sessiontoken",
		Expires:         time.Now().Add(time.Hour),
	}
	conf := credentialexchange.CredentialConfig{
		BaseConfig: credentialexchange.BaseConfig{
			StoreInProfile: true,
			CfgSectionName: "cognito-dev",
		},
	}

	if err := credentialexchange.SetCredentials(creds, conf); err != nil {
		t.Fatalf("got %s, wanted <nil>", err)
	}

	cfg, err := ini.Load(credsFile)
	if err != nil {
		t.Fatalf("Fail to read file: %v", err)
	}
	section := cfg.Section("cognito-dev")
	if section.Key("aws_access_key_id").String() != "accesskey" {
		t.Errorf("incorrect access key in profile, got: %s", section.Key("aws_access_key_id").String())
	}
	if section.Key("aws_session_token").String() != "sessiontoken" {
		t.Errorf("incorrect session token in profile, got: %s", section.Key("aws_session_token").String())
	}
	if cfg.Section("default").Key("aws_access_key_id").String() != "untouched" {
		t.Errorf("expected other profiles to be left alone")
	}
}

func Test_SetCredentials_creates_the_credentials_file_on_first_use(t *testing.T) {
	home := t.TempDir()
	orignalEnv := os.Environ()
	os.Unsetenv("AWS_SHARED_CREDENTIALS_FILE")
	os.Setenv("HOME", home)
	defer func() {
		for _, e := range orignalEnv {
			pair := strings.SplitN(e, "=", 2)
			os.Setenv(pair[0], pair[1])
		}
	}()

	creds := &credentialexchange.AWSCredentials{
		AWSAccessKey:    "accesskey",
		AWSSecretKey:    "secretkey",
		AWSSessionToken: "sessiontoken",
		Expires:         time.Now().Add(time.Hour),
	}
	conf := credentialexchange.CredentialConfig{
		BaseConfig: credentialexchange.BaseConfig{
			StoreInProfile: true,
			CfgSectionName: "cognito-dev",
		},
	}

	if err := credentialexchange.SetCredentials(creds, conf); err != nil {
		t.Fatalf("got %s, wanted <nil>", err)
	}

	credsFile := path.Join(home, ".aws", "credentials")
	info, err := os.Stat(credsFile)
	if err != nil {
		t.Fatalf("expected a credentials file, got: %s", err)
	}
	if info.IsDir() {
		t.Fatalf("expected a file at %s, got a directory", credsFile)
	}

	cfg, err := ini.Load(credsFile)
	if err != nil {
		t.Fatalf("Fail to read file: %v", err)
	}
	if cfg.Section("cognito-dev").Key("aws_access_key_id").String() != "accesskey" {
		t.Errorf("incorrect access key in profile, got: %s", cfg.Section("cognito-dev").Key("aws_access_key_id").String())
	}
}

func Test_SetCredentials_emits_credential_process_json(t *testing.T) {
	stdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = stdout }()

	creds := &credentialexchange.AWSCredentials{
		AWSAccessKey:    "accesskey",
		AWSSecretKey:    "secretkey",
		AWSSessionToken: "sessiontoken",
		Expires:         time.Now().Add(time.Hour),
	}

	if err := credentialexchange.SetCredentials(creds, credentialexchange.CredentialConfig{}); err != nil {
		t.Fatalf("got %s, wanted <nil>", err)
	}
	w.Close()

	buf := make([]byte, 4096)
	n, _ := r.Read(buf)
	out := string(buf[:n])

	for _, want := range []string{`"Version":1`, `"AccessKeyId":"accesskey"`, `"SessionToken":"sessiontoken"`, `"Expiration"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %s, got: %s", want, out)
		}
	}
	if strings.Contains(out, "IdentityID") {
		t.Errorf("identity handle must never be emitted, got: %s", out)
	}
}

func Test_DefaultTokenCacheFile_is_under_home(t *testing.T) {
	orignalEnv := os.Environ()
	os.Setenv("HOME", "./.ignore-delete")
	defer func() {
		for _, e := range orignalEnv {
			pair := strings.SplitN(e, "=", 2)
			os.Setenv(pair[0], pair[1])
		}
	}()

	got := credentialexchange.DefaultTokenCacheFile()
	if got != ".ignore-delete/.cognito-aws-auth-tokens.json" {
		t.Errorf("incorrect default cache path, got: %s", got)
	}
}
