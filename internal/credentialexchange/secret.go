package credentialexchange

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

var ErrFailedToClearSecretStorage = errors.New("failed to clear secret storage on OS")

// KeyringApi is the narrow surface of the OS keyring used here.
type KeyringApi interface {
	Set(service, user, password string) error
	Get(service, user string) (string, error)
	Delete(service, user string) error
}

// keyRingImpl is the default keyring implementation
type keyRingImpl struct{}

func (k *keyRingImpl) Set(service, user, password string) error {
	return keyring.Set(service, user, password)
}
func (k *keyRingImpl) Get(service, user string) (string, error) {
	return keyring.Get(service, user)
}
func (k *keyRingImpl) Delete(service, user string) error {
	return keyring.Delete(service, user)
}

// KeyringBackend stores the token document in the OS secret store,
// keyed by service and user.
type KeyringBackend struct {
	keyring       KeyringApi
	secretService string
	secretUser    string
}

func NewKeyringBackend(username string) *KeyringBackend {
	return &KeyringBackend{
		keyring:       &keyRingImpl{},
		secretService: SELF_NAME,
		secretUser:    username,
	}
}

func (k *KeyringBackend) WithKeyring(keyring KeyringApi) *KeyringBackend {
	k.keyring = keyring
	return k
}

func (k *KeyringBackend) Read() ([]byte, error) {
	doc, err := k.keyring.Get(k.secretService, k.secretUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return []byte(doc), nil
}

func (k *KeyringBackend) Write(doc []byte) error {
	return k.keyring.Set(k.secretService, k.secretUser, string(doc))
}

func (k *KeyringBackend) Clear() error {
	if err := k.keyring.Delete(k.secretService, k.secretUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%s, %w", err, ErrFailedToClearSecretStorage)
	}
	return nil
}
