package secret

import "github.com/zalando/go-keyring"

const keychainService = "scribe"

// KeyringProvider stores secrets in the OS keyring under the scribe service
// name. It is the preferred backend wherever a keyring daemon is running.
type KeyringProvider struct{}

func NewKeyringProvider() *KeyringProvider {
	return &KeyringProvider{}
}

func (k *KeyringProvider) Get(key string) (string, error) {
	value, err := keyring.Get(keychainService, key)
	if err != nil {
		return "", keyringError(key, err)
	}
	return value, nil
}

func (k *KeyringProvider) Set(key string, value string) error {
	if err := keyring.Set(keychainService, key, value); err != nil {
		return keyringError(key, err)
	}
	return nil
}

func (k *KeyringProvider) Delete(key string) error {
	if err := keyring.Delete(keychainService, key); err != nil {
		return keyringError(key, err)
	}
	return nil
}

func keyringError(key string, err error) error {
	switch err {
	case keyring.ErrNotFound:
		return &ErrSecretNotFound{Key: key, Err: err}
	case keyring.ErrSetDataTooBig:
		return &ErrSecretTooLarge{Key: key, Err: err}
	default:
		return err
	}
}
