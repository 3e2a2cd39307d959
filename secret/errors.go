package secret

import "fmt"

// ErrSecretNotFound marks absence of a key, as opposed to a provider being
// unavailable. The resolver's fallback chain only stops on absence.
type ErrSecretNotFound struct {
	Key string
	Err error
}

func (e *ErrSecretNotFound) Error() string {
	return fmt.Sprintf("secret %q not found: %v", e.Key, e.Err)
}

func (e *ErrSecretNotFound) Unwrap() error { return e.Err }

func (e *ErrSecretNotFound) Is(target error) bool {
	_, ok := target.(*ErrSecretNotFound)
	return ok
}

// ErrSecretTooLarge is returned when a value exceeds what the OS keyring
// accepts for a single entry.
type ErrSecretTooLarge struct {
	Key string
	Err error
}

func (e *ErrSecretTooLarge) Error() string {
	return fmt.Sprintf("secret %q exceeds the keyring size limit: %v", e.Key, e.Err)
}

func (e *ErrSecretTooLarge) Unwrap() error { return e.Err }
