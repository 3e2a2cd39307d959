package secret

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/afero"
)

// Resolver looks a secret up across an ordered provider chain, falling back
// to the environment. The OS keyring is preferred; the file provider covers
// headless hosts without one.
type Resolver struct {
	providers []Provider
}

// NewResolver builds the default chain: keyring, then files under dir.
func NewResolver(dir string) (*Resolver, error) {
	fileProvider, err := NewFileProvider(dir, afero.NewOsFs())
	if err != nil {
		return nil, err
	}
	return &Resolver{
		providers: []Provider{
			NewKeyringProvider(),
			fileProvider,
		},
	}, nil
}

// NewResolverWith builds a chain from explicit providers, for tests.
func NewResolverWith(providers ...Provider) *Resolver {
	return &Resolver{providers: providers}
}

// Resolve returns the first value found for key. A provider failure of any
// kind just moves the lookup to the next provider; a locked keyring should
// not hide a file-stored secret. The environment variable form of the key
// (upper-cased) is the final fallback.
func (r *Resolver) Resolve(key string) (string, error) {
	for _, p := range r.providers {
		if value, err := p.Get(key); err == nil && value != "" {
			return value, nil
		}
	}

	if value := os.Getenv(envName(key)); value != "" {
		return value, nil
	}

	return "", &ErrSecretNotFound{Key: key, Err: errors.New("no provider holds this key")}
}

// Store writes the secret to the first provider that accepts it.
func (r *Resolver) Store(key, value string) error {
	var lastErr error
	for _, p := range r.providers {
		if err := p.Set(key, value); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

// Delete removes the key from every provider that holds it.
func (r *Resolver) Delete(key string) error {
	var lastErr error
	for _, p := range r.providers {
		if err := p.Delete(key); err != nil && !errors.Is(err, &ErrSecretNotFound{}) {
			lastErr = err
		}
	}
	return lastErr
}

func envName(key string) string {
	return strings.ToUpper(key)
}
