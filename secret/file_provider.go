package secret

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileProvider stores one secret per file under a directory, for headless
// hosts without a usable OS keyring. Files are owner-only.
type FileProvider struct {
	fs  afero.Fs
	dir string
}

func NewFileProvider(dir string, fs afero.Fs) (*FileProvider, error) {
	if err := fs.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create secrets directory %s: %w", dir, err)
	}
	return &FileProvider{fs: fs, dir: dir}, nil
}

func (fp *FileProvider) path(key string) string {
	return filepath.Join(fp.dir, key)
}

func (fp *FileProvider) Get(key string) (string, error) {
	data, err := afero.ReadFile(fp.fs, fp.path(key))
	if os.IsNotExist(err) {
		return "", &ErrSecretNotFound{Key: key, Err: err}
	}
	if err != nil {
		return "", fmt.Errorf("read secret %q: %w", key, err)
	}
	return string(data), nil
}

func (fp *FileProvider) Set(key string, value string) error {
	if err := afero.WriteFile(fp.fs, fp.path(key), []byte(value), 0o600); err != nil {
		return fmt.Errorf("write secret %q: %w", key, err)
	}
	return nil
}

// Delete is a no-op for keys the provider does not hold.
func (fp *FileProvider) Delete(key string) error {
	if err := fp.fs.Remove(fp.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove secret %q: %w", key, err)
	}
	return nil
}
