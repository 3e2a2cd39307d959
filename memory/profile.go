package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Profile keys used by context assembly.
const (
	ProfileKeyRoleSummary = "role_summary"
)

// GetProfile returns the stored value for key, or "" when unset.
func (s *Store) GetProfile(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM profile WHERE key = ?", key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get profile %q: %w", key, err)
	}
	return value, nil
}

// SetProfile upserts a profile value.
func (s *Store) SetProfile(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profile (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set profile %q: %w", key, err)
	}
	return nil
}
