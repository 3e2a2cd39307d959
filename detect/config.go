package detect

import "time"

// Config holds the detector's tunable parameters. Changes made through
// Detector.UpdateConfig take effect on the next processed event, never
// retroactively.
type Config struct {
	// MinTaskDuration is the duration below which adjacent tasks become merge
	// candidates. It is a merge criterion only, never an exclusion filter.
	MinTaskDuration time.Duration

	// IdleThreshold is the screenshot-timestamp gap after which the current
	// task is considered interrupted.
	IdleThreshold time.Duration

	// AppSwitchDebounce is how long a new application must persist before a
	// switch into it counts as significant.
	AppSwitchDebounce time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinTaskDuration:   2 * time.Minute,
		IdleThreshold:     5 * time.Minute,
		AppSwitchDebounce: 10 * time.Second,
	}
}

// merged returns base with any non-zero fields of overrides applied.
func (c Config) merged(overrides *Config) Config {
	if overrides == nil {
		return c
	}
	if overrides.MinTaskDuration > 0 {
		c.MinTaskDuration = overrides.MinTaskDuration
	}
	if overrides.IdleThreshold > 0 {
		c.IdleThreshold = overrides.IdleThreshold
	}
	if overrides.AppSwitchDebounce > 0 {
		c.AppSwitchDebounce = overrides.AppSwitchDebounce
	}
	return c
}
