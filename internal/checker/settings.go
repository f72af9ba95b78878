package checker

import (
	"fmt"
	"time"

	"github.com/dshills/lynxcheck/internal/cache"
	"github.com/dshills/lynxcheck/internal/debounce"
	"github.com/dshills/lynxcheck/internal/dispatch"
)

// Settings are the user-tunable knobs that Reconfigure can change at runtime
type Settings struct {
	CacheLifespan    time.Duration
	Parallelism      int
	DebounceInterval time.Duration
	ExtendedLogging  bool // Keep the raw protocol log on returned results
}

// DefaultSettings returns the settings of a fresh installation
func DefaultSettings() Settings {
	return Settings{
		CacheLifespan:    cache.DefaultTTL,
		Parallelism:      dispatch.DefaultParallelism,
		DebounceInterval: debounce.DefaultInterval,
	}
}

// withDefaults fills zero fields from DefaultSettings
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.CacheLifespan == 0 {
		s.CacheLifespan = d.CacheLifespan
	}
	if s.Parallelism == 0 {
		s.Parallelism = d.Parallelism
	}
	if s.DebounceInterval == 0 {
		s.DebounceInterval = d.DebounceInterval
	}
	return s
}

// Validate checks that the settings are usable
func (s Settings) Validate() error {
	if s.CacheLifespan <= 0 {
		return fmt.Errorf("%w: cache lifespan must be positive, got %s", ErrInvalidSettings, s.CacheLifespan)
	}
	if s.Parallelism <= 0 {
		return fmt.Errorf("%w: parallelism must be positive, got %d", ErrInvalidSettings, s.Parallelism)
	}
	if s.DebounceInterval < 0 {
		return fmt.Errorf("%w: debounce interval cannot be negative", ErrInvalidSettings)
	}
	return nil
}
