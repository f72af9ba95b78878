package storage

import (
	"context"
	"errors"
	"time"
)

// Default values of a fresh settings record
const (
	DefaultCacheLifespanMinutes = 30
	DefaultMaxParallelSessions  = 5
	DefaultDebounceIntervalMS   = 3000
)

// Storage persists the user settings record and the exclusion list
type Storage interface {
	// Settings operations
	GetSettings(ctx context.Context) (*Settings, error)
	SaveSettings(ctx context.Context, settings *Settings) error

	// Exclusion operations
	AddExclusion(ctx context.Context, entry string) error
	RemoveExclusion(ctx context.Context, entry string) error
	ListExclusions(ctx context.Context) ([]string, error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Settings is the user-mutable configuration of the checker
type Settings struct {
	CacheLifespanMinutes int
	MaxParallelSessions  int
	DebounceIntervalMS   int
	OnTheFly             bool // Check open documents while they are edited
	ShowAdvancedMistakes bool // Report facultative alerts
	ExtendedLogging      bool // Keep the raw protocol log on results
	Exclusions           []string
	UpdatedAt            time.Time
}

// DefaultSettings returns the settings of a fresh installation
func DefaultSettings() *Settings {
	return &Settings{
		CacheLifespanMinutes: DefaultCacheLifespanMinutes,
		MaxParallelSessions:  DefaultMaxParallelSessions,
		DebounceIntervalMS:   DefaultDebounceIntervalMS,
		OnTheFly:             true,
		ShowAdvancedMistakes: true,
	}
}

// CacheLifespan returns the lifespan as a duration
func (s *Settings) CacheLifespan() time.Duration {
	return time.Duration(s.CacheLifespanMinutes) * time.Minute
}

// DebounceInterval returns the debounce interval as a duration
func (s *Settings) DebounceInterval() time.Duration {
	return time.Duration(s.DebounceIntervalMS) * time.Millisecond
}

// Validate checks that numeric settings are usable
func (s *Settings) Validate() error {
	if s.CacheLifespanMinutes <= 0 {
		return errors.New("cache lifespan must be positive")
	}
	if s.MaxParallelSessions <= 0 {
		return errors.New("max parallel sessions must be positive")
	}
	if s.DebounceIntervalMS < 0 {
		return errors.New("debounce interval cannot be negative")
	}
	return nil
}

// Status contains statistics about the database
type Status struct {
	SchemaVersion  string
	BuildMode      string
	Exclusions     int
	SettingsSaved  bool
	DatabaseSizeMB float64
}

// LoadOrSeed returns the stored settings, saving defaults first when none
// have been stored yet
func LoadOrSeed(ctx context.Context, s Storage, defaults *Settings) (*Settings, error) {
	settings, err := s.GetSettings(ctx)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if defaults == nil {
		defaults = DefaultSettings()
	}
	seeded := *defaults
	seeded.Exclusions = append([]string(nil), defaults.Exclusions...)
	if err := s.SaveSettings(ctx, &seeded); err != nil {
		return nil, err
	}
	return &seeded, nil
}
