package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidEntry is returned for a blank exclusion
	ErrInvalidEntry = errors.New("exclusion entry cannot be empty")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance.
// Use ":memory:" for a throwaway database.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Settings operations

func (s *SQLiteStorage) getSettingsWithQuerier(ctx context.Context, q querier) (*Settings, error) {
	query := `
		SELECT cache_lifespan_minutes, max_parallel_sessions, debounce_interval_ms,
		       on_the_fly, show_advanced_mistakes, extended_logging, updated_at
		FROM settings
		WHERE id = 1
	`
	var settings Settings
	var updatedAt sql.NullTime
	err := q.QueryRowContext(ctx, query).Scan(
		&settings.CacheLifespanMinutes, &settings.MaxParallelSessions, &settings.DebounceIntervalMS,
		&settings.OnTheFly, &settings.ShowAdvancedMistakes, &settings.ExtendedLogging,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if updatedAt.Valid {
		settings.UpdatedAt = updatedAt.Time
	}

	settings.Exclusions, err = s.listExclusionsWithQuerier(ctx, q)
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// GetSettings returns the stored settings record with its exclusions.
// It returns ErrNotFound until settings have been saved once.
func (s *SQLiteStorage) GetSettings(ctx context.Context) (*Settings, error) {
	return s.getSettingsWithQuerier(ctx, s.querier())
}

func (s *SQLiteStorage) saveSettingsWithQuerier(ctx context.Context, q querier, settings *Settings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	query := `
		INSERT INTO settings (id, cache_lifespan_minutes, max_parallel_sessions, debounce_interval_ms,
		                      on_the_fly, show_advanced_mistakes, extended_logging, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cache_lifespan_minutes = excluded.cache_lifespan_minutes,
			max_parallel_sessions = excluded.max_parallel_sessions,
			debounce_interval_ms = excluded.debounce_interval_ms,
			on_the_fly = excluded.on_the_fly,
			show_advanced_mistakes = excluded.show_advanced_mistakes,
			extended_logging = excluded.extended_logging,
			updated_at = excluded.updated_at
	`
	now := time.Now()
	_, err := q.ExecContext(ctx, query,
		settings.CacheLifespanMinutes, settings.MaxParallelSessions, settings.DebounceIntervalMS,
		settings.OnTheFly, settings.ShowAdvancedMistakes, settings.ExtendedLogging, now)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	// The exclusion list is replaced as a whole
	if _, err := q.ExecContext(ctx, "DELETE FROM exclusions"); err != nil {
		return fmt.Errorf("failed to clear exclusions: %w", err)
	}
	for _, entry := range settings.Exclusions {
		if err := s.addExclusionWithQuerier(ctx, q, entry); err != nil && !errors.Is(err, ErrAlreadyExists) {
			return err
		}
	}

	settings.UpdatedAt = now
	return nil
}

// SaveSettings stores the settings record and replaces the exclusion list
// in one transaction
func (s *SQLiteStorage) SaveSettings(ctx context.Context, settings *Settings) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := tx.SaveSettings(ctx, settings); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Exclusion operations

func (s *SQLiteStorage) addExclusionWithQuerier(ctx context.Context, q querier, entry string) error {
	if strings.TrimSpace(entry) == "" {
		return ErrInvalidEntry
	}
	result, err := q.ExecContext(ctx,
		"INSERT INTO exclusions (entry, created_at) VALUES (?, ?) ON CONFLICT(entry) DO NOTHING",
		entry, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add exclusion: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// AddExclusion stores entry. It returns ErrAlreadyExists for a duplicate.
func (s *SQLiteStorage) AddExclusion(ctx context.Context, entry string) error {
	return s.addExclusionWithQuerier(ctx, s.querier(), entry)
}

func (s *SQLiteStorage) removeExclusionWithQuerier(ctx context.Context, q querier, entry string) error {
	result, err := q.ExecContext(ctx, "DELETE FROM exclusions WHERE entry = ?", entry)
	if err != nil {
		return fmt.Errorf("failed to remove exclusion: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveExclusion deletes entry. It returns ErrNotFound if it was not stored.
func (s *SQLiteStorage) RemoveExclusion(ctx context.Context, entry string) error {
	return s.removeExclusionWithQuerier(ctx, s.querier(), entry)
}

func (s *SQLiteStorage) listExclusionsWithQuerier(ctx context.Context, q querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT entry FROM exclusions ORDER BY entry")
	if err != nil {
		return nil, fmt.Errorf("failed to list exclusions: %w", err)
	}
	defer rows.Close()

	var entries []string
	for rows.Next() {
		var entry string
		if err := rows.Scan(&entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListExclusions returns every stored exclusion in lexical order
func (s *SQLiteStorage) ListExclusions(ctx context.Context) ([]string, error) {
	return s.listExclusionsWithQuerier(ctx, s.querier())
}

// Status operations

func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier) (*Status, error) {
	status := &Status{BuildMode: BuildMode}

	version, err := schemaVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}
	status.SchemaVersion = version.String()

	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM exclusions").Scan(&status.Exclusions); err != nil {
		return nil, err
	}

	var saved int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM settings").Scan(&saved); err != nil {
		return nil, err
	}
	status.SettingsSaved = saved > 0

	// Calculate database size
	var pageCount, pageSize int
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.DatabaseSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}
	return status, nil
}

// GetStatus reports schema version and row counts
func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	return s.getStatusWithQuerier(ctx, s.querier())
}

// Transaction implementations delegate to the storage helpers with the
// transaction as querier

func (t *sqliteTx) GetSettings(ctx context.Context) (*Settings, error) {
	return t.storage.getSettingsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) SaveSettings(ctx context.Context, settings *Settings) error {
	return t.storage.saveSettingsWithQuerier(ctx, t.querier(), settings)
}

func (t *sqliteTx) AddExclusion(ctx context.Context, entry string) error {
	return t.storage.addExclusionWithQuerier(ctx, t.querier(), entry)
}

func (t *sqliteTx) RemoveExclusion(ctx context.Context, entry string) error {
	return t.storage.removeExclusionWithQuerier(ctx, t.querier(), entry)
}

func (t *sqliteTx) ListExclusions(ctx context.Context) ([]string, error) {
	return t.storage.listExclusionsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*Status, error) {
	return nil, errors.New("status is not available inside a transaction")
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, errors.New("nested transactions not supported")
}
