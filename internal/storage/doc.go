// Package storage provides SQLite-based persistence for the checker settings.
//
// The storage layer manages:
//   - The single settings record (cache lifespan, parallelism, toggles)
//   - The exclusion list of ignored texts and categories
//   - Schema versioning
//
// # Database Schema
//
// Tables:
//   - schema_version: applied migrations
//   - settings: one row with id 1
//   - exclusions: one row per ignored entry
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.lynxcheck/settings.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	settings, err := storage.LoadOrSeed(ctx, db, storage.DefaultSettings())
//	if err != nil {
//	    return err
//	}
//
//	if err := db.AddExclusion(ctx, "category:Passive voice misuse"); err != nil {
//	    return err
//	}
//
// # Transactions
//
// SaveSettings replaces the exclusion list inside one transaction. Callers can
// group their own operations the same way:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	_ = tx.RemoveExclusion(ctx, "gonna")
//	_ = tx.AddExclusion(ctx, "gotta")
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// # Migrations
//
// Migrations are ordered by semantic version and applied on open. Each applied
// version is recorded in schema_version; RollbackMigration undoes the most
// recent one.
//
// # Build Modes
//
// The default build uses modernc.org/sqlite, a pure Go driver. Building with
// the sqlite_cgo tag switches to github.com/mattn/go-sqlite3.
//
// # Concurrency
//
// The pool holds a single connection and the database runs in WAL mode, so
// writes are serialized and never fail with SQLITE_BUSY inside the process.
package storage
