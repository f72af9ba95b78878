//go:build sqlite_cgo
// +build sqlite_cgo

package storage

// The settings database uses the C SQLite library when built with CGO and
// the sqlite_cgo tag:
//
//   CGO_ENABLED=1 go build -tags "sqlite_cgo" ./cmd/lynxcheck
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
