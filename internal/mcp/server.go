package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/lynxcheck/internal/checker"
	"github.com/dshills/lynxcheck/internal/inspect"
	"github.com/dshills/lynxcheck/internal/metrics"
	"github.com/dshills/lynxcheck/internal/proofreader"
	"github.com/dshills/lynxcheck/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "lynxcheck"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Deps are the components the server exposes as tools
type Deps struct {
	Storage storage.Storage
	Checker *checker.Service
	Logger  *zap.Logger
	Metrics *metrics.Collector
	Workers int // Files checked in parallel by check_project (default: NumCPU)
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp         *server.MCPServer
	storage     storage.Storage
	checker     *checker.Service
	proofreader *proofreader.Proofreader
	logger      *zap.Logger
	metrics     *metrics.Collector
	workers     int

	mu       sync.RWMutex
	settings *storage.Settings
}

// NewServer creates a new MCP server instance. The stored settings are
// loaded, seeded from the checker's current settings on first start, and
// applied to the checker.
func NewServer(ctx context.Context, deps Deps) (*Server, error) {
	if deps.Storage == nil {
		return nil, errors.New("storage is required")
	}
	if deps.Checker == nil {
		return nil, errors.New("checker is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	settings, err := storage.LoadOrSeed(ctx, deps.Storage, StoredSettings(deps.Checker.Settings()))
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := deps.Checker.Reconfigure(ctx, ServiceSettings(settings)); err != nil {
		return nil, fmt.Errorf("failed to apply settings: %w", err)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:         mcpServer,
		storage:     deps.Storage,
		checker:     deps.Checker,
		proofreader: proofreader.New(deps.Checker, logger.Named("proofreader")),
		logger:      logger,
		metrics:     deps.Metrics,
		workers:     deps.Workers,
		settings:    settings,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(checkTextTool(), s.handleCheckText)
	s.mcp.AddTool(checkProjectTool(), s.handleCheckProject)
	s.mcp.AddTool(lookupTextTool(), s.handleLookupText)
	s.mcp.AddTool(clearCacheTool(), s.handleClearCache)
	s.mcp.AddTool(ignoreAlertTool(), s.handleIgnoreAlert)
	s.mcp.AddTool(removeExclusionTool(), s.handleRemoveExclusion)
	s.mcp.AddTool(getSettingsTool(), s.handleGetSettings)
	s.mcp.AddTool(updateSettingsTool(), s.handleUpdateSettings)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)

	return nil
}

// currentSettings returns a copy of the settings in effect
func (s *Server) currentSettings() storage.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := *s.settings
	out.Exclusions = append([]string(nil), s.settings.Exclusions...)
	return out
}

// filter builds the alert filter from the current settings
func (s *Server) filter() inspect.Filter {
	settings := s.currentSettings()
	return inspect.Filter{
		Exclusions:   inspect.NewExclusions(settings.Exclusions...),
		ShowAdvanced: settings.ShowAdvancedMistakes,
	}
}

// reloadExclusions refreshes the cached exclusion list from storage
func (s *Server) reloadExclusions(ctx context.Context) error {
	entries, err := s.storage.ListExclusions(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.settings.Exclusions = entries
	s.mu.Unlock()
	return nil
}

// ServiceSettings converts stored settings into checker settings
func ServiceSettings(s *storage.Settings) checker.Settings {
	return checker.Settings{
		CacheLifespan:    s.CacheLifespan(),
		Parallelism:      s.MaxParallelSessions,
		DebounceInterval: s.DebounceInterval(),
		ExtendedLogging:  s.ExtendedLogging,
	}
}

// StoredSettings converts checker settings into a storable record with the
// default on-the-fly and advanced-mistake flags
func StoredSettings(c checker.Settings) *storage.Settings {
	out := storage.DefaultSettings()
	out.CacheLifespanMinutes = int(c.CacheLifespan / time.Minute)
	if out.CacheLifespanMinutes < 1 {
		out.CacheLifespanMinutes = 1
	}
	out.MaxParallelSessions = c.Parallelism
	out.DebounceIntervalMS = int(c.DebounceInterval / time.Millisecond)
	out.ExtendedLogging = c.ExtendedLogging
	return out
}
