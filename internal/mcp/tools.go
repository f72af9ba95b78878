package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/dshills/lynxcheck/internal/inspect"
	"github.com/dshills/lynxcheck/internal/parser"
	"github.com/dshills/lynxcheck/internal/proofreader"
	"github.com/dshills/lynxcheck/internal/storage"
	"github.com/dshills/lynxcheck/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound = -32001 // Specified path does not contain checkable files
	ErrorCodeCheckInProgress = -32002 // Another project check is already running
	ErrorCodeNotFound        = -32003 // Exclusion not found
	ErrorCodeEmptyText       = -32004 // Text parameter is empty
)

// handleCheckText handles the check_text tool invocation
func (s *Server) handleCheckText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	text, ok := args["text"].(string)
	if !ok || text == "" {
		return nil, newMCPError(ErrorCodeEmptyText, "text parameter is required and cannot be empty", map[string]interface{}{
			"param":  "text",
			"reason": "missing or empty",
		})
	}

	kind := types.FragmentKind(getStringDefault(args, "kind", string(types.FragmentParagraph)))
	if !types.ValidKind(kind) {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid kind", map[string]interface{}{
			"param":   "kind",
			"value":   kind,
			"allowed": fragmentKinds,
		})
	}
	sync := getBoolDefault(args, "sync", true)
	identity := getStringDefault(args, "identity", "")

	var (
		res     proofreader.FileResult
		err     error
		pending int
	)
	if sync {
		res, err = s.proofreader.CheckText(ctx, kind, text, s.filter())
	} else {
		sched := &scheduler{server: s, identity: identity, onTheFly: s.currentSettings().OnTheFly}
		res, err = s.proofreader.CheckTextWith(ctx, sched, kind, text, s.filter())
		pending = int(sched.pending.Load())
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "check failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"kind":     string(kind),
		"checked":  res.Checked,
		"failed":   res.Failed,
		"findings": findingsJSON(res.Findings, text),
	}
	if !sync {
		response["pending"] = pending
	}
	if len(res.Errors) > 0 {
		response["errors"] = res.Errors
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// scheduler answers from the cache and schedules a background check for
// every text that has no result yet. Each inspectable of the checked text
// is debounced under its own identity, keyed by its position in the text.
type scheduler struct {
	server   *Server
	identity string
	onTheFly bool
	calls    atomic.Int32
	pending  atomic.Int32
}

func (c *scheduler) CheckSync(ctx context.Context, text string) types.CheckResult {
	index := c.calls.Add(1) - 1
	res := c.server.checker.LookUp(text)
	if !res.IsEmpty() {
		return res
	}
	c.pending.Add(1)
	if c.onTheFly {
		c.server.checker.CheckAsyncDebounced(context.WithoutCancel(ctx), c.inspectableID(index), text)
	}
	return types.EMPTY
}

// inspectableID is empty when the caller gave no identity
func (c *scheduler) inspectableID(index int32) string {
	if c.identity == "" {
		return ""
	}
	return c.identity + "#" + strconv.Itoa(int(index))
}

// handleCheckProject handles the check_project tool invocation
func (s *Server) handleCheckProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		code := ErrorCodeInvalidParams
		if errors.Is(err, ErrNoCheckableFiles) {
			code = ErrorCodeProjectNotFound
		}
		return nil, newMCPError(code, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	limit := getIntDefault(args, "limit", 200)
	if limit < 1 || limit > 1000 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 1000", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	config := proofreader.DefaultConfig()
	if s.workers > 0 {
		config.Workers = s.workers
	}
	config.IncludeTests = getBoolDefault(args, "include_tests", false)
	config.IncludeVendor = getBoolDefault(args, "include_vendor", false)
	config.Markdown = getBoolDefault(args, "markdown", true)
	config.Filter = s.filter()

	report, err := s.proofreader.CheckProject(ctx, path, config)
	if errors.Is(err, proofreader.ErrBusy) {
		return nil, newMCPError(ErrorCodeCheckInProgress, "a project check is already running", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "project check failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	findings := report.Findings
	truncated := false
	if len(findings) > limit {
		findings = findings[:limit]
		truncated = true
	}

	response := map[string]interface{}{
		"files":          report.Files,
		"checked":        report.Checked,
		"failed":         report.Failed,
		"findings_count": len(report.Findings),
		"findings":       findingsJSON(findings, ""),
		"truncated":      truncated,
		"duration_ms":    report.Duration.Milliseconds(),
	}

	if len(report.Errors) > 0 {
		// Include first few errors
		errorCount := len(report.Errors)
		if errorCount > 5 {
			response["errors"] = report.Errors[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = report.Errors
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleLookupText handles the lookup_text tool invocation
func (s *Server) handleLookupText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	text, ok := args["text"].(string)
	if !ok || text == "" {
		return nil, newMCPError(ErrorCodeEmptyText, "text parameter is required and cannot be empty", map[string]interface{}{
			"param":  "text",
			"reason": "missing or empty",
		})
	}

	res := s.checker.LookUp(text)
	if res.IsEmpty() {
		response := map[string]interface{}{
			"found":   false,
			"message": "No cached result. Use check_text to check this text.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	filter := s.filter()
	alerts := make([]map[string]interface{}, 0, len(res.Alerts))
	for _, a := range res.Alerts {
		if a.Facultative && !filter.ShowAdvanced {
			continue
		}
		if filter.Exclusions.Excludes(a) {
			continue
		}
		alerts = append(alerts, map[string]interface{}{
			"start":        a.Range.Start,
			"end":          a.Range.End,
			"content":      a.Content,
			"message":      a.FullMessage(),
			"category":     a.Category,
			"facultative":  a.Facultative,
			"replacements": a.Replacements,
		})
	}

	response := map[string]interface{}{
		"found":  true,
		"alerts": alerts,
	}
	if res.Failed() {
		response["error"] = res.Err.Error()
	}
	if res.Log != "" {
		response["log"] = res.Log
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleClearCache handles the clear_cache tool invocation
func (s *Server) handleClearCache(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	before := s.checker.Status().CacheEntries
	s.checker.CleanUp()
	s.logger.Info("cache cleared", zap.Int("entries", before))

	response := map[string]interface{}{
		"cleared": before,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIgnoreAlert handles the ignore_alert tool invocation
func (s *Server) handleIgnoreAlert(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	category, ok := args["category"].(string)
	if !ok || category == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "category parameter is required", map[string]interface{}{
			"param":  "category",
			"reason": "missing or empty",
		})
	}
	alert := types.Alert{
		Category: category,
		Content:  getStringDefault(args, "text", ""),
	}

	var entry string
	switch mode := getStringDefault(args, "mode", "text"); mode {
	case "text":
		e, ok := inspect.IgnoreText(alert)
		if !ok {
			return nil, newMCPError(ErrorCodeInvalidParams, "alert text cannot be ignored on its own", map[string]interface{}{
				"param":  "text",
				"reason": "empty text or punctuation category",
			})
		}
		entry = e
	case "category":
		entry = inspect.IgnoreCategory(alert)
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
			"param":   "mode",
			"value":   mode,
			"allowed": []string{"text", "category"},
		})
	}

	added := true
	err := s.storage.AddExclusion(ctx, entry)
	switch {
	case errors.Is(err, storage.ErrAlreadyExists):
		added = false
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "failed to add exclusion", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err := s.reloadExclusions(ctx); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to reload exclusions", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"entry": entry,
		"added": added,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRemoveExclusion handles the remove_exclusion tool invocation
func (s *Server) handleRemoveExclusion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	entry, ok := args["entry"].(string)
	if !ok || entry == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "entry parameter is required", map[string]interface{}{
			"param":  "entry",
			"reason": "missing or empty",
		})
	}

	err := s.storage.RemoveExclusion(ctx, entry)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotFound, "exclusion not found", map[string]interface{}{
			"entry": entry,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to remove exclusion", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err := s.reloadExclusions(ctx); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to reload exclusions", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"entry":   entry,
		"removed": true,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetSettings handles the get_settings tool invocation
func (s *Server) handleGetSettings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatJSON(settingsJSON(s.currentSettings()))), nil
}

// handleUpdateSettings handles the update_settings tool invocation
func (s *Server) handleUpdateSettings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	updated := s.currentSettings()
	updated.CacheLifespanMinutes = getIntDefault(args, "cache_lifespan_minutes", updated.CacheLifespanMinutes)
	updated.MaxParallelSessions = getIntDefault(args, "max_parallel_sessions", updated.MaxParallelSessions)
	updated.DebounceIntervalMS = getIntDefault(args, "debounce_interval_ms", updated.DebounceIntervalMS)
	updated.OnTheFly = getBoolDefault(args, "on_the_fly", updated.OnTheFly)
	updated.ShowAdvancedMistakes = getBoolDefault(args, "show_advanced_mistakes", updated.ShowAdvancedMistakes)
	updated.ExtendedLogging = getBoolDefault(args, "extended_logging", updated.ExtendedLogging)

	if err := updated.Validate(); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid settings", map[string]interface{}{
			"reason": err.Error(),
		})
	}

	if err := s.storage.SaveSettings(ctx, &updated); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to save settings", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err := s.checker.Reconfigure(ctx, ServiceSettings(&updated)); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to apply settings", map[string]interface{}{
			"error": err.Error(),
		})
	}

	s.mu.Lock()
	s.settings = &updated
	s.mu.Unlock()
	s.logger.Info("settings updated",
		zap.Int("cache_lifespan_minutes", updated.CacheLifespanMinutes),
		zap.Int("max_parallel_sessions", updated.MaxParallelSessions),
		zap.Int("debounce_interval_ms", updated.DebounceIntervalMS))

	return mcp.NewToolResultText(formatJSON(settingsJSON(updated))), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dbStatus, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}
	status := s.checker.Status()

	response := map[string]interface{}{
		"checker": map[string]interface{}{
			"cache_entries":      status.CacheEntries,
			"cache_lifespan":     status.CacheLifespan.String(),
			"active_sessions":    status.ActiveSessions,
			"pending_tasks":      status.PendingTasks,
			"parallelism":        status.Parallelism,
			"debounced_requests": status.Debouncing,
		},
		"storage": map[string]interface{}{
			"schema_version":   dbStatus.SchemaVersion,
			"build_mode":       dbStatus.BuildMode,
			"exclusions":       dbStatus.Exclusions,
			"settings_saved":   dbStatus.SettingsSaved,
			"database_size_mb": fmt.Sprintf("%.2f", dbStatus.DatabaseSizeMB),
		},
		"metrics": s.metrics.Snapshot(),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// findingsJSON renders findings for a response. When text is the checked
// text, every suggestion also carries the text with the fix applied.
func findingsJSON(findings []types.Finding, text string) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(findings))
	for _, f := range findings {
		suggestions := make([]map[string]interface{}, 0, len(f.Replacements))
		for _, r := range f.Replacements {
			sg := map[string]interface{}{
				"label":       inspect.ReplacementLabel(r),
				"replacement": inspect.FullReplacement(f.Content, r),
			}
			if text != "" {
				sg["result"] = inspect.ApplyReplacement(text, f.Range, r)
			}
			suggestions = append(suggestions, sg)
		}
		item := map[string]interface{}{
			"kind":        string(f.Kind),
			"line":        f.Position.Line,
			"column":      f.Position.Column,
			"start":       f.Range.Start,
			"end":         f.Range.End,
			"content":     f.Content,
			"message":     f.Message,
			"category":    f.Category,
			"facultative": f.Facultative,
			"suggestions": suggestions,
		}
		if f.Path != "" {
			item["path"] = f.Path
		}
		out = append(out, item)
	}
	return out
}

func settingsJSON(s storage.Settings) map[string]interface{} {
	exclusions := s.Exclusions
	if exclusions == nil {
		exclusions = []string{}
	}
	out := map[string]interface{}{
		"cache_lifespan_minutes": s.CacheLifespanMinutes,
		"max_parallel_sessions":  s.MaxParallelSessions,
		"debounce_interval_ms":   s.DebounceIntervalMS,
		"on_the_fly":             s.OnTheFly,
		"show_advanced_mistakes": s.ShowAdvancedMistakes,
		"extended_logging":       s.ExtendedLogging,
		"exclusions":             exclusions,
	}
	if !s.UpdatedAt.IsZero() {
		out["updated_at"] = s.UpdatedAt.Format(time.RFC3339)
	}
	return out
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that a path is an accessible directory holding at
// least one file the proofreader can check
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	found := errors.New("found")
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && parser.Supported(p) {
			return found
		}
		return nil
	})
	if !errors.Is(err, found) {
		return ErrNoCheckableFiles
	}

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired     = errors.New("path is required")
	ErrPathNotAbsolute  = errors.New("path must be absolute")
	ErrPathNotFound     = errors.New("path does not exist")
	ErrPathNotReadable  = errors.New("path is not readable")
	ErrNotDirectory     = errors.New("path is not a directory")
	ErrNoCheckableFiles = errors.New("directory does not contain Go or Markdown files")
)
