package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dshills/lynxcheck/internal/checker"
	"github.com/dshills/lynxcheck/internal/dispatch"
	"github.com/dshills/lynxcheck/internal/storage"
	"github.com/dshills/lynxcheck/internal/task"
	"github.com/dshills/lynxcheck/pkg/types"
)

type handler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// typoResult flags every "teh" in text
func typoResult(text string) types.CheckResult {
	res := types.CheckResult{Text: text}
	for i := 0; ; {
		j := strings.Index(text[i:], "teh")
		if j < 0 {
			break
		}
		start := i + j
		res.Alerts = append(res.Alerts, types.Alert{
			Group:        "Correctness",
			Title:        "Misspelled word",
			Category:     "Misspelled",
			Content:      "teh",
			Range:        types.Range{Start: start, End: start + 3},
			Replacements: []string{"the"},
		})
		i = start + 3
	}
	return res
}

func typoSessions() dispatch.Runner {
	return dispatch.RunnerFunc(func(ctx context.Context, src task.Source) error {
		for t := src.Next(); t != nil; t = src.Next() {
			if t.Disposed() {
				continue
			}
			t.Complete(typoResult(t.Text()))
		}
		return nil
	})
}

func newTestServer(t *testing.T, seed *storage.Settings) (*Server, storage.Storage) {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	if seed != nil {
		require.NoError(t, store.SaveSettings(ctx, seed))
	}

	svc, err := checker.New(checker.Config{
		Settings: checker.Settings{DebounceInterval: 10 * time.Millisecond},
		Sessions: typoSessions,
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)

	srv, err := NewServer(ctx, Deps{Storage: store, Checker: svc, Logger: zap.NewNop(), Workers: 2})
	require.NoError(t, err)

	t.Cleanup(func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Close(closeCtx)
		_ = store.Close()
	})
	return srv, store
}

func call(t *testing.T, h handler, args map[string]interface{}) (map[string]interface{}, error) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args

	result, err := h(context.Background(), req)
	if err != nil {
		return nil, err
	}
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out, nil
}

func requireCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected MCPError, got %v", err)
	assert.Equal(t, code, mcpErr.Code)
}

func findings(t *testing.T, resp map[string]interface{}) []map[string]interface{} {
	t.Helper()
	raw, ok := resp["findings"].([]interface{})
	require.True(t, ok)
	out := make([]map[string]interface{}, 0, len(raw))
	for _, f := range raw {
		out = append(out, f.(map[string]interface{}))
	}
	return out
}

func TestNewServer(t *testing.T) {
	t.Run("seeds settings on first start", func(t *testing.T) {
		srv, store := newTestServer(t, nil)

		stored, err := store.GetSettings(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 10, stored.DebounceIntervalMS)
		assert.Equal(t, storage.DefaultCacheLifespanMinutes, stored.CacheLifespanMinutes)
		assert.True(t, stored.OnTheFly)
		assert.Equal(t, 10*time.Millisecond, srv.checker.Settings().DebounceInterval)
	})

	t.Run("applies stored settings", func(t *testing.T) {
		seed := storage.DefaultSettings()
		seed.MaxParallelSessions = 2
		seed.CacheLifespanMinutes = 5
		seed.Exclusions = []string{"category:Wordy"}
		srv, _ := newTestServer(t, seed)

		status := srv.checker.Status()
		assert.Equal(t, 2, status.Parallelism)
		assert.Equal(t, 5*time.Minute, status.CacheLifespan)
		assert.Equal(t, []string{"category:Wordy"}, srv.currentSettings().Exclusions)
	})

	t.Run("requires dependencies", func(t *testing.T) {
		_, err := NewServer(context.Background(), Deps{})
		assert.Error(t, err)
	})
}

func TestCheckText_Sync(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := call(t, srv.handleCheckText, map[string]interface{}{
		"text": "This is teh text.",
	})
	require.NoError(t, err)
	assert.Equal(t, "paragraph", resp["kind"])
	assert.Equal(t, float64(1), resp["checked"])

	got := findings(t, resp)
	require.Len(t, got, 1)
	assert.Equal(t, "teh", got[0]["content"])
	assert.Equal(t, float64(1), got[0]["line"])
	assert.Equal(t, float64(9), got[0]["column"])
	assert.Equal(t, float64(8), got[0]["start"])

	suggestions := got[0]["suggestions"].([]interface{})
	require.Len(t, suggestions, 1)
	sg := suggestions[0].(map[string]interface{})
	assert.Equal(t, `Replace with "the"`, sg["label"])
	assert.Equal(t, "the", sg["replacement"])
	assert.Equal(t, "This is the text.", sg["result"])

	_, hasPending := resp["pending"]
	assert.False(t, hasPending)
}

func TestCheckText_Async(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	args := map[string]interface{}{
		"text": "Fix teh bug.",
		"sync": false,
	}

	resp, err := call(t, srv.handleCheckText, args)
	require.NoError(t, err)
	assert.Equal(t, float64(1), resp["pending"])
	assert.Empty(t, findings(t, resp))

	require.Eventually(t, func() bool {
		return !srv.checker.LookUp("Fix teh bug.").IsEmpty()
	}, 2*time.Second, 10*time.Millisecond)

	resp, err = call(t, srv.handleCheckText, args)
	require.NoError(t, err)
	assert.Equal(t, float64(0), resp["pending"])
	assert.Len(t, findings(t, resp), 1)
}

func TestCheckText_AsyncSchedulesEveryInspectable(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	args := map[string]interface{}{
		"kind":     "doc",
		"text":     "Fix teh bug.\n@param x the valu of teh thing",
		"sync":     false,
		"identity": "doc-1",
	}

	resp, err := call(t, srv.handleCheckText, args)
	require.NoError(t, err)
	assert.Equal(t, float64(2), resp["pending"])

	require.Eventually(t, func() bool {
		return srv.checker.Status().CacheEntries == 2
	}, 2*time.Second, 10*time.Millisecond)

	resp, err = call(t, srv.handleCheckText, args)
	require.NoError(t, err)
	assert.Equal(t, float64(0), resp["pending"])
	assert.Len(t, findings(t, resp), 2)
}

func TestCheckText_AsyncOffTheFly(t *testing.T) {
	seed := storage.DefaultSettings()
	seed.OnTheFly = false
	srv, _ := newTestServer(t, seed)

	resp, err := call(t, srv.handleCheckText, map[string]interface{}{
		"text": "Fix teh bug.",
		"sync": false,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(1), resp["pending"])

	time.Sleep(50 * time.Millisecond)
	assert.True(t, srv.checker.LookUp("Fix teh bug.").IsEmpty())
}

func TestCheckText_InvalidParams(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	_, err := call(t, srv.handleCheckText, map[string]interface{}{})
	requireCode(t, err, ErrorCodeEmptyText)

	_, err = call(t, srv.handleCheckText, map[string]interface{}{"text": "x", "kind": "heading"})
	requireCode(t, err, ErrorCodeInvalidParams)

	result, err := srv.handleCheckText(context.Background(), mcp.CallToolRequest{})
	assert.Nil(t, result)
	requireCode(t, err, ErrorCodeInvalidParams)
}

func TestLookupText(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := call(t, srv.handleLookupText, map[string]interface{}{"text": "Read teh docs."})
	require.NoError(t, err)
	assert.Equal(t, false, resp["found"])

	srv.checker.CheckSync(context.Background(), "Read teh docs.")

	resp, err = call(t, srv.handleLookupText, map[string]interface{}{"text": "Read teh docs."})
	require.NoError(t, err)
	assert.Equal(t, true, resp["found"])
	alerts := resp["alerts"].([]interface{})
	require.Len(t, alerts, 1)
	assert.Equal(t, "Misspelled", alerts[0].(map[string]interface{})["category"])

	_, err = call(t, srv.handleLookupText, map[string]interface{}{})
	requireCode(t, err, ErrorCodeEmptyText)
}

func TestClearCache(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	srv.checker.CheckSync(context.Background(), "one teh")
	srv.checker.CheckSync(context.Background(), "two teh")

	resp, err := call(t, srv.handleClearCache, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, float64(2), resp["cleared"])
	assert.Equal(t, 0, srv.checker.Status().CacheEntries)
}

func TestIgnoreAlert(t *testing.T) {
	srv, store := newTestServer(t, nil)
	ctx := context.Background()
	check := func() int {
		resp, err := call(t, srv.handleCheckText, map[string]interface{}{"text": "Use teh tool."})
		require.NoError(t, err)
		return len(findings(t, resp))
	}
	require.Equal(t, 1, check())

	resp, err := call(t, srv.handleIgnoreAlert, map[string]interface{}{
		"text":     "teh",
		"category": "Misspelled",
	})
	require.NoError(t, err)
	assert.Equal(t, "{category:Misspelled}teh", resp["entry"])
	assert.Equal(t, true, resp["added"])
	assert.Equal(t, 0, check())

	resp, err = call(t, srv.handleIgnoreAlert, map[string]interface{}{
		"text":     "teh",
		"category": "Misspelled",
	})
	require.NoError(t, err)
	assert.Equal(t, false, resp["added"])

	entries, err := store.ListExclusions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"{category:Misspelled}teh"}, entries)

	resp, err = call(t, srv.handleRemoveExclusion, map[string]interface{}{"entry": "{category:Misspelled}teh"})
	require.NoError(t, err)
	assert.Equal(t, true, resp["removed"])
	assert.Equal(t, 1, check())

	_, err = call(t, srv.handleRemoveExclusion, map[string]interface{}{"entry": "{category:Misspelled}teh"})
	requireCode(t, err, ErrorCodeNotFound)
}

func TestIgnoreAlert_Category(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := call(t, srv.handleIgnoreAlert, map[string]interface{}{
		"category": "Misspelled",
		"mode":     "category",
	})
	require.NoError(t, err)
	assert.Equal(t, "category:Misspelled", resp["entry"])

	resp, err = call(t, srv.handleCheckText, map[string]interface{}{"text": "Use teh tool."})
	require.NoError(t, err)
	assert.Empty(t, findings(t, resp))
}

func TestIgnoreAlert_InvalidParams(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing category", map[string]interface{}{"text": "teh"}},
		{"missing text", map[string]interface{}{"category": "Misspelled"}},
		{"punctuation", map[string]interface{}{"text": ",", "category": "Punctuation"}},
		{"unknown mode", map[string]interface{}{"text": "teh", "category": "Misspelled", "mode": "file"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call(t, srv.handleIgnoreAlert, tt.args)
			requireCode(t, err, ErrorCodeInvalidParams)
		})
	}
}

func TestUpdateSettings(t *testing.T) {
	srv, store := newTestServer(t, nil)
	ctx := context.Background()

	resp, err := call(t, srv.handleUpdateSettings, map[string]interface{}{
		"max_parallel_sessions":  float64(3),
		"show_advanced_mistakes": false,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(3), resp["max_parallel_sessions"])
	assert.Equal(t, false, resp["show_advanced_mistakes"])
	assert.Equal(t, float64(storage.DefaultCacheLifespanMinutes), resp["cache_lifespan_minutes"])

	assert.Equal(t, 3, srv.checker.Status().Parallelism)
	stored, err := store.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.MaxParallelSessions)
	assert.False(t, stored.ShowAdvancedMistakes)

	resp, err = call(t, srv.handleGetSettings, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, float64(3), resp["max_parallel_sessions"])
	assert.Equal(t, []interface{}{}, resp["exclusions"])

	_, err = call(t, srv.handleUpdateSettings, map[string]interface{}{"max_parallel_sessions": float64(0)})
	requireCode(t, err, ErrorCodeInvalidParams)
	assert.Equal(t, 3, srv.checker.Status().Parallelism)
}

func TestUpdateSettings_KeepsExclusions(t *testing.T) {
	srv, store := newTestServer(t, nil)

	_, err := call(t, srv.handleIgnoreAlert, map[string]interface{}{"category": "Wordy", "mode": "category"})
	require.NoError(t, err)
	_, err = call(t, srv.handleUpdateSettings, map[string]interface{}{"extended_logging": true})
	require.NoError(t, err)

	entries, err := store.ListExclusions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"category:Wordy"}, entries)
	assert.True(t, srv.checker.Settings().ExtendedLogging)
}

func TestCheckProject(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n\n// Run teh job.\nfunc Run() {}\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("Nothing wrong here.\n"), 0644))

	resp, err := call(t, srv.handleCheckProject, map[string]interface{}{"path": root})
	require.NoError(t, err)
	assert.Equal(t, float64(2), resp["files"])
	assert.Equal(t, float64(1), resp["findings_count"])
	assert.Equal(t, false, resp["truncated"])

	got := findings(t, resp)
	require.Len(t, got, 1)
	assert.Equal(t, float64(3), got[0]["line"])
	assert.Equal(t, float64(8), got[0]["column"])
	assert.Contains(t, got[0]["path"], "a.go")
	_, hasResult := got[0]["suggestions"].([]interface{})[0].(map[string]interface{})["result"]
	assert.False(t, hasResult)
}

func TestCheckProject_Truncates(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("teh one\n\nteh two\n\nteh three\n"), 0644))

	resp, err := call(t, srv.handleCheckProject, map[string]interface{}{"path": root, "limit": float64(2)})
	require.NoError(t, err)
	assert.Equal(t, float64(3), resp["findings_count"])
	assert.Len(t, findings(t, resp), 2)
	assert.Equal(t, true, resp["truncated"])
}

func TestCheckProject_InvalidParams(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	empty := t.TempDir()
	withFile := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(withFile, "a.go"), []byte("package a\n"), 0644))

	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{"missing path", map[string]interface{}{}, ErrorCodeInvalidParams},
		{"relative path", map[string]interface{}{"path": "relative/dir"}, ErrorCodeInvalidParams},
		{"no checkable files", map[string]interface{}{"path": empty}, ErrorCodeProjectNotFound},
		{"limit too large", map[string]interface{}{"path": withFile, "limit": float64(5000)}, ErrorCodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call(t, srv.handleCheckProject, tt.args)
			requireCode(t, err, tt.code)
		})
	}
}

func TestGetStatus(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	srv.checker.CheckSync(context.Background(), "status teh")

	resp, err := call(t, srv.handleGetStatus, map[string]interface{}{})
	require.NoError(t, err)

	checkerStatus := resp["checker"].(map[string]interface{})
	assert.Equal(t, float64(1), checkerStatus["cache_entries"])
	assert.Equal(t, "30m0s", checkerStatus["cache_lifespan"])

	storageStatus := resp["storage"].(map[string]interface{})
	assert.Equal(t, storage.CurrentSchemaVersion, storageStatus["schema_version"])
	assert.Equal(t, true, storageStatus["settings_saved"])
}

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(file, []byte("# Title\n"), 0644))

	tests := []struct {
		name string
		path string
		want error
	}{
		{"empty", "", ErrPathRequired},
		{"relative", "some/dir", ErrPathNotAbsolute},
		{"missing", filepath.Join(dir, "missing"), ErrPathNotFound},
		{"file", file, ErrNotDirectory},
		{"no files", t.TempDir(), ErrNoCheckableFiles},
		{"markdown only", dir, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePath(tt.path)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestServiceSettingsRoundTrip(t *testing.T) {
	stored := StoredSettings(checker.Settings{
		CacheLifespan:    10 * time.Minute,
		Parallelism:      4,
		DebounceInterval: 250 * time.Millisecond,
		ExtendedLogging:  true,
	})
	assert.Equal(t, 10, stored.CacheLifespanMinutes)
	assert.Equal(t, 4, stored.MaxParallelSessions)
	assert.Equal(t, 250, stored.DebounceIntervalMS)
	assert.True(t, stored.OnTheFly)

	back := ServiceSettings(stored)
	assert.Equal(t, 10*time.Minute, back.CacheLifespan)
	assert.Equal(t, 4, back.Parallelism)
	assert.Equal(t, 250*time.Millisecond, back.DebounceInterval)
	assert.True(t, back.ExtendedLogging)
}
