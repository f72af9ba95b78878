package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var fragmentKinds = []string{"paragraph", "comment", "doc", "literal"}

// checkTextTool returns the tool definition for check_text
func checkTextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "check_text",
		Description: "Check a piece of text for grammar, spelling and style mistakes",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Text to check",
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "How the text is interpreted: a Markdown paragraph, a Go comment, a doc comment or a string literal",
					"enum":        fragmentKinds,
					"default":     "paragraph",
				},
				"sync": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, wait for the result. If false, return cached results and schedule the rest.",
					"default":     true,
				},
				"identity": map[string]interface{}{
					"type":        "string",
					"description": "Document identity for debouncing non-sync checks of a text being edited",
				},
			},
			Required: []string{"text"},
		},
	}
}

// checkProjectTool returns the tool definition for check_project
func checkProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "check_project",
		Description: "Check comments, string literals and Markdown files of a project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root",
				},
				"include_tests": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, check *_test.go files",
					"default":     false,
				},
				"include_vendor": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, check the vendor/ directory",
					"default":     false,
				},
				"markdown": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, check .md files",
					"default":     true,
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of findings to return (1-1000)",
					"default":     200,
					"minimum":     1,
					"maximum":     1000,
				},
			},
			Required: []string{"path"},
		},
	}
}

// lookupTextTool returns the tool definition for lookup_text
func lookupTextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "lookup_text",
		Description: "Return the cached result for a text without checking it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Exact text that was checked",
				},
			},
			Required: []string{"text"},
		},
	}
}

// clearCacheTool returns the tool definition for clear_cache
func clearCacheTool() mcp.Tool {
	return mcp.Tool{
		Name:        "clear_cache",
		Description: "Drop every cached result and cancel pending checks",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// ignoreAlertTool returns the tool definition for ignore_alert
func ignoreAlertTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ignore_alert",
		Description: "Stop reporting an alert, either for this exact text or for its whole category",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Content the alert points at",
				},
				"category": map[string]interface{}{
					"type":        "string",
					"description": "Category of the alert",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Ignore the text within its category, or the whole category",
					"enum":        []string{"text", "category"},
					"default":     "text",
				},
			},
			Required: []string{"category"},
		},
	}
}

// removeExclusionTool returns the tool definition for remove_exclusion
func removeExclusionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "remove_exclusion",
		Description: "Report alerts matching a previously ignored entry again",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"entry": map[string]interface{}{
					"type":        "string",
					"description": "Exclusion entry as listed by get_settings",
				},
			},
			Required: []string{"entry"},
		},
	}
}

// getSettingsTool returns the tool definition for get_settings
func getSettingsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_settings",
		Description: "Show the checker settings and the exclusion list",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// updateSettingsTool returns the tool definition for update_settings
func updateSettingsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_settings",
		Description: "Change checker settings. Omitted fields keep their value.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"cache_lifespan_minutes": map[string]interface{}{
					"type":        "integer",
					"description": "How long results stay cached",
					"minimum":     1,
				},
				"max_parallel_sessions": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum concurrent connections for background checks",
					"minimum":     1,
				},
				"debounce_interval_ms": map[string]interface{}{
					"type":        "integer",
					"description": "Quiet period before a debounced check starts",
					"minimum":     0,
				},
				"on_the_fly": map[string]interface{}{
					"type":        "boolean",
					"description": "Check documents while they are edited",
				},
				"show_advanced_mistakes": map[string]interface{}{
					"type":        "boolean",
					"description": "Report advanced (facultative) alerts",
				},
				"extended_logging": map[string]interface{}{
					"type":        "boolean",
					"description": "Attach the raw service log to results",
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report cache occupancy, running sessions and metrics",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
