// Package mcp implements the Model Context Protocol (MCP) server for lynxcheck.
//
// The MCP server exposes the checker to AI coding assistants:
//   - check_text: Check a piece of text, waiting for the result or not
//   - check_project: Check comments, literals and Markdown of a project
//   - lookup_text: Return a cached result without checking
//   - clear_cache: Drop cached results and cancel pending checks
//   - ignore_alert / remove_exclusion: Manage the exclusion list
//   - get_settings / update_settings: Read and change persisted settings
//   - get_status: Cache, session and storage statistics
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// # Basic Usage
//
// The MCP server is typically started via the serve command:
//
//	lynxcheck serve
//
// # Tool: check_text
//
//	Request:
//	{
//	  "name": "check_text",
//	  "arguments": {
//	    "text": "This is teh text.",
//	    "kind": "paragraph",
//	    "sync": true
//	  }
//	}
//
//	Response:
//	{
//	  "kind": "paragraph",
//	  "checked": 1,
//	  "failed": 0,
//	  "findings": [
//	    {
//	      "line": 1,
//	      "column": 9,
//	      "start": 8,
//	      "end": 11,
//	      "content": "teh",
//	      "message": "Correctness mistake: Misspelled word",
//	      "category": "Misspelled",
//	      "suggestions": [
//	        {"label": "Replace with \"the\"", "replacement": "the", "result": "This is the text."}
//	      ]
//	    }
//	  ]
//	}
//
// With "sync": false the call never blocks. Texts without a cached result
// are counted in "pending" and, when on-the-fly checking is enabled,
// scheduled in the background. Passing an "identity" debounces those
// checks per document.
//
// # Tool: ignore_alert
//
// Mode "text" hides one content within its category and stores the entry
// "{category:<category>}<text>". Mode "category" stores "category:<category>".
// Both apply to later check_text and check_project calls.
//
// # Settings
//
// Settings live in the SQLite database. On first start they are seeded from
// the command-line configuration; afterwards the stored values win.
// update_settings persists the change and then reconfigures the checker;
// changing the lifespan, parallelism or debounce interval discards the cache.
//
// # Error Handling
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: Path holds no Go or Markdown files
//   - -32002: Project check in progress
//   - -32003: Exclusion not found
//   - -32004: Empty text
//
// # Logging
//
// The MCP server logs to stderr (stdout is reserved for MCP protocol).
package mcp
