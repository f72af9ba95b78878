// Package proofreader checks the prose of a project: comments, doc blocks,
// string literals and Markdown paragraphs.
//
// The pipeline for each file is parse -> inspect -> check -> map back. The
// parser extracts fragments, each fragment becomes one or more inspectables,
// every inspectable is checked synchronously and the alerts that survive the
// filter are re-anchored into file coordinates as findings.
//
// # Basic Usage
//
//	p := proofreader.New(svc, logger)
//	report, err := p.CheckProject(ctx, "/path/to/project", proofreader.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	for _, f := range report.Findings {
//	    fmt.Printf("%s:%d:%d: %s\n", f.Path, f.Position.Line, f.Position.Column, f.Message)
//	}
//
// # Concurrency
//
// Files are checked by an errgroup bounded by Config.Workers. Each worker
// checks the inspectables of its file one after the other, so at most Workers
// dedicated sessions are open at once. Only one project check runs per
// Proofreader; a second concurrent call fails with ErrBusy.
//
// # Errors
//
// Unreadable files, syntax errors and failed checks are collected in
// Report.Errors and do not stop the run. Cancellation does.
package proofreader
