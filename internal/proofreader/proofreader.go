package proofreader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/lynxcheck/internal/inspect"
	"github.com/dshills/lynxcheck/internal/parser"
	"github.com/dshills/lynxcheck/pkg/types"
)

// ErrBusy is returned when a project check is already running
var ErrBusy = errors.New("a project check is already running")

// Checker checks one text synchronously. *checker.Service implements it.
type Checker interface {
	CheckSync(ctx context.Context, text string) types.CheckResult
}

// Proofreader coordinates the pipeline: parse -> inspect -> check -> map back
type Proofreader struct {
	checker Checker
	parser  *parser.Parser
	logger  *zap.Logger
	running RunLock
}

// Config contains configuration for a project check
type Config struct {
	Workers       int  // Files checked concurrently (default: runtime.NumCPU())
	IncludeTests  bool // Whether to check test files
	IncludeVendor bool // Whether to check the vendor directory
	Markdown      bool // Whether to check .md files
	Filter        inspect.Filter
}

// DefaultConfig returns the configuration used when none is given
func DefaultConfig() *Config {
	return &Config{
		Workers:  runtime.NumCPU(),
		Markdown: true,
		Filter:   inspect.Filter{ShowAdvanced: true},
	}
}

// Report summarizes a project check
type Report struct {
	Files    int
	Checked  int // Inspectables sent to the checker
	Failed   int // Inspectables whose check failed
	Findings []types.Finding
	Duration time.Duration
	Errors   []string
}

// New creates a Proofreader that checks text with c
func New(c Checker, logger *zap.Logger) *Proofreader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Proofreader{
		checker: c,
		parser:  parser.New(),
		logger:  logger,
	}
}

// CheckProject checks every supported file under rootPath.
// Files that cannot be read or parsed are reported in Report.Errors; only
// cancellation aborts the run.
func (p *Proofreader) CheckProject(ctx context.Context, rootPath string, config *Config) (*Report, error) {
	if !p.running.TryAcquire() {
		return nil, ErrBusy
	}
	defer p.running.Release()

	if config == nil {
		config = DefaultConfig()
	}
	workers := config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	startTime := time.Now()
	files, err := discoverFiles(rootPath, config)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	report := &Report{Files: len(files)}
	var (
		checked atomic.Int32
		failed  atomic.Int32
		mu      sync.Mutex // Protects report.Findings and report.Errors
	)

	semaphore := make(chan struct{}, workers)
	g, gctx := errgroup.WithContext(ctx)
	for _, path := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			res, err := p.CheckFile(gctx, path, config.Filter)
			if gctx.Err() != nil {
				return gctx.Err()
			}
			checked.Add(int32(res.Checked))
			failed.Add(int32(res.Failed))

			mu.Lock()
			defer mu.Unlock()
			report.Findings = append(report.Findings, res.Findings...)
			report.Errors = append(report.Errors, res.Errors...)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", path, err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.Checked = int(checked.Load())
	report.Failed = int(failed.Load())
	report.Findings = dedupe(report.Findings)
	sort.Strings(report.Errors)
	report.Duration = time.Since(startTime)

	p.logger.Info("project checked",
		zap.String("root", rootPath),
		zap.Int("files", report.Files),
		zap.Int("findings", len(report.Findings)),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// FileResult is the outcome of checking one file
type FileResult struct {
	Checked  int
	Failed   int
	Findings []types.Finding
	Errors   []string
}

// CheckFile checks the fragments of one file
func (p *Proofreader) CheckFile(ctx context.Context, path string, filter inspect.Filter) (FileResult, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return FileResult{}, fmt.Errorf("failed to read file: %w", err)
	}
	parsed, err := p.parser.ParseSource(path, src)
	if err != nil {
		return FileResult{}, err
	}

	var res FileResult
	for _, pe := range parsed.Errors {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", path, pe.Message))
	}
	lines := newLineIndex(src)
	for _, frag := range parsed.Fragments {
		for _, in := range inspect.FromFragment(frag) {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			p.check(ctx, path, in, filter, lines, &res)
		}
	}
	res.Findings = dedupe(res.Findings)
	return res, nil
}

// CheckText checks free text as if it were a fragment of the given kind
func (p *Proofreader) CheckText(ctx context.Context, kind types.FragmentKind, text string, filter inspect.Filter) (FileResult, error) {
	return p.CheckTextWith(ctx, p.checker, kind, text, filter)
}

// CheckTextWith is CheckText with c in place of the configured checker
func (p *Proofreader) CheckTextWith(ctx context.Context, c Checker, kind types.FragmentKind, text string, filter inspect.Filter) (FileResult, error) {
	if !types.ValidKind(kind) {
		return FileResult{}, fmt.Errorf("unknown fragment kind %q", kind)
	}
	frag := types.SourceFragment{
		Kind:  kind,
		Parts: []types.FragmentPart{{Text: text, Position: types.Position{Line: 1, Column: 1}}},
	}

	var res FileResult
	lines := newLineIndex([]byte(text))
	for _, in := range inspect.FromFragment(frag) {
		p.checkWith(ctx, c, "", in, filter, lines, &res)
	}
	return res, nil
}

func (p *Proofreader) check(ctx context.Context, path string, in inspect.Inspectable, filter inspect.Filter, lines lineIndex, res *FileResult) {
	p.checkWith(ctx, p.checker, path, in, filter, lines, res)
}

func (p *Proofreader) checkWith(ctx context.Context, c Checker, path string, in inspect.Inspectable, filter inspect.Filter, lines lineIndex, res *FileResult) {
	result := c.CheckSync(ctx, in.Text())
	res.Checked++
	if result.Failed() {
		res.Failed++
		res.Errors = append(res.Errors, fmt.Sprintf("%s: check failed: %v", displayPath(path), result.Err))
		return
	}

	for _, a := range result.Alerts {
		if !filter.Accept(in, a) {
			continue
		}
		r, ok := in.ToSourceRange(a.Range)
		if !ok {
			p.logger.Debug("alert outside checked text",
				zap.String("path", path),
				zap.Int("start", a.Range.Start),
				zap.Int("end", a.Range.End))
			continue
		}
		f := types.Finding{
			Path:        path,
			Kind:        in.Kind(),
			Position:    lines.position(r.Start),
			Range:       r,
			Content:     a.Content,
			Message:     a.FullMessage(),
			Category:    a.Category,
			Facultative: a.Facultative,
		}
		if in.CanReplace(a) {
			f.Replacements = append([]string(nil), a.Replacements...)
		}
		res.Findings = append(res.Findings, f)
	}
}

// discoverFiles finds all checkable files in the project
func discoverFiles(rootPath string, config *Config) ([]string, error) {
	var files []string

	err := filepath.WalkDir(rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path == rootPath {
				return nil
			}
			// Skip vendor unless explicitly included
			if !config.IncludeVendor && d.Name() == "vendor" {
				return filepath.SkipDir
			}
			// Skip hidden directories
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !parser.Supported(path) {
			return nil
		}
		if strings.HasSuffix(path, ".go") {
			if !config.IncludeTests && strings.HasSuffix(path, "_test.go") {
				return nil
			}
		} else if !config.Markdown {
			return nil
		}

		files = append(files, path)
		return nil
	})

	sort.Strings(files)
	return files, err
}

// dedupe sorts findings by location and drops exact repeats
func dedupe(findings []types.Finding) []types.Finding {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Range.Start != b.Range.Start {
			return a.Range.Start < b.Range.Start
		}
		return a.Range.End < b.Range.End
	})

	out := findings[:0]
	for i, f := range findings {
		if i > 0 {
			prev := out[len(out)-1]
			if prev.Path == f.Path && prev.Range == f.Range && prev.Message == f.Message {
				continue
			}
		}
		out = append(out, f)
	}
	return out
}

func displayPath(path string) string {
	if path == "" {
		return "<text>"
	}
	return path
}

// lineIndex maps byte offsets to 1-based line and column
type lineIndex []int

func newLineIndex(src []byte) lineIndex {
	idx := lineIndex{0}
	for i, b := range src {
		if b == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

func (l lineIndex) position(offset int) types.Position {
	line := sort.SearchInts(l, offset+1) - 1
	return types.Position{Line: line + 1, Column: offset - l[line] + 1}
}
