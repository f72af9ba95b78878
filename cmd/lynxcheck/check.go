package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/lynxcheck/internal/inspect"
	"github.com/dshills/lynxcheck/internal/proofreader"
	"github.com/dshills/lynxcheck/pkg/types"
)

var (
	checkKind     string
	includeTests  bool
	includeVendor bool
)

var checkCmd = &cobra.Command{
	Use:   "check [file|dir|-]",
	Short: "Check a file, a project directory or stdin and print findings",
	Long: `Check prose once and print one line per finding:

  path:line:column: message [suggestions]

A directory is checked recursively. "-" reads text from stdin and checks it
as a fragment of the kind given by --kind. The exit status is 1 when
anything was found.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	flags := checkCmd.Flags()
	flags.StringVar(&checkKind, "kind", string(types.FragmentParagraph), "fragment kind for stdin: paragraph, comment, doc or literal")
	flags.BoolVar(&includeTests, "tests", false, "check *_test.go files of a directory")
	flags.BoolVar(&includeVendor, "vendor", false, "check the vendor directory")
}

func runCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	settings, err := a.loadSettings(ctx)
	if err != nil {
		return err
	}
	filter := inspect.Filter{
		Exclusions:   inspect.NewExclusions(settings.Exclusions...),
		ShowAdvanced: settings.ShowAdvancedMistakes,
	}
	p := proofreader.New(a.checker, a.logger.Named("proofreader"))

	var (
		findings []types.Finding
		errs     []string
		label    = args[0]
	)
	switch info, statErr := os.Stat(args[0]); {
	case args[0] == "-":
		label = "<stdin>"
		text, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		res, err := p.CheckText(ctx, types.FragmentKind(checkKind), string(text), filter)
		if err != nil {
			return err
		}
		findings, errs = res.Findings, res.Errors
	case statErr != nil:
		return statErr
	case info.IsDir():
		config := proofreader.DefaultConfig()
		if a.cfg.Workers > 0 {
			config.Workers = a.cfg.Workers
		}
		config.IncludeTests = includeTests
		config.IncludeVendor = includeVendor
		config.Filter = filter
		report, err := p.CheckProject(ctx, args[0], config)
		if err != nil {
			return err
		}
		findings, errs = report.Findings, report.Errors
	default:
		res, err := p.CheckFile(ctx, args[0], filter)
		if err != nil {
			return err
		}
		findings, errs = res.Findings, res.Errors
	}

	out := cmd.OutOrStdout()
	for _, f := range findings {
		path := f.Path
		if path == "" {
			path = label
		}
		fmt.Fprintf(out, "%s:%d:%d: %s%s\n", path, f.Position.Line, f.Position.Column, f.Message, suggestions(f))
	}
	for _, e := range errs {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", e)
	}

	if len(findings) > 0 {
		return errFindings
	}
	return nil
}

func suggestions(f types.Finding) string {
	if len(f.Replacements) == 0 {
		return ""
	}
	labels := make([]string, 0, len(f.Replacements))
	for _, r := range f.Replacements {
		labels = append(labels, inspect.ReplacementLabel(r))
	}
	return " [" + strings.Join(labels, "; ") + "]"
}
