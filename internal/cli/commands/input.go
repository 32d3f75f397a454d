package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/leapstack-labs/leapcols/internal/batch"
	"github.com/leapstack-labs/leapcols/internal/cli/output"
	"github.com/leapstack-labs/leapcols/internal/sqlcheck"
	"github.com/leapstack-labs/leapcols/internal/watch"
	"github.com/leapstack-labs/leapcols/pkg/lineage"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// errNoInput is returned when no statement was given and stdin is a terminal.
var errNoInput = errors.New("no SQL given: pass --query, file arguments, or pipe a statement on stdin")

// inputOptions holds the flags shared by commands that read SQL.
type inputOptions struct {
	Query  string
	Watch  bool
	Strict bool
}

func addInputFlags(cmd *cobra.Command, opts *inputOptions) {
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "SQL statement to analyse (instead of files or stdin)")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-run whenever an input file changes")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Exit non-zero when any statement cannot be parsed")
	cmd.Flags().Duration("debounce", 0, "Quiet period before re-running in watch mode (default 200ms)")
	cmd.Flags().IntP("concurrency", "j", 0, "Files processed in parallel (default GOMAXPROCS)")
	cmd.Flags().String("validate", "", "Also check syntax with an embedded engine (sqlite|duckdb)")
	cmd.Flags().Lookup("validate").NoOptDefVal = sqlcheck.EngineSQLite
	_ = cmd.RegisterFlagCompletionFunc("validate", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return sqlcheck.Engines(), cobra.ShellCompDirectiveNoFileComp
	})
}

// renderFunc renders a set of reports in the renderer's mode.
type renderFunc func([]output.Report) error

// runInput collects reports from the command's input, renders them and,
// with --watch, keeps re-rendering on file changes until interrupted.
func runInput(cmd *cobra.Command, cc *CommandContext, args []string, opts *inputOptions, render renderFunc) error {
	if opts.Query != "" && len(args) > 0 {
		return errors.New("use either --query or file arguments, not both")
	}
	if opts.Watch && len(args) == 0 {
		return errors.New("--watch needs file arguments")
	}

	ctx := cmd.Context()

	checker, err := openChecker(ctx, cc)
	if err != nil {
		return err
	}
	if checker != nil {
		defer func() { _ = checker.Close() }()
	}

	if len(args) == 0 {
		query := opts.Query
		if query == "" {
			if query, err = readStdin(cmd.InOrStdin()); err != nil {
				return err
			}
		}
		res, err := lineage.ExtractWithOptions(query, cc.LineageOptions())
		if err != nil {
			cc.Logger.Debug("extraction failed", "kind", lineage.ErrorKind(err), "error", err)
		}
		rep := output.NewReport("", res, err)

		if checker != nil {
			syntaxErr, err := batch.Validate(ctx, checker, query)
			if err != nil {
				return fmt.Errorf("failed to validate statement: %w", err)
			}
			rep.Validation = output.NewValidationInfo(syntaxErr)
		}
		return finish(cc, []output.Report{rep}, opts, render)
	}

	paths, err := batch.Expand(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no .sql files found in %s", strings.Join(args, ", "))
	}

	reports, err := extractFiles(ctx, cc, paths, checker)
	if err != nil {
		return err
	}
	if !opts.Watch {
		return finish(cc, reports, opts, render)
	}
	if err := render(reports); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	debounce := cc.Cfg.Watch.Debounce
	cc.Renderer.Success(fmt.Sprintf("Watching %d file(s), press Ctrl+C to stop", len(paths)))

	return watch.Watch(ctx, paths, watch.Options{Debounce: debounce, Logger: cc.Logger}, func(changed []string) error {
		cc.Logger.Info("files changed", "files", changed)
		reports, err := extractFiles(ctx, cc, paths, checker)
		if err != nil {
			// A file removed mid-edit is reported and watching continues.
			cc.Renderer.Warning(err.Error())
			return nil
		}
		cc.Renderer.Println()
		cc.Renderer.Muted("changed: " + strings.Join(changed, ", "))
		return render(reports)
	})
}

// finish renders reports and applies --strict.
func finish(cc *CommandContext, reports []output.Report, opts *inputOptions, render renderFunc) error {
	if err := render(reports); err != nil {
		return err
	}
	if !opts.Strict {
		return nil
	}

	failed := 0
	for _, rep := range reports {
		if rep.Failed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d statement(s) could not be parsed", failed, len(reports))
	}
	return nil
}

func extractFiles(ctx context.Context, cc *CommandContext, paths []string, checker sqlcheck.Checker) ([]output.Report, error) {
	results, err := batch.Run(ctx, paths, batch.Options{
		Concurrency: cc.Cfg.Concurrency,
		Lineage:     cc.LineageOptions(),
		Checker:     checker,
		Logger:      cc.Logger,
	})
	if err != nil {
		return nil, err
	}

	reports := make([]output.Report, 0, len(results))
	for _, r := range results {
		rep := output.NewReport(r.Path, r.Result, r.Err)
		rep.Validation = output.NewValidationInfo(r.Syntax)
		reports = append(reports, rep)
	}
	return reports, nil
}

// openChecker starts the configured syntax engine, or returns nil when
// validation is off.
func openChecker(ctx context.Context, cc *CommandContext) (sqlcheck.Checker, error) {
	if cc.Cfg.Validation == "" {
		return nil, nil
	}
	checker, err := sqlcheck.Open(ctx, cc.Cfg.Validation)
	if err != nil {
		return nil, err
	}
	cc.Logger.Debug("validating with engine", "engine", checker.Engine())
	return checker, nil
}

func readStdin(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // fd fits in int
		return "", errNoInput
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errNoInput
	}
	return string(data), nil
}
