// Package batch extracts column lineage from many SQL files concurrently.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapcols/internal/sqlcheck"
	"github.com/leapstack-labs/leapcols/pkg/lineage"
	"golang.org/x/sync/errgroup"
)

// Options configures a batch run.
type Options struct {
	// Concurrency bounds the number of files processed at once. Values
	// below 1 mean one at a time.
	Concurrency int
	Lineage     lineage.Options
	// Checker, when set, also validates every statement's syntax.
	Checker sqlcheck.Checker
	Logger  *slog.Logger
}

// FileResult is the extraction outcome for one file. Err holds the
// *lineage.ParseError when the statement could not be parsed; Result is nil
// in that case. Syntax holds the *sqlcheck.SyntaxError when a checker
// rejected the statement.
type FileResult struct {
	Path   string
	Result *lineage.Result
	Err    error
	Syntax error
}

// Run reads and extracts every path, returning results in input order.
// Parse failures are reported per file. A read failure or a cancelled
// context aborts the run.
func Run(ctx context.Context, paths []string, opts Options) ([]FileResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	results := make([]FileResult, len(paths))

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(opts.Concurrency, 1))

	for i, path := range paths {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			res, err := lineage.ExtractWithOptions(string(data), opts.Lineage)
			if err != nil {
				logger.Debug("extraction failed", "file", path, "kind", lineage.ErrorKind(err), "error", err)
			} else {
				logger.Debug("extracted", "file", path, "columns", len(res.Columns), "tables", len(res.Tables))
			}

			results[i] = FileResult{Path: path, Result: res, Err: err}

			if opts.Checker != nil {
				syntaxErr, err := Validate(egctx, opts.Checker, string(data))
				if err != nil {
					return fmt.Errorf("failed to validate %s: %w", path, err)
				}
				if syntaxErr != nil {
					logger.Debug("statement rejected", "file", path, "engine", opts.Checker.Engine(), "error", syntaxErr)
				}
				results[i].Syntax = syntaxErr
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Validate runs checker on query. A rejected statement is returned as the
// first value; the second is a failure of the engine itself.
func Validate(ctx context.Context, checker sqlcheck.Checker, query string) (syntaxErr, err error) {
	err = checker.Check(ctx, query)
	var se *sqlcheck.SyntaxError
	if errors.As(err, &se) {
		return se, nil
	}
	return nil, err
}

// Expand replaces each directory in paths with the .sql files beneath it,
// sorted by path. Files named explicitly are kept whatever their extension.
func Expand(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}

		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".sql") {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}
