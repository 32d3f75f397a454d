// Package sqlcheck asks an embedded SQL engine whether a statement is
// syntactically valid. Statements are compiled or serialized, never run,
// against an empty in-memory database, so errors that only depend on the
// schema are not reported.
package sqlcheck

import (
	"context"
	"fmt"
	"strings"
)

// Supported engines.
const (
	EngineSQLite = "sqlite"
	EngineDuckDB = "duckdb"
)

// Engines returns the supported engine names.
func Engines() []string {
	return []string{EngineSQLite, EngineDuckDB}
}

// SyntaxError is returned by Check when the engine rejects a statement.
type SyntaxError struct {
	Engine  string
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s rejected statement: %s", e.Engine, e.Message)
}

// Checker validates statements. Implementations are safe for concurrent use.
type Checker interface {
	// Check returns a *SyntaxError when the engine rejects query, nil when
	// it accepts it, and any other error when the engine itself failed.
	Check(ctx context.Context, query string) error
	// Engine returns the engine name.
	Engine() string
	Close() error
}

// Open starts an in-memory engine.
func Open(ctx context.Context, engine string) (Checker, error) {
	var (
		c   Checker
		err error
	)
	switch strings.ToLower(engine) {
	case EngineSQLite:
		c, err = openSQLite(ctx)
	case EngineDuckDB:
		c, err = openDuckDB(ctx)
	default:
		return nil, fmt.Errorf("unknown validation engine %q (want one of: %s)", engine, strings.Join(Engines(), ", "))
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
