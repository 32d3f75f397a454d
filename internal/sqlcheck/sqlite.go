package sqlcheck

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// schemaErrors are SQLite compile errors raised after the statement parsed.
var schemaErrors = []string{
	"no such table",
	"no such column",
	"no such function",
	"no such collation",
	"unknown database",
	"ambiguous column name",
}

// reSQLiteMessage strips the driver's result-code decoration.
var reSQLiteMessage = regexp.MustCompile(`^(?:SQL logic error: )?(.*?)(?: \(\d+\))?$`)

type sqliteChecker struct {
	db *sql.DB
}

func openSQLite(ctx context.Context) (*sqliteChecker, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}
	return &sqliteChecker{db: db}, nil
}

func (c *sqliteChecker) Engine() string { return EngineSQLite }

func (c *sqliteChecker) Check(ctx context.Context, query string) error {
	stmt, err := c.db.PrepareContext(ctx, query)
	if err == nil {
		return stmt.Close()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	msg := reSQLiteMessage.ReplaceAllString(strings.TrimSpace(err.Error()), "$1")
	for _, s := range schemaErrors {
		if strings.Contains(msg, s) {
			return nil
		}
	}
	return &SyntaxError{Engine: EngineSQLite, Message: msg}
}

func (c *sqliteChecker) Close() error {
	return c.db.Close()
}
