package sqlcheck

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// serializeQuery parses its argument with DuckDB's parser without binding
// it, so unknown tables are not an error.
const serializeQuery = `SELECT CAST(json_serialize_sql(CAST(? AS VARCHAR)) AS VARCHAR)`

type serializeResult struct {
	Error        bool   `json:"error"`
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
}

type duckdbChecker struct {
	db *sql.DB
}

func openDuckDB(ctx context.Context) (*duckdbChecker, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}
	return &duckdbChecker{db: db}, nil
}

func (c *duckdbChecker) Engine() string { return EngineDuckDB }

func (c *duckdbChecker) Check(ctx context.Context, query string) error {
	var raw string
	if err := c.db.QueryRowContext(ctx, serializeQuery, query).Scan(&raw); err != nil {
		return fmt.Errorf("failed to serialize statement: %w", err)
	}

	var res serializeResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return fmt.Errorf("failed to decode duckdb parse result: %w", err)
	}
	if !res.Error {
		return nil
	}

	msg := res.ErrorMessage
	if first, _, ok := strings.Cut(msg, "\n"); ok {
		msg = first
	}
	return &SyntaxError{Engine: EngineDuckDB, Message: msg}
}

func (c *duckdbChecker) Close() error {
	return c.db.Close()
}
