package commands

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/leapcols/internal/server"
	"github.com/leapstack-labs/leapcols/internal/sqlcheck"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve column lineage over HTTP",
		Long: `Start an HTTP API that extracts column lineage from posted statements.

Endpoints:
  POST /api/v1/columns   column records for a statement
  POST /api/v1/tables    table alias bindings for a statement
  GET  /healthz          liveness probe

Bodies are either JSON ({"query": "..."}) or the raw statement sent as
text/plain. The server shuts down gracefully on interrupt.`,
		Example: `  leapcols serve --addr :8080
  curl -s localhost:8080/api/v1/columns -H 'Content-Type: text/plain' \
    -d 'SELECT o.id FROM sales.orders o'`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (default 127.0.0.1:8765)")
	cmd.Flags().Int64("max-body", 0, "Maximum request body in bytes (default 1MiB)")
	cmd.Flags().String("validate", "", "Also check posted statements with an embedded engine (sqlite|duckdb)")
	cmd.Flags().Lookup("validate").NoOptDefVal = sqlcheck.EngineSQLite

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc := NewCommandContext(cmd)
	cfg := cc.Cfg.Server

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checker, err := openChecker(ctx, cc)
	if err != nil {
		return err
	}
	if checker != nil {
		defer func() { _ = checker.Close() }()
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}

	srv := server.New(server.Config{
		Addr:              cfg.Addr,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.ShutdownTimeout,
		MaxBodyBytes:      cfg.MaxBodyBytes,
		Lineage:           cc.LineageOptions(),
		Checker:           checker,
		Logger:            cc.Logger,
	})

	cc.Renderer.Success(fmt.Sprintf("Serving lineage API on http://%s", ln.Addr()))
	return srv.ServeListener(ctx, ln)
}
