package commands

import (
	"log/slog"

	"github.com/leapstack-labs/leapcols/internal/cli/config"
	"github.com/leapstack-labs/leapcols/internal/cli/output"
	"github.com/leapstack-labs/leapcols/pkg/lineage"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration
// and the logger the root command stored in the command context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// LineageOptions returns the extraction options derived from configuration.
func (cc *CommandContext) LineageOptions() lineage.Options {
	return lineage.Options{ExtraKeywords: cc.Cfg.ExtraKeywords}
}

// getConfig returns the current configuration, or defaults when a command
// runs without the root command having loaded one.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}
