package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leapstack-labs/leapcols/internal/cli/config"
	"github.com/leapstack-labs/leapcols/internal/cli/output"
	"github.com/leapstack-labs/leapcols/internal/cli/testutil"
	"github.com/leapstack-labs/leapcols/pkg/lineage"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewColumnsCommand(t *testing.T) {
	cmd := NewColumnsCommand()

	assert.Equal(t, "columns [file|dir]...", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
	assert.Equal(t, []string{"parse"}, cmd.Aliases)

	// --output is a global persistent flag on root, not local
	for _, flag := range []string{"query", "watch", "strict", "debounce", "concurrency", "validate"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Equal(t, "q", cmd.Flags().Lookup("query").Shorthand)
	assert.Equal(t, "j", cmd.Flags().Lookup("concurrency").Shorthand)
}

func TestNewTablesCommand(t *testing.T) {
	cmd := NewTablesCommand()

	assert.Equal(t, "tables [file|dir]...", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("query"))
}

func TestNewServeCommand(t *testing.T) {
	cmd := NewServeCommand()

	assert.Equal(t, "serve", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	for _, flag := range []string{"addr", "max-body", "validate"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Error(t, cmd.Args(cmd, []string{"extra"}))
}

// execute runs a command standalone, so configuration falls back to defaults
// and output is markdown.
func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestColumns_Query(t *testing.T) {
	out, _, err := execute(t, NewColumnsCommand(), "", "-q", "SELECT M.x FROM (SELECT x FROM base_table) M")
	require.NoError(t, err)

	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "| base_table | x |  | M.x |")
}

func TestColumns_Stdin(t *testing.T) {
	out, _, err := execute(t, NewColumnsCommand(), "select a.x AS ax, 42 answer from t a\n")
	require.NoError(t, err)

	assert.Contains(t, out, "| t | x | ax | a.x |")
	assert.Contains(t, out, "|  | 42 | answer | 42 |")
}

func TestColumns_EmptyStdin(t *testing.T) {
	_, _, err := execute(t, NewColumnsCommand(), "  \n")
	assert.ErrorIs(t, err, errNoInput)
}

func TestColumns_Strict(t *testing.T) {
	out, _, err := execute(t, NewColumnsCommand(), "", "--strict", "-q", "SELECT (a FROM t")
	require.Error(t, err)
	assert.Equal(t, "1 of 1 statement(s) could not be parsed", err.Error())
	assert.Contains(t, out, output.EmptyMessage)
	assert.Contains(t, out, "unbalanced_parentheses")
}

func TestColumns_FilesStrict(t *testing.T) {
	dir := testutil.WriteSQLFiles(t, map[string]string{
		"good.sql": "SELECT a FROM t",
		"bad.sql":  "UPDATE t SET a = 1",
	})

	out, _, err := execute(t, NewColumnsCommand(), "", "--strict", dir)
	require.Error(t, err)
	assert.Equal(t, "1 of 2 statement(s) could not be parsed", err.Error())
	assert.Contains(t, out, "## "+filepath.Join(dir, "bad.sql"))
	assert.Contains(t, out, "## "+filepath.Join(dir, "good.sql"))
}

func TestColumns_NoSQLFiles(t *testing.T) {
	dir := testutil.WriteSQLFiles(t, map[string]string{"notes.txt": "SELECT a FROM t"})

	_, _, err := execute(t, NewColumnsCommand(), "", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .sql files found")
}

func TestTables_Query(t *testing.T) {
	out, _, err := execute(t, NewTablesCommand(), "", "-q", "SELECT 1 FROM x.a t JOIN b ON true")
	require.NoError(t, err)

	assert.Contains(t, out, "| Alias | Source | Derived | Line | Column |")
	assert.Contains(t, out, "| t | x.a |  | 1 | 19 |")
	assert.Contains(t, out, "| b | b |  | 1 | 26 |")
}

func TestReadStdin(t *testing.T) {
	got, err := readStdin(strings.NewReader("SELECT 1"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", got)

	_, err = readStdin(strings.NewReader(""))
	assert.ErrorIs(t, err, errNoInput)
}

func TestCommandContext_Defaults(t *testing.T) {
	config.ResetConfig()

	cmd := &cobra.Command{}
	cmd.SetOut(new(bytes.Buffer))
	cc := NewCommandContext(cmd)

	assert.Equal(t, config.Default(), cc.Cfg)
	assert.NotNil(t, cc.Logger)
	assert.Equal(t, output.ModeMarkdown, cc.Renderer.EffectiveMode())
	assert.Empty(t, cc.LineageOptions().ExtraKeywords)
}

func TestFinish_JSON(t *testing.T) {
	tr := testutil.NewTestRendererJSON()
	cc := &CommandContext{Cfg: config.Default(), Renderer: tr.Renderer}

	reports := []output.Report{output.NewReport("", nil, nil)}
	require.NoError(t, finish(cc, reports, &inputOptions{Strict: true}, tr.RenderColumns))

	testutil.AssertOutputMode(t, tr, output.ModeJSON)
	var got []any
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &got))
	assert.Empty(t, got)
}

func TestFinish_Modes(t *testing.T) {
	res, err := lineage.Extract("SELECT o.id AS oid FROM sales.orders o")
	require.NoError(t, err)
	reports := []output.Report{output.NewReport("", res, nil)}

	tests := []struct {
		name     string
		renderer *testutil.TestRenderer
		mode     output.Mode
		want     string
	}{
		{"auto without tty", testutil.NewTestRendererAuto(), output.ModeMarkdown, "| sales.orders | id | oid | o.id |"},
		{"markdown", testutil.NewTestRendererMarkdown(), output.ModeMarkdown, "| sales.orders | id | oid | o.id |"},
		{"text", testutil.NewTestRendererText(), output.ModeText, "(1 columns)"},
		{"csv", testutil.NewTestRendererCSV(), output.ModeCSV, "sales.orders,id,oid,o.id\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := tt.renderer
			cc := &CommandContext{Cfg: config.Default(), Renderer: tr.Renderer}

			require.NoError(t, finish(cc, reports, &inputOptions{Strict: true}, tr.RenderColumns))

			assert.Equal(t, tt.mode, tr.EffectiveMode())
			testutil.AssertOutputMode(t, tr, tt.mode)
			assert.Contains(t, tr.Output(), tt.want)
			assert.Empty(t, tr.ErrorOutput())

			tr.Reset()
			require.Error(t, finish(cc, []output.Report{output.NewReport("", nil, lineage.ErrNoSelect)}, &inputOptions{Strict: true}, tr.RenderColumns))
			assert.NotContains(t, tr.Output(), "sales.orders")
		})
	}
}

func TestRunInput_Watch(t *testing.T) {
	dir := testutil.WriteSQLFiles(t, map[string]string{"q.sql": "SELECT t.x FROM tbl t"})

	tr := testutil.NewTestRendererMarkdown()
	cc := &CommandContext{Cfg: config.Default(), Logger: slog.New(slog.DiscardHandler), Renderer: tr.Renderer}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)

	require.NoError(t, runInput(cmd, cc, []string{dir}, &inputOptions{Watch: true}, tr.RenderColumns))

	assert.Contains(t, tr.Output(), "| tbl | x |  | t.x |")
	assert.Contains(t, tr.ErrorOutput(), "Watching 1 file(s)")
}
