package output

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/leapcols/pkg/lineage"
)

// EmptyMessage is shown in place of a column table when a statement yields
// no columns.
const EmptyMessage = "No columns found or invalid SQL SELECT statement."

// ColumnHeadings are the column table headings, in record field order.
var ColumnHeadings = []string{"Source_Table", "Source_Column", "Destination", "Source_Expression"}

// TableHeadings are the binding table headings.
var TableHeadings = []string{"Alias", "Source", "Derived", "Line", "Column"}

// Report is the outcome of extracting one statement.
type Report struct {
	Source  string                   `json:"source,omitempty" yaml:"source,omitempty"`
	Columns []lineage.ColumnMetadata `json:"columns" yaml:"columns"`
	Tables  []lineage.TableBinding   `json:"tables,omitempty" yaml:"tables,omitempty"`
	Error   *ErrorInfo               `json:"error,omitempty" yaml:"error,omitempty"`
	// Validation is set when an SQL engine rejected the statement.
	Validation *ErrorInfo `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// ErrorInfo describes why a statement produced no columns.
type ErrorInfo struct {
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
}

// NewErrorInfo converts an extraction error. It returns nil for a nil error.
func NewErrorInfo(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	return &ErrorInfo{Kind: lineage.ErrorKind(err), Message: err.Error()}
}

// SyntaxKind is the ErrorInfo kind of an engine rejection.
const SyntaxKind = "syntax_error"

// NewValidationInfo converts a syntax check outcome. It returns nil for a
// nil error.
func NewValidationInfo(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	return &ErrorInfo{Kind: SyntaxKind, Message: err.Error()}
}

// Failed reports whether the statement could not be parsed or was rejected
// by a syntax check.
func (rep Report) Failed() bool {
	return rep.Error != nil || rep.Validation != nil
}

// NewReport builds a Report from an extraction outcome. A failed extraction
// gets an empty, non-nil column list.
func NewReport(source string, res *lineage.Result, err error) Report {
	rep := Report{Source: source, Columns: []lineage.ColumnMetadata{}, Error: NewErrorInfo(err)}
	if res != nil {
		rep.Columns = res.Columns
		rep.Tables = res.Tables
	}
	return rep
}

// machineValue is what JSON and YAML modes encode: the bare record list for
// a single unnamed statement, the full reports otherwise.
func machineValue[T any](reports []Report, pick func(Report) T) any {
	if len(reports) == 1 && reports[0].Source == "" {
		return pick(reports[0])
	}
	return reports
}

// RenderColumns writes the column records of each report.
func (r *Renderer) RenderColumns(reports []Report) error {
	pick := func(rep Report) []lineage.ColumnMetadata { return rep.Columns }

	switch r.EffectiveMode() {
	case ModeJSON:
		return r.JSON(machineValue(reports, pick))
	case ModeYAML:
		return r.YAML(machineValue(reports, pick))
	case ModeCSV:
		return r.columnsCSV(reports)
	}

	for i, rep := range reports {
		if i > 0 {
			r.Println()
		}
		if rep.Source != "" {
			r.Header(2, rep.Source)
		}
		switch {
		case len(rep.Columns) == 0:
			r.emptyNotice(rep)
		case r.EffectiveMode() == ModeMarkdown:
			r.markdownTable(ColumnHeadings, columnRows(rep.Columns))
		default:
			r.columnsTable(rep.Columns)
		}
		r.validationNotice(rep)
	}
	return nil
}

// RenderTables writes the table bindings of each report.
func (r *Renderer) RenderTables(reports []Report) error {
	pick := func(rep Report) []lineage.TableBinding {
		if rep.Tables == nil {
			return []lineage.TableBinding{}
		}
		return rep.Tables
	}

	switch r.EffectiveMode() {
	case ModeJSON:
		return r.JSON(machineValue(reports, pick))
	case ModeYAML:
		return r.YAML(machineValue(reports, pick))
	case ModeCSV:
		return r.tablesCSV(reports)
	}

	for i, rep := range reports {
		if i > 0 {
			r.Println()
		}
		if rep.Source != "" {
			r.Header(2, rep.Source)
		}
		switch {
		case rep.Error != nil:
			r.Muted(rep.Error.Message)
		case len(rep.Tables) == 0:
			r.Muted("No tables referenced.")
		case r.EffectiveMode() == ModeMarkdown:
			r.markdownTable(TableHeadings, tableRows(rep.Tables))
		default:
			r.tablesTable(rep.Tables)
		}
		r.validationNotice(rep)
	}
	return nil
}

func (r *Renderer) tablesTable(bindings []lineage.TableBinding) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(headerRow(TableHeadings))
	for _, row := range tableRows(bindings) {
		t.AppendRow(table.Row{row[0], r.styles.Table.Render(row[1]), row[2], row[3], row[4]})
	}
	t.Render()
}

// validationNotice flags a statement an SQL engine rejected.
func (r *Renderer) validationNotice(rep Report) {
	if rep.Validation == nil {
		return
	}
	if r.EffectiveMode() == ModeMarkdown {
		r.Printf("\n> **Warning:** %s\n", escapeMarkdown(rep.Validation.Message))
		return
	}
	r.Println(r.styles.Warning.Render("! " + rep.Validation.Message))
}

func (r *Renderer) emptyNotice(rep Report) {
	r.Muted(EmptyMessage)
	if rep.Error != nil {
		r.Muted(fmt.Sprintf("(%s: %s)", rep.Error.Kind, rep.Error.Message))
	}
}

func (r *Renderer) columnsTable(cols []lineage.ColumnMetadata) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(headerRow(ColumnHeadings))

	for _, row := range columnRows(cols) {
		src := row[0]
		switch src {
		case "":
		case lineage.UnknownTable:
			src = r.styles.Unknown.Render(src)
		default:
			src = r.styles.Table.Render(src)
		}
		t.AppendRow(table.Row{src, row[1], r.styles.Bold.Render(row[2]), row[3]})
	}
	t.Render()
	r.Muted(fmt.Sprintf("(%d columns)", len(cols)))
}

func (r *Renderer) markdownTable(headings []string, rows [][]string) {
	r.Printf("| %s |\n", strings.Join(headings, " | "))
	seps := make([]string, len(headings))
	for i := range seps {
		seps[i] = "---"
	}
	r.Printf("| %s |\n", strings.Join(seps, " | "))

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = escapeMarkdown(v)
		}
		r.Printf("| %s |\n", strings.Join(cells, " | "))
	}
}

func (r *Renderer) columnsCSV(reports []Report) error {
	named := hasSource(reports)
	w := csv.NewWriter(r.out)

	header := ColumnHeadings
	if named {
		header = append([]string{"File"}, ColumnHeadings...)
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, rep := range reports {
		for _, row := range columnRows(rep.Columns) {
			if named {
				row = append([]string{rep.Source}, row...)
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

func (r *Renderer) tablesCSV(reports []Report) error {
	named := hasSource(reports)
	w := csv.NewWriter(r.out)

	header := TableHeadings
	if named {
		header = append([]string{"File"}, TableHeadings...)
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, rep := range reports {
		for _, row := range tableRows(rep.Tables) {
			if named {
				row = append([]string{rep.Source}, row...)
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

func columnRows(cols []lineage.ColumnMetadata) [][]string {
	rows := make([][]string, 0, len(cols))
	for _, c := range cols {
		rows = append(rows, []string{deref(c.SourceTable), deref(c.SourceColumn), deref(c.DestinationAlias), c.SourceExpression})
	}
	return rows
}

func tableRows(bindings []lineage.TableBinding) [][]string {
	rows := make([][]string, 0, len(bindings))
	for _, b := range bindings {
		derived := ""
		if b.Derived {
			derived = "yes"
		}
		rows = append(rows, []string{b.Alias, b.Source, derived, strconv.Itoa(b.Pos.Line), strconv.Itoa(b.Pos.Column)})
	}
	return rows
}

func headerRow(headings []string) table.Row {
	row := make(table.Row, len(headings))
	for i, h := range headings {
		row[i] = h
	}
	return row
}

func hasSource(reports []Report) bool {
	for _, rep := range reports {
		if rep.Source != "" {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var markdownEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\t", " ")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
