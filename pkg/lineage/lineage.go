package lineage

import "strings"

// Result is the full outcome of extracting one statement.
type Result struct {
	Columns []ColumnMetadata
	Tables  []TableBinding
}

// Options configures extraction.
type Options struct {
	// ExtraKeywords are additional words that never become an implicit
	// column alias, matched case-insensitively.
	ExtraKeywords []string
}

// Parse extracts column metadata from a SQL SELECT statement. Malformed
// input yields an empty slice; use Extract to learn why.
func Parse(query string) []ColumnMetadata {
	res, err := Extract(query)
	if err != nil {
		return []ColumnMetadata{}
	}
	return res.Columns
}

// Extract extracts column metadata and table bindings from a SQL SELECT
// statement. The error, when non-nil, is a *ParseError wrapping one of
// ErrNoSelect, ErrNoTopLevelFrom, ErrUnbalancedParens or
// ErrUnterminatedQuote.
func Extract(query string) (*Result, error) {
	return ExtractWithOptions(query, Options{})
}

// ExtractWithOptions is Extract with configuration.
func ExtractWithOptions(query string, opts Options) (*Result, error) {
	text := StripComments(query)

	tokens, err := Tokenize(text)
	if err != nil {
		return nil, err
	}

	first, last, err := locateColumnList(tokens)
	if err != nil {
		return nil, err
	}

	spans, err := splitColumns(text, tokens[first:last])
	if err != nil {
		return nil, err
	}

	var extra map[string]struct{}
	if len(opts.ExtraKeywords) > 0 {
		extra = make(map[string]struct{}, len(opts.ExtraKeywords))
		for _, kw := range opts.ExtraKeywords {
			extra[strings.ToLower(strings.TrimSpace(kw))] = struct{}{}
		}
	}

	parsed := make([]ParsedColumn, 0, len(spans))
	for _, span := range spans {
		parsed = append(parsed, detectAlias(span, extra))
	}

	bindings := resolveTables(tokens)
	return &Result{
		Columns: Compose(parsed, NewAliasMap(bindings)),
		Tables:  bindings,
	}, nil
}
