package lineage

import "strings"

// UnknownTable is reported as the source table of a qualified column whose
// qualifier matches no FROM or JOIN binding.
const UnknownTable = "Unknown"

// ColumnMetadata describes one select-list entry.
//
// SourceTable is nil when the expression has no dotted column reference and
// UnknownTable when it has one whose qualifier cannot be resolved.
type ColumnMetadata struct {
	SourceTable      *string `json:"source_table,omitempty" yaml:"source_table,omitempty"`
	SourceColumn     *string `json:"source_column,omitempty" yaml:"source_column,omitempty"`
	DestinationAlias *string `json:"destination_alias,omitempty" yaml:"destination_alias,omitempty"`
	SourceExpression string  `json:"source_expression" yaml:"source_expression"`
}

// Compose produces one ColumnMetadata per parsed column, in order.
func Compose(columns []ParsedColumn, tables AliasMap) []ColumnMetadata {
	out := make([]ColumnMetadata, 0, len(columns))
	for _, col := range columns {
		md := ColumnMetadata{SourceExpression: col.Expression}
		if col.Alias != "" {
			md.DestinationAlias = ptr(col.Alias)
		}

		qualifier, column, ok := findColumnRef(col.Expression)
		if !ok {
			md.SourceColumn = ptr(col.Expression)
			out = append(out, md)
			continue
		}

		md.SourceColumn = ptr(column)
		md.SourceTable = ptr(resolveQualifier(qualifier, tables))
		out = append(out, md)
	}
	return out
}

func resolveQualifier(qualifier []string, tables AliasMap) string {
	if src, ok := tables.Lookup(strings.Join(qualifier, ".")); ok {
		return src
	}
	if len(qualifier) > 1 {
		if src, ok := tables.Lookup(qualifier[len(qualifier)-1]); ok {
			return src
		}
	}
	return UnknownTable
}

// findColumnRef returns the leftmost dotted reference in expr outside quoted
// literals, split into qualifier segments and the final column segment.
// A dotted name directly followed by "(" is a function and is skipped.
func findColumnRef(expr string) (qualifier []string, column string, ok bool) {
	tokens, err := Tokenize(expr)
	if err != nil {
		return nil, "", false
	}

	at := func(i int) Token {
		if i < len(tokens) {
			return tokens[i]
		}
		return tokens[len(tokens)-1]
	}

	for i := 0; i < len(tokens); i++ {
		if !tokens[i].IsName() || at(i+1).Type != TOKEN_DOT {
			continue
		}

		parts := []string{tokens[i].Literal}
		j := i + 1
		for at(j).Type == TOKEN_DOT {
			next := at(j + 1)
			if next.Type == TOKEN_STAR {
				parts = append(parts, "*")
				j += 2
				break
			}
			if !next.IsName() {
				break
			}
			parts = append(parts, next.Literal)
			j += 2
		}

		if len(parts) < 2 || at(j).Type == TOKEN_LPAREN {
			i = j - 1
			continue
		}
		return parts[:len(parts)-1], parts[len(parts)-1], true
	}
	return nil, "", false
}

func ptr(s string) *string {
	return &s
}
