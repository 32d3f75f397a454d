package lineage

import "strings"

// ParsedColumn is one select-list entry split into its expression and
// optional alias. Alias is empty when the column has none.
type ParsedColumn struct {
	Expression string
	Alias      string
}

// DetectAlias separates a trailing alias from a column expression.
//
// An explicit "AS name" suffix always wins. Otherwise the last
// whitespace-separated word is an implicit alias when it is a bare identifier
// that is not a keyword and the text before it still ends a complete
// expression (a name, number, literal, closing parenthesis, or one of END,
// NULL, TRUE, FALSE). Anything else leaves the whole column as the expression.
func DetectAlias(column string) ParsedColumn {
	return detectAlias(column, nil)
}

// detectAlias is DetectAlias with additional words to treat as keywords.
// extra keys are lowercase.
func detectAlias(column string, extra map[string]struct{}) ParsedColumn {
	column = strings.TrimSpace(column)
	whole := ParsedColumn{Expression: column}

	tokens, err := Tokenize(column)
	if err != nil {
		return whole
	}
	tokens = tokens[:len(tokens)-1]
	if len(tokens) < 2 {
		return whole
	}

	last, prev := tokens[len(tokens)-1], tokens[len(tokens)-2]

	if prev.Type == TOKEN_AS {
		name, ok := aliasName(last)
		expr := strings.TrimSpace(column[:prev.Pos.Offset])
		if ok && expr != "" {
			return ParsedColumn{Expression: expr, Alias: name}
		}
		return whole
	}

	if last.Type != TOKEN_IDENT || !isIdentifier(last.Literal) {
		return whole
	}
	if _, denied := extra[strings.ToLower(last.Literal)]; denied {
		return whole
	}
	if last.Pos.Offset == prev.End || !endsExpression(prev) {
		return whole
	}
	return ParsedColumn{
		Expression: strings.TrimSpace(column[:last.Pos.Offset]),
		Alias:      last.Literal,
	}
}

// aliasName accepts a bare identifier, or a quoted one whose content is a
// valid bare identifier.
func aliasName(tok Token) (string, bool) {
	if tok.IsName() && isIdentifier(tok.Literal) {
		return tok.Literal, true
	}
	return "", false
}

func endsExpression(tok Token) bool {
	switch tok.Type {
	case TOKEN_IDENT, TOKEN_QUOTED_IDENT, TOKEN_NUMBER, TOKEN_STRING, TOKEN_RPAREN,
		TOKEN_END, TOKEN_NULL, TOKEN_TRUE, TOKEN_FALSE:
		return true
	default:
		return false
	}
}

// isIdentifier reports whether s matches [A-Za-z_][A-Za-z0-9_]*.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '_', 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z':
		case i > 0 && isDigit(ch):
		default:
			return false
		}
	}
	return true
}
