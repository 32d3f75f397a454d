package lineage

import "strings"

// SplitColumns splits a column-list span at commas that sit outside quoted
// literals and outside parentheses. Each piece is trimmed; empty pieces are
// dropped, so an empty span yields an empty slice.
func SplitColumns(span string) ([]string, error) {
	tokens, err := Tokenize(span)
	if err != nil {
		return nil, err
	}
	return splitColumns(span, tokens[:len(tokens)-1])
}

// splitColumns slices text at the depth-0 commas among tokens. tokens must
// not include the trailing TOKEN_EOF.
func splitColumns(text string, tokens []Token) ([]string, error) {
	var (
		columns []string
		open    []Position
		start   = -1
		end     int
	)

	flush := func() {
		if start >= 0 {
			if col := strings.TrimSpace(text[start:end]); col != "" {
				columns = append(columns, col)
			}
		}
		start = -1
	}

	for _, tok := range tokens {
		switch tok.Type {
		case TOKEN_LPAREN:
			open = append(open, tok.Pos)
		case TOKEN_RPAREN:
			if len(open) == 0 {
				return nil, &ParseError{Err: ErrUnbalancedParens, Pos: tok.Pos}
			}
			open = open[:len(open)-1]
		case TOKEN_COMMA:
			if len(open) == 0 {
				flush()
				continue
			}
		}
		if start < 0 {
			start = tok.Pos.Offset
		}
		end = tok.End
	}

	if len(open) > 0 {
		return nil, &ParseError{Err: ErrUnbalancedParens, Pos: open[len(open)-1]}
	}
	flush()
	return columns, nil
}
