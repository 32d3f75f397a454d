package lineage

// LocateColumnList returns the text between the statement's SELECT keyword
// and the first FROM keyword that follows it at parenthesis depth 0. A
// leading DISTINCT or ALL quantifier is not part of the returned span.
func LocateColumnList(text string) (string, error) {
	tokens, err := Tokenize(text)
	if err != nil {
		return "", err
	}
	first, last, err := locateColumnList(tokens)
	if err != nil {
		return "", err
	}
	return text[spanStart(tokens, first):tokens[last].Pos.Offset], nil
}

// locateColumnList returns the token range [first, last) of the column list;
// tokens[last] is the top-level FROM.
func locateColumnList(tokens []Token) (first, last int, err error) {
	sel, nested := findSelect(tokens)
	if sel < 0 {
		return 0, 0, &ParseError{Err: ErrNoSelect}
	}

	first = sel + 1
	if t := tokens[first].Type; t == TOKEN_DISTINCT || t == TOKEN_ALL {
		first++
	}

	var open []Position
	for i := sel + 1; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.Type {
		case TOKEN_LPAREN:
			open = append(open, tok.Pos)
		case TOKEN_RPAREN:
			if len(open) == 0 {
				if nested {
					// The SELECT sits inside a parenthesis that closes first.
					return 0, 0, &ParseError{Err: ErrNoTopLevelFrom, Pos: tok.Pos}
				}
				return 0, 0, &ParseError{Err: ErrUnbalancedParens, Pos: tok.Pos}
			}
			open = open[:len(open)-1]
		case TOKEN_FROM:
			if len(open) == 0 {
				return first, i, nil
			}
		case TOKEN_SEMICOLON:
			if len(open) == 0 {
				return 0, 0, &ParseError{Err: ErrNoTopLevelFrom, Pos: tok.Pos}
			}
		case TOKEN_EOF:
			if len(open) > 0 {
				return 0, 0, &ParseError{Err: ErrUnbalancedParens, Pos: open[len(open)-1]}
			}
		}
	}
	return 0, 0, &ParseError{Err: ErrNoTopLevelFrom, Pos: tokens[sel].Pos}
}

// findSelect returns the index of the first SELECT outside parentheses, so a
// leading WITH clause is skipped. When every SELECT is parenthesized the
// first one is used and nested is true.
func findSelect(tokens []Token) (index int, nested bool) {
	first, depth := -1, 0
	for i, tok := range tokens {
		switch tok.Type {
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			depth--
		case TOKEN_SEMICOLON:
			if depth <= 0 {
				return first, true
			}
		case TOKEN_SELECT:
			if depth <= 0 {
				return i, false
			}
			if first < 0 {
				first = i
			}
		}
	}
	return first, true
}

// spanStart is the byte offset where the column list begins: right after
// SELECT, or after its DISTINCT/ALL quantifier.
func spanStart(tokens []Token, first int) int {
	return tokens[first-1].End
}
