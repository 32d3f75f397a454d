package lineage

import (
	"strings"
)

// Lexer is a character-level scanner over SQL text. It tracks quote state so
// commas, parentheses and comment markers inside literals are never seen as
// structure.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)
	err     error
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// Err returns the first lexical error, if any.
func (l *Lexer) Err() error {
	return l.err
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) currentPos() Position {
	return Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// NextToken returns the next token. After an unterminated literal the lexer
// records the error and returns TOKEN_EOF.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()
	if l.atEOF() {
		return Token{Type: TOKEN_EOF, Pos: pos, End: pos.Offset}
	}

	var tok Token
	switch l.ch {
	case '.':
		tok = l.single(TOKEN_DOT, pos)
	case ',':
		tok = l.single(TOKEN_COMMA, pos)
	case ';':
		tok = l.single(TOKEN_SEMICOLON, pos)
	case '(':
		tok = l.single(TOKEN_LPAREN, pos)
	case ')':
		tok = l.single(TOKEN_RPAREN, pos)
	case '*':
		tok = l.single(TOKEN_STAR, pos)
	case '\'':
		lit, ok := l.readQuoted('\'')
		if !ok {
			return l.unterminated(pos)
		}
		tok = Token{Type: TOKEN_STRING, Literal: lit, Pos: pos}
	case '"', '`':
		lit, ok := l.readQuoted(l.ch)
		if !ok {
			return l.unterminated(pos)
		}
		tok = Token{Type: TOKEN_QUOTED_IDENT, Literal: lit, Pos: pos}
	default:
		switch {
		case isLetter(l.ch) || l.ch == '_':
			lit := l.readIdentifier()
			tok = Token{Type: LookupIdent(strings.ToLower(lit)), Literal: lit, Pos: pos}
		case isDigit(l.ch):
			tok = Token{Type: TOKEN_NUMBER, Literal: l.readNumber(), Pos: pos}
		case isOperator(l.ch):
			tok = Token{Type: TOKEN_OPERATOR, Literal: l.readOperator(), Pos: pos}
		default:
			tok = l.single(TOKEN_ILLEGAL, pos)
		}
	}

	tok.End = l.pos
	return tok
}

// single consumes the current character as a one-byte token.
func (l *Lexer) single(t TokenType, pos Position) Token {
	tok := Token{Type: t, Literal: string(l.ch), Pos: pos}
	l.readChar()
	return tok
}

func (l *Lexer) unterminated(pos Position) Token {
	if l.err == nil {
		l.err = &ParseError{Err: ErrUnterminatedQuote, Pos: pos}
	}
	return Token{Type: TOKEN_EOF, Pos: l.currentPos(), End: len(l.input)}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for isSpace(l.ch) {
			l.readChar()
		}

		if l.ch == '-' && l.peekChar() == '-' {
			l.skipLineComment()
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			l.skipBlockComment()
			continue
		}

		break
	}
}

func (l *Lexer) skipLineComment() {
	for l.ch != '\n' && !l.atEOF() {
		l.readChar()
	}
}

func (l *Lexer) skipBlockComment() {
	l.readChar() // skip '/'
	l.readChar() // skip '*'

	for !l.atEOF() {
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			return
		}
		l.readChar()
	}
}

// readQuoted reads a literal delimited by quote. Two consecutive quote
// characters inside the literal stand for one. The second result is false
// when input ends before the closing quote.
func (l *Lexer) readQuoted(quote byte) (string, bool) {
	l.readChar() // skip opening quote

	var result strings.Builder
	for {
		if l.atEOF() {
			return result.String(), false
		}
		if l.ch == quote {
			if l.peekChar() == quote {
				result.WriteByte(quote)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			return result.String(), true
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '$' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) || l.peekChar() == '+' || l.peekChar() == '-') {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

// readOperator reads a run of operator characters, stopping before a
// comment marker.
func (l *Lexer) readOperator() string {
	start := l.pos
	for isOperator(l.ch) && !l.atEOF() {
		if l.pos > start && ((l.ch == '-' && l.peekChar() == '-') || (l.ch == '/' && l.peekChar() == '*')) {
			break
		}
		l.readChar()
	}
	return l.input[start:l.pos]
}

// isLetter reports ASCII letters and any byte of a multi-byte UTF-8 sequence,
// so identifiers written in other scripts stay in one token.
func isLetter(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch >= 0x80
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}

func isOperator(ch byte) bool {
	return strings.IndexByte("+-/%=<>!|:^&~?@#[]{}", ch) >= 0
}

// Tokenize returns all tokens from the input, ending with TOKEN_EOF.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TOKEN_EOF {
			break
		}
	}
	return tokens, l.Err()
}
