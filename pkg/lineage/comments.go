package lineage

import "strings"

// StripComments removes line comments (-- to end of line) and block comments
// from SQL text. Comment markers inside quoted literals or quoted identifiers
// are kept. Line breaks survive: a line comment stops before its newline and
// a block comment is replaced by a space plus the newlines it spanned, so
// positions reported on the stripped text keep their line numbers.
func StripComments(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	var quote byte // 0 outside quotes, else the open quote character
	for i := 0; i < len(text); i++ {
		ch := text[i]

		if quote != 0 {
			b.WriteByte(ch)
			if ch == quote {
				if i+1 < len(text) && text[i+1] == quote {
					b.WriteByte(text[i+1])
					i++
					continue
				}
				quote = 0
			}
			continue
		}

		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
			b.WriteByte(ch)
		case ch == '-' && i+1 < len(text) && text[i+1] == '-':
			for i < len(text) && text[i] != '\n' {
				i++
			}
			if i < len(text) {
				b.WriteByte('\n')
			}
		case ch == '/' && i+1 < len(text) && text[i+1] == '*':
			b.WriteByte(' ')
			i += 2
			for i < len(text) && !(text[i] == '*' && i+1 < len(text) && text[i+1] == '/') {
				if text[i] == '\n' {
					b.WriteByte('\n')
				}
				i++
			}
			i++ // lands on '/', skipped by the loop increment
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
