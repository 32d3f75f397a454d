package lineage

import (
	"strings"

	"golang.org/x/text/cases"
)

// TableBinding maps a table alias to the source it denotes. For a derived
// table, Source is the first top-level FROM target inside the sub-select and
// Derived is true.
type TableBinding struct {
	Alias   string   `json:"alias" yaml:"alias"`
	Source  string   `json:"source" yaml:"source"`
	Derived bool     `json:"derived,omitempty" yaml:"derived,omitempty"`
	Pos     Position `json:"position" yaml:"position"`
}

// AliasMap is a case-insensitive alias lookup built from bindings. When an
// alias is bound more than once the binding scanned last wins.
type AliasMap map[string]string

// NewAliasMap builds an AliasMap from bindings in scan order.
func NewAliasMap(bindings []TableBinding) AliasMap {
	m := make(AliasMap, len(bindings))
	for _, b := range bindings {
		m[foldKey(b.Alias)] = b.Source
	}
	return m
}

// Lookup returns the source bound to alias.
func (m AliasMap) Lookup(alias string) (string, bool) {
	src, ok := m[foldKey(alias)]
	return src, ok
}

func foldKey(s string) string {
	return cases.Fold().String(s)
}

// ResolveTables scans the first statement in stmt for FROM and JOIN targets
// and returns the alias bindings in scan order.
//
// Direct references (FROM db.schema.tbl [AS] x) are recorded at any depth.
// A reference without an alias binds its own last name segment and, when
// qualified, its full dotted name. A parenthesized sub-select in a FROM or
// JOIN position binds its alias to the sub-select's first top-level FROM
// target. Only that one level is unwrapped: when the target is itself a
// derived table, the binding points at that derived table's alias.
func ResolveTables(stmt string) ([]TableBinding, error) {
	tokens, err := Tokenize(stmt)
	if err != nil {
		return nil, err
	}
	return resolveTables(tokens), nil
}

func resolveTables(tokens []Token) []TableBinding {
	r := &resolver{tokens: tokens}
	r.scope(0, nil, true, false)
	return r.bindings
}

// derivedScope collects the first top-level FROM target of a sub-select.
type derivedScope struct {
	source string
	set    bool
}

func (d *derivedScope) target(source string) {
	if d != nil && !d.set {
		d.source = source
		d.set = true
	}
}

type resolver struct {
	tokens   []Token
	bindings []TableBinding
}

func (r *resolver) at(i int) Token {
	if i < len(r.tokens) {
		return r.tokens[i]
	}
	return r.tokens[len(r.tokens)-1]
}

func (r *resolver) bind(alias, source string, derived bool, pos Position) {
	r.bindings = append(r.bindings, TableBinding{
		Alias:   alias,
		Source:  source,
		Derived: derived,
		Pos:     pos,
	})
}

// scope walks tokens from i until the parenthesis closing this scope, and
// returns that parenthesis' index (or the index of EOF). FROM and JOIN are
// only honoured when fromAllowed, which excludes function-call parentheses
// such as EXTRACT(YEAR FROM d). The outermost scope stops at the first
// semicolon.
func (r *resolver) scope(i int, ds *derivedScope, fromAllowed, nested bool) int {
	for {
		tok := r.at(i)
		switch tok.Type {
		case TOKEN_EOF:
			return i
		case TOKEN_SEMICOLON:
			if !nested {
				return i
			}
			i++
		case TOKEN_RPAREN:
			if nested {
				return i
			}
			i++
		case TOKEN_LPAREN:
			sub := r.at(i+1).Type == TOKEN_SELECT || r.at(i+1).Type == TOKEN_WITH
			i = r.scope(i+1, nil, sub, true) + 1
		case TOKEN_FROM:
			if !fromAllowed {
				i++
				continue
			}
			i = r.fromItems(i+1, true, ds)
		case TOKEN_JOIN:
			if !fromAllowed {
				i++
				continue
			}
			i = r.fromItems(i+1, false, ds)
		default:
			i++
		}
	}
}

// fromItems reads one table reference, or a comma-separated list of them
// after FROM.
func (r *resolver) fromItems(i int, list bool, ds *derivedScope) int {
	for {
		i = r.tableRef(i, ds)
		if !list || r.at(i).Type != TOKEN_COMMA {
			return i
		}
		i++
	}
}

func (r *resolver) tableRef(i int, ds *derivedScope) int {
	if r.at(i).Type == TOKEN_LATERAL {
		i++
	}

	tok := r.at(i)
	switch {
	case tok.Type == TOKEN_LPAREN && (r.at(i+1).Type == TOKEN_SELECT || r.at(i+1).Type == TOKEN_WITH):
		inner := &derivedScope{}
		end := r.scope(i+1, inner, true, true)
		if r.at(end).Type != TOKEN_RPAREN {
			return end
		}
		alias, aliasTok, next := r.alias(end + 1)
		if alias != "" {
			ds.target(alias)
			if inner.set {
				r.bind(alias, inner.source, true, aliasTok.Pos)
			}
		}
		return next

	case tok.Type == TOKEN_LPAREN:
		// Parenthesized join tree: (a JOIN b ON ...) [AS] x
		end := r.scope(i+1, nil, true, true)
		if r.at(end).Type != TOKEN_RPAREN {
			return end
		}
		_, _, next := r.alias(end + 1)
		return next

	case tok.IsName():
		parts := []string{tok.Literal}
		last := tok
		i++
		for r.at(i).Type == TOKEN_DOT && r.at(i+1).IsName() {
			last = r.at(i + 1)
			parts = append(parts, last.Literal)
			i += 2
		}
		source := strings.Join(parts, ".")
		if r.at(i).Type == TOKEN_LPAREN {
			// Table function: read_csv('x.csv') AS t
			i = r.scope(i+1, nil, false, true) + 1
		}
		ds.target(source)

		alias, aliasTok, next := r.alias(i)
		if alias != "" {
			r.bind(alias, source, false, aliasTok.Pos)
			return next
		}
		r.bind(last.Literal, source, false, last.Pos)
		if len(parts) > 1 {
			r.bind(source, source, false, tok.Pos)
		}
		return next
	}
	return i
}

// alias reads an optional "[AS] name" suffix, skipping a column alias list
// such as "AS t(a, b)".
func (r *resolver) alias(i int) (string, Token, int) {
	explicit := r.at(i).Type == TOKEN_AS
	if explicit {
		i++
	}
	tok := r.at(i)
	if !tok.IsName() {
		return "", tok, i
	}
	i++
	if r.at(i).Type == TOKEN_LPAREN && explicit {
		i = r.scope(i+1, nil, false, true) + 1
	}
	return tok.Literal, tok, i
}
