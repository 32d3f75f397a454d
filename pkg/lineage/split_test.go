package lineage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitColumns(t *testing.T) {
	tests := []struct {
		name string
		span string
		want []string
	}{
		{"simple", " a, b ,c ", []string{"a", "b", "c"}},
		{"nested function", "COALESCE(a, b, c) x, d", []string{"COALESCE(a, b, c) x", "d"}},
		{"comma in literal", "LPAD(x,3,'a,b') y", []string{"LPAD(x,3,'a,b') y"}},
		{"paren in literal", "'(' AS open, ')' AS close", []string{"'(' AS open", "')' AS close"}},
		{"escaped quote", "'it''s, fine' AS s, b", []string{"'it''s, fine' AS s", "b"}},
		{"sub-select", "(SELECT 1 FROM t2) AS y, z", []string{"(SELECT 1 FROM t2) AS y", "z"}},
		{"deep nesting", "f(g(h(1, 2), 3), 4), 5", []string{"f(g(h(1, 2), 3), 4)", "5"}},
		{"multi line keeps inner whitespace", "\n  a +\n  b AS c,\n  d\n", []string{"a +\n  b AS c", "d"}},
		{"trailing comma", "a, b,", []string{"a", "b"}},
		{"empty pieces dropped", "a,, b", []string{"a", "b"}},
		{"quoted identifier with comma", `"x,y" AS z`, []string{`"x,y" AS z`}},
		{"brackets do not group", "arr[1] AS head, [a,b]", []string{"arr[1] AS head", "[a", "b]"}},
		{"window function", "ROW_NUMBER() OVER (PARTITION BY a, b ORDER BY c) rn",
			[]string{"ROW_NUMBER() OVER (PARTITION BY a, b ORDER BY c) rn"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitColumns(tt.span)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitColumns_Empty(t *testing.T) {
	for _, span := range []string{"", "   ", "\n\t"} {
		got, err := SplitColumns(span)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestSplitColumns_Errors(t *testing.T) {
	tests := []struct {
		name string
		span string
		want error
	}{
		{"unclosed paren", "COUNT(a, b", ErrUnbalancedParens},
		{"stray close paren", "a), b", ErrUnbalancedParens},
		{"unterminated literal", "a, 'b", ErrUnterminatedQuote},
		{"escape at end", "'abc''", ErrUnterminatedQuote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitColumns(tt.span)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, got)
		})
	}
}

func TestSplitColumns_ErrorPosition(t *testing.T) {
	_, err := SplitColumns("a,\n  f(b")

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Pos.Line)
	assert.Equal(t, 4, perr.Pos.Column)
}
