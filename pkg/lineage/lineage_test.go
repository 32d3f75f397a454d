package lineage

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// col is a comparable view of ColumnMetadata; "-" marks an absent field.
type col struct {
	Table, Column, Alias, Expr string
}

func view(cols []ColumnMetadata) []col {
	deref := func(s *string) string {
		if s == nil {
			return "-"
		}
		return *s
	}
	out := make([]col, 0, len(cols))
	for _, c := range cols {
		out = append(out, col{deref(c.SourceTable), deref(c.SourceColumn), deref(c.DestinationAlias), c.SourceExpression})
	}
	return out
}

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

// =============================================================================
// Behavioural examples
// =============================================================================

func TestParse_Examples(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []col
	}{
		{
			name:  "comma inside literal",
			query: `SELECT LPAD(x,3,'a,b') y FROM t`,
			want:  []col{{"-", "LPAD(x,3,'a,b')", "y", "LPAD(x,3,'a,b')"}},
		},
		{
			name:  "nested sub-select column",
			query: `SELECT (SELECT 1 FROM t2) AS y, z FROM t1`,
			want: []col{
				{"-", "(SELECT 1 FROM t2)", "y", "(SELECT 1 FROM t2)"},
				{"-", "z", "-", "z"},
			},
		},
		{
			name:  "explicit alias after case",
			query: `SELECT CASE WHEN a THEN 1 ELSE 0 END AS flag FROM t`,
			want:  []col{{"-", "CASE WHEN a THEN 1 ELSE 0 END", "flag", "CASE WHEN a THEN 1 ELSE 0 END"}},
		},
		{
			name:  "implicit alias",
			query: `SELECT a + b c FROM t`,
			want:  []col{{"-", "a + b", "c", "a + b"}},
		},
		{
			name:  "derived table",
			query: `SELECT M.x FROM (SELECT x FROM base_table) M`,
			want:  []col{{"base_table", "x", "-", "M.x"}},
		},
		{
			name:  "unknown qualifier",
			query: `SELECT Z.x FROM t`,
			want:  []col{{UnknownTable, "x", "-", "Z.x"}},
		},
		{
			name:  "unqualified expression",
			query: `SELECT count(*) FROM t`,
			want:  []col{{"-", "count(*)", "-", "count(*)"}},
		},
		{
			name:  "comments and semicolon",
			query: "SELECT o.id, -- key\n o.total AS amt -- money, (\nFROM sales.orders o;",
			want: []col{
				{"sales.orders", "id", "-", "o.id"},
				{"sales.orders", "total", "amt", "o.total"},
			},
		},
		{
			name:  "distinct",
			query: `SELECT DISTINCT c.region FROM customers c`,
			want:  []col{{"customers", "region", "-", "c.region"}},
		},
		{
			name:  "with clause",
			query: `WITH recent AS (SELECT * FROM orders WHERE d > '2024-01-01') SELECT r.id FROM recent r`,
			want:  []col{{"recent", "id", "-", "r.id"}},
		},
		{
			name:  "empty column list",
			query: `SELECT FROM t`,
			want:  []col{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, view(Parse(tt.query)))
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"SELECT a, b",
		"DELETE FROM t",
		"SELECT COUNT(a, b FROM t",
		"SELECT a), b FROM t",
		"SELECT 'open FROM t",
		"SELECT a FROM t WHERE b = 'open",
		"(SELECT a) FROM t",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			var got []ColumnMetadata
			require.NotPanics(t, func() { got = Parse(input) })
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestExtract_ErrorKinds(t *testing.T) {
	tests := []struct {
		query string
		want  error
		kind  string
	}{
		{"INSERT INTO t VALUES (1)", ErrNoSelect, "no_select"},
		{"SELECT a, b", ErrNoTopLevelFrom, "no_top_level_from"},
		{"SELECT f(a FROM t", ErrUnbalancedParens, "unbalanced_parentheses"},
		{"SELECT a) FROM t", ErrUnbalancedParens, "unbalanced_parentheses"},
		{"SELECT 'a FROM t", ErrUnterminatedQuote, "unterminated_quote"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res, err := Extract(tt.query)
			assert.Nil(t, res)
			require.ErrorIs(t, err, tt.want)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.kind, perr.Kind())
			assert.Equal(t, tt.kind, ErrorKind(err))
		})
	}
}

func TestExtract_ReturnsBindings(t *testing.T) {
	res, err := Extract(`SELECT a.x FROM alpha a JOIN (SELECT y FROM beta) b ON a.id = b.id`)
	require.NoError(t, err)

	require.Len(t, res.Tables, 3)
	assert.Equal(t, TableBinding{Alias: "a", Source: "alpha", Pos: res.Tables[0].Pos}, res.Tables[0])
	assert.Equal(t, "beta", res.Tables[1].Alias)
	assert.Equal(t, TableBinding{Alias: "b", Source: "beta", Derived: true, Pos: res.Tables[2].Pos}, res.Tables[2])
}

func TestExtractWithOptions_ExtraKeywords(t *testing.T) {
	query := `SELECT a final FROM t`

	res, err := Extract(query)
	require.NoError(t, err)
	assert.Equal(t, []col{{"-", "a", "final", "a"}}, view(res.Columns))

	res, err = ExtractWithOptions(query, Options{ExtraKeywords: []string{" FINAL "}})
	require.NoError(t, err)
	assert.Equal(t, []col{{"-", "a final", "-", "a final"}}, view(res.Columns))
}

// =============================================================================
// Properties
// =============================================================================

func TestParse_RecordCountMatchesTopLevelSpans(t *testing.T) {
	queries := []string{
		`SELECT a, b, c FROM t`,
		`SELECT f(a, b), 'x,y', (SELECT 1 FROM u), CASE WHEN a IN (1, 2) THEN 1 END FROM t`,
		readFixture(t, "accounts.sql"),
		readFixture(t, "derived_join.sql"),
	}

	for _, q := range queries {
		span, err := LocateColumnList(StripComments(q))
		require.NoError(t, err)
		spans, err := SplitColumns(span)
		require.NoError(t, err)

		assert.Len(t, Parse(q), len(spans))
	}
}

func TestParse_Idempotent(t *testing.T) {
	q := readFixture(t, "accounts.sql")
	assert.Equal(t, Parse(q), Parse(q))
}

func TestParse_InputUnchanged(t *testing.T) {
	q := "SELECT a -- c\nFROM t"
	orig := q
	_ = Parse(q)
	assert.Equal(t, orig, q)
}

// =============================================================================
// Fixtures
// =============================================================================

func TestParse_AccountsFixture(t *testing.T) {
	const (
		mgrt  = "PROD_110575_ICDW_DB.CUSTOMERCORE_V.CST_FRC_MGRT_ACCT"
		src   = "PROD_110575_ICDW_DB.CUSTOMERCORE_V.CST_FRC_SRC_ACCT"
		dtl   = "PROD_110575_ICDW_DB.CUSTOMERCORE_V.ENTP_PRTY_ACCT_DTL"
		loan  = "PROD_111894_DB.FRB_ODM_LOAN_SILVER_MART_V.T_DIM_ORIG_LOAN"
		dim   = "PROD_111894_DB.FRB_RDM_LOAN_SILVER_MART_T.T_DIM_LOAN"
		cdmTb = "PROD_111894_DB.FRB_CUSTDM_DBO_T.T_CDM_ACCT"
	)

	want := []col{
		{mgrt, "ACCT_NB", "JPMC_ACCT_NBR", "LTRIM(M.ACCT_NB,'0')"},
		{mgrt, "FIRM_BANK_ID", "BNK_NB", "RIGHT(M.FIRM_BANK_ID,3)"},
		{dtl, "PROD_TX", "PROD_TX", "COALESCE(EDW.PROD_TX,EDW2.PROD_TX,EDW3.PROD_TX)"},
		{mgrt, "ENTP_PROD_CLS_CD", "PROD_CD", "M.ENTP_PROD_CLS_CD"},
		{mgrt, "SUB_PROD_CD", "SUB_PROD_CD", "LPAD(M.SUB_PROD_CD,3,'0')"},
		{dtl, "LOB_CD", "CUST_LOB", "COALESCE(EDW.LOB_CD,EDW2.LOB_CD,EDW3.LOB_CD)"},
		{src, "EXTN_BANK_ACCT_NB", "FRB_ACCT_NBR", "S.EXTN_BANK_ACCT_NB"},
		{src, "EXTN_SRC_SYS_UNQ_ID", "FRB_GAID", "S.EXTN_SRC_SYS_UNQ_ID"},
		{loan, "LOAN_ID", "NETOX_LOAN_ID", "O.LOAN_ID"},
		{dim, "TRANCHE_ACCT_NBR", "FRB_TRANCHE_ACCT_NBR", "L.TRANCHE_ACCT_NBR"},
		{dim, "BISYS_NBR_FMT", "FRB_BISYS_NBR_FMT", "L.BISYS_NBR_FMT"},
		{cdmTb, "CDM_ACCT_KEY", "-", "C.CDM_ACCT_KEY"},
	}

	assert.Equal(t, want, view(Parse(readFixture(t, "accounts.sql"))))
}

func TestParse_DerivedJoinFixture(t *testing.T) {
	const (
		mgrt = "PROD_110575_ICDW_DB.CUSTOMERCORE_V.CST_FRC_MGRT_ACCT"
		mp   = "PROD_110575_ICDW_DB.CUSTOMERCORE_V.CST_FRC_ACCT_MP"
	)

	want := []col{
		{mgrt, "ACCT_NB", "JPMC_ACCT_NBR", "LTRIM(M.ACCT_NB, '0')"},
		{mgrt, "FIRM_BANK_ID", "BNK_NB", "RIGHT(M.FIRM_BANK_ID, 3)"},
		{mp, "INTNT_ACCT_RCRD_ID", "INTENT_ID", "MP.INTNT_ACCT_RCRD_ID"},
		{"-", "'FRB'", "SRC_SYS", "'FRB'"},
	}

	assert.Equal(t, want, view(Parse(readFixture(t, "derived_join.sql"))))
}

func TestParse_TruncatedInputNeverPanics(t *testing.T) {
	q := readFixture(t, "accounts.sql")
	for i := 0; i <= len(q); i += 7 {
		prefix := q[:i]
		assert.NotPanics(t, func() { _ = Parse(prefix) })
	}
}

func TestParse_Concurrent(t *testing.T) {
	t.Parallel()

	queries := []string{
		readFixture(t, "accounts.sql"),
		readFixture(t, "derived_join.sql"),
		`SELECT M.x FROM (SELECT x FROM base_table) M`,
		`SELECT äö.a FROM db.t ÄÖ`,
	}
	want := make([][]ColumnMetadata, len(queries))
	for i, q := range queries {
		want[i] = Parse(q)
	}

	const workers = 16
	got := make([][][]ColumnMetadata, workers)
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, q := range queries {
				got[w] = append(got[w], Parse(q))
			}
		}()
	}
	wg.Wait()

	for w := range workers {
		assert.Equal(t, want, got[w], "worker %d", w)
	}
}

func FuzzParse(f *testing.F) {
	f.Add(`SELECT LPAD(x,3,'a,b') y FROM t`)
	f.Add(`SELECT M.x FROM (SELECT x FROM base_table) M`)
	f.Add("SELECT a -- c\n, 'it''s' b FROM t")
	f.Add(`SELECT ((((a FROM t`)

	f.Fuzz(func(t *testing.T, q string) {
		first := Parse(q)
		require.NotNil(t, first)
		assert.Equal(t, first, Parse(q))
		for _, c := range first {
			if c.DestinationAlias != nil {
				assert.True(t, isIdentifier(*c.DestinationAlias), *c.DestinationAlias)
			}
		}
	})
}
