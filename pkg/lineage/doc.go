// Package lineage extracts column-level lineage from a single SQL SELECT
// statement without a full grammar.
//
// The pipeline is a sequence of small scans over the same text:
//
//	StripComments     drop -- and /* */ comments outside literals
//	LocateColumnList  text between SELECT and its depth-0 FROM
//	SplitColumns      split at depth-0 commas outside literals
//	DetectAlias       separate "expr [AS] alias"
//	ResolveTables     alias -> source table from FROM/JOIN targets
//	Compose           one ColumnMetadata per select-list entry
//
// Parse runs the pipeline and never fails: malformed input yields an empty
// result. Extract exposes the failure and the table bindings.
//
// Example:
//
//	cols := lineage.Parse(`SELECT M.acct_nb AS account FROM (SELECT acct_nb FROM db.accts) M`)
//	// cols[0]: source_table=db.accts source_column=acct_nb destination_alias=account
package lineage
