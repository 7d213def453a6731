package sema

import (
	"coolc/internal/ast"
	"coolc/internal/diag"
)

// Analyze runs all five passes of spec §4.3 over prog, reporting every
// diagnostic to sink. It always returns a ClassTable, even when errors were
// reported, so a caller that wants to keep inspecting the tree (tests, AST
// dumps) never has to nil-check it; callers that care whether the program is
// actually well-typed should check sink.HasErrors() instead.
func Analyze(prog *ast.Program, sink *diag.Sink) *ClassTable {
	table := BuildClassTable(prog, sink)
	BuildFeatureTables(table, sink)
	Check(prog, table, sink)
	return table
}
