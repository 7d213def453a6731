package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"coolc/internal/diag"
	"coolc/internal/lexer"
	"coolc/internal/parser"
	"coolc/internal/sema"
)

// translateSrc mirrors the lex-then-parse-then-analyze helpers used
// throughout lexer_test.go/parser_test.go/sema_test.go, adding the
// translate-to-TAC step this package owns.
func translateSrc(t *testing.T, src string) *Program {
	t.Helper()
	sink := diag.NewSink("t.cl")
	toks := lexer.Lex(src, sink)
	prog := parser.Parse(toks, sink)
	table := sema.Analyze(prog, sink)
	assert.False(t, sink.HasErrors(), "unexpected sema errors")
	return Translate(prog, table)
}

func TestTranslate_LiteralReturnsConst(t *testing.T) {
	prog := translateSrc(t, `class Main { main() : Int { 42 }; };`)
	m := findMethod(prog, "Main", "main")
	ret, ok := lastInstr(m).(Return)
	assert.True(t, ok)
	c, ok := ret.Val.(Const)
	assert.True(t, ok)
	assert.Equal(t, int64(42), c.I)
}

func TestTranslate_BinOpEmitsBinaryOp(t *testing.T) {
	prog := translateSrc(t, `class Main { main() : Int { 1 + 2 }; };`)
	m := findMethod(prog, "Main", "main")
	var found bool
	for _, i := range m.Instrs {
		if b, ok := i.(BinaryOp); ok {
			found = true
			assert.Equal(t, Add, b.Op)
		}
	}
	assert.True(t, found, "expected a BinaryOp instruction")
}

func TestTranslate_AttributeAccessEmitsGetAttr(t *testing.T) {
	prog := translateSrc(t, `
		class Main inherits IO {
			x : Int <- 5;
			main() : Int { x };
		};
	`)
	m := findMethod(prog, "Main", "main")
	var found bool
	for _, i := range m.Instrs {
		if g, ok := i.(GetAttr); ok && g.Attr == "x" {
			found = true
		}
	}
	assert.True(t, found, "expected a GetAttr for attribute x")
}

func TestTranslate_IfEmitsCondJumpAndLabels(t *testing.T) {
	prog := translateSrc(t, `class Main { main() : Int { if true then 1 else 2 fi }; };`)
	m := findMethod(prog, "Main", "main")
	var sawCond, sawLabel bool
	for _, i := range m.Instrs {
		switch i.(type) {
		case CondJumpNot:
			sawCond = true
		case LabelInstr:
			sawLabel = true
		}
	}
	assert.True(t, sawCond)
	assert.True(t, sawLabel)
}

func TestTranslate_ClassInitLowersAttributeInitializer(t *testing.T) {
	prog := translateSrc(t, `
		class Main {
			x : Int <- 7;
			main() : Int { x };
		};
	`)
	m := findMethod(prog, "Main", InitMethodName)
	if assert.NotNil(t, m) {
		var found bool
		for _, i := range m.Instrs {
			if s, ok := i.(SetAttr); ok && s.Attr == "x" {
				found = true
			}
		}
		assert.True(t, found, "expected a SetAttr lowering x's initializer")
	}
}

func TestBuildCFG_StraightLineIsOneBlock(t *testing.T) {
	prog := translateSrc(t, `class Main { main() : Int { 1 + 2 }; };`)
	m := findMethod(prog, "Main", "main")
	g := BuildCFG(m.Instrs)
	assert.Len(t, g.Blocks, 1)
	assert.Empty(t, g.Blocks[0].Preds)
}

func TestBuildCFG_IfSplitsIntoMultipleBlocksWithEdges(t *testing.T) {
	prog := translateSrc(t, `class Main { main() : Int { if true then 1 else 2 fi }; };`)
	m := findMethod(prog, "Main", "main")
	g := BuildCFG(m.Instrs)
	assert.Greater(t, len(g.Blocks), 1)

	var condBlock *BasicBlock
	for _, b := range g.Blocks {
		if _, ok := lastInstrOf(b).(CondJumpNot); ok {
			condBlock = b
		}
	}
	assert.NotNil(t, condBlock)
	assert.Len(t, condBlock.Succs, 2)
}

func TestBuildCFG_ReturnBlockIsExit(t *testing.T) {
	prog := translateSrc(t, `class Main { main() : Int { 1 }; };`)
	m := findMethod(prog, "Main", "main")
	g := BuildCFG(m.Instrs)
	exits := g.ExitBlocks()
	assert.NotEmpty(t, exits)
	assert.Empty(t, exits[0].Succs)
}

func TestReversePostorder_EntryComesFirst(t *testing.T) {
	prog := translateSrc(t, `class Main { main() : Int { if true then 1 else 2 fi }; };`)
	m := findMethod(prog, "Main", "main")
	g := BuildCFG(m.Instrs)
	order := g.ReversePostorder()
	assert.Equal(t, g.Entry.ID, order[0].ID)
}

func TestConstValue_MeetIsCommutativeOnEqualAndDiffering(t *testing.T) {
	a := constValOf(Const{Type: "Int", I: 3})
	b := constValOf(Const{Type: "Int", I: 3})
	c := constValOf(Const{Type: "Int", I: 4})

	assert.True(t, a.Meet(b).IsConst())
	assert.True(t, a.Meet(c).IsTop())
	assert.Equal(t, a, constValBottom().Meet(a))
	assert.Equal(t, a.Meet(b), b.Meet(a))
	assert.Equal(t, a.Meet(c), c.Meet(a))
	assert.Equal(t, a.Meet(constValBottom()), constValBottom().Meet(a))
}

func TestFoldConstants_PropagatesThroughStraightLine(t *testing.T) {
	prog := translateSrc(t, `class Main { main() : Int { 2 + 3 }; };`)
	m := findMethod(prog, "Main", "main")
	g := FoldConstants(BuildCFG(m.Instrs))
	instrs := g.Flatten()
	ret, ok := lastInstr(&Method{Instrs: instrs}).(Return)
	assert.True(t, ok)
	c, ok := ret.Val.(Const)
	if assert.True(t, ok, "expected Return operand folded to a Const") {
		assert.Equal(t, int64(5), c.I)
	}
}

func TestEliminateDeadCode_DropsUnusedTemp(t *testing.T) {
	instrs := []Instruction{
		Comment{Text: "Main.main"},
		BinaryOp{Dst: Temp{0}, Op: Add, Lhs: Const{Type: "Int", I: 1}, Rhs: Const{Type: "Int", I: 2}},
		Copy{Dst: Temp{1}, Src: Const{Type: "Int", I: 9}},
		Return{Val: Temp{1}},
	}
	g := EliminateDeadCode(BuildCFG(instrs))
	out := g.Flatten()
	for _, i := range out {
		if b, ok := i.(BinaryOp); ok {
			assert.NotEqual(t, Temp{0}, b.Dst, "dead BinaryOp into t0 should have been eliminated")
		}
	}
}

func TestEliminateDeadCode_KeepsSideEffectingInstructions(t *testing.T) {
	instrs := []Instruction{
		SetAttr{Recv: Var{Name: "self"}, Attr: "x", Val: Const{Type: "Int", I: 1}},
		Return{Val: Var{Name: "self"}},
	}
	g := EliminateDeadCode(BuildCFG(instrs))
	out := g.Flatten()
	var sawSetAttr bool
	for _, i := range out {
		if _, ok := i.(SetAttr); ok {
			sawSetAttr = true
		}
	}
	assert.True(t, sawSetAttr, "SetAttr has a side effect and must survive DCE")
}

func TestThreadJumps_CollapsesJumpChain(t *testing.T) {
	instrs := []Instruction{
		Jump{Target: Label{Name: "mid"}},
		LabelInstr{L: Label{Name: "mid"}},
		Jump{Target: Label{Name: "end"}},
		LabelInstr{L: Label{Name: "end"}},
		Return{Val: Const{Type: "Int", I: 0}},
	}
	g := ThreadJumps(BuildCFG(instrs))
	entryLast := lastInstrOf(g.Entry)
	j, ok := entryLast.(Jump)
	if assert.True(t, ok) {
		assert.Equal(t, "end", j.Target.Name)
	}
}

func TestOptimize_FoldsConstantChainToLiteral(t *testing.T) {
	prog := translateSrc(t, `class Main { main() : Int { 1 + 1 + 1 }; };`)
	Optimize(prog)
	m := findMethod(prog, "Main", "main")
	ret, ok := lastInstr(m).(Return)
	if assert.True(t, ok) {
		c, ok := ret.Val.(Const)
		if assert.True(t, ok, "fully-constant expression should fold to a literal") {
			assert.Equal(t, int64(3), c.I)
		}
	}
}

func findMethod(p *Program, cls, name string) *Method {
	for _, m := range p.Methods {
		if m.ClassName == cls && m.MethodName == name {
			return m
		}
	}
	return nil
}

func lastInstr(m *Method) Instruction {
	if m == nil || len(m.Instrs) == 0 {
		return nil
	}
	return m.Instrs[len(m.Instrs)-1]
}

func lastInstrOf(b *BasicBlock) Instruction {
	if len(b.Instrs) == 0 {
		return nil
	}
	return b.Instrs[len(b.Instrs)-1]
}
