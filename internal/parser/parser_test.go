package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"coolc/internal/ast"
	"coolc/internal/diag"
	"coolc/internal/lexer"
)

func parse(src string) (*ast.Program, *diag.Sink) {
	sink := diag.NewSink("t.cl")
	toks := lexer.Lex(src, sink)
	prog := Parse(toks, sink)
	return prog, sink
}

func TestParser_MinimalClass(t *testing.T) {
	prog, sink := parse("class Main { };")
	assert.False(t, sink.HasErrors())
	assert.Len(t, prog.Classes, 1)
	assert.Equal(t, "Main", prog.Classes[0].Name)
	assert.Equal(t, "Object", prog.Classes[0].Parent)
}

func TestParser_ClassWithInherits(t *testing.T) {
	prog, sink := parse("class B inherits A { };")
	assert.False(t, sink.HasErrors())
	assert.Equal(t, "A", prog.Classes[0].Parent)
}

func TestParser_AttributeFeature(t *testing.T) {
	testData := []struct {
		Content string
	}{
		{Content: "class A { x : Int; };"},
		{Content: "class A { x : Int <- 1; };"},
		{Content: "class A { x : String <- \"hi\"; };"},
	}
	for _, data := range testData {
		prog, sink := parse(data.Content)
		assert.False(t, sink.HasErrors(), data.Content)
		attr, ok := prog.Classes[0].Features[0].(*ast.Attribute)
		assert.True(t, ok, data.Content)
		assert.Equal(t, "x", attr.Name)
	}
}

func TestParser_MethodFeature(t *testing.T) {
	prog, sink := parse("class A { f(x : Int, y : Int) : Int { x + y }; };")
	assert.False(t, sink.HasErrors())
	m, ok := prog.Classes[0].Features[0].(*ast.Method)
	assert.True(t, ok)
	assert.Equal(t, "f", m.Name)
	assert.Len(t, m.Formals, 2)
	assert.Equal(t, "Int", m.RetType)
	bin, ok := m.Body.(*ast.BinOp)
	assert.True(t, ok)
	assert.Equal(t, ast.Add, bin.Op)
}

func TestParser_ExpressionPrecedence(t *testing.T) {
	testData := []struct {
		Content string
	}{
		{Content: "a + b * c"},
		{Content: "a * b + c"},
		{Content: "a < b + c"},
		{Content: "not a < b"},
		{Content: "isvoid ~a"},
		{Content: "~isvoid a"},
		{Content: "a <- b <- c"},
		{Content: "a.b(c).d(e)"},
		{Content: "a@B.c()"},
		{Content: "(a + b) * c"},
	}
	for _, data := range testData {
		body := "class A { f() : Int { " + data.Content + " }; };"
		_, sink := parse(body)
		assert.False(t, sink.HasErrors(), data.Content)
	}
}

func TestParser_AdditiveIsLeftAssociative(t *testing.T) {
	_, sink := parse("class A { f() : Int { 1 + 2 + 3 }; };")
	assert.False(t, sink.HasErrors())
}

func TestParser_ComparisonIsNonAssociative(t *testing.T) {
	_, sink := parse("class A { f() : Bool { 1 < 2 < 3 }; };")
	assert.True(t, sink.HasErrors())
}

func TestParser_IfWhileBlock(t *testing.T) {
	testData := []struct {
		Content string
	}{
		{Content: "if true then 1 else 2 fi"},
		{Content: "while true loop 1 pool"},
		{Content: "{ 1; 2; 3; }"},
	}
	for _, data := range testData {
		body := "class A { f() : Int { " + data.Content + " }; };"
		_, sink := parse(body)
		assert.False(t, sink.HasErrors(), data.Content)
	}
}

func TestParser_EmptyBlockIsAnError(t *testing.T) {
	_, sink := parse("class A { f() : Int { { } }; };")
	assert.True(t, sink.HasErrors())
}

func TestParser_LetSingleBinding(t *testing.T) {
	prog, sink := parse("class A { f() : Int { let x : Int <- 1 in x }; };")
	assert.False(t, sink.HasErrors())
	m := prog.Classes[0].Features[0].(*ast.Method)
	let, ok := m.Body.(*ast.Let)
	assert.True(t, ok)
	assert.Equal(t, "x", let.Binding.Name)
}

// TestParser_LetDesugarsToNestedSingleBindings checks that a multi-binding
// let produces nested ast.Let nodes, innermost binding last (spec §4.2).
func TestParser_LetDesugarsToNestedSingleBindings(t *testing.T) {
	prog, sink := parse("class A { f() : Int { let x : Int <- 1, y : Int <- 2 in x + y }; };")
	assert.False(t, sink.HasErrors())
	m := prog.Classes[0].Features[0].(*ast.Method)
	outer, ok := m.Body.(*ast.Let)
	assert.True(t, ok)
	assert.Equal(t, "x", outer.Binding.Name)
	inner, ok := outer.Body.(*ast.Let)
	assert.True(t, ok)
	assert.Equal(t, "y", inner.Binding.Name)
	_, ok = inner.Body.(*ast.BinOp)
	assert.True(t, ok)
}

func TestParser_CaseExpression(t *testing.T) {
	prog, sink := parse("class A { f() : Int { case x of a : Int => 1; b : String => 2; esac }; };")
	assert.False(t, sink.HasErrors())
	m := prog.Classes[0].Features[0].(*ast.Method)
	c, ok := m.Body.(*ast.Case)
	assert.True(t, ok)
	assert.Len(t, c.Branches, 2)
	assert.Equal(t, "a", c.Branches[0].Name)
	assert.Equal(t, "Int", c.Branches[0].Type)
}

func TestParser_EmptyCaseIsAnError(t *testing.T) {
	_, sink := parse("class A { f() : Int { case x of esac }; };")
	assert.True(t, sink.HasErrors())
}

func TestParser_NewAndDispatch(t *testing.T) {
	prog, sink := parse("class A { f() : B { new B }; g() : Int { out_int(1) }; };")
	assert.False(t, sink.HasErrors())
	m := prog.Classes[0].Features[0].(*ast.Method)
	n, ok := m.Body.(*ast.New)
	assert.True(t, ok)
	assert.Equal(t, "B", n.TypeName)

	g := prog.Classes[0].Features[1].(*ast.Method)
	d, ok := g.Body.(*ast.Dispatch)
	assert.True(t, ok)
	assert.Nil(t, d.Receiver)
	assert.Equal(t, "out_int", d.Method)
}

func TestParser_MalformedClassRecoversAndReportsSiblings(t *testing.T) {
	prog, sink := parse("class { }; class B { };")
	assert.True(t, sink.HasErrors())
	assert.Len(t, prog.Classes, 1)
	assert.Equal(t, "B", prog.Classes[0].Name)
}

func TestParser_MissingSemicolonAfterFeatureRecovers(t *testing.T) {
	_, sink := parse("class A { x : Int y : Int; };")
	assert.True(t, sink.HasErrors())
}
