package sema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"coolc/internal/ast"
	"coolc/internal/diag"
	"coolc/internal/lexer"
	"coolc/internal/parser"
)

func analyze(src string) (*ast.Program, *ClassTable, *diag.Sink) {
	sink := diag.NewSink("t.cl")
	toks := lexer.Lex(src, sink)
	prog := parser.Parse(toks, sink)
	table := Analyze(prog, sink)
	return prog, table, sink
}

func TestSema_MinimalProgramWithMain(t *testing.T) {
	_, _, sink := analyze("class Main { main() : Object { 0 }; };")
	assert.False(t, sink.HasErrors())
}

func TestSema_MissingMainIsAnError(t *testing.T) {
	_, _, sink := analyze("class Foo { };")
	assert.True(t, sink.HasErrors())
}

func TestSema_MainWithoutMainMethodIsAnError(t *testing.T) {
	_, _, sink := analyze("class Main { f() : Object { 0 }; };")
	assert.True(t, sink.HasErrors())
}

func TestSema_UndeclaredParentIsAnError(t *testing.T) {
	_, _, sink := analyze("class Main inherits Ghost { main() : Object { 0 }; }; ")
	assert.True(t, sink.HasErrors())
}

func TestSema_InheritFromIntIsAnError(t *testing.T) {
	_, _, sink := analyze("class A inherits Int { }; class Main { main() : Object { 0 }; };")
	assert.True(t, sink.HasErrors())
}

func TestSema_InheritanceCycleIsAnError(t *testing.T) {
	_, _, sink := analyze(`
		class A inherits B { };
		class B inherits A { };
		class Main { main() : Object { 0 }; };
	`)
	assert.True(t, sink.HasErrors())
}

func TestSema_DuplicateClassIsAnError(t *testing.T) {
	_, _, sink := analyze("class A { }; class A { }; class Main { main() : Object { 0 }; };")
	assert.True(t, sink.HasErrors())
}

func TestSema_HierarchyDepthAndConformance(t *testing.T) {
	_, table, sink := analyze(`
		class A { };
		class B inherits A { };
		class C inherits B { };
		class Main { main() : Object { 0 }; };
	`)
	assert.False(t, sink.HasErrors())
	a, b, c := table.Lookup("A"), table.Lookup("B"), table.Lookup("C")
	assert.Equal(t, 1, a.Decl.Depth)
	assert.Equal(t, 2, b.Decl.Depth)
	assert.Equal(t, 3, c.Decl.Depth)
	assert.True(t, table.Conforms("C", "A", "Main"))
	assert.False(t, table.Conforms("A", "C", "Main"))
	assert.True(t, table.Conforms("C", "C", "Main"))
}

func TestSema_LUBFindsNearestCommonAncestor(t *testing.T) {
	_, table, sink := analyze(`
		class A { };
		class B inherits A { };
		class C inherits A { };
		class Main { main() : Object { 0 }; };
	`)
	assert.False(t, sink.HasErrors())
	assert.Equal(t, "A", table.LUB("B", "C", "Main"))
}

func TestSema_AttributeRedefinitionIsAnError(t *testing.T) {
	_, _, sink := analyze(`
		class A { x : Int; };
		class B inherits A { x : Int; };
		class Main { main() : Object { 0 }; };
	`)
	assert.True(t, sink.HasErrors())
}

func TestSema_MethodOverrideWithDifferentSignatureIsAnError(t *testing.T) {
	_, _, sink := analyze(`
		class A { f(x : Int) : Int { x }; };
		class B inherits A { f(x : String) : Int { 0 }; };
		class Main { main() : Object { 0 }; };
	`)
	assert.True(t, sink.HasErrors())
}

func TestSema_MethodOverrideWithSameSignatureIsOK(t *testing.T) {
	_, _, sink := analyze(`
		class A { f(x : Int) : Int { x }; };
		class B inherits A { f(x : Int) : Int { x + 1 }; };
		class Main { main() : Object { 0 }; };
	`)
	assert.False(t, sink.HasErrors())
}

func TestSema_ArithmeticRequiresInt(t *testing.T) {
	_, _, sink := analyze(`class Main { main() : Object { "a" + 1 }; };`)
	assert.True(t, sink.HasErrors())
}

func TestSema_IfBranchesLUB(t *testing.T) {
	prog, _, sink := analyze(`
		class A { };
		class B inherits A { };
		class C inherits A { };
		class Main {
			main() : A { if true then (new B) else (new C) fi };
		};
	`)
	assert.False(t, sink.HasErrors())
	main := prog.Classes[len(prog.Classes)-1]
	m := main.Features[0].(*ast.Method)
	assert.Equal(t, "A", m.Body.Type())
}

func TestSema_DispatchOnUndeclaredMethodIsAnError(t *testing.T) {
	_, _, sink := analyze(`
		class Main { main() : Object { self.ghost() }; };
	`)
	assert.True(t, sink.HasErrors())
}

func TestSema_DispatchArityMismatchIsAnError(t *testing.T) {
	_, _, sink := analyze(`
		class A { f(x : Int) : Int { x }; };
		class Main { main() : Object { (new A).f() }; };
	`)
	assert.True(t, sink.HasErrors())
}

func TestSema_StaticDispatchRequiresAncestor(t *testing.T) {
	_, _, sink := analyze(`
		class A { f() : Int { 1 }; };
		class B { };
		class Main { main() : Object { (new A)@B.f() }; };
	`)
	assert.True(t, sink.HasErrors())
}

func TestSema_LetIntroducesBinding(t *testing.T) {
	_, _, sink := analyze(`class Main { main() : Int { let x : Int <- 1 in x + 1 }; };`)
	assert.False(t, sink.HasErrors())
}

func TestSema_CaseBranchesMustHaveDistinctTypes(t *testing.T) {
	_, _, sink := analyze(`
		class Main {
			main() : Object {
				case 1 of a : Int => 1; b : Int => 2; esac
			};
		};
	`)
	assert.True(t, sink.HasErrors())
}

func TestSema_BuiltinIOAndStringMethodsResolve(t *testing.T) {
	_, _, sink := analyze(`
		class Main inherits IO {
			main() : Object {
				{
					out_string("hi".concat("!"));
					out_int(1 + "hi".length());
				}
			};
		};
	`)
	assert.False(t, sink.HasErrors())
}

func TestSema_NewSelfTypeResolvesToEnclosingClass(t *testing.T) {
	prog, _, sink := analyze(`
		class A { copySelf() : SELF_TYPE { new SELF_TYPE }; };
		class Main { main() : Object { 0 }; };
	`)
	assert.False(t, sink.HasErrors())
	a := prog.Classes[0]
	m := a.Features[0].(*ast.Method)
	assert.Equal(t, ast.SelfType, m.Body.Type())
}
