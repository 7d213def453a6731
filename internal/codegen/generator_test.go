package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"coolc/internal/diag"
	"coolc/internal/ir"
	"coolc/internal/lexer"
	"coolc/internal/parser"
	"coolc/internal/sema"
)

// generateSrc mirrors the lex-then-parse-then-analyze-then-translate
// helpers used throughout internal/ir's tests, adding the final
// optimize-then-generate steps this package owns.
func generateSrc(t *testing.T, src string) string {
	t.Helper()
	sink := diag.NewSink("t.cl")
	toks := lexer.Lex(src, sink)
	prog := parser.Parse(toks, sink)
	table := sema.Analyze(prog, sink)
	assert.False(t, sink.HasErrors(), "unexpected sema errors")
	tac := ir.Optimize(ir.Translate(prog, table))
	return Generate(table, tac, sink)
}

func TestGenerate_HelloWorldEmitsEntryPointAndStringLiteral(t *testing.T) {
	out := generateSrc(t, `
		class Main inherits IO {
			main() : Object { out_string("Hello, World.\n") };
		};
	`)
	assert.Contains(t, out, "main:")
	assert.Contains(t, out, "_method_Main_main:")
	assert.Contains(t, out, "Hello, World.")
}

func TestGenerate_ArithmeticUnboxesAndReboxes(t *testing.T) {
	out := generateSrc(t, `class Main { x : Int <- 3; main() : Int { x + 4 * x }; };`)
	assert.Contains(t, out, "_method_Main_main:")
	assert.Contains(t, out, "_protObj_Int")
	assert.Contains(t, out, "mul")
	assert.Contains(t, out, "add")
}

func TestGenerate_AttributeInitializerEmitsSetAttrInInit(t *testing.T) {
	out := generateSrc(t, `
		class Main {
			x : Int <- 5;
			main() : Int { x };
		};
	`)
	assert.Contains(t, out, "_init_Main:")
	// Main has no inherited attributes, so x is the first attribute slot
	// (objectHeaderSize, spec §3's layout table).
	assert.Contains(t, out, "sw    $a0, 12($t0)")
}

func TestGenerate_DispatchLoadsFromDispatchTableOffset(t *testing.T) {
	out := generateSrc(t, `
		class A {
			f() : Int { 1 };
		};
		class Main inherits A {
			main() : Int { f() };
		};
	`)
	assert.Contains(t, out, "lw    $t0, 8($a0)")
	assert.Contains(t, out, "jalr")
}

func TestGenerate_StaticDispatchCallsDefiningClassDirectly(t *testing.T) {
	out := generateSrc(t, `
		class A {
			f() : Int { 1 };
		};
		class B inherits A {
			f() : Int { 2 };
		};
		class Main inherits B {
			main() : Int { self@A.f() };
		};
	`)
	assert.Contains(t, out, "jal   _method_A_f")
}

func TestGenerate_NewClonesPrototypeAndRunsInit(t *testing.T) {
	out := generateSrc(t, `
		class Foo { };
		class Main {
			main() : Object { new Foo };
		};
	`)
	assert.Contains(t, out, "la    $a0, _protObj_Foo")
	assert.Contains(t, out, "jal   _init_Foo")
}

func TestGenerate_CaseEmitsPreOrdRangeCheck(t *testing.T) {
	out := generateSrc(t, `
		class A { };
		class B inherits A { };
		class Main {
			main() : Int {
				case (new B) of
					x : B => 1;
					y : A => 2;
				esac
			};
		};
	`)
	assert.Contains(t, out, "_class_preord_table")
}

func TestGenerate_IsDeterministicAcrossRuns(t *testing.T) {
	src := `
		class Main inherits IO {
			x : Int <- 1;
			main() : Object {
				{
					out_int(x);
					if x < 2 then out_string("small\n") else out_string("big\n") fi;
				}
			};
		};
	`
	first := generateSrc(t, src)
	second := generateSrc(t, src)
	assert.Equal(t, first, second)
}

func TestGenerate_DivisionByZeroChecksBeforeDiv(t *testing.T) {
	out := generateSrc(t, `class Main { main() : Int { 1 / 0 }; };`)
	idx := strings.Index(out, "div   $t2")
	assert.True(t, idx > 0, "expected a div instruction in output")
	assert.Contains(t, out, "_msg_div_zero")
}
