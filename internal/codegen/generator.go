package codegen

import (
	"bytes"
	"fmt"
	"math"

	"coolc/internal/diag"
	"coolc/internal/ir"
	"coolc/internal/sema"
)

// Generator accumulates MIPS32 assembly text for one program, grounded on
// pycoolc/codegen.py's MIPSCodeGenerator and on the teacher's own
// VMTranslator/Assembler, both of which build their output in a
// bytes.Buffer via WriteString/Sprintf rather than an AST of instructions.
type Generator struct {
	table  *sema.ClassTable
	layout *Layout
	prog   *ir.Program
	sink   *diag.Sink
	out    bytes.Buffer

	methodsByClass map[string]map[string]*ir.Method
	initByClass    map[string]*ir.Method

	strConsts map[string]string
	strOrder  []string
	intConsts map[int64]string
	intOrder  []int64

	numTemps map[*ir.Method]int

	// Per-method emission state, reset at the start of each _init_<C>/
	// _method_<C>_<m>.
	curClass      *ClassLayout
	curParams     map[string]int
	pendingParams []ir.Operand
	labelCounter  int
}

// freshLabel issues a codegen-internal label, distinct from the ir
// package's own per-method LabelGen: these number across the whole
// program (they back short branch sequences emitted while lowering a
// single TAC instruction, never a jump target named by the IR itself).
func (g *Generator) freshLabel(hint string) string {
	g.labelCounter++
	return fmt.Sprintf("_%s_%d", hint, g.labelCounter)
}

// Generate lowers an optimized TAC program into a complete SPIM-runnable
// MIPS32 assembly text. Integer literals outside the 32-bit signed range
// are reported to sink as spec §4.1/§7 requires ("values that exceed
// 2^31-1 are still accepted lexically and flagged at codegen"); the text is
// still produced (with the literal truncated) so callers that want to keep
// inspecting output after an error can.
func Generate(table *sema.ClassTable, prog *ir.Program, sink *diag.Sink) string {
	g := &Generator{
		table:          table,
		layout:         BuildLayout(table),
		prog:           prog,
		sink:           sink,
		methodsByClass: map[string]map[string]*ir.Method{},
		initByClass:    map[string]*ir.Method{},
		strConsts:      map[string]string{},
		intConsts:      map[int64]string{},
		numTemps:       map[*ir.Method]int{},
	}
	for _, m := range prog.Methods {
		if m.MethodName == ir.InitMethodName {
			g.initByClass[m.ClassName] = m
			continue
		}
		if g.methodsByClass[m.ClassName] == nil {
			g.methodsByClass[m.ClassName] = map[string]*ir.Method{}
		}
		g.methodsByClass[m.ClassName][m.MethodName] = m
	}
	for _, m := range prog.Methods {
		g.numTemps[m] = countTemps(m.Instrs)
	}

	g.collectConstants()
	g.emitHeader()
	g.emitDataSegment()
	g.emitTextSegment()
	return g.out.String()
}

// countTemps returns one more than the highest-numbered Temp a method's
// instructions reference, so its prologue can reserve exactly that many
// stack slots.
func countTemps(instrs []ir.Instruction) int {
	max := -1
	for _, instr := range instrs {
		for _, op := range ir.Operands(instr) {
			if t, ok := op.(ir.Temp); ok && t.N > max {
				max = t.N
			}
		}
	}
	return max + 1
}

func (g *Generator) emit(line string)                         { g.out.WriteString(line); g.out.WriteByte('\n') }
func (g *Generator) emitf(format string, args ...interface{}) { g.emit(fmt.Sprintf(format, args...)) }
func (g *Generator) emitLabel(name string)                    { g.emitf("%s:", name) }
func (g *Generator) emitComment(text string)                  { g.emitf("\t# %s", text) }

func (g *Generator) emitHeader() {
	g.emit("# generated by coolc; do not edit by hand")
}

// collectConstants walks every method's instructions and interns every
// Int/String constant operand it finds into this program's constant pools,
// mirroring codegen.py's own single upfront sweep over the AST collecting
// string/int literals before the .data segment is emitted.
func (g *Generator) collectConstants() {
	for _, m := range g.prog.Methods {
		for _, instr := range m.Instrs {
			for _, op := range ir.Operands(instr) {
				c, ok := op.(ir.Const)
				if !ok {
					continue
				}
				switch c.Type {
				case "Int":
					if c.I > math.MaxInt32 || c.I < math.MinInt32 {
						if g.sink != nil {
							g.sink.Add(diag.Codegen, "CODEGEN_INT_RANGE", diag.Span{},
								"integer literal %d out of 32-bit range", c.I)
						}
					}
					g.internInt(int64(int32(c.I)))
				case "String":
					g.internString(c.S)
				}
			}
		}
	}
}

// internString interns a distinct string literal into the constant pool,
// returning its label. The empty string is never interned as a fresh
// _str_const_N: it reuses _protObj_String/_str_const_empty (emitted once
// in emitPrototypes), since `new String` already produces exactly that
// object and there is no reason to carry two copies of "".
func (g *Generator) internString(s string) string {
	if s == "" {
		return "_str_const_empty"
	}
	if label, ok := g.strConsts[s]; ok {
		return label
	}
	label := fmt.Sprintf("_str_const_%d", len(g.strOrder))
	g.strConsts[s] = label
	g.strOrder = append(g.strOrder, s)
	return label
}

func (g *Generator) internInt(v int64) string {
	if label, ok := g.intConsts[v]; ok {
		return label
	}
	label := fmt.Sprintf("_int_const_%d", len(g.intOrder))
	g.intConsts[v] = label
	g.intOrder = append(g.intOrder, v)
	return label
}

func (g *Generator) boolLabel(b bool) string {
	if b {
		return "_bool_const_true"
	}
	return "_bool_const_false"
}

