// Package ir implements the three-address-code intermediate representation
// spec §4.4 inserts between the semantic analyser and the code generator: a
// CFG builder, a generic dataflow-analysis driver, and the constant
// propagation / liveness / dead-code-elimination / jump-threading passes
// that run over it.
//
// No Go file in the teacher's Jack-to-Hack pipeline has an IR stage (it
// lowers straight from typed AST to Jack VM text), so this package is
// grounded entirely on original_source/pycoolc/ir/translator.py (the
// AST->TAC lowering rules) and pycoolc/ir/tac.py's instruction set as used
// by translator.py/cfg.py/optimization/*.py, reimplemented with Go
// interfaces and generics in place of Python's dataclasses/ABC/Generic.
package ir

import "fmt"

// Operand is anything an instruction can read or write: a temporary, a
// named variable (self, a formal, a let-bound local), or a constant.
type Operand interface {
	String() string
	isOperand()
}

// Temp is a compiler-generated temporary, numbered per method.
type Temp struct{ N int }

func (t Temp) String() string { return fmt.Sprintf("t%d", t.N) }
func (Temp) isOperand()       {}

// Var is a named, assignable location: self, a formal parameter, or a
// let/case-bound local.
type Var struct{ Name string }

func (v Var) String() string { return v.Name }
func (Var) isOperand()       {}

// Const is a literal Int/Bool/String value, tagged with its COOL type so
// codegen knows which constant pool to intern it into.
type Const struct {
	Type string // "Int", "Bool", "String", or "Void" (a null pointer)
	I    int64
	B    bool
	S    string
}

func (c Const) String() string {
	switch c.Type {
	case "Int":
		return fmt.Sprintf("%d", c.I)
	case "Bool":
		return fmt.Sprintf("%t", c.B)
	default:
		return fmt.Sprintf("%q", c.S)
	}
}
func (Const) isOperand() {}

// Label names a jump target, unique within a method.
type Label struct{ Name string }

func (l Label) String() string { return l.Name }

// BinOp enumerates TAC's binary arithmetic/comparison operators.
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Lt
	Le
	Eq
)

func (op BinOp) String() string {
	return [...]string{"+", "-", "*", "/", "<", "<=", "="}[op]
}

// UnOp enumerates TAC's unary operators.
type UnOp int

const (
	Neg UnOp = iota // Int complement (~)
	Not             // Bool complement (not)
)

func (op UnOp) String() string {
	if op == Neg {
		return "~"
	}
	return "not"
}

// Instruction is one TAC instruction. Concrete types below mirror
// pycoolc/ir/tac.py's instruction hierarchy (Copy, BinaryOp, UnaryOperation,
// GetAttr, SetAttr, LabelInstr, Jump, CondJumpNot, Param, Call/Dispatch/
// StaticDispatch/New/IsVoid, Return, Comment).
type Instruction interface {
	String() string
	isInstruction()
}

// Copy is `dst := src`.
type Copy struct {
	Dst Operand
	Src Operand
}

func (i Copy) String() string { return fmt.Sprintf("%s := %s", i.Dst, i.Src) }
func (Copy) isInstruction()   {}

// BinaryOp is `dst := lhs op rhs`.
type BinaryOp struct {
	Dst      Operand
	Op       BinOp
	Lhs, Rhs Operand
}

func (i BinaryOp) String() string { return fmt.Sprintf("%s := %s %s %s", i.Dst, i.Lhs, i.Op, i.Rhs) }
func (BinaryOp) isInstruction()   {}

// UnaryOp is `dst := op operand`.
type UnaryOp struct {
	Dst Operand
	Op  UnOp
	Src Operand
}

func (i UnaryOp) String() string { return fmt.Sprintf("%s := %s %s", i.Dst, i.Op, i.Src) }
func (UnaryOp) isInstruction()   {}

// GetAttr is `dst := recv.attr` (reading an attribute off an object).
type GetAttr struct {
	Dst  Operand
	Recv Operand
	Attr string
}

func (i GetAttr) String() string { return fmt.Sprintf("%s := %s.%s", i.Dst, i.Recv, i.Attr) }
func (GetAttr) isInstruction()   {}

// SetAttr is `recv.attr := val`.
type SetAttr struct {
	Recv Operand
	Attr string
	Val  Operand
}

func (i SetAttr) String() string { return fmt.Sprintf("%s.%s := %s", i.Recv, i.Attr, i.Val) }
func (SetAttr) isInstruction()   {}

// LabelInstr marks a jump target.
type LabelInstr struct{ L Label }

func (i LabelInstr) String() string { return i.L.Name + ":" }
func (LabelInstr) isInstruction()   {}

// Jump is an unconditional `goto L`.
type Jump struct{ Target Label }

func (i Jump) String() string { return "goto " + i.Target.Name }
func (Jump) isInstruction()   {}

// CondJumpNot is `ifnot cond goto L`, branching when cond is false.
type CondJumpNot struct {
	Cond   Operand
	Target Label
}

func (i CondJumpNot) String() string { return fmt.Sprintf("ifnot %s goto %s", i.Cond, i.Target) }
func (CondJumpNot) isInstruction()   {}

// Param pushes one argument ahead of a Call/Dispatch/StaticDispatch.
type Param struct{ Val Operand }

func (i Param) String() string { return "param " + i.Val.String() }
func (Param) isInstruction()   {}

// Dispatch is `dst := recv.method(nargs args)` (dynamic dispatch).
// StaticType is the receiver expression's type-checked static type (with
// SELF_TYPE already resolved to the enclosing class): codegen needs it to
// pick the method's dispatch-table slot, since the slot index is only
// guaranteed stable within one static type's inheritance lineage.
type Dispatch struct {
	Dst        Operand
	Recv       Operand
	StaticType string
	Method     string
	NArgs      int
}

func (i Dispatch) String() string {
	return fmt.Sprintf("%s := call %s.%s/%d", i.Dst, i.Recv, i.Method, i.NArgs)
}
func (Dispatch) isInstruction() {}

// StaticDispatch is `dst := recv@Type.method(nargs args)`.
type StaticDispatch struct {
	Dst        Operand
	Recv       Operand
	StaticType string
	Method     string
	NArgs      int
}

func (i StaticDispatch) String() string {
	return fmt.Sprintf("%s := call %s@%s.%s/%d", i.Dst, i.Recv, i.StaticType, i.Method, i.NArgs)
}
func (StaticDispatch) isInstruction() {}

// New is `dst := new Type`. SelfType marks `new SELF_TYPE`: codegen must
// clone and initialize self's *runtime* class, looked up through
// `_protObj_table`/`_init_table` by self's own class tag, rather than any
// statically-known class — a method inherited unchanged by a subclass
// still has to allocate the subclass when it runs as that subclass's self.
type New struct {
	Dst      Operand
	Type     string
	SelfType bool
}

func (i New) String() string {
	if i.SelfType {
		return fmt.Sprintf("%s := new SELF_TYPE", i.Dst)
	}
	return fmt.Sprintf("%s := new %s", i.Dst, i.Type)
}
func (New) isInstruction() {}

// IsVoid is `dst := isvoid operand`.
type IsVoid struct {
	Dst Operand
	Src Operand
}

func (i IsVoid) String() string { return fmt.Sprintf("%s := isvoid %s", i.Dst, i.Src) }
func (IsVoid) isInstruction()   {}

// CaseBranchIfNot is `ifnotconforms src Type goto L`: skips to the next
// case-branch test when src's runtime type does not conform to Type.
// Codegen lowers the conformance test to a range check of src's preorder
// number (looked up by its class tag) against the target type's
// pre/post-order interval, grounded on
// pycoolc/semanalyser.py's pre/post numbering for lub_C (repurposed here
// as a dynamic-type range test rather than a static one).
type CaseBranchIfNot struct {
	Src    Operand
	Type   string
	Target Label
}

func (i CaseBranchIfNot) String() string {
	return fmt.Sprintf("ifnotconforms %s %s goto %s", i.Src, i.Type, i.Target)
}
func (CaseBranchIfNot) isInstruction() {}

// AbortIf calls the named runtime abort routine when cond is true.
type AbortIf struct {
	Cond Operand
	Kind string
}

func (i AbortIf) String() string { return fmt.Sprintf("if %s abort %q", i.Cond, i.Kind) }
func (AbortIf) isInstruction()   {}

// Abort unconditionally calls the named runtime abort routine.
type Abort struct{ Kind string }

func (i Abort) String() string { return fmt.Sprintf("abort %q", i.Kind) }
func (Abort) isInstruction()   {}

// Return ends a method, yielding its value.
type Return struct{ Val Operand }

func (i Return) String() string { return "return " + i.Val.String() }
func (Return) isInstruction()   {}

// Comment is a no-op annotation carried through to codegen's output for
// readability; every pass keeps it (DCE never removes it).
type Comment struct{ Text string }

func (i Comment) String() string { return "# " + i.Text }
func (Comment) isInstruction()   {}

// Method is one method's TAC body.
type Method struct {
	ClassName  string
	MethodName string
	Params     []string
	Instrs     []Instruction
}

// Program is every translated method, class initializers included.
// Attribute layout is not stored here; codegen computes it from sema's
// class table.
type Program struct {
	Methods []*Method
}

// TempGen issues fresh, method-scoped temporaries.
type TempGen struct{ n int }

func (g *TempGen) Next() Temp {
	t := Temp{N: g.n}
	g.n++
	return t
}

// Operands returns every operand an instruction reads or writes, for
// generic external consumers (codegen's constant-pool sweep) that need to
// see every Const without reimplementing a per-instruction-type switch.
func Operands(instr Instruction) []Operand {
	ops := instrUses(instr)
	if dst, ok := instrDst(instr); ok {
		ops = append(ops, dst)
	}
	return ops
}

// LabelGen issues fresh, method-scoped labels with a human-readable hint.
type LabelGen struct{ n int }

func (g *LabelGen) Next(hint string) Label {
	g.n++
	return Label{Name: fmt.Sprintf("%s_%d", hint, g.n)}
}
