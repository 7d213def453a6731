package codegen

import (
	"sort"

	"coolc/internal/diag"
	"coolc/internal/ir"
)

// emitClassInit writes _init_<C>: chain to the parent's initializer, then
// run this class's own attribute initializers (spec §4.5). Every user class
// gets exactly one translated init method from ir.Translate; a built-in
// class has none, so m is nil and its _init_<C> only chains to the parent
// and returns self.
func (g *Generator) emitClassInit(name string) {
	c := g.layout.Classes[name]
	m := g.initByClass[name]
	scratch := 0
	if m != nil {
		scratch = g.numTemps[m]
	}

	g.emitLabel("_init_" + name)
	g.emitPrologue(scratch)
	if c.Parent != "" {
		g.emit("\tlw    $a0, 0($fp)")
		g.emitf("\tjal   _init_%s", c.Parent)
	}
	if m == nil {
		g.emit("\tlw    $a0, 0($fp)")
		g.emitEpilogue(scratch)
		return
	}

	g.curClass = c
	g.curParams = nil
	g.pendingParams = nil
	g.emitInstrs(scratch, m.Instrs)
}

// emitClassMethods writes _method_<C>_<m> for every method declared by
// name, in name order so output is reproducible regardless of map
// iteration (spec §8 codegen determinism).
func (g *Generator) emitClassMethods(name string) {
	methods := g.methodsByClass[name]
	if len(methods) == 0 {
		return
	}
	names := make([]string, 0, len(methods))
	for mn := range methods {
		names = append(names, mn)
	}
	sort.Strings(names)

	c := g.layout.Classes[name]
	for _, mn := range names {
		m := methods[mn]
		scratch := g.numTemps[m]

		g.emitLabel("_method_" + c.Name + "_" + mn)
		g.emitPrologue(scratch)

		g.curClass = c
		g.curParams = paramIndex(m.Params)
		g.pendingParams = nil
		g.emitInstrs(scratch, m.Instrs)
	}
}

// paramIndex maps each formal's name to its declaration-order index, used
// by loadVar/storeVar to compute its stack offset relative to $fp.
func paramIndex(params []string) map[string]int {
	idx := make(map[string]int, len(params))
	for i, p := range params {
		idx[p] = i
	}
	return idx
}

// emitInstrs walks one method/initializer body's instruction stream,
// lowering each ir.Instruction to MIPS text with $a0 as the accumulator
// (spec §4.5's "single accumulator discipline").
func (g *Generator) emitInstrs(scratch int, instrs []ir.Instruction) {
	for _, instr := range instrs {
		g.emitInstr(scratch, instr)
	}
}

func (g *Generator) emitInstr(scratch int, instr ir.Instruction) {
	switch i := instr.(type) {
	case ir.Comment:
		g.emitComment(i.Text)
	case ir.LabelInstr:
		g.emitLabel(i.L.Name)
	case ir.Jump:
		g.emitf("\tj     %s", i.Target.Name)
	case ir.CondJumpNot:
		g.loadOperand(i.Cond)
		g.emit("\tlw    $t0, 12($a0)")
		g.emitf("\tbeqz  $t0, %s", i.Target.Name)
	case ir.Copy:
		g.loadOperand(i.Src)
		g.storeOperand(i.Dst)
	case ir.GetAttr:
		g.emitGetAttr(i)
	case ir.SetAttr:
		g.emitSetAttr(i)
	case ir.BinaryOp:
		g.emitBinaryOp(i)
	case ir.UnaryOp:
		g.emitUnaryOp(i)
	case ir.IsVoid:
		g.loadOperand(i.Src)
		g.emitBoolFromA0Zero()
		g.storeOperand(i.Dst)
	case ir.New:
		g.emitNew(i)
	case ir.Param:
		g.pendingParams = append(g.pendingParams, i.Val)
	case ir.Dispatch:
		g.emitDispatch(i)
	case ir.StaticDispatch:
		g.emitStaticDispatch(i)
	case ir.CaseBranchIfNot:
		g.emitCaseBranchIfNot(i)
	case ir.AbortIf:
		g.loadOperand(i.Cond)
		g.emit("\tlw    $t0, 12($a0)")
		ok := g.freshLabel("abort_skip")
		g.emitf("\tbeqz  $t0, %s", ok)
		g.emitAbort(i.Kind)
		g.emitLabel(ok)
	case ir.Abort:
		g.emitAbort(i.Kind)
	case ir.Return:
		g.loadOperand(i.Val)
		g.emitEpilogue(scratch)
	default:
		if g.sink != nil {
			g.sink.Add(diag.Codegen, "CODEGEN_UNHANDLED_INSTR", diag.Span{}, "internal error: unhandled TAC instruction %T", instr)
		}
	}
}

// loadOperand leaves op's value (an object pointer for every COOL value,
// per spec §3's object layout) in $a0.
func (g *Generator) loadOperand(op ir.Operand) {
	switch o := op.(type) {
	case ir.Const:
		switch o.Type {
		case "Int":
			g.emitf("\tla    $a0, %s", g.internInt(int64(int32(o.I))))
		case "Bool":
			g.emitf("\tla    $a0, %s", g.boolLabel(o.B))
		case "Void":
			g.emit("\tli    $a0, 0")
		default:
			g.emitf("\tla    $a0, %s", g.internString(o.S))
		}
	case ir.Temp:
		g.emitf("\tlw    $a0, %d($fp)", tempOffset(o.N))
	case ir.Var:
		g.loadVar(o)
	}
}

func (g *Generator) loadVar(v ir.Var) {
	if v.Name == "self" {
		g.emit("\tlw    $a0, 0($fp)")
		return
	}
	if idx, ok := g.curParams[v.Name]; ok {
		g.emitf("\tlw    $a0, %d($fp)", formalOffset(idx))
		return
	}
	g.emit("\tlw    $a0, 0($fp)")
}

// storeOperand stores $a0 into dst's location. Only Temp and Var (a
// reassigned formal) ever appear as a TAC Copy destination; attribute
// writes go through SetAttr instead.
func (g *Generator) storeOperand(dst ir.Operand) {
	switch o := dst.(type) {
	case ir.Temp:
		g.emitf("\tsw    $a0, %d($fp)", tempOffset(o.N))
	case ir.Var:
		if o.Name == "self" {
			return
		}
		if idx, ok := g.curParams[o.Name]; ok {
			g.emitf("\tsw    $a0, %d($fp)", formalOffset(idx))
		}
	}
}

func (g *Generator) emitGetAttr(i ir.GetAttr) {
	g.loadOperand(i.Recv)
	off, ok := g.curClass.AttrOffset(i.Attr)
	if !ok {
		off = objectHeaderSize
	}
	g.emitf("\tlw    $a0, %d($a0)", off)
	g.storeOperand(i.Dst)
}

func (g *Generator) emitSetAttr(i ir.SetAttr) {
	g.loadOperand(i.Recv)
	g.emit("\tmove  $t0, $a0")
	g.loadOperand(i.Val)
	off, ok := g.curClass.AttrOffset(i.Attr)
	if !ok {
		off = objectHeaderSize
	}
	g.emitf("\tsw    $a0, %d($t0)", off)
}

// emitBoolFromA0Zero rewrites $a0 (an object pointer) into the canonical
// Bool constant for "$a0 == 0" (used by isvoid).
func (g *Generator) emitBoolFromA0Zero() {
	trueLabel := g.freshLabel("isvoid_true")
	endLabel := g.freshLabel("isvoid_end")
	g.emitf("\tbeqz  $a0, %s", trueLabel)
	g.emit("\tla    $a0, _bool_const_false")
	g.emitf("\tj     %s", endLabel)
	g.emitLabel(trueLabel)
	g.emit("\tla    $a0, _bool_const_true")
	g.emitLabel(endLabel)
}

// emitBinaryOp unboxes both Int operands of an arithmetic/comparison op
// (spec §4.4's "unbox operands into raw temporaries, compute, box into a
// fresh Int"), except `=`, which always calls the shared _equality_test
// runtime routine — that routine already implements every case spec §4.5
// requires (pointer eq, null checks, tag-equal, Int/Bool value compare,
// String byte compare, pointer inequality otherwise), so there is no
// static-type information codegen needs here to lower it correctly.
func (g *Generator) emitBinaryOp(i ir.BinaryOp) {
	if i.Op == ir.Eq {
		g.emitEquals(i)
		return
	}

	g.loadOperand(i.Lhs)
	g.emit("\taddiu $sp, $sp, -4")
	g.emit("\tsw    $a0, 0($sp)")
	g.loadOperand(i.Rhs)
	g.emit("\tlw    $t0, 0($sp)")
	g.emit("\taddiu $sp, $sp, 4")
	g.emit("\tlw    $t1, 12($a0)") // rhs raw value
	g.emit("\tlw    $t0, 12($t0)") // lhs raw value

	switch i.Op {
	case ir.Add:
		g.emit("\tadd   $t2, $t0, $t1")
		g.emitBoxInt("$t2")
	case ir.Sub:
		g.emit("\tsub   $t2, $t0, $t1")
		g.emitBoxInt("$t2")
	case ir.Mul:
		g.emit("\tmul   $t2, $t0, $t1")
		g.emitBoxInt("$t2")
	case ir.Div:
		ok := g.freshLabel("div_ok")
		g.emitf("\tbnez  $t1, %s", ok)
		g.emitAbort("div_zero")
		g.emitLabel(ok)
		g.emit("\tdiv   $t2, $t0, $t1")
		g.emitBoxInt("$t2")
	case ir.Lt:
		g.emit("\tslt   $t2, $t0, $t1")
		g.emitBoolFromA0NonzeroT2()
	case ir.Le:
		g.emit("\tsle   $t2, $t0, $t1")
		g.emitBoolFromA0NonzeroT2()
	}
	g.storeOperand(i.Dst)
}

// emitBoxInt clones _protObj_Int and stores raw (a $t register, pushed
// across the _Object_copy call since nothing survives a jal in a
// register — spec §4.5's stack-discipline convention) into the clone's
// payload word, leaving the new Int object in $a0.
func (g *Generator) emitBoxInt(raw string) {
	g.emit("\taddiu $sp, $sp, -4")
	g.emitf("\tsw    %s, 0($sp)", raw)
	g.emit("\tla    $a0, _protObj_Int")
	g.emit("\tjal   _Object_copy")
	g.emit("\tlw    $t3, 0($sp)")
	g.emit("\taddiu $sp, $sp, 4")
	g.emit("\tsw    $t3, 12($a0)")
}

// emitBoolFromA0NonzeroT2 rewrites $t2 (a 0/1 comparison result) into the
// canonical Bool constant it denotes, leaving the result in $a0.
func (g *Generator) emitBoolFromA0NonzeroT2() {
	trueLabel := g.freshLabel("cmp_true")
	endLabel := g.freshLabel("cmp_end")
	g.emitf("\tbnez  $t2, %s", trueLabel)
	g.emit("\tla    $a0, _bool_const_false")
	g.emitf("\tj     %s", endLabel)
	g.emitLabel(trueLabel)
	g.emit("\tla    $a0, _bool_const_true")
	g.emitLabel(endLabel)
}

func (g *Generator) emitEquals(i ir.BinaryOp) {
	g.loadOperand(i.Lhs)
	g.emit("\taddiu $sp, $sp, -4")
	g.emit("\tsw    $a0, 0($sp)")
	g.loadOperand(i.Rhs)
	g.emit("\tmove  $a1, $a0")
	g.emit("\tlw    $a0, 0($sp)")
	g.emit("\taddiu $sp, $sp, 4")
	g.emit("\tjal   _equality_test")
	trueLabel := g.freshLabel("eq_true")
	endLabel := g.freshLabel("eq_end")
	g.emitf("\tbnez  $v0, %s", trueLabel)
	g.emit("\tla    $a0, _bool_const_false")
	g.emitf("\tj     %s", endLabel)
	g.emitLabel(trueLabel)
	g.emit("\tla    $a0, _bool_const_true")
	g.emitLabel(endLabel)
	g.storeOperand(i.Dst)
}

func (g *Generator) emitUnaryOp(i ir.UnaryOp) {
	g.loadOperand(i.Src)
	switch i.Op {
	case ir.Neg:
		g.emit("\tlw    $t0, 12($a0)")
		g.emit("\tsub   $t2, $zero, $t0")
		g.emitBoxInt("$t2")
	case ir.Not:
		g.emit("\tlw    $t0, 12($a0)")
		trueLabel := g.freshLabel("not_true")
		endLabel := g.freshLabel("not_end")
		g.emitf("\tbnez  $t0, %s", trueLabel)
		g.emit("\tla    $a0, _bool_const_true")
		g.emitf("\tj     %s", endLabel)
		g.emitLabel(trueLabel)
		g.emit("\tla    $a0, _bool_const_false")
		g.emitLabel(endLabel)
	}
	g.storeOperand(i.Dst)
}

func (g *Generator) emitNew(i ir.New) {
	if i.SelfType {
		g.emit("\tlw    $t0, 0($fp)")
		g.emit("\tlw    $t1, 0($t0)")
		g.emit("\tsll   $t1, $t1, 2")
		g.emit("\tlw    $a0, _protObj_table($t1)")
		g.emit("\tjal   _Object_copy")
		g.emit("\tlw    $t0, 0($fp)")
		g.emit("\tlw    $t1, 0($t0)")
		g.emit("\tsll   $t1, $t1, 2")
		g.emit("\tlw    $t2, _init_table($t1)")
		g.emit("\tjalr  $t2")
	} else {
		g.emitf("\tla    $a0, _protObj_%s", i.Type)
		g.emit("\tjal   _Object_copy")
		g.emitf("\tjal   _init_%s", i.Type)
	}
	g.storeOperand(i.Dst)
}

// emitDispatchCall flushes pendingParams (pushed in reverse evaluation
// order, spec §4.5: "arguments are pushed on the stack in reverse order")
// and returns the number of bytes the caller must reclaim afterward.
func (g *Generator) emitDispatchCall() int {
	n := len(g.pendingParams)
	for idx := n - 1; idx >= 0; idx-- {
		g.loadOperand(g.pendingParams[idx])
		g.emit("\taddiu $sp, $sp, -4")
		g.emit("\tsw    $a0, 0($sp)")
	}
	g.pendingParams = nil
	return n * wordSize
}

func (g *Generator) emitDispatch(i ir.Dispatch) {
	argBytes := g.emitDispatchCall()

	g.loadOperand(i.Recv)
	ok := g.freshLabel("dispatch_ok")
	g.emitf("\tbnez  $a0, %s", ok)
	g.emitAbort("dispatch_void")
	g.emitLabel(ok)

	recvLayout := g.layout.Classes[i.StaticType]
	idx := 0
	if recvLayout != nil {
		if n, found := recvLayout.MethodIndex(i.Method); found {
			idx = n
		}
	}
	g.emit("\tlw    $t0, 8($a0)")
	g.emitf("\tlw    $t1, %d($t0)", idx*wordSize)
	g.emit("\tjalr  $t1")
	if argBytes > 0 {
		g.emitf("\taddiu $sp, $sp, %d", argBytes)
	}
	g.storeOperand(i.Dst)
}

func (g *Generator) emitStaticDispatch(i ir.StaticDispatch) {
	argBytes := g.emitDispatchCall()

	g.loadOperand(i.Recv)
	ok := g.freshLabel("static_dispatch_ok")
	g.emitf("\tbnez  $a0, %s", ok)
	g.emitAbort("dispatch_void")
	g.emitLabel(ok)

	definer := i.StaticType
	if c := g.layout.Classes[i.StaticType]; c != nil {
		for _, m := range c.Methods {
			if m.Name == i.Method {
				definer = m.DefiningClass
				break
			}
		}
	}
	g.emitf("\tjal   _method_%s_%s", definer, i.Method)
	if argBytes > 0 {
		g.emitf("\taddiu $sp, $sp, %d", argBytes)
	}
	g.storeOperand(i.Dst)
}

// emitCaseBranchIfNot tests the scrutinee's runtime class against Type's
// dynamic-type interval (its PreOrd/PostOrd subtree range, see
// ClassLayout.TagRange), jumping to Target when it is outside that range.
func (g *Generator) emitCaseBranchIfNot(i ir.CaseBranchIfNot) {
	g.loadOperand(i.Src)
	g.emit("\tlw    $t0, 0($a0)")
	g.emit("\tsll   $t0, $t0, 2")
	g.emit("\tlw    $t1, _class_preord_table($t0)")
	lo, hi := 0, 0
	if c := g.layout.Classes[i.Type]; c != nil {
		lo, hi = c.TagRange()
	}
	g.emitf("\tli    $t2, %d", lo)
	g.emitf("\tli    $t3, %d", hi)
	g.emitf("\tblt   $t1, $t2, %s", i.Target.Name)
	g.emitf("\tbgt   $t1, $t3, %s", i.Target.Name)
}
