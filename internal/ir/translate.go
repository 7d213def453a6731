package ir

import (
	"sort"

	"coolc/internal/ast"
	"coolc/internal/sema"
)

// Translate lowers a type-checked program into TAC, one Method per class
// feature method, grounded on pycoolc/ir/translator.py's
// ASTToTACTranslator: a scope stack for locals/formals, an attribute set
// per class for resolving bare identifiers to GetAttr, and one
// translateExpr case per AST node.
func Translate(prog *ast.Program, table *sema.ClassTable) *Program {
	tr := &translator{table: table}
	out := &Program{}
	for _, cls := range prog.Classes {
		out.Methods = append(out.Methods, tr.translateClassInit(cls))
		for _, f := range cls.Features {
			if m, ok := f.(*ast.Method); ok {
				out.Methods = append(out.Methods, tr.translateMethod(cls, m))
			}
		}
	}
	return out
}

// InitMethodName is the synthesized method name codegen's per-class
// _init_<C> emits: it runs this class's own attribute initializers (in
// declaration order) against self, leaving inherited attributes to the
// parent's own init (codegen chains _init_Parent before this body runs).
const InitMethodName = "<init>"

// translateClassInit lowers a class's own (non-inherited) attribute
// initializer expressions into SetAttr instructions, grounded on
// pycoolc/codegen.py's _emit_class_initializer, which walks exactly the
// same attribute list. An attribute with no initializer (a NoExpr) gets
// defaultValue of its declared type, since the prototype object holds only
// a zero word in each attribute slot.
func (tr *translator) translateClassInit(cls *ast.Class) *Method {
	ci := tr.table.Lookup(cls.Name)
	attrs := map[string]bool{}
	if ci != nil {
		for name := range ci.Attrs {
			attrs[name] = true
		}
	}
	ctx := &methodCtx{className: cls.Name, attrs: attrs}
	ctx.push()
	ctx.define(ast.Self, Var{Name: "self"})

	var instrs []Instruction
	instrs = append(instrs, Comment{Text: cls.Name + "." + InitMethodName})
	for _, f := range cls.Features {
		attr, ok := f.(*ast.Attribute)
		if !ok || attr.Init == nil {
			continue
		}
		var val Operand
		if _, isNoExpr := attr.Init.(*ast.NoExpr); isNoExpr {
			val = tr.defaultValue(attr.Type)
		} else {
			val = tr.translateExpr(attr.Init, ctx, &instrs)
		}
		emit(&instrs, SetAttr{Recv: Var{Name: "self"}, Attr: attr.Name, Val: val})
	}
	instrs = append(instrs, Return{Val: Var{Name: "self"}})
	ctx.pop()

	return &Method{ClassName: cls.Name, MethodName: InitMethodName, Instrs: instrs}
}

type scope map[string]Operand

type translator struct {
	table *sema.ClassTable
}

type methodCtx struct {
	className string
	attrs     map[string]bool
	scopes    []scope
	temps     TempGen
	labels    LabelGen
}

func (c *methodCtx) push()      { c.scopes = append(c.scopes, scope{}) }
func (c *methodCtx) pop()       { c.scopes = c.scopes[:len(c.scopes)-1] }
func (c *methodCtx) define(name string, op Operand) {
	c.scopes[len(c.scopes)-1][name] = op
}
func (c *methodCtx) lookup(name string) (Operand, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if op, ok := c.scopes[i][name]; ok {
			return op, true
		}
	}
	return nil, false
}

func (tr *translator) translateMethod(cls *ast.Class, m *ast.Method) *Method {
	ci := tr.table.Lookup(cls.Name)
	attrs := map[string]bool{}
	if ci != nil {
		for name := range ci.Attrs {
			attrs[name] = true
		}
	}
	ctx := &methodCtx{className: cls.Name, attrs: attrs}
	ctx.push()
	ctx.define(ast.Self, Var{Name: "self"})
	params := make([]string, 0, len(m.Formals))
	for _, f := range m.Formals {
		ctx.define(f.Name, Var{Name: f.Name})
		params = append(params, f.Name)
	}

	var instrs []Instruction
	instrs = append(instrs, Comment{Text: cls.Name + "." + m.Name})
	result := tr.translateExpr(m.Body, ctx, &instrs)
	instrs = append(instrs, Return{Val: result})
	ctx.pop()

	return &Method{ClassName: cls.Name, MethodName: m.Name, Params: params, Instrs: instrs}
}

func emit(instrs *[]Instruction, i Instruction) { *instrs = append(*instrs, i) }

func (tr *translator) translateExpr(e ast.Expr, ctx *methodCtx, instrs *[]Instruction) Operand {
	switch n := e.(type) {
	case *ast.IntLit:
		return Const{Type: "Int", I: n.Value}
	case *ast.StringLit:
		return Const{Type: "String", S: n.Value}
	case *ast.BoolLit:
		return Const{Type: "Bool", B: n.Value}
	case *ast.NoExpr:
		return tr.defaultValue(e.Type())
	case *ast.Ident:
		if n.Name == ast.Self {
			return Var{Name: "self"}
		}
		if op, ok := ctx.lookup(n.Name); ok {
			return op
		}
		if ctx.attrs[n.Name] {
			t := ctx.temps.Next()
			emit(instrs, GetAttr{Dst: t, Recv: Var{Name: "self"}, Attr: n.Name})
			return t
		}
		return Var{Name: n.Name}
	case *ast.Assign:
		val := tr.translateExpr(n.Value, ctx, instrs)
		if op, ok := ctx.lookup(n.Name); ok {
			// op is the stable Var/Temp this name was bound to (a formal's
			// Var, or the Temp translateLet/translateCase allocated); an
			// assignment must mutate that location in place, never rebind the
			// compile-time scope, or the new value is invisible to any code
			// translated from an operand captured before the assignment (a
			// loop condition, an already-lowered branch).
			emit(instrs, Copy{Dst: op, Src: val})
			return op
		}
		emit(instrs, SetAttr{Recv: Var{Name: "self"}, Attr: n.Name, Val: val})
		return val
	case *ast.BinOp:
		return tr.translateBinOp(n, ctx, instrs)
	case *ast.UnOp:
		operand := tr.translateExpr(n.Expr, ctx, instrs)
		t := ctx.temps.Next()
		op := Neg
		if n.Op == ast.Negate {
			op = Not
		}
		emit(instrs, UnaryOp{Dst: t, Op: op, Src: operand})
		return t
	case *ast.Paren:
		return tr.translateExpr(n.Inner, ctx, instrs)
	case *ast.Block:
		var result Operand = Const{Type: "Int"}
		for _, sub := range n.Exprs {
			result = tr.translateExpr(sub, ctx, instrs)
		}
		return result
	case *ast.If:
		return tr.translateIf(n, ctx, instrs)
	case *ast.While:
		return tr.translateWhile(n, ctx, instrs)
	case *ast.Let:
		return tr.translateLet(n, ctx, instrs)
	case *ast.Case:
		return tr.translateCase(n, ctx, instrs)
	case *ast.New:
		t := ctx.temps.Next()
		if n.TypeName == ast.SelfType {
			emit(instrs, New{Dst: t, SelfType: true})
		} else {
			emit(instrs, New{Dst: t, Type: n.TypeName})
		}
		return t
	case *ast.IsVoid:
		inner := tr.translateExpr(n.Expr, ctx, instrs)
		t := ctx.temps.Next()
		emit(instrs, IsVoid{Dst: t, Src: inner})
		return t
	case *ast.Dispatch:
		return tr.translateDispatch(n, ctx, instrs)
	default:
		return Const{Type: "Int"}
	}
}

func (tr *translator) translateBinOp(n *ast.BinOp, ctx *methodCtx, instrs *[]Instruction) Operand {
	left := tr.translateExpr(n.Left, ctx, instrs)
	right := tr.translateExpr(n.Right, ctx, instrs)
	t := ctx.temps.Next()
	var op BinOp
	switch n.Op {
	case ast.Add:
		op = Add
	case ast.Sub:
		op = Sub
	case ast.Mul:
		op = Mul
	case ast.Div:
		op = Div
	case ast.LessThan:
		op = Lt
	case ast.LessEq:
		op = Le
	case ast.EqualTo:
		op = Eq
	}
	emit(instrs, BinaryOp{Dst: t, Op: op, Lhs: left, Rhs: right})
	return t
}

func (tr *translator) translateIf(n *ast.If, ctx *methodCtx, instrs *[]Instruction) Operand {
	elseLabel := ctx.labels.Next("else")
	endLabel := ctx.labels.Next("endif")
	result := ctx.temps.Next()

	cond := tr.translateExpr(n.Cond, ctx, instrs)
	emit(instrs, CondJumpNot{Cond: cond, Target: elseLabel})

	thenVal := tr.translateExpr(n.Then, ctx, instrs)
	emit(instrs, Copy{Dst: result, Src: thenVal})
	emit(instrs, Jump{Target: endLabel})

	emit(instrs, LabelInstr{L: elseLabel})
	elseVal := tr.translateExpr(n.Else, ctx, instrs)
	emit(instrs, Copy{Dst: result, Src: elseVal})

	emit(instrs, LabelInstr{L: endLabel})
	return result
}

func (tr *translator) translateWhile(n *ast.While, ctx *methodCtx, instrs *[]Instruction) Operand {
	loopLabel := ctx.labels.Next("while")
	endLabel := ctx.labels.Next("endwhile")

	emit(instrs, LabelInstr{L: loopLabel})
	cond := tr.translateExpr(n.Cond, ctx, instrs)
	emit(instrs, CondJumpNot{Cond: cond, Target: endLabel})
	tr.translateExpr(n.Body, ctx, instrs)
	emit(instrs, Jump{Target: loopLabel})
	emit(instrs, LabelInstr{L: endLabel})

	t := ctx.temps.Next()
	emit(instrs, Copy{Dst: t, Src: Var{Name: "self"}})
	return t
}

func (tr *translator) translateLet(n *ast.Let, ctx *methodCtx, instrs *[]Instruction) Operand {
	ctx.push()
	v := ctx.temps.Next()
	if _, isNoExpr := n.Binding.Init.(*ast.NoExpr); isNoExpr {
		emit(instrs, Copy{Dst: v, Src: tr.defaultValue(n.Binding.Type)})
	} else {
		initVal := tr.translateExpr(n.Binding.Init, ctx, instrs)
		emit(instrs, Copy{Dst: v, Src: initVal})
	}
	ctx.define(n.Binding.Name, v)
	result := tr.translateExpr(n.Body, ctx, instrs)
	ctx.pop()
	return result
}

// translateCase lowers a case expression into a chain of CaseBranchIfNot
// conformance tests ordered most-specific branch first, so the first test
// that passes is the branch COOL's "closest matching ancestor" rule would
// select; a void scrutinee or an exhausted chain both abort. Ordering by
// descending class depth is grounded on pycoolc/semanalyser.py's pre/post
// numbering existing to answer exactly this kind of ancestor-specificity
// question, here applied to runtime branch selection instead of static
// lub_C computation.
func (tr *translator) translateCase(n *ast.Case, ctx *methodCtx, instrs *[]Instruction) Operand {
	caseVal := tr.translateExpr(n.Scrutinee, ctx, instrs)
	result := ctx.temps.Next()
	endLabel := ctx.labels.Next("endcase")

	voidTmp := ctx.temps.Next()
	emit(instrs, IsVoid{Dst: voidTmp, Src: caseVal})
	emit(instrs, AbortIf{Cond: voidTmp, Kind: "case_void"})

	branches := make([]*ast.CaseBranch, len(n.Branches))
	copy(branches, n.Branches)
	sort.SliceStable(branches, func(i, j int) bool {
		return tr.depthOf(branches[i].Type) > tr.depthOf(branches[j].Type)
	})

	for _, branch := range branches {
		nextLabel := ctx.labels.Next("case_next")
		emit(instrs, CaseBranchIfNot{Src: caseVal, Type: branch.Type, Target: nextLabel})

		ctx.push()
		v := ctx.temps.Next()
		emit(instrs, Copy{Dst: v, Src: caseVal})
		ctx.define(branch.Name, v)

		branchVal := tr.translateExpr(branch.Body, ctx, instrs)
		emit(instrs, Copy{Dst: result, Src: branchVal})
		ctx.pop()
		emit(instrs, Jump{Target: endLabel})

		emit(instrs, LabelInstr{L: nextLabel})
	}
	emit(instrs, Abort{Kind: "case_no_match"})

	emit(instrs, LabelInstr{L: endLabel})
	return result
}

func (tr *translator) depthOf(typeName string) int {
	if ci := tr.table.Lookup(typeName); ci != nil {
		return ci.Decl.Depth
	}
	return 0
}

func (tr *translator) translateDispatch(n *ast.Dispatch, ctx *methodCtx, instrs *[]Instruction) Operand {
	var recv Operand
	if n.Receiver == nil {
		recv = Var{Name: "self"}
	} else {
		recv = tr.translateExpr(n.Receiver, ctx, instrs)
	}
	for _, arg := range n.Args {
		argVal := tr.translateExpr(arg, ctx, instrs)
		emit(instrs, Param{Val: argVal})
	}
	t := ctx.temps.Next()
	if n.StaticClass != "" {
		emit(instrs, StaticDispatch{Dst: t, Recv: recv, StaticType: n.StaticClass, Method: n.Method, NArgs: len(n.Args)})
	} else {
		recvType := ctx.className
		if n.Receiver != nil {
			recvType = n.Receiver.Type()
			if recvType == ast.SelfType {
				recvType = ctx.className
			}
		}
		emit(instrs, Dispatch{Dst: t, Recv: recv, StaticType: recvType, Method: n.Method, NArgs: len(n.Args)})
	}
	return t
}

// defaultValue is the zero value of an uninitialized attribute/let binding
// of typ (spec §4.3's typing rules never let a class-typed binding escape
// without one). Int/Bool/String get the usual 0/false/"" prototype values;
// every other type (a user class or SELF_TYPE) gets void, lowered to a
// null pointer so isvoid/case/dispatch on it behave per spec §4.5 instead
// of codegen mistaking it for a boxed Int.
func (tr *translator) defaultValue(typ string) Operand {
	switch typ {
	case "Int":
		return Const{Type: "Int"}
	case "Bool":
		return Const{Type: "Bool"}
	case "String":
		return Const{Type: "String"}
	default:
		return Const{Type: "Void"}
	}
}
