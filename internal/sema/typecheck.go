package sema

import (
	"coolc/internal/ast"
	"coolc/internal/diag"
)

// Checker runs spec §4.3 passes 4-5 (expression typing, then annotation —
// merged here since SetType is called at the point each node's type is
// resolved, rather than in a separate walk) over every method body and
// attribute initialiser.
type Checker struct {
	table *ClassTable
	sink  *diag.Sink
}

// env is a stack of scopes mapping object ids to types, per spec §3's
// "Symbol environments". let/case push exactly one scope; blocks push none.
type env struct {
	scopes []map[string]string
}

func newEnv() *env { return &env{} }

func (e *env) push(name, typ string) {
	e.scopes = append(e.scopes, map[string]string{name: typ})
}

func (e *env) pop() {
	e.scopes = e.scopes[:len(e.scopes)-1]
}

func (e *env) lookup(name string) (string, bool) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if t, ok := e.scopes[i][name]; ok {
			return t, ok
		}
	}
	return "", false
}

// Check type-checks every class in prog, reporting errors to sink (the
// caller asks sink whether any were reported). Errors are best-effort: each erroring node is still annotated
// with Object so the caller can keep walking the tree.
func Check(prog *ast.Program, t *ClassTable, sink *diag.Sink) {
	c := &Checker{table: t, sink: sink}
	for _, cls := range prog.Classes {
		c.checkClass(cls)
	}
}

func (c *Checker) checkClass(cls *ast.Class) {
	ci := c.table.Lookup(cls.Name)
	if ci == nil {
		return // already reported (duplicate/built-in-redefinition) in BuildClassTable
	}
	for _, f := range cls.Features {
		switch feat := f.(type) {
		case *ast.Attribute:
			c.checkAttribute(cls, feat)
		case *ast.Method:
			c.checkMethod(cls, ci, feat)
		}
	}
}

func (c *Checker) baseEnv(cls *ast.Class, ci *ClassInfo) *env {
	e := newEnv()
	e.push(ast.Self, ast.SelfType)
	scope := map[string]string{}
	for name, attr := range ci.Attrs {
		scope[name] = attr.Type
	}
	e.scopes = append(e.scopes, scope)
	return e
}

func (c *Checker) checkAttribute(cls *ast.Class, attr *ast.Attribute) {
	if _, ok := attr.Init.(*ast.NoExpr); ok {
		return
	}
	ci := c.table.Lookup(cls.Name)
	e := c.baseEnv(cls, ci)
	initType := c.typeOf(cls.Name, e, attr.Init)
	if !c.table.Conforms(initType, attr.Type, cls.Name) {
		c.err(attr.Init.Span(), "SEMA_ATTR_INIT_TYPE", "attribute %s initializer has type %s, expected a subtype of %s", attr.Name, initType, attr.Type)
	}
}

func (c *Checker) checkMethod(cls *ast.Class, ci *ClassInfo, m *ast.Method) {
	e := c.baseEnv(cls, ci)
	formalScope := map[string]string{}
	for _, f := range m.Formals {
		if f.Name == ast.Self {
			c.err(f.SpanVal, "SEMA_SELF_FORMAL", "formal parameter cannot be named 'self'")
			continue
		}
		formalScope[f.Name] = f.Type
	}
	e.scopes = append(e.scopes, formalScope)

	bodyType := c.typeOf(cls.Name, e, m.Body)
	declared := m.RetType
	if !c.table.Conforms(bodyType, declared, cls.Name) {
		c.err(m.Body.Span(), "SEMA_RETURN_TYPE", "method %s returns %s, expected a subtype of %s", m.Name, bodyType, declared)
	}
}

func (c *Checker) err(span diag.Span, code, format string, args ...interface{}) {
	c.sink.Add(diag.Sema, code, span, format, args...)
}

// typeOf types one expression node in context class selfClass, annotating
// it via SetType, and returns the resolved type.
func (c *Checker) typeOf(selfClass string, e *env, expr ast.Expr) string {
	t := c.typeOfUnannotated(selfClass, e, expr)
	expr.SetType(t)
	return t
}

func (c *Checker) typeOfUnannotated(selfClass string, e *env, expr ast.Expr) string {
	switch n := expr.(type) {
	case *ast.NoExpr:
		return "Object"
	case *ast.BoolLit:
		return "Bool"
	case *ast.IntLit:
		return "Int"
	case *ast.StringLit:
		return "String"
	case *ast.Ident:
		if n.Name == ast.Self {
			return ast.SelfType
		}
		if t, ok := e.lookup(n.Name); ok {
			return t
		}
		c.err(n.Span(), "SEMA_UNDECLARED_ID", "undeclared identifier %s", n.Name)
		return "Object"
	case *ast.Assign:
		if n.Name == ast.Self {
			c.err(n.Span(), "SEMA_ASSIGN_SELF", "cannot assign to 'self'")
			c.typeOf(selfClass, e, n.Value)
			return "Object"
		}
		declared, ok := e.lookup(n.Name)
		if !ok {
			c.err(n.Span(), "SEMA_UNDECLARED_ID", "undeclared identifier %s", n.Name)
			c.typeOf(selfClass, e, n.Value)
			return "Object"
		}
		valType := c.typeOf(selfClass, e, n.Value)
		if !c.table.Conforms(valType, declared, selfClass) {
			c.err(n.Span(), "SEMA_ASSIGN_TYPE", "cannot assign %s to %s (%s)", valType, n.Name, declared)
		}
		return valType
	case *ast.Dispatch:
		return c.typeOfDispatch(selfClass, e, n)
	case *ast.If:
		condType := c.typeOf(selfClass, e, n.Cond)
		if condType != "Bool" {
			c.err(n.Cond.Span(), "SEMA_IF_COND", "if condition has type %s, expected Bool", condType)
		}
		thenType := c.typeOf(selfClass, e, n.Then)
		elseType := c.typeOf(selfClass, e, n.Else)
		return c.table.LUB(thenType, elseType, selfClass)
	case *ast.While:
		condType := c.typeOf(selfClass, e, n.Cond)
		if condType != "Bool" {
			c.err(n.Cond.Span(), "SEMA_WHILE_COND", "while condition has type %s, expected Bool", condType)
		}
		c.typeOf(selfClass, e, n.Body)
		return "Object"
	case *ast.Block:
		var last string = "Object"
		for _, sub := range n.Exprs {
			last = c.typeOf(selfClass, e, sub)
		}
		return last
	case *ast.Let:
		return c.typeOfLet(selfClass, e, n)
	case *ast.Case:
		return c.typeOfCase(selfClass, e, n)
	case *ast.New:
		if n.TypeName != ast.SelfType && !c.table.Exists(n.TypeName) {
			c.err(n.Span(), "SEMA_UNKNOWN_TYPE", "new references unknown class %s", n.TypeName)
			return "Object"
		}
		if n.TypeName == ast.SelfType {
			return ast.SelfType
		}
		return n.TypeName
	case *ast.IsVoid:
		c.typeOf(selfClass, e, n.Expr)
		return "Bool"
	case *ast.BinOp:
		return c.typeOfBinOp(selfClass, e, n)
	case *ast.UnOp:
		return c.typeOfUnOp(selfClass, e, n)
	case *ast.Paren:
		return c.typeOf(selfClass, e, n.Inner)
	default:
		return "Object"
	}
}

func (c *Checker) typeOfDispatch(selfClass string, e *env, n *ast.Dispatch) string {
	var recvType string
	if n.Receiver == nil {
		recvType = ast.SelfType
	} else {
		recvType = c.typeOf(selfClass, e, n.Receiver)
	}

	lookupClass := recvType
	if n.StaticClass != "" {
		if !c.table.Conforms(recvType, n.StaticClass, selfClass) {
			c.err(n.Span(), "SEMA_STATIC_DISPATCH_CONFORM", "static dispatch target %s is not a supertype of %s", n.StaticClass, recvType)
		}
		lookupClass = n.StaticClass
	}
	concreteClass := resolveSelf(lookupClass, selfClass)

	ci := c.table.Lookup(concreteClass)
	if ci == nil {
		c.err(n.Span(), "SEMA_UNKNOWN_TYPE", "dispatch on unknown class %s", concreteClass)
		for _, a := range n.Args {
			c.typeOf(selfClass, e, a)
		}
		return "Object"
	}
	sig, ok := ci.Methods[n.Method]
	if !ok {
		c.err(n.Span(), "SEMA_NO_SUCH_METHOD", "class %s has no method %s", concreteClass, n.Method)
		for _, a := range n.Args {
			c.typeOf(selfClass, e, a)
		}
		return "Object"
	}
	if len(n.Args) != len(sig.Formals) {
		c.err(n.Span(), "SEMA_ARITY", "method %s expects %d arguments, got %d", n.Method, len(sig.Formals), len(n.Args))
	}
	for i, a := range n.Args {
		argType := c.typeOf(selfClass, e, a)
		if i < len(sig.Formals) && !c.table.Conforms(argType, sig.Formals[i].Type, selfClass) {
			c.err(a.Span(), "SEMA_ARG_TYPE", "argument %d to %s has type %s, expected a subtype of %s", i+1, n.Method, argType, sig.Formals[i].Type)
		}
	}
	if sig.RetType == ast.SelfType {
		return recvType
	}
	return sig.RetType
}

func (c *Checker) typeOfLet(selfClass string, e *env, n *ast.Let) string {
	b := n.Binding
	if b.Name == ast.Self {
		c.err(b.SpanVal, "SEMA_SELF_LET", "let-bound variable cannot be named 'self'")
	}
	if b.Type != ast.SelfType && !c.table.Exists(b.Type) {
		c.err(b.SpanVal, "SEMA_UNKNOWN_TYPE", "let binds unknown type %s", b.Type)
	}
	if b.Init != nil {
		if _, isNoExpr := b.Init.(*ast.NoExpr); !isNoExpr {
			initType := c.typeOf(selfClass, e, b.Init)
			if !c.table.Conforms(initType, b.Type, selfClass) {
				c.err(b.Init.Span(), "SEMA_LET_INIT_TYPE", "let binding %s initializer has type %s, expected a subtype of %s", b.Name, initType, b.Type)
			}
		}
	}
	e.push(b.Name, b.Type)
	bodyType := c.typeOf(selfClass, e, n.Body)
	e.pop()
	return bodyType
}

func (c *Checker) typeOfCase(selfClass string, e *env, n *ast.Case) string {
	c.typeOf(selfClass, e, n.Scrutinee)
	seen := map[string]bool{}
	result := ""
	for _, branch := range n.Branches {
		if seen[branch.Type] {
			c.err(branch.SpanVal, "SEMA_DUP_CASE_BRANCH", "case branch type %s is used more than once", branch.Type)
		}
		seen[branch.Type] = true
		if !c.table.Exists(branch.Type) {
			c.err(branch.SpanVal, "SEMA_UNKNOWN_TYPE", "case branch binds unknown type %s", branch.Type)
		}
		e.push(branch.Name, branch.Type)
		branchType := c.typeOf(selfClass, e, branch.Body)
		e.pop()
		if result == "" {
			result = branchType
		} else {
			result = c.table.LUB(result, branchType, selfClass)
		}
	}
	if result == "" {
		return "Object"
	}
	return result
}

func (c *Checker) typeOfBinOp(selfClass string, e *env, n *ast.BinOp) string {
	left := c.typeOf(selfClass, e, n.Left)
	right := c.typeOf(selfClass, e, n.Right)
	switch n.Op {
	case ast.Add, ast.Sub, ast.Mul, ast.Div:
		if left != "Int" || right != "Int" {
			c.err(n.Span(), "SEMA_ARITH_TYPE", "arithmetic operands must be Int, got %s and %s", left, right)
		}
		return "Int"
	case ast.LessThan, ast.LessEq:
		if left != "Int" || right != "Int" {
			c.err(n.Span(), "SEMA_COMPARE_TYPE", "comparison operands must be Int, got %s and %s", left, right)
		}
		return "Bool"
	case ast.EqualTo:
		if isBasicType(left) || isBasicType(right) {
			if left != right {
				c.err(n.Span(), "SEMA_EQUALS_TYPE", "cannot compare %s with %s", left, right)
			}
		}
		return "Bool"
	}
	return "Object"
}

func isBasicType(t string) bool {
	return t == "Int" || t == "String" || t == "Bool"
}

func (c *Checker) typeOfUnOp(selfClass string, e *env, n *ast.UnOp) string {
	inner := c.typeOf(selfClass, e, n.Expr)
	switch n.Op {
	case ast.Complement:
		if inner != "Int" {
			c.err(n.Span(), "SEMA_COMPLEMENT_TYPE", "~ operand must be Int, got %s", inner)
		}
		return "Int"
	case ast.Negate:
		if inner != "Bool" {
			c.err(n.Span(), "SEMA_NOT_TYPE", "not operand must be Bool, got %s", inner)
		}
		return "Bool"
	}
	return "Object"
}
