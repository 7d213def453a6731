// Package ast defines the COOL abstract syntax tree.
//
// The shape (a tagged Statement/Expression with a common location field,
// features split into attribute/method variants) is grounded on
// compiler/ast.go's ClassAst/ClassFuncOrMethodAst/ExpressionAst split,
// generalized from Jack's statement+expression grammar to COOL's
// expression-only body grammar (spec §3).
package ast

import "coolc/internal/diag"

// SelfType is the reserved type name standing for "the class of self".
const SelfType = "SELF_TYPE"

// Self is the reserved object-id naming the current receiver.
const Self = "self"

// Program is an ordered list of class declarations.
type Program struct {
	Classes []*Class
}

// Class is one class declaration. Parent defaults to "Object" when absent
// in the source (spec §3).
type Class struct {
	Span     diag.Span
	Name     string
	Parent   string
	Features []Feature

	// Filled in by the semantic analyser.
	Tag    int
	Depth  int
	PreOrd int
	PostOrd int
}

// Feature is implemented by *Attribute and *Method.
type Feature interface {
	FeatureName() string
	Span() diag.Span
}

// Attribute is a class-level field with an optional initializer.
type Attribute struct {
	SpanVal diag.Span
	Name    string
	Type    string
	Init    Expr // *NoExpr when no initializer is given
}

func (a *Attribute) FeatureName() string { return a.Name }
func (a *Attribute) Span() diag.Span     { return a.SpanVal }

// Method is a class-level function with an ordered formal list.
type Method struct {
	SpanVal diag.Span
	Name    string
	Formals []*Formal
	RetType string
	Body    Expr
}

func (m *Method) FeatureName() string { return m.Name }
func (m *Method) Span() diag.Span     { return m.SpanVal }

// Formal is one method parameter.
type Formal struct {
	SpanVal diag.Span
	Name    string
	Type    string
}

// Expr is implemented by every expression node. StaticType is set by the
// semantic analyser (spec §3: "every AST node carries ... after semantic
// analysis, a resolved static type").
type Expr interface {
	Span() diag.Span
	Type() string
	SetType(string)
}

// Base is embedded by every concrete expression to provide the common
// span/type fields without repeating accessor boilerplate.
type Base struct {
	SpanVal    diag.Span
	StaticType string
}

func (e *Base) Span() diag.Span  { return e.SpanVal }
func (e *Base) Type() string     { return e.StaticType }
func (e *Base) SetType(t string) { e.StaticType = t }

// Assign is `id <- e`.
type Assign struct {
	Base
	Name  string
	Value Expr
}

// Dispatch is `e0[@T].f(e1..en)`. StaticClass is "" for ordinary dispatch
// and non-empty for static dispatch (`e0@T.f(...)`, spec §3).
type Dispatch struct {
	Base
	Receiver    Expr // nil for an implicit-self dispatch `f(...)`
	StaticClass string
	Method      string
	Args        []Expr
}

// If is `if p then a else b fi`.
type If struct {
	Base
	Cond Expr
	Then Expr
	Else Expr
}

// While is `while p loop b pool`.
type While struct {
	Base
	Cond Expr
	Body Expr
}

// Block is `{ e1; e2; ...; en; }`, non-empty per spec §3.
type Block struct {
	Base
	Exprs []Expr
}

// LetBinding is one binding of a (possibly desugared, see Let) let form.
type LetBinding struct {
	SpanVal diag.Span
	Name    string
	Type    string
	Init    Expr // *NoExpr when no initializer is given
}

// Let is `let id : T [<- e0] in e1`. Multi-binding lets are desugared by
// the parser into nested single-binding Let nodes (spec §4.2), so Binding
// is always exactly one binding here.
type Let struct {
	Base
	Binding LetBinding
	Body    Expr
}

// CaseBranch is one `id : T => e` arm of a case expression.
type CaseBranch struct {
	SpanVal diag.Span
	Name    string
	Type    string
	Body    Expr
}

// Case is `case e0 of id1:T1 => e1; ... esac`.
type Case struct {
	Base
	Scrutinee Expr
	Branches  []*CaseBranch
}

// New is `new T`.
type New struct {
	Base
	TypeName string
}

// IsVoid is `isvoid e`.
type IsVoid struct {
	Base
	Expr Expr
}

// BinOpKind enumerates the six arithmetic/comparison binary operators.
type BinOpKind int

const (
	Add BinOpKind = iota
	Sub
	Mul
	Div
	LessThan
	LessEq
	EqualTo
)

// BinOp is one arithmetic or comparison binary expression.
type BinOp struct {
	Base
	Op    BinOpKind
	Left  Expr
	Right Expr
}

// UnOpKind enumerates the two unary operators.
type UnOpKind int

const (
	Complement UnOpKind = iota // ~
	Negate                     // not
)

// UnOp is `~e` or `not e`.
type UnOp struct {
	Base
	Op   UnOpKind
	Expr Expr
}

// Paren is a parenthesized grouping `(e)`, kept as its own node so its span
// covers the parentheses; its static type mirrors the inner expression's.
type Paren struct {
	Base
	Inner Expr
}

// Ident is a bare object-identifier reference, including `self`.
type Ident struct {
	Base
	Name string
}

// IntLit is an integer literal.
type IntLit struct {
	Base
	Value int64
}

// StringLit is a string literal.
type StringLit struct {
	Base
	Value string
}

// BoolLit is a boolean literal.
type BoolLit struct {
	Base
	Value bool
}

// NoExpr marks an absent optional expression (e.g. no attribute
// initializer) while still satisfying the Expr interface so callers never
// need a nil check.
type NoExpr struct {
	Base
}
