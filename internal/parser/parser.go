// Package parser builds a COOL AST from a token stream.
//
// The cursor/expect/error shape (expectToken/makeError in the teacher) is
// grounded on compiler/parser.go; the precedence-climbing expression parser
// (a numeric priority per operator, left-recursive binary loops, recursive
// prefix operators) is grounded on compiler/internal/expression.go's
// parseExpression/parseExpressionTerm/parseOpAst, generalized from Jack's
// operator set to COOL's precedence table (spec §4.2).
package parser

import (
	"coolc/internal/ast"
	"coolc/internal/diag"
	"coolc/internal/token"
)

// Parser holds all state for a single parse of one token stream.
type Parser struct {
	toks []token.Token
	pos  int
	sink *diag.Sink
}

// New creates a Parser over toks (as produced by lexer.Lex, EOF-terminated).
// Diagnostics go to sink.
func New(toks []token.Token, sink *diag.Sink) *Parser {
	return &Parser{toks: toks, sink: sink}
}

// Parse parses a complete program: one or more "class ... ;" declarations.
func Parse(toks []token.Token, sink *diag.Sink) *ast.Program {
	p := New(toks, sink)
	return p.parseProgram()
}

func (p *Parser) cur() token.Token {
	return p.toks[p.pos]
}

func (p *Parser) at(k token.Kind) bool {
	return p.cur().Kind == k
}

func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

// expect consumes the current token if it matches k, else records a
// diagnostic and leaves the cursor in place.
func (p *Parser) expect(k token.Kind) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	p.errf("unexpected token %q, expected %s", p.cur().Text, k)
	return token.Token{}, false
}

func (p *Parser) errf(format string, args ...interface{}) {
	t := p.cur()
	p.sink.Add(diag.Parse, "PARSE", diag.Span{Line: t.Line, Col: t.Col}, format, args...)
}

func (p *Parser) span() diag.Span {
	t := p.cur()
	return diag.Span{Line: t.Line, Col: t.Col}
}

// recoverToSemiOrBrace implements the panic-mode recovery spec §4.2
// requires: skip tokens until a ";" (consumed) or the enclosing "}" (left
// in place) or EOF, so the caller can resume at the next feature or class.
func (p *Parser) recoverToSemiOrBrace() {
	for {
		switch p.cur().Kind {
		case token.Semi:
			p.advance()
			return
		case token.RBrace, token.EOF:
			return
		default:
			p.advance()
		}
	}
}

func (p *Parser) parseProgram() *ast.Program {
	prog := &ast.Program{}
	for !p.at(token.EOF) {
		cls := p.parseClass()
		if cls != nil {
			prog.Classes = append(prog.Classes, cls)
		}
		if !p.at(token.Semi) {
			p.errf("expected ';' after class declaration")
			p.recoverToSemiOrBrace()
			continue
		}
		p.advance()
	}
	return prog
}

// parseClass parses "class TYPE [inherits TYPE] { feature* }". On a
// malformed class header it resynchronizes at the next top-level ';' and
// returns nil so siblings still get parsed and reported.
func (p *Parser) parseClass() *ast.Class {
	span := p.span()
	// skipHeader stops at the next ';' outside any braces (left for
	// parseProgram), so a malformed class's whole body is skipped.
	skipHeader := func() *ast.Class {
		depth := 0
		for !p.at(token.EOF) && !(depth == 0 && p.at(token.Semi)) {
			if p.at(token.LBrace) {
				depth++
			} else if p.at(token.RBrace) && depth > 0 {
				depth--
			}
			p.advance()
		}
		return nil
	}
	if _, ok := p.expect(token.Class); !ok {
		return skipHeader()
	}
	nameTok, ok := p.expect(token.TypeId)
	if !ok {
		return skipHeader()
	}
	parent := "Object"
	if p.at(token.Inherits) {
		p.advance()
		parentTok, ok := p.expect(token.TypeId)
		if ok {
			parent = parentTok.Text
		}
	}
	if _, ok := p.expect(token.LBrace); !ok {
		return skipHeader()
	}
	var features []ast.Feature
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		f := p.parseFeature()
		if f != nil {
			features = append(features, f)
		}
		if !p.at(token.Semi) {
			p.errf("expected ';' after feature")
			p.recoverToSemiOrBrace()
			continue
		}
		p.advance()
	}
	p.expect(token.RBrace)
	return &ast.Class{Span: span, Name: nameTok.Text, Parent: parent, Features: features}
}

// parseFeature parses either an attribute ("id : TYPE [<- expr]") or a
// method ("id ( formals ) : TYPE { expr }").
func (p *Parser) parseFeature() ast.Feature {
	span := p.span()
	nameTok, ok := p.expect(token.ObjectId)
	if !ok {
		p.recoverToSemiOrBrace()
		return nil
	}
	if p.at(token.LParen) {
		return p.parseMethodTail(span, nameTok.Text)
	}
	return p.parseAttributeTail(span, nameTok.Text)
}

func (p *Parser) parseMethodTail(span diag.Span, name string) *ast.Method {
	p.advance() // (
	var formals []*ast.Formal
	if !p.at(token.RParen) {
		formals = append(formals, p.parseFormal())
		for p.at(token.Comma) {
			p.advance()
			formals = append(formals, p.parseFormal())
		}
	}
	p.expect(token.RParen)
	p.expect(token.Colon)
	retTok, _ := p.expect(token.TypeId)
	p.expect(token.LBrace)
	body := p.parseExpr()
	p.expect(token.RBrace)
	return &ast.Method{SpanVal: span, Name: name, Formals: formals, RetType: retTok.Text, Body: body}
}

func (p *Parser) parseFormal() *ast.Formal {
	span := p.span()
	nameTok, _ := p.expect(token.ObjectId)
	p.expect(token.Colon)
	typeTok, _ := p.expect(token.TypeId)
	return &ast.Formal{SpanVal: span, Name: nameTok.Text, Type: typeTok.Text}
}

func (p *Parser) parseAttributeTail(span diag.Span, name string) *ast.Attribute {
	p.expect(token.Colon)
	typeTok, _ := p.expect(token.TypeId)
	var init ast.Expr = &ast.NoExpr{}
	if p.at(token.Assign) {
		p.advance()
		init = p.parseExpr()
	}
	return &ast.Attribute{SpanVal: span, Name: name, Type: typeTok.Text, Init: init}
}

// ---------------------------------------------------------------------------
// Expressions. Precedence, lowest to highest (spec §4.2):
//   <-   right
//   not  right prefix
//   < <= =  non-associative
//   + -  left
//   * /  left
//   isvoid  prefix
//   ~    prefix
//   @    left (static dispatch binding)
//   .    left (dispatch)
//   atomic forms
// ---------------------------------------------------------------------------

func (p *Parser) parseExpr() ast.Expr {
	return p.parseAssign()
}

func (p *Parser) parseAssign() ast.Expr {
	if p.at(token.ObjectId) && p.toks[p.pos+1].Kind == token.Assign {
		span := p.span()
		name := p.advance().Text
		p.advance() // <-
		value := p.parseAssign()
		return &ast.Assign{Base: ast.Base{SpanVal: span}, Name: name, Value: value}
	}
	return p.parseNot()
}

func (p *Parser) parseNot() ast.Expr {
	if p.at(token.Not) {
		span := p.span()
		p.advance()
		inner := p.parseNot()
		return &ast.UnOp{Base: ast.Base{SpanVal: span}, Op: ast.Negate, Expr: inner}
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() ast.Expr {
	left := p.parseAdditive()
	switch p.cur().Kind {
	case token.Lt, token.Le, token.Eq:
		span := p.span()
		op := p.advance().Kind
		right := p.parseAdditive()
		return &ast.BinOp{Base: ast.Base{SpanVal: span}, Op: compareOp(op), Left: left, Right: right}
	default:
		return left
	}
}

func compareOp(k token.Kind) ast.BinOpKind {
	switch k {
	case token.Lt:
		return ast.LessThan
	case token.Le:
		return ast.LessEq
	default:
		return ast.EqualTo
	}
}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.at(token.Plus) || p.at(token.Minus) {
		span := p.span()
		k := p.advance().Kind
		right := p.parseMultiplicative()
		op := ast.Add
		if k == token.Minus {
			op = ast.Sub
		}
		left = &ast.BinOp{Base: ast.Base{SpanVal: span}, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parseIsvoid()
	for p.at(token.Star) || p.at(token.Slash) {
		span := p.span()
		k := p.advance().Kind
		right := p.parseIsvoid()
		op := ast.Mul
		if k == token.Slash {
			op = ast.Div
		}
		left = &ast.BinOp{Base: ast.Base{SpanVal: span}, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseIsvoid() ast.Expr {
	if p.at(token.Isvoid) {
		span := p.span()
		p.advance()
		return &ast.IsVoid{Base: ast.Base{SpanVal: span}, Expr: p.parseIsvoid()}
	}
	return p.parseTilde()
}

func (p *Parser) parseTilde() ast.Expr {
	if p.at(token.Tilde) {
		span := p.span()
		p.advance()
		return &ast.UnOp{Base: ast.Base{SpanVal: span}, Op: ast.Complement, Expr: p.parseIsvoid()}
	}
	return p.parseDispatchChain()
}

func (p *Parser) parseDispatchChain() ast.Expr {
	left := p.parseAtom()
	for {
		switch p.cur().Kind {
		case token.At:
			span := p.span()
			p.advance()
			typeTok, _ := p.expect(token.TypeId)
			p.expect(token.Dot)
			methodTok, _ := p.expect(token.ObjectId)
			args := p.parseArgs()
			left = &ast.Dispatch{Base: ast.Base{SpanVal: span}, Receiver: left, StaticClass: typeTok.Text, Method: methodTok.Text, Args: args}
		case token.Dot:
			span := p.span()
			p.advance()
			methodTok, _ := p.expect(token.ObjectId)
			args := p.parseArgs()
			left = &ast.Dispatch{Base: ast.Base{SpanVal: span}, Receiver: left, StaticClass: "", Method: methodTok.Text, Args: args}
		default:
			return left
		}
	}
}

func (p *Parser) parseArgs() []ast.Expr {
	p.expect(token.LParen)
	var args []ast.Expr
	if !p.at(token.RParen) {
		args = append(args, p.parseExpr())
		for p.at(token.Comma) {
			p.advance()
			args = append(args, p.parseExpr())
		}
	}
	p.expect(token.RParen)
	return args
}

func (p *Parser) parseAtom() ast.Expr {
	span := p.span()
	switch p.cur().Kind {
	case token.ObjectId:
		name := p.advance().Text
		if p.at(token.LParen) {
			args := p.parseArgs()
			return &ast.Dispatch{Base: ast.Base{SpanVal: span}, Receiver: nil, StaticClass: "", Method: name, Args: args}
		}
		return &ast.Ident{Base: ast.Base{SpanVal: span}, Name: name}
	case token.IntLit:
		t := p.advance()
		return &ast.IntLit{Base: ast.Base{SpanVal: span}, Value: t.IntVal}
	case token.StringLit:
		t := p.advance()
		return &ast.StringLit{Base: ast.Base{SpanVal: span}, Value: t.Text}
	case token.BoolLit:
		t := p.advance()
		return &ast.BoolLit{Base: ast.Base{SpanVal: span}, Value: t.BoolVal}
	case token.New:
		p.advance()
		typeTok, _ := p.expect(token.TypeId)
		return &ast.New{Base: ast.Base{SpanVal: span}, TypeName: typeTok.Text}
	case token.LParen:
		p.advance()
		inner := p.parseExpr()
		p.expect(token.RParen)
		return &ast.Paren{Base: ast.Base{SpanVal: span}, Inner: inner}
	case token.LBrace:
		return p.parseBlock()
	case token.If:
		return p.parseIf()
	case token.While:
		return p.parseWhile()
	case token.Let:
		return p.parseLet()
	case token.Case:
		return p.parseCase()
	default:
		p.errf("unexpected token %q in expression", p.cur().Text)
		p.recoverToSemiOrBrace()
		return &ast.NoExpr{Base: ast.Base{SpanVal: span}}
	}
}

func (p *Parser) parseBlock() ast.Expr {
	span := p.span()
	p.expect(token.LBrace)
	var exprs []ast.Expr
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		e := p.parseExpr()
		exprs = append(exprs, e)
		if !p.at(token.Semi) {
			p.errf("expected ';' after block expression")
			p.recoverToSemiOrBrace()
			continue
		}
		p.advance()
	}
	p.expect(token.RBrace)
	if len(exprs) == 0 {
		p.errf("block must contain at least one expression")
	}
	return &ast.Block{Base: ast.Base{SpanVal: span}, Exprs: exprs}
}

func (p *Parser) parseIf() ast.Expr {
	span := p.span()
	p.advance() // if
	cond := p.parseExpr()
	p.expect(token.Then)
	thenE := p.parseExpr()
	p.expect(token.Else)
	elseE := p.parseExpr()
	p.expect(token.Fi)
	return &ast.If{Base: ast.Base{SpanVal: span}, Cond: cond, Then: thenE, Else: elseE}
}

func (p *Parser) parseWhile() ast.Expr {
	span := p.span()
	p.advance() // while
	cond := p.parseExpr()
	p.expect(token.Loop)
	body := p.parseExpr()
	p.expect(token.Pool)
	return &ast.While{Base: ast.Base{SpanVal: span}, Cond: cond, Body: body}
}

// parseLet desugars a multi-binding let into nested single-binding Let
// nodes, per spec §4.2: "let with multiple bindings is desugared into
// nested single-binding let forms during construction".
func (p *Parser) parseLet() ast.Expr {
	p.advance() // let
	bindings := []ast.LetBinding{p.parseLetBinding()}
	for p.at(token.Comma) {
		p.advance()
		bindings = append(bindings, p.parseLetBinding())
	}
	p.expect(token.In)
	body := p.parseExpr()
	return buildNestedLet(bindings, body)
}

func buildNestedLet(bindings []ast.LetBinding, body ast.Expr) ast.Expr {
	b := bindings[len(bindings)-1]
	result := ast.Expr(&ast.Let{Base: ast.Base{SpanVal: b.SpanVal}, Binding: b, Body: body})
	for i := len(bindings) - 2; i >= 0; i-- {
		b = bindings[i]
		result = &ast.Let{Base: ast.Base{SpanVal: b.SpanVal}, Binding: b, Body: result}
	}
	return result
}

func (p *Parser) parseLetBinding() ast.LetBinding {
	span := p.span()
	nameTok, _ := p.expect(token.ObjectId)
	p.expect(token.Colon)
	typeTok, _ := p.expect(token.TypeId)
	var init ast.Expr = &ast.NoExpr{}
	if p.at(token.Assign) {
		p.advance()
		init = p.parseExpr()
	}
	return ast.LetBinding{SpanVal: span, Name: nameTok.Text, Type: typeTok.Text, Init: init}
}

func (p *Parser) parseCase() ast.Expr {
	span := p.span()
	p.advance() // case
	scrutinee := p.parseExpr()
	p.expect(token.Of)
	var branches []*ast.CaseBranch
	for !p.at(token.Esac) && !p.at(token.EOF) {
		branches = append(branches, p.parseCaseBranch())
		if !p.at(token.Semi) {
			p.errf("expected ';' after case branch")
			p.recoverToSemiOrBrace()
			continue
		}
		p.advance()
	}
	p.expect(token.Esac)
	if len(branches) == 0 {
		p.errf("case must have at least one branch")
	}
	return &ast.Case{Base: ast.Base{SpanVal: span}, Scrutinee: scrutinee, Branches: branches}
}

func (p *Parser) parseCaseBranch() *ast.CaseBranch {
	span := p.span()
	nameTok, _ := p.expect(token.ObjectId)
	p.expect(token.Colon)
	typeTok, _ := p.expect(token.TypeId)
	p.expect(token.Arrow)
	body := p.parseExpr()
	return &ast.CaseBranch{SpanVal: span, Name: nameTok.Text, Type: typeTok.Text, Body: body}
}
