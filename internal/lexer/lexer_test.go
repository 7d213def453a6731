package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"coolc/internal/diag"
	"coolc/internal/token"
)

func kinds(toks []token.Token) []token.Kind {
	ks := make([]token.Kind, len(toks))
	for i, t := range toks {
		ks[i] = t.Kind
	}
	return ks
}

func TestLexer_Keywords(t *testing.T) {
	sink := diag.NewSink("t.cl")
	toks := Lex("class Foo inherits Bar { };", sink)
	assert.False(t, sink.HasErrors())
	assert.Equal(t, []token.Kind{
		token.Class, token.TypeId, token.Inherits, token.TypeId,
		token.LBrace, token.RBrace, token.Semi, token.EOF,
	}, kinds(toks))
}

func TestLexer_KeywordsCaseInsensitiveExceptBool(t *testing.T) {
	sink := diag.NewSink("t.cl")
	toks := Lex("CLASS Class iF", sink)
	assert.False(t, sink.HasErrors())
	assert.Equal(t, []token.Kind{token.Class, token.Class, token.If, token.EOF}, kinds(toks))
}

func TestLexer_BoolLiteralMustStartLowercase(t *testing.T) {
	sink := diag.NewSink("t.cl")
	toks := Lex("true True tRue false", sink)
	assert.False(t, sink.HasErrors())
	// "True" starts uppercase, so it is a type id, not a bool literal;
	// "tRue" starts lowercase and the rest may be any case, so it is true.
	assert.Equal(t, token.BoolLit, toks[0].Kind)
	assert.True(t, toks[0].BoolVal)
	assert.Equal(t, token.TypeId, toks[1].Kind)
	assert.Equal(t, token.BoolLit, toks[2].Kind)
	assert.True(t, toks[2].BoolVal)
	assert.Equal(t, token.BoolLit, toks[3].Kind)
	assert.False(t, toks[3].BoolVal)
}

func TestLexer_Identifiers(t *testing.T) {
	sink := diag.NewSink("t.cl")
	toks := Lex("Foo foo foo2 self SELF_TYPE", sink)
	assert.False(t, sink.HasErrors())
	assert.Equal(t, token.TypeId, toks[0].Kind)
	assert.Equal(t, token.ObjectId, toks[1].Kind)
	assert.Equal(t, token.ObjectId, toks[2].Kind)
	assert.Equal(t, token.ObjectId, toks[3].Kind)
	assert.Equal(t, token.TypeId, toks[4].Kind)
}

func TestLexer_Operators(t *testing.T) {
	sink := diag.NewSink("t.cl")
	toks := Lex("<- <= < = @ : ;", sink)
	assert.False(t, sink.HasErrors())
	assert.Equal(t, token.Assign, toks[0].Kind)
	assert.Equal(t, token.Le, toks[1].Kind)
	assert.Equal(t, token.Lt, toks[2].Kind)
	assert.Equal(t, token.Eq, toks[3].Kind)
	assert.Equal(t, token.At, toks[4].Kind)
}

func TestLexer_Arrow(t *testing.T) {
	sink := diag.NewSink("t.cl")
	toks := Lex("x : Int => x + 1", sink)
	assert.False(t, sink.HasErrors())
	assert.Equal(t, token.Arrow, toks[3].Kind)
}

func TestLexer_StringEscapes(t *testing.T) {
	sink := diag.NewSink("t.cl")
	toks := Lex(`"a\nb\t\"c\\d"`, sink)
	assert.False(t, sink.HasErrors())
	assert.Equal(t, "a\nb\t\"c\\d", toks[0].Text)
}

func TestLexer_UnterminatedStringIsRecoverable(t *testing.T) {
	sink := diag.NewSink("t.cl")
	toks := Lex("\"abc\nx", sink)
	assert.True(t, sink.HasErrors())
	assert.Equal(t, token.StringLit, toks[0].Kind)
}

func TestLexer_StringTooLong(t *testing.T) {
	sink := diag.NewSink("t.cl")
	long := make([]byte, 1030)
	for i := range long {
		long[i] = 'a'
	}
	src := `"` + string(long) + `"`
	Lex(src, sink)
	assert.True(t, sink.HasErrors())
}

func TestLexer_NestedBlockComments(t *testing.T) {
	sink := diag.NewSink("t.cl")
	toks := Lex("(* outer (* inner *) still in outer *) class", sink)
	assert.False(t, sink.HasErrors())
	assert.Equal(t, []token.Kind{token.Class, token.EOF}, kinds(toks))
}

func TestLexer_UnterminatedBlockComment(t *testing.T) {
	sink := diag.NewSink("t.cl")
	Lex("(* never closes", sink)
	assert.True(t, sink.HasErrors())
}

func TestLexer_LineComment(t *testing.T) {
	sink := diag.NewSink("t.cl")
	toks := Lex("class -- a comment\nFoo", sink)
	assert.False(t, sink.HasErrors())
	assert.Equal(t, []token.Kind{token.Class, token.TypeId, token.EOF}, kinds(toks))
}

func TestLexer_IntegerLiteral(t *testing.T) {
	sink := diag.NewSink("t.cl")
	toks := Lex("42 0 007", sink)
	assert.False(t, sink.HasErrors())
	assert.EqualValues(t, 42, toks[0].IntVal)
	assert.EqualValues(t, 0, toks[1].IntVal)
	assert.EqualValues(t, 7, toks[2].IntVal)
}
