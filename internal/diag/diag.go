// Package diag collects compiler diagnostics across pipeline stages.
//
// Every stage appends to a shared Sink instead of returning on the first
// error, so a single run can report as many problems as possible: panic-mode
// recovery in the parser and best-effort typing in the semantic analyser both
// rely on the sink staying append-only and preserving insertion order.
package diag

import "fmt"

// Stage identifies which pipeline phase produced a Diagnostic.
type Stage int

const (
	Lex Stage = iota
	Parse
	Sema
	Codegen
)

func (s Stage) String() string {
	switch s {
	case Lex:
		return "lex"
	case Parse:
		return "parse"
	case Sema:
		return "sema"
	case Codegen:
		return "codegen"
	}
	return "unknown"
}

// Span is a source location: a single line/column pair. AST nodes carry a
// Span per node (not just per statement) so a diagnostic raised deep inside
// an expression still points at the subexpression that caused it.
type Span struct {
	Line int
	Col  int
}

// Diagnostic is one reported error, formatted per spec as
// "<path>:<line>:<col>: <code>: <message>".
type Diagnostic struct {
	Stage   Stage
	Code    string
	Span    Span
	Path    string
	Message string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.Path, d.Span.Line, d.Span.Col, d.Code, d.Message)
}

// Sink is an append-only, insertion-ordered collection of diagnostics.
// It is only ever touched from a single goroutine (the pipeline calls each
// stage sequentially, per spec §5), so it carries no locking.
type Sink struct {
	path  string
	items []Diagnostic
}

// NewSink creates a sink that stamps every diagnostic with path, the source
// file the diagnostics are about.
func NewSink(path string) *Sink {
	return &Sink{path: path}
}

// Add appends one diagnostic, in source order.
func (s *Sink) Add(stage Stage, code string, span Span, format string, args ...interface{}) {
	s.items = append(s.items, Diagnostic{
		Stage:   stage,
		Code:    code,
		Span:    span,
		Path:    s.path,
		Message: fmt.Sprintf(format, args...),
	})
}

// HasErrors reports whether any diagnostic has been recorded.
func (s *Sink) HasErrors() bool {
	return len(s.items) > 0
}

// Diagnostics returns every diagnostic recorded so far, in source order.
func (s *Sink) Diagnostics() []Diagnostic {
	return s.items
}
