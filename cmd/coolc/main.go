// Command coolc is the compiler driver: it reads one or more .cl source
// files, runs the pipeline of spec.md §2 in order, and either writes a
// SPIM-runnable .s file or dumps an intermediate stage to stdout.
//
// Grounded on compiler/main.go + assembler/main.go's flag-based driver
// (a package-level flag.String/flag.Bool set parsed once in main) and
// compiler/compiler.go's stage-by-stage panic-on-error shape, generalized
// from a single panic into spec.md §6's four distinct exit codes so a
// calling script can tell a source-code problem from an internal one.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"coolc/internal/ast"
	"coolc/internal/codegen"
	"coolc/internal/diag"
	"coolc/internal/ir"
	"coolc/internal/lexer"
	"coolc/internal/parser"
	"coolc/internal/sema"
	"coolc/internal/token"
)

// Exit codes per spec.md §6.
const (
	exitOK       = 0
	exitLexParse = 1
	exitSema     = 2
	exitIO       = 3
	exitInternal = 4
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("coolc", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var outfile string
	fs.StringVar(&outfile, "o", "", "output assembly path (default: source basename + .s)")
	fs.StringVar(&outfile, "outfile", "", "same as -o")
	dumpTokens := fs.Bool("tokens", false, "dump the token stream as JSON and exit")
	dumpAst := fs.Bool("ast", false, "dump the parsed AST as JSON and exit")
	dumpSemantics := fs.Bool("semantics", false, "dump the type-annotated AST and class table as JSON and exit")
	noCodegen := fs.Bool("no-codegen", false, "run through semantic analysis only")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: coolc [flags] file.cl [file2.cl ...]")
		fmt.Fprintln(os.Stderr, "compiles one or more COOL source files into SPIM-runnable MIPS32 assembly.")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		return exitIO
	}

	paths := fs.Args()
	if len(paths) == 0 {
		fs.Usage()
		return exitIO
	}

	units, code := lexAndParse(paths)
	if code != exitOK {
		return code
	}

	if *dumpTokens {
		dump := make(map[string][]tokenDump, len(units))
		for _, u := range units {
			dump[u.path] = dumpTokensOf(u.toks)
		}
		return writeJSONAndExit(dump)
	}

	merged := mergePrograms(units)

	if *dumpAst {
		return writeJSONAndExit(merged)
	}

	if reportErrors(units) {
		return exitLexParse
	}

	semaSink := diag.NewSink(paths[0])
	table := sema.Analyze(merged, semaSink)

	if *dumpSemantics {
		return writeJSONAndExit(struct {
			Classes []classSummary `json:"classes"`
			Program *ast.Program   `json:"program"`
		}{classSummaries(table), merged})
	}

	if semaSink.HasErrors() {
		printDiagnostics(semaSink)
		return exitSema
	}

	if *noCodegen {
		return exitOK
	}

	prog := ir.Optimize(ir.Translate(merged, table))

	codeSink := diag.NewSink(paths[0])
	text := codegen.Generate(table, prog, codeSink)
	if codeSink.HasErrors() {
		printDiagnostics(codeSink)
		return exitInternal
	}

	out := outfile
	if out == "" {
		out = defaultOutfile(paths[0])
	}
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", out, err)
		return exitIO
	}
	return exitOK
}

type fileUnit struct {
	path string
	sink *diag.Sink
	toks []token.Token
	prog *ast.Program
}

// lexAndParse reads and lexes/parses every input file independently (so
// each diagnostic keeps the line/column of its own file), returning
// exitIO on the first unreadable file.
func lexAndParse(paths []string) ([]fileUnit, int) {
	units := make([]fileUnit, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", p, err)
			return nil, exitIO
		}
		sink := diag.NewSink(p)
		toks := lexer.Lex(string(data), sink)
		prog := parser.Parse(toks, sink)
		units = append(units, fileUnit{path: p, sink: sink, toks: toks, prog: prog})
	}
	return units, exitOK
}

// mergePrograms concatenates every file's classes into one program: spec
// §6 compiles multiple positional .cl files "together as one program".
func mergePrograms(units []fileUnit) *ast.Program {
	merged := &ast.Program{}
	for _, u := range units {
		if u.prog != nil {
			merged.Classes = append(merged.Classes, u.prog.Classes...)
		}
	}
	return merged
}

// reportErrors prints every unit's lex/parse diagnostics, in file order,
// and reports whether any were found.
func reportErrors(units []fileUnit) bool {
	found := false
	for _, u := range units {
		if u.sink.HasErrors() {
			found = true
			printDiagnostics(u.sink)
		}
	}
	return found
}

func printDiagnostics(sink *diag.Sink) {
	for _, d := range sink.Diagnostics() {
		fmt.Fprintln(os.Stderr, d.Error())
	}
}

func defaultOutfile(sourcePath string) string {
	ext := filepath.Ext(sourcePath)
	return strings.TrimSuffix(sourcePath, ext) + ".s"
}

// tokenDump is token.Token reshaped for JSON: Kind is rendered through its
// String method since the bare iota int is meaningless to a human reading
// a --tokens dump.
type tokenDump struct {
	Kind    string `json:"kind"`
	Text    string `json:"text"`
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	IntVal  int64  `json:"intVal,omitempty"`
	BoolVal bool   `json:"boolVal,omitempty"`
}

func dumpTokensOf(toks []token.Token) []tokenDump {
	out := make([]tokenDump, len(toks))
	for i, t := range toks {
		out[i] = tokenDump{
			Kind: t.Kind.String(), Text: t.Text, Line: t.Line, Col: t.Col,
			IntVal: t.IntVal, BoolVal: t.BoolVal,
		}
	}
	return out
}

// classSummary is a JSON-friendly view onto a *sema.ClassInfo: ClassTable
// itself keeps its backing map unexported, so --semantics dumps this
// instead of the table directly.
type classSummary struct {
	Name    string `json:"name"`
	Parent  string `json:"parent,omitempty"`
	Tag     int    `json:"tag"`
	Depth   int    `json:"depth"`
	PreOrd  int    `json:"preOrd"`
	PostOrd int    `json:"postOrd"`
}

func classSummaries(table *sema.ClassTable) []classSummary {
	names := table.Names()
	sort.Strings(names)
	out := make([]classSummary, 0, len(names))
	for _, name := range names {
		ci := table.Lookup(name)
		parent := ""
		if ci.Parent != nil {
			parent = ci.Parent.Decl.Name
		}
		out = append(out, classSummary{
			Name: name, Parent: parent, Tag: ci.Decl.Tag,
			Depth: ci.Decl.Depth, PreOrd: ci.Decl.PreOrd, PostOrd: ci.Decl.PostOrd,
		})
	}
	return out
}

func writeJSONAndExit(v interface{}) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "internal error: %v\n", err)
		return exitInternal
	}
	return exitOK
}
