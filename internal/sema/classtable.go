// Package sema type-checks a COOL program: class table construction,
// hierarchy validation, feature-table inheritance, and five-pass expression
// typing (spec §4.3).
//
// The pass split (an existence/structure pass before the type-checking
// pass, each returning accumulated errors rather than failing fast) is
// grounded on compiler/type_checker.go's SymbolExistenceChecker followed by
// the type-check pass, and compiler/symbol_table.go's buildSymbolTables;
// COOL's single-inheritance class table with built-ins replaces Jack's
// flat function/method symbol table.
package sema

import (
	"sort"

	"coolc/internal/ast"
	"coolc/internal/diag"
)

// finalClasses cannot be inherited from (spec §4.3 pass 1: "Int, String,
// Bool, SELF_TYPE may not be inherited from"); SELF_TYPE is checked
// separately since it is never a key here.
var finalClasses = map[string]bool{
	"Int":    true,
	"String": true,
	"Bool":   true,
}

// ClassInfo wraps a class declaration with the bookkeeping the rest of the
// analyser needs: its resolved parent, and (after hierarchyPass) its
// depth and pre/post-order numbers for lub_C computation.
type ClassInfo struct {
	Decl   *ast.Class
	Parent *ClassInfo // nil for Object

	Attrs   map[string]*ast.Attribute
	Methods map[string]*MethodSig

	color int // 0 = white, 1 = gray, 2 = black; used by the cycle-detecting DFS
}

// MethodSig is the resolved signature of one method, as inherited or
// declared by DeclClass.
type MethodSig struct {
	DeclClass string
	Formals   []*ast.Formal
	RetType   string
	Decl      *ast.Method // nil for a built-in
}

// ClassTable maps every class name (including built-ins) to its ClassInfo.
type ClassTable struct {
	classes map[string]*ClassInfo
}

func newClassTable() *ClassTable {
	return &ClassTable{classes: make(map[string]*ClassInfo)}
}

// Lookup returns the ClassInfo for name, or nil if it does not exist.
func (t *ClassTable) Lookup(name string) *ClassInfo {
	return t.classes[name]
}

// Exists reports whether name names a declared (including built-in) class.
func (t *ClassTable) Exists(name string) bool {
	return t.classes[name] != nil
}

// Names returns every declared (including built-in) class name, in no
// particular order.
func (t *ClassTable) Names() []string {
	names := make([]string, 0, len(t.classes))
	for n := range t.classes {
		names = append(names, n)
	}
	return names
}

// BuildClassTable runs spec §4.3 passes 1-2: class collection plus hierarchy
// validation (parent resolution, cycle detection, depth/pre/post numbering).
// It always returns a usable (if partial) table so later passes can keep
// reporting cascading errors against a best-effort shape.
func BuildClassTable(prog *ast.Program, sink *diag.Sink) *ClassTable {
	t := newClassTable()
	declareBuiltins(t)

	// Class tags are assigned here, at declaration time, rather than by the
	// hierarchy DFS below: spec §6 reserves Object=0, IO=1, Int=2, Bool=3,
	// String=4 and requires user classes to start at 5 "in declaration
	// order", which is source order, not tree order. declareBuiltins above
	// already stamped 0-4; nextTag continues from 5.
	nextTag := 5
	for _, cls := range prog.Classes {
		if finalClasses[cls.Name] || cls.Name == ast.SelfType {
			sink.Add(diag.Sema, "SEMA_REDEFINE_BUILTIN", cls.Span, "class %s redefines a built-in", cls.Name)
			continue
		}
		if _, exists := t.classes[cls.Name]; exists {
			sink.Add(diag.Sema, "SEMA_DUP_CLASS", cls.Span, "class %s is already defined", cls.Name)
			continue
		}
		cls.Tag = nextTag
		nextTag++
		t.classes[cls.Name] = &ClassInfo{Decl: cls}
	}

	resolveParents(t, sink)
	hierarchyPass(t, sink)

	if t.Lookup("Main") == nil {
		sink.Add(diag.Sema, "SEMA_NO_MAIN", diag.Span{}, "no Main class declared")
	}

	return t
}

func resolveParents(t *ClassTable, sink *diag.Sink) {
	for name, ci := range t.classes {
		if name == "Object" {
			continue
		}
		parentName := ci.Decl.Parent
		if parentName == "" {
			parentName = "Object"
		}
		if finalClasses[parentName] {
			sink.Add(diag.Sema, "SEMA_INHERIT_FINAL", ci.Decl.Span, "class %s cannot inherit from %s", name, parentName)
			ci.Parent = t.classes["Object"]
			continue
		}
		parent := t.classes[parentName]
		if parent == nil {
			sink.Add(diag.Sema, "SEMA_NO_PARENT", ci.Decl.Span, "class %s inherits from undeclared class %s", name, parentName)
			ci.Parent = t.classes["Object"]
			continue
		}
		ci.Parent = parent
	}
}

// hierarchyPass detects inheritance cycles by walking each class's parent
// chain (three-colouring: white/gray/black), then assigns Depth and a
// pre/post-order numbering to every class reachable from Object via a
// second DFS driven by a children map, grounded on the pre/post numbering
// pycoolc/semanalyser.py computes for lub_C.
//
// PreOrd/PostOrd are deliberately a separate numbering from Tag (spec §6
// fixes Tag to the reserved builtin values plus declaration order; PreOrd/
// PostOrd only need to give every subtree a contiguous interval, which
// codegen's dynamic-type conformance range test in internal/codegen relies
// on). Children are visited in ascending Tag order so the numbering is
// deterministic regardless of Go's randomized map iteration, satisfying
// spec §8's codegen-determinism property.
func hierarchyPass(t *ClassTable, sink *diag.Sink) {
	for _, ci := range t.classes {
		detectCycle(ci, sink)
	}

	children := map[*ClassInfo][]*ClassInfo{}
	for _, ci := range t.classes {
		if ci.Decl.Name == "Object" || ci.Parent == nil {
			continue // Object is the root; a nil Parent otherwise means a cycle was broken here
		}
		children[ci.Parent] = append(children[ci.Parent], ci)
	}
	for _, kids := range children {
		sort.Slice(kids, func(i, j int) bool { return kids[i].Decl.Tag < kids[j].Decl.Tag })
	}

	counter := 0
	var visit func(ci *ClassInfo, depth int)
	visit = func(ci *ClassInfo, depth int) {
		ci.Decl.Depth = depth
		counter++
		ci.Decl.PreOrd = counter
		for _, child := range children[ci] {
			visit(child, depth+1)
		}
		counter++
		ci.Decl.PostOrd = counter
	}
	if obj := t.classes["Object"]; obj != nil {
		visit(obj, 0)
	}
}

// detectCycle walks ci's parent chain, colouring nodes gray while in
// progress and black once resolved. A gray node seen again closes a cycle;
// the offending class is detached from the tree (its Parent set to nil) so
// later passes still have a usable (acyclic) hierarchy to walk.
func detectCycle(ci *ClassInfo, sink *diag.Sink) {
	if ci.color == 2 {
		return
	}
	var chain []*ClassInfo
	cur := ci
	for cur != nil && cur.color == 0 {
		cur.color = 1
		chain = append(chain, cur)
		cur = cur.Parent
	}
	if cur != nil && cur.color == 1 {
		sink.Add(diag.Sema, "SEMA_INHERIT_CYCLE", cur.Decl.Span, "inheritance cycle involving class %s", cur.Decl.Name)
		cur.Parent = nil
		cur.color = 2
	}
	for _, node := range chain {
		node.color = 2
	}
}

// declareBuiltins stamps the reserved class tags of spec §6: Object=0,
// IO=1, Int=2, Bool=3, String=4.
func declareBuiltins(t *ClassTable) {
	object := &ast.Class{Name: "Object", Tag: 0}
	ioClass := &ast.Class{Name: "IO", Parent: "Object", Tag: 1}
	intClass := &ast.Class{Name: "Int", Parent: "Object", Tag: 2}
	boolClass := &ast.Class{Name: "Bool", Parent: "Object", Tag: 3}
	strClass := &ast.Class{Name: "String", Parent: "Object", Tag: 4}

	t.classes["Object"] = &ClassInfo{Decl: object, Methods: map[string]*MethodSig{
		"abort":     {DeclClass: "Object", RetType: "Object"},
		"type_name": {DeclClass: "Object", RetType: "String"},
		"copy":      {DeclClass: "Object", RetType: ast.SelfType},
	}, Attrs: map[string]*ast.Attribute{}}

	t.classes["IO"] = &ClassInfo{Decl: ioClass, Methods: map[string]*MethodSig{
		"out_string": {DeclClass: "IO", Formals: []*ast.Formal{{Name: "x", Type: "String"}}, RetType: ast.SelfType},
		"out_int":    {DeclClass: "IO", Formals: []*ast.Formal{{Name: "x", Type: "Int"}}, RetType: ast.SelfType},
		"in_string":  {DeclClass: "IO", RetType: "String"},
		"in_int":     {DeclClass: "IO", RetType: "Int"},
	}, Attrs: map[string]*ast.Attribute{}}

	t.classes["Int"] = &ClassInfo{Decl: intClass, Methods: map[string]*MethodSig{}, Attrs: map[string]*ast.Attribute{}}
	t.classes["Bool"] = &ClassInfo{Decl: boolClass, Methods: map[string]*MethodSig{}, Attrs: map[string]*ast.Attribute{}}

	t.classes["String"] = &ClassInfo{Decl: strClass, Methods: map[string]*MethodSig{
		"length": {DeclClass: "String", RetType: "Int"},
		"concat": {DeclClass: "String", Formals: []*ast.Formal{{Name: "s", Type: "String"}}, RetType: "String"},
		"substr": {DeclClass: "String", Formals: []*ast.Formal{{Name: "i", Type: "Int"}, {Name: "l", Type: "Int"}}, RetType: "String"},
	}, Attrs: map[string]*ast.Attribute{}}
}
