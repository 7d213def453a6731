// Package codegen emits MIPS32 assembly runnable under SPIM from an
// optimized TAC program, grounded on
// original_source/pycoolc/codegen.py's MIPSCodeGenerator: the same object
// layout (class tag / size / dispatch pointer header followed by
// attribute words), the same dispatch-table-per-class scheme, the same
// register conventions ($a0 self, arguments on the stack, stack-discipline
// frames),
// and the same runtime-support/builtin-method assembly.
package codegen

import (
	"sort"

	"coolc/internal/ast"
	"coolc/internal/sema"
)

const (
	wordSize         = 4
	objectHeaderSize = 3 * wordSize
)

// builtinMethodOrder fixes the dispatch-table order of each built-in
// class's own methods, since sema's ClassInfo.Methods is a map and has no
// declaration order of its own (there is no ast.Class backing a built-in
// to read Features off of). Order is taken from
// pycoolc/codegen.py's _emit_builtin_methods emission order.
var builtinMethodOrder = map[string][]string{
	"Object": {"abort", "type_name", "copy"},
	"IO":     {"out_string", "out_int", "in_string", "in_int"},
	"Int":    {},
	"Bool":   {},
	"String": {"length", "concat", "substr"},
}

// MethodEntry is one dispatch-table slot: a method name and the class that
// currently provides its implementation (the nearest ancestor that
// defines or overrides it).
type MethodEntry struct {
	Name          string
	DefiningClass string
}

// AttrEntry is one attribute slot, in inherited-then-own declaration order.
type AttrEntry struct {
	Name string
	Type string
}

// ClassLayout is everything codegen needs to lay out one class's
// prototype object, dispatch table, and attribute offsets.
type ClassLayout struct {
	Name string
	// Tag is the class's object-header tag per spec §6's reserved
	// assignment (Object=0, IO=1, Int=2, Bool=3, String=4, user classes 5+
	// in declaration order). PreOrd/PostOrd are sema's hierarchy-pass DFS
	// numbering, kept separately: a dynamic-type conformance check reduces
	// to a range comparison against PreOrd/PostOrd (every subtree is a
	// contiguous DFS interval), which the emitted Tag alone cannot give
	// since Tag follows declaration order, not tree order.
	Tag         int
	PreOrd      int
	PostOrd     int
	Parent      string
	Attrs       []AttrEntry
	Methods     []MethodEntry
	methodIndex map[string]int
	attrIndex   map[string]int
}

// Size is the prototype object's size in bytes. Int and Bool carry one raw
// payload word that is not a COOL-visible attribute (spec §3); String's
// prototype is the empty string (header, a zero length word, and its NUL
// byte padded to a word, as emitStringObject lays it out) and distinct
// non-empty string constants
// compute their own larger size separately in the generator. Ordinary
// classes are header plus one word per attribute.
func (c *ClassLayout) Size() int {
	switch c.Name {
	case "Int", "Bool":
		return objectHeaderSize + wordSize
	case "String":
		return objectHeaderSize + wordSize + roundUp4(1)
	}
	return objectHeaderSize + len(c.Attrs)*wordSize
}

// AttrOffset returns the byte offset of attr from the start of the object.
func (c *ClassLayout) AttrOffset(name string) (int, bool) {
	i, ok := c.attrIndex[name]
	if !ok {
		return 0, false
	}
	return objectHeaderSize + i*wordSize, true
}

// MethodIndex returns method's dispatch-table slot index.
func (c *ClassLayout) MethodIndex(name string) (int, bool) {
	i, ok := c.methodIndex[name]
	return i, ok
}

// TagRange returns the inclusive [PreOrd, PostOrd] interval every
// descendant's (and c's own) PreOrd falls within, and nothing outside the
// subtree does. Codegen compares this against a runtime class's PreOrd
// (looked up in _class_preord_table by the runtime object's Tag), never
// against Tag itself, since Tag follows declaration order rather than the
// tree order this interval relies on.
func (c *ClassLayout) TagRange() (lo, hi int) { return c.PreOrd, c.PostOrd }

// Layout holds every class's ClassLayout, keyed by class name.
type Layout struct {
	Classes map[string]*ClassLayout
	// Order lists class names in ascending tag order, the order codegen
	// walks to emit the class-name lookup table and other tag-indexed data.
	Order []string
}

// BuildLayout computes every class's object/dispatch layout from the
// semantic class table, grounded on codegen.py's _build_class_info/
// _assign_class_tags/_collect_attributes/_collect_methods.
func BuildLayout(table *sema.ClassTable) *Layout {
	l := &Layout{Classes: map[string]*ClassLayout{}}

	names := table.Names()
	sort.Strings(names)

	for _, n := range names {
		ci := table.Lookup(n)
		chain := ancestorChain(ci)

		attrs := buildAttrList(chain)
		methods := buildMethodList(chain)

		methodIndex := map[string]int{}
		for i, m := range methods {
			methodIndex[m.Name] = i
		}
		attrIndex := map[string]int{}
		for i, a := range attrs {
			attrIndex[a.Name] = i
		}

		parent := ""
		if ci.Parent != nil {
			parent = ci.Parent.Decl.Name
		}

		l.Classes[n] = &ClassLayout{
			Name:        n,
			Tag:         ci.Decl.Tag,
			PreOrd:      ci.Decl.PreOrd,
			PostOrd:     ci.Decl.PostOrd,
			Parent:      parent,
			Attrs:       attrs,
			Methods:     methods,
			methodIndex: methodIndex,
			attrIndex:   attrIndex,
		}
	}

	l.Order = make([]string, 0, len(names))
	for n := range l.Classes {
		l.Order = append(l.Order, n)
	}
	sort.Slice(l.Order, func(i, j int) bool {
		return l.Classes[l.Order[i]].Tag < l.Classes[l.Order[j]].Tag
	})
	return l
}

// MaxTag returns the highest class tag in the program, so codegen knows
// how many words _class_preord_table needs.
func (l *Layout) MaxTag() int {
	max := 0
	for _, c := range l.Classes {
		if c.Tag > max {
			max = c.Tag
		}
	}
	return max
}

// PreOrdTable returns, indexed by class tag (0..MaxTag), the PreOrd number
// of the class holding that tag. Codegen emits this as
// _class_preord_table so a runtime conformance test can map a live
// object's header tag to its place in the DFS tree ordering in one load.
func (l *Layout) PreOrdTable() []int {
	table := make([]int, l.MaxTag()+1)
	for _, c := range l.Classes {
		table[c.Tag] = c.PreOrd
	}
	return table
}

// ancestorChain returns ci's ancestors root (Object) first, ci itself last.
func ancestorChain(ci *sema.ClassInfo) []*sema.ClassInfo {
	var rev []*sema.ClassInfo
	for c := ci; c != nil; c = c.Parent {
		rev = append(rev, c)
	}
	chain := make([]*sema.ClassInfo, len(rev))
	for i, c := range rev {
		chain[len(rev)-1-i] = c
	}
	return chain
}

func buildAttrList(chain []*sema.ClassInfo) []AttrEntry {
	var attrs []AttrEntry
	for _, ci := range chain {
		for _, f := range ci.Decl.Features {
			if a, ok := f.(*ast.Attribute); ok {
				attrs = append(attrs, AttrEntry{Name: a.Name, Type: a.Type})
			}
		}
	}
	return attrs
}

func buildMethodList(chain []*sema.ClassInfo) []MethodEntry {
	var methods []MethodEntry
	seen := map[string]int{}
	addOrOverride := func(name, definer string) {
		if i, ok := seen[name]; ok {
			methods[i].DefiningClass = definer
			return
		}
		seen[name] = len(methods)
		methods = append(methods, MethodEntry{Name: name, DefiningClass: definer})
	}
	for _, ci := range chain {
		if order, ok := builtinMethodOrder[ci.Decl.Name]; ok {
			for _, name := range order {
				addOrOverride(name, ci.Decl.Name)
			}
			continue
		}
		for _, f := range ci.Decl.Features {
			if m, ok := f.(*ast.Method); ok {
				addOrOverride(m.Name, ci.Decl.Name)
			}
		}
	}
	return methods
}
