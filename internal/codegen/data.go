package codegen

// emitDataSegment writes the .data section in the fixed order spec §4.5
// requires: class-name string objects, the class-name table, dispatch
// tables, prototype objects, interned constants, then the heap-start word.
// Three lookup tables not named by spec are emitted alongside them
// (_protObj_table, _init_table, _class_preord_table): codegen needs them
// at runtime to clone and initialize self's *actual* runtime class for
// `new SELF_TYPE` and to range-test a live object's dynamic type against a
// case branch, neither of which a statically-resolved label can do.
func (g *Generator) emitDataSegment() {
	g.emit(".data")
	g.emit(".align 2")

	g.emitClassNameConstants()
	g.emitClassNameTable()
	g.emitDispatchTables()
	g.emitPrototypes()
	g.emitLookupTables()
	g.emitStringConstants()
	g.emitBoolConstants()
	g.emitIntConstants()
	g.emitRuntimeMessages()
	g.emitInputBuffer()
	g.emitLabel("_heap_start")
	g.emit("\t.word 0")
	g.emit("")
}

// emitInputBuffer reserves the scratch buffer _method_IO_in_string reads
// a line into via syscall 8 before copying it into a freshly made String;
// 1025 bytes matches that syscall's own buffer-length argument.
func (g *Generator) emitInputBuffer() {
	g.emitComment("IO.in_string scratch buffer")
	g.emitLabel("_in_string_buf")
	g.emit("\t.space 1025")
	g.emit("\t.align 2")
}

// runtimeMessages are raw (non-COOL-object) ASCIIZ buffers the runtime
// abort path and a few built-in methods print directly via syscall 4;
// unlike interned string constants these are never boxed into a String
// object, so they skip the class-tag/size/dispTab header entirely.
var runtimeMessages = map[string]string{
	"case_void":      "Error: case on void object\n",
	"case_no_match":  "Error: no matching branch in case statement\n",
	"div_zero":       "Error: division by zero\n",
	"substr_range":   "Error: substr index out of range\n",
	"dispatch_void":  "Error: Dispatch on void\n",
	"abort_prefix":   "Abort called from class ",
	"newline":        "\n",
}

func (g *Generator) emitRuntimeMessages() {
	g.emitComment("runtime abort/diagnostic messages")
	order := []string{"case_void", "case_no_match", "div_zero", "substr_range", "dispatch_void", "abort_prefix", "newline"}
	for _, kind := range order {
		g.emitLabel("_msg_" + kind)
		g.emitf("\t.asciiz %s", quoteAsciiz(runtimeMessages[kind]))
	}
	g.emit("\t.align 2")
}

// emitStringObject lays out one String object: header, a length word, then
// the ASCIIZ bytes padded to a word boundary. extraLabels are emitted
// pointing at the same bytes (used so _protObj_String and _str_const_empty
// can name the identical empty-string object, per spec §9's "mutable
// global labels" note on constant interning).
func (g *Generator) emitStringObject(label string, text string, extraLabels ...string) {
	paddedLen := roundUp4(len(text) + 1)
	size := objectHeaderSize + wordSize + paddedLen

	g.emitLabel(label)
	for _, l := range extraLabels {
		g.emitLabel(l)
	}
	g.emitf("\t.word %d", classTag(g.layout, "String"))
	g.emitf("\t.word %d", size)
	g.emitf("\t.word _dispTab_String")
	g.emitf("\t.word %d", len(text))
	g.emitf("\t.ascii %s", quoteAsciiz(text))
	padding := paddedLen - len(text)
	for i := 0; i < padding; i++ {
		g.emit("\t.byte 0")
	}
	g.emit("\t.align 2")
}

func roundUp4(n int) int {
	if n%4 == 0 {
		return n
	}
	return n + (4 - n%4)
}

// quoteAsciiz renders text as a double-quoted MIPS string literal with no
// trailing NUL of its own: in emitStringObject the .byte padding loop above
// supplies the terminator (padding is always at least one byte), and the
// runtime messages get theirs from .asciiz.
func quoteAsciiz(text string) string {
	out := make([]byte, 0, len(text)+4)
	out = append(out, '"')
	for _, r := range []byte(text) {
		switch r {
		case '"':
			out = append(out, '\\', '"')
		case '\\':
			out = append(out, '\\', '\\')
		case '\n':
			out = append(out, '\\', 'n')
		case '\t':
			out = append(out, '\\', 't')
		default:
			out = append(out, r)
		}
	}
	out = append(out, '"')
	return string(out)
}

func classTag(l *Layout, name string) int {
	if c := l.Classes[name]; c != nil {
		return c.Tag
	}
	return 0
}

// emitClassNameConstants emits one String object per class, in ascending
// tag order, holding that class's name — spec §4.5's "_class_name_<C>"
// entries.
func (g *Generator) emitClassNameConstants() {
	g.emitComment("class name constants")
	for _, name := range g.layout.Order {
		g.emitStringObject("_class_name_"+name, name)
	}
}

// emitClassNameTable emits _class_name_table, a word per tag pointing at
// that class's _class_name_<C> object.
func (g *Generator) emitClassNameTable() {
	g.emitComment("class name table")
	g.emitLabel("_class_name_table")
	for _, name := range g.layout.Order {
		g.emitf("\t.word _class_name_%s", name)
	}
}

// emitLookupTables emits the tag-indexed prototype/init/preorder tables
// this generator's `new SELF_TYPE` and case-dispatch lowering rely on.
func (g *Generator) emitLookupTables() {
	maxTag := g.layout.MaxTag()
	byTag := make([]*ClassLayout, maxTag+1)
	for _, c := range g.layout.Classes {
		byTag[c.Tag] = c
	}

	g.emitComment("runtime class lookup tables")
	g.emitLabel("_protObj_table")
	for _, c := range byTag {
		if c == nil {
			g.emit("\t.word 0")
			continue
		}
		g.emitf("\t.word _protObj_%s", c.Name)
	}
	g.emitLabel("_init_table")
	for _, c := range byTag {
		if c == nil {
			g.emit("\t.word 0")
			continue
		}
		g.emitf("\t.word _init_%s", c.Name)
	}
	g.emitLabel("_class_preord_table")
	for _, c := range byTag {
		if c == nil {
			g.emit("\t.word 0")
			continue
		}
		g.emitf("\t.word %d", c.PreOrd)
	}
}

// emitDispatchTables emits _dispTab_<C> per class: method entry labels in
// inherited order with overrides replaced in place (spec §4.5).
func (g *Generator) emitDispatchTables() {
	g.emitComment("dispatch tables")
	for _, name := range g.layout.Order {
		c := g.layout.Classes[name]
		g.emitLabel("_dispTab_" + name)
		for _, m := range c.Methods {
			g.emitf("\t.word _method_%s_%s", m.DefiningClass, m.Name)
		}
	}
}

// emitPrototypes emits _protObj_<C> per class: tag, size, dispatch
// pointer, then zero-initialized payload. Int/Bool get one raw value
// word; String's empty-string prototype doubles as _str_const_empty (see
// emitStringObject); ordinary classes get one zero word per attribute.
func (g *Generator) emitPrototypes() {
	g.emitComment("prototype objects")
	for _, name := range g.layout.Order {
		c := g.layout.Classes[name]
		switch name {
		case "String":
			g.emitStringObject("_protObj_String", "", "_str_const_empty")
			continue
		case "Int":
			g.emitLabel("_protObj_Int")
			g.emitf("\t.word %d", c.Tag)
			g.emitf("\t.word %d", c.Size())
			g.emit("\t.word _dispTab_Int")
			g.emit("\t.word 0")
			continue
		case "Bool":
			g.emitLabel("_protObj_Bool")
			g.emitf("\t.word %d", c.Tag)
			g.emitf("\t.word %d", c.Size())
			g.emit("\t.word _dispTab_Bool")
			g.emit("\t.word 0")
			continue
		}
		g.emitLabel("_protObj_" + name)
		g.emitf("\t.word %d", c.Tag)
		g.emitf("\t.word %d", c.Size())
		g.emitf("\t.word _dispTab_%s", name)
		for range c.Attrs {
			g.emit("\t.word 0")
		}
	}
}

// emitStringConstants emits every distinct non-empty string literal
// interned during collectConstants, in first-seen order.
func (g *Generator) emitStringConstants() {
	g.emitComment("string constants")
	for _, s := range g.strOrder {
		g.emitStringObject(g.strConsts[s], s)
	}
}

func (g *Generator) emitBoolConstants() {
	g.emitComment("bool constants")
	g.emitLabel("_bool_const_false")
	g.emitf("\t.word %d", classTag(g.layout, "Bool"))
	g.emitf("\t.word %d", objectHeaderSize+wordSize)
	g.emit("\t.word _dispTab_Bool")
	g.emit("\t.word 0")
	g.emitLabel("_bool_const_true")
	g.emitf("\t.word %d", classTag(g.layout, "Bool"))
	g.emitf("\t.word %d", objectHeaderSize+wordSize)
	g.emit("\t.word _dispTab_Bool")
	g.emit("\t.word 1")
}

func (g *Generator) emitIntConstants() {
	g.emitComment("int constants")
	for _, v := range g.intOrder {
		g.emitLabel(g.intConsts[v])
		g.emitf("\t.word %d", classTag(g.layout, "Int"))
		g.emitf("\t.word %d", objectHeaderSize+wordSize)
		g.emit("\t.word _dispTab_Int")
		g.emitf("\t.word %d", v)
	}
}
