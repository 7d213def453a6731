package codegen

// emitTextSegment writes the .text section: the program entry point, the
// shared runtime helpers, the built-in method bodies, then every class's
// _init_<C> (built-in classes included, since each initializer chains to
// its parent's) and every user class's declared methods, in ascending tag
// order so output is reproducible (spec §4.5, §8 codegen-determinism).
func (g *Generator) emitTextSegment() {
	g.emit(".text")
	g.emit(".globl main")
	g.emit("")

	g.emitEntryPoint()
	g.emitRuntimeHelpers()
	g.emitBuiltinMethods()

	for _, name := range g.layout.Order {
		g.emitClassInit(name)
		if isBuiltinClass(name) {
			continue
		}
		g.emitClassMethods(name)
	}
}

func isBuiltinClass(name string) bool {
	switch name {
	case "Object", "IO", "Int", "Bool", "String":
		return true
	}
	return false
}

// emitEntryPoint writes spec §4.5's fixed main sequence: zero
// _heap_start, clone _protObj_Main, run its initializer, call its main
// method, then exit.
func (g *Generator) emitEntryPoint() {
	g.emitComment("program entry point")
	g.emitLabel("main")
	g.emit("\tsw   $zero, _heap_start")
	g.emit("\tla   $a0, _protObj_Main")
	g.emit("\tjal  _Object_copy")
	g.emit("\tjal  _init_Main")
	g.emit("\tjal  _method_Main_main")
	g.emit("\tli   $v0, 10")
	g.emit("\tsyscall")
	g.emit("")
}

// emitRuntimeHelpers writes the leaf subroutines every generated method
// relies on: heap copy, byte copy, string construction from a raw buffer,
// reference/value/string equality, and the shared abort path.
//
// These are not entered through any dispatch table, so they follow a
// lighter-weight convention than _method_<C>_<m>: arguments in $a0.. as
// noted per routine, no stack frame, return via $ra. _bytes_copy confines
// its scratch use to $a0-$a2/$v0-$v1; _Object_copy, _equality_test and
// _make_string use $t registers (_make_string keeps its own return address
// in $t8 across its call to _bytes_copy), so the multi-call builtins below
// (concat, substr) stash anything they need across two calls in their own
// stack frame — the generator's one blanket rule (see asmhelpers.go).
func (g *Generator) emitRuntimeHelpers() {
	g.emitComment("runtime helpers")

	g.emitLabel("_Object_copy") // in: $a0 = source object. out: $a0 = new copy.
	g.emit("\tmove  $t0, $a0")
	g.emit("\tlw    $t1, 4($t0)")
	g.emit("\tmove  $a0, $t1")
	g.emit("\tli    $v0, 9")
	g.emit("\tsyscall")
	g.emit("\tmove  $t2, $v0")
	g.emit("\tmove  $t3, $zero")
	g.emitLabel("_Object_copy_loop")
	g.emit("\tbge   $t3, $t1, _Object_copy_done")
	g.emit("\tlw    $t4, 0($t0)")
	g.emit("\tsw    $t4, 0($t2)")
	g.emit("\taddiu $t0, $t0, 4")
	g.emit("\taddiu $t2, $t2, 4")
	g.emit("\taddiu $t3, $t3, 4")
	g.emit("\tj     _Object_copy_loop")
	g.emitLabel("_Object_copy_done")
	g.emit("\tmove  $a0, $v0")
	g.emit("\tjr    $ra")

	g.emitLabel("_bytes_copy") // in: $a0=src, $a1=dst, $a2=n bytes. clobbers a0-a2,v0,v1.
	g.emit("\tmove  $v0, $zero")
	g.emitLabel("_bytes_copy_loop")
	g.emit("\tbge   $v0, $a2, _bytes_copy_done")
	g.emit("\tlb    $v1, 0($a0)")
	g.emit("\tsb    $v1, 0($a1)")
	g.emit("\taddiu $a0, $a0, 1")
	g.emit("\taddiu $a1, $a1, 1")
	g.emit("\taddiu $v0, $v0, 1")
	g.emit("\tj     _bytes_copy_loop")
	g.emitLabel("_bytes_copy_done")
	g.emit("\tjr    $ra")

	g.emitLabel("_make_string") // in: $a0=raw bytes, $a1=length. out: $a0=new String object.
	g.emit("\tmove  $t0, $a0")
	g.emit("\tmove  $t1, $a1")
	g.emit("\taddiu $t2, $t1, 1")
	g.emit("\taddiu $t2, $t2, 3")
	g.emit("\tsrl   $t2, $t2, 2")
	g.emit("\tsll   $t2, $t2, 2")
	g.emit("\taddiu $t3, $t2, 16")
	g.emit("\tmove  $a0, $t3")
	g.emit("\tli    $v0, 9")
	g.emit("\tsyscall")
	g.emit("\tmove  $t4, $v0")
	g.emitf("\tli    $t5, %d", classTag(g.layout, "String"))
	g.emit("\tsw    $t5, 0($t4)")
	g.emit("\tsw    $t3, 4($t4)")
	g.emit("\tla    $t5, _dispTab_String")
	g.emit("\tsw    $t5, 8($t4)")
	g.emit("\tsw    $t1, 12($t4)")
	g.emit("\taddiu $a0, $t0, 0")
	g.emit("\taddiu $a1, $t4, 16")
	g.emit("\tmove  $a2, $t1")
	g.emit("\tmove  $t6, $t4") // survive the jal below
	g.emit("\tmove  $t8, $ra")
	g.emit("\tjal   _bytes_copy")
	g.emit("\taddiu $t7, $t6, 16")
	g.emit("\tadd   $t7, $t7, $t1")
	g.emit("\tsb    $zero, 0($t7)")
	g.emit("\tmove  $a0, $t6")
	g.emit("\tjr    $t8")

	g.emitLabel("_equality_test") // in: $a0,$a1 = pointers. out: $v0 = 1 or 0.
	g.emit("\tbeq   $a0, $a1, _eq_true")
	g.emit("\tbeqz  $a0, _eq_false")
	g.emit("\tbeqz  $a1, _eq_false")
	g.emit("\tlw    $t0, 0($a0)")
	g.emit("\tlw    $t1, 0($a1)")
	g.emit("\tbne   $t0, $t1, _eq_false")
	g.emitf("\tli    $t2, %d", classTag(g.layout, "Int"))
	g.emit("\tbeq   $t0, $t2, _eq_value")
	g.emitf("\tli    $t2, %d", classTag(g.layout, "Bool"))
	g.emit("\tbeq   $t0, $t2, _eq_value")
	g.emitf("\tli    $t2, %d", classTag(g.layout, "String"))
	g.emit("\tbeq   $t0, $t2, _eq_string")
	g.emit("\tj     _eq_false")
	g.emitLabel("_eq_value")
	g.emit("\tlw    $t3, 12($a0)")
	g.emit("\tlw    $t4, 12($a1)")
	g.emit("\tbeq   $t3, $t4, _eq_true")
	g.emit("\tj     _eq_false")
	g.emitLabel("_eq_string")
	g.emit("\tlw    $t3, 12($a0)")
	g.emit("\tlw    $t4, 12($a1)")
	g.emit("\tbne   $t3, $t4, _eq_false")
	g.emit("\taddiu $t5, $a0, 16")
	g.emit("\taddiu $t6, $a1, 16")
	g.emit("\tmove  $t7, $zero")
	g.emitLabel("_eq_string_loop")
	g.emit("\tbge   $t7, $t3, _eq_true")
	g.emit("\tlb    $t8, 0($t5)")
	g.emit("\tlb    $t9, 0($t6)")
	g.emit("\tbne   $t8, $t9, _eq_false")
	g.emit("\taddiu $t5, $t5, 1")
	g.emit("\taddiu $t6, $t6, 1")
	g.emit("\taddiu $t7, $t7, 1")
	g.emit("\tj     _eq_string_loop")
	g.emitLabel("_eq_true")
	g.emit("\tli    $v0, 1")
	g.emit("\tjr    $ra")
	g.emitLabel("_eq_false")
	g.emit("\tli    $v0, 0")
	g.emit("\tjr    $ra")

	g.emitLabel("_runtime_abort") // in: $a0 = message buffer. never returns.
	g.emit("\tli    $v0, 4")
	g.emit("\tsyscall")
	g.emit("\tli    $v0, 10")
	g.emit("\tsyscall")
	g.emit("")
}

// emitBuiltinMethods writes the built-in method bodies of spec §4.5:
// Object.{abort,type_name,copy}, IO.{out_string,out_int,in_string,in_int},
// String.{length,concat,substr}. Each follows the normal calling
// convention (prologue/epilogue) so dynamic dispatch from user code
// reaches them exactly as it would a user-defined override.
func (g *Generator) emitBuiltinMethods() {
	g.emitComment("built-in methods")

	g.emitLabel("_method_Object_abort")
	g.emitPrologue(0)
	g.emit("\tlw    $t0, 0($fp)") // self
	g.emit("\tlw    $t1, 0($t0)") // class tag
	g.emit("\tsll   $t1, $t1, 2")
	g.emit("\tlw    $t2, _class_name_table($t1)")
	g.emit("\tla    $a0, _msg_abort_prefix")
	g.emit("\tli    $v0, 4")
	g.emit("\tsyscall")
	g.emit("\taddiu $a0, $t2, 16")
	g.emit("\tli    $v0, 4")
	g.emit("\tsyscall")
	g.emit("\tla    $a0, _msg_newline")
	g.emit("\tli    $v0, 4")
	g.emit("\tsyscall")
	g.emit("\tli    $v0, 10")
	g.emit("\tsyscall")

	g.emitLabel("_method_Object_type_name")
	g.emitPrologue(0)
	g.emit("\tlw    $t0, 0($fp)")
	g.emit("\tlw    $t1, 0($t0)")
	g.emit("\tsll   $t1, $t1, 2")
	g.emit("\tlw    $a0, _class_name_table($t1)")
	g.emitEpilogue(0)

	g.emitLabel("_method_Object_copy")
	g.emitPrologue(0)
	g.emit("\tlw    $a0, 0($fp)")
	g.emit("\tjal   _Object_copy")
	g.emitEpilogue(0)

	g.emitLabel("_method_IO_out_string")
	g.emitPrologue(0)
	g.emitf("\tlw    $t0, %d($fp)", formalOffset(0))
	g.emit("\taddiu $a0, $t0, 16")
	g.emit("\tli    $v0, 4")
	g.emit("\tsyscall")
	g.emit("\tlw    $a0, 0($fp)")
	g.emitEpilogue(0)

	g.emitLabel("_method_IO_out_int")
	g.emitPrologue(0)
	g.emitf("\tlw    $t0, %d($fp)", formalOffset(0))
	g.emit("\tlw    $a0, 12($t0)")
	g.emit("\tli    $v0, 1")
	g.emit("\tsyscall")
	g.emit("\tlw    $a0, 0($fp)")
	g.emitEpilogue(0)

	g.emitLabel("_method_IO_in_string")
	g.emitPrologue(0)
	g.emit("\tla    $a0, _in_string_buf")
	g.emit("\tli    $a1, 1025")
	g.emit("\tli    $v0, 8")
	g.emit("\tsyscall")
	g.emit("\tla    $t0, _in_string_buf")
	g.emit("\tmove  $t1, $zero")
	g.emitLabel("_in_string_scan")
	g.emit("\tlb    $t2, 0($t0)")
	g.emit("\tbeqz  $t2, _in_string_scan_done")
	g.emit("\tli    $t3, 10")
	g.emit("\tbeq   $t2, $t3, _in_string_scan_done")
	g.emit("\taddiu $t0, $t0, 1")
	g.emit("\taddiu $t1, $t1, 1")
	g.emit("\tj     _in_string_scan")
	g.emitLabel("_in_string_scan_done")
	g.emit("\tla    $a0, _in_string_buf")
	g.emit("\tmove  $a1, $t1")
	g.emit("\tjal   _make_string")
	g.emitEpilogue(0)

	g.emitLabel("_method_IO_in_int")
	g.emitPrologue(0)
	g.emit("\tli    $v0, 5")
	g.emit("\tsyscall")
	g.emitBoxInt("$v0")
	g.emitEpilogue(0)

	g.emitLabel("_method_String_length")
	g.emitPrologue(0)
	g.emit("\tlw    $t0, 0($fp)")
	g.emit("\tlw    $t1, 12($t0)")
	g.emitBoxInt("$t1")
	g.emitEpilogue(0)

	g.emitStringConcat()
	g.emitStringSubstr()
	g.emit("")
}

// scratch layout for String.concat's frame: -4 self, -8 s, -12 total len,
// -16 new object. Every value is reloaded from these slots rather than
// trusted to survive the two _bytes_copy calls (see emitRuntimeHelpers).
func (g *Generator) emitStringConcat() {
	const scratch = 4
	g.emitLabel("_method_String_concat")
	g.emitPrologue(scratch)
	g.emit("\tlw    $t0, 0($fp)")
	g.emit("\tsw    $t0, -4($fp)")
	g.emitf("\tlw    $t1, %d($fp)", formalOffset(0))
	g.emit("\tsw    $t1, -8($fp)")
	g.emit("\tlw    $t2, 12($t0)")
	g.emit("\tlw    $t3, 12($t1)")
	g.emit("\tadd   $t4, $t2, $t3")
	g.emit("\tsw    $t4, -12($fp)")
	g.emit("\taddiu $t5, $t4, 1")
	g.emit("\taddiu $t5, $t5, 3")
	g.emit("\tsrl   $t5, $t5, 2")
	g.emit("\tsll   $t5, $t5, 2")
	g.emit("\taddiu $t6, $t5, 16")
	g.emit("\tmove  $a0, $t6")
	g.emit("\tli    $v0, 9")
	g.emit("\tsyscall")
	g.emit("\tmove  $t7, $v0")
	g.emit("\tsw    $t7, -16($fp)")
	g.emitf("\tli    $t8, %d", classTag(g.layout, "String"))
	g.emit("\tsw    $t8, 0($t7)")
	g.emit("\tsw    $t6, 4($t7)")
	g.emit("\tla    $t8, _dispTab_String")
	g.emit("\tsw    $t8, 8($t7)")
	g.emit("\tsw    $t4, 12($t7)")

	g.emit("\tlw    $t0, -4($fp)")
	g.emit("\tlw    $t9, -16($fp)")
	g.emit("\taddiu $a0, $t0, 16")
	g.emit("\taddiu $a1, $t9, 16")
	g.emit("\tlw    $a2, 12($t0)")
	g.emit("\tjal   _bytes_copy")

	g.emit("\tlw    $t1, -8($fp)")
	g.emit("\tlw    $t0, -4($fp)")
	g.emit("\tlw    $t9, -16($fp)")
	g.emit("\tlw    $t4, 12($t0)")
	g.emit("\taddiu $a0, $t1, 16")
	g.emit("\tadd   $a1, $t9, $t4")
	g.emit("\taddiu $a1, $a1, 16")
	g.emit("\tlw    $a2, 12($t1)")
	g.emit("\tjal   _bytes_copy")

	g.emit("\tlw    $t9, -16($fp)")
	g.emit("\tlw    $t4, -12($fp)")
	g.emit("\tadd   $t5, $t9, $t4")
	g.emit("\taddiu $t5, $t5, 16")
	g.emit("\tsb    $zero, 0($t5)")
	g.emit("\tlw    $a0, -16($fp)")
	g.emitEpilogue(scratch)
}

// substr(i, l): abort when the requested range falls outside [0, length],
// matching the open-question decision in DESIGN.md (out-of-range is a
// runtime abort, following pycoolc/codegen.py rather than guessing).
// Scratch: -4 self, -8 start i, -12 len l, -16 new object.
func (g *Generator) emitStringSubstr() {
	const scratch = 4
	g.emitLabel("_method_String_substr")
	g.emitPrologue(scratch)
	g.emit("\tlw    $t0, 0($fp)")
	g.emit("\tsw    $t0, -4($fp)")
	g.emitf("\tlw    $t1, %d($fp)", formalOffset(0))
	g.emit("\tlw    $t1, 12($t1)") // unbox i
	g.emit("\tsw    $t1, -8($fp)")
	g.emitf("\tlw    $t2, %d($fp)", formalOffset(1))
	g.emit("\tlw    $t2, 12($t2)") // unbox l
	g.emit("\tsw    $t2, -12($fp)")
	g.emit("\tlw    $t3, 12($t0)") // self length
	g.emit("\tbltz  $t1, _substr_bad")
	g.emit("\tbltz  $t2, _substr_bad")
	g.emit("\tadd   $t4, $t1, $t2")
	g.emit("\tbgt   $t4, $t3, _substr_bad")
	g.emit("\tb     _substr_ok")
	g.emitLabel("_substr_bad")
	g.emitAbort("substr_range")
	g.emitLabel("_substr_ok")

	g.emit("\tmove  $t4, $t2")
	g.emit("\taddiu $t5, $t4, 1")
	g.emit("\taddiu $t5, $t5, 3")
	g.emit("\tsrl   $t5, $t5, 2")
	g.emit("\tsll   $t5, $t5, 2")
	g.emit("\taddiu $t6, $t5, 16")
	g.emit("\tmove  $a0, $t6")
	g.emit("\tli    $v0, 9")
	g.emit("\tsyscall")
	g.emit("\tmove  $t7, $v0")
	g.emit("\tsw    $t7, -16($fp)")
	g.emitf("\tli    $t8, %d", classTag(g.layout, "String"))
	g.emit("\tsw    $t8, 0($t7)")
	g.emit("\tsw    $t6, 4($t7)")
	g.emit("\tla    $t8, _dispTab_String")
	g.emit("\tsw    $t8, 8($t7)")
	g.emit("\tsw    $t2, 12($t7)")

	g.emit("\tlw    $t0, -4($fp)")
	g.emit("\tlw    $t1, -8($fp)")
	g.emit("\tlw    $t9, -16($fp)")
	g.emit("\taddiu $a0, $t0, 16")
	g.emit("\tadd   $a0, $a0, $t1")
	g.emit("\taddiu $a1, $t9, 16")
	g.emit("\tlw    $a2, -12($fp)")
	g.emit("\tjal   _bytes_copy")

	g.emit("\tlw    $t9, -16($fp)")
	g.emit("\tlw    $t2, -12($fp)")
	g.emit("\tadd   $t5, $t9, $t2")
	g.emit("\taddiu $t5, $t5, 16")
	g.emit("\tsb    $zero, 0($t5)")
	g.emit("\tlw    $a0, -16($fp)")
	g.emitEpilogue(scratch)
}
