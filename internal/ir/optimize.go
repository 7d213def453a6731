package ir

import "strings"

// Optimize runs constant propagation, dead-code elimination, and jump
// threading over every method's CFG, repeating until nothing changes or
// three rounds have run — the cap spec §4.4 puts on global optimization
// rounds, mirrored here directly rather than iterating to an unbounded
// fixed point.
func Optimize(prog *Program) *Program {
	for _, m := range prog.Methods {
		m.Instrs = optimizeMethod(m.Instrs)
	}
	return prog
}

func optimizeMethod(instrs []Instruction) []Instruction {
	for round := 0; round < 3; round++ {
		before := flattenedText(instrs)

		g := BuildCFG(instrs)
		g = FoldConstants(g)
		g = EliminateDeadCode(g)
		g = ThreadJumps(g)
		instrs = g.Flatten()

		if flattenedText(instrs) == before {
			break
		}
	}
	return instrs
}

func flattenedText(instrs []Instruction) string {
	var b strings.Builder
	for _, i := range instrs {
		b.WriteString(i.String())
		b.WriteByte('\n')
	}
	return b.String()
}
