package ir

import (
	"sort"
	"strings"
)

// VarSet is a set of live variable/temporary names, canonically encoded as
// a sorted comma-joined string so it satisfies Analysis's comparable type
// parameter. Grounded on pycoolc/optimization/liveness.py's use of Python
// frozenset (itself hashable/comparable) for the same purpose.
type VarSet string

func newVarSet(names ...string) VarSet {
	return encodeVarSet(names)
}

func encodeVarSet(names []string) VarSet {
	seen := map[string]bool{}
	var uniq []string
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		uniq = append(uniq, n)
	}
	sort.Strings(uniq)
	return VarSet(strings.Join(uniq, ","))
}

func (s VarSet) members() []string {
	if s == "" {
		return nil
	}
	return strings.Split(string(s), ",")
}

func (s VarSet) contains(name string) bool {
	for _, m := range s.members() {
		if m == name {
			return true
		}
	}
	return false
}

func (s VarSet) union(other VarSet) VarSet {
	return encodeVarSet(append(append([]string{}, s.members()...), other.members()...))
}

func (s VarSet) add(name string) VarSet {
	return s.union(newVarSet(name))
}

func (s VarSet) remove(name string) VarSet {
	var out []string
	for _, m := range s.members() {
		if m != name {
			out = append(out, m)
		}
	}
	return encodeVarSet(out)
}

// Liveness is the backward dataflow analysis computing, at every program
// point, the set of variables that may be read before their next write.
// Grounded on pycoolc/optimization/liveness.py's LivenessAnalysis:
// Transfer kills the instruction's destination then adds its operand uses.
type Liveness struct{}

func (Liveness) Direction() Direction { return Backward }
func (Liveness) Initial() VarSet      { return VarSet("") }
func (Liveness) Boundary() VarSet     { return VarSet("") }

func (Liveness) Meet(values []VarSet) VarSet {
	out := VarSet("")
	for _, v := range values {
		out = out.union(v)
	}
	return out
}

func (Liveness) Transfer(out VarSet, instr Instruction) VarSet {
	in := out
	if dst, ok := instrDst(instr); ok {
		if key := operandKey(dst); key != "" {
			in = in.remove(key)
		}
	}
	for _, use := range instrUses(instr) {
		if key := operandKey(use); key != "" {
			in = in.add(key)
		}
	}
	return in
}

// instrUses returns every operand an instruction reads (not writes).
func instrUses(instr Instruction) []Operand {
	switch i := instr.(type) {
	case Copy:
		return []Operand{i.Src}
	case BinaryOp:
		return []Operand{i.Lhs, i.Rhs}
	case UnaryOp:
		return []Operand{i.Src}
	case GetAttr:
		return []Operand{i.Recv}
	case SetAttr:
		return []Operand{i.Recv, i.Val}
	case CondJumpNot:
		return []Operand{i.Cond}
	case Param:
		return []Operand{i.Val}
	case Dispatch:
		return []Operand{i.Recv}
	case StaticDispatch:
		return []Operand{i.Recv}
	case IsVoid:
		return []Operand{i.Src}
	case Return:
		return []Operand{i.Val}
	case CaseBranchIfNot:
		return []Operand{i.Src}
	case AbortIf:
		return []Operand{i.Cond}
	}
	return nil
}

// hasSideEffect reports whether an instruction must be kept even if its
// destination is dead: attribute writes, dispatches (which may run
// arbitrary code, including abort), control flow, and Return.
func hasSideEffect(instr Instruction) bool {
	switch instr.(type) {
	case SetAttr, Dispatch, StaticDispatch, New, Jump, CondJumpNot, LabelInstr, Return, Param, Comment,
		CaseBranchIfNot, AbortIf, Abort:
		return true
	}
	return false
}

// EliminateDeadCode runs Liveness to a fixed point over g and deletes every
// instruction whose destination is not in its BlockOut-derived live set and
// that has no side effect, grounded on liveness.py's companion
// DeadCodeElimination pass.
func EliminateDeadCode(g *CFG) *CFG {
	res := Analyze[VarSet](g, Liveness{})
	for _, b := range g.Blocks {
		live := res.BlockOut[b.ID]
		kept := make([]Instruction, 0, len(b.Instrs))
		for idx := len(b.Instrs) - 1; idx >= 0; idx-- {
			instr := b.Instrs[idx]
			dst, hasDst := instrDst(instr)
			if hasDst && !hasSideEffect(instr) {
				key := operandKey(dst)
				if key != "" && !live.contains(key) {
					continue // dead: drop, do not propagate its uses backward
				}
			}
			live = Liveness{}.Transfer(live, instr)
			kept = append(kept, instr)
		}
		for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
			kept[i], kept[j] = kept[j], kept[i]
		}
		b.Instrs = kept
	}
	return g
}
