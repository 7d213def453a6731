package ir

// ThreadJumps simplifies g's control flow by collapsing jump-to-jump chains
// (a block that is nothing but `goto L` gets skipped by anyone jumping to
// it) and dropping blocks no longer reachable from Entry afterward.
//
// No file in the retrieved pycoolc IR/optimization sources implements this
// pass directly (cfg.py only builds edges and dominance sets), so the
// rewrite rule is grounded on cfg.py's own edge-connection logic in
// _connect_blocks/BuildCFG: a block's outgoing edges are fully determined
// by its last instruction, so rewriting that instruction's target and
// re-running the same leader/edge algorithm is sufficient to re-thread the
// graph.
func ThreadJumps(g *CFG) *CFG {
	if g.Entry == nil {
		return g
	}

	redirect := map[string]string{}
	for _, b := range g.Blocks {
		if target, ok := trivialJumpTarget(b); ok {
			redirect[b.labelName()] = target
		}
	}

	resolve := func(name string) string {
		seen := map[string]bool{}
		for {
			next, ok := redirect[name]
			if !ok || seen[next] || next == name {
				return name
			}
			seen[name] = true
			name = next
		}
	}

	instrs := g.Flatten()
	rewritten := make([]Instruction, len(instrs))
	for i, instr := range instrs {
		switch j := instr.(type) {
		case Jump:
			rewritten[i] = Jump{Target: Label{Name: resolve(j.Target.Name)}}
		case CondJumpNot:
			rewritten[i] = CondJumpNot{Cond: j.Cond, Target: Label{Name: resolve(j.Target.Name)}}
		default:
			rewritten[i] = instr
		}
	}

	threaded := BuildCFG(rewritten)
	pruneUnreachable(threaded)
	return threaded
}

// trivialJumpTarget reports whether b is nothing but an (optional) label
// followed by a single unconditional Jump, and if so, what label it jumps to.
func trivialJumpTarget(b *BasicBlock) (string, bool) {
	instrs := b.Instrs
	if len(instrs) > 0 {
		if _, ok := instrs[0].(LabelInstr); ok {
			instrs = instrs[1:]
		}
	}
	if len(instrs) != 1 {
		return "", false
	}
	j, ok := instrs[0].(Jump)
	if !ok {
		return "", false
	}
	return j.Target.Name, true
}

func (b *BasicBlock) labelName() string {
	if b.Label == nil {
		return ""
	}
	return b.Label.Name
}

// pruneUnreachable drops every block not visited by a traversal from Entry,
// then rebuilds the CFG's block list and ID-ordered Flatten invariant by
// re-running BuildCFG over the surviving instructions.
func pruneUnreachable(g *CFG) {
	reachable := map[int]bool{}
	var visit func(b *BasicBlock)
	visit = func(b *BasicBlock) {
		if reachable[b.ID] {
			return
		}
		reachable[b.ID] = true
		for _, s := range b.Succs {
			visit(s)
		}
	}
	visit(g.Entry)

	if len(reachable) == len(g.Blocks) {
		return
	}

	var kept []Instruction
	for _, b := range g.Blocks {
		if reachable[b.ID] {
			kept = append(kept, b.Instrs...)
		}
	}
	rebuilt := BuildCFG(kept)
	g.Blocks = rebuilt.Blocks
	g.Entry = rebuilt.Entry
}
