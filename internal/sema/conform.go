package sema

import "coolc/internal/ast"

// resolveSelf turns SELF_TYPE into the enclosing class's actual name for
// any lookup that needs a concrete class (spec §3: "SELF_TYPE_C resolved
// contextually").
func resolveSelf(t string, selfClass string) string {
	if t == ast.SelfType {
		return selfClass
	}
	return t
}

// Conforms reports whether sub <= super in the context of selfClass, per
// spec §3's subtyping rules: T<=T; T<=parent(T) transitively;
// SELF_TYPE_C<=SELF_TYPE_C; SELF_TYPE_C<=T iff C<=T; T<=SELF_TYPE_* only if
// T==SELF_TYPE_*.
func (t *ClassTable) Conforms(sub, super string, selfClass string) bool {
	if super == ast.SelfType {
		return sub == ast.SelfType
	}
	if sub == ast.SelfType {
		sub = selfClass
	}
	for cur := t.Lookup(sub); cur != nil; cur = cur.Parent {
		if cur.Decl.Name == super {
			return true
		}
	}
	return false
}

// LUB computes lub_C(a, b): resolve SELF_TYPE to selfClass in both operands,
// then find their nearest common ancestor by walking each to the root and
// comparing ancestor sets (spec §3).
func (t *ClassTable) LUB(a, b string, selfClass string) string {
	a, b = resolveSelf(a, selfClass), resolveSelf(b, selfClass)
	if a == b {
		return a
	}
	ancestorsOfA := map[string]bool{}
	for cur := t.Lookup(a); cur != nil; cur = cur.Parent {
		ancestorsOfA[cur.Decl.Name] = true
	}
	for cur := t.Lookup(b); cur != nil; cur = cur.Parent {
		if ancestorsOfA[cur.Decl.Name] {
			return cur.Decl.Name
		}
	}
	return "Object"
}
