package sema

import (
	"sort"

	"coolc/internal/ast"
	"coolc/internal/diag"
)

// BuildFeatureTables runs spec §4.3 pass 3: for every class, collect
// inherited plus own attributes and methods. Processes classes in
// increasing depth order so a parent's table is always complete before its
// children inherit from it.
func BuildFeatureTables(t *ClassTable, sink *diag.Sink) {
	order := make([]*ClassInfo, 0, len(t.classes))
	for _, ci := range t.classes {
		order = append(order, ci)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Decl.Depth < order[j].Decl.Depth })

	for _, ci := range order {
		if ci.Attrs != nil {
			continue // built-ins are pre-populated by declareBuiltins
		}
		buildOneFeatureTable(ci, sink)
	}

	if main := t.Lookup("Main"); main != nil {
		if _, ok := main.Methods["main"]; !ok {
			sink.Add(diag.Sema, "SEMA_NO_MAIN_METHOD", diag.Span{}, "class Main has no main() method")
		} else if len(main.Methods["main"].Formals) != 0 {
			sink.Add(diag.Sema, "SEMA_MAIN_TAKES_ARGS", diag.Span{}, "Main.main must take no arguments")
		}
	}
}

func buildOneFeatureTable(ci *ClassInfo, sink *diag.Sink) {
	ci.Attrs = map[string]*ast.Attribute{}
	ci.Methods = map[string]*MethodSig{}
	if ci.Parent != nil {
		for k, v := range ci.Parent.Attrs {
			ci.Attrs[k] = v
		}
		for k, v := range ci.Parent.Methods {
			ci.Methods[k] = v
		}
	}

	for _, f := range ci.Decl.Features {
		switch feat := f.(type) {
		case *ast.Attribute:
			if feat.Name == ast.Self {
				sink.Add(diag.Sema, "SEMA_SELF_ATTR", feat.Span(), "attribute cannot be named 'self'")
				continue
			}
			if _, inherited := ci.Attrs[feat.Name]; inherited {
				if declaredInThisClass(ci.Decl, feat.Name) {
					sink.Add(diag.Sema, "SEMA_DUP_ATTR", feat.Span(), "attribute %s is already declared in this class", feat.Name)
				} else {
					sink.Add(diag.Sema, "SEMA_REDEFINE_ATTR", feat.Span(), "attribute %s redefines an inherited attribute", feat.Name)
				}
				continue
			}
			ci.Attrs[feat.Name] = feat
		case *ast.Method:
			prev, inherited := ci.Methods[feat.Name]
			if inherited && prev.Decl != nil && prev.DeclClass != ci.Decl.Name {
				if !sameSignature(prev, feat) {
					sink.Add(diag.Sema, "SEMA_BAD_OVERRIDE", feat.Span(), "method %s overrides %s.%s with a different signature", feat.Name, prev.DeclClass, feat.Name)
				}
			} else if inherited && prev.DeclClass == ci.Decl.Name {
				sink.Add(diag.Sema, "SEMA_DUP_METHOD", feat.Span(), "method %s is already declared in this class", feat.Name)
				continue
			}
			ci.Methods[feat.Name] = &MethodSig{DeclClass: ci.Decl.Name, Formals: feat.Formals, RetType: feat.RetType, Decl: feat}
		}
	}
}

func declaredInThisClass(cls *ast.Class, name string) bool {
	for _, f := range cls.Features {
		if a, ok := f.(*ast.Attribute); ok && a.Name == name {
			return true
		}
	}
	return false
}

func sameSignature(prev *MethodSig, m *ast.Method) bool {
	if prev.RetType != m.RetType || len(prev.Formals) != len(m.Formals) {
		return false
	}
	for i, f := range m.Formals {
		if prev.Formals[i].Type != f.Type {
			return false
		}
	}
	return true
}
