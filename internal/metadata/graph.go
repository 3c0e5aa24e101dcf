package metadata

import "fmt"

// An in-memory Provider. Loaders populate it with AddType and the Set* helpers and call Seal
// once every type and its own members are known.
type Graph struct {
	types  []*Type
	byName map[string]*Type
	nested map[*Type][]*Type
	arrays map[*Type][]*Type
	own    map[*Type]ownMembers
	sealed bool
}

type ownMembers struct {
	methods []*Method
	fields  []*Field
}

func NewGraph() *Graph {
	return &Graph{
		byName: make(map[string]*Type),
		nested: make(map[*Type][]*Type),
		arrays: make(map[*Type][]*Type),
		own:    make(map[*Type]ownMembers),
	}
}

// Registers a type. Own methods and fields are given separately so that Seal can append
// inherited members after them.
func (g *Graph) AddType(t *Type, methods []*Method, fields []*Field) error {
	if g.sealed {
		return fmt.Errorf("graph is sealed, cannot add type '%s'", t.FullName)
	}
	if _, found := g.byName[t.FullName]; found {
		return fmt.Errorf("duplicate type '%s'", t.FullName)
	}

	for _, method := range methods {
		method.DeclaringType = t
	}
	for _, field := range fields {
		field.DeclaringType = t
	}

	g.types = append(g.types, t)
	g.byName[t.FullName] = t
	g.own[t] = ownMembers{methods, fields}
	return nil
}

func (g *Graph) AddNested(parent *Type, child *Type) {
	child.DeclaringType = parent
	g.nested[parent] = append(g.nested[parent], child)
}

func (g *Graph) AddArray(element *Type, array *Type) {
	array.ObjKind = ObjArray
	g.arrays[element] = append(g.arrays[element], array)
}

// Lays out every type's member lists as own members followed by inherited ones.
func (g *Graph) Seal() error {
	for _, t := range g.types {
		seen := map[*Type]bool{}
		methods := []*Method{}
		fields := []*Field{}
		for current := t; current != nil; current = current.Parent {
			if seen[current] {
				return fmt.Errorf("inheritance cycle through '%s'", current.FullName)
			}
			seen[current] = true
			members := g.own[current]
			methods = append(methods, members.methods...)
			fields = append(fields, members.fields...)
		}
		t.Methods = methods
		t.Fields = fields
	}

	g.sealed = true
	return nil
}

func (g *Graph) Types() []*Type { return g.types }

func (g *Graph) FindType(fullName string) *Type { return g.byName[fullName] }

func (g *Graph) RuntimeParameters(method *Method) ([]Parameter, bool) {
	if method == nil || method.NoRuntime {
		return nil, false
	}
	return method.Params, true
}

func (g *Graph) MethodExtension(method *Method) (Extension, bool) {
	if method == nil || !method.HasExtension {
		return Extension{}, false
	}
	return Extension{Override: method.Override, MatchingParents: method.MatchingParents}, true
}

func (g *Graph) NestedTypes(t *Type) []*Type { return g.nested[t] }

func (g *Graph) ArrayTypes(t *Type) []*Type { return g.arrays[t] }
