// Package decl holds the proxy declaration tree produced by the synthesizer and consumed by
// printers. Values in this package are treated as immutable: builders return extended copies.
package decl

import (
	"fmt"
	"slices"
	"strings"
)

// A target type expression.
type TypeExpr struct {
	// Built-in type keyword (int32, string, any, ...). Empty for references to proxies.
	Builtin string
	// Namespace of the referenced proxy. Printers map it to a package.
	Namespace string
	// Flattened proxy identifier.
	Name string
}

var Opaque = TypeExpr{Builtin: "any"}

func Builtin(keyword string) TypeExpr { return TypeExpr{Builtin: keyword} }

func Ref(namespace string, name string) TypeExpr {
	return TypeExpr{Namespace: namespace, Name: name}
}

func (t TypeExpr) IsOpaque() bool  { return t.Builtin == Opaque.Builtin }
func (t TypeExpr) IsBuiltin() bool { return t.Builtin != "" }

// The textual form used inside overload signature keys.
func (t TypeExpr) String() string {
	if t.Builtin != "" {
		return t.Builtin
	}
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

type Shape int

const (
	ShapeInterface Shape = iota
	ShapeRecord
	ShapeEnum
)

func (s Shape) String() string {
	switch s {
	case ShapeInterface:
		return "interface"
	case ShapeRecord:
		return "record"
	case ShapeEnum:
		return "enum"
	default:
		return "unknown"
	}
}

type PassMode int

const (
	PassValue PassMode = iota
	PassRef
	PassOut
	PassPointer
)

func (m PassMode) String() string {
	switch m {
	case PassValue:
		return "value"
	case PassRef:
		return "ref"
	case PassOut:
		return "out"
	case PassPointer:
		return "ptr"
	default:
		return "unknown"
	}
}

// Parameter names of property accessors.
const (
	IndexParam = "index"
	ValueParam = "value"
)

type Param struct {
	Name string
	Type TypeExpr
	Mode PassMode
}

// Which side of a field a property accessor stands in for.
type FacadeKind int

const (
	FacadeNone FacadeKind = iota
	FacadeGetter
	FacadeSetter
)

func (f FacadeKind) String() string {
	switch f {
	case FacadeGetter:
		return "getter"
	case FacadeSetter:
		return "setter"
	default:
		return "none"
	}
}

type Member interface {
	MemberName() string
	isMember()
}

type Method struct {
	Name string
	// Back-reference into the foreign method table.
	Index    uint32
	Params   []Param
	Result   *TypeExpr
	Static   bool
	Shadow   bool
	Unsafe   bool
	Operator string
	// Nil for declaration-only members.
	Body Body
}

type Accessor struct {
	Index  uint32
	Facade FacadeKind
	Body   Body
}

type Property struct {
	Name      string
	Type      TypeExpr
	Indexer   bool
	IndexType TypeExpr
	Getter    *Accessor
	Setter    *Accessor
	Static    bool
	Shadow    bool
}

// A value-type field placed at an explicit byte offset.
type Field struct {
	Name   string
	Index  uint32
	Type   TypeExpr
	Offset uint32
	// Inline byte size, zero when unknown.
	Size uint32
	// The slot holds a tracked object reference rather than the value itself.
	Ref bool
}

func (m *Method) MemberName() string   { return m.Name }
func (p *Property) MemberName() string { return p.Name }
func (f *Field) MemberName() string    { return f.Name }

func (*Method) isMember()   {}
func (*Property) isMember() {}
func (*Field) isMember()    {}

type HandleKind int

const (
	HandleMethod HandleKind = iota
	HandleField
)

// A lazily resolved, cached lookup of a foreign member.
type Handle struct {
	Name  string
	Kind  HandleKind
	Index uint32
	// Method signature or field name passed to the runtime lookup.
	Lookup string
}

type EnumValue struct {
	Name  string
	Value int64
}

type Enum struct {
	Underlying TypeExpr
	Values     []EnumValue
}

type Type struct {
	Name      string
	FullName  string
	Namespace string
	Shape     Shape
	// The type's own runtime handle is always bound through FullName.
	Bases   []TypeExpr
	Members []Member
	Handles []Handle
	Nested  []*Type
	// The parent proxy declares a nested type with the same name.
	Hides bool
	// Byte size of a record, zero when unknown.
	Size uint32
	Enum *Enum
}

// Appends members, returning a new declaration that shares nothing mutable with t.
func (t Type) AddMembers(members ...Member) Type {
	t.Members = append(slices.Clip(t.Members), members...)
	return t
}

func (t Type) AddHandles(handles ...Handle) Type {
	t.Handles = append(slices.Clip(t.Handles), handles...)
	return t
}

func (t Type) AddNested(nested ...*Type) Type {
	t.Nested = append(slices.Clip(t.Nested), nested...)
	return t
}

func (t Type) AddBases(bases ...TypeExpr) Type {
	t.Bases = append(slices.Clip(t.Bases), bases...)
	return t
}

func (t *Type) Methods() []*Method      { return membersOf[*Method](t) }
func (t *Type) Properties() []*Property { return membersOf[*Property](t) }
func (t *Type) Fields() []*Field        { return membersOf[*Field](t) }

func membersOf[M Member](t *Type) []M {
	var out []M
	for _, member := range t.Members {
		if typed, ok := member.(M); ok {
			out = append(out, typed)
		}
	}
	return out
}

// Finds a nested declaration by simple name.
func (t *Type) FindNested(name string) *Type {
	for _, nested := range t.Nested {
		if nested.Name == name {
			return nested
		}
	}
	return nil
}

// Renders a human readable outline, one member per line. Used in diagnostics and tests.
func (t *Type) Outline() string {
	var sb strings.Builder
	t.outline(&sb, "")
	return sb.String()
}

func (t *Type) outline(sb *strings.Builder, indent string) {
	sb.WriteString(indent + t.Shape.String() + " " + t.Name)
	for _, base := range t.Bases {
		sb.WriteString(" : " + base.String())
	}
	sb.WriteString("\n")
	for _, member := range t.Members {
		sb.WriteString(indent + "  " + describe(member) + "\n")
	}
	for _, nested := range t.Nested {
		nested.outline(sb, indent+"  ")
	}
}

func describe(member Member) string {
	var parts []string
	switch m := member.(type) {
	case *Method:
		if m.Static {
			parts = append(parts, "static")
		}
		if m.Shadow {
			parts = append(parts, "shadow")
		}
		params := make([]string, 0, len(m.Params))
		for _, param := range m.Params {
			text := param.Type.String()
			if param.Mode != PassValue {
				text = param.Mode.String() + " " + text
			}
			params = append(params, text)
		}
		result := "void"
		if m.Result != nil {
			result = m.Result.String()
		}
		parts = append(parts, "func "+m.Name+"("+strings.Join(params, ", ")+") "+result)
	case *Property:
		if m.Static {
			parts = append(parts, "static")
		}
		if m.Shadow {
			parts = append(parts, "shadow")
		}
		text := "prop " + m.Name
		if m.Indexer {
			text += "[" + m.IndexType.String() + "]"
		}
		text += " " + m.Type.String()
		if m.Getter != nil {
			text += " get"
		}
		if m.Setter != nil {
			text += " set"
		}
		parts = append(parts, text)
	case *Field:
		parts = append(parts, fmt.Sprintf("field %s %s @%d", m.Name, m.Type.String(), m.Offset))
	}
	return strings.Join(parts, " ")
}
