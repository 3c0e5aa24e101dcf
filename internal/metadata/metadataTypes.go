package metadata

import (
	"fmt"
	"strings"
)

// Full names the runtime reports for well known types.
const (
	VoidTypeName      = "System.Void"
	StringTypeName    = "System.String"
	ObjectTypeName    = "System.Object"
	ValueTypeName     = "System.ValueType"
	EnumTypeName      = "System.Enum"
	ManagedObjectName = "via.clr.ManagedObject"
)

type TypeKind int

const (
	KindReference TypeKind = iota
	KindValue
	KindEnum
)

func (k TypeKind) String() string {
	switch k {
	case KindReference:
		return "reference"
	case KindValue:
		return "value"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// The runtime's classification of a managed object.
type ObjKind int

const (
	ObjObject ObjKind = iota
	ObjArray
	ObjString
	ObjUnknown
)

func (k ObjKind) String() string {
	switch k {
	case ObjObject:
		return "object"
	case ObjArray:
		return "array"
	case ObjString:
		return "string"
	default:
		return "unknown"
	}
}

// A type described by the foreign runtime. Types are immutable once a provider has built them.
//
// Methods and Fields hold the type's own members first, followed by every inherited member.
// Consumers detect the boundary by comparing DeclaringType against the type itself.
type Type struct {
	FullName      string
	Namespace     string
	Index         uint32
	Kind          TypeKind
	Primitive     bool
	ObjKind       ObjKind
	Size          uint32
	Parent        *Type
	DeclaringType *Type
	Methods       []*Method
	Fields        []*Field
}

func (t *Type) IsValueType() bool { return t != nil && (t.Kind == KindValue || t.Kind == KindEnum) }
func (t *Type) IsEnum() bool      { return t != nil && t.Kind == KindEnum }
func (t *Type) IsVoid() bool      { return t != nil && t.FullName == VoidTypeName }

// The simple name of the type, without namespace or enclosing types.
func (t *Type) Name() string {
	name := t.FullName
	if t.DeclaringType != nil {
		name = strings.TrimPrefix(name, t.DeclaringType.FullName)
		name = strings.TrimLeft(name, ".+/")
	} else if t.Namespace != "" {
		name = strings.TrimPrefix(name, t.Namespace+".")
	}
	return name
}

// The outermost enclosing type.
func (t *Type) Root() *Type {
	root := t
	for root.DeclaringType != nil {
		root = root.DeclaringType
	}
	return root
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.FullName
}

type Method struct {
	Name          string
	Index         uint32
	ReturnType    *Type
	Params        []Parameter
	Static        bool
	DeclaringType *Type

	// Override extension data. HasExtension is false when the provider has none for this method.
	HasExtension    bool
	Override        bool
	MatchingParents []*Method

	// Runtime parameter facts. NoRuntime marks methods the runtime cannot introspect.
	NoRuntime bool
}

// The lookup signature understood by the runtime, e.g. "Add(System.Int32, System.Single)".
func (m *Method) Signature() string {
	names := make([]string, 0, len(m.Params))
	for _, param := range m.Params {
		names = append(names, param.Type.String())
	}
	return fmt.Sprintf("%s(%s)", m.Name, strings.Join(names, ", "))
}

type Field struct {
	Name          string
	Index         uint32
	Type          *Type
	Static        bool
	Offset        uint32
	DeclaringType *Type
	Constant      *int64
}

// Facts the runtime reports about a single method parameter.
type Parameter struct {
	Name    string
	Type    *Type
	ByRef   bool
	Pointer bool
	Out     bool
}

// Override information for a method.
type Extension struct {
	Override        bool
	MatchingParents []*Method
}

// The typed query surface the synthesizer consumes.
type Provider interface {
	Types() []*Type
	FindType(fullName string) *Type
	RuntimeParameters(method *Method) ([]Parameter, bool)
	MethodExtension(method *Method) (Extension, bool)
	NestedTypes(t *Type) []*Type
	ArrayTypes(t *Type) []*Type
}
