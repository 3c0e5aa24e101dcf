package metadata

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/hashicorp/go-version"
)

// The range of dump format versions this reader understands.
const supportedDumpVersions = ">= 1.0, < 2.0"

type dumpFile struct {
	Version string     `json:"version"`
	Types   []dumpType `json:"types"`
}

type dumpType struct {
	Name          string       `json:"name"`
	Namespace     *string      `json:"namespace,omitempty"`
	Index         uint32       `json:"index"`
	Kind          string       `json:"kind"`
	Primitive     bool         `json:"primitive,omitempty"`
	ObjectKind    string       `json:"objectKind,omitempty"`
	Size          uint32       `json:"size,omitempty"`
	Parent        string       `json:"parent,omitempty"`
	DeclaringType string       `json:"declaringType,omitempty"`
	ElementType   string       `json:"elementType,omitempty"`
	Methods       []dumpMethod `json:"methods,omitempty"`
	Fields        []dumpField  `json:"fields,omitempty"`
}

type dumpMethod struct {
	Name      string      `json:"name"`
	Index     uint32      `json:"index"`
	Returns   string      `json:"returns"`
	Static    bool        `json:"static,omitempty"`
	Override  *bool       `json:"override,omitempty"`
	Overrides []uint32    `json:"overrides,omitempty"`
	NoRuntime bool        `json:"noRuntime,omitempty"`
	Params    []dumpParam `json:"params,omitempty"`
}

type dumpParam struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	ByRef   bool   `json:"byRef,omitempty"`
	Pointer bool   `json:"pointer,omitempty"`
	Out     bool   `json:"out,omitempty"`
}

type dumpField struct {
	Name   string `json:"name"`
	Index  uint32 `json:"index"`
	Type   string `json:"type"`
	Static bool   `json:"static,omitempty"`
	Offset uint32 `json:"offset,omitempty"`
	Value  *int64 `json:"value,omitempty"`
}

// Primitive runtime types that a dump may reference without describing.
var builtInTypeKinds map[string]TypeKind = map[string]TypeKind{
	"System.Boolean": KindValue,
	"System.Char":    KindValue,
	"System.SByte":   KindValue,
	"System.Byte":    KindValue,
	"System.Int16":   KindValue,
	"System.UInt16":  KindValue,
	"System.Int32":   KindValue,
	"System.UInt32":  KindValue,
	"System.Int64":   KindValue,
	"System.UInt64":  KindValue,
	"System.Single":  KindValue,
	"System.Double":  KindValue,
	"System.IntPtr":  KindValue,
	"System.UIntPtr": KindValue,
}

// Reads a JSON metadata dump from disk.
func LoadDump(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata dump: %w", err)
	}
	return ParseDump(data)
}

// Builds a Graph from the bytes of a JSON metadata dump.
func ParseDump(data []byte) (*Graph, error) {
	var file dumpFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decoding metadata dump: %w", err)
	}

	if err := checkDumpVersion(file.Version); err != nil {
		return nil, err
	}

	loader := dumpLoader{
		graph:   NewGraph(),
		types:   make(map[string]*Type, len(file.Types)),
		methods: make(map[uint32]*Method),
	}
	return loader.load(file.Types)
}

func checkDumpVersion(raw string) error {
	if raw == "" {
		return fmt.Errorf("metadata dump has no format version")
	}
	dumpVersion, err := version.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("parsing dump format version '%s': %w", raw, err)
	}
	constraints, err := version.NewConstraint(supportedDumpVersions)
	if err != nil {
		return fmt.Errorf("parsing supported dump versions: %w", err)
	}
	if !constraints.Check(dumpVersion) {
		return fmt.Errorf("unsupported dump format version %s (want %s)", dumpVersion, supportedDumpVersions)
	}
	return nil
}

type dumpLoader struct {
	graph   *Graph
	types   map[string]*Type
	methods map[uint32]*Method
	stubs   []*Type
}

func (loader *dumpLoader) load(records []dumpType) (*Graph, error) {
	for _, record := range records {
		if record.Name == "" {
			return nil, fmt.Errorf("type record %d has no name", record.Index)
		}
		if _, found := loader.types[record.Name]; found {
			return nil, fmt.Errorf("duplicate type '%s'", record.Name)
		}
		kind, err := parseKind(record.Kind)
		if err != nil {
			return nil, fmt.Errorf("type '%s': %w", record.Name, err)
		}
		loader.types[record.Name] = &Type{
			FullName:  record.Name,
			Index:     record.Index,
			Kind:      kind,
			Primitive: record.Primitive,
			ObjKind:   parseObjKind(record.ObjectKind, record.Name),
			Size:      record.Size,
		}
	}

	type pending struct {
		t       *Type
		methods []*Method
		fields  []*Field
		record  dumpType
	}
	all := make([]pending, 0, len(records))

	for _, record := range records {
		t := loader.types[record.Name]
		if record.Parent != "" {
			t.Parent = loader.lookup(record.Parent)
		}
		if record.DeclaringType != "" {
			t.DeclaringType = loader.types[record.DeclaringType]
			if t.DeclaringType == nil {
				return nil, fmt.Errorf("type '%s' is nested in unknown type '%s'", record.Name, record.DeclaringType)
			}
		}

		methods := make([]*Method, 0, len(record.Methods))
		for _, m := range record.Methods {
			method := loader.method(m)
			methods = append(methods, method)
			loader.methods[method.Index] = method
		}

		fields := make([]*Field, 0, len(record.Fields))
		for _, f := range record.Fields {
			fields = append(fields, &Field{
				Name:     f.Name,
				Index:    f.Index,
				Type:     loader.lookup(f.Type),
				Static:   f.Static,
				Offset:   f.Offset,
				Constant: f.Value,
			})
		}

		all = append(all, pending{t, methods, fields, record})
	}

	// Nested types take their namespace from the outermost type, so roots go first.
	for _, p := range all {
		if p.t.DeclaringType == nil {
			p.t.Namespace = namespaceOf(p.t, p.record.Namespace)
		}
	}
	for _, p := range all {
		if p.t.DeclaringType != nil {
			p.t.Namespace = namespaceOf(p.t, p.record.Namespace)
		}
	}

	for _, p := range all {
		if err := loader.graph.AddType(p.t, p.methods, p.fields); err != nil {
			return nil, err
		}
		if p.t.DeclaringType != nil {
			loader.graph.AddNested(p.t.DeclaringType, p.t)
		}
		if p.record.ElementType != "" {
			element := loader.types[p.record.ElementType]
			if element == nil {
				return nil, fmt.Errorf("array type '%s' has unknown element type '%s'", p.t.FullName, p.record.ElementType)
			}
			loader.graph.AddArray(element, p.t)
		}
	}

	for _, stub := range loader.stubs {
		stub.Namespace = namespaceOf(stub, nil)
		if err := loader.graph.AddType(stub, nil, nil); err != nil {
			return nil, err
		}
	}

	if err := loader.resolveOverrides(records); err != nil {
		return nil, err
	}

	if err := loader.graph.Seal(); err != nil {
		return nil, err
	}
	return loader.graph, nil
}

func (loader *dumpLoader) method(m dumpMethod) *Method {
	method := &Method{
		Name:       m.Name,
		Index:      m.Index,
		ReturnType: loader.lookup(m.Returns),
		Static:     m.Static,
		NoRuntime:  m.NoRuntime,
	}
	if m.Override != nil {
		method.HasExtension = true
		method.Override = *m.Override
	}
	for _, p := range m.Params {
		method.Params = append(method.Params, Parameter{
			Name:    p.Name,
			Type:    loader.lookup(p.Type),
			ByRef:   p.ByRef,
			Pointer: p.Pointer,
			Out:     p.Out,
		})
	}
	return method
}

func (loader *dumpLoader) resolveOverrides(records []dumpType) error {
	for _, record := range records {
		for _, m := range record.Methods {
			method := loader.methods[m.Index]
			for _, index := range m.Overrides {
				parentMethod, found := loader.methods[index]
				if !found {
					return fmt.Errorf("method '%s::%s' overrides unknown method %d", record.Name, m.Name, index)
				}
				method.MatchingParents = append(method.MatchingParents, parentMethod)
			}
		}
	}
	return nil
}

// Returns the named type, creating a member-less stub for types the dump references but does
// not describe. An empty name yields nil.
func (loader *dumpLoader) lookup(name string) *Type {
	if name == "" {
		return nil
	}
	if t, found := loader.types[name]; found {
		return t
	}

	stub := &Type{FullName: name, Kind: KindReference, ObjKind: parseObjKind("", name)}
	if kind, found := builtInTypeKinds[name]; found {
		stub.Kind = kind
		stub.Primitive = true
	}
	if name == VoidTypeName {
		stub.Kind = KindValue
	}
	loader.types[name] = stub
	loader.stubs = append(loader.stubs, stub)
	return stub
}

func parseKind(raw string) (TypeKind, error) {
	switch raw {
	case "", "reference", "class":
		return KindReference, nil
	case "value", "struct":
		return KindValue, nil
	case "enum":
		return KindEnum, nil
	default:
		return KindReference, fmt.Errorf("unknown type kind '%s'", raw)
	}
}

func parseObjKind(raw string, name string) ObjKind {
	switch raw {
	case "object":
		return ObjObject
	case "array":
		return ObjArray
	case "string":
		return ObjString
	}

	switch {
	case name == StringTypeName:
		return ObjString
	case strings.HasSuffix(name, "]"):
		return ObjArray
	default:
		return ObjObject
	}
}

// Explicit namespaces win; otherwise the namespace is everything before the last dot of the
// outermost type's name.
func namespaceOf(t *Type, explicit *string) string {
	if explicit != nil {
		return *explicit
	}
	root := t.Root()
	if root != t {
		return root.Namespace
	}
	if idx := strings.LastIndex(strings.SplitN(t.FullName, "[", 2)[0], "."); idx > 0 {
		return t.FullName[:idx]
	}
	return ""
}
