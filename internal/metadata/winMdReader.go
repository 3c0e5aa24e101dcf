// The package used for operating on and describing foreign runtime metadata.
package metadata

import (
	"debug/pe"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/microsoft/go-winmd"
	"github.com/microsoft/go-winmd/flags"
)

// Element types the reader needs beyond the primitive ones.
const (
	elementVoid        = flags.ElementType(0x01)
	elementByRef       = flags.ElementType(0x10)
	elementValueType   = flags.ElementType(0x11)
	elementClass       = flags.ElementType(0x12)
	elementGenericInst = flags.ElementType(0x15)
	elementIntPtr      = flags.ElementType(0x18)
	elementUIntPtr     = flags.ElementType(0x19)
	elementObject      = flags.ElementType(0x1c)
	elementSZArray     = flags.ElementType(0x1d)
)

// Attribute bits, see ECMA-335 II.23.1.
const (
	fieldStatic  = 0x0010
	methodStatic = 0x0010
	paramOut     = 0x0002
)

// Coded index tags of TypeDefOrRef and HasConstant.
const (
	tagTypeDef       = 0
	tagTypeRef       = 1
	tagConstantField = 0
)

const moduleTypeName = "<Module>"

const genericInstanceName = "System.GenericInstance`1"

// The map of element types to runtime type names
var builtInElementTypes map[flags.ElementType]string = map[flags.ElementType]string{
	flags.ElementType_BOOLEAN: "System.Boolean",
	flags.ElementType_CHAR:    "System.Char",
	flags.ElementType_STRING:  StringTypeName,
	flags.ElementType_I1:      "System.SByte",
	flags.ElementType_I2:      "System.Int16",
	flags.ElementType_I4:      "System.Int32",
	flags.ElementType_I8:      "System.Int64",
	flags.ElementType_U1:      "System.Byte",
	flags.ElementType_U2:      "System.UInt16",
	flags.ElementType_U4:      "System.UInt32",
	flags.ElementType_U8:      "System.UInt64",
	flags.ElementType_R4:      "System.Single",
	flags.ElementType_R8:      "System.Double",
	elementIntPtr:             "System.IntPtr",
	elementUIntPtr:            "System.UIntPtr",
	elementObject:             ObjectTypeName,
	elementVoid:               VoidTypeName,
}

// Builds a Graph from an ECMA-335 metadata file (.winmd or a managed .dll).
type WinMdReader struct {
	metadata *winmd.Metadata

	graph   *Graph
	byIndex map[winmd.Index]*Type
	byName  map[string]*Type
	stubs   []*Type
	arrays  map[*Type]*Type
}

// Reads the metadata file under given path into a Provider.
func ReadWinMd(winMdPath string) (*Graph, error) {
	peFile, err := pe.Open(winMdPath)
	if err != nil {
		return nil, fmt.Errorf("opening metadata file: %w", err)
	}
	defer peFile.Close()

	winmdMetadata, err := winmd.New(peFile)
	if err != nil {
		return nil, fmt.Errorf("reading metadata tables: %w", err)
	}

	reader := &WinMdReader{
		metadata: winmdMetadata,
		graph:    NewGraph(),
		byIndex:  make(map[winmd.Index]*Type),
		byName:   make(map[string]*Type),
		arrays:   make(map[*Type]*Type),
	}
	return reader.read()
}

func (reader *WinMdReader) read() (*Graph, error) {
	tables := reader.metadata.Tables

	enclosing, err := reader.nestingMap()
	if err != nil {
		return nil, err
	}

	defs := make([]*winmd.TypeDef, 0, tables.TypeDef.Len)
	err = eachRecord(tables.TypeDef, func(_ winmd.Index, typeDef *winmd.TypeDef) {
		defs = append(defs, typeDef)
	})
	if err != nil {
		return nil, fmt.Errorf("reading type definitions: %w", err)
	}

	// Declaring types are named first so nested names can be built from them.
	var name func(idx winmd.Index) string
	name = func(idx winmd.Index) string {
		if t, found := reader.byIndex[idx]; found {
			return t.FullName
		}
		typeDef := defs[idx]
		fullName := qualify(typeDef.Namespace.String(), typeDef.Name.String())
		if parent, nested := enclosing[idx]; nested {
			fullName = name(parent) + "." + typeDef.Name.String()
		}
		t := &Type{FullName: fullName, Index: uint32(idx), Namespace: typeDef.Namespace.String()}
		reader.byIndex[idx] = t
		reader.byName[fullName] = t
		return fullName
	}
	for idx := range defs {
		name(winmd.Index(idx))
	}

	for idx, typeDef := range defs {
		t := reader.byIndex[winmd.Index(idx)]
		if parent, nested := enclosing[winmd.Index(idx)]; nested {
			t.DeclaringType = reader.byIndex[parent]
		}
		t.Parent = reader.resolveCoded(typeDef.Extends, KindReference)
		t.Kind = kindOf(t)
	}

	if err := reader.applyLayouts(); err != nil {
		return nil, err
	}
	constants, err := reader.fieldConstants()
	if err != nil {
		return nil, err
	}
	offsets, err := reader.fieldOffsets()
	if err != nil {
		return nil, err
	}

	for idx, typeDef := range defs {
		t := reader.byIndex[winmd.Index(idx)]
		if t.FullName == moduleTypeName {
			continue
		}
		for root := t; root.DeclaringType != nil; root = root.DeclaringType {
			t.Namespace = root.DeclaringType.Namespace
		}

		fields, err := reader.fields(typeDef, constants, offsets)
		if err != nil {
			return nil, fmt.Errorf("type '%s': %w", t.FullName, err)
		}
		methods, err := reader.methods(typeDef)
		if err != nil {
			return nil, fmt.Errorf("type '%s': %w", t.FullName, err)
		}
		if err := reader.graph.AddType(t, methods, fields); err != nil {
			return nil, err
		}
		if t.DeclaringType != nil {
			reader.graph.AddNested(t.DeclaringType, t)
		}
	}

	for _, stub := range reader.stubs {
		if err := reader.graph.AddType(stub, nil, nil); err != nil {
			return nil, err
		}
	}
	for element, array := range reader.arrays {
		reader.graph.AddArray(element, array)
	}

	if err := reader.graph.Seal(); err != nil {
		return nil, err
	}
	return reader.graph, nil
}

func qualify(namespace string, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// Value types derive from System.ValueType, enums from System.Enum.
func kindOf(t *Type) TypeKind {
	if t.Parent == nil || t.FullName == EnumTypeName {
		return KindReference
	}
	switch t.Parent.FullName {
	case EnumTypeName:
		return KindEnum
	case ValueTypeName:
		return KindValue
	}
	return KindReference
}

// Iterates over every record of a table. Stops at the first record that cannot be read.
func eachRecord[T any, TP winmd.Record[T]](table winmd.Table[T, TP], action func(winmd.Index, TP)) error {
	for idx := uint32(0); idx < table.Len; idx++ {
		element, err := table.Record(winmd.Index(idx))
		if err != nil {
			return fmt.Errorf("record %d: %w", idx, err)
		}
		action(winmd.Index(idx), element)
	}
	return nil
}

func (reader *WinMdReader) nestingMap() (map[winmd.Index]winmd.Index, error) {
	enclosing := map[winmd.Index]winmd.Index{}
	err := eachRecord(reader.metadata.Tables.NestedClass, func(_ winmd.Index, nestedClass *winmd.NestedClass) {
		enclosing[winmd.Index(nestedClass.NestedClass)] = winmd.Index(nestedClass.EnclosingClass)
	})
	if err != nil {
		return nil, fmt.Errorf("reading nested classes: %w", err)
	}
	return enclosing, nil
}

func (reader *WinMdReader) applyLayouts() error {
	err := eachRecord(reader.metadata.Tables.ClassLayout, func(_ winmd.Index, layout *winmd.ClassLayout) {
		if t, found := reader.byIndex[winmd.Index(layout.Parent)]; found {
			t.Size = uint32(layout.ClassSize)
		}
	})
	if err != nil {
		return fmt.Errorf("reading class layouts: %w", err)
	}
	return nil
}

func (reader *WinMdReader) fieldOffsets() (map[winmd.Index]uint32, error) {
	offsets := map[winmd.Index]uint32{}
	err := eachRecord(reader.metadata.Tables.FieldLayout, func(_ winmd.Index, layout *winmd.FieldLayout) {
		offsets[winmd.Index(layout.Field)] = uint32(layout.Offset)
	})
	if err != nil {
		return nil, fmt.Errorf("reading field layouts: %w", err)
	}
	return offsets, nil
}

// Literal values of constant fields, widened to int64. Non-integral constants are skipped.
func (reader *WinMdReader) fieldConstants() (map[winmd.Index]int64, error) {
	constants := map[winmd.Index]int64{}
	err := eachRecord(reader.metadata.Tables.Constant, func(_ winmd.Index, constant *winmd.Constant) {
		if constant.Parent.Tag != tagConstantField {
			return
		}
		if value, ok := decodeConstant(flags.ElementType(constant.Type), []byte(constant.Value)); ok {
			constants[constant.Parent.Index] = value
		}
	})
	if err != nil {
		return nil, fmt.Errorf("reading constants: %w", err)
	}
	return constants, nil
}

func decodeConstant(kind flags.ElementType, value []byte) (int64, bool) {
	switch {
	case kind == flags.ElementType_BOOLEAN || kind == flags.ElementType_U1:
		if len(value) >= 1 {
			return int64(value[0]), true
		}
	case kind == flags.ElementType_I1:
		if len(value) >= 1 {
			return int64(int8(value[0])), true
		}
	case kind == flags.ElementType_I2:
		if len(value) >= 2 {
			return int64(int16(binary.LittleEndian.Uint16(value))), true
		}
	case kind == flags.ElementType_U2 || kind == flags.ElementType_CHAR:
		if len(value) >= 2 {
			return int64(binary.LittleEndian.Uint16(value)), true
		}
	case kind == flags.ElementType_I4:
		if len(value) >= 4 {
			return int64(int32(binary.LittleEndian.Uint32(value))), true
		}
	case kind == flags.ElementType_U4:
		if len(value) >= 4 {
			return int64(binary.LittleEndian.Uint32(value)), true
		}
	case kind == flags.ElementType_I8:
		if len(value) >= 8 {
			return int64(binary.LittleEndian.Uint64(value)), true
		}
	case kind == flags.ElementType_U8:
		if len(value) >= 8 {
			if raw := binary.LittleEndian.Uint64(value); raw <= math.MaxInt64 {
				return int64(raw), true
			}
		}
	}
	return 0, false
}

func (reader *WinMdReader) fields(typeDef *winmd.TypeDef, constants map[winmd.Index]int64, offsets map[winmd.Index]uint32) ([]*Field, error) {
	fields := make([]*Field, 0, typeDef.FieldList.End-typeDef.FieldList.Start)
	for idx := typeDef.FieldList.Start; idx < typeDef.FieldList.End; idx++ {
		field, err := reader.metadata.Tables.Field.Record(idx)
		if err != nil {
			return nil, fmt.Errorf("no matching field was found: %w", err)
		}
		fieldSignature, err := reader.metadata.FieldSignature(field.Signature)
		if err != nil {
			return nil, fmt.Errorf("no matching field signature for field '%s' was found: %w", field.Name.String(), err)
		}

		element := &Field{
			Name:   field.Name.String(),
			Index:  uint32(idx),
			Type:   reader.sigType(fieldSignature.Type),
			Static: uint32(field.Flags)&fieldStatic != 0,
			Offset: offsets[idx],
		}
		if value, found := constants[idx]; found {
			element.Constant = &value
		}
		fields = append(fields, element)
	}
	return fields, nil
}

func (reader *WinMdReader) methods(typeDef *winmd.TypeDef) ([]*Method, error) {
	methods := make([]*Method, 0, typeDef.MethodList.End-typeDef.MethodList.Start)
	for idx := typeDef.MethodList.Start; idx < typeDef.MethodList.End; idx++ {
		methodDef, err := reader.metadata.Tables.MethodDef.Record(idx)
		if err != nil {
			return nil, fmt.Errorf("no matching method was found: %w", err)
		}
		methodSignature, err := reader.metadata.MethodDefSignature(methodDef.Signature)
		if err != nil {
			return nil, fmt.Errorf("no matching signature for method '%s' was found: %w", methodDef.Name.String(), err)
		}

		params, err := reader.params(methodDef)
		if err != nil {
			return nil, err
		}

		method := &Method{
			Name:       methodDef.Name.String(),
			Index:      uint32(idx),
			ReturnType: reader.sigType(methodSignature.RetType.Type),
			Static:     uint32(methodDef.Flags)&methodStatic != 0,
		}
		for i, sigParam := range methodSignature.Param {
			param := Parameter{Type: reader.sigType(sigParam.Type)}
			if sigParam.Type.Kind == elementByRef {
				param.ByRef = true
			}
			if sigParam.Type.Kind == flags.ElementType_PTR {
				param.Pointer = true
			}
			if named, found := params[uint16(i+1)]; found {
				param.Name = named.Name.String()
				if uint32(named.Flags)&paramOut != 0 {
					param.Out = true
					param.ByRef = false
				}
			}
			method.Params = append(method.Params, param)
		}
		methods = append(methods, method)
	}
	return methods, nil
}

// Param rows of a method keyed by sequence. Sequence 0 describes the return value.
func (reader *WinMdReader) params(methodDef *winmd.MethodDef) (map[uint16]*winmd.Param, error) {
	params := map[uint16]*winmd.Param{}
	for idx := methodDef.ParamList.Start; idx < methodDef.ParamList.End; idx++ {
		param, err := reader.metadata.Tables.Param.Record(idx)
		if err != nil {
			return nil, fmt.Errorf("no matching parameter was found: %w", err)
		}
		params[uint16(param.Sequence)] = param
	}
	return params, nil
}

// Maps a signature type onto a Type, creating stubs for types defined elsewhere.
func (reader *WinMdReader) sigType(sigType winmd.SigType) *Type {
	if name, found := builtInElementTypes[sigType.Kind]; found {
		return reader.named(name, KindReference)
	}

	switch sigType.Kind {
	case elementByRef, flags.ElementType_PTR:
		if inner, ok := sigType.Value.(winmd.SigType); ok {
			return reader.sigType(inner)
		}
	case elementSZArray, flags.ElementType_ARRAY:
		if inner, ok := sigType.Value.(winmd.SigType); ok {
			return reader.arrayOf(reader.sigType(inner))
		}
	case elementClass:
		if index, ok := sigType.Value.(winmd.CodedIndex); ok {
			return reader.resolveCoded(index, KindReference)
		}
	case elementValueType:
		if index, ok := sigType.Value.(winmd.CodedIndex); ok {
			return reader.resolveCoded(index, KindValue)
		}
	case elementGenericInst:
		// Generic instantiations have no proxy; the backtick keeps them out of the valid set.
		return reader.named(genericInstanceName, KindReference)
	}
	return reader.named(ObjectTypeName, KindReference)
}

func (reader *WinMdReader) resolveCoded(index winmd.CodedIndex, kind TypeKind) *Type {
	switch index.Tag {
	case tagTypeDef:
		if t, found := reader.byIndex[index.Index]; found {
			return t
		}
	case tagTypeRef:
		typeRef, err := reader.metadata.Tables.TypeRef.Record(index.Index)
		if err != nil {
			return nil
		}
		return reader.named(qualify(typeRef.Namespace.String(), typeRef.Name.String()), kind)
	}
	return nil
}

// Returns the named type, creating a member-less stub when it is not defined in the file.
func (reader *WinMdReader) named(fullName string, kind TypeKind) *Type {
	if t, found := reader.byName[fullName]; found {
		return t
	}
	stub := &Type{FullName: fullName, Kind: kind, Namespace: namespaceOf(&Type{FullName: fullName}, nil)}
	if builtInKind, found := builtInTypeKinds[fullName]; found {
		stub.Kind = builtInKind
		stub.Primitive = true
	}
	switch fullName {
	case VoidTypeName:
		stub.Kind = KindValue
	case StringTypeName:
		stub.ObjKind = ObjString
	}
	reader.byName[fullName] = stub
	reader.stubs = append(reader.stubs, stub)
	return stub
}

func (reader *WinMdReader) arrayOf(element *Type) *Type {
	if element == nil {
		return nil
	}
	if array, found := reader.arrays[element]; found {
		return array
	}
	array := reader.named(element.FullName+"[]", KindReference)
	array.ObjKind = ObjArray
	reader.arrays[element] = array
	return array
}
