package generation

import (
	"fmt"

	"proxygen/internal"
	"proxygen/internal/decl"
	"proxygen/internal/metadata"
	"proxygen/internal/naming"
)

// Register slot conversion for primitive argument types.
var primitiveArgConvs = map[string]decl.ArgConv{
	"System.Single":  decl.ConvFloat32,
	"System.Double":  decl.ConvFloat64,
	"System.SByte":   decl.ConvSigned,
	"System.Int16":   decl.ConvSigned,
	"System.Int32":   decl.ConvSigned,
	"System.Int64":   decl.ConvSigned,
	"System.IntPtr":  decl.ConvSigned,
	"System.Byte":    decl.ConvUnsigned,
	"System.Char":    decl.ConvUnsigned,
	"System.UInt16":  decl.ConvUnsigned,
	"System.UInt32":  decl.ConvUnsigned,
	"System.UInt64":  decl.ConvUnsigned,
	"System.UIntPtr": decl.ConvUnsigned,
	"System.Boolean": decl.ConvBool,
}

type primitiveView struct {
	view    decl.RetView
	narrow  bool
	nonZero bool
}

// The invoke result view that holds each primitive return type.
var primitiveViews = map[string]primitiveView{
	"System.Single":  {view: decl.ViewDouble, narrow: true},
	"System.Double":  {view: decl.ViewDouble},
	"System.SByte":   {view: decl.ViewSByte},
	"System.Int16":   {view: decl.ViewInt16},
	"System.Int32":   {view: decl.ViewInt32},
	"System.Int64":   {view: decl.ViewInt64},
	"System.IntPtr":  {view: decl.ViewInt64},
	"System.Byte":    {view: decl.ViewByte},
	"System.Char":    {view: decl.ViewWord},
	"System.UInt16":  {view: decl.ViewWord},
	"System.UInt32":  {view: decl.ViewDWord},
	"System.UInt64":  {view: decl.ViewQWord},
	"System.UIntPtr": {view: decl.ViewQWord},
	"System.Boolean": {view: decl.ViewByte, nonZero: true},
}

// Emits a record with explicit field layout. Instance methods pack their arguments for the
// raw calling convention; static members reuse the boxed thunks.
func (s *synthesizer) generateValueType() *decl.Type {
	s.begin(decl.ShapeRecord)
	s.decl.Size = s.t.Size

	s.emitFields(s.validFields(s.model.fields))
	s.emitProperties()
	s.emitMethods()
	s.generateNested()

	return s.decl
}

func (s *synthesizer) emitLayoutField(field *metadata.Field) {
	s.addMembers(&decl.Field{
		Name:   s.scope.claim(memberName(naming.CleanFieldName(field.Name)), false),
		Index:  field.Index,
		Type:   s.ctx.ResolveType(field.Type),
		Offset: field.Offset,
		Size:   inlineSize(field.Type),
		Ref:    !field.Type.IsValueType(),
	})
}

// One slot per parameter, then the typed unpack of the raw result.
func (s *synthesizer) rawCall(handle string, params paramList, returnType *metadata.Type) *decl.RawCall {
	call := &decl.RawCall{
		Handle: handle,
		Slots:  make([]decl.ArgSlot, 0, len(params.params)),
	}
	for i, param := range params.params {
		call.Slots = append(call.Slots, decl.ArgSlot{
			Index: i,
			Name:  param.Name,
			Conv:  argConv(params.facts[i]),
		})
	}
	call.Unpack = s.unpack(returnType)
	return call
}

func (s *synthesizer) rawAccessor(method *metadata.Method, property *decl.Property, set bool) *decl.RawCall {
	names := []string{}
	if property.Indexer {
		names = append(names, decl.IndexParam)
	}
	if set {
		names = append(names, decl.ValueParam)
	}

	// Accessor values travel by value whatever the runtime reports.
	params := paramList{}
	for i, fact := range method.Params {
		name := fmt.Sprintf("arg%d", i)
		if i < len(names) {
			name = names[i]
		}
		params.params = append(params.params, decl.Param{Name: name, Type: s.ctx.ResolveType(fact.Type)})
		params.facts = append(params.facts, metadata.Parameter{Name: name, Type: fact.Type})
	}

	returnType := method.ReturnType
	if set {
		returnType = nil
	}
	return s.rawCall(s.methodHandle(method.Name, method), params, returnType)
}

// Raw calls copy value types by their bytes, so every non-primitive value type crossing one
// needs a record proxy of its own. Returns the first value type that has none.
func (s *synthesizer) unpackableValueType(params []metadata.Parameter, returnType *metadata.Type) string {
	for _, param := range params {
		t := param.Type
		if t == nil || !t.IsValueType() {
			continue
		}
		if _, found := primitiveArgConvs[t.FullName]; !found && s.ctx.ResolveType(t).IsOpaque() {
			return t.FullName
		}
	}
	if returnType.IsValueType() && !returnType.Primitive && s.ctx.ResolveType(returnType).IsOpaque() {
		return returnType.FullName
	}
	return ""
}

func (s *synthesizer) checkRawCall(method *metadata.Method, params []metadata.Parameter) bool {
	if s.decl.Shape != decl.ShapeRecord || method.Static {
		return true
	}
	if name := s.unpackableValueType(params, method.ReturnType); name != "" {
		s.skip(method.Name, fmt.Sprintf("value type '%s' is not generated and cannot cross a raw call", name))
		return false
	}
	return true
}

func argConv(fact metadata.Parameter) decl.ArgConv {
	if fact.Out || fact.ByRef || fact.Pointer {
		return decl.ConvPointer
	}

	t := fact.Type
	switch {
	case t == nil:
		return decl.ConvObject
	case t.FullName == metadata.StringTypeName:
		return decl.ConvString
	case t.IsValueType():
		if conv, found := primitiveArgConvs[t.FullName]; found {
			return conv
		}
		return decl.ConvAddress
	default:
		return decl.ConvObject
	}
}

// Chooses how the raw invoke result becomes the declared return type. Nil for void.
func (s *synthesizer) unpack(returnType *metadata.Type) *decl.Unpack {
	if returnType == nil || returnType.IsVoid() {
		return nil
	}

	result := s.ctx.ResolveType(returnType)

	if returnType.FullName == metadata.StringTypeName {
		return &decl.Unpack{Kind: decl.UnpackString, Result: result}
	}

	if returnType.IsValueType() {
		view, found := primitiveViews[returnType.FullName]
		if !found {
			if returnType.Primitive {
				internal.PanicOnError(fmt.Errorf("unsupported primitive return type: %s", returnType.FullName))
			}
			return &decl.Unpack{Kind: decl.UnpackReinterpret, Result: result}
		}
		return &decl.Unpack{
			Kind:    decl.UnpackPrimitive,
			Result:  result,
			View:    view.view,
			Narrow:  view.narrow,
			NonZero: view.nonZero,
		}
	}

	switch returnType.ObjKind {
	case metadata.ObjArray:
		return &decl.Unpack{Kind: decl.UnpackArray, Result: result}
	case metadata.ObjString:
		return &decl.Unpack{Kind: decl.UnpackString, Result: result}
	default:
		return &decl.Unpack{Kind: decl.UnpackObject, Result: result}
	}
}
