package render

import (
	"github.com/dave/jennifer/jen"

	"proxygen/internal/decl"
)

// Go type each raw result view yields.
var viewTypes = map[decl.RetView]string{
	decl.ViewDouble: "float64",
	decl.ViewSByte:  "int8",
	decl.ViewInt16:  "int16",
	decl.ViewInt32:  "int32",
	decl.ViewInt64:  "int64",
	decl.ViewByte:   "uint8",
	decl.ViewWord:   "uint16",
	decl.ViewDWord:  "uint32",
	decl.ViewQWord:  "uint64",
}

func (tp *typePrinter) body(g *jen.Group, ident string, body decl.Body) {
	switch b := body.(type) {
	case *decl.BoxedCall:
		tp.boxedCall(g, ident, b)
	case *decl.FieldAccess:
		tp.fieldAccess(g, ident, b)
	case *decl.NotImplemented:
		g.Panic(tp.rt("NotImplemented").Call(jen.Lit(b.Reason)))
	case *decl.RawCall:
		tp.rawCall(g, ident, b)
	default:
		g.Panic(tp.rt("NotImplemented").Call(jen.Lit("no body")))
	}
}

func handleCall(ident string, handle string) *jen.Statement {
	return jen.Id(handleIdent(ident, handle)).Call()
}

// Boxes the result back to its declared type. Opaque results are returned as they are.
func (tp *typePrinter) unbox(call *jen.Statement, result decl.TypeExpr) *jen.Statement {
	if result.IsOpaque() {
		return call
	}
	return call.Assert(tp.typeCode(result))
}

func (tp *typePrinter) typeFor(t decl.TypeExpr) *jen.Statement {
	return jen.Qual("reflect", "TypeFor").Types(tp.typeCode(t)).Call()
}

func (tp *typePrinter) boxedCall(g *jen.Group, ident string, call *decl.BoxedCall) {
	args := jen.Index().Id("any").ValuesFunc(func(values *jen.Group) {
		for _, arg := range call.Args {
			if arg.Address {
				values.Uintptr().Call(jen.Qual("unsafe", "Pointer").Call(jen.Id(arg.Name)))
			} else {
				values.Id(arg.Name)
			}
		}
	})

	if call.Result == nil {
		g.Add(handleCall(ident, call.Handle)).Dot("Invoke").Call(jen.Nil(), args)
		return
	}

	invoke := handleCall(ident, call.Handle).Dot("InvokeBoxed").Call(tp.typeFor(*call.Result), jen.Nil(), args)
	g.Return(tp.unbox(invoke, *call.Result))
}

func (tp *typePrinter) fieldAccess(g *jen.Group, ident string, access *decl.FieldAccess) {
	if access.Set {
		g.Add(handleCall(ident, access.Handle)).Dot("SetDataBoxed").Call(
			jen.Lit(0),
			jen.Index().Id("any").Values(jen.Id(decl.ValueParam)),
			jen.False(),
		)
		return
	}

	get := handleCall(ident, access.Handle).Dot("GetDataBoxed").Call(tp.typeFor(access.Type), jen.Lit(0), jen.False())
	g.Return(tp.unbox(get, access.Type))
}

// Packs each argument into a register-sized slot, invokes with a pointer to the receiver and
// unpacks the raw result.
func (tp *typePrinter) rawCall(g *jen.Group, ident string, call *decl.RawCall) {
	argsPtr, count := jen.Nil(), jen.Lit(0)
	if len(call.Slots) > 0 {
		g.Var().Id("args").Index(jen.Lit(len(call.Slots))).Uint64()
		for _, slot := range call.Slots {
			g.Id("args").Index(jen.Lit(slot.Index)).Op("=").Add(tp.slotValue(slot))
		}
		argsPtr = jen.Qual("unsafe", "Pointer").Call(jen.Op("&").Id("args").Index(jen.Lit(0)))
		count = jen.Len(jen.Id("args"))
	}

	invoke := handleCall(ident, call.Handle).Dot("InvokeRaw").Call(
		jen.Qual("unsafe", "Pointer").Call(jen.Id("self")),
		argsPtr,
		count,
	)

	if call.Unpack == nil {
		g.Add(invoke)
		return
	}

	g.Id("ret").Op(":=").Add(invoke)
	tp.unpack(g, ident, call)
}

func (tp *typePrinter) slotValue(slot decl.ArgSlot) *jen.Statement {
	name := jen.Id(slot.Name)
	switch slot.Conv {
	case decl.ConvSigned:
		return jen.Uint64().Call(jen.Int64().Call(name))
	case decl.ConvUnsigned:
		return jen.Uint64().Call(name)
	case decl.ConvFloat32:
		return jen.Qual("math", "Float64bits").Call(jen.Float64().Call(name))
	case decl.ConvFloat64:
		return jen.Qual("math", "Float64bits").Call(name)
	case decl.ConvBool:
		return tp.rt("BoolArg").Call(name)
	case decl.ConvAddress:
		return jen.Uint64().Call(jen.Uintptr().Call(jen.Qual("unsafe", "Pointer").Call(jen.Op("&").Add(name))))
	case decl.ConvPointer:
		return jen.Uint64().Call(jen.Uintptr().Call(jen.Qual("unsafe", "Pointer").Call(name)))
	case decl.ConvString:
		return jen.Uint64().Call(tp.rt("CreateString").Call(name).Dot("Ptr").Call())
	default:
		return jen.Uint64().Call(tp.rt("AsObject").Call(name).Dot("Ptr").Call())
	}
}

func (tp *typePrinter) unpack(g *jen.Group, ident string, call *decl.RawCall) {
	unpack := call.Unpack
	result := unpack.Result

	switch unpack.Kind {
	case decl.UnpackPrimitive:
		value := jen.Id("ret").Dot(string(unpack.View)).Call()
		switch {
		case unpack.NonZero:
			value = value.Op("!=").Lit(0)
		case unpack.Narrow, result.Builtin != viewTypes[unpack.View]:
			value = tp.typeCode(result).Call(value)
		}
		g.Return(value)

	case decl.UnpackReinterpret:
		g.Return(jen.Op("*").Parens(jen.Op("*").Add(tp.typeCode(result))).Call(
			jen.Qual("unsafe", "Pointer").Call(jen.Op("&").Id("ret")),
		))

	default:
		g.Id("obj").Op(":=").Add(tp.rt("ConvertReferenceTypeResult")).Call(
			jen.Op("&").Id("ret"),
			handleCall(ident, call.Handle).Dot("ReturnType").Call(),
		)
		switch {
		case unpack.Kind == decl.UnpackString && result.Builtin == "string":
			g.Return(tp.rt("AsString").Call(jen.Id("obj")))
		case result.IsOpaque():
			g.Return(jen.Id("obj"))
		default:
			g.Return(tp.rt("As").Types(tp.typeCode(result)).Call(jen.Id("obj")))
		}
	}
}
