package render

import (
	"fmt"
	"slices"

	"github.com/dave/jennifer/jen"

	"proxygen/internal/decl"
)

// Go alignment of the built-in field types.
var builtinAlign = map[string]uint32{
	"bool":    1,
	"int8":    1,
	"uint8":   1,
	"int16":   2,
	"uint16":  2,
	"int32":   4,
	"uint32":  4,
	"float32": 4,
	"int64":   8,
	"uint64":  8,
	"float64": 8,
}

const refAlign = 8

func (tp *typePrinter) recordType(declaration *decl.Type, ident string) {
	fields := slices.Clone(declaration.Fields())
	slices.SortStableFunc(fields, func(a, b *decl.Field) int {
		return int(a.Offset) - int(b.Offset)
	})

	var overlapping []*decl.Field

	tp.docComment(declaration, ident)
	tp.file.Type().Id(ident).StructFunc(func(g *jen.Group) {
		cursor := uint32(0)
		for _, field := range fields {
			if !tp.inline(field, cursor) {
				overlapping = append(overlapping, field)
				continue
			}
			if field.Offset > cursor {
				g.Id("_").Index(jen.Lit(int(field.Offset - cursor))).Byte()
			}
			tag := fmt.Sprintf("offset=%d", field.Offset)
			if field.Ref {
				tag += ",ref"
			}
			g.Id(field.Name).Add(tp.fieldType(field)).Tag(map[string]string{"proxygen": tag})
			cursor = field.Offset + field.Size
		}
		if declaration.Size > cursor {
			g.Id("_").Index(jen.Lit(int(declaration.Size - cursor))).Byte()
		}
	}).Line()

	tp.typeHandle(declaration, ident)

	// Unions and fields Go cannot place at their offset are reached through the pointer.
	for _, field := range overlapping {
		tp.file.Comment(fmt.Sprintf("%s reads the field at offset %d.", field.Name, field.Offset))
		tp.file.Func().Params(jen.Id("self").Op("*").Id(ident)).Id(field.Name).Params().Op("*").Add(tp.fieldType(field)).Block(
			jen.Return(jen.Parens(jen.Op("*").Add(tp.fieldType(field))).Call(
				jen.Qual("unsafe", "Add").Call(jen.Qual("unsafe", "Pointer").Call(jen.Id("self")), jen.Lit(int(field.Offset))),
			)),
		).Line()
	}

	tp.recordMembers(declaration, ident)
	tp.staticMembers(declaration, ident)
}

// Whether the field can be a plain struct field: its size is known, it does not overlap the
// previous field, and Go would put it at the same offset.
func (tp *typePrinter) inline(field *decl.Field, cursor uint32) bool {
	if field.Size == 0 || field.Offset < cursor {
		return false
	}
	return field.Offset%tp.fieldAlign(field) == 0
}

func (tp *typePrinter) fieldAlign(field *decl.Field) uint32 {
	if field.Ref {
		return refAlign
	}
	if align, found := builtinAlign[field.Type.Builtin]; found {
		return align
	}
	if field.Type.IsOpaque() {
		return 1
	}
	// Small enums and records align to at most their size, anything larger to at most a word.
	switch field.Size {
	case 1, 2, 4:
		return field.Size
	default:
		return refAlign
	}
}

func (tp *typePrinter) fieldType(field *decl.Field) *jen.Statement {
	switch {
	case field.Ref:
		return tp.rt("ObjectRef")
	case field.Type.IsOpaque():
		if field.Size == 0 {
			return jen.Byte()
		}
		return jen.Index(jen.Lit(int(field.Size))).Byte()
	default:
		return tp.typeCode(field.Type)
	}
}

// Instance methods and properties of a record call through the raw convention.
func (tp *typePrinter) recordMembers(declaration *decl.Type, ident string) {
	receiver := jen.Id("self").Op("*").Id(ident)

	for _, member := range declaration.Members {
		switch m := member.(type) {
		case *decl.Method:
			if m.Static {
				continue
			}
			tp.file.Comment(fmt.Sprintf("//proxygen:method %d", m.Index))
			if m.Operator != "" {
				tp.file.Comment("//proxygen:operator " + m.Operator)
			}
			tp.file.Func().Params(receiver.Clone()).Id(m.Name).ParamsFunc(func(params *jen.Group) {
				for _, param := range m.Params {
					params.Add(tp.paramCode(param))
				}
			}).Add(tp.resultCode(m.Result)).BlockFunc(func(g *jen.Group) {
				tp.body(g, ident, m.Body)
			}).Line()
		case *decl.Property:
			if m.Static {
				continue
			}
			if m.Getter != nil {
				tp.file.Comment(accessorDirective(m.Getter))
				tp.file.Func().Params(receiver.Clone()).Id(m.Name).Params(tp.indexParams(m)...).Add(tp.typeCode(m.Type)).BlockFunc(func(g *jen.Group) {
					tp.body(g, ident, m.Getter.Body)
				}).Line()
			}
			if m.Setter != nil {
				tp.file.Comment(accessorDirective(m.Setter))
				tp.file.Func().Params(receiver.Clone()).Id(setterName(m)).Params(tp.setterParams(m)...).BlockFunc(func(g *jen.Group) {
					tp.body(g, ident, m.Setter.Body)
				}).Line()
			}
		}
	}
}
