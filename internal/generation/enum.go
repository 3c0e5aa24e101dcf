package generation

import (
	"proxygen/internal/decl"
	"proxygen/internal/metadata"
	"proxygen/internal/naming"
)

// The instance field holding an enum's underlying value.
const enumValueField = "value__"

var defaultEnumUnderlying = decl.Builtin("int32")

func synthesizeEnum(ctx *Context, t *metadata.Type, name string, result *Result) *decl.Type {
	enum := &decl.Enum{Underlying: defaultEnumUnderlying}
	scope := newNameScope()

	for _, field := range t.Fields {
		if field.DeclaringType != t {
			break
		}

		if !field.Static {
			if field.Name == enumValueField && field.Type != nil {
				if underlying := ctx.ResolveType(field.Type); underlying.IsBuiltin() && !underlying.IsOpaque() {
					enum.Underlying = underlying
				}
			}
			continue
		}

		switch {
		case field.Name == "" || !naming.IsASCII(field.Name):
			result.skipMember(t, field.Name, "invalid enum value name")
		case field.Constant == nil:
			result.skipMember(t, field.Name, "enum value has no constant")
		default:
			enum.Values = append(enum.Values, decl.EnumValue{
				Name:  scope.claim(memberName(field.Name), false),
				Value: *field.Constant,
			})
		}
	}

	return &decl.Type{
		Name:      name,
		FullName:  t.FullName,
		Namespace: t.Root().Namespace,
		Shape:     decl.ShapeEnum,
		Hides:     nestedTypeExistsInParent(ctx, t),
		Size:      inlineSize(t),
		Enum:      enum,
	}
}
