package generation

import (
	"proxygen/internal/decl"
	"proxygen/internal/metadata"
	"proxygen/internal/naming"
)

const outParamsUnsupported = "out parameters cannot be passed through a boxed invoke"

// Operator methods and the Go operator they stand for, kept as a directive on the member.
var operatorTokens = map[string]string{
	"op_Addition":           "+",
	"op_Subtraction":        "-",
	"op_Multiply":           "*",
	"op_Division":           "/",
	"op_Modulus":            "%",
	"op_BitwiseAnd":         "&",
	"op_BitwiseOr":          "|",
	"op_ExclusiveOr":        "^",
	"op_LeftShift":          "<<",
	"op_RightShift":         ">>",
	"op_Equality":           "==",
	"op_Inequality":         "!=",
	"op_LessThan":           "<",
	"op_GreaterThan":        ">",
	"op_LessThanOrEqual":    "<=",
	"op_GreaterThanOrEqual": ">=",
	"op_UnaryNegation":      "-",
	"op_UnaryPlus":          "+",
	"op_LogicalNot":         "!",
	"op_OnesComplement":     "^",
	"op_Increment":          "++",
	"op_Decrement":          "--",
	"op_Implicit":           "implicit",
	"op_Explicit":           "explicit",
}

// Emits an interface-shaped proxy. Instance members are declarations only; static members
// call through cached handles with the boxed convention.
func (s *synthesizer) generateReferenceType() *decl.Type {
	s.begin(decl.ShapeInterface)

	if base := s.nearestBase(); base != nil {
		next := s.decl.AddBases(s.ctx.ResolveType(base))
		s.decl = &next
		s.base = base
		s.scope.inherit(base, s.eligible)
	}

	s.emitFields(s.validFields(s.model.fields))
	s.emitProperties()
	s.emitMethods()
	s.generateNested()

	return s.decl
}

// Fields are exposed as facade properties. Instance facades have no body.
func (s *synthesizer) emitFields(fields []*metadata.Field) {
	for _, field := range fields {
		if !field.Static && s.decl.Shape == decl.ShapeRecord {
			s.emitLayoutField(field)
			continue
		}

		valueType := s.ctx.ResolveType(field.Type)
		property := &decl.Property{
			Name:   s.scope.claimProperty(memberName(naming.CleanFieldName(field.Name)), field.Static),
			Type:   valueType,
			Getter: &decl.Accessor{Index: field.Index, Facade: decl.FacadeGetter},
			Setter: &decl.Accessor{Index: field.Index, Facade: decl.FacadeSetter},
			Static: field.Static,
			Shadow: s.fieldShadows(field),
		}

		if field.Static {
			handle := s.fieldHandle(field.Name, field)
			property.Getter.Body = &decl.FieldAccess{Handle: handle, Type: valueType}
			property.Setter.Body = &decl.FieldAccess{Handle: handle, Type: valueType, Set: true}
		}

		s.addMembers(property)
	}
}

func (s *synthesizer) emitProperties() {
	for _, pseudo := range s.model.properties {
		getter := s.validAccessor(pseudo.getter)
		setter := s.validAccessor(pseudo.setter)
		if getter == nil && setter == nil {
			continue
		}

		primary := getter
		if primary == nil {
			primary = setter
		}

		property := &decl.Property{
			Name:    s.scope.claimProperty(memberName(pseudo.name), primary.Static),
			Type:    s.ctx.ResolveType(pseudo.valueType),
			Indexer: pseudo.indexer,
			Static:  primary.Static,
			Shadow:  s.propertyShadows(pseudo),
		}
		if pseudo.indexer {
			property.IndexType = s.ctx.ResolveType(pseudo.indexType)
		}

		if getter != nil {
			property.Getter = &decl.Accessor{Index: getter.Index, Body: s.accessorBody(getter, property, false)}
		}
		if setter != nil {
			property.Setter = &decl.Accessor{Index: setter.Index, Body: s.accessorBody(setter, property, true)}
		}

		s.addMembers(property)
	}
}

// Returns method when it can back a property accessor, nil otherwise.
func (s *synthesizer) validAccessor(method *metadata.Method) *metadata.Method {
	if method == nil {
		return nil
	}
	if reason := s.invalidMethodReason(method); reason != "" {
		s.skip(method.Name, reason)
		return nil
	}
	for _, param := range method.Params {
		if param.Type != nil && isCorrupted(param.Type.FullName) {
			s.skip(method.Name, "corrupted parameter type '"+param.Type.FullName+"'")
			return nil
		}
	}
	if !s.checkRawCall(method, method.Params) {
		return nil
	}
	return method
}

func (s *synthesizer) accessorBody(method *metadata.Method, property *decl.Property, set bool) decl.Body {
	if method.Static {
		handle := s.methodHandle(method.Name, method)
		call := &decl.BoxedCall{Handle: handle}
		if property.Indexer {
			call.Args = append(call.Args, decl.BoxedArg{Name: decl.IndexParam})
		}
		if set {
			call.Args = append(call.Args, decl.BoxedArg{Name: decl.ValueParam})
		} else {
			result := property.Type
			call.Result = &result
		}
		return call
	}

	if s.decl.Shape == decl.ShapeRecord {
		return s.rawAccessor(method, property, set)
	}
	return nil
}

func (s *synthesizer) emitMethods() {
	for _, method := range s.validMethods(s.model.methods) {
		if emitted := s.emitMethod(method); emitted != nil {
			s.addMembers(emitted)
		}
	}
}

func (s *synthesizer) emitMethod(method *metadata.Method) *decl.Method {
	params, ok := s.buildParams(method, method.Name)
	if !ok || !s.checkRawCall(method, params.facts) {
		return nil
	}
	if s.seen[params.key] {
		s.skip(method.Name, "duplicate overload signature "+params.key)
		return nil
	}
	s.seen[params.key] = true

	emitted := &decl.Method{
		Name:     s.scope.claim(memberName(method.Name), method.Static),
		Index:    method.Index,
		Params:   params.params,
		Static:   method.Static,
		Unsafe:   params.unsafe,
		Operator: operatorTokens[method.Name],
		Shadow:   s.methodShadows(method, method.Name),
	}
	if !method.ReturnType.IsVoid() {
		result := s.ctx.ResolveType(method.ReturnType)
		emitted.Result = &result
	}

	switch {
	case method.Static:
		emitted.Body = s.boxedBody(method, params, emitted.Result)
	case s.decl.Shape == decl.ShapeRecord:
		emitted.Unsafe = true
		emitted.Body = s.rawCall(s.methodHandle(method.Name, method), params, method.ReturnType)
	}
	return emitted
}

func (s *synthesizer) boxedBody(method *metadata.Method, params paramList, result *decl.TypeExpr) decl.Body {
	if params.hasOut {
		return &decl.NotImplemented{Reason: outParamsUnsupported}
	}
	return &decl.BoxedCall{
		Handle: s.methodHandle(method.Name, method),
		Result: result,
		Args:   params.boxedArgs(),
	}
}
