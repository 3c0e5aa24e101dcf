package generation

import (
	"fmt"
	"strings"

	"proxygen/internal/metadata"
	"proxygen/internal/naming"
)

// Filters ordinary methods down to the ones a proxy can declare.
func (s *synthesizer) validMethods(methods []*metadata.Method) []*metadata.Method {
	valid := make([]*metadata.Method, 0, len(methods))
	for _, method := range methods {
		if reason := s.invalidMethodReason(method); reason != "" {
			s.skip(method.Name, reason)
			continue
		}
		valid = append(valid, method)
	}
	return valid
}

func (s *synthesizer) invalidMethodReason(method *metadata.Method) string {
	switch {
	case s.ctx.IsExcludedMethod(method.Name):
		return "excluded method name"
	case strings.Contains(method.Name, "<"):
		return "generic method name"
	case !naming.IsASCII(method.Name):
		return "non-ASCII method name"
	case method.ReturnType == nil:
		return "method has a null return type"
	case isCorrupted(method.ReturnType.FullName):
		return fmt.Sprintf("corrupted return type '%s'", method.ReturnType.FullName)
	}
	return ""
}

// Filters fields down to the ones a proxy can declare. Emission stops once MaxFields
// fields are kept.
func (s *synthesizer) validFields(fields []*metadata.Field) []*metadata.Field {
	valid := make([]*metadata.Field, 0, len(fields))
	for _, field := range fields {
		if reason := s.invalidFieldReason(field); reason != "" {
			s.skip(field.Name, reason)
			continue
		}

		if len(valid) >= s.ctx.Options.MaxFields {
			s.skip(field.Name, fmt.Sprintf("field count reached the limit of %d, remaining fields dropped", s.ctx.Options.MaxFields))
			break
		}

		valid = append(valid, field)
	}
	return valid
}

func (s *synthesizer) invalidFieldReason(field *metadata.Field) string {
	switch {
	case field.Type == nil:
		return "field has a null field type"
	case isCorrupted(field.Type.FullName):
		return fmt.Sprintf("corrupted field type '%s'", field.Type.FullName)
	case !naming.IsASCII(field.Name):
		return "non-ASCII field name"
	case !s.ctx.IsValid(field.Type.FullName):
		return fmt.Sprintf("field type '%s' is not generated", field.Type.FullName)
	}
	return ""
}

// Reports whether method re-declares a member of an eligible ancestor. baseName is the
// method's member name without accessor prefix.
func (s *synthesizer) methodShadows(method *metadata.Method, baseName string) bool {
	if method == nil || !s.hasBase() {
		return false
	}

	if extension, found := s.ctx.Provider.MethodExtension(method); found && extension.Override {
		for _, parent := range extension.MatchingParents {
			if s.eligible(parent.DeclaringType) {
				return true
			}
		}
	}

	return s.parentDeclares(baseName)
}

func (s *synthesizer) propertyShadows(property *pseudoProperty) bool {
	return s.methodShadows(property.getter, property.name) || s.methodShadows(property.setter, property.name)
}

func (s *synthesizer) fieldShadows(field *metadata.Field) bool {
	if !s.hasBase() {
		return false
	}
	return s.parentDeclares(naming.CleanFieldName(field.Name))
}

// Whether the parent chain declares a field, backing field or accessor called name on an
// eligible type.
func (s *synthesizer) parentDeclares(name string) bool {
	parent := s.t.Parent
	if parent == nil {
		return false
	}

	backingField := naming.BackingFieldName(name)
	for _, field := range parent.Fields {
		if (field.Name == name || field.Name == backingField) && s.eligible(field.DeclaringType) {
			return true
		}
	}
	for _, method := range parent.Methods {
		if (method.Name == getterPrefix+name || method.Name == setterPrefix+name) && s.eligible(method.DeclaringType) {
			return true
		}
	}
	return false
}

func (s *synthesizer) eligible(t *metadata.Type) bool {
	return t != nil && s.ctx.IsValid(t.FullName)
}

// Whether the proxy has an ancestor in the generation set. Records never do.
func (s *synthesizer) hasBase() bool {
	return s.base != nil
}

// The single nearest ancestor that has a proxy of its own. Ancestors outside the generation
// set, generic instantiations included, are stepped over.
func (s *synthesizer) nearestBase() *metadata.Type {
	for parent := s.t.Parent; parent != nil; parent = parent.Parent {
		if !s.eligible(parent) {
			continue
		}
		name := s.ctx.Rename(parent)
		if name == "" || strings.HasPrefix(name, "[") || strings.Contains(name, "<") {
			break
		}
		if s.ctx.ResolveType(parent).IsBuiltin() {
			continue
		}
		return parent
	}
	return nil
}
