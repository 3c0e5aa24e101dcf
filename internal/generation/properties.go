package generation

import (
	"slices"
	"strings"

	"proxygen/internal/metadata"
	"proxygen/internal/naming"
)

const (
	getterPrefix  = "get_"
	setterPrefix  = "set_"
	indexerGetter = "get_Item"
	indexerSetter = "set_Item"
)

// A property recovered from get_/set_ accessor methods.
type pseudoProperty struct {
	name      string
	getter    *metadata.Method
	setter    *metadata.Method
	valueType *metadata.Type
	indexer   bool
	indexType *metadata.Type
}

// The type's own members after property inference, in declaration order.
type memberModel struct {
	properties []*pseudoProperty
	methods    []*metadata.Method
	fields     []*metadata.Field
}

func (m *memberModel) property(name string) *pseudoProperty {
	for _, property := range m.properties {
		if property.name == name {
			return property
		}
	}
	property := &pseudoProperty{name: name}
	m.properties = append(m.properties, property)
	return property
}

func (m *memberModel) removeProperty(name string) {
	m.properties = slices.DeleteFunc(m.properties, func(property *pseudoProperty) bool {
		return property.name == name
	})
}

func (m *memberModel) removeAccessors(name string) {
	m.methods = slices.DeleteFunc(m.methods, func(method *metadata.Method) bool {
		return method.Name == getterPrefix+name || method.Name == setterPrefix+name
	})
}

// Scans the type's own methods and fields. Accessor pairs become pseudo properties and
// fields win over same-named properties and accessors.
func (s *synthesizer) inferMembers() memberModel {
	model := memberModel{}

	for _, method := range s.t.Methods {
		// Means we've entered the parent type
		if method.DeclaringType != s.t {
			break
		}

		if method.Name == "" {
			continue
		}

		if method.ReturnType == nil || method.ReturnType.FullName == "" {
			s.skip(method.Name, "method has a null return type")
			continue
		}

		if !s.inferAccessor(&model, method) {
			model.methods = append(model.methods, method)
		}
	}

	for _, field := range s.t.Fields {
		// Means we've entered the parent type
		if field.DeclaringType != s.t {
			break
		}

		if field.Name == "" {
			continue
		}

		if field.Type == nil || field.Type.FullName == "" {
			s.skip(field.Name, "field has a null field type")
			continue
		}

		model.fields = append(model.fields, field)

		name := naming.CleanFieldName(field.Name)
		model.removeAccessors(name)
		model.removeProperty(name)
	}

	return model
}

// Records method as a property accessor. Reports false for ordinary methods.
func (s *synthesizer) inferAccessor(model *memberModel, method *metadata.Method) bool {
	params := method.Params

	switch {
	case strings.HasPrefix(method.Name, getterPrefix) && !method.ReturnType.IsVoid():
		name := method.Name[len(getterPrefix):]
		switch {
		case len(params) == 0:
			property := model.property(name)
			property.getter = method
			property.valueType = method.ReturnType
		case len(params) == 1 && method.Name == indexerGetter:
			property := model.property(name)
			property.getter = method
			property.valueType = method.ReturnType
			property.indexer = true
			property.indexType = params[0].Type
		default:
			return false
		}
		return true

	case strings.HasPrefix(method.Name, setterPrefix):
		name := method.Name[len(setterPrefix):]
		switch {
		case len(params) == 1:
			property := model.property(name)
			property.setter = method
			property.valueType = params[0].Type
		case len(params) == 2 && method.Name == indexerSetter:
			property := model.property(name)
			property.setter = method
			property.valueType = params[1].Type
			property.indexer = true
			property.indexType = params[0].Type
		default:
			return false
		}
		return true
	}

	return false
}
