package generation

import (
	"strconv"
	"strings"

	"proxygen/internal/metadata"
	"proxygen/internal/naming"
)

// Go has no overloading, so every member of a proxy needs a distinct identifier, including
// against the members it inherits through embedded bases.
type nameScope struct {
	used      map[string]bool
	inherited map[string]bool
}

func newNameScope() *nameScope {
	return &nameScope{used: map[string]bool{}, inherited: map[string]bool{}}
}

// Static members are printed as package-level Outer_Member functions, so only the proxy's own
// names can collide with them.
func (n *nameScope) taken(name string, static bool) bool {
	return n.used[name] || (!static && n.inherited[name])
}

// Reserves name, appending an ordinal when it is already taken.
func (n *nameScope) claim(name string, static bool) string {
	candidate := name
	for ordinal := 2; n.taken(candidate, static); ordinal++ {
		candidate = name + strconv.Itoa(ordinal)
	}
	n.used[candidate] = true
	return candidate
}

// Reserves a property name together with its setter name.
func (n *nameScope) claimProperty(name string, static bool) string {
	candidate := name
	for ordinal := 2; n.taken(candidate, static) || n.taken(setterName(candidate), static); ordinal++ {
		candidate = name + strconv.Itoa(ordinal)
	}
	n.used[candidate] = true
	n.used[setterName(candidate)] = true
	return candidate
}

func setterName(property string) string {
	return "Set" + property
}

// Marks every name an eligible ancestor may declare. Ancestors without a proxy contribute
// nothing to the embedded interfaces.
func (n *nameScope) inherit(base *metadata.Type, eligible func(*metadata.Type) bool) {
	for ancestor := base; ancestor != nil; ancestor = ancestor.Parent {
		if !eligible(ancestor) {
			continue
		}
		for _, method := range ancestor.Methods {
			if method.DeclaringType != ancestor {
				break
			}
			n.inherited[memberName(method.Name)] = true
			for _, prefix := range []string{getterPrefix, setterPrefix} {
				if property, found := strings.CutPrefix(method.Name, prefix); found {
					n.inherited[memberName(property)] = true
					n.inherited[setterName(memberName(property))] = true
				}
			}
		}
		for _, field := range ancestor.Fields {
			if field.DeclaringType != ancestor {
				break
			}
			property := memberName(naming.CleanFieldName(field.Name))
			n.inherited[property] = true
			n.inherited[setterName(property)] = true
		}
	}
}
