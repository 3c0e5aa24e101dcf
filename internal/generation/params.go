package generation

import (
	"fmt"
	"strconv"
	"strings"

	"proxygen/internal/decl"
	"proxygen/internal/metadata"
	"proxygen/internal/naming"
)

// A method's parameters in proxy form, with the facts both emitters need.
type paramList struct {
	params []decl.Param
	facts  []metadata.Parameter
	// Overload identity: name plus one token per parameter.
	key    string
	hasOut bool
	unsafe bool
}

// Builds the parameter list and overload key for method. Reports false when the method
// must be skipped.
func (s *synthesizer) buildParams(method *metadata.Method, name string) (paramList, bool) {
	facts := method.Params
	if len(facts) > 0 {
		runtime, found := s.ctx.Provider.RuntimeParameters(method)
		if !found {
			s.skip(method.Name, "runtime parameters unavailable")
			return paramList{}, false
		}
		facts = runtime
	}

	list := paramList{
		params: make([]decl.Param, 0, len(facts)),
		facts:  facts,
	}
	tokens := make([]string, 0, len(facts))
	used := map[string]bool{}
	unnamed := 0

	for i, fact := range facts {
		if fact.Type != nil && isCorrupted(fact.Type.FullName) {
			s.skip(method.Name, fmt.Sprintf("corrupted parameter type '%s'", fact.Type.FullName))
			return paramList{}, false
		}

		paramName := fact.Name
		if paramName == "" {
			paramName = "arg" + strconv.Itoa(unnamed)
			unnamed++
		}
		paramName = naming.ParamName(paramName)
		if used[paramName] {
			paramName += strconv.Itoa(i)
		}
		used[paramName] = true

		param := decl.Param{Name: paramName, Type: s.ctx.ResolveType(fact.Type)}

		switch {
		case fact.Out:
			param.Mode = decl.PassOut
			list.hasOut = true
			tokens = append(tokens, "out")
		case fact.ByRef:
			param.Mode = decl.PassRef
			tokens = append(tokens, "ref "+param.Type.String())
		case fact.Pointer:
			param.Mode = decl.PassPointer
			list.unsafe = true
			tokens = append(tokens, "ptr "+param.Type.String())
		default:
			param.Mode = decl.PassValue
			tokens = append(tokens, param.Type.String())
		}

		list.params = append(list.params, param)
	}

	list.key = name + "(" + strings.Join(tokens, ",") + ")"
	return list, true
}

// Positional arguments for a boxed call.
func (p paramList) boxedArgs() []decl.BoxedArg {
	args := make([]decl.BoxedArg, 0, len(p.params))
	for _, param := range p.params {
		args = append(args, decl.BoxedArg{Name: param.Name, Address: param.Mode == decl.PassPointer})
	}
	return args
}
