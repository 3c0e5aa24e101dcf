package generation

import (
	"strings"
)

// Runs the whole pipeline on every nested type and splices the results into the parent.
// Array specializations of a nested type come right before it.
func (s *synthesizer) generateNested() {
	for _, nested := range s.ctx.Provider.NestedTypes(s.t) {
		name := nested.Name()
		if name == "" || strings.ContainsAny(name, "[]<") {
			s.result.skipType(nested, "unrepresentable nested type name")
			continue
		}
		if !s.ctx.IsValid(nested.FullName) {
			s.result.skipType(nested, "nested type is not generated")
			continue
		}

		if nested.IsEnum() {
			if declaration := synthesizeType(s.ctx, nested, s.result); declaration != nil {
				s.addNested(declaration)
			}
			continue
		}

		for _, array := range s.ctx.Provider.ArrayTypes(nested) {
			if declaration := synthesizeType(s.ctx, array, s.result); declaration != nil {
				s.addNested(declaration)
			}
		}

		if declaration := synthesizeType(s.ctx, nested, s.result); declaration != nil {
			s.addNested(declaration)
		}
	}
}
