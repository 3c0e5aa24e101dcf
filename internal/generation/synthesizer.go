package generation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"proxygen/internal"
	"proxygen/internal/decl"
	"proxygen/internal/logger"
	"proxygen/internal/metadata"
	"proxygen/internal/naming"
)

var errNoDeclaration = errors.New("members added before the type declaration exists")

// A member or type that was dropped during synthesis.
type Diagnostic struct {
	Type   string
	Member string
	Reason string
}

func (d Diagnostic) String() string {
	if d.Member == "" {
		return fmt.Sprintf("%s: %s", d.Type, d.Reason)
	}
	return fmt.Sprintf("%s::%s: %s", d.Type, d.Member, d.Reason)
}

// Result of synthesizing one foreign type, including its nested types. Decl is nil when the
// type produced no declaration.
type Result struct {
	Decl        *decl.Type
	Diagnostics []Diagnostic
}

// Builds the proxy declaration for t.
func Synthesize(ctx *Context, t *metadata.Type) *Result {
	result := &Result{}
	result.Decl = synthesizeType(ctx, t, result)
	return result
}

func synthesizeType(ctx *Context, t *metadata.Type, result *Result) *decl.Type {
	name := declarationName(ctx, t)
	if name == "" {
		result.skipType(t, "type has no usable name")
		return nil
	}

	if t.IsEnum() {
		return synthesizeEnum(ctx, t, name, result)
	}

	s := &synthesizer{
		ctx:    ctx,
		t:      t,
		name:   name,
		scope:  newNameScope(),
		seen:   map[string]bool{},
		result: result,
	}
	s.model = s.inferMembers()

	var declaration *decl.Type
	if t.IsValueType() {
		declaration = s.generateValueType()
	} else {
		declaration = s.generateReferenceType()
	}

	if declaration != nil {
		logger.LogTypeGenerated(t.FullName, len(declaration.Members), len(declaration.Nested))
	}
	return declaration
}

// The simple proxy name: the last segment of the (renamed) full name.
func declarationName(ctx *Context, t *metadata.Type) string {
	fixed := naming.FixBadChars(ctx.Rename(t))
	if fixed == "" {
		return ""
	}
	if idx := strings.LastIndex(fixed, "."); idx >= 0 {
		fixed = fixed[idx+1:]
	}
	if fixed == "" {
		return ""
	}
	return naming.Export(fixed)
}

// Per-type synthesis state. One synthesizer builds exactly one declaration.
type synthesizer struct {
	ctx    *Context
	t      *metadata.Type
	name   string
	model  memberModel
	decl   *decl.Type
	base   *metadata.Type
	scope  *nameScope
	result *Result

	// Overload keys already emitted.
	seen map[string]bool
}

func (s *synthesizer) begin(shape decl.Shape) {
	s.decl = &decl.Type{
		Name:      s.name,
		FullName:  s.t.FullName,
		Namespace: s.t.Root().Namespace,
		Shape:     shape,
		Hides:     nestedTypeExistsInParent(s.ctx, s.t),
	}

	// Nested proxies are printed as Outer_Inner, next to Outer_Member statics.
	for _, nested := range s.ctx.Provider.NestedTypes(s.t) {
		if name := declarationName(s.ctx, nested); name != "" {
			s.scope.used[name] = true
		}
	}
}

func (s *synthesizer) addMembers(members ...decl.Member) {
	if s.decl == nil {
		internal.PanicOnError(errNoDeclaration)
	}
	next := s.decl.AddMembers(members...)
	s.decl = &next
}

func (s *synthesizer) addHandle(handle decl.Handle) {
	if s.decl == nil {
		internal.PanicOnError(errNoDeclaration)
	}
	next := s.decl.AddHandles(handle)
	s.decl = &next
}

func (s *synthesizer) addNested(nested *decl.Type) {
	if s.decl == nil {
		internal.PanicOnError(errNoDeclaration)
	}
	next := s.decl.AddNested(nested)
	s.decl = &next
}

func (s *synthesizer) skip(member string, reason string) {
	s.result.skipMember(s.t, member, reason)
}

func (r *Result) skipMember(t *metadata.Type, member string, reason string) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{Type: t.FullName, Member: member, Reason: reason})
	logger.LogSkippedMember(t.FullName, member, reason)
}

func (r *Result) skipType(t *metadata.Type, reason string) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{Type: t.FullName, Reason: reason})
	logger.LogSkippedType(t.FullName, reason)
}

// A cached lookup for a foreign method, keyed by the method's stable index.
func (s *synthesizer) methodHandle(memberName string, method *metadata.Method) string {
	name := naming.Export(naming.FixBadChars(memberName)) + strconv.FormatUint(uint64(method.Index), 10)
	s.addHandle(decl.Handle{
		Name:   name,
		Kind:   decl.HandleMethod,
		Index:  method.Index,
		Lookup: method.Signature(),
	})
	return name
}

func (s *synthesizer) fieldHandle(memberName string, field *metadata.Field) string {
	name := naming.Export(naming.FixBadChars(memberName)) + strconv.FormatUint(uint64(field.Index), 10)
	s.addHandle(decl.Handle{
		Name:   name,
		Kind:   decl.HandleField,
		Index:  field.Index,
		Lookup: field.Name,
	})
	return name
}

// Nested types hide a same-named nested type declared by an eligible ancestor of the
// enclosing type.
func nestedTypeExistsInParent(ctx *Context, t *metadata.Type) bool {
	declaring := t.DeclaringType
	if declaring == nil {
		return false
	}
	name := t.Name()
	for parent := declaring.Parent; parent != nil; parent = parent.Parent {
		if !ctx.IsValid(parent.FullName) {
			continue
		}
		for _, nested := range ctx.Provider.NestedTypes(parent) {
			if nested.Name() == name {
				return true
			}
		}
	}
	return false
}

// The Go name of a foreign member.
func memberName(name string) string {
	return naming.Export(naming.FixBadChars(name))
}
