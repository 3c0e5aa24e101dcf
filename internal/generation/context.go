// Package generation synthesizes proxy declarations from foreign runtime metadata.
package generation

import (
	"math"

	"proxygen/internal/metadata"
)

// The runtime keeps member tables addressable by a 16-bit index; stay clear of its end.
const DefaultMaxFields = (math.MaxUint16 - 15) / 2

// Method names that never produce a proxy member.
var DefaultExcludedMethods = []string{
	"Finalize",
	".ctor",
	".cctor",
	// Ancestors declare the same name with constructed generic arguments, which proxies
	// cannot express yet.
	"sortCountList",
}

type Options struct {
	MaxFields       int
	ExcludedMethods []string
}

func DefaultOptions() Options {
	return Options{
		MaxFields:       DefaultMaxFields,
		ExcludedMethods: DefaultExcludedMethods,
	}
}

// Read-only tables consulted during a generation pass. A Context is built once, before
// generation starts, and passed explicitly to every synthesis call.
type Context struct {
	Provider metadata.Provider
	// Full names of the types eligible for generation.
	ValidTypes map[string]bool
	// Full name -> replacement full name.
	Renames map[string]string
	Options Options

	excluded map[string]bool
}

func NewContext(provider metadata.Provider, validTypes map[string]bool, renames map[string]string, options Options) *Context {
	if validTypes == nil {
		validTypes = map[string]bool{}
	}
	if renames == nil {
		renames = map[string]string{}
	}
	if options.MaxFields <= 0 {
		options.MaxFields = DefaultMaxFields
	}

	excluded := make(map[string]bool, len(options.ExcludedMethods))
	for _, name := range options.ExcludedMethods {
		excluded[name] = true
	}

	return &Context{
		Provider:   provider,
		ValidTypes: validTypes,
		Renames:    renames,
		Options:    options,
		excluded:   excluded,
	}
}

// Reports whether the type is eligible for generation. Primitive runtime types are always
// representable.
func (ctx *Context) IsValid(fullName string) bool {
	if fullName == "" || fullName == metadata.VoidTypeName {
		return false
	}
	if _, found := primitiveKeywords[fullName]; found {
		return true
	}
	return ctx.ValidTypes[fullName]
}

func (ctx *Context) Rename(t *metadata.Type) string {
	if renamed, found := ctx.Renames[t.FullName]; found {
		return renamed
	}
	return t.FullName
}

func (ctx *Context) IsExcludedMethod(name string) bool {
	return ctx.excluded[name]
}
