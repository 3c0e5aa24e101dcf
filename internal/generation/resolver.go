package generation

import (
	"strings"

	"proxygen/internal/decl"
	"proxygen/internal/metadata"
	"proxygen/internal/naming"
)

// The map of runtime primitives to Go equivalents
var primitiveKeywords map[string]string = map[string]string{
	"System.Single":  "float32",
	"System.Double":  "float64",
	"System.Int32":   "int32",
	"System.UInt32":  "uint32",
	"System.Int16":   "int16",
	"System.UInt16":  "uint16",
	"System.Byte":    "uint8",
	"System.SByte":   "int8",
	"System.Char":    "uint16",
	"System.Int64":   "int64",
	"System.IntPtr":  "int64",
	"System.UInt64":  "uint64",
	"System.UIntPtr": "uint64",
	"System.Boolean": "bool",
	"System.String":  "string",
	"System.Object":  "any",

	metadata.ManagedObjectName: "any",
}

// Maps a foreign type reference to a Go type expression. Anything that cannot be named
// (absent, void, ineligible, generic or bracketed) resolves to the opaque object type.
func (ctx *Context) ResolveType(t *metadata.Type) decl.TypeExpr {
	if t == nil || t.FullName == "" || t.IsVoid() {
		return decl.Opaque
	}

	if keyword, found := primitiveKeywords[t.FullName]; found {
		return decl.Builtin(keyword)
	}

	if !ctx.IsValid(t.FullName) || isUnrepresentable(t.FullName) {
		return decl.Opaque
	}

	name := ctx.Rename(t)
	if name == "" || isUnrepresentable(name) {
		return decl.Opaque
	}

	namespace, ident := naming.SplitTypeName(name, t.Root().Namespace)
	return decl.Ref(namespace, ident)
}

// Generic instantiations, arrays and corrupted names have no proxy of their own.
func isUnrepresentable(name string) bool {
	return strings.ContainsAny(name, "<>[]`!")
}

// Marks a type name the runtime could not describe.
func isCorrupted(name string) bool {
	return strings.ContainsRune(name, '!')
}

// The byte size of a value of type t when stored inline, zero when unknown.
func inlineSize(t *metadata.Type) uint32 {
	if t == nil {
		return 0
	}
	if size, found := primitiveSizes[t.FullName]; found {
		return size
	}
	if !t.IsValueType() {
		return pointerSize
	}
	if t.IsEnum() {
		for _, field := range t.Fields {
			if field.DeclaringType == t && !field.Static {
				return inlineSize(field.Type)
			}
		}
	}
	return t.Size
}

const pointerSize = 8

var primitiveSizes map[string]uint32 = map[string]uint32{
	"System.Boolean": 1,
	"System.SByte":   1,
	"System.Byte":    1,
	"System.Char":    2,
	"System.Int16":   2,
	"System.UInt16":  2,
	"System.Int32":   4,
	"System.UInt32":  4,
	"System.Single":  4,
	"System.Int64":   8,
	"System.UInt64":  8,
	"System.Double":  8,
	"System.IntPtr":  pointerSize,
	"System.UIntPtr": pointerSize,
}
