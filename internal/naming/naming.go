// Package naming turns foreign runtime names into Go identifiers and package paths.
package naming

import (
	"go/token"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const backingFieldSuffix = ">k__BackingField"

// Replacements applied, in order, to names carrying generic or array decoration.
var badCharReplacer = strings.NewReplacer(
	"[,,]", "_Array3D",
	"[,]", "_Array2D",
	"[]", "_Array",
	"`", "_",
	"<", "_",
	">", "_",
	"+", ".",
	"/", ".",
	"-", "_",
	" ", "",
	",", "_",
	"&", "",
	"*", "Ptr",
)

// Rewrites characters that cannot appear in a Go identifier. Dots are kept since they
// separate namespaces and enclosing types.
func FixBadChars(name string) string {
	return badCharReplacer.Replace(name)
}

// Strips compiler-generated backing field decoration: "<Count>k__BackingField" -> "Count".
func CleanFieldName(name string) string {
	if strings.HasPrefix(name, "<") && strings.HasSuffix(name, "k__BackingField") {
		if end := strings.Index(name, backingFieldSuffix); end > 0 {
			return name[1:end]
		}
	}
	return name
}

// The compiler-generated backing field name for a property.
func BackingFieldName(property string) string {
	return "<" + property + backingFieldSuffix
}

func IsASCII(name string) bool {
	for i := 0; i < len(name); i++ {
		if name[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// Makes the name an exported Go identifier.
func Export(name string) string {
	name = strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, name)
	if name == "" {
		return "X"
	}

	name = cases.Title(language.Und, cases.NoLower).String(name)
	first, _ := utf8.DecodeRuneInString(name)
	if !unicode.IsUpper(first) {
		name = "X" + name
	}
	return name
}

// Renames parameter names that collide with Go keywords or predeclared identifiers the
// generated code relies on.
func ParamName(name string) string {
	if token.IsKeyword(name) || reservedParamNames[name] {
		return name + "_"
	}
	return name
}

var reservedParamNames = map[string]bool{
	"any":     true,
	"object":  true,
	"unsafe":  true,
	"reflect": true,
	"math":    true,
	"rt":      true,
	"args":    true,
	"ret":     true,
	"self":    true,
	"value":   true,
}

// Splits a (possibly renamed) full name into its namespace and a flattened Go identifier.
// Enclosing type names are joined with underscores.
func SplitTypeName(fullName string, namespace string) (string, string) {
	fixed := FixBadChars(fullName)
	rel := fixed
	switch {
	case namespace == "":
	case strings.HasPrefix(fixed, namespace+"."):
		rel = fixed[len(namespace)+1:]
	default:
		// Renamed into another namespace.
		if idx := strings.LastIndex(fixed, "."); idx > 0 {
			namespace, rel = fixed[:idx], fixed[idx+1:]
		}
	}

	segments := strings.Split(rel, ".")
	for i, segment := range segments {
		segments[i] = Export(segment)
	}
	return namespace, strings.Join(segments, "_")
}

// The import path of the Go package that holds proxies for a namespace.
func PackagePath(modulePath string, namespace string) string {
	if namespace == "" {
		return path.Join(modulePath, "global")
	}
	parts := strings.Split(strings.ToLower(namespace), ".")
	for i, part := range parts {
		parts[i] = PackageName(part)
	}
	return path.Join(append([]string{modulePath}, parts...)...)
}

// A valid Go package name for the last segment of a namespace.
func PackageName(segment string) string {
	segment = strings.ToLower(strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return -1
	}, segment))
	if segment == "" {
		return "global"
	}
	if token.IsKeyword(segment) || unicode.IsDigit(rune(segment[0])) {
		return "ns" + segment
	}
	return segment
}
