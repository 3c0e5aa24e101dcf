package generation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"proxygen/internal/decl"
	"proxygen/internal/logger"
	"proxygen/internal/metadata"
	"proxygen/internal/render"
)

type Generator struct {
	Provider metadata.Provider
	Options  Options
	Renames  map[string]string
	// Reports full names left out of the generation set.
	Exclude func(fullName string) bool
	Output  render.Options
	DryRun  bool

	roots      []*metadata.Type
	registered map[string]bool
}

// Totals of one generation run.
type Summary struct {
	Types       int
	Files       int
	Diagnostics []Diagnostic
}

func NewGenerator(provider metadata.Provider, options Options, output render.Options) *Generator {
	return &Generator{
		Provider:   provider,
		Options:    options,
		Renames:    map[string]string{},
		Output:     output,
		registered: map[string]bool{},
	}
}

// Queues a top-level type for generation. Nested types are generated with their parent.
func (generator *Generator) RegisterType(element *metadata.Type) {
	for element.DeclaringType != nil {
		element = element.DeclaringType
	}
	if generator.registered[element.FullName] || !generator.isCandidate(element) {
		return
	}
	generator.registered[element.FullName] = true
	generator.roots = append(generator.roots, element)
}

// Queues every top-level type in the namespace. Returns how many were found.
func (generator *Generator) RegisterNamespace(namespace string) int {
	count := 0
	for _, element := range generator.Provider.Types() {
		if element.DeclaringType == nil && element.Namespace == namespace && generator.isCandidate(element) {
			generator.RegisterType(element)
			count++
		}
	}
	return count
}

// Registers a full type name, falling back to a namespace.
func (generator *Generator) Register(name string) bool {
	if element := generator.Provider.FindType(name); element != nil {
		generator.RegisterType(element)
		return true
	}
	return generator.RegisterNamespace(name) > 0
}

func (generator *Generator) RegisterAll() {
	for _, element := range generator.Provider.Types() {
		if element.DeclaringType == nil {
			generator.RegisterType(element)
		}
	}
}

// Array specializations and runtime built-ins never get files of their own.
func (generator *Generator) isCandidate(element *metadata.Type) bool {
	switch {
	case element.Primitive, element.IsVoid(), element.ObjKind == metadata.ObjArray:
		return false
	case !representable(element.FullName):
		return false
	case generator.Exclude != nil && generator.Exclude(element.FullName):
		return false
	}
	_, builtin := primitiveKeywords[element.FullName]
	return !builtin
}

func representable(fullName string) bool {
	return fullName != "" && !strings.ContainsAny(fullName, "<!`")
}

// Builds the read-only tables every synthesis call consults. Only registered types, their
// nested types and array specializations are valid, so every reference in the output names
// a proxy that is generated in the same run.
func (generator *Generator) Context() *Context {
	valid := map[string]bool{}
	var mark func(element *metadata.Type)
	mark = func(element *metadata.Type) {
		if element.IsVoid() || !representable(element.FullName) || valid[element.FullName] {
			return
		}
		if generator.Exclude != nil && generator.Exclude(element.FullName) {
			return
		}
		valid[element.FullName] = true
		for _, nested := range generator.Provider.NestedTypes(element) {
			mark(nested)
		}
		for _, array := range generator.Provider.ArrayTypes(element) {
			mark(array)
		}
	}
	for _, root := range generator.roots {
		mark(root)
	}
	return NewContext(generator.Provider, valid, generator.Renames, generator.Options)
}

// Synthesizes every registered type, each followed by its array specializations.
func (generator *Generator) Synthesize() ([]*decl.Type, []Diagnostic) {
	ctx := generator.Context()
	declarations := []*decl.Type{}
	diagnostics := []Diagnostic{}

	for _, root := range generator.roots {
		elements := append([]*metadata.Type{root}, generator.Provider.ArrayTypes(root)...)
		for _, element := range elements {
			result := Synthesize(ctx, element)
			diagnostics = append(diagnostics, result.Diagnostics...)
			if result.Decl != nil {
				declarations = append(declarations, result.Decl)
			}
		}
	}

	return declarations, diagnostics
}

// Synthesizes, renders and writes every registered type below path.
func (generator *Generator) Generate(path string) (Summary, error) {
	declarations, diagnostics := generator.Synthesize()
	summary := Summary{Types: len(declarations), Diagnostics: diagnostics}

	if !generator.DryRun {
		err := os.MkdirAll(path, os.ModePerm)
		if err != nil && !errors.Is(err, fs.ErrExist) {
			return summary, err
		}
	}

	printer := render.NewPrinter(generator.Output)
	seen := map[string]bool{}
	slices.SortStableFunc(declarations, func(a, b *decl.Type) int {
		return strings.Compare(a.FullName, b.FullName)
	})

	for _, declaration := range declarations {
		target := printer.FilePath(path, declaration)
		if seen[target] {
			return summary, fmt.Errorf("two proxies map to the same file '%s'", target)
		}
		seen[target] = true

		if generator.DryRun {
			if _, err := printer.Render(declaration); err != nil {
				return summary, fmt.Errorf("rendering %s: %w", declaration.FullName, err)
			}
			continue
		}

		if err := printer.Save(declaration, target); err != nil {
			return summary, fmt.Errorf("writing %s: %w", declaration.FullName, err)
		}
		logger.LogFileWritten(target, 1+countNested(declaration))
		summary.Files++
	}

	return summary, nil
}

func countNested(declaration *decl.Type) int {
	count := 0
	for _, nested := range declaration.Nested {
		count += 1 + countNested(nested)
	}
	return count
}
