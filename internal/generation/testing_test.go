package generation

import (
	"strings"
	"testing"

	"proxygen/internal/decl"
	"proxygen/internal/metadata"
	"proxygen/internal/render"
)

func loadDump(t *testing.T, dump string) *metadata.Graph {
	t.Helper()
	graph, err := metadata.ParseDump([]byte(dump))
	if err != nil {
		t.Fatalf("parsing dump: %v", err)
	}
	return graph
}

var generatorOutput = render.Options{ModulePath: "example.com/proxies", RuntimeImport: "example.com/rt"}

// Registers every top-level type of the dump and returns the resulting context.
func newTestContext(t *testing.T, dump string, exclude ...string) (*Generator, *Context) {
	t.Helper()
	generator := NewGenerator(loadDump(t, dump), DefaultOptions(), generatorOutput)
	generator.Exclude = func(fullName string) bool {
		for _, name := range exclude {
			if name == fullName {
				return true
			}
		}
		return false
	}
	generator.RegisterAll()
	return generator, generator.Context()
}

func synthesizeNamed(t *testing.T, ctx *Context, fullName string) *Result {
	t.Helper()
	element := ctx.Provider.FindType(fullName)
	if element == nil {
		t.Fatalf("type %s not found", fullName)
	}
	result := Synthesize(ctx, element)
	if result.Decl == nil {
		t.Fatalf("no declaration for %s: %v", fullName, result.Diagnostics)
	}
	return result
}

func assertOutline(t *testing.T, declaration *decl.Type, want string) {
	t.Helper()
	got := strings.TrimSpace(declaration.Outline())
	want = strings.TrimSpace(want)
	if got != want {
		t.Fatalf("unexpected outline\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func hasDiagnostic(diagnostics []Diagnostic, member string, reason string) bool {
	for _, diagnostic := range diagnostics {
		if diagnostic.Member == member && strings.Contains(diagnostic.Reason, reason) {
			return true
		}
	}
	return false
}

func findProperty(t *testing.T, declaration *decl.Type, name string) *decl.Property {
	t.Helper()
	for _, property := range declaration.Properties() {
		if property.Name == name {
			return property
		}
	}
	t.Fatalf("property %s not found in\n%s", name, declaration.Outline())
	return nil
}

func findMethod(t *testing.T, declaration *decl.Type, name string) *decl.Method {
	t.Helper()
	for _, method := range declaration.Methods() {
		if method.Name == name {
			return method
		}
	}
	t.Fatalf("method %s not found in\n%s", name, declaration.Outline())
	return nil
}
