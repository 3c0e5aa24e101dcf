package metadata

import (
	"strings"
	"testing"
)

const sampleDump = `{
	"version": "1.2",
	"types": [
		{
			"name": "app.Base",
			"index": 1,
			"parent": "System.Object",
			"methods": [
				{"name": "Update", "index": 10, "returns": "System.Void"}
			],
			"fields": [
				{"name": "id", "index": 11, "type": "System.Int32", "offset": 16}
			]
		},
		{
			"name": "app.Derived",
			"index": 2,
			"parent": "app.Base",
			"methods": [
				{"name": "Update", "index": 20, "returns": "System.Void", "override": true, "overrides": [10]},
				{"name": "Move", "index": 21, "returns": "System.Boolean", "params": [
					{"name": "x", "type": "System.Single"},
					{"name": "hit", "type": "app.Base", "out": true}
				]}
			]
		},
		{"name": "app.Derived.Kind", "index": 3, "kind": "enum", "declaringType": "app.Derived", "fields": [
			{"name": "value__", "index": 30, "type": "System.Int32"},
			{"name": "A", "index": 31, "type": "app.Derived.Kind", "static": true, "value": -4}
		]},
		{"name": "app.Derived[]", "index": 4, "objectKind": "array", "elementType": "app.Derived"},
		{"name": "Global", "index": 5, "kind": "struct", "size": 12}
	]
}`

func TestParseDump(t *testing.T) {
	graph, err := ParseDump([]byte(sampleDump))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	base := graph.FindType("app.Base")
	derived := graph.FindType("app.Derived")
	if base == nil || derived == nil {
		t.Fatal("expected both classes to be loaded")
	}
	if derived.Parent != base || base.Parent.FullName != ObjectTypeName {
		t.Fatalf("unexpected parent chain %v -> %v", derived.Parent, base.Parent)
	}
	if base.Namespace != "app" || derived.Namespace != "app" {
		t.Fatalf("unexpected namespaces %q %q", base.Namespace, derived.Namespace)
	}

	// Own members first, inherited after.
	if len(derived.Methods) != 3 || derived.Methods[2].DeclaringType != base {
		t.Fatalf("unexpected method layout %v", derived.Methods)
	}
	if len(derived.Fields) != 1 || derived.Fields[0].DeclaringType != base || derived.Fields[0].Offset != 16 {
		t.Fatalf("unexpected field layout %v", derived.Fields)
	}

	update := derived.Methods[0]
	extension, found := graph.MethodExtension(update)
	if !found || !extension.Override || len(extension.MatchingParents) != 1 || extension.MatchingParents[0] != base.Methods[0] {
		t.Fatalf("unexpected override data %+v", extension)
	}
	if _, found := graph.MethodExtension(base.Methods[0]); found {
		t.Fatal("methods without override data have no extension")
	}

	move := derived.Methods[1]
	params, found := graph.RuntimeParameters(move)
	if !found || len(params) != 2 || !params[1].Out || params[1].Type != base {
		t.Fatalf("unexpected parameters %+v", params)
	}
	if got := move.Signature(); got != "Move(System.Single, app.Base)" {
		t.Fatalf("unexpected signature %s", got)
	}
}

func TestParseDumpNestedAndArrays(t *testing.T) {
	graph, err := ParseDump([]byte(sampleDump))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	derived := graph.FindType("app.Derived")

	nested := graph.NestedTypes(derived)
	if len(nested) != 1 || nested[0].Name() != "Kind" || !nested[0].IsEnum() {
		t.Fatalf("unexpected nested types %v", nested)
	}
	if nested[0].Namespace != "app" || nested[0].Root() != derived {
		t.Fatalf("nested types live in the namespace of their root, got %q", nested[0].Namespace)
	}
	if constant := nested[0].Fields[1].Constant; constant == nil || *constant != -4 {
		t.Fatalf("unexpected enum constant %v", constant)
	}

	arrays := graph.ArrayTypes(derived)
	if len(arrays) != 1 || arrays[0].ObjKind != ObjArray {
		t.Fatalf("unexpected array types %v", arrays)
	}

	global := graph.FindType("Global")
	if global.Namespace != "" || global.Name() != "Global" || !global.IsValueType() || global.Size != 12 {
		t.Fatalf("unexpected global type %+v", global)
	}

	single := graph.FindType("System.Single")
	if single == nil || !single.Primitive || !single.IsValueType() {
		t.Fatalf("referenced primitives get stubs, got %+v", single)
	}
}

func TestParseDumpErrors(t *testing.T) {
	tests := []struct {
		name string
		dump string
		want string
	}{
		{"not json", `{`, "decoding metadata dump"},
		{"no version", `{"types": []}`, "no format version"},
		{"future version", `{"version": "2.0", "types": []}`, "unsupported dump format version"},
		{"bad version", `{"version": "one", "types": []}`, "parsing dump format version"},
		{"unnamed type", `{"version": "1.0", "types": [{"index": 3}]}`, "has no name"},
		{"duplicate", `{"version": "1.0", "types": [{"name": "a.A"}, {"name": "a.A"}]}`, "duplicate type"},
		{"bad kind", `{"version": "1.0", "types": [{"name": "a.A", "kind": "union"}]}`, "unknown type kind"},
		{"unknown enclosing type", `{"version": "1.0", "types": [{"name": "a.A.B", "declaringType": "a.A"}]}`, "nested in unknown type"},
		{"unknown override", `{"version": "1.0", "types": [{"name": "a.A", "methods": [{"name": "M", "index": 1, "returns": "System.Void", "overrides": [9]}]}]}`, "overrides unknown method"},
		{"inheritance cycle", `{"version": "1.0", "types": [{"name": "a.A", "parent": "a.B"}, {"name": "a.B", "parent": "a.A"}]}`, "inheritance cycle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDump([]byte(tt.dump))
			if err == nil {
				t.Fatalf("expected an error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadDumpMissingFile(t *testing.T) {
	if _, err := LoadDump("does/not/exist.json"); err == nil {
		t.Fatal("expected an error for a missing dump")
	}
}

func TestGraphRejectsLateTypes(t *testing.T) {
	graph := NewGraph()
	if err := graph.AddType(&Type{FullName: "a.A"}, nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := graph.Seal(); err != nil {
		t.Fatal(err)
	}
	if err := graph.AddType(&Type{FullName: "a.B"}, nil, nil); err == nil {
		t.Fatal("sealed graphs accept no new types")
	}
}

func TestLatestVersion(t *testing.T) {
	got, err := latestVersion([]string{"1.0.2", "10.0.1-preview", "2.3.0", "10.0.0"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "10.0.1-preview" {
		t.Fatalf("expected the highest version, got %s", got)
	}

	if _, err := latestVersion(nil); err == nil {
		t.Fatal("expected an error without versions")
	}
	if _, err := latestVersion([]string{"not-a-version"}); err == nil {
		t.Fatal("expected an error for an unparsable version")
	}
}
