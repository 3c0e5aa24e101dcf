package generation

import (
	"testing"

	"proxygen/internal/decl"
)

const playerDump = `{
	"version": "1.0",
	"types": [
		{
			"name": "app.Player",
			"index": 10,
			"parent": "System.Object",
			"methods": [
				{"name": "get_Count", "index": 1, "returns": "System.Int32"},
				{"name": "get_Item", "index": 2, "returns": "System.String", "params": [{"name": "i", "type": "System.Int32"}]},
				{"name": "set_Item", "index": 3, "returns": "System.Void", "params": [{"name": "i", "type": "System.Int32"}, {"name": "v", "type": "System.String"}]},
				{"name": "Foo", "index": 4, "returns": "System.Void", "params": [{"name": "x", "type": "System.Int32"}]},
				{"name": "Foo", "index": 5, "returns": "System.Void", "params": [{"name": "x", "type": "System.Int32"}]},
				{"name": "Foo", "index": 6, "returns": "System.Void", "params": [{"name": "y", "type": "System.Single"}]},
				{"name": "Create", "index": 7, "returns": "app.Player", "static": true, "params": [{"name": "name", "type": "System.String"}]},
				{"name": "TryGet", "index": 8, "returns": "System.Boolean", "static": true, "params": [{"name": "value", "type": "app.Player", "out": true}]},
				{"name": "Finalize", "index": 9, "returns": "System.Void"},
				{"name": "op_Equality", "index": 11, "returns": "System.Boolean", "static": true, "params": [{"name": "a", "type": "app.Player"}, {"name": "b", "type": "app.Player"}]}
			]
		},
		{"name": "app.Player[]", "index": 12, "objectKind": "array", "elementType": "app.Player"}
	]
}`

func TestReferenceTypeMembers(t *testing.T) {
	_, ctx := newTestContext(t, playerDump)
	result := synthesizeNamed(t, ctx, "app.Player")

	assertOutline(t, result.Decl, `
interface Player
  prop Count int32 get
  prop Item[int32] string get set
  func Foo(int32) void
  func Foo2(float32) void
  static func Create(string) app.Player
  static func TryGet(out app.Player) bool
  static func Op_Equality(app.Player, app.Player) bool
`)

	if !hasDiagnostic(result.Diagnostics, "Foo", "duplicate overload signature Foo(int32)") {
		t.Fatalf("expected the duplicate overload to be reported, got %v", result.Diagnostics)
	}
	if !hasDiagnostic(result.Diagnostics, "Finalize", "excluded method name") {
		t.Fatalf("expected Finalize to be excluded, got %v", result.Diagnostics)
	}
}

func TestReferenceTypeInstanceMembersHaveNoBody(t *testing.T) {
	_, ctx := newTestContext(t, playerDump)
	declaration := synthesizeNamed(t, ctx, "app.Player").Decl

	count := findProperty(t, declaration, "Count")
	if count.Setter != nil {
		t.Fatalf("get_Count alone must give a read-only property")
	}
	if count.Getter.Body != nil || count.Getter.Index != 1 {
		t.Fatalf("unexpected getter %+v", count.Getter)
	}

	item := findProperty(t, declaration, "Item")
	if !item.Indexer || item.IndexType != decl.Builtin("int32") {
		t.Fatalf("expected an int32 indexer, got %+v", item)
	}
	if item.Getter.Index != 2 || item.Setter.Index != 3 {
		t.Fatalf("accessors point at the wrong methods: %d %d", item.Getter.Index, item.Setter.Index)
	}

	if foo := findMethod(t, declaration, "Foo"); foo.Body != nil || foo.Shadow {
		t.Fatalf("instance methods of an interface are plain declarations, got %+v", foo)
	}
}

func TestReferenceTypeStaticThunks(t *testing.T) {
	_, ctx := newTestContext(t, playerDump)
	declaration := synthesizeNamed(t, ctx, "app.Player").Decl

	create := findMethod(t, declaration, "Create")
	call, ok := create.Body.(*decl.BoxedCall)
	if !ok {
		t.Fatalf("expected a boxed call, got %T", create.Body)
	}
	if call.Handle != "Create7" || len(call.Args) != 1 || call.Args[0].Name != "name" {
		t.Fatalf("unexpected boxed call %+v", call)
	}
	if call.Result == nil || *call.Result != decl.Ref("app", "Player") {
		t.Fatalf("unexpected result %v", call.Result)
	}

	tryGet := findMethod(t, declaration, "TryGet")
	if _, ok := tryGet.Body.(*decl.NotImplemented); !ok {
		t.Fatalf("static method with an out parameter must not be implemented, got %T", tryGet.Body)
	}
	if tryGet.Params[0].Mode != decl.PassOut {
		t.Fatalf("expected an out parameter, got %v", tryGet.Params[0].Mode)
	}

	equality := findMethod(t, declaration, "Op_Equality")
	if equality.Operator != "==" {
		t.Fatalf("expected the equality operator directive, got %q", equality.Operator)
	}

	// One handle per emitted thunk, none for the unimplemented one.
	handles := map[string]string{}
	for _, handle := range declaration.Handles {
		handles[handle.Name] = handle.Lookup
	}
	if len(handles) != 2 {
		t.Fatalf("expected two handles, got %v", declaration.Handles)
	}
	if handles["Create7"] != "Create(System.String)" {
		t.Fatalf("unexpected lookup %q", handles["Create7"])
	}
	if handles["Op_Equality11"] != "op_Equality(app.Player, app.Player)" {
		t.Fatalf("missing operator handle in %v", declaration.Handles)
	}
}

func TestOutParameterTypesShareOverloadKey(t *testing.T) {
	dump := `{
		"version": "1.0",
		"types": [
			{"name": "app.A"},
			{"name": "app.B"},
			{
				"name": "app.Parser",
				"methods": [
					{"name": "Parse", "index": 1, "returns": "System.Boolean", "params": [{"name": "result", "type": "app.A", "out": true}]},
					{"name": "Parse", "index": 2, "returns": "System.Boolean", "params": [{"name": "result", "type": "app.B", "out": true}]},
					{"name": "Parse", "index": 3, "returns": "System.Boolean", "params": [{"name": "result", "type": "app.B", "byRef": true}]}
				]
			}
		]
	}`
	_, ctx := newTestContext(t, dump)
	result := synthesizeNamed(t, ctx, "app.Parser")

	assertOutline(t, result.Decl, `
interface Parser
  func Parse(out app.A) bool
  func Parse2(ref app.B) bool
`)
	if !hasDiagnostic(result.Diagnostics, "Parse", "Parse(out)") {
		t.Fatalf("expected the second out overload to be dropped, got %v", result.Diagnostics)
	}
}

func TestFieldsWinOverAccessors(t *testing.T) {
	dump := `{
		"version": "1.0",
		"types": [
			{
				"name": "app.Item",
				"methods": [
					{"name": "get_Count", "index": 1, "returns": "System.Int32"},
					{"name": "get_Size", "index": 2, "returns": "System.Int32"},
					{"name": "set_Size", "index": 3, "returns": "System.Void", "params": [{"name": "value", "type": "System.Int32"}]},
					{"name": "get_Label", "index": 4, "returns": "System.String"}
				],
				"fields": [
					{"name": "Count", "index": 5, "type": "System.Int32"},
					{"name": "<Size>k__BackingField", "index": 6, "type": "System.Int32"},
					{"name": "Default", "index": 7, "type": "app.Item", "static": true}
				]
			}
		]
	}`
	_, ctx := newTestContext(t, dump)
	declaration := synthesizeNamed(t, ctx, "app.Item").Decl

	assertOutline(t, declaration, `
interface Item
  prop Count int32 get set
  prop Size int32 get set
  static prop Default app.Item get set
  prop Label string get
`)

	count := findProperty(t, declaration, "Count")
	if count.Getter.Facade != decl.FacadeGetter || count.Setter.Facade != decl.FacadeSetter || count.Getter.Index != 5 {
		t.Fatalf("field facade should stand in for the field, got %+v %+v", count.Getter, count.Setter)
	}

	defaults := findProperty(t, declaration, "Default")
	get, ok := defaults.Getter.Body.(*decl.FieldAccess)
	if !ok || get.Set {
		t.Fatalf("expected a field read, got %#v", defaults.Getter.Body)
	}
	set, ok := defaults.Setter.Body.(*decl.FieldAccess)
	if !ok || !set.Set || set.Handle != get.Handle {
		t.Fatalf("expected a field write through the same handle, got %#v", defaults.Setter.Body)
	}
	if len(declaration.Handles) != 1 || declaration.Handles[0].Kind != decl.HandleField || declaration.Handles[0].Lookup != "Default" {
		t.Fatalf("unexpected handles %+v", declaration.Handles)
	}
}

const hierarchyDump = `{
	"version": "1.0",
	"types": [
		{
			"name": "app.Base",
			"parent": "System.Object",
			"methods": [
				{"name": "get_Name", "index": 1, "returns": "System.String"},
				{"name": "Update", "index": 2, "returns": "System.Void"}
			]
		},
		{
			"name": "app.Derived",
			"parent": "app.Base",
			"methods": [
				{"name": "get_Name", "index": 3, "returns": "System.String"},
				{"name": "Update", "index": 4, "returns": "System.Void", "override": true, "overrides": [2]},
				{"name": "Tick", "index": 5, "returns": "System.Void", "override": false}
			]
		}
	]
}`

func TestShadowingEligibleAncestor(t *testing.T) {
	_, ctx := newTestContext(t, hierarchyDump)
	declaration := synthesizeNamed(t, ctx, "app.Derived").Decl

	assertOutline(t, declaration, `
interface Derived : app.Base
  shadow prop Name2 string get
  shadow func Update2() void
  func Tick() void
`)
}

func TestExcludedAncestorIsNoBase(t *testing.T) {
	_, ctx := newTestContext(t, hierarchyDump, "app.Base")
	declaration := synthesizeNamed(t, ctx, "app.Derived").Decl

	if len(declaration.Bases) != 0 {
		t.Fatalf("excluded ancestors must not become bases, got %v", declaration.Bases)
	}
	assertOutline(t, declaration, `
interface Derived
  prop Name string get
  func Update() void
  func Tick() void
`)
}

func TestNestedTypesAndArrayCompanions(t *testing.T) {
	dump := `{
		"version": "1.0",
		"types": [
			{"name": "app.Outer", "methods": [{"name": "Run", "index": 1, "returns": "System.Void"}]},
			{"name": "app.Outer.Inner", "declaringType": "app.Outer"},
			{
				"name": "app.Outer.Mode",
				"kind": "enum",
				"declaringType": "app.Outer",
				"fields": [
					{"name": "value__", "index": 2, "type": "System.Byte"},
					{"name": "Idle", "index": 3, "type": "app.Outer.Mode", "static": true, "value": 0},
					{"name": "Busy", "index": 4, "type": "app.Outer.Mode", "static": true, "value": 2},
					{"name": "Broken", "index": 5, "type": "app.Outer.Mode", "static": true}
				]
			},
			{"name": "app.Outer.Inner[]", "objectKind": "array", "elementType": "app.Outer.Inner"}
		]
	}`
	_, ctx := newTestContext(t, dump)
	result := synthesizeNamed(t, ctx, "app.Outer")

	assertOutline(t, result.Decl, `
interface Outer
  func Run() void
  interface Inner_Array
  interface Inner
  enum Mode
`)

	mode := result.Decl.FindNested("Mode")
	if mode.Enum.Underlying != decl.Builtin("uint8") {
		t.Fatalf("expected a uint8 enum, got %v", mode.Enum.Underlying)
	}
	want := []decl.EnumValue{{Name: "Idle", Value: 0}, {Name: "Busy", Value: 2}}
	if len(mode.Enum.Values) != len(want) || mode.Enum.Values[0] != want[0] || mode.Enum.Values[1] != want[1] {
		t.Fatalf("unexpected enum values %v", mode.Enum.Values)
	}
	if mode.Size != 1 {
		t.Fatalf("expected enum size 1, got %d", mode.Size)
	}
	if !hasDiagnostic(result.Diagnostics, "Broken", "no constant") {
		t.Fatalf("expected the value without a constant to be reported, got %v", result.Diagnostics)
	}
}

func TestNestedTypeHidesAncestorNestedType(t *testing.T) {
	dump := `{
		"version": "1.0",
		"types": [
			{"name": "app.Base"},
			{"name": "app.Base.Options", "declaringType": "app.Base"},
			{"name": "app.Derived", "parent": "app.Base"},
			{"name": "app.Derived.Options", "declaringType": "app.Derived"}
		]
	}`
	_, ctx := newTestContext(t, dump)

	derived := synthesizeNamed(t, ctx, "app.Derived").Decl
	if options := derived.FindNested("Options"); options == nil || !options.Hides {
		t.Fatalf("nested type should hide the ancestor's nested type, got %+v", options)
	}

	base := synthesizeNamed(t, ctx, "app.Base").Decl
	if options := base.FindNested("Options"); options == nil || options.Hides {
		t.Fatalf("nested type of the base hides nothing, got %+v", options)
	}
}

func TestStaticMembersAvoidNestedNames(t *testing.T) {
	dump := `{
		"version": "1.0",
		"types": [
			{"name": "app.Outer", "methods": [{"name": "Inner", "index": 1, "returns": "System.Void", "static": true}]},
			{"name": "app.Outer.Inner", "declaringType": "app.Outer"}
		]
	}`
	_, ctx := newTestContext(t, dump)
	declaration := synthesizeNamed(t, ctx, "app.Outer").Decl

	findMethod(t, declaration, "Inner2")
}

func TestFieldLimit(t *testing.T) {
	dump := `{
		"version": "1.0",
		"types": [
			{
				"name": "app.Wide",
				"fields": [
					{"name": "A", "index": 1, "type": "System.Int32", "static": true},
					{"name": "B", "index": 2, "type": "System.Int32", "static": true},
					{"name": "C", "index": 3, "type": "System.Int32", "static": true}
				]
			}
		]
	}`
	generator, _ := newTestContext(t, dump)
	generator.Options.MaxFields = 2
	result := synthesizeNamed(t, generator.Context(), "app.Wide")

	if got := len(result.Decl.Properties()); got != 2 {
		t.Fatalf("expected the field limit to keep 2 fields, got %d", got)
	}
	if !hasDiagnostic(result.Diagnostics, "C", "limit of 2") {
		t.Fatalf("expected the limit to be reported, got %v", result.Diagnostics)
	}

	generator.Options.MaxFields = 3
	result = synthesizeNamed(t, generator.Context(), "app.Wide")
	if len(result.Diagnostics) != 0 {
		t.Fatalf("exactly reaching the limit drops nothing, got %v", result.Diagnostics)
	}
}

func TestInvalidMembersAreSkipped(t *testing.T) {
	dump := `{
		"version": "1.0",
		"types": [
			{"name": "app.Hidden"},
			{
				"name": "app.Mixed",
				"methods": [
					{"name": "Map<T>", "index": 1, "returns": "System.Void"},
					{"name": "Bad", "index": 2, "returns": "System.Object!"},
					{"name": "Take", "index": 3, "returns": "System.Void", "params": [{"name": "x", "type": "app.Broken!"}]},
					{"name": "Opaque", "index": 4, "returns": "System.Void", "noRuntime": true, "params": [{"name": "x", "type": "System.Int32"}]},
					{"name": "Ok", "index": 5, "returns": "app.Hidden", "params": [{"name": "x", "type": "System.Collections.Generic.List` + "`" + `1<System.Int32>"}]}
				],
				"fields": [
					{"name": "secret", "index": 6, "type": "app.Hidden"}
				]
			}
		]
	}`
	_, ctx := newTestContext(t, dump, "app.Hidden")
	result := synthesizeNamed(t, ctx, "app.Mixed")

	assertOutline(t, result.Decl, `
interface Mixed
  func Ok(any) any
`)

	for member, reason := range map[string]string{
		"Map<T>": "generic method name",
		"Bad":    "corrupted return type",
		"Take":   "corrupted parameter type",
		"Opaque": "runtime parameters unavailable",
		"secret": "is not generated",
	} {
		if !hasDiagnostic(result.Diagnostics, member, reason) {
			t.Errorf("expected %s to be skipped with %q, got %v", member, reason, result.Diagnostics)
		}
	}
}

func TestSynthesisIsRepeatable(t *testing.T) {
	_, ctx := newTestContext(t, playerDump)
	first := synthesizeNamed(t, ctx, "app.Player").Decl.Outline()
	second := synthesizeNamed(t, ctx, "app.Player").Decl.Outline()
	if first != second {
		t.Fatalf("synthesis should not depend on earlier runs\n%s\n%s", first, second)
	}
}

func TestGeneratorIncludesArrayCompanions(t *testing.T) {
	generator, _ := newTestContext(t, playerDump)
	declarations, _ := generator.Synthesize()

	names := []string{}
	for _, declaration := range declarations {
		names = append(names, declaration.Name)
	}
	if len(names) != 2 || names[0] != "Player" || names[1] != "Player_Array" {
		t.Fatalf("expected the type followed by its array specialization, got %v", names)
	}
}

func TestNamelessParametersAreNumberedSeparately(t *testing.T) {
	dump := `{
		"version": "1.0",
		"types": [
			{
				"name": "app.Pair",
				"methods": [
					{"name": "Assign", "index": 1, "returns": "System.Void", "params": [
						{"name": "a", "type": "System.Int32"},
						{"name": "", "type": "System.Int32"},
						{"name": "", "type": "System.Single"}
					]}
				]
			}
		]
	}`
	_, ctx := newTestContext(t, dump)
	method := findMethod(t, synthesizeNamed(t, ctx, "app.Pair").Decl, "Assign")

	want := []string{"a", "arg0", "arg1"}
	if len(method.Params) != len(want) {
		t.Fatalf("expected %d params, got %+v", len(want), method.Params)
	}
	for i, param := range method.Params {
		if param.Name != want[i] {
			t.Errorf("param %d: got %s, want %s", i, param.Name, want[i])
		}
	}
}
