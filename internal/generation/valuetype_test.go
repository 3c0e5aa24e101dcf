package generation

import (
	"strings"
	"testing"

	"proxygen/internal/decl"
)

const vectorDump = `{
	"version": "1.0",
	"types": [
		{
			"name": "app.Vec2",
			"kind": "value",
			"size": 16,
			"methods": [
				{"name": "Length", "index": 3, "returns": "System.Double"},
				{"name": "Zero", "index": 4, "returns": "app.Vec2", "static": true},
				{"name": "Scale", "index": 5, "returns": "System.Void", "params": [{"name": "f", "type": "System.Single"}]},
				{"name": "get_Magnitude", "index": 6, "returns": "System.Single"},
				{"name": "set_Magnitude", "index": 7, "returns": "System.Void", "params": [{"name": "m", "type": "System.Single", "byRef": true}]},
				{"name": "IsZero", "index": 8, "returns": "System.Boolean"},
				{"name": "Describe", "index": 9, "returns": "System.String", "params": [{"name": "prefix", "type": "System.String"}, {"name": "other", "type": "app.Vec2"}, {"name": "count", "type": "System.Int32", "byRef": true}]},
				{"name": "Owner", "index": 10, "returns": "app.Node"},
				{"name": "Children", "index": 11, "returns": "app.Node[]"},
				{"name": "Copy", "index": 12, "returns": "app.Vec2"}
			],
			"fields": [
				{"name": "x", "index": 1, "type": "System.Double", "offset": 0},
				{"name": "y", "index": 2, "type": "System.Double", "offset": 8},
				{"name": "Origin", "index": 13, "type": "app.Vec2", "static": true}
			]
		},
		{"name": "app.Node"},
		{"name": "app.Node[]", "objectKind": "array", "elementType": "app.Node"}
	]
}`

func TestValueTypeLayout(t *testing.T) {
	_, ctx := newTestContext(t, vectorDump)
	declaration := synthesizeNamed(t, ctx, "app.Vec2").Decl

	if declaration.Shape != decl.ShapeRecord || declaration.Size != 16 {
		t.Fatalf("expected a 16 byte record, got %v of %d bytes", declaration.Shape, declaration.Size)
	}
	if len(declaration.Bases) != 0 {
		t.Fatalf("records have no bases, got %v", declaration.Bases)
	}

	fields := declaration.Fields()
	if len(fields) != 2 {
		t.Fatalf("expected two layout fields, got %d", len(fields))
	}
	want := []decl.Field{
		{Name: "X", Index: 1, Type: decl.Builtin("float64"), Offset: 0, Size: 8},
		{Name: "Y", Index: 2, Type: decl.Builtin("float64"), Offset: 8, Size: 8},
	}
	for i, field := range fields {
		if *field != want[i] {
			t.Errorf("field %d: got %+v, want %+v", i, *field, want[i])
		}
	}

	origin := findProperty(t, declaration, "Origin")
	if _, ok := origin.Getter.Body.(*decl.FieldAccess); !ok || !origin.Static {
		t.Fatalf("static fields of a record use the boxed field access, got %+v", origin)
	}
}

func TestValueTypeRawCalls(t *testing.T) {
	_, ctx := newTestContext(t, vectorDump)
	declaration := synthesizeNamed(t, ctx, "app.Vec2").Decl

	tests := []struct {
		method string
		slots  []decl.ArgConv
		unpack *decl.Unpack
	}{
		{
			method: "Length",
			unpack: &decl.Unpack{Kind: decl.UnpackPrimitive, Result: decl.Builtin("float64"), View: decl.ViewDouble},
		},
		{
			method: "Scale",
			slots:  []decl.ArgConv{decl.ConvFloat32},
		},
		{
			method: "IsZero",
			unpack: &decl.Unpack{Kind: decl.UnpackPrimitive, Result: decl.Builtin("bool"), View: decl.ViewByte, NonZero: true},
		},
		{
			method: "Describe",
			slots:  []decl.ArgConv{decl.ConvString, decl.ConvAddress, decl.ConvPointer},
			unpack: &decl.Unpack{Kind: decl.UnpackString, Result: decl.Builtin("string")},
		},
		{
			method: "Owner",
			unpack: &decl.Unpack{Kind: decl.UnpackObject, Result: decl.Ref("app", "Node")},
		},
		{
			method: "Children",
			unpack: &decl.Unpack{Kind: decl.UnpackArray, Result: decl.Opaque},
		},
		{
			method: "Copy",
			unpack: &decl.Unpack{Kind: decl.UnpackReinterpret, Result: decl.Ref("app", "Vec2")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			method := findMethod(t, declaration, tt.method)
			if !method.Unsafe {
				t.Fatalf("record instance methods are unsafe")
			}
			call, ok := method.Body.(*decl.RawCall)
			if !ok {
				t.Fatalf("expected a raw call, got %T", method.Body)
			}

			if len(call.Slots) != len(method.Params) || len(call.Slots) != len(tt.slots) {
				t.Fatalf("expected %d slots for %d params, got %d", len(tt.slots), len(method.Params), len(call.Slots))
			}
			for i, slot := range call.Slots {
				if slot.Index != i || slot.Name != method.Params[i].Name || slot.Conv != tt.slots[i] {
					t.Errorf("slot %d: got %+v, want conversion %v", i, slot, tt.slots[i])
				}
			}

			switch {
			case tt.unpack == nil && call.Unpack != nil:
				t.Fatalf("void methods have no unpack, got %+v", call.Unpack)
			case tt.unpack != nil && (call.Unpack == nil || *call.Unpack != *tt.unpack):
				t.Fatalf("got unpack %+v, want %+v", call.Unpack, tt.unpack)
			}
			if method.Result != nil && call.Unpack.Result != *method.Result {
				t.Fatalf("unpack result %v does not match the declared result %v", call.Unpack.Result, *method.Result)
			}
		})
	}
}

func TestValueTypeProperties(t *testing.T) {
	_, ctx := newTestContext(t, vectorDump)
	declaration := synthesizeNamed(t, ctx, "app.Vec2").Decl

	magnitude := findProperty(t, declaration, "Magnitude")
	getter, ok := magnitude.Getter.Body.(*decl.RawCall)
	if !ok {
		t.Fatalf("expected a raw getter, got %T", magnitude.Getter.Body)
	}
	if len(getter.Slots) != 0 || getter.Unpack == nil || !getter.Unpack.Narrow || getter.Unpack.View != decl.ViewDouble {
		t.Fatalf("unexpected getter %+v", getter)
	}

	setter, ok := magnitude.Setter.Body.(*decl.RawCall)
	if !ok {
		t.Fatalf("expected a raw setter, got %T", magnitude.Setter.Body)
	}
	want := decl.ArgSlot{Index: 0, Name: decl.ValueParam, Conv: decl.ConvFloat32}
	if len(setter.Slots) != 1 || setter.Slots[0] != want || setter.Unpack != nil {
		t.Fatalf("setter values travel by value, got %+v", setter)
	}
}

func TestValueTypeStaticMethodsStayBoxed(t *testing.T) {
	_, ctx := newTestContext(t, vectorDump)
	declaration := synthesizeNamed(t, ctx, "app.Vec2").Decl

	zero := findMethod(t, declaration, "Zero")
	call, ok := zero.Body.(*decl.BoxedCall)
	if !ok || call.Result == nil || *call.Result != decl.Ref("app", "Vec2") {
		t.Fatalf("expected a boxed call returning Vec2, got %#v", zero.Body)
	}
	if zero.Unsafe {
		t.Fatalf("static methods without pointers are safe")
	}
}

func TestUnsupportedPrimitiveReturnPanics(t *testing.T) {
	dump := `{
		"version": "1.0",
		"types": [
			{"name": "System.Decimal", "kind": "value", "primitive": true, "size": 16},
			{"name": "app.Money", "kind": "value", "size": 16, "methods": [{"name": "Amount", "index": 1, "returns": "System.Decimal"}]}
		]
	}`
	_, ctx := newTestContext(t, dump)

	defer func() {
		recovered := recover()
		err, ok := recovered.(error)
		if !ok || !strings.Contains(err.Error(), "unsupported primitive return type: System.Decimal") {
			t.Fatalf("expected a panic about the primitive, got %v", recovered)
		}
	}()
	Synthesize(ctx, ctx.Provider.FindType("app.Money"))
}

func TestRecordFieldKinds(t *testing.T) {
	dump := `{
		"version": "1.0",
		"types": [
			{"name": "app.Node"},
			{
				"name": "app.Slot",
				"kind": "value",
				"size": 24,
				"fields": [
					{"name": "owner", "index": 1, "type": "app.Node", "offset": 0},
					{"name": "flag", "index": 2, "type": "System.Boolean", "offset": 8},
					{"name": "label", "index": 3, "type": "System.String", "offset": 16}
				]
			}
		]
	}`
	_, ctx := newTestContext(t, dump)
	fields := synthesizeNamed(t, ctx, "app.Slot").Decl.Fields()

	if len(fields) != 3 {
		t.Fatalf("expected three fields, got %d", len(fields))
	}
	if !fields[0].Ref || fields[0].Size != 8 {
		t.Fatalf("object fields hold references, got %+v", fields[0])
	}
	if fields[1].Ref || fields[1].Size != 1 || fields[1].Type != decl.Builtin("bool") {
		t.Fatalf("unexpected bool field %+v", fields[1])
	}
	if !fields[2].Ref || fields[2].Type != decl.Builtin("string") {
		t.Fatalf("string fields hold references, got %+v", fields[2])
	}
}

const hiddenValueDump = `{
	"version": "1.0",
	"types": [
		{"name": "app.Hidden", "kind": "value", "size": 8},
		{
			"name": "app.Vec",
			"kind": "value",
			"size": 8,
			"methods": [
				{"name": "get_Secret", "index": 1, "returns": "app.Hidden"},
				{"name": "Get", "index": 2, "returns": "app.Hidden"},
				{"name": "Put", "index": 3, "returns": "System.Void", "params": [{"name": "h", "type": "app.Hidden"}]},
				{"name": "Keep", "index": 4, "returns": "app.Vec"},
				{"name": "Make", "index": 5, "returns": "app.Hidden", "static": true}
			]
		}
	]
}`

func TestRawCallsNeedGeneratedValueTypes(t *testing.T) {
	_, ctx := newTestContext(t, hiddenValueDump, "app.Hidden")
	result := synthesizeNamed(t, ctx, "app.Vec")

	assertOutline(t, result.Decl, `
record Vec
  func Keep() app.Vec
  static func Make() any
`)
	for _, member := range []string{"get_Secret", "Get", "Put"} {
		if !hasDiagnostic(result.Diagnostics, member, "value type 'app.Hidden' is not generated") {
			t.Errorf("expected %s to be skipped, got %v", member, result.Diagnostics)
		}
	}
}

func TestRawCallsReinterpretGeneratedValueTypes(t *testing.T) {
	_, ctx := newTestContext(t, hiddenValueDump)
	declaration := synthesizeNamed(t, ctx, "app.Vec").Decl

	get, ok := findMethod(t, declaration, "Get").Body.(*decl.RawCall)
	want := decl.Unpack{Kind: decl.UnpackReinterpret, Result: decl.Ref("app", "Hidden")}
	if !ok || get.Unpack == nil || *get.Unpack != want {
		t.Fatalf("expected the result to be reinterpreted as app.Hidden, got %#v", get)
	}

	put, ok := findMethod(t, declaration, "Put").Body.(*decl.RawCall)
	if !ok || len(put.Slots) != 1 || put.Slots[0].Conv != decl.ConvAddress {
		t.Fatalf("expected the value to travel by address, got %#v", put)
	}
}
