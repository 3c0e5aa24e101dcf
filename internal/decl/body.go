package decl

// A generated member body. The synthesizer decides the call sequence; printers only spell it.
type Body interface {
	isBody()
}

// Calls a cached static member through the boxed, argument-array convention.
type BoxedCall struct {
	Handle string
	// Expected result type. Nil discards the result.
	Result *TypeExpr
	Args   []BoxedArg
}

type BoxedArg struct {
	Name string
	// Pointer-mode arguments are passed as raw addresses.
	Address bool
}

// Reads or writes a static field through its cached handle.
type FieldAccess struct {
	Handle string
	Type   TypeExpr
	Set    bool
}

// Stands in for a call form the runtime cannot express.
type NotImplemented struct {
	Reason string
}

// Packs arguments into register-sized slots and invokes through the raw calling convention
// with a pointer to the value itself.
type RawCall struct {
	Handle string
	Slots  []ArgSlot
	// Nil for void results.
	Unpack *Unpack
}

// How an argument is converted to a register-sized slot.
type ArgConv int

const (
	ConvSigned ArgConv = iota
	ConvUnsigned
	ConvFloat32
	ConvFloat64
	ConvBool
	ConvAddress
	ConvObject
	ConvString
	// The argument already is an address (ref, out and pointer modes).
	ConvPointer
)

func (c ArgConv) String() string {
	switch c {
	case ConvSigned:
		return "signed"
	case ConvUnsigned:
		return "unsigned"
	case ConvFloat32:
		return "float32"
	case ConvFloat64:
		return "float64"
	case ConvBool:
		return "bool"
	case ConvAddress:
		return "address"
	case ConvObject:
		return "object"
	case ConvString:
		return "string"
	case ConvPointer:
		return "pointer"
	default:
		return "unknown"
	}
}

type ArgSlot struct {
	Index int
	Name  string
	Conv  ArgConv
}

type UnpackKind int

const (
	// Read the matching primitive view of the raw result.
	UnpackPrimitive UnpackKind = iota
	// Reinterpret the raw result bytes as the value type.
	UnpackReinterpret
	UnpackObject
	UnpackArray
	UnpackString
)

func (k UnpackKind) String() string {
	switch k {
	case UnpackPrimitive:
		return "primitive"
	case UnpackReinterpret:
		return "reinterpret"
	case UnpackObject:
		return "object"
	case UnpackArray:
		return "array"
	case UnpackString:
		return "string"
	default:
		return "unknown"
	}
}

// Raw views of the runtime's invoke result union.
type RetView string

const (
	ViewDouble RetView = "Double"
	ViewSByte  RetView = "SByte"
	ViewInt16  RetView = "Int16"
	ViewInt32  RetView = "Int32"
	ViewInt64  RetView = "Int64"
	ViewByte   RetView = "Byte"
	ViewWord   RetView = "Word"
	ViewDWord  RetView = "DWord"
	ViewQWord  RetView = "QWord"
)

type Unpack struct {
	Kind   UnpackKind
	Result TypeExpr
	View   RetView
	// The view is wider than the result and must be narrowed (float read as double).
	Narrow bool
	// The result is true when the view is non-zero.
	NonZero bool
}

func (*BoxedCall) isBody()      {}
func (*FieldAccess) isBody()    {}
func (*NotImplemented) isBody() {}
func (*RawCall) isBody()        {}
