// Package opcode defines the closed, fixed instruction set the backend
// emits and the executable serializer stores as raw bytes.
// Each opcode is a single-byte tag; multi-byte immediate operands are
// little-endian, matching the executable format's own byte order.
package opcode

// Op is a single bytecode instruction tag.
type Op byte

const (
	Nop Op = iota

	// Literal loads. LoadLitInt8/32 take the value as an immediate;
	// LoadLitInt0/1 are zero-operand shorthands for the two most common
	// integer literals.
	LoadLitInt8
	LoadLitInt32
	LoadLitInt0
	LoadLitInt1
	LoadLitLong
	LoadLitFloat
	LoadLitString
	LoadLitIp // load an instruction-pointer (function reference) literal

	// Stack / locals.
	AllocLocals
	LoadLocal
	StoreLocal
	Dup
	Pop

	// Structs.
	MakeStruct
	MakeNullStruct
	CheckStructNull
	StructLoadField

	// Arithmetic / bitwise / compare, one trio per numeric type.
	AddInt
	SubInt
	MulInt
	DivInt
	RemInt
	AndInt
	OrInt
	XorInt
	ShlInt
	ShrInt
	NegInt
	NotInt
	EqInt
	NeInt
	LtInt
	LeInt
	GtInt
	GeInt

	AddLong
	SubLong
	MulLong
	DivLong
	RemLong
	NegLong
	EqLong
	LtLong

	AddFloat
	SubFloat
	MulFloat
	DivFloat
	NegFloat
	EqFloat
	LtFloat

	AndBool
	OrBool
	NotBool
	EqBool

	EqChar
	ConcatString
	EqString
	IndexString

	// Conversions.
	ConvIntToLong
	ConvIntToFloat
	ConvLongToFloat
	ConvIntToChar
	ConvCharToInt
	ConvIntToEnum
	ConvEnumToInt
	ReinterpretIntToFloat
	ReinterpretFloatToInt

	// Control flow.
	Jump
	JumpIf

	// Calls.
	Call
	CallTail
	CallForked
	CallDyn
	CallDynTail
	CallDynForked
	Ret
	Fail
	PCall // platform call by numeric code

	// Concurrency primitives the emitted program models (executed by the
	// runtime VM, not the compiler).
	FutureWaitNano
	FutureBlock
	AtomicCompareSwap
	AtomicLoad
	AtomicStore
)

var names = map[Op]string{
	Nop:                   "nop",
	LoadLitInt8:           "load.lit.i8",
	LoadLitInt32:          "load.lit.i32",
	LoadLitInt0:           "load.lit.i0",
	LoadLitInt1:           "load.lit.i1",
	LoadLitLong:           "load.lit.long",
	LoadLitFloat:          "load.lit.float",
	LoadLitString:         "load.lit.string",
	LoadLitIp:             "load.lit.ip",
	AllocLocals:           "alloc.locals",
	LoadLocal:             "load.local",
	StoreLocal:            "store.local",
	Dup:                   "dup",
	Pop:                   "pop",
	MakeStruct:            "make.struct",
	MakeNullStruct:        "make.nullstruct",
	CheckStructNull:       "check.structnull",
	StructLoadField:       "struct.loadfield",
	AddInt:                "add.int",
	SubInt:                "sub.int",
	MulInt:                "mul.int",
	DivInt:                "div.int",
	RemInt:                "rem.int",
	AndInt:                "and.int",
	OrInt:                 "or.int",
	XorInt:                "xor.int",
	ShlInt:                "shl.int",
	ShrInt:                "shr.int",
	NegInt:                "neg.int",
	NotInt:                "not.int",
	EqInt:                 "eq.int",
	NeInt:                 "ne.int",
	LtInt:                 "lt.int",
	LeInt:                 "le.int",
	GtInt:                 "gt.int",
	GeInt:                 "ge.int",
	AddLong:               "add.long",
	SubLong:               "sub.long",
	MulLong:               "mul.long",
	DivLong:               "div.long",
	RemLong:               "rem.long",
	NegLong:               "neg.long",
	EqLong:                "eq.long",
	LtLong:                "lt.long",
	AddFloat:              "add.float",
	SubFloat:              "sub.float",
	MulFloat:              "mul.float",
	DivFloat:              "div.float",
	NegFloat:              "neg.float",
	EqFloat:               "eq.float",
	LtFloat:               "lt.float",
	AndBool:               "and.bool",
	OrBool:                "or.bool",
	NotBool:               "not.bool",
	EqBool:                "eq.bool",
	EqChar:                "eq.char",
	ConcatString:          "concat.string",
	EqString:              "eq.string",
	IndexString:           "index.string",
	ConvIntToLong:         "conv.int.long",
	ConvIntToFloat:        "conv.int.float",
	ConvLongToFloat:       "conv.long.float",
	ConvIntToChar:         "conv.int.char",
	ConvCharToInt:         "conv.char.int",
	ConvIntToEnum:         "conv.int.enum",
	ConvEnumToInt:         "conv.enum.int",
	ReinterpretIntToFloat: "reinterpret.int.float",
	ReinterpretFloatToInt: "reinterpret.float.int",
	Jump:                  "jump",
	JumpIf:                "jumpif",
	Call:                  "call",
	CallTail:              "call.tail",
	CallForked:            "call.forked",
	CallDyn:               "call.dyn",
	CallDynTail:           "call.dyn.tail",
	CallDynForked:         "call.dyn.forked",
	Ret:                   "ret",
	Fail:                  "fail",
	PCall:                 "pcall",
	FutureWaitNano:        "future.waitnano",
	FutureBlock:           "future.block",
	AtomicCompareSwap:     "atomic.cas",
	AtomicLoad:            "atomic.load",
	AtomicStore:           "atomic.store",
}

// String renders the opcode's mnemonic for disassembly/debugging.
func (o Op) String() string {
	if n, ok := names[o]; ok {
		return n
	}
	return "op?"
}

// HasJumpOperand reports whether op carries a 16-bit label-relative
// jump operand that the assembler must patch after emission.
func HasJumpOperand(op Op) bool {
	return op == Jump || op == JumpIf
}
