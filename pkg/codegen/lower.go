package codegen

import "github.com/novalang/novac/pkg/ir"
import "github.com/novalang/novac/pkg/opcode"

// intrinsicOp maps a FuncKind lowered directly to a single opcode
// (every arithmetic/bitwise/compare/conversion/string intrinsic) to
// that opcode. Kinds absent from this table need bespoke lowering
// (calls, struct/union machinery, platform calls) handled in emitCall.
var intrinsicOp = map[ir.FuncKind]opcode.Op{
	ir.FuncIntrinsicAddInt: opcode.AddInt, ir.FuncIntrinsicSubInt: opcode.SubInt,
	ir.FuncIntrinsicMulInt: opcode.MulInt, ir.FuncIntrinsicDivInt: opcode.DivInt,
	ir.FuncIntrinsicRemInt: opcode.RemInt, ir.FuncIntrinsicAndInt: opcode.AndInt,
	ir.FuncIntrinsicOrInt: opcode.OrInt, ir.FuncIntrinsicXorInt: opcode.XorInt,
	ir.FuncIntrinsicShlInt: opcode.ShlInt, ir.FuncIntrinsicShrInt: opcode.ShrInt,
	ir.FuncIntrinsicNegInt: opcode.NegInt, ir.FuncIntrinsicNotInt: opcode.NotInt,
	ir.FuncIntrinsicEqInt: opcode.EqInt, ir.FuncIntrinsicNeInt: opcode.NeInt,
	ir.FuncIntrinsicLtInt: opcode.LtInt, ir.FuncIntrinsicLeInt: opcode.LeInt,
	ir.FuncIntrinsicGtInt: opcode.GtInt, ir.FuncIntrinsicGeInt: opcode.GeInt,

	ir.FuncIntrinsicAddLong: opcode.AddLong, ir.FuncIntrinsicSubLong: opcode.SubLong,
	ir.FuncIntrinsicMulLong: opcode.MulLong, ir.FuncIntrinsicDivLong: opcode.DivLong,
	ir.FuncIntrinsicRemLong: opcode.RemLong, ir.FuncIntrinsicNegLong: opcode.NegLong,
	ir.FuncIntrinsicEqLong: opcode.EqLong, ir.FuncIntrinsicLtLong: opcode.LtLong,

	ir.FuncIntrinsicAddFloat: opcode.AddFloat, ir.FuncIntrinsicSubFloat: opcode.SubFloat,
	ir.FuncIntrinsicMulFloat: opcode.MulFloat, ir.FuncIntrinsicDivFloat: opcode.DivFloat,
	ir.FuncIntrinsicNegFloat: opcode.NegFloat, ir.FuncIntrinsicEqFloat: opcode.EqFloat,
	ir.FuncIntrinsicLtFloat: opcode.LtFloat,

	ir.FuncIntrinsicAndBool: opcode.AndBool, ir.FuncIntrinsicOrBool: opcode.OrBool,
	ir.FuncIntrinsicNotBool: opcode.NotBool, ir.FuncIntrinsicEqBool: opcode.EqBool,

	ir.FuncIntrinsicEqChar:       opcode.EqChar,
	ir.FuncIntrinsicConcatString: opcode.ConcatString,
	ir.FuncIntrinsicEqString:     opcode.EqString,
	ir.FuncIntrinsicIndexString:  opcode.IndexString,

	ir.FuncIntrinsicConvIntToLong:          opcode.ConvIntToLong,
	ir.FuncIntrinsicConvIntToFloat:         opcode.ConvIntToFloat,
	ir.FuncIntrinsicConvLongToFloat:        opcode.ConvLongToFloat,
	ir.FuncIntrinsicConvIntToChar:          opcode.ConvIntToChar,
	ir.FuncIntrinsicConvCharToInt:          opcode.ConvCharToInt,
	ir.FuncIntrinsicConvIntToEnum:          opcode.ConvIntToEnum,
	ir.FuncIntrinsicConvEnumToInt:          opcode.ConvEnumToInt,
	ir.FuncIntrinsicReinterpretIntToFloat:  opcode.ReinterpretIntToFloat,
	ir.FuncIntrinsicReinterpretFloatToInt:  opcode.ReinterpretFloatToInt,

	ir.FuncIntrinsicAtomicLoad:  opcode.AtomicLoad,
	ir.FuncIntrinsicAtomicStore: opcode.AtomicStore,
}

// emitExpr lowers e, leaving exactly one value on the stack.
func (g *generator) emitExpr(e ir.Expr) {
	switch n := e.(type) {
	case *ir.LitBool:
		if n.Value {
			g.asm.emitOp(opcode.LoadLitInt1)
		} else {
			g.asm.emitOp(opcode.LoadLitInt0)
		}
	case *ir.LitChar:
		g.asm.emitOp(opcode.LoadLitInt8)
		g.asm.emitByte(n.Value)
	case *ir.LitInt:
		g.emitLitInt(n.Value)
	case *ir.LitLong:
		g.asm.emitOp(opcode.LoadLitLong)
		g.asm.emitI64(n.Value)
	case *ir.LitFloat:
		g.asm.emitOp(opcode.LoadLitFloat)
		g.asm.emitF64(n.Value)
	case *ir.LitString:
		idx := g.asm.internString(n.Value)
		g.asm.emitOp(opcode.LoadLitString)
		g.asm.emitU32(idx)
	case *ir.LitEnum:
		g.emitLitInt(n.Value)
	case *ir.LitFunc:
		g.asm.emitOp(opcode.LoadLitIp)
		g.asm.emitIPRef(g.funcLabel[n.Func])
	case *ir.Closure:
		for _, b := range n.Bound {
			g.emitExpr(b)
		}
		g.asm.emitOp(opcode.LoadLitIp)
		g.asm.emitIPRef(g.funcLabel[n.Func])
		g.asm.emitOp(opcode.MakeStruct)
		g.asm.emitByte(byte(len(n.Bound) + 1))
	case *ir.Const:
		g.asm.emitOp(opcode.LoadLocal)
		g.asm.emitU16(uint16(n.ID - 1))
	case *ir.Assign:
		g.emitExpr(n.Value)
		g.asm.emitOp(opcode.Dup)
		g.asm.emitOp(opcode.StoreLocal)
		g.asm.emitU16(uint16(n.ID - 1))
	case *ir.Group:
		g.emitGroup(n)
	case *ir.Switch:
		g.emitSwitch(n)
	case *ir.Call:
		g.emitCall(n)
	case *ir.CallDyn:
		g.emitCallDyn(n)
	case *ir.CallSelf:
		for _, a := range n.Args {
			g.emitExpr(a)
		}
		g.asm.emitJump(opcode.CallTail, g.funcLabel[g.curFunc])
	case *ir.Field:
		g.emitField(n)
	case *ir.UnionCheck:
		g.emitUnionCheck(n)
	case *ir.UnionGet:
		g.emitUnionGet(n)
	default:
		panic("codegen: unhandled expression kind")
	}
}

func (g *generator) emitLitInt(v int32) {
	switch {
	case v == 0:
		g.asm.emitOp(opcode.LoadLitInt0)
	case v == 1:
		g.asm.emitOp(opcode.LoadLitInt1)
	case v >= -128 && v <= 127:
		g.asm.emitOp(opcode.LoadLitInt8)
		g.asm.emitByte(byte(int8(v)))
	default:
		g.asm.emitOp(opcode.LoadLitInt32)
		g.asm.emitI32(v)
	}
}

func (g *generator) emitGroup(n *ir.Group) {
	last := len(n.Elems) - 1
	for i, el := range n.Elems {
		g.emitExpr(el)
		if i != last {
			g.asm.emitOp(opcode.Pop)
		}
	}
}

// emitSwitch lowers a cascading conditional: each condition short-
// circuits (via JumpIf) to its own branch; falling through every
// condition reaches the implicit else, the last Branches entry.
func (g *generator) emitSwitch(n *ir.Switch) {
	endLabel := g.asm.newLabel()
	branchLabels := make([]label, len(n.Conds))
	for i, cond := range n.Conds {
		g.emitExpr(cond)
		branchLabels[i] = g.asm.newLabel()
		g.asm.emitJump(opcode.JumpIf, branchLabels[i])
	}
	// Implicit else, reached when every condition was false.
	g.emitExpr(n.Branches[len(n.Branches)-1])
	g.asm.emitJump(opcode.Jump, endLabel)
	for i, bl := range branchLabels {
		g.asm.setLabel(bl)
		g.emitExpr(n.Branches[i])
		g.asm.emitJump(opcode.Jump, endLabel)
	}
	g.asm.setLabel(endLabel)
}

// emitCall lowers a call to either a user function (by Mode) or a
// built-in intrinsic (directly to its opcode, bypassing Call entirely).
func (g *generator) emitCall(n *ir.Call) {
	decl := g.prog.FuncDecls.Get(n.Func)

	if op, ok := intrinsicOp[decl.Kind]; ok {
		for _, a := range n.Args {
			g.emitExpr(a)
		}
		g.asm.emitOp(op)
		return
	}

	switch decl.Kind {
	case ir.FuncMakeStruct:
		g.emitMakeStruct(n, decl.Output)
		return
	case ir.FuncMakeUnion:
		g.emitMakeUnion(n, decl.Output)
		return
	case ir.FuncIntrinsicFail:
		for _, a := range n.Args {
			g.emitExpr(a)
		}
		g.asm.emitOp(opcode.Fail)
		return
	case ir.FuncIntrinsicAtomicCompareSwap:
		for _, a := range n.Args {
			g.emitExpr(a)
		}
		g.asm.emitOp(opcode.AtomicCompareSwap)
		return
	case ir.FuncIntrinsicPlatformCall:
		for _, a := range n.Args[1:] {
			g.emitExpr(a)
		}
		g.asm.emitOp(opcode.PCall)
		if lit, ok := n.Args[0].(*ir.LitInt); ok {
			g.asm.emitU16(uint16(lit.Value))
		} else {
			g.asm.emitU16(0)
		}
		return
	case ir.FuncNoOp:
		if len(n.Args) == 1 {
			g.emitExpr(n.Args[0])
		} else {
			// Synthetic else branch of a non-exhaustive conditional: its
			// value is never observed, only popped, so a zero placeholder
			// keeps the stack balanced.
			g.asm.emitOp(opcode.LoadLitInt0)
		}
		return
	case ir.FuncIntrinsicLazyGet, ir.FuncLazyGetSynth:
		g.emitLazyGet(n)
		return
	case ir.FuncIntrinsicStaticIntToInt:
		g.emitExpr(n.Args[0])
		return
	case ir.FuncIntrinsicReflectSizeOf, ir.FuncIntrinsicReflectIsStruct,
		ir.FuncIntrinsicReflectFieldCount, ir.FuncIntrinsicReflectTypeName,
		ir.FuncIntrinsicSourceLocFile, ir.FuncIntrinsicSourceLocLine,
		ir.FuncIntrinsicSourceLocColumn:
		// The semantic analyzer resolves every reflect_*/source_loc_*
		// intrinsic to a literal before the backend ever sees it; reaching
		// here means an earlier pass failed to fold one.
		panic("codegen: unresolved compile-time intrinsic reached the backend")
	}

	if n.Mode == ir.CallLazy {
		g.emitMakeLazy(n)
		return
	}
	for _, a := range n.Args {
		g.emitExpr(a)
	}
	switch {
	case n.Mode == ir.CallTail:
		g.asm.emitJump(opcode.CallTail, g.funcLabel[n.Func])
	case n.Mode == ir.CallFork:
		g.asm.emitJump(opcode.CallForked, g.funcLabel[n.Func])
	case g.tails[n]:
		g.asm.emitJump(opcode.CallTail, g.funcLabel[n.Func])
	default:
		g.asm.emitJump(opcode.Call, g.funcLabel[n.Func])
	}
}

// emitMakeLazy materializes `lazy f(args)` as the two-field lazy object
// emitLazyGet later consumes: `{state:int, closure}` with state 0 (never
// started) and the call frozen as a closure (its arguments bound, the
// target's instruction pointer last, the same shape ir.Closure lowers
// to).
func (g *generator) emitMakeLazy(n *ir.Call) {
	g.asm.emitOp(opcode.LoadLitInt0)
	for _, a := range n.Args {
		g.emitExpr(a)
	}
	g.asm.emitOp(opcode.LoadLitIp)
	g.asm.emitIPRef(g.funcLabel[n.Func])
	g.asm.emitOp(opcode.MakeStruct)
	g.asm.emitByte(byte(len(n.Args) + 1))
	g.asm.emitOp(opcode.MakeStruct)
	g.asm.emitByte(2)
}

// emitMakeStruct applies the struct value representation: 0 fields
// is a null-struct value, 1 field is unboxed (the argument itself, no
// wrapper instruction at all), >=2 fields get a real MakeStruct.
func (g *generator) emitMakeStruct(n *ir.Call, structType ir.TypeId) {
	def, ok := g.prog.TypeDefs.Get(structType)
	if !ok || def.Struct == nil {
		panic("codegen: FuncMakeStruct with no struct definition")
	}
	switch len(def.Struct.Fields) {
	case 0:
		g.asm.emitOp(opcode.MakeNullStruct)
	case 1:
		g.emitExpr(n.Args[0])
	default:
		for _, a := range n.Args {
			g.emitExpr(a)
		}
		g.asm.emitOp(opcode.MakeStruct)
		g.asm.emitByte(byte(len(def.Struct.Fields)))
	}
}

// emitMakeUnion builds a union value from a single member-type argument.
// The nullable-struct-optimized shape (see
// isNullableUnion) needs no discriminant at all: the argument's own
// lowering already produces the right representation, since the
// empty-struct member's constructor already lowers to MakeNullStruct
// (emitMakeStruct's 0-field case) and the non-null member's constructor
// already lowers to that struct's own real value. Every other union is a
// real {discriminant, payload} struct, discriminant first so it lands in
// field 0 the same way emitUnionCheck/emitUnionGet read it back.
func (g *generator) emitMakeUnion(n *ir.Call, unionType ir.TypeId) {
	def, ok := g.prog.TypeDefs.Get(unionType)
	if !ok || def.Union == nil {
		panic("codegen: FuncMakeUnion with no union definition")
	}
	if _, isNullable := g.isNullableUnion(def.Union); isNullable {
		g.emitExpr(n.Args[0])
		return
	}
	g.emitLitInt(int32(unionOrdinal(def.Union, n.Args[0].Type())))
	g.emitExpr(n.Args[0])
	g.asm.emitOp(opcode.MakeStruct)
	g.asm.emitByte(2)
}

func (g *generator) emitCallDyn(n *ir.CallDyn) {
	for _, a := range n.Args {
		g.emitExpr(a)
	}
	g.emitExpr(n.Delegate)
	if n.Fork {
		g.asm.emitOp(opcode.CallDynForked)
	} else {
		g.asm.emitOp(opcode.CallDyn)
	}
}

// emitLazyGet implements the lazy_get protocol: a lazy value
// is `{state:int, closure}`; state 0 means never started, 1 means in
// progress, 2 means cached. A racing second caller blocks instead of
// recomputing.
func (g *generator) emitLazyGet(n *ir.Call) {
	g.emitExpr(n.Args[0])
	g.asm.emitOp(opcode.Dup)
	g.asm.emitOp(opcode.AtomicCompareSwap)
	g.asm.emitByte(0)
	g.asm.emitByte(1)

	doneLabel := g.asm.newLabel()
	computeLabel := g.asm.newLabel()
	g.asm.emitJump(opcode.JumpIf, computeLabel)

	g.asm.emitOp(opcode.FutureBlock)
	g.asm.emitByte(2)
	g.asm.emitOp(opcode.StructLoadField)
	g.asm.emitByte(1)
	g.asm.emitJump(opcode.Jump, doneLabel)

	g.asm.setLabel(computeLabel)
	g.asm.emitOp(opcode.StructLoadField)
	g.asm.emitByte(1)
	g.asm.emitOp(opcode.CallDyn)
	g.asm.emitOp(opcode.AtomicCompareSwap)
	g.asm.emitByte(1)
	g.asm.emitByte(2)
	g.asm.emitOp(opcode.Pop)

	g.asm.setLabel(doneLabel)
}

// fieldLayout returns the 0-based position of field within its struct's
// declared field order, and the struct's total field count.
func (g *generator) fieldLayout(structType ir.TypeId, field ir.FieldId) (pos, total int) {
	def, ok := g.prog.TypeDefs.Get(structType)
	if !ok || def.Struct == nil {
		panic("codegen: field access on a non-struct type")
	}
	for i, f := range def.Struct.Fields {
		if f.ID == field {
			return i, len(def.Struct.Fields)
		}
	}
	panic("codegen: field not found in its declared struct")
}

func (g *generator) emitField(n *ir.Field) {
	pos, total := g.fieldLayout(n.Receiver.Type(), n.FieldID)
	g.emitExpr(n.Receiver)
	if total <= 1 {
		// Unboxed representation: the receiver value already is the field.
		return
	}
	g.asm.emitOp(opcode.StructLoadField)
	g.asm.emitByte(byte(pos))
}

// unionOrdinal returns want's 0-based position among operand's union
// members, used as the runtime discriminant value.
func unionOrdinal(def *ir.UnionDef, want ir.TypeId) int {
	for i, m := range def.Members {
		if m == want {
			return i
		}
	}
	panic("codegen: union-check target is not a member of the union")
}

// isNullableUnion reports whether u is exactly {struct-of-N-fields,
// empty-struct}, the shape the backend represents as a plain nullable
// struct rather than a tagged union.
func (g *generator) isNullableUnion(u *ir.UnionDef) (nonNull ir.TypeId, ok bool) {
	if len(u.Members) != 2 {
		return 0, false
	}
	for _, m := range u.Members {
		def, defined := g.prog.TypeDefs.Get(m)
		if defined && def.Struct != nil && len(def.Struct.Fields) == 0 {
			for _, other := range u.Members {
				if other != m {
					return other, true
				}
			}
		}
	}
	return 0, false
}

func (g *generator) emitUnionCheck(n *ir.UnionCheck) {
	def, ok := g.prog.TypeDefs.Get(n.Operand.Type())
	if !ok || def.Union == nil {
		panic("codegen: union-check on a non-union type")
	}
	if nonNull, isNullable := g.isNullableUnion(def.Union); isNullable {
		g.emitExpr(n.Operand)
		g.asm.emitOp(opcode.CheckStructNull)
		if n.Want == nonNull {
			g.asm.emitOp(opcode.NotBool)
		}
		return
	}
	g.emitExpr(n.Operand)
	g.asm.emitOp(opcode.StructLoadField)
	g.asm.emitByte(0)
	g.emitLitInt(int32(unionOrdinal(def.Union, n.Want)))
	g.asm.emitOp(opcode.EqInt)
}

// emitUnionGet lowers a union-get: the boolean discriminant check, plus
// an unconditional extraction of the payload field into Bind — safe
// because the union's representation reserves that slot for the
// matching variant regardless of which variant is actually live. A
// nullable-struct-optimized union (see isNullableUnion) carries no
// discriminant/payload fields at all, so that case binds the operand
// itself and checks it the same way emitUnionCheck does.
func (g *generator) emitUnionGet(n *ir.UnionGet) {
	def, ok := g.prog.TypeDefs.Get(n.Operand.Type())
	if !ok || def.Union == nil {
		panic("codegen: union-get on a non-union type")
	}
	if nonNull, isNullable := g.isNullableUnion(def.Union); isNullable {
		g.emitExpr(n.Operand)
		g.asm.emitOp(opcode.Dup)
		g.asm.emitOp(opcode.StoreLocal)
		g.asm.emitU16(uint16(n.Bind - 1))
		g.asm.emitOp(opcode.CheckStructNull)
		if n.Want == nonNull {
			g.asm.emitOp(opcode.NotBool)
		}
		return
	}
	g.emitExpr(n.Operand)
	g.asm.emitOp(opcode.Dup)
	g.asm.emitOp(opcode.StructLoadField)
	g.asm.emitByte(1)
	g.asm.emitOp(opcode.StoreLocal)
	g.asm.emitU16(uint16(n.Bind - 1))

	g.asm.emitOp(opcode.StructLoadField)
	g.asm.emitByte(0)
	g.emitLitInt(int32(unionOrdinal(def.Union, n.Want)))
	g.asm.emitOp(opcode.EqInt)
}
