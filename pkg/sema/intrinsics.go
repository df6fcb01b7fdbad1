package sema

import "github.com/novalang/novac/pkg/ir"

// registerIntrinsics declares the fixed family of built-in operator and
// conversion functions once per Program, before a single user file is
// looked at.
// Every primitive numeric/bool/char/string operator is its own FuncDecl
// so the rest of the analyzer (and later the optimizer's literal-
// precomputation pass) can treat them uniformly as ordinary calls.
func (a *Analyzer) registerIntrinsics() {
	p := a.prog

	declOp := func(op string, t ir.TypeId, kind ir.FuncKind, out ir.TypeId) {
		id := p.FuncDecls.Declare(ir.FuncDecl{
			Name:   "__op_" + op,
			Kind:   kind,
			Input:  ir.TypeSet{t, t},
			Output: out,
		})
		a.addOp(op, t, id)
	}
	declUnary := func(name string, t ir.TypeId, kind ir.FuncKind, out ir.TypeId) {
		id := p.FuncDecls.Declare(ir.FuncDecl{
			Name:   "__op_" + name,
			Kind:   kind,
			Input:  ir.TypeSet{t},
			Output: out,
		})
		a.addOp(name, t, id)
	}
	// Conversions are callable by the target type's name (`float(i)`,
	// `int(c)`), the same naming rule user implicit conversions follow.
	declConv := func(from, to ir.TypeId, kind ir.FuncKind, implicit bool) {
		id := p.FuncDecls.Declare(ir.FuncDecl{
			Name:           p.TypeDecls.Get(to).Name,
			Kind:           kind,
			Input:          ir.TypeSet{from},
			Output:         to,
			IsImplicitConv: implicit,
		})
		a.convFuncs[[2]ir.TypeId{from, to}] = id
	}

	// int
	declOp("+", p.IntType, ir.FuncIntrinsicAddInt, p.IntType)
	declOp("-", p.IntType, ir.FuncIntrinsicSubInt, p.IntType)
	declOp("*", p.IntType, ir.FuncIntrinsicMulInt, p.IntType)
	declOp("/", p.IntType, ir.FuncIntrinsicDivInt, p.IntType)
	declOp("%", p.IntType, ir.FuncIntrinsicRemInt, p.IntType)
	declOp("&", p.IntType, ir.FuncIntrinsicAndInt, p.IntType)
	declOp("|", p.IntType, ir.FuncIntrinsicOrInt, p.IntType)
	declOp("^", p.IntType, ir.FuncIntrinsicXorInt, p.IntType)
	declOp("<<", p.IntType, ir.FuncIntrinsicShlInt, p.IntType)
	declOp(">>", p.IntType, ir.FuncIntrinsicShrInt, p.IntType)
	declOp("==", p.IntType, ir.FuncIntrinsicEqInt, p.BoolType)
	declOp("!=", p.IntType, ir.FuncIntrinsicNeInt, p.BoolType)
	declOp("<", p.IntType, ir.FuncIntrinsicLtInt, p.BoolType)
	declOp("<=", p.IntType, ir.FuncIntrinsicLeInt, p.BoolType)
	declOp(">", p.IntType, ir.FuncIntrinsicGtInt, p.BoolType)
	declOp(">=", p.IntType, ir.FuncIntrinsicGeInt, p.BoolType)
	declUnary("neg", p.IntType, ir.FuncIntrinsicNegInt, p.IntType)
	declUnary("bnot", p.IntType, ir.FuncIntrinsicNotInt, p.IntType)

	// long
	declOp("+", p.LongType, ir.FuncIntrinsicAddLong, p.LongType)
	declOp("-", p.LongType, ir.FuncIntrinsicSubLong, p.LongType)
	declOp("*", p.LongType, ir.FuncIntrinsicMulLong, p.LongType)
	declOp("/", p.LongType, ir.FuncIntrinsicDivLong, p.LongType)
	declOp("%", p.LongType, ir.FuncIntrinsicRemLong, p.LongType)
	declOp("==", p.LongType, ir.FuncIntrinsicEqLong, p.BoolType)
	declOp("<", p.LongType, ir.FuncIntrinsicLtLong, p.BoolType)
	declUnary("neg", p.LongType, ir.FuncIntrinsicNegLong, p.LongType)

	// float
	declOp("+", p.FloatType, ir.FuncIntrinsicAddFloat, p.FloatType)
	declOp("-", p.FloatType, ir.FuncIntrinsicSubFloat, p.FloatType)
	declOp("*", p.FloatType, ir.FuncIntrinsicMulFloat, p.FloatType)
	declOp("/", p.FloatType, ir.FuncIntrinsicDivFloat, p.FloatType)
	declOp("==", p.FloatType, ir.FuncIntrinsicEqFloat, p.BoolType)
	declOp("<", p.FloatType, ir.FuncIntrinsicLtFloat, p.BoolType)
	declUnary("neg", p.FloatType, ir.FuncIntrinsicNegFloat, p.FloatType)

	// bool
	declOp("&&", p.BoolType, ir.FuncIntrinsicAndBool, p.BoolType)
	declOp("||", p.BoolType, ir.FuncIntrinsicOrBool, p.BoolType)
	declOp("==", p.BoolType, ir.FuncIntrinsicEqBool, p.BoolType)
	declUnary("not", p.BoolType, ir.FuncIntrinsicNotBool, p.BoolType)

	// char
	declOp("==", p.CharType, ir.FuncIntrinsicEqChar, p.BoolType)

	// string
	declOp("+", p.StringType, ir.FuncIntrinsicConcatString, p.StringType)
	declOp("==", p.StringType, ir.FuncIntrinsicEqString, p.BoolType)
	// index ("__op_squaresquare") is registered separately: receiver is
	// string, index operand is int, result is char.
	idxID := p.FuncDecls.Declare(ir.FuncDecl{
		Name:   "__op_squaresquare",
		Kind:   ir.FuncIntrinsicIndexString,
		Input:  ir.TypeSet{p.StringType, p.IntType},
		Output: p.CharType,
	})
	a.addOp("[]", p.StringType, idxID)

	// Conversions. int -> long -> float widen implicitly; everything else
	// (char<->int, enum<->int, reinterpret bit-casts) is explicit-only.
	declConv(p.IntType, p.LongType, ir.FuncIntrinsicConvIntToLong, true)
	declConv(p.IntType, p.FloatType, ir.FuncIntrinsicConvIntToFloat, true)
	declConv(p.LongType, p.FloatType, ir.FuncIntrinsicConvLongToFloat, true)
	declConv(p.IntType, p.CharType, ir.FuncIntrinsicConvIntToChar, false)
	declConv(p.CharType, p.IntType, ir.FuncIntrinsicConvCharToInt, false)
}

func (a *Analyzer) addOp(op string, t ir.TypeId, id ir.FuncId) {
	m, ok := a.opFuncs[op]
	if !ok {
		m = make(map[ir.TypeId]ir.FuncId)
		a.opFuncs[op] = m
	}
	m[t] = id
}
