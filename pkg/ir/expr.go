package ir

import "github.com/novalang/novac/pkg/source"

// CallMode distinguishes the four ways a Call may execute.
type CallMode int

const (
	CallNormal CallMode = iota
	CallTail
	CallFork
	CallLazy
)

// Expr is the polymorphic IR expression node: a tagged sum over every
// variant, visited with a type switch rather than virtual dispatch.
// Every concrete type embeds exprBase, which carries the node's
// set-once SourceId and its result TypeId, fixed at construction time.
type Expr interface {
	SourceID() source.ID
	SetSourceID(source.ID)
	Type() TypeId
}

type exprBase struct {
	src source.ID
	typ TypeId
}

func (b *exprBase) SourceID() source.ID { return b.src }
func (b *exprBase) SetSourceID(id source.ID) {
	if b.src == source.None {
		b.src = id
	}
}
func (b *exprBase) Type() TypeId { return b.typ }

// ---- literals ----

type LitBool struct {
	exprBase
	Value bool
}

// NewLitBool constructs a bool literal of type boolType.
func NewLitBool(boolType TypeId, v bool) *LitBool {
	return &LitBool{exprBase: exprBase{typ: boolType}, Value: v}
}

type LitChar struct {
	exprBase
	Value byte
}

func NewLitChar(charType TypeId, v byte) *LitChar {
	return &LitChar{exprBase: exprBase{typ: charType}, Value: v}
}

type LitInt struct {
	exprBase
	Value int32
}

func NewLitInt(intType TypeId, v int32) *LitInt {
	return &LitInt{exprBase: exprBase{typ: intType}, Value: v}
}

type LitLong struct {
	exprBase
	Value int64
}

func NewLitLong(longType TypeId, v int64) *LitLong {
	return &LitLong{exprBase: exprBase{typ: longType}, Value: v}
}

type LitFloat struct {
	exprBase
	Value float64
}

func NewLitFloat(floatType TypeId, v float64) *LitFloat {
	return &LitFloat{exprBase: exprBase{typ: floatType}, Value: v}
}

type LitString struct {
	exprBase
	Value string
}

func NewLitString(stringType TypeId, v string) *LitString {
	return &LitString{exprBase: exprBase{typ: stringType}, Value: v}
}

// LitEnum is an enum-valued literal (constructed e.g. by a bare enum
// entry name resolving to its declared constant).
type LitEnum struct {
	exprBase
	Value int32
}

func NewLitEnum(enumType TypeId, v int32) *LitEnum {
	return &LitEnum{exprBase: exprBase{typ: enumType}, Value: v}
}

// LitFunc is a function reference used as a value (a delegate literal
// with no captures).
type LitFunc struct {
	exprBase
	Func FuncId
}

func NewLitFunc(delegateType TypeId, fn FuncId) *LitFunc {
	return &LitFunc{exprBase: exprBase{typ: delegateType}, Func: fn}
}

// Closure is a function reference plus bound trailing arguments, the
// lowering of an anonymous function with captured free variables.
type Closure struct {
	exprBase
	Func  FuncId
	Bound []Expr
}

func NewClosure(delegateType TypeId, fn FuncId, bound []Expr) *Closure {
	return &Closure{exprBase: exprBase{typ: delegateType}, Func: fn, Bound: bound}
}

// ---- reads / bindings ----

// Const reads a previously declared constant.
type Const struct {
	exprBase
	ID ConstId
}

func NewConst(typ TypeId, id ConstId) *Const {
	return &Const{exprBase: exprBase{typ: typ}, ID: id}
}

// Assign binds a constant to a value; the expression itself evaluates to
// that value (so `x = 1 + 1` can appear mid-expression).
type Assign struct {
	exprBase
	ID    ConstId
	Value Expr
}

func NewAssign(id ConstId, value Expr) *Assign {
	return &Assign{exprBase: exprBase{typ: value.Type()}, ID: id, Value: value}
}

// Group sequences evaluation of >=2 children; its type is the last
// child's type.
type Group struct {
	exprBase
	Elems []Expr
}

func NewGroup(elems []Expr) *Group {
	return &Group{exprBase: exprBase{typ: elems[len(elems)-1].Type()}, Elems: elems}
}

// Switch is the lowering target of conditional/switch/ternary/short-
// circuit logical forms: len(Branches) == len(Conds) + 1, the last
// branch being the implicit else.
type Switch struct {
	exprBase
	Conds    []Expr
	Branches []Expr
}

func NewSwitch(typ TypeId, conds, branches []Expr) *Switch {
	return &Switch{exprBase: exprBase{typ: typ}, Conds: conds, Branches: branches}
}

// Call invokes a statically resolved function.
type Call struct {
	exprBase
	Func FuncId
	Args []Expr
	Mode CallMode
}

func NewCall(typ TypeId, fn FuncId, args []Expr, mode CallMode) *Call {
	return &Call{exprBase: exprBase{typ: typ}, Func: fn, Args: args, Mode: mode}
}

// CallDyn invokes a delegate-typed value.
type CallDyn struct {
	exprBase
	Delegate Expr
	Args     []Expr
	Fork     bool
}

func NewCallDyn(typ TypeId, delegate Expr, args []Expr, fork bool) *CallDyn {
	return &CallDyn{exprBase: exprBase{typ: typ}, Delegate: delegate, Args: args, Fork: fork}
}

// CallSelf is unnamed recursion into the enclosing function.
type CallSelf struct {
	exprBase
	Args []Expr
}

func NewCallSelf(typ TypeId, args []Expr) *CallSelf {
	return &CallSelf{exprBase: exprBase{typ: typ}, Args: args}
}

// Field reads a struct field.
type Field struct {
	exprBase
	Receiver Expr
	FieldID  FieldId
}

func NewField(typ TypeId, receiver Expr, field FieldId) *Field {
	return &Field{exprBase: exprBase{typ: typ}, Receiver: receiver, FieldID: field}
}

// UnionCheck tests whether a union-typed value currently holds TypeId.
type UnionCheck struct {
	exprBase
	Operand Expr
	Want    TypeId
}

func NewUnionCheck(boolType TypeId, operand Expr, want TypeId) *UnionCheck {
	return &UnionCheck{exprBase: exprBase{typ: boolType}, Operand: operand, Want: want}
}

// UnionGet tests and, on success, binds a fresh constant to the payload;
// always has boolean type (the test result); the bound constant's type
// is Want.
type UnionGet struct {
	exprBase
	Operand Expr
	Want    TypeId
	Bind    ConstId
}

func NewUnionGet(boolType TypeId, operand Expr, want TypeId, bind ConstId) *UnionGet {
	return &UnionGet{exprBase: exprBase{typ: boolType}, Operand: operand, Want: want, Bind: bind}
}
