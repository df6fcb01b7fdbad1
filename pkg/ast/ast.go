// Package ast defines the parse tree (concrete syntax) produced by the
// parser: a polymorphic node set covering expressions and top-level
// statements. Nodes own their children and carry source spans; there are
// no back-pointers.
package ast

import "github.com/novalang/novac/pkg/source"

// Node is satisfied by every parse-tree element.
type Node interface {
	Span() source.Span
}

// Expr is a parse-tree expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a parse-tree top-level statement node.
type Stmt interface {
	Node
	stmtNode()
}

type Base struct{ Sp source.Span }

func (b Base) Span() source.Span { return b.Sp }

// TypeRef is the syntactic spelling of a type: a name plus, for templates,
// an ordered list of type arguments (`name{T1, T2}`).
type TypeRef struct {
	Base
	Name string
	Args []*TypeRef
}

// ---- Expressions ----

type Ident struct {
	Base
	Name string
}

func (*Ident) exprNode() {}

type IntLit struct {
	Base
	Value int32
}

func (*IntLit) exprNode() {}

type LongLit struct {
	Base
	Value int64
}

func (*LongLit) exprNode() {}

type FloatLit struct {
	Base
	Value float64
}

func (*FloatLit) exprNode() {}

type BoolLit struct {
	Base
	Value bool
}

func (*BoolLit) exprNode() {}

type CharLit struct {
	Base
	Value byte
}

func (*CharLit) exprNode() {}

type StringLit struct {
	Base
	Value string
}

func (*StringLit) exprNode() {}

// Binary is a binary-operator application; Op is the lexical operator
// spelling, e.g. "+", "&&".
type Binary struct {
	Base
	Op          string
	Left, Right Expr
}

func (*Binary) exprNode() {}

type Unary struct {
	Base
	Op      string
	Operand Expr
}

func (*Unary) exprNode() {}

// Paren wraps a parenthesized expression; kept distinct from its inner
// expression so `(f)()` can be told apart from `f()` during lowering
// (the former dispatches through a delegate value).
type Paren struct {
	Base
	Inner Expr
}

func (*Paren) exprNode() {}

// Group is `a; b; c`, evaluated in sequence; size is always >= 2.
type Group struct {
	Base
	Elems []Expr
}

func (*Group) exprNode() {}

// Arg is one positional call argument.
type Arg struct {
	Expr Expr
}

type Call struct {
	Base
	Callee    Expr
	TypeArgs  []*TypeRef
	Args      []Arg
	Fork      bool
	Lazy      bool
}

func (*Call) exprNode() {}

type Index struct {
	Base
	Receiver Expr
	Idx      Expr
}

func (*Index) exprNode() {}

type Field struct {
	Base
	Receiver Expr
	Name     string
}

func (*Field) exprNode() {}

// ConstDecl is `name = expr` appearing as an expression (it produces the
// assigned value).
type ConstDecl struct {
	Base
	Name string
	Init Expr
}

func (*ConstDecl) exprNode() {}

// CondClause is one `if cond` / trailing `else` arm of a Conditional.
type CondClause struct {
	Cond Expr // nil for the trailing else
	Body Expr
}

// Conditional is an if/else-if/.../else chain or a ternary; len(Clauses)
// conditions plus a trailing else body satisfy branches == conditions+1.
type Conditional struct {
	Base
	Clauses []CondClause
}

func (*Conditional) exprNode() {}

// Intrinsic is `intrinsic{name}{TypeArgs}(args)`.
type Intrinsic struct {
	Base
	Name     string
	TypeArgs []*TypeRef
	Args     []Arg
}

func (*Intrinsic) exprNode() {}

// Is is `expr is T`.
type Is struct {
	Base
	Operand Expr
	Type    *TypeRef
}

func (*Is) exprNode() {}

// As is `expr as T name`.
type As struct {
	Base
	Operand Expr
	Type    *TypeRef
	Name    string
}

func (*As) exprNode() {}

// Param is a function parameter, with an optional default-value
// expression for trailing optional arguments.
type Param struct {
	Name string
	Type *TypeRef
	Init Expr // nil unless this is an optional argument
}

// AnonFunc is an anonymous function/closure literal.
type AnonFunc struct {
	Base
	Params   []Param
	RetType  *TypeRef // nil when the return type is to be inferred
	IsAction bool
	Body     Expr
}

func (*AnonFunc) exprNode() {}

// ErrorExpr is produced by the parser at a syntax error so that
// surrounding structure can still be built; it carries the diagnostic
// message verbatim (lifted into a diagnostic during analyzer pass 1).
type ErrorExpr struct {
	Base
	Message string
}

func (*ErrorExpr) exprNode() {}

// ---- Statements ----

type FuncDecl struct {
	Base
	Name       string
	TypeParams []string
	Params     []Param
	RetType    *TypeRef // nil: infer
	IsAction   bool
	IsImplicit bool // declared `implicit fun ...`: an implicit conversion
	Body       Expr
}

func (*FuncDecl) stmtNode() {}

type FieldDecl struct {
	Name string
	Type *TypeRef
}

type StructDecl struct {
	Base
	Name       string
	TypeParams []string
	Fields     []FieldDecl
}

func (*StructDecl) stmtNode() {}

type UnionDecl struct {
	Base
	Name       string
	TypeParams []string
	Members    []*TypeRef
}

func (*UnionDecl) stmtNode() {}

type EnumEntry struct {
	Name     string
	HasValue bool
	Value    int32
}

type EnumDecl struct {
	Base
	Name    string
	Entries []EnumEntry
}

func (*EnumDecl) stmtNode() {}

type ImportDecl struct {
	Base
	Path     string
	PathSpan source.Span
}

func (*ImportDecl) stmtNode() {}

// ExecStmt is a bare top-level expression statement.
type ExecStmt struct {
	Base
	Expr Expr
}

func (*ExecStmt) stmtNode() {}

// ErrorStmt is produced at a statement-level syntax error; the parser
// resynchronizes at the next statement-starting keyword or semicolon
// after emitting it.
type ErrorStmt struct {
	Base
	Message string
}

func (*ErrorStmt) stmtNode() {}

// File is every top-level statement of a single parsed source, in order.
type File struct {
	Source source.ID
	Stmts  []Stmt
}
