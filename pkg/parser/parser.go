// Package parser turns a token stream into a parse tree using
// recursive-descent statement parsing and Pratt-style expression parsing.
// It never aborts on a syntax error: an ErrorExpr/ErrorStmt is produced in
// place and parsing resynchronizes at the next statement boundary.
package parser

import (
	"strconv"

	"github.com/novalang/novac/pkg/ast"
	"github.com/novalang/novac/pkg/lexer"
	"github.com/novalang/novac/pkg/source"
	"github.com/novalang/novac/pkg/token"
)

// Parser holds a small lookahead buffer over a Lexer's token stream.
type Parser struct {
	lx   *lexer.Lexer
	src  source.ID
	toks []token.Token
	last source.Span // span of the most recently consumed token
}

// New returns a Parser reading tokens lazily from lx, tagging every node
// with srcID.
func New(lx *lexer.Lexer, srcID source.ID) *Parser {
	return &Parser{lx: lx, src: srcID}
}

// Parse runs a full Parser over src and returns the resulting File.
func Parse(src *source.Source) *ast.File {
	p := New(lexer.New(src), src.ID)
	return p.ParseFile()
}

func mkBase(sp source.Span) ast.Base { return ast.Base{Sp: sp} }

func (p *Parser) fill(n int) {
	for len(p.toks) <= n {
		tok := p.lx.Next()
		if tok.Kind == token.LineComment {
			continue
		}
		p.toks = append(p.toks, tok)
	}
}

func (p *Parser) peekN(n int) token.Token {
	p.fill(n)
	return p.toks[n]
}

func (p *Parser) cur() token.Token { return p.peekN(0) }

func (p *Parser) advance() token.Token {
	tok := p.cur()
	p.toks = p.toks[1:]
	p.last = tok.Span
	return tok
}

func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) match(k token.Kind) bool {
	if p.at(k) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(k token.Kind) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	return p.cur(), false
}

// ---- top level ----

// ParseFile parses every statement until end-of-input.
func (p *Parser) ParseFile() *ast.File {
	f := &ast.File{Source: p.src}
	for !p.at(token.EOF) {
		if p.match(token.Semicolon) {
			continue
		}
		f.Stmts = append(f.Stmts, p.parseStmt())
	}
	return f
}

func isStmtStart(k token.Kind) bool {
	switch k {
	case token.KwFun, token.KwAct, token.KwImplicit, token.KwStruct, token.KwUnion, token.KwEnum, token.KwImport, token.Semicolon, token.EOF:
		return true
	}
	return false
}

func (p *Parser) resync() {
	for !isStmtStart(p.cur().Kind) {
		p.advance()
	}
	p.match(token.Semicolon)
}

func (p *Parser) newErrStmt(start source.Span, message string) ast.Stmt {
	sp := start.Join(p.cur().Span)
	p.resync()
	return &ast.ErrorStmt{Base: mkBase(sp), Message: message}
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.cur().Kind {
	case token.KwImport:
		return p.parseImport()
	case token.KwFun, token.KwAct:
		return p.parseFuncDecl()
	case token.KwImplicit:
		return p.parseImplicitDecl()
	case token.KwStruct:
		return p.parseStructDecl()
	case token.KwUnion:
		return p.parseUnionDecl()
	case token.KwEnum:
		return p.parseEnumDecl()
	default:
		return p.parseExecStmt()
	}
}

func (p *Parser) parseExecStmt() ast.Stmt {
	start := p.cur().Span
	e := p.parseExpr()
	sp := start.Join(e.Span())
	p.match(token.Semicolon)
	return &ast.ExecStmt{Base: mkBase(sp), Expr: e}
}

func (p *Parser) parseImport() ast.Stmt {
	start := p.advance().Span // 'import'
	tok, ok := p.expect(token.StringLit)
	if !ok {
		return p.newErrStmt(start, "expected string literal after 'import'")
	}
	p.match(token.Semicolon)
	return &ast.ImportDecl{Base: mkBase(start.Join(tok.Span)), Path: tok.Text, PathSpan: tok.Span}
}

func (p *Parser) parseTypeParams() []string {
	if !p.match(token.LBrace) {
		return nil
	}
	var names []string
	for {
		tok, ok := p.expect(token.Ident)
		if !ok {
			break
		}
		names = append(names, tok.Text)
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RBrace)
	return names
}

func (p *Parser) parseTypeRef() *ast.TypeRef {
	start := p.cur().Span
	name := ""
	if tok, ok := p.expect(token.Ident); ok {
		name = tok.Text
	}
	tr := &ast.TypeRef{Name: name}
	// `{` opens type arguments only when an identifier follows it and is
	// itself followed by `,`, `}` or `{`; otherwise (e.g. `{ x = 1; x }`
	// after `-> int`) the brace is left to the caller as a block.
	if next := p.peekN(2).Kind; p.at(token.LBrace) && p.peekN(1).Kind == token.Ident &&
		(next == token.Comma || next == token.RBrace || next == token.LBrace) {
		p.advance()
		for !p.at(token.RBrace) && !p.at(token.EOF) {
			tr.Args = append(tr.Args, p.parseTypeRef())
			if !p.match(token.Comma) {
				break
			}
		}
		p.expect(token.RBrace)
	}
	tr.Base = mkBase(start.Join(p.last))
	return tr
}

func (p *Parser) parseParamList() []ast.Param {
	var params []ast.Param
	for !p.at(token.RParen) && !p.at(token.EOF) {
		typ := p.parseTypeRef()
		nameTok, _ := p.expect(token.Ident)
		param := ast.Param{Name: nameTok.Text, Type: typ}
		if p.match(token.Assign) {
			param.Init = p.parseExpr()
		}
		params = append(params, param)
		if !p.match(token.Comma) {
			break
		}
	}
	return params
}

func (p *Parser) parseFuncDecl() ast.Stmt {
	start := p.cur().Span
	isAction := p.advance().Kind == token.KwAct // consumes 'fun'/'act'
	nameTok, ok := p.expect(token.Ident)
	if !ok {
		return p.newErrStmt(start, "expected function name")
	}
	typeParams := p.parseTypeParams()
	if _, ok := p.expect(token.LParen); !ok {
		return p.newErrStmt(start, "expected '(' after function name")
	}
	params := p.parseParamList()
	p.expect(token.RParen)
	var ret *ast.TypeRef
	if p.match(token.Arrow) {
		ret = p.parseTypeRef()
	}
	body := p.parseExpr()
	return &ast.FuncDecl{
		Base:       mkBase(start.Join(body.Span())),
		Name:       nameTok.Text,
		TypeParams: typeParams,
		Params:     params,
		RetType:    ret,
		IsAction:   isAction,
		Body:       body,
	}
}

// parseImplicitDecl parses `implicit fun T(S s) body`, an implicit
// conversion declaration. The modifier is accepted before `fun` or `act`;
// the purity requirement on conversions is enforced by the analyzer, which
// also validates that the name matches the declared return type.
func (p *Parser) parseImplicitDecl() ast.Stmt {
	start := p.advance().Span // 'implicit'
	if !p.at(token.KwFun) && !p.at(token.KwAct) {
		return p.newErrStmt(start, "expected 'fun' or 'act' after 'implicit'")
	}
	st := p.parseFuncDecl()
	if fd, ok := st.(*ast.FuncDecl); ok {
		fd.IsImplicit = true
		fd.Sp = start.Join(fd.Sp)
	}
	return st
}

func (p *Parser) parseStructDecl() ast.Stmt {
	start := p.advance().Span // 'struct'
	nameTok, ok := p.expect(token.Ident)
	if !ok {
		return p.newErrStmt(start, "expected struct name")
	}
	typeParams := p.parseTypeParams()
	if _, ok := p.expect(token.Assign); !ok {
		return p.newErrStmt(start, "expected '=' in struct declaration")
	}
	var fields []ast.FieldDecl
	for {
		typ := p.parseTypeRef()
		nameTok, _ := p.expect(token.Ident)
		fields = append(fields, ast.FieldDecl{Name: nameTok.Text, Type: typ})
		if !p.match(token.Comma) {
			break
		}
	}
	sp := start.Join(p.last)
	p.match(token.Semicolon)
	return &ast.StructDecl{Base: mkBase(sp), Name: nameTok.Text, TypeParams: typeParams, Fields: fields}
}

func (p *Parser) parseUnionDecl() ast.Stmt {
	start := p.advance().Span // 'union'
	nameTok, ok := p.expect(token.Ident)
	if !ok {
		return p.newErrStmt(start, "expected union name")
	}
	typeParams := p.parseTypeParams()
	if _, ok := p.expect(token.Assign); !ok {
		return p.newErrStmt(start, "expected '=' in union declaration")
	}
	var members []*ast.TypeRef
	for {
		members = append(members, p.parseTypeRef())
		if !p.match(token.Comma) {
			break
		}
	}
	sp := start.Join(p.last)
	p.match(token.Semicolon)
	return &ast.UnionDecl{Base: mkBase(sp), Name: nameTok.Text, TypeParams: typeParams, Members: members}
}

func (p *Parser) parseEnumDecl() ast.Stmt {
	start := p.advance().Span // 'enum'
	nameTok, ok := p.expect(token.Ident)
	if !ok {
		return p.newErrStmt(start, "expected enum name")
	}
	if _, ok := p.expect(token.Assign); !ok {
		return p.newErrStmt(start, "expected '=' in enum declaration")
	}
	var entries []ast.EnumEntry
	for {
		nameTok, ok := p.expect(token.Ident)
		if !ok {
			break
		}
		entry := ast.EnumEntry{Name: nameTok.Text}
		if p.match(token.Colon) {
			neg := p.match(token.Minus)
			valTok, _ := p.expect(token.IntLit)
			v, _ := strconv.ParseInt(valTok.Text, 10, 32)
			if neg {
				v = -v
			}
			entry.HasValue = true
			entry.Value = int32(v)
		}
		entries = append(entries, entry)
		if !p.match(token.Comma) {
			break
		}
	}
	sp := start.Join(p.last)
	p.match(token.Semicolon)
	return &ast.EnumDecl{Base: mkBase(sp), Name: nameTok.Text, Entries: entries}
}

// ---- expressions ----

// precedence table; higher binds tighter. A fixed operator set —
// assignment-style, short-circuit logical, and ternary are excluded from
// user overloading, which is enforced in sema, not here.
var binPrec = map[token.Kind]int{
	token.OrOr:      1,
	token.AndAnd:    2,
	token.EqEq:      3,
	token.NotEq:     3,
	token.Less:      4,
	token.LessEq:    4,
	token.Greater:   4,
	token.GreaterEq: 4,
	token.Pipe:      5,
	token.Caret:     6,
	token.Amp:       7,
	token.Shl:       8,
	token.Shr:       8,
	token.Plus:      9,
	token.Minus:     9,
	token.Star:      10,
	token.Slash:     10,
	token.Percent:   10,
}

var opText = map[token.Kind]string{
	token.OrOr: "||", token.AndAnd: "&&", token.EqEq: "==", token.NotEq: "!=",
	token.Less: "<", token.LessEq: "<=", token.Greater: ">", token.GreaterEq: ">=",
	token.Pipe: "|", token.Caret: "^", token.Amp: "&", token.Shl: "<<", token.Shr: ">>",
	token.Plus: "+", token.Minus: "-", token.Star: "*", token.Slash: "/", token.Percent: "%",
}

// parseExpr parses a full expression: const-decl, ternary, or a binary
// expression chain.
func (p *Parser) parseExpr() ast.Expr {
	if p.at(token.Ident) && p.peekN(1).Kind == token.Assign {
		start := p.cur().Span
		name := p.advance().Text
		p.advance() // '='
		init := p.parseExpr()
		return &ast.ConstDecl{Base: mkBase(start.Join(init.Span())), Name: name, Init: init}
	}
	return p.parseTernary()
}

func (p *Parser) parseTernary() ast.Expr {
	cond := p.parseBinary(1)
	if !p.match(token.Question) {
		return cond
	}
	then := p.parseExpr()
	if _, ok := p.expect(token.Colon); !ok {
		return &ast.ErrorExpr{Base: mkBase(cond.Span()), Message: "expected ':' in ternary expression"}
	}
	els := p.parseExpr()
	sp := cond.Span().Join(els.Span())
	return &ast.Conditional{
		Base: mkBase(sp),
		Clauses: []ast.CondClause{
			{Cond: cond, Body: then},
			{Cond: nil, Body: els},
		},
	}
}

func (p *Parser) parseBinary(minPrec int) ast.Expr {
	left := p.parseUnary()
	for {
		prec, ok := binPrec[p.cur().Kind]
		if !ok || prec < minPrec {
			return left
		}
		opKind := p.advance().Kind
		right := p.parseBinary(prec + 1)
		sp := left.Span().Join(right.Span())
		left = &ast.Binary{Base: mkBase(sp), Op: opText[opKind], Left: left, Right: right}
	}
}

var unaryOpText = map[token.Kind]string{token.Minus: "-", token.Bang: "!", token.Tilde: "~"}

func (p *Parser) parseUnary() ast.Expr {
	switch p.cur().Kind {
	case token.Minus, token.Bang, token.Tilde:
		start := p.advance()
		operand := p.parseUnary()
		return &ast.Unary{Base: mkBase(start.Span.Join(operand.Span())), Op: unaryOpText[start.Kind], Operand: operand}
	case token.KwFork, token.KwLazy:
		start := p.advance()
		isFork := start.Kind == token.KwFork
		operand := p.parseUnary()
		call, ok := operand.(*ast.Call)
		if !ok {
			return &ast.ErrorExpr{Base: mkBase(start.Span.Join(operand.Span())), Message: "fork/lazy must apply to a call"}
		}
		if isFork {
			call.Fork = true
		} else {
			call.Lazy = true
		}
		return call
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() ast.Expr {
	e := p.parsePrimary()
	for {
		switch p.cur().Kind {
		case token.Dot:
			p.advance()
			nameTok, ok := p.expect(token.Ident)
			if !ok {
				return &ast.ErrorExpr{Base: mkBase(e.Span()), Message: "expected field name after '.'"}
			}
			e = &ast.Field{Base: mkBase(e.Span().Join(nameTok.Span)), Receiver: e, Name: nameTok.Text}
		case token.LBracket:
			p.advance()
			idx := p.parseExpr()
			end, _ := p.expect(token.RBracket)
			e = &ast.Index{Base: mkBase(e.Span().Join(end.Span)), Receiver: e, Idx: idx}
		case token.LParen:
			args, endSp := p.parseArgs()
			e = &ast.Call{Base: mkBase(e.Span().Join(endSp)), Callee: e, Args: args}
		case token.KwIs:
			p.advance()
			typ := p.parseTypeRef()
			e = &ast.Is{Base: mkBase(e.Span().Join(typ.Span())), Operand: e, Type: typ}
		case token.KwAs:
			p.advance()
			typ := p.parseTypeRef()
			nameTok, _ := p.expect(token.Ident)
			e = &ast.As{Base: mkBase(e.Span().Join(nameTok.Span)), Operand: e, Type: typ, Name: nameTok.Text}
		default:
			return e
		}
	}
}

// parseArgs parses a parenthesized, comma-separated argument list. The
// current token must be '(' — callers only reach it on that condition.
func (p *Parser) parseArgs() ([]ast.Arg, source.Span) {
	start := p.advance().Span // '('
	var args []ast.Arg
	for !p.at(token.RParen) && !p.at(token.EOF) {
		args = append(args, ast.Arg{Expr: p.parseExpr()})
		if !p.match(token.Comma) {
			break
		}
	}
	end, ok := p.expect(token.RParen)
	if !ok {
		return args, start
	}
	return args, end.Span
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.cur()
	switch tok.Kind {
	case token.IntLit:
		p.advance()
		v, _ := strconv.ParseInt(tok.Text, 10, 64)
		const maxInt32, minInt32 = 1<<31 - 1, -1 << 31
		if v > maxInt32 || v < minInt32 {
			return &ast.ErrorExpr{Base: mkBase(tok.Span), Message: "integer literal overflows int"}
		}
		return &ast.IntLit{Base: mkBase(tok.Span), Value: int32(v)}
	case token.LongLit:
		p.advance()
		v, _ := strconv.ParseInt(tok.Text, 10, 64)
		return &ast.LongLit{Base: mkBase(tok.Span), Value: v}
	case token.FloatLit:
		p.advance()
		v, _ := strconv.ParseFloat(tok.Text, 64)
		return &ast.FloatLit{Base: mkBase(tok.Span), Value: v}
	case token.BoolLit:
		p.advance()
		return &ast.BoolLit{Base: mkBase(tok.Span), Value: tok.Text == "true"}
	case token.CharLit:
		p.advance()
		return &ast.CharLit{Base: mkBase(tok.Span), Value: tok.Text[0]}
	case token.StringLit:
		p.advance()
		return &ast.StringLit{Base: mkBase(tok.Span), Value: tok.Text}
	case token.LParen:
		p.advance()
		inner := p.parseExpr()
		end, _ := p.expect(token.RParen)
		return &ast.Paren{Base: mkBase(tok.Span.Join(end.Span)), Inner: inner}
	case token.LBrace:
		return p.parseBlock()
	case token.KwIf:
		return p.parseIf()
	case token.KwFun, token.KwAct:
		return p.parseAnonFunc()
	case token.KwIntrinsic:
		return p.parseIntrinsic()
	case token.Ident:
		p.advance()
		if p.at(token.LBrace) {
			// Template instantiation at a call site: name{T1,T2}(args).
			typeArgs := p.parseTypeParams0()
			if !p.at(token.LParen) {
				return &ast.ErrorExpr{Base: mkBase(tok.Span.Join(p.last)), Message: "expected '(' after template arguments"}
			}
			args, endSp := p.parseArgs()
			return &ast.Call{Base: mkBase(tok.Span.Join(endSp)), Callee: &ast.Ident{Base: mkBase(tok.Span), Name: tok.Text}, TypeArgs: typeArgs, Args: args}
		}
		return &ast.Ident{Base: mkBase(tok.Span), Name: tok.Text}
	default:
		p.advance()
		return &ast.ErrorExpr{Base: mkBase(tok.Span), Message: "unexpected token in expression"}
	}
}

// parseTypeParams0 parses `{T1, T2}` as type references (for call-site
// template arguments), without requiring plain identifiers.
func (p *Parser) parseTypeParams0() []*ast.TypeRef {
	p.advance() // '{'
	var args []*ast.TypeRef
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		args = append(args, p.parseTypeRef())
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RBrace)
	return args
}

func (p *Parser) parseIntrinsic() ast.Expr {
	start := p.advance().Span // 'intrinsic'
	if _, ok := p.expect(token.LBrace); !ok {
		return &ast.ErrorExpr{Base: mkBase(start), Message: "expected '{' after 'intrinsic'"}
	}
	nameTok, _ := p.expect(token.Ident)
	p.expect(token.RBrace)
	var typeArgs []*ast.TypeRef
	if p.at(token.LBrace) {
		typeArgs = p.parseTypeParams0()
	}
	args, endSp := p.parseArgs()
	return &ast.Intrinsic{Base: mkBase(start.Join(endSp)), Name: nameTok.Text, TypeArgs: typeArgs, Args: args}
}

func (p *Parser) parseBlock() ast.Expr {
	start := p.advance().Span // '{'
	var elems []ast.Expr
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		elems = append(elems, p.parseExpr())
		if !p.match(token.Semicolon) {
			break
		}
	}
	end, _ := p.expect(token.RBrace)
	sp := start.Join(end.Span)
	if len(elems) == 0 {
		return &ast.ErrorExpr{Base: mkBase(sp), Message: "empty block"}
	}
	if len(elems) == 1 {
		return elems[0]
	}
	return &ast.Group{Base: mkBase(sp), Elems: elems}
}

func (p *Parser) parseIf() ast.Expr {
	start := p.cur().Span
	var clauses []ast.CondClause
	for {
		p.advance() // 'if'
		cond := p.parseExpr()
		body := p.parseExpr()
		clauses = append(clauses, ast.CondClause{Cond: cond, Body: body})
		if !p.match(token.KwElse) {
			return &ast.ErrorExpr{Base: mkBase(start.Join(body.Span())), Message: "expected 'else' clause"}
		}
		if p.at(token.KwIf) {
			continue
		}
		elseBody := p.parseExpr()
		clauses = append(clauses, ast.CondClause{Cond: nil, Body: elseBody})
		return &ast.Conditional{Base: mkBase(start.Join(elseBody.Span())), Clauses: clauses}
	}
}

func (p *Parser) parseAnonFunc() ast.Expr {
	start := p.cur().Span
	isAction := p.advance().Kind == token.KwAct
	if _, ok := p.expect(token.LParen); !ok {
		return &ast.ErrorExpr{Base: mkBase(start), Message: "expected '(' in anonymous function"}
	}
	params := p.parseParamList()
	p.expect(token.RParen)
	var ret *ast.TypeRef
	if p.match(token.Arrow) {
		ret = p.parseTypeRef()
	}
	body := p.parseExpr()
	return &ast.AnonFunc{Base: mkBase(start.Join(body.Span())), Params: params, RetType: ret, IsAction: isAction, Body: body}
}
