package parse

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/robfig/tstmpl/ast"
	"github.com/robfig/tstmpl/errortypes"
)

// tree is the state of parsing a single interpolation expression.
type tree struct {
	name      string  // name provided for the input
	lex       *lexer  // lexer provides a sequence of tokens
	token     [2]item // two-token lookahead
	peekCount int     // how many tokens have we backed up?
}

// Expr parses a standalone expression, as found between ${ and }.
func Expr(str string) (node ast.Node, err error) {
	var t = &tree{lex: lexExpr("", str, 0)}
	defer t.recover(&err)
	return t.parseSpan(), nil
}

// Interpolation parses the expression of an interpolation span found by Body
// in the given body text.  Node positions and error messages refer to
// locations in the body.
func Interpolation(name, body string, n *ast.InterpNode) (node ast.Node, err error) {
	var start = int(n.Pos) + len("${")
	var t = newSubtree(name, body, start, start+len(n.Source))
	defer t.recover(&err)
	return t.parseSpan(), nil
}

func newSubtree(name, text string, start, end int) *tree {
	return &tree{
		name: name,
		lex:  lexExpr(name, text[:end], ast.Pos(start)),
	}
}

// parseSpan parses an expression which must consume all of the input.
func (t *tree) parseSpan() ast.Node {
	var n = t.parseExpr(0)
	if tok := t.next(); tok.typ != itemEOF {
		t.unexpected(tok, "expression")
	}
	return n
}

var precedence = map[itemType]int{
	itemNot:         7,
	itemNegate:      7,
	itemPlus:        7,
	itemTypeof:      7,
	itemMul:         6,
	itemDiv:         6,
	itemMod:         6,
	itemAdd:         5,
	itemSub:         5,
	itemGt:          4,
	itemGte:         4,
	itemLt:          4,
	itemLte:         4,
	itemEq:          3,
	itemNotEq:       3,
	itemStrictEq:    3,
	itemStrictNotEq: 3,
	itemAnd:         2,
	itemOr:          1,
	itemNullish:     1,
}

// parseExpr parses an arbitrary expression involving function applications and
// arithmetic.
//
// For handling binary operators, we use the Precedence Climbing algorithm described in:
//   http://www.engr.mun.ca/~theo/Misc/exp_parsing.htm
func (t *tree) parseExpr(prec int) ast.Node {
	n := t.parseExprFirstTerm()
	var tok item
	for {
		tok = t.next()
		q := precedence[tok.typ]
		if !isBinaryOp(tok.typ) || q < prec {
			break
		}
		q++
		n = newBinaryOpNode(tok, n, t.parseExpr(q))
	}
	if prec == 0 && tok.typ == itemTernIf {
		return t.parseTernary(n)
	}
	t.backup()
	return n
}

// Primary ->   "(" Expr ")"
//            | u=UnaryOp PrecExpr(prec(u))
//            | ArrowFunction
//            | Value Postfix*
func (t *tree) parseExprFirstTerm() ast.Node {
	switch tok := t.next(); {
	case isUnaryOp(tok):
		return newUnaryOpNode(tok, t.parseExpr(precedence[tok.typ]))
	case tok.typ == itemLeftParen:
		n := t.parseExpr(0)
		t.expect(itemRightParen, "expression")
		return t.parsePostfix(&ast.GroupNode{Pos: tok.pos, Arg: n})
	case tok.typ == itemArrowParams:
		return t.parseArrow(tok, arrowParams(tok.val))
	case tok.typ == itemIdent && t.peek().typ == itemArrow:
		return t.parseArrow(tok, []string{tok.val})
	case isValue(tok):
		return t.parsePostfix(t.newValueNode(tok))
	default:
		t.unexpected(tok, "expression")
	}
	return nil
}

// ArrowFunction -> ( Ident | ArrowParams ) "=>" Expr
func (t *tree) parseArrow(tok item, params []string) ast.Node {
	t.expect(itemArrow, "arrow function")
	return &ast.ArrowFuncNode{Pos: tok.pos, Params: params, Body: t.parseExpr(0)}
}

func arrowParams(val string) []string {
	var params []string
	for _, param := range strings.Split(val[1:len(val)-1], ",") {
		if param = strings.TrimSpace(param); param != "" {
			params = append(params, param)
		}
	}
	return params
}

// Postfix ->   ( "." | "?." ) Name
//            | "?."? "[" Expr "]"
//            | "?."? "(" [ Expr ( "," Expr )* ] ")"
func (t *tree) parsePostfix(n ast.Node) ast.Node {
	for {
		var optional = false
		var tok = t.next()
		if tok.typ == itemQuestionDot {
			optional = true
			switch next := t.next(); next.typ {
			case itemLeftBracket, itemLeftParen, itemArrowParams:
				tok = next
			default:
				t.backup()
			}
		}
		switch tok.typ {
		case itemDot, itemQuestionDot:
			var name = t.next()
			if !isName(name.typ) {
				t.unexpected(name, "property access")
			}
			n = &ast.MemberNode{Pos: n.Position(), Obj: n, Name: name.val, Optional: optional}
		case itemLeftBracket:
			n = &ast.IndexNode{Pos: n.Position(), Obj: n, Index: t.parseExpr(0), Optional: optional}
			t.expect(itemRightBracket, "index")
		case itemLeftParen:
			n = &ast.CallNode{Pos: n.Position(), Fn: n, Args: t.parseArgs(), Optional: optional}
		case itemArrowParams:
			t.errorf("unexpected arrow function after %v", n)
		default:
			t.backup()
			return n
		}
	}
}

// parseArgs parses a call's argument list.  "(" has already been read.
func (t *tree) parseArgs() []ast.Node {
	var args []ast.Node
	if t.peek().typ == itemRightParen {
		t.next()
		return args
	}
	for {
		args = append(args, t.parseExpr(0))
		switch tok := t.next(); tok.typ {
		case itemComma:
			if t.peek().typ == itemRightParen {
				t.next()
				return args
			}
		case itemRightParen:
			return args // all done
		default:
			t.unexpected(tok, "reading function arguments")
		}
	}
}

// "[" has just been read
//  ListLiteral -> "[" [ Expr ( "," Expr )* [ "," ] ] "]"
func (t *tree) parseListLiteral(first item) ast.Node {
	var list = &ast.ListLiteralNode{Pos: first.pos}
	if t.peek().typ == itemRightBracket {
		t.next()
		return list
	}
	for {
		list.Items = append(list.Items, t.parseExpr(0))
		switch next := t.next(); next.typ {
		case itemRightBracket:
			return list
		case itemComma:
			if t.peek().typ == itemRightBracket {
				t.next()
				return list
			}
		default:
			t.unexpected(next, "list literal")
		}
	}
}

// parseTemplateLiteral splits a template literal into its text pieces and
// the expressions between them, each parsed in place.
func (t *tree) parseTemplateLiteral(tok item) ast.Node {
	var (
		text    = t.lex.input
		start   = int(tok.pos) + 1
		end     = int(tok.pos) + len(tok.val) - 1
		node    = &ast.TemplateLiteralNode{Pos: tok.pos}
		quasi   = start
		escaped = false
	)
	var addQuasi = func(s string) {
		cooked, err := unescape(s)
		if err != nil {
			t.errorf("error unescaping template literal: %s", err)
		}
		node.Quasis = append(node.Quasis, cooked)
	}
	for i := start; i < end; i++ {
		switch {
		case escaped:
			escaped = false
		case text[i] == '\\':
			escaped = true
		case strings.HasPrefix(text[i:], "${"):
			var close, ok = scanInterp(text, i+2)
			if !ok || close >= end {
				t.errorf("unterminated interpolation in template literal")
			}
			addQuasi(text[quasi:i])
			var sub = newSubtree(t.name, text, i+2, close)
			node.Exprs = append(node.Exprs, sub.parseSpan())
			quasi = close + 1
			i = close
		}
	}
	addQuasi(text[quasi:end])
	return node
}

// parseTernary parses the conditional operator within an expression.
// itemTernIf has already been read, and the condition is provided.
func (t *tree) parseTernary(cond ast.Node) ast.Node {
	n1 := t.parseExpr(0)
	t.expect(itemColon, "conditional")
	n2 := t.parseExpr(0)
	return &ast.TernNode{Pos: cond.Position(), Arg1: cond, Arg2: n1, Arg3: n2}
}

func isBinaryOp(typ itemType) bool {
	switch typ {
	case itemMul, itemDiv, itemMod,
		itemAdd, itemSub,
		itemEq, itemNotEq, itemStrictEq, itemStrictNotEq,
		itemGt, itemGte, itemLt, itemLte,
		itemOr, itemAnd, itemNullish:
		return true
	}
	return false
}

func isUnaryOp(t item) bool {
	switch t.typ {
	case itemNot, itemNegate, itemPlus, itemTypeof:
		return true
	}
	return false
}

func isValue(t item) bool {
	switch t.typ {
	case itemNull, itemUndefined, itemBool, itemInteger, itemFloat, itemString,
		itemTemplate, itemIdent, itemLeftBracket:
		return true
	}
	return false
}

// isName returns true for tokens that may follow a dot as a property name.
func isName(typ itemType) bool {
	switch typ {
	case itemIdent, itemNull, itemUndefined, itemBool, itemTypeof:
		return true
	}
	return false
}

func op(n ast.BinaryOpNode, name string) ast.BinaryOpNode {
	n.Name = name
	return n
}

func newBinaryOpNode(t item, n1, n2 ast.Node) ast.Node {
	var bin = ast.BinaryOpNode{Name: "", Pos: t.pos, Arg1: n1, Arg2: n2}
	switch t.typ {
	case itemMul:
		return &ast.MulNode{BinaryOpNode: op(bin, "*")}
	case itemDiv:
		return &ast.DivNode{BinaryOpNode: op(bin, "/")}
	case itemMod:
		return &ast.ModNode{BinaryOpNode: op(bin, "%")}
	case itemAdd:
		return &ast.AddNode{BinaryOpNode: op(bin, "+")}
	case itemSub:
		return &ast.SubNode{BinaryOpNode: op(bin, "-")}
	case itemEq:
		return &ast.EqNode{BinaryOpNode: op(bin, "==")}
	case itemNotEq:
		return &ast.NotEqNode{BinaryOpNode: op(bin, "!=")}
	case itemStrictEq:
		return &ast.StrictEqNode{BinaryOpNode: op(bin, "===")}
	case itemStrictNotEq:
		return &ast.StrictNotEqNode{BinaryOpNode: op(bin, "!==")}
	case itemGt:
		return &ast.GtNode{BinaryOpNode: op(bin, ">")}
	case itemGte:
		return &ast.GteNode{BinaryOpNode: op(bin, ">=")}
	case itemLt:
		return &ast.LtNode{BinaryOpNode: op(bin, "<")}
	case itemLte:
		return &ast.LteNode{BinaryOpNode: op(bin, "<=")}
	case itemOr:
		return &ast.OrNode{BinaryOpNode: op(bin, "||")}
	case itemAnd:
		return &ast.AndNode{BinaryOpNode: op(bin, "&&")}
	case itemNullish:
		return &ast.NullishNode{BinaryOpNode: op(bin, "??")}
	}
	panic("unimplemented")
}

func newUnaryOpNode(t item, n1 ast.Node) ast.Node {
	switch t.typ {
	case itemNot:
		return &ast.NotNode{Pos: t.pos, Arg: n1}
	case itemNegate:
		return &ast.NegateNode{Pos: t.pos, Arg: n1}
	case itemPlus:
		return &ast.PlusNode{Pos: t.pos, Arg: n1}
	case itemTypeof:
		return &ast.TypeofNode{Pos: t.pos, Arg: n1}
	}
	panic("unreachable")
}

func (t *tree) newValueNode(tok item) ast.Node {
	switch tok.typ {
	case itemNull:
		return &ast.NullNode{Pos: tok.pos}
	case itemUndefined:
		return &ast.UndefinedNode{Pos: tok.pos}
	case itemBool:
		return &ast.BoolNode{Pos: tok.pos, True: tok.val == "true"}
	case itemInteger:
		var val, base = tok.val, 10
		if len(val) > 2 && (val[1] == 'x' || val[1] == 'X') {
			val, base = val[2:], 16
		}
		value, err := strconv.ParseInt(val, base, 64)
		if err != nil {
			// Too large for an int; numbers are doubles anyway.
			f, ferr := strconv.ParseUint(val, base, 64)
			if ferr != nil {
				return t.newFloatNode(tok)
			}
			return &ast.FloatNode{Pos: tok.pos, Value: float64(f)}
		}
		return &ast.IntNode{Pos: tok.pos, Value: value}
	case itemFloat:
		return t.newFloatNode(tok)
	case itemString:
		s, err := unquoteString(tok.val)
		if err != nil {
			t.errorf("error unquoting %s: %s", tok.val, err)
		}
		return &ast.StringNode{Pos: tok.pos, Quoted: tok.val, Value: s}
	case itemTemplate:
		return t.parseTemplateLiteral(tok)
	case itemLeftBracket:
		return t.parseListLiteral(tok)
	case itemIdent:
		return &ast.IdentNode{Pos: tok.pos, Name: tok.val}
	}
	panic("unreachable")
}

func (t *tree) newFloatNode(tok item) ast.Node {
	value, err := strconv.ParseFloat(tok.val, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		t.error(err)
	}
	return &ast.FloatNode{Pos: tok.pos, Value: value}
}

// Helpers ----------

// next returns the next token.
func (t *tree) next() item {
	if t.peekCount > 0 {
		t.peekCount--
	} else {
		t.token[0] = t.lex.nextItem()
	}
	return t.token[t.peekCount]
}

// backup backs the input stream up one token.
func (t *tree) backup() {
	t.peekCount++
}

// peek returns but does not consume the next token.
func (t *tree) peek() item {
	if t.peekCount > 0 {
		return t.token[t.peekCount-1]
	}
	t.peekCount = 1
	t.token[0] = t.lex.nextItem()
	return t.token[0]
}

// recover is the handler that turns panics into returns from the top level of Parse.
func (t *tree) recover(errp *error) {
	e := recover()
	if e == nil {
		return
	}
	if _, ok := e.(runtime.Error); ok {
		panic(e)
	}
	t.lex = nil
	if str, ok := e.(string); ok {
		*errp = errors.New(str)
	} else {
		*errp = e.(error)
	}
}

// expect consumes the next token and guarantees it has the required type.
func (t *tree) expect(expected itemType, context string) item {
	token := t.next()
	if token.typ != expected {
		t.unexpected(token, fmt.Sprintf("%v (expected %q)", context, expected.String()))
	}
	return token
}

// unexpected complains about the token and terminates processing.
func (t *tree) unexpected(token item, context string) {
	if token.typ == itemError {
		t.errorf("lexical error: %v", token)
	}
	t.errorf("unexpected %v in %s", token, context)
}

// errorf formats the error and terminates processing.
func (t *tree) errorf(format string, args ...interface{}) {
	// get current token (taking account of backups)
	var tok = t.token[0]
	if t.peekCount > 0 {
		tok = t.token[t.peekCount-1]
	}
	var line, col = t.lex.lineNumber(tok.pos), t.lex.columnNumber(tok.pos)
	panic(errortypes.NewErrFilePosf(t.name, line, col, "template %s:%d:%d: %s",
		t.name, line, col, fmt.Sprintf(format, args...)))
}

// error terminates processing.
func (t *tree) error(err error) {
	t.errorf("%s", err)
}
