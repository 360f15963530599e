package parse

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/robfig/tstmpl/ast"
)

// Lexer design from text/template, run synchronously: items are produced on
// demand by nextItem, so an abandoned parse leaves nothing running.

// Tokens ---------------------------------------------------------------------

// item represents a token or text string returned from the scanner.
type item struct {
	typ itemType // The type of this item.
	pos ast.Pos  // The starting position, in bytes, of this item in the input string.
	val string   // The value of this item.
}

func (i item) String() string {
	switch {
	case i.typ == itemEOF:
		return "EOF"
	case i.typ == itemError:
		return i.val
	case len(i.val) > 10:
		return fmt.Sprintf("%.10q...", i.val)
	}
	return fmt.Sprintf("%q", i.val)
}

// itemType identifies the type of lexical items.
type itemType int

// All items.
const (
	itemInvalid itemType = iota // not used
	itemEOF                     // EOF
	itemError                   // error occurred; value is text of error

	// Expression values
	itemNull        // null
	itemUndefined   // undefined
	itemBool        // true, false
	itemInteger     // e.g. 42, 0x2A
	itemFloat       // e.g. 1.0, .5, 6.02e23
	itemString      // e.g. 'hello world', "hello world"
	itemTemplate    // e.g. `hello ${name}`
	itemIdent       // identifier
	itemArrowParams // (a, b) when followed by =>
	itemComma       // ,
	itemColon       // :

	// Access tokens
	itemDot          // .
	itemQuestionDot  // ?.
	itemLeftBracket  // [
	itemRightBracket // ]
	itemLeftParen    // (
	itemRightParen   // )
	itemArrow        // =>

	// Expression operations
	itemNot         // !
	itemNegate      // - (unary)
	itemPlus        // + (unary)
	itemTypeof      // typeof
	itemMul         // *
	itemDiv         // /
	itemMod         // %
	itemAdd         // +
	itemSub         // - (binary)
	itemEq          // ==
	itemNotEq       // !=
	itemStrictEq    // ===
	itemStrictNotEq // !==
	itemGt          // >
	itemGte         // >=
	itemLt          // <
	itemLte         // <=
	itemAnd         // &&
	itemOr          // ||
	itemNullish     // ??
	itemTernIf      // ?
)

// isOp returns true if the item is an expression operation
func (t itemType) isOp() bool {
	return itemNot <= t && t <= itemTernIf
}

var keywords = map[string]itemType{
	"null":      itemNull,
	"undefined": itemUndefined,
	"true":      itemBool,
	"false":     itemBool,
	"typeof":    itemTypeof,
}

var symbols = map[string]itemType{
	"*":   itemMul,
	"/":   itemDiv,
	"%":   itemMod,
	"==":  itemEq,
	"!=":  itemNotEq,
	"===": itemStrictEq,
	"!==": itemStrictNotEq,
	">":   itemGt,
	">=":  itemGte,
	"<":   itemLt,
	"<=":  itemLte,
	"&&":  itemAnd,
	"||":  itemOr,
	"!":   itemNot,
	"=>":  itemArrow,
}

var itemNames = map[itemType]string{
	itemEOF:          "EOF",
	itemNull:         "null",
	itemUndefined:    "undefined",
	itemBool:         "bool",
	itemInteger:      "integer",
	itemFloat:        "float",
	itemString:       "string",
	itemTemplate:     "template literal",
	itemIdent:        "identifier",
	itemArrowParams:  "arrow parameters",
	itemComma:        ",",
	itemColon:        ":",
	itemDot:          ".",
	itemQuestionDot:  "?.",
	itemLeftBracket:  "[",
	itemRightBracket: "]",
	itemLeftParen:    "(",
	itemRightParen:   ")",
	itemArrow:        "=>",
	itemTernIf:       "?",
}

func (t itemType) String() string {
	if s, ok := itemNames[t]; ok {
		return s
	}
	return fmt.Sprintf("item%d", int(t))
}

const eof = -1

// stateFn represents the state of the lexer as a function that returns the
// next state.
type stateFn func(*lexer) stateFn

// lexer holds the state of the lexical scanning.
//
// Based on the lexer from the "text/template" package.
// See http://www.youtube.com/watch?v=HxaD_trXwRE
type lexer struct {
	name     string  // the name of the input; used only during errors.
	input    string  // the string being scanned.
	state    stateFn // the next lexing function to enter.
	pos      ast.Pos // current position in the input.
	start    ast.Pos // start position of this item.
	width    int     // width of last rune read from input.
	items    []item  // scanned items not yet returned by nextItem.
	lastEmit item    // most recent item emitted
}

// nextItem returns the next item from the input.
func (l *lexer) nextItem() item {
	for len(l.items) == 0 && l.state != nil {
		l.state = l.state(l)
	}
	if len(l.items) == 0 {
		return item{itemEOF, l.pos, ""}
	}
	var next = l.items[0]
	l.items = l.items[1:]
	return next
}

// lexExpr creates a new scanner for the expression in input[start:].
// Positions of the scanned items are offsets into input.
func lexExpr(name, input string, start ast.Pos) *lexer {
	return &lexer{
		name:  name,
		input: input,
		state: lexInsideExpr,
		pos:   start,
		start: start,
	}
}

// next returns the next rune in the input.
func (l *lexer) next() (r rune) {
	if l.pos >= ast.Pos(len(l.input)) {
		l.width = 0
		return eof
	}
	r, l.width = utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += ast.Pos(l.width)
	return r
}

// peek returns but does not consume the next rune in the input.
func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

// backup steps back one rune. Can only be called once per call of next.
func (l *lexer) backup() {
	l.pos -= ast.Pos(l.width)
}

// emit passes an item back to the client.
func (l *lexer) emit(t itemType) {
	if l.pos > ast.Pos(len(l.input)) {
		l.pos = ast.Pos(len(l.input))
	}
	l.lastEmit = item{t, l.start, l.input[l.start:l.pos]}
	l.items = append(l.items, l.lastEmit)
	l.start = l.pos
}

// ignore skips over the pending input before this point.
func (l *lexer) ignore() {
	l.start = l.pos
}

// accept consumes the next rune if it's from the valid set.
func (l *lexer) accept(valid string) bool {
	if strings.IndexRune(valid, l.next()) >= 0 {
		return true
	}
	l.backup()
	return false
}

// acceptRun consumes a run of runes from the valid set.
func (l *lexer) acceptRun(valid string) bool {
	pos := l.pos
	for strings.IndexRune(valid, l.next()) >= 0 {
	}
	l.backup()
	return l.pos > pos
}

// lineNumber reports which line we're on. Doing it this way
// means we don't have to worry about peek double counting.
func (l *lexer) lineNumber(pos ast.Pos) int {
	return 1 + strings.Count(l.input[:pos], "\n")
}

// columnNumber reports which column in the current line we're on.
func (l *lexer) columnNumber(pos ast.Pos) int {
	n := strings.LastIndex(l.input[:pos], "\n")
	return int(pos) - n
}

// errorf returns an error item and terminates the scan by passing
// back a nil pointer that will be the next state, terminating l.nextItem.
func (l *lexer) errorf(format string, args ...interface{}) stateFn {
	l.items = append(l.items, item{itemError, l.start, fmt.Sprintf(format, args...)})
	return nil
}

// State functions ------------------------------------------------------------

// lexInsideExpr is called repeatedly to scan the elements of an expression.
func lexInsideExpr(l *lexer) stateFn {
	switch r := l.next(); {
	case r == eof:
		return nil
	case isSpaceEOL(r):
		l.ignore()
	case r == '/' && (l.peek() == '/' || l.peek() == '*'):
		return lexComment
	case r == '.':
		if isDigit(l.peek()) {
			l.backup()
			return lexNumber
		}
		l.emit(itemDot)
	case r == '[':
		l.emit(itemLeftBracket)
	case r == ']':
		l.emit(itemRightBracket)
	case r == '(':
		if end, ok := scanArrowParams(l.input, int(l.pos)); ok {
			l.pos = ast.Pos(end)
			l.emit(itemArrowParams)
			break
		}
		l.emit(itemLeftParen)
	case r == ')':
		l.emit(itemRightParen)
	case r == ',':
		l.emit(itemComma)
	case r == ':':
		l.emit(itemColon)
	case r == '?':
		switch l.next() {
		case '?':
			l.emit(itemNullish)
		case '.':
			// a?.5:1 is a conditional, not an optional access.
			if isDigit(l.peek()) {
				l.backup()
				l.emit(itemTernIf)
				break
			}
			l.emit(itemQuestionDot)
		default:
			l.backup()
			l.emit(itemTernIf)
		}
	case r == '-':
		return lexSign(l, itemNegate, itemSub)
	case r == '+':
		return lexSign(l, itemPlus, itemAdd)
	case isDigit(r):
		l.backup()
		return lexNumber
	case strings.ContainsRune("*/%<>=!&|", r):
		// 1 to 3 character symbols
		l.accept("=&|>")
		l.accept("=")
		sym := l.input[l.start:l.pos]
		item, ok := symbols[sym]
		if !ok {
			return l.errorf("unexpected symbol: %s", sym)
		}
		l.emit(item)
	case r == '"', r == '\'':
		return stringLexer(r)
	case r == '`':
		end, ok := scanTemplate(l.input, int(l.pos))
		if !ok {
			return l.errorf("unterminated template literal")
		}
		l.pos = ast.Pos(end + 1)
		l.emit(itemTemplate)
	case isIdentStart(r):
		l.backup()
		return lexIdent
	default:
		return l.errorf("unrecognized character in expression: %#U", r)
	}
	return lexInsideExpr
}

// lexSign emits the unary form of + or - if it begins an operand, and the
// binary form otherwise.
func lexSign(l *lexer, unary, binary itemType) stateFn {
	var lastType = l.lastEmit.typ
	if lastType == itemInvalid ||
		lastType.isOp() ||
		lastType == itemComma ||
		lastType == itemColon ||
		lastType == itemArrow ||
		lastType == itemLeftParen ||
		lastType == itemLeftBracket {
		l.emit(unary)
	} else {
		l.emit(binary)
	}
	return lexInsideExpr
}

// lexComment skips a line (//) or block (/* */) comment.
// The leading slash has been read.
func lexComment(l *lexer) stateFn {
	if l.next() == '/' {
		for r := l.next(); r != eof && !isEndOfLine(r); r = l.next() {
		}
		l.ignore()
		return lexInsideExpr
	}
	var i = strings.Index(l.input[l.pos:], "*/")
	if i == -1 {
		return l.errorf("unclosed comment")
	}
	l.pos += ast.Pos(i + 2)
	l.ignore()
	return lexInsideExpr
}

// stringLexer returns a stateFn that lexes strings surrounded by the given quote character.
func stringLexer(quoteChar rune) stateFn {
	// the quote char has already been read.
	return func(l *lexer) stateFn {
		for {
			switch l.next() {
			case eof:
				return l.errorf("unexpected eof while scanning string")
			case '\\':
				l.next() // skip escape sequences
			case quoteChar:
				l.emit(itemString)
				return lexInsideExpr
			}
		}
	}
}

// lexIdent scans an identifier or keyword.
func lexIdent(l *lexer) stateFn {
	for isIdentPart(l.next()) {
	}
	l.backup()
	word := l.input[l.start:l.pos]
	if itemType, ok := keywords[word]; ok {
		l.emit(itemType)
		return lexInsideExpr
	}
	l.emit(itemIdent)
	return lexInsideExpr
}

// lexNumber scans a number: a float or integer (which can be decimal or hex).
func lexNumber(l *lexer) stateFn {
	typ, ok := scanNumber(l)
	if !ok {
		return l.errorf("bad number syntax: %q", l.input[l.start:l.pos])
	}
	// Emits itemFloat or itemInteger.
	l.emit(typ)
	return lexInsideExpr
}

// scanNumber scans a numeric literal.
//
// It returns the scanned itemType (itemFloat or itemInteger) and a flag
// indicating if an error was found.
//
// Integers are decimal (e.g. 827) or hexadecimal (e.g. 0x1a2B).  Anything
// with a decimal point or an exponent is a float: 0.5, .5, 5., 6.02e23.
func scanNumber(l *lexer) (typ itemType, ok bool) {
	typ = itemInteger
	if ast.Pos(len(l.input)) >= l.pos+2 && strings.EqualFold(l.input[l.pos:l.pos+2], "0x") {
		l.pos += 2
		if !l.acceptRun(hexDigits) {
			// Requires at least one digit.
			return
		}
	} else {
		var digits = l.acceptRun(decDigits)
		if l.accept(".") {
			if !l.acceptRun(decDigits) && !digits {
				return
			}
			typ = itemFloat
		} else if !digits {
			return
		}
		if l.accept("eE") {
			l.accept("+-")
			if !l.acceptRun(decDigits) {
				// A digit is required after the exponent.
				return
			}
			typ = itemFloat
		}
	}
	// Next thing must not be alphanumeric.
	if isIdentPart(l.peek()) {
		l.next()
		return
	}
	ok = true
	return
}

const (
	decDigits = "0123456789"
	hexDigits = "0123456789abcdefABCDEF"
)

// Helpers --------------------------------------------------------------------

// isIdentStart reports whether r may begin an identifier.
func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

// isIdentPart reports whether r may continue an identifier.
func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

// isSpace reports whether r is a space character.
func isSpace(r rune) bool {
	return r == ' ' || r == '\t'
}

// isEndOfLine reports whether r is an end-of-line character.
func isEndOfLine(r rune) bool {
	return r == '\r' || r == '\n'
}

// isSpaceEOL returns true if r is space or end of line.
func isSpaceEOL(r rune) bool {
	return isSpace(r) || isEndOfLine(r)
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}
