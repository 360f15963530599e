package parse

import (
	"strings"

	"github.com/robfig/tstmpl/ast"
	"github.com/robfig/tstmpl/errortypes"
)

// Body splits a template body into raw text and ${...} interpolation spans.
//
// Raw text is kept exactly as written; a backslash has no special meaning
// outside of an expression.  The end of each span is found by matching
// braces, skipping over quoted strings and nested template literals, so that
// ${items.map(i => `${i}`).join("}")} is a single span.
func Body(name, text string) (list *ast.ListNode, err error) {
	list = &ast.ListNode{Pos: 0}
	var pos = 0
	for {
		var i = strings.Index(text[pos:], "${")
		if i == -1 {
			break
		}
		i += pos
		if i > pos {
			list.Nodes = append(list.Nodes, &ast.RawTextNode{Pos: ast.Pos(pos), Text: []byte(text[pos:i])})
		}
		var end, ok = scanInterp(text, i+2)
		if !ok {
			var line, col = lineCol(text, i)
			return nil, errortypes.NewErrFilePosf(name, line, col, "template %s:%d:%d: unterminated interpolation %q",
				name, line, col, abbrev(text[i:]))
		}
		list.Nodes = append(list.Nodes, &ast.InterpNode{Pos: ast.Pos(i), Source: text[i+2 : end]})
		pos = end + 1
	}
	if pos < len(text) {
		list.Nodes = append(list.Nodes, &ast.RawTextNode{Pos: ast.Pos(pos), Text: []byte(text[pos:])})
	}
	return list, nil
}

// scanInterp returns the index of the brace closing the interpolation whose
// expression begins at s[i].
func scanInterp(s string, i int) (end int, ok bool) {
	var depth = 0
	for ; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i, true
			}
			depth--
		case '\'', '"':
			if i, ok = scanQuoted(s, i+1, s[i]); !ok {
				return 0, false
			}
		case '`':
			if i, ok = scanTemplate(s, i+1); !ok {
				return 0, false
			}
		}
	}
	return 0, false
}

// scanTemplate returns the index of the backtick closing the template literal
// whose content begins at s[i].
func scanTemplate(s string, i int) (end int, ok bool) {
	for ; i < len(s); i++ {
		switch {
		case s[i] == '\\':
			i++
		case s[i] == '`':
			return i, true
		case strings.HasPrefix(s[i:], "${"):
			if i, ok = scanInterp(s, i+2); !ok {
				return 0, false
			}
		}
	}
	return 0, false
}

// scanQuoted returns the index of the quote closing the string literal whose
// content begins at s[i].
func scanQuoted(s string, i int, quote byte) (end int, ok bool) {
	for ; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case quote:
			return i, true
		case '\n':
			return 0, false
		}
	}
	return 0, false
}

// scanArrowParams reports whether the parenthesis opened just before s[i]
// holds an arrow function's parameter list, returning the index just past the
// closing parenthesis.
func scanArrowParams(s string, i int) (end int, ok bool) {
	var close = strings.IndexByte(s[i:], ')')
	if close == -1 {
		return 0, false
	}
	var params = s[i : i+close]
	if strings.TrimSpace(params) != "" {
		for _, param := range strings.Split(params, ",") {
			if !isIdent(strings.TrimSpace(param)) {
				return 0, false
			}
		}
	}
	end = i + close + 1
	if !strings.HasPrefix(strings.TrimLeft(s[end:], " \t\r\n"), "=>") {
		return 0, false
	}
	return end, true
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !isIdentStart(r) || !isIdentPart(r) {
			return false
		}
	}
	_, keyword := keywords[s]
	return !keyword
}

func lineCol(text string, pos int) (line, col int) {
	var l = &lexer{input: text}
	return l.lineNumber(ast.Pos(pos)), l.columnNumber(ast.Pos(pos))
}

func abbrev(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 20 {
		s = s[:20] + "..."
	}
	return s
}
