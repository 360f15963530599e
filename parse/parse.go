// Package parse converts template source into its in-memory representation.
//
// A template source is a frontmatter section of type declarations, fenced by
// "---" lines, followed by the template body:
//
//	---
//	import type { User } from './user';
//	interface Props {
//	  user: User;
//	  count?: number;
//	}
//	---
//	Hello ${user.name}, you have ${count ?? 0} messages.
//
// The frontmatter is not parsed as a language.  Declarations are sliced out
// by keyword matching and brace-depth tracking; braces inside string literals
// or comments in the type text are not treated specially.
package parse

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/robfig/tstmpl/ast"
	"github.com/robfig/tstmpl/errortypes"
)

const delimiter = "---"

// Errors returned by Parse, wrapped in an *Error.
var (
	ErrNoOpeningDelimiter = errors.New("missing opening delimiter")
	ErrNoClosingDelimiter = errors.New("missing closing delimiter")
	ErrMissingProps       = errors.New("missing Props declaration")
	ErrMalformedProps     = errors.New("malformed Props declaration")
	ErrUnbalancedBraces   = errors.New("unbalanced braces")
)

// Error is a failure to find one of the required structural parts of a
// template source.  Err is one of the sentinel errors above.
type Error struct {
	Err    error
	Detail string

	file      string
	line, col int
}

var _ errortypes.ErrFilePos = &Error{}

func (e *Error) Error() string {
	var msg = e.Err.Error()
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.file == "" {
		return msg
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.file, e.line, e.col, msg)
}

func (e *Error) Unwrap() error { return e.Err }
func (e *Error) File() string  { return e.file }
func (e *Error) Line() int     { return e.line }
func (e *Error) Col() int      { return e.col }

// Parse parses a template source into its structured form.
func Parse(source string) (*ast.ParsedTemplate, error) {
	return File("", source)
}

// File parses a template source, using name to identify it in errors.
func File(name, source string) (*ast.ParsedTemplate, error) {
	var p = &parser{name: name, source: source}
	return p.parse()
}

type parser struct {
	name   string
	source string
	fm     string // trimmed frontmatter
	fmPos  int    // offset of fm in source
}

func (p *parser) parse() (*ast.ParsedTemplate, error) {
	var open = strings.Index(p.source, delimiter)
	if open == -1 {
		return nil, p.errorf(ErrNoOpeningDelimiter, 0, "no opening delimiter %q found", delimiter)
	}
	var fmStart = open + len(delimiter)
	var close = strings.Index(p.source[fmStart:], delimiter)
	if close == -1 {
		return nil, p.errorf(ErrNoClosingDelimiter, open, "no closing delimiter %q found after the opening one", delimiter)
	}
	close += fmStart

	var raw = p.source[fmStart:close]
	p.fm = strings.TrimSpace(raw)
	p.fmPos = fmStart + len(raw) - len(strings.TrimLeft(raw, whitespace))

	propsBody, err := p.propsBody()
	if err != nil {
		return nil, err
	}
	return &ast.ParsedTemplate{
		Name:      p.name,
		Imports:   imports(p.fm),
		Preamble:  preamble(p.fm),
		PropsBody: propsBody,
		Body:      strings.TrimSpace(p.source[close+len(delimiter):]),
		PropKeys:  propKeys(propsBody),
	}, nil
}

// whitespace is the set trimmed by strings.TrimSpace, for ASCII input.
const whitespace = " \t\n\v\f\r"

// errorf returns an *Error for a failure at the given offset in the source.
func (p *parser) errorf(sentinel error, pos int, format string, args ...interface{}) error {
	var line, col = errortypes.LineCol(p.source, pos)
	return &Error{
		Err:    sentinel,
		Detail: fmt.Sprintf(format, args...),
		file:   p.name,
		line:   line,
		col:    col,
	}
}

// propsRegexp finds the Props interface, but not one that merely shares its
// prefix, like PropsBase.  A plain substring search for "interface Props"
// would take the first such interface instead.
var propsRegexp = regexp.MustCompile(`interface Props\b`)

// propsBody returns the trimmed text between the braces of the Props
// interface.
func (p *parser) propsBody() (string, error) {
	const marker = "interface Props"
	var decl = -1
	if loc := propsRegexp.FindStringIndex(p.fm); loc != nil {
		decl = loc[0]
	}
	if decl == -1 {
		return "", p.errorf(ErrMissingProps, p.fmPos, "no %q declaration in frontmatter", marker)
	}
	var brace = strings.IndexByte(p.fm[decl:], '{')
	if brace == -1 {
		return "", p.errorf(ErrMalformedProps, p.fmPos+decl, "no opening brace after %q", marker)
	}
	brace += decl
	var end = matchBrace(p.fm, brace+1)
	if end == -1 {
		return "", p.errorf(ErrUnbalancedBraces, p.fmPos+brace, "in Props declaration")
	}
	return strings.TrimSpace(p.fm[brace+1 : end]), nil
}

// matchBrace scans s from i, with one brace already open, and returns the
// index of the brace that closes it or -1 if s runs out first.
func matchBrace(s string, i int) int {
	var depth = 1
	for ; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

const importPrefix = "import type"

// imports returns the "import type" lines of the frontmatter, trimmed.
// Multi-line import statements are not recognized.
func imports(fm string) []string {
	var lines []string
	for _, line := range strings.Split(fm, "\n") {
		if line = strings.TrimSpace(line); strings.HasPrefix(line, importPrefix) {
			lines = append(lines, line)
		}
	}
	return lines
}

var declRegexp = regexp.MustCompile(`\b(interface|type)\s+(\w+)`)

// preamble returns the helper declarations of the frontmatter: every
// interface (through its matching close brace) and type alias (through the
// end of its line) other than Props.  The "type" keyword of an import line
// does not begin a declaration.
func preamble(fm string) []string {
	var decls []string
	for _, m := range declRegexp.FindAllStringSubmatchIndex(fm, -1) {
		var start, keyword, name = m[0], fm[m[2]:m[3]], fm[m[4]:m[5]]
		if name == "Props" || onImportLine(fm, start) {
			continue
		}
		switch keyword {
		case "interface":
			var brace = strings.IndexByte(fm[m[1]:], '{')
			if brace == -1 {
				continue
			}
			brace += m[1]
			var end = matchBrace(fm, brace+1)
			if end == -1 {
				end = len(fm) - 1
			}
			decls = append(decls, strings.TrimSpace(fm[start:end+1]))
		case "type":
			var end = strings.IndexByte(fm[start:], '\n')
			if end == -1 {
				end = len(fm) - start
			}
			decls = append(decls, strings.TrimSpace(fm[start:start+end]))
		}
	}
	return decls
}

func onImportLine(fm string, pos int) bool {
	var lineStart = strings.LastIndexByte(fm[:pos], '\n') + 1
	return strings.HasPrefix(strings.TrimLeft(fm[lineStart:], whitespace), importPrefix)
}

var keyRegexp = regexp.MustCompile(`^(\w+)\??\s*:`)

// propKeys returns the names of the properties declared at brace depth 0 of
// a Props body, in order, duplicates included.
//
// A declaration starts at the beginning of each line, after a ';' or ',' at
// depth 0, and after the '}' that closes a depth-0 property's object type.
// The brace depth is tested when a declaration starts, before the braces
// that follow it are counted, so "user: {" contributes "user" while the
// properties nested inside it do not.
func propKeys(body string) []string {
	var (
		keys    []string
		depth   int  // braces
		nest    int  // parentheses, brackets and angle brackets
		start   bool = true
		comment bool
	)
	for i := 0; i < len(body); i++ {
		var ch = body[i]
		if start && !isSpaceEOL(rune(ch)) {
			start = false
			switch {
			case strings.HasPrefix(body[i:], "//"):
				comment = true
			case depth == 0:
				if m := keyRegexp.FindStringSubmatch(body[i:]); m != nil {
					keys = append(keys, m[1])
					i += len(m[0]) - 1
					continue
				}
			}
		}
		switch ch {
		case '\n':
			start, comment = true, false
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 && nest == 0 && !comment {
				start = true
			}
		case '(', '[', '<':
			if !comment {
				nest++
			}
		case ')', ']', '>':
			if !comment && nest > 0 && !(ch == '>' && i > 0 && body[i-1] == '=') {
				nest--
			}
		case ';', ',':
			if depth == 0 && nest == 0 && !comment {
				start = true
			}
		}
	}
	return keys
}

// SourcePos translates a line and column within the body of source, as
// reported by body and expression errors, to a line and column within
// source itself.  Positions are returned unchanged if source has no body.
func SourcePos(source string, line, col int) (int, int) {
	var open = strings.Index(source, delimiter)
	if open == -1 {
		return line, col
	}
	var close = strings.Index(source[open+len(delimiter):], delimiter)
	if close == -1 {
		return line, col
	}
	var rest = source[open+len(delimiter)+close+len(delimiter):]
	var start = len(source) - len(strings.TrimLeft(rest, whitespace))
	var bodyLine, bodyCol = errortypes.LineCol(source, start)
	if line == 1 {
		return bodyLine, bodyCol + col - 1
	}
	return bodyLine + line - 1, col
}
