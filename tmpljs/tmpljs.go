// Package tmpljs compiles templates to JavaScript module source.
//
// The module's default export has the same shape as a compiled template:
//
//	export default {
//	  render(props) {
//	    const { greeting, name } = props;
//	    return `${greeting}, ${name}!`;
//	  },
//	  raw: `\${greeting}, \${name}!`,
//	};
//
// The render literal keeps every ${...} span live.  The raw literal holds the
// body with backslashes, backticks and ${ escaped, so it evaluates to the
// body text itself.
package tmpljs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/robfig/tstmpl/ast"
	"github.com/robfig/tstmpl/parse"
	"github.com/robfig/tstmpl/template"
)

// CompileToString returns the module source for the parsed template.
func CompileToString(parsed *ast.ParsedTemplate) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, parsed); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Write writes the module source for the parsed template to out.
func Write(out io.Writer, parsed *ast.ParsedTemplate) (err error) {
	defer errRecover(&err)
	render, err := renderLiteral(parsed.Name, parsed.Body)
	if err != nil {
		return err
	}
	var s = &state{wr: out}
	s.jsln("export default {")
	s.indentLevels++
	s.jsln("render(props) {")
	s.indentLevels++
	if len(parsed.PropKeys) > 0 {
		s.jsln("const { ", strings.Join(parsed.PropKeys, ", "), " } = props;")
	}
	s.jsln("return `", render, "`;")
	s.indentLevels--
	s.jsln("},")
	s.jsln("raw: `", escapeText(parsed.Body), "`,")
	s.indentLevels--
	s.jsln("};")
	return nil
}

// renderLiteral returns the content of a template literal that evaluates the
// body: raw text is escaped and interpolations are written as is.
func renderLiteral(name, body string) (string, error) {
	list, err := parse.Body(name, body)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	for _, node := range list.Nodes {
		switch node := node.(type) {
		case *ast.RawTextNode:
			buf.WriteString(escapeText(string(node.Text)))
		case *ast.InterpNode:
			buf.WriteString(node.String())
		}
	}
	return buf.String(), nil
}

// escapeText escapes text for a template literal.  Backslashes are escaped
// first so the escapes added for backticks and ${ are not doubled.
func escapeText(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, "`", "\\`")
	return strings.ReplaceAll(text, "${", `\${`)
}

type state struct {
	wr           io.Writer
	indentLevels int
}

// jsln writes the given strings on one line at the current indent.
func (s *state) jsln(args ...string) {
	s.js(strings.Repeat("  ", s.indentLevels))
	for _, arg := range args {
		s.js(arg)
	}
	s.js("\n")
}

func (s *state) js(str string) {
	if _, err := io.WriteString(s.wr, str); err != nil {
		panic(err)
	}
}

// errRecover is the handler that turns write failures into returns from the
// top level of Write.
func errRecover(errp *error) {
	if e := recover(); e != nil {
		if err, ok := e.(error); ok {
			*errp = err
			return
		}
		*errp = fmt.Errorf("%v", e)
	}
}

// ErrNotFound is returned by Generator when the registry has no template of
// the requested name.
var ErrNotFound = errors.New("template not found")

// Generator provides module source for the templates in a registry.
type Generator struct {
	registry *template.Registry
}

// NewGenerator returns a generator for the templates in the given registry.
func NewGenerator(registry *template.Registry) *Generator {
	return &Generator{registry}
}

// WriteTemplate writes the module source for the named template.
func (gen *Generator) WriteTemplate(out io.Writer, name string) error {
	var t, ok = gen.registry.Template(name)
	if !ok {
		return ErrNotFound
	}
	return Write(out, t.ParsedTemplate)
}
