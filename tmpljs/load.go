package tmpljs

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/robfig/tstmpl/ast"
	"github.com/robfig/tstmpl/compiler"
)

var (
	moduleHeader = regexp.MustCompile("^export default \\{\n" +
		"  render\\(props\\) \\{\n" +
		"(?:    const \\{ ([\\w$]+(?:, [\\w$]+)*) \\} = props;\n)?" +
		"    return `")
	renderEnd = "`;\n  },"
	rawStart  = "\n  raw: `"
	moduleEnd = "`,\n};\n"
)

// LoadModule compiles a module produced by CompileToString back into a
// template.  The bindings and body are read from the module; the render
// literal must agree with the raw one.
func LoadModule(name, src string, opts ...compiler.Option) (*compiler.Template, error) {
	var parsed, err = ParseModule(name, src)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(parsed, opts...)
}

// ParseModule recovers the property keys and body of a module produced by
// CompileToString.  The imports, preamble and props body are not part of the
// module and are left empty.
func ParseModule(name, src string) (*ast.ParsedTemplate, error) {
	var m = moduleHeader.FindStringSubmatchIndex(src)
	var rawIndex = strings.LastIndex(src, rawStart)
	if m == nil || rawIndex < m[1] || !strings.HasSuffix(src, moduleEnd) {
		return nil, fmt.Errorf("module %s: not a template module", name)
	}

	var render = src[m[1]:rawIndex]
	if !strings.HasSuffix(render, renderEnd) {
		return nil, fmt.Errorf("module %s: not a template module", name)
	}
	render = strings.TrimSuffix(render, renderEnd)

	var body, err = unescapeText(src[rawIndex+len(rawStart) : len(src)-len(moduleEnd)])
	if err != nil {
		return nil, fmt.Errorf("module %s: raw: %v", name, err)
	}
	expected, err := renderLiteral(name, body)
	if err != nil {
		return nil, fmt.Errorf("module %s: %v", name, err)
	}
	if render != expected {
		return nil, fmt.Errorf("module %s: render and raw literals disagree", name)
	}

	var parsed = &ast.ParsedTemplate{Name: name, Body: body}
	if m[2] >= 0 {
		parsed.PropKeys = strings.Split(src[m[2]:m[3]], ", ")
	}
	return parsed, nil
}

// unescapeText reverses escapeText.
func unescapeText(text string) (string, error) {
	var buf strings.Builder
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\\':
			if i+1 == len(text) || !strings.ContainsRune("\\`$", rune(text[i+1])) {
				return "", fmt.Errorf("unexpected escape at offset %d", i)
			}
			i++
		case '`':
			return "", fmt.Errorf("unescaped backtick at offset %d", i)
		case '$':
			if i+1 < len(text) && text[i+1] == '{' {
				return "", fmt.Errorf("unescaped ${ at offset %d", i)
			}
		}
		buf.WriteByte(text[i])
	}
	return buf.String(), nil
}
