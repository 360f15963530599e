// Package compiler turns a parsed template into a Template that renders its
// body against a property bag.
//
// Every ${...} span in the body is a live expression.  The top-level
// properties declared by the template are bound by name; a property missing
// from the bag is bound to undefined rather than reported.  Expressions are
// evaluated by an Engine; the default is an interpreter for a JavaScript
// expression subset (see Builtin).
package compiler

import (
	"bytes"
	"fmt"
	"io"

	"github.com/robfig/tstmpl/ast"
	"github.com/robfig/tstmpl/data"
	"github.com/robfig/tstmpl/parse"
)

// Engine compiles the interpolation spans of a template body.
type Engine interface {
	// Compile prepares the given spans of body for evaluation, reporting
	// syntax errors.
	Compile(name, body string, spans []*ast.InterpNode) (Program, error)
}

// Program evaluates the prepared spans of one template.
type Program interface {
	// Eval evaluates every span against the bindings, returning the text to
	// substitute for each, in order.
	Eval(bindings data.Map) ([]string, error)
}

// Template is a compiled template, safe for concurrent use.
type Template struct {
	Name string
	Raw  string   // the body, with interpolations unevaluated
	Keys []string // the bound property names

	body    *ast.ListNode
	prog    Program
	globals data.Map
}

type options struct {
	engine  Engine
	globals data.Map
}

// Option configures Compile.
type Option func(*options)

// WithEngine sets the engine used to evaluate interpolations.
func WithEngine(e Engine) Option {
	return func(o *options) {
		o.engine = e
	}
}

// WithGlobals adds bindings visible to every expression.  Template
// properties shadow globals of the same name.  Values are converted with
// data.New.
func WithGlobals(globals map[string]interface{}) Option {
	return func(o *options) {
		if o.globals == nil {
			o.globals = make(data.Map)
		}
		for k, v := range globals {
			o.globals[k] = data.New(v)
		}
	}
}

// Compile prepares the parsed template for rendering.  It fails if an
// interpolation is not a valid expression.
func Compile(parsed *ast.ParsedTemplate, opts ...Option) (*Template, error) {
	var o = options{engine: Builtin{}}
	for _, opt := range opts {
		opt(&o)
	}

	body, err := parse.Body(parsed.Name, parsed.Body)
	if err != nil {
		return nil, err
	}
	var spans []*ast.InterpNode
	for _, node := range body.Nodes {
		if span, ok := node.(*ast.InterpNode); ok {
			spans = append(spans, span)
		}
	}
	prog, err := o.engine.Compile(parsed.Name, parsed.Body, spans)
	if err != nil {
		return nil, err
	}
	return &Template{
		Name:    parsed.Name,
		Raw:     parsed.Body,
		Keys:    parsed.PropKeys,
		body:    body,
		prog:    prog,
		globals: o.globals,
	}, nil
}

// Render evaluates the template body with the given properties.
func (t *Template) Render(props interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, props); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Execute evaluates the template body with the given properties, and writes
// the result to wr.  Nothing is written if evaluation fails.
//
// props may be a data.Map, a map with string keys, a struct, or nil.
func (t *Template) Execute(wr io.Writer, props interface{}) (err error) {
	bindings, err := t.bind(props)
	if err != nil {
		return err
	}
	values, err := t.prog.Eval(bindings)
	if err != nil {
		return err
	}

	var i = 0
	for _, node := range t.body.Nodes {
		switch node := node.(type) {
		case *ast.RawTextNode:
			_, err = wr.Write(node.Text)
		case *ast.InterpNode:
			_, err = io.WriteString(wr, values[i])
			i++
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// bind builds the expression bindings: the globals, then each declared
// property taken from the bag.
func (t *Template) bind(props interface{}) (bindings data.Map, err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("template %s: converting properties: %v", t.Name, e)
		}
	}()

	var bag data.Map
	switch v := data.New(props).(type) {
	case data.Map:
		bag = v
	case data.Null, data.Undefined:
	default:
		return nil, fmt.Errorf("template %s: properties must be an object, got %s", t.Name, data.TypeOf(v))
	}

	bindings = make(data.Map, len(t.globals)+len(t.Keys))
	for k, v := range t.globals {
		bindings[k] = v
	}
	for _, key := range t.Keys {
		bindings[key] = bag.Key(key)
	}
	return bindings, nil
}
