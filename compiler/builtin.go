package compiler

import (
	"github.com/robfig/tstmpl/ast"
	"github.com/robfig/tstmpl/data"
	"github.com/robfig/tstmpl/parse"
)

// Builtin is the default Engine.  It interprets a JavaScript expression
// subset: literals (including template literals and arrays), names, property
// access with optional chaining, calls, arrow functions, the unary, binary
// and conditional operators, and the common methods of strings, numbers and
// arrays together with the Math, JSON, Object, Array, String, Number and
// Boolean globals.
type Builtin struct{}

type builtinProgram struct {
	name  string
	body  string
	exprs []ast.Node
}

// Compile parses each span.
func (Builtin) Compile(name, body string, spans []*ast.InterpNode) (Program, error) {
	var prog = &builtinProgram{name: name, body: body}
	for _, span := range spans {
		expr, err := parse.Interpolation(name, body, span)
		if err != nil {
			return nil, err
		}
		prog.exprs = append(prog.exprs, expr)
	}
	return prog, nil
}

func (p *builtinProgram) Eval(bindings data.Map) (values []string, err error) {
	var s = &state{
		name:    p.name,
		body:    p.body,
		context: scope{bindings},
	}
	defer s.errRecover(&err)
	values = make([]string, len(p.exprs))
	for i, expr := range p.exprs {
		values[i] = s.eval(expr).String()
	}
	return values, nil
}

// EvalExpr evaluates an expression that refers to no template properties,
// such as the value of a global.
func EvalExpr(node ast.Node) (val data.Value, err error) {
	var s = &state{name: "expression", context: scope{data.Map{}}}
	defer s.errRecover(&err)
	return s.eval(node), nil
}
