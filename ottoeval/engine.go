// Package ottoeval evaluates template interpolations with the otto
// JavaScript interpreter.
//
// Each ${...} span is compiled once as an ECMAScript 5 expression.  Rendering
// creates a fresh VM, defines the bindings as global variables, and runs the
// spans in order, so renders share no state and may run concurrently.
// Template literals, arrow functions and optional chaining are ES2015+
// syntax that otto does not support; bodies using them need the builtin
// engine.
package ottoeval

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/robertkrimen/otto"

	"github.com/robfig/tstmpl/ast"
	"github.com/robfig/tstmpl/compiler"
	"github.com/robfig/tstmpl/data"
	"github.com/robfig/tstmpl/errortypes"
)

// ErrTimeout is returned when a render exceeds the engine's Timeout.
var ErrTimeout = errors.New("evaluation timed out")

// Engine is a compiler.Engine backed by otto.
type Engine struct {
	// Timeout bounds the time spent evaluating one render, if positive.
	Timeout time.Duration
}

type span struct {
	pos    int
	script *otto.Script
}

type program struct {
	name    string
	body    string
	timeout time.Duration
	spans   []span
}

// Compile parses each span as an expression.
func (e Engine) Compile(name, body string, spans []*ast.InterpNode) (compiler.Program, error) {
	var vm = otto.New()
	var prog = &program{name: name, body: body, timeout: e.Timeout}
	for _, n := range spans {
		var pos = int(n.Pos) + len("${")
		// Parenthesized so that a leading { is an object literal.
		script, err := vm.Compile(name, "("+n.Source+"\n)")
		if err != nil {
			var line, col = errortypes.LineCol(body, pos)
			return nil, errortypes.NewErrFilePosf(name, line, col, "template %s:%d:%d: %v", name, line, col, err)
		}
		prog.spans = append(prog.spans, span{pos, script})
	}
	return prog, nil
}

// Eval runs every span in a new VM holding the bindings.
func (p *program) Eval(bindings data.Map) (values []string, err error) {
	var vm = otto.New()
	for _, k := range bindings.Keys() {
		value, err := toValue(vm, bindings[k])
		if err != nil {
			return nil, fmt.Errorf("template %s: binding %s: %v", p.name, k, err)
		}
		if err = vm.Set(k, value); err != nil {
			return nil, fmt.Errorf("template %s: binding %s: %v", p.name, k, err)
		}
	}

	var current = 0
	if p.timeout > 0 {
		vm.Interrupt = make(chan func(), 1)
		var timer = time.AfterFunc(p.timeout, func() {
			vm.Interrupt <- func() { panic(ErrTimeout) }
		})
		defer timer.Stop()
		defer func() {
			if e := recover(); e != nil {
				if e != ErrTimeout {
					panic(e)
				}
				values, err = nil, p.errorf(current, "%w", ErrTimeout)
			}
		}()
	}

	values = make([]string, len(p.spans))
	for i, s := range p.spans {
		current = i
		result, err := vm.Run(s.script)
		if err != nil {
			return nil, p.errorf(i, "%v", err)
		}
		values[i] = result.String()
	}
	return values, nil
}

func (p *program) errorf(i int, format string, args ...interface{}) error {
	var line, col = errortypes.LineCol(p.body, p.spans[i].pos)
	return errortypes.NewErrFilePosf(p.name, line, col, "template %s:%d:%d: "+format,
		append([]interface{}{p.name, line, col}, args...)...)
}

// toValue converts a binding to a JavaScript value.  Data passes through
// JSON so that lists and maps become native arrays and objects; functions
// become native functions that call back into Go.
func toValue(vm *otto.Otto, v data.Value) (otto.Value, error) {
	switch v := v.(type) {
	case data.Undefined:
		return otto.UndefinedValue(), nil
	case *data.Func:
		return vm.ToValue(func(call otto.FunctionCall) otto.Value {
			var args = make([]data.Value, len(call.ArgumentList))
			for i, arg := range call.ArgumentList {
				exported, _ := arg.Export()
				args[i] = data.New(exported)
			}
			result, err := toValue(vm, v.Call(args))
			if err != nil {
				panic(vm.MakeCustomError("Error", err.Error()))
			}
			return result
		})
	case data.Float:
		// JSON has no encoding for NaN and the infinities.
		return vm.ToValue(float64(v))
	}
	src, err := json.Marshal(data.Native(v))
	if err != nil {
		return otto.UndefinedValue(), err
	}
	return vm.Run("(" + string(src) + ")")
}
