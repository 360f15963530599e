package compiler

import (
	"fmt"
	"math"
	"runtime"
	"runtime/debug"
	"strconv"

	"github.com/robfig/tstmpl/ast"
	"github.com/robfig/tstmpl/data"
	"github.com/robfig/tstmpl/errortypes"
)

// state represents the state of an evaluation.
type state struct {
	name    string     // template name, for errors
	body    string     // template body, for error positions
	node    ast.Node   // current node, for errors
	val     data.Value // temp value for expression being computed
	context scope      // variable scope
}

// at marks the state to be on node n, for error reporting.
func (s *state) at(node ast.Node) {
	s.node = node
}

// location returns the line and column of the current node in the body.
func (s *state) location() (int, int) {
	var pos = 0
	if s.node != nil {
		pos = int(s.node.Position())
	}
	return errortypes.LineCol(s.body, pos)
}

// errorf formats the error and terminates processing.
func (s *state) errorf(format string, args ...interface{}) {
	var line, col = s.location()
	panic(errortypes.NewErrFilePosf(s.name, line, col, "template %s:%d:%d: %s",
		s.name, line, col, fmt.Sprintf(format, args...)))
}

// errRecover is the handler that turns panics into returns from the top
// level of Eval.
func (s *state) errRecover(errp *error) {
	if e := recover(); e != nil {
		var line, col = s.location()
		switch e := e.(type) {
		case runtime.Error:
			*errp = fmt.Errorf("template %s:%d:%d: %v\n%v", s.name, line, col, e, string(debug.Stack()))
		case error:
			*errp = e
		default:
			*errp = fmt.Errorf("template %s:%d:%d: %v", s.name, line, col, e)
		}
	}
}

// walk evaluates the given expression node, leaving the result in s.val.
func (s *state) walk(node ast.Node) {
	s.val = data.Undefined{}
	s.at(node)
	switch node := node.(type) {
	case *ast.NullNode:
		s.val = data.Null{}
	case *ast.UndefinedNode:
		s.val = data.Undefined{}
	case *ast.BoolNode:
		s.val = data.Bool(node.True)
	case *ast.IntNode:
		s.val = data.Number(float64(node.Value))
	case *ast.FloatNode:
		s.val = data.Number(node.Value)
	case *ast.StringNode:
		s.val = data.String(node.Value)
	case *ast.TemplateLiteralNode:
		var str = node.Quasis[0]
		for i, expr := range node.Exprs {
			str += s.eval(expr).String() + node.Quasis[i+1]
		}
		s.val = data.String(str)
	case *ast.ListLiteralNode:
		var items = make(data.List, len(node.Items))
		for i, item := range node.Items {
			items[i] = s.eval(item)
		}
		s.val = items
	case *ast.GroupNode:
		s.val = s.eval(node.Arg)

	case *ast.IdentNode:
		s.val = s.lookup(node.Name)
	case *ast.MemberNode, *ast.IndexNode, *ast.CallNode:
		s.val, _ = s.evalChain(node)
	case *ast.ArrowFuncNode:
		s.val = s.newArrowFunc(node)

	case *ast.NotNode:
		s.val = data.Bool(!s.eval(node.Arg).Truthy())
	case *ast.NegateNode:
		s.val = data.Number(-data.ToNumber(s.eval(node.Arg)))
	case *ast.PlusNode:
		s.val = data.Number(data.ToNumber(s.eval(node.Arg)))
	case *ast.TypeofNode:
		if ident, ok := node.Arg.(*ast.IdentNode); ok && !s.defined(ident.Name) {
			s.val = data.String("undefined")
			break
		}
		s.val = data.String(data.TypeOf(s.eval(node.Arg)))

	case *ast.AddNode:
		s.val = add(s.eval(node.Arg1), s.eval(node.Arg2))
	case *ast.SubNode, *ast.MulNode, *ast.DivNode, *ast.ModNode:
		s.val = s.evalArith(node)
	case *ast.EqNode:
		s.val = data.Bool(data.LooseEquals(s.eval(node.Arg1), s.eval(node.Arg2)))
	case *ast.NotEqNode:
		s.val = data.Bool(!data.LooseEquals(s.eval(node.Arg1), s.eval(node.Arg2)))
	case *ast.StrictEqNode:
		s.val = data.Bool(s.eval(node.Arg1).Equals(s.eval(node.Arg2)))
	case *ast.StrictNotEqNode:
		s.val = data.Bool(!s.eval(node.Arg1).Equals(s.eval(node.Arg2)))
	case *ast.LtNode, *ast.LteNode, *ast.GtNode, *ast.GteNode:
		s.val = s.evalCompare(node)
	case *ast.AndNode:
		if s.val = s.eval(node.Arg1); s.val.Truthy() {
			s.val = s.eval(node.Arg2)
		}
	case *ast.OrNode:
		if s.val = s.eval(node.Arg1); !s.val.Truthy() {
			s.val = s.eval(node.Arg2)
		}
	case *ast.NullishNode:
		if s.val = s.eval(node.Arg1); data.IsNullish(s.val) {
			s.val = s.eval(node.Arg2)
		}
	case *ast.TernNode:
		if s.eval(node.Arg1).Truthy() {
			s.val = s.eval(node.Arg2)
		} else {
			s.val = s.eval(node.Arg3)
		}

	default:
		s.errorf("unknown node: %T", node)
	}
}

func (s *state) eval(n ast.Node) data.Value {
	var prev = s.node
	s.walk(n)
	s.node = prev
	return s.val
}

// lookup resolves a name: local and template bindings first, then the
// builtin globals.
func (s *state) lookup(name string) data.Value {
	if val, ok := s.context.lookup(name); ok {
		return val
	}
	if val, ok := Globals[name]; ok {
		return val
	}
	s.errorf("ReferenceError: %s is not defined", name)
	panic("unreachable")
}

func (s *state) defined(name string) bool {
	if _, ok := s.context.lookup(name); ok {
		return true
	}
	_, ok := Globals[name]
	return ok
}

// evalChain evaluates a property access or call.  It reports whether an
// optional access in the chain found null or undefined, which
// short-circuits the rest of the chain to undefined.
func (s *state) evalChain(n ast.Node) (val data.Value, short bool) {
	switch node := n.(type) {
	case *ast.MemberNode:
		var obj data.Value
		if obj, short = s.evalChain(node.Obj); short || node.Optional && data.IsNullish(obj) {
			return data.Undefined{}, true
		}
		s.at(node)
		return s.property(obj, data.String(node.Name), node.Obj), false
	case *ast.IndexNode:
		var obj data.Value
		if obj, short = s.evalChain(node.Obj); short || node.Optional && data.IsNullish(obj) {
			return data.Undefined{}, true
		}
		var key = s.eval(node.Index)
		s.at(node)
		return s.property(obj, key, node.Obj), false
	case *ast.CallNode:
		var fn data.Value
		if fn, short = s.evalChain(node.Fn); short || node.Optional && data.IsNullish(fn) {
			return data.Undefined{}, true
		}
		var args = make([]data.Value, len(node.Args))
		for i, arg := range node.Args {
			args[i] = s.eval(arg)
		}
		s.at(node)
		return s.call(fn, args, node), false
	}
	return s.eval(n), false
}

// property returns the value of obj[key].  objNode is the expression that
// produced obj, for errors.
func (s *state) property(obj, key data.Value, objNode ast.Node) data.Value {
	var name = key.String()
	switch obj := obj.(type) {
	case data.Undefined, data.Null:
		s.errorf("TypeError: cannot read properties of %v (reading %q of %v)", obj, name, objNode)
	case data.Map:
		return obj.Key(name)
	case data.List:
		if i, ok := arrayIndex(key); ok {
			return obj.Index(i)
		}
		if name == "length" {
			return data.Int(len(obj))
		}
		return boundMethod(arrayMethods, obj, name)
	case data.String:
		var units = utf16Units(string(obj))
		if i, ok := arrayIndex(key); ok {
			if i < len(units) {
				return data.String(fromUnits(units[i : i+1]))
			}
			return data.Undefined{}
		}
		if name == "length" {
			return data.Int(len(units))
		}
		return boundMethod(stringMethods, obj, name)
	case data.Int, data.Float:
		return boundMethod(numberMethods, obj, name)
	case data.Bool:
		return boundMethod(boolMethods, obj, name)
	case *data.Func:
		if name == "name" {
			return data.String(obj.Name)
		}
	}
	return data.Undefined{}
}

// call invokes fn.  Errors raised by builtin functions are reported at the
// position of the call.
func (s *state) call(fn data.Value, args []data.Value, node *ast.CallNode) data.Value {
	f, ok := fn.(*data.Func)
	if !ok {
		s.errorf("TypeError: %v is not a function", node.Fn)
	}
	defer func() {
		if e := recover(); e != nil {
			if fe, ok := e.(funcError); ok {
				s.at(node)
				s.errorf("%s", string(fe))
			}
			panic(e)
		}
	}()
	var result = f.Call(args)
	if result == nil {
		return data.Undefined{}
	}
	return result
}

// newArrowFunc returns a function value that evaluates the arrow body with
// its parameters bound, in the scope where the arrow was created.
func (s *state) newArrowFunc(node *ast.ArrowFuncNode) data.Value {
	var captured = s.context.capture()
	return &data.Func{
		Name: "",
		Call: func(args []data.Value) data.Value {
			var caller = s.context
			s.context = captured.capture()
			s.context.push()
			for i, param := range node.Params {
				if i < len(args) {
					s.context.set(param, args[i])
				} else {
					s.context.set(param, data.Undefined{})
				}
			}
			var result = s.eval(node.Body)
			s.context = caller
			return result
		},
	}
}

// add implements the + operator: string concatenation if either operand is a
// string or an object, numeric addition otherwise.
func add(a, b data.Value) data.Value {
	if isStringy(a) || isStringy(b) {
		return data.String(a.String() + b.String())
	}
	if a, ok := a.(data.Int); ok {
		if b, ok := b.(data.Int); ok {
			return data.Number(float64(a) + float64(b))
		}
	}
	return data.Number(data.ToNumber(a) + data.ToNumber(b))
}

func isStringy(v data.Value) bool {
	switch v.(type) {
	case data.String, data.List, data.Map, *data.Func:
		return true
	}
	return false
}

func (s *state) evalArith(node ast.Node) data.Value {
	var op = node.(ast.ParentNode).Children()
	var a, b = data.ToNumber(s.eval(op[0])), data.ToNumber(s.eval(op[1]))
	switch node.(type) {
	case *ast.SubNode:
		return data.Number(a - b)
	case *ast.MulNode:
		return data.Number(a * b)
	case *ast.DivNode:
		return data.Number(a / b)
	case *ast.ModNode:
		return data.Number(math.Mod(a, b))
	}
	panic("unreachable")
}

// evalCompare implements the relational operators.
func (s *state) evalCompare(node ast.Node) data.Value {
	var op = node.(ast.ParentNode).Children()
	var cmp, ok = compare(s.eval(op[0]), s.eval(op[1]))
	if !ok {
		return data.Bool(false)
	}
	switch node.(type) {
	case *ast.LtNode:
		return data.Bool(cmp < 0)
	case *ast.LteNode:
		return data.Bool(cmp <= 0)
	case *ast.GtNode:
		return data.Bool(cmp > 0)
	case *ast.GteNode:
		return data.Bool(cmp >= 0)
	}
	panic("unreachable")
}

// compare orders two values: strings by code units, anything else
// numerically.  The values are unordered if either is NaN.
func compare(a, b data.Value) (cmp int, ok bool) {
	if as, isStr := a.(data.String); isStr {
		if bs, isStr := b.(data.String); isStr {
			return compareUnits(string(as), string(bs)), true
		}
	}
	var x, y = data.ToNumber(a), data.ToNumber(b)
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return 0, false
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}

// arrayIndex returns the array index named by key, if it is one.
func arrayIndex(key data.Value) (int, bool) {
	switch key := key.(type) {
	case data.Int:
		return int(key), key >= 0
	case data.Float:
		var f = float64(key)
		return int(f), f >= 0 && f == math.Trunc(f) && f < math.MaxInt32
	case data.String:
		var i, err = strconv.Atoi(string(key))
		return i, err == nil && i >= 0 && strconv.Itoa(i) == string(key)
	}
	return 0, false
}
