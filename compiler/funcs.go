package compiler

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/robfig/tstmpl/data"
)

// funcError is raised (by panic) from a builtin function to fail the render
// with a message reported at the position of the call.
type funcError string

func throwf(format string, args ...interface{}) {
	panic(funcError(fmt.Sprintf(format, args...)))
}

// method is a builtin method of strings, numbers, booleans or arrays.
// Arguments beyond Arity are ignored and missing ones are undefined.
type method struct {
	Apply func(recv data.Value, args []data.Value) data.Value
	Arity int
}

// boundMethod returns the named method bound to recv, or undefined.
func boundMethod(methods map[string]method, recv data.Value, name string) data.Value {
	m, ok := methods[name]
	if !ok {
		return data.Undefined{}
	}
	return &data.Func{
		Name: name,
		Call: func(args []data.Value) data.Value {
			return m.Apply(recv, pad(args, m.Arity))
		},
	}
}

// pad extends args with undefined up to n values.
func pad(args []data.Value, n int) []data.Value {
	for len(args) < n {
		args = append(args, data.Undefined{})
	}
	return args
}

// callback invokes a function value passed to a builtin.
func callback(fn data.Value, args ...data.Value) data.Value {
	f, ok := fn.(*data.Func)
	if !ok {
		throwf("TypeError: %v is not a function", fn)
	}
	if v := f.Call(args); v != nil {
		return v
	}
	return data.Undefined{}
}

func fn(name string, arity int, apply func(args []data.Value) data.Value) *data.Func {
	return &data.Func{
		Name: name,
		Call: func(args []data.Value) data.Value {
			return apply(pad(args, arity))
		},
	}
}

// Globals contains the builtin names visible to every expression.
var Globals = data.Map{
	"Math": data.Map{
		"PI":    data.Float(math.Pi),
		"E":     data.Float(math.E),
		"round": fn("round", 1, mathFunc(jsRound)),
		"floor": fn("floor", 1, mathFunc(math.Floor)),
		"ceil":  fn("ceil", 1, mathFunc(math.Ceil)),
		"abs":   fn("abs", 1, mathFunc(math.Abs)),
		"sqrt":  fn("sqrt", 1, mathFunc(math.Sqrt)),
		"trunc": fn("trunc", 1, mathFunc(math.Trunc)),
		"sign":  fn("sign", 1, mathFunc(sign)),
		"pow": fn("pow", 2, func(args []data.Value) data.Value {
			return data.Number(math.Pow(data.ToNumber(args[0]), data.ToNumber(args[1])))
		}),
		"min": fn("min", 0, func(args []data.Value) data.Value {
			return extremum(args, math.Inf(1), func(a, b float64) bool { return a < b })
		}),
		"max": fn("max", 0, func(args []data.Value) data.Value {
			return extremum(args, math.Inf(-1), func(a, b float64) bool { return a > b })
		}),
	},
	"JSON": data.Map{
		"stringify": fn("stringify", 3, funcStringify),
	},
	"Object": data.Map{
		"keys":    fn("keys", 1, funcObjectKeys),
		"values":  fn("values", 1, funcObjectValues),
		"entries": fn("entries", 1, funcObjectEntries),
	},
	"Array": data.Map{
		"isArray": fn("isArray", 1, func(args []data.Value) data.Value {
			_, ok := args[0].(data.List)
			return data.Bool(ok)
		}),
	},
	"String": fn("String", 0, func(args []data.Value) data.Value {
		if len(args) == 0 {
			return data.String("")
		}
		return data.String(args[0].String())
	}),
	"Number": fn("Number", 0, func(args []data.Value) data.Value {
		if len(args) == 0 {
			return data.Int(0)
		}
		return data.Number(data.ToNumber(args[0]))
	}),
	"Boolean": fn("Boolean", 1, func(args []data.Value) data.Value {
		return data.Bool(args[0].Truthy())
	}),
	"NaN":      data.Float(math.NaN()),
	"Infinity": data.Float(math.Inf(1)),
}

func mathFunc(f func(float64) float64) func([]data.Value) data.Value {
	return func(args []data.Value) data.Value {
		return data.Number(f(data.ToNumber(args[0])))
	}
}

// jsRound rounds half up, toward positive infinity.
func jsRound(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) || x == math.Trunc(x) {
		return x
	}
	return math.Floor(x + 0.5)
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return x
}

func extremum(args []data.Value, init float64, better func(a, b float64) bool) data.Value {
	var result = init
	for _, arg := range args {
		var f = data.ToNumber(arg)
		if math.IsNaN(f) {
			return data.Float(math.NaN())
		}
		if better(f, result) {
			result = f
		}
	}
	return data.Number(result)
}

func funcObjectKeys(args []data.Value) data.Value {
	var keys = data.List{}
	switch obj := args[0].(type) {
	case data.Map:
		for _, k := range obj.Keys() {
			keys = append(keys, data.String(k))
		}
	case data.List:
		for i := range obj {
			keys = append(keys, data.String(strconv.Itoa(i)))
		}
	case data.Undefined, data.Null:
		throwf("TypeError: cannot convert %v to object", obj)
	}
	return keys
}

func funcObjectValues(args []data.Value) data.Value {
	var values = data.List{}
	switch obj := args[0].(type) {
	case data.Map:
		for _, k := range obj.Keys() {
			values = append(values, obj[k])
		}
	case data.List:
		values = append(values, obj...)
	case data.Undefined, data.Null:
		throwf("TypeError: cannot convert %v to object", obj)
	}
	return values
}

func funcObjectEntries(args []data.Value) data.Value {
	var entries = data.List{}
	switch obj := args[0].(type) {
	case data.Map:
		for _, k := range obj.Keys() {
			entries = append(entries, data.List{data.String(k), obj[k]})
		}
	case data.List:
		for i, v := range obj {
			entries = append(entries, data.List{data.String(strconv.Itoa(i)), v})
		}
	case data.Undefined, data.Null:
		throwf("TypeError: cannot convert %v to object", obj)
	}
	return entries
}

// Strings ----------

// Strings are indexed by UTF-16 code units, as in JavaScript.

func utf16Units(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

func fromUnits(u []uint16) string {
	return string(utf16.Decode(u))
}

func compareUnits(a, b string) int {
	var x, y = utf16Units(a), utf16Units(b)
	for i := 0; i < len(x) && i < len(y); i++ {
		if x[i] != y[i] {
			if x[i] < y[i] {
				return -1
			}
			return 1
		}
	}
	return len(x) - len(y)
}

func indexUnits(s, sub []uint16, from int) int {
	for i := from; i+len(sub) <= len(s); i++ {
		if equalUnits(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

func equalUnits(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// relIndex resolves a relative index argument (negative counts from the end)
// against length n, clamped to [0, n].
func relIndex(v data.Value, n, def int) int {
	if _, ok := v.(data.Undefined); ok {
		return def
	}
	var f = toInteger(v)
	if f < 0 {
		f += float64(n)
	}
	return int(math.Max(0, math.Min(f, float64(n))))
}

// clampIndex resolves an absolute index argument, clamped to [0, n].
func clampIndex(v data.Value, n, def int) int {
	if _, ok := v.(data.Undefined); ok {
		return def
	}
	return int(math.Max(0, math.Min(toInteger(v), float64(n))))
}

// toInteger converts to a number and truncates, mapping NaN to 0.
func toInteger(v data.Value) float64 {
	var f = data.ToNumber(v)
	if math.IsNaN(f) {
		return 0
	}
	return math.Trunc(f)
}

func isJSSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

func str(v data.Value) string {
	return string(v.(data.String))
}

var stringMethods = map[string]method{
	"toString":          {func(s data.Value, _ []data.Value) data.Value { return s }, 0},
	"valueOf":           {func(s data.Value, _ []data.Value) data.Value { return s }, 0},
	"toUpperCase":       {strUpper, 0},
	"toLowerCase":       {strLower, 0},
	"toLocaleUpperCase": {strLocaleUpper, 1},
	"toLocaleLowerCase": {strLocaleLower, 1},
	"localeCompare":     {strLocaleCompare, 2},
	"trim": {func(s data.Value, _ []data.Value) data.Value {
		return data.String(strings.TrimFunc(str(s), isJSSpace))
	}, 0},
	"trimStart": {func(s data.Value, _ []data.Value) data.Value {
		return data.String(strings.TrimLeftFunc(str(s), isJSSpace))
	}, 0},
	"trimEnd": {func(s data.Value, _ []data.Value) data.Value {
		return data.String(strings.TrimRightFunc(str(s), isJSSpace))
	}, 0},
	"slice":       {strSlice, 2},
	"substring":   {strSubstring, 2},
	"charAt":      {strCharAt, 1},
	"at":          {strAt, 1},
	"indexOf":     {strIndexOf, 2},
	"lastIndexOf": {strLastIndexOf, 1},
	"includes": {func(s data.Value, args []data.Value) data.Value {
		return data.Bool(strIndexOf(s, args).(data.Int) != -1)
	}, 2},
	"startsWith": {strStartsWith, 2},
	"endsWith":   {strEndsWith, 2},
	"replace":    {strReplace, 2},
	"replaceAll": {strReplaceAll, 2},
	"split":      {strSplit, 2},
	"repeat":     {strRepeat, 1},
	"padStart":   {strPadStart, 2},
	"padEnd":     {strPadEnd, 2},
	"concat": {func(s data.Value, args []data.Value) data.Value {
		var b strings.Builder
		b.WriteString(str(s))
		for _, arg := range args {
			b.WriteString(arg.String())
		}
		return data.String(b.String())
	}, 0},
}

func strSlice(s data.Value, args []data.Value) data.Value {
	var u = utf16Units(str(s))
	var start, end = relIndex(args[0], len(u), 0), relIndex(args[1], len(u), len(u))
	if start >= end {
		return data.String("")
	}
	return data.String(fromUnits(u[start:end]))
}

func strSubstring(s data.Value, args []data.Value) data.Value {
	var u = utf16Units(str(s))
	var start, end = clampIndex(args[0], len(u), 0), clampIndex(args[1], len(u), len(u))
	if start > end {
		start, end = end, start
	}
	return data.String(fromUnits(u[start:end]))
}

func strCharAt(s data.Value, args []data.Value) data.Value {
	var u = utf16Units(str(s))
	var i = toInteger(args[0])
	if i < 0 || i >= float64(len(u)) {
		return data.String("")
	}
	return data.String(fromUnits(u[int(i) : int(i)+1]))
}

func strAt(s data.Value, args []data.Value) data.Value {
	var u = utf16Units(str(s))
	var i = toInteger(args[0])
	if i < 0 {
		i += float64(len(u))
	}
	if i < 0 || i >= float64(len(u)) {
		return data.Undefined{}
	}
	return data.String(fromUnits(u[int(i) : int(i)+1]))
}

func strIndexOf(s data.Value, args []data.Value) data.Value {
	var u = utf16Units(str(s))
	var from = clampIndex(args[1], len(u), 0)
	return data.Int(indexUnits(u, utf16Units(args[0].String()), from))
}

func strLastIndexOf(s data.Value, args []data.Value) data.Value {
	var u, sub = utf16Units(str(s)), utf16Units(args[0].String())
	for i := len(u) - len(sub); i >= 0; i-- {
		if equalUnits(u[i:i+len(sub)], sub) {
			return data.Int(i)
		}
	}
	return data.Int(-1)
}

func strStartsWith(s data.Value, args []data.Value) data.Value {
	var u, sub = utf16Units(str(s)), utf16Units(args[0].String())
	var pos = clampIndex(args[1], len(u), 0)
	return data.Bool(pos+len(sub) <= len(u) && equalUnits(u[pos:pos+len(sub)], sub))
}

func strEndsWith(s data.Value, args []data.Value) data.Value {
	var u, sub = utf16Units(str(s)), utf16Units(args[0].String())
	var end = clampIndex(args[1], len(u), len(u))
	return data.Bool(end-len(sub) >= 0 && equalUnits(u[end-len(sub):end], sub))
}

// replacement returns the text to substitute for a match of pattern: the
// result of calling repl if it is a function, otherwise repl as a string.
func replacement(repl data.Value, match string) string {
	if _, ok := repl.(*data.Func); ok {
		return callback(repl, data.String(match)).String()
	}
	return repl.String()
}

func strReplace(s data.Value, args []data.Value) data.Value {
	var text, pattern = str(s), args[0].String()
	var i = strings.Index(text, pattern)
	if i == -1 {
		return s
	}
	return data.String(text[:i] + replacement(args[1], pattern) + text[i+len(pattern):])
}

func strReplaceAll(s data.Value, args []data.Value) data.Value {
	var text, pattern = str(s), args[0].String()
	if _, ok := args[1].(*data.Func); !ok {
		return data.String(strings.ReplaceAll(text, pattern, args[1].String()))
	}
	var b strings.Builder
	for {
		var i = strings.Index(text, pattern)
		if i == -1 {
			break
		}
		b.WriteString(text[:i])
		b.WriteString(replacement(args[1], pattern))
		text = text[i+len(pattern):]
		if pattern == "" {
			if text == "" {
				break
			}
			b.WriteString(text[:1])
			text = text[1:]
		}
	}
	b.WriteString(text)
	return data.String(b.String())
}

func strSplit(s data.Value, args []data.Value) data.Value {
	var limit = -1
	if _, ok := args[1].(data.Undefined); !ok {
		limit = int(toInteger(args[1]))
	}
	var parts []string
	switch sep := args[0].(type) {
	case data.Undefined:
		parts = []string{str(s)}
	default:
		if sep.String() == "" {
			for _, unit := range utf16Units(str(s)) {
				parts = append(parts, fromUnits([]uint16{unit}))
			}
		} else {
			parts = strings.Split(str(s), sep.String())
		}
	}
	var list = data.List{}
	for _, part := range parts {
		if limit >= 0 && len(list) >= limit {
			break
		}
		list = append(list, data.String(part))
	}
	return list
}

func strRepeat(s data.Value, args []data.Value) data.Value {
	var n = toInteger(args[0])
	if n < 0 || math.IsInf(n, 0) {
		throwf("RangeError: invalid count value: %v", args[0])
	}
	return data.String(strings.Repeat(str(s), int(n)))
}

func padding(s data.Value, args []data.Value) string {
	var u = utf16Units(str(s))
	var target = int(toInteger(args[0]))
	var fill = " "
	if _, ok := args[1].(data.Undefined); !ok {
		fill = args[1].String()
	}
	var fillUnits = utf16Units(fill)
	if target <= len(u) || len(fillUnits) == 0 {
		return ""
	}
	var pad []uint16
	for len(pad) < target-len(u) {
		pad = append(pad, fillUnits...)
	}
	return fromUnits(pad[:target-len(u)])
}

func strPadStart(s data.Value, args []data.Value) data.Value {
	return data.String(padding(s, args) + str(s))
}

func strPadEnd(s data.Value, args []data.Value) data.Value {
	return data.String(str(s) + padding(s, args))
}

// Numbers ----------

var numberMethods = map[string]method{
	"toString":       {numToString, 1},
	"valueOf":        {func(n data.Value, _ []data.Value) data.Value { return n }, 0},
	"toFixed":        {numToFixed, 1},
	"toLocaleString": {numToLocaleString, 2},
}

func numToString(n data.Value, args []data.Value) data.Value {
	if _, ok := args[0].(data.Undefined); ok {
		return data.String(n.String())
	}
	var radix = int(toInteger(args[0]))
	if radix < 2 || radix > 36 {
		throwf("RangeError: toString() radix must be between 2 and 36")
	}
	var f = data.ToNumber(n)
	if radix == 10 || f != math.Trunc(f) || math.Abs(f) >= 1<<53 {
		return data.String(n.String())
	}
	return data.String(strconv.FormatInt(int64(f), radix))
}

func numToFixed(n data.Value, args []data.Value) data.Value {
	var digits = toInteger(args[0])
	if digits < 0 || digits > 100 {
		throwf("RangeError: toFixed() digits argument must be between 0 and 100")
	}
	return data.String(toFixed(data.ToNumber(n), int(digits)))
}

// Booleans ----------

var boolMethods = map[string]method{
	"toString": {func(b data.Value, _ []data.Value) data.Value { return data.String(b.String()) }, 0},
	"valueOf":  {func(b data.Value, _ []data.Value) data.Value { return b }, 0},
}

// Arrays ----------

var arrayMethods = map[string]method{
	"toString": {func(l data.Value, _ []data.Value) data.Value { return data.String(l.String()) }, 0},
	"join":     {arrJoin, 1},
	"map": {func(l data.Value, args []data.Value) data.Value {
		var list = l.(data.List)
		var result = make(data.List, len(list))
		for i, item := range list {
			result[i] = callback(args[0], item, data.Int(i), list)
		}
		return result
	}, 1},
	"filter": {func(l data.Value, args []data.Value) data.Value {
		var list = l.(data.List)
		var result = data.List{}
		for i, item := range list {
			if callback(args[0], item, data.Int(i), list).Truthy() {
				result = append(result, item)
			}
		}
		return result
	}, 1},
	"find": {func(l data.Value, args []data.Value) data.Value {
		if i := arrFind(l, args[0]); i >= 0 {
			return l.(data.List)[i]
		}
		return data.Undefined{}
	}, 1},
	"findIndex": {func(l data.Value, args []data.Value) data.Value {
		return data.Int(arrFind(l, args[0]))
	}, 1},
	"some": {func(l data.Value, args []data.Value) data.Value {
		return data.Bool(arrFind(l, args[0]) >= 0)
	}, 1},
	"every": {func(l data.Value, args []data.Value) data.Value {
		var list = l.(data.List)
		for i, item := range list {
			if !callback(args[0], item, data.Int(i), list).Truthy() {
				return data.Bool(false)
			}
		}
		return data.Bool(true)
	}, 1},
	"includes": {func(l data.Value, args []data.Value) data.Value {
		for _, item := range l.(data.List) {
			if sameValueZero(item, args[0]) {
				return data.Bool(true)
			}
		}
		return data.Bool(false)
	}, 1},
	"indexOf": {func(l data.Value, args []data.Value) data.Value {
		for i, item := range l.(data.List) {
			if item.Equals(args[0]) {
				return data.Int(i)
			}
		}
		return data.Int(-1)
	}, 1},
	"slice": {func(l data.Value, args []data.Value) data.Value {
		var list = l.(data.List)
		var start, end = relIndex(args[0], len(list), 0), relIndex(args[1], len(list), len(list))
		if start >= end {
			return data.List{}
		}
		return append(data.List{}, list[start:end]...)
	}, 2},
	"concat": {func(l data.Value, args []data.Value) data.Value {
		var result = append(data.List{}, l.(data.List)...)
		for _, arg := range args {
			if list, ok := arg.(data.List); ok {
				result = append(result, list...)
			} else {
				result = append(result, arg)
			}
		}
		return result
	}, 0},
	// reverse returns a reversed copy; property bags are never modified.
	"reverse": {func(l data.Value, _ []data.Value) data.Value {
		var list = l.(data.List)
		var result = make(data.List, len(list))
		for i, item := range list {
			result[len(list)-1-i] = item
		}
		return result
	}, 0},
	"flat": {func(l data.Value, args []data.Value) data.Value {
		var depth = 1
		if _, ok := args[0].(data.Undefined); !ok {
			depth = int(toInteger(args[0]))
		}
		return flatten(l.(data.List), depth)
	}, 1},
}

func arrJoin(l data.Value, args []data.Value) data.Value {
	var sep = ","
	if _, ok := args[0].(data.Undefined); !ok {
		sep = args[0].String()
	}
	var list = l.(data.List)
	var items = make([]string, len(list))
	for i, item := range list {
		if !data.IsNullish(item) {
			items[i] = item.String()
		}
	}
	return data.String(strings.Join(items, sep))
}

// arrFind returns the index of the first item for which pred is truthy, or -1.
func arrFind(l, pred data.Value) int {
	var list = l.(data.List)
	for i, item := range list {
		if callback(pred, item, data.Int(i), list).Truthy() {
			return i
		}
	}
	return -1
}

func sameValueZero(a, b data.Value) bool {
	if a.Equals(b) {
		return true
	}
	return data.IsNumber(a) && data.IsNumber(b) &&
		math.IsNaN(data.ToNumber(a)) && math.IsNaN(data.ToNumber(b))
}

func flatten(list data.List, depth int) data.List {
	var result = data.List{}
	for _, item := range list {
		if sub, ok := item.(data.List); ok && depth > 0 {
			result = append(result, flatten(sub, depth-1)...)
			continue
		}
		result = append(result, item)
	}
	return result
}
