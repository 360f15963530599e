// Package data defines the values that flow through template rendering.
//
// Values follow the semantics of the JavaScript host that the template format
// was designed for: how they print, which are truthy, and how they compare.
package data

import (
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Value represents a data value, which may be one of the enumerated types.
type Value interface {
	// Truthy returns true according to the JavaScript definition of truthy and
	// falsy values.
	Truthy() bool

	// String formats this value for display in a template (ToString).
	String() string

	// Equals returns true if the two values are strictly equal (===).
	// Specifically, if:
	// - They are comparable: they have the same Type, or they are Int and Float
	// - (Primitives) They have the same value
	// - (Lists, Maps, Funcs) They are the same instance
	// Uncomparable types and unequal values return false.
	Equals(other Value) bool
}

// Value types
type (
	Undefined struct{}
	Null      struct{}
	Bool      bool
	Int       int64
	Float     float64
	String    string
	List      []Value
	Map       map[string]Value
)

// Func is a callable value: a builtin function, a bound method, or an arrow
// function defined in a template expression.  Call panics with an error if
// the invocation fails.
type Func struct {
	Name string
	Call func(args []Value) Value
}

// Index retrieves a value from this list, or Undefined if out of bounds.
func (v List) Index(i int) Value {
	if !(0 <= i && i < len(v)) {
		return Undefined{}
	}
	return v[i]
}

// Key retrieves a value under the named key, or Undefined if it doesn't exist.
func (v Map) Key(k string) Value {
	var result, ok = v[k]
	if !ok {
		return Undefined{}
	}
	return result
}

// Keys returns the map's keys in sorted order.
func (v Map) Keys() []string {
	var keys = make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Truthy ----------

func (v Undefined) Truthy() bool { return false }
func (v Null) Truthy() bool      { return false }
func (v Bool) Truthy() bool      { return bool(v) }
func (v Int) Truthy() bool       { return v != 0 }
func (v Float) Truthy() bool     { return v != 0.0 && !math.IsNaN(float64(v)) }
func (v String) Truthy() bool    { return v != "" }
func (v List) Truthy() bool      { return true }
func (v Map) Truthy() bool       { return true }
func (v *Func) Truthy() bool     { return true }

// String ----------

func (v Undefined) String() string { return "undefined" }
func (v Null) String() string      { return "null" }
func (v Bool) String() string      { return strconv.FormatBool(bool(v)) }
func (v Int) String() string       { return strconv.FormatInt(int64(v), 10) }
func (v Float) String() string     { return FormatNumber(float64(v)) }
func (v String) String() string    { return string(v) }
func (v Map) String() string       { return "[object Object]" }

// String joins the items with commas.  Null and undefined items print as
// empty strings.
func (v List) String() string {
	var items = make([]string, len(v))
	for i, item := range v {
		switch item.(type) {
		case Undefined, Null:
		default:
			items[i] = item.String()
		}
	}
	return strings.Join(items, ",")
}

func (v *Func) String() string {
	return "function " + v.Name + "() { [native code] }"
}

// FormatNumber formats a float the way JavaScript's Number.prototype.toString
// does for radix 10.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	var abs = math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		var s = strconv.FormatFloat(f, 'e', -1, 64)
		var mantissa, exp = s[:strings.IndexByte(s, 'e')], s[strings.IndexByte(s, 'e')+1:]
		var sign = exp[0]
		exp = strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + string(sign) + exp
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Equals ----------

func (v Undefined) Equals(other Value) bool {
	_, ok := other.(Undefined)
	return ok
}

func (v Null) Equals(other Value) bool {
	_, ok := other.(Null)
	return ok
}

func (v Bool) Equals(other Value) bool {
	if o, ok := other.(Bool); ok {
		return bool(v) == bool(o)
	}
	return false
}

func (v String) Equals(other Value) bool {
	if o, ok := other.(String); ok {
		return string(v) == string(o)
	}
	return false
}

func (v List) Equals(other Value) bool {
	if o, ok := other.(List); ok {
		return reflect.ValueOf(v).Pointer() == reflect.ValueOf(o).Pointer() && len(v) == len(o)
	}
	return false
}

func (v Map) Equals(other Value) bool {
	if o, ok := other.(Map); ok {
		return reflect.ValueOf(v).Pointer() == reflect.ValueOf(o).Pointer()
	}
	return false
}

func (v *Func) Equals(other Value) bool {
	o, ok := other.(*Func)
	return ok && o == v
}

func (v Int) Equals(other Value) bool {
	switch o := other.(type) {
	case Int:
		return v == o
	case Float:
		return float64(v) == float64(o)
	}
	return false
}

func (v Float) Equals(other Value) bool {
	switch o := other.(type) {
	case Int:
		return float64(v) == float64(o)
	case Float:
		return v == o
	}
	return false
}

// LooseEquals implements the == operator: null and undefined are equal to
// each other, and primitives of different types are compared as numbers.
func LooseEquals(a, b Value) bool {
	if isNullish(a) || isNullish(b) {
		return isNullish(a) && isNullish(b)
	}
	if a.Equals(b) {
		return true
	}
	if isPrimitive(a) && isPrimitive(b) && reflect.TypeOf(a) != reflect.TypeOf(b) {
		return ToNumber(a) == ToNumber(b)
	}
	switch {
	case isPrimitive(a) && !isPrimitive(b):
		return LooseEquals(a, String(b.String()))
	case !isPrimitive(a) && isPrimitive(b):
		return LooseEquals(String(a.String()), b)
	}
	return false
}

func isNullish(v Value) bool {
	switch v.(type) {
	case Undefined, Null:
		return true
	}
	return false
}

func isPrimitive(v Value) bool {
	switch v.(type) {
	case Bool, Int, Float, String:
		return true
	}
	return false
}

// IsNullish returns true for null and undefined.
func IsNullish(v Value) bool {
	return isNullish(v)
}

// IsNumber returns true for Int and Float values.
func IsNumber(v Value) bool {
	switch v.(type) {
	case Int, Float:
		return true
	}
	return false
}

// ToNumber converts a value to a float according to JavaScript's ToNumber.
func ToNumber(v Value) float64 {
	switch v := v.(type) {
	case Undefined:
		return math.NaN()
	case Null:
		return 0
	case Bool:
		if v {
			return 1
		}
		return 0
	case Int:
		return float64(v)
	case Float:
		return float64(v)
	case String:
		return stringToNumber(string(v))
	case List:
		return stringToNumber(v.String())
	}
	return math.NaN()
}

func stringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return 0
	case s == "Infinity", s == "+Infinity":
		return math.Inf(1)
	case s == "-Infinity":
		return math.Inf(-1)
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		if n, err := strconv.ParseUint(s[2:], 16, 64); err == nil {
			return float64(n)
		}
		return math.NaN()
	}
	// ParseFloat accepts forms that JavaScript rejects (e.g. "inf", "1_0").
	for _, ch := range s {
		if !strings.ContainsRune("0123456789+-.eE", ch) {
			return math.NaN()
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// Number returns the canonical numeric value for f: an Int when f is integral
// and within range, else a Float.
func Number(f float64) Value {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 && !(f == 0 && math.Signbit(f)) {
		return Int(f)
	}
	return Float(f)
}

// TypeOf returns the result of the typeof operator.
func TypeOf(v Value) string {
	switch v.(type) {
	case Undefined:
		return "undefined"
	case Bool:
		return "boolean"
	case Int, Float:
		return "number"
	case String:
		return "string"
	case *Func:
		return "function"
	}
	return "object"
}
