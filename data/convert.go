package data

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// TimeFormat is the layout of times converted by New, matching the output of
// Date.prototype.toJSON.  Times are converted to UTC first.
const TimeFormat = "2006-01-02T15:04:05.000Z"

var (
	timeType          = reflect.TypeOf(time.Time{})
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// New converts the given Go value to a template value, the way it would
// arrive in a template host after a trip through JSON:
//
//   - nil pointers, maps and slices become null
//   - integers become Int, or Float beyond the safe integer range
//   - time.Time becomes an ISO-8601 string in UTC
//   - maps become Map; integer and encoding.TextMarshaler keys are formatted
//   - structs become Map, keyed by their "json" tag names or else by their
//     exported field names in lowerCamel case; fields tagged "-" are omitted,
//     as are "omitempty" fields holding zero values
//
// New panics with an error for values with no template equivalent, such as
// channels and complex numbers.
func New(value interface{}) Value {
	if val, ok := value.(Value); ok {
		return val
	}
	if value == nil {
		return Null{}
	}
	return newValue(reflect.ValueOf(value))
}

func newValue(v reflect.Value) Value {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return Null{}
		}
		if val, ok := v.Interface().(Value); ok {
			return val
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return Null{}
	}
	if v.CanInterface() {
		if val, ok := v.Interface().(Value); ok {
			return val
		}
	}
	if v.Type() == timeType && v.CanInterface() {
		return String(v.Interface().(time.Time).UTC().Format(TimeFormat))
	}

	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(float64(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Number(float64(v.Uint()))
	case reflect.Float32, reflect.Float64:
		return Number(v.Float())
	case reflect.Bool:
		return Bool(v.Bool())
	case reflect.String:
		return String(v.String())
	case reflect.Slice:
		if v.IsNil() {
			return Null{}
		}
		fallthrough
	case reflect.Array:
		var list = make(List, v.Len())
		for i := range list {
			list[i] = newValue(v.Index(i))
		}
		return list
	case reflect.Map:
		if v.IsNil() {
			return Null{}
		}
		var m = make(Map, v.Len())
		var iter = v.MapRange()
		for iter.Next() {
			m[mapKey(iter.Key())] = newValue(iter.Value())
		}
		return m
	case reflect.Struct:
		var m = make(Map)
		addFields(m, v)
		return m
	}
	panic(fmt.Errorf("unexpected data type: %v", v.Type()))
}

// mapKey formats a map key as an object property name.
func mapKey(k reflect.Value) string {
	if k.Type().Implements(textMarshalerType) && k.CanInterface() {
		if text, err := k.Interface().(encoding.TextMarshaler).MarshalText(); err == nil {
			return string(text)
		}
	}
	switch k.Kind() {
	case reflect.String:
		return k.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10)
	}
	panic(fmt.Errorf("map keys must be strings or integers, got %v", k.Type()))
}

// addFields adds the exported fields of the struct v to m.  The fields of
// embedded structs without a tag name are promoted.
func addFields(m Map, v reflect.Value) {
	var t = v.Type()
	for i := 0; i < t.NumField(); i++ {
		var field = t.Field(i)
		var name, omitEmpty, skip = fieldName(field)
		if skip {
			continue
		}
		var fv = v.Field(i)
		if field.Anonymous && name == "" {
			var embedded = fv
			for embedded.Kind() == reflect.Ptr && !embedded.IsNil() {
				embedded = embedded.Elem()
			}
			switch {
			case embedded.Kind() == reflect.Struct:
				addFields(m, embedded)
				continue
			case embedded.Kind() == reflect.Ptr:
				continue
			}
		}
		if !field.IsExported() || omitEmpty && fv.IsZero() {
			continue
		}
		if name == "" {
			name = lowerCamel(field.Name)
		}
		if _, ok := m[name]; !ok {
			m[name] = newValue(fv)
		}
	}
}

// fieldName returns the name from the field's json tag, if any.
func fieldName(field reflect.StructField) (name string, omitEmpty, skip bool) {
	var tag = field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	var opts string
	name, opts, _ = strings.Cut(tag, ",")
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

func lowerCamel(name string) string {
	var first, size = utf8.DecodeRuneInString(name)
	return string(unicode.ToLower(first)) + name[size:]
}

// Native converts a value back into plain Go data: nil, bool, int64, float64,
// string, []interface{} and map[string]interface{}.  Undefined values and
// functions convert to nil; map entries holding them are dropped, as
// JSON.stringify does.
func Native(v Value) interface{} {
	switch v := v.(type) {
	case Bool:
		return bool(v)
	case Int:
		return int64(v)
	case Float:
		return float64(v)
	case String:
		return string(v)
	case List:
		var items = make([]interface{}, len(v))
		for i, item := range v {
			items[i] = Native(item)
		}
		return items
	case Map:
		var m = make(map[string]interface{}, len(v))
		for k, item := range v {
			switch item.(type) {
			case Undefined, *Func:
				continue
			}
			m[k] = Native(item)
		}
		return m
	}
	return nil
}
