package compiler

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/robfig/tstmpl/data"
)

// funcStringify implements JSON.stringify(value, replacer, space).  The
// replacer is ignored.  Object keys are written in sorted order.
func funcStringify(args []data.Value) data.Value {
	switch args[0].(type) {
	case data.Undefined, *data.Func:
		return data.Undefined{}
	}

	var buf bytes.Buffer
	var enc = json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent := jsonIndent(args[2]); indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(jsonValue(args[0])); err != nil {
		throwf("TypeError: %v", err)
	}
	return data.String(strings.TrimSuffix(buf.String(), "\n"))
}

// jsonIndent returns the indentation selected by JSON.stringify's space
// argument: a count of spaces, or a string, limited to 10 characters.
func jsonIndent(space data.Value) string {
	switch space := space.(type) {
	case data.Int, data.Float:
		var n = int(math.Min(10, toInteger(space)))
		if n < 1 {
			return ""
		}
		return strings.Repeat(" ", n)
	case data.String:
		var units = utf16Units(string(space))
		if len(units) > 10 {
			units = units[:10]
		}
		return fromUnits(units)
	}
	return ""
}

// jsonValue converts v to plain Go data for encoding.  Non-finite numbers
// become null, and functions or undefined inside lists become null.
func jsonValue(v data.Value) interface{} {
	switch v := v.(type) {
	case data.Float:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil
		}
		return json.Number(v.String())
	case data.List:
		var items = make([]interface{}, len(v))
		for i, item := range v {
			items[i] = jsonValue(item)
		}
		return items
	case data.Map:
		var m = make(map[string]interface{}, len(v))
		for k, item := range v {
			switch item.(type) {
			case data.Undefined, *data.Func:
				continue
			}
			m[k] = jsonValue(item)
		}
		return m
	}
	return data.Native(v)
}
