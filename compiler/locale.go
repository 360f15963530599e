package compiler

import (
	"math"
	"math/big"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/robfig/tstmpl/data"
)

// DefaultLocale is used by the locale-sensitive methods when the template
// does not pass a locale.
var DefaultLocale = language.AmericanEnglish

// localeTag returns the locale named by a locales argument: undefined, a
// BCP 47 tag, or a list whose first element is one.
func localeTag(v data.Value) language.Tag {
	switch v := v.(type) {
	case data.Undefined:
		return DefaultLocale
	case data.List:
		if len(v) == 0 {
			return DefaultLocale
		}
		return localeTag(v[0])
	}
	tag, err := language.Parse(v.String())
	if err != nil {
		throwf("RangeError: incorrect locale information provided: %q", v.String())
	}
	return tag
}

func strUpper(s data.Value, _ []data.Value) data.Value {
	return data.String(cases.Upper(language.Und).String(str(s)))
}

func strLower(s data.Value, _ []data.Value) data.Value {
	return data.String(cases.Lower(language.Und).String(str(s)))
}

func strLocaleUpper(s data.Value, args []data.Value) data.Value {
	return data.String(cases.Upper(localeTag(args[0])).String(str(s)))
}

func strLocaleLower(s data.Value, args []data.Value) data.Value {
	return data.String(cases.Lower(localeTag(args[0])).String(str(s)))
}

func strLocaleCompare(s data.Value, args []data.Value) data.Value {
	var c = collate.New(localeTag(args[1]))
	return data.Int(c.CompareString(str(s), args[0].String()))
}

// numToLocaleString formats a number with grouping separators.  The
// minimumFractionDigits and maximumFractionDigits options are honored.
func numToLocaleString(n data.Value, args []data.Value) data.Value {
	var f = data.ToNumber(n)
	switch {
	case math.IsNaN(f):
		return data.String("NaN")
	case math.IsInf(f, 1):
		return data.String("∞")
	case math.IsInf(f, -1):
		return data.String("-∞")
	}
	var minDigits, maxDigits = 0, 3
	if opts, ok := args[1].(data.Map); ok {
		if v, ok := opts["minimumFractionDigits"]; ok {
			minDigits = fractionDigits(v)
			if maxDigits < minDigits {
				maxDigits = minDigits
			}
		}
		if v, ok := opts["maximumFractionDigits"]; ok {
			maxDigits = fractionDigits(v)
			if maxDigits < minDigits {
				throwf("RangeError: maximumFractionDigits value is out of range")
			}
		}
	}
	var p = message.NewPrinter(localeTag(args[0]))
	return data.String(p.Sprintf("%v", number.Decimal(f,
		number.MinFractionDigits(minDigits),
		number.MaxFractionDigits(maxDigits))))
}

func fractionDigits(v data.Value) int {
	var f = data.ToNumber(v)
	if math.IsNaN(f) || f < 0 || f > 100 {
		throwf("RangeError: fraction digits value is out of range")
	}
	return int(f)
}

// toFixed formats f with the given number of digits after the decimal point.
// The exact binary value is rounded, with ties going away from zero.
func toFixed(f float64, digits int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= 1e21 {
		return data.FormatNumber(f)
	}
	var exact = new(big.Float).SetFloat64(math.Abs(f)).Text('f', 1100)
	var intPart, frac = exact, ""
	if i := strings.IndexByte(exact, '.'); i >= 0 {
		intPart, frac = exact[:i], exact[i+1:]
	}
	for len(frac) <= digits {
		frac += "0"
	}
	var n, _ = new(big.Int).SetString(intPart+frac[:digits], 10)
	if frac[digits] >= '5' {
		n.Add(n, big.NewInt(1))
	}
	var s = n.String()
	for len(s) <= digits {
		s = "0" + s
	}
	if digits > 0 {
		s = s[:len(s)-digits] + "." + s[len(s)-digits:]
	}
	if f < 0 {
		s = "-" + s
	}
	return s
}
