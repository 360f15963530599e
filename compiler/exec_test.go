package compiler

import (
	"bytes"
	"sort"
	"strings"
	"testing"

	"github.com/robfig/tstmpl/ast"
)

type d map[string]interface{}

type execTest struct {
	name   string
	body   string
	output string
	data   d
	ok     bool
}

func exprtest(name, body, result string) execTest {
	return execTest{name, body, result, nil, true}
}

func exprtestwdata(name, body, result string, data d) execTest {
	return execTest{name, body, result, data, true}
}

func (t execTest) fails() execTest {
	t.ok = false
	return t
}

func TestBasicExec(t *testing.T) {
	runExecTests(t, []execTest{
		exprtest("empty", "", ""),
		exprtest("text only", "Hello world!", "Hello world!"),
		exprtest("escapes are literal", `a\nb C:\dir`, `a\nb C:\dir`),
		exprtest("lone dollar", "costs $5 {x}", "costs $5 {x}"),
		exprtestwdata("greeting", "${greeting}, ${name}!", "Hey, World!",
			d{"greeting": "Hey", "name": "World"}),
		exprtestwdata("multiline", "Dear ${name},\n\n  Thanks!\n", "Dear Ann,\n\n  Thanks!\n",
			d{"name": "Ann"}),
		exprtestwdata("nested data", "${user.address.city}", "Oslo",
			d{"user": d{"address": d{"city": "Oslo"}}}),
		exprtestwdata("list", "${items}", "1,2,3", d{"items": []int{1, 2, 3}}),
		exprtestwdata("object", "${user}", "[object Object]", d{"user": d{}}),
		exprtestwdata("null", "${x}", "null", d{"x": nil}),
		exprtestwdata("bool", "${x}", "true", d{"x": true}),
		exprtestwdata("float", "${x}", "1.5", d{"x": 1.5}),
		exprtestwdata("integral float", "${x}", "2", d{"x": 2.0}),
	})
}

func TestExpressions(t *testing.T) {
	runExecTests(t, []execTest{
		exprtest("arithmetic", "${2*(1+1)/(2%4)}", "2"),
		exprtest("precedence", "${1 + 2 * 3}", "7"),
		exprtest("division", "${7 / 2}", "3.5"),
		exprtest("division by zero", "${1 / 0}", "Infinity"),
		exprtest("nan", "${0 / 0}", "NaN"),
		exprtest("modulo", "${-7 % 3}", "-1"),
		exprtest("float sum", "${0.1 + 0.2}", "0.30000000000000004"),
		exprtest("large", "${1e21}", "1e+21"),
		exprtest("small", "${0.0000001}", "1e-7"),
		exprtest("hex", "${0xff}", "255"),
		exprtest("concat string number", "${'a' + 1}", "a1"),
		exprtest("concat number string", "${1 + '2'}", "12"),
		exprtest("numeric strings", "${'3' * '4'}", "12"),
		exprtest("unary plus", "${+'3' + 1}", "4"),
		exprtest("negation", "${-(2 + 3)}", "-5"),
		exprtest("list concat", "${[1, 2] + ''}", "1,2"),
		exprtest("list with nulls", "${[1, null, undefined, 2]}", "1,,,2"),
		exprtest("loose null", "${null == undefined}", "true"),
		exprtest("strict null", "${null === undefined}", "false"),
		exprtest("loose number", "${'1' == 1}", "true"),
		exprtest("strict number", "${'1' === 1}", "false"),
		exprtest("not equal", "${1 != 2}", "true"),
		exprtest("string compare", "${'b' > 'a'}", "true"),
		exprtest("string compare by units", "${'2' < '10'}", "false"),
		exprtest("number compare", "${2 < 10}", "true"),
		exprtest("mixed compare", "${'2' < 10}", "true"),
		exprtest("nan compare", "${0/0 >= 0}", "false"),
		exprtest("not", "${!0}", "true"),
		exprtest("and", "${1 && 'yes'}", "yes"),
		exprtest("and short circuit", "${0 && nope}", "0"),
		exprtest("or", "${'' || 'fallback'}", "fallback"),
		exprtest("or short circuit", "${'x' || nope}", "x"),
		exprtest("ternary", "${1 > 2 ? 'a' : 'b'}", "b"),
		exprtest("nested ternary", "${0 ? 'a' : 1 ? 'b' : 'c'}", "b"),
		exprtest("typeof number", "${typeof 1}", "number"),
		exprtest("typeof string", "${typeof ''}", "string"),
		exprtest("typeof unknown", "${typeof nope}", "undefined"),
		exprtest("typeof null", "${typeof null}", "object"),
		exprtest("typeof function", "${typeof Math.max}", "function"),
		exprtest("template literal", "${`a${1 + 1}b`}", "a2b"),
		exprtest("nested template literal", "${`<${`${'x'}`}>`}", "<x>"),
		exprtest("template literal escapes", "${`a\\tb`}", "a\tb"),
		exprtest("string escapes", `${'it\'s A'}`, "it's A"),
		exprtest("comment", "${1 /* one */ + 1}", "2"),
		exprtest("undefined literal", "${undefined}", "undefined"),
	})
}

func TestDataRefs(t *testing.T) {
	var user = d{"name": "Ann", "tags": []string{"a", "b"}}
	runExecTests(t, []execTest{
		exprtestwdata("member", "${user.name}", "Ann", d{"user": user}),
		exprtestwdata("index", "${user['name']}", "Ann", d{"user": user}),
		exprtestwdata("computed index", "${user.tags[i]}", "b", d{"user": user, "i": 1}),
		exprtestwdata("index out of range", "${user.tags[5]}", "undefined", d{"user": user}),
		exprtestwdata("string index", "${user.tags['0']}", "a", d{"user": user}),
		exprtestwdata("missing member", "${user.age}", "undefined", d{"user": user}),
		exprtestwdata("list length", "${user.tags.length}", "2", d{"user": user}),
		exprtestwdata("string length", "${user.name.length}", "3", d{"user": user}),
		exprtestwdata("utf16 length", "${s.length}", "2", d{"s": "😀"}),
		exprtestwdata("string char", "${s[1]}", "é", d{"s": "héllo"}),
		exprtestwdata("optional member", "${user?.name}", "undefined", d{"user": nil}),
		exprtestwdata("optional chain", "${user?.address.city}", "undefined", d{"user": nil}),
		exprtestwdata("optional nested", "${user?.address?.city}", "undefined", d{"user": d{}}),
		exprtestwdata("optional index", "${list?.[0]}", "undefined", d{"list": nil}),
		exprtestwdata("optional call", "${f?.()}", "undefined", d{"f": nil}),
		exprtestwdata("nullish", "${a ?? 'dflt'}", "dflt", d{"a": nil}),
		exprtestwdata("nullish zero", "${a ?? 'dflt'}", "0", d{"a": 0}),
		exprtestwdata("or zero", "${a || 'dflt'}", "dflt", d{"a": 0}),
		exprtestwdata("func name", "${Math.max.name}", "max", nil),

		exprtestwdata("member of undefined", "${user.address.city}", "", d{"user": user}).fails(),
		exprtestwdata("member of null", "${user.name}", "", d{"user": nil}).fails(),
		exprtestwdata("optional then member", "${user?.address.city}", "", d{"user": d{}}).fails(),
		exprtestwdata("call non-function", "${user.name()}", "", d{"user": user}).fails(),
		exprtest("undeclared name", "${nope}", "").fails(),
	})
}

func TestMissingKeys(t *testing.T) {
	var parsed = &ast.ParsedTemplate{
		Name:     "test",
		Body:     "${greeting}, ${name}! ${typeof name}",
		PropKeys: []string{"greeting", "name"},
	}
	var tmpl, err = Compile(parsed)
	if err != nil {
		t.Fatal(err)
	}
	for _, props := range []interface{}{nil, d{}, d{"greeting": "Hi", "extra": 1}} {
		var result, err = tmpl.Render(props)
		if err != nil {
			t.Errorf("%v: %v", props, err)
			continue
		}
		var expected = "undefined, undefined! undefined"
		if props, ok := props.(d); ok && props["greeting"] != nil {
			expected = "Hi, undefined! undefined"
		}
		if result != expected {
			t.Errorf("%v: expected %q, got %q", props, expected, result)
		}
	}
}

func TestExtraPropsNotBound(t *testing.T) {
	var parsed = &ast.ParsedTemplate{
		Name:     "test",
		Body:     "${extra}",
		PropKeys: []string{"name"},
	}
	var tmpl, err = Compile(parsed)
	if err != nil {
		t.Fatal(err)
	}
	_, err = tmpl.Render(d{"name": "x", "extra": "y"})
	if err == nil || !strings.Contains(err.Error(), "ReferenceError: extra is not defined") {
		t.Errorf("expected ReferenceError, got %v", err)
	}
}

func TestArrowFuncs(t *testing.T) {
	var items = d{"items": []int{1, 2, 3}}
	runExecTests(t, []execTest{
		exprtestwdata("map", "${items.map(x => x * 2).join(', ')}", "2, 4, 6", items),
		exprtestwdata("map index", "${items.map((x, i) => i).join()}", "0,1,2", items),
		exprtestwdata("filter", "${items.filter(x => x > 1).length}", "2", items),
		exprtestwdata("find", "${items.find(x => x > 1)}", "2", items),
		exprtestwdata("find none", "${items.find(x => x > 5)}", "undefined", items),
		exprtestwdata("findIndex", "${items.findIndex(x => x === 3)}", "2", items),
		exprtestwdata("some", "${items.some(x => x > 2)}", "true", items),
		exprtestwdata("every", "${items.every(x => x > 2)}", "false", items),
		exprtestwdata("closure", "${items.map(x => items.map(y => x * y).join('')).join('|')}",
			"123|246|369", items),
		exprtestwdata("param shadows prop", "${items.map(items => items + 1)}", "2,3,4", items),
		exprtestwdata("no params", "${[1, 2].map(() => 'x').join('')}", "xx", nil),
		exprtestwdata("template literal body", "${items.map(n => `<${n}>`).join('')}",
			"<1><2><3>", items),
		exprtestwdata("missing args are undefined", "${[1].map((a, b, c, d) => d)}", "", nil),
		exprtestwdata("arrow value", "${typeof (x => x)}", "function", nil),

		exprtestwdata("callback not a function", "${items.map(1)}", "", items).fails(),
		exprtestwdata("error in callback", "${items.map(x => x.y.z)}", "", items).fails(),
	})
}

func TestStringMethods(t *testing.T) {
	runExecTests(t, []execTest{
		exprtest("toUpperCase", "${'straße'.toUpperCase()}", "STRASSE"),
		exprtest("toLowerCase", "${'ÀB'.toLowerCase()}", "àb"),
		exprtest("toLocaleUpperCase", "${'i'.toLocaleUpperCase('tr')}", "İ"),
		exprtest("toLocaleLowerCase", "${'I'.toLocaleLowerCase('en-US')}", "i"),
		exprtest("trim", "${'  x  '.trim()}|", "x|"),
		exprtest("trimStart", "${'  x  '.trimStart()}|", "x  |"),
		exprtest("trimEnd", "${'  x  '.trimEnd()}|", "  x|"),
		exprtest("trim byte order mark", "${'\uFEFF x\u00A0'.trim()}|", "x|"),
		exprtest("slice", "${'abcdef'.slice(1, 3)}", "bc"),
		exprtest("slice negative", "${'abcdef'.slice(-2)}", "ef"),
		exprtest("substring swapped", "${'abcdef'.substring(4, 1)}", "bcd"),
		exprtest("charAt", "${'abc'.charAt(1)}", "b"),
		exprtest("charAt out of range", "${'abc'.charAt(5)}|", "|"),
		exprtest("at negative", "${'abc'.at(-1)}", "c"),
		exprtest("indexOf", "${'banana'.indexOf('an')}", "1"),
		exprtest("indexOf from", "${'banana'.indexOf('an', 2)}", "3"),
		exprtest("lastIndexOf", "${'banana'.lastIndexOf('an')}", "3"),
		exprtest("includes", "${'banana'.includes('nan')}", "true"),
		exprtest("startsWith", "${'banana'.startsWith('ban')}", "true"),
		exprtest("endsWith", "${'banana'.endsWith('nab')}", "false"),
		exprtest("replace first", "${'a-b-c'.replace('-', '+')}", "a+b-c"),
		exprtest("replaceAll", "${'a-b-c'.replaceAll('-', '+')}", "a+b+c"),
		exprtest("replaceAll func", "${'a-b'.replaceAll('-', m => '[' + m + ']')}", "a[-]b"),
		exprtest("split", "${'a-b-c'.split('-').length}", "3"),
		exprtest("split chars", "${'abc'.split('').join(' ')}", "a b c"),
		exprtest("split limit", "${'a,b,c'.split(',', 2)}", "a,b"),
		exprtest("repeat", "${'ab'.repeat(3)}", "ababab"),
		exprtest("padStart", "${'5'.padStart(3, '0')}", "005"),
		exprtest("padEnd", "${'5'.padEnd(3)}|", "5  |"),
		exprtest("concat", "${'a'.concat('b', 1)}", "ab1"),
		exprtest("localeCompare", "${'b'.localeCompare('a')}", "1"),
		exprtest("localeCompare equal", "${'a'.localeCompare('a')}", "0"),
		exprtest("unknown method", "${typeof 'a'.nope}", "undefined"),

		exprtest("repeat negative", "${'x'.repeat(-1)}", "").fails(),
		exprtest("unknown method call", "${'a'.nope()}", "").fails(),
		exprtest("bad locale", "${'a'.toLocaleUpperCase('not a locale!')}", "").fails(),
	})
}

func TestNumberMethods(t *testing.T) {
	runExecTests(t, []execTest{
		exprtest("toFixed", "${(1234.5678).toFixed(2)}", "1234.57"),
		exprtest("toFixed pad", "${(1).toFixed(2)}", "1.00"),
		exprtest("toFixed zero digits", "${(1.5).toFixed()}", "2"),
		exprtest("toFixed tie", "${(2.5).toFixed(0)}", "3"),
		exprtest("toFixed negative tie", "${(-2.5).toFixed(0)}", "-3"),
		exprtest("toFixed binary below", "${(1.005).toFixed(2)}", "1.00"),
		exprtest("toFixed binary below 2", "${(1.45).toFixed(1)}", "1.4"),
		exprtest("toFixed small", "${(0.000001).toFixed(3)}", "0.000"),
		exprtest("toFixed large", "${(1e21).toFixed(2)}", "1e+21"),
		exprtest("toString radix", "${(255).toString(16)}", "ff"),
		exprtest("toString", "${(1.5).toString()}", "1.5"),
		exprtest("toLocaleString", "${(1234567.891).toLocaleString()}", "1,234,567.891"),
		exprtest("toLocaleString rounds", "${(1.23456).toLocaleString('en-US')}", "1.235"),
		exprtest("toLocaleString de", "${(1234.5).toLocaleString('de-DE')}", "1.234,5"),
		exprtest("bool toString", "${true.toString()}", "true"),

		exprtest("toFixed range", "${(1).toFixed(101)}", "").fails(),
		exprtest("toString radix range", "${(1).toString(1)}", "").fails(),
	})
}

func TestArrayMethods(t *testing.T) {
	runExecTests(t, []execTest{
		exprtest("join default", "${[1, 2].join()}", "1,2"),
		exprtest("join nulls", "${[1, null, 2].join('-')}", "1--2"),
		exprtest("includes", "${['b', 'a'].includes('a')}", "true"),
		exprtest("includes nan", "${[0/0].includes(0/0)}", "true"),
		exprtest("indexOf", "${['a', 'b'].indexOf('b')}", "1"),
		exprtest("indexOf nan", "${[0/0].indexOf(0/0)}", "-1"),
		exprtest("slice", "${[1, 2, 3, 4].slice(1, -1)}", "2,3"),
		exprtest("concat", "${[1].concat([2, 3], 4)}", "1,2,3,4"),
		exprtest("flat", "${[[1, 2], [3, [4]]].flat().length}", "4"),
		exprtest("flat depth", "${[[1, [2, [3]]]].flat(2).length}", "3"),
		exprtestwdata("reverse copies", "${items.reverse()} ${items}", "3,2,1 1,2,3",
			d{"items": []int{1, 2, 3}}),
		exprtest("index", "${['a', 'b'][1]}", "b"),
	})
}

func TestGlobals(t *testing.T) {
	var user = d{"name": "Ann", "age": 3}
	runExecTests(t, []execTest{
		exprtest("Math.round", "${Math.round(2.5)}", "3"),
		exprtest("Math.round negative", "${Math.round(-2.5)}", "-2"),
		exprtest("Math.floor", "${Math.floor(-1.5)}", "-2"),
		exprtest("Math.ceil", "${Math.ceil(1.2)}", "2"),
		exprtest("Math.abs", "${Math.abs(-3)}", "3"),
		exprtest("Math.max", "${Math.max(1, 5, 3)}", "5"),
		exprtest("Math.max empty", "${Math.max()}", "-Infinity"),
		exprtest("Math.min", "${Math.min(4, '2')}", "2"),
		exprtest("Math.min nan", "${Math.min(1, 'x')}", "NaN"),
		exprtest("Math.pow", "${Math.pow(2, 10)}", "1024"),
		exprtest("Math.sqrt", "${Math.sqrt(9)}", "3"),
		exprtest("Math.trunc", "${Math.trunc(-4.7)}", "-4"),
		exprtest("Math.sign", "${Math.sign(-4)}", "-1"),
		exprtest("Math.PI", "${Math.PI.toFixed(4)}", "3.1416"),
		exprtestwdata("JSON.stringify", "${JSON.stringify(user)}", `{"age":3,"name":"Ann"}`,
			d{"user": user}),
		exprtest("JSON.stringify list", "${JSON.stringify([1, 'a<b', null, undefined, 0/0])}",
			`[1,"a<b",null,null,null]`),
		exprtest("JSON.stringify string", `${JSON.stringify('say "hi"')}`, `"say \"hi\""`),
		exprtest("JSON.stringify undefined", "${JSON.stringify(undefined)}", "undefined"),
		exprtest("JSON.stringify float", "${JSON.stringify([1.5, 1e21])}", "[1.5,1e+21]"),
		exprtestwdata("JSON.stringify indent", "${JSON.stringify(user, null, 2)}",
			"{\n  \"age\": 3,\n  \"name\": \"Ann\"\n}", d{"user": user}),
		exprtestwdata("Object.keys", "${Object.keys(user).join()}", "age,name", d{"user": user}),
		exprtestwdata("Object.values", "${Object.values(user).join()}", "3,Ann", d{"user": user}),
		exprtestwdata("Object.entries", "${Object.entries(user).map(e => e[0] + '=' + e[1]).join('&')}",
			"age=3&name=Ann", d{"user": user}),
		exprtest("Array.isArray", "${Array.isArray([])} ${Array.isArray('')}", "true false"),
		exprtest("String", "${String(12) + 1}", "121"),
		exprtest("Number", "${Number('3') + 1}", "4"),
		exprtest("Number invalid", "${Number('x')}", "NaN"),
		exprtest("Boolean", "${Boolean('')}", "false"),
		exprtest("Infinity", "${-Infinity}", "-Infinity"),
		exprtestwdata("prop shadows global", "${Math}", "m", d{"Math": "m"}),

		exprtest("Object.keys of null", "${Object.keys(null)}", "").fails(),
	})
}

func TestStructData(t *testing.T) {
	type address struct {
		City string
	}
	type user struct {
		Name    string
		Address *address
	}
	var parsed = &ast.ParsedTemplate{
		Name:     "test",
		Body:     "${name} of ${address?.city ?? 'nowhere'}",
		PropKeys: []string{"name", "address"},
	}
	var tmpl, err = Compile(parsed)
	if err != nil {
		t.Fatal(err)
	}
	for _, test := range []struct {
		props    interface{}
		expected string
	}{
		{user{"Ann", &address{"Oslo"}}, "Ann of Oslo"},
		{&user{"Bob", nil}, "Bob of nowhere"},
	} {
		var result, err = tmpl.Render(test.props)
		if err != nil {
			t.Error(err)
			continue
		}
		if result != test.expected {
			t.Errorf("expected %q, got %q", test.expected, result)
		}
	}
}

func runExecTests(t *testing.T, tests []execTest) {
	var b = new(bytes.Buffer)
	for _, test := range tests {
		var keys []string
		for k := range test.data {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var parsed = &ast.ParsedTemplate{Name: "test", Body: test.body, PropKeys: keys}
		var tmpl, err = Compile(parsed)
		if err != nil {
			t.Errorf("%s: compile error: %s", test.name, err)
			continue
		}

		b.Reset()
		err = tmpl.Execute(b, map[string]interface{}(test.data))
		switch {
		case !test.ok && err == nil:
			t.Errorf("%s: expected error; got none", test.name)
			continue
		case test.ok && err != nil:
			t.Errorf("%s: unexpected execute error: %s", test.name, err)
			continue
		case !test.ok && err != nil:
			// expected error, got one
		}
		var result = b.String()
		if result != test.output {
			t.Errorf("%s: expected\n\t%q\ngot\n\t%q", test.name, test.output, result)
		}
	}
}
