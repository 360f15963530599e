package ottoeval

import (
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/robfig/tstmpl/ast"
	"github.com/robfig/tstmpl/compiler"
	"github.com/robfig/tstmpl/errortypes"
)

type d map[string]interface{}

type evalTest struct {
	name string
	body string
	data d
}

// Bodies in the common subset of ES5 and the builtin interpreter render the
// same with either engine.
var crossTests = []evalTest{
	{"greeting", "${greeting}, ${name}!", d{"greeting": "Hey", "name": "World"}},
	{"missing key", "${greeting}", d{"greeting": nil, "name": "x"}},
	{"arithmetic", "${2*(1+1)/(2%4)} ${7 / 2} ${1 / 0} ${-7 % 3}", nil},
	{"float", "${0.1 + 0.2}", nil},
	{"concat", "${'a' + 1} ${1 + '2'} ${'3' * '4'} ${[1, 2] + ''}", nil},
	{"equality", "${null == undefined} ${null === undefined} ${'1' == 1} ${'1' === 1}", nil},
	{"compare", "${'b' > 'a'} ${'2' < '10'} ${2 < 10} ${'2' < 10}", nil},
	{"logical", "${0 && 'x'} ${'' || 'fallback'} ${!0}", nil},
	{"ternary", "${n > 1 ? n + ' items' : 'one item'}", d{"n": 3}},
	{"typeof", "${typeof 1} ${typeof ''} ${typeof nope} ${typeof null} ${typeof Math.max}", nil},
	{"members", "${user.name} ${user.tags[1]} ${user.tags.length} ${user.age}",
		d{"user": d{"name": "Ann", "tags": []string{"a", "b"}}}},
	{"strings", "${s.toUpperCase()} ${s.slice(1, 3)} ${s.indexOf('l')} ${s.charAt(0)} ${s.length}",
		d{"s": "hello"}},
	{"split join", "${'a-b-c'.split('-').join('+')} ${'a-b-c'.replace('-', '+')}", nil},
	{"trim", "[${'  x  '.trim()}]", nil},
	{"toFixed", "${(1234.5678).toFixed(2)} ${(1).toFixed(2)}", nil},
	{"toString radix", "${(255).toString(16)}", nil},
	{"math", "${Math.max(1, 5, 3)} ${Math.round(2.5)} ${Math.floor(-1.5)} ${Math.abs(-3)}", nil},
	{"json", "${JSON.stringify(user)} ${JSON.stringify([1, 'a', null])}",
		d{"user": d{"name": "Ann", "age": 3}}},
	{"lists", "${items} ${items.slice(1)} ${items.indexOf(2)} ${items.concat([4])}",
		d{"items": []int{1, 2, 3}}},
	{"constructors", "${String(12) + 1} ${Number('3') + 1} ${Boolean('')}", nil},
	{"globals", "${Array.isArray(items)} ${Object.keys(user).join()}",
		d{"items": []int{}, "user": d{"b": 1, "a": 2}}},
}

func TestMatchesBuiltin(t *testing.T) {
	for _, test := range crossTests {
		var builtin, errBuiltin = render(compiler.Builtin{}, test)
		var otto, errOtto = render(Engine{}, test)
		if errBuiltin != nil || errOtto != nil {
			t.Errorf("%s: builtin error: %v, otto error: %v", test.name, errBuiltin, errOtto)
			continue
		}
		if builtin != otto {
			t.Errorf("%s: builtin rendered\n\t%q\notto rendered\n\t%q", test.name, builtin, otto)
		}
	}
}

func TestBothFail(t *testing.T) {
	for _, test := range []evalTest{
		{"reference error", "${nope}", nil},
		{"member of undefined", "${user.address.city}", d{"user": d{}}},
		{"member of null", "${user.name}", d{"user": nil}},
		{"not a function", "${user.name()}", d{"user": d{"name": "Ann"}}},
	} {
		if _, err := render(compiler.Builtin{}, test); err == nil {
			t.Errorf("%s: builtin: expected error", test.name)
		}
		if _, err := render(Engine{}, test); err == nil {
			t.Errorf("%s: otto: expected error", test.name)
		}
	}
}

func TestES5Only(t *testing.T) {
	var test = evalTest{"function", "${items.map(function (x) { return x * 2; }).join(', ')}",
		d{"items": []int{1, 2, 3}}}
	result, err := render(Engine{}, test)
	if err != nil {
		t.Fatal(err)
	}
	if result != "2, 4, 6" {
		t.Errorf("expected %q, got %q", "2, 4, 6", result)
	}

	// Object literals need the parentheses the engine adds.
	result, err = render(Engine{}, evalTest{"object", "${JSON.stringify({a: 1})}", nil})
	if err != nil {
		t.Fatal(err)
	}
	if result != `{"a":1}` {
		t.Errorf("expected %q, got %q", `{"a":1}`, result)
	}
}

func TestCompileError(t *testing.T) {
	var _, err = compiler.Compile(&ast.ParsedTemplate{
		Name: "test",
		Body: "Hi\n${items.map(x => x)}",
	}, compiler.WithEngine(Engine{}))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), "template test:2:3: ") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRuntimeErrorPosition(t *testing.T) {
	var _, err = render(Engine{}, evalTest{"ref", "ok ${1}\n  ${nope}", nil})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), "template test:2:5: ReferenceError") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTimeout(t *testing.T) {
	var test = evalTest{"loop", "${(function () { while (true) {} })()}", nil}
	var _, err = render(Engine{Timeout: 20 * time.Millisecond}, test)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected timeout, got %v", err)
	}
	if expected := "template test:1:3: evaluation timed out"; err == nil || err.Error() != expected {
		t.Errorf("expected %q, got %v", expected, err)
	}
	if pos := errortypes.ToErrFilePos(err); pos == nil || pos.Line() != 1 || pos.Col() != 3 {
		t.Errorf("expected a position, got %v", err)
	}
}

func render(engine compiler.Engine, test evalTest) (string, error) {
	var keys []string
	for k := range test.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var tmpl, err = compiler.Compile(&ast.ParsedTemplate{
		Name:     "test",
		Body:     test.body,
		PropKeys: keys,
	}, compiler.WithEngine(engine))
	if err != nil {
		return "", err
	}
	return tmpl.Render(map[string]interface{}(test.data))
}
