package parse

import "testing"

func TestUnquote(t *testing.T) {
	var tests = []struct{ input, output string }{
		{`''`, ""},
		{`""`, ""},
		{`'a'`, "a"},
		{`"a'b"`, "a'b"},
		{`'\n'`, "\n"},
		{`'it\'s'`, "it's"},
		{`'∢'`, "∢"},
		{`'\u{1F600}'`, "\U0001F600"},
		{`'\x41'`, "A"},
		{`'\q'`, "q"},
		{`'a\
b'`, "ab"},
		{`'\\n'`, `\n`},
	}
	for _, test := range tests {
		actual, err := unquoteString(test.input)
		if err != nil {
			t.Error(err)
			continue
		}
		if actual != test.output {
			t.Errorf("%v => %q, expected %q", test.input, actual, test.output)
		}
	}
}

func TestUnquoteErrors(t *testing.T) {
	var tests = []string{
		`'`,
		`'abc"`,
		"`abc`",
		`'\u12'`,
		`'\xZZ'`,
		`'\u{110000000}'`,
	}
	for _, test := range tests {
		if actual, err := unquoteString(test); err == nil {
			t.Errorf("%v => %q, expected an error", test, actual)
		}
	}
}
