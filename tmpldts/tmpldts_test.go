package tmpldts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/andreyvit/diff"
	"github.com/robfig/tstmpl/ast"
	"github.com/robfig/tstmpl/errortypes"
	"github.com/robfig/tstmpl/parse"
)

type dtsTest struct {
	name     string
	input    string
	expected string
}

var dtsTests = []dtsTest{
	{"props only", `---
interface Props {
  greeting: string;
  name: string;
}
---
${greeting}, ${name}!`, `declare const template: Template<{
  greeting: string;
  name: string;
}>;
export default template;
`},

	{"imports and preamble", `---
import type { User } from "./user";
import type { Order } from "./order";

interface Address {
  city: string;
}
type Id = string | number;

interface Props {
  user: User;
  address: Address;
  id: Id;
}
---
${user.name}`, `import type { User } from "./user";
import type { Order } from "./order";

interface Address {
  city: string;
}
type Id = string | number;

declare const template: Template<{
  user: User;
  address: Address;
  id: Id;
}>;
export default template;
`},

	{"nested indentation", `---
interface Props {
    user: {
        name: string;
    };
    count: number;
}
---
x`, `declare const template: Template<{
  user: {
        name: string;
    };
    count: number;
}>;
export default template;
`},

	{"single line", "---\ninterface Props { name: string }\n---\n${name}", `declare const template: Template<{
  name: string
}>;
export default template;
`},

	{"empty props", "---\ninterface Props {}\n---\nstatic", `declare const template: Template<{
  
}>;
export default template;
`},
}

func TestGenerateDTS(t *testing.T) {
	for _, test := range dtsTests {
		parsed, err := parse.File(test.name, test.input)
		if err != nil {
			t.Errorf("%s: %v", test.name, err)
			continue
		}
		var actual = GenerateDTS(parsed)
		if actual != test.expected {
			t.Errorf("%s: did not get expected declarations:\n%v", test.name, diff.LineDiff(test.expected, actual))
		}
	}
}

func TestGenerateDTSHandBuilt(t *testing.T) {
	var actual = GenerateDTS(&ast.ParsedTemplate{
		Imports:   []string{`import type { A } from "a";`},
		PropsBody: "a: A;",
	})
	var expected = "import type { A } from \"a\";\n\ndeclare const template: Template<{\n  a: A;\n}>;\nexport default template;\n"
	if actual != expected {
		t.Errorf("did not get expected declarations:\n%v", diff.LineDiff(expected, actual))
	}
}

func TestGenerateDTSForFile(t *testing.T) {
	var dir = t.TempDir()
	var path = filepath.Join(dir, "greeting.tmpl")
	if err := os.WriteFile(path, []byte(dtsTests[0].input), 0644); err != nil {
		t.Fatal(err)
	}
	actual, err := GenerateDTSForFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if actual != dtsTests[0].expected {
		t.Errorf("did not get expected declarations:\n%v", diff.LineDiff(dtsTests[0].expected, actual))
	}
}

func TestGenerateDTSForFileErrors(t *testing.T) {
	var dir = t.TempDir()

	_, err := GenerateDTSForFile(context.Background(), filepath.Join(dir, "missing.tmpl"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}

	var path = filepath.Join(dir, "bad.tmpl")
	if err = os.WriteFile(path, []byte("---\ntype X = string;\n---\nbody"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = GenerateDTSForFile(context.Background(), path)
	if !errors.Is(err, parse.ErrMissingProps) {
		t.Errorf("expected missing Props error, got %v", err)
	}
	if pos := errortypes.ToErrFilePos(err); pos == nil || pos.File() != path {
		t.Errorf("expected error positioned in %s, got %v", path, err)
	}

	var ctx, cancel = context.WithCancel(context.Background())
	cancel()
	if _, err = GenerateDTSForFile(ctx, path); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
