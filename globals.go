package tstmpl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/robfig/tstmpl/compiler"
	"github.com/robfig/tstmpl/data"
	"github.com/robfig/tstmpl/parse"
)

// ParseGlobals parses the given input, expecting the form:
//
//	<global_name> = <expression>
//
// Furthermore:
//   - Empty lines and lines beginning with '//' are ignored.
//   - <expression> may use literals and the builtin globals (Math, JSON, ...)
//     but no template properties, e.g. `SITE = "Docs"` or `ITEMS = [1, 2]`.
func ParseGlobals(input io.Reader) (data.Map, error) {
	var globals = make(data.Map)
	var scanner = bufio.NewScanner(input)
	var lineNum = 0
	for scanner.Scan() {
		lineNum++
		var line = strings.TrimSpace(scanner.Text())
		if len(line) == 0 || strings.HasPrefix(line, "//") {
			continue
		}
		var eq = strings.Index(line, "=")
		if eq == -1 {
			return nil, fmt.Errorf("line %d: no equals on line: %q", lineNum, line)
		}
		var (
			name = strings.TrimSpace(line[:eq])
			expr = strings.TrimSpace(line[eq+1:])
		)
		if _, ok := globals[name]; ok {
			return nil, fmt.Errorf("line %d: global %s is already defined", lineNum, name)
		}
		var node, err = parse.Expr(expr)
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", lineNum, err)
		}
		exprValue, err := compiler.EvalExpr(node)
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", lineNum, err)
		}
		globals[name] = exprValue
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return globals, nil
}
