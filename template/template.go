package template

import (
	"github.com/robfig/tstmpl/ast"
	"github.com/robfig/tstmpl/compiler"
)

// Template is a compiled template together with the parse result it was
// compiled from.
type Template struct {
	Name               string // the registry name, e.g. "emails/welcome"
	File               string // the source file, if any
	*ast.ParsedTemplate       // the parsed source
	*compiler.Template        // the compiled template
}

// PropNames returns the names of the template's top-level properties.
func (t Template) PropNames() []string {
	return t.ParsedTemplate.PropKeys
}
