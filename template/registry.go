// Package template holds collections of compiled templates.
package template

import (
	"fmt"
	"io"
	"sort"

	"github.com/robfig/tstmpl/ast"
	"github.com/robfig/tstmpl/compiler"
)

// Registry provides access to a collection of templates by name.
type Registry struct {
	Templates []Template
	byName    map[string]int
}

// Add adds the given template to the registry.  Names must be unique.
func (r *Registry) Add(file string, parsed *ast.ParsedTemplate, compiled *compiler.Template) error {
	if r.byName == nil {
		r.byName = make(map[string]int)
	}
	if prev, ok := r.byName[parsed.Name]; ok {
		return fmt.Errorf("template %q in %s already defined in %s",
			parsed.Name, file, r.Templates[prev].File)
	}
	r.byName[parsed.Name] = len(r.Templates)
	r.Templates = append(r.Templates, Template{
		Name:           parsed.Name,
		File:           file,
		ParsedTemplate: parsed,
		Template:       compiled,
	})
	return nil
}

// Template returns the template with the given name.
func (r *Registry) Template(name string) (Template, bool) {
	if i, ok := r.byName[name]; ok {
		return r.Templates[i], true
	}
	return Template{}, false
}

// Names returns the names of all templates, sorted.
func (r *Registry) Names() []string {
	var names = make([]string, 0, len(r.Templates))
	for _, t := range r.Templates {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// Render renders the named template to wr.
func (r *Registry) Render(wr io.Writer, name string, props interface{}) error {
	var t, ok = r.Template(name)
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.Execute(wr, props)
}
