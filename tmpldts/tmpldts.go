// Package tmpldts generates TypeScript declaration documents for templates.
//
// The document declares the template's default export as a Template<P>,
// where P is the object type written in the template's Props declaration:
//
//	import type { User } from "./user";
//
//	interface Address { city: string }
//
//	declare const template: Template<{
//	  user: User;
//	  address: Address;
//	}>;
//	export default template;
//
// Template<P> is an ambient type provided by the consuming project.
package tmpldts

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/robfig/tstmpl/ast"
	"github.com/robfig/tstmpl/parse"
)

// GenerateDTS returns the declaration document for the parsed template.
func GenerateDTS(parsed *ast.ParsedTemplate) string {
	var b strings.Builder
	for _, line := range parsed.Imports {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(parsed.Imports) > 0 {
		b.WriteString("\n")
	}
	for _, decl := range parsed.Preamble {
		b.WriteString(decl)
		b.WriteString("\n")
	}
	if len(parsed.Preamble) > 0 {
		b.WriteString("\n")
	}
	// The body is trimmed, so only its first line lost its indent.
	b.WriteString("declare const template: Template<{\n  ")
	b.WriteString(parsed.PropsBody)
	b.WriteString("\n}>;\n")
	b.WriteString("export default template;\n")
	return b.String()
}

// Write writes the declaration document for the parsed template to out.
func Write(out io.Writer, parsed *ast.ParsedTemplate) error {
	_, err := io.WriteString(out, GenerateDTS(parsed))
	return err
}

// GenerateDTSForFile reads and parses the template file at path and returns
// its declaration document.  Parse errors are returned unchanged.
func GenerateDTSForFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	parsed, err := parse.File(path, string(src))
	if err != nil {
		return "", err
	}
	return GenerateDTS(parsed), nil
}
