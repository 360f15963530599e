package ast

// ParsedTemplate is the structured form of a template source file: the
// declarations found in its frontmatter, and the body that follows it.
//
// A ParsedTemplate is produced once by the parser and is not modified
// afterwards; backends consume it concurrently.
type ParsedTemplate struct {
	Name      string   // name of the input, used only in error messages
	Imports   []string // "import type ..." lines from the frontmatter, in order
	Preamble  []string // helper interface and type alias declarations, in order
	PropsBody string   // text between the braces of "interface Props", trimmed
	Body      string   // text after the closing delimiter, trimmed
	PropKeys  []string // property names declared at depth 0 of PropsBody
}
