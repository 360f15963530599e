// Package ast contains definitions for the in-memory representation of a
// template: the parsed frontmatter record, and the nodes of the template body
// and its interpolation expressions.
package ast

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Node represents any singular piece of a template body.  For example, a
// sequence of raw text or an interpolation span.
type Node interface {
	String() string // String returns the source representation of this node.
	Position() Pos  // byte position of start of node in full original input string
}

// ParentNode is any Node that has descendent nodes.  For example, the Children
// of a AddNode are the two nodes that should be added.
type ParentNode interface {
	Node
	Children() []Node
}

// Pos represents a byte position in the original input text from which this
// template was parsed.  It is useful to construct helpful error messages.
type Pos int

// Position returns this position.  It is implemented as a method so that Nodes
// may embed a Pos and fulfill this part of the Node interface for free.
func (p Pos) Position() Pos {
	return p
}

// ListNode holds a sequence of nodes.
type ListNode struct {
	Pos
	Nodes []Node // The element nodes in lexical order.
}

func (l *ListNode) String() string {
	b := new(bytes.Buffer)
	for _, n := range l.Nodes {
		fmt.Fprint(b, n)
	}
	return b.String()
}

func (l *ListNode) Children() []Node {
	return l.Nodes
}

type RawTextNode struct {
	Pos
	Text []byte // The text; may span newlines.
}

func (t *RawTextNode) String() string {
	return string(t.Text)
}

// InterpNode is a ${...} span in a template body.  Source is the expression
// text between the markers; Pos is the position of the '$'.
type InterpNode struct {
	Pos
	Source string
}

func (n *InterpNode) String() string {
	return "${" + n.Source + "}"
}

// Values ----------

type NullNode struct {
	Pos
}

func (s *NullNode) String() string {
	return "null"
}

type UndefinedNode struct {
	Pos
}

func (s *UndefinedNode) String() string {
	return "undefined"
}

type BoolNode struct {
	Pos
	True bool
}

func (b *BoolNode) String() string {
	if b.True {
		return "true"
	}
	return "false"
}

type IntNode struct {
	Pos
	Value int64
}

func (n *IntNode) String() string {
	return strconv.FormatInt(n.Value, 10)
}

type FloatNode struct {
	Pos
	Value float64
}

func (n *FloatNode) String() string {
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

type StringNode struct {
	Pos
	Quoted string // e.g. 'hello\tworld'
	Value  string // e.g. hello	world
}

func (s *StringNode) String() string {
	return s.Quoted
}

// TemplateLiteralNode is a backtick string with interpolations.  Quasis holds
// the text pieces, which always number one more than the Exprs.
type TemplateLiteralNode struct {
	Pos
	Quasis []string
	Exprs  []Node
}

func (n *TemplateLiteralNode) String() string {
	var b bytes.Buffer
	b.WriteByte('`')
	for i, q := range n.Quasis {
		b.WriteString(q)
		if i < len(n.Exprs) {
			b.WriteString("${" + n.Exprs[i].String() + "}")
		}
	}
	b.WriteByte('`')
	return b.String()
}

func (n *TemplateLiteralNode) Children() []Node {
	return n.Exprs
}

type ListLiteralNode struct {
	Pos
	Items []Node
}

func (n *ListLiteralNode) String() string {
	var expr = "["
	for i, item := range n.Items {
		if i > 0 {
			expr += ", "
		}
		expr += item.String()
	}
	return expr + "]"
}

func (n *ListLiteralNode) Children() []Node {
	return n.Items
}

// References ----------

// IdentNode is a bare name, resolved against the template's bindings.
type IdentNode struct {
	Pos
	Name string
}

func (n *IdentNode) String() string {
	return n.Name
}

// MemberNode is a property access: Obj.Name or Obj?.Name.
type MemberNode struct {
	Pos
	Obj      Node
	Name     string
	Optional bool
}

func (n *MemberNode) String() string {
	if n.Optional {
		return n.Obj.String() + "?." + n.Name
	}
	return n.Obj.String() + "." + n.Name
}

func (n *MemberNode) Children() []Node {
	return []Node{n.Obj}
}

// IndexNode is a computed property access: Obj[Index] or Obj?.[Index].
type IndexNode struct {
	Pos
	Obj      Node
	Index    Node
	Optional bool
}

func (n *IndexNode) String() string {
	var expr = n.Obj.String()
	if n.Optional {
		expr += "?."
	}
	return expr + "[" + n.Index.String() + "]"
}

func (n *IndexNode) Children() []Node {
	return []Node{n.Obj, n.Index}
}

// CallNode is a function or method invocation.
type CallNode struct {
	Pos
	Fn       Node
	Args     []Node
	Optional bool
}

func (n *CallNode) String() string {
	var args = make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.String()
	}
	var call = "("
	if n.Optional {
		call = "?.("
	}
	return n.Fn.String() + call + strings.Join(args, ", ") + ")"
}

func (n *CallNode) Children() []Node {
	return append([]Node{n.Fn}, n.Args...)
}

// ArrowFuncNode is an arrow function with an expression body.
type ArrowFuncNode struct {
	Pos
	Params []string
	Body   Node
}

func (n *ArrowFuncNode) String() string {
	return "(" + strings.Join(n.Params, ", ") + ") => " + n.Body.String()
}

func (n *ArrowFuncNode) Children() []Node {
	return []Node{n.Body}
}

// Operators ----------

type NotNode struct {
	Pos
	Arg Node
}

func (n *NotNode) String() string {
	return "!" + n.Arg.String()
}

func (n *NotNode) Children() []Node {
	return []Node{n.Arg}
}

type NegateNode struct {
	Pos
	Arg Node
}

func (n *NegateNode) String() string {
	return "-" + n.Arg.String()
}

func (n *NegateNode) Children() []Node {
	return []Node{n.Arg}
}

// PlusNode is the unary + operator, which converts its operand to a number.
type PlusNode struct {
	Pos
	Arg Node
}

func (n *PlusNode) String() string {
	return "+" + n.Arg.String()
}

func (n *PlusNode) Children() []Node {
	return []Node{n.Arg}
}

type TypeofNode struct {
	Pos
	Arg Node
}

func (n *TypeofNode) String() string {
	return "typeof " + n.Arg.String()
}

func (n *TypeofNode) Children() []Node {
	return []Node{n.Arg}
}

// GroupNode is a parenthesized expression.  It is kept in the tree so that
// String reproduces the source.
type GroupNode struct {
	Pos
	Arg Node
}

func (n *GroupNode) String() string {
	return "(" + n.Arg.String() + ")"
}

func (n *GroupNode) Children() []Node {
	return []Node{n.Arg}
}

type BinaryOpNode struct {
	Name string
	Pos
	Arg1, Arg2 Node
}

func (n *BinaryOpNode) String() string {
	return n.Arg1.String() + " " + n.Name + " " + n.Arg2.String()
}

func (n *BinaryOpNode) Children() []Node {
	return []Node{n.Arg1, n.Arg2}
}

type (
	MulNode         struct{ BinaryOpNode }
	DivNode         struct{ BinaryOpNode }
	ModNode         struct{ BinaryOpNode }
	AddNode         struct{ BinaryOpNode }
	SubNode         struct{ BinaryOpNode }
	EqNode          struct{ BinaryOpNode }
	NotEqNode       struct{ BinaryOpNode }
	StrictEqNode    struct{ BinaryOpNode }
	StrictNotEqNode struct{ BinaryOpNode }
	GtNode          struct{ BinaryOpNode }
	GteNode         struct{ BinaryOpNode }
	LtNode          struct{ BinaryOpNode }
	LteNode         struct{ BinaryOpNode }
	OrNode          struct{ BinaryOpNode }
	AndNode         struct{ BinaryOpNode }
	NullishNode     struct{ BinaryOpNode }
)

type TernNode struct {
	Pos
	Arg1, Arg2, Arg3 Node
}

func (n *TernNode) String() string {
	return n.Arg1.String() + " ? " + n.Arg2.String() + " : " + n.Arg3.String()
}

func (n *TernNode) Children() []Node {
	return []Node{n.Arg1, n.Arg2, n.Arg3}
}
