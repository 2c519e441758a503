// Package query compiles and evaluates genome membership expressions such as
//
//	AND("58282.5", "1234.7") && !OR("99.1", "99.2")
//
// The vocabulary is fixed: the combinators AND, OR, SUB and ADD, the
// operators &&, || and !, parentheses, and genome id literals. Expressions can
// only observe the genome set of the record being evaluated.
package query

import (
	"fmt"
	"strings"

	"github.com/figmap/server/internal/dataset"
)

// Limits bounding the cost of a user-supplied expression.
const (
	MaxLength = 4096
	MaxNodes  = 256
	MaxDepth  = 32
)

// EvaluationError reports an expression that cannot be compiled.
type EvaluationError struct {
	Pos int
	Msg string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("query error at offset %d: %s", e.Pos, e.Msg)
}

// Op identifies a combinator.
type Op int

const (
	OpAnd Op = iota
	OpOr
	OpSub
	OpAdd
	OpNot
)

var combinators = map[string]Op{
	"AND": OpAnd,
	"OR":  OpOr,
	"SUB": OpSub,
	"ADD": OpAdd,
}

// node is an expression tree node. A node with a literal is a genome
// membership predicate; otherwise op is applied to args.
type node struct {
	literal   string
	isLiteral bool
	op        Op
	args      []*node
}

// Result is the outcome of evaluating an expression against one record.
// A non-boolean result (a bare literal) carries IsBool=false.
type Result struct {
	Value  bool
	IsBool bool
}

// Compiled is a parsed expression. It is immutable and safe to share.
type Compiled struct {
	text string
	root *node
}

// Text returns the source expression.
func (c *Compiled) Text() string { return c.text }

// Compile parses text into an expression tree.
func Compile(text string) (*Compiled, error) {
	if len(text) > MaxLength {
		return nil, &EvaluationError{Pos: MaxLength, Msg: fmt.Sprintf("expression longer than %d bytes", MaxLength)}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &EvaluationError{Pos: 0, Msg: "empty expression"}
	}
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &EvaluationError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %s %q", t.kind, t.text)}
	}
	return &Compiled{text: text, root: root}, nil
}

// Evaluate runs the expression against one record.
func Evaluate(c *Compiled, r *dataset.ProteinRecord) Result {
	if c.root.isLiteral {
		return Result{}
	}
	return Result{Value: eval(c.root, r), IsBool: true}
}

// Filter keeps the records for which the expression holds. Records for
// which it yields a non-boolean value pass.
func Filter(c *Compiled, records []dataset.ProteinRecord) []dataset.ProteinRecord {
	if c == nil {
		return records
	}
	out := make([]dataset.ProteinRecord, 0, len(records))
	for i := range records {
		res := Evaluate(c, &records[i])
		if !res.IsBool || res.Value {
			out = append(out, records[i])
		}
	}
	return out
}

func eval(n *node, r *dataset.ProteinRecord) bool {
	if n.isLiteral {
		return r.HasGenome(n.literal)
	}
	switch n.op {
	case OpAnd, OpAdd:
		for _, a := range n.args {
			if !eval(a, r) {
				return false
			}
		}
		return true
	case OpOr:
		for _, a := range n.args {
			if eval(a, r) {
				return true
			}
		}
		return false
	case OpSub:
		return eval(n.args[0], r) && !eval(n.args[1], r)
	case OpNot:
		return !eval(n.args[0], r)
	}
	return false
}
