package query

import (
	"fmt"
	"strings"
)

type parser struct {
	toks  []token
	pos   int
	nodes int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, &EvaluationError{Pos: t.pos, Msg: fmt.Sprintf("expected %s, found %s %q", kind, t.kind, t.text)}
	}
	return t, nil
}

func (p *parser) newNode(pos int, n *node) (*node, error) {
	p.nodes++
	if p.nodes > MaxNodes {
		return nil, &EvaluationError{Pos: pos, Msg: fmt.Sprintf("expression has more than %d terms", MaxNodes)}
	}
	return n, nil
}

func (p *parser) parseExpr(depth int) (*node, error) {
	if depth > MaxDepth {
		return nil, &EvaluationError{Pos: p.peek().pos, Msg: fmt.Sprintf("expression nested deeper than %d", MaxDepth)}
	}
	return p.parseBinary(depth, tokOr, OpOr)
}

// parseBinary parses a left-associative chain of || (or && one level down).
func (p *parser) parseBinary(depth int, kind tokenKind, op Op) (*node, error) {
	operand := func() (*node, error) {
		if kind == tokOr {
			return p.parseBinary(depth, tokAnd, OpAnd)
		}
		return p.parseUnary(depth)
	}

	left, err := operand()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == kind {
		opTok := p.next()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		if left.isLiteral || right.isLiteral {
			return nil, &EvaluationError{Pos: opTok.pos, Msg: fmt.Sprintf("%s needs boolean operands, wrap genome ids in AND or OR", opTok.text)}
		}
		left, err = p.newNode(opTok.pos, &node{op: op, args: []*node{left, right}})
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *parser) parseUnary(depth int) (*node, error) {
	if p.peek().kind != tokNot {
		return p.parsePrimary(depth)
	}
	notTok := p.next()
	operand, err := p.parseUnary(depth + 1)
	if err != nil {
		return nil, err
	}
	if operand.isLiteral {
		return nil, &EvaluationError{Pos: notTok.pos, Msg: "! needs a boolean operand"}
	}
	return p.newNode(notTok.pos, &node{op: OpNot, args: []*node{operand}})
}

func (p *parser) parsePrimary(depth int) (*node, error) {
	t := p.next()
	switch t.kind {
	case tokString, tokNumber:
		return p.newNode(t.pos, &node{literal: t.text, isLiteral: true})
	case tokLParen:
		inner, err := p.parseExpr(depth + 1)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case tokName:
		return p.parseCall(t, depth)
	}
	return nil, &EvaluationError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %s %q", t.kind, t.text)}
}

func (p *parser) parseCall(name token, depth int) (*node, error) {
	op, ok := combinators[strings.ToUpper(name.text)]
	if !ok {
		return nil, &EvaluationError{Pos: name.pos, Msg: fmt.Sprintf("unknown identifier %q", name.text)}
	}
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}

	var args []*node
	for {
		arg, err := p.parseExpr(depth + 1)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.peek().kind != tokComma {
			break
		}
		p.next()
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}

	if (op == OpSub || op == OpAdd) && len(args) != 2 {
		return nil, &EvaluationError{Pos: name.pos, Msg: fmt.Sprintf("%s takes exactly 2 arguments, got %d", strings.ToUpper(name.text), len(args))}
	}
	return p.newNode(name.pos, &node{op: op, args: args})
}
