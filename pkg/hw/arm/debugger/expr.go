package debugger

import (
	"errors"
	"fmt"
)

// Expression evaluation errors
var (
	// ErrMalformed marks argument text the lexer or parser rejected
	ErrMalformed = errors.New("malformed expression")
	// ErrDivideByZero marks a division with a zero divisor
	ErrDivideByZero = errors.New("division by zero")
	// ErrUnresolvable marks an identifier, which no scope resolves
	ErrUnresolvable = errors.New("unresolvable identifier")
)

type tokenKind int

const (
	tokenInt tokenKind = iota
	tokenOperator
	tokenIdentifier
	tokenError
)

type token struct {
	kind  tokenKind
	value uint32
	op    byte
	text  string
}

// lex scans one argument expression. Scanning stops at the first byte that
// fits no token class, leaving an error token in its place.
func lex(text string) []token {
	var tokens []token

	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c >= '0' && c <= '9':
			tok, next := lexNumber(text, i)
			tokens = append(tokens, tok)
			if tok.kind == tokenError {
				return tokens
			}
			i = next
		case isLetter(c):
			start := i
			for i < len(text) && isLetter(text[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokenIdentifier, text: text[start:i]})
		case c == '+' || c == '-' || c == '*' || c == '/' || c == '=':
			tokens = append(tokens, token{kind: tokenOperator, op: c})
			i++
		default:
			tokens = append(tokens, token{kind: tokenError, text: text[i:]})
			return tokens
		}
	}
	return tokens
}

// lexNumber scans a decimal or 0x-prefixed hex literal, wrapping at 32 bits
func lexNumber(text string, start int) (token, int) {
	i := start
	if text[i] == '0' && i+1 < len(text) && (text[i+1] == 'x' || text[i+1] == 'X') {
		i += 2
		digits := 0
		var value uint32
		for i < len(text) {
			d, ok := hexDigit(text[i])
			if !ok {
				break
			}
			value = value*16 + d
			digits++
			i++
		}
		// a bare 0x prefix, or one running into letters, is not a literal
		if digits == 0 || (i < len(text) && isLetter(text[i])) {
			return token{kind: tokenError, text: text[start:]}, i
		}
		return token{kind: tokenInt, value: value}, i
	}

	var value uint32
	for i < len(text) && text[i] >= '0' && text[i] <= '9' {
		value = value*10 + uint32(text[i]-'0')
		i++
	}
	if i < len(text) && isLetter(text[i]) {
		return token{kind: tokenError, text: text[start:]}, i
	}
	return token{kind: tokenInt, value: value}, i
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func hexDigit(c byte) (uint32, bool) {
	switch {
	case c >= '0' && c <= '9':
		return uint32(c - '0'), true
	case c >= 'a' && c <= 'f':
		return uint32(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return uint32(c-'A') + 10, true
	default:
		return 0, false
	}
}

// NodeKind tags one expression tree node
type NodeKind int

const (
	// NodeInt is an integer literal leaf
	NodeInt NodeKind = iota
	// NodeIdentifier is a bare-name leaf; no scope resolves these, so
	// evaluating one always fails
	NodeIdentifier
	// NodeOperator combines exactly two child trees
	NodeOperator
	// NodeInvalid is the contagious result of a malformed parse
	NodeInvalid
)

// Node is one vertex of a parsed argument expression
type Node struct {
	Kind  NodeKind
	Value uint32
	Name  string
	Op    byte
	Left  *Node
	Right *Node
}

var invalidNode = &Node{Kind: NodeInvalid}

// ParseText lexes and parses one argument expression. Operators fold left
// to right in a single precedence class, so a op b op c parses as
// (a op b) op c. Malformed input collapses to a single invalid node.
func ParseText(text string) *Node {
	tokens := lex(text)
	if len(tokens) == 0 {
		return invalidNode
	}

	node := operandNode(tokens[0])
	if node.Kind == NodeInvalid {
		return invalidNode
	}

	i := 1
	for i < len(tokens) {
		if tokens[i].kind != tokenOperator || i+1 >= len(tokens) {
			return invalidNode
		}
		right := operandNode(tokens[i+1])
		if right.Kind == NodeInvalid {
			return invalidNode
		}
		node = &Node{Kind: NodeOperator, Op: tokens[i].op, Left: node, Right: right}
		i += 2
	}
	return node
}

func operandNode(t token) *Node {
	switch t.kind {
	case tokenInt:
		return &Node{Kind: NodeInt, Value: t.value}
	case tokenIdentifier:
		return &Node{Kind: NodeIdentifier, Name: t.text}
	default:
		return invalidNode
	}
}

// EvalNode walks a parsed tree. Arithmetic wraps at 32 bits; the first
// error stops the walk.
func EvalNode(n *Node) (uint32, error) {
	switch n.Kind {
	case NodeInt:
		return n.Value, nil
	case NodeIdentifier:
		return 0, fmt.Errorf("%w: %q", ErrUnresolvable, n.Name)
	case NodeOperator:
		left, err := EvalNode(n.Left)
		if err != nil {
			return 0, err
		}
		right, err := EvalNode(n.Right)
		if err != nil {
			return 0, err
		}
		return applyOperator(n.Op, left, right)
	default:
		return 0, ErrMalformed
	}
}

func applyOperator(op byte, left, right uint32) (uint32, error) {
	switch op {
	case '=':
		return right, nil
	case '+':
		return left + right, nil
	case '-':
		return left - right, nil
	case '*':
		return left * right, nil
	default:
		if right == 0 {
			return 0, ErrDivideByZero
		}
		return left / right, nil
	}
}

// Evaluate lexes, parses and evaluates one argument expression
func Evaluate(text string) (uint32, error) {
	return EvalNode(ParseText(text))
}
