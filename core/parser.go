package lispy

import (
	"fmt"
	"strings"
	"unicode"
)

// Tags follow the composite rule|rule|... naming of a combinator grammar, so
// consumers classify nodes with substring checks.
const (
	RootTag   = ">"
	numberTag = "expr|number|regex"
	symbolTag = "expr|symbol|regex"
	sexprTag  = "expr|sexpr|>"
	qexprTag  = "expr|qexpr|>"
	charTag   = "char"
	regexTag  = "regex"
)

// Node is one syntax tree node.
type Node struct {
	Tag      string
	Contents string
	Line     int
	Col      int
	Children []*Node
}

func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb, 0)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(n.Tag)
	if n.Contents != "" {
		fmt.Fprintf(sb, " '%s'", n.Contents)
	}
	sb.WriteByte('\n')
	for _, c := range n.Children {
		c.write(sb, depth+1)
	}
}

// SyntaxError reports malformed source text. Incomplete is set when input
// ended inside an open expression.
type SyntaxError struct {
	File       string
	Line       int
	Col        int
	Msg        string
	Incomplete bool
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Col, e.Msg)
}

type parser struct {
	file  string
	input []rune
	pos   int
	line  int
	col   int
}

// Parse parses input as a sequence of expressions under a root node.
func Parse(input string) (*Node, error) {
	return ParseNamed("<stdin>", input)
}

// ParseNamed is Parse with a file name used in error positions.
func ParseNamed(file, input string) (*Node, error) {
	p := &parser{file: file, input: []rune(input), line: 1, col: 1}
	root := &Node{Tag: RootTag, Line: 1, Col: 1}
	root.Children = append(root.Children, &Node{Tag: regexTag, Line: 1, Col: 1})
	for {
		p.skipWhitespace()
		if p.pos >= len(p.input) {
			break
		}
		node, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, node)
	}
	root.Children = append(root.Children, &Node{Tag: regexTag, Line: p.line, Col: p.col})
	return root, nil
}

func (p *parser) parseExpr() (*Node, error) {
	ch := p.input[p.pos]
	switch {
	case ch == '(':
		return p.parseList(sexprTag, '(', ')')
	case ch == '{':
		return p.parseList(qexprTag, '{', '}')
	case ch == ')' || ch == '}':
		return nil, p.errorf(false, "unexpected '%c'", ch)
	case p.atNumber():
		return p.parseNumber(), nil
	case isSymbolRune(ch):
		return p.parseSymbol(), nil
	default:
		return nil, p.errorf(false, "unexpected character '%c'", ch)
	}
}

func (p *parser) parseList(tag string, open, close rune) (*Node, error) {
	node := &Node{Tag: tag, Line: p.line, Col: p.col}
	node.Children = append(node.Children, &Node{Tag: charTag, Contents: string(open), Line: p.line, Col: p.col})
	p.advance()
	for {
		p.skipWhitespace()
		if p.pos >= len(p.input) {
			return nil, p.errorf(true, "expected '%c' to close '%c' at %d:%d", close, open, node.Line, node.Col)
		}
		ch := p.input[p.pos]
		if ch == close {
			node.Children = append(node.Children, &Node{Tag: charTag, Contents: string(close), Line: p.line, Col: p.col})
			p.advance()
			return node, nil
		}
		if ch == ')' || ch == '}' {
			return nil, p.errorf(false, "expected '%c', got '%c'", close, ch)
		}
		child, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
}

// atNumber reports whether a number literal starts here: -?[0-9]+
func (p *parser) atNumber() bool {
	ch := p.input[p.pos]
	if ch >= '0' && ch <= '9' {
		return true
	}
	return ch == '-' && p.pos+1 < len(p.input) && p.input[p.pos+1] >= '0' && p.input[p.pos+1] <= '9'
}

func (p *parser) parseNumber() *Node {
	node := &Node{Tag: numberTag, Line: p.line, Col: p.col}
	start := p.pos
	if p.input[p.pos] == '-' {
		p.advance()
	}
	for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.advance()
	}
	node.Contents = string(p.input[start:p.pos])
	return node
}

func (p *parser) parseSymbol() *Node {
	node := &Node{Tag: symbolTag, Line: p.line, Col: p.col}
	start := p.pos
	for p.pos < len(p.input) && isSymbolRune(p.input[p.pos]) {
		p.advance()
	}
	node.Contents = string(p.input[start:p.pos])
	return node
}

func (p *parser) advance() {
	if p.input[p.pos] == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
	p.pos++
}

func (p *parser) skipWhitespace() {
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch == ';' {
			for p.pos < len(p.input) && p.input[p.pos] != '\n' {
				p.advance()
			}
			continue
		}
		if !unicode.IsSpace(ch) {
			break
		}
		p.advance()
	}
}

func (p *parser) errorf(incomplete bool, format string, args ...any) error {
	return &SyntaxError{
		File:       p.file,
		Line:       p.line,
		Col:        p.col,
		Msg:        fmt.Sprintf(format, args...),
		Incomplete: incomplete,
	}
}

// isSymbolRune matches [a-zA-Z0-9_+\-*/%^\\=<>!&].
func isSymbolRune(ch rune) bool {
	switch {
	case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		return true
	}
	return strings.ContainsRune(`_+-*/%^\=<>!&`, ch)
}
