// Package calculator provides the always-eligible arithmetic tool. It
// evaluates the user query directly, so it exposes only the freeform
// invocation method; the gate falls back to it automatically.
package calculator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/quorumlabs/council/pkg/tools/toolbox"
)

// Tool returns the calculator as an always-class gate tool.
func Tool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "calculator",
		Description: "Evaluate an arithmetic expression (+, -, *, /, parentheses).",
		Class:       toolbox.ClassAlways,
		Freeform: func(_ context.Context, query string) (string, error) {
			v, err := Eval(query)
			if err != nil {
				return "", err
			}
			return formatNumber(v), nil
		},
	}
}

// Eval evaluates an infix arithmetic expression.
func Eval(expr string) (float64, error) {
	p := &parser{input: expr}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("calculator: unexpected %q at offset %d", p.input[p.pos], p.pos)
	}
	return v, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parser is a recursive-descent evaluator over +, -, *, / and parentheses.
type parser struct {
	input string
	pos   int
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) peek() (byte, bool) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

func (p *parser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}

	for {
		op, ok := p.peek()
		if !ok || (op != '+' && op != '-') {
			return left, nil
		}
		p.pos++

		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}

		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *parser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}

	for {
		op, ok := p.peek()
		if !ok || (op != '*' && op != '/') {
			return left, nil
		}
		p.pos++

		right, err := p.parseFactor()
		if err != nil {
			return 0, err
		}

		if op == '*' {
			left *= right
		} else {
			if right == 0 {
				return 0, fmt.Errorf("calculator: division by zero")
			}
			left /= right
		}
	}
}

func (p *parser) parseFactor() (float64, error) {
	ch, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("calculator: unexpected end of expression")
	}

	if ch == '(' {
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		ch, ok = p.peek()
		if !ok || ch != ')' {
			return 0, fmt.Errorf("calculator: missing closing parenthesis")
		}
		p.pos++
		return v, nil
	}

	if ch == '-' {
		p.pos++
		v, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		return -v, nil
	}

	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c < '0' || c > '9') && c != '.' {
			break
		}
		p.pos++
	}
	if start == p.pos {
		return 0, fmt.Errorf("calculator: expected number at offset %d", start)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(p.input[start:p.pos]), 64)
	if err != nil {
		return 0, fmt.Errorf("calculator: invalid number %q", p.input[start:p.pos])
	}
	return v, nil
}
