// Package tools holds concrete Tool implementations registered into the
// hub: calculator, clock, conversation history, and a stubbed web search
// pair standing in for the external search collaborator the core does not
// implement. cmd/researchcore registers advanced_web_search under
// toolhub.SourceSkills and the rest under toolhub.SourceTools.
package tools

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/brightfieldai/researchcore/internal/toolhub"
)

// cleanExpressionPattern strips everything outside the arithmetic charset
// before an expression is evaluated.
var cleanExpressionPattern = regexp.MustCompile(`[^0-9+\-*/().\s]`)

// Calculator evaluates arithmetic expressions with a small hand-rolled
// recursive-descent parser restricted to + - * / ( ) and unary minus/plus —
// deliberately not a generic eval, to keep the accepted grammar narrow and
// safe.
type Calculator struct{}

// NewCalculator builds a Calculator tool.
func NewCalculator() *Calculator { return &Calculator{} }

func (c *Calculator) Description() string {
	return "Evaluates arithmetic expressions built from numbers, + - * / and parentheses."
}

func (c *Calculator) Capabilities() []string { return []string{"calculate", "math", "arithmetic"} }

func (c *Calculator) Execute(ctx context.Context, input any) (toolhub.Result, error) {
	raw, _ := input.(string)
	expr := cleanExpressionPattern.ReplaceAllString(raw, "")
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return toolhub.Result{Success: false, Error: "invalid_input: empty expression"}, nil
	}

	value, err := evalExpression(expr)
	if err != nil {
		return toolhub.Result{
			Success: false,
			Error:   "invalid_input: " + err.Error(),
			Meta:    map[string]any{"expression": expr},
		}, nil
	}

	formatted := formatNumber(value)
	return toolhub.Result{
		Success: true,
		Result:  formatted,
		Meta: map[string]any{
			"expression": expr,
			"value":      value,
			"formatted":  fmt.Sprintf("%s = %s", expr, formatted),
		},
	}, nil
}

// formatNumber renders whole-valued floats without a trailing ".0", matching
// the source's habit of returning ints where the math produced one.
func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// evalExpression parses and evaluates a cleaned arithmetic expression using
// a two-level recursive-descent grammar:
//
//	expr   := term (('+' | '-') term)*
//	term   := unary (('*' | '/') unary)*
//	unary  := ('-' | '+') unary | primary
//	primary := number | '(' expr ')'
func evalExpression(expr string) (float64, error) {
	p := &exprParser{input: expr}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	return v, nil
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) parseExpr() (float64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v += rhs
		case '-':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v -= rhs
		default:
			return v, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	v, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			rhs, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			v *= rhs
		case '/':
			p.pos++
			rhs, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v /= rhs
		default:
			return v, nil
		}
	}
}

func (p *exprParser) parseUnary() (float64, error) {
	if p.peek() == '-' {
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -v, nil
	}
	if p.peek() == '+' {
		p.pos++
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (float64, error) {
	if p.peek() == '(' {
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	}
	return p.parseNumber()
}

func (p *exprParser) parseNumber() (float64, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
		p.pos++
	}
	if start == p.pos {
		if p.pos >= len(p.input) {
			return 0, fmt.Errorf("unexpected end of expression")
		}
		return 0, fmt.Errorf("expected number at position %d", p.pos)
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("malformed number %q", p.input[start:p.pos])
	}
	return v, nil
}
