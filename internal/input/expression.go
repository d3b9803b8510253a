// Package input turns raw cell keystrokes, pasted spreadsheet rows and drag
// gestures into validated monthly amounts.
package input

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotExpression means the text is not one of the supported forms and
	// should be read as a plain literal instead.
	ErrNotExpression  = errors.New("not an expression")
	ErrDivisionByZero = errors.New("division by zero")
)

var hundred = decimal.NewFromInt(100)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokOperator
	tokPercent
)

type token struct {
	kind tokenKind
	text string
}

// ExpressionForm names the grammar case a cell input matched.
type ExpressionForm int

const (
	// NotAnExpression is any input outside the two forms below.
	NotAnExpression ExpressionForm = iota
	// PercentForm is BASE OP PCT%.
	PercentForm
	// BinaryForm is LEFT OP RIGHT.
	BinaryForm
)

func (f ExpressionForm) String() string {
	switch f {
	case PercentForm:
		return "percent"
	case BinaryForm:
		return "binary"
	default:
		return "none"
	}
}

// Expression is a parsed single-operator cell input.
type Expression struct {
	Form  ExpressionForm
	Left  decimal.Decimal
	Op    byte
	Right decimal.Decimal
}

func isOperator(c byte) bool {
	return c == '+' || c == '-' || c == '*' || c == '/'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// tokenize splits s into unsigned decimal literals, operators and percent
// signs. Any other character makes the input unrecognisable.
func tokenize(s string) ([]token, bool) {
	var toks []token
	pos := 0
	for pos < len(s) {
		c := s[pos]
		switch {
		case c == ' ' || c == '\t':
			pos++
		case isOperator(c):
			toks = append(toks, token{kind: tokOperator, text: s[pos : pos+1]})
			pos++
		case c == '%':
			toks = append(toks, token{kind: tokPercent, text: "%"})
			pos++
		case isDigit(c) || c == '.':
			start := pos
			dots := 0
			for pos < len(s) && (isDigit(s[pos]) || s[pos] == '.') {
				if s[pos] == '.' {
					dots++
				}
				pos++
			}
			lit := s[start:pos]
			if dots > 1 || lit == "." {
				return nil, false
			}
			toks = append(toks, token{kind: tokNumber, text: lit})
		default:
			return nil, false
		}
	}
	return toks, true
}

// ParseExpression recognises exactly one operator between two unsigned
// decimals, optionally followed by a percent sign on the right operand.
func ParseExpression(s string) (Expression, error) {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "+-*/") {
		return Expression{}, ErrNotExpression
	}
	toks, ok := tokenize(s)
	if !ok {
		return Expression{}, ErrNotExpression
	}

	var form ExpressionForm
	switch {
	case len(toks) == 4 && toks[0].kind == tokNumber && toks[1].kind == tokOperator &&
		toks[2].kind == tokNumber && toks[3].kind == tokPercent:
		form = PercentForm
	case len(toks) == 3 && toks[0].kind == tokNumber && toks[1].kind == tokOperator &&
		toks[2].kind == tokNumber:
		form = BinaryForm
	default:
		return Expression{}, ErrNotExpression
	}

	left, err := decimal.NewFromString(toks[0].text)
	if err != nil {
		return Expression{}, ErrNotExpression
	}
	right, err := decimal.NewFromString(toks[2].text)
	if err != nil {
		return Expression{}, ErrNotExpression
	}
	return Expression{Form: form, Left: left, Op: toks[1].text[0], Right: right}, nil
}

// Eval applies the operator. In PercentForm the right operand is a
// percentage of the base: 100+10% is 110, 100*10% is 10, 100/50% is 200.
func (e Expression) Eval() (decimal.Decimal, error) {
	switch e.Form {
	case PercentForm:
		pct := e.Right.Div(hundred)
		switch e.Op {
		case '+':
			return e.Left.Add(e.Left.Mul(pct)), nil
		case '-':
			return e.Left.Sub(e.Left.Mul(pct)), nil
		case '*':
			return e.Left.Mul(pct), nil
		case '/':
			if pct.IsZero() {
				return decimal.Zero, ErrDivisionByZero
			}
			return e.Left.Div(pct), nil
		}
	case BinaryForm:
		switch e.Op {
		case '+':
			return e.Left.Add(e.Right), nil
		case '-':
			return e.Left.Sub(e.Right), nil
		case '*':
			return e.Left.Mul(e.Right), nil
		case '/':
			if e.Right.IsZero() {
				return decimal.Zero, ErrDivisionByZero
			}
			return e.Left.Div(e.Right), nil
		}
	}
	return decimal.Zero, ErrNotExpression
}

// EvaluateExpression parses and evaluates s in one step.
func EvaluateExpression(s string) (decimal.Decimal, error) {
	expr, err := ParseExpression(s)
	if err != nil {
		return decimal.Zero, err
	}
	return expr.Eval()
}

// ParseCellInput is what a committed keystroke stores: the expression
// result when s is a supported expression, otherwise s read as a literal.
// Empty and unparseable input both yield zero.
func ParseCellInput(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if v, err := EvaluateExpression(s); err == nil {
		return v
	}
	return parseLiteral(s)
}

func parseLiteral(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	v, err := parsePlainDecimal(s)
	if err != nil {
		return decimal.Zero
	}
	return v
}

// plainDecimal is an optionally signed dot-decimal number. decimal itself
// also takes exponents, which no cell should hold.
var plainDecimal = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

func parsePlainDecimal(s string) (decimal.Decimal, error) {
	if !plainDecimal.MatchString(s) {
		return decimal.Zero, fmt.Errorf("not a plain decimal: %q", s)
	}
	return decimal.NewFromString(s)
}
