package formula

import (
	"fmt"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/sidm01890/reconciler/internal/errs"
)

// evalArithmetic safely evaluates a fully-substituted arithmetic
// expression (§4.2 step 4). It is a small precedence-respecting
// recursive-descent parser/evaluator over +, -, *, /, (, ) and decimal
// literals — never a general eval (§9 design note "Runtime eval of
// arithmetic strings").
func evalArithmetic(expr string) (decimal.Decimal, error) {
	p := &arithParser{tokens: tokenize(expr), expr: expr}
	v, err := p.parseExpr()
	if err != nil {
		return decimal.Zero, err
	}
	if p.pos != len(p.tokens) {
		return decimal.Zero, fmt.Errorf("unexpected token %q in expression %q", p.tokens[p.pos], expr)
	}
	return v, nil
}

type token struct {
	kind  tokenKind
	value string
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
)

func tokenize(expr string) []token {
	var toks []token
	runes := []rune(expr)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '+':
			toks = append(toks, token{tokPlus, "+"})
			i++
		case r == '-':
			toks = append(toks, token{tokMinus, "-"})
			i++
		case r == '*':
			toks = append(toks, token{tokStar, "*"})
			i++
		case r == '/':
			toks = append(toks, token{tokSlash, "/"})
			i++
		case r == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case unicode.IsDigit(r) || r == '.':
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			toks = append(toks, token{tokNumber, string(runes[start:i])})
		default:
			// Residual identifiers are already rejected by the caller's
			// safeExpressionPattern check; any other rune here is an
			// internal inconsistency rather than user input.
			i++
		}
	}
	return toks
}

func (t token) String() string { return t.value }

type arithParser struct {
	tokens []token
	pos    int
	expr   string
}

func (p *arithParser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

// parseExpr handles + and - at the lowest precedence.
func (p *arithParser) parseExpr() (decimal.Decimal, error) {
	left, err := p.parseTerm()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		tok, ok := p.peek()
		if !ok || (tok.kind != tokPlus && tok.kind != tokMinus) {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return decimal.Zero, err
		}
		if tok.kind == tokPlus {
			left = left.Add(right)
		} else {
			left = left.Sub(right)
		}
	}
}

// parseTerm handles * and / at higher precedence than + and -.
func (p *arithParser) parseTerm() (decimal.Decimal, error) {
	left, err := p.parseUnary()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		tok, ok := p.peek()
		if !ok || (tok.kind != tokStar && tok.kind != tokSlash) {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return decimal.Zero, err
		}
		if tok.kind == tokStar {
			left = left.Mul(right)
		} else {
			if right.IsZero() {
				return decimal.Zero, errs.ErrDivisionByZero.New(p.expr)
			}
			left = left.Div(right)
		}
	}
}

func (p *arithParser) parseUnary() (decimal.Decimal, error) {
	tok, ok := p.peek()
	if ok && tok.kind == tokMinus {
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return decimal.Zero, err
		}
		return v.Neg(), nil
	}
	if ok && tok.kind == tokPlus {
		p.pos++
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *arithParser) parsePrimary() (decimal.Decimal, error) {
	tok, ok := p.peek()
	if !ok {
		return decimal.Zero, fmt.Errorf("unexpected end of expression %q", p.expr)
	}

	switch tok.kind {
	case tokNumber:
		p.pos++
		v, err := decimal.NewFromString(tok.value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid numeric literal %q in %q", tok.value, p.expr)
		}
		return v, nil
	case tokLParen:
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return decimal.Zero, err
		}
		closing, ok := p.peek()
		if !ok || closing.kind != tokRParen {
			return decimal.Zero, fmt.Errorf("missing closing parenthesis in %q", p.expr)
		}
		p.pos++
		return v, nil
	default:
		return decimal.Zero, fmt.Errorf("unexpected token %q in %q", tok.value, p.expr)
	}
}
