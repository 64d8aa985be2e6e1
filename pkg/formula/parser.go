package formula

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Parser turns formula text into Formula trees. A Parser holds no mutable
// state and may be shared between goroutines.
type Parser struct {
	maxDepth int
}

// ParserOption configures a Parser
type ParserOption func(*Parser)

// WithNestingLimit bounds how deeply parentheses outside quoted literals may
// nest in text given to the parser. Values below 1 are ignored.
func WithNestingLimit(n int) ParserOption {
	return func(p *Parser) {
		if n > 0 {
			p.maxDepth = n
		}
	}
}

// NewParser creates a new formula parser
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxDepth returns the parser's nesting limit
func (p *Parser) MaxDepth() int {
	return p.maxDepth
}

// ParseFormula parses text of the form `OP(arg; arg; ...)`.
//
// It fails with ErrInvalidFormat when there is no opening parenthesis, the
// operation name is empty, or the text does not end with a closing
// parenthesis; with ErrUnbalancedParentheses when parentheses outside quoted
// literals do not match; and with ErrMissingParameters when the argument
// list is empty. Text nesting deeper than the parser's limit fails with
// ErrDepthExceeded before any of it is parsed.
func (p *Parser) ParseFormula(text string) (Formula, error) {
	return p.parseFormula(text, p.maxDepth)
}

func (p *Parser) parseFormula(text string, limit int) (Formula, error) {
	if err := checkNesting(text, limit); err != nil {
		return Formula{}, err
	}
	return p.formula(text)
}

func (p *Parser) formula(text string) (Formula, error) {
	head, rest, found := strings.Cut(text, string(openParen))
	operation := strings.TrimSpace(head)
	rest = strings.TrimSpace(rest)
	if !found || operation == "" {
		return Formula{}, fmt.Errorf("%w: %q", ErrInvalidFormat, text)
	}
	if !strings.HasSuffix(rest, string(closeParen)) {
		if !balanced(string(openParen) + rest) {
			return Formula{}, fmt.Errorf("%w: %q", ErrUnbalancedParentheses, text)
		}
		return Formula{}, fmt.Errorf("%w: %q", ErrInvalidFormat, text)
	}

	parts, err := splitArguments(strings.TrimSuffix(rest, string(closeParen)))
	if err != nil {
		return Formula{}, fmt.Errorf("%w: %q", err, text)
	}

	args := make([]Value, 0, len(parts))
	for _, part := range parts {
		v, err := p.value(part)
		if err != nil {
			return Formula{}, err
		}
		args = append(args, v)
	}
	if len(args) == 0 {
		return Formula{}, fmt.Errorf("%w: %q", ErrMissingParameters, text)
	}

	return Formula{operation: operation, arguments: args}, nil
}

// ParseValue classifies a single argument token. The first matching rule
// wins: TRUE or FALSE, a decimal number, a double-quoted string, a nested
// formula, and finally a reference named by the token. Only a malformed or
// too deeply nested formula makes ParseValue fail.
func (p *Parser) ParseValue(token string) (Value, error) {
	return p.parseValue(token, p.maxDepth)
}

func (p *Parser) parseValue(token string, limit int) (Value, error) {
	if err := checkNesting(token, limit); err != nil {
		return Value{}, err
	}
	return p.value(token)
}

func (p *Parser) value(token string) (Value, error) {
	token = strings.TrimSpace(token)

	switch token {
	case trueLiteral:
		return BoolValue(true), nil
	case falseLiteral:
		return BoolValue(false), nil
	}

	if n, ok := parseNumber(token); ok {
		return NumberValue(n), nil
	}

	if len(token) >= 2 && token[0] == quote && token[len(token)-1] == quote {
		return StringValue(token[1 : len(token)-1]), nil
	}

	if strings.ContainsRune(token, openParen) && strings.HasSuffix(token, string(closeParen)) {
		f, err := p.formula(token)
		if err != nil {
			return Value{}, err
		}
		return FormulaValue(f), nil
	}

	return ReferenceValue(token), nil
}

// parseNumber parses a decimal floating-point literal. Literals too large
// for float64 become infinities.
func parseNumber(token string) (float64, bool) {
	if !isDecimalLiteral(token) {
		return 0, false
	}
	n, err := strconv.ParseFloat(token, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return n, true
		}
		return 0, false
	}
	return n, true
}

// isDecimalLiteral reports whether token is spelled
// [+-]digits[.digits][(e|E)[+-]digits], where either side of the point may be
// empty but not both. Hex, inf, nan and digit separators are not decimal.
func isDecimalLiteral(token string) bool {
	i := 0
	if i < len(token) && (token[i] == '+' || token[i] == '-') {
		i++
	}
	digits := 0
	for ; i < len(token) && isDigit(token[i]); i++ {
		digits++
	}
	if i < len(token) && token[i] == '.' {
		i++
		for ; i < len(token) && isDigit(token[i]); i++ {
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(token) && (token[i] == 'e' || token[i] == 'E') {
		i++
		if i < len(token) && (token[i] == '+' || token[i] == '-') {
			i++
		}
		start := i
		for i < len(token) && isDigit(token[i]) {
			i++
		}
		if i == start {
			return false
		}
	}
	return i == len(token)
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// DefaultParser is the global parser instance
var DefaultParser = NewParser()

// ParseFormula is a convenience function using the default parser
func ParseFormula(text string) (Formula, error) {
	return DefaultParser.ParseFormula(text)
}

// ParseValue is a convenience function using the default parser
func ParseValue(token string) (Value, error) {
	return DefaultParser.ParseValue(token)
}
