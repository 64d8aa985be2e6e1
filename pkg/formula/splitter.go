package formula

import (
	"fmt"
	"strings"
)

const (
	openParen  = '('
	closeParen = ')'
	separator  = ';'
	quote      = '"'
)

// splitArguments splits the text between a formula's outer parentheses into
// its top-level arguments. Separators split only outside nested parentheses
// and quoted literals; parentheses inside quotes do not count toward nesting.
// Each argument is trimmed. Empty content yields no arguments.
func splitArguments(content string) ([]string, error) {
	var args []string
	depth, start := 0, 0
	quoted := false
	for i := 0; i < len(content); i++ {
		switch c := content[i]; {
		case c == quote:
			quoted = !quoted
		case quoted:
		case c == openParen:
			depth++
		case c == closeParen:
			depth--
			if depth < 0 {
				return nil, ErrUnbalancedParentheses
			}
		case c == separator && depth == 0:
			args = append(args, strings.TrimSpace(content[start:i]))
			start = i + 1
		}
	}
	if depth != 0 {
		return nil, ErrUnbalancedParentheses
	}
	if start < len(content) || len(args) > 0 {
		args = append(args, strings.TrimSpace(content[start:]))
	}
	return args, nil
}

// balanced reports whether every parenthesis outside quoted literals in s is
// matched.
func balanced(s string) bool {
	depth := 0
	quoted := false
	for _, r := range s {
		switch {
		case r == quote:
			quoted = !quoted
		case quoted:
		case r == openParen:
			depth++
		case r == closeParen:
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// checkNesting fails with ErrDepthExceeded when parentheses outside quoted
// literals in s nest deeper than limit. Formula nesting never exceeds
// parenthesis nesting, so text that passes cannot recurse past limit.
func checkNesting(s string, limit int) error {
	depth := 0
	quoted := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == quote:
			quoted = !quoted
		case quoted:
		case c == openParen:
			depth++
			if depth > limit {
				return fmt.Errorf("%w (%d) while parsing", ErrDepthExceeded, limit)
			}
		case c == closeParen:
			depth--
		}
	}
	return nil
}
