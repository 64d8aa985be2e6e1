package formula

import (
	"fmt"
	"strings"
)

// Formula is a parsed expression: an operation name and its arguments.
// Formulas are immutable once built.
type Formula struct {
	operation string
	arguments []Value
}

// NewFormula builds a formula from an operation name and at least one
// argument.
func NewFormula(operation string, arguments ...Value) (Formula, error) {
	if strings.TrimSpace(operation) == "" {
		return Formula{}, fmt.Errorf("%w: empty operation name", ErrInvalidFormat)
	}
	if len(arguments) == 0 {
		return Formula{}, fmt.Errorf("%w: %s()", ErrMissingParameters, operation)
	}
	args := make([]Value, len(arguments))
	copy(args, arguments)
	return Formula{operation: operation, arguments: args}, nil
}

// MustFormula is like NewFormula but panics on error.
func MustFormula(operation string, arguments ...Value) Formula {
	f, err := NewFormula(operation, arguments...)
	if err != nil {
		panic(err)
	}
	return f
}

// Operation returns the operation name as written in the source text.
func (f Formula) Operation() string {
	return f.operation
}

// Arguments returns a copy of the formula's arguments.
func (f Formula) Arguments() []Value {
	args := make([]Value, len(f.arguments))
	copy(args, f.arguments)
	return args
}

// Equal reports whether f and g have the same operation text and pairwise
// equal arguments.
func (f Formula) Equal(g Formula) bool {
	if f.operation != g.operation || len(f.arguments) != len(g.arguments) {
		return false
	}
	for i := range f.arguments {
		if !f.arguments[i].Equal(g.arguments[i]) {
			return false
		}
	}
	return true
}

// String renders f back into formula syntax, e.g. `EQ(x; "a")`.
func (f Formula) String() string {
	var b strings.Builder
	b.WriteString(f.operation)
	b.WriteRune(openParen)
	for i, arg := range f.arguments {
		if i > 0 {
			b.WriteRune(separator)
			b.WriteByte(' ')
		}
		b.WriteString(arg.literal())
	}
	b.WriteRune(closeParen)
	return b.String()
}
