package formula

import (
	"errors"
	"strconv"
	"strings"
)

// Parse errors
var (
	ErrInvalidFormat         = errors.New("invalid formula format")
	ErrMissingParameters     = errors.New("missing formula parameters")
	ErrUnbalancedParentheses = errors.New("unbalanced parentheses")
	ErrUnknownReference      = errors.New("unknown reference")
)

// Operation errors
var (
	ErrInvalidArgumentType      = errors.New("invalid argument type")
	ErrInvalidNumberOfArguments = errors.New("invalid number of arguments")
)

// ErrUnknownOperation is returned when a formula names an operation outside
// the catalog. Parsing never raises it; the operation lookup does.
var ErrUnknownOperation = errors.New("unknown operation")

// ErrDepthExceeded is returned when parsing or solving nests deeper than the
// depth limit, e.g. for a context variable whose formula refers to itself.
var ErrDepthExceeded = errors.New("formula nesting exceeds depth limit")

// UnknownReferenceError is returned when a reference names a variable that is
// missing from the context.
type UnknownReferenceError struct {
	// Name is the missing variable name.
	Name string
}

func (err *UnknownReferenceError) Error() string {
	return "unknown reference " + strconv.Quote(err.Name)
}

func (err *UnknownReferenceError) Unwrap() error {
	return ErrUnknownReference
}

// UnknownOperationError is returned when an operation name is not in the
// catalog.
type UnknownOperationError struct {
	// Name is the operation name as written in the formula.
	Name string
}

func (err *UnknownOperationError) Error() string {
	return "unknown operation " + strconv.Quote(err.Name)
}

func (err *UnknownOperationError) Unwrap() error {
	return ErrUnknownOperation
}

// ArgumentCountError reports an operation called with the wrong number of
// arguments.
type ArgumentCountError struct {
	// Operation is the canonical operation name.
	Operation string
	// Expected is the exact or minimum argument count.
	Expected int
	// AtLeast is set when Expected is a minimum.
	AtLeast bool
	// Received is the number of arguments given.
	Received int
}

func (err *ArgumentCountError) Error() string {
	var b strings.Builder
	b.WriteString(err.Operation)
	b.WriteString(" expects ")
	if err.AtLeast {
		b.WriteString("at least ")
	}
	b.WriteString(strconv.Itoa(err.Expected))
	if err.Expected == 1 {
		b.WriteString(" argument")
	} else {
		b.WriteString(" arguments")
	}
	b.WriteString(", received ")
	b.WriteString(strconv.Itoa(err.Received))
	return b.String()
}

func (err *ArgumentCountError) Unwrap() error {
	return ErrInvalidNumberOfArguments
}

// ArgumentTypeError reports an argument whose kind the operation does not
// accept.
type ArgumentTypeError struct {
	// Operation is the canonical operation name.
	Operation string
	// Index is the 0-based position of the argument.
	Index int
	// Expected lists the accepted kinds.
	Expected []Kind
	// Received is the kind of the argument given.
	Received Kind
}

func (err *ArgumentTypeError) Error() string {
	names := make([]string, len(err.Expected))
	for i, k := range err.Expected {
		names[i] = k.String()
	}
	return err.Operation + " argument " + strconv.Itoa(err.Index+1) +
		": expected " + strings.Join(names, " or ") +
		", received " + err.Received.String()
}

func (err *ArgumentTypeError) Unwrap() error {
	return ErrInvalidArgumentType
}

// IsParseError reports whether err belongs to the parse error taxonomy.
func IsParseError(err error) bool {
	return errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrMissingParameters) ||
		errors.Is(err, ErrUnbalancedParentheses) ||
		errors.Is(err, ErrUnknownReference)
}

// IsOperationError reports whether err belongs to the operation error
// taxonomy.
func IsOperationError(err error) bool {
	return errors.Is(err, ErrInvalidArgumentType) ||
		errors.Is(err, ErrInvalidNumberOfArguments) ||
		errors.Is(err, ErrUnknownOperation)
}
