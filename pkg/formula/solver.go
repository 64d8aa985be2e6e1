package formula

import "fmt"

// DefaultMaxDepth is the nesting limit used when none is configured.
const DefaultMaxDepth = 256

// Solver parses formulas, resolves their references against a context and
// dispatches them to operations. A Solver holds no mutable state and is safe
// for concurrent use.
type Solver struct {
	parser   *Parser
	maxDepth int
}

// SolverOption configures a Solver
type SolverOption func(*Solver)

// WithMaxDepth limits how deeply formulas may nest, counting both nested
// formula arguments and references to context formulas. The same limit
// bounds parenthesis nesting when the solver parses formulas and context
// values, overriding the parser's own. Values below 1 are ignored.
func WithMaxDepth(n int) SolverOption {
	return func(s *Solver) {
		if n > 0 {
			s.maxDepth = n
		}
	}
}

// WithParser sets the parser used for formulas and context values
func WithParser(p *Parser) SolverOption {
	return func(s *Solver) {
		if p != nil {
			s.parser = p
		}
	}
}

// NewSolver creates a new solver
func NewSolver(opts ...SolverOption) *Solver {
	s := &Solver{parser: DefaultParser, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxDepth returns the solver's nesting limit
func (s *Solver) MaxDepth() int {
	return s.maxDepth
}

// Solve parses text, solves it against vars and renders the result.
func (s *Solver) Solve(text string, vars map[string]string) (string, error) {
	v, err := s.SolveValue(text, vars)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// SolveValue is like Solve but returns the result unrendered.
func (s *Solver) SolveValue(text string, vars map[string]string) (Value, error) {
	f, err := s.Parse(text)
	if err != nil {
		return Value{}, err
	}
	resolved, err := s.ResolveContext(vars)
	if err != nil {
		return Value{}, err
	}
	return s.SolveFormula(f, resolved)
}

// Parse parses text with the solver's parser and depth limit
func (s *Solver) Parse(text string) (Formula, error) {
	return s.parser.parseFormula(text, s.maxDepth)
}

// ResolveContext classifies raw context values with the solver's parser and
// depth limit
func (s *Solver) ResolveContext(raw map[string]string) (map[string]Value, error) {
	return s.parser.resolveContext(raw, s.maxDepth)
}

// SolveFormula solves an already parsed formula against resolved variables.
func (s *Solver) SolveFormula(f Formula, vars map[string]Value) (Value, error) {
	return s.solve(f, vars, 1)
}

// IsValid reports whether text is a valid formula. Syntax checking is not
// implemented yet: every input is reported valid.
func (s *Solver) IsValid(text string) bool {
	return true
}

func (s *Solver) solve(f Formula, vars map[string]Value, depth int) (Value, error) {
	if depth > s.maxDepth {
		return Value{}, fmt.Errorf("%w (%d) at %s", ErrDepthExceeded, s.maxDepth, f.operation)
	}
	op, err := Lookup(f.operation)
	if err != nil {
		return Value{}, err
	}
	// Every argument is resolved before the operation sees any of them.
	args := make([]Value, len(f.arguments))
	for i, arg := range f.arguments {
		v, err := s.resolve(arg, vars, depth)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	return Run(op, args)
}

// resolve turns an argument into a value an operation can consume. A
// reference is looked up once: a nested formula found in the context is
// solved, anything else, including another reference, is used as is.
func (s *Solver) resolve(arg Value, vars map[string]Value, depth int) (Value, error) {
	switch arg.kind {
	case KindReference:
		v, ok := vars[arg.s]
		if !ok {
			return Value{}, &UnknownReferenceError{Name: arg.s}
		}
		if v.kind == KindFormula {
			return s.solve(*v.f, vars, depth+1)
		}
		return v, nil
	case KindFormula:
		return s.solve(*arg.f, vars, depth+1)
	}
	return arg, nil
}

// DefaultSolver is the global solver instance
var DefaultSolver = NewSolver()

// Solve is a convenience function using the default solver
func Solve(text string, vars map[string]string) (string, error) {
	return DefaultSolver.Solve(text, vars)
}

// IsValid is a convenience function using the default solver
func IsValid(text string) bool {
	return DefaultSolver.IsValid(text)
}
