package formula

// Operation is a named function over resolved argument values.
//
// Evaluate never fails; it returns every violation of the operation's arity
// and argument-type rules in order, arity first. Execute assumes the
// arguments passed Evaluate and its result is undefined otherwise.
type Operation interface {
	Name() string
	Evaluate(args []Value) []error
	Execute(args []Value) Value
}

// Run validates args against op and executes it. Only the first validation
// error is returned; the rest are dropped.
func Run(op Operation, args []Value) (Value, error) {
	if errs := op.Evaluate(args); len(errs) > 0 {
		return Value{}, errs[0]
	}
	return op.Execute(args), nil
}

// exactly returns an arity error unless len(args) == n.
func exactly(op Operation, args []Value, n int) []error {
	if len(args) == n {
		return nil
	}
	return []error{&ArgumentCountError{Operation: op.Name(), Expected: n, Received: len(args)}}
}

// atLeast returns an arity error unless len(args) >= n.
func atLeast(op Operation, args []Value, n int) []error {
	if len(args) >= n {
		return nil
	}
	return []error{&ArgumentCountError{Operation: op.Name(), Expected: n, AtLeast: true, Received: len(args)}}
}

// checkKind returns a type error unless args[i] has one of kinds.
func checkKind(op Operation, args []Value, i int, kinds ...Kind) []error {
	got := args[i].Kind()
	for _, k := range kinds {
		if got == k {
			return nil
		}
	}
	return []error{&ArgumentTypeError{Operation: op.Name(), Index: i, Expected: kinds, Received: got}}
}

// checkAll returns a type error for each argument without one of kinds.
func checkAll(op Operation, args []Value, kinds ...Kind) []error {
	var errs []error
	for i := range args {
		errs = append(errs, checkKind(op, args, i, kinds...)...)
	}
	return errs
}
