package formula

// notOperation negates a single boolean.
type notOperation struct{}

func (notOperation) Name() string { return "NOT" }

func (op notOperation) Evaluate(args []Value) []error {
	errs := exactly(op, args, 1)
	if len(args) > 0 {
		errs = append(errs, checkKind(op, args, 0, KindBoolean)...)
	}
	return errs
}

func (notOperation) Execute(args []Value) Value {
	b, _ := args[0].Bool()
	return BoolValue(!b)
}

// andOperation folds two or more booleans with logical AND.
type andOperation struct{}

func (andOperation) Name() string { return "AND" }

func (op andOperation) Evaluate(args []Value) []error {
	return append(atLeast(op, args, 2), checkAll(op, args, KindBoolean)...)
}

func (andOperation) Execute(args []Value) Value {
	result := true
	for _, arg := range args {
		b, _ := arg.Bool()
		result = result && b
	}
	return BoolValue(result)
}

// orOperation folds two or more booleans with logical OR.
type orOperation struct{}

func (orOperation) Name() string { return "OR" }

func (op orOperation) Evaluate(args []Value) []error {
	return append(atLeast(op, args, 2), checkAll(op, args, KindBoolean)...)
}

func (orOperation) Execute(args []Value) Value {
	result := false
	for _, arg := range args {
		b, _ := arg.Bool()
		result = result || b
	}
	return BoolValue(result)
}

// equalsOperation compares two numbers or strings, see Value.Equal.
type equalsOperation struct{}

func (equalsOperation) Name() string { return "EQ" }

func (op equalsOperation) Evaluate(args []Value) []error {
	return append(exactly(op, args, 2), checkAll(op, args, KindNumber, KindString)...)
}

func (equalsOperation) Execute(args []Value) Value {
	return BoolValue(args[0].Equal(args[1]))
}

// ifOperation selects its second or third argument by its first.
// Both branches have already been resolved by the time it runs.
type ifOperation struct{}

func (ifOperation) Name() string { return "IF" }

func (op ifOperation) Evaluate(args []Value) []error {
	errs := exactly(op, args, 3)
	if len(args) > 0 {
		errs = append(errs, checkKind(op, args, 0, KindBoolean)...)
	}
	return errs
}

func (ifOperation) Execute(args []Value) Value {
	if b, _ := args[0].Bool(); b {
		return args[1]
	}
	return args[2]
}

// sumOperation adds two or more numbers left to right.
type sumOperation struct{}

func (sumOperation) Name() string { return "SUM" }

func (op sumOperation) Evaluate(args []Value) []error {
	return append(atLeast(op, args, 2), checkAll(op, args, KindNumber)...)
}

func (sumOperation) Execute(args []Value) Value {
	var total float64
	for _, arg := range args {
		n, _ := arg.Number()
		total += n
	}
	return NumberValue(total)
}
