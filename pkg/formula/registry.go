package formula

import (
	"slices"
	"strings"
)

// operations is the closed catalog, keyed by upper-case name.
var operations = func() map[string]Operation {
	m := make(map[string]Operation)
	for _, op := range []Operation{
		notOperation{},
		andOperation{},
		orOperation{},
		ifOperation{},
		equalsOperation{},
		sumOperation{},
	} {
		m[op.Name()] = op
	}
	return m
}()

// Lookup finds an operation by name, ignoring case.
func Lookup(name string) (Operation, error) {
	op, ok := operations[strings.ToUpper(name)]
	if !ok {
		return nil, &UnknownOperationError{Name: name}
	}
	return op, nil
}

// Operations returns the names of all operations in sorted order.
func Operations() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
