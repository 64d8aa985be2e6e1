package formula

import (
	"fmt"
	"strings"
	"testing"

	"github.com/expr-lang/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bools(bs ...bool) []Value {
	vs := make([]Value, len(bs))
	for i, b := range bs {
		vs[i] = BoolValue(b)
	}
	return vs
}

func numbers(ns ...float64) []Value {
	vs := make([]Value, len(ns))
	for i, n := range ns {
		vs[i] = NumberValue(n)
	}
	return vs
}

func mustLookup(t *testing.T, name string) Operation {
	t.Helper()
	op, err := Lookup(name)
	require.NoError(t, err)
	return op
}

func TestNot(t *testing.T) {
	not := mustLookup(t, "NOT")

	for _, b := range []bool{true, false} {
		once, err := Run(not, bools(b))
		require.NoError(t, err)
		twice, err := Run(not, []Value{once})
		require.NoError(t, err)

		got, _ := once.Bool()
		assert.Equal(t, !b, got)
		assert.True(t, twice.Equal(BoolValue(b)))
	}
}

// The boolean folds are checked against expr-lang's own operators.
func TestBooleanFolds(t *testing.T) {
	inputs := [][]bool{
		{true, true},
		{true, false},
		{false, true},
		{false, false},
		{true, true, true},
		{true, false, true},
		{false, false, true},
	}
	folds := map[string]string{"AND": " && ", "OR": " || "}

	for name, infix := range folds {
		op := mustLookup(t, name)
		for _, in := range inputs {
			terms := make([]string, len(in))
			for i, b := range in {
				terms[i] = fmt.Sprint(b)
			}
			source := strings.Join(terms, infix)

			t.Run(name+" "+source, func(t *testing.T) {
				want, err := expr.Eval(source, nil)
				require.NoError(t, err)

				got, err := Run(op, bools(in...))
				require.NoError(t, err)
				b, ok := got.Bool()
				require.True(t, ok)
				assert.Equal(t, want, b)
			})
		}
	}
}

func TestSum(t *testing.T) {
	sum := mustLookup(t, "SUM")

	testCases := []struct {
		source string
		args   []float64
	}{
		{"1.0 + 2.0 + 3.0", []float64{1, 2, 3}},
		{"2.5 + 3.1 + 4.0", []float64{2.5, 3.1, 4}},
		{"0.1 + 0.2", []float64{0.1, 0.2}},
		{"-1.5 + 1.5", []float64{-1.5, 1.5}},
	}

	for _, tc := range testCases {
		t.Run(tc.source, func(t *testing.T) {
			want, err := expr.Eval(tc.source, nil)
			require.NoError(t, err)
			require.IsType(t, float64(0), want)

			got, err := Run(sum, numbers(tc.args...))
			require.NoError(t, err)
			n, ok := got.Number()
			require.True(t, ok)
			assert.Equal(t, want, n)
		})
	}
}

func TestEquals(t *testing.T) {
	eq := mustLookup(t, "EQ")

	testCases := []struct {
		name     string
		args     []Value
		expected bool
	}{
		{"equal numbers", numbers(5, 5), true},
		{"different numbers", numbers(5, 10), false},
		{"equal strings", []Value{StringValue("a"), StringValue("a")}, true},
		{"number and string", []Value{NumberValue(5), StringValue("5")}, true},
		{"string and number", []Value{StringValue("2.5"), NumberValue(2.5)}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Run(eq, tc.args)
			require.NoError(t, err)
			assert.True(t, got.Equal(BoolValue(tc.expected)))
		})
	}
}

func TestIf(t *testing.T) {
	op := mustLookup(t, "IF")

	got, err := Run(op, []Value{BoolValue(true), NumberValue(1), StringValue("two")})
	require.NoError(t, err)
	assert.True(t, got.Equal(NumberValue(1)))

	got, err = Run(op, []Value{BoolValue(false), NumberValue(1), StringValue("two")})
	require.NoError(t, err)
	assert.True(t, got.Equal(StringValue("two")))
}

func TestOperation_Evaluate(t *testing.T) {
	testCases := []struct {
		name     string
		op       string
		args     []Value
		expected []string
	}{
		{"valid not", "NOT", bools(true), nil},
		{"not without arguments", "NOT", nil, []string{
			"NOT expects 1 argument, received 0",
		}},
		{"not with extra argument of wrong type", "NOT", []Value{NumberValue(1), BoolValue(true)}, []string{
			"NOT expects 1 argument, received 2",
			"NOT argument 1: expected Boolean, received Number",
		}},
		{"and with one wrong argument", "AND", numbers(1), []string{
			"AND expects at least 2 arguments, received 1",
			"AND argument 1: expected Boolean, received Number",
		}},
		{"or reports every bad argument", "OR", []Value{StringValue("a"), BoolValue(true), NumberValue(3)}, []string{
			"OR argument 1: expected Boolean, received String",
			"OR argument 3: expected Boolean, received Number",
		}},
		{"eq rejects booleans", "EQ", bools(true, false), []string{
			"EQ argument 1: expected Number or String, received Boolean",
			"EQ argument 2: expected Number or String, received Boolean",
		}},
		{"eq with three arguments", "EQ", numbers(1, 2, 3), []string{
			"EQ expects 2 arguments, received 3",
		}},
		{"if without arguments", "IF", nil, []string{
			"IF expects 3 arguments, received 0",
		}},
		{"if branches may be any kind", "IF", []Value{BoolValue(true), StringValue("a"), NumberValue(1)}, nil},
		{"if with non boolean condition", "IF", numbers(1, 2, 3), []string{
			"IF argument 1: expected Boolean, received Number",
		}},
		{"sum of strings", "SUM", []Value{StringValue("1"), NumberValue(2)}, []string{
			"SUM argument 1: expected Number, received String",
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			errs := mustLookup(t, tc.op).Evaluate(tc.args)

			var got []string
			for _, err := range errs {
				assert.True(t, IsOperationError(err))
				got = append(got, err.Error())
			}
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestRun_ReturnsFirstError(t *testing.T) {
	_, err := Run(mustLookup(t, "AND"), numbers(1))
	require.Error(t, err)

	var countErr *ArgumentCountError
	require.ErrorAs(t, err, &countErr)
	assert.Equal(t, "AND", countErr.Operation)
	assert.Equal(t, 2, countErr.Expected)
	assert.True(t, countErr.AtLeast)
	assert.Equal(t, 1, countErr.Received)
	assert.ErrorIs(t, err, ErrInvalidNumberOfArguments)
	assert.NotErrorIs(t, err, ErrInvalidArgumentType)

	_, err = Run(mustLookup(t, "SUM"), []Value{NumberValue(1), BoolValue(true)})
	var typeErr *ArgumentTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, 1, typeErr.Index)
	assert.Equal(t, []Kind{KindNumber}, typeErr.Expected)
	assert.Equal(t, KindBoolean, typeErr.Received)
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"sum", "Sum", "SUM", "if", "eQ"} {
		op, err := Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, strings.ToUpper(name), op.Name())
	}

	_, err := Lookup("FOO")
	var unknown *UnknownOperationError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "FOO", unknown.Name)
	assert.ErrorIs(t, err, ErrUnknownOperation)
	assert.True(t, IsOperationError(err))
	assert.False(t, IsParseError(err))
}

func TestOperations(t *testing.T) {
	assert.Equal(t, []string{"AND", "EQ", "IF", "NOT", "OR", "SUM"}, Operations())
}
