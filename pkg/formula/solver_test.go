package formula

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolver_Solve(t *testing.T) {
	testCases := []struct {
		name     string
		formula  string
		vars     map[string]string
		expected string
	}{
		{"and true", "AND(TRUE; TRUE)", nil, "TRUE"},
		{"and false", "AND(TRUE; FALSE)", nil, "FALSE"},
		{"or false", "OR(FALSE; FALSE)", nil, "FALSE"},
		{"or true", "OR(FALSE; TRUE)", nil, "TRUE"},
		{"double negation", "NOT(NOT(TRUE))", nil, "TRUE"},
		{"integral sum keeps fraction", "SUM(1; 2; 3)", nil, "6.0"},
		{"fractional sum", "SUM(2.5; 3.1; 4)", nil, "9.6"},
		{"eq numbers", "EQ(5; 5)", nil, "TRUE"},
		{"eq different numbers", "EQ(5; 10)", nil, "FALSE"},
		{"eq strings", `EQ("a"; "a")`, nil, "TRUE"},
		{"eq number and string", `EQ(5; "5")`, nil, "TRUE"},
		{"if taken", "IF(TRUE; 1; 2)", nil, "1.0"},
		{"if not taken", "IF(FALSE; 1; 2)", nil, "2.0"},
		{"if returns string verbatim", `IF(TRUE; "yes; (really)"; "no")`, nil, "yes; (really)"},
		{"nested", "IF(EQ(10;10); SUM(5;5); 0)", nil, "10.0"},
		{"lower case operations", "if(eq(1; 1); sum(1; 1); 0)", nil, "2.0"},
		{"quoted delimiters", `EQ(";(3+4"; "3+4;)")`, nil, "FALSE"},
		{"context number", "EQ(x; 5)", map[string]string{"x": "5"}, "TRUE"},
		{"context used twice", "AND(foo; foo)", map[string]string{"foo": "TRUE"}, "TRUE"},
		{"context string", `EQ(name; "bob")`, map[string]string{"name": `"bob"`}, "TRUE"},
		{"context formula", "SUM(total; 1)", map[string]string{"total": "SUM(1; 2)"}, "4.0"},
		{"context formula using context", "NOT(ok)", map[string]string{"ok": "EQ(x; 1)", "x": "1"}, "FALSE"},
	}

	s := NewSolver()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Solve(tc.formula, tc.vars)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestSolver_Solve_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		formula  string
		vars     map[string]string
		expected error
	}{
		{"unbalanced", "AND(TRUE; FALSE", nil, ErrUnbalancedParentheses},
		{"invalid format", "TRUE", nil, ErrInvalidFormat},
		{"missing parameters", "SUM()", nil, ErrMissingParameters},
		{"unknown operation", "FOO(1;2)", nil, ErrUnknownOperation},
		{"unknown nested operation", "SUM(1; BAR(2))", nil, ErrUnknownOperation},
		{"unknown reference", "EQ(y; 5)", map[string]string{"x": "5"}, ErrUnknownReference},
		{"untaken branch still resolved", "IF(TRUE; 1; FOO(1))", nil, ErrUnknownOperation},
		{"untaken branch with unknown reference", "IF(FALSE; missing; 2)", nil, ErrUnknownReference},
		{"untaken branch with bad arguments", "IF(TRUE; 1; SUM(TRUE; 1))", nil, ErrInvalidArgumentType},
		{"argument type", "NOT(1)", nil, ErrInvalidArgumentType},
		{"argument count", "NOT(TRUE; FALSE)", nil, ErrInvalidNumberOfArguments},
		{"bad context formula", "NOT(x)", map[string]string{"x": "NOT(TRUE"}, ErrUnbalancedParentheses},
		{"unused bad context formula", "NOT(TRUE)", map[string]string{"x": "()"}, ErrInvalidFormat},
	}

	s := NewSolver()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Solve(tc.formula, tc.vars)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.expected)
			assert.Empty(t, got)
		})
	}
}

func TestSolver_UnknownReferenceName(t *testing.T) {
	_, err := Solve("EQ(y; 5)", map[string]string{"x": "5"})

	var unknown *UnknownReferenceError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "y", unknown.Name)
	assert.True(t, IsParseError(err))
	assert.EqualError(t, err, `unknown reference "y"`)
}

func TestSolver_ReferencesResolveOneLevel(t *testing.T) {
	vars := map[string]string{"a": "b", "b": "TRUE"}

	// a resolves to the reference b, which is not chased further.
	_, err := Solve("NOT(a)", vars)
	var typeErr *ArgumentTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, KindReference, typeErr.Received)

	// An unresolved reference can still be selected as a result.
	got, err := Solve("IF(TRUE; a; 0)", vars)
	require.NoError(t, err)
	assert.Equal(t, "b", got)
}

func TestSolver_DepthLimit(t *testing.T) {
	s := NewSolver(WithMaxDepth(3))
	assert.Equal(t, 3, s.MaxDepth())

	got, err := s.Solve("NOT(NOT(NOT(TRUE)))", nil)
	require.NoError(t, err)
	assert.Equal(t, "FALSE", got)

	_, err = s.Solve("NOT(NOT(NOT(NOT(TRUE))))", nil)
	assert.ErrorIs(t, err, ErrDepthExceeded)

	_, err = s.Solve("NOT(x)", map[string]string{"x": "NOT(NOT(NOT(TRUE)))"})
	assert.ErrorIs(t, err, ErrDepthExceeded)
}

func TestSolver_DepthLimitAppliesToParsing(t *testing.T) {
	deep := nested("NOT", 300, "TRUE")

	_, err := Solve(deep, nil)
	assert.ErrorIs(t, err, ErrDepthExceeded)

	got, err := NewSolver(WithMaxDepth(300)).Solve(deep, nil)
	require.NoError(t, err)
	assert.Equal(t, "TRUE", got)

	s := NewSolver(WithMaxDepth(3))
	_, err = s.Parse(nested("NOT", 4, "TRUE"))
	assert.ErrorIs(t, err, ErrDepthExceeded)

	_, err = s.ResolveContext(map[string]string{"x": nested("NOT", 4, "TRUE")})
	assert.ErrorIs(t, err, ErrDepthExceeded)

	_, err = s.Solve("NOT(TRUE)", map[string]string{"unused": nested("NOT", 4, "TRUE")})
	assert.ErrorIs(t, err, ErrDepthExceeded)
}

func TestSolver_SelfReference(t *testing.T) {
	_, err := Solve("NOT(x)", map[string]string{"x": "NOT(x)"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDepthExceeded)
	assert.False(t, IsParseError(err))
	assert.False(t, IsOperationError(err))
}

func TestSolver_Options(t *testing.T) {
	p := NewParser()
	s := NewSolver(WithMaxDepth(0), WithParser(nil), WithParser(p))
	assert.Equal(t, DefaultMaxDepth, s.MaxDepth())
	assert.Same(t, p, s.parser)
}

func TestSolver_SolveFormula(t *testing.T) {
	f := MustFormula("SUM", ReferenceValue("x"), FormulaValue(MustFormula("SUM", NumberValue(1), NumberValue(1))))

	got, err := NewSolver().SolveFormula(f, map[string]Value{"x": NumberValue(0.5)})
	require.NoError(t, err)
	assert.True(t, got.Equal(NumberValue(2.5)))
}

func TestSolver_IsValid(t *testing.T) {
	for _, text := range []string{"AND(TRUE; TRUE)", "AND(TRUE; FALSE", "", "FOO"} {
		assert.True(t, IsValid(text), text)
	}
}

func TestSolver_Concurrent(t *testing.T) {
	s := NewSolver()
	vars := map[string]string{"x": "5", "total": "SUM(x; 5)"}

	var wg sync.WaitGroup
	results := make([]string, 32)
	errs := make([]error, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Solve("IF(EQ(total; 10); SUM(total; x); 0)", vars)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, "15.0", results[i])
	}
}

func BenchmarkSolver_Solve(b *testing.B) {
	s := NewSolver()
	vars := map[string]string{"x": "5", "flag": "TRUE", "total": "SUM(x; 2.5)"}
	const text = "IF(AND(flag; EQ(x; 5)); SUM(total; x; 1); 0)"

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := s.Solve(text, vars); err != nil {
			b.Fatal(err)
		}
	}
}
