package formula

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_ParseValue(t *testing.T) {
	p := NewParser()

	testCases := []struct {
		name     string
		token    string
		expected Value
	}{
		{"true", "TRUE", BoolValue(true)},
		{"false", "FALSE", BoolValue(false)},
		{"lower case boolean is a reference", "true", ReferenceValue("true")},
		{"integer", "42", NumberValue(42)},
		{"decimal", "2.5", NumberValue(2.5)},
		{"signed", "-3", NumberValue(-3)},
		{"exponent", "1e3", NumberValue(1000)},
		{"trailing point", "5.", NumberValue(5)},
		{"leading point", ".5", NumberValue(0.5)},
		{"hex is a reference", "0x10", ReferenceValue("0x10")},
		{"inf is a reference", "inf", ReferenceValue("inf")},
		{"quoted string", `"hello"`, StringValue("hello")},
		{"quoted number stays a string", `"5"`, StringValue("5")},
		{"empty string", `""`, StringValue("")},
		{"lone quote is a reference", `"`, ReferenceValue(`"`)},
		{"string keeps inner spaces", `" a b "`, StringValue(" a b ")},
		{"reference", "total", ReferenceValue("total")},
		{"reference is trimmed", "  total ", ReferenceValue("total")},
		{"nested formula", "SUM(1; 2)", FormulaValue(MustFormula("SUM", NumberValue(1), NumberValue(2)))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := p.ParseValue(tc.token)
			require.NoError(t, err)
			assert.Equal(t, tc.expected.Kind(), got.Kind())
			assert.True(t, tc.expected.Equal(got), "got %s", got)
		})
	}
}

func TestParser_ParseValue_OutOfRange(t *testing.T) {
	v, err := ParseValue("1e400")
	require.NoError(t, err)
	n, ok := v.Number()
	require.True(t, ok)
	assert.True(t, math.IsInf(n, 1))
}

func TestParser_ParseValue_MalformedNested(t *testing.T) {
	_, err := ParseValue("SUM(1; (2)")
	assert.ErrorIs(t, err, ErrUnbalancedParentheses)

	_, err = ParseValue("()")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestParser_ParseFormula(t *testing.T) {
	f, err := ParseFormula("IF(EQ(10;10); SUM(5;5); 0)")
	require.NoError(t, err)

	assert.Equal(t, "IF", f.Operation())
	args := f.Arguments()
	require.Len(t, args, 3)
	assert.Equal(t, KindFormula, args[0].Kind())
	assert.Equal(t, KindFormula, args[1].Kind())
	assert.True(t, args[2].Equal(NumberValue(0)))

	cond, _ := args[0].Formula()
	assert.True(t, cond.Equal(MustFormula("EQ", NumberValue(10), NumberValue(10))))
}

func TestParser_ParseFormula_KeepsOperationText(t *testing.T) {
	f, err := ParseFormula("  sum ( 1 ; 2 )  ")
	require.NoError(t, err)
	assert.Equal(t, "sum", f.Operation())
	assert.Len(t, f.Arguments(), 2)
}

func TestParser_ParseFormula_QuotedDelimiters(t *testing.T) {
	f, err := ParseFormula(`EQ(";(3+4"; "3+4;)")`)
	require.NoError(t, err)

	args := f.Arguments()
	require.Len(t, args, 2)
	first, ok := args[0].Text()
	require.True(t, ok)
	assert.Equal(t, ";(3+4", first)
	second, ok := args[1].Text()
	require.True(t, ok)
	assert.Equal(t, "3+4;)", second)
}

func TestParser_ParseFormula_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected error
	}{
		{"no parenthesis", "SUM", ErrInvalidFormat},
		{"empty", "", ErrInvalidFormat},
		{"empty operation", "(1; 2)", ErrInvalidFormat},
		{"trailing text", "SUM(1; 2) x", ErrInvalidFormat},
		{"missing closing parenthesis", "AND(TRUE; FALSE", ErrUnbalancedParentheses},
		{"extra closing parenthesis", "SUM(1; 2))", ErrUnbalancedParentheses},
		{"unclosed nested", "SUM(1; EQ(2; 3)", ErrUnbalancedParentheses},
		{"no arguments", "SUM()", ErrMissingParameters},
		{"blank arguments", "SUM(   )", ErrMissingParameters},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseFormula(tc.text)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.expected)
			assert.True(t, IsParseError(err))
		})
	}
}

func TestParser_ParseFormula_RoundTrip(t *testing.T) {
	for _, text := range []string{
		`EQ(x; "a")`,
		"IF(AND(TRUE; FALSE); SUM(1.0; 2.5); 0.0)",
		`EQ(";(3+4"; "3+4;)")`,
	} {
		t.Run(text, func(t *testing.T) {
			f, err := ParseFormula(text)
			require.NoError(t, err)
			assert.Equal(t, text, f.String())

			again, err := ParseFormula(f.String())
			require.NoError(t, err)
			assert.True(t, f.Equal(again))
		})
	}
}

func nested(op string, n int, leaf string) string {
	return strings.Repeat(op+"(", n) + leaf + strings.Repeat(")", n)
}

func TestParser_NestingLimit(t *testing.T) {
	p := NewParser(WithNestingLimit(3))
	assert.Equal(t, 3, p.MaxDepth())
	assert.Equal(t, DefaultMaxDepth, NewParser(WithNestingLimit(0)).MaxDepth())

	_, err := p.ParseFormula(nested("NOT", 3, "TRUE"))
	require.NoError(t, err)

	_, err = p.ParseFormula(nested("NOT", 4, "TRUE"))
	assert.ErrorIs(t, err, ErrDepthExceeded)
	assert.False(t, IsParseError(err))

	_, err = p.ParseValue(nested("NOT", 4, "TRUE"))
	assert.ErrorIs(t, err, ErrDepthExceeded)

	_, err = p.ResolveContext(map[string]string{"x": nested("NOT", 4, "TRUE")})
	assert.ErrorIs(t, err, ErrDepthExceeded)
	assert.ErrorContains(t, err, `context variable "x"`)

	f, err := p.ParseFormula(`EQ("(((((("; "))))))")`)
	require.NoError(t, err)
	assert.Equal(t, StringValue("(((((("), f.Arguments()[0])
}

func TestParser_DeepInputRejectedEarly(t *testing.T) {
	text := nested("NOT", 20000, "TRUE")

	start := time.Now()
	_, err := ParseFormula(text)
	assert.ErrorIs(t, err, ErrDepthExceeded)
	assert.Less(t, time.Since(start), time.Second)

	start = time.Now()
	_, err = ParseFormula(strings.Repeat("NOT(", 20000))
	assert.ErrorIs(t, err, ErrDepthExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestParser_DeepestAcceptedInput(t *testing.T) {
	tail := "SUM(" + strings.TrimSuffix(strings.Repeat("1; ", 20000), "; ") + ")"
	text := nested("NOT", DefaultMaxDepth-2, "EQ("+tail+"; 20000)")

	f, err := ParseFormula(text)
	require.NoError(t, err)
	assert.Equal(t, "NOT", f.Operation())
}
