package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilramdhan/formula-solver/pkg/formula"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSolve(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"default command", []string{"SUM(1; 2; 3)"}, "Result: 6.0\n"},
		{"solve subcommand", []string{"solve", "SUM(2.5; 3.1; 4)"}, "Result: 9.6\n"},
		{"variables", []string{"AND(foo; foo)", "-v", "foo=TRUE"}, "Result: TRUE\n"},
		{"long flag", []string{"IF(vip; 0; fee)", "--var", "vip=FALSE", "--var", "fee=4.5"}, "Result: 4.5\n"},
		{"value containing equals", []string{"EQ(x; \"a=b\")", "-v", "x=\"a=b\""}, "Result: TRUE\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestSolve_Errors(t *testing.T) {
	_, err := execute(t, "SUM(1; TRUE)")
	assert.ErrorIs(t, err, formula.ErrInvalidArgumentType)

	_, err = execute(t, "NOT(x)")
	assert.ErrorIs(t, err, formula.ErrUnknownReference)

	_, err = execute(t, "NOT(NOT(TRUE))", "--max-depth", "1")
	assert.ErrorIs(t, err, formula.ErrDepthExceeded)

	_, err = execute(t, "NOT(x)", "-v", "x")
	assert.ErrorContains(t, err, `invalid variable "x"`)

	_, err = execute(t)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	out, err := execute(t, "validate", `EQ(5; "5")`)
	require.NoError(t, err)
	assert.Equal(t, "Formula is valid.\n", out)
}

func TestOperations(t *testing.T) {
	out, err := execute(t, "operations")
	require.NoError(t, err)
	assert.Equal(t, "AND\nEQ\nIF\nNOT\nOR\nSUM\n", out)
}

func TestParseVars(t *testing.T) {
	vars, err := parseVars([]string{" a =1", "b=", "c=x=y"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "", "c": "x=y"}, vars)

	_, err = parseVars([]string{"=1"})
	assert.Error(t, err)
}
