package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ilramdhan/formula-solver/pkg/formula"
)

type options struct {
	vars     []string
	maxDepth int
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "fst <formula>",
		Short: "Solve prefix formulas such as SUM(1; 2; 3)",
		Long: `fst solves formulas written as NAME(arg; arg; ...).

Operations: AND, EQ, IF, NOT, OR, SUM. Arguments are booleans (TRUE, FALSE),
numbers, quoted strings, variable names or nested formulas.

Examples:
  fst 'SUM(1; 2; 3)'                      # Result: 6.0
  fst 'AND(foo; foo)' -v foo=TRUE         # Result: TRUE
  fst 'IF(vip; 0; fee)' -v vip=FALSE -v fee=4.5
  fst validate 'EQ(5; "5")'`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, opts, args[0])
		},
	}
	root.PersistentFlags().StringArrayVarP(&opts.vars, "var", "v", nil, "context variable as name=value (repeatable)")
	root.PersistentFlags().IntVar(&opts.maxDepth, "max-depth", formula.DefaultMaxDepth, "maximum formula nesting")

	root.AddCommand(&cobra.Command{
		Use:   "solve <formula>",
		Short: "Solve a formula (default command)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, opts, args[0])
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "validate <formula>",
		Short: "Check whether a formula is valid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !newSolver(opts).IsValid(args[0]) {
				return fmt.Errorf("formula is not valid")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Formula is valid.")
			return nil
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "operations",
		Short: "List the supported operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range formula.Operations() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	})

	return root
}

func newSolver(opts *options) *formula.Solver {
	return formula.NewSolver(formula.WithMaxDepth(opts.maxDepth))
}

func runSolve(cmd *cobra.Command, opts *options, text string) error {
	vars, err := parseVars(opts.vars)
	if err != nil {
		return err
	}
	result, err := newSolver(opts).Solve(text, vars)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Result: %s\n", result)
	return nil
}

// parseVars turns name=value pairs into a context. Only the first '='
// separates, so values may contain '=' themselves.
func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid variable %q: expected name=value", pair)
		}
		vars[name] = value
	}
	return vars, nil
}
