// Package formula parses and solves prefix function-call formulas such as
// "SUM(1; 2; 3)" or "IF(EQ(x; 5); TRUE; FALSE)".
//
// A formula is an operation name followed by a parenthesized list of
// arguments separated by semicolons. Arguments are boolean literals (TRUE,
// FALSE), decimal numbers, double-quoted strings, nested formulas, or bare
// names that are looked up in a caller-supplied context when the formula is
// solved.
//
// Every argument of every operation is resolved before the operation runs,
// including the branch of IF that is not taken.
package formula
