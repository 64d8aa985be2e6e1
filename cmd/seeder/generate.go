package main

import (
	"math/rand"

	"github.com/ilramdhan/formula-solver/pkg/formula"
)

// generatedVariables is the default context of every generated formula
var generatedVariables = map[string]string{
	"x":     "1.5",
	"y":     "2",
	"flag":  "TRUE",
	"label": `"seed"`,
}

// generator builds random well-typed formulas over generatedVariables
type generator struct {
	rnd      *rand.Rand
	maxDepth int
}

func newGenerator(seed int64, maxDepth int) *generator {
	return &generator{rnd: rand.New(rand.NewSource(seed)), maxDepth: maxDepth}
}

// Formula returns a formula whose result is a number or a boolean
func (g *generator) Formula() formula.Formula {
	if g.rnd.Intn(2) == 0 {
		return g.numberFormula(0)
	}
	return g.boolFormula(0)
}

func (g *generator) args(n int, next func(int) formula.Value, depth int) []formula.Value {
	args := make([]formula.Value, n)
	for i := range args {
		args[i] = next(depth + 1)
	}
	return args
}

func (g *generator) numberFormula(depth int) formula.Formula {
	if g.rnd.Intn(3) == 0 {
		cond := g.boolValue(depth + 1)
		return formula.MustFormula("IF", cond, g.numberValue(depth+1), g.numberValue(depth+1))
	}
	return formula.MustFormula("SUM", g.args(2+g.rnd.Intn(3), g.numberValue, depth)...)
}

func (g *generator) boolFormula(depth int) formula.Formula {
	switch g.rnd.Intn(4) {
	case 0:
		return formula.MustFormula("NOT", g.boolValue(depth+1))
	case 1:
		return formula.MustFormula("EQ", g.numberValue(depth+1), g.numberValue(depth+1))
	case 2:
		return formula.MustFormula("AND", g.args(2+g.rnd.Intn(2), g.boolValue, depth)...)
	default:
		return formula.MustFormula("OR", g.args(2+g.rnd.Intn(2), g.boolValue, depth)...)
	}
}

func (g *generator) numberValue(depth int) formula.Value {
	if depth < g.maxDepth && g.rnd.Intn(3) == 0 {
		return formula.FormulaValue(g.numberFormula(depth))
	}
	switch g.rnd.Intn(4) {
	case 0:
		return formula.ReferenceValue("x")
	case 1:
		return formula.ReferenceValue("y")
	default:
		return formula.NumberValue(float64(g.rnd.Intn(200)-100) / 4)
	}
}

func (g *generator) boolValue(depth int) formula.Value {
	if depth < g.maxDepth && g.rnd.Intn(3) == 0 {
		return formula.FormulaValue(g.boolFormula(depth))
	}
	switch g.rnd.Intn(3) {
	case 0:
		return formula.ReferenceValue("flag")
	default:
		return formula.BoolValue(g.rnd.Intn(2) == 0)
	}
}

// samples are hand-written definitions seeded by name
var samples = []struct {
	Name        string
	Expression  string
	Variables   map[string]string
	Description string
}{
	{"sum-of-three", "SUM(1; 2; 3)", nil, "Integral sums keep their fraction: 6.0"},
	{"fractional-sum", "SUM(2.5; 3.1; 4)", nil, "Left to right addition: 9.6"},
	{"cross-type-equality", `EQ(5; "5")`, nil, "Numbers equal their canonical text"},
	{"nested-branch", "IF(EQ(10;10); SUM(5;5); 0)", nil, "Nested formulas in every position"},
	{"reference-reuse", "AND(foo; foo)", map[string]string{"foo": "TRUE"}, "One variable used twice"},
	{"quoted-delimiters", `EQ(";(3+4"; "3+4;)")`, nil, "Separators and parentheses inside quotes are literal"},
	{"shipping-fee", "IF(OR(member; EQ(region; \"local\")); 0; SUM(base; surcharge))",
		map[string]string{"member": "FALSE", "region": `"remote"`, "base": "7.5", "surcharge": "2.25"},
		"Free shipping for members and local orders"},
	{"derived-total", "SUM(subtotal; tax)",
		map[string]string{"subtotal": "SUM(price; extras)", "price": "40", "extras": "12.5", "tax": "4.2"},
		"Context variables may hold formulas"},
	{"eager-branch", "IF(TRUE; 1; FOO(1))", nil, "Fails: untaken branches are still resolved"},
	{"self-reference", "NOT(x)", map[string]string{"x": "NOT(x)"}, "Fails: nesting exceeds the depth limit"},
}
