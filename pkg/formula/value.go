package formula

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBoolean
	KindNumber
	KindString
	KindReference
	KindFormula
)

var kindNames = [...]string{
	KindInvalid:   "Invalid",
	KindBoolean:   "Boolean",
	KindNumber:    "Number",
	KindString:    "String",
	KindReference: "Reference",
	KindFormula:   "Nested Formula",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Boolean literals as written in formulas and rendered in results.
const (
	trueLiteral  = "TRUE"
	falseLiteral = "FALSE"
)

// Value is a literal, a reference to a context variable, or a nested formula.
// The zero Value is invalid. Values are immutable.
type Value struct {
	kind Kind
	b    bool
	n    float64
	// s is the text of a string or the name of a reference.
	s string
	f *Formula
}

// BoolValue creates a boolean value.
func BoolValue(b bool) Value {
	return Value{kind: KindBoolean, b: b}
}

// NumberValue creates a number value.
func NumberValue(n float64) Value {
	return Value{kind: KindNumber, n: n}
}

// StringValue creates a string value.
func StringValue(s string) Value {
	return Value{kind: KindString, s: s}
}

// ReferenceValue creates an unresolved reference to a context variable.
func ReferenceValue(name string) Value {
	return Value{kind: KindReference, s: name}
}

// FormulaValue wraps a formula to be solved before use as an argument.
func FormulaValue(f Formula) Value {
	return Value{kind: KindFormula, f: &f}
}

// Kind returns the variant of v.
func (v Value) Kind() Kind {
	return v.kind
}

// Bool returns the boolean held by v.
func (v Value) Bool() (bool, bool) {
	return v.b, v.kind == KindBoolean
}

// Number returns the number held by v.
func (v Value) Number() (float64, bool) {
	return v.n, v.kind == KindNumber
}

// Text returns the string held by v.
func (v Value) Text() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// Name returns the variable name of a reference.
func (v Value) Name() (string, bool) {
	if v.kind != KindReference {
		return "", false
	}
	return v.s, true
}

// Formula returns the nested formula held by v.
func (v Value) Formula() (Formula, bool) {
	if v.kind != KindFormula {
		return Formula{}, false
	}
	return *v.f, true
}

// Equal reports whether v and w are equal. Values of the same kind compare
// structurally. A number equals a string when the string is exactly the
// number's canonical text (see CanonicalNumber), so 5 equals "5" but not
// "5.0". Any other mix of kinds is unequal.
func (v Value) Equal(w Value) bool {
	switch {
	case v.kind == KindNumber && w.kind == KindString:
		return CanonicalNumber(v.n) == w.s
	case v.kind == KindString && w.kind == KindNumber:
		return v.s == CanonicalNumber(w.n)
	case v.kind != w.kind:
		return false
	}
	switch v.kind {
	case KindBoolean:
		return v.b == w.b
	case KindNumber:
		return v.n == w.n
	case KindString, KindReference:
		return v.s == w.s
	case KindFormula:
		return v.f.Equal(*w.f)
	}
	return true
}

// String renders v as result text: TRUE or FALSE for booleans, FormatNumber
// for numbers, the verbatim text for strings, the variable name for
// references and the formula text for nested formulas.
func (v Value) String() string {
	switch v.kind {
	case KindBoolean:
		if v.b {
			return trueLiteral
		}
		return falseLiteral
	case KindNumber:
		return FormatNumber(v.n)
	case KindString, KindReference:
		return v.s
	case KindFormula:
		return v.f.String()
	}
	return "<invalid>"
}

// literal renders v as it would be written inside a formula.
func (v Value) literal() string {
	if v.kind == KindString {
		return string(quote) + v.s + string(quote)
	}
	return v.String()
}

// CanonicalNumber returns the canonical decimal text of n used when a number
// is compared with a string: the shortest digits that round-trip, with no
// forced fraction ("5", "2.5"). Magnitudes below 1e-4 or at least 1e16 use
// exponent form with a signed, two-digit exponent ("1e+16", "1.5e-05").
func CanonicalNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "nan"
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	}
	if a := math.Abs(n); a != 0 && (a < 1e-4 || a >= 1e16) {
		return strconv.FormatFloat(n, 'e', -1, 64)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// FormatNumber returns the result text of n. It is CanonicalNumber with a
// trailing ".0" added to plain integral values, so 6 renders as "6.0".
func FormatNumber(n float64) string {
	s := CanonicalNumber(n)
	if strings.ContainsAny(s, ".en") {
		return s
	}
	return s + ".0"
}
