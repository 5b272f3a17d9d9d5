package extraction

import "regexp"

// rewrite is one OCR correction applied by Normalize.
type rewrite struct {
	pattern     *regexp.Regexp
	replacement string
	// untilStable re-applies the rule until the text stops changing, for
	// patterns whose matches can overlap ("1l1l1").
	untilStable bool
}

// rewrites are applied in order. Later field patterns only know the
// canonical labels produced here (the tax extractors match ITBMS, never
// 1TBMS), so the order is part of the contract.
var rewrites = []rewrite{
	{pattern: regexp.MustCompile(`(?i)ELECTRONEN`), replacement: "ELECTRONICA"},
	{pattern: regexp.MustCompile(`(?i)RUC[ \t]*[:.;]?[ \t]*([0-9-]+)`), replacement: "RUC: ${1}"},
	{pattern: regexp.MustCompile(`(?i)FACTURA[ \t]*ELECTR[O0]?N?I?C?A?`), replacement: "FACTURA ELECTRONICA"},
	{pattern: regexp.MustCompile(`(?i)BIEN[ \t]*VENIDO`), replacement: "BIENVENIDO"},
	{pattern: regexp.MustCompile(`(?i)SUB[ \t]*TTL`), replacement: "SUBTOTAL"},
	{pattern: regexp.MustCompile(`(?i)TOTAL[ \t]*A[ \t]*PAGAR`), replacement: "TOTAL"},
	{pattern: regexp.MustCompile(`[1lI]TBMS`), replacement: "ITBMS"},
	{pattern: regexp.MustCompile(`IT[ \t]+BMS`), replacement: "ITBMS"},
	{pattern: regexp.MustCompile(`(?i)FACT[ \t]+URA`), replacement: "FACTURA"},
	{pattern: regexp.MustCompile(`(?i)NO\.[ \t]+FEL`), replacement: "No."},
	{pattern: regexp.MustCompile(`(\d)[ \t]+\.`), replacement: "${1}."},
	{pattern: regexp.MustCompile(`(\d)[lI](\d)`), replacement: "${1}1${2}", untilStable: true},
	{pattern: regexp.MustCompile(`(\d)O(\d)`), replacement: "${1}0${2}", untilStable: true},
	{pattern: regexp.MustCompile(`\r\n?`), replacement: "\n"},
}

// Normalize rewrites the OCR misreads the field extractors depend on.
// It is lossy and specific to the receipt dialect handled by this package.
func Normalize(text string) string {
	for _, rw := range rewrites {
		text = rw.apply(text)
	}
	return text
}

func (rw rewrite) apply(text string) string {
	out := rw.pattern.ReplaceAllString(text, rw.replacement)
	if !rw.untilStable {
		return out
	}
	for out != text {
		text = out
		out = rw.pattern.ReplaceAllString(text, rw.replacement)
	}
	return out
}
