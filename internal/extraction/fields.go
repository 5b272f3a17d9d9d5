package extraction

import (
	"regexp"
	"strconv"
	"strings"
)

// step is one attempt in a field cascade: a pattern and the function that
// turns its match into a value.
type step[T any] struct {
	name    string
	pattern *regexp.Regexp
	extract func(re *regexp.Regexp, text string) (T, bool)
}

// cascade is an ordered list of steps. The first step that yields a value
// wins and the rest are skipped.
type cascade[T any] []step[T]

func (c cascade[T]) run(text string) (T, bool) {
	for _, s := range c {
		if v, ok := s.extract(s.pattern, text); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

var amountCascade = cascade[float64]{
	{
		name:    "total-keyword",
		pattern: regexp.MustCompile(`(?i)\b(?:total|pagar|importe|to?ta?l|tot).*?\$?(\d[\d,]*\.?\d*)`),
		extract: firstAmount,
	},
	{
		// The grand total is usually the largest money-shaped number.
		name:    "largest-two-decimal",
		pattern: regexp.MustCompile(`\d[\d,]*[.,]\d{2}\b`),
		extract: largestAmount(0, false),
	},
	{
		name:    "largest-currency",
		pattern: regexp.MustCompile(`[$€£]?\s*([\d,]+\.\d{2})`),
		extract: largestAmount(1, true),
	},
}

var subtotalCascade = cascade[float64]{
	{
		// cog, cottl, subtt, bi ttl and btl are how OCR tends to read SUBTTL
		// on Panamanian thermal receipts.
		name:    "subtotal-keyword",
		pattern: regexp.MustCompile(`(?i)(?:subtotal|sub-total|sub\s*total|base|neto|subttl|sub\s*ttl|cog|cottl|subtt|bi\s*ttl|btl).*?\$?\s*(\d[\d,]*\.?\d*)`),
		extract: firstAmount,
	},
}

var taxAmountCascade = cascade[float64]{
	{
		// Exactly two decimals keeps "ITBMS 7%" from reading the rate as the
		// amount.
		name:    "tax-keyword",
		pattern: regexp.MustCompile(`(?i)(?:tax|impuesto|iva|itbms|t8ms|i7bms|1tbms|itbns|t8ns|vat|igv|imp)(?:\s+\d{1,2}%)?.*?\$?\s*(\d[\d,]*\.\d{2})`),
		extract: firstAmount,
	},
}

var taxPercentageCascade = cascade[float64]{
	{
		name:    "tax-keyword-percent",
		pattern: regexp.MustCompile(`(?i)(?:tax|itbms|t8ms|iva|vat|imp).*?(\d{1,2}(?:\.\d+)?)%`),
		extract: firstFloat,
	},
	{
		name:    "isolated-percent",
		pattern: regexp.MustCompile(`\b(\d{1,2}(?:\.\d+)?)%`),
		extract: firstFloat,
	},
}

// invoiceNoise are words that commonly follow an invoice label but are not
// the number itself ("FACTURA ELECTRONICA", "No. DE ...").
var invoiceNoise = []string{"electronica", "vventa", "fiscal", "de", "el", "la", "no", "nro"}

var invoiceCascade = cascade[string]{
	{
		name:    "invoice-keyword",
		pattern: regexp.MustCompile(`(?i)\b(?:invoice|factura|folio|ticket|ref|recibo|doc|número|numero|num|no|facturacion)\.?\s*#?[:\s]+([a-z0-9-]{3,})`),
		extract: firstInvoiceToken,
	},
	{
		name:    "point-of-sale",
		pattern: regexp.MustCompile(`(?i)(?:pto\.?\s*facturacion|sucursal).*?[:\s]+(\d+)`),
		extract: firstGroup,
	},
}

var dateCascade = cascade[string]{
	{
		name:    "day-month-year",
		pattern: regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-](?:\d{4}|\d{2})`),
		extract: wholeMatch,
	},
}

func firstAmount(re *regexp.Regexp, text string) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := ParseCurrency(m[1])
	if err != nil {
		return 0, false
	}
	return v, true
}

// largestAmount returns an extractor that parses capture group `group` of
// every match and keeps the maximum. With positive set, a maximum of zero
// counts as no match.
func largestAmount(group int, positive bool) func(*regexp.Regexp, string) (float64, bool) {
	return func(re *regexp.Regexp, text string) (float64, bool) {
		var (
			best  float64
			found bool
		)
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			v, err := ParseCurrency(m[group])
			if err != nil {
				continue
			}
			if !found || v > best {
				best = v
				found = true
			}
		}
		if positive && best <= 0 {
			return 0, false
		}
		return best, found
	}
}

func firstFloat(re *regexp.Regexp, text string) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func firstGroup(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func wholeMatch(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindString(text)
	return m, m != ""
}

// firstInvoiceToken walks the label matches in order and returns the first
// token that is not a noise word.
func firstInvoiceToken(re *regexp.Regexp, text string) (string, bool) {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if !isInvoiceNoise(m[1]) {
			return m[1], true
		}
	}
	return "", false
}

// isInvoiceNoise reports whether token is, or starts with, a noise word
// followed by a word break.
func isInvoiceNoise(token string) bool {
	token = strings.ToLower(token)
	for _, w := range invoiceNoise {
		if token == w || strings.HasPrefix(token, w+"-") {
			return true
		}
	}
	return false
}
