package extraction

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NoVendor is reported when the text has no usable lines at all.
const NoVendor = "-"

var (
	reCashier = regexp.MustCompile(`(?i)(?:cajero|atendido\s*por|server|le\s*atendio|user)\s*[:.]?\s*([a-z0-9\s.]+)`)

	// Lines matching any of these are structural receipt text, never the
	// vendor. Short month/day tokens are whole words so names like UNITED or
	// DOCTOR survive.
	reNoiseLine = regexp.MustCompile(`(?i)comprobante|auxiliar|factura|electronica|ticket|recibo|bienvenido|welcome|sucursal|\bru[cn]\b|\bnit\b|telefono|cajero|vendedor|atendido|atendio|atención|atencion|fecha|hora|folio|terminal|punto|venta|pago|cambio|items|cant|prec|base|impu|unid|\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec|lun|mie|jue|vie|sab|dom)\b`)

	reBusinessSuffix = regexp.MustCompile(`(?i)\b(?:S\.?A\.?|CORP\.?|INC\.?|SRL\.?|LLC\.?|DE C\.?V\.?|DE CV|S DE RL|SA CV)\b`)
	reIssuerLabel    = regexp.MustCompile(`(?i)emisor|empresa|comercio`)
	reLabelPrefix    = regexp.MustCompile(`(?i)^(?:EMISOR|EMPRESA|COMERCIO)[:\s]*`)
	reVendorJunk     = regexp.MustCompile(`[^\w\sáéíóúÁÉÍÓÚñÑ.,&-]`)
	reWhitespace     = regexp.MustCompile(`\s+`)
	reLetter         = regexp.MustCompile(`[A-Za-z]`)
	reDigit          = regexp.MustCompile(`[0-9]`)
)

var knownVendors = []*regexp.Regexp{
	regexp.MustCompile(`(?i)WALMART`),
	regexp.MustCompile(`(?i)COSTCO`),
	regexp.MustCompile(`(?i)AMAZON`),
	regexp.MustCompile(`(?i)STARBUCKS`),
	regexp.MustCompile(`(?i)MCDONALD`),
	regexp.MustCompile(`(?i)SUPERMERCADO`),
	regexp.MustCompile(`(?i)FARMACIA`),
	regexp.MustCompile(`(?i)RESTAURANT`),
}

// vendorDetector is one pass of the vendor pipeline. clean marks candidates
// taken from a raw receipt line, which get label stripping and upper-casing.
type vendorDetector struct {
	name   string
	detect func(lines []string, text string) (string, bool)
	clean  bool
}

// vendorDetectors run in priority order; the first hit wins. A cashier
// name outranks the business name.
var vendorDetectors = []vendorDetector{
	{name: "cashier", detect: detectCashier},
	{name: "business-suffix", detect: detectBusinessSuffix, clean: true},
	{name: "issuer-label", detect: detectIssuerLabel, clean: true},
	{name: "known-vendor", detect: detectKnownVendor, clean: true},
	{name: "generic", detect: detectGenericLine, clean: true},
	{name: "first-line", detect: detectFirstLine, clean: true},
}

// ResolveVendor picks the best vendor or cashier identity from normalized
// receipt text.
func ResolveVendor(text string) string {
	lines := receiptLines(text)
	for _, d := range vendorDetectors {
		v, ok := d.detect(lines, text)
		if !ok {
			continue
		}
		if d.clean {
			return cleanVendor(v)
		}
		return v
	}
	return NoVendor
}

// receiptLines splits text into trimmed lines longer than two characters.
func receiptLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if utf8.RuneCountInString(l) > 2 {
			lines = append(lines, l)
		}
	}
	return lines
}

func head(lines []string, n int) []string {
	if len(lines) < n {
		return lines
	}
	return lines[:n]
}

func detectCashier(_ []string, text string) (string, bool) {
	m := reCashier.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	v := strings.TrimSpace(m[1])
	v = strings.TrimSpace(strings.Split(v, "\n")[0])

	// Drop trailing one-character tokens ("001 A"), keeping at least one.
	for {
		i := strings.LastIndexFunc(v, unicode.IsSpace)
		if i < 0 || utf8.RuneCountInString(v[i+1:]) != 1 {
			break
		}
		v = strings.TrimRightFunc(v[:i], unicode.IsSpace)
	}

	if strings.IndexFunc(v, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) < 0 {
		return "", false
	}
	return v, true
}

func detectBusinessSuffix(lines []string, _ string) (string, bool) {
	for _, l := range head(lines, 15) {
		if reBusinessSuffix.MatchString(l) && !reNoiseLine.MatchString(l) {
			return l, true
		}
	}
	return "", false
}

func detectIssuerLabel(lines []string, _ string) (string, bool) {
	for i, l := range head(lines, 15) {
		loc := reIssuerLabel.FindStringIndex(l)
		if loc == nil {
			continue
		}
		v := strings.TrimSpace(l[:loc[0]] + l[loc[1]:])
		if utf8.RuneCountInString(v) < 3 && i+1 < len(lines) {
			v = lines[i+1]
		}
		return v, v != ""
	}
	return "", false
}

func detectKnownVendor(lines []string, _ string) (string, bool) {
	for _, l := range head(lines, 5) {
		for _, re := range knownVendors {
			if re.MatchString(l) {
				return l, true
			}
		}
	}
	return "", false
}

func detectGenericLine(lines []string, _ string) (string, bool) {
	for _, l := range head(lines, 10) {
		letters := len(reLetter.FindAllStringIndex(l, -1))
		digits := len(reDigit.FindAllStringIndex(l, -1))
		if !reNoiseLine.MatchString(l) && letters > 6 && letters > digits {
			return l, true
		}
	}
	return "", false
}

func detectFirstLine(lines []string, _ string) (string, bool) {
	if len(lines) == 0 {
		return "", false
	}
	return lines[0], true
}

// cleanVendor strips labels and OCR debris and upper-cases the name. If too
// little survives, the original candidate is kept.
func cleanVendor(candidate string) string {
	v := reLabelPrefix.ReplaceAllString(candidate, "")
	v = reVendorJunk.ReplaceAllString(v, "")
	v = reWhitespace.ReplaceAllString(v, " ")
	v = strings.TrimSpace(v)
	v = cases.Upper(language.Spanish).String(v)
	if utf8.RuneCountInString(v) > 2 {
		return v
	}
	return candidate
}
