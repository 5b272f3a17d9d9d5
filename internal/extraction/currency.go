package extraction

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoDigits is returned by ParseCurrency when the token holds no digits.
var ErrNoDigits = errors.New("currency token has no digits")

var (
	reNonNumeric    = regexp.MustCompile(`[^0-9.,]`)
	reNumericPrefix = regexp.MustCompile(`^(?:\d+(?:\.\d*)?|\.\d+)`)
)

// ParseCurrency converts a locale-ambiguous amount such as "$1,234.56" or
// "45,90" into a float.
//
// A comma with no dot present is read as the decimal separator; in every
// other case commas are thousands separators. Only the leading numeric
// prefix is parsed, so trailing OCR debris ("12.00.") is ignored.
func ParseCurrency(token string) (float64, error) {
	clean := reNonNumeric.ReplaceAllString(token, "")
	if strings.IndexAny(clean, "0123456789") == -1 {
		return 0, ErrNoDigits
	}

	if strings.Contains(clean, ",") && !strings.Contains(clean, ".") {
		i := strings.LastIndex(clean, ",")
		clean = strings.ReplaceAll(clean[:i], ",", "") + "." + clean[i+1:]
	} else {
		clean = strings.ReplaceAll(clean, ",", "")
	}

	prefix := reNumericPrefix.FindString(clean)
	if prefix == "" {
		return 0, ErrNoDigits
	}
	return strconv.ParseFloat(prefix, 64)
}
