package receipt

import (
	"regexp"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-ocr/internal/extraction"
)

// reviewThreshold is the confidence below which a receipt is flagged for
// manual review.
var reviewThreshold = decimal.RequireFromString("0.5")

var reCurrencyMark = regexp.MustCompile(`(?i)[$€£]|B/\.|\b(?:usd|pab|eur)\b`)

// confidenceWeights are added for each signal found; they sum to 1.
var confidenceWeights = struct {
	base, date, currency, amount, vendor, breakdown, length decimal.Decimal
}{
	base:      decimal.RequireFromString("0.2"),
	date:      decimal.RequireFromString("0.2"),
	currency:  decimal.RequireFromString("0.15"),
	amount:    decimal.RequireFromString("0.15"),
	vendor:    decimal.RequireFromString("0.1"),
	breakdown: decimal.RequireFromString("0.1"),
	length:    decimal.RequireFromString("0.1"),
}

// scoreConfidence rates how complete an extraction looks, from 0.2 to 1
func scoreConfidence(d extraction.ReceiptData) decimal.Decimal {
	w := confidenceWeights
	score := w.base
	if d.Date != "" {
		score = score.Add(w.date)
	}
	if reCurrencyMark.MatchString(d.RawText) {
		score = score.Add(w.currency)
	}
	if d.Amount != nil {
		score = score.Add(w.amount)
	}
	if d.VendorName != "" && d.VendorName != extraction.NoVendor {
		score = score.Add(w.vendor)
	}
	if d.SubtotalAmount != nil || d.TaxAmount != nil {
		score = score.Add(w.breakdown)
	}
	// enough content to be a whole receipt
	if utf8.RuneCountInString(d.RawText) > 120 {
		score = score.Add(w.length)
	}
	return decimal.Min(score, decimal.NewFromInt(1))
}

// assess returns the confidence score and whether the receipt needs review
func assess(d extraction.ReceiptData) (float64, bool) {
	score := scoreConfidence(d)
	return score.InexactFloat64(), d.Amount == nil || score.LessThan(reviewThreshold)
}
