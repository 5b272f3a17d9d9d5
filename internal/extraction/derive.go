package extraction

import "github.com/shopspring/decimal"

// deriveMissing fills money fields that direct extraction missed, using
// amount = subtotal + tax. Each rule runs at most once.
//
// Money is rounded to cents but the derived percentage to a whole number.
// The mismatch is long-standing behaviour that callers rely on.
func deriveMissing(d *ReceiptData) {
	if d.Amount != nil && d.SubtotalAmount == nil {
		switch {
		case d.TaxAmount != nil:
			d.SubtotalAmount = Float(round(*d.Amount-*d.TaxAmount, 2))
		case d.TaxPercentage != nil:
			sub := round(*d.Amount/(1+*d.TaxPercentage/100), 2)
			d.SubtotalAmount = &sub
			d.TaxAmount = Float(round(*d.Amount-sub, 2))
		}
	}

	if d.SubtotalAmount != nil && d.TaxAmount != nil && d.TaxPercentage == nil && *d.SubtotalAmount != 0 {
		d.TaxPercentage = Float(round(*d.TaxAmount / *d.SubtotalAmount * 100, 0))
	}
}

// round rounds half away from zero to the given number of decimal places.
func round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
