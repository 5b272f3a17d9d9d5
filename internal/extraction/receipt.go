// Package extraction turns raw OCR text from printed purchase receipts into a
// structured ReceiptData record.
//
// The engine is tuned for Spanish/English receipts with Latin-American
// number formatting and the OCR misreads common on Panamanian tax receipts.
// It is pure: no I/O, no clocks, no shared mutable state.
package extraction

// ReceiptData contains the fields extracted from one receipt's OCR text.
// Nil numeric fields and empty strings mean the value is unknown.
type ReceiptData struct {
	RawText        string   `json:"rawText"`
	Amount         *float64 `json:"amount,omitempty"`
	SubtotalAmount *float64 `json:"subtotalAmount,omitempty"`
	TaxAmount      *float64 `json:"taxAmount,omitempty"`
	TaxPercentage  *float64 `json:"taxPercentage,omitempty"`
	VendorName     string   `json:"vendorName,omitempty"`
	InvoiceNumber  string   `json:"invoiceNumber,omitempty"`
	Date           string   `json:"date,omitempty"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
