package extraction

// Parse extracts a ReceiptData from raw OCR text. It never fails: fields
// that cannot be found are left unset. Equal input always yields an equal
// result.
func Parse(rawText string) ReceiptData {
	text := Normalize(rawText)
	data := ReceiptData{RawText: rawText}

	if v, ok := amountCascade.run(text); ok {
		data.Amount = Float(v)
	}
	if v, ok := subtotalCascade.run(text); ok {
		data.SubtotalAmount = Float(v)
	}
	if v, ok := taxAmountCascade.run(text); ok {
		data.TaxAmount = Float(v)
	}
	if v, ok := taxPercentageCascade.run(text); ok {
		data.TaxPercentage = Float(v)
	}
	if v, ok := invoiceCascade.run(text); ok {
		data.InvoiceNumber = v
	}
	if v, ok := dateCascade.run(text); ok {
		data.Date = v
	}

	data.VendorName = ResolveVendor(text)
	deriveMissing(&data)
	return data
}
