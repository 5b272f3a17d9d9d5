package scanning

// Scanner turns an uploaded receipt file into plain text
type Scanner interface {
	// ScanText reads every page of a receipt image or PDF and returns its text
	ScanText(data []byte, contentType string) (string, error)
	// Close closes the scanner and releases resources
	Close() error
}

// recognizer extracts text from a single PNG page
type recognizer func(png []byte) (string, error)
