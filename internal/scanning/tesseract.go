package scanning

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// tesseractWhitelist limits recognition to characters that appear on
// Spanish/English receipts.
const tesseractWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789.,$-/%:áéíóúÁÉÍÓÚñÑ()#@ &"

// Tesseract implements the Scanner interface with a local Tesseract install
type Tesseract struct {
	languages []string
}

// NewTesseract creates a Tesseract scanner. languages uses Tesseract's
// "spa+eng" notation and defaults to Spanish plus English.
func NewTesseract(languages string) *Tesseract {
	if languages == "" {
		languages = "spa+eng"
	}
	return &Tesseract{languages: strings.Split(languages, "+")}
}

// ScanText runs OCR over the receipt
func (t *Tesseract) ScanText(data []byte, contentType string) (string, error) {
	return scanDocument(data, contentType, t.recognize)
}

// recognize uses a fresh client per page; gosseract clients are not safe
// for concurrent use.
func (t *Tesseract) recognize(png []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("setting language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("setting page segmentation mode: %w", err)
	}
	if err := client.SetWhitelist(tesseractWhitelist); err != nil {
		return "", fmt.Errorf("setting whitelist: %w", err)
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("loading image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("running tesseract: %w", err)
	}
	return text, nil
}

// Close is a no-op; clients are released after each page
func (t *Tesseract) Close() error {
	return nil
}
