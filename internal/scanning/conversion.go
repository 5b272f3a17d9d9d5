package scanning

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"
	"unicode"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// minTextLayer is the number of non-space characters a PDF text layer needs
// before it is trusted over OCR of the rendered pages.
const minTextLayer = 20

// pageSeparator joins the text of consecutive pages
const pageSeparator = "\n\n"

// ErrUnsupportedFormat is returned when the upload cannot be decoded as an
// image or PDF.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// transcriptionPrompt is shared by the LLM providers. They act as OCR engines
// only; field extraction happens afterwards on the returned text.
const transcriptionPrompt = `You are an OCR engine. Transcribe all text printed on this receipt exactly as it appears.

Rules:
- Keep the original line breaks, one printed line per output line
- Keep numbers, punctuation, currency symbols and accents exactly as printed
- Do not translate, summarize, correct or reorder anything
- Do not add commentary, headings or markdown code blocks
- If a character is unreadable, make your best guess`

// scanDocument runs recognize over every page of a receipt. PDFs with a usable
// text layer skip OCR entirely.
func scanDocument(data []byte, contentType string, recognize recognizer) (string, error) {
	mimeType := normalizeMIME(contentType)

	if mimeType == "application/pdf" {
		text, err := pdfText(data)
		if err != nil {
			return "", fmt.Errorf("reading PDF text: %w", err)
		}
		if hasTextLayer(text) {
			return text, nil
		}

		pages, err := pdfToImages(data)
		if err != nil {
			return "", fmt.Errorf("converting PDF to images: %w", err)
		}
		texts := make([]string, 0, len(pages))
		for i, page := range pages {
			t, err := recognize(page)
			if err != nil {
				return "", fmt.Errorf("recognizing page %d: %w", i+1, err)
			}
			texts = append(texts, strings.TrimSpace(t))
		}
		return strings.Join(texts, pageSeparator), nil
	}

	pngData, err := toPNG(data, mimeType)
	if err != nil {
		return "", err
	}
	text, err := recognize(pngData)
	if err != nil {
		return "", fmt.Errorf("recognizing image: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// normalizeMIME lower-cases the content type and drops any parameters
func normalizeMIME(contentType string) string {
	mimeType, _, _ := strings.Cut(contentType, ";")
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return mimeType
}

// hasTextLayer reports whether extracted PDF text is substantial enough to
// stand in for OCR.
func hasTextLayer(text string) bool {
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n > minTextLayer
}

// pdfText returns the embedded text of every page
func pdfText(pdfData []byte) (string, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		t, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("extracting text from page %d: %w", i+1, err)
		}
		pages = append(pages, strings.TrimSpace(t))
	}
	return strings.TrimSpace(strings.Join(pages, pageSeparator)), nil
}

// pdfToImages renders every page of a PDF to PNG at 300 DPI
func pdfToImages(pdfData []byte) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	images := make([][]byte, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		img, err := doc.ImageDPI(i, 300)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page %d: %w", i+1, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encoding PNG: %w", err)
		}
		images = append(images, buf.Bytes())
	}
	return images, nil
}

// toPNG converts non-PNG images (JPEG, GIF, HEIC/HEIF) to PNG
func toPNG(data []byte, mimeType string) ([]byte, error) {
	if mimeType == "image/png" && !isHEICFormat(data) {
		return data, nil
	}

	var (
		img image.Image
		err error
	)
	if isHEICFormat(data) || isHEICMimeType(mimeType) {
		// Go's standard image package has no HEIC decoder
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: supported formats are JPEG, PNG, GIF, HEIC, HEIF, PDF", ErrUnsupportedFormat)
		}
		if err != nil {
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEICFormat checks for an ftyp box with a HEIC-family brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// cleanTranscription strips the markdown fences and chatter LLMs add around
// a transcription despite being told not to.
func cleanTranscription(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if i := strings.Index(text, "\n"); i >= 0 {
			text = text[i+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}
