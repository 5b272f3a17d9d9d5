package receipt

import (
	"time"

	"github.com/zombor/receipt-ocr/internal/extraction"
)

// Receipt is an uploaded receipt together with what was extracted from it
type Receipt struct {
	ID          string                 `json:"id"`
	Filename    string                 `json:"filename"`
	Path        string                 `json:"path"` // key of the original file in Storage
	ContentType string                 `json:"content_type"`
	UploadedAt  time.Time              `json:"uploaded_at"`
	Confidence  float64                `json:"confidence"`
	NeedsReview bool                   `json:"needs_review"`
	Data        extraction.ReceiptData `json:"data"`
}
