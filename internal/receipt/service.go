package receipt

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/receipt-ocr/internal/extraction"
	"github.com/zombor/receipt-ocr/internal/scanning"
)

// DefaultMaxUploadBytes is the upload limit used by NewService
const DefaultMaxUploadBytes = 10 << 20

// supportedTypes are the content types ProcessReceipt accepts
var supportedTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"application/pdf": true,
	"image/heic":      true,
	"image/heif":      true,
}

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles receipt operations
type Service struct {
	db             DB
	scanner        scanning.Scanner
	storage        Storage
	idGenerator    IDGenerator
	timeSource     TimeSource
	maxUploadBytes int64
}

// NewService creates a new Service with UUID IDs, the wall clock and the
// default upload limit
func NewService(db DB, scanner scanning.Scanner, storage Storage) *Service {
	return NewServiceWithDeps(db, scanner, storage, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:             db,
		scanner:        scanner,
		storage:        storage,
		idGenerator:    idGen,
		timeSource:     timeSrc,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
}

// SetMaxUploadBytes changes the largest file ProcessReceipt accepts
func (s *Service) SetMaxUploadBytes(n int64) {
	if n > 0 {
		s.maxUploadBytes = n
	}
}

// MaxUploadBytes returns the largest file ProcessReceipt accepts
func (s *Service) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

var (
	reFilenameJunk  = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	reFilenameSpace = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips special characters and truncates phone-generated
// names so they are safe as a storage key suffix
func sanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	ext := strings.ToLower(filepath.Ext(filename))
	if reFilenameJunk.MatchString(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	base = reFilenameJunk.ReplaceAllString(base, "")
	base = strings.TrimSpace(reFilenameSpace.ReplaceAllString(base, " "))
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

// normalizeContentType lower-cases and drops parameters
func normalizeContentType(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

// ProcessReceipt validates and stores an upload, runs OCR and extraction on
// it and saves the result
func (s *Service) ProcessReceipt(filename string, data []byte, contentType string) (*Receipt, error) {
	contentType = normalizeContentType(contentType)
	if len(data) == 0 {
		return nil, ErrNoFile
	}
	if !supportedTypes[contentType] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, contentType)
	}
	if int64(len(data)) > s.maxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit is %d", ErrFileTooLarge, len(data), s.maxUploadBytes)
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	text, err := s.scanner.ScanText(data, contentType)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.removeFile(savedPath)
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	extracted := extraction.Parse(text)
	confidence, needsReview := assess(extracted)

	receipt := &Receipt{
		ID:          id,
		Filename:    filename,
		Path:        savedPath,
		ContentType: contentType,
		UploadedAt:  now,
		Confidence:  confidence,
		NeedsReview: needsReview,
		Data:        extracted,
	}

	if err := s.db.SaveReceipt(receipt); err != nil {
		s.removeFile(savedPath)
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	slog.Info("Extraction completed",
		"id", id,
		"amount", valueOrNil(extracted.Amount),
		"vendor", extracted.VendorName,
		"confidence", confidence,
		"needs_review", needsReview,
	)

	return receipt, nil
}

func (s *Service) removeFile(path string) {
	if err := s.storage.Delete(path); err != nil {
		slog.Warn("Failed to clean up file", "path", path, "error", err)
	}
}

// ParseText runs extraction on already transcribed text without storing it
func (s *Service) ParseText(text string) (*extraction.ReceiptData, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	data := extraction.Parse(text)
	slog.Debug("Parsed text",
		"amount", valueOrNil(data.Amount),
		"subtotal", valueOrNil(data.SubtotalAmount),
		"tax", valueOrNil(data.TaxAmount),
		"vendor", data.VendorName,
		"invoice", data.InvoiceNumber,
		"date", data.Date,
	)
	return &data, nil
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns all receipts, oldest upload first
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	slices.SortStableFunc(receipts, func(a, b *Receipt) int {
		if c := a.UploadedAt.Compare(b.UploadedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return receipts, nil
}

// DeleteReceipt removes a receipt and its file
func (s *Service) DeleteReceipt(id string) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	// A missing file should not keep the record alive
	if err := s.storage.Delete(receipt.Path); err != nil {
		slog.Warn("Failed to delete file", "path", receipt.Path, "error", err)
	}

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// GetReceiptFile retrieves the original upload and its content type
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(receipt.Path)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}

	return data, receipt.ContentType, nil
}

// ExportXLSX writes every receipt to w as an XLSX workbook
func (s *Service) ExportXLSX(w io.Writer) error {
	receipts, err := s.ListReceipts()
	if err != nil {
		return err
	}

	if err := writeXLSX(w, receipts); err != nil {
		return fmt.Errorf("exporting receipts: %w", err)
	}
	return nil
}

func valueOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
