package receipt

import "errors"

var (
	// ErrNotFound is returned when a receipt or its file does not exist
	ErrNotFound = errors.New("receipt not found")
	// ErrUnsupportedFileType is returned for uploads that are not PNG, JPEG, PDF or HEIC/HEIF
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrFileTooLarge is returned for uploads over the configured limit
	ErrFileTooLarge = errors.New("file too large")
	// ErrNoFile is returned when an upload has no content
	ErrNoFile = errors.New("no file provided")
	// ErrEmptyText is returned when text parsing is requested without text
	ErrEmptyText = errors.New("text is required")
)
