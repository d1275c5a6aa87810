package domain

import "strings"

// ValidateFileType checks a declared file type before any file I/O happens.
func ValidateFileType(fileType string) error {
	ft := FileType(strings.ToLower(strings.TrimSpace(fileType)))
	if !ValidFileTypes[ft] {
		return NewValidationError("file_type", fileType, ErrUnsupportedFileType)
	}
	return nil
}

// ValidateProductID rejects empty product identifiers.
func ValidateProductID(id string) error {
	if strings.TrimSpace(id) == "" {
		return NewValidationError("product_id", id, ErrInvalidProductID)
	}
	return nil
}
