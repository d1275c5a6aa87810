package domain

import (
	"errors"
	"testing"
)

func TestValidateFileType_Supported(t *testing.T) {
	for _, ft := range []string{"pdf", "docx", "txt", "PDF", " txt "} {
		if err := ValidateFileType(ft); err != nil {
			t.Errorf("ValidateFileType(%q): unexpected error: %v", ft, err)
		}
	}
}

func TestValidateFileType_Unsupported(t *testing.T) {
	for _, ft := range []string{"csv", "html", "", "pdf.exe"} {
		err := ValidateFileType(ft)
		if err == nil {
			t.Errorf("ValidateFileType(%q): expected error", ft)
			continue
		}
		if !errors.Is(err, ErrUnsupportedFileType) {
			t.Errorf("ValidateFileType(%q): wrong kind: %v", ft, err)
		}
	}
}

func TestValidateProductID(t *testing.T) {
	if err := ValidateProductID("prod-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := ValidateProductID("  ")
	if !errors.Is(err, ErrInvalidProductID) {
		t.Fatalf("expected ErrInvalidProductID, got %v", err)
	}
}

func TestValidationError_Unwrap(t *testing.T) {
	err := NewValidationError("file_type", "csv", ErrUnsupportedFileType)
	if !errors.Is(err, ErrUnsupportedFileType) {
		t.Fatal("ValidationError should unwrap to its sentinel")
	}
	if err.Error() == "" {
		t.Fatal("empty error string")
	}
}

func TestTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{ErrEmbeddingService, true},
		{ErrStorageUnavailable, true},
		{ErrUnsupportedFileType, false},
		{ErrFileNotFound, false},
		{ErrDocumentParse, false},
	}
	for _, c := range cases {
		if got := Transient(c.err); got != c.want {
			t.Errorf("Transient(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}
