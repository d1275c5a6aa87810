// Package docload extracts plain text and source metadata from PDF, DOCX,
// and plain-text files. It owns parse failures only; temp-file lifecycle
// belongs to the upload-handling caller.
package docload

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/PitchlineAI/pitchline-mvp/engine/domain"
)

// Load converts the file at path into loaded sections according to the
// declared type. The type check happens before any file I/O so an
// unsupported type never touches the filesystem.
func Load(path string, fileType string) ([]domain.Section, error) {
	if err := domain.ValidateFileType(fileType); err != nil {
		return nil, err
	}
	switch domain.FileType(strings.ToLower(strings.TrimSpace(fileType))) {
	case domain.FileTypePDF:
		return loadPDF(path)
	case domain.FileTypeDOCX:
		return loadDOCX(path)
	default:
		return loadTXT(path)
	}
}

func loadTXT(path string) ([]domain.Section, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pathError(path, err)
	}
	return []domain.Section{{
		Text:     string(data),
		Metadata: map[string]any{"source": path},
	}}, nil
}

// pathError distinguishes a missing file from an unreadable one so callers
// can decide whether a retry makes sense.
func pathError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("docload: %w: %s", domain.ErrFileNotFound, path)
	}
	return fmt.Errorf("docload: %w: %s: %v", domain.ErrDocumentParse, path, err)
}
