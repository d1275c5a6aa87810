package docload

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/PitchlineAI/pitchline-mvp/engine/domain"
)

// loadPDF extracts one section per page, recording the 1-based page number
// in the section metadata.
func loadPDF(path string) (sections []domain.Section, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		return nil, pathError(path, statErr)
	}

	// The pdf library panics on some malformed cross-reference tables;
	// surface those as parse errors instead of crashing the pipeline.
	defer func() {
		if r := recover(); r != nil {
			sections = nil
			err = fmt.Errorf("docload: %w: %s: %v", domain.ErrDocumentParse, path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("docload: %w: %s: %v", domain.ErrDocumentParse, path, err)
	}
	defer f.Close()

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("docload: %w: %s page %d: %v", domain.ErrDocumentParse, path, i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		sections = append(sections, domain.Section{
			Text:     text,
			Metadata: map[string]any{"source": path, "page": i},
		})
	}
	return sections, nil
}
