package docload

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/PitchlineAI/pitchline-mvp/engine/domain"
)

// documentXML mirrors the paragraph/run/text nesting of word/document.xml.
// Element names match by local name, so the wordprocessingml namespace
// needs no declaration here.
type documentXML struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Texts []string `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

// loadDOCX opens the file as a ZIP archive and extracts the text of
// word/document.xml, one line per paragraph.
func loadDOCX(path string) ([]domain.Section, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, pathError(path, err)
	}
	defer reader.Close()

	var data []byte
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("docload: %w: %s: %v", domain.ErrDocumentParse, path, err)
		}
		data, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("docload: %w: %s: %v", domain.ErrDocumentParse, path, err)
		}
		break
	}
	if data == nil {
		return nil, fmt.Errorf("docload: %w: %s: no word/document.xml", domain.ErrDocumentParse, path)
	}

	var doc documentXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("docload: %w: %s: %v", domain.ErrDocumentParse, path, err)
	}

	var b strings.Builder
	for _, p := range doc.Body.Paragraphs {
		var line strings.Builder
		for _, r := range p.Runs {
			for _, t := range r.Texts {
				line.WriteString(t)
			}
		}
		if line.Len() > 0 {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(line.String())
		}
	}

	return []domain.Section{{
		Text:     b.String(),
		Metadata: map[string]any{"source": path},
	}}, nil
}
