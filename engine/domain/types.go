// Package domain defines core domain types, constants, and validation for
// the Pitchline retrieval pipeline. It acts as the validation gate at
// pipeline entry points.
package domain

import "time"

// FileType identifies a supported document format.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
	FileTypeTXT  FileType = "txt"
)

// ValidFileTypes is the set of formats the document loader accepts.
var ValidFileTypes = map[FileType]bool{
	FileTypePDF:  true,
	FileTypeDOCX: true,
	FileTypeTXT:  true,
}

// Section is one loaded unit of a source document: a PDF page, or the whole
// body for DOCX/TXT. Metadata carries source-derived attributes (page number,
// source file) and is passed through to chunks unmodified.
type Section struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// Feature describes one product capability, with benefit bullets keyed by
// client role category.
type Feature struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Benefits    map[string][]string `json:"benefits,omitempty"`
}

// Product is a catalog record. VectorIDs lists the chunk ids stored for the
// product, appended to on every ingestion; deleting a product is the
// caller's cue to also delete its chunks.
type Product struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Features          []Feature `json:"features,omitempty"`
	DocumentationURLs []string  `json:"documentation_urls,omitempty"`
	VectorIDs         []string  `json:"vector_ids,omitempty"`
	CreatedBy         string    `json:"created_by,omitempty"`
	CreatedAt         time.Time `json:"created_at,omitempty"`
	UpdatedAt         time.Time `json:"updated_at,omitempty"`
}
