package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// NamespacePrefix prefixes every document's vector namespace.
const NamespacePrefix = "medical_doc_"

// Status is the lifecycle state of a document.
type Status string

// Document lifecycle states.
const (
	// StatusUploaded means the document is registered but not yet ingested.
	StatusUploaded Status = "uploaded"

	// StatusAnalyzing means an ingestion is in flight.
	StatusAnalyzing Status = "analyzing"

	// StatusReady means the namespace is populated and the document can be queried.
	StatusReady Status = "ready"

	// StatusError means the last ingestion attempt failed.
	StatusError Status = "error"
)

// IsValid returns true if the status is recognised.
func (s Status) IsValid() bool {
	switch s {
	case StatusUploaded, StatusAnalyzing, StatusReady, StatusError:
		return true
	default:
		return false
	}
}

// CanIngest returns true if an ingestion may start from this status.
func (s Status) CanIngest() bool {
	return s == StatusUploaded || s == StatusError || s == StatusReady
}

// String returns the string representation.
func (s Status) String() string {
	return string(s)
}

// Class is the coarse format family of an uploaded document.
// It decides whether extraction uses the vision capability or reads text directly.
type Class string

// Supported document classes.
const (
	ClassPDF   Class = "pdf"
	ClassImage Class = "image"
	ClassDOCX  Class = "docx"
	ClassXLSX  Class = "xlsx"
)

// IsTextNative returns true if the class is extracted without the vision capability.
func (c Class) IsTextNative() bool {
	return c == ClassDOCX || c == ClassXLSX
}

// String returns the string representation.
func (c Class) String() string {
	return string(c)
}

// ClassForExtension maps a filename extension to its document class.
// Returns false for unsupported extensions.
func ClassForExtension(filename string) (Class, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return ClassPDF, true
	case ".jpg", ".jpeg", ".png":
		return ClassImage, true
	case ".docx":
		return ClassDOCX, true
	case ".xlsx":
		return ClassXLSX, true
	default:
		return "", false
	}
}

// Document is an uploaded medical document tracked by the registry.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Filename is the original upload name.
	Filename string

	// Size is the raw upload size in bytes.
	Size int64

	// MIMEType is the sniffed content type of the upload.
	MIMEType string

	// Class is the format family derived from the upload.
	Class Class

	// Status is the lifecycle state.
	Status Status

	// ErrorMessage is set iff Status is StatusError.
	ErrorMessage string

	// TotalChunks is the number of chunks indexed by the last successful ingestion.
	TotalChunks int

	// PageCount is the number of extraction units (pages or images) seen by the last ingestion.
	PageCount int

	// CreatedAt is when the document was registered.
	CreatedAt time.Time

	// UpdatedAt is when the document record last changed.
	UpdatedAt time.Time

	// IndexedAt is when the document last reached StatusReady.
	IndexedAt *time.Time
}

// Namespace returns the vector namespace owned by this document.
func (d *Document) Namespace() string {
	return NamespaceFor(d.ID)
}

// Summary returns the exchanged summary shape of the document.
func (d *Document) Summary() DocumentSummary {
	return DocumentSummary{
		ID:          d.ID,
		Filename:    d.Filename,
		Status:      d.Status,
		TotalChunks: d.TotalChunks,
	}
}

// NamespaceFor derives the vector namespace for a document ID.
func NamespaceFor(documentID string) string {
	return NamespacePrefix + documentID
}

// DocumentSummary is the compact document shape returned to callers.
type DocumentSummary struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Status      Status `json:"status"`
	TotalChunks int    `json:"total_chunks"`
}

// DocumentInfo is a document together with live namespace details.
type DocumentInfo struct {
	Document Document

	// Namespace is the vector namespace name.
	Namespace string

	// VectorCount is the number of vectors currently stored in the namespace.
	VectorCount int
}
