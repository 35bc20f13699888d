package domain

import "strconv"

// SegmentTag is the structural role of an extracted segment.
type SegmentTag string

// Structural tags attached to segments and carried onto chunks.
const (
	TagText      SegmentTag = "text"
	TagHeading   SegmentTag = "heading"
	TagTable     SegmentTag = "table"
	TagSection   SegmentTag = "section"
	TagDosage    SegmentTag = "dosage"
	TagCriteria  SegmentTag = "criteria"
	TagCaseStudy SegmentTag = "case_study"
)

// ParseSegmentTag maps a free-form section type to a known tag.
// Unknown values become TagSection.
func ParseSegmentTag(s string) SegmentTag {
	switch SegmentTag(s) {
	case TagText, TagHeading, TagTable, TagSection, TagDosage, TagCriteria, TagCaseStudy:
		return SegmentTag(s)
	case "":
		return TagText
	default:
		return TagSection
	}
}

// ExtractedSegment is a unit of text produced by extraction.
// Segments are transient and consumed immediately by chunking.
type ExtractedSegment struct {
	// Text is the extracted content.
	Text string

	// Page is the 1-based source page, or 0 when unknown.
	Page int

	// Tag is the optional structural role.
	Tag SegmentTag

	// Section is the section title when known.
	Section string

	// Entities are medical entities reported by the vision capability.
	Entities []string

	// Confidence is the vision capability's confidence in this segment (0 when not reported).
	Confidence float64
}

// Chunk is a bounded unit of document text indexed independently for retrieval.
// Chunks are immutable once created.
type Chunk struct {
	// Index is the 0-based position in the document's chunk sequence.
	Index int `json:"index"`

	// DocumentID links to the owning Document.
	DocumentID string `json:"document_id"`

	// Text is the chunk content.
	Text string `json:"text"`

	// Page is the 1-based source page, or 0 when unknown.
	Page int `json:"page,omitempty"`

	// Section is the source section title when known.
	Section string `json:"section,omitempty"`

	// Tag is the structural role of the source segment.
	Tag SegmentTag `json:"tag,omitempty"`

	// ContentHash identifies the chunk text for idempotent upserts.
	ContentHash string `json:"content_hash"`

	// Entities are medical entities carried over from extraction.
	Entities []string `json:"entities,omitempty"`
}

// Provenance returns a short human-readable source reference.
func (c *Chunk) Provenance() string {
	switch {
	case c.Page > 0 && c.Section != "":
		return "page " + strconv.Itoa(c.Page) + ", " + c.Section
	case c.Page > 0:
		return "page " + strconv.Itoa(c.Page)
	case c.Section != "":
		return c.Section
	default:
		return "document"
	}
}
