package httpapi

import (
	"time"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// documentResponse is the JSON shape of a document.
type documentResponse struct {
	ID           string        `json:"document_id"`
	Filename     string        `json:"filename"`
	Size         int64         `json:"size"`
	MIMEType     string        `json:"mime_type"`
	Class        domain.Class  `json:"class"`
	Status       domain.Status `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
	TotalChunks  int           `json:"total_chunks"`
	PageCount    int           `json:"page_count"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	IndexedAt    *time.Time    `json:"indexed_at,omitempty"`
}

func toDocumentResponse(d *domain.Document) documentResponse {
	return documentResponse{
		ID:           d.ID,
		Filename:     d.Filename,
		Size:         d.Size,
		MIMEType:     d.MIMEType,
		Class:        d.Class,
		Status:       d.Status,
		ErrorMessage: d.ErrorMessage,
		TotalChunks:  d.TotalChunks,
		PageCount:    d.PageCount,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		IndexedAt:    d.IndexedAt,
	}
}

type documentListResponse struct {
	Documents []documentResponse `json:"documents"`
	Total     int                `json:"total"`
}

type collectionInfo struct {
	Name        string `json:"name"`
	VectorCount int    `json:"vector_count"`
}

type documentDetailResponse struct {
	documentResponse
	Collection collectionInfo `json:"collection_info"`
}

type chatRequest struct {
	Question   string `json:"question" binding:"required"`
	DocumentID string `json:"document_id" binding:"required"`
}

type sourceResponse struct {
	Page    int               `json:"page"`
	Section string            `json:"section,omitempty"`
	Tag     domain.SegmentTag `json:"tag,omitempty"`
	Score   float64           `json:"score"`
	Excerpt string            `json:"excerpt"`
}

type chatResponse struct {
	Response   string           `json:"response"`
	DocumentID string           `json:"document_id"`
	Abstained  bool             `json:"abstained"`
	Model      string           `json:"model,omitempty"`
	Sources    []sourceResponse `json:"sources"`
}

const excerptRunes = 200

func toChatResponse(res *domain.QueryResult) chatResponse {
	out := chatResponse{
		Response:   res.Answer,
		DocumentID: res.DocumentID,
		Abstained:  res.Abstained,
		Model:      res.Model,
		Sources:    make([]sourceResponse, 0, len(res.Evidence)),
	}
	for _, e := range res.Evidence {
		out.Sources = append(out.Sources, sourceResponse{
			Page:    e.Chunk.Page,
			Section: e.Chunk.Section,
			Tag:     e.Chunk.Tag,
			Score:   e.Score,
			Excerpt: excerpt(e.Chunk.Text),
		})
	}
	return out
}

func excerpt(s string) string {
	r := []rune(s)
	if len(r) <= excerptRunes {
		return s
	}
	return string(r[:excerptRunes]) + "..."
}
