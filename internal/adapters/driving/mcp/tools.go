package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// DocumentOutput is the document shape returned by every tool.
type DocumentOutput struct {
	DocumentID   string `json:"document_id"`
	Filename     string `json:"filename"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	TotalChunks  int    `json:"total_chunks"`
	PageCount    int    `json:"page_count"`
	CreatedAt    string `json:"created_at"`
}

func toDocumentOutput(d *domain.Document) DocumentOutput {
	return DocumentOutput{
		DocumentID:   d.ID,
		Filename:     d.Filename,
		Status:       string(d.Status),
		ErrorMessage: d.ErrorMessage,
		TotalChunks:  d.TotalChunks,
		PageCount:    d.PageCount,
		CreatedAt:    d.CreatedAt.Format(time.RFC3339),
	}
}

// ListDocumentsInput takes no arguments.
type ListDocumentsInput struct{}

// ListDocumentsOutput lists every registered document.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentIDInput identifies one document.
type DocumentIDInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document identifier"`
}

// GetDocumentOutput is a document with its vector count.
type GetDocumentOutput struct {
	Document    DocumentOutput `json:"document"`
	Namespace   string         `json:"namespace"`
	VectorCount int            `json:"vector_count"`
}

// IngestInput registers a local file and ingests it.
type IngestInput struct {
	Path  string `json:"path" jsonschema:"absolute path of a PDF, DOCX, XLSX or image file"`
	Async bool   `json:"async,omitempty" jsonschema:"return once analysis has started instead of waiting for it to finish"`
}

// QueryInput asks a question about one document.
type QueryInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document to answer from"`
	Question   string `json:"question" jsonschema:"the question to answer"`
}

// SourceOutput is one piece of evidence behind an answer.
type SourceOutput struct {
	Page    int     `json:"page"`
	Section string  `json:"section,omitempty"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
}

// QueryOutput is an answer with its evidence.
type QueryOutput struct {
	Answer    string         `json:"answer"`
	Abstained bool           `json:"abstained"`
	Sources   []SourceOutput `json:"sources"`
}

// DeleteOutput confirms a deletion.
type DeleteOutput struct {
	DocumentID string `json:"document_id"`
	Deleted    bool   `json:"deleted"`
}

// registerTools registers all tool handlers with the MCP server.
// Handler errors are reported to the client as tool results with IsError set.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List uploaded medical documents and their status",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Get a document's status and the number of indexed vectors",
	}, s.handleGetDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_document",
		Description: "Upload a local medical document and analyse it so it can be queried",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_document",
		Description: "Answer a question using only the content of a ready document, citing pages",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_document",
		Description: "Delete a document, its upload and its index",
	}, s.handleDelete)
}

func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.ports.Registry.List(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		output.Documents[i] = toDocumentOutput(&docs[i])
	}
	return nil, output, nil
}

func (s *Server) handleGetDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentIDInput,
) (*mcp.CallToolResult, GetDocumentOutput, error) {
	info, err := s.ports.Registry.Info(ctx, input.DocumentID)
	if err != nil {
		return nil, GetDocumentOutput{}, err
	}
	return nil, GetDocumentOutput{
		Document:    toDocumentOutput(&info.Document),
		Namespace:   info.Namespace,
		VectorCount: info.VectorCount,
	}, nil
}

func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	if input.Path == "" {
		return nil, DocumentOutput{}, fmt.Errorf("%w: path is required", domain.ErrValidation)
	}

	data, err := s.ports.ReadFile(input.Path)
	if err != nil {
		return nil, DocumentOutput{}, fmt.Errorf("reading %s: %w", input.Path, err)
	}

	doc, err := s.ports.Registry.Register(ctx, data, filepath.Base(input.Path))
	if err != nil {
		return nil, DocumentOutput{}, err
	}

	if input.Async {
		doc, err = s.ports.Registry.StartIngest(ctx, doc.ID)
	} else {
		doc, err = s.ports.Registry.Ingest(ctx, doc.ID)
	}
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	return nil, toDocumentOutput(doc), nil
}

func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	res, err := s.ports.Registry.Query(ctx, input.DocumentID, input.Question)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		Answer:    res.Answer,
		Abstained: res.Abstained,
		Sources:   make([]SourceOutput, len(res.Evidence)),
	}
	for i, e := range res.Evidence {
		output.Sources[i] = SourceOutput{
			Page:    e.Chunk.Page,
			Section: e.Chunk.Section,
			Score:   e.Score,
			Text:    e.Chunk.Text,
		}
	}
	return nil, output, nil
}

func (s *Server) handleDelete(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentIDInput,
) (*mcp.CallToolResult, DeleteOutput, error) {
	if err := s.ports.Registry.Delete(ctx, input.DocumentID); err != nil {
		return nil, DeleteOutput{}, err
	}
	return nil, DeleteOutput{DocumentID: input.DocumentID, Deleted: true}, nil
}
