package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

var (
	listJSON     bool
	showJSON     bool
	analyzeAsync bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered documents",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show [document-id]",
	Short: "Show a document and its index",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [document-id]",
	Short: "Delete a document, its upload and its vectors",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [document-id]",
	Short: "Run (or re-run) ingestion for a registered document",
	Long: `Extracts, chunks and indexes a registered document. A ready or failed
document is re-ingested from its stored upload.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "output as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeAsync, "async", false, "start ingestion and return immediately")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	reg, err := requireRegistry()
	if err != nil {
		return err
	}

	docs, err := reg.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if listJSON {
		summaries := make([]domain.DocumentSummary, 0, len(docs))
		for i := range docs {
			summaries = append(summaries, docs[i].Summary())
		}
		return printJSON(cmd, summaries)
	}

	if len(docs) == 0 {
		cmd.Println("No documents registered.")
		return nil
	}

	for i := range docs {
		d := &docs[i]
		cmd.Printf("  %s  %-9s  %s", d.ID, d.Status, d.Filename)
		if d.Status == domain.StatusReady {
			cmd.Printf(" (%d chunks)", d.TotalChunks)
		}
		cmd.Println()
	}
	cmd.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

// documentDetail is the JSON shape of 'medrag show'.
type documentDetail struct {
	ID           string     `json:"id"`
	Filename     string     `json:"filename"`
	Size         int64      `json:"size"`
	MIMEType     string     `json:"mime_type"`
	Class        string     `json:"class"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	TotalChunks  int        `json:"total_chunks"`
	PageCount    int        `json:"page_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	IndexedAt    *time.Time `json:"indexed_at,omitempty"`
	Namespace    string     `json:"namespace"`
	VectorCount  int        `json:"vector_count"`
}

func runShow(cmd *cobra.Command, args []string) error {
	reg, err := requireRegistry()
	if err != nil {
		return err
	}

	info, err := reg.Info(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	d := info.Document

	if showJSON {
		return printJSON(cmd, documentDetail{
			ID:           d.ID,
			Filename:     d.Filename,
			Size:         d.Size,
			MIMEType:     d.MIMEType,
			Class:        d.Class.String(),
			Status:       d.Status.String(),
			ErrorMessage: d.ErrorMessage,
			TotalChunks:  d.TotalChunks,
			PageCount:    d.PageCount,
			CreatedAt:    d.CreatedAt,
			UpdatedAt:    d.UpdatedAt,
			IndexedAt:    d.IndexedAt,
			Namespace:    info.Namespace,
			VectorCount:  info.VectorCount,
		})
	}

	cmd.Printf("Document: %s\n\n", d.ID)
	cmd.Printf("  Filename:  %s\n", d.Filename)
	cmd.Printf("  Type:      %s (%s, %d bytes)\n", d.Class, d.MIMEType, d.Size)
	cmd.Printf("  Status:    %s\n", d.Status)
	if d.ErrorMessage != "" {
		cmd.Printf("  Error:     %s\n", d.ErrorMessage)
	}
	cmd.Printf("  Pages:     %d\n", d.PageCount)
	cmd.Printf("  Chunks:    %d\n", d.TotalChunks)
	cmd.Printf("  Vectors:   %d in %s\n", info.VectorCount, info.Namespace)
	cmd.Printf("  Created:   %s\n", d.CreatedAt.Format("2006-01-02 15:04:05"))
	if d.IndexedAt != nil {
		cmd.Printf("  Indexed:   %s\n", d.IndexedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	reg, err := requireRegistry()
	if err != nil {
		return err
	}

	if err := reg.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s deleted.\n", args[0])
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	reg, err := requireRegistry()
	if err != nil {
		return err
	}

	if analyzeAsync {
		doc, err := reg.StartIngest(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to start ingestion: %w", err)
		}
		cmd.Printf("Ingestion of %s started (%s).\n", doc.Filename, doc.Status)
		return nil
	}

	cmd.Printf("Analysing %s...\n", args[0])
	doc, err := reg.Ingest(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	cmd.Printf("Document %s is ready: %d chunks from %d pages.\n", doc.ID, doc.TotalChunks, doc.PageCount)
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
