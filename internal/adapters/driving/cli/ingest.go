package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/medrag/internal/adapters/driving/tui"
	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
)

var (
	ingestAsync bool
	ingestPlain bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Upload and ingest documents",
	Long: `Registers each file and runs extraction, chunking and indexing.

Supported formats: PDF, PNG, JPEG, DOCX and XLSX. On a terminal a live
progress view is shown; use --plain for line output.`,
	Example: `  medrag ingest label.pdf scan.png
  medrag ingest --async guidelines/*.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestAsync, "async", false, "start ingestion and return immediately")
	ingestCmd.Flags().BoolVar(&ingestPlain, "plain", false, "print progress as plain lines")
	rootCmd.AddCommand(ingestCmd)
}

// errIngestFailed is returned when at least one file did not become ready.
var errIngestFailed = errors.New("some documents failed to ingest")

func runIngest(cmd *cobra.Command, args []string) error {
	reg, err := requireRegistry()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	// Subscribe before anything is published so no progress is missed.
	sub := reg.Subscribe(0)
	defer sub.Unsubscribe()

	failed := false
	docs := make([]domain.Document, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			cmd.Printf("  ✗ %s: %v\n", path, err)
			failed = true
			continue
		}
		doc, err := reg.Register(ctx, data, filepath.Base(path))
		if err != nil {
			cmd.Printf("  ✗ %s: %v\n", path, err)
			failed = true
			continue
		}
		docs = append(docs, *doc)
	}
	if len(docs) == 0 {
		return errIngestFailed
	}

	switch {
	case ingestAsync:
		for i := range docs {
			doc, err := reg.StartIngest(ctx, docs[i].ID)
			if err != nil {
				cmd.Printf("  ✗ %s: %v\n", docs[i].Filename, err)
				failed = true
				continue
			}
			cmd.Printf("  %s  %s  %s\n", doc.ID, doc.Status, doc.Filename)
		}
	case !ingestPlain && isTerminal(cmd.OutOrStdout()):
		if ingestWithProgress(cmd, reg, sub, docs) {
			failed = true
		}
	default:
		if ingestPlainLines(cmd, reg, sub, docs) {
			failed = true
		}
	}

	if failed {
		return errIngestFailed
	}
	return nil
}

// ingestWithProgress starts every ingestion and renders the progress view.
// Returns true if any document failed.
func ingestWithProgress(cmd *cobra.Command, reg driving.DocumentRegistry,
	sub driving.EventSubscription, docs []domain.Document,
) bool {
	ctx := cmd.Context()
	failed := false

	started := docs[:0:0]
	for i := range docs {
		if _, err := reg.StartIngest(ctx, docs[i].ID); err != nil {
			cmd.Printf("  ✗ %s: %v\n", docs[i].Filename, err)
			failed = true
			continue
		}
		started = append(started, docs[i])
	}
	if len(started) == 0 {
		return failed
	}

	model := tui.NewIngestModel(sub, started)
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithOutput(cmd.OutOrStdout()))
	if _, err := p.Run(); err != nil {
		cmd.Printf("progress view: %v\n", err)
	}

	if model.Aborted() {
		cmd.Println("Stopped watching; ingestion continues in the background while medrag runs.")
	}
	for _, o := range model.Outcomes() {
		if !o.Ready {
			failed = true
		}
	}
	printOutcomes(cmd, model.Outcomes())
	return failed
}

// ingestPlainLines ingests documents one by one, printing events as lines.
// Returns true if any document failed.
func ingestPlainLines(cmd *cobra.Command, reg driving.DocumentRegistry,
	sub driving.EventSubscription, docs []domain.Document,
) bool {
	ctx := cmd.Context()
	tracked := make(map[string]bool, len(docs))
	for i := range docs {
		tracked[docs[i].ID] = true
	}

	out := cmd.OutOrStdout()
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range sub.Events() {
			if !tracked[e.DocumentID] {
				continue
			}
			mu.Lock()
			fmt.Fprintf(out, "  [%s] %s\n", e.Level, e.Message)
			mu.Unlock()
		}
	}()

	outcomes := make([]tui.IngestOutcome, 0, len(docs))
	for i := range docs {
		o := tui.IngestOutcome{DocumentID: docs[i].ID, Filename: docs[i].Filename}
		doc, err := reg.Ingest(ctx, docs[i].ID)
		if err != nil {
			o.Message = err.Error()
		} else {
			o.Ready = true
			o.Message = fmt.Sprintf("%d chunks", doc.TotalChunks)
		}
		outcomes = append(outcomes, o)
	}

	sub.Unsubscribe()
	wg.Wait()

	failed := false
	for _, o := range outcomes {
		if !o.Ready {
			failed = true
		}
	}
	printOutcomes(cmd, outcomes)
	return failed
}

func printOutcomes(cmd *cobra.Command, outcomes []tui.IngestOutcome) {
	cmd.Println()
	for _, o := range outcomes {
		mark := "✓"
		if !o.Ready {
			mark = "✗"
		}
		cmd.Printf("  %s %s  %s  %s\n", mark, o.DocumentID, o.Filename, o.Message)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
