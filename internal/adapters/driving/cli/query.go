package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var queryJSON bool

var queryCmd = &cobra.Command{
	Use:   "query [document-id] [question]",
	Short: "Ask a question about a ready document",
	Long: `Answers a question using only the content of one document. When the
document does not contain the answer, medrag says so instead of guessing.`,
	Example: `  medrag query 3f2a... "What is the maximum daily dose?"`,
	Args:    cobra.MinimumNArgs(2),
	RunE:    runQuery,
}

func init() {
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(queryCmd)
}

// queryOutput is the JSON shape of 'medrag query'.
type queryOutput struct {
	DocumentID string         `json:"document_id"`
	Answer     string         `json:"answer"`
	Abstained  bool           `json:"abstained"`
	Model      string         `json:"model,omitempty"`
	Sources    []sourceOutput `json:"sources"`
}

type sourceOutput struct {
	Page    int     `json:"page,omitempty"`
	Section string  `json:"section,omitempty"`
	Tag     string  `json:"tag"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	reg, err := requireRegistry()
	if err != nil {
		return err
	}

	documentID := args[0]
	question := strings.TrimSpace(strings.Join(args[1:], " "))

	res, err := reg.Query(cmd.Context(), documentID, question)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		out := queryOutput{
			DocumentID: res.DocumentID,
			Answer:     res.Answer,
			Abstained:  res.Abstained,
			Model:      res.Model,
			Sources:    make([]sourceOutput, 0, len(res.Evidence)),
		}
		for _, ev := range res.Evidence {
			out.Sources = append(out.Sources, sourceOutput{
				Page:    ev.Chunk.Page,
				Section: ev.Chunk.Section,
				Tag:     string(ev.Chunk.Tag),
				Score:   ev.Score,
				Text:    ev.Chunk.Text,
			})
		}
		return printJSON(cmd, out)
	}

	cmd.Println(res.Answer)
	if res.Abstained || len(res.Evidence) == 0 {
		return nil
	}

	cmd.Println()
	cmd.Println("Sources:")
	for i, ev := range res.Evidence {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, ev.Chunk.Provenance(), ev.Score)
	}
	return nil
}
