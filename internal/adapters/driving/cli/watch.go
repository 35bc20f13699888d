package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medrag/internal/adapters/driving/watch"
	"github.com/custodia-labs/medrag/internal/core/domain"
)

var (
	watchAsync  bool
	watchSettle time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Ingest documents dropped into a directory",
	Long: `Watches a directory and ingests every new PDF, image, DOCX or XLSX file
once it stops changing. Hidden files are ignored. Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchAsync, "async", false, "start ingestions without waiting for each to finish")
	watchCmd.Flags().DurationVar(&watchSettle, "settle", watch.DefaultSettle, "quiet period before a file is ingested")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	reg, err := requireRegistry()
	if err != nil {
		return err
	}

	w := watch.New(reg, args[0],
		watch.WithAsync(watchAsync),
		watch.WithSettle(watchSettle),
		watch.WithNotify(func(path string, doc *domain.Document, err error) {
			if err != nil {
				cmd.Printf("  ✗ %s: %v\n", path, err)
				return
			}
			cmd.Printf("  ✓ %s  %s  %s\n", doc.ID, doc.Status, path)
		}),
	)

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", args[0])
	return w.Run(cmd.Context())
}
