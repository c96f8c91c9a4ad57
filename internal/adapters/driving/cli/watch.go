package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/adapters/driving/watch"
)

var (
	watchExisting bool
	watchSettle   int
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Upload files dropped into a directory",
	Long: `Watches a directory and uploads every new or modified file as a
document owned by the current user. Hidden and partially downloaded files
are ignored. A file is uploaded once it has been quiet for the settle delay.

Stop with Ctrl-C; documents already uploaded finish processing first.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "also upload files already in the directory")
	watchCmd.Flags().IntVar(&watchSettle, "settle-ms", int(watch.DefaultSettleDelay.Milliseconds()),
		"milliseconds a file must be unchanged before upload")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	dir := args[0]
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}

	owner := currentOwner()
	w := watch.New(dir, owner, ingestionService,
		watch.WithExistingFiles(watchExisting),
		watch.WithSettleDelay(msDuration(watchSettle)),
		watch.WithResultHandler(func(r watch.Result) {
			switch {
			case r.Err != nil:
				cmd.PrintErrf("%s: %v\n", r.Path, r.Err)
			case r.Document != nil:
				cmd.Printf("Indexed %s as %s\n", r.Path, r.Document.ID)
			}
		}),
	)

	cmd.Printf("Watching %s for %s (Ctrl-C to stop)\n", dir, owner)
	return w.Run(cmd.Context())
}
