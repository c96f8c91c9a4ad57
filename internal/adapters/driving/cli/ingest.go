package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

var (
	ingestContentType string
	ingestNoWait      bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Upload documents for indexing",
	Long: `Uploads one or more files. Each file is stored, split into chunks and
embedded in the background.

By default the command waits until every document has been processed and
reports its final status. Use --no-wait to return as soon as the uploads
are accepted; check progress later with 'docrag document get'.

Supported types: PDF, DOCX, XLSX, HTML, plain text and Markdown.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestContentType, "type", "t", "", "content type for all files (default: detect)")
	ingestCmd.Flags().BoolVar(&ingestNoWait, "no-wait", false, "return once uploads are accepted")
	rootCmd.AddCommand(ingestCmd)
}

type pendingUpload struct {
	path   string
	result *driving.UploadResult
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	ctx := cmd.Context()
	owner := currentOwner()
	var (
		pending []pendingUpload
		failed  int
	)

	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			cmd.PrintErrf("%s: %v\n", path, err)
			failed++
			continue
		}

		result, err := ingestionService.Upload(ctx, domain.UploadRequest{
			OwnerID:     owner,
			Filename:    filepath.Base(path),
			ContentType: ingestContentType,
			Content:     content,
		})
		if err != nil {
			cmd.PrintErrf("%s: %v\n", path, err)
			failed++
			continue
		}

		cmd.Printf("Uploaded %s as %s\n", path, result.Document.ID)
		pending = append(pending, pendingUpload{path: path, result: result})
	}

	if !ingestNoWait {
		for _, p := range pending {
			select {
			case err := <-p.result.Done:
				if err != nil {
					cmd.PrintErrf("%s: processing failed: %v\n", p.path, err)
					failed++
					continue
				}
				cmd.Printf("Indexed %s\n", p.path)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}
