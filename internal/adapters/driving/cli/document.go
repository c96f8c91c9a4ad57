package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage uploaded documents",
	Long:  `List, inspect, reprocess or delete your uploaded documents.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentChunksCmd = &cobra.Command{
	Use:   "chunks [doc-id]",
	Short: "Print the chunks of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentChunks,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var documentProcessCmd = &cobra.Command{
	Use:   "process [doc-id]",
	Short: "Process a pending document",
	Long: `Runs extraction, chunking and embedding for a document that is still
pending, for example after the process exited before its upload was handled.
Completed and failed documents cannot be reprocessed; upload them again.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentProcess,
}

func init() {
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentChunksCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentProcessCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.List(cmd.Context(), currentOwner())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	tw := newTable(cmd.OutOrStdout())
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tSTATUS\tUPLOADED")
	for i := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			docs[i].ID,
			docs[i].OriginalFilename,
			formatSize(docs[i].Size),
			formatStatus(&docs[i]),
			formatTime(&docs[i].UploadedAt),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	cmd.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.Get(cmd.Context(), currentOwner(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Name:       %s\n", doc.OriginalFilename)
	cmd.Printf("  Type:       %s\n", doc.ContentType)
	cmd.Printf("  Size:       %s\n", formatSize(doc.Size))
	cmd.Printf("  Status:     %s\n", doc.Status)
	if doc.Error != "" {
		cmd.Printf("  Error:      %s\n", doc.Error)
	}
	cmd.Printf("  Uploaded:   %s\n", formatTime(&doc.UploadedAt))
	cmd.Printf("  Processed:  %s\n", formatTime(doc.ProcessedAt))

	return nil
}

func runDocumentChunks(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	chunks, err := documentService.Chunks(cmd.Context(), currentOwner(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}

	if len(chunks) == 0 {
		cmd.Println("Document has no chunks.")
		return nil
	}

	for i := range chunks {
		c := &chunks[i]
		embedded := "no"
		if c.Embedding != nil {
			embedded = fmt.Sprintf("%d dims", len(c.Embedding))
		}
		cmd.Printf("[%d] chars %d-%d, ~%d tokens, embedding: %s\n",
			c.Index, c.CharStart, c.CharEnd, c.TokenCount, embedded)
		cmd.Println(c.Text)
		cmd.Println()
	}
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docID := args[0]
	if err := documentService.Delete(cmd.Context(), currentOwner(), docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Deleted document %s\n", docID)
	return nil
}

func runDocumentProcess(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	ctx := cmd.Context()
	docID := args[0]

	// Process is not owner-scoped; check ownership first.
	if _, err := ingestionService.Status(ctx, currentOwner(), docID); err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	if err := ingestionService.Process(ctx, docID); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return fmt.Errorf("document %s is not pending: %w", docID, err)
		}
		return fmt.Errorf("processing failed: %w", err)
	}

	cmd.Printf("Processed document %s\n", docID)
	return nil
}
