package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// snippetWidth is used for chunk previews when the output is not a terminal.
const snippetWidth = 160

var (
	searchTopK     int
	searchDocIDs   []string
	searchJSON     bool
	searchFullText bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search your documents",
	Long: `Embeds the query and ranks every chunk of your documents by cosine
similarity. The top results are printed best first.

Restrict the search to specific documents with --doc (repeatable).`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", domain.DefaultTopK, "maximum number of results")
	searchCmd.Flags().StringSliceVar(&searchDocIDs, "doc", nil, "only search these document ids")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().BoolVar(&searchFullText, "full", false, "print full chunk text instead of a preview")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errors.New("search service not configured")
	}

	opts := domain.SearchOptions{
		TopK:        searchTopK,
		DocumentIDs: searchDocIDs,
	}

	results, err := searchService.Search(cmd.Context(), currentOwner(), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchResults(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.ScoredChunk) error {
	if results == nil {
		results = []domain.ScoredChunk{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchResults(cmd *cobra.Command, results []domain.ScoredChunk) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	width := snippetWidth
	if w := terminalWidth(cmd.OutOrStdout()); w > 0 {
		width = w - 6
	}

	for i := range results {
		r := &results[i]
		cmd.Printf("  [%d] %.4f  %s #%d (chars %d-%d)\n",
			i+1, r.Similarity, r.DocumentID, r.ChunkIndex, r.CharStart, r.CharEnd)
		if searchFullText {
			cmd.Printf("%s\n", r.Text)
		} else {
			cmd.Printf("      %s\n", truncate(singleLine(r.Text), width))
		}
		cmd.Println()
	}

	return nil
}
