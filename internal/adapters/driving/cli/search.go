package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/previsit-labs/previsit-cli/internal/core/domain"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the index directly",
	Long: `Runs one retrieval against the built index and prints the matching
chunks with scores. A debugging surface for inspecting what the
screening conversation would retrieve; it skips the conversational gate
entirely.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := initPipeline(); err != nil {
		return err
	}

	result, err := retrieverService.Retrieve(cmd.Context(), args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, result)
	}
	return outputSearchText(cmd, result)
}

func outputSearchJSON(cmd *cobra.Command, result domain.RetrievalResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchText(cmd *cobra.Command, result domain.RetrievalResult) error {
	if len(result.Chunks) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, rc := range result.Chunks {
		cmd.Printf("  [%d] %s - %s (%.3f)\n", i+1, rc.Chunk.SourceLabel(), rc.Chunk.Title, rc.Score)
		if rc.Chunk.Reference != "" {
			cmd.Printf("      %s\n", rc.Chunk.Reference)
		}
		cmd.Printf("      %s\n", snippet(rc.Chunk.Text, 160))
		cmd.Println()
	}
	return nil
}

// snippet truncates text to at most n runes on a single line.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > n {
		return string(runes[:n]) + "…"
	}
	return text
}
