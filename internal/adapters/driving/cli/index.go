package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexBatchSize int

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the semantic index from imported passages",
	Long: `Chunks every imported passage, embeds the chunks, and atomically
replaces the index artifact. Running chat sessions pick up the new
artifact automatically. A failed build leaves the previous artifact
untouched.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().IntVar(&indexBatchSize, "batch-size", 0, "chunks per embedding request")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	if err := initPipeline(); err != nil {
		return err
	}
	if indexBatchSize > 0 {
		indexerService.SetBatchSize(indexBatchSize)
	}

	manifest, err := indexerService.BuildIndex(cmd.Context())
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	cmd.Printf("Index built: %d chunks\n", manifest.ChunkCount)
	cmd.Printf("  model:      %s\n", manifest.ModelName)
	cmd.Printf("  metric:     %s\n", manifest.Metric)
	cmd.Printf("  dimensions: %d\n", manifest.Dimensions)
	cmd.Printf("  artifact:   %s\n", indexStore.Path())
	return nil
}
