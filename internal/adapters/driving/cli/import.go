package cli

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/previsit-labs/previsit-cli/internal/core/domain"
	"github.com/previsit-labs/previsit-cli/internal/logger"
)

var importSkipInvalid bool

var importCmd = &cobra.Command{
	Use:   "import [file.csv]",
	Short: "Import source passages from a CSV file",
	Long: `Imports passages into the local passage store. The CSV must have a
header row with the columns: source_id, source_type, title, reference, text.
source_type is "textbook" or "medlineplus". Re-importing a source_id
replaces the stored passage.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importSkipInvalid, "skip-invalid", false, "skip invalid rows instead of aborting")
	rootCmd.AddCommand(importCmd)
}

// csvColumns is the required header, in any order.
var csvColumns = []string{"source_id", "source_type", "title", "reference", "text"}

func runImport(cmd *cobra.Command, args []string) error {
	if err := initStores(); err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	imported, skipped, err := importCSV(cmd.Context(), f)
	if err != nil {
		return err
	}

	cmd.Printf("Imported %d passages", imported)
	if skipped > 0 {
		cmd.Printf(" (%d invalid rows skipped)", skipped)
	}
	cmd.Println()

	total, err := passageStore.Count(cmd.Context())
	if err == nil {
		cmd.Printf("Passage store now holds %d passages\n", total)
	}
	return nil
}

// importCSV reads passages from r into the passage store.
func importCSV(ctx context.Context, r io.Reader) (imported, skipped int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(csvColumns)

	header, err := reader.Read()
	if err != nil {
		return 0, 0, fmt.Errorf("read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range csvColumns {
		if _, ok := col[required]; !ok {
			return 0, 0, fmt.Errorf("missing column %q in header", required)
		}
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, skipped, fmt.Errorf("line %d: %w", line, err)
		}

		p := domain.Passage{
			SourceID:   strings.TrimSpace(record[col["source_id"]]),
			SourceType: domain.SourceType(strings.TrimSpace(record[col["source_type"]])),
			Title:      strings.TrimSpace(record[col["title"]]),
			Reference:  strings.TrimSpace(record[col["reference"]]),
			Text:       record[col["text"]],
		}

		if err := passageStore.Put(ctx, p); err != nil {
			if importSkipInvalid && errors.Is(err, domain.ErrInvalidPassage) {
				logger.Warn("Line %d skipped: %v", line, err)
				skipped++
				continue
			}
			return imported, skipped, fmt.Errorf("line %d: %w", line, err)
		}
		imported++
	}

	return imported, skipped, nil
}
