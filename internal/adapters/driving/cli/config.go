package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initStores(); err != nil {
			return err
		}
		val, ok := configStore.Get(args[0])
		if !ok {
			return fmt.Errorf("key %q is not set", args[0])
		}
		cmd.Printf("%v\n", val)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Sets a configuration value in ~/.previsit/config.toml. Common keys:

  embedding.model                embedding model name
  embedding.base_url             OpenAI-compatible endpoint for embeddings
  llm.model                      chat model name
  llm.base_url                   OpenAI-compatible endpoint for chat
  index.path                     index artifact location
  chunking.size                  default chunk size in runes
  chunking.textbook_size         textbook chunk size in runes
  composer.relevance_floor       minimum score for a grounded note`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initStores(); err != nil {
			return err
		}
		if err := configStore.Set(args[0], parseValue(args[1])); err != nil {
			return fmt.Errorf("set %q: %w", args[0], err)
		}
		cmd.Printf("%s = %s\n", args[0], args[1])
		return nil
	},
}

// parseValue stores numbers as numbers so typed getters work, everything
// else as strings.
func parseValue(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
