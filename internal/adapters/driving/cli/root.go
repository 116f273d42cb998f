// Package cli wires the adapters to the core services and exposes them as
// cobra commands.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	configfile "github.com/previsit-labs/previsit-cli/internal/adapters/driven/config/file"
	embopenai "github.com/previsit-labs/previsit-cli/internal/adapters/driven/embedding/openai"
	"github.com/previsit-labs/previsit-cli/internal/adapters/driven/index/flat"
	llmopenai "github.com/previsit-labs/previsit-cli/internal/adapters/driven/llm/openai"
	"github.com/previsit-labs/previsit-cli/internal/adapters/driven/storage/sqlite"
	"github.com/previsit-labs/previsit-cli/internal/chunker"
	"github.com/previsit-labs/previsit-cli/internal/classifier"
	"github.com/previsit-labs/previsit-cli/internal/core/domain"
	"github.com/previsit-labs/previsit-cli/internal/core/services"
	"github.com/previsit-labs/previsit-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var verbose bool

// Shared adapter and service instances, wired lazily by the commands that
// need them.
var (
	configStore      *configfile.ConfigStore
	promptStore      *configfile.PromptStore
	passageStore     *sqlite.Store
	indexStore       *flat.Store
	embeddingService *embopenai.EmbeddingService
	llmService       *llmopenai.LLMService

	indexerService   *services.IndexerService
	retrieverService *services.RetrieverService
	screeningService *services.ScreeningService
)

var rootCmd = &cobra.Command{
	Use:   "previsit",
	Short: "Pre-visit screening assistant",
	Long: `previsit helps patients prepare for a doctor's visit: it imports
reference passages, builds a semantic index over them, and runs a short
guided screening conversation that ends in a citation-backed triage note.

It never diagnoses. Emergency red flags end the session immediately with
advice to seek urgent care.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose diagnostic output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initStores opens the config, prompt, passage, and index stores.
func initStores() error {
	if configStore != nil {
		return nil
	}

	var err error
	configStore, err = configfile.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}

	promptStore, err = configfile.NewPromptStore(configStore.GetString("prompts.dir"))
	if err != nil {
		return fmt.Errorf("open prompt store: %w", err)
	}

	passageStore, err = sqlite.NewStore(configStore.GetString("data.dir"))
	if err != nil {
		return fmt.Errorf("open passage store: %w", err)
	}

	indexStore = flat.NewStore(indexPath())
	return nil
}

// indexPath resolves the artifact location: config override, then the
// default next to the passage database.
func indexPath() string {
	if p := configStore.GetString("index.path"); p != "" {
		return p
	}
	return filepath.Join(filepath.Dir(passageStore.Path()), "index.gob")
}

// initModelServices creates the embedding and LLM clients. Requires
// OPENAI_API_KEY (or a configured compatible endpoint).
func initModelServices() error {
	if embeddingService != nil {
		return nil
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return errors.New("OPENAI_API_KEY is not set")
	}

	var err error
	embeddingService, err = embopenai.NewEmbeddingService(embopenai.Config{
		APIKey:     apiKey,
		BaseURL:    configStore.GetString("embedding.base_url"),
		Model:      configStore.GetString("embedding.model"),
		Dimensions: configStore.GetInt("embedding.dimensions"),
	})
	if err != nil {
		return fmt.Errorf("create embedding service: %w", err)
	}

	llmService, err = llmopenai.NewLLMService(llmopenai.Config{
		APIKey:  apiKey,
		BaseURL: configStore.GetString("llm.base_url"),
		Model:   configStore.GetString("llm.model"),
		Timeout: llmTimeout(),
	})
	if err != nil {
		return fmt.Errorf("create LLM service: %w", err)
	}

	return nil
}

func llmTimeout() time.Duration {
	if s := configStore.GetInt("llm.timeout_seconds"); s > 0 {
		return time.Duration(s) * time.Second
	}
	return 0
}

// newChunker builds the chunker with any configured profile overrides.
func newChunker() *chunker.Chunker {
	var opts []chunker.Option
	if size := configStore.GetInt("chunking.size"); size > 0 {
		opts = append(opts, chunker.WithProfile(domain.SourceMedlinePlus, chunker.Profile{
			ChunkSize: size,
			Overlap:   configStore.GetInt("chunking.overlap"),
		}))
	}
	if size := configStore.GetInt("chunking.textbook_size"); size > 0 {
		opts = append(opts, chunker.WithProfile(domain.SourceTextbook, chunker.Profile{
			ChunkSize: size,
			Overlap:   configStore.GetInt("chunking.textbook_overlap"),
		}))
	}
	return chunker.New(opts...)
}

// initPipeline wires the core services on top of the stores and model
// clients.
func initPipeline() error {
	if err := initStores(); err != nil {
		return err
	}
	if err := initModelServices(); err != nil {
		return err
	}
	if retrieverService != nil {
		return nil
	}

	indexerService = services.NewIndexerService(passageStore, newChunker(), embeddingService, indexStore)
	if r := configStore.GetFloat("embedding.requests_per_second"); r > 0 {
		indexerService.SetRateLimit(r)
	}

	retrieverService = services.NewRetrieverService(embeddingService, indexStore)

	composer := services.NewComposerService(llmService, promptStore)
	if floor := configStore.GetFloat("composer.relevance_floor"); floor > 0 {
		composer.SetRelevanceFloor(floor)
	}

	screeningService = services.NewScreeningService(
		classifier.NewEmergency(),
		classifier.NewModelScope(llmService, promptStore),
		retrieverService,
		composer,
		llmService,
		promptStore,
	)
	return nil
}
