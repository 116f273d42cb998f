package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/previsit-labs/previsit-cli/internal/core/domain"
	"github.com/previsit-labs/previsit-cli/internal/logger"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run an interactive pre-visit screening session",
	Long: `Starts a screening conversation on the terminal. Describe your
symptoms, answer up to three short clarifying questions, and receive a
structured summary to bring to your doctor.

The session ends immediately with urgent-care advice if emergency
warning signs are detected. If the index artifact is rebuilt while a
session is running, the new index is picked up automatically.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

const chatGreeting = `Welcome. I'll help you prepare for your doctor's visit.
Please describe your symptoms or health concern. Type "quit" to exit.

This is not a diagnostic service. If you believe you are having a medical
emergency, call your local emergency number now.`

func runChat(cmd *cobra.Command, _ []string) error {
	if err := initPipeline(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Warm the index before the first turn so a missing artifact fails
	// here with a clear message instead of mid-conversation.
	if err := retrieverService.Reload(ctx); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no index found: import passages and run 'previsit index' first")
		}
		return err
	}

	// Hot-reload on artifact replacement by a concurrent rebuild.
	go func() {
		err := indexStore.Watch(ctx, func() {
			if err := retrieverService.Reload(ctx); err != nil {
				logger.Warn("Index reload failed: %v", err)
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("Index watcher stopped: %v", err)
		}
	}()

	cmd.Println(chatGreeting)
	cmd.Println()

	state := screeningService.NewSession()
	scanner := bufio.NewScanner(cmd.InOrStdin())

	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "quit" || line == "exit" {
			break
		}

		reply, err := screeningService.HandleTurn(ctx, state, line)
		if err != nil {
			return fmt.Errorf("session error: %w", err)
		}

		cmd.Println()
		cmd.Println(reply.Message)
		cmd.Println()

		if state.Phase.Terminal() {
			break
		}
	}

	return scanner.Err()
}
