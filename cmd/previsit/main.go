package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/previsit-labs/previsit-cli/internal/adapters/driving/cli"
)

func main() {
	// A .env file is optional; environment variables win when both exist.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
