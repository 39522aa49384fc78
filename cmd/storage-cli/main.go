package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"

	"github.com/bobmcallan/storage-inspector/internal/config"
)

func main() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	if err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(config.GetFullVersion())); err != nil {
		os.Exit(1)
	}
}
