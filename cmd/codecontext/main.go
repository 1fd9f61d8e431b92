package main

import (
	"os"

	"github.com/codecontext/codecontext-core/internal/logging"
)

func main() {
	logger := logging.New(logging.Config{
		Format: logging.FormatHuman,
		Level:  logging.LevelInfo,
	})

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command execution failed", logging.Fields{"error": err.Error()})
		os.Exit(1)
	}
}
