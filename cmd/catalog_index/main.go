package main

import (
	"os"

	"rewards_backend/internal/logger"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"), false)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
