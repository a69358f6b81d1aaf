// Package main is the entry point for legisync.
package main

import (
	"log/slog"
	"os"

	"github.com/fivethreefive/legisync/cmd/legisync/app"
	"github.com/fivethreefive/legisync/internal/config"
	"github.com/fivethreefive/legisync/internal/logging"
)

func main() {
	// stderr keeps stdout clean for commands that print data (show, version --format json)
	logger, flush, err := logging.New(logging.WithLevel(logging.LevelFromEnv(config.NewEnv())))
	if err != nil {
		slog.Error("Failed to initialize logging", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	code := 0
	if err := app.NewRootCmd().Execute(); err != nil {
		code = 1
	}
	flush()
	os.Exit(code)
}
