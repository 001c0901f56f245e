package main

import (
	"flag"
	"log/slog"
	"os"

	"pqmeta/internal/app"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml (skipped when missing)")
	flag.Parse()

	application, err := app.NewApplication(*configPath)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
