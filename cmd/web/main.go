// Command web serves the datacheck HTTP API.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"datacheck/internal/app"
	"datacheck/internal/config"
	"datacheck/pkg/contracts"
)

func main() {
	configPath := flag.String("config", "", "config file (defaults to the usual locations)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	var cfg *config.Config
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			slog.Error("Failed to load configuration", slog.String("error", err.Error()))
			os.Exit(1)
		}
		cfg = loaded
	}

	application, err := app.NewApplication(cfg, nil)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
