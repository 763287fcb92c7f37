package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"lunatui/config"
	"lunatui/model"
	"lunatui/ollama"
	"lunatui/server"
	"lunatui/storage"
	"lunatui/ui"
)

const Version = "v0.1.0"

func main() {
	// Validate environment variables first
	if config.HasAnyEnvVar() && !config.HasAllEnvVars() {
		fmt.Fprintf(os.Stderr, "Missing environment variable: %s\n\n"+
			"When using environment variables, all 3 must be set:\n"+
			"  • LUNATUI_OLLAMA_HOST\n"+
			"  • LUNATUI_OLLAMA_MODEL\n"+
			"  • LUNATUI_DATA_DIR\n\n"+
			"Set the missing variable(s) before launching lunatui.\n",
			config.GetMissingEnvVar())
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize debug logging after config is loaded
	config.InitDebugLog(cfg.DataDir())

	if len(os.Args) > 1 && os.Args[1] == "serve" {
		runServe(cfg)
		return
	}

	runChat(cfg)
}

// runServe starts the catalog feed server in the foreground.
func runServe(cfg *config.Config) {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := server.Run(cfg, logger); err != nil {
		logger.Fatal("catalog server exited", zap.Error(err))
	}
}

func runChat(cfg *config.Config) {
	history, err := storage.NewHistoryStore(cfg.DataDir())
	if err != nil {
		fmt.Printf("Failed to initialize history storage: %v\n", err)
		os.Exit(1)
	}
	history.Load()

	exporter, err := storage.NewExporter(cfg.ExportDir(), cfg.ExportUsername)
	if err != nil {
		fmt.Printf("Failed to initialize export directory: %v\n", err)
		os.Exit(1)
	}

	// The catalog index is optional: exports still work without it
	index, err := storage.NewCatalogIndex(cfg.DataDir())
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("Warning: catalog index unavailable: %v", err)
		}
		index = nil
	} else {
		defer index.Close()
	}

	client, err := ollama.NewClient(cfg.OllamaURL(), cfg.Model())
	if err != nil {
		fmt.Printf("Invalid Ollama host %q: %v\n", cfg.OllamaURL(), err)
		os.Exit(1)
	}

	// Warn early when the server is down, but still start the UI
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := client.Ping(ctx); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("Warning: Ollama server unreachable at startup: %v", err)
	}
	cancel()

	m := model.NewModel(cfg, client, history, exporter, index, Version)

	p := tea.NewProgram(
		ui.NewAppView(m),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
