package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-panel/backend/internal/config"
	"github.com/zhouzirui/z-panel/backend/internal/model/panel"
	"github.com/zhouzirui/z-panel/backend/internal/model/persona"
)

var rootCmd = &cobra.Command{
	Use:   "z-panel",
	Short: "Multi-persona panel discussion backend",
	Long: `z-panel runs a moderated panel of AI personas that answer the user in turn,
each aware of what the earlier panelists said.

Available subcommands:
  serve     - Start the HTTP / SSE / WebSocket API
  templates - List the configured panel templates`,
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	rootCmd.AddCommand(serveCmd, templatesCmd)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the shared logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// loadCatalogue 读取 persona 与圆桌模板。未配置 PERSONAS_PATH 时使用内置 persona。
func loadCatalogue(cfg config.PanelConfig, logger *zap.Logger) (*persona.MemoryStore, *panel.Registry, error) {
	seeds := persona.Seed()
	if cfg.PersonasPath != "" {
		loaded, err := persona.LoadFile(cfg.PersonasPath)
		if err != nil {
			return nil, nil, err
		}
		seeds = loaded
		logger.Info("loaded personas from file",
			zap.String("path", cfg.PersonasPath),
			zap.Int("count", len(seeds)))
	}

	registry, err := panel.NewLoader().Load(cfg.TemplatesPath)
	if err != nil {
		return nil, nil, err
	}
	return persona.NewMemoryStore(seeds), registry, nil
}
