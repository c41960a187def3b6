package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/z-panel/backend/internal/config"
	"github.com/zhouzirui/z-panel/backend/internal/handler"
	"github.com/zhouzirui/z-panel/backend/internal/service/ai"
	panelsvc "github.com/zhouzirui/z-panel/backend/internal/service/panel"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the panel API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	personas, registry, err := loadCatalogue(cfg.Panel, logger)
	if err != nil {
		return err
	}

	gen := newGenerator(ctx, cfg.AI, logger)

	svc := panelsvc.NewService(gen, registry, personas, panelsvc.Config{
		SessionTTL:           cfg.Panel.SessionTTL,
		SummaryThreshold:     cfg.Panel.SummaryThreshold,
		MaxPreviousExchanges: cfg.Panel.MaxPreviousExchanges,
		CallTimeout:          cfg.Panel.CallTimeout,
		Logger:               logger.Named("panel"),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.NewRouter(personas, svc, logger.Named("http")),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Z Panel backend listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return svc.RunSweeper(gctx, cfg.Panel.SweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}

// newGenerator 创建文本生成后端；凭证缺失或初始化失败时，每次调用都返回错误，
// 圆桌仍可运行，persona 使用降级回复。
func newGenerator(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) panelsvc.Generator {
	if !cfg.Enabled() {
		logger.Warn("AI credentials not configured, panel will answer with fallbacks",
			zap.String("provider", cfg.Provider))
		return unavailable(fmt.Errorf("%s provider is not configured", cfg.Provider))
	}

	gen, err := ai.NewGenerator(ctx, cfg, logger.Named("ai"))
	if err != nil {
		logger.Warn("failed to initialize AI service, continuing without it", zap.Error(err))
		return unavailable(err)
	}
	logger.Info("AI service initialized", zap.String("provider", cfg.Provider))
	return gen
}

func unavailable(cause error) panelsvc.Generator {
	return panelsvc.GeneratorFunc(func(context.Context, string) (string, error) {
		return "", fmt.Errorf("text generation unavailable: %w", cause)
	})
}
