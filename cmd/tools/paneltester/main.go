package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/z-panel/backend/internal/config"
	"github.com/zhouzirui/z-panel/backend/internal/model/panel"
	"github.com/zhouzirui/z-panel/backend/internal/model/persona"
	"github.com/zhouzirui/z-panel/backend/internal/service/ai"
	panelsvc "github.com/zhouzirui/z-panel/backend/internal/service/panel"
)

type options struct {
	template   string
	personaIDs []string
	moderator  bool
	messages   []string
	skip       []string
	summarize  bool
	timeout    time.Duration
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	var opts options
	cmd := &cobra.Command{
		Use:   "paneltester",
		Short: "Run a panel discussion against the configured model and print every event",
		Example: `  paneltester -t balanced -m "I keep procrastinating" -m "What should I try first?" --summarize
  paneltester -p dr-pixel,captain-whiskers --moderator -m "My cat ignores me"`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.template, "template", "t", "", "panel template id")
	cmd.Flags().StringSliceVarP(&opts.personaIDs, "personas", "p", nil, "custom panel persona ids (2-4), overrides --template")
	cmd.Flags().BoolVar(&opts.moderator, "moderator", false, "include the moderator")
	cmd.Flags().StringArrayVarP(&opts.messages, "message", "m", nil, "user message, repeat for follow-up turns")
	cmd.Flags().StringSliceVar(&opts.skip, "skip", nil, "persona ids to skip on every turn")
	cmd.Flags().BoolVar(&opts.summarize, "summarize", false, "ask the moderator for a summary at the end")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 3*time.Minute, "overall timeout")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, opts options) error {
	if len(opts.messages) == 0 {
		return errors.New("at least one --message is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("配置加载失败: %w", err)
	}
	if !cfg.AI.Enabled() {
		return fmt.Errorf("%s provider is not configured", cfg.AI.Provider)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	gen, err := ai.NewGenerator(ctx, cfg.AI, logger.Named("ai"))
	if err != nil {
		return err
	}

	registry, err := panel.NewLoader().Load(cfg.Panel.TemplatesPath)
	if err != nil {
		return err
	}
	seeds := persona.Seed()
	if cfg.Panel.PersonasPath != "" {
		if seeds, err = persona.LoadFile(cfg.Panel.PersonasPath); err != nil {
			return err
		}
	}

	svc := panelsvc.NewService(gen, registry, persona.NewMemoryStore(seeds), panelsvc.Config{
		SummaryThreshold:     cfg.Panel.SummaryThreshold,
		MaxPreviousExchanges: cfg.Panel.MaxPreviousExchanges,
		CallTimeout:          cfg.Panel.CallTimeout,
		Logger:               logger.Named("panel"),
	})

	var sessionID string
	for i, msg := range opts.messages {
		fmt.Fprintf(out, "\n>>> %s\n", msg)

		events := svc.ContinueStream(ctx, sessionID, msg, opts.skip)
		if i == 0 {
			events = svc.StartStream(ctx, panelsvc.StartRequest{
				TemplateID:       opts.template,
				PersonaIDs:       opts.personaIDs,
				IncludeModerator: opts.moderator,
				Message:          msg,
				Skip:             opts.skip,
			})
		}

		for ev := range events {
			if ev.Name == panelsvc.EventSessionStarted {
				sessionID = ev.SessionID
			}
			if err := printEvent(out, ev); err != nil {
				return err
			}
		}
	}

	if opts.summarize {
		summary, found, err := svc.Summarize(ctx, sessionID)
		if !found {
			return panelsvc.ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n[summary] %s\n", summary.Text)
		if len(summary.References) > 0 {
			fmt.Fprintf(out, "credited: %s\n", strings.Join(summary.References, ", "))
		}
	}

	if report, ok, err := svc.End(ctx, sessionID); err != nil {
		return err
	} else if ok {
		fmt.Fprintf(out, "\n%d exchanges, %d responses. %s\n", report.TotalExchanges, report.InsightsCount, report.FarewellMessage)
	}
	logger.Debug("panel run finished", zap.String("session", sessionID))
	return nil
}

func printEvent(out io.Writer, ev panelsvc.Event) error {
	switch ev.Name {
	case panelsvc.EventSessionStarted:
		fmt.Fprintf(out, "[%s] %s\n", ev.Name, ev.SessionID)
	case panelsvc.EventModeratorIntro, panelsvc.EventPanelResponse:
		r := ev.Response
		fmt.Fprintf(out, "\n%s\n[%s] %s (%s)\n%s\n", r.Asset, ev.Name, r.PersonaName, r.Mood, r.Text)
		if len(r.References) > 0 {
			fmt.Fprintf(out, "  -> references %s\n", strings.Join(r.References, ", "))
		}
	case panelsvc.EventTurnComplete:
		fmt.Fprintf(out, "[%s] exchanges=%d summarize=%t\n", ev.Name, ev.State.ExchangeCount, ev.State.ShouldSummarize)
	case panelsvc.EventError:
		return fmt.Errorf("panel error: %w", ev.Err)
	}
	return nil
}
