package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"quizforge/internal/candidates"
	"quizforge/internal/collector"
	"quizforge/internal/facts"
	"quizforge/internal/llm"
	"quizforge/internal/ocr"
	"quizforge/internal/server"
	"quizforge/internal/session"
	"quizforge/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the quizforge HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cmd, cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		dbPath, err := resolveDBPath(cmd, cfg)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		ctx := cmd.Context()
		provider, err := llm.NewProviderFromEnv(ctx, s.RequestLog(), logger)
		if err != nil {
			return fmt.Errorf("configure LLM provider: %w", err)
		}

		collectorCfg := collector.Config{
			Extraction:  facts.DefaultConfig(),
			Generation:  candidates.DefaultConfig(),
			StagingPath: cfg.Storage.StagingPath,
			ChunkSize:   cfg.Pipeline.ChunkSize,
		}
		collectorCfg.Extraction.MaxSegmentSize = cfg.Pipeline.MaxSegmentSize
		collectorCfg.Extraction.Concurrency = cfg.Pipeline.Concurrency
		collectorCfg.Generation.Concurrency = cfg.Pipeline.Concurrency
		c := collector.New(provider, s, collectorCfg, logger)

		cooldown := time.Duration(cfg.Session.CooldownHoursOrDefault()) * time.Hour
		sessions := session.NewManager(s, logger, session.WithCooldown(cooldown))

		var ocrClient *ocr.Client
		if cfg.OCR.BaseURL != "" {
			ocrClient = ocr.NewClient(cfg.OCR.BaseURL, time.Duration(cfg.OCR.TimeoutSeconds)*time.Second)
		}

		srv := server.NewServer(c, sessions, ocrClient, &cfg.Server, logger)

		errCh := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-stop:
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	},
}
