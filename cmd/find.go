package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fwcsearch/agreement-finder/internal/api"
	"github.com/fwcsearch/agreement-finder/internal/browser"
	"github.com/fwcsearch/agreement-finder/internal/config"
	"github.com/fwcsearch/agreement-finder/internal/crawl"
	"github.com/fwcsearch/agreement-finder/internal/download"
	"github.com/fwcsearch/agreement-finder/internal/export"
	"github.com/fwcsearch/agreement-finder/internal/logging"
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Run the crawl rounds and export found agreements",
	RunE:  runFind,
}

func init() {
	rootCmd.AddCommand(findCmd)
}

func runFind(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Development || debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The effective page budget never trails the pool's capacity for one round.
	maxPages := cfg.MaxPages
	if poolPages := workers * pagesPerWorker; poolPages > maxPages {
		maxPages = poolPages
	}

	downloadDir := ""
	if cfg.DownloadDocuments {
		downloadDir = filepath.Join(cfg.Output.Dir, "downloads")
	}
	sessions := func(workerID int) (crawl.Session, error) {
		bcfg := browser.Config{
			WorkerID:   workerID,
			UserAgent:  cfg.Browser.UserAgent,
			NavTimeout: cfg.NavTimeout(),
		}
		if downloadDir != "" {
			dir := filepath.Join(downloadDir, fmt.Sprintf("worker_%d", workerID))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create download dir: %w", err)
			}
			bcfg.DownloadDir = dir
		}
		return browser.NewSession(bcfg, logger.Named("browser"))
	}

	controller := crawl.NewController(crawl.Options{
		StartURLs:      cfg.StartURLs,
		TargetURLs:     cfg.TargetURLs,
		AgreementType:  cfg.AgreementType,
		Status:         cfg.Status,
		TargetPage:     cfg.TargetPage,
		MaxPages:       maxPages,
		Workers:        workers,
		PagesPerWorker: pagesPerWorker,
		MaxAttempts:    cfg.Retry.MaxAttempts,
		DepthStep:      cfg.Retry.DepthStep,
	}, sessions, logger)

	var statusServer *api.Server
	if cfg.Server.Port > 0 {
		statusServer = api.NewServer(cfg.Server.Port, controller, logger.Named("api"))
		go func() {
			if err := statusServer.Start(); err != nil {
				logger.Error("status server stopped", zap.Error(err))
			}
		}()
	}

	report, runErr := controller.Run(ctx)

	if statusServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := statusServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("status server shutdown failed", zap.Error(err))
		}
		cancel()
	}

	if len(report.Found) == 0 {
		logger.Warn("no target agreements found, skipping export")
	} else {
		sink, err := export.NewCSVSink(cfg.Output.Dir)
		if err != nil {
			return err
		}
		path, err := sink.Write(report.Found)
		if err != nil {
			return fmt.Errorf("export results: %w", err)
		}
		logger.Info("results exported", zap.String("path", path), zap.Int("records", len(report.Found)))

		if cfg.DownloadDocuments {
			dl := download.NewDownloader(cfg.Output.Dir, cfg.Browser.UserAgent, logger.Named("download"))
			saved := dl.FetchAll(report.Found)
			logger.Info("documents downloaded", zap.Int("saved", saved))
		}
	}

	return runErr
}
