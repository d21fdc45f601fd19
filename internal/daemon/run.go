package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/ingest"
	"curator/internal/logging"
	"curator/internal/quality"
	"curator/internal/services/extract"
	"curator/internal/services/render"
	"curator/internal/sources"
	"curator/internal/staging"
	"curator/internal/storage"
	"curator/internal/workflow"
)

// Run starts the curator daemon runtime loop and blocks until the process
// receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "curator.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	shared, err := storage.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return err
	}

	extractor, err := extract.NewClient(cfg)
	if err != nil {
		_ = shared.Close()
		return fmt.Errorf("init extraction client: %w", err)
	}

	cat := catalog.NewStore(shared)
	runner := ingest.New(cfg,
		sources.NewStore(shared),
		staging.NewStore(shared),
		quality.New(cat, cfg),
		render.NewClient(cfg),
		extract.NewCleaner(cfg.Extraction.MaxTextChars),
		extractor,
		logger)
	manager := workflow.NewManager(cfg, sources.NewStore(shared), runner, logger)

	d, err := New(cfg, shared, logger, manager)
	if err != nil {
		_ = shared.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("curator daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
