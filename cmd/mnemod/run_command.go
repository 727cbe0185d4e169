package main

import (
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mnemo/internal/cognitive"
	"mnemo/internal/logging"
	"mnemo/internal/preflight"
	"mnemo/internal/worker"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the memory daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, ctx)
		},
	}
}

func runDaemon(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.Cognitive.Enabled {
		return errors.New("cognitive subsystem is disabled in the configuration; enable [cognitive] to run the daemon")
	}

	results := preflight.RunAll(cfg)
	if !preflight.AllPassed(results) {
		var failures []string
		for _, result := range results {
			if !result.Passed {
				failures = append(failures, fmt.Sprintf("%s: %s", result.Name, result.Detail))
			}
		}
		return fmt.Errorf("preflight failed:\n  %s", strings.Join(failures, "\n  "))
	}

	logPath := filepath.Join(cfg.Paths.LogDir, "mnemod.log")
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	_, stores, err := ctx.openStores(logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	historian, err := cognitive.NewHistorian(stores.vectors, stores.profiles, logger)
	if err != nil {
		return err
	}
	w, err := worker.New(stores.queue, historian, worker.Config{
		PollInterval:   time.Duration(cfg.Cognitive.PollIntervalSeconds) * time.Second,
		StaleTimeout:   time.Duration(cfg.Cognitive.StaleTimeoutSeconds) * time.Second,
		MaxRetries:     cfg.Cognitive.MaxRetries,
		RecoverEvery:   cfg.Cognitive.StaleRecoveryInterval,
		FailedMaxAge:   time.Duration(cfg.Cognitive.FailedMaxAgeDays) * 24 * time.Hour,
		FailedMaxFiles: cfg.Cognitive.FailedMaxFiles,
		CleanupEvery:   cfg.Cognitive.FailedCleanupInterval,
	}, logger)
	if err != nil {
		return err
	}

	if err := w.Start(signalCtx); err != nil {
		return err
	}
	logger.Info("daemon started",
		logging.String("data_dir", cfg.Paths.DataDir),
		logging.String(logging.FieldEventType, "daemon_started"))

	<-signalCtx.Done()
	w.Stop()
	logger.Info("daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stopped"))
	return nil
}
