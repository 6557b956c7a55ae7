package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"discdrive/internal/config"
	"discdrive/internal/daemon"
	"discdrive/internal/history"
	"discdrive/internal/logging"
)

const sessionLogPattern = "watch-*.log"

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Monitor the drive in the foreground",
		Long: "Run the daemon in the foreground: poll the drive, record inserted and\n" +
			"removed discs in the history database and serve status and metrics\n" +
			"on metrics.bind until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			sessionID := uuid.NewString()
			logger, sessionLog, err := watchLogger(cfg, sessionID)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if removed := logging.PruneLogs(logger, cfg.Paths.LogDir, sessionLogPattern, cfg.Logging.RetentionDays, sessionLog); len(removed) > 0 {
				logger.Info("pruned old session logs", logging.Int("count", len(removed)))
			}

			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			d, err := daemon.New(cfg, ctx.newSource(cfg, logger), store, logger)
			if err != nil {
				_ = store.Close()
				return err
			}
			defer func() {
				if err := d.Close(); err != nil {
					logger.Warn("daemon close", logging.Error(err))
				}
			}()

			runCtx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(runCtx, duration)
				defer cancel()
			}
			if err := d.Start(runCtx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %s (session %s)\n", cfg.Drive.Device, sessionID)
			if addr := d.Addr(); addr != "" {
				fmt.Fprintf(out, "Status:  http://%s/api/status\n", addr)
				fmt.Fprintf(out, "Metrics: http://%s/metrics\n", addr)
			}
			if sessionLog != "" {
				fmt.Fprintf(out, "Session log: %s\n", sessionLog)
			}

			<-runCtx.Done()
			return nil
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	return cmd
}

// watchLogger tees the configured logger with a JSON log dedicated to this
// session.
func watchLogger(cfg *config.Config, sessionID string) (*slog.Logger, string, error) {
	base, err := logging.NewFromConfig(cfg, sessionID)
	if err != nil {
		return nil, "", err
	}
	if cfg.Paths.LogDir == "" {
		return base, "", nil
	}
	name := fmt.Sprintf("watch-%s-%s.log", time.Now().UTC().Format("20060102T150405Z"), sessionID[:8])
	path := filepath.Join(cfg.Paths.LogDir, name)
	session, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      "json",
		OutputPaths: []string{path},
		SessionID:   sessionID,
	})
	if err != nil {
		return nil, "", err
	}
	return logging.TeeLogger(base, session), path, nil
}
