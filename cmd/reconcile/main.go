// Command reconcile runs one scheduled job immediately and exits. It is meant
// for operators and external cron, alongside the in-process scheduler.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/request-desk/internal/app"
	"github.com/spec-kit/request-desk/internal/config"
	"github.com/spec-kit/request-desk/internal/observability"
)

func main() {
	job := flag.String("job", "", "job to run: archive-sweep, statistics or billing")
	timeout := flag.Duration("timeout", 15*time.Minute, "overall deadline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	// cron triggers stay off; only the requested job runs
	cfg.Scheduler.Enabled = false

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("build application", zap.Error(err))
		os.Exit(1)
	}

	if *job == "" {
		fmt.Fprintf(os.Stderr, "usage: reconcile -job <%s>\n", strings.Join(container.Scheduler.Names(), "|"))
		_ = container.Shutdown(ctx)
		os.Exit(1)
	}

	runErr := container.Scheduler.RunOnce(ctx, *job)
	if err := container.Shutdown(ctx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
	if runErr != nil {
		logger.Error("job failed", zap.String("job", *job), zap.Error(runErr))
		os.Exit(1)
	}
	logger.Info("job completed", zap.String("job", *job))
}
