package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"rbkoracle/cmd"
	"rbkoracle/internal/config"
	"rbkoracle/internal/errs"
	"rbkoracle/internal/logger"
	"rbkoracle/internal/metrics"
)

// Build information (set by ldflags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	// Ctrl-C cancels the wait; the session is still torn down
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := config.New()
	cfg.Version = version
	cfg.BuildTime = buildTime
	cfg.GitCommit = gitCommit

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	metrics.InitGlobal(log)

	err := cmd.Execute(ctx, cfg, log)
	printSummary()
	if err != nil {
		if strings.EqualFold(cfg.LogLevel, "DEBUG") {
			fmt.Fprintf(os.Stderr, "%+v\n", err)
		} else {
			fmt.Fprintln(os.Stderr, errs.Line(err))
		}
		os.Exit(1)
	}
}

func printSummary() {
	if metrics.Global == nil {
		return
	}
	if s := metrics.Global.Summary(); s.Total > 0 {
		fmt.Fprintf(os.Stderr, "Session summary: %s\n", s)
	}
}
