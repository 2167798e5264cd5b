// Command reconcile runs one reconciliation pass over the dictionary:
// it snapshots the records, collapses duplicates, links audio files to
// translations and writes the result back. The review report is written as
// JSON to --report (stdout by default).
//
// Usage:
//
//	reconcile [--dry-run] [--reason=text] [--report=path] [--policy=path]
//
// Exit codes: 0 = success, 1 = error. On a failure after the snapshot the
// snapshot handle is logged and included in the report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/heartmarshall/kwezi-backend/internal/app"
	"github.com/heartmarshall/kwezi-backend/internal/config"
	"github.com/heartmarshall/kwezi-backend/internal/service/reconcile"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "stop after review; write nothing but the snapshot")
	reason := flag.String("reason", "", "label stored with the snapshot")
	reportPath := flag.String("report", "", "write the JSON report to this file instead of stdout")
	policyPath := flag.String("policy", "", "duplicate policy YAML (overrides config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *policyPath != "" {
		cfg.Reconcile.PolicyPath = *policyPath
	}

	logger := app.NewLogger(cfg.Log)

	in := reconcile.Input{Reason: *reason, DryRun: *dryRun}
	if err := run(cfg, logger, in, *reportPath); err != nil {
		logger.Error("reconcile exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run owns every resource of the command so that main has a single exit.
// The report is written even when the run fails.
func run(cfg *config.Config, logger *slog.Logger, in reconcile.Input, reportPath string) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Reconcile.Timeout)
	defer cancel()

	a, err := app.Open(ctx, cfg, logger, "reconcile")
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer a.Close()

	res, runErr := a.Reconcile.Run(ctx, in)
	if err := writeReport(reportPath, res.Report); err != nil {
		return errors.Join(runErr, fmt.Errorf("write report: %w", err))
	}
	return runErr
}

func writeReport(path string, rep *reconcile.Report) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return rep.WriteJSON(w)
}
