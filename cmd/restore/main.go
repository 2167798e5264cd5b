// Command restore replaces the live dictionary with the contents of a
// snapshot taken by a reconciliation run.
//
// Usage:
//
//	restore --list [--limit=20]
//	restore --snapshot=<handle> [--preview]
//
// --preview decodes the snapshot and prints a summary without touching the
// records. Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/heartmarshall/kwezi-backend/internal/app"
	"github.com/heartmarshall/kwezi-backend/internal/config"
	"github.com/heartmarshall/kwezi-backend/internal/domain"
)

func main() {
	handleFlag := flag.String("snapshot", "", "snapshot handle to restore")
	preview := flag.Bool("preview", false, "print the snapshot summary and exit")
	list := flag.Bool("list", false, "list stored snapshots, newest first")
	limit := flag.Int("limit", 20, "number of snapshots to list")
	flag.Parse()

	if !*list && *handleFlag == "" {
		fmt.Fprintln(os.Stderr, "Usage: restore --list | restore --snapshot=<handle> [--preview]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg.Log)

	if err := run(cfg, logger, *list, *limit, *handleFlag, *preview); err != nil {
		logger.Error("restore failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, list bool, limit int, rawHandle string, preview bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	a, err := app.Open(ctx, cfg, logger, "restore")
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer a.Close()

	if list {
		blobs, err := a.SnapshotRepo.ListSnapshots(ctx, limit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "HANDLE\tTAKEN AT\tRECORDS\tREASON")
		for _, b := range blobs {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", b.Handle, b.TakenAt.Format(time.RFC3339), b.RecordCount, b.Reason)
		}
		return tw.Flush()
	}

	handle, err := domain.ParseSnapshotHandle(rawHandle)
	if err != nil {
		return err
	}

	if preview {
		snap, err := a.Snapshots.Load(ctx, handle)
		if err != nil {
			return err
		}
		categories := make(map[string]int)
		for _, r := range snap.Records {
			categories[r.Category]++
		}
		fmt.Printf("snapshot %s\ntaken at %s\nreason   %s\nrecords  %d in %d categories\n",
			snap.Handle, snap.TakenAt.Format(time.RFC3339), snap.Reason, len(snap.Records), len(categories))
		return nil
	}

	return a.Snapshots.Restore(ctx, handle)
}
