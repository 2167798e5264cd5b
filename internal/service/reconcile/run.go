package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/kwezi-backend/internal/domain"
	"github.com/heartmarshall/kwezi-backend/pkg/ctxutil"
)

// run carries the state of a single Run call.
type run struct {
	svc    *Service
	state  State
	handle domain.SnapshotHandle
	report *Report
}

func (r *run) enter(ctx context.Context, to State) {
	if !canTransition(r.state, to) {
		panic(fmt.Sprintf("reconcile: illegal transition %s -> %s", r.state, to))
	}
	r.svc.log.DebugContext(ctx, "state changed",
		slog.String("from", string(r.state)),
		slog.String("to", string(to)),
	)
	r.state = to
	r.report.State = to
	if to.IsTerminal() {
		r.report.FinishedAt = r.svc.now()
	}
}

func (r *run) fail(ctx context.Context, err error) (*Result, error) {
	runErr := &RunError{State: r.state, Kind: classify(err), Handle: r.handle, Err: err}

	r.report.FailedIn = r.state
	r.report.ErrorKind = runErr.Kind
	r.report.Error = err.Error()
	r.enter(ctx, StateFailed)

	r.svc.log.ErrorContext(ctx, "reconcile failed",
		slog.String("failed_in", string(runErr.State)),
		slog.String("kind", string(runErr.Kind)),
		slog.String("snapshot", r.handle.String()),
		slog.String("error", err.Error()),
	)
	return &Result{State: StateFailed, Report: r.report}, runErr
}

// Run executes one reconciliation pass. On success the state is Done and
// the error is nil. Otherwise the state is Failed and the error is a
// *RunError carrying the snapshot handle when one was captured.
func (s *Service) Run(ctx context.Context, in Input) (*Result, error) {
	runID := uuid.New()
	ctx = ctxutil.WithRunID(ctx, runID)

	dryRun := in.DryRun || s.cfg.DryRun
	r := &run{
		svc:    s,
		state:  StateIdle,
		report: newReport(runID, s.resolver.PolicyVersion(), s.matcher.MinScore(), dryRun, s.now()),
	}

	if err := in.Validate(); err != nil {
		return r.fail(ctx, err)
	}
	reason := in.Reason
	if reason == "" {
		reason = s.cfg.Reason
	}

	s.log.InfoContext(ctx, "reconcile started",
		slog.String("reason", reason),
		slog.Bool("dry_run", dryRun),
		slog.String("policy_version", r.report.PolicyVersion),
	)

	records := in.Records
	if records == nil {
		var err error
		records, err = s.records.ListRecords(ctx, domain.RecordFilter{})
		if err != nil {
			return r.fail(ctx, asStorage("list records", err))
		}
	}

	// Snapshotting
	r.enter(ctx, StateSnapshotting)
	handle, err := s.snapshots.Capture(ctx, reason)
	if err != nil {
		return r.fail(ctx, asStorage("snapshot capture", err))
	}
	r.handle = handle
	r.report.SnapshotHandle = handle

	// Deduplicating
	r.enter(ctx, StateDeduplicating)
	resolution := s.resolver.Resolve(records)
	for _, rd := range resolution.Removed {
		r.report.RemovedDuplicates = append(r.report.RemovedDuplicates, RemovedDuplicate{
			ID:          rd.Record.ID,
			Headword:    rd.Record.Headword,
			Category:    rd.Record.Category,
			CanonicalID: rd.CanonicalID,
			Rule:        rd.Rule,
		})
	}

	// Matching
	r.enter(ctx, StateMatching)
	parts := partitionRecords(resolution.Canonical)
	if err := s.listAssets(ctx, parts, in.Assets); err != nil {
		return r.fail(ctx, err)
	}
	s.readAssets(ctx, parts, r.report)
	matched := s.matchPartitions(parts.list)

	// Reviewing
	r.enter(ctx, StateReviewing)
	p := s.review(resolution, parts, matched, r.report)

	if dryRun {
		r.enter(ctx, StateDone)
		s.logFinished(ctx, r.report)
		return &Result{State: StateDone, Report: r.report}, nil
	}

	// Applying
	r.enter(ctx, StateApplying)
	if err := ctx.Err(); err != nil {
		return r.fail(ctx, err)
	}
	if err := s.apply(ctx, handle, p, r.report); err != nil {
		return r.fail(ctx, err)
	}

	r.enter(ctx, StateDone)
	s.logFinished(ctx, r.report)
	return &Result{State: StateDone, Report: r.report}, nil
}

func (s *Service) logFinished(ctx context.Context, rep *Report) {
	s.log.InfoContext(ctx, "reconcile finished",
		slog.String("snapshot", rep.SnapshotHandle.String()),
		slog.Int("accepted", len(rep.Accepted)),
		slog.Int("ambiguous", len(rep.Ambiguous)),
		slog.Int("unmatched", len(rep.UnmatchedAssets)),
		slog.Int("removed", len(rep.RemovedDuplicates)),
		slog.Int("asset_errors", len(rep.AssetErrors)),
		slog.Int("updated", rep.Applied.Updated),
		slog.Int("deleted", rep.Applied.Deleted),
		slog.Bool("dry_run", rep.DryRun),
	)
}

// asStorage wraps err in a *domain.StorageError unless it already is one.
func asStorage(op string, err error) error {
	if errors.Is(err, domain.ErrStorage) {
		return err
	}
	return domain.NewStorageError(op, err)
}
