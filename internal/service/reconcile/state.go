package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/heartmarshall/kwezi-backend/internal/domain"
)

// State is a step of the run state machine. Runs only move forward;
// Failed is reachable from every step.
type State string

const (
	StateIdle          State = "idle"
	StateSnapshotting  State = "snapshotting"
	StateDeduplicating State = "deduplicating"
	StateMatching      State = "matching"
	StateReviewing     State = "reviewing"
	StateApplying      State = "applying"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

var stateOrder = map[State]int{
	StateIdle:          0,
	StateSnapshotting:  1,
	StateDeduplicating: 2,
	StateMatching:      3,
	StateReviewing:     4,
	StateApplying:      5,
	StateDone:          6,
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool { return s == StateDone || s == StateFailed }

// canTransition reports whether from -> to is a legal forward move. Reviewing
// may skip Applying for dry runs.
func canTransition(from, to State) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	f, ok1 := stateOrder[from]
	t, ok2 := stateOrder[to]
	if !ok1 || !ok2 {
		return false
	}
	return t == f+1 || (from == StateReviewing && to == StateDone)
}

// ErrorKind classifies why a run failed.
type ErrorKind string

const (
	KindStorage      ErrorKind = "storage"
	KindPartialWrite ErrorKind = "partial_write"
	KindCanceled     ErrorKind = "canceled"
	KindValidation   ErrorKind = "validation"
	KindAssetIO      ErrorKind = "asset_io"
)

// RunError is returned with every Failed run. Handle is set once a snapshot
// was captured and is the restore point for the run.
type RunError struct {
	State  State
	Kind   ErrorKind
	Handle domain.SnapshotHandle
	Err    error
}

func (e *RunError) Error() string {
	if e.Handle.IsNil() {
		return fmt.Sprintf("reconcile failed in %s (%s): %v", e.State, e.Kind, e.Err)
	}
	return fmt.Sprintf("reconcile failed in %s (%s, restore from %s): %v", e.State, e.Kind, e.Handle, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, domain.ErrPartialWrite):
		return KindPartialWrite
	case errors.Is(err, domain.ErrStorage):
		return KindStorage
	case errors.Is(err, domain.ErrAssetIO):
		return KindAssetIO
	case errors.Is(err, domain.ErrValidation):
		return KindValidation
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindStorage
	}
}
