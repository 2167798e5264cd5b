package reconcile

import (
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/kwezi-backend/internal/domain"
	"github.com/heartmarshall/kwezi-backend/internal/service/reconcile/assetmatch"
	"github.com/heartmarshall/kwezi-backend/internal/service/reconcile/dedup"
)

// Result is what Run returns. Report is always set, also for failed runs.
type Result struct {
	State  State
	Report *Report
}

// Report is the structured record of a run and the only mutation log.
type Report struct {
	RunID          uuid.UUID             `json:"run_id"`
	State          State                 `json:"state"`
	FailedIn       State                 `json:"failed_in,omitempty"`
	ErrorKind      ErrorKind             `json:"error_kind,omitempty"`
	Error          string                `json:"error,omitempty"`
	SnapshotHandle domain.SnapshotHandle `json:"snapshot_handle"`
	PolicyVersion  string                `json:"policy_version"`
	MinScore       float64               `json:"min_score"`
	DryRun         bool                  `json:"dry_run"`
	StartedAt      time.Time             `json:"started_at"`
	FinishedAt     time.Time             `json:"finished_at"`

	Accepted          []AcceptedMatch             `json:"accepted"`
	Ambiguous         []assetmatch.AmbiguousMatch `json:"ambiguous"`
	UnmatchedAssets   []string                    `json:"unmatched_assets"`
	RemovedDuplicates []RemovedDuplicate          `json:"removed_duplicates"`
	AssetErrors       []AssetError                `json:"asset_errors"`
	Inherited         []InheritedAsset            `json:"inherited"`
	Released          []ReleasedAsset             `json:"released"`
	ContentTypes      map[string]int              `json:"content_types,omitempty"`
	Applied           Applied                     `json:"applied"`
}

// AcceptedMatch is an asset assignment that met the threshold.
type AcceptedMatch struct {
	RecordID uuid.UUID       `json:"record_id"`
	Language domain.Language `json:"language"`
	Filename string          `json:"filename"`
	Score    float64         `json:"score"`
}

// RemovedDuplicate is a record collapsed into CanonicalID.
type RemovedDuplicate struct {
	ID          uuid.UUID  `json:"id"`
	Headword    string     `json:"headword"`
	Category    string     `json:"category"`
	CanonicalID uuid.UUID  `json:"canonical_id"`
	Rule        dedup.Rule `json:"rule"`
}

// AssetError is a listed file that could not be used.
type AssetError struct {
	Category string `json:"category"`
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// InheritedAsset is an asset reference carried over from a removed duplicate.
type InheritedAsset struct {
	RecordID     uuid.UUID       `json:"record_id"`
	Language     domain.Language `json:"language"`
	Filename     string          `json:"filename"`
	FromRecordID uuid.UUID       `json:"from_record_id"`
	FromCategory string          `json:"from_category"`
	Copied       bool            `json:"copied"`
}

// ReleasedAsset is a stale reference cleared because the file was matched
// to another translation.
type ReleasedAsset struct {
	RecordID uuid.UUID       `json:"record_id"`
	Language domain.Language `json:"language"`
	Filename string          `json:"filename"`
	HeldBy   uuid.UUID       `json:"held_by"`
}

// Applied counts the writes performed in Applying.
type Applied struct {
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Copied  int `json:"copied"`
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func newReport(runID uuid.UUID, policyVersion string, minScore float64, dryRun bool, now time.Time) *Report {
	return &Report{
		RunID:             runID,
		State:             StateIdle,
		PolicyVersion:     policyVersion,
		MinScore:          minScore,
		DryRun:            dryRun,
		StartedAt:         now,
		Accepted:          []AcceptedMatch{},
		Ambiguous:         []assetmatch.AmbiguousMatch{},
		UnmatchedAssets:   []string{},
		RemovedDuplicates: []RemovedDuplicate{},
		AssetErrors:       []AssetError{},
		Inherited:         []InheritedAsset{},
		Released:          []ReleasedAsset{},
	}
}
