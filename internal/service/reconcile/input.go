package reconcile

import (
	"fmt"
	"strings"

	"github.com/heartmarshall/kwezi-backend/internal/domain"
)

const (
	defaultReason = "reconcile"
	maxReasonLen  = 200
)

// Input holds the parameters of one run.
type Input struct {
	// Records is the record set to reconcile. Nil loads every record from
	// the store.
	Records []domain.DictionaryRecord
	// Assets maps a category directory to its filenames. Nil lists the
	// directory of every category present in the records.
	Assets map[string][]string
	// Reason labels the snapshot. Defaults to the configured reason.
	Reason string
	// DryRun stops after Reviewing; nothing is written besides the snapshot.
	DryRun bool
}

// Validate checks all fields and collects all errors.
func (i *Input) Validate() error {
	var errs []domain.FieldError

	if len(i.Reason) > maxReasonLen {
		errs = append(errs, domain.FieldError{Field: "reason", Message: "too long (max 200)"})
	}
	for n, r := range i.Records {
		if strings.TrimSpace(r.Headword) == "" {
			errs = append(errs, domain.FieldError{Field: fmt.Sprintf("records[%d].headword", n), Message: "required"})
		}
		if strings.TrimSpace(r.Category) == "" {
			errs = append(errs, domain.FieldError{Field: fmt.Sprintf("records[%d].category", n), Message: "required"})
		}
	}
	for category := range i.Assets {
		if strings.TrimSpace(category) == "" {
			errs = append(errs, domain.FieldError{Field: "assets", Message: "empty category"})
		}
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}
