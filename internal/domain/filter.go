package domain

import "github.com/google/uuid"

// RecordFilter narrows a record listing. The zero value selects every record.
type RecordFilter struct {
	IDs                []uuid.UUID
	Category           *string
	HeadwordNormalized *string
}

// IsEmpty returns true if the filter selects every record.
func (f RecordFilter) IsEmpty() bool {
	return len(f.IDs) == 0 && f.Category == nil && f.HeadwordNormalized == nil
}
