package domain

import (
	"time"

	"github.com/google/uuid"
)

// Language identifies one of the two target-language translation slots.
type Language string

const (
	// LangA is the Shimaoré slot.
	LangA Language = "lang_a"
	// LangB is the Kibouchi slot.
	LangB Language = "lang_b"
)

// Languages lists the translation slots in slot order.
var Languages = []Language{LangA, LangB}

// IsValid reports whether l is one of the two known slots.
func (l Language) IsValid() bool {
	return l == LangA || l == LangB
}

func (l Language) String() string { return string(l) }

// AssetRef links one translation slot of a record to an audio file.
type AssetRef struct {
	Filename   string    `json:"filename"`
	Confidence float64   `json:"confidence"`
	MatchedAt  time.Time `json:"matched_at"`
}

// DictionaryRecord is a single headword with its two translations and their
// pronunciation assets.
type DictionaryRecord struct {
	ID           uuid.UUID              `json:"id"`
	Headword     string                 `json:"headword"`
	Translations map[Language]string    `json:"translations"`
	Category     string                 `json:"category"`
	Assets       map[Language]*AssetRef `json:"assets,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// Translation returns the translation text for the given slot ("" if absent).
func (r *DictionaryRecord) Translation(lang Language) string {
	if r.Translations == nil {
		return ""
	}
	return r.Translations[lang]
}

// Asset returns the asset reference for the given slot, or nil.
func (r *DictionaryRecord) Asset(lang Language) *AssetRef {
	if r.Assets == nil {
		return nil
	}
	return r.Assets[lang]
}

// SetAsset assigns (or clears, for nil) the asset reference of a slot.
func (r *DictionaryRecord) SetAsset(lang Language, ref *AssetRef) {
	if ref == nil {
		delete(r.Assets, lang)
		return
	}
	if r.Assets == nil {
		r.Assets = make(map[Language]*AssetRef, len(Languages))
	}
	r.Assets[lang] = ref
}

// IsComplete returns true if both translation slots hold non-blank text.
func (r *DictionaryRecord) IsComplete() bool {
	for _, lang := range Languages {
		if Normalize(r.Translation(lang)) == "" {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the record.
func (r DictionaryRecord) Clone() DictionaryRecord {
	out := r
	if r.Translations != nil {
		out.Translations = make(map[Language]string, len(r.Translations))
		for k, v := range r.Translations {
			out.Translations[k] = v
		}
	}
	if r.Assets != nil {
		out.Assets = make(map[Language]*AssetRef, len(r.Assets))
		for k, v := range r.Assets {
			if v == nil {
				continue
			}
			ref := *v
			out.Assets[k] = &ref
		}
	}
	return out
}

// AssetFile is an audio file discovered under a category directory.
type AssetFile struct {
	Filename string `json:"filename"`
	Category string `json:"category"`
	Consumed bool   `json:"consumed"`
}

// MatchCandidate is a proposed link between one record slot and one asset.
// It only lives for the duration of a matching pass.
type MatchCandidate struct {
	RecordID uuid.UUID `json:"record_id"`
	Language Language  `json:"language"`
	Filename string    `json:"filename"`
	Score    float64   `json:"score"`
}

// SnapshotHandle addresses a stored snapshot.
type SnapshotHandle uuid.UUID

// NilSnapshot is the zero handle meaning "no snapshot was captured".
var NilSnapshot = SnapshotHandle(uuid.Nil)

func (h SnapshotHandle) String() string { return uuid.UUID(h).String() }

// IsNil reports whether the handle is unset.
func (h SnapshotHandle) IsNil() bool { return uuid.UUID(h) == uuid.Nil }

// MarshalText implements encoding.TextMarshaler.
func (h SnapshotHandle) MarshalText() ([]byte, error) {
	return uuid.UUID(h).MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *SnapshotHandle) UnmarshalText(b []byte) error {
	var id uuid.UUID
	if err := id.UnmarshalText(b); err != nil {
		return err
	}
	*h = SnapshotHandle(id)
	return nil
}

// ParseSnapshotHandle parses the textual form of a handle.
func ParseSnapshotHandle(s string) (SnapshotHandle, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NilSnapshot, NewValidationError("snapshot", "invalid handle")
	}
	return SnapshotHandle(id), nil
}

// Snapshot is an immutable copy of the full record set.
type Snapshot struct {
	Handle  SnapshotHandle     `json:"handle"`
	TakenAt time.Time          `json:"taken_at"`
	Reason  string             `json:"reason"`
	Records []DictionaryRecord `json:"records"`
}

// SnapshotBlob is the stored, encoded form of a Snapshot.
type SnapshotBlob struct {
	Handle      SnapshotHandle
	Reason      string
	TakenAt     time.Time
	RecordCount int
	Checksum    string
	Payload     []byte
}
