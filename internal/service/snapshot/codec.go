package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/heartmarshall/kwezi-backend/internal/domain"
)

// envelopeVersion is bumped whenever the payload layout changes.
const envelopeVersion = 1

var errChecksumMismatch = errors.New("checksum mismatch")

type envelope struct {
	Version int `json:"version"`
	domain.Snapshot
}

// encode serializes a snapshot into a compressed payload and its checksum.
func encode(s domain.Snapshot) ([]byte, string, error) {
	raw, err := json.Marshal(envelope{Version: envelopeVersion, Snapshot: s})
	if err != nil {
		return nil, "", fmt.Errorf("marshal snapshot: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, "", fmt.Errorf("zstd writer: %w", err)
	}
	defer enc.Close()

	payload := enc.EncodeAll(raw, make([]byte, 0, len(raw)/4))
	return payload, checksum(payload), nil
}

// decode verifies and unpacks a stored blob.
func decode(blob domain.SnapshotBlob) (*domain.Snapshot, error) {
	if got := checksum(blob.Payload); got != blob.Checksum {
		return nil, fmt.Errorf("%w: stored %s, computed %s", errChecksumMismatch, blob.Checksum, got)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(blob.Payload, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", env.Version)
	}
	if len(env.Records) != blob.RecordCount {
		return nil, fmt.Errorf("snapshot holds %d records, header says %d", len(env.Records), blob.RecordCount)
	}
	return &env.Snapshot, nil
}

func checksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
