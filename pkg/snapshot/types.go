package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("snapshot: not found")

var ErrETagMismatch = errors.New("snapshot: etag mismatch")

// Snapshot is the plain name -> value mapping produced by serializing a
// context. Values must be JSON-serializable for typed restores to work.
type Snapshot map[string]any

// Clone returns a shallow copy of the snapshot. Top-level keys are detached;
// nested values are shared.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for key, value := range s {
		out[key] = value
	}
	return out
}

// Ref identifies one stored snapshot.
type Ref struct {
	Key string
}

// Identifier returns the storage key for the ref.
func (r Ref) Identifier() (string, error) {
	if r.Key == "" {
		return "", fmt.Errorf("snapshot: ref key is required")
	}
	return r.Key, nil
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves one snapshot for a single reference.
type Store interface {
	Load(ctx context.Context, ref Ref) (snapshot Snapshot, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot Snapshot, meta Meta) (Meta, error)
}
