package snapshot

import (
	"context"
	"fmt"

	stores "github.com/goliatone/go-stores"
)

// Keeper captures live context state into a Store and restores it later. It
// is the glue between the core serializer and whatever staging backend the
// host application uses.
type Keeper struct {
	Store Store
}

// NewKeeper returns a keeper over store.
func NewKeeper(store Store) *Keeper {
	return &Keeper{Store: store}
}

// Capture serializes sctx and saves the result under key. The returned meta
// carries the storage-assigned snapshot id and etag.
func (k *Keeper) Capture(ctx context.Context, key string, sctx *stores.Context) (Meta, error) {
	if k == nil || k.Store == nil {
		return Meta{}, fmt.Errorf("snapshot: keeper store is required")
	}

	serialized, err := stores.SerializeContext(sctx)
	if err != nil {
		return Meta{}, fmt.Errorf("snapshot: capture %q: %w", key, err)
	}

	meta, err := k.Store.Save(ctx, Ref{Key: key}, Snapshot(serialized), Meta{})
	if err != nil {
		return Meta{}, fmt.Errorf("snapshot: capture %q: %w", key, err)
	}
	return meta, nil
}

// Restore loads the snapshot stored under key and applies it onto sctx.
// Missing keys report ErrNotFound.
func (k *Keeper) Restore(ctx context.Context, key string, sctx *stores.Context, opts ...stores.RestoreOption) (Meta, error) {
	if k == nil || k.Store == nil {
		return Meta{}, fmt.Errorf("snapshot: keeper store is required")
	}

	snap, meta, ok, err := k.Store.Load(ctx, Ref{Key: key})
	if err != nil {
		return Meta{}, fmt.Errorf("snapshot: restore %q: %w", key, err)
	}
	if !ok {
		return Meta{}, fmt.Errorf("%w: %q", ErrNotFound, key)
	}

	if err := stores.ApplySerializedContext(sctx, map[string]any(snap), opts...); err != nil {
		return Meta{}, fmt.Errorf("snapshot: restore %q: %w", key, err)
	}
	return meta, nil
}
