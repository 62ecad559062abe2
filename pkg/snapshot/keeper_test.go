package snapshot

import (
	"context"
	"errors"
	"testing"

	stores "github.com/goliatone/go-stores"
)

func resetStores(t *testing.T) {
	t.Helper()
	if err := stores.ResetAllContexts(); err != nil {
		t.Fatalf("reset before test: %v", err)
	}
	t.Cleanup(func() {
		if err := stores.ResetAllContexts(); err != nil {
			t.Errorf("reset after test: %v", err)
		}
	})
}

func TestKeeperCaptureRestore(t *testing.T) {
	resetStores(t)

	user := stores.NewAtom("", stores.WithName("kp.user"))
	visits := stores.NewAtom(0, stores.WithName("kp.visits"))

	keeper := NewKeeper(NewMemoryStore())

	source := stores.NewContext(stores.WithLabel("source"))
	bindUser, err := user.WithContext(source)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	bindVisits, _ := visits.WithContext(source)
	_ = bindUser.Set("ada")
	_ = bindVisits.Set(4)

	meta, err := keeper.Capture(context.Background(), "session-1", source)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if meta.SnapshotID == "" {
		t.Fatalf("expected a snapshot id, got %+v", meta)
	}

	target := stores.NewContext(stores.WithLabel("target"))
	restoredMeta, err := keeper.Restore(context.Background(), "session-1", target)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restoredMeta.SnapshotID != meta.SnapshotID {
		t.Fatalf("expected matching snapshot id, got %q and %q", restoredMeta.SnapshotID, meta.SnapshotID)
	}

	restoredUser, _ := user.WithContext(target)
	restoredVisits, _ := visits.WithContext(target)
	if got := restoredUser.Get(); got != "ada" {
		t.Fatalf("expected %q, got %q", "ada", got)
	}
	if got := restoredVisits.Get(); got != 4 {
		t.Fatalf("expected 4, got %d", got)
	}
}

func TestKeeperRestoreMissingKey(t *testing.T) {
	resetStores(t)

	keeper := NewKeeper(NewMemoryStore())
	ctx := stores.NewContext()

	_, err := keeper.Restore(context.Background(), "missing", ctx)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestKeeperRestoreStrictUnknownKey(t *testing.T) {
	resetStores(t)

	store := NewMemoryStore()
	if _, err := store.Save(context.Background(), Ref{Key: "session-1"}, Snapshot{"kp.retired": 1}, Meta{}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	keeper := NewKeeper(store)
	ctx := stores.NewContext()

	if _, err := keeper.Restore(context.Background(), "session-1", ctx, stores.RestoreStrict()); !errors.Is(err, stores.ErrUnknownSnapshotKey) {
		t.Fatalf("expected ErrUnknownSnapshotKey, got %v", err)
	}
	if _, err := keeper.Restore(context.Background(), "session-1", ctx); err != nil {
		t.Fatalf("expected lenient restore to skip unknown keys, got %v", err)
	}
}

func TestKeeperRequiresStore(t *testing.T) {
	resetStores(t)

	keeper := &Keeper{}
	ctx := stores.NewContext()

	if _, err := keeper.Capture(context.Background(), "k", ctx); err == nil {
		t.Fatal("expected error without a backing store")
	}
	if _, err := keeper.Restore(context.Background(), "k", ctx); err == nil {
		t.Fatal("expected error without a backing store")
	}
}
