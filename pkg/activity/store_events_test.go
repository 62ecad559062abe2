package activity

import (
	"context"
	"testing"
)

func TestBuildStoreSetEventIncludesValueMetadata(t *testing.T) {
	meta := map[string]any{"custom": "value"}
	input := EventInput{
		ContextLabel: " request ",
		StoreName:    "counter",
		StoreID:      7,
		OldValue:     1,
		NewValue:     2,
		Metadata:     meta,
	}

	event := BuildStoreSetEvent(input)

	if event.Verb != "store.set" {
		t.Fatalf("expected verb store.set, got %s", event.Verb)
	}
	if event.ObjectType != "store" || event.ObjectID != "counter" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.ContextLabel != "request" {
		t.Fatalf("expected trimmed context label, got %q", event.ContextLabel)
	}
	if event.Metadata["store_id"] != uint64(7) {
		t.Fatalf("expected store_id metadata, got %v", event.Metadata["store_id"])
	}
	if event.Metadata["old_value"] != 1 || event.Metadata["new_value"] != 2 {
		t.Fatalf("expected old/new values, got %v %v", event.Metadata["old_value"], event.Metadata["new_value"])
	}
	if event.Metadata["custom"] != "value" {
		t.Fatalf("expected caller metadata preserved, got %+v", event.Metadata)
	}
	event.Metadata["custom"] = "changed"
	if meta["custom"] != "value" {
		t.Fatalf("expected input metadata untouched")
	}
}

func TestBuildStoreActionEventCarriesActionTag(t *testing.T) {
	event := BuildStoreActionEvent(EventInput{
		StoreName: "counter",
		StoreID:   3,
		Action:    "increment",
	})

	if event.Verb != "store.action" {
		t.Fatalf("expected verb store.action, got %s", event.Verb)
	}
	if event.Action != "increment" || event.Metadata["action"] != "increment" {
		t.Fatalf("expected action tag, got %+v", event)
	}
}

func TestBuildStoreEventObjectIDFallbacks(t *testing.T) {
	unnamed := BuildStoreMountedEvent(EventInput{StoreID: 12})
	if unnamed.ObjectID != "store:12" {
		t.Fatalf("expected id fallback store:12, got %q", unnamed.ObjectID)
	}

	anonymous := BuildStoreStoppedEvent(EventInput{})
	if anonymous.ObjectID != "store" {
		t.Fatalf("expected object type fallback, got %q", anonymous.ObjectID)
	}
}

func TestBuildContextEvents(t *testing.T) {
	reset := BuildContextResetEvent(EventInput{})
	if reset.Verb != "context.reset" || reset.ObjectType != "context" || reset.ObjectID != "context" {
		t.Fatalf("unexpected reset event: %+v", reset)
	}

	restored := BuildContextRestoredEvent(EventInput{
		Metadata: map[string]any{"keys": 3},
	})
	if restored.Verb != "context.restored" {
		t.Fatalf("expected verb context.restored, got %s", restored.Verb)
	}
	if restored.Metadata["keys"] != 3 {
		t.Fatalf("expected keys metadata, got %v", restored.Metadata["keys"])
	}
}

func TestBuildStoreEventsWorkWithHooks(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}

	event := BuildStoreSetEvent(EventInput{
		StoreName: "counter",
		StoreID:   1,
		NewValue:  10,
	})
	if err := hooks.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected capture to record event, got %d", len(capture.Events))
	}
	if capture.Events[0].Verb != "store.set" {
		t.Fatalf("expected verb store.set, got %s", capture.Events[0].Verb)
	}
}
