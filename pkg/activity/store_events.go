package activity

import (
	"fmt"
	"strings"
	"time"
)

// EventInput describes the common fields for store lifecycle events. The
// firing context fills ContextID/ContextLabel; builders only shape the verb,
// object identity, and metadata.
type EventInput struct {
	ContextLabel string
	StoreName    string
	StoreID      uint64
	Action       string
	OldValue     any
	NewValue     any
	Channel      string
	Metadata     map[string]any
	OccurredAt   time.Time
}

// BuildStoreSetEvent constructs a normalized activity event for a value
// mutation.
func BuildStoreSetEvent(input EventInput) Event {
	return buildStoreEvent("store.set", "store", input)
}

// BuildStoreActionEvent constructs a normalized activity event for an action
// dispatch.
func BuildStoreActionEvent(input EventInput) Event {
	return buildStoreEvent("store.action", "store", input)
}

// BuildStoreMountedEvent constructs an activity event for a binding gaining
// its first listener or pin.
func BuildStoreMountedEvent(input EventInput) Event {
	return buildStoreEvent("store.mounted", "store", input)
}

// BuildStoreStoppedEvent constructs an activity event for a binding losing
// its last listener.
func BuildStoreStoppedEvent(input EventInput) Event {
	return buildStoreEvent("store.stopped", "store", input)
}

// BuildContextResetEvent constructs an activity event for a context reset.
func BuildContextResetEvent(input EventInput) Event {
	return buildStoreEvent("context.reset", "context", input)
}

// BuildContextRestoredEvent constructs an activity event for a snapshot
// restore into a context.
func BuildContextRestoredEvent(input EventInput) Event {
	return buildStoreEvent("context.restored", "context", input)
}

func buildStoreEvent(verb, objectType string, input EventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.StoreID != 0 {
		metadata = ensureMetadata(metadata)
		metadata["store_id"] = input.StoreID
	}
	if input.OldValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["new_value"] = input.NewValue
	}
	if input.Action != "" {
		metadata = ensureMetadata(metadata)
		metadata["action"] = input.Action
	}

	objectID := strings.TrimSpace(input.StoreName)
	if objectID == "" && input.StoreID != 0 {
		objectID = fmt.Sprintf("store:%d", input.StoreID)
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:         verb,
		ContextLabel: strings.TrimSpace(input.ContextLabel),
		StoreName:    strings.TrimSpace(input.StoreName),
		Action:       strings.TrimSpace(input.Action),
		ObjectType:   objectType,
		ObjectID:     objectID,
		Channel:      strings.TrimSpace(input.Channel),
		Metadata:     metadata,
		OccurredAt:   input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
