package stores

import (
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-stores/internal/hydrate"
	"github.com/goliatone/go-stores/pkg/activity"
)

// SerializeContext walks every currently-bound store under ctx whose
// definition carries a name and returns a plain name -> value mapping.
// Unnamed stores are private and never serialized.
func SerializeContext(ctx *Context) (map[string]any, error) {
	rc, err := resolveContext(ctx)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	for _, b := range rc.snapshotBindings() {
		name := b.definition().Name()
		if name == "" {
			continue
		}
		out[name] = b.valueAny()
	}
	return out, nil
}

// RestoreOption configures ApplySerializedContext.
type RestoreOption func(*restoreConfig)

type restoreConfig struct {
	strict bool
}

// RestoreStrict makes snapshot keys without a matching named definition an
// error instead of being skipped. The default is the forward-compatible
// behaviour: unknown keys are ignored so older snapshots keep loading.
func RestoreStrict() RestoreOption {
	return func(cfg *restoreConfig) {
		cfg.strict = true
	}
}

// ApplySerializedContext loads snapshot into ctx: for each key, the binding
// of the named definition is resolved (creating it if necessary) and the
// value assigned directly. The assignment's own set -> notify broadcast
// fires, but no action event does; restoration is a state load, not a user
// action.
func ApplySerializedContext(ctx *Context, snapshot map[string]any, opts ...RestoreOption) error {
	rc, err := resolveContext(ctx)
	if err != nil {
		return err
	}
	cfg := restoreConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	for key, value := range snapshot {
		def, ok := lookupName(key)
		if !ok {
			if cfg.strict {
				return fmt.Errorf("%w: %q", ErrUnknownSnapshotKey, key)
			}
			continue
		}
		b, err := def.bindAny(rc)
		if err != nil {
			return err
		}
		if err := b.loadValue(value); err != nil {
			return err
		}
	}

	rc.emitActivity(activity.BuildContextRestoredEvent(activity.EventInput{
		Metadata: map[string]any{"keys": len(snapshot)},
	}))
	return nil
}

// hydrateValue coerces a snapshot payload into the binding's value type.
// Map payloads go through the hydrate decoder so struct-typed atoms restore
// cleanly; everything else takes a JSON round trip, which also papers over
// the usual float64/int drift in decoded snapshots.
func hydrateValue[T any](value any) (T, error) {
	var zero T

	if payload, ok := value.(map[string]any); ok {
		decoder := hydrate.NewDecoder[T]()
		result, err := decoder.Decode(hydrate.Context{Key: "snapshot"}, payload)
		if err != nil {
			return zero, err
		}
		return result, nil
	}

	buffer, err := json.Marshal(value)
	if err != nil {
		return zero, fmt.Errorf("stores: encode snapshot value: %w", err)
	}
	var result T
	if err := json.Unmarshal(buffer, &result); err != nil {
		return zero, fmt.Errorf("stores: decode snapshot value into %T: %w", zero, err)
	}
	return result, nil
}
