package stores

import (
	"errors"
	"fmt"
)

// ErrAmbiguousContext signals that a store was resolved without an explicit
// context while explicit contexts exist in the process. The implicit default
// context is only usable before the first NewContext call.
var ErrAmbiguousContext = errors.New("stores: ambiguous context: pass an explicit *Context once NewContext has been used")

// ErrProductionReset signals that a development-only reset entry point was
// invoked while the runtime mode is production.
var ErrProductionReset = errors.New("stores: reset is not allowed in production runtime mode")

// ErrReadOnlyStore signals a Set attempt on a computed binding. Computed
// values are derived from their sources and cannot be written directly.
var ErrReadOnlyStore = errors.New("stores: computed stores are read-only")

// ErrUnknownSnapshotKey signals a snapshot key with no matching named store
// definition. Only reported when RestoreStrict is in effect.
var ErrUnknownSnapshotKey = errors.New("stores: snapshot key has no matching named store")

// BindingError captures store and context metadata alongside the originating
// error for failures raised while resolving or applying a binding.
type BindingError struct {
	Store   string
	Context string
	Err     error
}

func (e *BindingError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("stores: store %q context %q: %v", e.Store, e.Context, e.Err)
}

func (e *BindingError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func wrapBindingError(store, context string, err error) error {
	if err == nil {
		return nil
	}

	var bindErr *BindingError
	if errors.As(err, &bindErr) {
		if bindErr.Store == "" {
			bindErr.Store = store
		}
		if bindErr.Context == "" {
			bindErr.Context = context
		}
		return err
	}

	return &BindingError{
		Store:   store,
		Context: context,
		Err:     err,
	}
}
