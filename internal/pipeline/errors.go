package pipeline

import (
	"errors"
	"fmt"
)

// TransientStoreError marks a store failure (timeout, lock contention,
// connection loss) during claim or append. The incident took no outward
// side effect; the upstream caller may retry the delivery.
type TransientStoreError struct {
	Op  string
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("transient store failure during %s: %v", e.Op, e.Err)
}

func (e *TransientStoreError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a TransientStoreError.
func IsTransient(err error) bool {
	var t *TransientStoreError
	return errors.As(err, &t)
}
