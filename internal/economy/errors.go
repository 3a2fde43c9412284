package economy

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable marks failures caused by an unreachable cache store,
// as opposed to signal absence (missing keys map to zero values, not
// errors) or invalid computed values.
var ErrStoreUnavailable = errors.New("economy: cache store unavailable")

// ErrInvalidCandidate marks a computed candidate price that is not usable
// (non-finite multiplier). The limiter falls back to the last known good
// price when it sees one.
var ErrInvalidCandidate = errors.New("economy: invalid candidate price")

// ErrCorruptRecord marks a stored record that exists but cannot be decoded.
// Unlike ErrStoreUnavailable this is not transient; the record stays corrupt
// until the next successful write replaces it.
var ErrCorruptRecord = errors.New("economy: corrupt stored record")

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %s", ErrStoreUnavailable, op, err)
}

func corruptErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %s", ErrCorruptRecord, op, err)
}
