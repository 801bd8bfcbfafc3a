// Package progress persists the wizard resume point.
//
// The resume point (PersistedProgress) is the only wizard field that survives
// a process restart. It lives in the key-value store under
// [kvstore.KeyActiveStep] as a decimal string. It is created at first
// authentication, updated on every committed wizard transition and removed
// only by the store-wide clear on logout.
package progress

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"onboard/internal/kvstore"
)

// Reader reads the persisted resume point.
type Reader struct {
	store kvstore.KV
}

// NewReader creates a new [Reader] over the given store.
func NewReader(store kvstore.KV) *Reader {
	return &Reader{store: store}
}

// ActiveStep returns the persisted step index.
//
// The boolean is false when nothing is stored or the stored value is not a
// non-negative decimal integer; such values are treated as absent rather
// than as errors. Range checking against the step count is the caller's job.
func (r *Reader) ActiveStep() (int, bool, error) {
	raw, err := r.store.Get(kvstore.KeyActiveStep)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read active step: %w", err)
	}

	step, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || step < 0 {
		return 0, false, nil
	}
	return step, true, nil
}
