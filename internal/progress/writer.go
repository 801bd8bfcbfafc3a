package progress

import (
	"fmt"
	"strconv"

	"onboard/internal/kvstore"
)

// Writer writes the persisted resume point.
type Writer struct {
	store kvstore.KV
}

// NewWriter creates a new Writer over the given store.
func NewWriter(store kvstore.KV) *Writer {
	return &Writer{store: store}
}

// SetActiveStep persists the step index.
func (w *Writer) SetActiveStep(step int) error {
	if step < 0 {
		return fmt.Errorf("invalid step index: %d", step)
	}
	if err := w.store.Set(kvstore.KeyActiveStep, strconv.Itoa(step)); err != nil {
		return fmt.Errorf("failed to write active step: %w", err)
	}
	return nil
}

// Advance raises the persisted step index to at least step. A stored value
// that is already higher is kept.
func (w *Writer) Advance(step int) error {
	current, ok, err := NewReader(w.store).ActiveStep()
	if err != nil {
		return err
	}
	if ok && current >= step {
		return nil
	}
	return w.SetActiveStep(step)
}

// Reset sets the persisted step index back to 0.
func (w *Writer) Reset() error {
	return w.SetActiveStep(0)
}

// Store combines a [Reader] and a [Writer] over the same key-value store.
type Store struct {
	*Reader
	*Writer
}

// NewStore creates a Store over kv.
func NewStore(kv kvstore.KV) *Store {
	return &Store{Reader: NewReader(kv), Writer: NewWriter(kv)}
}
