// Package steps implements the onboarding wizard steps.
//
// Every step satisfies the uniform [Controller] contract consumed by the
// wizard: it validates its own fields, performs exactly one network write of
// its payload on success, advances the persisted resume point and reports the
// outcome as a boolean. Optional capabilities (draft save, dirty and
// submitting state) are separate interfaces discovered by type assertion.
//
// The four variants are [Personal], [Documents], [Bank] and [Agreement]. The
// [Registry] owns their order.
package steps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"onboard/internal/output"
)

// Kind names a step variant.
type Kind string

// Step kinds.
const (
	KindPersonal  Kind = "personal"
	KindDocuments Kind = "documents"
	KindBank      Kind = "bank"
	KindAgreement Kind = "agreement"
)

// Controller is the contract every wizard step implements.
type Controller interface {
	// Kind returns the step variant.
	Kind() Kind

	// Title returns the human-readable step title.
	Title() string

	// Index returns the step's position in the registry.
	Index() int

	// Submit validates the step and, on success, writes its payload.
	//
	// It returns false without side effects when validation fails (field
	// errors are then available from [FieldErrorReporter]) or when the
	// server did not accept the write. Transport failures are returned as
	// errors. Repeated calls while one is in flight must be prevented by the
	// caller.
	Submit(ctx context.Context) (bool, error)
}

// Saver is implemented by steps that support draft persistence.
type Saver interface {
	Save(ctx context.Context) error
}

// DirtyReporter is implemented by steps that track unsaved edits.
type DirtyReporter interface {
	IsDirty() bool
}

// SubmitReporter is implemented by steps that expose their in-flight state.
type SubmitReporter interface {
	IsSubmitting() bool
}

// FieldErrorReporter is implemented by steps that surface field-level errors.
type FieldErrorReporter interface {
	// Fields returns the step's field names in display order.
	Fields() []string

	// Errors returns the field errors from the last Submit, keyed by field.
	Errors() map[string]string
}

// ErrSaveRejected is returned by Save when the server did not accept a draft.
var ErrSaveRejected = errors.New("draft was not saved")

// StepAPI is the network surface the steps write through.
type StepAPI interface {
	PatchStep(ctx context.Context, token, endpoint string, payload any) (bool, error)
}

// ProgressAdvancer raises the persisted resume point.
type ProgressAdvancer interface {
	Advance(step int) error
}

// Attachment is a file to upload alongside the documents step.
type Attachment struct {
	Name        string
	ContentType string
	Body        io.Reader
	Size        int64
}

// Uploader stores an attachment in the object store and returns its key.
type Uploader interface {
	Upload(ctx context.Context, token string, a Attachment) (string, error)
}

// Deps are the collaborators shared by all steps.
type Deps struct {
	API      StepAPI
	Progress ProgressAdvancer
	Uploader Uploader

	// Token is the session credential sent with every write.
	Token string

	// Notify receives transient user-facing notices (network failures).
	// Optional.
	Notify func(msg string)

	// Now is the clock used for age checks and timestamps. Defaults to time.Now.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) notify(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	output.Debugf("steps: %s", msg)
	if d.Notify != nil {
		d.Notify(msg)
	}
}

// base carries the state shared by all variants.
type base struct {
	kind     Kind
	title    string
	endpoint string
	index    int
	// threshold is the first index that no longer advances the resume
	// point; the wizard handles completion of the last step itself.
	threshold int
	deps      Deps

	dirty      atomic.Bool
	submitting atomic.Bool

	mu   sync.Mutex
	errs map[string]string
}

func (b *base) Kind() Kind         { return b.kind }
func (b *base) Title() string      { return b.title }
func (b *base) Index() int         { return b.index }
func (b *base) IsDirty() bool      { return b.dirty.Load() }
func (b *base) IsSubmitting() bool { return b.submitting.Load() }
func (b *base) markDirty()         { b.dirty.Store(true) }
func (b *base) Endpoint() string   { return b.endpoint }

// Errors returns a copy of the field errors from the last Submit.
func (b *base) Errors() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return maps.Clone(b.errs)
}

func (b *base) setErrors(errs map[string]string) {
	b.mu.Lock()
	b.errs = errs
	b.mu.Unlock()
}

// submit runs the shared submit sequence: validate, write, advance.
func (b *base) submit(ctx context.Context, validate func() map[string]string, payload func(ctx context.Context) (any, error)) (bool, error) {
	b.submitting.Store(true)
	defer b.submitting.Store(false)

	if errs := validate(); len(errs) > 0 {
		b.setErrors(errs)
		return false, nil
	}
	b.setErrors(nil)

	body, err := payload(ctx)
	if err != nil {
		b.deps.notify("%s: %v", b.title, err)
		return false, err
	}

	ok, err := b.deps.API.PatchStep(ctx, b.deps.Token, b.endpoint, body)
	if err != nil {
		b.deps.notify("%s could not be submitted: %v", b.title, err)
		return false, err
	}
	if !ok {
		b.deps.notify("%s could not be submitted, please try again", b.title)
		return false, nil
	}

	if b.index < b.threshold && b.deps.Progress != nil {
		if err := b.deps.Progress.Advance(b.index + 1); err != nil {
			return false, err
		}
	}

	b.dirty.Store(false)
	return true, nil
}

// save writes a draft of the payload without validation or advancing.
func (b *base) save(ctx context.Context, payload any) error {
	ok, err := b.deps.API.PatchStep(ctx, b.deps.Token, b.endpoint, draft{Draft: true, Data: payload})
	if err != nil {
		b.deps.notify("%s draft could not be saved: %v", b.title, err)
		return err
	}
	if !ok {
		b.deps.notify("%s draft could not be saved, please try again", b.title)
		return ErrSaveRejected
	}
	b.dirty.Store(false)
	return nil
}

// draft wraps a partial payload for draft saves.
type draft struct {
	Draft bool `json:"draft"`
	Data  any  `json:"data"`
}

func required(errs map[string]string, field, value string) {
	if isBlank(value) {
		errs[field] = "is required"
	}
}
