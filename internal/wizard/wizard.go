// Package wizard drives the resumable multi-step onboarding flow.
//
// The [Controller] owns the current step index, the highest step reached this
// session, the animation direction, the special-user flag and the in-flight
// action. It orchestrates next/back/jump/save against the step registry and
// persists the step index on every committed transition so the flow resumes
// at the same place after a restart.
//
// Key concepts:
//   - At most one mutating action (next or save) runs at a time; a second
//     request while one is in flight is dropped with [ErrBusy], not queued
//   - Special users (see [session.IsSpecialUser]) are pinned to step 0 and a
//     successful submit routes them to the profile
//   - A successful submit on the last step loops back to step 0
//   - A persisted index beyond the last step is reset to 0 and re-persisted
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"onboard/internal/output"
	"onboard/internal/router"
	"onboard/internal/session"
	"onboard/internal/steps"
)

// Sentinel errors for wizard actions.
var (
	// ErrBusy is returned when an action is requested while another is in
	// flight. The request is dropped; callers should not retry automatically.
	ErrBusy = errors.New("another wizard action is in progress")

	// ErrNotMounted is returned when an action is requested before [Controller.Mount].
	ErrNotMounted = errors.New("wizard is not mounted")

	// ErrNoStep is returned when the registry has no step at the current index.
	ErrNoStep = errors.New("wizard has no active step")
)

// Direction is the presentational direction of the last transition.
type Direction int

// Directions.
const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Action is the kind of mutating action in flight.
type Action int

// Actions.
const (
	ActionNone Action = iota
	ActionSubmit
	ActionSave
)

func (a Action) String() string {
	switch a {
	case ActionSubmit:
		return "submit"
	case ActionSave:
		return "save"
	}
	return "none"
}

// State is a snapshot of the wizard.
type State struct {
	Current   int
	Highest   int
	Direction Direction
	Special   bool
	InFlight  Action
	StepCount int
}

// Transition describes a committed step change.
type Transition struct {
	From      int
	To        int
	Direction Direction
}

// TransitionCallback is invoked after each committed step change. It runs
// with the controller locked and must not call back into it.
type TransitionCallback func(t Transition)

// Outcome reports the result of [Controller.Next].
type Outcome struct {
	// Accepted is true when the active step's submit succeeded.
	Accepted bool

	// Route is set when the flow leaves the wizard (special users go to
	// the profile).
	Route router.Route

	// Completed is true when the last step was submitted and the wizard
	// looped back to step 0.
	Completed bool
}

// ProgressStore reads and writes the persisted resume point.
type ProgressStore interface {
	ActiveStep() (int, bool, error)
	SetActiveStep(step int) error
}

// Controller is the wizard state machine.
type Controller struct {
	registry *steps.Registry
	progress ProgressStore

	persistOnJump bool
	onTransition  TransitionCallback

	mu        sync.Mutex
	mounted   bool
	current   int
	highest   int
	direction Direction
	special   bool
	inFlight  Action
}

// NewController creates a Controller over the step registry and progress store.
//
// Jumps persist the new index by default; see [Controller.SetPersistOnJump].
func NewController(registry *steps.Registry, progress ProgressStore) *Controller {
	return &Controller{
		registry:      registry,
		progress:      progress,
		persistOnJump: true,
	}
}

// SetPersistOnJump controls whether [Controller.JumpTo] persists the new index.
func (c *Controller) SetPersistOnJump(on bool) {
	c.persistOnJump = on
}

// SetTransitionCallback configures an optional callback for committed step changes.
func (c *Controller) SetTransitionCallback(cb TransitionCallback) {
	c.onTransition = cb
}

// Mount restores the wizard from the persisted resume point.
//
// A stored index within range becomes both the current and the highest step.
// An index beyond the last step is reset to 0 and re-persisted. Special users
// are forced to step 0 and 0 is persisted regardless of the stored value.
func (c *Controller) Mount(sess session.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current, c.highest = 0, 0
	c.direction = Forward
	c.inFlight = ActionNone
	c.special = sess.IsSpecialUser()

	step, ok, err := c.progress.ActiveStep()
	if err != nil {
		return err
	}

	switch {
	case c.special:
		if err := c.progress.SetActiveStep(0); err != nil {
			return err
		}
	case ok && step <= c.last():
		c.current, c.highest = step, step
	case ok:
		output.Debugf("wizard: persisted step %d out of range, resetting", step)
		if err := c.progress.SetActiveStep(0); err != nil {
			return err
		}
	}

	c.mounted = true
	return nil
}

// State returns a snapshot of the wizard.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Current:   c.current,
		Highest:   c.highest,
		Direction: c.direction,
		Special:   c.special,
		InFlight:  c.inFlight,
		StepCount: c.registry.Len(),
	}
}

// Active returns the step controller for the current step.
func (c *Controller) Active() steps.Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.At(c.current)
}

// Registry returns the step registry.
func (c *Controller) Registry() *steps.Registry {
	return c.registry
}

// Next submits the active step and advances on success.
//
// It returns [ErrBusy] without calling the step when an action is in flight
// or the step reports it is already submitting. A false submit leaves the
// state unchanged. Errors from the step (including panics) are returned and
// also leave the state unchanged; the in-flight flag is always cleared.
func (c *Controller) Next(ctx context.Context) (out Outcome, err error) {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return Outcome{}, ErrNotMounted
	}
	if c.inFlight != ActionNone {
		c.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	if err := c.heal(); err != nil {
		c.mu.Unlock()
		return Outcome{}, err
	}
	active := c.registry.At(c.current)
	if active == nil {
		c.mu.Unlock()
		return Outcome{}, ErrNoStep
	}
	if r, ok := active.(steps.SubmitReporter); ok && r.IsSubmitting() {
		c.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	c.inFlight = ActionSubmit
	c.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			out, err = Outcome{}, fmt.Errorf("step %q panicked: %v", active.Title(), r)
		}
		c.mu.Lock()
		c.inFlight = ActionNone
		c.mu.Unlock()
	}()

	ok, err := active.Submit(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.special {
		// The step advanced the resume point; special users stay pinned.
		if err := c.progress.SetActiveStep(c.current); err != nil {
			return Outcome{Accepted: true}, err
		}
		return Outcome{Accepted: true, Route: router.RouteProfile}, nil
	}

	if c.current == c.last() {
		if err := c.commit(0, Forward); err != nil {
			return Outcome{Accepted: true}, err
		}
		return Outcome{Accepted: true, Completed: true}, nil
	}

	if err := c.commit(c.current+1, Forward); err != nil {
		return Outcome{Accepted: true}, err
	}
	return Outcome{Accepted: true}, nil
}

// Back moves to the previous step. It is a no-op on step 0 and for special
// users. Returns whether the step changed.
func (c *Controller) Back() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mounted {
		return false, ErrNotMounted
	}
	if c.inFlight != ActionNone {
		return false, ErrBusy
	}
	if err := c.heal(); err != nil {
		return false, err
	}
	if c.current == 0 || c.special {
		return false, nil
	}

	if err := c.commit(c.current-1, Backward); err != nil {
		return false, err
	}
	return true, nil
}

// JumpTo moves directly to step k without re-validating intermediate steps.
//
// It is a no-op for special users, for k beyond the highest step reached, for
// negative k and for the current step. Returns whether the step changed.
func (c *Controller) JumpTo(k int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mounted {
		return false, ErrNotMounted
	}
	if c.inFlight != ActionNone {
		return false, ErrBusy
	}
	if err := c.heal(); err != nil {
		return false, err
	}
	if c.special || k < 0 || k > c.highest || k == c.current {
		return false, nil
	}

	dir := Forward
	if k < c.current {
		dir = Backward
	}

	if !c.persistOnJump {
		c.move(k, dir)
		return true, nil
	}
	if err := c.commit(k, dir); err != nil {
		return false, err
	}
	return true, nil
}

// Save writes a draft of the active step without advancing.
//
// It is a no-op when the step has no draft support or reports no unsaved
// changes. Returns [ErrBusy] when an action is in flight. Returns whether a
// save was attempted and succeeded.
func (c *Controller) Save(ctx context.Context) (saved bool, err error) {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return false, ErrNotMounted
	}
	if c.inFlight != ActionNone {
		c.mu.Unlock()
		return false, ErrBusy
	}
	active := c.registry.At(c.current)
	if active == nil {
		c.mu.Unlock()
		return false, ErrNoStep
	}
	saver, ok := active.(steps.Saver)
	if !ok {
		c.mu.Unlock()
		return false, nil
	}
	if d, ok := active.(steps.DirtyReporter); ok && !d.IsDirty() {
		c.mu.Unlock()
		return false, nil
	}
	c.inFlight = ActionSave
	c.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			saved, err = false, fmt.Errorf("step %q panicked: %v", active.Title(), r)
		}
		c.mu.Lock()
		c.inFlight = ActionNone
		c.mu.Unlock()
	}()

	if err := saver.Save(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Controller) last() int {
	return c.registry.Len() - 1
}

// heal resets an out-of-range current step to 0. Caller holds mu.
func (c *Controller) heal() error {
	if c.current >= 0 && c.current <= c.last() {
		return nil
	}
	output.Debugf("wizard: current step %d out of range, resetting", c.current)
	if err := c.progress.SetActiveStep(0); err != nil {
		return err
	}
	c.current = 0
	if c.highest > c.last() {
		c.highest = c.last()
	}
	return nil
}

// commit persists step and then moves to it. Caller holds mu.
func (c *Controller) commit(step int, dir Direction) error {
	if err := c.progress.SetActiveStep(step); err != nil {
		return err
	}
	c.move(step, dir)
	return nil
}

// move updates the in-memory position. Caller holds mu.
func (c *Controller) move(step int, dir Direction) {
	from := c.current
	c.direction = dir
	c.current = step
	if step > c.highest {
		c.highest = step
	}
	if c.onTransition != nil {
		c.onTransition(Transition{From: from, To: step, Direction: dir})
	}
}
