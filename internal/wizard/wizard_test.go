package wizard

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboard/internal/kvstore"
	"onboard/internal/progress"
	"onboard/internal/router"
	"onboard/internal/session"
	"onboard/internal/steps"
)

// fakeStep is a scriptable steps.Controller.
type fakeStep struct {
	index int

	mu       sync.Mutex
	calls    int
	result   bool
	err      error
	panicMsg string
	dirty    bool
	saves    int
	saveErr  error

	// block, when set, makes Submit wait for it to close after signalling started.
	block   chan struct{}
	started chan struct{}

	submitting atomic.Bool
}

func (f *fakeStep) Kind() steps.Kind { return steps.KindPersonal }
func (f *fakeStep) Title() string    { return "fake" }
func (f *fakeStep) Index() int       { return f.index }

func (f *fakeStep) Submit(ctx context.Context) (bool, error) {
	f.submitting.Store(true)
	defer f.submitting.Store(false)

	f.mu.Lock()
	f.calls++
	block, started := f.block, f.started
	result, err, panicMsg := f.result, f.err, f.panicMsg
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if block != nil {
		<-block
	}
	if panicMsg != "" {
		panic(panicMsg)
	}
	return result, err
}

func (f *fakeStep) Save(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.dirty = false
	return nil
}

func (f *fakeStep) IsDirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirty
}

func (f *fakeStep) IsSubmitting() bool { return f.submitting.Load() }

func (f *fakeStep) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// noSave has no optional capabilities.
type noSave struct{ inner *fakeStep }

func (n noSave) Kind() steps.Kind                        { return steps.KindAgreement }
func (n noSave) Title() string                           { return "agreement" }
func (n noSave) Index() int                              { return n.inner.index }
func (n noSave) Submit(ctx context.Context) (bool, error) { return n.inner.Submit(ctx) }

type harness struct {
	ctrl  *Controller
	steps []*fakeStep
	kv    *kvstore.Store
}

func newHarness(t *testing.T, n int) *harness {
	t.Helper()
	kv, err := kvstore.Open(kvstore.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	fakes := make([]*fakeStep, n)
	ctrls := make([]steps.Controller, n)
	for i := range fakes {
		fakes[i] = &fakeStep{index: i, result: true}
		ctrls[i] = fakes[i]
	}

	return &harness{
		ctrl:  NewController(steps.NewRegistryFromSteps(ctrls...), progress.NewStore(kv)),
		steps: fakes,
		kv:    kv,
	}
}

func (h *harness) persisted(t *testing.T) string {
	t.Helper()
	v, err := h.kv.Get(kvstore.KeyActiveStep)
	require.NoError(t, err)
	return v
}

func (h *harness) mount(t *testing.T, claims session.Claims) {
	t.Helper()
	require.NoError(t, h.ctrl.Mount(session.New("tok", claims)))
}

var employee = session.Claims{Role: session.RoleEmployee, JoineeType: session.JoineeNew, EditRights: true}

func TestMount(t *testing.T) {
	tests := []struct {
		name          string
		stored        string
		claims        session.Claims
		wantCurrent   int
		wantHighest   int
		wantPersisted string
	}{
		{"nothing stored", "", employee, 0, 0, ""},
		{"restores stored step", "2", employee, 2, 2, "2"},
		{"restores last step", "3", employee, 3, 3, "3"},
		{"out of range resets to zero", "7", employee, 0, 0, "0"},
		{"garbage is ignored", "x", employee, 0, 0, "x"},
		{"special user forced to zero", "2", session.Claims{Role: session.RoleAdmin}, 0, 0, "0"},
		{"experienced joinee forced to zero", "3", session.Claims{Role: session.RoleEmployee, JoineeType: session.JoineeExperienced}, 0, 0, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 4)
			if tt.stored != "" {
				require.NoError(t, h.kv.Set(kvstore.KeyActiveStep, tt.stored))
			}

			h.mount(t, tt.claims)

			st := h.ctrl.State()
			assert.Equal(t, tt.wantCurrent, st.Current)
			assert.Equal(t, tt.wantHighest, st.Highest)
			assert.Equal(t, 4, st.StepCount)
			if tt.wantPersisted == "" {
				_, err := h.kv.Get(kvstore.KeyActiveStep)
				assert.ErrorIs(t, err, kvstore.ErrNotFound)
			} else {
				assert.Equal(t, tt.wantPersisted, h.persisted(t))
			}
		})
	}
}

func TestNotMounted(t *testing.T) {
	h := newHarness(t, 4)

	_, err := h.ctrl.Next(context.Background())
	assert.ErrorIs(t, err, ErrNotMounted)
	_, err = h.ctrl.Back()
	assert.ErrorIs(t, err, ErrNotMounted)
	_, err = h.ctrl.JumpTo(0)
	assert.ErrorIs(t, err, ErrNotMounted)
	_, err = h.ctrl.Save(context.Background())
	assert.ErrorIs(t, err, ErrNotMounted)
}

func TestNext_AdvancesAndPersists(t *testing.T) {
	h := newHarness(t, 4)
	h.mount(t, employee)

	out, err := h.ctrl.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Outcome{Accepted: true}, out)

	st := h.ctrl.State()
	assert.Equal(t, 1, st.Current)
	assert.Equal(t, 1, st.Highest)
	assert.Equal(t, Forward, st.Direction)
	assert.Equal(t, ActionNone, st.InFlight)
	assert.Equal(t, "1", h.persisted(t))
	assert.Equal(t, 1, h.steps[0].Calls())
}

func TestNext_RejectedLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t, 4)
	h.steps[0].result = false
	h.mount(t, employee)

	out, err := h.ctrl.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, 0, h.ctrl.State().Current)
}

func TestNext_ErrorClearsInFlight(t *testing.T) {
	h := newHarness(t, 4)
	h.steps[0].err = errors.New("network down")
	h.mount(t, employee)

	_, err := h.ctrl.Next(context.Background())
	assert.EqualError(t, err, "network down")

	st := h.ctrl.State()
	assert.Equal(t, 0, st.Current)
	assert.Equal(t, ActionNone, st.InFlight)

	// the wizard stays usable
	h.steps[0].err = nil
	out, err := h.ctrl.Next(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Accepted)
}

func TestNext_PanicIsRecovered(t *testing.T) {
	h := newHarness(t, 4)
	h.steps[0].panicMsg = "boom"
	h.mount(t, employee)

	_, err := h.ctrl.Next(context.Background())
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, ActionNone, h.ctrl.State().InFlight)
	assert.Equal(t, 0, h.ctrl.State().Current)
}

func TestNext_LastStepLoopsToStart(t *testing.T) {
	h := newHarness(t, 4)
	require.NoError(t, h.kv.Set(kvstore.KeyActiveStep, "3"))
	h.mount(t, employee)

	out, err := h.ctrl.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Outcome{Accepted: true, Completed: true}, out)

	st := h.ctrl.State()
	assert.Equal(t, 0, st.Current)
	assert.Equal(t, 3, st.Highest, "high-water mark never decreases")
	assert.Equal(t, "0", h.persisted(t))
}

func TestSpecialUser(t *testing.T) {
	h := newHarness(t, 4)
	require.NoError(t, h.kv.Set(kvstore.KeyActiveStep, "2"))
	h.mount(t, session.Claims{Role: session.RoleEmployee, JoineeType: session.JoineeExperienced})

	st := h.ctrl.State()
	require.True(t, st.Special)
	require.Equal(t, 0, st.Current)

	out, err := h.ctrl.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Outcome{Accepted: true, Route: router.RouteProfile}, out)
	assert.Equal(t, 0, h.ctrl.State().Current)
	assert.Equal(t, "0", h.persisted(t))

	for k := -1; k < 5; k++ {
		moved, err := h.ctrl.JumpTo(k)
		require.NoError(t, err)
		assert.False(t, moved)
	}
	moved, err := h.ctrl.Back()
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, 0, h.ctrl.State().Current)
}

func TestBack(t *testing.T) {
	h := newHarness(t, 4)
	require.NoError(t, h.kv.Set(kvstore.KeyActiveStep, "2"))
	h.mount(t, employee)

	moved, err := h.ctrl.Back()
	require.NoError(t, err)
	assert.True(t, moved)

	st := h.ctrl.State()
	assert.Equal(t, 1, st.Current)
	assert.Equal(t, 2, st.Highest)
	assert.Equal(t, Backward, st.Direction)
	assert.Equal(t, "1", h.persisted(t))

	_, _ = h.ctrl.Back()
	moved, err = h.ctrl.Back()
	require.NoError(t, err)
	assert.False(t, moved, "back on step 0 is a no-op")
	assert.Equal(t, "0", h.persisted(t))
}

func TestJumpTo(t *testing.T) {
	h := newHarness(t, 4)
	require.NoError(t, h.kv.Set(kvstore.KeyActiveStep, "2"))
	h.mount(t, employee)

	moved, err := h.ctrl.JumpTo(3)
	require.NoError(t, err)
	assert.False(t, moved, "cannot skip ahead of the highest step reached")

	moved, err = h.ctrl.JumpTo(0)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, Backward, h.ctrl.State().Direction)
	assert.Equal(t, "0", h.persisted(t))

	moved, err = h.ctrl.JumpTo(2)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, Forward, h.ctrl.State().Direction)
	assert.Equal(t, "2", h.persisted(t))
	assert.Equal(t, 0, h.steps[1].Calls(), "intermediate steps are not re-validated")

	moved, err = h.ctrl.JumpTo(2)
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestJumpTo_WithoutPersist(t *testing.T) {
	h := newHarness(t, 4)
	h.ctrl.SetPersistOnJump(false)
	require.NoError(t, h.kv.Set(kvstore.KeyActiveStep, "2"))
	h.mount(t, employee)

	moved, err := h.ctrl.JumpTo(1)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, 1, h.ctrl.State().Current)
	assert.Equal(t, "2", h.persisted(t), "preview jumps leave the resume point alone")
}

func TestNext_DropsConcurrentRequest(t *testing.T) {
	h := newHarness(t, 4)
	h.steps[0].block = make(chan struct{})
	h.steps[0].started = make(chan struct{})
	h.mount(t, employee)

	done := make(chan error, 1)
	go func() {
		_, err := h.ctrl.Next(context.Background())
		done <- err
	}()

	select {
	case <-h.steps[0].started:
	case <-time.After(time.Second):
		t.Fatal("first submit never started")
	}

	assert.Equal(t, ActionSubmit, h.ctrl.State().InFlight)

	_, err := h.ctrl.Next(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	_, err = h.ctrl.Save(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	_, err = h.ctrl.Back()
	assert.ErrorIs(t, err, ErrBusy)
	_, err = h.ctrl.JumpTo(0)
	assert.ErrorIs(t, err, ErrBusy)

	close(h.steps[0].block)
	require.NoError(t, <-done)

	assert.Equal(t, 1, h.steps[0].Calls(), "exactly one submission")
	assert.Equal(t, 1, h.ctrl.State().Current)
}

func TestNext_StepAlreadySubmitting(t *testing.T) {
	h := newHarness(t, 4)
	h.mount(t, employee)
	h.steps[0].submitting.Store(true)

	_, err := h.ctrl.Next(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 0, h.steps[0].Calls())
}

func TestSave(t *testing.T) {
	h := newHarness(t, 4)
	h.mount(t, employee)

	saved, err := h.ctrl.Save(context.Background())
	require.NoError(t, err)
	assert.False(t, saved, "clean step is not saved")
	assert.Equal(t, 0, h.steps[0].saves)

	h.steps[0].dirty = true
	saved, err = h.ctrl.Save(context.Background())
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, 1, h.steps[0].saves)
	assert.Equal(t, 0, h.ctrl.State().Current, "save does not advance")

	h.steps[0].dirty = true
	h.steps[0].saveErr = errors.New("offline")
	saved, err = h.ctrl.Save(context.Background())
	assert.Error(t, err)
	assert.False(t, saved)
	assert.Equal(t, ActionNone, h.ctrl.State().InFlight)
}

func TestSave_StepWithoutDraftSupport(t *testing.T) {
	kv, err := kvstore.Open(kvstore.Options{InMemory: true})
	require.NoError(t, err)
	defer kv.Close()

	inner := &fakeStep{result: true, dirty: true}
	ctrl := NewController(steps.NewRegistryFromSteps(noSave{inner}), progress.NewStore(kv))
	require.NoError(t, ctrl.Mount(session.New("tok", employee)))

	saved, err := ctrl.Save(context.Background())
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Equal(t, 0, inner.saves)
}

func TestTransitionCallback(t *testing.T) {
	h := newHarness(t, 4)
	var got []Transition
	h.ctrl.SetTransitionCallback(func(tr Transition) { got = append(got, tr) })
	h.mount(t, employee)

	_, _ = h.ctrl.Next(context.Background())
	_, _ = h.ctrl.Back()

	assert.Equal(t, []Transition{
		{From: 0, To: 1, Direction: Forward},
		{From: 1, To: 0, Direction: Backward},
	}, got)
}

func TestRandomSequences_KeepStateConsistent(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for run := 0; run < 50; run++ {
		h := newHarness(t, 4)
		h.mount(t, employee)
		prevHighest := 0

		for op := 0; op < 40; op++ {
			for _, s := range h.steps {
				s.result = rng.Intn(4) != 0
			}

			var err error
			switch rng.Intn(3) {
			case 0:
				_, err = h.ctrl.Next(context.Background())
			case 1:
				_, err = h.ctrl.Back()
			case 2:
				_, err = h.ctrl.JumpTo(rng.Intn(6) - 1)
			}
			require.NoError(t, err)

			st := h.ctrl.State()
			require.GreaterOrEqual(t, st.Current, 0)
			require.LessOrEqual(t, st.Current, 3)
			require.GreaterOrEqual(t, st.Highest, st.Current)
			require.GreaterOrEqual(t, st.Highest, prevHighest)
			require.Equal(t, ActionNone, st.InFlight)
			if _, err := h.kv.Get(kvstore.KeyActiveStep); err == nil {
				require.Equal(t, st.Current, mustAtoi(t, h.persisted(t)))
			}
			prevHighest = st.Highest
		}
	}
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n := 0
	for _, r := range s {
		require.True(t, r >= '0' && r <= '9')
		n = n*10 + int(r-'0')
	}
	return n
}

func TestEmptyRegistry(t *testing.T) {
	kv, err := kvstore.Open(kvstore.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	ctrl := NewController(steps.NewRegistryFromSteps(), progress.NewStore(kv))
	require.NoError(t, ctrl.Mount(session.New("tok", employee)))

	_, err = ctrl.Next(context.Background())
	assert.ErrorIs(t, err, ErrNoStep)
	assert.Equal(t, ActionNone, ctrl.State().InFlight)

	saved, err := ctrl.Save(context.Background())
	assert.ErrorIs(t, err, ErrNoStep)
	assert.False(t, saved)
}
