package escalation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RevCBH/guardian/internal/alert"
	"github.com/RevCBH/guardian/internal/capture"
	"github.com/RevCBH/guardian/internal/events"
)

const tierDelay = 5 * time.Minute

// scriptedNotifier answers each tier from a table and records every call.
type scriptedNotifier struct {
	mu       sync.Mutex
	calls    []alert.Request
	outcomes map[int]*alert.Outcome
	errs     map[int]error
	block    chan struct{}
}

func (n *scriptedNotifier) NotifyTier(ctx context.Context, req alert.Request) (*alert.Outcome, error) {
	n.mu.Lock()
	n.calls = append(n.calls, req)
	n.mu.Unlock()

	if n.block != nil {
		select {
		case <-n.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := n.errs[req.Tier]; err != nil {
		return nil, err
	}
	if o, ok := n.outcomes[req.Tier]; ok {
		out := *o
		out.Tier = req.Tier
		return &out, nil
	}
	return &alert.Outcome{Tier: req.Tier}, nil
}

func (n *scriptedNotifier) tiersCalled() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]int, len(n.calls))
	for i, c := range n.calls {
		out[i] = c.Tier
	}
	return out
}

type stubCapturer struct {
	mu      sync.Mutex
	result  capture.Result
	block   bool
	stopped int
}

func (c *stubCapturer) CaptureAll(ctx context.Context, req capture.Request) capture.Result {
	if c.block {
		<-ctx.Done()
		return capture.Result{}
	}
	res := capture.Result{}
	if req.Location {
		res.Location = c.result.Location
	}
	if req.Audio {
		res.Audio = c.result.Audio
	}
	if req.Photo {
		res.Photo = c.result.Photo
	}
	return res
}

func (c *stubCapturer) StopAudio() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped++
}

func (c *stubCapturer) stops() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

type harness struct {
	coord    *Coordinator
	clock    *FakeClock
	notifier *scriptedNotifier
	capturer *stubCapturer
	bus      *events.Bus
	mu       sync.Mutex
	seen     []events.EventType
}

func newHarness(t *testing.T, notifier *scriptedNotifier) *harness {
	t.Helper()
	h := &harness{
		clock:    NewFakeClock(epoch),
		notifier: notifier,
		capturer: &stubCapturer{},
		bus:      events.NewBus(256),
	}
	h.bus.Subscribe(func(e events.Event) {
		if e.Type == events.TierProgress {
			return
		}
		h.mu.Lock()
		h.seen = append(h.seen, e.Type)
		h.mu.Unlock()
	})

	coord, err := New(Config{
		Sender:           alert.Sender{UserID: "u1", Name: "Thandi"},
		TierDelay:        tierDelay,
		ProgressInterval: time.Second,
	}, Dependencies{
		Notifier: notifier,
		Capturer: h.capturer,
		Bus:      h.bus,
		Clock:    h.clock,
	})
	require.NoError(t, err)
	h.coord = coord

	t.Cleanup(func() {
		coord.Close()
		h.bus.Close()
	})
	return h
}

func (h *harness) eventTypes() []events.EventType {
	h.bus.Close()
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]events.EventType(nil), h.seen...)
}

func (h *harness) waitFor(t *testing.T, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	var snap Snapshot
	require.Eventually(t, func() bool {
		snap = h.coord.Snapshot()
		return cond(snap)
	}, 2*time.Second, 2*time.Millisecond)
	return snap
}

func (h *harness) waitWaiting(t *testing.T, tier int) {
	t.Helper()
	h.waitFor(t, func(s Snapshot) bool {
		return s.State == StateTierActive && s.Phase == PhaseWaiting && s.Tier == tier
	})
}

func (h *harness) waitTerminal(t *testing.T) Snapshot {
	t.Helper()
	return h.waitFor(t, func(s Snapshot) bool { return s.State.Terminal() })
}

func TestCoordinator_ScenarioA_ExhaustsImmediately(t *testing.T) {
	h := newHarness(t, &scriptedNotifier{outcomes: map[int]*alert.Outcome{
		1: {ContactsFound: 1, ContactsReached: 1, EmailSuccess: 1},
	}})

	_, err := h.coord.Activate("", Consent{})
	require.NoError(t, err)

	snap := h.waitTerminal(t)
	assert.Equal(t, StateExhausted, snap.State)
	assert.Equal(t, ReasonCompleted, snap.Reason)
	assert.Equal(t, 1, snap.ContactsReached)
	require.Len(t, snap.Outcomes, 1)
	assert.Equal(t, 1, snap.Outcomes[0].EmailSuccess)
	assert.Zero(t, snap.Outcomes[0].SMSSuccess)

	assert.Zero(t, h.clock.TimersCreated())
	assert.Equal(t, []int{1}, h.notifier.tiersCalled())
	assert.Equal(t, []events.EventType{
		events.SessionStarted,
		events.ContextCaptured,
		events.TierDispatching,
		events.TierNotified,
		events.SessionExhausted,
	}, h.eventTypes())
}

func TestCoordinator_ScenarioB_EmptyMiddleTier(t *testing.T) {
	h := newHarness(t, &scriptedNotifier{outcomes: map[int]*alert.Outcome{
		1: {ContactsFound: 1, ContactsReached: 1, EmailSuccess: 1, NextTiersAvailable: true},
		2: {NextTiersAvailable: true},
		3: {ContactsFound: 1, ContactsReached: 1, SMSSuccess: 1},
	}})

	_, err := h.coord.Activate("Being followed", Consent{})
	require.NoError(t, err)

	h.waitWaiting(t, 1)
	assert.Equal(t, []int{1}, h.notifier.tiersCalled())

	// Not yet due.
	h.clock.Advance(tierDelay - time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []int{1}, h.notifier.tiersCalled())

	h.clock.Advance(time.Second)
	h.waitWaiting(t, 2)
	assert.Equal(t, []int{1, 2}, h.notifier.tiersCalled())

	h.clock.Advance(tierDelay)
	snap := h.waitTerminal(t)

	assert.Equal(t, StateExhausted, snap.State)
	assert.Equal(t, ReasonCompleted, snap.Reason)
	assert.Equal(t, 3, snap.Tier)
	assert.Equal(t, 3, snap.TiersNotified())
	assert.Equal(t, 2, snap.ContactsReached)
	assert.Equal(t, []int{1, 2, 3}, h.notifier.tiersCalled())
	assert.Equal(t, 2, h.clock.TimersCreated())
	assert.Zero(t, h.clock.ActiveTimers())
	assert.Zero(t, h.clock.ActiveTickers())
}

func TestCoordinator_ScenarioC_CancelDuringWait(t *testing.T) {
	h := newHarness(t, &scriptedNotifier{outcomes: map[int]*alert.Outcome{
		1: {ContactsFound: 1, ContactsReached: 1, EmailSuccess: 1, NextTiersAvailable: true},
	}})

	_, err := h.coord.Activate("", Consent{})
	require.NoError(t, err)
	h.waitWaiting(t, 1)

	h.clock.Advance(90 * time.Second)
	assert.True(t, h.coord.Cancel())

	h.clock.Advance(time.Hour)
	time.Sleep(20 * time.Millisecond)

	snap := h.coord.Snapshot()
	assert.Equal(t, StateCancelled, snap.State)
	assert.Equal(t, []int{1}, h.notifier.tiersCalled())
	assert.Zero(t, h.clock.ActiveTimers())
	assert.Zero(t, h.clock.ActiveTickers())
	assert.Equal(t, 1, h.capturer.stops())
}

func TestCoordinator_EmptyFirstTierArmsOnce(t *testing.T) {
	h := newHarness(t, &scriptedNotifier{outcomes: map[int]*alert.Outcome{
		1: {NextTiersAvailable: true},
		2: {ContactsFound: 2, ContactsReached: 2, EmailSuccess: 2},
	}})

	_, err := h.coord.Activate("", Consent{})
	require.NoError(t, err)
	h.waitWaiting(t, 1)
	assert.Equal(t, 1, h.clock.TimersCreated())

	h.clock.Advance(tierDelay)
	snap := h.waitTerminal(t)

	assert.Equal(t, StateExhausted, snap.State)
	assert.Equal(t, []int{1, 2}, h.notifier.tiersCalled())
	assert.Equal(t, 1, h.clock.TimersCreated())
}

func TestCoordinator_NoContactsNeverArms(t *testing.T) {
	h := newHarness(t, &scriptedNotifier{errs: map[int]error{1: alert.ErrNoContacts}})

	_, err := h.coord.Activate("", Consent{})
	require.NoError(t, err)

	snap := h.waitTerminal(t)
	assert.Equal(t, StateExhausted, snap.State)
	assert.Equal(t, ReasonNoContacts, snap.Reason)
	assert.ErrorIs(t, snap.Err, alert.ErrNoContacts)
	assert.Zero(t, h.clock.TimersCreated())
	assert.Empty(t, snap.Outcomes)
}

func TestCoordinator_DispatcherFailureTerminates(t *testing.T) {
	h := newHarness(t, &scriptedNotifier{
		outcomes: map[int]*alert.Outcome{1: {ContactsFound: 1, EmailSuccess: 1, NextTiersAvailable: true}},
		errs:     map[int]error{2: errors.New("connection refused")},
	})

	_, err := h.coord.Activate("", Consent{})
	require.NoError(t, err)
	h.waitWaiting(t, 1)
	h.clock.Advance(tierDelay)

	snap := h.waitTerminal(t)
	assert.Equal(t, StateExhausted, snap.State)
	assert.Equal(t, ReasonFailed, snap.Reason)
	assert.ErrorContains(t, snap.Err, "connection refused")
	assert.Equal(t, []int{1, 2}, h.notifier.tiersCalled())
	assert.Contains(t, h.eventTypes(), events.SessionFailed)
}

func TestCoordinator_StopsAtMaxTier(t *testing.T) {
	h := newHarness(t, &scriptedNotifier{outcomes: map[int]*alert.Outcome{
		1: {NextTiersAvailable: true},
		2: {NextTiersAvailable: true},
		3: {NextTiersAvailable: true},
	}})

	_, err := h.coord.Activate("", Consent{})
	require.NoError(t, err)
	h.waitWaiting(t, 1)
	h.clock.Advance(tierDelay)
	h.waitWaiting(t, 2)
	h.clock.Advance(tierDelay)

	snap := h.waitTerminal(t)
	assert.Equal(t, 3, snap.Tier)
	assert.Equal(t, ReasonCompleted, snap.Reason)
	assert.Equal(t, 2, h.clock.TimersCreated())
}

func TestCoordinator_CancelTwiceIsIdempotent(t *testing.T) {
	h := newHarness(t, &scriptedNotifier{outcomes: map[int]*alert.Outcome{
		1: {NextTiersAvailable: true},
	}})

	_, err := h.coord.Activate("", Consent{})
	require.NoError(t, err)
	h.waitWaiting(t, 1)

	assert.True(t, h.coord.Cancel())
	assert.False(t, h.coord.Cancel())

	assert.Equal(t, StateCancelled, h.coord.Snapshot().State)
	assert.Equal(t, 1, h.capturer.stops())
	types := h.eventTypes()
	assert.Equal(t, events.SessionCancelled, types[len(types)-1])
}

func TestCoordinator_CancelWithoutSession(t *testing.T) {
	h := newHarness(t, &scriptedNotifier{})
	assert.False(t, h.coord.Cancel())
	assert.Equal(t, StateIdle, h.coord.Snapshot().State)
}

func TestCoordinator_CancelDuringCapture(t *testing.T) {
	h := newHarness(t, &scriptedNotifier{})
	h.capturer.block = true

	_, err := h.coord.Activate("", Consent{Location: true})
	require.NoError(t, err)
	assert.Equal(t, PhaseCapturing, h.coord.Snapshot().Phase)

	assert.True(t, h.coord.Cancel())
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, h.notifier.tiersCalled())
}

func TestCoordinator_CancelDuringDispatchDiscardsResult(t *testing.T) {
	n := &scriptedNotifier{block: make(chan struct{})}
	h := newHarness(t, n)

	_, err := h.coord.Activate("", Consent{})
	require.NoError(t, err)
	h.waitFor(t, func(s Snapshot) bool { return s.Phase == PhaseDispatching })

	assert.True(t, h.coord.Cancel())
	close(n.block)
	time.Sleep(20 * time.Millisecond)

	snap := h.coord.Snapshot()
	assert.Equal(t, StateCancelled, snap.State)
	assert.Empty(t, snap.Outcomes)
	assert.Zero(t, h.clock.TimersCreated())
}

func TestCoordinator_ActivateWhileActive(t *testing.T) {
	h := newHarness(t, &scriptedNotifier{outcomes: map[int]*alert.Outcome{1: {NextTiersAvailable: true}}})

	first, err := h.coord.Activate("", Consent{})
	require.NoError(t, err)
	h.waitWaiting(t, 1)

	_, err = h.coord.Activate("again", Consent{})
	assert.ErrorIs(t, err, ErrSessionActive)
	assert.Equal(t, first, h.coord.Snapshot().SessionID)
}

func TestCoordinator_NewSessionAfterTerminal(t *testing.T) {
	h := newHarness(t, &scriptedNotifier{})

	first, err := h.coord.Activate("", Consent{})
	require.NoError(t, err)
	h.waitTerminal(t)

	second, err := h.coord.Activate("", Consent{})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestCoordinator_ProgressFromMonotonicStart(t *testing.T) {
	h := newHarness(t, &scriptedNotifier{outcomes: map[int]*alert.Outcome{1: {NextTiersAvailable: true}}})

	_, err := h.coord.Activate("", Consent{})
	require.NoError(t, err)
	h.waitWaiting(t, 1)

	assert.Zero(t, h.coord.Snapshot().Progress)

	h.clock.Advance(90 * time.Second)
	snap := h.coord.Snapshot()
	assert.InDelta(t, 30.0, snap.Progress, 0.001)
	assert.Equal(t, 210*time.Second, snap.Remaining)
}

func TestCoordinator_ContextCapturedOnceAndReused(t *testing.T) {
	n := &scriptedNotifier{outcomes: map[int]*alert.Outcome{
		1: {NextTiersAvailable: true},
		2: {},
	}}
	h := newHarness(t, n)
	h.capturer.result = capture.Result{
		Location: &alert.Location{Latitude: -26.2041, Longitude: 28.0473},
		Audio:    &alert.Media{Data: []byte("RIFF"), MimeType: "audio/wav"},
		Photo:    &alert.Media{Data: []byte{0xff, 0xd8}, MimeType: "image/jpeg"},
	}

	_, err := h.coord.Activate("Help", Consent{Location: true, Audio: true})
	require.NoError(t, err)
	h.waitWaiting(t, 1)
	h.clock.Advance(tierDelay)
	h.waitTerminal(t)

	n.mu.Lock()
	defer n.mu.Unlock()
	require.Len(t, n.calls, 2)

	first, second := n.calls[0], n.calls[1]
	require.NotNil(t, first.Location)
	require.NotNil(t, first.AudioBase64)
	assert.Nil(t, first.ImageBase64)
	assert.Equal(t, "Help", *first.Message)
	assert.Equal(t, "u1", first.UserID)

	second.Tier = first.Tier
	assert.Equal(t, first, second)
}

func TestCoordinator_CloseCancelsActiveSession(t *testing.T) {
	h := newHarness(t, &scriptedNotifier{outcomes: map[int]*alert.Outcome{1: {NextTiersAvailable: true}}})

	_, err := h.coord.Activate("", Consent{})
	require.NoError(t, err)
	h.waitWaiting(t, 1)

	require.NoError(t, h.coord.Close())
	assert.Equal(t, 1, h.capturer.stops())

	_, err = h.coord.Activate("", Consent{})
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, h.coord.Cancel())
	assert.Contains(t, h.eventTypes(), events.SessionCancelled)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Sender: alert.Sender{UserID: "u1"}}, Dependencies{})
	assert.Error(t, err)

	_, err = New(Config{}, Dependencies{Notifier: &scriptedNotifier{}})
	assert.Error(t, err)
}
