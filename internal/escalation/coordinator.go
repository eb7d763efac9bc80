// Package escalation drives one emergency session through its tiers of
// trusted contacts: capture context, notify a tier, wait, escalate, until
// the user cancels or no tier is left.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/RevCBH/guardian/internal/alert"
	"github.com/RevCBH/guardian/internal/capture"
	"github.com/RevCBH/guardian/internal/events"
)

var (
	// ErrSessionActive is returned by Activate while a session is running.
	ErrSessionActive = errors.New("escalation session already active")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("coordinator closed")
)

// Defaults
const (
	DefaultTierDelay        = 5 * time.Minute
	DefaultProgressInterval = time.Second
)

// TierNotifier notifies one tier. Implemented by the in-process
// dispatcher and by the HTTP client.
type TierNotifier interface {
	NotifyTier(ctx context.Context, req alert.Request) (*alert.Outcome, error)
}

// Capturer gathers the situational context.
type Capturer interface {
	CaptureAll(ctx context.Context, req capture.Request) capture.Result
	StopAudio()
}

// Config holds coordinator configuration
type Config struct {
	// Sender identifies the account owner in every notification
	Sender alert.Sender

	// TierDelay is the wait between tiers
	TierDelay time.Duration

	// ProgressInterval is how often progress events are emitted
	ProgressInterval time.Duration

	// MaxTier is the last tier notified
	MaxTier int
}

// Dependencies bundles external dependencies for injection
type Dependencies struct {
	Notifier TierNotifier
	Capturer Capturer    // optional
	Bus      *events.Bus // optional
	Clock    Clock       // defaults to RealClock
	Logger   *zap.Logger
}

// Coordinator owns at most one escalation session. All session state
// lives on a single goroutine; the public methods send it commands.
type Coordinator struct {
	cfg      Config
	notifier TierNotifier
	capturer Capturer
	bus      *events.Bus
	clock    Clock
	logger   *zap.Logger

	cmds     chan any
	results  chan any
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
}

type activateCmd struct {
	message string
	consent Consent
	reply   chan activateReply
}

type activateReply struct {
	id  string
	err error
}

type cancelCmd struct {
	reply chan bool
}

type snapshotCmd struct {
	reply chan Snapshot
}

type captureResult struct {
	session string
	ctx     alert.Context
}

type dispatchResult struct {
	session string
	tier    int
	outcome *alert.Outcome
	err     error
}

// New creates a coordinator and starts its goroutine. Close stops it.
func New(cfg Config, deps Dependencies) (*Coordinator, error) {
	if deps.Notifier == nil {
		return nil, fmt.Errorf("coordinator requires a tier notifier")
	}
	if cfg.Sender.UserID == "" {
		return nil, fmt.Errorf("coordinator requires a sender user id")
	}
	if cfg.TierDelay <= 0 {
		cfg.TierDelay = DefaultTierDelay
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}
	if cfg.MaxTier < alert.MinTier || cfg.MaxTier > alert.MaxTier {
		cfg.MaxTier = alert.MaxTier
	}

	clock := deps.Clock
	if clock == nil {
		clock = RealClock()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Coordinator{
		cfg:      cfg,
		notifier: deps.Notifier,
		capturer: deps.Capturer,
		bus:      deps.Bus,
		clock:    clock,
		logger:   logger.Named("escalation"),
		cmds:     make(chan any),
		results:  make(chan any),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.run()
	return c, nil
}

// Activate starts a new session: capture context, then notify tier 1.
// It returns the session ID without waiting for delivery.
func (c *Coordinator) Activate(message string, consent Consent) (string, error) {
	reply := make(chan activateReply, 1)
	if !c.send(activateCmd{message: message, consent: consent, reply: reply}) {
		return "", ErrClosed
	}
	r := <-reply
	return r.id, r.err
}

// Cancel ends the active session. It reports whether a session was
// cancelled; calling it again, or with no active session, has no effect.
// No tier is contacted after Cancel returns.
func (c *Coordinator) Cancel() bool {
	reply := make(chan bool, 1)
	if !c.send(cancelCmd{reply: reply}) {
		return false
	}
	return <-reply
}

// Snapshot returns the current session view.
func (c *Coordinator) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	if !c.send(snapshotCmd{reply: reply}) {
		return Snapshot{State: StateIdle}
	}
	return <-reply
}

// Close cancels any active session and stops the coordinator.
func (c *Coordinator) Close() error {
	c.quitOnce.Do(func() { close(c.quit) })
	<-c.done
	return nil
}

func (c *Coordinator) send(cmd any) bool {
	select {
	case c.cmds <- cmd:
		return true
	case <-c.done:
		return false
	}
}

// post delivers a worker result unless the coordinator is gone.
func (c *Coordinator) post(r any) {
	select {
	case c.results <- r:
	case <-c.done:
	}
}

// session is owned by the run goroutine.
type session struct {
	id        string
	state     State
	phase     Phase
	tier      int
	reason    Reason
	err       error
	startedAt time.Time

	req      alert.Request
	outcomes []alert.Outcome
	reached  int

	ctx    context.Context
	cancel context.CancelFunc

	timer     Timer
	ticker    Ticker
	tierStart time.Time
}

func (c *Coordinator) run() {
	defer close(c.done)

	var s *session
	for {
		var timerC, tickC <-chan time.Time
		if s != nil && s.timer != nil {
			timerC = s.timer.C()
			tickC = s.ticker.C()
		}

		select {
		case <-c.quit:
			if s != nil && s.state == StateTierActive {
				c.cancelSession(s)
			}
			return

		case cmd := <-c.cmds:
			switch cmd := cmd.(type) {
			case activateCmd:
				if s != nil && s.state == StateTierActive {
					cmd.reply <- activateReply{err: ErrSessionActive}
					continue
				}
				s = c.startSession(cmd.message, cmd.consent)
				cmd.reply <- activateReply{id: s.id}
			case cancelCmd:
				if s == nil || s.state != StateTierActive {
					cmd.reply <- false
					continue
				}
				c.cancelSession(s)
				cmd.reply <- true
			case snapshotCmd:
				cmd.reply <- c.snapshot(s)
			}

		case r := <-c.results:
			if s == nil || s.state != StateTierActive {
				continue
			}
			switch r := r.(type) {
			case captureResult:
				if r.session == s.id {
					c.contextCaptured(s, r.ctx)
				}
			case dispatchResult:
				if r.session == s.id && r.tier == s.tier {
					c.tierDone(s, r.outcome, r.err)
				}
			}

		case <-timerC:
			c.disarm(s)
			s.tier++
			c.dispatch(s)

		case <-tickC:
			snap := c.snapshot(s)
			c.emit(events.NewEvent(events.TierProgress, s.id).
				WithTier(s.tier).
				WithPayload(events.ProgressPayload{Percent: snap.Progress, Remaining: snap.Remaining}))
		}
	}
}

func (c *Coordinator) startSession(message string, consent Consent) *session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:        ulid.Make().String(),
		state:     StateTierActive,
		phase:     PhaseCapturing,
		tier:      alert.MinTier,
		startedAt: c.clock.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}

	c.logger.Info("session started", zap.String("session", s.id))
	c.emit(events.NewEvent(events.SessionStarted, s.id))

	go func() {
		escCtx := alert.Context{Message: message}
		if c.capturer != nil {
			res := c.capturer.CaptureAll(ctx, capture.Request{
				Location: consent.Location,
				Audio:    consent.Audio,
				Photo:    consent.Photo,
			})
			escCtx.Location = res.Location
			escCtx.Audio = res.Audio
			escCtx.Photo = res.Photo
		}
		c.post(captureResult{session: s.id, ctx: escCtx})
	}()

	return s
}

func (c *Coordinator) contextCaptured(s *session, escCtx alert.Context) {
	// Encoded once; every tier sends the same payload.
	s.req = alert.NewRequest(c.cfg.Sender, s.tier, escCtx)

	c.emit(events.NewEvent(events.ContextCaptured, s.id).WithPayload(events.CapturedPayload{
		Message:  escCtx.Message != "",
		Location: escCtx.Location != nil,
		Audio:    escCtx.Audio != nil,
		Photo:    escCtx.Photo != nil,
	}))
	c.dispatch(s)
}

func (c *Coordinator) dispatch(s *session) {
	s.phase = PhaseDispatching
	req := s.req
	req.Tier = s.tier

	c.emit(events.NewEvent(events.TierDispatching, s.id).WithTier(s.tier))

	go func(ctx context.Context, id string, tier int) {
		outcome, err := c.notifier.NotifyTier(ctx, req)
		c.post(dispatchResult{session: id, tier: tier, outcome: outcome, err: err})
	}(s.ctx, s.id, s.tier)
}

func (c *Coordinator) tierDone(s *session, outcome *alert.Outcome, err error) {
	if err != nil {
		if errors.Is(err, alert.ErrNoContacts) {
			c.finish(s, ReasonNoContacts, err)
			return
		}
		c.finish(s, ReasonFailed, err)
		return
	}

	s.outcomes = append(s.outcomes, *outcome)
	s.reached += outcome.ContactsReached
	c.emit(events.NewEvent(events.TierNotified, s.id).WithTier(s.tier).WithPayload(outcome))

	if !outcome.NextTiersAvailable || s.tier >= c.cfg.MaxTier {
		c.finish(s, ReasonCompleted, nil)
		return
	}
	c.arm(s)
}

// arm starts the escalation timer and its progress ticker, clearing any
// previous pair first.
func (c *Coordinator) arm(s *session) {
	c.disarm(s)
	s.phase = PhaseWaiting
	s.tierStart = c.clock.Now()
	s.timer = c.clock.NewTimer(c.cfg.TierDelay)
	s.ticker = c.clock.NewTicker(c.cfg.ProgressInterval)

	c.emit(events.NewEvent(events.TierArmed, s.id).WithTier(s.tier).WithPayload(events.ArmedPayload{
		NextTier: s.tier + 1,
		Delay:    c.cfg.TierDelay,
	}))
}

func (c *Coordinator) disarm(s *session) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

func (c *Coordinator) cancelSession(s *session) {
	c.disarm(s)
	s.cancel()
	s.state = StateCancelled
	s.phase = ""
	c.releaseCapture()

	c.logger.Info("session cancelled", zap.String("session", s.id), zap.Int("tier", s.tier))
	c.emit(events.NewEvent(events.SessionCancelled, s.id).WithTier(s.tier).WithPayload(c.ended(s)))
}

func (c *Coordinator) finish(s *session, reason Reason, err error) {
	c.disarm(s)
	s.cancel()
	s.state = StateExhausted
	s.phase = ""
	s.reason = reason
	s.err = err
	c.releaseCapture()

	e := events.NewEvent(events.SessionExhausted, s.id)
	if reason == ReasonFailed {
		e = events.NewEvent(events.SessionFailed, s.id).WithError(err)
		c.logger.Error("session failed", zap.String("session", s.id), zap.Int("tier", s.tier), zap.Error(err))
	} else {
		c.logger.Info("session exhausted", zap.String("session", s.id), zap.String("reason", string(reason)))
	}
	c.emit(e.WithTier(s.tier).WithPayload(c.ended(s)))
}

func (c *Coordinator) releaseCapture() {
	if c.capturer != nil {
		c.capturer.StopAudio()
	}
}

func (c *Coordinator) ended(s *session) events.EndedPayload {
	return events.EndedPayload{
		Reason:          string(s.reason),
		TiersNotified:   len(s.outcomes),
		ContactsReached: s.reached,
	}
}

func (c *Coordinator) snapshot(s *session) Snapshot {
	if s == nil {
		return Snapshot{State: StateIdle}
	}

	snap := Snapshot{
		SessionID:       s.id,
		State:           s.state,
		Phase:           s.phase,
		Tier:            s.tier,
		Reason:          s.reason,
		Err:             s.err,
		Outcomes:        append([]alert.Outcome(nil), s.outcomes...),
		ContactsReached: s.reached,
		StartedAt:       s.startedAt,
	}

	if s.timer != nil {
		elapsed := c.clock.Now().Sub(s.tierStart)
		pct := float64(elapsed) / float64(c.cfg.TierDelay) * 100
		snap.Progress = min(max(pct, 0), 100)
		snap.Remaining = max(c.cfg.TierDelay-elapsed, 0)
	}
	return snap
}

func (c *Coordinator) emit(e events.Event) {
	if c.bus != nil {
		c.bus.Emit(e)
	}
}
