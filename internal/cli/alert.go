package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RevCBH/guardian/internal/alert"
	"github.com/RevCBH/guardian/internal/capture"
	"github.com/RevCBH/guardian/internal/cli/tui"
	"github.com/RevCBH/guardian/internal/config"
	"github.com/RevCBH/guardian/internal/escalation"
	"github.com/RevCBH/guardian/internal/events"
)

// AlertOptions holds flags for the alert command
type AlertOptions struct {
	Message  string
	Location string // "lat,lng" fix; implies location consent
	Locate   bool   // use the configured locator
	Audio    bool
	Photo    bool
	Remote   string
	JSON     bool
	User     string

	// Output receives the JSON-lines stream and the summary
	Output io.Writer
}

// ErrNotDelivered is returned when a session ends without any tier
// being notified.
var ErrNotDelivered = errors.New("alert was not delivered")

// NewAlertCmd creates the alert command
func NewAlertCmd(app *App) *cobra.Command {
	opts := AlertOptions{}

	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Raise an emergency alert to your trusted contacts",
		Long: `Alert captures the consented context, notifies tier 1 of your trusted
contacts and escalates to the next tier until you mark yourself safe.

On a terminal the alert screen waits for Enter before sending; press s to
mark yourself safe. With --json (or when stdout is not a terminal) the
alert goes out immediately and session events stream as JSON lines;
interrupt to cancel.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Output = cmd.OutOrStdout()
			return app.RunAlert(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Message, "message", "m", "", "Message for your contacts")
	cmd.Flags().StringVar(&opts.Location, "location", "", "Share this location (lat,lng)")
	cmd.Flags().BoolVar(&opts.Locate, "locate", false, "Share your location from the configured locator")
	cmd.Flags().BoolVar(&opts.Audio, "audio", false, "Share the last seconds of recorded audio")
	cmd.Flags().BoolVar(&opts.Photo, "photo", false, "Share a photo")
	cmd.Flags().StringVar(&opts.Remote, "remote", "", "Dispatcher URL (overrides escalation.dispatcher_url)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Stream session events as JSON lines")
	cmd.Flags().StringVar(&opts.User, "user", "", "User ID (overrides user.id)")

	return cmd
}

// alertRun holds what one alert invocation wires together.
type alertRun struct {
	cfg     *config.Config
	opts    AlertOptions
	consent escalation.Consent
	capture *capture.Buffer
	notify  escalation.TierNotifier
	release func() error
}

func (a *App) prepareAlert(opts AlertOptions) (*alertRun, *config.Config, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if opts.User != "" {
		cfg.User.ID = opts.User
	}
	if cfg.User.ID == "" {
		return nil, cfg, fmt.Errorf("no user configured: set user.id, GUARDIAN_USER_ID or --user")
	}
	return &alertRun{cfg: cfg, opts: opts}, cfg, nil
}

func (r *alertRun) wire(logger *zap.Logger) error {
	var fix *alert.Location
	if r.opts.Location != "" {
		loc, err := alert.ParseLocation(r.opts.Location)
		if err != nil {
			return fmt.Errorf("--location: %w", err)
		}
		fix = loc
	}
	r.consent = escalation.Consent{
		Location: fix != nil || r.opts.Locate,
		Audio:    r.opts.Audio,
		Photo:    r.opts.Photo,
	}

	buf, err := wireCapture(r.cfg, fix, logger)
	if err != nil {
		return err
	}
	r.capture = buf

	notifier, release, err := wireNotifier(r.cfg, r.opts.Remote, logger)
	if err != nil {
		return err
	}
	r.notify = notifier
	r.release = release
	return nil
}

func (r *alertRun) coordinator(bus *events.Bus, logger *zap.Logger) (*escalation.Coordinator, error) {
	delay, err := r.cfg.TierDelayDuration()
	if err != nil {
		return nil, err
	}
	progress, err := r.cfg.ProgressIntervalDuration()
	if err != nil {
		return nil, err
	}
	return escalation.New(escalation.Config{
		Sender:           sender(r.cfg),
		TierDelay:        delay,
		ProgressInterval: progress,
		MaxTier:          r.cfg.Escalation.MaxTier,
	}, escalation.Dependencies{
		Notifier: r.notify,
		Capturer: r.capture,
		Bus:      bus,
		Logger:   logger,
	})
}

// startAudio fills the pre-alert buffer. A missing or refused microphone
// only costs the recording.
func (r *alertRun) startAudio(ctx context.Context, logger *zap.Logger) {
	if !r.consent.Audio {
		return
	}
	if err := r.capture.StartAudio(ctx); err != nil {
		logger.Warn("audio capture unavailable", zap.Error(err))
	}
}

// RunAlert raises an alert and follows it until it ends.
func (a *App) RunAlert(ctx context.Context, opts AlertOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if events.IsJSONMode(opts.JSON) {
		return a.runAlertJSON(ctx, opts)
	}
	return a.runAlertTUI(ctx, opts)
}

func (a *App) runAlertJSON(ctx context.Context, opts AlertOptions) error {
	run, cfg, err := a.prepareAlert(opts)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, nil)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := run.wire(logger); err != nil {
		return err
	}
	defer run.release()

	bus := events.NewBus(0)
	defer bus.Close()
	bus.Subscribe(events.LogHandler(logger))
	bus.Subscribe(events.JSONEmitterHandler(events.NewJSONEmitter(opts.Output), logger))

	terminal := make(chan events.Event, 1)
	bus.Subscribe(func(e events.Event) {
		if e.IsTerminal() {
			select {
			case terminal <- e:
			default:
			}
		}
	})

	coord, err := run.coordinator(bus, logger)
	if err != nil {
		return err
	}
	defer coord.Close()

	audioCtx, stopAudio := context.WithCancel(ctx)
	defer stopAudio()
	run.startAudio(audioCtx, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	handler := NewSignalHandler(cancel, logger)
	handler.Start()
	defer handler.Stop()

	if _, err := coord.Activate(opts.Message, run.consent); err != nil {
		return err
	}

	var end events.Event
	select {
	case end = <-terminal:
	case <-ctx.Done():
		coord.Cancel()
		end = <-terminal
	}

	snap := coord.Snapshot()
	coord.Close()
	bus.Close()
	return sessionError(end, snap)
}

func (a *App) runAlertTUI(ctx context.Context, opts AlertOptions) error {
	run, cfg, err := a.prepareAlert(opts)
	if err != nil {
		return err
	}
	delay, err := cfg.TierDelayDuration()
	if err != nil {
		return err
	}

	model := tui.NewModel(nil, tui.Options{
		SenderName:       cfg.User.Name,
		Message:          opts.Message,
		MaxTier:          cfg.Escalation.MaxTier,
		TierDelay:        delay,
		EmergencyNumbers: emergencyNumbers(cfg),
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	sink := tui.NewLogSink(program)
	defer sink.Close()
	logger, err := newLogger(cfg, sink)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := run.wire(logger); err != nil {
		return err
	}
	defer run.release()
	model.Options.Consent = run.consent

	bus := events.NewBus(0)
	defer bus.Close()
	bus.Subscribe(events.LogHandler(logger))
	bridge := tui.NewBridge(program)
	bus.Subscribe(bridge.Handler())

	coord, err := run.coordinator(bus, logger)
	if err != nil {
		return err
	}
	defer coord.Close()
	model.SetController(coord)

	audioCtx, stopAudio := context.WithCancel(ctx)
	defer stopAudio()
	run.startAudio(audioCtx, logger)

	handler := NewSignalHandler(nil, logger)
	handler.OnShutdown(bridge.SendQuit)
	handler.Start()
	defer handler.Stop()

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("alert screen: %w", err)
	}

	snap := coord.Snapshot()
	coord.Close()
	bus.Close()
	sink.Close()

	printSummary(opts.Output, snap)
	return nil
}

// sessionError reports sessions that reached nobody.
func sessionError(end events.Event, snap escalation.Snapshot) error {
	if end.Type == events.SessionCancelled {
		return nil
	}
	p, _ := end.Payload.(events.EndedPayload)
	switch escalation.Reason(p.Reason) {
	case escalation.ReasonNoContacts:
		return fmt.Errorf("%w: %s", ErrNotDelivered, alert.NoContactsMessage)
	case escalation.ReasonFailed:
		if end.Error != "" {
			return fmt.Errorf("%w: %s", ErrNotDelivered, end.Error)
		}
		if snap.Err != nil {
			return fmt.Errorf("%w: %v", ErrNotDelivered, snap.Err)
		}
		return ErrNotDelivered
	}
	return nil
}

func printSummary(w io.Writer, snap escalation.Snapshot) {
	if snap.SessionID == "" {
		return
	}
	switch snap.State {
	case escalation.StateCancelled:
		fmt.Fprintf(w, "Session %s cancelled after %d tier(s); %d contact(s) reached\n",
			snap.SessionID, snap.TiersNotified(), snap.ContactsReached)
	case escalation.StateExhausted:
		fmt.Fprintf(w, "Session %s ended (%s) after %d tier(s); %d contact(s) reached\n",
			snap.SessionID, snap.Reason, snap.TiersNotified(), snap.ContactsReached)
	}
}
