// Package dispatch implements the delivery dispatcher: one tier of trusted
// contacts notified over every configured channel concurrently.
package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/RevCBH/guardian/internal/alert"
	"github.com/RevCBH/guardian/internal/contacts"
	"github.com/RevCBH/guardian/internal/metrics"
	"github.com/RevCBH/guardian/internal/notify"
)

// Channel names used in logs and metrics
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Config holds dispatcher configuration
type Config struct {
	// MaxConcurrentSends caps in-flight channel sends; 0 means unbounded
	MaxConcurrentSends int

	// EmailPerMinute and SMSPerMinute throttle each channel; 0 disables
	EmailPerMinute int
	SMSPerMinute   int

	// RateBurst is the limiter burst size when throttling is enabled
	RateBurst int

	Message MessageConfig
}

// Dependencies bundles external dependencies for injection
type Dependencies struct {
	Store   contacts.TierLookup
	Email   notify.EmailSender
	SMS     notify.SMSSender // nil when SMS is not configured
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Dispatcher fans a tier notification out to contacts and channels.
type Dispatcher struct {
	cfg      Config
	store    contacts.TierLookup
	email    notify.EmailSender
	sms      notify.SMSSender
	renderer *Renderer
	metrics  *metrics.Metrics
	logger   *zap.Logger

	emailLimiter *rate.Limiter
	smsLimiter   *rate.Limiter

	now func() time.Time
}

// New creates a dispatcher. Store and Email are required.
func New(cfg Config, deps Dependencies) (*Dispatcher, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("dispatcher requires a contacts store")
	}
	if deps.Email == nil {
		return nil, fmt.Errorf("dispatcher requires an email sender")
	}

	renderer, err := NewRenderer(cfg.Message)
	if err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		cfg:          cfg,
		store:        deps.Store,
		email:        deps.Email,
		sms:          deps.SMS,
		renderer:     renderer,
		metrics:      deps.Metrics,
		logger:       logger.Named("dispatch"),
		emailLimiter: newLimiter(cfg.EmailPerMinute, cfg.RateBurst),
		smsLimiter:   newLimiter(cfg.SMSPerMinute, cfg.RateBurst),
		now:          time.Now,
	}, nil
}

func newLimiter(perMinute, burst int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perMinute)/60, burst)
}

// SMSAvailable reports whether the SMS channel is configured.
func (d *Dispatcher) SMSAvailable() bool {
	return d.sms != nil
}

// NotifyTier notifies every high-threat contact in the requested tier.
//
// It returns alert.ErrNoContacts when the user has no high-threat contact
// in any tier, and an outcome with zero attempts when only this tier is
// empty. Individual channel failures are counted, never returned.
func (d *Dispatcher) NotifyTier(ctx context.Context, req alert.Request) (*alert.Outcome, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	escCtx, err := req.Context()
	if err != nil {
		return nil, err
	}
	sender := req.Sender()
	tier := req.Tier

	log := d.logger.With(zap.String("user_id", sender.UserID), zap.Int("tier", tier))

	tierContacts, anyContacts, nextTiers, err := d.lookup(ctx, sender.UserID, tier)
	if err != nil {
		d.metrics.TierNotified(tier, "error", 0, time.Since(start))
		return nil, err
	}

	if len(tierContacts) == 0 {
		if !anyContacts {
			log.Info("no trusted contacts configured")
			d.metrics.TierNotified(tier, "no_contacts", 0, time.Since(start))
			return nil, alert.ErrNoContacts
		}
		log.Info("tier is empty", zap.Bool("next_tiers_available", nextTiers))
		d.metrics.TierNotified(tier, "empty", 0, time.Since(start))
		return &alert.Outcome{Tier: tier, NextTiersAvailable: nextTiers}, nil
	}

	outcome := d.fanOut(ctx, log, sender, tier, escCtx, tierContacts)
	outcome.NextTiersAvailable = nextTiers

	log.Info("tier notified",
		zap.Int("contacts_found", outcome.ContactsFound),
		zap.Int("contacts_reached", outcome.ContactsReached),
		zap.Int("email_success", outcome.EmailSuccess),
		zap.Int("email_failed", outcome.EmailFailed),
		zap.Int("sms_success", outcome.SMSSuccess),
		zap.Int("sms_failed", outcome.SMSFailed),
		zap.Bool("sms_skipped", outcome.SMSSkipped),
		zap.Bool("next_tiers_available", nextTiers),
		zap.Duration("took", time.Since(start)),
	)
	d.metrics.TierNotified(tier, "ok", outcome.ContactsReached, time.Since(start))

	if err := ctx.Err(); err != nil {
		return outcome, fmt.Errorf("tier %d notification interrupted: %w", tier, err)
	}
	return outcome, nil
}

// lookup runs the three store queries concurrently.
func (d *Dispatcher) lookup(ctx context.Context, userID string, tier int) ([]*contacts.Contact, bool, bool, error) {
	var (
		tierContacts []*contacts.Contact
		anyContacts  bool
		nextTiers    bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tierContacts, err = d.store.HighThreatContacts(gctx, userID, tier)
		if err != nil {
			return fmt.Errorf("lookup tier %d contacts: %w", tier, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		anyContacts, err = d.store.HasHighThreatContacts(gctx, userID)
		if err != nil {
			return fmt.Errorf("check contacts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		nextTiers, err = d.store.HasContactsAbove(gctx, userID, tier)
		if err != nil {
			return fmt.Errorf("check tiers above %d: %w", tier, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, false, false, err
	}
	return tierContacts, anyContacts, nextTiers, nil
}

func (d *Dispatcher) fanOut(ctx context.Context, log *zap.Logger, sender alert.Sender, tier int, escCtx alert.Context, list []*contacts.Contact) *alert.Outcome {
	var (
		emailOK, emailFailed atomic.Int64
		smsOK, smsFailed     atomic.Int64
		smsSkipped           atomic.Bool
		reached              = make([]atomic.Bool, len(list))
	)

	sentAt := d.now()
	smsBody := d.renderer.SMS(sender, tier, escCtx, sentAt, escCtx.HasMedia())

	// Sends never return errors to the group; a failure on one contact or
	// channel must not cancel the others.
	var g errgroup.Group
	if d.cfg.MaxConcurrentSends > 0 {
		g.SetLimit(d.cfg.MaxConcurrentSends)
	}

	for i, c := range list {
		if c.HasEmail() {
			g.Go(func() error {
				err := d.sendEmail(ctx, sender, tier, escCtx, sentAt, c)
				if err != nil {
					emailFailed.Add(1)
					d.metrics.Delivery(ChannelEmail, metrics.ResultFailed)
					log.Warn("email delivery failed",
						zap.String("contact_id", c.ID),
						zap.String("provider", d.email.Name()),
						zap.Error(err))
					return nil
				}
				emailOK.Add(1)
				reached[i].Store(true)
				d.metrics.Delivery(ChannelEmail, metrics.ResultSuccess)
				return nil
			})
		}

		if c.HasPhone() {
			if d.sms == nil {
				smsSkipped.Store(true)
				d.metrics.Delivery(ChannelSMS, metrics.ResultSkipped)
				continue
			}
			g.Go(func() error {
				err := d.sendSMS(ctx, c, smsBody)
				if err != nil {
					smsFailed.Add(1)
					d.metrics.Delivery(ChannelSMS, metrics.ResultFailed)
					log.Warn("sms delivery failed",
						zap.String("contact_id", c.ID),
						zap.String("provider", d.sms.Name()),
						zap.Error(err))
					return nil
				}
				smsOK.Add(1)
				reached[i].Store(true)
				d.metrics.Delivery(ChannelSMS, metrics.ResultSuccess)
				return nil
			})
		}
	}
	_ = g.Wait()

	outcome := &alert.Outcome{
		Tier:          tier,
		ContactsFound: len(list),
		EmailSuccess:  int(emailOK.Load()),
		EmailFailed:   int(emailFailed.Load()),
		SMSSuccess:    int(smsOK.Load()),
		SMSFailed:     int(smsFailed.Load()),
		SMSSkipped:    smsSkipped.Load(),
	}
	for i := range reached {
		if reached[i].Load() {
			outcome.ContactsReached++
		}
	}
	return outcome
}

func (d *Dispatcher) sendEmail(ctx context.Context, sender alert.Sender, tier int, escCtx alert.Context, sentAt time.Time, c *contacts.Contact) error {
	msg, err := d.renderer.Email(sender, c.Name, tier, escCtx, sentAt)
	if err != nil {
		return err
	}
	msg.To = c.Email

	if d.emailLimiter != nil {
		if err := d.emailLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("email rate limit: %w", err)
		}
	}
	return d.email.SendEmail(ctx, msg)
}

func (d *Dispatcher) sendSMS(ctx context.Context, c *contacts.Contact, body string) error {
	if d.smsLimiter != nil {
		if err := d.smsLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("sms rate limit: %w", err)
		}
	}
	return d.sms.SendSMS(ctx, notify.SMS{To: c.Phone, Body: body})
}
