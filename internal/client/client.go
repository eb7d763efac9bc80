// Package client calls a remote guardian dispatcher over HTTP. It
// satisfies the same tier-notifier contract as the in-process dispatcher.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/RevCBH/guardian/internal/alert"
)

// AlertsPath is the tier notification endpoint.
const AlertsPath = "/v1/alerts"

// DefaultTimeout bounds one tier notification round trip. A throttled
// fan-out on the server can take over a minute.
const DefaultTimeout = 2 * time.Minute

// ErrRemote is wrapped by every failure the dispatcher reports itself.
var ErrRemote = errors.New("dispatcher error")

// Client talks to a guardian server.
type Client struct {
	http *resty.Client
}

// Option customises a Client.
type Option func(*resty.Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// WithDialRetries retries requests that never reached the server. A tier
// post is not idempotent, so timeouts and server errors are never retried.
func WithDialRetries(n int, wait time.Duration) Option {
	return func(c *resty.Client) {
		c.SetRetryCount(n).
			SetRetryWaitTime(wait).
			AddRetryCondition(func(_ *resty.Response, err error) bool {
				return isDialError(err)
			})
	}
}

func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(DefaultTimeout).
		SetHeader("Accept", "application/json")
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{http: rc}
}

// NotifyTier posts one tier notification. A no-contacts reply maps to
// alert.ErrNoContacts; any other unsuccessful reply wraps ErrRemote.
func (c *Client) NotifyTier(ctx context.Context, req alert.Request) (*alert.Outcome, error) {
	var body alert.Response
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&body).
		SetError(&body).
		Post(AlertsPath)
	if err != nil {
		return nil, fmt.Errorf("notify tier %d: %w", req.Tier, err)
	}

	if resp.IsError() {
		msg := body.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		return nil, fmt.Errorf("notify tier %d: %w: %d %s", req.Tier, ErrRemote, resp.StatusCode(), msg)
	}
	if !body.Success {
		if body.Message == alert.NoContactsMessage {
			return nil, alert.ErrNoContacts
		}
		return nil, fmt.Errorf("notify tier %d: %w: %s", req.Tier, ErrRemote, body.Message)
	}
	return body.Outcome(), nil
}

// Health reports whether the server answers its health check.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/healthz")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: health check returned %d", ErrRemote, resp.StatusCode())
	}
	return nil
}
