package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RevCBH/guardian/internal/alert"
)

// ErrLocateTimeout is returned when no fix arrived in time.
var ErrLocateTimeout = errors.New("geolocation timed out")

// LocateWithTimeout asks the locator for a fix and gives up after timeout.
// The result is nil on any failure; the error says why.
func LocateWithTimeout(ctx context.Context, l Locator, timeout time.Duration) (*alert.Location, error) {
	if l == nil {
		return nil, ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type fix struct {
		loc *alert.Location
		err error
	}
	ch := make(chan fix, 1)
	go func() {
		loc, err := l.Locate(ctx)
		ch <- fix{loc, err}
	}()

	select {
	case f := <-ch:
		if f.err != nil {
			return nil, f.err
		}
		if f.loc == nil {
			return nil, ErrUnavailable
		}
		return f.loc, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrLocateTimeout, timeout)
		}
		return nil, ctx.Err()
	}
}

// StaticLocator always reports the same position.
type StaticLocator struct {
	Location *alert.Location
}

// Locate implements Locator.
func (s StaticLocator) Locate(ctx context.Context) (*alert.Location, error) {
	if s.Location == nil {
		return nil, ErrUnavailable
	}
	loc := *s.Location
	return &loc, nil
}
