// Package poll waits for a condition by evaluating a predicate at a fixed
// interval until it holds or a timeout elapses.
//
// The interval is the timeout divided by the number of repeats, in whole
// seconds and never less than one second. Without an explicit repeat count
// the poller checks floor(sqrt(timeout seconds)) times, so long timeouts are
// polled less often.
//
//	ok, err := poll.UntilDefault(ctx, 30*time.Second, func(ctx context.Context) (bool, error) {
//		res, err := executor.Call[Order](ctx, exec, req, policy)
//		return res.OK() && res.Value.Status == "shipped", err
//	})
package poll

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/torosent/callcheck/internal/logging"
)

// ErrInterrupted is returned when the context ends while the poller waits.
var ErrInterrupted = errors.New("poll interrupted")

// Predicate reports whether the condition holds. A non-nil error aborts the
// poll and is returned to the caller unchanged.
type Predicate func(ctx context.Context) (bool, error)

// Spec bounds one poll. Repeats of 0 means DefaultRepeats(Timeout).
type Spec struct {
	Timeout time.Duration
	Repeats int
}

func (s Spec) Validate() error {
	if s.Timeout < time.Second {
		return fmt.Errorf("poll timeout must be at least 1s, got %s", s.Timeout)
	}
	if s.Repeats < 0 {
		return fmt.Errorf("poll repeats must be positive, got %d", s.Repeats)
	}
	return nil
}

func (s Spec) repeats() int {
	if s.Repeats > 0 {
		return s.Repeats
	}
	return DefaultRepeats(s.Timeout)
}

// Interval is the pause between attempts.
func (s Spec) Interval() time.Duration {
	secs := int64(s.Timeout / time.Second)
	interval := secs / int64(s.repeats())
	if interval < 1 {
		interval = 1
	}
	return time.Duration(interval) * time.Second
}

// DefaultRepeats returns floor(sqrt(timeout in seconds)), at least 1.
func DefaultRepeats(timeout time.Duration) int {
	secs := int64(timeout / time.Second)
	if secs < 1 {
		return 1
	}
	r := int(math.Sqrt(float64(secs)))
	if r < 1 {
		return 1
	}
	return r
}

// Poller runs predicates sequentially. The zero value uses the wall clock.
type Poller struct {
	Clock  func() time.Time
	Sleep  func(context.Context, time.Duration) error
	Logger logging.Logger
}

var defaultPoller = &Poller{}

// Until polls pred until it returns true, it fails, or more than
// spec.Timeout has elapsed. Elapsed time is checked after every unsuccessful
// attempt and after every sleep; a slow predicate is never cut short.
func (p *Poller) Until(ctx context.Context, spec Spec, pred Predicate) (bool, error) {
	if pred == nil {
		return false, errors.New("predicate is nil")
	}
	if err := spec.Validate(); err != nil {
		return false, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	clock, sleep, logger := p.clock(), p.sleep(), p.logger()

	interval := spec.Interval()
	start := clock()
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, fmt.Errorf("%w: %w", ErrInterrupted, err)
		}
		ok, err := pred(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			logger.Info("condition met after %d attempt(s) in %s", attempt, clock().Sub(start))
			return true, nil
		}
		if clock().Sub(start) > spec.Timeout {
			break
		}
		logger.Info("condition not met (attempt %d), retrying in %s", attempt, interval)
		if err := sleep(ctx, interval); err != nil {
			return false, fmt.Errorf("%w: %w", ErrInterrupted, err)
		}
		if clock().Sub(start) > spec.Timeout {
			break
		}
	}
	logger.Warning("condition not met within %s", spec.Timeout)
	return false, nil
}

func (p *Poller) clock() func() time.Time {
	if p == nil || p.Clock == nil {
		return time.Now
	}
	return p.Clock
}

func (p *Poller) sleep() func(context.Context, time.Duration) error {
	if p == nil || p.Sleep == nil {
		return sleepWithContext
	}
	return p.Sleep
}

func (p *Poller) logger() logging.Logger {
	if p == nil || p.Logger == nil {
		return logging.NullLogger()
	}
	return p.Logger
}

// Until polls pred with the given repeat count on the wall clock.
func Until(ctx context.Context, timeout time.Duration, repeats int, pred Predicate) (bool, error) {
	if repeats < 1 {
		return false, fmt.Errorf("poll repeats must be positive, got %d", repeats)
	}
	return defaultPoller.Until(ctx, Spec{Timeout: timeout, Repeats: repeats}, pred)
}

// UntilDefault polls pred DefaultRepeats(timeout) times.
func UntilDefault(ctx context.Context, timeout time.Duration, pred Predicate) (bool, error) {
	return defaultPoller.Until(ctx, Spec{Timeout: timeout}, pred)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
