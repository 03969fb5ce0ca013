package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// Policy bounds how an operation against the remote API is retried.
type Policy struct {
	// MaxAttempts includes the first attempt.
	MaxAttempts int
	// BaseDelay is the wait after a transient failure. Quota failures wait
	// twice as long.
	BaseDelay time.Duration
	// Budget caps the wall-clock time of one Do call. Zero means no cap.
	Budget time.Duration

	// Sleep and Now are replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
	// OnAttempt is called after every failed attempt.
	OnAttempt func(attempt int, class Class, err error)
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
		Budget:      60 * time.Second,
	}
}

// Result is the outcome of Do. A failed Result is the exhausted-retries
// sentinel: it carries the last error and its classification instead of
// raising it.
type Result[T any] struct {
	Value    T
	Err      error
	Class    Class
	Attempts int
	Slept    time.Duration
	Delays   []time.Duration
}

func (r Result[T]) Failed() bool {
	return r.Err != nil
}

// Do runs op until it succeeds, a fatal error occurs, MaxAttempts is reached
// or the budget would be exceeded by the next wait. A successful zero value
// (for example an empty table) is returned as is and is never retried.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) Result[T] {
	p = p.withDefaults()
	start := p.Now()
	if p.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Budget)
		defer cancel()
	}

	var res Result[T]
	var delay time.Duration
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		res.Attempts = attempt
		v, err := op(ctx)
		if err == nil {
			res.Value = v
			res.Err = nil
			res.Class = ClassNone
			return res
		}

		class := Classify(err)
		res.Err = err
		res.Class = class
		if p.OnAttempt != nil {
			p.OnAttempt(attempt, class, err)
		}
		if class == ClassFatal {
			log.WithError(err).Debugf("attempt %d failed with a fatal error, not retrying", attempt)
			return res
		}
		// Don't wait after the last attempt
		if attempt == p.MaxAttempts {
			break
		}

		delay = p.nextDelay(class, delay)
		if p.Budget > 0 && p.Now().Sub(start)+delay > p.Budget {
			log.WithError(err).Warnf("retry budget of %v exhausted after %d attempts", p.Budget, attempt)
			break
		}
		if class == ClassQuota {
			log.Infof("Rate limited by Google Sheets API, retrying in %v...", delay)
		} else {
			log.WithError(err).Debugf("attempt %d failed, retrying in %v", attempt, delay)
		}
		if err := p.Sleep(ctx, delay); err != nil {
			res.Err = fmt.Errorf("%w (while waiting to retry: %v)", res.Err, err)
			return res
		}
		res.Slept += delay
		res.Delays = append(res.Delays, delay)
	}
	return res
}

// nextDelay is never shorter than the previous one.
func (p Policy) nextDelay(class Class, prev time.Duration) time.Duration {
	d := p.BaseDelay
	if class == ClassQuota {
		d = 2 * p.BaseDelay
	}
	if d < prev {
		d = prev
	}
	return d
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// fatalError marks an error that must not be retried.
type fatalError struct {
	err error
}

func (e fatalError) Error() string { return e.err.Error() }
func (e fatalError) Unwrap() error { return e.err }

// Fatal wraps err so that Classify reports ClassFatal.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return fatalError{err: err}
}

func isFatal(err error) bool {
	var f fatalError
	return errors.As(err, &f)
}
