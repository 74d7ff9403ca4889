// Package backoff retries transient failures with bounded exponential
// backoff. Anything that is not marked errs.ErrTransient stops the loop
// immediately.
package backoff

import (
	"context"
	"time"

	"github.com/devkaluri/rag-chat/errs"
)

const (
	defaultAttempts = 3
	defaultBase     = 500 * time.Millisecond
	defaultMax      = 8 * time.Second
)

type Policy struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = defaultAttempts
	}
	if p.Base <= 0 {
		p.Base = defaultBase
	}
	if p.Max <= 0 {
		p.Max = defaultMax
	}
	return p
}

// Retry runs fn up to p.Attempts times, doubling the delay between
// attempts. It returns nil on the first success, the last error when
// attempts are exhausted, and stops early on non-transient errors or
// context cancellation.
func Retry(ctx context.Context, p Policy, fn func(context.Context) error) error {
	p = p.withDefaults()

	var err error
	delay := p.Base
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay *= 2
			if delay > p.Max {
				delay = p.Max
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !errs.IsTransient(err) {
			return err
		}
	}

	return err
}
