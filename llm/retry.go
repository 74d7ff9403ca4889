package llm

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/devkaluri/rag-chat/backoff"
	"github.com/devkaluri/rag-chat/errs"
)

// resilient decorates a Client with a per-call timeout, a cap on
// concurrent outstanding calls, and bounded retries. Failures are
// classified first: rate limits and server errors are retried with
// backoff, auth and request errors surface immediately. When retries
// are exhausted the last classified error is returned, never an empty
// answer.
type resilient struct {
	inner   Client
	sem     *semaphore.Weighted
	timeout time.Duration
	policy  backoff.Policy
}

func Resilient(inner Client, maxConcurrent int, timeout time.Duration, attempts int) Client {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &resilient{
		inner:   inner,
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		timeout: timeout,
		policy:  backoff.Policy{Attempts: attempts},
	}
}

func (r *resilient) Generate(ctx context.Context, messages []Message) (string, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer r.sem.Release(1)

	var answer string
	err := backoff.Retry(ctx, r.policy, func(ctx context.Context) error {
		callCtx := ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}

		out, callErr := r.inner.Generate(callCtx, messages)
		if callErr != nil {
			return errs.Classify(callErr)
		}
		answer = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return answer, nil
}

var _ Client = (*resilient)(nil)
