package embeddings

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/devkaluri/rag-chat/backoff"
	"github.com/devkaluri/rag-chat/errs"
)

// resilient decorates an Embedder with a per-call timeout, a cap on
// concurrent outstanding calls, and bounded retries for transient
// failures.
type resilient struct {
	inner   Embedder
	sem     *semaphore.Weighted
	timeout time.Duration
	policy  backoff.Policy
}

func Resilient(inner Embedder, maxConcurrent int, timeout time.Duration, attempts int) Embedder {
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

func (r *resilient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.sem.Release(1)

	var vectors [][]float32
	err := backoff.Retry(ctx, r.policy, func(ctx context.Context) error {
		callCtx := ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}

		out, callErr := r.inner.Embed(callCtx, texts)
		if callErr != nil {
			return errs.Classify(callErr)
		}
		vectors = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

var _ Embedder = (*resilient)(nil)
