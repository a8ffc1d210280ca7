package anthropic

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Batch processing states reported by the API.
const (
	BatchInProgress = "in_progress"
	BatchCanceling  = "canceling"
	BatchEnded      = "ended"
)

const (
	defaultPollInitial = 2 * time.Second
	defaultPollCap     = 15 * time.Second
	defaultPollTimeout = 30 * time.Minute
)

// PollOption configures PollBatch.
type PollOption func(*pollConfig)

type pollConfig struct {
	initial time.Duration
	cap     time.Duration
	timeout time.Duration
}

// WithPollInterval overrides the initial poll interval.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) { c.initial = d }
}

// WithPollCap overrides the maximum poll interval.
func WithPollCap(d time.Duration) PollOption {
	return func(c *pollConfig) { c.cap = d }
}

// WithPollTimeout bounds polling when ctx carries no deadline.
func WithPollTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) { c.timeout = d }
}

// PollBatch calls GetBatch until the batch ends or ctx expires. The interval
// doubles up to the cap with ±20% jitter. A batch that is canceling is
// reported as an error.
func PollBatch(ctx context.Context, client Client, batchID string, opts ...PollOption) (*BatchResponse, error) {
	cfg := pollConfig{initial: defaultPollInitial, cap: defaultPollCap, timeout: defaultPollTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	interval := cfg.initial
	for {
		batch, err := client.GetBatch(ctx, batchID)
		if err != nil {
			return nil, eris.Wrap(err, fmt.Sprintf("anthropic: poll batch %s", batchID))
		}

		switch batch.ProcessingStatus {
		case BatchEnded:
			return batch, nil
		case BatchCanceling:
			return batch, eris.Errorf("anthropic: batch %s canceling", batchID)
		}

		zap.L().Debug("anthropic: batch pending",
			zap.String("batch_id", batchID),
			zap.Int64("processing", batch.RequestCounts.Processing),
			zap.Duration("next_poll", interval),
		)

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, eris.Wrap(ctx.Err(), fmt.Sprintf("anthropic: poll batch %s", batchID))
		case <-timer.C:
		}

		interval = nextInterval(interval, cfg.cap)
	}
}

func nextInterval(cur, limit time.Duration) time.Duration {
	next := cur * 2
	if next > limit {
		next = limit
	}
	if span := int64(next) / 5; span > 0 {
		jitter := time.Duration(rand.Int64N(span))
		if rand.IntN(2) == 0 {
			next += jitter
		} else {
			next -= jitter
		}
	}
	return next
}

// BatchFailure records a batch item that did not succeed.
type BatchFailure struct {
	CustomID string
	Type     string
}

// BatchResults holds a drained batch split by outcome.
type BatchResults struct {
	Succeeded map[string]*MessageResponse
	Failures  []BatchFailure
}

// CollectBatchResults drains iter and closes it.
func CollectBatchResults(iter BatchResultIterator) (*BatchResults, error) {
	defer iter.Close() //nolint:errcheck

	out := &BatchResults{Succeeded: make(map[string]*MessageResponse)}
	for iter.Next() {
		item := iter.Item()
		if item.Type == "succeeded" && item.Message != nil {
			out.Succeeded[item.CustomID] = item.Message
			continue
		}
		out.Failures = append(out.Failures, BatchFailure{CustomID: item.CustomID, Type: item.Type})
	}
	if err := iter.Err(); err != nil {
		return nil, eris.Wrap(err, "anthropic: collect batch results")
	}

	if len(out.Failures) > 0 {
		zap.L().Warn("anthropic: batch had failed items",
			zap.Int("succeeded", len(out.Succeeded)),
			zap.Int("failed", len(out.Failures)),
		)
	}
	return out, nil
}
