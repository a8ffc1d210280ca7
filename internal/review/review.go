// Package review asks a language model for editorial feedback on PDM texts
// that already passed validation. It never changes validation results.
package review

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/pdm-qc/internal/cost"
	"github.com/sells-group/pdm-qc/internal/model"
	"github.com/sells-group/pdm-qc/internal/resilience"
	"github.com/sells-group/pdm-qc/pkg/anthropic"
)

const (
	customIDPrefix  = "pdm-"
	warningPrefix   = "Text review unavailable: "
	directFanOut    = 4
	defaultModel    = "claude-haiku-4-5"
	defaultMaxToken = 512
	defaultSmall    = 10
)

const systemPrompt = `You review short marketing descriptions ("PDM texts") shown on an industrial supplier's profile.
For the text you are given, reply with at most three short sentences of concrete editorial feedback:
grammar, clarity, unsupported superlatives, or wording that reads like a keyword list.
Reply "No issues." if the text needs no changes. Do not rewrite the text.`

// Config tunes the review stage.
type Config struct {
	Model               string
	MaxTokens           int64
	SmallBatchThreshold int
	RatePerSecond       float64
	Timeout             time.Duration
	PollInterval        time.Duration
	PollCap             time.Duration
	Retry               resilience.RetryConfig
	Circuit             resilience.CircuitBreakerConfig
	Rates               cost.Rates
}

// Reviewer runs text reviews against an Anthropic client.
type Reviewer struct {
	client  anthropic.Client
	cfg     Config
	guard   *resilience.Guard
	limiter *rate.Limiter
	calc    *cost.Calculator
}

// New creates a Reviewer. The breaker is shared by every Review call so a
// persistently failing API stops being called.
func New(client anthropic.Client, cfg Config) *Reviewer {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxToken
	}
	if cfg.SmallBatchThreshold <= 0 {
		cfg.SmallBatchThreshold = defaultSmall
	}

	retry := cfg.Retry
	retry.ShouldRetry = retryable
	circuit := cfg.Circuit
	circuit.ShouldTrip = retryable

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	return &Reviewer{
		client:  client,
		cfg:     cfg,
		guard:   resilience.NewGuard(retry, circuit),
		limiter: rate.NewLimiter(limit, 1),
		calc:    cost.NewCalculator(cfg.Rates),
	}
}

// retryable treats network faults and 408/429/5xx/529 API responses as transient.
func retryable(err error) bool {
	return resilience.IsTransient(err) || resilience.IsTransientStatus(anthropic.StatusCode(err))
}

// CustomID is the batch correlation id for a PDM number.
func CustomID(pdmNumber string) string {
	return customIDPrefix + pdmNumber
}

// Review returns feedback for each group in input order. Failures are
// reported through Warning; successful reviews are still returned.
func (r *Reviewer) Review(ctx context.Context, groups []model.PdmGroup) model.ReviewOutcome {
	if len(groups) == 0 {
		return model.ReviewOutcome{}
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID), zap.Int("groups", len(groups)))

	var (
		feedback map[string]string
		failed   int
		err      error
	)
	if len(groups) < r.cfg.SmallBatchThreshold {
		log.Info("review: direct mode")
		feedback, failed, err = r.reviewDirect(ctx, groups)
	} else {
		log.Info("review: batch mode")
		feedback, failed, err = r.reviewBatch(ctx, groups, log)
	}

	out := model.ReviewOutcome{}
	for _, g := range groups {
		if text, ok := feedback[g.PdmNumber]; ok {
			out.Reviews = append(out.Reviews, model.TextReview{PdmNumber: g.PdmNumber, Feedback: text})
		}
	}

	if err != nil {
		out.Warning = warningPrefix + err.Error()
	} else if failed > 0 {
		out.Warning = fmt.Sprintf("%s%d of %d PDM texts could not be reviewed", warningPrefix, failed, len(groups))
	}
	if out.Warning != "" {
		log.Warn("review: incomplete", zap.Int("reviewed", len(out.Reviews)), zap.Error(err))
	}
	return out
}

func (r *Reviewer) request(g model.PdmGroup) anthropic.MessageRequest {
	names := make([]string, 0, len(g.Headings))
	for _, h := range g.Headings {
		names = append(names, h.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "PDM %s\n", g.PdmNumber)
	fmt.Fprintf(&b, "Headings: %s\n", strings.Join(names, "; "))
	if g.DisplayCommonFamily != "" && g.DisplayCommonFamily != model.NoCommonFamily {
		fmt.Fprintf(&b, "Family: %s\n", g.DisplayCommonFamily)
	}
	fmt.Fprintf(&b, "Text:\n%s", g.PdmText)

	return anthropic.MessageRequest{
		Model:     r.cfg.Model,
		MaxTokens: r.cfg.MaxTokens,
		System:    anthropic.CachedSystem(systemPrompt, ""),
		Messages:  []anthropic.Message{{Role: "user", Content: b.String()}},
	}
}

// reviewDirect sends one paced message per group. It returns the first error
// when any group failed.
func (r *Reviewer) reviewDirect(ctx context.Context, groups []model.PdmGroup) (map[string]string, int, error) {
	var (
		mu       sync.Mutex
		feedback = make(map[string]string, len(groups))
		usage    anthropic.TokenUsage
		failed   int
		firstErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(directFanOut)

	for _, grp := range groups {
		req := r.request(grp)
		pdm := grp.PdmNumber
		g.Go(func() error {
			resp, err := r.send(gctx, req)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				if firstErr == nil {
					firstErr = err
				}
				zap.L().Debug("review: message failed", zap.String("pdm", pdm), zap.Error(err))
				return nil
			}
			feedback[pdm] = resp.Text()
			usage.Add(resp.Usage)
			return nil
		})
	}
	_ = g.Wait()

	r.logUsage(usage, false)
	return feedback, failed, firstErr
}

func (r *Reviewer) send(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "review: rate limit wait")
	}
	return resilience.Call(ctx, r.guard, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return r.client.CreateMessage(ctx, req)
	})
}

// reviewBatch warms the prompt cache, submits one batch and collects it.
func (r *Reviewer) reviewBatch(ctx context.Context, groups []model.PdmGroup, log *zap.Logger) (map[string]string, int, error) {
	items := make([]anthropic.BatchRequestItem, len(groups))
	for i, g := range groups {
		items[i] = anthropic.BatchRequestItem{CustomID: CustomID(g.PdmNumber), Params: r.request(g)}
	}

	primer := items[0].Params
	primer.MaxTokens = 1
	if _, err := resilience.Call(ctx, r.guard, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return anthropic.Prime(ctx, r.client, primer)
	}); err != nil {
		log.Warn("review: cache primer failed", zap.Error(err))
	}

	batch, err := resilience.Call(ctx, r.guard, func(ctx context.Context) (*anthropic.BatchResponse, error) {
		return r.client.CreateBatch(ctx, anthropic.BatchRequest{Requests: items})
	})
	if err != nil {
		return nil, len(groups), eris.Wrap(err, "review: submit batch")
	}
	log = log.With(zap.String("batch_id", batch.ID))
	log.Info("review: batch submitted", zap.Int("requests", len(items)))

	var opts []anthropic.PollOption
	if r.cfg.PollInterval > 0 {
		opts = append(opts, anthropic.WithPollInterval(r.cfg.PollInterval))
	}
	if r.cfg.PollCap > 0 {
		opts = append(opts, anthropic.WithPollCap(r.cfg.PollCap))
	}
	if _, err := anthropic.PollBatch(ctx, r.client, batch.ID, opts...); err != nil {
		return nil, len(groups), eris.Wrap(err, "review: wait for batch")
	}

	results, err := resilience.Call(ctx, r.guard, func(ctx context.Context) (*anthropic.BatchResults, error) {
		iter, err := r.client.GetBatchResults(ctx, batch.ID)
		if err != nil {
			return nil, err
		}
		return anthropic.CollectBatchResults(iter)
	})
	if err != nil {
		return nil, len(groups), eris.Wrap(err, "review: collect batch")
	}

	feedback := make(map[string]string, len(results.Succeeded))
	var usage anthropic.TokenUsage
	for id, msg := range results.Succeeded {
		pdm, ok := strings.CutPrefix(id, customIDPrefix)
		if !ok {
			continue
		}
		feedback[pdm] = msg.Text()
		usage.Add(msg.Usage)
	}
	r.logUsage(usage, true)

	return feedback, len(groups) - len(feedback), nil
}

func (r *Reviewer) logUsage(u anthropic.TokenUsage, isBatch bool) {
	u.Log(r.cfg.Model, "review")
	if !r.calc.Known(r.cfg.Model) {
		return
	}
	zap.L().Info("review: estimated cost",
		zap.String("model", r.cfg.Model),
		zap.Bool("batch", isBatch),
		zap.Float64("usd", r.calc.Usage(r.cfg.Model, isBatch, u)),
	)
}
