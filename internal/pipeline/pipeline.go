package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/pdm-qc/internal/classify"
	"github.com/sells-group/pdm-qc/internal/ingest"
	"github.com/sells-group/pdm-qc/internal/model"
	"github.com/sells-group/pdm-qc/internal/report"
	"github.com/sells-group/pdm-qc/internal/validate"
)

// ErrNoReport is returned when an operation needs a report that was never generated.
var ErrNoReport = eris.New("pipeline: no report generated")

// Inputs are the three source tables of one report request.
type Inputs struct {
	Afterproof  []model.AfterproofRow
	Beforeproof []model.BeforeproofRow
	Pdm         []model.PdmLookupRow
}

// InputsFromRows parses positional rows into typed inputs. Malformed rows are dropped.
func InputsFromRows(after, before, pdm [][]string) Inputs {
	in := Inputs{
		Afterproof:  ingest.ParseAfterproof(after),
		Beforeproof: ingest.ParseBeforeproof(before),
		Pdm:         ingest.ParsePdmLookup(pdm),
	}
	if skipped := in.Skipped(len(after), len(before), len(pdm)); skipped > 0 {
		zap.L().Debug("pipeline: skipped malformed rows", zap.Int("rows", skipped))
	}
	return in
}

// Skipped returns how many of the given raw row counts did not parse.
func (in Inputs) Skipped(after, before, pdm int) int {
	return (after - len(in.Afterproof)) + (before - len(in.Beforeproof)) + (pdm - len(in.Pdm))
}

// Reviewer runs the optional text review over groups that passed validation.
type Reviewer interface {
	Review(ctx context.Context, groups []model.PdmGroup) model.ReviewOutcome
}

// Option configures a Generator.
type Option func(*Generator)

// WithReviewer attaches a review stage that runs after validation.
func WithReviewer(r Reviewer) Option {
	return func(g *Generator) { g.reviewer = r }
}

// Generator turns one set of inputs into a Report. It holds no per-request
// state and may be shared across goroutines.
type Generator struct {
	validator *validate.Validator
	reviewer  Reviewer
}

// New creates a Generator for the given validation policy.
func New(policy validate.Policy, opts ...Option) *Generator {
	g := &Generator{validator: validate.New(policy)}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Build runs classification, grouping and validation. It is a pure function
// of its inputs.
func (g *Generator) Build(in Inputs) model.Report {
	rows := classify.Classify(in.Afterproof, in.Pdm, in.Beforeproof)
	rep := report.Build(rows)
	rep.ValidationResults = g.validator.Validate(rep.PdmGroups)
	rep.Summary.ValidationErrorCount = countErrors(rep.ValidationResults)
	rep.Summary.FailedPdmCount = len(rep.ValidationResults)
	return rep
}

// Generate builds the report and, when a reviewer is configured, runs the
// review stage over the groups that passed validation. Review failures end up
// in Report.ReviewWarning and never fail generation.
func (g *Generator) Generate(ctx context.Context, in Inputs) (*model.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: generate")
	}

	log := zap.L().With(
		zap.Int("afterproof_rows", len(in.Afterproof)),
		zap.Int("beforeproof_rows", len(in.Beforeproof)),
		zap.Int("pdm_rows", len(in.Pdm)),
	)

	start := time.Now()
	rep := g.Build(in)

	for _, grp := range rep.PdmGroups {
		if len(grp.PdmTextVariants) > 1 {
			log.Warn("pipeline: divergent pdm texts in group",
				zap.String("pdm", grp.PdmNumber),
				zap.Int("variants", len(grp.PdmTextVariants)),
			)
		}
	}

	log.Info("pipeline: report built",
		zap.Int("groups", len(rep.PdmGroups)),
		zap.Int("failed_groups", rep.Summary.FailedPdmCount),
		zap.Int("violations", rep.Summary.ValidationErrorCount),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	if g.reviewer == nil {
		return &rep, nil
	}

	eligible := Reviewable(&rep)
	if len(eligible) == 0 {
		log.Debug("pipeline: no groups eligible for review")
		return &rep, nil
	}

	reviewStart := time.Now()
	outcome := g.reviewer.Review(ctx, eligible)
	rep.TextReviews = outcome.Reviews
	rep.ReviewWarning = outcome.Warning

	fields := []zap.Field{
		zap.Int("eligible", len(eligible)),
		zap.Int("reviews", len(outcome.Reviews)),
		zap.Int64("duration_ms", time.Since(reviewStart).Milliseconds()),
	}
	if outcome.Warning != "" {
		log.Warn("pipeline: review incomplete", append(fields, zap.String("warning", outcome.Warning))...)
	} else {
		log.Info("pipeline: review complete", fields...)
	}

	return &rep, nil
}

// Reviewable returns the groups with library text and no validation result,
// in group order.
func Reviewable(rep *model.Report) []model.PdmGroup {
	var out []model.PdmGroup
	for _, g := range rep.PdmGroups {
		if g.PdmTextStatus == model.PdmTextOK && rep.Passed(g.PdmNumber) {
			out = append(out, g)
		}
	}
	return out
}

func countErrors(results []model.ValidationResult) int {
	n := 0
	for _, r := range results {
		n += len(r.Errors)
	}
	return n
}
