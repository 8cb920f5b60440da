package scoring

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/lead-scorer/internal/leads"
	"github.com/spigell/lead-scorer/internal/logger"
	"github.com/spigell/lead-scorer/internal/worker"
)

// Pipeline scores a whole batch and ranks the results.
type Pipeline struct {
	combiner *Combiner
	opts     worker.Options
	logger   *zap.Logger
}

func NewPipeline(combiner *Combiner, opts worker.Options, log *zap.Logger) *Pipeline {
	opts.FailurePolicy = worker.FailurePolicyFailFast

	return &Pipeline{
		combiner: combiner,
		opts:     opts,
		logger:   logger.WithFields(log),
	}
}

// WithLogger returns a copy of the pipeline logging to log.
func (p *Pipeline) WithLogger(log *zap.Logger) *Pipeline {
	cp := *p
	cp.logger = logger.WithFields(log)
	return &cp
}

type job struct {
	lead      leads.Lead
	validated bool
	missing   int
}

// Stats counts how a run went.
type Stats struct {
	Validated   int `json:"validated"`
	Defective   int `json:"defective"`
	AIFallbacks int `json:"ai_fallbacks"`
}

// Run scores validated leads in upload order followed by defective leads in
// upload order, waits for all of them and ranks the results.
func (p *Pipeline) Run(ctx context.Context, offer leads.Offer, batch leads.Batch) ([]leads.ScoredLead, Stats, error) {
	jobs := make([]job, 0, batch.Len())
	for _, lead := range batch.Validated {
		jobs = append(jobs, job{lead: lead, validated: true})
	}
	for _, d := range batch.Defective {
		jobs = append(jobs, job{lead: d.Lead, missing: d.MissingValueCount})
	}

	stats := Stats{Validated: len(batch.Validated), Defective: len(batch.Defective)}

	process := func(ctx context.Context, j job) (Scored, error) {
		return p.combiner.CombineDetailed(ctx, j.lead, offer, j.validated, j.missing)
	}

	out, err := worker.ProcessAll(ctx, jobs, process, p.opts)
	if err != nil {
		return nil, stats, fmt.Errorf("score leads: %w", err)
	}

	results := make([]leads.ScoredLead, 0, len(out))
	for _, res := range out {
		scored := res.Output
		name := scored.Lead.Name

		if scored.AI.Fallback {
			stats.AIFallbacks++
			fields := append(logger.RunFields("", name), zap.String("reasoning", scored.AI.Reasoning))
			if scored.AI.Err != nil {
				p.logger.Warn("ai intent fallback", append(fields, zap.Error(scored.AI.Err))...)
			} else {
				p.logger.Debug("ai intent skipped", fields...)
			}
		}

		p.logger.Debug("lead scored", append(logger.RunFields("", name),
			zap.Int("score", scored.Lead.Score),
			zap.Int("rule_score", scored.Rule.Points),
			zap.Int("ai_score", scored.AI.Points),
			zap.String("intent", string(scored.Lead.Intent)),
		)...)

		results = append(results, scored.Lead)
	}

	return Rank(results), stats, nil
}
