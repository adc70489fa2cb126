// Package pipeline sequences one candidate through the ingestion stages and
// returns exactly one terminal outcome. Stage failures are converted at this
// boundary; nothing below it is allowed to propagate a panic or a raw error
// to the caller.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"jobingest/internal/common/errors"
	"jobingest/internal/common/logger"
	"jobingest/internal/common/metrics"
	"jobingest/internal/common/observability"
	"jobingest/internal/common/validation"
	"jobingest/internal/models"
	"jobingest/internal/normalize"
	"jobingest/internal/quality"
)

// Enricher classifies a normalized job. Implementations never fail; they
// degrade to safe defaults.
type Enricher interface {
	Enrich(ctx context.Context, job models.NormalizedJob) models.Enrichment
}

// DuplicateChecker runs the tiered duplicate check.
type DuplicateChecker interface {
	Check(ctx context.Context, job models.NormalizedJob) *models.ExistingJobRef
	MarkPersisted(ctx context.Context, job models.NormalizedJob, id string)
}

// JobStore persists accepted jobs.
type JobStore interface {
	Insert(ctx context.Context, job models.EnrichedJob) (models.PersistedJob, error)
}

// Indexer projects persisted jobs into the search store. Best-effort.
type Indexer interface {
	Index(ctx context.Context, job models.PersistedJob) error
}

// Notifier announces persisted jobs. Best-effort.
type Notifier interface {
	JobAccepted(ctx context.Context, job models.PersistedJob)
}

// Processor is the pipeline orchestrator. One instance serves all sources;
// it holds no per-job state.
type Processor struct {
	dedup    DuplicateChecker
	enricher Enricher
	scorer   *quality.Scorer
	store    JobStore
	indexer  Indexer  // optional
	notifier Notifier // optional
	obs      *observability.Observability
	logger   logger.Logger
}

func NewProcessor(
	dedup DuplicateChecker,
	enricher Enricher,
	scorer *quality.Scorer,
	store JobStore,
	indexer Indexer,
	notifier Notifier,
	obs *observability.Observability,
	log logger.Logger,
) *Processor {
	return &Processor{
		dedup:    dedup,
		enricher: enricher,
		scorer:   scorer,
		store:    store,
		indexer:  indexer,
		notifier: notifier,
		obs:      obs,
		logger:   log,
	}
}

// ProcessIncomingJob runs one candidate to a terminal outcome. The stages
// run in strict order; duplicate, non-tech and low-quality results are
// expected business outcomes, not errors.
func (p *Processor) ProcessIncomingJob(ctx context.Context, cand models.EnrichedCandidate, source, knownCountry, category string) (outcome models.Outcome) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline stage panicked", map[string]interface{}{
				"source": source,
				"panic":  fmt.Sprint(r),
			})
			outcome = models.Errored(fmt.Errorf("pipeline panic: %v", r))
		}
		p.record(ctx, source, outcome, time.Since(start))
	}()

	if err := validation.ValidateCandidatePayload(cand); err != nil {
		p.logger.Warn("candidate payload rejected", map[string]interface{}{
			"source": source,
			"error":  err.Error(),
		})
		return models.Errored(errors.NewPayloadInvalidError(err.Error()))
	}

	job := p.timedNormalize(cand, source, knownCountry, category)

	if ref := p.timedDedup(ctx, job); ref != nil {
		p.logger.Info("duplicate candidate dropped", map[string]interface{}{
			"source":      source,
			"existing_id": ref.ID,
			"match_tier":  ref.MatchTier,
		})
		return models.Duplicate(ref.ID)
	}

	enrichment := p.timedEnrich(ctx, job)

	if !enrichment.IsTechJob {
		return models.NotTechJob()
	}

	enriched := models.ApplyEnrichment(job, enrichment)

	verdict := p.scorer.Evaluate(enriched)
	if !verdict.Accept {
		p.logger.Info("candidate rejected by quality gate", map[string]interface{}{
			"source": source,
			"title":  enriched.CleanedTitle,
			"score":  verdict.FinalScore,
		})
		return models.LowQuality()
	}
	enriched.QualityScore = verdict.FinalScore
	enriched.Category = verdict.Category

	persisted, err := p.timedPersist(ctx, enriched)
	if err != nil {
		p.logger.Error("persist failed", map[string]interface{}{
			"source": source,
			"title":  enriched.CleanedTitle,
			"error":  err.Error(),
		})
		return models.Errored(err)
	}
	p.dedup.MarkPersisted(ctx, job, persisted.ID)

	p.sideEffects(ctx, persisted)

	p.logger.Info("job accepted", map[string]interface{}{
		"source": source,
		"job_id": persisted.ID,
		"title":  persisted.Title,
		"score":  persisted.QualityScore,
	})
	return models.Success(persisted.ID)
}

func (p *Processor) timedNormalize(cand models.EnrichedCandidate, source, knownCountry, category string) models.NormalizedJob {
	defer p.observeStage("normalize", time.Now())
	return normalize.Normalize(cand, source, knownCountry, category)
}

func (p *Processor) timedDedup(ctx context.Context, job models.NormalizedJob) *models.ExistingJobRef {
	defer p.observeStage("dedup", time.Now())
	return p.dedup.Check(ctx, job)
}

func (p *Processor) timedEnrich(ctx context.Context, job models.NormalizedJob) models.Enrichment {
	defer p.observeStage("enrich", time.Now())
	return p.enricher.Enrich(ctx, job)
}

func (p *Processor) timedPersist(ctx context.Context, job models.EnrichedJob) (models.PersistedJob, error) {
	defer p.observeStage("persist", time.Now())
	return p.store.Insert(ctx, job)
}

// sideEffects runs the best-effort post-persist steps. The job is durable
// at this point; failures only get logged.
func (p *Processor) sideEffects(ctx context.Context, job models.PersistedJob) {
	defer p.observeStage("notify", time.Now())

	if p.indexer != nil {
		if err := p.indexer.Index(ctx, job); err != nil {
			p.logger.Warn("search indexing failed", map[string]interface{}{
				"job_id": job.ID,
				"error":  err.Error(),
			})
		}
	}
	if p.notifier != nil {
		p.notifier.JobAccepted(ctx, job)
	}
}

func (p *Processor) observeStage(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (p *Processor) record(ctx context.Context, source string, outcome models.Outcome, elapsed time.Duration) {
	status := string(outcome.Status)
	metrics.PipelineOutcomes.WithLabelValues(source, status).Inc()
	if p.obs != nil {
		p.obs.RecordJobProcessed(ctx, status)
		p.obs.RecordJobDuration(ctx, elapsed, status)
	}
}
