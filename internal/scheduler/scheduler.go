// Package scheduler runs the recurring crawl. Each tick fans out over the
// configured sources and their keyword/location tuples, feeds discovered
// candidates through detail extraction with bounded concurrency, and hands
// the results to the pipeline.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"jobingest/internal/common/config"
	"jobingest/internal/common/logger"
	"jobingest/internal/crawler"
	"jobingest/internal/models"
)

// JobProcessor is the pipeline entry point the scheduler drives.
type JobProcessor interface {
	ProcessIncomingJob(ctx context.Context, cand models.EnrichedCandidate, source, knownCountry, category string) models.Outcome
}

// Extractor recovers listing detail for one candidate.
type Extractor interface {
	Extract(ctx context.Context, raw models.RawCandidate) (models.EnrichedCandidate, error)
}

// Fetcher pages through one source's search results.
type Fetcher interface {
	Fetch(ctx context.Context, q crawler.SearchQuery, emit func(models.RawCandidate) bool) error
}

// Scheduler owns the cron loop and the per-tick crawl runs.
type Scheduler struct {
	cfg       config.CrawlerConfig
	fetchers  map[string]Fetcher
	extractor Extractor
	processor JobProcessor
	logger    logger.Logger

	cron    *cron.Cron
	running sync.Mutex
}

func New(
	cfg config.CrawlerConfig,
	fetchers map[string]Fetcher,
	extractor Extractor,
	processor JobProcessor,
	log logger.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		fetchers:  fetchers,
		extractor: extractor,
		processor: processor,
		logger:    log,
		cron:      cron.New(),
	}
}

// Start registers the crawl job and starts the cron loop. The first run
// fires on schedule, not immediately; callers wanting an immediate crawl
// call RunOnce themselves.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.cfg.CronSpec, func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("crawl scheduler started", map[string]interface{}{
		"cron_spec": s.cfg.CronSpec,
		"sources":   len(s.fetchers),
	})
	return nil
}

// Stop halts the cron loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	// Barrier on the run lock so an active pass drains before shutdown.
	s.running.Lock()
	s.running.Unlock()
	s.logger.Info("crawl scheduler stopped", nil)
}

// RunOnce executes one full crawl pass over every source. Overlapping runs
// are collapsed: a tick that fires while a run is active is skipped.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if !s.running.TryLock() {
		s.logger.Warn("previous crawl run still active, skipping tick", nil)
		return
	}
	defer s.running.Unlock()

	for _, source := range s.cfg.Sources {
		fetcher, ok := s.fetchers[source.Name]
		if !ok {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		s.crawlSource(ctx, source, fetcher)
	}
}

// crawlSource runs every keyword/location tuple for one source.
func (s *Scheduler) crawlSource(ctx context.Context, source config.SourceConfig, fetcher Fetcher) {
	for _, keywords := range source.Keywords {
		for _, location := range source.Locations {
			if ctx.Err() != nil {
				return
			}

			q := crawler.SearchQuery{
				Keywords:      keywords,
				Location:      location,
				PageSize:      s.cfg.PageSize,
				FreshnessDays: s.cfg.FreshnessWindowDays,
				MaxPages:      s.cfg.MaxPages,
			}

			var batch []models.RawCandidate
			err := fetcher.Fetch(ctx, q, func(cand models.RawCandidate) bool {
				batch = append(batch, cand)
				if len(batch) >= s.batchSize() {
					s.processBatch(ctx, source, batch)
					batch = batch[:0]
					s.interBatchDelay(ctx)
				}
				return ctx.Err() == nil
			})
			if err != nil {
				s.logger.Warn("crawl run aborted", map[string]interface{}{
					"source":   source.Name,
					"keywords": keywords,
					"location": location,
					"error":    err.Error(),
				})
			}
			if len(batch) > 0 {
				s.processBatch(ctx, source, batch)
			}
		}
	}
}

// processBatch extracts candidate details with bounded concurrency, then
// pipes each result through the pipeline in discovery order.
func (s *Scheduler) processBatch(ctx context.Context, source config.SourceConfig, batch []models.RawCandidate) {
	extracted := make([]models.EnrichedCandidate, len(batch))

	sem := make(chan struct{}, s.extractConcurrency())
	var wg sync.WaitGroup
	for i, raw := range batch {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, raw models.RawCandidate) {
			defer wg.Done()
			defer func() { <-sem }()

			cand, err := s.extractor.Extract(ctx, raw)
			if err != nil {
				s.logger.Warn("detail extraction failed, using listing data only", map[string]interface{}{
					"source": source.Name,
					"url":    raw.ListingURL,
					"error":  err.Error(),
				})
				cand = models.EnrichedCandidate{RawCandidate: raw, ApplyURL: raw.ListingURL}
			}
			extracted[i] = cand
		}(i, raw)
	}
	wg.Wait()

	// Pipeline invocations stay sequential and ordered; extraction is the
	// only concurrent phase.
	for _, cand := range extracted {
		if ctx.Err() != nil {
			return
		}
		outcome := s.processor.ProcessIncomingJob(ctx, cand, source.Name, source.Country, source.Category)
		s.logger.Debug("candidate processed", map[string]interface{}{
			"source":  source.Name,
			"url":     cand.ListingURL,
			"outcome": string(outcome.Status),
		})
	}
}

func (s *Scheduler) interBatchDelay(ctx context.Context) {
	if s.cfg.BatchDelayMs <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(s.cfg.BatchDelayMs) * time.Millisecond):
	}
}

func (s *Scheduler) extractConcurrency() int {
	if s.cfg.ExtractConcurrency > 0 {
		return s.cfg.ExtractConcurrency
	}
	return 2
}

func (s *Scheduler) batchSize() int {
	if s.cfg.PageSize > 0 {
		return s.cfg.PageSize
	}
	return 20
}
