// Package dedup decides whether a normalized job is already persisted.
// Three tiers, checked in strict order with short-circuiting: source
// identifier, canonical URL, store-side fuzzy similarity. A failing tier is
// logged and treated as "no match at this tier"; duplicate detection
// degrades, it never blocks the pipeline.
package dedup

import (
	"context"
	"time"

	"jobingest/internal/common/database"
	"jobingest/internal/common/logger"
	"jobingest/internal/models"
)

// fuzzyWindow is the ±window around the candidate's postedAt used by the
// similarity tier. Part of the dedup contract, not configurable policy.
const fuzzyWindow = 7 * 24 * time.Hour

// seenURLTTL keeps cache entries a little longer than the freshness window
// of any crawl run.
const seenURLTTL = 14 * 24 * time.Hour

// Store is the persistence surface the detector queries. A not-found is
// ("", nil), never an error.
type Store interface {
	FindBySourceID(ctx context.Context, source, sourceID string) (string, error)
	FindByURL(ctx context.Context, url string) (string, error)
	FindSimilar(ctx context.Context, companyName, title string, start, end time.Time) (string, error)
}

// Detector runs the tiered duplicate check.
type Detector struct {
	store  Store
	cache  *database.RedisClient // optional; nil disables the URL cache
	logger logger.Logger
}

func NewDetector(store Store, cache *database.RedisClient, log logger.Logger) *Detector {
	return &Detector{store: store, cache: cache, logger: log}
}

// Check returns a reference to the already-persisted job, or nil when the
// candidate is new (or every tier failed).
func (d *Detector) Check(ctx context.Context, job models.NormalizedJob) *models.ExistingJobRef {
	// Tier 1: provider-native identifier, most reliable.
	if job.SourceID != "" {
		id, err := d.store.FindBySourceID(ctx, job.Source, job.SourceID)
		if err != nil {
			d.logger.Warn("source-id dedup tier failed", map[string]interface{}{
				"source": job.Source,
				"error":  err.Error(),
			})
		} else if id != "" {
			return &models.ExistingJobRef{ID: id, MatchTier: "source_id"}
		}
	}

	// Tier 2: exact URL, with the redis cache consulted first.
	if id := d.cachedURLLookup(ctx, job.URL); id != "" {
		return &models.ExistingJobRef{ID: id, MatchTier: "url"}
	}
	id, err := d.store.FindByURL(ctx, job.URL)
	if err != nil {
		d.logger.Warn("url dedup tier failed", map[string]interface{}{
			"url":   job.URL,
			"error": err.Error(),
		})
	} else if id != "" {
		d.cacheURL(ctx, job.URL, id)
		return &models.ExistingJobRef{ID: id, MatchTier: "url"}
	}

	// Tier 3: store-side similarity within the posting window.
	start := job.PostedAt.Add(-fuzzyWindow)
	end := job.PostedAt.Add(fuzzyWindow)
	id, err = d.store.FindSimilar(ctx, job.CompanyName, job.Title, start, end)
	if err != nil {
		d.logger.Warn("fuzzy dedup tier failed", map[string]interface{}{
			"company": job.CompanyName,
			"error":   err.Error(),
		})
	} else if id != "" {
		return &models.ExistingJobRef{ID: id, MatchTier: "fuzzy"}
	}

	return nil
}

// MarkPersisted records a freshly inserted job in the URL cache so repeat
// submissions within the TTL skip a SQL round trip.
func (d *Detector) MarkPersisted(ctx context.Context, job models.NormalizedJob, id string) {
	d.cacheURL(ctx, job.URL, id)
}

func (d *Detector) cachedURLLookup(ctx context.Context, url string) string {
	if d.cache == nil || url == "" {
		return ""
	}
	id, err := d.cache.Get(ctx, seenURLKey(url))
	if err != nil {
		return "" // cache miss or redis failure, fall through to SQL
	}
	return id
}

func (d *Detector) cacheURL(ctx context.Context, url, id string) {
	if d.cache == nil || url == "" || id == "" {
		return
	}
	if err := d.cache.Set(ctx, seenURLKey(url), id, seenURLTTL); err != nil {
		d.logger.Debug("seen-url cache write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func seenURLKey(url string) string {
	return "jobs:seen:url:" + url
}
