// Package extract drives a headless browser session through a prioritized
// chain of strategies to recover the true application URL, description and
// salary text of a listing.
package extract

import (
	"context"
	"net/url"
	"strings"

	"jobingest/internal/common/logger"
	"jobingest/internal/common/metrics"
	"jobingest/internal/models"
)

// Description and identifier probes; first match wins.
var (
	descriptionSelectors = []string{
		`[data-testid="jobDescription"]`,
		`#jobDescriptionText`,
		`.job-description`,
		`.description`,
		`article`,
	}

	salarySelectors = []string{
		`[data-testid="salary"]`,
		`.salary-snippet`,
		`.salary`,
	}

	sourceIDProbes = []struct{ sel, attr string }{
		{`[data-job-id]`, "data-job-id"},
		{`input[name="jobId"]`, "value"},
		{`meta[name="job-id"]`, "content"},
	}
)

// Extractor turns a RawCandidate into an EnrichedCandidate by loading the
// listing page and running the apply-URL strategy chain plus the
// deterministic salary and keyword sub-steps.
type Extractor struct {
	pages      PageFactory
	strategies []Strategy
	logger     logger.Logger
}

func NewExtractor(pages PageFactory, log logger.Logger) *Extractor {
	return &Extractor{
		pages:      pages,
		strategies: applyURLStrategies(),
		logger:     log,
	}
}

// Extract loads the candidate's listing page and enriches it. An exhausted
// strategy chain is not an error: applyUrl degrades to the listing URL.
func (e *Extractor) Extract(ctx context.Context, raw models.RawCandidate) (models.EnrichedCandidate, error) {
	out := models.EnrichedCandidate{
		RawCandidate: raw,
		ApplyURL:     raw.ListingURL,
	}

	page, release, err := e.pages.Open(ctx, raw.ListingURL)
	if err != nil {
		return out, err
	}
	defer release()

	if applyURL, strategy, ok := e.findApplyURL(ctx, page, raw.ListingURL); ok {
		out.ApplyURL = applyURL
		metrics.ExtractionStrategyHits.WithLabelValues(strategy).Inc()
	} else {
		metrics.ExtractionStrategyHits.WithLabelValues("fallback_listing_url").Inc()
	}

	for _, sel := range descriptionSelectors {
		if text, err := page.Text(ctx, sel); err == nil && text != "" {
			out.Description = text
			break
		}
	}

	salaryText := raw.SalaryText
	if salaryText == "" {
		for _, sel := range salarySelectors {
			if text, err := page.Text(ctx, sel); err == nil && text != "" {
				salaryText = text
				break
			}
		}
	}
	out.SalaryText = salaryText
	out.Salary = ParseSalary(salaryText)

	for _, probe := range sourceIDProbes {
		if v, ok, err := page.Attribute(ctx, probe.sel, probe.attr); err == nil && ok && v != "" {
			out.SourceID = v
			break
		}
	}

	combined := raw.Position + " " + out.Description
	out.IsSponsoredHint = DetectSponsorship(combined)
	out.RemoteHint = DetectRemote(combined + " " + raw.CityText)

	return out, nil
}

// findApplyURL walks the strategy chain until one yields a URL pointing
// away from the source itself.
func (e *Extractor) findApplyURL(ctx context.Context, page Page, listingURL string) (string, string, bool) {
	sourceHost := hostOf(listingURL)

	for _, s := range e.strategies {
		candidate, ok := s.Attempt(ctx, page)
		if !ok {
			continue
		}
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if host := hostOf(candidate); host == "" || strings.EqualFold(host, sourceHost) {
			// Same-host target is just another listing view, keep trying.
			continue
		}
		e.logger.Debug("apply url recovered", map[string]interface{}{
			"strategy": s.Name(),
		})
		return candidate, s.Name(), true
	}
	return "", "", false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
