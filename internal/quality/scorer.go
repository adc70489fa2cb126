// Package quality applies the deterministic score bonuses and the accept
// threshold on top of the AI quality score.
package quality

import (
	"net/url"
	"strings"

	"jobingest/internal/common/config"
	"jobingest/internal/models"
)

const minTitleLength = 5

// Verdict is the gate decision for one enriched job.
type Verdict struct {
	FinalScore float64
	Category   string
	Accept     bool
}

// Scorer evaluates enriched jobs against the configured quality policy.
type Scorer struct {
	threshold     float64
	bonuses       config.QualityBonuses
	sourceDomains map[string]bool
}

func NewScorer(cfg config.QualityConfig) *Scorer {
	domains := make(map[string]bool, len(cfg.SourceDomains))
	for _, d := range cfg.SourceDomains {
		domains[strings.ToLower(d)] = true
	}
	return &Scorer{
		threshold:     cfg.Threshold,
		bonuses:       cfg.Bonuses,
		sourceDomains: domains,
	}
}

// Evaluate computes the final score and the accept decision. The tech gate
// is not applied here; callers reject non-tech jobs before scoring.
func (s *Scorer) Evaluate(job models.EnrichedJob) Verdict {
	score := job.QualityScore

	if len(strings.TrimSpace(job.CleanedTitle)) >= minTitleLength {
		score += s.bonuses.TitleLength
	}
	if job.CompanyName != "" && job.CompanyName != "Unknown Company" {
		score += s.bonuses.KnownCompany
	}
	if job.StandardizedCity != "" && !job.Remote {
		score += s.bonuses.CityPresent
	}
	if s.isSourceDomain(job.URL) {
		score += s.bonuses.SourceDomain
	}
	if job.Remote {
		score += s.bonuses.RemoteFlag
	}

	if score > 1.0 {
		score = 1.0
	}

	return Verdict{
		FinalScore: score,
		Category:   job.Category,
		Accept:     score >= s.threshold,
	}
}

func (s *Scorer) isSourceDomain(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Host)
	if s.sourceDomains[host] {
		return true
	}
	// Subdomains of a configured domain count as well.
	for d := range s.sourceDomains {
		if strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
