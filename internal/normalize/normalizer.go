// Package normalize maps heterogeneous crawl output into the canonical job
// shape. Pure functions, no I/O; unresolvable fields get explicit
// placeholders so downstream stages never see empty invariant fields.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"jobingest/internal/models"
)

const unknownCompany = "Unknown Company"

// Title keywords that pre-classify internships before AI review. The
// enrichment stage may override.
var internshipTitleKeywords = []string{
	"intern",
	"internship",
	"working student",
	"werkstudent",
	"praktikum",
	"co-op",
}

var seniorTitleKeywords = []string{"senior", "staff", "principal", "lead", "head of"}

var juniorTitleKeywords = []string{"junior", "graduate", "entry level", "entry-level"}

var agoRe = regexp.MustCompile(`(?i)(\d+)\+?\s*(minute|hour|day|week|month)s?\s*ago`)

// Normalize converts an extracted candidate into a NormalizedJob.
// Invariants: PostedAt is always valid (defaults to now), URL is never
// empty (falls back to the listing URL), CompanyName is never empty.
func Normalize(cand models.EnrichedCandidate, source, knownCountry, category string) models.NormalizedJob {
	now := time.Now().UTC()

	job := models.NormalizedJob{
		Title:       strings.TrimSpace(cand.Position),
		Description: strings.TrimSpace(cand.Description),
		CompanyName: strings.TrimSpace(cand.Company),
		City:        cleanCity(cand.CityText),
		Country:     knownCountry,
		PostedAt:    parsePostedAt(cand.PostedDateText, cand.SourceAgoText, now),
		URL:         cand.ApplyURL,
		Source:      source,
		SourceID:    cand.SourceID,
		Remote:      cand.RemoteHint || strings.EqualFold(strings.TrimSpace(cand.CityText), "remote"),
		Category:    category,
	}

	if job.CompanyName == "" {
		job.CompanyName = unknownCompany
	}
	if job.URL == "" {
		job.URL = cand.ListingURL
	}

	if !cand.Salary.IsZero() {
		job.SalaryMin = cand.Salary.Min
		job.SalaryMax = cand.Salary.Max
		job.SalaryCurrency = cand.Salary.Currency
	}

	job.Type = classifyType(job.Title)
	job.ExperienceLevel = classifyExperience(job.Title)

	return job
}

// NormalizeRaw wraps a bare RawCandidate (no detail extraction) so callers
// that skip the browser step still get a canonical job.
func NormalizeRaw(raw models.RawCandidate, source, knownCountry, category string) models.NormalizedJob {
	return Normalize(models.EnrichedCandidate{RawCandidate: raw, ApplyURL: raw.ListingURL}, source, knownCountry, category)
}

func classifyType(title string) string {
	lower := strings.ToLower(title)
	for _, kw := range internshipTitleKeywords {
		if strings.Contains(lower, kw) {
			return "internship"
		}
	}
	return "full-time"
}

func classifyExperience(title string) string {
	lower := strings.ToLower(title)
	for _, kw := range seniorTitleKeywords {
		if strings.Contains(lower, kw) {
			return "senior"
		}
	}
	for _, kw := range juniorTitleKeywords {
		if strings.Contains(lower, kw) {
			return "entry"
		}
	}
	for _, kw := range internshipTitleKeywords {
		if strings.Contains(lower, kw) {
			return "internship"
		}
	}
	return "mid"
}

func cleanCity(cityText string) string {
	city := strings.TrimSpace(cityText)
	if strings.EqualFold(city, "remote") {
		return ""
	}
	// "Berlin, BE 10115" style suffixes add nothing at this stage.
	if i := strings.Index(city, ","); i > 0 {
		city = strings.TrimSpace(city[:i])
	}
	return city
}

// parsePostedAt recovers a timestamp from either an absolute date text or a
// relative "N days ago" fragment; falls back to now.
func parsePostedAt(dateText, agoText string, now time.Time) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "Jan 2, 2006", "2 Jan 2006", "02/01/2006"} {
		if t, err := time.Parse(layout, strings.TrimSpace(dateText)); err == nil {
			return t.UTC()
		}
	}

	for _, text := range []string{dateText, agoText} {
		if m := agoRe.FindStringSubmatch(text); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			var unit time.Duration
			switch strings.ToLower(m[2]) {
			case "minute":
				unit = time.Minute
			case "hour":
				unit = time.Hour
			case "day":
				unit = 24 * time.Hour
			case "week":
				unit = 7 * 24 * time.Hour
			case "month":
				unit = 30 * 24 * time.Hour
			}
			return now.Add(-time.Duration(n) * unit)
		}
		if strings.EqualFold(strings.TrimSpace(text), "today") || strings.EqualFold(strings.TrimSpace(text), "just posted") {
			return now
		}
		if strings.EqualFold(strings.TrimSpace(text), "yesterday") {
			return now.Add(-24 * time.Hour)
		}
	}

	return now
}
