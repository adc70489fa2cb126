// internal/models/job.go
package models

import (
	"strings"
	"time"
)

// SalaryRange is the best-effort result of salary text parsing. A zero value
// means no salary information was recovered.
type SalaryRange struct {
	Min      float64 `json:"min,omitempty"`
	Max      float64 `json:"max,omitempty"`
	Currency string  `json:"currency,omitempty"`
}

// IsZero reports whether no salary information is present.
func (s SalaryRange) IsZero() bool {
	return s.Min == 0 && s.Max == 0 && s.Currency == ""
}

// RawCandidate is a listing card as parsed from a search results page.
// It lives only for the duration of a crawl pass and is discarded once
// normalized.
type RawCandidate struct {
	Position       string `json:"position"`
	Company        string `json:"company"`
	CityText       string `json:"cityText"`
	PostedDateText string `json:"postedDateText"`
	SalaryText     string `json:"salaryText"`
	ListingURL     string `json:"listingUrl"`
	SourceAgoText  string `json:"sourceAgoText"`
}

// EnrichedCandidate is a RawCandidate plus everything the detail extractor
// recovered from the listing page itself.
type EnrichedCandidate struct {
	RawCandidate

	Description     string      `json:"description"`
	ApplyURL        string      `json:"applyUrl"`
	SourceID        string      `json:"sourceId,omitempty"`
	IsSponsoredHint bool        `json:"isSponsoredHint"`
	RemoteHint      bool        `json:"remoteHint"`
	Salary          SalaryRange `json:"salary"`
}

// NormalizedJob is the canonical pre-enrichment record. Invariants: PostedAt
// is always a valid timestamp, URL and CompanyName are never empty.
type NormalizedJob struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	CompanyName     string    `json:"companyName"`
	City            string    `json:"city"`
	Country         string    `json:"country"`
	PostedAt        time.Time `json:"postedAt"`
	Type            string    `json:"type"`
	ExperienceLevel string    `json:"experienceLevel"`
	SalaryMin       float64   `json:"salaryMin,omitempty"`
	SalaryMax       float64   `json:"salaryMax,omitempty"`
	SalaryCurrency  string    `json:"salaryCurrency,omitempty"`
	URL             string    `json:"url"`
	Source          string    `json:"source"`
	SourceID        string    `json:"sourceId,omitempty"`
	Remote          bool      `json:"remote"`
	Category        string    `json:"category,omitempty"`
}

// Enrichment holds the AI-derived classification for a job. Optional fields
// are pointers so "the model said nothing" is distinguishable from a zero
// value.
type Enrichment struct {
	IsTechJob             bool         `json:"isTechJob"`
	QualityScore          float64      `json:"qualityScore"`
	IsVisaSponsored       bool         `json:"isVisaSponsored"`
	CleanedTitle          string       `json:"cleanedTitle,omitempty"`
	StandardizedCity      string       `json:"standardizedCity,omitempty"`
	JobType               string       `json:"jobType,omitempty"`
	ExperienceLevel       string       `json:"experienceLevel,omitempty"`
	SummarizedDescription string       `json:"summarizedDescription,omitempty"`
	Remote                *bool        `json:"remote,omitempty"`
	Salary                *SalaryRange `json:"salary,omitempty"`
}

// EnrichedJob is a NormalizedJob with AI-authoritative overrides applied.
type EnrichedJob struct {
	NormalizedJob

	CleanedTitle          string  `json:"cleanedTitle"`
	StandardizedCity      string  `json:"standardizedCity"`
	IsTechJob             bool    `json:"isTechJob"`
	QualityScore          float64 `json:"qualityScore"`
	IsVisaSponsored       bool    `json:"isVisaSponsored"`
	SummarizedDescription string  `json:"summarizedDescription"`
}

// ApplyEnrichment merges the AI result onto a normalized job following the
// override rules: the AI wins on type, experience level and remote flag; a
// caller-declared non-remote city beats an AI city of "remote"; AI salary
// wins only when the model actually produced one.
func ApplyEnrichment(job NormalizedJob, e Enrichment) EnrichedJob {
	out := EnrichedJob{
		NormalizedJob:         job,
		CleanedTitle:          job.Title,
		StandardizedCity:      job.City,
		IsTechJob:             e.IsTechJob,
		QualityScore:          e.QualityScore,
		IsVisaSponsored:       e.IsVisaSponsored,
		SummarizedDescription: e.SummarizedDescription,
	}

	if e.CleanedTitle != "" {
		out.CleanedTitle = e.CleanedTitle
	}
	if e.JobType != "" {
		out.Type = e.JobType
	}
	if e.ExperienceLevel != "" {
		out.ExperienceLevel = e.ExperienceLevel
	}
	if e.Salary != nil && !e.Salary.IsZero() {
		out.SalaryMin = e.Salary.Min
		out.SalaryMax = e.Salary.Max
		out.SalaryCurrency = e.Salary.Currency
	}

	if e.StandardizedCity != "" {
		// A known on-site location beats an AI hallucination of "remote".
		if strings.EqualFold(e.StandardizedCity, "remote") && !job.Remote && job.City != "" {
			out.StandardizedCity = job.City
		} else {
			out.StandardizedCity = e.StandardizedCity
		}
	}
	if e.Remote != nil {
		out.Remote = *e.Remote
	}

	return out
}

// PersistedJob is the accepted record as written to the store. Immutable
// after insert except for deactivation by maintenance processes.
type PersistedJob struct {
	ID                    string    `json:"id"`
	Title                 string    `json:"title"`
	Description           string    `json:"description"`
	CompanyName           string    `json:"companyName"`
	City                  string    `json:"city"`
	Country               string    `json:"country"`
	PostedAt              time.Time `json:"postedAt"`
	Type                  string    `json:"type"`
	ExperienceLevel       string    `json:"experienceLevel"`
	SalaryMin             float64   `json:"salaryMin,omitempty"`
	SalaryMax             float64   `json:"salaryMax,omitempty"`
	SalaryCurrency        string    `json:"salaryCurrency,omitempty"`
	URL                   string    `json:"url"`
	Source                string    `json:"source"`
	SourceID              string    `json:"sourceId,omitempty"`
	Remote                bool      `json:"remote"`
	Category              string    `json:"category,omitempty"`
	QualityScore          float64   `json:"qualityScore"`
	IsVisaSponsored       bool      `json:"isVisaSponsored"`
	SummarizedDescription string    `json:"summarizedDescription,omitempty"`
	IsActive              bool      `json:"isActive"`
	CreatedAt             time.Time `json:"createdAt"`
}
