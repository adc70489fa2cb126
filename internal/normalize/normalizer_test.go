package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"jobingest/internal/models"
)

func TestNormalize_InvariantsAlwaysHold(t *testing.T) {
	// Worst-case candidate: everything missing except the listing URL.
	cand := models.EnrichedCandidate{
		RawCandidate: models.RawCandidate{
			ListingURL: "https://jobs.example.com/view/1",
		},
	}

	job := Normalize(cand, "examplesource", "", "")

	assert.NotEmpty(t, job.URL, "url must never be empty")
	assert.Equal(t, "https://jobs.example.com/view/1", job.URL)
	assert.Equal(t, "Unknown Company", job.CompanyName)
	assert.False(t, job.PostedAt.IsZero(), "postedAt must always be valid")
	assert.WithinDuration(t, time.Now().UTC(), job.PostedAt, time.Minute)
}

func TestNormalize_FieldMapping(t *testing.T) {
	cand := models.EnrichedCandidate{
		RawCandidate: models.RawCandidate{
			Position:       "Backend Engineer",
			Company:        "Acme GmbH",
			CityText:       "Berlin, BE",
			PostedDateText: "2025-05-20",
			ListingURL:     "https://jobs.example.com/view/2",
		},
		ApplyURL:    "https://careers.acme.com/apply/2",
		Description: "Build services.",
		SourceID:    "ex-2",
		Salary:      models.SalaryRange{Min: 60000, Max: 80000, Currency: "EUR"},
	}

	job := Normalize(cand, "examplesource", "Germany", "software-engineering")

	assert.Equal(t, "Backend Engineer", job.Title)
	assert.Equal(t, "Acme GmbH", job.CompanyName)
	assert.Equal(t, "Berlin", job.City)
	assert.Equal(t, "Germany", job.Country)
	assert.Equal(t, "https://careers.acme.com/apply/2", job.URL)
	assert.Equal(t, "examplesource", job.Source)
	assert.Equal(t, "ex-2", job.SourceID)
	assert.Equal(t, "software-engineering", job.Category)
	assert.Equal(t, 60000.0, job.SalaryMin)
	assert.Equal(t, 80000.0, job.SalaryMax)
	assert.Equal(t, "EUR", job.SalaryCurrency)
	assert.Equal(t, time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC), job.PostedAt)
}

func TestNormalize_InternshipHeuristic(t *testing.T) {
	cand := models.EnrichedCandidate{
		RawCandidate: models.RawCandidate{
			Position:   "Software Engineering Intern",
			ListingURL: "https://jobs.example.com/view/3",
		},
	}

	job := Normalize(cand, "examplesource", "", "")
	assert.Equal(t, "internship", job.Type)
	assert.Equal(t, "internship", job.ExperienceLevel)
}

func TestNormalize_ExperienceHeuristics(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Senior Software Engineer", "senior"},
		{"Staff Platform Engineer", "senior"},
		{"Junior Developer", "entry"},
		{"Graduate Data Analyst", "entry"},
		{"Software Engineer", "mid"},
	}
	for _, tt := range tests {
		cand := models.EnrichedCandidate{RawCandidate: models.RawCandidate{Position: tt.title, ListingURL: "https://x.example/1"}}
		assert.Equal(t, tt.want, Normalize(cand, "s", "", "").ExperienceLevel, tt.title)
	}
}

func TestParsePostedAt_RelativeText(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		text string
		want time.Time
	}{
		{"3 days ago", now.Add(-3 * 24 * time.Hour)},
		{"30+ days ago", now.Add(-30 * 24 * time.Hour)},
		{"2 hours ago", now.Add(-2 * time.Hour)},
		{"1 week ago", now.Add(-7 * 24 * time.Hour)},
		{"today", now},
		{"yesterday", now.Add(-24 * time.Hour)},
		{"garbage", now},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parsePostedAt(tt.text, "", now), tt.text)
	}
}

func TestNormalize_RemoteCity(t *testing.T) {
	cand := models.EnrichedCandidate{
		RawCandidate: models.RawCandidate{
			Position:   "Engineer",
			CityText:   "Remote",
			ListingURL: "https://jobs.example.com/view/4",
		},
	}

	job := Normalize(cand, "examplesource", "", "")
	assert.True(t, job.Remote)
	assert.Empty(t, job.City)
}
