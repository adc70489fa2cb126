package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobingest/internal/common/logger"
	"jobingest/internal/models"
)

// stubPage is an in-memory Page for strategy-chain tests.
type stubPage struct {
	attrs    map[string]map[string]string // sel -> attr -> value
	texts    map[string]string
	requests []string
	html     string

	// revealOnClick maps a click selector to attrs that appear afterwards.
	revealOnClick map[string]map[string]map[string]string
	clicked       []string
}

func (s *stubPage) Attribute(_ context.Context, sel, attr string) (string, bool, error) {
	if byAttr, ok := s.attrs[sel]; ok {
		if v, ok := byAttr[attr]; ok {
			return v, true, nil
		}
	}
	return "", false, nil
}

func (s *stubPage) Text(_ context.Context, sel string) (string, error) {
	return s.texts[sel], nil
}

func (s *stubPage) Click(_ context.Context, sel string) error {
	revealed, ok := s.revealOnClick[sel]
	if !ok {
		return errors.New("no such element")
	}
	s.clicked = append(s.clicked, sel)
	if s.attrs == nil {
		s.attrs = map[string]map[string]string{}
	}
	for rsel, byAttr := range revealed {
		s.attrs[rsel] = byAttr
	}
	return nil
}

func (s *stubPage) HTML(_ context.Context) (string, error) { return s.html, nil }

func (s *stubPage) ObservedRequests() []string { return s.requests }

type stubFactory struct {
	page    *stubPage
	openErr error
}

func (f *stubFactory) Open(_ context.Context, _ string) (Page, func(), error) {
	if f.openErr != nil {
		return nil, nil, f.openErr
	}
	return f.page, func() {}, nil
}

func newTestExtractor(t *testing.T, p *stubPage) *Extractor {
	return NewExtractor(&stubFactory{page: p}, logger.NewTestLogger(t))
}

var testRaw = models.RawCandidate{
	Position:   "Senior Software Engineer",
	Company:    "Acme",
	CityText:   "Berlin",
	ListingURL: "https://jobs.example.com/view/123",
}

func TestExtract_HiddenMetadataWins(t *testing.T) {
	p := &stubPage{
		attrs: map[string]map[string]string{
			`input[name="applyUrl"]`:        {"value": "https://careers.acme.com/apply/123"},
			`a[data-testid="applyButton"]`:  {"href": "https://other.example.org/apply"},
		},
	}
	e := newTestExtractor(t, p)

	got, err := e.Extract(context.Background(), testRaw)
	require.NoError(t, err)
	assert.Equal(t, "https://careers.acme.com/apply/123", got.ApplyURL)
}

func TestExtract_SameHostCandidateFallsThrough(t *testing.T) {
	p := &stubPage{
		attrs: map[string]map[string]string{
			// Tier 1 points back at the source itself: not an apply target.
			`input[name="applyUrl"]`:       {"value": "https://jobs.example.com/view/123?apply=1"},
			`a[data-testid="applyButton"]`: {"href": "https://careers.acme.com/jobs/123"},
		},
	}
	e := newTestExtractor(t, p)

	got, err := e.Extract(context.Background(), testRaw)
	require.NoError(t, err)
	assert.Equal(t, "https://careers.acme.com/jobs/123", got.ApplyURL)
}

func TestExtract_ClickRevealTier(t *testing.T) {
	p := &stubPage{
		revealOnClick: map[string]map[string]map[string]string{
			`button[class*="apply"]`: {
				`.apply-modal a[href]`: {"href": "https://boards.greenhouse.io/acme/jobs/123"},
			},
		},
	}
	e := newTestExtractor(t, p)

	got, err := e.Extract(context.Background(), testRaw)
	require.NoError(t, err)
	assert.Equal(t, "https://boards.greenhouse.io/acme/jobs/123", got.ApplyURL)
	assert.NotEmpty(t, p.clicked)
}

func TestExtract_NetworkSniffTier(t *testing.T) {
	p := &stubPage{
		requests: []string{
			"https://cdn.example.com/assets/app.js",
			"https://ats.acme.com/redirect/apply/123",
		},
	}
	e := newTestExtractor(t, p)

	got, err := e.Extract(context.Background(), testRaw)
	require.NoError(t, err)
	assert.Equal(t, "https://ats.acme.com/redirect/apply/123", got.ApplyURL)
}

func TestExtract_SourceScanTier(t *testing.T) {
	p := &stubPage{
		html: `<script>var cfg = {"target":"https://workday.acme.com/en/apply?id=123"};</script>`,
	}
	e := newTestExtractor(t, p)

	got, err := e.Extract(context.Background(), testRaw)
	require.NoError(t, err)
	assert.Equal(t, "https://workday.acme.com/en/apply?id=123", got.ApplyURL)
}

func TestExtract_FallbackToListingURL(t *testing.T) {
	e := newTestExtractor(t, &stubPage{})

	got, err := e.Extract(context.Background(), testRaw)
	require.NoError(t, err, "exhausted chain is a degraded result, not an error")
	assert.Equal(t, testRaw.ListingURL, got.ApplyURL)
}

func TestExtract_DeterministicSubSteps(t *testing.T) {
	p := &stubPage{
		texts: map[string]string{
			`.job-description`: "We sponsor your visa sponsorship and offer $120,000 - $160,000.",
			`.salary`:          "$120,000 - $160,000",
		},
		attrs: map[string]map[string]string{
			`[data-job-id]`: {"data-job-id": "src-123"},
		},
	}
	e := newTestExtractor(t, p)

	raw := testRaw
	raw.SalaryText = ""
	got, err := e.Extract(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "src-123", got.SourceID)
	assert.True(t, got.IsSponsoredHint)
	assert.Equal(t, 120000.0, got.Salary.Min)
	assert.Equal(t, 160000.0, got.Salary.Max)
	assert.Equal(t, "USD", got.Salary.Currency)
	assert.Contains(t, got.Description, "sponsor")
}

func TestExtract_CardSalaryTextPreferred(t *testing.T) {
	p := &stubPage{
		texts: map[string]string{`.salary`: "€10k - €20k"},
	}
	e := newTestExtractor(t, p)

	raw := testRaw
	raw.SalaryText = "€40k - €60k"
	got, err := e.Extract(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 40000.0, got.Salary.Min)
	assert.Equal(t, 60000.0, got.Salary.Max)
}
