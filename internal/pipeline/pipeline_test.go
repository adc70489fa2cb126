package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobingest/internal/common/config"
	"jobingest/internal/common/logger"
	"jobingest/internal/models"
	"jobingest/internal/quality"
)

// memoryStore is an in-memory JobStore plus dedup.Store shaped lookups, so
// the idempotence test exercises the real detector tiering logic through
// the pipeline interfaces.
type memoryStore struct {
	jobs      []models.PersistedJob
	insertErr error
	nextID    int
}

func (m *memoryStore) Insert(_ context.Context, job models.EnrichedJob) (models.PersistedJob, error) {
	if m.insertErr != nil {
		return models.PersistedJob{}, m.insertErr
	}
	m.nextID++
	persisted := models.PersistedJob{
		ID:              fmt.Sprintf("job-%d", m.nextID),
		Title:           job.CleanedTitle,
		CompanyName:     job.CompanyName,
		City:            job.StandardizedCity,
		URL:             job.URL,
		Source:          job.Source,
		SourceID:        job.SourceID,
		SalaryMin:       job.SalaryMin,
		SalaryMax:       job.SalaryMax,
		SalaryCurrency:  job.SalaryCurrency,
		QualityScore:    job.QualityScore,
		IsVisaSponsored: job.IsVisaSponsored,
		IsActive:        true,
	}
	m.jobs = append(m.jobs, persisted)
	return persisted, nil
}

// stubDedup reports a duplicate when a previously persisted job shares the
// (source, sourceId) pair, mimicking tier 1 of the real detector.
type stubDedup struct {
	store  *memoryStore
	marked []string
}

func (d *stubDedup) Check(_ context.Context, job models.NormalizedJob) *models.ExistingJobRef {
	for _, p := range d.store.jobs {
		if job.SourceID != "" && p.Source == job.Source && p.SourceID == job.SourceID {
			return &models.ExistingJobRef{ID: p.ID, MatchTier: "source_id"}
		}
	}
	return nil
}

func (d *stubDedup) MarkPersisted(_ context.Context, _ models.NormalizedJob, id string) {
	d.marked = append(d.marked, id)
}

type stubEnricher struct {
	enrichment models.Enrichment
	panics     bool
}

func (e *stubEnricher) Enrich(_ context.Context, _ models.NormalizedJob) models.Enrichment {
	if e.panics {
		panic("provider client is nil")
	}
	return e.enrichment
}

type recordingNotifier struct {
	accepted []string
}

func (n *recordingNotifier) JobAccepted(_ context.Context, job models.PersistedJob) {
	n.accepted = append(n.accepted, job.ID)
}

func qualityPolicy() config.QualityConfig {
	return config.QualityConfig{
		Threshold: 0.5,
		Bonuses: config.QualityBonuses{
			TitleLength:  0.1,
			KnownCompany: 0.1,
			CityPresent:  0.05,
			SourceDomain: 0.1,
			RemoteFlag:   0.05,
		},
		SourceDomains: []string{"careers.acme.com"},
	}
}

func newTestProcessor(t *testing.T, store *memoryStore, enricher Enricher, notifier Notifier) (*Processor, *stubDedup) {
	dedup := &stubDedup{store: store}
	p := NewProcessor(
		dedup,
		enricher,
		quality.NewScorer(qualityPolicy()),
		store,
		nil,
		notifier,
		nil,
		logger.NewTestLogger(t),
	)
	return p, dedup
}

func sponsoredCandidate() models.EnrichedCandidate {
	return models.EnrichedCandidate{
		RawCandidate: models.RawCandidate{
			Position:   "Senior Software Engineer",
			Company:    "Acme",
			CityText:   "Berlin",
			ListingURL: "https://jobs.example.com/view/123",
		},
		Description: "We offer visa sponsorship for international candidates.",
		ApplyURL:    "https://careers.acme.com/apply/123",
		SourceID:    "ex-123",
		Salary:      models.SalaryRange{Min: 120000, Max: 160000, Currency: "USD"},
	}
}

func TestProcessIncomingJob_EndToEndSuccess(t *testing.T) {
	store := &memoryStore{}
	notifier := &recordingNotifier{}
	p, dedup := newTestProcessor(t, store, &stubEnricher{
		enrichment: models.Enrichment{IsTechJob: true, QualityScore: 0.8, IsVisaSponsored: true},
	}, notifier)

	outcome := p.ProcessIncomingJob(context.Background(), sponsoredCandidate(), "examplesource", "Germany", "software-engineering")

	require.Equal(t, models.StatusSuccess, outcome.Status)
	require.Len(t, store.jobs, 1)

	persisted := store.jobs[0]
	assert.Equal(t, outcome.JobID, persisted.ID)
	assert.True(t, persisted.IsVisaSponsored)
	assert.Equal(t, 120000.0, persisted.SalaryMin)
	assert.Equal(t, 160000.0, persisted.SalaryMax)
	assert.Equal(t, "Senior Software Engineer", persisted.Title)
	assert.GreaterOrEqual(t, persisted.QualityScore, 0.8, "bonuses only add to the AI score")

	assert.Equal(t, []string{persisted.ID}, dedup.marked)
	assert.Equal(t, []string{persisted.ID}, notifier.accepted)
}

func TestProcessIncomingJob_SecondSubmissionIsDuplicate(t *testing.T) {
	store := &memoryStore{}
	p, _ := newTestProcessor(t, store, &stubEnricher{
		enrichment: models.Enrichment{IsTechJob: true, QualityScore: 0.8},
	}, nil)

	first := p.ProcessIncomingJob(context.Background(), sponsoredCandidate(), "examplesource", "Germany", "")
	require.Equal(t, models.StatusSuccess, first.Status)

	second := p.ProcessIncomingJob(context.Background(), sponsoredCandidate(), "examplesource", "Germany", "")
	assert.Equal(t, models.StatusDuplicate, second.Status)
	assert.Equal(t, first.JobID, second.ExistingID)
	assert.Len(t, store.jobs, 1, "duplicates must not be persisted again")
}

func TestProcessIncomingJob_TechGate(t *testing.T) {
	store := &memoryStore{}
	p, _ := newTestProcessor(t, store, &stubEnricher{
		enrichment: models.Enrichment{IsTechJob: false, QualityScore: 0.9},
	}, nil)

	outcome := p.ProcessIncomingJob(context.Background(), sponsoredCandidate(), "examplesource", "", "")
	assert.Equal(t, models.StatusNotTechJob, outcome.Status)
	assert.Empty(t, store.jobs, "non-tech jobs bypass persistence entirely")
}

func TestProcessIncomingJob_QualityGate(t *testing.T) {
	store := &memoryStore{}
	p, _ := newTestProcessor(t, store, &stubEnricher{
		enrichment: models.Enrichment{IsTechJob: true, QualityScore: 0.1},
	}, nil)

	outcome := p.ProcessIncomingJob(context.Background(), sponsoredCandidate(), "examplesource", "", "")
	assert.Equal(t, models.StatusLowQuality, outcome.Status)
	assert.Empty(t, store.jobs)
}

func TestProcessIncomingJob_InvalidPayload(t *testing.T) {
	store := &memoryStore{}
	p, _ := newTestProcessor(t, store, &stubEnricher{}, nil)

	outcome := p.ProcessIncomingJob(context.Background(), models.EnrichedCandidate{}, "examplesource", "", "")
	assert.Equal(t, models.StatusError, outcome.Status)
	require.Error(t, outcome.Err)
	assert.Empty(t, store.jobs)
}

func TestProcessIncomingJob_PersistErrorBecomesErrorOutcome(t *testing.T) {
	store := &memoryStore{insertErr: errors.New("connection refused")}
	p, _ := newTestProcessor(t, store, &stubEnricher{
		enrichment: models.Enrichment{IsTechJob: true, QualityScore: 0.9},
	}, nil)

	outcome := p.ProcessIncomingJob(context.Background(), sponsoredCandidate(), "examplesource", "", "")
	assert.Equal(t, models.StatusError, outcome.Status)
	assert.Error(t, outcome.Err)
}

func TestProcessIncomingJob_PanicIsCaught(t *testing.T) {
	store := &memoryStore{}
	p, _ := newTestProcessor(t, store, &stubEnricher{panics: true}, nil)

	outcome := p.ProcessIncomingJob(context.Background(), sponsoredCandidate(), "examplesource", "", "")
	assert.Equal(t, models.StatusError, outcome.Status)
	require.Error(t, outcome.Err)
	assert.Contains(t, outcome.Err.Error(), "panic")
}
