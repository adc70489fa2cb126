// Package store persists accepted jobs to PostgreSQL and serves the lookup
// queries the duplicate detector runs.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"jobingest/internal/common/database"
	"jobingest/internal/common/errors"
	"jobingest/internal/common/logger"
	"jobingest/internal/models"
)

const insertJobQuery = `
	INSERT INTO jobs (
		id, title, description, company_name, city, country, posted_at,
		type, experience_level, salary_min, salary_max, salary_currency,
		url, source, source_id, remote, category, quality_score,
		is_visa_sponsored, summarized_description, is_active, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		$13, $14, $15, $16, $17, $18, $19, $20, $21, $22
	)`

const findBySourceIDQuery = `
	SELECT id FROM jobs WHERE source = $1 AND source_id = $2 AND is_active = true`

const findByURLQuery = `
	SELECT id FROM jobs WHERE url = $1 AND is_active = true`

// findSimilarQuery matches near-identical postings from the same company
// within a posting window. similarity() comes from pg_trgm; the threshold
// tolerates punctuation and seniority-suffix drift between boards.
const findSimilarQuery = `
	SELECT id FROM jobs
	WHERE lower(company_name) = lower($1)
	  AND similarity(title, $2) > 0.8
	  AND posted_at BETWEEN $3 AND $4
	  AND is_active = true
	LIMIT 1`

// Store owns all job-table access.
type Store struct {
	db     *database.PostgresClient
	logger logger.Logger
}

func New(db *database.PostgresClient, log logger.Logger) *Store {
	return &Store{db: db, logger: log}
}

// Insert writes an accepted job and returns the persisted record. The ID is
// generated here so callers never supply one.
func (s *Store) Insert(ctx context.Context, job models.EnrichedJob) (models.PersistedJob, error) {
	persisted := models.PersistedJob{
		ID:                    uuid.New().String(),
		Title:                 job.CleanedTitle,
		Description:           job.Description,
		CompanyName:           job.CompanyName,
		City:                  job.StandardizedCity,
		Country:               job.Country,
		PostedAt:              job.PostedAt,
		Type:                  job.Type,
		ExperienceLevel:       job.ExperienceLevel,
		SalaryMin:             job.SalaryMin,
		SalaryMax:             job.SalaryMax,
		SalaryCurrency:        job.SalaryCurrency,
		URL:                   job.URL,
		Source:                job.Source,
		SourceID:              job.SourceID,
		Remote:                job.Remote,
		Category:              job.Category,
		QualityScore:          job.QualityScore,
		IsVisaSponsored:       job.IsVisaSponsored,
		SummarizedDescription: job.SummarizedDescription,
		IsActive:              true,
		CreatedAt:             time.Now().UTC(),
	}

	_, err := s.db.Exec(ctx, insertJobQuery,
		persisted.ID,
		persisted.Title,
		persisted.Description,
		persisted.CompanyName,
		persisted.City,
		persisted.Country,
		persisted.PostedAt,
		persisted.Type,
		persisted.ExperienceLevel,
		persisted.SalaryMin,
		persisted.SalaryMax,
		persisted.SalaryCurrency,
		persisted.URL,
		persisted.Source,
		persisted.SourceID,
		persisted.Remote,
		persisted.Category,
		persisted.QualityScore,
		persisted.IsVisaSponsored,
		persisted.SummarizedDescription,
		persisted.IsActive,
		persisted.CreatedAt,
	)
	if err != nil {
		return models.PersistedJob{}, errors.NewDatabaseInsertFailedError(err)
	}

	return persisted, nil
}

// FindBySourceID resolves a job by its provider-native identifier.
// Not-found is ("", nil).
func (s *Store) FindBySourceID(ctx context.Context, source, sourceID string) (string, error) {
	return s.scanID(s.db.QueryRow(ctx, findBySourceIDQuery, source, sourceID))
}

// FindByURL resolves a job by its canonical URL. Not-found is ("", nil).
func (s *Store) FindByURL(ctx context.Context, url string) (string, error) {
	return s.scanID(s.db.QueryRow(ctx, findByURLQuery, url))
}

// FindSimilar runs the store-side similarity match within [start, end].
// Not-found is ("", nil).
func (s *Store) FindSimilar(ctx context.Context, companyName, title string, start, end time.Time) (string, error) {
	return s.scanID(s.db.QueryRow(ctx, findSimilarQuery, companyName, title, start, end))
}

func (s *Store) scanID(row *sql.Row) (string, error) {
	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", errors.NewQueryExecutionFailedError("job_lookup", err)
	}
	return id, nil
}
