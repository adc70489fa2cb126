// Package search projects persisted jobs into Elasticsearch for the consumer
// applications. Indexing is best-effort; the relational store stays the
// system of record.
package search

import (
	"bytes"
	"context"
	"encoding/json"

	"jobingest/internal/common/database"
	"jobingest/internal/common/errors"
	"jobingest/internal/common/logger"
	"jobingest/internal/models"
)

// Indexer writes accepted jobs into the configured index.
type Indexer struct {
	es     *database.ElasticsearchClient
	index  string
	logger logger.Logger
}

func NewIndexer(es *database.ElasticsearchClient, index string, log logger.Logger) *Indexer {
	return &Indexer{es: es, index: index, logger: log}
}

// Index writes one job document keyed by the job's id, so re-indexing is an
// overwrite rather than a duplicate.
func (i *Indexer) Index(ctx context.Context, job models.PersistedJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return errors.NewIndexingFailedError(err)
	}

	res, err := i.es.Client.Index(
		i.index,
		bytes.NewReader(body),
		i.es.Client.Index.WithDocumentID(job.ID),
		i.es.Client.Index.WithContext(ctx),
	)
	if err != nil {
		return errors.NewIndexingFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewIndexingFailedError(
			&indexStatusError{status: res.Status()},
		)
	}

	i.logger.Debug("job indexed", map[string]interface{}{
		"job_id": job.ID,
		"index":  i.index,
	})
	return nil
}

type indexStatusError struct {
	status string
}

func (e *indexStatusError) Error() string {
	return "elasticsearch returned " + e.status
}
