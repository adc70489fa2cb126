// internal/models/outcome.go
package models

// Status is the terminal state of one pipeline invocation. Exactly one
// status is produced per incoming candidate; statuses are never combined.
type Status string

const (
	StatusSuccess    Status = "success"
	StatusDuplicate  Status = "duplicate"
	StatusNotTechJob Status = "not_tech_job"
	StatusLowQuality Status = "low_quality"
	StatusError      Status = "error"
)

// Outcome is the closed tagged result returned by the pipeline. JobID is set
// only for success, ExistingID only for duplicate, Err only for error.
type Outcome struct {
	Status     Status `json:"status"`
	JobID      string `json:"jobId,omitempty"`
	ExistingID string `json:"existingId,omitempty"`
	Err        error  `json:"-"`
}

func Success(jobID string) Outcome {
	return Outcome{Status: StatusSuccess, JobID: jobID}
}

func Duplicate(existingID string) Outcome {
	return Outcome{Status: StatusDuplicate, ExistingID: existingID}
}

func NotTechJob() Outcome {
	return Outcome{Status: StatusNotTechJob}
}

func LowQuality() Outcome {
	return Outcome{Status: StatusLowQuality}
}

func Errored(err error) Outcome {
	return Outcome{Status: StatusError, Err: err}
}

// ExistingJobRef identifies an already-persisted job matched by the
// duplicate detector, along with which tier produced the match.
type ExistingJobRef struct {
	ID        string `json:"id"`
	MatchTier string `json:"matchTier"` // "source_id", "url" or "fuzzy"
}
