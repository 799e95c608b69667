package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Subjects for job lifecycle and progress events.
const (
	SubjectJobSubmitted = "jobs.submitted"
	SubjectJobStarted   = "jobs.started"
	SubjectJobProgress  = "jobs.progress"
	SubjectJobCompleted = "jobs.completed"
	SubjectJobFailed    = "jobs.failed"
	SubjectJobCancelled = "jobs.cancelled"
)

// JobEvent announces a job lifecycle transition.
type JobEvent struct {
	JobID      uuid.UUID `json:"job_id"`
	Status     string    `json:"status"`
	ConfigHash string    `json:"config_hash,omitempty"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	Records    int       `json:"records,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ProgressEvent carries one progress checkpoint of a running job. Fractions
// are monotonically increasing within a job.
type ProgressEvent struct {
	JobID     uuid.UUID `json:"job_id"`
	Phase     string    `json:"phase"`
	Fraction  float64   `json:"fraction"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
