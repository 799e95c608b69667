package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/terminal-bench/casgen/internal/exercise"
)

// Status is the job lifecycle state. Terminal states are final; any
// transition not in the table below is rejected loudly.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var validTransitions = map[Status][]Status{
	StatusPending: {StatusRunning},
	StatusRunning: {StatusCompleted, StatusFailed, StatusCancelled},
}

// Phase is a fixed progress checkpoint reported to UI-facing consumers.
type Phase string

const (
	PhaseValidation     Phase = "validation"
	PhaseInitialization Phase = "initialization"
	PhaseGeneration     Phase = "generation"
	PhaseFinalization   Phase = "finalization"
	PhasePackaging      Phase = "packaging"
)

// Job tracks one generation run. The pipeline is its sole mutator; engine
// components never touch job state.
type Job struct {
	ID         uuid.UUID
	Config     *exercise.Config
	ConfigHash string

	mu             sync.RWMutex
	status         Status
	phase          Phase
	progress       float64
	records        int
	resultPath     string
	errKind        string
	errMsg         string
	createdAt      time.Time
	startedAt      time.Time
	finishedAt     time.Time
	estimatedBytes int64

	cancelRequested atomic.Bool
}

// View is an immutable snapshot of job state for callers.
type View struct {
	ID             uuid.UUID `json:"id"`
	Status         Status    `json:"status"`
	Phase          Phase     `json:"phase,omitempty"`
	Progress       float64   `json:"progress"`
	Records        int       `json:"records"`
	ConfigHash     string    `json:"config_hash"`
	ResultPath     string    `json:"result_path,omitempty"`
	ErrorKind      string    `json:"error_kind,omitempty"`
	Error          string    `json:"error,omitempty"`
	EstimatedBytes int64     `json:"estimated_bytes"`
	CreatedAt      time.Time `json:"created_at"`
	StartedAt      time.Time `json:"started_at,omitempty"`
	FinishedAt     time.Time `json:"finished_at,omitempty"`
}

func newJob(cfg *exercise.Config, estimate int64) *Job {
	return &Job{
		ID:             uuid.New(),
		Config:         cfg,
		ConfigHash:     cfg.Hash(),
		status:         StatusPending,
		createdAt:      time.Now().UTC(),
		estimatedBytes: estimate,
	}
}

// transition moves the job to a new status, enforcing the state machine.
func (j *Job) transition(to Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, allowed := range validTransitions[j.status] {
		if allowed == to {
			j.status = to
			switch to {
			case StatusRunning:
				j.startedAt = time.Now().UTC()
			case StatusCompleted, StatusFailed, StatusCancelled:
				j.finishedAt = time.Now().UTC()
			}
			return nil
		}
	}
	return fmt.Errorf("invalid job transition %s -> %s", j.status, to)
}

// setProgress records a monotone progress checkpoint. A fraction below the
// current one is clamped, never reported backwards.
func (j *Job) setProgress(phase Phase, fraction float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.phase = phase
	if fraction > j.progress {
		j.progress = fraction
	}
}

func (j *Job) setRecords(n int) {
	j.mu.Lock()
	j.records = n
	j.mu.Unlock()
}

func (j *Job) setResult(path string) {
	j.mu.Lock()
	j.resultPath = path
	j.mu.Unlock()
}

func (j *Job) setError(kind, msg string) {
	j.mu.Lock()
	j.errKind = kind
	j.errMsg = msg
	j.mu.Unlock()
}

// Status returns the current lifecycle state.
func (j *Job) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// RequestCancel flips the cooperative cancellation flag. The run loop polls
// it between records; in-flight work for the current record completes.
func (j *Job) RequestCancel() {
	j.cancelRequested.Store(true)
}

// CancelRequested reports whether cancellation has been requested.
func (j *Job) CancelRequested() bool {
	return j.cancelRequested.Load()
}

// Snapshot returns a consistent copy of the job state.
func (j *Job) Snapshot() View {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return View{
		ID:             j.ID,
		Status:         j.status,
		Phase:          j.phase,
		Progress:       j.progress,
		Records:        j.records,
		ConfigHash:     j.ConfigHash,
		ResultPath:     j.resultPath,
		ErrorKind:      j.errKind,
		Error:          j.errMsg,
		EstimatedBytes: j.estimatedBytes,
		CreatedAt:      j.createdAt,
		StartedAt:      j.startedAt,
		FinishedAt:     j.finishedAt,
	}
}
