package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/terminal-bench/casgen/internal/composer"
	"github.com/terminal-bench/casgen/internal/exercise"
)

// Error kinds surfaced to callers so "your configuration is too large" is
// distinguishable from "the engine is broken".
const (
	KindConfiguration = "configuration"
	KindGeneration    = "generation"
	KindResourceLimit = "resource_limit"
	KindTimeout       = "timeout"
	KindInternal      = "internal"
)

// ErrJobNotFound is returned for lookups and cancellations of unknown jobs.
var ErrJobNotFound = errors.New("job not found")

// ErrJobTerminal is returned when cancelling a job already in a final state.
var ErrJobTerminal = errors.New("job already in terminal state")

// ResourceLimitError reports a memory or concurrency ceiling breach. Jobs
// exceeding the memory ceiling are rejected at submission, never mid-run.
type ResourceLimitError struct {
	Resource string // "memory", "jobs"
	Detail   string
}

func (e *ResourceLimitError) Error() string {
	return fmt.Sprintf("resource limit exceeded (%s): %s", e.Resource, e.Detail)
}

// classify maps an engine error to its user-visible kind.
func classify(err error) string {
	var cfgErr *exercise.ConfigurationError
	var genErr *composer.GenerationError
	var resErr *ResourceLimitError
	switch {
	case errors.As(err, &cfgErr):
		return KindConfiguration
	case errors.As(err, &genErr):
		return KindGeneration
	case errors.As(err, &resErr):
		return KindResourceLimit
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindInternal
	}
}
