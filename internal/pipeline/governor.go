package pipeline

import (
	"fmt"
	"sync/atomic"
)

// Governor enforces the pipeline's resource ceilings. Its counters are the
// only mutable state shared across concurrent jobs and use atomic
// increment/decrement so concurrent job start and finish never lose updates.
type Governor struct {
	maxJobs     int64
	memCeiling  int64
	activeJobs  int64
	activeBytes int64
}

// NewGovernor creates a governor with a concurrent-job cap and a memory
// ceiling in bytes.
func NewGovernor(maxJobs int, memCeiling int64) *Governor {
	return &Governor{maxJobs: int64(maxJobs), memCeiling: memCeiling}
}

// Admit reserves capacity for a job with the given estimated footprint, or
// returns a ResourceLimitError. Admission is all-or-nothing.
func (g *Governor) Admit(estimate int64) error {
	if estimate > g.memCeiling {
		return &ResourceLimitError{Resource: "memory",
			Detail: fmt.Sprintf("estimated footprint %d bytes exceeds ceiling %d", estimate, g.memCeiling)}
	}

	if n := atomic.AddInt64(&g.activeJobs, 1); n > g.maxJobs {
		atomic.AddInt64(&g.activeJobs, -1)
		return &ResourceLimitError{Resource: "jobs",
			Detail: fmt.Sprintf("concurrent job limit %d reached", g.maxJobs)}
	}

	for {
		cur := atomic.LoadInt64(&g.activeBytes)
		if cur+estimate > g.memCeiling {
			atomic.AddInt64(&g.activeJobs, -1)
			return &ResourceLimitError{Resource: "memory",
				Detail: fmt.Sprintf("active footprint %d + %d bytes exceeds ceiling %d", cur, estimate, g.memCeiling)}
		}
		if atomic.CompareAndSwapInt64(&g.activeBytes, cur, cur+estimate) {
			return nil
		}
	}
}

// Release returns a job's reservation.
func (g *Governor) Release(estimate int64) {
	atomic.AddInt64(&g.activeJobs, -1)
	atomic.AddInt64(&g.activeBytes, -estimate)
}

// ActiveJobs reports the number of admitted jobs.
func (g *Governor) ActiveJobs() int64 {
	return atomic.LoadInt64(&g.activeJobs)
}

// ActiveBytes reports the reserved footprint.
func (g *Governor) ActiveBytes() int64 {
	return atomic.LoadInt64(&g.activeBytes)
}
