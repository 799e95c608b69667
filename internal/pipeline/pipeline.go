package pipeline

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/terminal-bench/casgen/internal/cache"
	"github.com/terminal-bench/casgen/internal/emitter"
	"github.com/terminal-bench/casgen/internal/exercise"
	"github.com/terminal-bench/casgen/internal/refdata"
	"github.com/terminal-bench/casgen/internal/store"
	"github.com/terminal-bench/casgen/pkg/messaging"
)

// bytesPerRecord is the admission-time footprint estimate for one patient
// record in one output format.
const bytesPerRecord = 1536

// ProgressFunc receives progress checkpoints for one job.
type ProgressFunc func(phase Phase, fraction float64, message string)

// Options configures a pipeline.
type Options struct {
	MaxConcurrentJobs int
	MemoryCeiling     int64
	JobTimeout        time.Duration
	OutputDir         string
	StreamBuffer      int

	// OnProgress, when set, observes every progress checkpoint of every
	// job in addition to the NATS publication.
	OnProgress func(jobID uuid.UUID, phase Phase, fraction float64, message string)
}

// Pipeline runs generation jobs asynchronously with progress phases,
// cooperative cancellation, resource ceilings and failure isolation. It is
// the error boundary: nothing below it retries.
type Pipeline struct {
	ref      *refdata.Store
	cache    *cache.Cache
	msg      *messaging.Client
	jobStore store.JobStore
	governor *Governor
	opts     Options

	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job
}

// New creates a pipeline. msg and jobStore may be nil; event publication
// and persistence are then skipped.
func New(ref *refdata.Store, c *cache.Cache, msg *messaging.Client, jobStore store.JobStore, opts Options) *Pipeline {
	if opts.MaxConcurrentJobs <= 0 {
		opts.MaxConcurrentJobs = 4
	}
	if opts.MemoryCeiling <= 0 {
		opts.MemoryCeiling = 512 << 20
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 10 * time.Minute
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "output"
	}
	return &Pipeline{
		ref:      ref,
		cache:    c,
		msg:      msg,
		jobStore: jobStore,
		governor: NewGovernor(opts.MaxConcurrentJobs, opts.MemoryCeiling),
		opts:     opts,
		jobs:     make(map[uuid.UUID]*Job),
	}
}

// Submit validates and admits a new generation job. Configuration and
// resource-limit violations are rejected here, before any job state exists;
// an accepted job is dispatched asynchronously.
func (p *Pipeline) Submit(ctx context.Context, cfg *exercise.Config) (View, error) {
	if err := cfg.Validate(p.ref); err != nil {
		return View{}, err
	}

	estimate := estimateFootprint(cfg)
	if err := p.governor.Admit(estimate); err != nil {
		return View{}, err
	}

	job := newJob(cfg, estimate)
	p.mu.Lock()
	p.jobs[job.ID] = job
	p.mu.Unlock()

	p.persist(job)
	p.publishJobEvent(messaging.SubjectJobSubmitted, job)

	go p.run(job, estimate)
	return job.Snapshot(), nil
}

// Get returns a snapshot of one job.
func (p *Pipeline) Get(id uuid.UUID) (View, error) {
	p.mu.RLock()
	job, ok := p.jobs[id]
	p.mu.RUnlock()
	if !ok {
		return View{}, ErrJobNotFound
	}
	return job.Snapshot(), nil
}

// List returns snapshots of all known jobs, newest first.
func (p *Pipeline) List() []View {
	p.mu.RLock()
	views := make([]View, 0, len(p.jobs))
	for _, job := range p.jobs {
		views = append(views, job.Snapshot())
	}
	p.mu.RUnlock()
	sort.Slice(views, func(i, j int) bool { return views[i].CreatedAt.After(views[j].CreatedAt) })
	return views
}

// Cancel requests cooperative cancellation. The run loop observes the flag
// at the next record boundary; the current record is finished, never split.
func (p *Pipeline) Cancel(id uuid.UUID) error {
	p.mu.RLock()
	job, ok := p.jobs[id]
	p.mu.RUnlock()
	if !ok {
		return ErrJobNotFound
	}
	switch job.Status() {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return ErrJobTerminal
	}
	job.RequestCancel()
	return nil
}

// run executes one job end to end. All engine errors abort this job only;
// shared reference data and the cache are never touched on failure paths.
func (p *Pipeline) run(job *Job, estimate int64) {
	defer p.governor.Release(estimate)

	ctx, cancel := context.WithTimeout(context.Background(), p.opts.JobTimeout)
	defer cancel()

	if err := job.transition(StatusRunning); err != nil {
		log.Printf("pipeline: job %s: %v", job.ID, err)
		return
	}
	p.publishJobEvent(messaging.SubjectJobStarted, job)

	p.progress(job, PhaseValidation, 0.02, "validating configuration")
	if err := job.Config.Validate(p.ref); err != nil {
		p.fail(job, err)
		return
	}

	p.progress(job, PhaseInitialization, 0.05, "opening output sinks")
	sinks, paths, err := newSinks(job.Config.OutputFormats, p.opts.OutputDir, job.ID.String())
	if err != nil {
		p.fail(job, err)
		return
	}

	stream := emitter.Start(ctx, job.Config, p.ref, p.cache, p.opts.StreamBuffer)

	total := job.Config.TotalPatients
	emitted := 0
	reportEvery := total / 50
	if reportEvery < 1 {
		reportEvery = 1
	}

	for {
		// Suspension point: cancellation is polled between records so an
		// observed cancel never leaves a partial record behind.
		if job.CancelRequested() {
			cancel()
			closeAll(sinks)
			job.setRecords(emitted)
			if err := job.transition(StatusCancelled); err != nil {
				log.Printf("pipeline: job %s: %v", job.ID, err)
			}
			p.persist(job)
			p.publishJobEvent(messaging.SubjectJobCancelled, job)
			return
		}

		rec, ok := stream.Next(ctx)
		if !ok {
			break
		}
		for _, sink := range sinks {
			if err := sink.Write(rec); err != nil {
				closeAll(sinks)
				p.fail(job, err)
				return
			}
		}
		emitted++
		if emitted%reportEvery == 0 {
			job.setRecords(emitted)
			frac := 0.05 + 0.88*float64(emitted)/float64(total)
			p.progress(job, PhaseGeneration, frac, "generating patient records")
		}
	}

	if err := stream.Err(); err != nil {
		closeAll(sinks)
		if ctx.Err() == context.DeadlineExceeded {
			err = context.DeadlineExceeded
		}
		p.fail(job, err)
		return
	}

	job.setRecords(emitted)
	p.progress(job, PhaseFinalization, 0.95, "flushing output")
	if err := closeAllChecked(sinks); err != nil {
		p.fail(job, err)
		return
	}

	p.progress(job, PhasePackaging, 0.98, "publishing result")
	if len(paths) > 0 {
		job.setResult(paths[0])
	}

	p.progress(job, PhasePackaging, 1.0, "completed")
	if err := job.transition(StatusCompleted); err != nil {
		log.Printf("pipeline: job %s: %v", job.ID, err)
		return
	}
	p.persist(job)
	p.publishJobEvent(messaging.SubjectJobCompleted, job)
}

func (p *Pipeline) fail(job *Job, err error) {
	kind := classify(err)
	job.setError(kind, err.Error())
	if terr := job.transition(StatusFailed); terr != nil {
		log.Printf("pipeline: job %s: %v", job.ID, terr)
		return
	}
	log.Printf("pipeline: job %s failed (%s, config %s): %v", job.ID, kind, job.ConfigHash, err)
	p.persist(job)
	p.publishJobEvent(messaging.SubjectJobFailed, job)
}

func (p *Pipeline) progress(job *Job, phase Phase, fraction float64, message string) {
	job.setProgress(phase, fraction)
	if p.opts.OnProgress != nil {
		p.opts.OnProgress(job.ID, phase, fraction, message)
	}
	if p.msg != nil {
		ev := messaging.ProgressEvent{
			JobID:     job.ID,
			Phase:     string(phase),
			Fraction:  fraction,
			Message:   message,
			Timestamp: time.Now().UTC(),
		}
		if err := p.msg.Publish(context.Background(), messaging.SubjectJobProgress, ev); err != nil {
			log.Printf("pipeline: progress publish failed: %v", err)
		}
	}
	p.persist(job)
}

func (p *Pipeline) publishJobEvent(subject string, job *Job) {
	if p.msg == nil {
		return
	}
	v := job.Snapshot()
	ev := messaging.JobEvent{
		JobID:      v.ID,
		Status:     string(v.Status),
		ConfigHash: v.ConfigHash,
		ErrorKind:  v.ErrorKind,
		Error:      v.Error,
		Records:    v.Records,
		Timestamp:  time.Now().UTC(),
	}
	if err := p.msg.Publish(context.Background(), subject, ev); err != nil {
		log.Printf("pipeline: event publish failed: %v", err)
	}
}

// persist writes the job's current state through to the store, best effort.
func (p *Pipeline) persist(job *Job) {
	if p.jobStore == nil {
		return
	}
	v := job.Snapshot()
	rec := store.JobRecord{
		ID:         v.ID,
		Status:     string(v.Status),
		Phase:      string(v.Phase),
		Progress:   v.Progress,
		ConfigHash: v.ConfigHash,
		Records:    v.Records,
		ResultPath: v.ResultPath,
		ErrorKind:  v.ErrorKind,
		Error:      v.Error,
		CreatedAt:  v.CreatedAt,
		UpdatedAt:  time.Now().UTC(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var err error
	if v.Status == StatusPending {
		err = p.jobStore.Save(ctx, rec)
	} else {
		err = p.jobStore.Update(ctx, rec)
	}
	if err != nil {
		log.Printf("pipeline: persist job %s: %v", v.ID, err)
	}
}

// estimateFootprint predicts the job's working set for admission control.
// It scales with the record count and the number of output formats.
func estimateFootprint(cfg *exercise.Config) int64 {
	formats := len(cfg.OutputFormats)
	if formats == 0 {
		formats = 1
	}
	return int64(cfg.TotalPatients) * bytesPerRecord * int64(formats)
}

func closeAllChecked(sinks []Sink) error {
	var first error
	for _, s := range sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
