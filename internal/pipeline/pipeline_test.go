package pipeline

import (
	"bufio"
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terminal-bench/casgen/internal/cache"
	"github.com/terminal-bench/casgen/internal/composer"
	"github.com/terminal-bench/casgen/internal/exercise"
	"github.com/terminal-bench/casgen/internal/refdata"
)

func pipelineConfig(total int) *exercise.Config {
	return &exercise.Config{
		TotalPatients: total,
		Fronts: []exercise.Front{
			{Name: "north", CasualtyWeight: 1, Nationalities: map[string]float64{"USA": 60, "GBR": 40},
				InjuryMix: map[refdata.InjuryType]float64{
					refdata.InjuryBattle:    60,
					refdata.InjuryNonBattle: 25,
					refdata.InjuryDisease:   15,
				}},
		},
		WarfareTypes:  []string{"artillery"},
		Intensity:     "high",
		Tempo:         "sustained",
		StartDate:     time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		DurationDays:  2,
		OutputFormats: []string{"jsonl"},
		Seed:          42,
	}
}

func newTestPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	if opts.OutputDir == "" {
		opts.OutputDir = t.TempDir()
	}
	return New(refdata.Load(), cache.New("", time.Minute, 64), nil, nil, opts)
}

func waitTerminal(t *testing.T, p *Pipeline, id uuid.UUID, timeout time.Duration) View {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		view, err := p.Get(id)
		require.NoError(t, err)
		switch view.Status {
		case StatusCompleted, StatusFailed, StatusCancelled:
			return view
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return View{}
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			n++
		}
	}
	require.NoError(t, scanner.Err())
	return n
}

func TestJobTransitions(t *testing.T) {
	t.Run("legal path pending to completed", func(t *testing.T) {
		job := newJob(pipelineConfig(10), 100)
		require.NoError(t, job.transition(StatusRunning))
		require.NoError(t, job.transition(StatusCompleted))
	})

	t.Run("terminal states are final", func(t *testing.T) {
		job := newJob(pipelineConfig(10), 100)
		require.NoError(t, job.transition(StatusRunning))
		require.NoError(t, job.transition(StatusCompleted))
		assert.Error(t, job.transition(StatusRunning), "completed -> running must fail loudly")
		assert.Error(t, job.transition(StatusFailed))
	})

	t.Run("pending cannot jump to terminal", func(t *testing.T) {
		job := newJob(pipelineConfig(10), 100)
		assert.Error(t, job.transition(StatusCompleted))
		assert.Error(t, job.transition(StatusCancelled))
	})
}

func TestJobProgressMonotone(t *testing.T) {
	job := newJob(pipelineConfig(10), 100)
	job.setProgress(PhaseGeneration, 0.5)
	job.setProgress(PhaseGeneration, 0.3) // late checkpoint must not move progress backwards
	assert.Equal(t, 0.5, job.Snapshot().Progress)
}

func TestGovernor(t *testing.T) {
	t.Run("admits within limits and releases", func(t *testing.T) {
		g := NewGovernor(2, 1000)
		require.NoError(t, g.Admit(400))
		require.NoError(t, g.Admit(400))
		assert.Equal(t, int64(2), g.ActiveJobs())
		assert.Equal(t, int64(800), g.ActiveBytes())

		g.Release(400)
		g.Release(400)
		assert.Equal(t, int64(0), g.ActiveJobs())
		assert.Equal(t, int64(0), g.ActiveBytes())
	})

	t.Run("rejects oversized estimates", func(t *testing.T) {
		g := NewGovernor(2, 1000)
		err := g.Admit(2000)
		var resErr *ResourceLimitError
		require.ErrorAs(t, err, &resErr)
		assert.Equal(t, "memory", resErr.Resource)
	})

	t.Run("rejects when concurrent job cap is hit", func(t *testing.T) {
		g := NewGovernor(1, 1000)
		require.NoError(t, g.Admit(100))
		err := g.Admit(100)
		var resErr *ResourceLimitError
		require.ErrorAs(t, err, &resErr)
		assert.Equal(t, "jobs", resErr.Resource)
	})

	t.Run("rejects when active bytes would exceed the ceiling", func(t *testing.T) {
		g := NewGovernor(4, 1000)
		require.NoError(t, g.Admit(700))
		err := g.Admit(700)
		require.Error(t, err)
		assert.Equal(t, int64(1), g.ActiveJobs(), "failed admission must not leak the job slot")
	})
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindConfiguration, classify(&exercise.ConfigurationError{Field: "x", Reason: "y"}))
	assert.Equal(t, KindGeneration, classify(&composer.GenerationError{EventIndex: 3, Reason: "z"}))
	assert.Equal(t, KindResourceLimit, classify(&ResourceLimitError{Resource: "memory"}))
	assert.Equal(t, KindTimeout, classify(context.DeadlineExceeded))
	assert.Equal(t, KindInternal, classify(assert.AnError))
}

func TestSubmitRejectsInvalidConfiguration(t *testing.T) {
	p := newTestPipeline(t, Options{})
	cfg := pipelineConfig(100)
	cfg.WarfareTypes = []string{"trench_raid"}

	_, err := p.Submit(context.Background(), cfg)
	var cfgErr *exercise.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Empty(t, p.List(), "rejected submissions must not create job state")
}

func TestSubmitRejectsOversizedJobs(t *testing.T) {
	p := newTestPipeline(t, Options{MemoryCeiling: 1 << 20})
	_, err := p.Submit(context.Background(), pipelineConfig(1000000))
	var resErr *ResourceLimitError
	require.ErrorAs(t, err, &resErr)
}

func TestPipelineCompletesJob(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var fractions []float64
	p := newTestPipeline(t, Options{
		OutputDir: dir,
		OnProgress: func(_ uuid.UUID, _ Phase, fraction float64, _ string) {
			mu.Lock()
			fractions = append(fractions, fraction)
			mu.Unlock()
		},
	})

	cfg := pipelineConfig(500)
	cfg.OutputFormats = []string{"jsonl", "csv"}
	view, err := p.Submit(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, view.Status)

	final := waitTerminal(t, p, view.ID, 30*time.Second)
	require.Equal(t, StatusCompleted, final.Status, "job error: %s", final.Error)
	assert.Equal(t, 500, final.Records)
	assert.Equal(t, 1.0, final.Progress)
	assert.NotEmpty(t, final.ResultPath)

	assert.Equal(t, 500, countLines(t, dir+"/"+view.ID.String()+".jsonl"))
	assert.Equal(t, 501, countLines(t, dir+"/"+view.ID.String()+".csv"), "csv carries a header row")

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, fractions)
	for i := 1; i < len(fractions); i++ {
		assert.GreaterOrEqual(t, fractions[i], fractions[i-1], "progress fractions must be monotone")
	}
	assert.Equal(t, 1.0, fractions[len(fractions)-1])
}

func TestPipelineCancellation(t *testing.T) {
	dir := t.TempDir()
	p := newTestPipeline(t, Options{OutputDir: dir, StreamBuffer: 4})

	cfg := pipelineConfig(150000)
	view, err := p.Submit(context.Background(), cfg)
	require.NoError(t, err)

	// Wait until a chunk of records is out, then cancel mid-run.
	deadline := time.Now().Add(20 * time.Second)
	for {
		require.True(t, time.Now().Before(deadline), "job never reported generation progress")
		v, err := p.Get(view.ID)
		require.NoError(t, err)
		if v.Records > 0 {
			break
		}
		if v.Status == StatusCompleted {
			t.Skip("job finished before cancellation could be observed")
		}
		time.Sleep(time.Millisecond)
	}
	require.NoError(t, p.Cancel(view.ID))

	final := waitTerminal(t, p, view.ID, 20*time.Second)
	require.Equal(t, StatusCancelled, final.Status)
	assert.Less(t, final.Records, cfg.TotalPatients)

	// Exactly the records emitted before the flag was observed, none after.
	lines := countLines(t, dir+"/"+view.ID.String()+".jsonl")
	assert.Equal(t, final.Records, lines)

	assert.ErrorIs(t, p.Cancel(view.ID), ErrJobTerminal)
}

func TestPipelineTimeout(t *testing.T) {
	p := newTestPipeline(t, Options{JobTimeout: 30 * time.Millisecond})

	view, err := p.Submit(context.Background(), pipelineConfig(200000))
	require.NoError(t, err)

	final := waitTerminal(t, p, view.ID, 20*time.Second)
	require.Equal(t, StatusFailed, final.Status)
	assert.Equal(t, KindTimeout, final.ErrorKind, "timeout must surface as a distinct error kind")
}

func TestPipelineReleasesResources(t *testing.T) {
	p := newTestPipeline(t, Options{MaxConcurrentJobs: 1})

	view, err := p.Submit(context.Background(), pipelineConfig(200))
	require.NoError(t, err)
	waitTerminal(t, p, view.ID, 30*time.Second)

	// Slot must be free again once the job is terminal.
	deadline := time.Now().Add(5 * time.Second)
	for p.governor.ActiveJobs() != 0 {
		require.True(t, time.Now().Before(deadline), "governor slot was not released")
		time.Sleep(time.Millisecond)
	}

	view2, err := p.Submit(context.Background(), pipelineConfig(200))
	require.NoError(t, err)
	final := waitTerminal(t, p, view2.ID, 30*time.Second)
	assert.Equal(t, StatusCompleted, final.Status)
}

func TestGetUnknownJob(t *testing.T) {
	p := newTestPipeline(t, Options{})
	_, err := p.Get(uuid.New())
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, p.Cancel(uuid.New()), ErrJobNotFound)
}
