// Package job tracks asynchronous ingestion runs in memory. Jobs are
// process-local and bounded; restarting the server forgets them, which
// matches their purpose as short-lived progress handles.
package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/rfp-cli/internal/ingest"
	"github.com/sells-group/rfp-cli/internal/model"
)

const defaultMaxHistory = 100

// Runner is the ingestion entry point the tracker drives.
type Runner interface {
	Run(ctx context.Context, progress ingest.Progress) (*ingest.Result, error)
}

// Tracker starts ingestion runs and answers status queries about them.
type Tracker struct {
	runner Runner
	max    int

	mu    sync.RWMutex
	jobs  map[string]*model.IngestJob
	order []string
}

// NewTracker creates a Tracker keeping at most maxHistory jobs.
func NewTracker(runner Runner, maxHistory int) *Tracker {
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}
	return &Tracker{
		runner: runner,
		max:    maxHistory,
		jobs:   make(map[string]*model.IngestJob),
	}
}

// Start launches an ingestion run in the background and returns its job
// ID immediately. The run is detached from the caller's request context.
func (t *Tracker) Start(ctx context.Context) string {
	id := fmt.Sprintf("job_%d", time.Now().UnixNano())
	now := time.Now().UTC()

	t.mu.Lock()
	t.evictLocked()
	t.jobs[id] = &model.IngestJob{
		ID:        id,
		Status:    model.JobStatusStarting,
		StartedAt: now,
	}
	t.order = append(t.order, id)
	t.mu.Unlock()

	go t.run(context.WithoutCancel(ctx), id)
	return id
}

func (t *Tracker) run(ctx context.Context, id string) {
	progress := func(status model.JobStatus, r ingest.Result) {
		t.update(id, status, r)
	}

	res, err := t.runner.Run(ctx, progress)
	if err != nil {
		zap.L().Error("job: ingestion run failed",
			zap.String("job_id", id),
			zap.Error(err),
		)
		var r ingest.Result
		if res != nil {
			r = *res
		}
		r.Message = err.Error()
		t.update(id, model.JobStatusFailed, r)
		return
	}
	t.update(id, model.JobStatusCompleted, *res)
}

func (t *Tracker) update(id string, status model.JobStatus, r ingest.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.jobs[id]
	if !ok {
		return
	}
	// A terminal record never regresses to a progress update.
	if j.Status.Terminal() && !status.Terminal() {
		return
	}
	j.Status = status
	j.TotalMessages = r.TotalMessages
	j.Processed = r.Processed
	j.Created = r.Created
	j.Skipped = r.Skipped
	j.Errors = append([]model.IngestError(nil), r.Errors...)
	j.Message = r.Message
}

// Get returns a snapshot of the job, or false when the tracker has no
// record of it.
func (t *Tracker) Get(id string) (*model.IngestJob, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	j, ok := t.jobs[id]
	if !ok {
		return nil, false
	}
	out := *j
	out.Errors = append([]model.IngestError(nil), j.Errors...)
	return &out, true
}

// RunSync executes one ingestion run on the caller's goroutine and
// context, without registering a job.
func (t *Tracker) RunSync(ctx context.Context) (*ingest.Result, error) {
	return t.runner.Run(ctx, nil)
}

// evictLocked drops the oldest terminal job when the history is full.
// Running jobs are never evicted; the map may briefly exceed the bound
// if every tracked job is still in flight.
func (t *Tracker) evictLocked() {
	if len(t.order) < t.max {
		return
	}
	for i, id := range t.order {
		j, ok := t.jobs[id]
		if ok && !j.Status.Terminal() {
			continue
		}
		delete(t.jobs, id)
		t.order = append(t.order[:i], t.order[i+1:]...)
		return
	}
}
