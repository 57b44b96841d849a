package storage

import (
	"context"
	"errors"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// StoreJob is one pending backend write. HTML selects StoreHTML over
// StoreObject. Done receives exactly one value.
type StoreJob struct {
	Object Object
	HTML   bool
	Ctx    context.Context
	Done   chan error
}

// StoreQueue fans independent store operations out across a bounded worker
// pool. Objects from one request have no ordering requirements between each
// other, so the pool exists purely to cut wall-clock latency on multi-file
// uploads.
type StoreQueue struct {
	backend Backend
	jobs    chan *StoreJob
}

// NewStoreQueue initializes a new store queue that limits the
// max amount of jobs that can be queued at once
func NewStoreQueue(backend Backend) *StoreQueue {
	return &StoreQueue{
		backend: backend,
		jobs:    make(chan *StoreJob, viper.GetInt("storage.queue_size")),
	}
}

func (q *StoreQueue) StartWorkerPool() {
	workers := viper.GetInt("storage.workers")
	for i := 0; i < workers; i++ {
		go q.worker()
	}
}

func (q *StoreQueue) worker() {
	for job := range q.jobs {
		var err error
		if job.HTML {
			err = q.backend.StoreHTML(job.Ctx, job.Object)
		} else {
			err = q.backend.StoreObject(job.Ctx, job.Object)
		}
		job.Done <- err
	}
}

func (q *StoreQueue) Enqueue(job *StoreJob) error {
	select {
	case q.jobs <- job:
		return nil
	default:
		return errors.New("store queue full")
	}
}

// StoreAll enqueues every object of a request and waits for the whole batch.
// The batch is all-or-nothing from the caller's point of view: the first
// error is returned and the request fails, but in-flight sibling stores are
// not cancelled and already stored objects are not cleaned up (stored
// orphans are inert).
func (q *StoreQueue) StoreAll(ctx context.Context, objects []*StoreJob) error {
	queued := make([]*StoreJob, 0, len(objects))

	for _, job := range objects {
		job.Ctx = ctx
		job.Done = make(chan error, 1)
		if err := q.Enqueue(job); err != nil {
			zap.L().Warn("Store queue is full", zap.Int("batch", len(objects)))
			// Degrade to storing inline rather than failing the request.
			job.Done <- q.storeDirect(job)
		}
		queued = append(queued, job)
	}

	var firstErr error
	for _, job := range queued {
		if err := <-job.Done; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (q *StoreQueue) storeDirect(job *StoreJob) error {
	if job.HTML {
		return q.backend.StoreHTML(job.Ctx, job.Object)
	}
	return q.backend.StoreObject(job.Ctx, job.Object)
}
