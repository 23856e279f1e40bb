package queue

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Job is one uploaded file waiting to be ingested.
type Job struct {
	DatasetID string
	Name      string
	Data      []byte
}

// Handler processes a single job.
type Handler func(ctx context.Context, job Job) error

// JobQueue is a bounded in-memory queue of ingestion jobs
type JobQueue struct {
	items    chan Job
	maxSize  int
	closed   bool
	started  bool
	mu       sync.RWMutex
	workers  conc.WaitGroup
	logger   *logrus.Logger
	handlers []Handler
}

// NewJobQueue creates a new job queue with the specified buffer size
func NewJobQueue(bufferSize int, logger *logrus.Logger) *JobQueue {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &JobQueue{
		items:   make(chan Job, bufferSize),
		maxSize: bufferSize,
		logger:  logger,
	}
}

// Push adds a job to the queue without blocking
func (q *JobQueue) Push(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- job:
		q.logger.WithFields(logrus.Fields{
			"dataset_id": job.DatasetID,
			"bytes":      len(job.Data),
		}).Debug("Pushed job to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler function that will be called for each job.
// Handlers must be registered before Start.
func (q *JobQueue) Subscribe(handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start launches workers that drain the queue until Close.
func (q *JobQueue) Start(ctx context.Context, workers int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	if workers < 1 {
		workers = 1
	}

	for i := 0; i < workers; i++ {
		q.workers.Go(func() {
			for job := range q.items {
				q.process(ctx, job)
			}
		})
	}
}

// process sends the job to all subscribed handlers
func (q *JobQueue) process(ctx context.Context, job Job) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, job); err != nil {
			q.logger.WithError(err).WithField("dataset_id", job.DatasetID).Error("Handler failed to process job")
		}
	}
}

// Close stops accepting jobs and waits for the workers to finish the ones
// already queued.
func (q *JobQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.items)
	q.mu.Unlock()

	q.workers.Wait()
	return nil
}

// Len returns the current number of jobs in the queue
func (q *JobQueue) Len() int {
	return len(q.items)
}

// Cap returns the maximum number of waiting jobs
func (q *JobQueue) Cap() int {
	return q.maxSize
}

// IsClosed returns whether the queue has been closed
func (q *JobQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
