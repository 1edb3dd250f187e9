package scheduler

import (
	"errors"
	"sync"

	"github.com/mamamialezatoz/go-webanalyze/internal/models"
)

// ErrQueueClosed is returned when a job is submitted after the queue was closed
var ErrQueueClosed = errors.New("job queue is closed")

// Queue is an unbounded FIFO of jobs with a join barrier: Join returns
// once every job that was put has been marked done.
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	allDone  *sync.Cond

	items      []models.Job
	unfinished int
	closed     bool
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	q := &Queue{}
	q.notEmpty = sync.NewCond(&q.mu)
	q.allDone = sync.NewCond(&q.mu)
	return q
}

// Put appends a job
func (q *Queue) Put(job models.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.items = append(q.items, job)
	q.unfinished++
	q.notEmpty.Signal()
	return nil
}

// Get blocks until a job is available. It returns false once the queue
// is closed and empty.
func (q *Queue) Get() (models.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if len(q.items) == 0 {
		return models.Job{}, false
	}

	job := q.items[0]
	q.items[0] = models.Job{}
	q.items = q.items[1:]
	return job, true
}

// Done marks a job returned by Get as processed
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.unfinished <= 0 {
		panic("scheduler: Done called more times than Put")
	}
	q.unfinished--
	if q.unfinished == 0 {
		q.allDone.Broadcast()
	}
}

// Join blocks until every job put so far is done
func (q *Queue) Join() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.unfinished > 0 {
		q.allDone.Wait()
	}
}

// Close wakes every blocked Get. Jobs still queued are handed out first.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.notEmpty.Broadcast()
}

// Len returns the number of jobs waiting
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
