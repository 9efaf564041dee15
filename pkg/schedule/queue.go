package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Scheduler defers a task to a later macrotask.
type Scheduler interface {
	Schedule(task func())
}

type SchedulerFunc func(task func())

func (f SchedulerFunc) Schedule(task func()) { f(task) }

const DefaultMaxTasks = 1_000_000

var ErrRunaway = errors.New("schedule: queue did not drain")

// Queue is a FIFO of macrotasks. Tasks queued while a tick runs belong to
// the next tick. Schedule may be called from any goroutine, but only one
// goroutine may drain the queue at a time.
type Queue struct {
	mu       sync.Mutex
	tasks    []func()
	wake     chan struct{}
	maxTasks int
}

func NewQueue(maxTasks int) *Queue {
	if maxTasks <= 0 {
		maxTasks = DefaultMaxTasks
	}
	return &Queue{
		wake:     make(chan struct{}, 1),
		maxTasks: maxTasks,
	}
}

func (q *Queue) Schedule(task func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Tick runs the tasks that were queued when it was called and returns how
// many ran.
func (q *Queue) Tick() int {
	q.mu.Lock()
	batch := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	for _, task := range batch {
		task()
	}
	return len(batch)
}

// RunAll ticks until the queue is empty. A queue that keeps refilling itself
// past the task limit is abandoned with ErrRunaway.
func (q *Queue) RunAll() (int, error) {
	total := 0
	for q.Len() > 0 {
		total += q.Tick()
		if total > q.maxTasks {
			return total, fmt.Errorf("%w: more than %d tasks", ErrRunaway, q.maxTasks)
		}
	}
	return total, nil
}

// Run executes tasks as they arrive until ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	for {
		if q.Tick() > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.wake:
		}
	}
}
