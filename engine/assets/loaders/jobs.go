package loaders

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/skirmish/engine/core"
)

// Job is one unit of loading work.
type Job struct {
	Name string
	Run  func() error
}

// JobSystem runs submitted jobs on a fixed number of workers. Wait closes
// the queue, so a JobSystem serves a single batch.
type JobSystem struct {
	numWorkers int
	jobQueue   chan Job
	wg         sync.WaitGroup

	mu  sync.Mutex
	err error
}

var ErrNoWorkers = errors.New("attempting to create worker pool with less than 1 worker")
var ErrNegativeQueueSize = errors.New("attempting to create worker pool with a negative queue size")

func NewJobSystem(numWorkers int, queueSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if queueSize < 0 {
		return nil, ErrNegativeQueueSize
	}
	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan Job, queueSize),
	}
	js.start()
	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				if err := job.Run(); err != nil {
					core.LogError("job %s failed: %s", job.Name, err)
					js.mu.Lock()
					js.err = errors.CombineErrors(js.err, errors.Wrapf(err, "job %s", job.Name))
					js.mu.Unlock()
				}
			}
		}()
	}
}

// Submit queues job, blocking while the queue is full.
func (js *JobSystem) Submit(job Job) {
	js.jobQueue <- job
}

// Wait stops accepting jobs, waits for the queued ones and returns every
// job error combined.
func (js *JobSystem) Wait() error {
	close(js.jobQueue)
	js.wg.Wait()
	js.mu.Lock()
	defer js.mu.Unlock()
	return js.err
}
