// ABOUTME: Fetch pool runs batches of fetch requests on a bounded set of workers
// ABOUTME: A domain's requests run serially on one worker while different domains run in parallel

package workers

import (
	"context"
	"sync"
	"time"

	"content-fetch-api/core/domain"
	"content-fetch-api/core/interfaces"
	"content-fetch-api/pkg/utils/hostname"
)

// Fetcher produces one fully formed result per request
type Fetcher interface {
	Fetch(ctx context.Context, req domain.FetchRequest) domain.FetchResult
}

// Job is every queued request for a single domain
type Job struct {
	Context  context.Context
	Domain   string
	Requests []domain.FetchRequest
	Results  chan<- domain.FetchResult

	done func()
}

// PoolConfig holds configuration for the fetch pool
type PoolConfig struct {
	MaxWorkers    int
	QueueSize     int
	SubmitTimeout time.Duration
}

// MaxWorkersLimit is the largest accepted worker count
const MaxWorkersLimit = 32

// DefaultPoolConfig returns the default pool configuration
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxWorkers:    6,
		QueueSize:     100,
		SubmitTimeout: 5 * time.Second,
	}
}

// FetchPool manages the fetch workers
type FetchPool struct {
	fetcher  Fetcher
	logger   interfaces.Logger
	cfg      PoolConfig
	jobQueue chan *Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.RWMutex
	running  bool
}

// worker represents an individual worker goroutine
type worker struct {
	id       int
	jobQueue <-chan *Job
	fetcher  Fetcher
	ctx      context.Context
	wg       *sync.WaitGroup
}

// NewFetchPool creates a new fetch pool. logger may be nil.
func NewFetchPool(fetcher Fetcher, cfg PoolConfig, logger interfaces.Logger) *FetchPool {
	def := DefaultPoolConfig()
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = def.MaxWorkers
	}
	if cfg.MaxWorkers > MaxWorkersLimit {
		cfg.MaxWorkers = MaxWorkersLimit
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = def.SubmitTimeout
	}

	return &FetchPool{
		fetcher:  fetcher,
		logger:   logger,
		cfg:      cfg,
		jobQueue: make(chan *Job, cfg.QueueSize),
	}
}

// Workers returns the configured worker count
func (p *FetchPool) Workers() int {
	return p.cfg.MaxWorkers
}

// Start starts the worker pool
func (p *FetchPool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())
	for i := 0; i < p.cfg.MaxWorkers; i++ {
		w := &worker{
			id:       i,
			jobQueue: p.jobQueue,
			fetcher:  p.fetcher,
			ctx:      p.ctx,
			wg:       &p.wg,
		}
		p.wg.Add(1)
		go w.run()
	}

	p.running = true
	return nil
}

// Stop cancels in-flight fetches and waits for the workers to exit. Jobs
// still queued are answered with cancelled results.
func (p *FetchPool) Stop() error {
	p.mu.RLock()
	running := p.running
	cancel := p.cancel
	p.mu.RUnlock()
	if !running {
		return nil
	}

	// Cancel first so blocked submitters let go of the lock
	cancel()

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()

	for {
		select {
		case job := <-p.jobQueue:
			job.abandon(context.Canceled)
		default:
			return nil
		}
	}
}

// Submit queues a job, waiting up to the submit timeout for queue space
func (p *FetchPool) Submit(job *Job) error {
	timer := time.NewTimer(p.cfg.SubmitTimeout)
	defer timer.Stop()
	return p.enqueue(job, timer.C)
}

func (p *FetchPool) enqueue(job *Job, timeout <-chan time.Time) error {
	if job.Context == nil {
		job.Context = context.Background()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running {
		return ErrPoolNotRunning
	}

	select {
	case p.jobQueue <- job:
		return nil
	case <-p.ctx.Done():
		return ErrPoolNotRunning
	case <-job.Context.Done():
		return job.Context.Err()
	case <-timeout:
		return ErrQueueFull
	}
}

// Run fetches reqs and delivers exactly one result per request, in
// completion order. The channel is closed after the last result.
func (p *FetchPool) Run(ctx context.Context, reqs []domain.FetchRequest) <-chan domain.FetchResult {
	out := make(chan domain.FetchResult, len(reqs))
	groups, order := groupByDomain(reqs)

	var batch sync.WaitGroup
	batch.Add(len(order))

	go func() {
		for _, dom := range order {
			job := &Job{
				Context:  ctx,
				Domain:   dom,
				Requests: groups[dom],
				Results:  out,
				done:     batch.Done,
			}
			// Run waits for queue space instead of timing out
			if err := p.enqueue(job, nil); err != nil {
				if p.logger != nil {
					p.logger.Warn("Failed to queue domain batch", map[string]interface{}{
						"domain":   dom,
						"requests": len(job.Requests),
						"error":    err.Error(),
					})
				}
				job.abandon(err)
			}
		}
		batch.Wait()
		close(out)
	}()

	return out
}

// groupByDomain buckets requests by registrable domain, keeping first-seen order
func groupByDomain(reqs []domain.FetchRequest) (map[string][]domain.FetchRequest, []string) {
	groups := make(map[string][]domain.FetchRequest)
	var order []string
	for _, req := range reqs {
		key, err := hostname.FromURL(req.URL)
		if err != nil {
			// Unparseable URLs still get their own result from the fetcher
			key = req.URL
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], req)
	}
	return groups, order
}

// run is the main loop for each worker
func (w *worker) run() {
	defer w.wg.Done()

	for {
		select {
		case job := <-w.jobQueue:
			w.processJob(job)
		case <-w.ctx.Done():
			return
		}
	}
}

// processJob fetches a domain's requests one after another
func (w *worker) processJob(job *Job) {
	ctx, cancel := context.WithCancel(job.Context)
	defer cancel()
	stop := context.AfterFunc(w.ctx, cancel)
	defer stop()

	for i, req := range job.Requests {
		if err := ctx.Err(); err != nil {
			job.abandonFrom(i, err)
			return
		}
		job.Results <- w.fetcher.Fetch(ctx, req)
	}
	job.finish()
}

// abandon answers every request of the job with a cancelled result
func (j *Job) abandon(err error) {
	j.abandonFrom(0, err)
}

func (j *Job) abandonFrom(start int, err error) {
	for _, req := range j.Requests[start:] {
		j.Results <- CancelledResult(req, j.Domain, err)
	}
	j.finish()
}

func (j *Job) finish() {
	if j.done != nil {
		j.done()
	}
}

// CancelledResult is the result for a request that never ran
func CancelledResult(req domain.FetchRequest, dom string, err error) domain.FetchResult {
	res := domain.FetchResult{
		URL:      req.URL,
		Domain:   dom,
		Status:   domain.StatusError,
		Strategy: domain.StrategyNone,
		Reason:   "Cancelled",
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// Error definitions
var (
	ErrPoolNotRunning = &WorkerError{Message: "fetch pool is not running"}
	ErrQueueFull      = &WorkerError{Message: "job queue is full"}
)

// WorkerError represents a worker-specific error
type WorkerError struct {
	Message string
}

func (e *WorkerError) Error() string {
	return e.Message
}
