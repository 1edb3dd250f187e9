// Package scheduler runs analysis jobs on a fixed pool of workers.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mamamialezatoz/go-webanalyze/internal/detection"
	"github.com/mamamialezatoz/go-webanalyze/internal/fetch"
	"github.com/mamamialezatoz/go-webanalyze/internal/links"
	"github.com/mamamialezatoz/go-webanalyze/internal/models"
	"github.com/mamamialezatoz/go-webanalyze/internal/parser"
)

// DefaultWorkers is the size of the pool when none is configured
const DefaultWorkers = 4

// Stats counts what the scheduler has done so far
type Stats struct {
	Jobs     int64 `json:"jobs"`
	Crawled  int64 `json:"crawled"`
	Results  int64 `json:"results"`
	Failures int64 `json:"failures"`
}

// Scheduler pulls jobs from a queue and emits one result per fetched page.
// Results must be consumed while jobs are running.
type Scheduler struct {
	workers  int
	analyzer *detection.Analyzer
	fetcher  fetch.Fetcher
	log      *logrus.Entry

	queue   *Queue
	results chan models.Result
	group   errgroup.Group

	startOnce sync.Once
	waitOnce  sync.Once

	jobs     atomic.Int64
	crawled  atomic.Int64
	emitted  atomic.Int64
	failures atomic.Int64
}

// New creates a scheduler with the given number of workers
func New(workers int, analyzer *detection.Analyzer, fetcher fetch.Fetcher, log *logrus.Entry) *Scheduler {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Scheduler{
		workers:  workers,
		analyzer: analyzer,
		fetcher:  fetcher,
		log:      log.WithField("component", "scheduler"),
		queue:    NewQueue(),
		results:  make(chan models.Result, workers),
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.log.WithField("workers", s.workers).Debug("starting workers")
		for i := 0; i < s.workers; i++ {
			id := i
			s.group.Go(func() error {
				return s.worker(ctx, id)
			})
		}
	})
}

// Submit queues a job
func (s *Scheduler) Submit(job models.Job) error {
	return s.queue.Put(job)
}

// Results returns the channel results are delivered on. It is closed by Wait.
func (s *Scheduler) Results() <-chan models.Result {
	return s.results
}

// Wait blocks until every submitted job is processed, then stops the
// workers and closes the results channel.
func (s *Scheduler) Wait() error {
	var err error
	s.waitOnce.Do(func() {
		s.queue.Join()
		s.queue.Close()
		err = s.group.Wait()
		close(s.results)
		s.log.WithFields(logrus.Fields{
			"jobs":     s.jobs.Load(),
			"crawled":  s.crawled.Load(),
			"failures": s.failures.Load(),
		}).Debug("scheduler drained")
	})
	return err
}

// Run submits jobs, hands every result to emit and returns once all are done
func (s *Scheduler) Run(ctx context.Context, jobs []models.Job, emit func(models.Result)) (Stats, error) {
	s.Start(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for result := range s.results {
			emit(result)
		}
	}()

	for _, job := range jobs {
		if err := s.Submit(job); err != nil {
			_ = s.Wait()
			<-done
			return s.Stats(), err
		}
	}

	err := s.Wait()
	<-done
	return s.Stats(), err
}

// Stats returns a snapshot of the counters
func (s *Scheduler) Stats() Stats {
	return Stats{
		Jobs:     s.jobs.Load(),
		Crawled:  s.crawled.Load(),
		Results:  s.emitted.Load(),
		Failures: s.failures.Load(),
	}
}

func (s *Scheduler) worker(ctx context.Context, id int) error {
	log := s.log.WithField("worker", id)
	for {
		job, ok := s.queue.Get()
		if !ok {
			return nil
		}
		s.jobs.Add(1)
		s.process(ctx, job, log)
		s.queue.Done()
	}
}

// process analyzes a job and, when crawling, every page it links to.
// Crawled results are emitted before the result of the job itself.
func (s *Scheduler) process(ctx context.Context, job models.Job, log *logrus.Entry) {
	page, result := s.analyze(ctx, job.URL, true, log)

	if job.Crawl > 0 && page != nil {
		urls, err := links.Extract(page, links.Options{SearchSubdomains: job.SearchSubdomains})
		if err != nil {
			log.WithError(err).WithField("url", page.URL).Warn("could not extract links")
		}
		for _, sub := range crawlJobs(job, urls) {
			s.crawled.Add(1)
			_, subResult := s.analyze(ctx, sub.URL, sub.FollowRedirects, log)
			subResult.Crawled = true
			s.emit(subResult)
		}
	}

	s.emit(result)
}

func (s *Scheduler) analyze(ctx context.Context, url string, followRedirects bool, log *logrus.Entry) (page *models.FetchedPage, result models.Result) {
	start := time.Now()
	url = links.EnsureScheme(url)
	result.Host = url

	defer func() {
		if r := recover(); r != nil {
			s.failures.Add(1)
			log.WithField("url", url).Errorf("analysis panicked: %v", r)
			page = nil
			result = models.Result{Host: url, Duration: time.Since(start), Error: fmt.Errorf("analysis of %s panicked: %v", url, r)}
		}
	}()

	page, err := s.fetcher.Fetch(ctx, url, followRedirects)
	if err != nil {
		var malformed *fetch.MalformedPageError
		if !errors.As(err, &malformed) || page == nil {
			s.failures.Add(1)
			log.WithError(err).WithField("url", url).Warn("fetch failed")
			result.Duration = time.Since(start)
			result.Error = err
			return nil, result
		}
		log.WithError(err).WithField("url", url).Debug("analyzing page without its body")
		page.Body = ""
	}

	result.StatusCode = page.StatusCode
	result.Title = parser.ExtractTitle(page.Body)
	result.Matches = s.analyzer.Analyze(page)
	if result.Matches == nil {
		result.Matches = []models.EvidenceMatch{}
	}
	result.Duration = time.Since(start)
	return page, result
}

func (s *Scheduler) emit(result models.Result) {
	s.emitted.Add(1)
	s.results <- result
}
