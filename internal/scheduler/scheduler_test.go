package scheduler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamamialezatoz/go-webanalyze/internal/detection"
	"github.com/mamamialezatoz/go-webanalyze/internal/fetch"
	"github.com/mamamialezatoz/go-webanalyze/internal/logger"
	"github.com/mamamialezatoz/go-webanalyze/internal/models"
	"github.com/mamamialezatoz/go-webanalyze/internal/parser"
)

const testDefinition = `{
  "categories": {"27": {"name": "Programming languages"}},
  "technologies": {
    "PHP": {"cats": [27], "headers": {"X-Powered-By": "PHP/([0-9.]+)\\;version:\\1"}}
  }
}`

// fakeFetcher serves pages from memory
type fakeFetcher struct {
	mu        sync.Mutex
	pages     map[string]*models.FetchedPage
	errs      map[string]error
	requested []string
	redirects map[string]bool
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, followRedirects bool) (*models.FetchedPage, error) {
	f.mu.Lock()
	f.requested = append(f.requested, url)
	if f.redirects == nil {
		f.redirects = make(map[string]bool)
	}
	f.redirects[url] = followRedirects
	f.mu.Unlock()

	if err, ok := f.errs[url]; ok {
		var malformed *fetch.MalformedPageError
		if errors.As(err, &malformed) {
			return &models.FetchedPage{URL: url, StatusCode: http.StatusOK}, err
		}
		return nil, err
	}
	if page, ok := f.pages[url]; ok {
		copied := *page
		return &copied, nil
	}
	return &models.FetchedPage{URL: url, StatusCode: http.StatusNotFound}, nil
}

func newTestAnalyzer(t *testing.T) *detection.Analyzer {
	t.Helper()
	def, err := parser.LoadDefinition(strings.NewReader(testDefinition))
	require.NoError(t, err)
	db, err := parser.CompileDefinition(def)
	require.NoError(t, err)
	return detection.NewAnalyzer(db, detection.Options{})
}

func linkPage(url string, links ...string) *models.FetchedPage {
	var body strings.Builder
	body.WriteString("<html><head><title>index</title></head><body>")
	for _, link := range links {
		fmt.Fprintf(&body, `<a href="%s">x</a>`, link)
	}
	body.WriteString("</body></html>")
	return &models.FetchedPage{
		URL:        url,
		StatusCode: http.StatusOK,
		Body:       body.String(),
		Headers:    http.Header{"X-Powered-By": {"PHP/8.2"}},
	}
}

func runJobs(t *testing.T, workers int, fetcher fetch.Fetcher, jobs []models.Job) ([]models.Result, Stats) {
	t.Helper()
	s := New(workers, newTestAnalyzer(t), fetcher, logger.Discard())

	var results []models.Result
	stats, err := s.Run(context.Background(), jobs, func(r models.Result) {
		results = append(results, r)
	})
	require.NoError(t, err)
	return results, stats
}

func TestSchedulerDrainsEveryJob(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*models.FetchedPage{}}

	var jobs []models.Job
	subJobs := 0
	for i := 0; i < 10; i++ {
		url := fmt.Sprintf("http://site%d.com", i)
		if i%2 == 0 {
			fetcher.pages[url] = linkPage(url, "/a", "/b", "https://other.org/")
			jobs = append(jobs, NewOnlineJob(url, 1, true, false))
			subJobs += 2
		} else {
			fetcher.pages[url] = linkPage(url)
			jobs = append(jobs, NewOnlineJob(url, 0, true, false))
		}
	}

	for _, workers := range []int{1, 2, 4, 16} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			results, stats := runJobs(t, workers, fetcher, jobs)

			assert.Len(t, results, len(jobs)+subJobs)
			assert.Equal(t, int64(len(jobs)), stats.Jobs)
			assert.Equal(t, int64(subJobs), stats.Crawled)
			assert.Equal(t, stats.Jobs+stats.Crawled, stats.Results)
			assert.Zero(t, stats.Failures)
		})
	}
}

func TestSchedulerEmitsCrawledResultsBeforeParent(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*models.FetchedPage{
		"http://example.com": linkPage("http://example.com", "/one", "https://blog.example.com/two"),
	}}

	results, _ := runJobs(t, 1, fetcher, []models.Job{NewOnlineJob("example.com", 1, true, true)})

	require.Len(t, results, 3)
	assert.Equal(t, "http://example.com/one", results[0].Host)
	assert.True(t, results[0].Crawled)
	assert.Equal(t, "https://blog.example.com/two", results[1].Host)
	assert.True(t, results[1].Crawled)

	parent := results[2]
	assert.Equal(t, "http://example.com", parent.Host)
	assert.False(t, parent.Crawled)
	assert.Equal(t, "index", parent.Title)
	assert.Equal(t, http.StatusOK, parent.StatusCode)
	require.Len(t, parent.Matches, 1)
	assert.Equal(t, "PHP", parent.Matches[0].Technology)
	assert.Equal(t, "8.2", parent.Matches[0].Version)

	assert.True(t, fetcher.redirects["http://example.com"])
	assert.True(t, fetcher.redirects["http://example.com/one"])
}

func TestSchedulerCrawledJobsDoNotCrawl(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*models.FetchedPage{
		"http://example.com":     linkPage("http://example.com", "/one"),
		"http://example.com/one": linkPage("http://example.com/one", "/two"),
	}}

	results, stats := runJobs(t, 2, fetcher, []models.Job{NewOnlineJob("example.com", 1, true, false)})

	assert.Len(t, results, 2)
	assert.Equal(t, int64(1), stats.Crawled)
	assert.NotContains(t, fetcher.requested, "http://example.com/two")
	assert.False(t, fetcher.redirects["http://example.com/one"])
}

func TestSchedulerIsolatesFailures(t *testing.T) {
	transportErr := &fetch.TransportError{URL: "http://down.com", Cause: errors.New("connection refused")}
	fetcher := &fakeFetcher{
		pages: map[string]*models.FetchedPage{
			"http://up.com": linkPage("http://up.com"),
		},
		errs: map[string]error{
			"http://down.com":   transportErr,
			"http://binary.com": &fetch.MalformedPageError{URL: "http://binary.com", Cause: errors.New("not text")},
		},
	}

	jobs := []models.Job{
		NewOnlineJob("down.com", 1, true, false),
		NewOnlineJob("up.com", 0, true, false),
		NewOnlineJob("binary.com", 0, true, false),
	}
	results, stats := runJobs(t, 2, fetcher, jobs)
	require.Len(t, results, 3)
	assert.Equal(t, int64(1), stats.Failures)

	byHost := make(map[string]models.Result)
	for _, r := range results {
		byHost[r.Host] = r
	}

	down := byHost["http://down.com"]
	var got *fetch.TransportError
	require.ErrorAs(t, down.Error, &got)
	assert.Empty(t, down.Matches)

	up := byHost["http://up.com"]
	require.NoError(t, up.Error)
	assert.Len(t, up.Matches, 1)

	binary := byHost["http://binary.com"]
	require.NoError(t, binary.Error)
	assert.NotNil(t, binary.Matches)
	assert.Empty(t, binary.Matches)
}

func TestSchedulerSubmitAfterWait(t *testing.T) {
	s := New(1, newTestAnalyzer(t), &fakeFetcher{}, logger.Discard())
	s.Start(context.Background())
	require.NoError(t, s.Wait())

	assert.ErrorIs(t, s.Submit(models.Job{URL: "http://late.com"}), ErrQueueClosed)
	_, open := <-s.Results()
	assert.False(t, open)
}

func TestSchedulerDefaultsWorkers(t *testing.T) {
	s := New(0, newTestAnalyzer(t), &fakeFetcher{}, nil)
	assert.Equal(t, DefaultWorkers, s.workers)
}
