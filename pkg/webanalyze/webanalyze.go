// Package webanalyze detects the technologies a website is built with
// from its HTML, script sources, URL, headers, meta tags and cookies.
package webanalyze

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/mamamialezatoz/go-webanalyze/internal/detection"
	"github.com/mamamialezatoz/go-webanalyze/internal/fetch"
	"github.com/mamamialezatoz/go-webanalyze/internal/models"
	"github.com/mamamialezatoz/go-webanalyze/internal/parser"
	"github.com/mamamialezatoz/go-webanalyze/internal/scheduler"
)

type (
	// FetchedPage is one HTTP response prepared for matching
	FetchedPage = models.FetchedPage
	// EvidenceMatch is one detected technology
	EvidenceMatch = models.EvidenceMatch
	// Result is emitted once per analyzed page
	Result = models.Result
	// Job is one host to analyze
	Job = models.Job
	// Stats counts what a scan has done
	Stats = scheduler.Stats
	// FetchOptions configures how pages are retrieved
	FetchOptions = fetch.Options
)

// ErrNoDefinition is returned by New when no signature definition was given
var ErrNoDefinition = errors.New("no signature definition provided")

// NewOnlineJob creates a job for a host or URL, see scheduler.NewOnlineJob
func NewOnlineJob(url string, crawl int, searchSubdomains, followRedirects bool) Job {
	return scheduler.NewOnlineJob(url, crawl, searchSubdomains, followRedirects)
}

// Webanalyze is a compiled signature database with an analyzer over it.
// It is safe for concurrent use.
type Webanalyze struct {
	config   *Config
	db       *models.SignatureDatabase
	analyzer *detection.Analyzer
	log      *logrus.Entry
}

// New compiles a signature definition
func New(options ...Option) (*Webanalyze, error) {
	config := &Config{MatchTimeout: parser.DefaultMatchTimeout}
	for _, option := range options {
		option(config)
	}

	log := config.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	data := config.JSON
	if len(data) == 0 {
		if config.DefinitionFile == "" {
			return nil, ErrNoDefinition
		}
		var err error
		data, err = os.ReadFile(config.DefinitionFile)
		if err != nil {
			return nil, fmt.Errorf("could not read signature definition: %w", err)
		}
	}

	def, err := parser.LoadDefinition(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	db, err := parser.NewCompiler(config.MatchTimeout).Compile(def)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"technologies": len(db.Names()),
		"categories":   len(db.Categories),
	}).Info("signatures loaded")

	return &Webanalyze{
		config: config,
		db:     db,
		analyzer: detection.NewAnalyzer(db, detection.Options{
			DisableHTMLDetection:   config.DisableHTMLDetection,
			DisableScriptDetection: config.DisableScriptDetection,
			DisableURLDetection:    config.DisableURLDetection,
			DisableHeaderDetection: config.DisableHeaderDetection,
			DisableMetaDetection:   config.DisableMetaDetection,
			DisableCookieDetection: config.DisableCookieDetection,
			Log:                    log,
		}),
		log: log,
	}, nil
}

// NewWithCustomDefinition compiles the given signature definition JSON
func NewWithCustomDefinition(definition []byte) (*Webanalyze, error) {
	return New(WithCustomDefinition(definition))
}

// Analyze matches an already fetched page
func (w *Webanalyze) Analyze(page *FetchedPage) []EvidenceMatch {
	return w.analyzer.Analyze(page)
}

// Fingerprint identifies technologies from response headers and body.
// Cookies are taken from the Set-Cookie headers.
func (w *Webanalyze) Fingerprint(url string, headers http.Header, body []byte) []EvidenceMatch {
	page := &FetchedPage{
		URL:     url,
		Body:    string(body),
		Headers: headers,
		Cookies: make(map[string]string),
	}
	resp := http.Response{Header: headers}
	for _, cookie := range resp.Cookies() {
		page.Cookies[cookie.Name] = cookie.Value
	}
	return w.Analyze(page)
}

// AnalyzeURL fetches url, following redirects, and analyzes the response
func (w *Webanalyze) AnalyzeURL(ctx context.Context, url string) (Result, error) {
	result, err := w.scan(ctx, []Job{NewOnlineJob(url, 0, false, true)}, 1, w.fetchOptions())
	if err != nil {
		return Result{}, err
	}
	if len(result) == 0 {
		return Result{}, fmt.Errorf("no result for %s", url)
	}
	return result[0], result[0].Error
}

// Scan analyzes jobs on a pool of workers, handing every result to emit.
// Crawled pages are emitted before the page that links to them.
func (w *Webanalyze) Scan(ctx context.Context, jobs []Job, workers int, options FetchOptions, emit func(Result)) (Stats, error) {
	fetcher := fetch.NewHTTPFetcher(options, w.log)
	return scheduler.New(workers, w.analyzer, fetcher, w.log).Run(ctx, jobs, emit)
}

func (w *Webanalyze) scan(ctx context.Context, jobs []Job, workers int, options FetchOptions) ([]Result, error) {
	var results []Result
	_, err := w.Scan(ctx, jobs, workers, options, func(r Result) {
		results = append(results, r)
	})
	return results, err
}

func (w *Webanalyze) fetchOptions() FetchOptions {
	options := fetch.DefaultOptions()
	options.MaxBodySize = w.config.MaxBodySize
	return options
}

// CategoryName returns the name of a category id, or "" if unknown
func (w *Webanalyze) CategoryName(id int) string {
	return w.db.CategoryByID(id)
}

// Technologies returns the technology names in matching order
func (w *Webanalyze) Technologies() []string {
	return w.db.Names()
}

