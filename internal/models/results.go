package models

import (
	"net/http"
	"time"
)

// FetchedPage is one HTTP response prepared for matching
type FetchedPage struct {
	// URL is the final URL after redirects
	URL string
	// StatusCode of the response
	StatusCode int
	// Body is the decoded response body
	Body string
	// Headers of the response
	Headers http.Header
	// Cookies set by the response, organized as <name, value>
	Cookies map[string]string
}

// EvidenceMatch is one detected technology on a page
type EvidenceMatch struct {
	Technology string     `json:"app_name"`
	Categories []string   `json:"categories,omitempty"`
	Website    string     `json:"website,omitempty"`
	Matches    []Captures `json:"matches,omitempty"`
	Version    string     `json:"version"`
	// Implied is set when the technology was inferred, not observed
	Implied bool `json:"implied,omitempty"`
}

// Result is emitted once per analyzed page
type Result struct {
	Host       string          `json:"hostname"`
	StatusCode int             `json:"status_code,omitempty"`
	Title      string          `json:"title,omitempty"`
	Matches    []EvidenceMatch `json:"matches"`
	Duration   time.Duration   `json:"duration"`
	Error      error           `json:"-"`
	// Crawled is set for pages reached through a link of another job
	Crawled bool `json:"crawled,omitempty"`
}

// Job is one unit of scheduler work
type Job struct {
	URL              string
	Crawl            int
	SearchSubdomains bool
	FollowRedirects  bool
}
