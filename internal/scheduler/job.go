package scheduler

import (
	"github.com/mamamialezatoz/go-webanalyze/internal/links"
	"github.com/mamamialezatoz/go-webanalyze/internal/models"
)

// maxCrawlDepth caps link following: crawled pages are never crawled again
const maxCrawlDepth = 1

// NewOnlineJob creates a job for a host or URL. Hosts without a scheme
// are fetched over http.
func NewOnlineJob(url string, crawl int, searchSubdomains, followRedirects bool) models.Job {
	if crawl > maxCrawlDepth {
		crawl = maxCrawlDepth
	}
	if crawl < 0 {
		crawl = 0
	}
	return models.Job{
		URL:              links.EnsureScheme(url),
		Crawl:            crawl,
		SearchSubdomains: searchSubdomains,
		FollowRedirects:  followRedirects,
	}
}

// crawlJobs turns the links of a crawled page into non-crawling jobs
func crawlJobs(parent models.Job, urls []string) []models.Job {
	jobs := make([]models.Job, 0, len(urls))
	for _, url := range urls {
		jobs = append(jobs, models.Job{
			URL:             url,
			FollowRedirects: parent.FollowRedirects,
		})
	}
	return jobs
}
