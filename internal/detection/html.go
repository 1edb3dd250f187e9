package detection

import (
	"github.com/mamamialezatoz/go-webanalyze/internal/models"
)

// MatchHTML runs the HTML patterns of a technology against the page body
func MatchHTML(patterns []*models.CompiledPattern, body string, evidence *Evidence) {
	for _, pattern := range patterns {
		evidence.collect(pattern, body)
	}
}

// MatchURL runs the URL patterns of a technology against the final request URL
func MatchURL(patterns []*models.CompiledPattern, url string, evidence *Evidence) {
	if url == "" {
		return
	}
	for _, pattern := range patterns {
		evidence.collect(pattern, url)
	}
}
