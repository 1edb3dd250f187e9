package detection

import (
	"strings"

	"github.com/mamamialezatoz/go-webanalyze/internal/models"
)

// NormalizeCookies lower-cases cookie names
func NormalizeCookies(cookies map[string]string) map[string]string {
	normalizedCookies := make(map[string]string, len(cookies))
	for name, value := range cookies {
		normalizedCookies[strings.ToLower(name)] = value
	}
	return normalizedCookies
}

// MatchCookies matches technologies based on cookies. A rule without a
// pattern only requires the cookie to be present.
func MatchCookies(patterns []*models.CompiledPattern, cookies map[string]string, evidence *Evidence) {
	for _, pattern := range patterns {
		if value, ok := cookies[pattern.FieldKey]; ok {
			matchNamed(pattern, []string{value}, evidence)
		}
	}
}
