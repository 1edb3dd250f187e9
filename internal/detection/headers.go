package detection

import (
	"strings"

	"github.com/mamamialezatoz/go-webanalyze/internal/models"
)

// NormalizeHeaders lower-cases header names for case-insensitive lookup
func NormalizeHeaders(headers map[string][]string) map[string][]string {
	normalizedHeaders := make(map[string][]string, len(headers))
	for header, values := range headers {
		key := strings.ToLower(header)
		normalizedHeaders[key] = append(normalizedHeaders[key], values...)
	}
	return normalizedHeaders
}

// MatchHeaders matches the header rules of a technology. headers must
// be keyed by lower-case name.
func MatchHeaders(patterns []*models.CompiledPattern, headers map[string][]string, evidence *Evidence) {
	for _, pattern := range patterns {
		values, ok := headers[pattern.FieldKey]
		if !ok {
			continue
		}
		matchNamed(pattern, values, evidence)
	}
}

// matchNamed applies a named rule to the values found under its name
func matchNamed(pattern *models.CompiledPattern, values []string, evidence *Evidence) {
	if pattern.PresenceOnly {
		evidence.present(pattern)
		return
	}
	for _, value := range values {
		evidence.collect(pattern, value)
	}
}
