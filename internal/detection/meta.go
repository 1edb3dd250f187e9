package detection

import (
	"github.com/mamamialezatoz/go-webanalyze/internal/models"
)

// MatchMetaTags matches technologies based on meta tags. metaTags must
// be keyed by lower-case name.
func MatchMetaTags(patterns []*models.CompiledPattern, metaTags map[string][]string, evidence *Evidence) {
	for _, pattern := range patterns {
		if contents, ok := metaTags[pattern.FieldKey]; ok {
			matchNamed(pattern, contents, evidence)
		}
	}
}
