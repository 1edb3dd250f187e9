package detection

import (
	"github.com/mamamialezatoz/go-webanalyze/internal/models"
)

// MatchScriptSrc matches technologies based on script src attributes
func MatchScriptSrc(patterns []*models.CompiledPattern, sources []string, evidence *Evidence) {
	for _, source := range sources {
		for _, pattern := range patterns {
			evidence.collect(pattern, source)
		}
	}
}
