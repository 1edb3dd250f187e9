package detection

import (
	"fmt"

	"github.com/mamamialezatoz/go-webanalyze/internal/models"
)

// Evidence accumulates what the patterns of one technology matched on a
// page, across every channel, in discovery order
type Evidence struct {
	Matches []models.Captures

	// Errors holds the patterns that gave up on an input, usually on the
	// match timeout
	Errors []error

	// templates holds the version templates of the patterns that matched
	templates []string
}

// collect runs p against target and records its matches.
// A pattern that times out keeps the matches it found before.
func (e *Evidence) collect(p *models.CompiledPattern, target string) {
	found, err := p.FindAll(target)
	if err != nil {
		e.Errors = append(e.Errors, fmt.Errorf("pattern %q: %w", p.Source, err))
	}
	if len(found) == 0 {
		return
	}

	e.Matches = append(e.Matches, found...)
	if p.Version != "" {
		e.templates = append(e.templates, p.Version)
	}
}

// present records a match that carries no captured text
func (e *Evidence) present(p *models.CompiledPattern) {
	e.Matches = append(e.Matches, models.Captures{})
	if p.Version != "" {
		e.templates = append(e.templates, p.Version)
	}
}

// Found reports whether any channel matched
func (e *Evidence) Found() bool {
	return len(e.Matches) > 0
}

// Version resolves the templates of the matched patterns against every
// match collected so far. The first template that resolves wins.
func (e *Evidence) Version() string {
	for _, template := range e.templates {
		if version := ResolveVersion(e.Matches, template); version != "" {
			return version
		}
	}
	return ""
}
