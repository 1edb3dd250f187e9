package detection

import (
	"strconv"
	"strings"

	"github.com/mamamialezatoz/go-webanalyze/internal/models"
)

// maxBackreference is the highest group a version template may reference
const maxBackreference = 3

// ResolveVersion fills the backreferences \1..\3 of template from the
// captured groups of matches.
//
// Matches are scanned in order and the first one that provides every
// referenced group and yields a non-empty string wins. When none does,
// the first non-empty partial substitution of a match that captured
// anything is returned with the missing references left in place.
func ResolveVersion(matches []models.Captures, template string) string {
	if template == "" {
		return ""
	}

	var fallback string
	for _, groups := range matches {
		version, complete := substitute(template, groups)
		if version == "" {
			continue
		}
		if complete {
			return version
		}
		if fallback == "" && len(groups) > 0 {
			fallback = version
		}
	}

	return fallback
}

// substitute replaces every backreference that groups can satisfy and
// reports whether all of them could be
func substitute(template string, groups models.Captures) (string, bool) {
	version := template
	complete := true

	for i := 1; i <= maxBackreference; i++ {
		token := `\` + strconv.Itoa(i)
		if !strings.Contains(template, token) {
			continue
		}

		value, ok := groups.Group(i)
		if !ok {
			complete = false
			continue
		}
		version = strings.ReplaceAll(version, token, value)
	}

	return version, complete
}
