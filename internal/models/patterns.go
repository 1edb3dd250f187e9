package models

import (
	"github.com/dlclark/regexp2"
)

// maxMatchesPerPattern caps how many matches one pattern records against one input
const maxMatchesPerPattern = 256

// CompiledPattern is one compiled signature clause
type CompiledPattern struct {
	// FieldKey is the header, cookie or meta name the pattern applies to (lower case)
	FieldKey string
	// Source is the regular expression body as written in the signature
	Source string
	// Regexp is the compiled, case-insensitive expression
	Regexp *regexp2.Regexp
	// Version is the version template, possibly containing \1..\3
	Version string
	// PresenceOnly is set for named fields declared without a pattern
	PresenceOnly bool
}

// Captures is the ordered list of capture groups of one match.
// Group numbers are 1-based, as in signature backreferences.
type Captures []string

// Group returns the value of capture group n (1-based)
func (c Captures) Group(n int) (string, bool) {
	if n < 1 || n > len(c) {
		return "", false
	}
	return c[n-1], true
}

// FindAll runs the pattern against s and returns the capture groups of
// every match in order. A pattern without groups yields empty Captures
// per match, so a match is still recorded.
func (p *CompiledPattern) FindAll(s string) ([]Captures, error) {
	var found []Captures

	m, err := p.Regexp.FindStringMatch(s)
	for m != nil && err == nil {
		groups := m.Groups()
		captures := make(Captures, 0, len(groups)-1)
		for _, g := range groups[1:] {
			captures = append(captures, g.String())
		}
		found = append(found, captures)

		if len(found) >= maxMatchesPerPattern {
			break
		}
		m, err = p.Regexp.FindNextMatch(m)
	}

	return found, err
}
