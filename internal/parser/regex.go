package parser

import (
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
)

// DefaultMatchTimeout bounds a single regular expression evaluation
const DefaultMatchTimeout = time.Second

// regexCache deduplicates identical expressions across technologies.
// It is owned by one Compiler and only used while a database is built.
type regexCache struct {
	timeout time.Duration
	entries map[string]*regexp2.Regexp
}

func newRegexCache(timeout time.Duration) *regexCache {
	if timeout <= 0 {
		timeout = DefaultMatchTimeout
	}
	return &regexCache{
		timeout: timeout,
		entries: make(map[string]*regexp2.Regexp),
	}
}

// CompileRegex compiles a signature expression case-insensitively
func (c *regexCache) CompileRegex(pattern string) (*regexp2.Regexp, error) {
	if compiled, ok := c.entries[pattern]; ok {
		return compiled, nil
	}

	compiled, err := regexp2.Compile(normalizePattern(pattern), regexp2.IgnoreCase)
	if err != nil {
		return nil, fmt.Errorf("failed to compile regex '%s': %w", pattern, err)
	}
	compiled.MatchTimeout = c.timeout

	c.entries[pattern] = compiled
	return compiled, nil
}

// normalizePattern strips the surrounding slashes of JavaScript-style literals
func normalizePattern(pattern string) string {
	if len(pattern) > 2 && pattern[0] == '/' && pattern[len(pattern)-1] == '/' {
		pattern = pattern[1 : len(pattern)-1]
	}
	return pattern
}
