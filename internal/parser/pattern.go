package parser

import (
	"strings"

	"github.com/mamamialezatoz/go-webanalyze/internal/models"
)

const (
	// directiveSeparator splits the expression from its directives
	directiveSeparator = `\;`

	versionPrefix = "version:"

	// matchAnything stands in for named fields declared without a pattern
	matchAnything = ".*"
)

// splitDirectives returns the expression body and the version template
func splitDirectives(raw string) (string, string) {
	parts := strings.Split(raw, directiveSeparator)

	var version string
	for _, part := range parts[1:] {
		if strings.HasPrefix(part, versionPrefix) {
			version = part[len(versionPrefix):]
			break
		}
	}

	return parts[0], version
}

// ParsePattern compiles an entry of the html, scripts or url lists.
// It returns nil for an empty entry.
func (c *Compiler) ParsePattern(raw string) (*models.CompiledPattern, error) {
	if raw == "" {
		return nil, nil
	}

	body, version := splitDirectives(raw)
	re, err := c.regexes.CompileRegex(body)
	if err != nil {
		return nil, err
	}

	return &models.CompiledPattern{
		Source:  body,
		Regexp:  re,
		Version: version,
	}, nil
}

// ParseNamedPattern compiles a header or cookie rule
func (c *Compiler) ParseNamedPattern(name, raw string) (*models.CompiledPattern, error) {
	body, version := splitDirectives(raw)

	presenceOnly := body == ""
	if presenceOnly {
		body = matchAnything
	}

	re, err := c.regexes.CompileRegex(body)
	if err != nil {
		return nil, err
	}

	return &models.CompiledPattern{
		FieldKey:     strings.ToLower(name),
		Source:       body,
		Regexp:       re,
		Version:      version,
		PresenceOnly: presenceOnly,
	}, nil
}

// ParseMetaPattern compiles a meta rule. The alternatives are joined
// with | and the first version template among them is kept.
func (c *Compiler) ParseMetaPattern(name string, alternatives []string) (*models.CompiledPattern, error) {
	bodies := make([]string, 0, len(alternatives))
	var version string
	for _, alternative := range alternatives {
		body, v := splitDirectives(alternative)
		if body != "" {
			bodies = append(bodies, body)
		}
		if version == "" {
			version = v
		}
	}

	raw := strings.Join(bodies, "|")
	if version != "" {
		raw += directiveSeparator + versionPrefix + version
	}
	return c.ParseNamedPattern(name, raw)
}
