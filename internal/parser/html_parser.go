package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// Regex for extracting script sources from HTML
	scriptSrcRegex = regexp.MustCompile(`(?i)<script[^>]*?\ssrc\s*=\s*["']([^"']*)["']`)

	// Regex for extracting title from HTML
	titleRegex = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
)

// ExtractScriptSources returns the src attribute of every script tag, in document order
func ExtractScriptSources(body string) []string {
	matches := scriptSrcRegex.FindAllStringSubmatch(body, -1)
	sources := make([]string, 0, len(matches))

	for _, match := range matches {
		if src := strings.TrimSpace(match[1]); src != "" {
			sources = append(sources, src)
		}
	}

	return sources
}

// ExtractMetaTags returns the content of meta tags keyed by their lower-cased
// name or property attribute
func ExtractMetaTags(body string) map[string][]string {
	results := make(map[string][]string)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return results
	}

	doc.Find("meta[content]").Each(func(_ int, s *goquery.Selection) {
		content, _ := s.Attr("content")

		name, ok := s.Attr("name")
		if !ok {
			name, ok = s.Attr("property")
		}
		if !ok || name == "" {
			return
		}

		key := strings.ToLower(strings.TrimSpace(name))
		results[key] = append(results[key], content)
	})

	return results
}

// ExtractTitle extracts the title from HTML content
func ExtractTitle(body string) string {
	match := titleRegex.FindStringSubmatch(body)
	if len(match) > 1 {
		return strings.TrimSpace(match[1])
	}
	return ""
}
