// Package links extracts the same-site links of a page for one-level crawling.
package links

import (
	"net"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"github.com/mamamialezatoz/go-webanalyze/internal/models"
)

// Options controls link admission
type Options struct {
	// SearchSubdomains is accepted for compatibility. Admission requires
	// the same registrable domain whether or not it is set.
	SearchSubdomains bool
}

// Extract returns the deduplicated absolute URLs of the anchors of page
// that stay on the page's registrable domain. The result is sorted.
func Extract(page *models.FetchedPage, opts Options) ([]string, error) {
	source, err := url.Parse(EnsureScheme(page.URL))
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
	if err != nil {
		return nil, err
	}

	base := source
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = source.ResolveReference(ref)
		}
	}

	linkSet := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if link, ok := resolve(source, base, href, opts); ok {
			linkSet[link] = struct{}{}
		}
	})

	links := make([]string, 0, len(linkSet))
	for link := range linkSet {
		links = append(links, link)
	}
	sort.Strings(links)

	return links, nil
}

// Resolve resolves href against base and applies the admission policy
// with base as the source page
func Resolve(base, href string, opts Options) (string, bool) {
	source, err := url.Parse(EnsureScheme(base))
	if err != nil {
		return "", false
	}
	return resolve(source, source, href, opts)
}

func resolve(source, base *url.URL, href string, opts Options) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	resolved.RawFragment = ""

	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}

	// SearchSubdomains does not widen admission
	if !SameSite(source, resolved) {
		return "", false
	}

	if resolved.Path == "" {
		resolved.Path = "/"
	}

	if isSelf(source, resolved) {
		return "", false
	}

	return resolved.String(), true
}

// isSelf reports whether link points back at the source page
func isSelf(source, link *url.URL) bool {
	sourcePath := source.Path
	if sourcePath == "" {
		sourcePath = "/"
	}
	return strings.EqualFold(source.Host, link.Host) && sourcePath == link.Path
}

// SameSite reports whether both URLs share a registrable domain
func SameSite(a, b *url.URL) bool {
	return RegistrableDomain(a.Hostname()) == RegistrableDomain(b.Hostname())
}

// RegistrableDomain returns the eTLD+1 of host. IP addresses and hosts
// without a public suffix are returned as they are.
func RegistrableDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" || net.ParseIP(host) != nil {
		return host
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// EnsureScheme prefixes raw with http:// when it has no scheme
func EnsureScheme(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	if strings.Contains(raw, "://") {
		return raw
	}
	return "http://" + strings.TrimPrefix(raw, "//")
}
