// Package detection matches fetched pages against a signature database.
package detection

import (
	"github.com/sirupsen/logrus"

	"github.com/mamamialezatoz/go-webanalyze/internal/models"
	"github.com/mamamialezatoz/go-webanalyze/internal/parser"
)

// Options selects the evidence channels used by an Analyzer
type Options struct {
	DisableHTMLDetection   bool
	DisableScriptDetection bool
	DisableURLDetection    bool
	DisableHeaderDetection bool
	DisableMetaDetection   bool
	DisableCookieDetection bool

	// Log receives pattern errors at debug level
	Log *logrus.Entry
}

// Analyzer matches pages against a read-only SignatureDatabase.
// It is safe for concurrent use.
type Analyzer struct {
	db      *models.SignatureDatabase
	options Options
}

// NewAnalyzer creates an analyzer over db
func NewAnalyzer(db *models.SignatureDatabase, options Options) *Analyzer {
	if options.Log == nil {
		options.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Analyzer{db: db, options: options}
}

// Database returns the signature database the analyzer matches against
func (a *Analyzer) Database() *models.SignatureDatabase {
	return a.db
}

// pageData is a page prepared once for every technology
type pageData struct {
	body    string
	url     string
	scripts []string
	meta    map[string][]string
	headers map[string][]string
	cookies map[string]string
}

func (a *Analyzer) prepare(page *models.FetchedPage) *pageData {
	data := &pageData{
		body:    page.Body,
		url:     page.URL,
		headers: NormalizeHeaders(page.Headers),
		cookies: NormalizeCookies(page.Cookies),
	}
	if !a.options.DisableScriptDetection {
		data.scripts = parser.ExtractScriptSources(page.Body)
	}
	if !a.options.DisableMetaDetection {
		data.meta = parser.ExtractMetaTags(page.Body)
	}
	return data
}

// Analyze returns the technologies detected on page, in signature name
// order, followed by the technologies they imply
func (a *Analyzer) Analyze(page *models.FetchedPage) []models.EvidenceMatch {
	data := a.prepare(page)

	var matches []models.EvidenceMatch
	detected := make(map[string]struct{})

	for _, name := range a.db.Names() {
		tech := a.db.Technologies[name]

		evidence := a.matchTechnology(tech, data)
		for _, err := range evidence.Errors {
			a.options.Log.WithFields(logrus.Fields{
				"technology": name,
				"url":        page.URL,
			}).WithError(err).Debug("pattern match aborted")
		}
		if !evidence.Found() {
			continue
		}

		matches = append(matches, models.EvidenceMatch{
			Technology: name,
			Categories: tech.CatNames,
			Website:    tech.Website,
			Matches:    evidence.Matches,
			Version:    evidence.Version(),
		})
		detected[name] = struct{}{}
	}

	return a.addImpliedTechnologies(matches, detected)
}

// matchTechnology collects the evidence of one technology on every enabled channel
func (a *Analyzer) matchTechnology(tech *models.TechnologySignature, data *pageData) *Evidence {
	evidence := &Evidence{}

	if !a.options.DisableHTMLDetection {
		MatchHTML(tech.HTML, data.body, evidence)
	}
	if !a.options.DisableHeaderDetection {
		MatchHeaders(tech.Headers, data.headers, evidence)
	}
	if !a.options.DisableURLDetection {
		MatchURL(tech.URL, data.url, evidence)
	}
	if !a.options.DisableScriptDetection {
		MatchScriptSrc(tech.Scripts, data.scripts, evidence)
	}
	if !a.options.DisableMetaDetection {
		MatchMetaTags(tech.Meta, data.meta, evidence)
	}
	if !a.options.DisableCookieDetection {
		MatchCookies(tech.Cookies, data.cookies, evidence)
	}

	return evidence
}

// addImpliedTechnologies appends, without evidence or version, every
// technology implied by a detected one. Implications are expanded one
// level only and a technology is never listed twice. Implied names that
// are not in the database are skipped.
func (a *Analyzer) addImpliedTechnologies(matches []models.EvidenceMatch, detected map[string]struct{}) []models.EvidenceMatch {
	direct := len(matches)
	for i := 0; i < direct; i++ {
		tech := a.db.Technologies[matches[i].Technology]

		for _, implied := range tech.Implies {
			// a technology detected on its own evidence keeps its version
			if _, exists := detected[implied]; exists {
				continue
			}
			impliedTech, ok := a.db.Lookup(implied)
			if !ok {
				continue
			}
			detected[implied] = struct{}{}

			matches = append(matches, models.EvidenceMatch{
				Technology: implied,
				Categories: impliedTech.CatNames,
				Website:    impliedTech.Website,
				Implied:    true,
			})
		}
	}
	return matches
}
