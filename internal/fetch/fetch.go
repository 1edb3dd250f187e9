// Package fetch retrieves pages over HTTP and prepares them for matching.
package fetch

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"

	"github.com/mamamialezatoz/go-webanalyze/internal/models"
)

// DefaultTimeout is the default per-request timeout
const DefaultTimeout = 8 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests
const DefaultUserAgent = "Mozilla/5.0 (compatible; webanalyze)"

// Fetcher retrieves one page
type Fetcher interface {
	Fetch(ctx context.Context, url string, followRedirects bool) (*models.FetchedPage, error)
}

// Options configures the HTTP fetcher
type Options struct {
	Timeout   time.Duration
	UserAgent string
	// InsecureSkipVerify disables certificate validation
	InsecureSkipVerify bool
	// MaxBodySize limits how much of a body is read (0 = no limit)
	MaxBodySize int64
}

// DefaultOptions returns the defaults used by the command line
func DefaultOptions() Options {
	return Options{
		Timeout:            DefaultTimeout,
		UserAgent:          DefaultUserAgent,
		InsecureSkipVerify: true,
	}
}

// HTTPFetcher is a Fetcher backed by net/http
type HTTPFetcher struct {
	options    Options
	client     *http.Client
	noRedirect *http.Client
	log        *logrus.Entry
}

// NewHTTPFetcher creates a fetcher. Both clients share one transport.
func NewHTTPFetcher(options Options, log *logrus.Entry) *HTTPFetcher {
	if options.Timeout <= 0 {
		options.Timeout = DefaultTimeout
	}
	if options.UserAgent == "" {
		options.UserAgent = DefaultUserAgent
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: options.InsecureSkipVerify, //nolint:gosec
	}

	return &HTTPFetcher{
		options: options,
		client: &http.Client{
			Transport: transport,
			Timeout:   options.Timeout,
		},
		noRedirect: &http.Client{
			Transport: transport,
			Timeout:   options.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log: log.WithField("component", "fetch"),
	}
}

// Fetch retrieves url. Network and timeout failures are returned as
// *TransportError. A body that cannot be decoded is returned as an
// empty-bodied page together with a *MalformedPageError.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, followRedirects bool) (*models.FetchedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Cause: err}
	}
	req.Header.Set("User-Agent", f.options.UserAgent)

	client := f.client
	if !followRedirects {
		client = f.noRedirect
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	var reader io.Reader = resp.Body
	if f.options.MaxBodySize > 0 {
		reader = io.LimitReader(resp.Body, f.options.MaxBodySize)
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, &TransportError{URL: url, Cause: fmt.Errorf("failed to read response body: %w", err)}
	}

	page := &models.FetchedPage{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Cookies:    make(map[string]string),
	}
	for _, cookie := range resp.Cookies() {
		page.Cookies[cookie.Name] = cookie.Value
	}

	f.log.WithFields(logrus.Fields{
		"url":    page.URL,
		"status": page.StatusCode,
		"bytes":  len(raw),
	}).Debug("fetched page")

	body, err := DecodeBody(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return page, &MalformedPageError{URL: url, Cause: err}
	}
	page.Body = body

	return page, nil
}

// DecodeBody returns raw as text. Bodies that are not UTF-8 are
// transcoded when a charset is declared by the content type, a byte
// order mark or a <meta> tag.
func DecodeBody(raw []byte, contentType string) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}

	encoding, name, certain := charset.DetermineEncoding(raw, contentType)
	if !certain {
		label := metaCharset(raw)
		if label == "" {
			return "", errors.New("body is not UTF-8 and declares no charset")
		}
		if encoding, name = charset.Lookup(label); encoding == nil {
			return "", fmt.Errorf("unsupported charset %q", label)
		}
	}

	decoded, err := encoding.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s body: %w", name, err)
	}
	return string(decoded), nil
}

// metaCharset returns the charset label declared by a <meta charset> or
// <meta http-equiv="Content-Type"> tag, or "" if there is none
func metaCharset(raw []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return ""
	}

	var label string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if value, ok := s.Attr("charset"); ok {
			label = strings.TrimSpace(value)
			return label == ""
		}
		if !strings.EqualFold(s.AttrOr("http-equiv", ""), "content-type") {
			return true
		}
		if _, params, err := mime.ParseMediaType(s.AttrOr("content", "")); err == nil {
			label = strings.TrimSpace(params["charset"])
		}
		return label == ""
	})
	return label
}
