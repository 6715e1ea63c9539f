// Package capture produces scan input from a web page: the page title and
// readable text, standing in for the in-browser selection capture.
package capture

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/elitetrace/factcheckd/internal/scan"
)

// DefaultTimeout is the HTTP request timeout for page fetches.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent identifies page fetches.
const DefaultUserAgent = "Mozilla/5.0 (compatible; FactcheckAgent/1.0)"

// maxCapturedChars bounds how much page text one scan ingests; anything
// longer would blow the model prompt budget without improving the verdict.
const maxCapturedChars = 8000

// Error represents a failure capturing a page.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("capture error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("capture error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Page is the captured content of one URL.
type Page struct {
	Text     string
	Metadata scan.Metadata
}

// Options configures the capture behavior.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	// UseBrowser enables a headless-browser fallback for pages whose
	// server-rendered HTML carries too little text (JS-rendered SPAs).
	UseBrowser bool
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

// FromURL fetches a page and extracts its title and readable text.
func FromURL(ctx context.Context, urlStr string, opts *Options) (*Page, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}

	html, err := fetchHTML(ctx, urlStr, opts)
	if err != nil {
		return nil, err
	}

	page, err := extract(urlStr, html)
	if err != nil {
		return nil, err
	}

	if opts.UseBrowser && shouldUseBrowser(page.Text) {
		rendered, browserErr := renderWithBrowser(ctx, urlStr, opts.Timeout)
		if browserErr != nil {
			// Fall back to whatever the plain fetch produced.
			return page, nil
		}
		if renderedPage, err := extract(urlStr, rendered); err == nil {
			return renderedPage, nil
		}
	}

	return page, nil
}

func fetchHTML(ctx context.Context, urlStr string, opts *Options) (string, error) {
	client := &http.Client{Timeout: opts.Timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", opts.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "failed to read response body", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &Error{URL: urlStr, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	return string(body), nil
}

// extract parses HTML into a Page: the <title> plus the main readable text
// with navigation and script noise stripped.
func extract(urlStr, html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to parse HTML", Cause: err}
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("nav, footer, header, script, style, noscript, .ad, .advertisement, .sidebar, .cookie-banner").Remove()

	content := doc.Find("main, article")
	if content.Length() == 0 {
		content = doc.Find("body")
	}

	text := cleanWhitespace(content.First().Text())
	if len(text) > maxCapturedChars {
		text = text[:maxCapturedChars]
	}

	return &Page{
		Text: text,
		Metadata: scan.Metadata{
			URL:   urlStr,
			Title: title,
		},
	}, nil
}

var whitespaceRun = regexp.MustCompile(`[ \t\r\f]+`)
var blankLines = regexp.MustCompile(`\n{3,}`)

func cleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(whitespaceRun.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
