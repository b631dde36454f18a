// Package gutenberg downloads and cleans public-domain books from Project
// Gutenberg so they can be fed to a language model as training corpora.
//
// Gutenberg hosts the same book under several URL layouts depending on its
// age, so Download tries each known layout in order and returns the first
// hit. Clean strips the licensing boilerplate that surrounds the actual book
// text and collapses whitespace.
package gutenberg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// bookIDPlaceholder is substituted with the numeric book ID in each
	// URL template.
	bookIDPlaceholder = "{book_id}"

	// userAgent identifies this tool to gutenberg.org, which rejects
	// anonymous bulk clients.
	userAgent = "ml-intern-assessment/1.0"

	startFlag = "*** START OF THE PROJECT GUTENBERG EBOOK"
	endFlag   = "*** END OF THE PROJECT GUTENBERG EBOOK"
)

// DefaultURLTemplates lists the known Gutenberg URL layouts, tried in order.
var DefaultURLTemplates = []string{
	"https://www.gutenberg.org/cache/epub/{book_id}/pg{book_id}.txt",
	"https://www.gutenberg.org/files/{book_id}/{book_id}-0.txt",
	"https://www.gutenberg.org/files/{book_id}/{book_id}.txt",
}

var (
	startPattern      = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(startFlag))
	endPattern        = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(endFlag))
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Client fetches book texts from Project Gutenberg.
type Client struct {
	httpClient *http.Client
	urls       []string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, for callers that need
// their own transport or timeout policy.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithURLTemplates replaces the set of URL layouts to try. Each template
// must contain the {book_id} placeholder.
func WithURLTemplates(urls []string) Option {
	return func(c *Client) {
		if len(urls) > 0 {
			c.urls = urls
		}
	}
}

// WithLogger sets the logger for the Client. By default, all logs are
// discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Client with a 30 second request timeout and the
// default URL layouts.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		urls:       DefaultURLTemplates,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Download fetches the raw text of a book by its numeric Gutenberg ID. Each
// URL layout is tried in order; the first successful response wins. If every
// layout fails, the returned error carries all per-URL failures.
func (c *Client) Download(ctx context.Context, bookID int) (string, error) {
	if bookID < 1 {
		return "", fmt.Errorf("book id must be >= 1, got %d", bookID)
	}

	id := strconv.Itoa(bookID)
	var attempts []error
	for _, template := range c.urls {
		url := strings.ReplaceAll(template, bookIDPlaceholder, id)
		text, err := c.fetch(ctx, url)
		if err != nil {
			attempts = append(attempts, err)
			c.logger.DebugContext(ctx, "download attempt failed",
				slog.String("url", url),
				slog.String("error", err.Error()),
			)
			continue
		}
		c.logger.InfoContext(ctx, "book downloaded",
			slog.Int("book_id", bookID),
			slog.String("url", url),
			slog.Int("bytes", len(text)),
		)
		return text, nil
	}

	return "", fmt.Errorf("unable to download book %d: %w", bookID, errors.Join(attempts...))
}

// fetch performs a single GET and returns the response body as a string.
func (c *Client) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for '%s': %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch '%s': %w", url, err)
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s for '%s'", resp.Status, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response from '%s': %w", url, err)
	}
	return string(body), nil
}

// StripBoilerplate removes the standard Project Gutenberg license header and
// footer so only the book content remains. The markers are matched case
// insensitively; a missing start marker keeps the text from the beginning
// and a missing end marker keeps it to the end.
func StripBoilerplate(raw string) string {
	if raw == "" {
		return ""
	}

	start := 0
	if loc := startPattern.FindStringIndex(raw); loc != nil {
		// Content begins on the line after the marker.
		if nl := strings.IndexByte(raw[loc[1]:], '\n'); nl != -1 {
			start = loc[1] + nl
		} else {
			start = len(raw)
		}
	}

	end := len(raw)
	if loc := endPattern.FindStringIndex(raw); loc != nil {
		end = loc[0]
	}

	if start >= end {
		return ""
	}
	return strings.TrimSpace(raw[start:end])
}

// NormalizeWhitespace collapses every run of whitespace to a single space
// and trims the ends.
func NormalizeWhitespace(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// Clean applies StripBoilerplate and NormalizeWhitespace in order. The
// result is a single line of book text ready for training.
func Clean(raw string) string {
	return NormalizeWhitespace(StripBoilerplate(raw))
}
