// Package ytweb extracts title and channel from a video's watch page.
// Extraction is text-pattern matching against the page payload; markup
// drift is an expected, recoverable failure mode, never fatal to a batch.
package ytweb

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cwygoda/thumbcap/internal/domain"
)

const defaultBaseURL = "https://www.youtube.com"
const titleSuffix = " - YouTube"

// Page bodies past this point carry no metadata we look for.
const maxBodyBytes = 2 * 1024 * 1024

var (
	// ErrNoTitle and ErrNoChannel report a pattern miss for that field.
	ErrNoTitle   = errors.New("title not found in page")
	ErrNoChannel = errors.New("channel not found in page")

	titleRe   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	channelRe = regexp.MustCompile(`"ownerChannelName"\s*:\s*("(?:[^"\\]|\\.)*")`)
)

// Scraper implements domain.MetadataScraper against the watch page.
type Scraper struct {
	http    *http.Client
	baseURL string
}

// New creates a Scraper with the given per-request timeout.
func New(timeout time.Duration) *Scraper {
	return &Scraper{
		http:    &http.Client{Timeout: timeout},
		baseURL: defaultBaseURL,
	}
}

// NewWithBaseURL creates a Scraper against an alternate page host.
func NewWithBaseURL(baseURL string, timeout time.Duration) *Scraper {
	s := New(timeout)
	s.baseURL = baseURL
	return s
}

// Scrape fetches the watch page and extracts both fields. Either pattern
// missing yields an error; callers only commit complete metadata.
func (s *Scraper) Scrape(ctx context.Context, id string) (domain.Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/watch?v="+id, nil)
	if err != nil {
		return domain.Metadata{}, err
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	resp, err := s.http.Do(req)
	if err != nil {
		return domain.Metadata{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.Metadata{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.Metadata{}, err
	}

	content := string(body)
	title, err := extractTitle(content)
	if err != nil {
		return domain.Metadata{}, err
	}
	channel, err := extractChannel(content)
	if err != nil {
		return domain.Metadata{}, err
	}
	return domain.Metadata{Title: title, Channel: channel}, nil
}

func extractTitle(content string) (string, error) {
	m := titleRe.FindStringSubmatch(content)
	if len(m) < 2 {
		return "", ErrNoTitle
	}
	title := html.UnescapeString(strings.TrimSpace(m[1]))
	title = strings.TrimSuffix(title, titleSuffix)
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrNoTitle
	}
	return title, nil
}

func extractChannel(content string) (string, error) {
	m := channelRe.FindStringSubmatch(content)
	if len(m) < 2 {
		return "", ErrNoChannel
	}
	// The marker value is a JSON string literal. Unquote rejects the
	// JSON-only \/ escape, so normalize it first.
	channel, err := strconv.Unquote(strings.ReplaceAll(m[1], `\/`, `/`))
	if err != nil || strings.TrimSpace(channel) == "" {
		return "", ErrNoChannel
	}
	return strings.TrimSpace(channel), nil
}
