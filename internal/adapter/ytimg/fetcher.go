// Package ytimg fetches thumbnail images from the i.ytimg.com image host.
package ytimg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cwygoda/thumbcap/internal/domain"
)

const defaultBaseURL = "https://i.ytimg.com"
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ErrNoQuality is returned when no ladder level yields content for an id.
var ErrNoQuality = errors.New("no thumbnail available at any quality")

// ErrExists is returned when a destination file is present and overwrite
// was not requested.
var ErrExists = errors.New("destination exists")

var sharedTransport = &http.Transport{
	MaxIdleConns:        20,
	MaxIdleConnsPerHost: 10,
	DialContext: (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	TLSHandshakeTimeout:   10 * time.Second,
	ResponseHeaderTimeout: 15 * time.Second,
	IdleConnTimeout:       90 * time.Second,
}

// Mode selects how many quality levels one Fetch touches.
type Mode int

const (
	// ModeBest probes the ladder best to worst, accepting the first level
	// that returns content.
	ModeBest Mode = iota
	// ModeFixed requests exactly one level; a miss is reported, never
	// silently retried at another level.
	ModeFixed
	// ModeAll requests every level independently.
	ModeAll
)

// Selector names the quality policy for one fetch.
type Selector struct {
	Mode  Mode
	Level domain.Quality // ModeFixed only
}

// Result records one written file.
type Result struct {
	Quality domain.Quality
	Path    string
	Bytes   int64
}

// Client downloads thumbnails with a bounded-timeout HTTP client.
type Client struct {
	http    *http.Client
	baseURL string
}

// New creates a Client with the given per-request timeout.
func New(timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: &uaTransport{base: sharedTransport},
		},
		baseURL: defaultBaseURL,
	}
}

// NewWithBaseURL creates a Client against an alternate image host. Tests
// point this at a local server.
func NewWithBaseURL(baseURL string, timeout time.Duration) *Client {
	c := New(timeout)
	c.baseURL = baseURL
	return c
}

type uaTransport struct {
	base http.RoundTripper
}

func (t *uaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", defaultUserAgent)
	}
	return t.base.RoundTrip(req)
}

// Fetch implements domain.ThumbnailFetcher: best-available quality written
// next to dest's directory as "<id>.jpg". An already-present file is
// reported as ErrExists without touching the network.
func (c *Client) Fetch(ctx context.Context, id, dest string) (domain.Quality, int64, error) {
	results, err := c.FetchWith(ctx, id, Selector{Mode: ModeBest}, filepath.Dir(dest), false)
	if err != nil {
		return "", 0, err
	}
	return results[0].Quality, results[0].Bytes, nil
}

// FetchWith downloads per the selector into destDir. File naming is
// "<id>.jpg" for single-level modes and "<id>-<level>.jpg" for ModeAll.
// Existing destination files are left untouched unless overwrite is set.
func (c *Client) FetchWith(ctx context.Context, id string, sel Selector, destDir string, overwrite bool) ([]Result, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, err
	}

	switch sel.Mode {
	case ModeFixed:
		if !domain.ValidQuality(sel.Level) {
			return nil, fmt.Errorf("unknown quality level %q", sel.Level)
		}
		dest := filepath.Join(destDir, id+".jpg")
		r, err := c.fetchLevel(ctx, id, sel.Level, dest, overwrite)
		if err != nil {
			return nil, err
		}
		return []Result{r}, nil

	case ModeAll:
		var results []Result
		var firstErr error
		for _, level := range domain.Ladder {
			dest := filepath.Join(destDir, fmt.Sprintf("%s-%s.jpg", id, level))
			r, err := c.fetchLevel(ctx, id, level, dest, overwrite)
			if err != nil {
				// Individual level misses do not abort the others.
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			results = append(results, r)
		}
		if len(results) == 0 && firstErr != nil {
			return nil, firstErr
		}
		return results, nil

	default: // ModeBest
		dest := filepath.Join(destDir, id+".jpg")
		for i := len(domain.Ladder) - 1; i >= 0; i-- {
			r, err := c.fetchLevel(ctx, id, domain.Ladder[i], dest, overwrite)
			if err == nil {
				return []Result{r}, nil
			}
			if errors.Is(err, ErrExists) || ctx.Err() != nil {
				return nil, err
			}
		}
		return nil, ErrNoQuality
	}
}

// Probe checks connectivity to the image host with a short deadline.
func (c *Client) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) fetchLevel(ctx context.Context, id string, level domain.Quality, dest string, overwrite bool) (Result, error) {
	if !overwrite {
		if _, err := os.Stat(dest); err == nil {
			return Result{}, fmt.Errorf("%w: %s", ErrExists, dest)
		}
	}

	url := fmt.Sprintf("%s/vi/%s/%s.jpg", c.baseURL, id, level)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("%s for %s at %s", resp.Status, id, level)
	}

	// Write via temp file in the same directory so an interrupted fetch
	// never leaves a half-written image under the final name.
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".thumbcap-*")
	if err != nil {
		return Result{}, err
	}
	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return Result{}, err
	}
	if n == 0 {
		os.Remove(tmp.Name())
		return Result{}, fmt.Errorf("empty response for %s at %s", id, level)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return Result{}, err
	}
	return Result{Quality: level, Path: dest, Bytes: n}, nil
}
