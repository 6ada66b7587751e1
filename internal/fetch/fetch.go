// Package fetch retrieves playlist and guide documents over HTTP. It owns the
// shared tuned client, per-host rate limiting, a single-retry policy for
// 429/5xx responses, and decompression of gzip/brotli response bodies (large
// guide feeds almost always ship compressed).
package fetch

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"

	"github.com/playlistdoctor/playlist-doctor/internal/safeurl"
)

const (
	// DefaultTimeout bounds a single document fetch end to end.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxBodyBytes caps decompressed document size. Guide feeds can be
	// tens of MB; anything past this is almost certainly not a playlist or
	// guide we should analyze.
	DefaultMaxBodyBytes = 64 << 20
	// DefaultPerHostRate limits request rate per upstream host.
	DefaultPerHostRate = rate.Limit(4)

	userAgent = "PlaylistDoctor/1.0"
)

// ErrBodyTooLarge is returned when a response exceeds the configured cap.
var ErrBodyTooLarge = errors.New("fetch: response body too large")

// ErrBadScheme is returned for non-http(s) URLs (file://, ftp:// and friends
// are rejected up front, see internal/safeurl).
var ErrBadScheme = errors.New("fetch: URL scheme must be http or https")

var defaultClient = &http.Client{
	Timeout: DefaultTimeout,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
	},
}

// Fetcher fetches documents. The zero value is usable: default client, cap
// and rate. Safe for concurrent use.
type Fetcher struct {
	Client       *http.Client
	MaxBodyBytes int64      // 0 = DefaultMaxBodyBytes
	PerHostRate  rate.Limit // 0 = DefaultPerHostRate
	Burst        int        // 0 = 2

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Fetch retrieves rawURL and returns the decoded body. 429 and 5xx responses
// are retried once (429 honors Retry-After, capped at 60s); other non-200
// statuses fail immediately.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if !safeurl.IsHTTPOrHTTPS(rawURL) {
		return nil, fmt.Errorf("%w: %s", ErrBadScheme, safeurl.Redact(rawURL))
	}
	if err := f.limiterFor(rawURL).Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := f.do(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		wait := retryAfter(resp.Header.Get("Retry-After"), 60*time.Second)
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		resp, err = f.do(ctx, rawURL)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch %s: HTTP %d", safeurl.Redact(rawURL), resp.StatusCode)
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", safeurl.Redact(rawURL), err)
	}

	maxBytes := f.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	data, err := readCapped(body, maxBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", safeurl.Redact(rawURL), err)
	}
	return data, nil
}

func (f *Fetcher) do(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	// Explicit Accept-Encoding disables the transport's transparent gzip, so
	// decodeBody sees Content-Encoding and handles both codings itself.
	req.Header.Set("Accept-Encoding", "gzip, br")
	client := f.Client
	if client == nil {
		client = defaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", safeurl.Redact(rawURL), err)
	}
	return resp, nil
}

func (f *Fetcher) limiterFor(rawURL string) *rate.Limiter {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Scheme + "://" + u.Host
	}
	limit := f.PerHostRate
	if limit <= 0 {
		limit = DefaultPerHostRate
	}
	burst := f.Burst
	if burst <= 0 {
		burst = 2
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.limiters == nil {
		f.limiters = make(map[string]*rate.Limiter)
	}
	lim, ok := f.limiters[host]
	if !ok {
		lim = rate.NewLimiter(limit, burst)
		f.limiters[host] = lim
	}
	return lim
}

// decodeBody wraps resp.Body according to Content-Encoding. Unknown codings
// fail rather than silently yielding garbage to the parsers.
func decodeBody(resp *http.Response) (io.Reader, error) {
	switch coding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))); coding {
	case "", "identity":
		return resp.Body, nil
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		return zr, nil
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", coding)
	}
}

func readCapped(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}

// retryAfter parses a Retry-After header (seconds or HTTP-date), capped at
// maxWait. Empty or unparsable values back off one second.
func retryAfter(s string, maxWait time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return 1 * time.Second
	}
	if sec, err := strconv.Atoi(s); err == nil && sec >= 0 {
		if d := time.Duration(sec) * time.Second; d <= maxWait {
			return d
		}
		return maxWait
	}
	t, err := time.Parse(time.RFC1123, s)
	if err != nil {
		return 1 * time.Second
	}
	until := time.Until(t)
	switch {
	case until <= 0:
		return 0
	case until > maxWait:
		return maxWait
	}
	return until
}
