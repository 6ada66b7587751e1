package fetch

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/playlistdoctor/playlist-doctor/internal/safeurl"
)

// ProbeResult reports reachability of one stream or document URL.
type ProbeResult struct {
	URL     string        `json:"url"`
	OK      bool          `json:"ok"`
	Status  int           `json:"status,omitempty"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

// Probe issues a ranged GET against rawURL and reports status and latency.
// A ranged request keeps the response tiny even when the target is a live
// stream; servers that ignore Range still respond quickly because only the
// header exchange is timed before the body is discarded.
func (f *Fetcher) Probe(ctx context.Context, rawURL string) ProbeResult {
	res := ProbeResult{URL: safeurl.Redact(rawURL)}
	if !safeurl.IsHTTPOrHTTPS(rawURL) {
		res.Error = ErrBadScheme.Error()
		return res
	}
	if err := f.limiterFor(rawURL).Wait(ctx); err != nil {
		res.Error = err.Error()
		return res
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Range", "bytes=0-0")

	client := f.Client
	if client == nil {
		client = defaultClient
	}
	start := time.Now()
	resp, err := client.Do(req)
	res.Latency = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))

	res.Status = resp.StatusCode
	res.OK = resp.StatusCode >= 200 && resp.StatusCode < 400
	return res
}
