// ABOUTME: Direct HTTP page fetcher running each request through its domain's session
// ABOUTME: Sends browser headers, decodes gzip/deflate/brotli and caps bodies at 5MB

package standard

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"content-fetch-api/core/domain"
	"content-fetch-api/core/session"
	"content-fetch-api/pkg/utils/hostname"
)

// DefaultMaxBodyBytes caps how much of a page body is kept
const DefaultMaxBodyBytes = 5 * 1024 * 1024

// PageFetcherOptions configures the direct HTTP strategy
type PageFetcherOptions struct {
	// UserAgent overrides the rotation pool unless it names a bot
	UserAgent    string
	MaxBodyBytes int64
	Referer      string
}

// PageFetcher implements interfaces.PageFetcher on top of the session registry
type PageFetcher struct {
	sessions *session.Registry
	opts     PageFetcherOptions
	pick     func(n int) int
}

// NewPageFetcher creates a page fetcher. Sessions supply cookies and pooled connections.
func NewPageFetcher(sessions *session.Registry, opts PageFetcherOptions) *PageFetcher {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &PageFetcher{sessions: sessions, opts: opts}
}

// Fetch downloads rawURL. Any status code is returned as a response; an error
// means no response arrived.
func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) (*domain.RawResponse, error) {
	dom, err := hostname.FromURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header = BrowserHeaders(PickUserAgent(f.opts.UserAgent, f.pick), f.opts.Referer)

	client := f.sessions.Get(dom).Client()

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp, f.opts.MaxBodyBytes)
	if err != nil {
		return nil, err
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &domain.RawResponse{
		URL:         rawURL,
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Latency:     time.Since(start),
	}, nil
}

// readBody decodes the content encoding and keeps at most limit bytes
func readBody(resp *http.Response, limit int64) ([]byte, error) {
	reader := io.Reader(resp.Body)

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl, err := deflateReader(bufio.NewReader(resp.Body))
		if err != nil {
			return nil, fmt.Errorf("deflate decode: %w", err)
		}
		defer fl.Close()
		reader = fl
	}

	body, err := io.ReadAll(io.LimitReader(reader, limit))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// deflateReader decodes HTTP deflate, which is zlib-wrapped, and falls back
// to raw DEFLATE for servers that omit the zlib header
func deflateReader(br *bufio.Reader) (io.ReadCloser, error) {
	hdr, err := br.Peek(2)
	if err == nil && hdr[0]&0x0f == 8 && (uint16(hdr[0])<<8|uint16(hdr[1]))%31 == 0 {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}
