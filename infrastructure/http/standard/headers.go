// ABOUTME: Realistic desktop browser request headers for direct page retrieval
// ABOUTME: Rotates through a small pool of current desktop user agents

package standard

import (
	"math/rand/v2"
	"net/http"
	"strings"
)

// BrowserUserAgents is the rotation pool used when no browser agent is configured
var BrowserUserAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// PickUserAgent returns configured unless it is empty or identifies a bot,
// in which case a pool entry is chosen with pick.
func PickUserAgent(configured string, pick func(n int) int) string {
	if configured != "" && !strings.Contains(strings.ToLower(configured), "bot") {
		return configured
	}
	if pick == nil {
		pick = rand.IntN
	}
	return BrowserUserAgents[pick(len(BrowserUserAgents))]
}

// BrowserHeaders returns the header set a desktop browser sends for a top-level navigation
func BrowserHeaders(userAgent, referer string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Sec-Fetch-User", "?1")
	h.Set("Cache-Control", "max-age=0")
	h.Set("DNT", "1")

	if referer != "" {
		h.Set("Referer", referer)
		h.Set("Sec-Fetch-Site", "cross-site")
	}
	return h
}
