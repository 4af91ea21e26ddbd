package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-fetch-api/core/domain"
	coreerrors "content-fetch-api/core/errors"
	"content-fetch-api/core/interfaces"
	"content-fetch-api/infrastructure/logger"
	"content-fetch-api/infrastructure/search/brave"
	"content-fetch-api/infrastructure/search/serper"
	"content-fetch-api/pkg/config"
)

const noHeadlessTable = `
default:
  min_delay: 10ms
  max_delay: 20ms
  timeout: 5s
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return testConfigWithTable(t, noHeadlessTable)
}

func testConfigWithTable(t *testing.T, table string) *config.Config {
	t.Helper()
	os.Clearenv()
	t.Cleanup(os.Clearenv)

	path := filepath.Join(t.TempDir(), "domains.yaml")
	require.NoError(t, os.WriteFile(path, []byte(table), 0o644))
	os.Setenv("AR_DOMAIN_POLICY_FILE", path)
	os.Setenv("AR_RANDOMIZE_DELAYS", "false")

	cfg, err := config.LoadFromEnv()
	require.NoError(t, err)
	return cfg
}

func TestNewApp_WithoutCredentialOrHeadless(t *testing.T) {
	cfg := testConfig(t)

	a, err := newApp(cfg, logger.Nop{})
	require.NoError(t, err)
	defer a.close()

	assert.Nil(t, a.collector)
	assert.NotNil(t, a.pool)
	assert.NotNil(t, a.robots)
	assert.Equal(t, 5*time.Second, a.orchestrator.Policy("https://example.com/").Timeout)
}

func TestNewApp_WithCredentialBuildsCollector(t *testing.T) {
	cfg := testConfig(t)
	cfg.Search.BraveAPIKey = "token"

	a, err := newApp(cfg, logger.Nop{})
	require.NoError(t, err)
	defer a.close()

	assert.NotNil(t, a.collector)
}

func TestNewApp_InvalidPolicyFile(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default:\n  bogus: 1\n"), 0o644))
	cfg.Fetch.DomainPolicyFile = path

	_, err := newApp(cfg, logger.Nop{})
	require.Error(t, err)
	var cfgErr *coreerrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "AR_DOMAIN_POLICY_FILE", cfgErr.Setting)
}

func TestNewApp_UnknownRenderEngine(t *testing.T) {
	cfg := testConfig(t)
	cfg.Fetch.AllowHeadless = true
	cfg.Fetch.RenderEngine = "webkit"

	_, err := newApp(cfg, logger.Nop{})
	var cfgErr *coreerrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "AR_RENDER_ENGINE", cfgErr.Setting)
}

func TestNewApp_UnknownCacheType(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Type = "memcached"

	_, err := newApp(cfg, logger.Nop{})
	var cfgErr *coreerrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "CACHE_TYPE", cfgErr.Setting)
}

func TestHeadlessReachable(t *testing.T) {
	table := &config.DomainTable{Domains: map[string]config.DomainEntry{"a.com": {}}}
	assert.False(t, headlessReachable(config.FetchConfig{}, table))
	assert.True(t, headlessReachable(config.FetchConfig{AllowHeadless: true}, table))

	table.Domains["b.com"] = config.DomainEntry{AllowHeadless: true}
	assert.True(t, headlessReachable(config.FetchConfig{}, table))

	assert.True(t, headlessReachable(config.FetchConfig{}, config.BuiltinDomainTable()))
}

func TestNewSearchProvider(t *testing.T) {
	p, err := newSearchProvider(config.SearchConfig{Provider: "brave"}, depsForTest())
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = newSearchProvider(config.SearchConfig{Provider: "brave", BraveAPIKey: "k"}, depsForTest())
	require.NoError(t, err)
	assert.IsType(t, &brave.Client{}, p)

	p, err = newSearchProvider(config.SearchConfig{Provider: "serper", SerperAPIKey: "k"}, depsForTest())
	require.NoError(t, err)
	assert.IsType(t, &serper.Client{}, p)

	_, err = newSearchProvider(config.SearchConfig{Provider: "bing", BraveAPIKey: "k"}, depsForTest())
	var cfgErr *coreerrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "SEARCH_PROVIDER", cfgErr.Setting)
}

func TestApp_RunFetchesPages(t *testing.T) {
	body := "<html><head><title>Doc</title></head><body><article><p>" +
		strings.Repeat("Readable paragraph text for the extractor. ", 30) +
		"</p></article></body></html>"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /private\n"))
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(body))
	}))
	defer server.Close()

	cfg := testConfig(t)
	a, err := newApp(cfg, logger.Nop{})
	require.NoError(t, err)
	defer a.close()

	reqs := []domain.FetchRequest{
		{URL: server.URL + "/article"},
		{URL: server.URL + "/private/page"},
	}

	got := map[string]domain.FetchResult{}
	err = a.run(context.Background(), reqs, func(r domain.FetchResult) error {
		got[r.URL] = r
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	ok := got[server.URL+"/article"]
	assert.Equal(t, domain.StatusSuccess, ok.Status)
	assert.Equal(t, domain.StrategyHTTP, ok.Strategy)
	require.NotNil(t, ok.Content)
	assert.Contains(t, ok.Content.Body, "Readable paragraph text")

	blocked := got[server.URL+"/private/page"]
	assert.Equal(t, domain.StatusBlocked, blocked.Status)
}

func TestApp_RunHonorsDomainTimeoutAboveDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		time.Sleep(600 * time.Millisecond)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articlePage("Slow report")))
	}))
	defer server.Close()

	cfg := testConfigWithTable(t, `
default:
  min_delay: 10ms
  max_delay: 20ms
  timeout: 300ms
  max_retries: 0
domains:
  127.0.0.1:
    timeout: 3s
`)
	a, err := newApp(cfg, logger.Nop{})
	require.NoError(t, err)
	defer a.close()

	var got []domain.FetchResult
	err = a.run(context.Background(), []domain.FetchRequest{{URL: server.URL + "/report"}}, func(r domain.FetchResult) error {
		got = append(got, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.StatusSuccess, got[0].Status, got[0].Error)
}

func TestApp_ConcurrentBatchesShareDomainSpacing(t *testing.T) {
	var inFlight, maxInFlight int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(200 * time.Millisecond)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articlePage("Batch page")))
	}))
	defer server.Close()

	cfg := testConfig(t)
	a, err := newApp(cfg, logger.Nop{})
	require.NoError(t, err)
	defer a.close()

	var wg sync.WaitGroup
	var successes int32
	for batch := 0; batch < 2; batch++ {
		wg.Add(1)
		go func(batch int) {
			defer wg.Done()
			reqs := []domain.FetchRequest{
				{URL: fmt.Sprintf("%s/batch-%d/a", server.URL, batch)},
				{URL: fmt.Sprintf("%s/batch-%d/b", server.URL, batch)},
			}
			err := a.run(context.Background(), reqs, func(r domain.FetchResult) error {
				if r.Status == domain.StatusSuccess {
					atomic.AddInt32(&successes, 1)
				}
				return nil
			})
			assert.NoError(t, err)
		}(batch)
	}
	wg.Wait()

	assert.Equal(t, int32(4), atomic.LoadInt32(&successes))
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight), "requests to one host overlapped")
}

// articlePage returns a document comfortably above the thin-content threshold
func articlePage(title string) string {
	return "<html><head><title>" + title + "</title></head><body><article><p>" +
		strings.Repeat("Readable paragraph text for the extractor. ", 30) +
		"</p></article></body></html>"
}

func TestParseURLList(t *testing.T) {
	input := "# seed list\nhttps://a.com/\n\n  https://b.com/x  \n#https://skip.com/\n"
	urls, err := parseURLList(bytes.NewBufferString(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.com/", "https://b.com/x"}, urls)
}

func depsForTest() interfaces.Dependencies {
	return interfaces.Dependencies{Logger: logger.Nop{}}
}
