package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fiberloom/fiberloom/internal/crawler"
)

func testConfig(t *testing.T) crawler.Config {
	t.Helper()
	return crawler.Config{
		Domain:            "example.com",
		BaseURL:           "https://example.com/",
		UserAgent:         "fiberloom-test/1.0",
		Concurrency:       5,
		RatePerSecond:     1000,
		RateBurst:         1000,
		RequestTimeout:    5 * time.Second,
		MaxURLsPerSitemap: 100,
	}
}

func TestFetchReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("<html>hello</html>"))
	}))
	defer srv.Close()

	f, err := New(testConfig(t), zap.NewNop())
	require.NoError(t, err)

	body, err := f.Fetch(context.Background(), srv.URL+"/product/x")
	require.NoError(t, err)
	require.Equal(t, "<html>hello</html>", string(body))
}

func TestFetchNon2xxIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	f, err := New(testConfig(t), zap.NewNop())
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), srv.URL+"/product/x")
	var fe *crawler.FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, http.StatusGone, fe.StatusCode)
}

func TestFetchRespectsRateCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.RatePerSecond = 50
	cfg.RateBurst = 1
	f, err := New(cfg, zap.NewNop())
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := f.Fetch(context.Background(), srv.URL+"/p/x")
		require.NoError(t, err)
	}
	// Burst of 1 at 50 rps means the second and third fetch each wait ~20ms.
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestFetchCanceledContext(t *testing.T) {
	f, err := New(testConfig(t), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Fetch(ctx, "http://127.0.0.1:0/never")
	require.Error(t, err)
}
