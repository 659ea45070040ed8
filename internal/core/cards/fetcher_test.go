package cards

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFetcherConfig() Config {
	cfg := DefaultConfig()
	cfg.FetchTimeout = 2 * time.Second
	cfg.AllowPrivate = true
	return cfg
}

func TestHTTPFetcher_Fetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		assert.Contains(t, r.Header.Get("Accept"), "text/html")
		_, _ = w.Write([]byte("<title>Hello</title>"))
	}))
	defer server.Close()

	body, err := NewHTTPFetcher(testFetcherConfig()).Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "<title>Hello</title>", string(body))
}

func TestHTTPFetcher_Fetch_DecodesDeclaredCharset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<title>Caf\xe9</title>"))
	}))
	defer server.Close()

	body, err := NewHTTPFetcher(testFetcherConfig()).Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "<title>Café</title>", string(body))
	assert.Equal(t, "Café", Extract(body, server.URL).Title)
}

func TestHTTPFetcher_Fetch_Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewHTTPFetcher(testFetcherConfig()).Fetch(context.Background(), server.URL)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchStatus))
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusServiceUnavailable, fe.StatusCode)
	assert.True(t, hostFailure(err))
}

func TestHTTPFetcher_Fetch_NotFoundIsNotHostFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := NewHTTPFetcher(testFetcherConfig()).Fetch(context.Background(), server.URL)

	require.ErrorIs(t, err, ErrFetchStatus)
	assert.False(t, hostFailure(err))
}

func TestHTTPFetcher_Fetch_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("  \n "))
	}))
	defer server.Close()

	_, err := NewHTTPFetcher(testFetcherConfig()).Fetch(context.Background(), server.URL)

	assert.ErrorIs(t, err, ErrEmptyBody)
}

func TestHTTPFetcher_Fetch_TruncatesLargeBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer server.Close()

	cfg := testFetcherConfig()
	cfg.MaxBodyBytes = 1024

	body, err := NewHTTPFetcher(cfg).Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Len(t, body, 1024)
}

func TestHTTPFetcher_Fetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	cfg := testFetcherConfig()
	cfg.FetchTimeout = 100 * time.Millisecond

	_, err := NewHTTPFetcher(cfg).Fetch(context.Background(), server.URL)

	assert.ErrorIs(t, err, ErrFetchTimeout)
}

func TestHTTPFetcher_Fetch_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := NewHTTPFetcher(testFetcherConfig()).Fetch(ctx, server.URL)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPFetcher_Fetch_RedirectLimit(t *testing.T) {
	var hops atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hops.Add(1)
		http.Redirect(w, r, "/next", http.StatusFound)
	}))
	defer server.Close()

	cfg := testFetcherConfig()
	cfg.MaxRedirects = 3

	_, err := NewHTTPFetcher(cfg).Fetch(context.Background(), server.URL)

	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, int32(4), hops.Load())
}

func TestHTTPFetcher_Fetch_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<title>New</title>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	body, err := NewHTTPFetcher(testFetcherConfig()).Fetch(context.Background(), server.URL+"/old")

	require.NoError(t, err)
	assert.Contains(t, string(body), "New")
}

func TestHTTPFetcher_Fetch_BlocksPrivateDial(t *testing.T) {
	var called atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
	}))
	defer server.Close()

	cfg := testFetcherConfig()
	cfg.AllowPrivate = false

	_, err := NewHTTPFetcher(cfg).Fetch(context.Background(), server.URL)

	assert.ErrorIs(t, err, ErrSSRFBlocked)
	assert.False(t, called.Load())
	assert.False(t, hostFailure(err))
}

func TestHTTPFetcher_Fetch_BlocksRedirectToPrivate(t *testing.T) {
	// Exercise CheckRedirect directly; the dial guard would otherwise reject
	// the loopback test server before any redirect is seen.
	client := newGuardedClient(time.Second, 3, false)
	req := httptest.NewRequest(http.MethodGet, "http://169.254.169.254/latest/meta-data", nil)
	via := []*http.Request{httptest.NewRequest(http.MethodGet, "https://example.com/", nil)}

	err := client.CheckRedirect(req, via)

	assert.ErrorIs(t, err, ErrSSRFBlocked)
}

func TestDialControl(t *testing.T) {
	assert.ErrorIs(t, dialControl("tcp", "127.0.0.1:80", nil), ErrSSRFBlocked)
	assert.ErrorIs(t, dialControl("tcp", "[::1]:443", nil), ErrSSRFBlocked)
	assert.ErrorIs(t, dialControl("tcp", "10.0.0.8:80", nil), ErrSSRFBlocked)
	assert.NoError(t, dialControl("tcp", "93.184.216.34:443", nil))
}
