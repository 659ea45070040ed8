package cards

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"
)

// HTTPFetcher fetches pages over an SSRF-guarded HTTP client: every dialed
// address is checked after DNS resolution, and every redirect hop is
// validated like the original URL.
type HTTPFetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
}

// NewHTTPFetcher creates a fetcher from cfg. cfg.AllowPrivate disables the
// address checks and is meant for tests against local servers only.
func NewHTTPFetcher(cfg Config) *HTTPFetcher {
	return &HTTPFetcher{
		client:       newGuardedClient(cfg.FetchTimeout, cfg.MaxRedirects, cfg.AllowPrivate),
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// dialControl rejects connections to blocked addresses. It runs after name
// resolution, so hostnames that resolve to private ranges are caught too.
func dialControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrSSRFBlocked, address)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil || isBlockedAddr(addr) {
		return fmt.Errorf("%w: %s", ErrSSRFBlocked, host)
	}
	return nil
}

func newGuardedClient(timeout time.Duration, maxRedirects int, allowPrivate bool) *http.Client {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}
	if !allowPrivate {
		dialer.Control = dialControl
	}

	transport := &http.Transport{
		// No Proxy: a proxy would dial on our behalf and bypass the address check.
		Proxy:                 nil,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			if _, err := validateURL(req.URL.String(), allowPrivate); err != nil {
				return fmt.Errorf("%w: redirect to %s", ErrSSRFBlocked, req.URL.Redacted())
			}
			return nil
		},
	}
}

// Fetch performs a single GET against rawURL and returns the body as UTF-8.
// Bodies longer than the configured limit are truncated rather than rejected;
// metadata lives in the document head.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Reason: ReasonNetwork, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyFetchError(ctx, rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: rawURL, Reason: ReasonStatus, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, classifyFetchError(ctx, rawURL, err)
	}
	if int64(len(body)) == f.maxBodyBytes {
		slog.Debug("[CARDS] response body truncated",
			"url", rawURL,
			"limit_bytes", f.maxBodyBytes,
		)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &FetchError{URL: rawURL, Reason: ReasonEmptyBody, StatusCode: resp.StatusCode}
	}
	return decodeHTML(body, resp.Header.Get("Content-Type")), nil
}

func classifyFetchError(ctx context.Context, rawURL string, err error) error {
	switch {
	case errors.Is(err, ErrSSRFBlocked):
		return &FetchError{URL: rawURL, Reason: ReasonBlocked, Err: err}
	case ctx.Err() != nil:
		return &FetchError{URL: rawURL, Reason: ReasonTimeout, Err: ctx.Err()}
	case isTimeoutError(err):
		return &FetchError{URL: rawURL, Reason: ReasonTimeout, Err: err}
	default:
		return &FetchError{URL: rawURL, Reason: ReasonNetwork, Err: err}
	}
}

// isTimeoutError checks if the error is a timeout-related error.
func isTimeoutError(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
