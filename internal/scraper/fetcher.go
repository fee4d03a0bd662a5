package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxBodyBytes = 16 << 20
)

// NetworkError reports a failed read of a remote page. It is fatal to a
// source when fetching the listing-search page and non-fatal for the
// per-listing description.
type NetworkError struct {
	URL        string
	StatusCode int // 0 when the request never produced a response
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ErrUnexpectedStatus is wrapped by NetworkError for non-2xx responses.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Fetcher performs GET requests with a timeout. Transport errors, 5xx and 429
// responses are retried with doubling backoff; other statuses are final.
type Fetcher struct {
	UserAgent string
	Attempts  int
	Backoff   time.Duration
	client    *http.Client
}

// NewFetcher constructs a fetcher with a shared HTTP client.
func NewFetcher(timeout time.Duration, attempts int, userAgent string) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if attempts < 1 {
		attempts = 1
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Fetcher{
		UserAgent: userAgent,
		Attempts:  attempts,
		Backoff:   500 * time.Millisecond,
		client:    &http.Client{Timeout: timeout},
	}
}

// Fetch returns the body of url as text.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr error
	sleep := f.Backoff
	for attempt := 1; attempt <= f.Attempts; attempt++ {
		body, err := f.fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil || attempt == f.Attempts || !transient(err) {
			break
		}
		log.Printf("[fetcher] %v — retrying in %v (attempt %d/%d)", err, sleep, attempt+1, f.Attempts)
		select {
		case <-ctx.Done():
			return "", &NetworkError{URL: url, Err: ctx.Err()}
		case <-time.After(sleep):
		}
		sleep *= 2
	}
	return "", lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &NetworkError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "text/html,application/json;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &NetworkError{URL: url, Err: fmt.Errorf("http GET: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &NetworkError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &NetworkError{URL: url, StatusCode: resp.StatusCode, Err: ErrUnexpectedStatus}
	}
	return string(body), nil
}

// transient reports whether a failed attempt may succeed when repeated.
func transient(err error) bool {
	var nErr *NetworkError
	if !errors.As(err, &nErr) || nErr.StatusCode == 0 {
		return true
	}
	return nErr.StatusCode >= 500 || nErr.StatusCode == http.StatusTooManyRequests
}
