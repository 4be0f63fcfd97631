package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/civicdata/corroborate/internal/model"
	"github.com/civicdata/corroborate/internal/util"
	"github.com/civicdata/corroborate/internal/worker"
)

const fetchMaxRetries = 3

// fetchSleepFunc is the sleep used between retries (injectable for tests)
var fetchSleepFunc = time.Sleep

// Sentinel errors let callers classify a failed fetch
var (
	ErrRobotsDisallowed = errors.New("robots.txt disallows fetch")
	ErrUnparseable      = errors.New("article text could not be isolated")
)

// Fetcher retrieves article text from source URLs. Fetches to the same
// host are spaced through the shared domain gate; distinct hosts proceed
// in parallel.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	minText    int
	gate       *worker.DomainGate
	robots     *util.RobotsChecker
	useWayback bool
	wayback    *waybackClient
}

// New creates a fetcher from the HTTP and fetch configuration
func New(httpCfg model.HTTPConfig, fetchCfg model.FetchConfig, gate *worker.DomainGate) *Fetcher {
	transport := &http.Transport{
		Proxy: util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
	}
	if httpCfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client := &http.Client{
		Timeout:   httpCfg.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("stopped after 5 redirects")
			}
			return nil
		},
	}

	f := &Fetcher{
		httpClient: client,
		userAgent:  httpCfg.UserAgent,
		maxBytes:   httpCfg.MaxBodyBytes,
		minText:    fetchCfg.MinTextLength,
		gate:       gate,
		useWayback: fetchCfg.UseWayback,
	}
	if fetchCfg.CheckRobots {
		f.robots = util.NewRobotsChecker(httpCfg.UserAgent, httpCfg.Timeout)
	}
	if f.useWayback {
		f.wayback = newWaybackClient(client, httpCfg.UserAgent, httpCfg.MaxBodyBytes)
	}
	return f
}

// SourceText retrieves readable article text for a URL, trying the live
// page first and the Wayback Machine second. Each failed strategy is
// non-fatal; the last error is returned when everything fails.
func (f *Fetcher) SourceText(ctx context.Context, rawURL string) (string, model.TextOrigin, error) {
	if f.robots != nil && !f.robots.Allowed(ctx, rawURL) {
		return "", "", ErrRobotsDisallowed
	}

	text, directErr := f.fetchDirect(ctx, rawURL)
	if directErr == nil {
		return text, model.OriginWebDirect, nil
	}

	if f.wayback != nil {
		if err := f.gate.WaitHost(ctx, waybackHost); err != nil {
			return "", "", err
		}
		text, waybackErr := f.wayback.fetch(ctx, rawURL, f.minText)
		if waybackErr == nil {
			return text, model.OriginWebWayback, nil
		}
	}

	return "", "", directErr
}

// fetchDirect retrieves and extracts the live page with bounded retries
func (f *Fetcher) fetchDirect(ctx context.Context, rawURL string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < fetchMaxRetries; attempt++ {
		if err := f.gate.Wait(ctx, rawURL); err != nil {
			return "", err
		}

		text, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return "", err
		}
		if attempt < fetchMaxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			fetchSleepFunc(backoff)
		}
	}
	return "", lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	text := ExtractText(string(body))
	if len(text) < f.minText {
		return "", ErrUnparseable
	}
	return text, nil
}

// statusError carries a non-2xx response status
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %d", e.code)
}

// isRetryable reports whether a failure is worth another attempt:
// 5xx and 429 statuses plus transient network errors.
func isRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	if errors.Is(err, ErrUnparseable) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset")
}

// FailureReason classifies a fetch error for the audit trail
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrRobotsDisallowed):
		return model.ReasonRobotsDisallowed
	case errors.Is(err, ErrUnparseable):
		return model.ReasonUnparseable
	default:
		return model.ReasonUnreachable
	}
}
