package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// waybackHost is the single host all archive.org traffic is gated on
const waybackHost = "web.archive.org"

// waybackClient retrieves snapshots from the Wayback Machine for source
// URLs whose live page is gone. Many cited articles disappear behind
// paywalls or takedowns; the archive preserves the evidence.
type waybackClient struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	cdxBase    string // Overridable in tests
}

func newWaybackClient(client *http.Client, userAgent string, maxBytes int64) *waybackClient {
	return &waybackClient{
		httpClient: client,
		userAgent:  userAgent,
		maxBytes:   maxBytes,
		cdxBase:    "https://web.archive.org",
	}
}

// fetch looks up snapshots through the CDX API and returns the first one
// yielding viable article text.
func (w *waybackClient) fetch(ctx context.Context, rawURL string, minText int) (string, error) {
	timestamps, err := w.snapshots(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if len(timestamps) == 0 {
		return "", fmt.Errorf("no wayback snapshots for %s", rawURL)
	}

	for _, ts := range timestamps {
		snapshotURL := fmt.Sprintf("%s/web/%sid_/%s", w.cdxBase, ts, rawURL)
		body, err := w.get(ctx, snapshotURL)
		if err != nil {
			continue
		}
		text := ExtractText(body)
		if len(text) >= minText {
			return text, nil
		}
	}
	return "", fmt.Errorf("wayback snapshots not usable for %s", rawURL)
}

// snapshots queries the CDX index, newest-first limited to three rows.
// Response shape: a JSON array whose first row is the column header.
func (w *waybackClient) snapshots(ctx context.Context, rawURL string) ([]string, error) {
	cdxURL := fmt.Sprintf("%s/cdx/search/cdx?url=%s&output=json&limit=3",
		w.cdxBase, url.QueryEscape(rawURL))

	body, err := w.get(ctx, cdxURL)
	if err != nil {
		return nil, fmt.Errorf("cdx lookup: %w", err)
	}

	var rows [][]string
	if err := json.Unmarshal([]byte(body), &rows); err != nil {
		return nil, fmt.Errorf("parse cdx response: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	var timestamps []string
	for _, row := range rows[1:] {
		if len(row) > 1 {
			timestamps = append(timestamps, row[1])
		}
	}
	return timestamps, nil
}

func (w *waybackClient) get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", w.userAgent)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, w.maxBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}
