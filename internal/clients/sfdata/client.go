// Package sfdata fetches 911 dispatch records from the San Francisco
// open-data (Socrata) endpoint. Read-only, reverse-chronological.
package sfdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/safewalk/server/internal/errdefs"
	"github.com/safewalk/server/internal/lib/incident"
)

const stage = "feed"

// Client provides access to the law-enforcement dispatched calls dataset.
type Client struct {
	baseURL    string
	dataset    string
	limit      int
	httpClient *http.Client
}

// NewClient creates a feed client. dataset is the Socrata resource id
// (e.g. "gnap-fj3t"); limit bounds the page size of one fetch.
func NewClient(baseURL, dataset string, limit int, timeout time.Duration) *Client {
	if limit <= 0 {
		limit = 1000
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		dataset: dataset,
		limit:   limit,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchCalls retrieves the current feed page, newest first. The records come
// back raw; normalization is the caller's concern.
func (c *Client) FetchCalls(ctx context.Context) ([]incident.RawIncident, error) {
	params := url.Values{}
	params.Set("$order", "received_datetime DESC")
	params.Set("$limit", fmt.Sprintf("%d", c.limit))

	requestURL := fmt.Sprintf("%s/resource/%s.json?%s", c.baseURL, c.dataset, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errdefs.Wrap(errdefs.UpstreamUnavailable, stage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errdefs.Newf(errdefs.UpstreamUnavailable, stage,
			"feed returned %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errdefs.Wrap(errdefs.UpstreamUnavailable, stage, err)
	}

	// The endpoint contract is a JSON array; anything else is a malformed
	// batch, not a per-record problem.
	var raws []incident.RawIncident
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, errdefs.Wrap(errdefs.FeedFormat, stage, err)
	}

	return raws, nil
}
