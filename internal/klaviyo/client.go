// Package klaviyo is a minimal typed client for the parts of the Klaviyo API
// the exporter needs: the campaign listing (compound document with
// pagination), the metrics listing, and campaign-values reports.
package klaviyo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

// Options configures a Client.
type Options struct {
	BaseURL  string
	APIKey   string
	Revision string // API revision date, sent on every request
	Timeout  time.Duration
}

// Client talks to the Klaviyo API. All methods issue one HTTP round trip and
// return *APIError for non-2xx responses; retrying is the caller's concern.
type Client struct {
	http *resty.Client
}

// NewClient creates a Client with authentication and revision headers applied
// to every request.
func NewClient(opts Options) *Client {
	c := resty.New()
	c.SetBaseURL(opts.BaseURL)
	if opts.Timeout > 0 {
		c.SetTimeout(opts.Timeout)
	}
	c.SetHeader("Authorization", "Klaviyo-API-Key "+opts.APIKey)
	c.SetHeader("revision", opts.Revision)
	c.SetHeader("Accept", "application/json")
	c.SetHeader("Content-Type", "application/json")
	return &Client{http: c}
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("klaviyo: unexpected status %d: %s", e.StatusCode, e.Body)
}

// IsRateLimited reports whether err is a 429 response.
func IsRateLimited(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusTooManyRequests
}

// CampaignsQuery builds the initial listing query: email-channel campaigns
// with their messages included. Subsequent pages must not send a query; the
// next-page URL already embeds it.
func CampaignsQuery() url.Values {
	return url.Values{
		"filter":  []string{"equals(messages.channel,'email')"},
		"include": []string{"campaign-messages"},
	}
}

// Campaigns fetches one page of the campaign listing. pageURL is either the
// relative listing path ("/campaigns/") for the first page or the absolute
// next-page URL from a previous page's links.
func (c *Client) Campaigns(ctx context.Context, pageURL string, query url.Values) (*CampaignsPage, error) {
	var page CampaignsPage
	req := c.http.R().SetContext(ctx).SetResult(&page).ForceContentType("application/json")
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	resp, err := req.Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	return &page, nil
}

// Metrics fetches the first page of the metrics listing.
func (c *Client) Metrics(ctx context.Context) (*MetricsPage, error) {
	var page MetricsPage
	resp, err := c.http.R().SetContext(ctx).SetResult(&page).ForceContentType("application/json").Get("/metrics/")
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	return &page, nil
}

// CampaignValuesReport requests aggregated statistics for the campaign
// selected by the request filter.
func (c *Client) CampaignValuesReport(ctx context.Context, req *ValuesReportRequest) (*ValuesReportResponse, error) {
	var report ValuesReportResponse
	resp, err := c.http.R().SetContext(ctx).SetBody(req).SetResult(&report).ForceContentType("application/json").Post("/campaign-values-reports/")
	if err != nil {
		return nil, fmt.Errorf("campaign values report: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	return &report, nil
}
