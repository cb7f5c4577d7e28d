// Package registry provides an HTTP client for the external site registry,
// the catalog of wind, solar, and met site metadata that allocation requests
// draw on when they do not carry sites inline.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/grid-allocation-service/internal/domain"
	"github.com/couchcryptid/grid-allocation-service/internal/observability"
)

// Client implements domain.SiteCatalog against the site registry API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a site registry client.
func NewClient(baseURL, token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Sites fetches site metadata for a technology and region.
func (c *Client) Sites(ctx context.Context, technology, region string) ([]domain.ResourceSite, error) {
	params := url.Values{
		"technology": {technology},
		"region":     {region},
	}
	fullURL := fmt.Sprintf("%s/v1/sites?%s", c.baseURL, params.Encode())

	start := time.Now()
	sites, err := c.doRequest(ctx, fullURL)
	c.metrics.RegistryAPIDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.RegistryRequests.WithLabelValues("error").Inc()
		return nil, err
	case len(sites) == 0:
		c.metrics.RegistryRequests.WithLabelValues("empty").Inc()
	default:
		c.metrics.RegistryRequests.WithLabelValues("success").Inc()
	}
	return sites, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]domain.ResourceSite, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("site registry request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("site registry error: status %d: %s", resp.StatusCode, body)
	}

	var registryResp response
	if err := json.NewDecoder(resp.Body).Decode(&registryResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	sites := make([]domain.ResourceSite, len(registryResp.Sites))
	for i, s := range registryResp.Sites {
		sites[i] = domain.ResourceSite{
			ID:       s.SiteID,
			Geo:      domain.Geo{Lat: s.Latitude, Lon: s.Longitude},
			Capacity: s.Capacity,
		}
	}
	return sites, nil
}

// Site registry API response types.

type response struct {
	Sites []siteRecord `json:"sites"`
}

type siteRecord struct {
	SiteID    string  `json:"site_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Capacity  float64 `json:"capacity"`
}
