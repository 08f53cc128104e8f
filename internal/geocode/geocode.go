// Package geocode resolves free-text addresses to WGS-84 coordinates via a
// Nominatim-style search endpoint. It is an auxiliary lookup whose result
// feeds the radius filter; a failed or empty result is reported, never
// silently substituted.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL points at the public OpenStreetMap Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// ErrNoResults marks a lookup that resolved no locations.
var ErrNoResults = errors.New("geocode: no results")

// Location is one resolved coordinate pair.
type Location struct {
	Lat float64
	Lon float64
}

// Client performs geocoding lookups.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// New creates a Client for baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: "airwatch/1.0",
		http:      &http.Client{Timeout: timeout},
	}
}

// resultDoc mirrors the search response; coordinates arrive as text.
type resultDoc struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Lookup resolves address to the first matching location.
func (c *Client) Lookup(ctx context.Context, address string) (Location, error) {
	if address == "" {
		return Location{}, errors.New("geocode: address must not be empty")
	}

	query := url.Values{}
	query.Set("format", "json")
	query.Set("q", address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+query.Encode(), nil)
	if err != nil {
		return Location{}, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geocode: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Location{}, fmt.Errorf("geocode: unexpected status %s", resp.Status)
	}

	var results []resultDoc
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Location{}, fmt.Errorf("geocode: decode response: %w", err)
	}
	if len(results) == 0 {
		return Location{}, ErrNoResults
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return Location{}, fmt.Errorf("geocode: malformed coordinates %q,%q", results[0].Lat, results[0].Lon)
	}
	return Location{Lat: lat, Lon: lon}, nil
}
