// Package gios is the client for the air-quality measurement API. Every
// request is rate limited, runs behind a circuit breaker, and carries a
// fixed transfer timeout; response bodies are shape-checked before decoding.
package gios

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/pzielin/airwatch/internal/model"
)

// DefaultBaseURL points at the public REST endpoint.
const DefaultBaseURL = "https://api.gios.gov.pl/pjp-api/rest"

// DefaultTimeout is the per-request transfer timeout.
const DefaultTimeout = 10 * time.Second

// queryTimeLayout formats from/to bounds on the measurement endpoint.
const queryTimeLayout = "2006-01-02T15:04:05"

// Client issues requests against the remote source.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// New creates a Client for baseURL. A zero timeout falls back to
// DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gios",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		breaker: breaker,
	}
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	target := c.baseURL + "/" + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	body, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request %s: %w", endpoint, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Status: resp.Status}
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", endpoint, err)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return body.([]byte), nil
}

// Stations fetches the full station list.
func (c *Client) Stations(ctx context.Context) ([]model.Station, error) {
	const endpoint = "station/findAll"

	data, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if !leadingByteIs(data, '[') {
		return nil, &ShapeError{Endpoint: endpoint, Expected: "array"}
	}

	stations, err := model.ParseStations(data)
	if err != nil {
		return nil, &ParseError{Endpoint: endpoint, Err: err}
	}
	return stations, nil
}

// Sensors fetches the sensors attached to a station.
func (c *Client) Sensors(ctx context.Context, stationID int) ([]model.Sensor, error) {
	endpoint := fmt.Sprintf("station/sensors/%d", stationID)

	data, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if !leadingByteIs(data, '[') {
		return nil, &ShapeError{Endpoint: endpoint, Expected: "array"}
	}

	sensors, err := model.ParseSensors(data)
	if err != nil {
		return nil, &ParseError{Endpoint: endpoint, Err: err}
	}
	return sensors, nil
}

// Measurements fetches the series for a sensor, optionally bounded by
// [from, to]. Zero bounds are omitted from the query.
func (c *Client) Measurements(ctx context.Context, sensorID int, from, to time.Time) (model.Measurement, error) {
	endpoint := fmt.Sprintf("data/getData/%d", sensorID)

	query := url.Values{}
	if !from.IsZero() {
		query.Set("from", from.Format(queryTimeLayout))
	}
	if !to.IsZero() {
		query.Set("to", to.Format(queryTimeLayout))
	}

	data, err := c.get(ctx, endpoint, query)
	if err != nil {
		return model.Measurement{}, err
	}
	if !leadingByteIs(data, '{') {
		return model.Measurement{}, &ShapeError{Endpoint: endpoint, Expected: "object"}
	}

	m, err := model.ParseMeasurement(data)
	if err != nil {
		return model.Measurement{}, &ParseError{Endpoint: endpoint, Err: err}
	}
	if m.SensorID == 0 {
		m.SensorID = sensorID
	}
	return m, nil
}

// QualityIndex fetches the computed air quality index for a station.
func (c *Client) QualityIndex(ctx context.Context, stationID int) (model.QualityIndex, error) {
	endpoint := fmt.Sprintf("aqindex/getIndex/%d", stationID)

	data, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return model.QualityIndex{}, err
	}
	if !leadingByteIs(data, '{') {
		return model.QualityIndex{}, &ShapeError{Endpoint: endpoint, Expected: "object"}
	}

	qi, err := model.ParseQualityIndex(data)
	if err != nil {
		return model.QualityIndex{}, &ParseError{Endpoint: endpoint, Err: err}
	}
	return qi, nil
}

func leadingByteIs(data []byte, b byte) bool {
	for _, c := range data {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return c == b
		}
	}
	return false
}
