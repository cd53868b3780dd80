package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/couchcryptid/city-weather-rating/internal/domain"
	"github.com/couchcryptid/city-weather-rating/internal/observability"
)

// maxBodySize caps a forecast payload.
const maxBodySize = 8 << 20

// RequestError reports a transport failure, an open circuit, or a non-200 status.
type RequestError struct {
	City       string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("forecast request for %s: status %d: %v", e.City, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("forecast request for %s: %v", e.City, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// DecodeError reports a response body that is not a JSON document.
type DecodeError struct {
	City string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode forecast for %s: %v", e.City, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var errServerStatus = errors.New("server error")

// Client fetches raw forecast documents over HTTP. Each forecast URL has its
// own circuit breaker, so failures of one city never short-circuit another.
type Client struct {
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewClient creates a forecast client with a per-request timeout.
func NewClient(timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
		breakers:   make(map[string]*gobreaker.CircuitBreaker),
	}
}

// breakerFor returns the breaker guarding the city URL, creating it on first use.
func (c *Client) breakerFor(city domain.City) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	cb, ok := c.breakers[city.URL]
	if !ok {
		cb = newBreaker(city.Name, c.logger)
		c.breakers[city.URL] = cb
	}
	return cb
}

func newBreaker(name string, logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "city", name, "from", from.String(), "to", to.String())
		},
	})
}

type httpResult struct {
	status int
	body   []byte
}

// GetForecast downloads the forecast document of city. The payload is returned
// verbatim once it is known to be well-formed JSON.
func (c *Client) GetForecast(ctx context.Context, city domain.City) ([]byte, error) {
	start := time.Now()
	defer func() {
		c.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}()

	out, err := c.breakerFor(city).Execute(func() (interface{}, error) {
		return c.do(ctx, city.URL)
	})
	if err != nil {
		var status int
		if res, ok := out.(httpResult); ok {
			status = res.status
		}
		return nil, &RequestError{City: city.Name, StatusCode: status, Err: err}
	}

	res := out.(httpResult)
	if res.status != http.StatusOK {
		return nil, &RequestError{City: city.Name, StatusCode: res.status, Err: fmt.Errorf("unexpected response: %s", truncate(res.body, 200))}
	}
	if !json.Valid(res.body) {
		return nil, &DecodeError{City: city.Name, Err: errors.New("payload is not valid JSON")}
	}

	c.logger.Debug("forecast fetched", "city", city.Name, "bytes", len(res.body))
	return res.body, nil
}

// do performs one GET. Transport failures and 5xx responses are reported as
// errors so the breaker counts them; other statuses are returned as results.
func (c *Client) do(ctx context.Context, url string) (interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	res := httpResult{status: resp.StatusCode, body: body}
	if resp.StatusCode >= 500 {
		return res, fmt.Errorf("%w: %d", errServerStatus, resp.StatusCode)
	}
	return res, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
