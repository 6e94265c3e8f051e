// Package deeplynx is a minimal client for the Deep Lynx record-query API.
// It handles the API-key token exchange and GraphQL metatype queries for a
// single container. Requests are synchronous and are never retried; every
// failure surfaces as a *QueryError.
package deeplynx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jdpooleparty/deeplynx-stats/internal/config"
)

// Observer receives request outcomes for instrumentation. Implementations
// must be safe for reuse across requests.
type Observer interface {
	ObserveRequest(endpoint string, statusCode int, duration time.Duration)
	ObserveRecords(metatype string, count int)
}

// Client talks to one Deep Lynx instance and container.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	containerID int64
	tokens      *tokenSource
	observer    Observer
	log         *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithObserver registers an instrumentation observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithTokenTTL overrides how long a fetched bearer token is reused.
func WithTokenTTL(ttl time.Duration) Option {
	return func(c *Client) { c.tokens.ttl = ttl }
}

// NewClient creates a client from loaded configuration.
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.URL)
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:     base,
		containerID: cfg.ContainerID,
		log:         zap.NewNop(),
	}
	c.tokens = newTokenSource(c, cfg.APIKey, cfg.APISecret)

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ContainerID returns the container this client queries.
func (c *Client) ContainerID() int64 { return c.containerID }

// graphQLRequest is the payload of a record query.
type graphQLRequest struct {
	Query string `json:"query"`
}

// graphQLError is a single entry of a GraphQL errors array.
type graphQLError struct {
	Message string `json:"message"`
}

// queryResponse is the envelope of a metatype query response.
type queryResponse struct {
	Data struct {
		Metatypes map[string][]Record `json:"metatypes"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// Query posts a GraphQL document to the container's data endpoint and
// returns the decoded records per metatype name.
func (c *Client) Query(ctx context.Context, gql string) (map[string][]Record, error) {
	endpoint := fmt.Sprintf("/containers/%d/data", c.containerID)

	token, err := c.tokens.token(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(graphQLRequest{Query: gql})
	if err != nil {
		return nil, &QueryError{Endpoint: endpoint, Err: fmt.Errorf("encoding query: %w", err)}
	}

	headers := map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + token,
	}
	respBody, status, err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body), headers)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &QueryError{Endpoint: endpoint, StatusCode: status, Message: truncate(string(respBody), 200)}
	}

	var decoded queryResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, &QueryError{Endpoint: endpoint, StatusCode: status, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if len(decoded.Errors) > 0 {
		return nil, &QueryError{Endpoint: endpoint, StatusCode: status, Message: decoded.Errors[0].Message}
	}

	if c.observer != nil {
		for metatype, records := range decoded.Data.Metatypes {
			c.observer.ObserveRecords(metatype, len(records))
		}
	}
	return decoded.Data.Metatypes, nil
}

// QueryProducts fetches Product records matching the given filter.
func (c *Client) QueryProducts(ctx context.Context, filter ProductFilter) ([]Record, error) {
	c.log.Debug("querying products", zap.Int64("container_id", c.containerID))

	metatypes, err := c.Query(ctx, ProductQuery(filter))
	if err != nil {
		return nil, err
	}
	records := metatypes[MetatypeProduct]
	c.log.Info("products fetched", zap.Int("count", len(records)))
	return records, nil
}

// QueryLot fetches Lot records whose original_id matches the given value.
func (c *Client) QueryLot(ctx context.Context, originalID string) ([]Record, error) {
	c.log.Debug("querying lot", zap.String("original_id", originalID))

	metatypes, err := c.Query(ctx, LotQuery(originalID))
	if err != nil {
		return nil, err
	}
	return metatypes[MetatypeLot], nil
}

// do executes one HTTP request and reads the full body. It never retries.
func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, headers map[string]string) ([]byte, int, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + endpoint

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, 0, &QueryError{Endpoint: endpoint, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if c.observer != nil {
			c.observer.ObserveRequest(endpoint, 0, duration)
		}
		return nil, 0, &QueryError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if c.observer != nil {
		c.observer.ObserveRequest(endpoint, resp.StatusCode, duration)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &QueryError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response body: %w", err)}
	}

	c.log.Debug("request complete",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration),
	)
	return respBody, resp.StatusCode, nil
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
