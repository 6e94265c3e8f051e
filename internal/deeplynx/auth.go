package deeplynx

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	tokenEndpoint = "/oauth/token"

	// defaultTokenTTL is how long a fetched token is reused before a new
	// exchange. Deep Lynx tokens live longer, but a short TTL keeps a
	// long-running caller from holding a revoked token.
	defaultTokenTTL = 10 * time.Minute

	// tokenExpiryBuffer refreshes slightly before the TTL elapses so an
	// in-flight query never races token expiry.
	tokenExpiryBuffer = 30 * time.Second
)

// tokenSource exchanges the API key pair for a bearer token and caches it.
type tokenSource struct {
	client    *Client
	apiKey    string
	apiSecret string
	ttl       time.Duration

	mu        sync.Mutex
	cached    string
	fetchedAt time.Time
}

func newTokenSource(c *Client, apiKey, apiSecret string) *tokenSource {
	return &tokenSource{
		client:    c,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		ttl:       defaultTokenTTL,
	}
}

// token returns a cached bearer token, fetching a fresh one when the cache
// is empty or stale.
func (ts *tokenSource) token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.cached != "" && time.Since(ts.fetchedAt) < ts.ttl-tokenExpiryBuffer {
		return ts.cached, nil
	}

	token, err := ts.fetch(ctx)
	if err != nil {
		return "", err
	}
	ts.cached = token
	ts.fetchedAt = time.Now()
	return token, nil
}

// fetch performs the token exchange. The endpoint answers the raw token,
// sometimes wrapped in JSON string quotes.
func (ts *tokenSource) fetch(ctx context.Context) (string, error) {
	headers := map[string]string{
		"x-api-key":    ts.apiKey,
		"x-api-secret": ts.apiSecret,
	}
	body, status, err := ts.client.do(ctx, http.MethodGet, tokenEndpoint, nil, headers)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &QueryError{Endpoint: tokenEndpoint, StatusCode: status, Message: truncate(string(body), 200)}
	}

	token := strings.TrimSpace(string(body))
	if len(token) >= 2 && strings.HasPrefix(token, `"`) && strings.HasSuffix(token, `"`) {
		token = token[1 : len(token)-1]
	}
	if token == "" {
		return "", &QueryError{Endpoint: tokenEndpoint, StatusCode: status, Message: "empty token in response"}
	}
	return token, nil
}
