// Package geocode resolves free-text addresses to coordinates through the
// MapTiler forward-geocoding API. Geocoding is best-effort enrichment:
// callers must treat a nil result or an error as "no coordinates" and carry
// on.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.maptiler.com"

// ErrNotConfigured is returned by NewClient when no API key is set.
// Geocoding stays disabled; nothing else in the system is affected.
var ErrNotConfigured = errors.New("MAPTILER_API_KEY not configured")

type Result struct {
	Lat float64
	Lng float64
}

type Client struct {
	key        string
	baseURL    string
	httpClient *http.Client
	cache      *ttlcache.Cache[string, *Result]
	logger     *zap.Logger
}

type Option func(*Client)

// WithBaseURL points the client at a different API host. Used by tests.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(base, "/") }
}

func NewClient(key string, logger *zap.Logger, opts ...Option) (*Client, error) {
	if key == "" {
		return nil, ErrNotConfigured
	}

	cache := ttlcache.New(
		ttlcache.WithTTL[string, *Result](24 * time.Hour),
		ttlcache.WithDisableTouchOnHit[string, *Result](),
	)
	go cache.Start()

	c := &Client{
		key:        key,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cache,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type geocodeResponse struct {
	Features []struct {
		Center []float64 `json:"center"`
	} `json:"features"`
}

// Geocode resolves address to a coordinate pair, or nil when the provider
// has no match. The outbound call is bounded by a 5 second deadline so a
// slow provider can never hold up request completion.
func (c *Client) Geocode(ctx context.Context, address string) (*Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, nil
	}

	cacheKey := strings.ToLower(address)
	if item := c.cache.Get(cacheKey); item != nil {
		return item.Value(), nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	endpoint := fmt.Sprintf("%s/geocoding/%s.json?%s",
		c.baseURL,
		url.PathEscape(address),
		url.Values{"key": {c.key}, "limit": {"1"}}.Encode(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding provider returned status %d", resp.StatusCode)
	}

	var parsed geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	// MapTiler centers are [lng, lat].
	var result *Result
	if len(parsed.Features) > 0 && len(parsed.Features[0].Center) >= 2 {
		center := parsed.Features[0].Center
		result = &Result{Lat: center[1], Lng: center[0]}
	}

	c.cache.Set(cacheKey, result, ttlcache.DefaultTTL)
	if result == nil {
		c.logger.Debug("geocoding yielded no features", zap.String("address", address))
	}
	return result, nil
}
