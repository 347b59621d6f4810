// Package maps wraps an external geocoding/routing HTTP API for the
// gateway's map tools (geocode, around, search, distance, route — spec
// §4.9). Grounded on the original's amap_service.py: a fixed base URL,
// `output=json` always set, and the API key injected as a query parameter
// on every call.
package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"chatmemory-gateway/internal/config"
)

// Client wraps the HTTP calls to the maps service, with a short per-process
// cache keyed by `address|city` (spec §4.9, TTL 600s by default).
type Client struct {
	cfg        config.MapsConfig
	httpClient *http.Client
	group      singleflight.Group

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// NewClient builds a maps Client. Returns nil when no base URL is
// configured, so callers can treat a nil *Client as "maps tools disabled".
func NewClient(cfg config.MapsConfig, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		return nil
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, httpClient: httpClient, cache: make(map[string]cacheEntry)}
}

// cachedGet serves key from cache if fresh, otherwise fetches once per key
// even under concurrent callers (singleflight) and caches the result for
// CacheTTL.
func (c *Client) cachedGet(ctx context.Context, key string, fetch func(ctx context.Context) (string, error)) (string, error) {
	c.mu.Lock()
	if entry, ok := c.cache[key]; ok && time.Now().Before(entry.expiresAt) {
		c.mu.Unlock()
		return entry.value, nil
	}
	c.mu.Unlock()

	result, err, _ := c.group.Do(key, func() (any, error) {
		v, err := fetch(ctx)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.cache[key] = cacheEntry{value: v, expiresAt: time.Now().Add(c.cacheTTL())}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *Client) cacheTTL() time.Duration {
	if c.cfg.CacheTTL <= 0 {
		return 600 * time.Second
	}
	return c.cfg.CacheTTL
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (map[string]any, error) {
	params.Set("output", "json")
	if c.cfg.APIKey != "" {
		params.Set("key", c.cfg.APIKey)
	}
	reqURL := c.cfg.BaseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("maps: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("maps: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("maps: read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("maps: service returned %s", resp.Status)
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("maps: parse response: %w", err)
	}
	return out, nil
}

// Geocode resolves address (optionally scoped to city) to a formatted
// location string, cached by "address|city".
func (c *Client) Geocode(ctx context.Context, address, city string) (string, error) {
	key := address + "|" + city
	return c.cachedGet(ctx, "geocode:"+key, func(ctx context.Context) (string, error) {
		params := url.Values{"address": {address}}
		if city != "" {
			params.Set("city", city)
		}
		out, err := c.get(ctx, "/geocode/geo", params)
		if err != nil {
			return "", err
		}
		return formatGeocode(out), nil
	})
}

// Around lists points of interest near a location within radiusMeters.
func (c *Client) Around(ctx context.Context, location, keywords string, radiusMeters int) (string, error) {
	out, err := c.get(ctx, "/place/around", url.Values{
		"location": {location},
		"keywords": {keywords},
		"radius":   {fmt.Sprintf("%d", radiusMeters)},
	})
	if err != nil {
		return "", err
	}
	return formatPOIs(out), nil
}

// Search finds points of interest by keyword, optionally scoped to a city.
func (c *Client) Search(ctx context.Context, keywords, city string) (string, error) {
	params := url.Values{"keywords": {keywords}}
	if city != "" {
		params.Set("city", city)
	}
	out, err := c.get(ctx, "/place/text", params)
	if err != nil {
		return "", err
	}
	return formatPOIs(out), nil
}

// Distance measures the distance between two "lng,lat" points.
func (c *Client) Distance(ctx context.Context, origin, destination string) (string, error) {
	out, err := c.get(ctx, "/distance", url.Values{
		"origins":     {origin},
		"destination": {destination},
	})
	if err != nil {
		return "", err
	}
	return formatDistance(out), nil
}

// Route plans a route between two "lng,lat" points.
func (c *Client) Route(ctx context.Context, origin, destination, mode string) (string, error) {
	path := routePath(mode)
	out, err := c.get(ctx, path, url.Values{
		"origin":      {origin},
		"destination": {destination},
	})
	if err != nil {
		return "", err
	}
	return formatRoute(out), nil
}

func routePath(mode string) string {
	switch mode {
	case "walking":
		return "/direction/walking"
	case "transit":
		return "/direction/transit/integrated"
	default:
		return "/direction/driving"
	}
}
