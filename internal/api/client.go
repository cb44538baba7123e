// Package api is a read-through client for the club backend's REST API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"borkacal/internal/errdef"
	"borkacal/internal/links"
	appLog "borkacal/internal/log"
	"borkacal/internal/model"
)

const defaultTimeout = 15 * time.Second

// Options configures a Client.
type Options struct {
	// Origin is the backend base URL, e.g. "https://borka.example.se".
	Origin string
	// SessionToken is sent as a bearer token on authenticated calls.
	SessionToken string
	// CacheDir enables the on-disk response cache when non-empty.
	CacheDir string
	Timeout  time.Duration
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client fetches events, categories, news and the ICS feed. Public GETs go
// through a conditional-request cache; on network errors or unexpected
// statuses the last cached body is served instead.
type Client struct {
	origin string
	token  string
	http   *http.Client
	cache  *diskCache
}

func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		origin: strings.TrimRight(opts.Origin, "/"),
		token:  opts.SessionToken,
		http:   hc,
		cache:  newDiskCache(opts.CacheDir),
	}
}

// Origin returns the backend base URL without a trailing slash.
func (c *Client) Origin() string {
	return c.origin
}

// Events lists events. An empty category or "all" lists every category.
func (c *Client) Events(ctx context.Context, category string) ([]model.Event, error) {
	path := "/api/events"
	if category != "" && category != model.FilterAll {
		path += "?" + url.Values{"category": {category}}.Encode()
	}
	var events []model.Event
	if err := c.getJSON(ctx, path, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) Event(ctx context.Context, id string) (model.Event, error) {
	var ev model.Event
	err := c.getJSON(ctx, "/api/events/"+url.PathEscape(id), &ev)
	return ev, err
}

func (c *Client) Categories(ctx context.Context) ([]model.CategoryInfo, error) {
	var categories []model.CategoryInfo
	if err := c.getJSON(ctx, "/api/categories", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) News(ctx context.Context) ([]model.News, error) {
	var news []model.News
	if err := c.getJSON(ctx, "/api/news", &news); err != nil {
		return nil, err
	}
	return news, nil
}

func (c *Client) NewsItem(ctx context.Context, id string) (model.News, error) {
	var n model.News
	err := c.getJSON(ctx, "/api/news/"+url.PathEscape(id), &n)
	return n, err
}

// Me returns the member behind the configured session token. It is never
// served from cache.
func (c *Client) Me(ctx context.Context) (model.User, error) {
	var u model.User
	if c.token == "" {
		return u, errdef.NewUnauthorized("api: no session token configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.origin+"/api/auth/me", nil)
	if err != nil {
		return u, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return u, errdef.NewUpstream("api: GET /api/auth/me: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return u, err
	}
	if err := statusError("/api/auth/me", resp); err != nil {
		return u, err
	}
	if err := json.Unmarshal(body, &u); err != nil {
		return u, fmt.Errorf("api: decode /api/auth/me: %w", err)
	}
	return u, nil
}

// Feed downloads the ICS subscription feed.
func (c *Client) Feed(ctx context.Context) ([]byte, error) {
	return c.get(ctx, links.FeedPath)
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("api: decode %s: %w", path, err)
	}
	return nil
}

// get performs a conditional GET for path, honoring ETag and Last-Modified.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	u := c.origin + path
	meta, cachedBody := c.cache.load(u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if len(cachedBody) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Debug("api fetch start", "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		if len(cachedBody) > 0 && ctx.Err() == nil {
			appLog.Error("api fetch network error, using cached body", err, "path", path)
			return cachedBody, nil
		}
		return nil, errdef.NewUpstream("api: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		newMeta := cacheEntry{
			URL:          u,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := c.cache.save(newMeta, body); err != nil {
			appLog.Error("api cache save failed", err, "path", path)
		}
		appLog.Debug("api fetch success", "path", path, "bytes", len(body))
		return body, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return nil, errdef.NewUpstream("api: GET %s: 304 Not Modified but no cached body", path)
		}
		appLog.Debug("api fetch not modified; using cache", "path", path)
		return cachedBody, nil

	case http.StatusNotFound, http.StatusUnauthorized, http.StatusForbidden:
		return nil, statusError(path, resp)

	default:
		if len(cachedBody) > 0 {
			appLog.Error("api fetch non-OK, using cached body", errors.New(resp.Status), "path", path, "status", resp.StatusCode)
			return cachedBody, nil
		}
		return nil, statusError(path, resp)
	}
}

func statusError(path string, resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return errdef.NewNotFound("api: GET %s: %s", path, resp.Status)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return errdef.NewUnauthorized("api: GET %s: %s", path, resp.Status)
	default:
		return errdef.NewUpstream("api: GET %s: %s", path, resp.Status)
	}
}
