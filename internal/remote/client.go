// Package remote talks to a device's log-serving HTTP endpoint: category
// and object listings, object metadata, and byte-range line reads.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ReadToEnd is the end offset meaning "read to the object's current end".
const ReadToEnd int64 = -1

// Source is the subset of the client a tail window needs. Implemented by
// *Client and by test fakes.
type Source interface {
	GetMetadata(ctx context.Context, category, object string) (Metadata, error)
	ReadRange(ctx context.Context, category, object string, begin, end int64) (RangeResult, error)
}

var _ Source = (*Client)(nil)

// Client talks to one device's logging HTTP API.
type Client struct {
	baseURL   *url.URL
	alias     string
	http      *http.Client
	userAgent string
}

const (
	defaultUserAgent = "tracetail/0.1"
	requestTimeout   = 15 * time.Second
)

// NewClient builds a Client for a device addressed by base URL or
// host:port; a bare host gets an http scheme.
func NewClient(address, alias string) (*Client, error) {
	base, err := parseBaseURL(address)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		alias:   alias,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// ListCategories retrieves the device's log categories.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	values.Set("alias", c.alias)
	rel := &url.URL{Path: "/logging/categories", RawQuery: values.Encode()}
	var payload categoryListResponse
	if err := c.doURL(ctx, rel, &payload); err != nil {
		return nil, err
	}
	return payload.Categories, nil
}

// ListObjects retrieves the log objects within a category.
func (c *Client) ListObjects(ctx context.Context, category string) ([]Object, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	values.Set("alias", c.alias)
	values.Set("category", category)
	rel := &url.URL{Path: "/logging/objects", RawQuery: values.Encode()}
	var payload objectListResponse
	if err := c.doURL(ctx, rel, &payload); err != nil {
		return nil, err
	}
	return payload.Objects, nil
}

// GetMetadata retrieves the current size and file list of a log object.
func (c *Client) GetMetadata(ctx context.Context, category, object string) (Metadata, error) {
	if c == nil {
		return Metadata{}, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	values.Set("alias", c.alias)
	values.Set("category", category)
	values.Set("object", object)
	rel := &url.URL{Path: "/logging/metadata", RawQuery: values.Encode()}
	var payload Metadata
	if err := c.doURL(ctx, rel, &payload); err != nil {
		return Metadata{}, err
	}
	return payload, nil
}

// ReadRange reads decoded lines from [begin, end) of a log object. Begin
// is inclusive, end exclusive; end == ReadToEnd reads to the current end.
func (c *Client) ReadRange(ctx context.Context, category, object string, begin, end int64) (RangeResult, error) {
	if c == nil {
		return RangeResult{}, fmt.Errorf("client is nil")
	}
	if begin < 0 {
		return RangeResult{}, fmt.Errorf("read range: negative begin %d", begin)
	}
	values := url.Values{}
	values.Set("alias", c.alias)
	values.Set("category", category)
	values.Set("object", object)
	values.Set("begin", strconv.FormatInt(begin, 10))
	values.Set("end", strconv.FormatInt(end, 10))
	rel := &url.URL{Path: "/logging/read", RawQuery: values.Encode()}
	var payload RangeResult
	if err := c.doURL(ctx, rel, &payload); err != nil {
		return RangeResult{}, err
	}
	return payload, nil
}

func (c *Client) doURL(ctx context.Context, rel *url.URL, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("logging api %s returned status %d", rel.Path, resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(address string) (*url.URL, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return nil, fmt.Errorf("device address is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse device address %q: %w", address, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
