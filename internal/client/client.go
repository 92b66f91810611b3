// Package client is a typed HTTP client for the watchlist API. Every method
// performs exactly one request and never retries.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Clark-Hu/watchlist-tracker/internal/domain"
)

const collectionPath = "/api/watchlist"

// Client talks to a watchlist API server.
type Client struct {
	baseURL *url.URL
	client  *http.Client
	logger  *log.Logger
}

// New constructs a client for the server at baseURL.
func New(baseURL string, timeout time.Duration, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Default()
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("parse api url: %q must be absolute", baseURL)
	}
	return &Client{
		baseURL: parsed,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
	}, nil
}

// List returns every item, newest first.
func (c *Client) List(ctx context.Context) ([]domain.Item, error) {
	var items []domain.Item
	err := c.do(ctx, http.MethodGet, collectionPath, nil, &items)
	return items, err
}

// ListBookmarked returns bookmarked items, newest first.
func (c *Client) ListBookmarked(ctx context.Context) ([]domain.Item, error) {
	var items []domain.Item
	err := c.do(ctx, http.MethodGet, collectionPath+"/bookmarks", nil, &items)
	return items, err
}

// Get fetches one item.
func (c *Client) Get(ctx context.Context, id string) (domain.Item, error) {
	var item domain.Item
	err := c.doItem(ctx, http.MethodGet, id, "", nil, &item)
	return item, err
}

// Create adds an item and returns it with its server-assigned fields.
func (c *Client) Create(ctx context.Context, input domain.ItemInput) (domain.Item, error) {
	var item domain.Item
	err := c.do(ctx, http.MethodPost, collectionPath, input, &item)
	return item, err
}

// Update applies a partial update and returns the stored item.
func (c *Client) Update(ctx context.Context, id string, patch domain.ItemPatch) (domain.Item, error) {
	var item domain.Item
	err := c.doItem(ctx, http.MethodPut, id, "", patch, &item)
	return item, err
}

// ToggleBookmark flips the bookmark flag and returns the stored item.
func (c *Client) ToggleBookmark(ctx context.Context, id string) (domain.Item, error) {
	var item domain.Item
	err := c.doItem(ctx, http.MethodPut, id, "/bookmark", nil, &item)
	return item, err
}

// Delete removes an item.
func (c *Client) Delete(ctx context.Context, id string) error {
	var resp struct {
		Message string `json:"message"`
	}
	return c.doItem(ctx, http.MethodDelete, id, "", nil, &resp)
}

// doItem sends a request for a single item. Ids that path cleaning would
// turn into another endpoint never reach the server.
func (c *Client) doItem(ctx context.Context, method, id, suffix string, body, out any) error {
	path := collectionPath + "/" + url.PathEscape(id) + suffix
	switch strings.TrimSpace(id) {
	case "", ".", "..":
		return &Error{Kind: KindNotFound, Op: method + " " + path, Message: fmt.Sprintf("invalid item id %q", id)}
	}
	return c.do(ctx, method, path, body, out)
}

type apiError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path
	endpoint := c.baseURL.JoinPath(path)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindTransport, Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Kind: KindTransport, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	}

	return c.responseError(op, resp)
}

func (c *Client) responseError(op string, resp *http.Response) error {
	e := &Error{Op: op, Status: resp.StatusCode}
	switch resp.StatusCode {
	case http.StatusNotFound:
		e.Kind = KindNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		e.Kind = KindValidation
	default:
		e.Kind = KindServer
		c.logger.Printf("client: unexpected status %d for %s", resp.StatusCode, op)
	}

	var payload apiError
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		e.Message = http.StatusText(resp.StatusCode)
		return e
	}
	e.Code = payload.Code
	e.Message = payload.Message
	if len(payload.Details) > 0 {
		var fields map[string]string
		if err := json.Unmarshal(payload.Details, &fields); err == nil && len(fields) > 0 {
			e.Fields = fields
		}
	}
	return e
}
