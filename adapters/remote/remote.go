// Package remote implements ports.RemoteStore over the daemon's HTTP
// API, with change notifications carried on a Server-Sent Events
// stream.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/artpar/confchan/domain/property"
	"github.com/artpar/confchan/domain/value"
	"github.com/artpar/confchan/ports"
)

// Client is an HTTP client for the confchan daemon.
type Client struct {
	httpClient *http.Client
	// streamClient has no overall timeout: event streams are
	// long-lived by design.
	streamClient *http.Client
	baseURL      string
}

// ClientConfig configures the remote client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a new daemon client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		streamClient: &http.Client{},
		baseURL:      cfg.BaseURL,
	}
}

// Get retrieves the value of a property.
func (c *Client) Get(ctx context.Context, channel, path string) (value.Value, error) {
	var v value.Value
	err := c.request(ctx, http.MethodGet, propertyURL(channel, path, nil), nil, &v)
	if err != nil {
		return value.Unset, err
	}
	return v, nil
}

// Set stores a value for a property.
func (c *Client) Set(ctx context.Context, channel, path string, v value.Value) error {
	return c.request(ctx, http.MethodPut, propertyURL(channel, path, nil), v, nil)
}

// Reset resets a property, or a subtree when recursive.
func (c *Client) Reset(ctx context.Context, channel, path string, recursive bool) error {
	extra := url.Values{}
	if recursive {
		extra.Set("recursive", "true")
	}
	return c.request(ctx, http.MethodDelete, propertyURL(channel, path, extra), nil, nil)
}

// ListProperties returns all properties at or under path.
func (c *Client) ListProperties(ctx context.Context, channel, path string) (map[string]value.Value, error) {
	var body struct {
		Properties map[string]value.Value `json:"properties"`
	}
	q := url.Values{}
	q.Set("path", path)
	u := fmt.Sprintf("/api/channels/%s/properties?%s", url.PathEscape(channel), q.Encode())
	if err := c.request(ctx, http.MethodGet, u, nil, &body); err != nil {
		return nil, err
	}
	if body.Properties == nil {
		body.Properties = make(map[string]value.Value)
	}
	return body.Properties, nil
}

// IsLocked reports whether system policy forbids writing path.
func (c *Client) IsLocked(ctx context.Context, channel, path string) (bool, error) {
	var body struct {
		Locked bool `json:"locked"`
	}
	q := url.Values{}
	q.Set("path", path)
	u := fmt.Sprintf("/api/channels/%s/locked?%s", url.PathEscape(channel), q.Encode())
	if err := c.request(ctx, http.MethodGet, u, nil, &body); err != nil {
		return false, err
	}
	return body.Locked, nil
}

// ListChannels returns the names of all known channels.
func (c *Client) ListChannels(ctx context.Context) ([]string, error) {
	var body struct {
		Channels []string `json:"channels"`
	}
	if err := c.request(ctx, http.MethodGet, "/api/channels", nil, &body); err != nil {
		return nil, err
	}
	return body.Channels, nil
}

func propertyURL(channel, path string, extra url.Values) string {
	q := url.Values{}
	q.Set("path", path)
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	return fmt.Sprintf("/api/channels/%s/property?%s", url.PathEscape(channel), q.Encode())
}

// request sends one JSON request and decodes the response into result
// when non-nil. HTTP error statuses are mapped onto the domain error
// kinds.
func (c *Client) request(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: marshal request: %v", property.ErrInvalidArgument, err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", property.ErrRemoteFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", property.ErrRemoteFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: decode response: %v", property.ErrRemoteFailure, err)
		}
	}
	return nil
}

// decodeError turns the daemon's error body back into a sentinel-based
// error. Unknown statuses become ErrRemoteFailure.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	message := string(raw)
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		message = body.Error.Message
	}

	var kind error
	switch {
	case resp.StatusCode == http.StatusNotFound || body.Error.Code == "not_found":
		kind = property.ErrNotFound
	case body.Error.Code == "type_mismatch":
		kind = property.ErrTypeMismatch
	case resp.StatusCode == http.StatusBadRequest:
		kind = property.ErrInvalidArgument
	default:
		kind = property.ErrRemoteFailure
	}
	return fmt.Errorf("%w: %s", kind, message)
}

// Ensure interface compliance.
var _ ports.RemoteStore = (*Client)(nil)
