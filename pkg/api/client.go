package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ritzau/cpg-explorer/pkg/logging"
)

// Params are optional query parameters. Empty strings and nil values are
// omitted from the request rather than sent as empty.
type Params map[string]any

// Client talks to the read-only CPG analysis backend.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for the backend rooted at base
// (e.g. "http://localhost:8080/api").
func NewClient(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Transport: logging.NewTransport(nil)}
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: hc,
	}
}

func (c *Client) buildURL(path string, params Params) string {
	u := c.base + path
	q := encodeParams(params)
	if q == "" {
		return u
	}
	return u + "?" + q
}

func encodeParams(params Params) string {
	if len(params) == 0 {
		return ""
	}
	values := url.Values{}
	for key, value := range params {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			if v == "" {
				continue
			}
			values.Set(key, v)
		case int:
			values.Set(key, strconv.Itoa(v))
		default:
			values.Set(key, fmt.Sprint(v))
		}
	}
	return values.Encode()
}

// get issues a GET and decodes the JSON reply into out. The request is
// abandoned when ctx is cancelled.
func (c *Client) get(ctx context.Context, path string, params Params, out any) error {
	endpoint := c.buildURL(path, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp, endpoint)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func newAPIError(resp *http.Response, endpoint string) *APIError {
	message := http.StatusText(resp.StatusCode)

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		message = payload.Error
	}

	return &APIError{
		Status:   resp.StatusCode,
		Endpoint: endpoint,
		Message:  message,
	}
}
