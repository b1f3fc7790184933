// Package backend is the HTTP client for the remote inventory/order REST API.
// The console owns no data of its own; every read and write goes through here,
// carrying the caller's backend session cookie.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Token is the backend session cookie pair ("name=value") captured at login
// and replayed verbatim on every credentialed call.
type Token string

type Client struct {
	baseURL string
	httpc   *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// newRequest builds a request against the backend. A non-empty token is sent
// as the Cookie header so the backend sees its own session cookie.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, tok Token) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if tok != "" {
		req.Header.Set("Cookie", string(tok))
	}
	return req, nil
}

// doJSON issues the request and decodes a JSON response into out (when out is
// non-nil). Non-2xx responses are translated into *APIError; a 2xx response
// that is not JSON yields ErrBadPayload so callers can treat it as "no data".
func (c *Client) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if !isJSON(resp.Header.Get("Content-Type")) {
		return ErrBadPayload
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return ErrBadPayload
	}
	return nil
}

// postJSON marshals body and POSTs it, decoding the response into out.
func (c *Client) postJSON(ctx context.Context, path string, tok Token, body, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, bytes.NewReader(buf), tok)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, out)
}

func marshalBody(v interface{}) (io.Reader, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return bytes.NewReader(buf), nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json"
}

// pageQuery builds the shared page/limit/search parameter set. The search
// parameter is always present so the backend contract stays uniform.
func pageQuery(page, limit int, search string) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("search", search)
	return q
}
