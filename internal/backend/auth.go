package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nvelasco/stockdesk/internal/models"
)

// ErrNoSessionCookie means a login succeeded but the backend set no session
// cookie, so there is nothing to replay on later calls.
var ErrNoSessionCookie = errors.New("backend: login response carried no session cookie")

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AdminLogin exchanges admin credentials for the backend session cookie.
func (c *Client) AdminLogin(ctx context.Context, creds Credentials) (Token, error) {
	return c.login(ctx, "/admin-login", creds)
}

func (c *Client) WorkerLogin(ctx context.Context, creds Credentials) (Token, error) {
	return c.login(ctx, "/worker-login", creds)
}

func (c *Client) login(ctx context.Context, path string, creds Credentials) (Token, error) {
	body, err := marshalBody(creds)
	if err != nil {
		return "", err
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, body, "")
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", newAPIError(resp)
	}
	tok := tokenFromCookies(resp.Cookies())
	if tok == "" {
		return "", ErrNoSessionCookie
	}
	return tok, nil
}

// RegisterWorker creates a worker account. The path is caller-supplied because
// the deployment obfuscates the registration route.
func (c *Client) RegisterWorker(ctx context.Context, registerPath string, creds Credentials) error {
	if !strings.HasPrefix(registerPath, "/") {
		registerPath = "/" + registerPath
	}
	return c.postJSON(ctx, registerPath, "", creds, nil)
}

// CheckAuth validates the stored session cookie against the backend.
func (c *Client) CheckAuth(ctx context.Context, tok Token) (*models.AuthStatus, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/check-auth", nil, nil, tok)
	if err != nil {
		return nil, err
	}
	var out models.AuthStatus
	if err := c.doJSON(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// tokenFromCookies serializes every Set-Cookie pair into one Cookie header
// value, preserving whatever names the backend session layer uses.
func tokenFromCookies(cookies []*http.Cookie) Token {
	pairs := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		if ck.Name == "" {
			continue
		}
		pairs = append(pairs, ck.Name+"="+ck.Value)
	}
	return Token(strings.Join(pairs, "; "))
}
