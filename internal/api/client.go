// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the Chatify REST client.
//
// Every mutating call fetches a fresh CSRF token first and sends it both as
// the X-CSRF-Token header and as a body field; the server has accepted one
// or the other depending on deployment, so both travel. Requests are never
// retried: failures surface immediately and the caller decides what the
// user sees.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jeranaias/chatify-tui/internal/message"
)

const (
	// DefaultTimeout bounds every request.
	DefaultTimeout = 15 * time.Second

	// MaxResponseSize caps response bodies; a chat history should never be
	// anywhere near this.
	MaxResponseSize = 10 * 1024 * 1024
)

// sharedHTTPClient pools connections across all API calls.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
	Timeout: DefaultTimeout,
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to one Chatify deployment. The zero value is not usable;
// construct with NewClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// NewClient returns a client for the given API root (no trailing slash).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: sharedHTTPClient,
	}
}

// WithTimeout returns the client configured with a per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	custom := *sharedHTTPClient
	custom.Timeout = timeout
	c.httpClient = &custom
	return c
}

// WithHTTPClient swaps the underlying HTTP client. Tests use this.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// SetToken installs the bearer token used for authenticated calls.
func (c *Client) SetToken(token string) { c.token = token }

// Token returns the installed bearer token.
func (c *Client) Token() string { return c.token }

// =============================================================================
// AUTH
// =============================================================================

// csrfFields are the response keys the server has used for the CSRF token.
var csrfFields = []string{"csrfToken", "csrf", "token"}

// tokenFields are the response keys the server has used for the auth token.
var tokenFields = []string{"token", "accessToken", "jwt", "authToken"}

// CSRF fetches a fresh CSRF token. Called before every mutating request;
// tokens are never cached.
func (c *Client) CSRF(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodPatch, "/api/csrf", nil, false)
	if err != nil {
		return "", fmt.Errorf("csrf fetch failed: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("csrf fetch failed: %w: %v", ErrMalformedResponse, err)
	}
	for _, k := range csrfFields {
		if s, ok := payload[k].(string); ok && s != "" {
			return s, nil
		}
	}
	return "", fmt.Errorf("csrf fetch failed: %w: no token field", ErrMalformedResponse)
}

// LoginResult is what a successful token exchange yields. User is the raw
// user object when the server includes one; identity resolution digs through
// it without assuming a shape.
type LoginResult struct {
	Token string
	User  map[string]any
}

// Login exchanges credentials for a bearer token. The token is installed on
// the client as a side effect.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	csrf, err := c.CSRF(ctx)
	if err != nil {
		return nil, err
	}

	body, err := c.doJSON(ctx, http.MethodPost, "/api/auth/token", map[string]any{
		"username":  username,
		"password":  password,
		"csrfToken": csrf,
	}, csrf, false)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("login failed: %w: %v", ErrMalformedResponse, err)
	}

	result := &LoginResult{}
	for _, k := range tokenFields {
		if s, ok := payload[k].(string); ok && s != "" {
			result.Token = s
			break
		}
	}
	if result.Token == "" {
		return nil, fmt.Errorf("login failed: %w: no token field", ErrMalformedResponse)
	}
	if u, ok := payload["user"].(map[string]any); ok {
		result.User = u
	}

	c.token = result.Token
	return result, nil
}

// Register creates an account. The avatar may be empty; the server applies
// its own default.
func (c *Client) Register(ctx context.Context, username, password, email, avatar string) error {
	csrf, err := c.CSRF(ctx)
	if err != nil {
		return err
	}
	_, err = c.doJSON(ctx, http.MethodPost, "/api/auth/register", map[string]any{
		"username":  username,
		"password":  password,
		"email":     email,
		"avatar":    avatar,
		"csrfToken": csrf,
	}, csrf, false)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	return nil
}

// =============================================================================
// MESSAGES
// =============================================================================

// Messages fetches the conversation history as raw records, whatever
// envelope the server wrapped them in.
func (c *Client) Messages(ctx context.Context) ([]message.Raw, error) {
	if c.token == "" {
		return nil, ErrMissingToken
	}
	body, err := c.do(ctx, http.MethodGet, "/api/messages", nil, true)
	if err != nil {
		return nil, fmt.Errorf("message fetch failed: %w", err)
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("message fetch failed: %w: %v", ErrMalformedResponse, err)
	}
	return UnwrapList(payload), nil
}

// UnwrapList digs the record list out of the known envelopes: a bare array,
// {"messages": [...]}, or {"data": [...]}. Anything else yields an empty
// list rather than an error.
func UnwrapList(payload any) []message.Raw {
	var list []any
	switch v := payload.(type) {
	case []any:
		list = v
	case map[string]any:
		if inner, ok := v["messages"].([]any); ok {
			list = inner
		} else if inner, ok := v["data"].([]any); ok {
			list = inner
		}
	}

	records := make([]message.Raw, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			records = append(records, obj)
		}
	}
	return records
}

// SendMessage posts a new message and returns the decoded response body,
// whatever its shape; callers dig the created id out of it.
func (c *Client) SendMessage(ctx context.Context, text string) (any, error) {
	if c.token == "" {
		return nil, ErrMissingToken
	}
	csrf, err := c.CSRF(ctx)
	if err != nil {
		return nil, err
	}
	body, err := c.doJSON(ctx, http.MethodPost, "/api/messages", map[string]any{
		"text":      text,
		"csrfToken": csrf,
	}, csrf, true)
	if err != nil {
		return nil, fmt.Errorf("message send failed: %w", err)
	}

	var payload any
	if len(body) > 0 {
		// An undecodable create response is not fatal; the caller falls
		// back to a locally-generated id.
		_ = json.Unmarshal(body, &payload)
	}
	return payload, nil
}

// DeleteMessage removes a message by id.
func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	if c.token == "" {
		return ErrMissingToken
	}
	csrf, err := c.CSRF(ctx)
	if err != nil {
		return err
	}
	_, err = c.doJSON(ctx, http.MethodDelete, "/api/messages/"+url.PathEscape(id), map[string]any{
		"csrfToken": csrf,
	}, csrf, true)
	if err != nil {
		return fmt.Errorf("message delete failed: %w", err)
	}
	return nil
}

// =============================================================================
// USERS
// =============================================================================

// Users fetches the user directory as a uid -> display-name map, used to
// recognize the current user's messages when they only carry an id.
func (c *Client) Users(ctx context.Context) (map[string]string, error) {
	if c.token == "" {
		return nil, ErrMissingToken
	}
	body, err := c.do(ctx, http.MethodGet, "/users", nil, true)
	if err != nil {
		return nil, fmt.Errorf("user fetch failed: %w", err)
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("user fetch failed: %w: %v", ErrMalformedResponse, err)
	}

	users := make(map[string]string)
	for _, rec := range UnwrapList(payload) {
		var id, name string
		for _, k := range []string{"id", "userId", "_id"} {
			if v, ok := rec[k]; ok && v != nil {
				id = stringifyScalar(v)
				break
			}
		}
		if s, ok := rec["username"].(string); ok {
			name = s
		}
		if id != "" && name != "" {
			users[id] = name
		}
	}
	return users, nil
}

func stringifyScalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%v", x)
	default:
		return ""
	}
}

// =============================================================================
// TRANSPORT
// =============================================================================

// doJSON marshals a body and performs the request with the CSRF header set.
func (c *Client) doJSON(ctx context.Context, method, path string, body map[string]any, csrf string, authed bool) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return c.request(ctx, method, path, bytes.NewReader(data), csrf, authed)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, authed bool) ([]byte, error) {
	return c.request(ctx, method, path, body, "", authed)
}

func (c *Client) request(ctx context.Context, method, path string, body io.Reader, csrf string, authed bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	if authed && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Status: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errorFromResponse(resp.StatusCode, data)
	}
	return data, nil
}

// readResponse reads a body with the size cap applied.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(data) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeds %d byte limit", MaxResponseSize)
	}
	return data, nil
}
