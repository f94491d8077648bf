// Package pathstore is a client for the pathstore key/value HTTP API, where
// completed analyses are persisted.
package pathstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Client communicates with the pathstore HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NodeRequest is the body for PUT /kv/{key}.
type NodeRequest struct {
	Value      any     `json:"value"`
	MergeMode  string  `json:"merge_mode,omitempty"`
	MemoryType string  `json:"memory_type,omitempty"`
	Salience   float64 `json:"salience,omitempty"`
	Source     string  `json:"source,omitempty"`
	ExpiresAt  string  `json:"expires_at,omitempty"`
}

// NodeResponse is the response from GET /kv/{key}.
type NodeResponse struct {
	Key        string  `json:"key_path"`
	Value      any     `json:"value"`
	MemoryType string  `json:"memory_type,omitempty"`
	Salience   float64 `json:"salience,omitempty"`
}

// LinkRequest is the body for PUT /links.
type LinkRequest struct {
	From          string  `json:"from_key"`
	To            string  `json:"to_key"`
	Weight        float64 `json:"weight"`
	Summary       string  `json:"summary,omitempty"`
	Bidirectional bool    `json:"bidirectional,omitempty"`
}

// ListChildrenResponse is a single node from a prefix scan.
type ListChildrenResponse struct {
	Key   string `json:"key_path"`
	Value any    `json:"value"`
}

// RetryableError indicates a transient failure (429 or 5xx) that can be
// retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// PutNode stores or updates a node at the given path.
func (c *Client) PutNode(ctx context.Context, key string, req NodeRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPut, c.baseURL+"/kv/"+key, body)
	if err != nil {
		return fmt.Errorf("put node: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, "put node "+key, http.StatusOK, http.StatusCreated); err != nil {
		return err
	}
	return nil
}

// GetNode retrieves a node by key. A missing node yields (nil, nil).
func (c *Client) GetNode(ctx context.Context, key string) (*NodeResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, c.baseURL+"/kv/"+key, nil)
	if err != nil {
		return nil, fmt.Errorf("get node: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err := checkStatus(resp, "get node "+key, http.StatusOK); err != nil {
		return nil, err
	}

	var node NodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&node); err != nil {
		return nil, fmt.Errorf("decode node: %w", err)
	}
	return &node, nil
}

// DeleteNode deletes a node and optionally its children.
func (c *Client) DeleteNode(ctx context.Context, key string, recursive bool) error {
	u := c.baseURL + "/kv/" + key
	if recursive {
		u += "?children=true"
	}
	resp, err := c.do(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp, "delete node "+key, http.StatusOK, http.StatusNoContent)
}

// ListChildren does a prefix scan under the given key.
func (c *Client) ListChildren(ctx context.Context, key string, limit int) ([]ListChildrenResponse, error) {
	u := c.baseURL + "/kv/" + key + "/*"
	if limit > 0 {
		u += "?limit=" + url.QueryEscape(fmt.Sprintf("%d", limit))
	}
	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, "list children "+key, http.StatusOK); err != nil {
		return nil, err
	}

	var result struct {
		Nodes []ListChildrenResponse `json:"nodes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode children: %w", err)
	}
	return result.Nodes, nil
}

// PutLink creates or updates an edge between two nodes.
func (c *Client) PutLink(ctx context.Context, req LinkRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal link: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPut, c.baseURL+"/links", body)
	if err != nil {
		return fmt.Errorf("put link: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp, "put link", http.StatusOK, http.StatusCreated)
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) do(ctx context.Context, method, u string, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.httpClient.Do(req)
}

// checkStatus returns nil when resp has one of the ok codes, a
// RetryableError for 429 and 5xx, and a plain error otherwise.
func checkStatus(resp *http.Response, op string, ok ...int) error {
	for _, code := range ok {
		if resp.StatusCode == code {
			return nil
		}
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("%s: %w", op, &RetryableError{StatusCode: resp.StatusCode, Message: string(body)})
	}
	return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, string(body))
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slugify converts s into a key segment of at most 50 characters.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	return s
}

// AnalysisKey returns the key of a node under analyses/{jobID}.
func AnalysisKey(jobID string, parts ...string) string {
	return strings.Join(append([]string{"analyses", jobID}, parts...), "/")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
