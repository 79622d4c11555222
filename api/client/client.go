// Package client calls a running docqa API server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apisearch "github.com/papercomputeco/docqa/api/search"
	"github.com/papercomputeco/docqa/pkg/composer"
)

// DefaultTimeout bounds one request; answers can take as long as the
// server's own request timeout.
const DefaultTimeout = 3 * time.Minute

// Client is an HTTP client for the docqa API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// New creates a Client for the server at apiTarget.
func New(apiTarget string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API target URL: %q", apiTarget)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	return &Client{baseURL: u, httpClient: httpClient}, nil
}

type askRequest struct {
	Question string          `json:"question"`
	History  []composer.Turn `json:"history,omitempty"`
}

// Ask posts a question with its history to /ask.
func (c *Client) Ask(ctx context.Context, question string, history []composer.Turn) (composer.Answer, error) {
	body, err := json.Marshal(askRequest{Question: question, History: history})
	if err != nil {
		return composer.Answer{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/ask", nil), bytes.NewReader(body))
	if err != nil {
		return composer.Answer{}, fmt.Errorf("creating ask request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var answer composer.Answer
	if err := c.do(req, &answer); err != nil {
		return composer.Answer{}, err
	}
	if answer.Sources == nil {
		answer.Sources = []string{}
	}
	return answer, nil
}

// Search calls /search and returns the scored chunks.
func (c *Client) Search(ctx context.Context, query string, topK int) (*apisearch.SearchOutput, error) {
	q := url.Values{}
	q.Set("query", query)
	if topK > 0 {
		q.Set("top_k", strconv.Itoa(topK))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/search", q), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}

	var output apisearch.SearchOutput
	if err := c.do(req, &output); err != nil {
		return nil, err
	}
	return &output, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = path
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to docqa API at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s failed (HTTP %d): %s", req.Method, req.URL.Path, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
