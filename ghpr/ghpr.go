// Package ghpr opens pull requests through the GitHub REST API. The
// pipeline pushes a branch via gitrev, then hands the branch name here.
package ghpr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the public GitHub API endpoint. GitHub Enterprise
// installs override it.
const DefaultBaseURL = "https://api.github.com"

// Client is a minimal GitHub API client scoped to pull requests.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a Client authenticating with the given token.
// An empty baseURL selects the public GitHub API.
func NewClient(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// PullRequest describes the PR to open.
type PullRequest struct {
	// Title of the pull request.
	Title string `json:"title"`
	// Head is the branch holding the new translations.
	Head string `json:"head"`
	// Base is the branch to merge into.
	Base string `json:"base"`
	// Body is the PR description.
	Body string `json:"body,omitempty"`
}

// Created holds the fields of interest from a created pull request.
type Created struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
}

// Create opens a pull request on repo ("owner/name").
func (c *Client) Create(ctx context.Context, repo string, pr PullRequest) (*Created, error) {
	payload, err := json.Marshal(pr)
	if err != nil {
		return nil, fmt.Errorf("marshaling pull request: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/pulls", c.baseURL, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("creating pull request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("creating pull request: HTTP %d: %s", resp.StatusCode, truncate(string(body), 500))
	}

	var created Created
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return &created, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
