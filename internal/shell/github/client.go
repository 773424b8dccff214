// Package github wraps the GitHub REST API surface that publishing needs:
// repository lifecycle, branch refs, file contents and the Pages toggle.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// =============================================================================
// Errors
// =============================================================================

// ErrNotFound is returned when a repository, ref or file does not exist.
var ErrNotFound = errors.New("github: not found")

// APIError is a non-2xx response from the GitHub API.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: %s returned %d: %s", e.URL, e.StatusCode, e.Message)
}

// =============================================================================
// Client
// =============================================================================

// Config holds GitHub API client configuration.
type Config struct {
	// BaseURL overrides the API endpoint; defaults to https://api.github.com.
	BaseURL  string
	Token    string
	Username string

	// RequestTimeout bounds a single API call.
	RequestTimeout time.Duration

	// RetryMax is the transient-retry budget of the underlying transport.
	RetryMax int
}

// Client is a minimal GitHub REST v3 client. Transient transport failures
// are retried by go-retryablehttp; API-level errors surface as APIError.
type Client struct {
	http     *retryablehttp.Client
	baseURL  string
	token    string
	username string
	logger   *slog.Logger
}

// NewClient creates a GitHub API client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.github.com"
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.RetryMax == 0 {
		cfg.RetryMax = 3
	}
	if logger == nil {
		logger = slog.Default()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.HTTPClient.Timeout = cfg.RequestTimeout
	rc.Logger = nil

	return &Client{
		http:     rc,
		baseURL:  cfg.BaseURL,
		token:    cfg.Token,
		username: cfg.Username,
		logger:   logger.With("component", "github"),
	}
}

// Username returns the configured account name.
func (c *Client) Username() string {
	return c.username
}

// do performs one API call, decoding a JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("github: encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	url := c.baseURL + path
	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("github: build request: %w", err)
	}
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := decodeErrorMessage(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Message: msg, URL: url}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("github: decode response: %w", err)
		}
	}
	return nil
}

func decodeErrorMessage(r io.Reader) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil || payload.Message == "" {
		return "unexpected status"
	}
	return payload.Message
}

// =============================================================================
// Repositories
// =============================================================================

// Repo is the subset of repository metadata publishing uses.
type Repo struct {
	Name          string `json:"name"`
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch"`
}

// GetRepo fetches a repository owned by the configured user.
func (c *Client) GetRepo(ctx context.Context, name string) (*Repo, error) {
	var repo Repo
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/%s", c.username, name), nil, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// CreateRepo creates a public repository with an auto-initialized default
// branch (GitHub seeds it with a README commit).
func (c *Client) CreateRepo(ctx context.Context, name, description string) (*Repo, error) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"private":     false,
		"auto_init":   true,
	}
	var repo Repo
	if err := c.do(ctx, http.MethodPost, "/user/repos", body, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// DeleteRepo removes a repository. Missing repositories are not an error.
func (c *Client) DeleteRepo(ctx context.Context, name string) error {
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/repos/%s/%s", c.username, name), nil, nil)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// =============================================================================
// Refs
// =============================================================================

// GetRef returns the commit SHA a branch ref points at, e.g. "heads/main".
func (c *Client) GetRef(ctx context.Context, repo, ref string) (string, error) {
	var payload struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	path := fmt.Sprintf("/repos/%s/%s/git/ref/%s", c.username, repo, ref)
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return "", err
	}
	return payload.Object.SHA, nil
}

// CreateRef creates a branch ref ("refs/heads/<name>") at the given SHA.
func (c *Client) CreateRef(ctx context.Context, repo, ref, sha string) error {
	body := map[string]string{"ref": ref, "sha": sha}
	path := fmt.Sprintf("/repos/%s/%s/git/refs", c.username, repo)
	return c.do(ctx, http.MethodPost, path, body, nil)
}

// =============================================================================
// Contents
// =============================================================================

// GetContentSHA returns the blob SHA of a file on a branch, or ErrNotFound.
func (c *Client) GetContentSHA(ctx context.Context, repo, path, ref string) (string, error) {
	var payload struct {
		SHA string `json:"sha"`
	}
	apiPath := fmt.Sprintf("/repos/%s/%s/contents/%s?ref=%s", c.username, repo, path, ref)
	if err := c.do(ctx, http.MethodGet, apiPath, nil, &payload); err != nil {
		return "", err
	}
	return payload.SHA, nil
}

// PutContent creates or replaces a file on a branch. sha must be the current
// blob SHA when replacing and empty when creating.
func (c *Client) PutContent(ctx context.Context, repo, path, message, content, branch, sha string) error {
	body := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString([]byte(content)),
		"branch":  branch,
	}
	if sha != "" {
		body["sha"] = sha
	}
	apiPath := fmt.Sprintf("/repos/%s/%s/contents/%s", c.username, repo, path)
	return c.do(ctx, http.MethodPut, apiPath, body, nil)
}

// =============================================================================
// Pages
// =============================================================================

// PagesEnabled reports whether GitHub Pages is configured for the repo.
func (c *Client) PagesEnabled(ctx context.Context, repo string) (bool, error) {
	path := fmt.Sprintf("/repos/%s/%s/pages", c.username, repo)
	err := c.do(ctx, http.MethodGet, path, nil, nil)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// EnablePages turns on Pages serving from the given branch root.
// An already-enabled site (409) counts as success.
func (c *Client) EnablePages(ctx context.Context, repo, branch string) error {
	body := map[string]any{
		"source": map[string]string{"branch": branch, "path": "/"},
	}
	path := fmt.Sprintf("/repos/%s/%s/pages", c.username, repo)
	err := c.do(ctx, http.MethodPost, path, body, nil)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
		c.logger.Debug("pages already enabled", "repo", repo)
		return nil
	}
	return err
}
