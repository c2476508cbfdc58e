// Package github proxies README, directory tree and archive retrieval
// from the GitHub REST API on behalf of a share's viewer. Every fetch
// fails independently: a missing README never blocks the tree or the
// archive, and no call is ever retried.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.github.com"
	DefaultTimeout = 15 * time.Second

	// Remote trees are attacker-controlled: a hostile repository can
	// nest directories arbitrarily deep. Traversal past these budgets
	// degrades to a partial tree instead of unbounded recursion.
	DefaultMaxDepth = 20
	DefaultMaxNodes = 2000
)

// ErrUnavailable reports a non-success status from the archive endpoint.
var ErrUnavailable = errors.New("archive unavailable")

// Entry is one node of a repository's file tree. Directories carry
// their children; a directory whose listing failed or fell outside the
// traversal budget has none.
type Entry struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Type     string   `json:"type"`
	Size     int64    `json:"size"`
	Children []*Entry `json:"children,omitempty"`
}

type Config struct {
	BaseURL  string
	Timeout  time.Duration
	MaxDepth int
	MaxNodes int
}

// Client fetches content for a single (owner, repo) pair using one
// decrypted access token. The HTTP client carries an explicit timeout
// so a stalled remote fails the fetch instead of hanging the request.
type Client struct {
	http     *http.Client
	baseURL  string
	token    string
	owner    string
	repo     string
	maxDepth int
	maxNodes int
}

func NewClient(token, owner, repo string, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.MaxNodes <= 0 {
		cfg.MaxNodes = DefaultMaxNodes
	}

	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    token,
		owner:    owner,
		repo:     repo,
		maxDepth: cfg.MaxDepth,
		maxNodes: cfg.MaxNodes,
	}
}

func (c *Client) Owner() string { return c.owner }
func (c *Client) Repo() string  { return c.repo }

// FetchTree retrieves the repository's directory listing and descends
// into subdirectories with an explicit worklist. A failed listing
// resolves that subtree to no children while siblings stay populated;
// exceeding the depth or node budget does the same.
func (c *Client) FetchTree(ctx context.Context) []*Entry {
	roots := c.listDir(ctx, "")
	nodes := len(roots)

	type frame struct {
		dir   *Entry
		depth int
	}

	var stack []frame
	for _, e := range roots {
		if e.Type == "dir" {
			stack = append(stack, frame{e, 1})
		}
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.depth >= c.maxDepth || nodes >= c.maxNodes {
			continue
		}

		children := c.listDir(ctx, f.dir.Path)
		nodes += len(children)
		f.dir.Children = children

		for _, e := range children {
			if e.Type == "dir" {
				stack = append(stack, frame{e, f.depth + 1})
			}
		}
	}

	return roots
}

func (c *Client) listDir(ctx context.Context, path string) []*Entry {
	url := fmt.Sprintf("%s/repos/%s/%s/contents", c.baseURL, c.owner, c.repo)
	if path != "" {
		url += "/" + path
	}

	resp, err := c.get(ctx, url)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var entries []*Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil
	}
	return entries
}

// FetchReadme returns the repository README's markdown source, or
// ok=false on any non-success status or decode failure.
func (c *Client) FetchReadme(ctx context.Context) (string, bool) {
	url := fmt.Sprintf("%s/repos/%s/%s/readme", c.baseURL, c.owner, c.repo)

	resp, err := c.get(ctx, url)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	text, err := decodeContent(resp.Body)
	if err != nil {
		return "", false
	}
	return text, true
}

// FetchFile returns a single blob's decoded content.
func (c *Client) FetchFile(ctx context.Context, path string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, c.owner, c.repo, path)

	resp, err := c.get(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: status %d", path, resp.StatusCode)
	}

	return decodeContent(resp.Body)
}

// FetchArchive streams the repository zipball. The caller owns the
// returned body and must close it; nothing is buffered here.
func (c *Client) FetchArchive(ctx context.Context) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/zipball", c.baseURL, c.owner, c.repo)

	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, ErrUnavailable
	}

	return resp.Body, nil
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")

	return c.http.Do(req)
}

func decodeContent(r io.Reader) (string, error) {
	var payload struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return "", err
	}

	if payload.Encoding != "base64" {
		return payload.Content, nil
	}

	// GitHub wraps base64 content with newlines.
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(payload.Content, "\n", ""))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
