package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultBaseURL = "https://api.github.com"
	acceptHeader   = "application/vnd.github.v3+json"
	apiVersion     = "2022-11-28"
)

// Config describes the repository used as a document database.
type Config struct {
	BaseURL    string
	Token      string
	Owner      string
	Repo       string
	Branch     string
	RetryCount int
	Timeout    time.Duration
}

// Client talks to the Contents API of a single repository branch.
type Client struct {
	client *resty.Client
	owner  string
	repo   string
	branch string
	ready  bool
}

// File is a decoded blob from the Contents API.
type File struct {
	Path    string
	SHA     string
	Content []byte
}

// PutFileRequest replaces (or creates, when SHA is empty) a file.
type PutFileRequest struct {
	Path    string
	Content []byte
	SHA     string
	Message string
}

type contentsResponse struct {
	Type     string `json:"type"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

type putBody struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch"`
}

type putResponse struct {
	Content contentsResponse `json:"content"`
}

type errorBody struct {
	Message string `json:"message"`
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", acceptHeader).
		SetHeader("X-GitHub-Api-Version", apiVersion).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Writes are never retried on a status code.
			return err == nil && r.Request.Method == http.MethodGet && r.StatusCode() >= 500
		})
	if cfg.Token != "" {
		rc.SetAuthToken(cfg.Token)
	}

	return &Client{
		client: rc,
		owner:  cfg.Owner,
		repo:   cfg.Repo,
		branch: cfg.Branch,
		ready:  cfg.Token != "" && cfg.Owner != "" && cfg.Repo != "",
	}
}

// IsConfigured reports whether token, owner and repo are all present.
func (c *Client) IsConfigured() bool {
	return c.ready
}

// Branch returns the branch every read and write targets.
func (c *Client) Branch() string {
	return c.branch
}

// GetFile fetches path on the configured branch and decodes its content.
func (c *Client) GetFile(ctx context.Context, path string) (*File, error) {
	var out contentsResponse
	var apiErr errorBody

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParams(c.repoParams()).
		SetRawPathParam("path", cleanPath(path)).
		SetQueryParam("ref", c.branch).
		SetResult(&out).
		SetError(&apiErr).
		Get("/repos/{owner}/{repo}/contents/{path}")
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	if resp.IsError() {
		return nil, &ResponseError{Method: http.MethodGet, Path: path, StatusCode: resp.StatusCode(), Message: apiErr.Message}
	}
	if out.Type != "" && out.Type != "file" {
		return nil, fmt.Errorf("get %s: expected a file, got %s", path, out.Type)
	}

	content, err := decodeContent(out.Content, out.Encoding)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return &File{Path: path, SHA: out.SHA, Content: content}, nil
}

// PutFile writes a new commit replacing the file. The API rejects the write
// when req.SHA no longer matches the stored blob.
func (c *Client) PutFile(ctx context.Context, req PutFileRequest) (*File, error) {
	var out putResponse
	var apiErr errorBody

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParams(c.repoParams()).
		SetRawPathParam("path", cleanPath(req.Path)).
		SetBody(putBody{
			Message: req.Message,
			Content: base64.StdEncoding.EncodeToString(req.Content),
			SHA:     req.SHA,
			Branch:  c.branch,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Put("/repos/{owner}/{repo}/contents/{path}")
	if err != nil {
		return nil, fmt.Errorf("put %s: %w", req.Path, err)
	}
	if resp.IsError() {
		return nil, &ResponseError{Method: http.MethodPut, Path: req.Path, StatusCode: resp.StatusCode(), Message: apiErr.Message}
	}

	return &File{Path: req.Path, SHA: out.Content.SHA, Content: req.Content}, nil
}

func (c *Client) repoParams() map[string]string {
	return map[string]string{
		"owner": c.owner,
		"repo":  c.repo,
	}
}

// cleanPath keeps the slashes of a repository path but escapes each segment.
func cleanPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func decodeContent(content, encoding string) ([]byte, error) {
	switch encoding {
	case "", "none":
		return []byte(content), nil
	case "base64":
		// The API wraps base64 payloads at 60 columns.
		clean := strings.NewReplacer("\n", "", "\r", "").Replace(content)
		return base64.StdEncoding.DecodeString(clean)
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}
