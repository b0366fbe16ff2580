package backup

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"demobook/internal/config"

	"golang.org/x/oauth2"
)

var (
	ErrObjectNotFound   = errors.New("remote object not found")
	ErrRevisionConflict = errors.New("remote revision conflict")
	errUnexpectedStatus = errors.New("unexpected remote status")
)

// RemoteObject is one fetched content-store entry: raw bytes plus the
// opaque revision token required for a safe overwrite.
type RemoteObject struct {
	Content  []byte
	Revision string
}

// RemoteStore is the path-addressed content store the local db file is
// mirrored to.
type RemoteStore interface {
	Fetch(ctx context.Context) (*RemoteObject, error)
	Push(ctx context.Context, content []byte, prevRevision string) (string, error)
}

// Client talks to a GitHub-contents-style JSON API: read returns base64
// content plus a sha revision token, write takes the prior token for
// optimistic concurrency.
type Client struct {
	httpClient *http.Client
	baseURL    string
	repository string
	path       string
	branch     string
}

func NewClient(cfg config.BackupConfig) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = 30 * time.Second

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		repository: cfg.Repository,
		path:       cfg.Path,
		branch:     cfg.Branch,
	}
}

func (c *Client) contentURL() string {
	return fmt.Sprintf("%s/repos/%s/contents/%s", c.baseURL, c.repository, c.path)
}

func (c *Client) Fetch(ctx context.Context) (*RemoteObject, error) {
	url := fmt.Sprintf("%s?ref=%s", c.contentURL(), c.branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch remote object: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrObjectNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	var body struct {
		Content string `json:"content"`
		SHA     string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode remote object: %w", err)
	}

	// The API wraps base64 at 60 columns.
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(body.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("decode remote content: %w", err)
	}

	return &RemoteObject{Content: raw, Revision: body.SHA}, nil
}

// Push upserts the object. prevRevision must carry the last-known token
// when the object already exists; a stale or missing token is rejected by
// the store and surfaces as ErrRevisionConflict.
func (c *Client) Push(ctx context.Context, content []byte, prevRevision string) (string, error) {
	payload := map[string]string{
		"message": "update booking store backup",
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  c.branch,
	}
	if prevRevision != "" {
		payload["sha"] = prevRevision
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.contentURL(), bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("push remote object: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return "", ErrRevisionConflict
	default:
		return "", fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	var body struct {
		Content struct {
			SHA string `json:"sha"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode push response: %w", err)
	}
	return body.Content.SHA, nil
}
