// Package client is a small HTTP client for the sync API, used by syncctl.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// APIError is a non-success response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// envelope is the server's standard JSON response body.
type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	ShortURL  string          `json:"short_url"`
	ShortCode string          `json:"short_code"`
}

// HistoryItem is one entry from /api/history; texts and files share the
// shape, distinguished by Type.
type HistoryItem struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Content      string    `json:"content"`
	OriginalName string    `json:"original_name"`
	Timestamp    time.Time `json:"timestamp"`
	Size         int64     `json:"size"`
}

// URLItem is one entry from /api/url-history.
type URLItem struct {
	ID        string    `json:"id"`
	LongURL   string    `json:"long_url"`
	ShortCode string    `json:"short_code"`
	ShortURL  string    `json:"short_url"`
	Clicks    int64     `json:"clicks"`
	Timestamp time.Time `json:"timestamp"`
}

// Client talks to a sync server. The auth cookie obtained by Login is held
// in the client's cookie jar for the life of the process.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Login authenticates with the shared password and stores the auth cookie.
func (c *Client) Login(password string) error {
	_, err := c.postJSON("/api/login", map[string]string{"password": password})
	return err
}

// SyncText shares a text snippet.
func (c *Client) SyncText(text string) error {
	_, err := c.postJSON("/api/sync-text", map[string]string{"text": text})
	return err
}

// UploadFile uploads the file at path.
func (c *Client) UploadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish upload form: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/upload-file", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	_, err = c.do(req)
	return err
}

// ShortenURL shortens a URL and returns the short URL.
func (c *Client) ShortenURL(longURL string) (string, error) {
	env, err := c.postJSON("/api/shorten-url", map[string]string{"url": longURL})
	if err != nil {
		return "", err
	}
	return env.ShortURL, nil
}

// History returns the merged recent texts and files.
func (c *Client) History() ([]HistoryItem, error) {
	env, err := c.getJSON("/api/history")
	if err != nil {
		return nil, err
	}

	var items []HistoryItem
	if err := json.Unmarshal(env.Data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return items, nil
}

// URLHistory returns all shortened URLs.
func (c *Client) URLHistory() ([]URLItem, error) {
	env, err := c.getJSON("/api/url-history")
	if err != nil {
		return nil, err
	}

	var items []URLItem
	if err := json.Unmarshal(env.Data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode url history: %w", err)
	}
	return items, nil
}

// ClearHistory removes all texts, files and URLs from the server.
func (c *Client) ClearHistory() error {
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/clear-history", nil)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

func (c *Client) postJSON(path string, body any) (*envelope, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) getJSON(path string) (*envelope, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*envelope, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode >= 400 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}

	return &env, nil
}
