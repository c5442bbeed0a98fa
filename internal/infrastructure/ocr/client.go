// Package ocr talks to the external recognition service used for scanned
// PDF files whose text layer is missing or broken.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/d1freeez14/neuro-tender/internal/ports"
)

// Client is a reusable HTTP client for the OCR service.
type Client struct {
	endpoint  string
	languages string
	http      *http.Client
}

var _ ports.OCRClient = (*Client)(nil)

// NewClient creates a client for the given endpoint. Recognition of large
// scanned files is slow, so the timeout is generous.
func NewClient(endpoint, languages string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		endpoint:  endpoint,
		languages: languages,
		http:      &http.Client{Timeout: timeout},
	}
}

// Recognize sends the file content for recognition and returns the
// recognized text.
func (c *Client) Recognize(ctx context.Context, filename string, content []byte) (string, error) {
	payload := map[string]any{
		"filename":  filename,
		"content":   base64.StdEncoding.EncodeToString(content),
		"languages": c.languages,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return out.Text, nil
}
