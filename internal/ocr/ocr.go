// Package ocr extracts text from uploaded images through an external
// image-to-text service. Image bytes pass through untouched; only the
// returned text enters the pipeline.
package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SourceKind tags where an image came from. The pipeline treats both
// kinds identically after text extraction.
type SourceKind string

const (
	KindImage SourceKind = "image"
	KindFrame SourceKind = "frame" // still frame captured from video
)

// Valid reports whether the kind is a known variant.
func (k SourceKind) Valid() bool {
	return k == KindImage || k == KindFrame
}

// Client calls the image-to-text service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type textResponse struct {
	Text string `json:"text"`
}

// TextFromImage sends the image to the service and returns the
// extracted text.
func (c *Client) TextFromImage(ctx context.Context, r io.Reader, kind SourceKind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("unknown source kind %q", kind)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", r)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Source-Kind", string(kind))

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call image-to-text service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("image-to-text service returned %d: %s", resp.StatusCode, body)
	}

	var out textResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode service response: %w", err)
	}
	return out.Text, nil
}
