// Package api talks to the document server that collects saved sessions.
package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// UploadMetadata describes a document sent with Upload.
type UploadMetadata struct {
	Name            string
	DurationSeconds float64
	MarkCount       int
	SessionID       string
}

// Client handles communication with the document server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// BaseURL returns the server address without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Healthcheck checks if the document server is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthcheck", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// Upload streams a saved document to the server as a multipart form.
func (c *Client) Upload(ctx context.Context, filePath string, meta UploadMetadata) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	errCh := make(chan error, 1)
	go func() {
		var werr error
		defer func() {
			if cerr := writer.Close(); werr == nil {
				werr = cerr
			}
			pw.CloseWithError(werr)
			errCh <- werr
		}()

		fields := [][2]string{
			{"secret", c.apiKey},
			{"filename", filepath.Base(filePath)},
			{"name", meta.Name},
			{"duration", strconv.FormatFloat(meta.DurationSeconds, 'f', 2, 64)},
			{"marks", strconv.Itoa(meta.MarkCount)},
			{"session", meta.SessionID},
		}
		for _, f := range fields {
			if werr = writer.WriteField(f[0], f[1]); werr != nil {
				return
			}
		}

		part, err := writer.CreateFormFile("file", filepath.Base(filePath))
		if err != nil {
			werr = fmt.Errorf("failed to create form file: %w", err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			werr = fmt.Errorf("failed to copy file: %w", err)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/documents", pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		<-errCh
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		_ = pr.CloseWithError(err)
		<-errCh
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if writeErr := <-errCh; writeErr != nil {
		return writeErr
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload returned status %d", resp.StatusCode)
	}
	return nil
}
