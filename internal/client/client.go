// Package client talks to a running skyscope detection server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/skyscope/skyscope/internal/models"
)

// ErrNetworkFailure is returned when the server could not be reached. Requests are not retried.
var ErrNetworkFailure = errors.New("network failure")

// APIError is a non-2xx reply from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Detect uploads an image with the classes to keep and returns the server's detections.
func (c *Client) Detect(ctx context.Context, filename string, image []byte, classes []models.ClassToken) ([]models.Detection, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fw.Write(image); err != nil {
		return nil, fmt.Errorf("failed to write image: %w", err)
	}
	for _, class := range classes {
		if err := mw.WriteField("classes", string(class)); err != nil {
			return nil, fmt.Errorf("failed to write class field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/detect", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrNetworkFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errBody models.ErrorResponse
		if json.Unmarshal(data, &errBody) == nil && errBody.Error != "" {
			apiErr.Message = errBody.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return nil, apiErr
	}

	var response models.DetectionResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	if response.Detections == nil {
		response.Detections = []models.Detection{}
	}
	return response.Detections, nil
}
