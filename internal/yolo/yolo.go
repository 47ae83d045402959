package yolo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/skyscope/skyscope/internal/models"
)

// Options configures the sidecar client
type Options struct {
	URL        string
	Confidence float64
	IoU        float64
	HTTPClient *http.Client
}

// YOLO is a detector backed by a YOLO inference sidecar reached over HTTP
type YOLO struct {
	baseURL    string
	confidence float64
	iou        float64
	client     *http.Client
	labels     []string
}

// New connects to the sidecar and loads its label vocabulary.
func New(ctx context.Context, opts Options) (*YOLO, error) {
	baseURL := opts.URL
	if baseURL == "" {
		baseURL = os.Getenv("YOLO_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	y := &YOLO{
		baseURL:    strings.TrimRight(baseURL, "/"),
		confidence: opts.Confidence,
		iou:        opts.IoU,
		client:     client,
	}

	labels, err := y.fetchLabels(ctx)
	if err != nil {
		return nil, err
	}
	y.labels = labels
	return y, nil
}

// Labels returns the class names in index order
func (y *YOLO) Labels() []string {
	return y.labels
}

// Close is a no-op; the sidecar owns the model.
func (y *YOLO) Close() error {
	return nil
}

func (y *YOLO) fetchLabels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", y.baseURL+"/labels", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Names []string `json:"names"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return response.Names, nil
}

// Detect runs one full inference pass. Each returned row from the sidecar is
// [x1, y1, x2, y2, confidence, class].
func (y *YOLO) Detect(ctx context.Context, frame models.Frame) ([]models.RawDetection, error) {
	q := url.Values{}
	q.Set("conf", strconv.FormatFloat(y.confidence, 'f', -1, 64))
	q.Set("iou", strconv.FormatFloat(y.iou, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, "POST", y.baseURL+"/predict?"+q.Encode(), bytes.NewReader(frame.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "image/"+frame.Format)

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Detections [][]float64 `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	raw := make([]models.RawDetection, 0, len(response.Detections))
	for i, row := range response.Detections {
		if len(row) != 6 {
			return nil, fmt.Errorf("detection %d has %d columns, expected 6", i, len(row))
		}
		raw = append(raw, models.RawDetection{
			BBox:       [4]float64{row[0], row[1], row[2], row[3]},
			Confidence: row[4],
			ClassIndex: int(row[5]),
		})
	}
	return raw, nil
}
