// Package vision provides a client for the vision model server hosting the
// stamp detector and the document-type classifier.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"
)

// Detection is one raw detector box, unfiltered.
type Detection struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Rotation   float64 `json:"rotation"`
	Confidence float64 `json:"confidence"`
}

// Classification is the document-type classifier output: parallel label and
// probability slices, one entry per class.
type Classification struct {
	Labels []string  `json:"labels"`
	Probs  []float64 `json:"probs"`
}

// Top returns the label with the highest probability, or "" for an empty
// classification.
func (c Classification) Top() string {
	best := -1
	for i, p := range c.Probs {
		if i >= len(c.Labels) {
			break
		}
		if best < 0 || p > c.Probs[best] {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return c.Labels[best]
}

// Client defines the vision model server operations.
type Client interface {
	// DetectStamps runs the stamp detector over a page image and returns
	// every raw box the model produced.
	DetectStamps(ctx context.Context, imagePath string) ([]Detection, error)
	// ClassifyDocument runs the document-type classifier over a page image.
	ClassifyDocument(ctx context.Context, imagePath string) (*Classification, error)
}

// Option configures the vision client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a vision model server client.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type predictRequest struct {
	Image string `json:"image"`
}

type detectResponse struct {
	Boxes []Detection `json:"boxes"`
}

func (c *httpClient) DetectStamps(ctx context.Context, imagePath string) ([]Detection, error) {
	var resp detectResponse
	if err := c.predict(ctx, "/v1/models/stamp-detector:predict", imagePath, &resp); err != nil {
		return nil, err
	}
	return resp.Boxes, nil
}

func (c *httpClient) ClassifyDocument(ctx context.Context, imagePath string) (*Classification, error) {
	var resp Classification
	if err := c.predict(ctx, "/v1/models/doc-classifier:predict", imagePath, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpClient) predict(ctx context.Context, path, imagePath string, out any) error {
	image, err := os.ReadFile(imagePath)
	if err != nil {
		return eris.Wrapf(err, "vision: read image %s", imagePath)
	}

	body, err := json.Marshal(predictRequest{Image: base64.StdEncoding.EncodeToString(image)})
	if err != nil {
		return eris.Wrap(err, "vision: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "vision: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "vision: POST %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return eris.Errorf("vision: model server status %d: %s", resp.StatusCode, string(data))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return eris.Wrap(err, "vision: decode response")
	}
	return nil
}
