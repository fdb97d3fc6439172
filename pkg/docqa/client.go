// Package docqa provides clients for the document question-answering model
// used as the primary field extraction strategy.
package docqa

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

// Answer is one model response to a prompt over a page image.
type Answer struct {
	Text       string
	Confidence float64
}

// Client defines the document-QA operations.
type Client interface {
	// Answer asks one natural-language question about a page image.
	Answer(ctx context.Context, imagePath, prompt string) (*Answer, error)
}

// Option configures the model-server client.
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

// NewClient creates a client for the document-QA model server.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type predictRequest struct {
	Image  string `json:"image"`
	Prompt string `json:"prompt"`
}

type predictResponse struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
}

func (c *httpClient) Answer(ctx context.Context, imagePath, prompt string) (*Answer, error) {
	image, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, eris.Wrapf(err, "docqa: read image %s", imagePath)
	}

	body, err := json.Marshal(predictRequest{
		Image:  base64.StdEncoding.EncodeToString(image),
		Prompt: prompt,
	})
	if err != nil {
		return nil, eris.Wrap(err, "docqa: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/models/docqa:predict", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "docqa: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "docqa: predict")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, eris.Errorf("docqa: model server status %d: %s", resp.StatusCode, string(data))
	}

	var pr predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, eris.Wrap(err, "docqa: decode response")
	}

	return &Answer{Text: pr.Answer, Confidence: pr.Score}, nil
}
