// Package embed provides a client for the stamp image embedding model.
package embed

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the embedding operations.
type Client interface {
	// EmbedImage computes the embedding vector for an encoded image.
	EmbedImage(ctx context.Context, image []byte) ([]float32, error)
}

// Option configures the embedding client.
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

// NewClient creates an embedding model server client.
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

type embedRequest struct {
	Image string `json:"image"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (c *httpClient) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Image: base64.StdEncoding.EncodeToString(image)})
	if err != nil {
		return nil, eris.Wrap(err, "embed: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/models/stamp-embedder:predict", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "embed: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "embed: predict")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, eris.Errorf("embed: model server status %d: %s", resp.StatusCode, string(data))
	}

	var er embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, eris.Wrap(err, "embed: decode response")
	}
	if len(er.Embedding) == 0 {
		return nil, eris.New("embed: model returned an empty embedding")
	}
	return er.Embedding, nil
}
