package vecindex

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-cli/internal/resilience"
)

// QdrantConfig configures the Qdrant-backed index.
type QdrantConfig struct {
	// BaseURL is the Qdrant REST API base URL (default http://localhost:6333).
	BaseURL string
	// Collection is the collection holding stamp embeddings.
	Collection string
	// Timeout is the per-request HTTP timeout (default 30s).
	Timeout time.Duration
}

// Qdrant implements Index against Qdrant's REST API.
type Qdrant struct {
	baseURL    string
	collection string
	client     *http.Client
	retry      resilience.Policy
}

// NewQdrant creates a Qdrant index client.
func NewQdrant(cfg QdrantConfig) *Qdrant {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:6333"
	}
	if cfg.Collection == "" {
		cfg.Collection = "stamps"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Qdrant{
		baseURL:    cfg.BaseURL,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: cfg.Timeout},
		retry:      resilience.DefaultPolicy(),
	}
}

// EnsureCollection creates the stamp collection if it does not exist.
// Creating an existing collection is not an error for callers.
func (q *Qdrant) EnsureCollection(ctx context.Context, dimensions int) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimensions,
			"distance": "Cosine",
		},
	}
	resp, err := q.doRaw(ctx, http.MethodPut, "/collections/"+q.collection, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 409 means the collection already exists.
	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readError(resp)
	}
	return nil
}

// Search runs a nearest-neighbor query, optionally scoped to one company.
func (q *Qdrant) Search(ctx context.Context, vector []float32, topK int, companyID string) ([]Match, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if companyID != "" {
		body["filter"] = map[string]any{
			"must": []map[string]any{
				{
					"key":   MetadataCompanyID,
					"match": map[string]any{"value": companyID},
				},
			},
		}
	}

	resp, err := q.do(ctx, http.MethodPost, "/collections/"+q.collection+"/points/search", body)
	if err != nil {
		return nil, err
	}

	raw, ok := resp["result"].([]any)
	if !ok {
		return nil, nil
	}

	matches := make([]Match, 0, len(raw))
	for _, r := range raw {
		rm, ok := r.(map[string]any)
		if !ok {
			continue
		}
		m := Match{}
		if id, ok := rm["id"].(string); ok {
			m.ID = id
		}
		if score, ok := rm["score"].(float64); ok {
			m.Score = score
		}
		if payload, ok := rm["payload"].(map[string]any); ok {
			m.Metadata = payload
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// Upsert writes one embedding, asking Qdrant to acknowledge the write
// before returning.
func (q *Qdrant) Upsert(ctx context.Context, point Point) error {
	body := map[string]any{
		"points": []map[string]any{
			{
				"id":      point.ID,
				"vector":  point.Vector,
				"payload": point.Metadata,
			},
		},
	}
	_, err := q.do(ctx, http.MethodPut, "/collections/"+q.collection+"/points?wait=true", body)
	return err
}

// Has checks point visibility by id.
func (q *Qdrant) Has(ctx context.Context, id string) (bool, error) {
	resp, err := q.doRaw(ctx, http.MethodGet, "/collections/"+q.collection+"/points/"+id, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, readError(resp)
	}
	return true, nil
}

func (q *Qdrant) do(ctx context.Context, method, path string, body any) (map[string]any, error) {
	resp, err := q.doRaw(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readError(resp)
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, eris.Wrap(err, "vecindex: decode qdrant response")
	}
	return result, nil
}

// doRaw issues one request with retries. Transient failures (network
// errors, 429, 5xx) are retried with backoff; everything else is returned
// to the caller as-is.
func (q *Qdrant) doRaw(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return nil, eris.Wrap(err, "vecindex: marshal request")
		}
	}

	return resilience.Retry(ctx, q.retry, "qdrant request", func(ctx context.Context) (*http.Response, error) {
		var reader io.Reader
		if data != nil {
			reader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, reader)
		if err != nil {
			return nil, eris.Wrap(err, "vecindex: build request")
		}
		if data != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := q.client.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "vecindex: %s %s", method, path)
		}
		if resilience.RetryableStatus(resp.StatusCode) {
			err := readError(resp)
			resp.Body.Close()
			return nil, resilience.MarkTransient(err)
		}
		return resp, nil
	})
}

func readError(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	return eris.Errorf("vecindex: qdrant error (status %d): %s", resp.StatusCode, string(data))
}
