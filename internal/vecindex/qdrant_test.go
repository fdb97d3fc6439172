package vecindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQdrantSearch(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/collections/stamps/points/search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"id": "abc", "score": 0.91, "payload": map[string]any{"company_id": "774433"}},
				{"id": "def", "score": 0.42, "payload": map[string]any{"company_id": "112233"}},
			},
		})
	}))
	defer srv.Close()

	idx := NewQdrant(QdrantConfig{BaseURL: srv.URL})
	matches, err := idx.Search(context.Background(), []float32{0.1, 0.2}, 10, "774433")
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "abc", matches[0].ID)
	assert.InDelta(t, 0.91, matches[0].Score, 1e-9)
	assert.Equal(t, "774433", matches[0].CompanyID())

	// The company filter must be sent as a payload match condition.
	filter, ok := gotBody["filter"].(map[string]any)
	require.True(t, ok, "expected a filter clause")
	must := filter["must"].([]any)
	require.Len(t, must, 1)
	cond := must[0].(map[string]any)
	assert.Equal(t, "company_id", cond["key"])
	assert.EqualValues(t, 10, gotBody["limit"])
}

func TestQdrantSearchNoFilterWhenCompanyEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, hasFilter := body["filter"]
		assert.False(t, hasFilter)
		_ = json.NewEncoder(w).Encode(map[string]any{"result": []any{}})
	}))
	defer srv.Close()

	idx := NewQdrant(QdrantConfig{BaseURL: srv.URL})
	matches, err := idx.Search(context.Background(), []float32{0.1}, 1, "")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestQdrantUpsertWaitsForAck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/collections/stamps/points", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("wait"))

		var body struct {
			Points []struct {
				ID      string         `json:"id"`
				Vector  []float32      `json:"vector"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Points, 1)
		assert.Equal(t, "stamp-1", body.Points[0].ID)
		assert.Equal(t, "774433", body.Points[0].Payload["company_id"])

		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"status": "completed"}})
	}))
	defer srv.Close()

	idx := NewQdrant(QdrantConfig{BaseURL: srv.URL})
	err := idx.Upsert(context.Background(), Point{
		ID:       "stamp-1",
		Vector:   []float32{0.5, 0.5},
		Metadata: map[string]any{MetadataCompanyID: "774433"},
	})
	assert.NoError(t, err)
}

func TestQdrantHas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/stamps/points/present" {
			_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"id": "present"}})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	idx := NewQdrant(QdrantConfig{BaseURL: srv.URL})

	ok, err := idx.Has(context.Background(), "present")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = idx.Has(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQdrantSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection not found", http.StatusNotFound)
	}))
	defer srv.Close()

	idx := NewQdrant(QdrantConfig{BaseURL: srv.URL})
	_, err := idx.Search(context.Background(), []float32{0.1}, 1, "")
	assert.Error(t, err)
}

func TestQdrantRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"id": "abc", "score": 0.91},
			},
		})
	}))
	defer srv.Close()

	idx := NewQdrant(QdrantConfig{BaseURL: srv.URL})
	idx.retry.BaseDelay = time.Millisecond

	matches, err := idx.Search(context.Background(), []float32{0.1}, 1, "")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.EqualValues(t, 2, calls.Load())
}
