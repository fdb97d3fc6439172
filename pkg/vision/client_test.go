package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))
	return path
}

func TestDetectStamps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models/stamp-detector:predict", r.URL.Path)
		_ = json.NewEncoder(w).Encode(detectResponse{Boxes: []Detection{
			{X1: 10, Y1: 20, X2: 110, Y2: 120, Confidence: 0.88},
			{X1: 5, Y1: 5, X2: 50, Y2: 50, Confidence: 0.12},
		}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	boxes, err := client.DetectStamps(context.Background(), tempImage(t))
	require.NoError(t, err)
	require.Len(t, boxes, 2)
	assert.InDelta(t, 0.88, boxes[0].Confidence, 1e-9)
	assert.InDelta(t, 110.0, boxes[0].X2, 1e-9)
}

func TestClassifyDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models/doc-classifier:predict", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Classification{
			Labels: []string{"Irrelevant", "Relevant"},
			Probs:  []float64{0.2, 0.8},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	cls, err := client.ClassifyDocument(context.Background(), tempImage(t))
	require.NoError(t, err)
	assert.Equal(t, "Relevant", cls.Top())
}

func TestClassificationTop(t *testing.T) {
	tests := []struct {
		name string
		cls  Classification
		want string
	}{
		{
			name: "argmax selection",
			cls:  Classification{Labels: []string{"a", "b", "c"}, Probs: []float64{0.1, 0.7, 0.2}},
			want: "b",
		},
		{
			name: "first wins on tie",
			cls:  Classification{Labels: []string{"a", "b"}, Probs: []float64{0.5, 0.5}},
			want: "a",
		},
		{
			name: "empty classification",
			cls:  Classification{},
			want: "",
		},
		{
			name: "probs longer than labels",
			cls:  Classification{Labels: []string{"a"}, Probs: []float64{0.3, 0.9}},
			want: "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cls.Top())
		})
	}
}

func TestDetectStampsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "detector crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.DetectStamps(context.Background(), tempImage(t))
	assert.Error(t, err)
}
