package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/invoice-cli/internal/config"
	"github.com/sells-group/invoice-cli/internal/model"
)

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	return New(config.FetchConfig{
		TimeoutSecs:   5,
		Retries:       0,
		RatePerSecond: 100,
	}, t.TempDir())
}

func TestSourceValidate(t *testing.T) {
	assert.NoError(t, Source{Path: "doc.pdf"}.Validate())
	assert.NoError(t, Source{URL: "https://example.com/doc.pdf"}.Validate())
	assert.ErrorIs(t, Source{}.Validate(), model.ErrAmbiguousSource)
	assert.ErrorIs(t, Source{Path: "doc.pdf", URL: "https://example.com/doc.pdf"}.Validate(), model.ErrAmbiguousSource)
}

func TestFetchLocalPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoice.pdf")
	require.NoError(t, os.WriteFile(path, []byte("pdf"), 0o600))

	fetched, err := newTestFetcher(t).Fetch(context.Background(), Source{Path: path})
	require.NoError(t, err)
	assert.Equal(t, path, fetched.Path)
	assert.False(t, fetched.Transient)
}

func TestFetchLocalPathMissing(t *testing.T) {
	_, err := newTestFetcher(t).Fetch(context.Background(), Source{Path: "/nonexistent/doc.pdf"})
	assert.ErrorIs(t, err, model.ErrDownloadFailed)
}

func TestFetchHTTPDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pdf content"))
	}))
	defer srv.Close()

	fetched, err := newTestFetcher(t).Fetch(context.Background(), Source{URL: srv.URL + "/docs/invoice.pdf"})
	require.NoError(t, err)
	assert.True(t, fetched.Transient)
	// Extension survives the temp rename so file type detection works.
	assert.True(t, strings.HasSuffix(fetched.Path, ".pdf"), fetched.Path)

	data, err := os.ReadFile(fetched.Path)
	require.NoError(t, err)
	assert.Equal(t, "pdf content", string(data))
}

func TestFetchHTTPForbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestFetcher(t).Fetch(context.Background(), Source{URL: srv.URL + "/invoice.pdf"})
	assert.ErrorIs(t, err, model.ErrSourceForbidden)
}

func TestFetchHTTPServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestFetcher(t).Fetch(context.Background(), Source{URL: srv.URL + "/invoice.pdf"})
	assert.ErrorIs(t, err, model.ErrDownloadFailed)
}

func TestFetchHTTPNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestFetcher(t).Fetch(context.Background(), Source{URL: srv.URL + "/invoice.pdf"})
	assert.ErrorIs(t, err, model.ErrDownloadFailed)
}

func TestFetchUnsupportedScheme(t *testing.T) {
	_, err := newTestFetcher(t).Fetch(context.Background(), Source{URL: "gopher://example.com/doc.pdf"})
	assert.ErrorIs(t, err, model.ErrDownloadFailed)
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "flaky", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(config.FetchConfig{TimeoutSecs: 5, Retries: 2, RatePerSecond: 100}, t.TempDir())
	fetched, err := f.Fetch(context.Background(), Source{URL: srv.URL + "/invoice.png"})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	f.Remove(fetched.Path)
	_, statErr := os.Stat(fetched.Path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRemoveMissingFileIsQuiet(t *testing.T) {
	newTestFetcher(t).Remove("/nonexistent/file.png")
}
