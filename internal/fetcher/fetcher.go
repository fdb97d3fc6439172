// Package fetcher resolves document sources (local paths, HTTP(S) and FTP
// URLs) into local files the pipeline can read, and cleans them up after.
package fetcher

import (
	"context"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/config"
	"github.com/sells-group/invoice-cli/internal/model"
)

// Source is one requested document: exactly one of Path or URL is set.
type Source struct {
	Path string
	URL  string
}

// Validate enforces the one-of constraint.
func (s Source) Validate() error {
	if (s.Path == "") == (s.URL == "") {
		return model.ErrAmbiguousSource
	}
	return nil
}

// Fetched is a local file ready for processing. Transient files were
// downloaded by the fetcher and belong to the caller to delete.
type Fetched struct {
	Path      string
	Transient bool
}

// Fetcher resolves Sources to local files.
type Fetcher struct {
	http       *HTTPFetcher
	ftpTimeout time.Duration
	tempDir    string
}

// New creates a Fetcher from config.
func New(cfg config.FetchConfig, tempDir string) *Fetcher {
	ftpTimeout := time.Duration(cfg.FTPTimeoutSecs) * time.Second
	if ftpTimeout == 0 {
		ftpTimeout = 30 * time.Second
	}
	return &Fetcher{
		http: NewHTTPFetcher(HTTPOptions{
			Timeout:       time.Duration(cfg.TimeoutSecs) * time.Second,
			MaxRetries:    cfg.Retries + 1,
			RatePerSecond: cfg.RatePerSecond,
		}),
		ftpTimeout: ftpTimeout,
		tempDir:    tempDir,
	}
}

// Fetch resolves a source to a local file. Local paths are returned as-is;
// URLs are downloaded to a temp file that keeps the source's extension so
// file type detection still works.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (Fetched, error) {
	if err := src.Validate(); err != nil {
		return Fetched{}, err
	}

	if src.Path != "" {
		if _, err := os.Stat(src.Path); err != nil {
			return Fetched{}, eris.Wrapf(model.ErrDownloadFailed, "fetch: stat %s: %v", src.Path, err)
		}
		return Fetched{Path: src.Path}, nil
	}

	u, err := url.Parse(src.URL)
	if err != nil {
		return Fetched{}, eris.Wrapf(model.ErrDownloadFailed, "fetch: parse url %s: %v", src.URL, err)
	}

	dest, err := f.tempFile(u.Path)
	if err != nil {
		return Fetched{}, err
	}

	switch u.Scheme {
	case "http", "https":
		if _, err := f.http.DownloadToFile(ctx, src.URL, dest); err != nil {
			f.Remove(dest)
			return Fetched{}, err
		}
	case "ftp":
		if _, err := fetchFTP(ctx, src.URL, dest, f.ftpTimeout); err != nil {
			f.Remove(dest)
			return Fetched{}, eris.Wrapf(model.ErrDownloadFailed, "fetch: ftp %s: %v", src.URL, err)
		}
	default:
		f.Remove(dest)
		return Fetched{}, eris.Wrapf(model.ErrDownloadFailed, "fetch: unsupported scheme %q", u.Scheme)
	}

	return Fetched{Path: dest, Transient: true}, nil
}

// Remove deletes a downloaded artifact, best-effort.
func (f *Fetcher) Remove(localPath string) {
	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		zap.L().Warn("fetch: remove artifact failed", zap.String("path", localPath), zap.Error(err))
	}
}

// tempFile reserves a destination file carrying the same extension as the
// source URL path.
func (f *Fetcher) tempFile(urlPath string) (string, error) {
	ext := strings.ToLower(path.Ext(urlPath))
	file, err := os.CreateTemp(f.tempDir, "invoice-doc-*"+ext)
	if err != nil {
		return "", eris.Wrap(err, "fetch: create temp file")
	}
	name := file.Name()
	if err := file.Close(); err != nil {
		return "", eris.Wrapf(err, "fetch: close temp file %s", name)
	}
	return name, nil
}
