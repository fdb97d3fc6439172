package server

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/fetcher"
	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/store"
)

const maxUploadBytes = 64 << 20 // 64 MiB

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	src, cleanup, err := s.sourceFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cleanup()

	stampDetection, _ := strconv.ParseBool(r.FormValue("stamp_detection"))

	records, err := s.svc.Extract(r.Context(), src, stampDetection)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pages": records})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	src, cleanup, err := s.sourceFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cleanup()

	companyID := r.FormValue("company_id")
	if companyID == "" {
		writeError(w, model.ErrInvalidRequest)
		return
	}

	record, err := s.svc.Verify(r.Context(), src, companyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	src, cleanup, err := s.sourceFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cleanup()

	companyID := r.FormValue("company_id")
	if companyID == "" {
		writeError(w, model.ErrInvalidRequest)
		return
	}

	enrollment, err := s.svc.Enroll(r.Context(), src, companyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, enrollment)
}

// handleAnnotate returns the page image with detection boxes drawn, for
// visual inspection of the detector.
func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	src, cleanup, err := s.sourceFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cleanup()

	png, err := s.svc.Annotate(r.Context(), src)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		zap.L().Warn("server: write annotated page failed", zap.Error(err))
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeJSON(w, http.StatusOK, map[string]any{"runs": []model.Run{}})
		return
	}

	filter := store.RunFilter{
		Kind:   model.RunKind(r.URL.Query().Get("kind")),
		Status: model.RunStatus(r.URL.Query().Get("status")),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		filter.Limit, _ = strconv.Atoi(limit)
	}

	runs, err := s.runs.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// sourceFromRequest builds a document Source from either an uploaded file
// or a url form field. Uploads land in a temp file the returned cleanup
// deletes once the request finishes.
func (s *Server) sourceFromRequest(r *http.Request) (fetcher.Source, func(), error) {
	noop := func() {}

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return fetcher.Source{}, noop, model.ErrInvalidRequest
		}

		file, header, err := r.FormFile("file")
		if err == nil {
			defer file.Close()

			if r.FormValue("url") != "" {
				return fetcher.Source{}, noop, model.ErrAmbiguousSource
			}

			ext := strings.ToLower(filepath.Ext(header.Filename))
			tmp, err := os.CreateTemp(s.tempDir, "upload-*"+ext)
			if err != nil {
				return fetcher.Source{}, noop, err
			}
			cleanup := func() {
				if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
					zap.L().Warn("server: remove upload failed", zap.Error(err))
				}
			}
			if _, err := io.Copy(tmp, file); err != nil {
				tmp.Close()
				cleanup()
				return fetcher.Source{}, noop, err
			}
			if err := tmp.Close(); err != nil {
				cleanup()
				return fetcher.Source{}, noop, err
			}
			return fetcher.Source{Path: tmp.Name()}, cleanup, nil
		}
	} else if err := r.ParseForm(); err != nil {
		return fetcher.Source{}, noop, model.ErrInvalidRequest
	}

	src := fetcher.Source{URL: r.FormValue("url")}
	if err := src.Validate(); err != nil {
		return fetcher.Source{}, noop, err
	}
	return src, noop, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("server: encode response failed", zap.Error(err))
	}
}

// writeError maps domain codes to HTTP statuses; everything uncoded is a
// 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code, ok := model.CodeOf(err)
	if ok {
		switch code {
		case model.CodeInvalidRequest, model.CodeAmbiguousSource:
			status = http.StatusBadRequest
		case model.CodeUnsupportedFileType, model.CodeEnrollmentNotImage:
			status = http.StatusUnsupportedMediaType
		case model.CodeSourceForbidden:
			status = http.StatusForbidden
		case model.CodeNoStampMatch:
			status = http.StatusNotFound
		case model.CodeDownloadFailed:
			status = http.StatusBadGateway
		}
	} else {
		zap.L().Error("server: request failed", zap.Error(err))
	}

	writeJSON(w, status, map[string]any{
		"error": err.Error(),
		"code":  int(code),
	})
}
