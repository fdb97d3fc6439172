// Package service ties the fetcher, document pipeline, and run history
// together into the operations exposed by the CLI and the HTTP API.
package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/docpipe"
	"github.com/sells-group/invoice-cli/internal/fetcher"
	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/store"
)

// Coordinator is the document pipeline surface the service drives.
type Coordinator interface {
	Process(ctx context.Context, path string, opts docpipe.Options) ([]model.PageRecord, error)
	Verify(ctx context.Context, path, companyID string, transient bool) (model.VerificationRecord, error)
	Enroll(ctx context.Context, path, companyID string, transient bool) (model.StampEnrollment, error)
	Annotate(ctx context.Context, path string, transient bool) ([]byte, error)
}

// SourceFetcher resolves document sources to local files.
type SourceFetcher interface {
	Fetch(ctx context.Context, src fetcher.Source) (fetcher.Fetched, error)
}

// Service executes document operations and records them in run history.
type Service struct {
	fetch SourceFetcher
	coord Coordinator
	runs  store.Store
}

// New wires a Service. The store may be nil; operations then run
// unrecorded.
func New(fetch SourceFetcher, coord Coordinator, runs store.Store) *Service {
	return &Service{fetch: fetch, coord: coord, runs: runs}
}

// Extract fetches a document and runs field extraction over it.
func (s *Service) Extract(ctx context.Context, src fetcher.Source, stampDetection bool) ([]model.PageRecord, error) {
	runID := s.begin(ctx, model.RunExtract, src)

	fetched, err := s.fetch.Fetch(ctx, src)
	if err != nil {
		s.fail(ctx, runID, err)
		return nil, err
	}

	records, err := s.coord.Process(ctx, fetched.Path, docpipe.Options{
		StampDetection: stampDetection,
		Transient:      fetched.Transient,
	})
	if err != nil {
		s.fail(ctx, runID, err)
		return nil, err
	}

	s.complete(ctx, runID, records)
	return records, nil
}

// Verify fetches a document and checks it for the target company's stamp.
func (s *Service) Verify(ctx context.Context, src fetcher.Source, companyID string) (model.VerificationRecord, error) {
	runID := s.begin(ctx, model.RunVerify, src)

	fetched, err := s.fetch.Fetch(ctx, src)
	if err != nil {
		s.fail(ctx, runID, err)
		return model.VerificationRecord{}, err
	}

	record, err := s.coord.Verify(ctx, fetched.Path, companyID, fetched.Transient)
	if err != nil {
		s.fail(ctx, runID, err)
		return model.VerificationRecord{}, err
	}

	s.complete(ctx, runID, record)
	return record, nil
}

// Enroll fetches a stamp image and registers it for the company.
func (s *Service) Enroll(ctx context.Context, src fetcher.Source, companyID string) (model.StampEnrollment, error) {
	runID := s.begin(ctx, model.RunEnroll, src)

	fetched, err := s.fetch.Fetch(ctx, src)
	if err != nil {
		s.fail(ctx, runID, err)
		return model.StampEnrollment{}, err
	}

	enrollment, err := s.coord.Enroll(ctx, fetched.Path, companyID, fetched.Transient)
	if err != nil {
		s.fail(ctx, runID, err)
		return model.StampEnrollment{}, err
	}

	s.complete(ctx, runID, enrollment)
	return enrollment, nil
}

// Annotate fetches a page image and returns it as PNG with detection
// boxes drawn. A debug surface, so it is not recorded in run history.
func (s *Service) Annotate(ctx context.Context, src fetcher.Source) ([]byte, error) {
	fetched, err := s.fetch.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	return s.coord.Annotate(ctx, fetched.Path, fetched.Transient)
}

func (s *Service) begin(ctx context.Context, kind model.RunKind, src fetcher.Source) string {
	if s.runs == nil {
		return ""
	}
	document := src.Path
	if document == "" {
		document = src.URL
	}
	run, err := s.runs.CreateRun(ctx, kind, document)
	if err != nil {
		zap.L().Warn("service: create run failed", zap.Error(err))
		return ""
	}
	return run.ID
}

func (s *Service) complete(ctx context.Context, runID string, result any) {
	if s.runs == nil || runID == "" {
		return
	}
	if err := s.runs.CompleteRun(ctx, runID, result); err != nil {
		zap.L().Warn("service: complete run failed", zap.String("run_id", runID), zap.Error(err))
	}
}

func (s *Service) fail(ctx context.Context, runID string, cause error) {
	if s.runs == nil || runID == "" {
		return
	}
	if err := s.runs.FailRun(ctx, runID, cause); err != nil {
		zap.L().Warn("service: fail run failed", zap.String("run_id", runID), zap.Error(err))
	}
}
