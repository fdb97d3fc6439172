package main

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/invoice-cli/internal/fetcher"
	"github.com/sells-group/invoice-cli/internal/model"
)

func TestProcessDocumentsToleratesFailures(t *testing.T) {
	sources := []fetcher.Source{
		{Path: "/data/good.pdf"},
		{Path: "/data/bad.pdf"},
		{URL: "https://example.com/also-good.pdf"},
	}

	var calls atomic.Int64
	results := processDocuments(context.Background(), sources, 2, false,
		func(ctx context.Context, src fetcher.Source, stampDetection bool) ([]model.PageRecord, error) {
			calls.Add(1)
			if src.Path == "/data/bad.pdf" {
				return nil, assert.AnError
			}
			return []model.PageRecord{{PageIndex: 1, ShipmentID: "0471234567"}}, nil
		})

	assert.EqualValues(t, 3, calls.Load())
	require.Len(t, results, 3)

	assert.Equal(t, "/data/good.pdf", results[0].Document)
	assert.NoError(t, results[0].Err)
	require.Len(t, results[0].Records, 1)

	assert.Equal(t, "/data/bad.pdf", results[1].Document)
	assert.Error(t, results[1].Err)
	assert.Empty(t, results[1].Records)

	assert.Equal(t, "https://example.com/also-good.pdf", results[2].Document)
	assert.NoError(t, results[2].Err)
}

func TestProcessDocumentsEmpty(t *testing.T) {
	results := processDocuments(context.Background(), nil, 4, false,
		func(ctx context.Context, src fetcher.Source, stampDetection bool) ([]model.PageRecord, error) {
			t.Fatal("should not be called")
			return nil, nil
		})
	assert.Empty(t, results)
}
