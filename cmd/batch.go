package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/invoice-cli/internal/fetcher"
	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/report"
)

var (
	batchInput  string
	batchOutput string
	batchStamps bool
	batchLimit  int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Extract fields from a CSV of document sources",
	Long:  "Reads document paths or URLs from a CSV (one source per row, first column), runs extraction concurrently, and writes an XLSX report.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		f, err := os.Open(batchInput)
		if err != nil {
			return eris.Wrap(err, "open batch input")
		}
		defer f.Close()

		sources, err := fetcher.ReadSourceList(f, batchLimit)
		if err != nil {
			return err
		}

		results := processDocuments(ctx, sources, cfg.Batch.MaxConcurrentDocuments, batchStamps, env.Service.Extract)

		if err := report.WriteXLSX(batchOutput, results); err != nil {
			return eris.Wrap(err, "write report")
		}

		zap.L().Info("batch complete",
			zap.Int("documents", len(results)),
			zap.String("report", batchOutput),
		)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "CSV file of document sources (required)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "results.xlsx", "XLSX report path")
	batchCmd.Flags().BoolVar(&batchStamps, "stamps", false, "also detect and identify stamps on each page")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of documents to process (0 = all)")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}

// extractFunc is the callback signature for extracting one document.
type extractFunc func(ctx context.Context, src fetcher.Source, stampDetection bool) ([]model.PageRecord, error)

// processDocuments runs extraction over sources with bounded concurrency.
// Per-document failures are recorded in the result set, not fatal to the
// batch.
func processDocuments(ctx context.Context, sources []fetcher.Source, concurrency int, stampDetection bool, extract extractFunc) []report.DocumentResult {
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("documents", len(sources)),
		zap.Int("concurrency", concurrency),
	)

	results := make([]report.DocumentResult, len(sources))
	var mu sync.Mutex
	var succeeded, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, src := range sources {
		g.Go(func() error {
			document := src.Path
			if document == "" {
				document = src.URL
			}
			log := zap.L().With(zap.String("document", document))

			records, err := extract(gctx, src, stampDetection)
			if err != nil {
				failed.Add(1)
				log.Error("document failed", zap.Error(err))
			} else {
				succeeded.Add(1)
			}

			mu.Lock()
			results[i] = report.DocumentResult{Document: document, Records: records, Err: err}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	zap.L().Info("batch processed",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return results
}
