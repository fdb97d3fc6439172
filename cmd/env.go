package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/docpipe"
	"github.com/sells-group/invoice-cli/internal/extract"
	"github.com/sells-group/invoice-cli/internal/fetcher"
	"github.com/sells-group/invoice-cli/internal/ocr"
	"github.com/sells-group/invoice-cli/internal/service"
	"github.com/sells-group/invoice-cli/internal/stamp"
	"github.com/sells-group/invoice-cli/internal/store"
	"github.com/sells-group/invoice-cli/internal/vecindex"
	"github.com/sells-group/invoice-cli/pkg/docqa"
	"github.com/sells-group/invoice-cli/pkg/embed"
	"github.com/sells-group/invoice-cli/pkg/vision"
)

// docEnv holds the initialized store and service stack shared by the
// extract/verify/enroll/batch/serve commands.
type docEnv struct {
	Store   store.Store
	Fetcher *fetcher.Fetcher
	Service *service.Service
}

// Close releases resources held by the environment.
func (e *docEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore builds the run-history store from config.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return st, nil
}

// initEnv validates config for mode, then wires the model clients, vector
// index, document pipeline, and service. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*docEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	qaClient, err := initDocQA()
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	visionClient := vision.NewClient(cfg.Vision.BaseURL)
	embedClient := embed.NewClient(cfg.Embed.BaseURL)

	index := vecindex.NewQdrant(vecindex.QdrantConfig{
		BaseURL:    cfg.Index.BaseURL,
		Collection: cfg.Index.Collection,
		Timeout:    time.Duration(cfg.Index.TimeoutSecs) * time.Second,
	})
	if err := index.EnsureCollection(ctx, cfg.Index.Dimensions); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "ensure stamp collection")
	}

	recognizer, err := ocr.NewRecognizer(cfg.OCR)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "init ocr")
	}

	var queries []extract.FieldQueries
	if cfg.Extract.QueriesPath != "" {
		queries, err = extract.LoadQueries(cfg.Extract.QueriesPath)
		if err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "load extraction queries")
		}
		zap.L().Info("extraction queries loaded",
			zap.String("path", cfg.Extract.QueriesPath),
			zap.Int("fields", len(queries)),
		)
	}

	validator := extract.Validator{
		MinConfidence: cfg.Extract.MinConfidence,
		MinLength:     cfg.Extract.MinLength,
	}
	orchestrator := extract.NewOrchestrator(extract.NewDocQAAnswerer(qaClient), recognizer, queries, validator)

	localizer := stamp.NewLocalizer(visionClient)
	resolver := stamp.NewResolver(embedClient, index, stamp.ResolverConfig{
		ScoreThreshold: cfg.Stamp.ScoreThreshold,
		VerifyTopK:     cfg.Stamp.VerifyTopK,
		Settle: stamp.SettlePolicy{
			PollInterval: time.Duration(cfg.Stamp.SettlePollIntervalMillis) * time.Millisecond,
			Timeout:      time.Duration(cfg.Stamp.SettleTimeoutSecs) * time.Second,
		},
	})

	filter := docpipe.NewRelevancyFilter(visionClient, cfg.Pipeline.RelevancyLabel)
	coordinator := docpipe.NewCoordinator(orchestrator, localizer, resolver, filter, docpipe.CoordinatorConfig{
		TempDir:       cfg.Pipeline.TempDir,
		RenderDPI:     cfg.Pipeline.RenderDPI,
		SkipRelevancy: cfg.Pipeline.SkipRelevancy,
	})

	f := fetcher.New(cfg.Fetch, cfg.Pipeline.TempDir)

	return &docEnv{
		Store:   st,
		Fetcher: f,
		Service: service.New(f, coordinator, st),
	}, nil
}

// initDocQA picks the document-QA backend from config.
func initDocQA() (docqa.Client, error) {
	switch cfg.DocQA.Provider {
	case "", "server":
		return docqa.NewClient(cfg.DocQA.BaseURL), nil
	case "anthropic":
		return docqa.NewAnthropic(cfg.DocQA.AnthropicKey, cfg.DocQA.Model), nil
	default:
		return nil, eris.Errorf("unknown docqa provider %q", cfg.DocQA.Provider)
	}
}
