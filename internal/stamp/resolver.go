package stamp

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/vecindex"
	"github.com/sells-group/invoice-cli/pkg/embed"
)

// SettlePolicy bounds the wait for an enrollment write to become visible
// to reads. The guarantee is read-after-write: the very next similarity
// query must see the new embedding.
type SettlePolicy struct {
	PollInterval time.Duration
	Timeout      time.Duration
}

// ResolverConfig tunes identity resolution.
type ResolverConfig struct {
	// ScoreThreshold is the inclusive minimum similarity for accepting a
	// match (default 0.7).
	ScoreThreshold float64
	// VerifyTopK is the neighbor count for targeted verification
	// queries (default 10).
	VerifyTopK int
	// Settle bounds the enrollment visibility wait
	// (default 500ms interval, 30s timeout).
	Settle SettlePolicy
}

// Resolver resolves localized stamps to company identities via the
// embedding similarity index.
type Resolver struct {
	embedder embed.Client
	index    vecindex.Index
	cfg      ResolverConfig
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
}

// NewResolver wires a Resolver. Zero config fields take defaults.
func NewResolver(embedder embed.Client, index vecindex.Index, cfg ResolverConfig) *Resolver {
	if cfg.ScoreThreshold == 0 {
		cfg.ScoreThreshold = 0.7
	}
	if cfg.VerifyTopK == 0 {
		cfg.VerifyTopK = 10
	}
	if cfg.Settle.PollInterval == 0 {
		cfg.Settle.PollInterval = 500 * time.Millisecond
	}
	if cfg.Settle.Timeout == 0 {
		cfg.Settle.Timeout = 30 * time.Second
	}
	return &Resolver{
		embedder: embedder,
		index:    index,
		cfg:      cfg,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Identify resolves one localized stamp without a target hypothesis:
// top-1 nearest neighbor over the whole index. A nil match with nil error
// means the best neighbor scored below the threshold.
func (r *Resolver) Identify(ctx context.Context, imagePath string, box model.BoundingBox) (*model.StampMatch, error) {
	vector, err := r.embedBox(ctx, imagePath, box)
	if err != nil {
		return nil, err
	}

	matches, err := r.index.Search(ctx, vector, 1, "")
	if err != nil {
		return nil, eris.Wrap(err, "stamp: identify search")
	}
	if len(matches) == 0 || matches[0].Score < r.cfg.ScoreThreshold {
		return nil, nil
	}

	return &model.StampMatch{
		CompanyID:   matches[0].CompanyID(),
		Coordinates: box.Rect(),
	}, nil
}

// VerifyPage checks every localized box on one page against a target
// company. Existence reflects raw filtered-query hits regardless of score;
// the match flag requires at least one hit at or above the threshold.
// Collaborator failures on a single box degrade to that box contributing
// nothing.
func (r *Resolver) VerifyPage(ctx context.Context, imagePath string, boxes []model.BoundingBox, companyID string) model.VerificationRecord {
	log := zap.L().With(zap.String("image", imagePath), zap.String("company_id", companyID))
	target := strings.TrimLeft(companyID, "0")

	record := model.VerificationRecord{Boxes: []model.Rect{}}
	for _, box := range boxes {
		vector, err := r.embedBox(ctx, imagePath, box)
		if err != nil {
			log.Warn("stamp: verification embed failed", zap.Error(err))
			continue
		}

		matches, err := r.index.Search(ctx, vector, r.cfg.VerifyTopK, target)
		if err != nil {
			log.Warn("stamp: verification search failed", zap.Error(err))
			continue
		}

		if len(matches) > 0 {
			record.CompanyExists = true
		}
		for _, m := range matches {
			if m.Score > r.cfg.ScoreThreshold {
				record.CompanyMatch = true
				record.Boxes = append(record.Boxes, box.Rect())
				break
			}
		}
	}
	return record
}

// Enroll embeds the whole stamp image and writes it to the index tagged
// with the company. The identifier is a name-based UUID over the company
// and a millisecond timestamp, so retries within the same millisecond are
// idempotent. Enroll blocks until the write is visible to reads.
func (r *Resolver) Enroll(ctx context.Context, imagePath, companyID string) (model.StampEnrollment, error) {
	image, err := os.ReadFile(imagePath)
	if err != nil {
		return model.StampEnrollment{}, eris.Wrapf(err, "stamp: read enrollment image %s", imagePath)
	}

	vector, err := r.embedder.EmbedImage(ctx, image)
	if err != nil {
		return model.StampEnrollment{}, eris.Wrap(err, "stamp: embed enrollment image")
	}

	stampID := enrollmentID(companyID, r.now())
	point := vecindex.Point{
		ID:     stampID,
		Vector: vector,
		Metadata: map[string]any{
			vecindex.MetadataCompanyID: companyID,
		},
	}
	if err := r.index.Upsert(ctx, point); err != nil {
		return model.StampEnrollment{}, eris.Wrap(err, "stamp: upsert enrollment")
	}

	if err := r.settle(ctx, stampID); err != nil {
		return model.StampEnrollment{}, err
	}

	zap.L().Info("stamp: enrolled",
		zap.String("stamp_id", stampID),
		zap.String("company_id", companyID),
	)
	return model.StampEnrollment{StampID: stampID, CompanyID: companyID}, nil
}

// settle polls the index until the new point is visible or the policy
// timeout expires. Returning an error on timeout keeps the read-after-write
// guarantee explicit instead of silently unreliable.
func (r *Resolver) settle(ctx context.Context, stampID string) error {
	deadline := r.now().Add(r.cfg.Settle.Timeout)
	for {
		visible, err := r.index.Has(ctx, stampID)
		if err != nil {
			zap.L().Warn("stamp: settle poll failed", zap.Error(err))
		} else if visible {
			return nil
		}

		if r.now().After(deadline) {
			return eris.Errorf("stamp: enrollment %s not visible after %s", stampID, r.cfg.Settle.Timeout)
		}
		if err := r.sleep(ctx, r.cfg.Settle.PollInterval); err != nil {
			return eris.Wrap(err, "stamp: settle interrupted")
		}
	}
}

func (r *Resolver) embedBox(ctx context.Context, imagePath string, box model.BoundingBox) ([]float32, error) {
	crop, err := cropRegion(imagePath, box.Rect())
	if err != nil {
		return nil, err
	}
	vector, err := r.embedder.EmbedImage(ctx, crop)
	if err != nil {
		return nil, eris.Wrap(err, "stamp: embed crop")
	}
	return vector, nil
}

// enrollmentID derives the deterministic stamp identifier for one
// (company, instant) pair.
func enrollmentID(companyID string, at time.Time) string {
	seed := fmt.Sprintf("%s_%s%03d", companyID, at.Format("20060102150405"), at.Nanosecond()/int(time.Millisecond))
	return uuid.NewMD5(uuid.NameSpaceDNS, []byte(seed)).String()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
